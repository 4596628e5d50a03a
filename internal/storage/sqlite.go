package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS postulantes (
	id TEXT PRIMARY KEY,
	phone_number TEXT NOT NULL,
	puesto_id INTEGER,
	puesto_name TEXT,
	es_apto INTEGER NOT NULL DEFAULT 0,
	fecha_entrevista TEXT,
	confirmacion_asistencia INTEGER,
	fecha_postulacion TEXT NOT NULL,
	datos TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_postulantes_phone ON postulantes(phone_number);
CREATE INDEX IF NOT EXISTS idx_postulantes_fecha ON postulantes(fecha_postulacion);
CREATE INDEX IF NOT EXISTS idx_postulantes_entrevista ON postulantes(fecha_entrevista);
`

// sqliteTime sorts lexically in time order.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

// SQLite is the local fallback store.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Writers serialize on the file anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Name() string { return "sqlite" }

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) SaveApplication(ctx context.Context, app Application) error {
	data, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("encode application: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO postulantes (id, phone_number, puesto_id, puesto_name, es_apto, fecha_entrevista, confirmacion_asistencia, fecha_postulacion, datos)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		app.ID.String(), app.Phone, nullInt(app.PositionID), nullString(app.PositionName), app.Eligible,
		nullString(app.InterviewDate), app.InterviewConfirmed, app.AppliedAt.UTC().Format(sqliteTime), string(data),
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *SQLite) CountInterviewsOnDate(ctx context.Context, day time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM postulantes WHERE fecha_entrevista = ? AND confirmacion_asistencia = 1`,
		dayKey(day),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count interviews: %w", err)
	}
	return n, nil
}

func (s *SQLite) GetApplication(ctx context.Context, phone string) (*Application, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT datos FROM postulantes WHERE phone_number = ? ORDER BY fecha_postulacion DESC, rowid DESC LIMIT 1`,
		CleanPhone(phone),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	return decodeApplication([]byte(data))
}

func (s *SQLite) ListApplications(ctx context.Context, f Filter) ([]Application, error) {
	query := `SELECT datos FROM postulantes`
	args := []any{}
	if f.Eligible != nil {
		query += ` WHERE es_apto = ?`
		args = append(args, *f.Eligible)
	}
	query += ` ORDER BY fecha_postulacion DESC, rowid DESC LIMIT ?`
	args = append(args, f.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	apps := []Application{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		app, err := decodeApplication([]byte(data))
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var total, eligible int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(es_apto), 0) FROM postulantes`,
	).Scan(&total, &eligible)
	if err != nil {
		return Stats{}, fmt.Errorf("count applications: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(puesto_name, ?), COUNT(*) FROM postulantes GROUP BY 1`,
		unknownPosition,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("group applications: %w", err)
	}
	defer rows.Close()

	byPosition := map[string]int{}
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return Stats{}, fmt.Errorf("scan position count: %w", err)
		}
		byPosition[name] = n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("group applications: %w", err)
	}

	return newStats(total, eligible, byPosition), nil
}
