package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS postulantes (
	id uuid PRIMARY KEY,
	phone_number varchar(20) NOT NULL,
	puesto_id integer,
	puesto_name varchar(200),
	es_apto boolean NOT NULL DEFAULT false,
	fecha_entrevista text,
	confirmacion_asistencia boolean,
	fecha_postulacion timestamptz NOT NULL,
	datos jsonb NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_postulantes_phone ON postulantes (phone_number);
CREATE INDEX IF NOT EXISTS idx_postulantes_es_apto ON postulantes (es_apto);
CREATE INDEX IF NOT EXISTS idx_postulantes_fecha ON postulantes (fecha_postulacion DESC);
CREATE INDEX IF NOT EXISTS idx_postulantes_entrevista ON postulantes (fecha_entrevista) WHERE confirmacion_asistencia;
`

// Postgres is the durable application store.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) SaveApplication(ctx context.Context, app Application) error {
	data, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("encode application: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO postulantes (id, phone_number, puesto_id, puesto_name, es_apto, fecha_entrevista, confirmacion_asistencia, fecha_postulacion, datos)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		app.ID, app.Phone, nullInt(app.PositionID), nullString(app.PositionName), app.Eligible,
		nullString(app.InterviewDate), app.InterviewConfirmed, app.AppliedAt, data,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (p *Postgres) CountInterviewsOnDate(ctx context.Context, day time.Time) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM postulantes WHERE fecha_entrevista = $1 AND confirmacion_asistencia`,
		dayKey(day),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count interviews: %w", err)
	}
	return n, nil
}

func (p *Postgres) GetApplication(ctx context.Context, phone string) (*Application, error) {
	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT datos FROM postulantes WHERE phone_number = $1 ORDER BY fecha_postulacion DESC, created_at DESC LIMIT 1`,
		CleanPhone(phone),
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	return decodeApplication(data)
}

func (p *Postgres) ListApplications(ctx context.Context, f Filter) ([]Application, error) {
	query := `SELECT datos FROM postulantes`
	args := []any{}
	if f.Eligible != nil {
		query += ` WHERE es_apto = $1`
		args = append(args, *f.Eligible)
	}
	query += fmt.Sprintf(` ORDER BY fecha_postulacion DESC, created_at DESC LIMIT %d`, f.limit())

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	apps := []Application{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		app, err := decodeApplication(data)
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

func (p *Postgres) Stats(ctx context.Context) (Stats, error) {
	var total, eligible int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN es_apto THEN 1 ELSE 0 END), 0) FROM postulantes`,
	).Scan(&total, &eligible)
	if err != nil {
		return Stats{}, fmt.Errorf("count applications: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT COALESCE(puesto_name, $1), COUNT(*) FROM postulantes GROUP BY 1`,
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

func decodeApplication(data []byte) (*Application, error) {
	var app Application
	if err := json.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("decode application: %w", err)
	}
	return &app, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
