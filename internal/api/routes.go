package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spigell/recruit-bot/internal/recruit"
	"github.com/spigell/recruit-bot/internal/storage"
	"go.uber.org/zap"
)

type sessionView struct {
	Step         int             `json:"step"`
	Data         recruit.Profile `json:"data"`
	Completed    bool            `json:"completed"`
	LastActivity *time.Time      `json:"last_activity"`
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":         serviceName,
		"health":          "ok",
		"sessions_active": s.sessions.Active(),
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"service":         serviceName,
		"sessions_active": s.sessions.Active(),
	})
}

func (s *Server) listApplications(w http.ResponseWriter, r *http.Request) {
	var f storage.Filter

	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		f.Limit = n
	}
	if v := q.Get("es_apto"); v != "" {
		eligible := strings.EqualFold(v, "true")
		f.Eligible = &eligible
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	apps, err := s.applications.ListApplications(ctx, f)
	if err != nil {
		s.internalError(w, "listing applications", err)
		return
	}
	if apps == nil {
		apps = []storage.Application{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"total": len(apps), "postulantes": apps})
}

func (s *Server) getApplication(w http.ResponseWriter, r *http.Request) {
	phone := storage.CleanPhone(chi.URLParam(r, "phone"))

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	app, err := s.applications.GetApplication(ctx, phone)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Postulante no encontrado")
	case err != nil:
		s.internalError(w, "getting application", err)
	default:
		writeJSON(w, http.StatusOK, app)
	}
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	stats, err := s.applications.Stats(ctx)
	if err != nil {
		s.internalError(w, "computing stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) listSessions(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string]sessionView)
	for id, sess := range s.sessions.Snapshot() {
		view := sessionView{
			Step:      sess.Step,
			Data:      sess.Profile,
			Completed: sess.Completed,
		}
		if !sess.LastActivity.IsZero() {
			last := sess.LastActivity
			view.LastActivity = &last
		}
		out[id] = view
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
