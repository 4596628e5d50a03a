// Package api is the HTTP front door: the WAHA webhook plus read-only routes
// for operators.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/spigell/recruit-bot/internal/metrics"
	"github.com/spigell/recruit-bot/internal/session"
	"github.com/spigell/recruit-bot/internal/storage"
	"go.uber.org/zap"
)

const (
	DefaultAddr        = ":5006"
	DefaultTypingDelay = 2 * time.Second
	DefaultRateLimit   = 120

	serviceName       = "WhatsApp Bot API (RRHH)"
	readHeaderTimeout = 10 * time.Second
	queryTimeout      = 10 * time.Second
)

// Processor turns one inbound message into the reply.
type Processor interface {
	Process(ctx context.Context, id, text string) string
}

// Gateway delivers replies to WhatsApp.
type Gateway interface {
	SendText(ctx context.Context, chatID, text string) error
	SendSeen(ctx context.Context, chatID string)
	StartTyping(ctx context.Context, chatID string)
	StopTyping(ctx context.Context, chatID string)
}

// Sessions exposes the live conversations.
type Sessions interface {
	Active() int
	Snapshot() map[string]*session.Session
}

// Applications is the read side of the repository.
type Applications interface {
	GetApplication(ctx context.Context, phone string) (*storage.Application, error)
	ListApplications(ctx context.Context, f storage.Filter) ([]storage.Application, error)
	Stats(ctx context.Context) (storage.Stats, error)
}

type Config struct {
	Addr        string
	TypingDelay time.Duration
	// RateLimit is the number of webhook requests allowed per IP and minute.
	// Zero disables the limit.
	RateLimit   int
	CORSOrigins []string
}

type Deps struct {
	Processor    Processor
	Gateway      Gateway
	Sessions     Sessions
	Applications Applications
	Logger       *zap.Logger
}

type Server struct {
	cfg          Config
	processor    Processor
	gateway      Gateway
	sessions     Sessions
	applications Applications
	logger       *zap.Logger

	router chi.Router
	http   *http.Server
}

func NewServer(cfg Config, deps Deps) (*Server, error) {
	switch {
	case deps.Processor == nil:
		return nil, errors.New("processor is required")
	case deps.Gateway == nil:
		return nil, errors.New("gateway is required")
	case deps.Sessions == nil:
		return nil, errors.New("sessions are required")
	case deps.Applications == nil:
		return nil, errors.New("applications are required")
	}

	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.TypingDelay < 0 {
		cfg.TypingDelay = 0
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	s := &Server{
		cfg:          cfg,
		processor:    deps.Processor,
		gateway:      deps.Gateway,
		sessions:     deps.Sessions,
		applications: deps.Applications,
		logger:       deps.Logger.Named("api"),
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTPMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Group(func(wr chi.Router) {
		if s.cfg.RateLimit > 0 {
			wr.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Minute))
		}
		wr.Post("/chatbot/webhook", s.webhook)
		wr.Post("/chatbot/webhook/", s.webhook)
	})

	r.Get("/", s.root)
	r.Get("/health", s.health)
	r.Get("/postulantes", s.listApplications)
	r.Get("/postulantes/stats", s.stats)
	r.Get("/postulantes/{phone}", s.getApplication)
	r.Get("/sessions", s.listSessions)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

// Handler returns the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
