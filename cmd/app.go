package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/recruit-bot/internal/ai"
	"github.com/spigell/recruit-bot/internal/ai/gemini"
	"github.com/spigell/recruit-bot/internal/dialogue"
	"github.com/spigell/recruit-bot/internal/events"
	"github.com/spigell/recruit-bot/internal/logger"
	"github.com/spigell/recruit-bot/internal/recruit"
	"github.com/spigell/recruit-bot/internal/scheduler"
	"github.com/spigell/recruit-bot/internal/secrets"
	"github.com/spigell/recruit-bot/internal/session"
	"github.com/spigell/recruit-bot/internal/storage"
	"go.uber.org/zap"
)

// bot holds everything the commands share.
type bot struct {
	engine     *dialogue.Engine
	store      *session.Store
	repository storage.Repository

	closers []func() error
}

func (b *bot) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

func newBot(ctx context.Context, config *Config, log *zap.Logger) (*bot, error) {
	b := &bot{}

	repo, err := newRepository(ctx, config.Storage, log)
	if err != nil {
		return nil, err
	}
	b.repository = repo
	b.closers = append(b.closers, repo.Close)

	backend, err := newSessionBackend(ctx, config.Session, log)
	if err != nil {
		b.Close()
		return nil, err
	}
	if closer, ok := backend.(interface{ Close() error }); ok {
		b.closers = append(b.closers, closer.Close)
	}

	b.store = session.NewStore(backend, session.Config{
		Timeout:       config.Session.Timeout,
		Cooldown:      config.Session.Cooldown,
		SweepInterval: config.Session.SweepInterval,
	}, session.WithLogger(log.Named("session")))

	adapter, err := newAIAdapter(ctx, config, log)
	if err != nil {
		b.Close()
		return nil, err
	}

	var matcher recruit.BranchMatcher
	if adapter.Enabled() {
		matcher = adapter
	}
	aptitude := recruit.NewAptitude(matcher, log.Named("aptitude"))

	loc, err := scheduler.LoadLocation(config.Scheduler.Timezone)
	if err != nil {
		b.Close()
		return nil, err
	}
	sched := scheduler.New(repo, scheduler.Config{
		Capacity:  config.Scheduler.Capacity,
		Lookahead: config.Scheduler.LookaheadDays,
		Location:  loc,
	}, scheduler.WithLogger(log.Named("scheduler")))

	publisher, err := newPublisher(config.Events, log)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.closers = append(b.closers, func() error { publisher.Close(); return nil })

	b.engine, err = dialogue.New(dialogue.Deps{
		Store:      b.store,
		Flow:       recruit.NewFlow(aptitude),
		Extractors: recruit.NewExtractors(recruit.DefaultAnswers(config.Dialogue.YesWords, config.Dialogue.NoWords)),
		Aptitude:   aptitude,
		Scheduler:  sched,
		Repository: repo,
		AI:         adapter,
		Events:     publisher,
		Logger:     log.Named("dialogue"),
	}, dialogue.Config{
		Company:      config.Dialogue.Company,
		Address:      config.Dialogue.Address,
		StoreTimeout: config.Dialogue.StoreTimeout,
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("building dialogue engine: %w", err)
	}

	return b, nil
}

// newRepository opens the local SQLite store and, when configured, Postgres
// in front of it. An unreachable Postgres is logged and skipped.
func newRepository(ctx context.Context, cfg StorageConfig, log *zap.Logger) (storage.Repository, error) {
	local, err := storage.NewSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	var durable storage.Repository
	if url := strings.TrimSpace(cfg.DatabaseURL); url != "" {
		pg, err := storage.NewPostgres(ctx, url)
		if err != nil {
			log.Warn("postgres unavailable, using sqlite only", zap.Error(err))
		} else {
			durable = pg
		}
	}

	repo := storage.NewFallback(durable, local, log.Named("storage"))
	log.Info("application storage ready", zap.String("backend", repo.Name()), zap.String("sqlite_path", cfg.SQLitePath))
	return repo, nil
}

func newSessionBackend(ctx context.Context, cfg SessionConfig, log *zap.Logger) (session.Backend, error) {
	if cfg.RedisURL == "" {
		return session.NewMemoryBackend(), nil
	}

	// Snapshots outlive the cooldown so a restart keeps completed sessions.
	backend, err := session.NewRedisBackend(ctx, cfg.RedisURL, cfg.Timeout+cfg.Cooldown)
	if err != nil {
		return nil, fmt.Errorf("connecting session redis: %w", err)
	}
	log.Info("session snapshots stored in redis")
	return backend, nil
}

// newAIAdapter returns a disabled adapter when no Gemini key is configured.
func newAIAdapter(ctx context.Context, config *Config, log *zap.Logger) (*ai.Adapter, error) {
	cfg := config.AI.Gemini

	apiKey, err := secrets.Optional(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
	})
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		log.Warn("gemini api key is not set, running with deterministic extraction only",
			zap.String("hint", "set ai.gemini.api-key-file or GEMINI_API_KEY"),
		)
		return ai.NewAdapter(nil, nil, cfg.Timeout, log), nil
	}

	genLogger := logger.WithCommonFields(log, "gemini", cfg.Model).With(
		zap.Int("ai_retry_attempts", cfg.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, gemini.Options{
		Model:       cfg.Model,
		MaxRetries:  cfg.MaxRetries,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, genLogger)
	if err != nil {
		return nil, err
	}

	company := config.Dialogue.Company
	if company == "" {
		company = dialogue.DefaultCompany
	}
	assistant := gemini.NewAssistant(generator, company, log, cfg.MaxLogLength)

	return ai.NewAdapter(assistant, assistant, cfg.Timeout, log.Named("ai")), nil
}

func newPublisher(cfg EventsConfig, log *zap.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		return events.Nop{}, nil
	}

	pub, err := events.NewNATS(cfg.NATSURL, cfg.Token, cfg.Subject, log.Named("events"))
	if err != nil {
		return nil, fmt.Errorf("connecting nats: %w", err)
	}
	return pub, nil
}
