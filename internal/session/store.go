package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTimeout       = 60 * time.Minute
	DefaultCooldown      = 24 * time.Hour
	DefaultSweepInterval = 5 * time.Minute
)

var ErrEmptyID = errors.New("empty conversation id")

type Config struct {
	Timeout       time.Duration
	Cooldown      time.Duration
	SweepInterval time.Duration
}

type entry struct {
	mu      sync.Mutex
	session *Session
	loaded  bool
	removed bool
}

// Store owns every session. A caller borrows one with Acquire and hands it
// back with Release; calls for the same id are serialized, calls for
// different ids never wait on each other.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	backend Backend
	cfg     Config
	now     func() time.Time
	logger  *zap.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a store. A nil backend keeps snapshots in memory.
func NewStore(backend Backend, cfg Config, opts ...Option) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	s := &Store{
		entries: make(map[string]*entry),
		backend: backend,
		cfg:     cfg,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Timeout() time.Duration  { return s.cfg.Timeout }
func (s *Store) Cooldown() time.Duration { return s.cfg.Cooldown }

// Acquire locks the session of id and returns it, or nil when there is none.
// Every successful Acquire must be paired with Release.
func (s *Store) Acquire(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	for {
		e := s.entry(id)
		e.mu.Lock()
		if e.removed {
			// Swept between lookup and lock.
			e.mu.Unlock()
			continue
		}

		if !e.loaded {
			sess, err := s.backend.Load(ctx, id)
			if err != nil {
				s.logger.Warn("loading session snapshot", zap.String("id", id), zap.String("backend", s.backend.Name()), zap.Error(err))
			}
			e.session = sess
			e.loaded = true
		}
		return e.session, nil
	}
}

// Release stores sess as the session of id and unlocks it. A nil sess
// removes the session.
func (s *Store) Release(ctx context.Context, id string, sess *Session) {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return
	}

	e.session = sess
	var err error
	if sess == nil {
		err = s.backend.Delete(ctx, id)
	} else {
		err = s.backend.Save(ctx, id, sess)
	}
	if err != nil {
		s.logger.Warn("persisting session snapshot", zap.String("id", id), zap.String("backend", s.backend.Name()), zap.Error(err))
	}
	e.mu.Unlock()
}

func (s *Store) entry(id string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		e = &entry{}
		s.entries[id] = e
	}
	return e
}

// Sweep drops expired active sessions and completed sessions past the
// cooldown. Sessions in use are skipped. It returns how many were removed.
func (s *Store) Sweep(ctx context.Context) int {
	now := s.now()
	var stale []string

	s.mu.Lock()
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if s.stale(e.session, now) {
			e.removed = true
			delete(s.entries, id)
			stale = append(stale, id)
		}
		e.mu.Unlock()
	}
	s.mu.Unlock()

	for _, id := range stale {
		if err := s.backend.Delete(ctx, id); err != nil {
			s.logger.Warn("deleting session snapshot", zap.String("id", id), zap.Error(err))
		}
	}

	if len(stale) > 0 {
		s.logger.Debug("sessions swept", zap.Int("removed", len(stale)))
	}
	return len(stale)
}

func (s *Store) stale(sess *Session, now time.Time) bool {
	if sess == nil {
		return true
	}
	if sess.Expired(now, s.cfg.Timeout) {
		return true
	}
	return sess.Completed && sess.CooldownLeft(now, s.cfg.Cooldown) == 0
}

// Run sweeps on every interval tick until ctx is done.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Active counts the sessions that are neither completed nor expired.
func (s *Store) Active() int {
	n := 0
	for _, sess := range s.Snapshot() {
		if !sess.Completed {
			n++
		}
	}
	return n
}

// Snapshot returns copies of every live session keyed by id.
func (s *Store) Snapshot() map[string]*Session {
	s.mu.Lock()
	ids := make([]string, 0, len(s.entries))
	entries := make([]*entry, 0, len(s.entries))
	for id, e := range s.entries {
		ids = append(ids, id)
		entries = append(entries, e)
	}
	s.mu.Unlock()

	now := s.now()
	out := make(map[string]*Session, len(ids))
	for i, e := range entries {
		e.mu.Lock()
		if !e.removed && e.session != nil && !e.session.Expired(now, s.cfg.Timeout) {
			out[ids[i]] = e.session.Clone()
		}
		e.mu.Unlock()
	}
	return out
}
