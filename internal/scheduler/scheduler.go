// Package scheduler picks interview days with free capacity.
package scheduler

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
)

const (
	DefaultCapacity  = 40
	DefaultLookahead = 30
	DefaultTimezone  = "America/Lima"

	slotHour   = 8
	slotMinute = 30
)

var weekdays = [...]string{"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"}

// Counter reports how many interviews are already booked on a calendar day.
type Counter interface {
	CountInterviewsOnDate(ctx context.Context, day time.Time) (int, error)
}

// Slot is a proposed interview time.
type Slot struct {
	Time     time.Time
	Weekday  string
	Short    string
	Degraded bool
}

// ISO returns the slot time in RFC3339.
func (s Slot) ISO() string {
	return s.Time.Format(time.RFC3339)
}

// Config tunes the scheduler.
type Config struct {
	Capacity  int
	Lookahead int
	Location  *time.Location
}

// Scheduler finds the next business day below capacity.
type Scheduler struct {
	counter Counter
	cfg     Config
	now     func() time.Time
	logger  *zap.Logger
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a scheduler. Zero config values take the defaults.
func New(counter Counter, cfg Config, opts ...Option) *Scheduler {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = DefaultLookahead
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	s := &Scheduler{
		counter: counter,
		cfg:     cfg,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadLocation resolves a timezone name, falling back to America/Lima for
// an empty name.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// NextValidSlot returns the first business day after today with free
// capacity. When every candidate within the lookahead is full it returns
// the next business day marked as degraded. It never returns a weekend.
func (s *Scheduler) NextValidSlot(ctx context.Context) Slot {
	today := s.today()
	day := today.AddDate(0, 0, 1)

	for i := 0; i < s.cfg.Lookahead; i++ {
		day = skipWeekend(day)

		count := 0
		if s.counter != nil {
			n, err := s.counter.CountInterviewsOnDate(ctx, day)
			if err != nil {
				s.logger.Warn("count interviews failed, assuming free capacity",
					zap.String("date", day.Format(time.DateOnly)), zap.Error(err))
			} else {
				count = n
			}
		}

		if count < s.cfg.Capacity {
			return newSlot(day, false)
		}

		s.logger.Debug("interview day full", zap.String("date", day.Format(time.DateOnly)), zap.Int("count", count))
		day = day.AddDate(0, 0, 1)
	}

	fallback := skipWeekend(today.AddDate(0, 0, 1))
	s.logger.Warn("no interview capacity within lookahead, using fallback day",
		zap.Int("lookahead", s.cfg.Lookahead), zap.String("date", fallback.Format(time.DateOnly)))

	slot := newSlot(fallback, true)
	if fallback.Equal(today.AddDate(0, 0, 1)) {
		slot.Weekday = "mañana"
	}
	return slot
}

func (s *Scheduler) today() time.Time {
	now := s.now().In(s.cfg.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location)
}

func skipWeekend(day time.Time) time.Time {
	switch day.Weekday() {
	case time.Saturday:
		return day.AddDate(0, 0, 2)
	case time.Sunday:
		return day.AddDate(0, 0, 1)
	}
	return day
}

func newSlot(day time.Time, degraded bool) Slot {
	at := time.Date(day.Year(), day.Month(), day.Day(), slotHour, slotMinute, 0, 0, day.Location())
	return Slot{
		Time:     at,
		Weekday:  weekdays[at.Weekday()],
		Short:    at.Format("02/01"),
		Degraded: degraded,
	}
}
