package storage

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/spigell/recruit-bot/internal/metrics"
	"go.uber.org/zap"
)

// Fallback writes to the durable store and falls back to the local one when
// the durable store fails or is not configured. Reads merge both stores.
type Fallback struct {
	durable Repository
	local   Repository
	logger  *zap.Logger
}

// NewFallback combines the stores. durable may be nil; local must not be.
func NewFallback(durable, local Repository, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{durable: durable, local: local, logger: logger}
}

func (f *Fallback) Name() string {
	if f.durable == nil {
		return f.local.Name()
	}
	return f.durable.Name() + "+" + f.local.Name()
}

func (f *Fallback) SaveApplication(ctx context.Context, app Application) error {
	if f.durable != nil {
		err := f.durable.SaveApplication(ctx, app)
		metrics.Save(f.durable.Name(), err)
		if err == nil {
			return nil
		}
		f.logger.Warn("saving application to durable store, falling back",
			zap.String("backend", f.durable.Name()),
			zap.String("phone", app.Phone),
			zap.Error(err),
		)
	}

	err := f.local.SaveApplication(ctx, app)
	metrics.Save(f.local.Name(), err)
	return err
}

func (f *Fallback) CountInterviewsOnDate(ctx context.Context, day time.Time) (int, error) {
	counts, err := both(f, "count interviews", func(r Repository) (int, error) {
		return r.CountInterviewsOnDate(ctx, day)
	})
	if err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// GetApplication returns the newest application of phone across both stores.
func (f *Fallback) GetApplication(ctx context.Context, phone string) (*Application, error) {
	found, err := both(f, "get application", func(r Repository) (*Application, error) {
		return r.GetApplication(ctx, phone)
	})
	if err != nil {
		return nil, err
	}

	newest := found[0]
	for _, app := range found[1:] {
		if app.AppliedAt.After(newest.AppliedAt) {
			newest = app
		}
	}
	return newest, nil
}

func (f *Fallback) ListApplications(ctx context.Context, filter Filter) ([]Application, error) {
	lists, err := both(f, "list applications", func(r Repository) ([]Application, error) {
		return r.ListApplications(ctx, filter)
	})
	if err != nil {
		return nil, err
	}

	var apps []Application
	for _, l := range lists {
		apps = append(apps, l...)
	}
	slices.SortStableFunc(apps, func(a, b Application) int {
		return b.AppliedAt.Compare(a.AppliedAt)
	})
	if limit := filter.limit(); len(apps) > limit {
		apps = apps[:limit]
	}
	return apps, nil
}

func (f *Fallback) Stats(ctx context.Context) (Stats, error) {
	all, err := both(f, "stats", func(r Repository) (Stats, error) {
		return r.Stats(ctx)
	})
	if err != nil {
		return Stats{}, err
	}

	var total, eligible int
	byPosition := map[string]int{}
	for _, s := range all {
		total += s.Total
		eligible += s.Eligible
		for name, n := range s.ByPosition {
			byPosition[name] += n
		}
	}
	return newStats(total, eligible, byPosition), nil
}

func (f *Fallback) Close() error {
	var errs []error
	if f.durable != nil {
		errs = append(errs, f.durable.Close())
	}
	errs = append(errs, f.local.Close())
	return errors.Join(errs...)
}

// both runs fn against every configured store. An application lives in the
// durable store, or only in the local one when its durable save failed, so
// reads combine the answers. A failing store is left out; the call fails only
// when no store answered.
func both[T any](f *Fallback, op string, fn func(Repository) (T, error)) ([]T, error) {
	repos := []Repository{f.local}
	if f.durable != nil {
		repos = []Repository{f.durable, f.local}
	}

	var (
		vals []T
		errs []error
	)
	for _, r := range repos {
		v, err := fn(r)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				f.logger.Warn("reading from store",
					zap.String("operation", op),
					zap.String("backend", r.Name()),
					zap.Error(err),
				)
			}
			errs = append(errs, err)
			continue
		}
		vals = append(vals, v)
	}

	if len(vals) == 0 {
		return nil, errors.Join(errs...)
	}
	return vals, nil
}
