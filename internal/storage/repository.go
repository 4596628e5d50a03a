package storage

import (
	"context"
	"errors"
	"math"
	"time"
)

const DefaultListLimit = 100

var ErrNotFound = errors.New("application not found")

// Filter narrows ListApplications.
type Filter struct {
	Limit    int
	Eligible *bool
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// Stats summarizes the stored applications.
type Stats struct {
	Total      int            `json:"total_postulantes"`
	Eligible   int            `json:"aptos"`
	Ineligible int            `json:"no_aptos"`
	Rate       float64        `json:"tasa_aprobacion"`
	ByPosition map[string]int `json:"por_puesto"`
}

// Repository persists applications.
type Repository interface {
	Name() string
	SaveApplication(ctx context.Context, app Application) error
	// CountInterviewsOnDate counts confirmed interviews on the calendar day of day.
	CountInterviewsOnDate(ctx context.Context, day time.Time) (int, error)
	// GetApplication returns the newest application of phone or ErrNotFound.
	GetApplication(ctx context.Context, phone string) (*Application, error)
	ListApplications(ctx context.Context, f Filter) ([]Application, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

const unknownPosition = "Desconocido"

func newStats(total, eligible int, byPosition map[string]int) Stats {
	s := Stats{
		Total:      total,
		Eligible:   eligible,
		Ineligible: total - eligible,
		ByPosition: byPosition,
	}
	if s.ByPosition == nil {
		s.ByPosition = map[string]int{}
	}
	if total > 0 {
		s.Rate = math.Round(float64(eligible)*10000/float64(total)) / 100
	}
	return s
}
