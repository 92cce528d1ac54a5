package dialog

import (
	"context"
	"time"

	"github.com/kaiyuhsu/commutebot/internal/commute"
)

// Estimator computes a commute estimate for a completed plan.
type Estimator interface {
	Estimate(ctx context.Context, plan commute.Plan) (*commute.Estimate, error)
}

// ReminderScheduler is the slice of the scheduler the dialogue needs.
type ReminderScheduler interface {
	Schedule(id string, hour, minute int, loc *time.Location, fire func(ctx context.Context) error) error
}

// WeatherLookup answers the weather branch.
type WeatherLookup interface {
	Lookup(ctx context.Context, placeName string, at time.Time) (string, error)
}

// Notifier delivers reminder results outside the reply window.
type Notifier interface {
	PushEstimate(ctx context.Context, userID string, plan commute.Plan, est *commute.Estimate)
	PushError(ctx context.Context, userID string, err error)
}
