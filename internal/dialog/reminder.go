package dialog

import (
	"context"
	"time"

	"github.com/kaiyuhsu/commutebot/internal/session"
)

// ReminderHandler is the daily job body for one user: re-anchor the
// completed plan to today, re-run the estimate, and push the result. A
// missing plan is a silent no-op, not an error; a failed estimate is
// pushed to the user and the job stays scheduled for tomorrow.
type ReminderHandler struct {
	userID    string
	plans     *session.PlanStore
	estimator Estimator
	notifier  Notifier
	location  *time.Location
	now       func() time.Time
}

// NewReminderHandler creates the job body.
func NewReminderHandler(
	userID string,
	plans *session.PlanStore,
	estimator Estimator,
	notifier Notifier,
	location *time.Location,
	now func() time.Time,
) *ReminderHandler {
	return &ReminderHandler{
		userID:    userID,
		plans:     plans,
		estimator: estimator,
		notifier:  notifier,
		location:  location,
		now:       now,
	}
}

// Execute runs one firing.
func (r *ReminderHandler) Execute(ctx context.Context) error {
	snap, ok := r.plans.Snapshot(r.userID)
	if !ok {
		return nil
	}

	plan := snap.CommutePlan(r.now(), r.location)

	est, err := r.estimator.Estimate(ctx, plan)
	if err != nil {
		r.notifier.PushError(ctx, r.userID, err)
		return err
	}

	r.notifier.PushEstimate(ctx, r.userID, plan, est)
	return nil
}

// Name identifies the job in scheduler logs.
func (r *ReminderHandler) Name() string {
	return "commute-reminder-" + r.userID
}
