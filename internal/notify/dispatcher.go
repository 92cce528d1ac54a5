// Package notify formats commute results into user-facing messages and
// pushes them over the outbound messaging channel.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kaiyuhsu/commutebot/internal/commute"
)

// Pusher is the outbound messaging seam. Delivery failures are logged and
// swallowed; they never propagate back into the dialogue or scheduler
// paths.
type Pusher interface {
	Push(ctx context.Context, userID, text string) error
}

// Dispatcher sends exactly one outbound message per invocation.
type Dispatcher struct {
	pusher Pusher
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(pusher Pusher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		pusher: pusher,
		logger: logger,
	}
}

// PushEstimate delivers a reminder-triggered recommendation.
func (d *Dispatcher) PushEstimate(ctx context.Context, userID string, plan commute.Plan, est *commute.Estimate) {
	d.push(ctx, userID, FormatReminder(plan, est))
}

// PushError delivers a reminder-triggered failure report.
func (d *Dispatcher) PushError(ctx context.Context, userID string, err error) {
	d.push(ctx, userID, FormatError(err))
}

func (d *Dispatcher) push(ctx context.Context, userID, text string) {
	if err := d.pusher.Push(ctx, userID, text); err != nil {
		d.logger.Error("push delivery failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
	}
}

// FormatConfirmation renders the dialogue-completion reply: the plan the
// user built, the recommended departure, and the daily reminder time.
func FormatConfirmation(plan commute.Plan, est *commute.Estimate, remindHour, remindMin int) string {
	var b strings.Builder

	b.WriteString("Commute reminder is set!\n")
	fmt.Fprintf(&b, "Route: %s → %s (%s)\n", plan.Origin, plan.Destination, plan.Mode)
	if plan.TimeType == commute.TimeTypeArrival {
		fmt.Fprintf(&b, "Arrive by: %s\n", est.Arrival.Format("2006-01-02 15:04"))
	} else {
		fmt.Fprintf(&b, "Depart at: %s\n", est.Departure.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "Recommended departure: %s\n", est.Departure.Format("15:04"))
	fmt.Fprintf(&b, "Estimated travel time: %s", est.DurationText)
	if est.DistanceText != "" {
		fmt.Fprintf(&b, " (%s)", est.DistanceText)
	}
	fmt.Fprintf(&b, "\nDaily reminder at %02d:%02d.", remindHour, remindMin)

	return b.String()
}

// FormatReminder renders the daily push.
func FormatReminder(plan commute.Plan, est *commute.Estimate) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Leave at %s today for %s → %s (%s).\n",
		est.Departure.Format("15:04"), plan.Origin, plan.Destination, plan.Mode)
	fmt.Fprintf(&b, "Estimated travel time: %s", est.DurationText)
	if est.DistanceText != "" {
		fmt.Fprintf(&b, " (%s)", est.DistanceText)
	}

	return b.String()
}

// FormatError renders an estimator failure for the user. The shape of the
// failure picks the message; unclassified errors fall back to a generic
// line so internals never leak.
func FormatError(err error) string {
	var apiErr *commute.ExternalAPIError
	var malformed *commute.MalformedResponseError
	var unavailable *commute.UnavailableError

	switch {
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Commute lookup failed: the routing service said %s. Please start over.", apiErr.Status)
	case errors.As(err, &malformed):
		return "Commute lookup failed: the routing service sent an unusable answer. Please start over."
	case errors.As(err, &unavailable):
		return "Commute lookup failed: the routing service is unreachable right now. Please start over."
	default:
		return "Something went wrong on our side. Please start over."
	}
}
