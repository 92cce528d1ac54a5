// Package session stores per-user dialogue state. Sessions live only for
// the span of one dialogue; completed commute plans are snapshotted
// separately so reminder firings never observe later dialogue activity.
package session

import (
	"time"

	"github.com/kaiyuhsu/commutebot/internal/commute"
)

// State is a node in the dialogue flow. It gates which inputs the next
// event may carry.
type State int

// Dialogue states in flow order.
const (
	StateIdle State = iota
	StateAwaitingOrigin
	StateAwaitingDestination
	StateAwaitingMode
	StateAwaitingTimeType
	StateAwaitingDateTime
	StateAwaitingReminderTime
	StateAwaitingWeatherPlace
	StateDone
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingOrigin:
		return "awaiting_origin"
	case StateAwaitingDestination:
		return "awaiting_destination"
	case StateAwaitingMode:
		return "awaiting_mode"
	case StateAwaitingTimeType:
		return "awaiting_time_type"
	case StateAwaitingDateTime:
		return "awaiting_date_time"
	case StateAwaitingReminderTime:
		return "awaiting_reminder_time"
	case StateAwaitingWeatherPlace:
		return "awaiting_weather_place"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Session is one user's in-flight dialogue. Fields fill in as the dialogue
// advances; UpdatedAt drives idle eviction.
type Session struct {
	UserID      string
	State       State
	Origin      string
	Destination string
	Mode        commute.Mode
	TimeType    commute.TimeType
	Target      time.Time
	RemindHour  int
	RemindMin   int
	UpdatedAt   time.Time
}

// Plan is the frozen snapshot of a completed dialogue, copied by value into
// the plan store. Reminder firings read these, never live sessions.
type Plan struct {
	UserID      string
	Origin      string
	Destination string
	Mode        commute.Mode
	TimeType    commute.TimeType
	Target      time.Time
	RemindHour  int
	RemindMin   int
	CompletedAt time.Time
}

// CommutePlan converts the snapshot into the estimator's input, anchored to
// the given day: the original target's time-of-day is re-applied to today's
// date in the supplied location.
func (p Plan) CommutePlan(today time.Time, loc *time.Location) commute.Plan {
	target := p.Target.In(loc)
	day := today.In(loc)
	anchored := time.Date(day.Year(), day.Month(), day.Day(),
		target.Hour(), target.Minute(), 0, 0, loc)

	return commute.Plan{
		Origin:      p.Origin,
		Destination: p.Destination,
		Mode:        p.Mode,
		TimeType:    p.TimeType,
		Target:      anchored,
	}
}
