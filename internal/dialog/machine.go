// Package dialog drives the per-user conversation that collects a commute
// plan and, on completion, runs the estimator and installs the daily
// reminder.
package dialog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kaiyuhsu/commutebot/internal/commute"
	"github.com/kaiyuhsu/commutebot/internal/line"
	"github.com/kaiyuhsu/commutebot/internal/notify"
	"github.com/kaiyuhsu/commutebot/internal/session"
)

// Machine is the dialogue state machine. Handle must be called with
// per-user serialization (the dispatcher provides it); the machine itself
// only relies on the session store's per-key atomicity.
type Machine struct {
	sessions  *session.Store
	plans     *session.PlanStore
	estimator Estimator
	reminders ReminderScheduler
	weather   WeatherLookup
	notifier  Notifier
	logger    *slog.Logger
	location  *time.Location
	now       func() time.Time
}

// MachineOption configures the machine.
type MachineOption func(*Machine)

// WithMachineLogger sets a custom logger.
func WithMachineLogger(logger *slog.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithMachineNowFunc overrides the machine's clock, for tests.
func WithMachineNowFunc(now func() time.Time) MachineOption {
	return func(m *Machine) {
		m.now = now
	}
}

// NewMachine creates the dialogue machine.
func NewMachine(
	sessions *session.Store,
	plans *session.PlanStore,
	estimator Estimator,
	reminders ReminderScheduler,
	weather WeatherLookup,
	notifier Notifier,
	location *time.Location,
	opts ...MachineOption,
) *Machine {
	m := &Machine{
		sessions:  sessions,
		plans:     plans,
		estimator: estimator,
		reminders: reminders,
		weather:   weather,
		notifier:  notifier,
		logger:    slog.Default(),
		location:  location,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Handle processes one inbound event and returns the reply text. Exactly
// one reply per event.
func (m *Machine) Handle(ctx context.Context, ev line.Event) string {
	// Start keywords win from any state: the old session is discarded
	// atomically before the fresh dialogue begins.
	if ev.Type == line.EventTypeMessage {
		if isStartKeyword(ev.Text) {
			m.sessions.Reset(ev.UserID, session.StateAwaitingOrigin)
			return promptOrigin
		}
		if isWeatherKeyword(ev.Text) {
			m.sessions.Reset(ev.UserID, session.StateAwaitingWeatherPlace)
			return promptWeatherPlace
		}
	}

	sess, ok := m.sessions.Get(ev.UserID)
	if !ok || sess.State == session.StateIdle || sess.State == session.StateDone {
		return promptStart
	}

	switch sess.State {
	case session.StateAwaitingOrigin:
		return m.handleOrigin(ev)
	case session.StateAwaitingDestination:
		return m.handleDestination(ev)
	case session.StateAwaitingMode:
		return m.handleMode(ev)
	case session.StateAwaitingTimeType:
		return m.handleTimeType(ev)
	case session.StateAwaitingDateTime:
		return m.handleDateTime(ev)
	case session.StateAwaitingReminderTime:
		return m.handleReminderTime(ctx, ev)
	case session.StateAwaitingWeatherPlace:
		return m.handleWeatherPlace(ctx, ev)
	default:
		return promptStart
	}
}

func (m *Machine) handleOrigin(ev line.Event) string {
	text := strings.TrimSpace(ev.Text)
	if ev.Type != line.EventTypeMessage || text == "" {
		return promptOrigin
	}

	m.mutate(ev.UserID, func(s *session.Session) {
		s.Origin = text
		s.State = session.StateAwaitingDestination
	})
	return promptDestination
}

func (m *Machine) handleDestination(ev line.Event) string {
	text := strings.TrimSpace(ev.Text)
	if ev.Type != line.EventTypeMessage || text == "" {
		return promptDestination
	}

	m.mutate(ev.UserID, func(s *session.Session) {
		s.Destination = text
		s.State = session.StateAwaitingMode
	})
	return promptMode
}

func (m *Machine) handleMode(ev line.Event) string {
	if ev.Type != line.EventTypeMessage {
		return promptModeRetry
	}

	mode, err := commute.ParseMode(strings.TrimSpace(ev.Text))
	if err != nil {
		return promptModeRetry
	}

	m.mutate(ev.UserID, func(s *session.Session) {
		s.Mode = mode
		s.State = session.StateAwaitingTimeType
	})
	return promptTimeType
}

func (m *Machine) handleTimeType(ev line.Event) string {
	if ev.Type != line.EventTypePostback || parsePostbackAction(ev.PostbackData) != PostbackActionTimeType {
		return promptTimeType
	}

	timeType, err := parseTimeTypeSelection(ev.PostbackData)
	if err != nil {
		return promptTimeType
	}

	m.mutate(ev.UserID, func(s *session.Session) {
		s.TimeType = timeType
		s.State = session.StateAwaitingDateTime
	})
	return promptDateTime
}

func (m *Machine) handleDateTime(ev line.Event) string {
	if ev.Type != line.EventTypePostback || parsePostbackAction(ev.PostbackData) != PostbackActionDateTime {
		return promptDateTime
	}

	target, err := parseDateTimeSelection(ev.DatetimeParam, m.now(), m.location)
	if err != nil {
		var pastErr *commute.PastTimeError
		if errors.As(err, &pastErr) {
			return promptFutureTime
		}
		return promptDateTime
	}

	m.mutate(ev.UserID, func(s *session.Session) {
		s.Target = target
		s.State = session.StateAwaitingReminderTime
	})
	return promptRemindTime
}

// handleReminderTime is the finalization step: a valid HH:MM triggers the
// estimate synchronously and, on success, the plan snapshot and the daily
// job. Estimator failures discard the whole session; the user restarts.
func (m *Machine) handleReminderTime(ctx context.Context, ev line.Event) string {
	if ev.Type != line.EventTypeMessage {
		return promptRemindRetry
	}

	hour, minute, err := ParseReminderTime(ev.Text)
	if err != nil {
		return promptRemindRetry
	}

	sess, ok := m.sessions.Get(ev.UserID)
	if !ok {
		return promptStart
	}

	plan := commute.Plan{
		Origin:      sess.Origin,
		Destination: sess.Destination,
		Mode:        sess.Mode,
		TimeType:    sess.TimeType,
		Target:      sess.Target,
	}

	est, err := m.estimator.Estimate(ctx, plan)
	if err != nil {
		m.logger.Error("finalization estimate failed",
			slog.String("user_id", ev.UserID),
			slog.Any("error", err))
		m.sessions.Remove(ev.UserID)
		return notify.FormatError(err)
	}

	m.plans.Put(session.Plan{
		UserID:      ev.UserID,
		Origin:      sess.Origin,
		Destination: sess.Destination,
		Mode:        sess.Mode,
		TimeType:    sess.TimeType,
		Target:      sess.Target,
		RemindHour:  hour,
		RemindMin:   minute,
		CompletedAt: m.now(),
	})

	reminder := NewReminderHandler(ev.UserID, m.plans, m.estimator, m.notifier, m.location, m.now)
	if err := m.reminders.Schedule(ev.UserID, hour, minute, m.location, reminder.Execute); err != nil {
		m.logger.Error("reminder scheduling failed",
			slog.String("user_id", ev.UserID),
			slog.Any("error", err))
		m.sessions.Remove(ev.UserID)
		return notify.FormatError(err)
	}

	m.sessions.Remove(ev.UserID)

	m.logger.Info("dialogue completed",
		slog.String("user_id", ev.UserID),
		slog.String("mode", sess.Mode.String()),
		slog.Int("remind_hour", hour),
		slog.Int("remind_minute", minute))

	return notify.FormatConfirmation(plan, est, hour, minute)
}

func (m *Machine) handleWeatherPlace(ctx context.Context, ev line.Event) string {
	text := strings.TrimSpace(ev.Text)
	if ev.Type != line.EventTypeMessage || text == "" {
		return promptWeatherPlace
	}

	m.sessions.Remove(ev.UserID)

	report, err := m.weather.Lookup(ctx, text, m.now())
	if err != nil {
		m.logger.Warn("weather lookup failed",
			slog.String("place", text),
			slog.Any("error", err))
		return promptWeatherFailed
	}
	return report
}

// mutate applies a field update under the store's per-key lock. The
// session can only vanish between Handle's read and here if a concurrent
// start raced in, in which case dropping the mutation is the correct
// last-writer-wins outcome.
func (m *Machine) mutate(userID string, fn func(*session.Session)) {
	_, _, _ = m.sessions.Update(userID, func(s *session.Session) error {
		fn(s)
		return nil
	})
}
