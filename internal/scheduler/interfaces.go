// Package scheduler provides daily recurring job management for commute
// reminders.
package scheduler

import (
	"context"
	"time"
)

// Scheduler manages per-user recurring daily jobs. Job identity is the key:
// scheduling an id that already exists atomically replaces the prior
// schedule, with no day on which both fire.
type Scheduler interface {
	// Schedule registers a job, replacing any existing job with the same ID
	Schedule(job Job) error

	// Remove removes a scheduled job
	Remove(jobID string) error

	// Start begins running scheduled jobs
	Start(ctx context.Context) error

	// Stop gracefully stops all jobs
	Stop() error

	// List returns all scheduled jobs
	List() []Job
}

// Job is a daily trigger firing at Hour:Minute in Location.
type Job struct {
	Handler  JobHandler
	Location *time.Location
	ID       string
	Name     string
	Hour     int
	Minute   int
}

// JobHandler executes a scheduled job.
type JobHandler interface {
	// Execute runs the job
	Execute(ctx context.Context) error

	// Name returns the job name for logging
	Name() string
}

// JobHandlerFunc adapts a function to the JobHandler interface.
type JobHandlerFunc struct {
	Fn      func(ctx context.Context) error
	JobName string
}

// Execute runs the wrapped function.
func (f JobHandlerFunc) Execute(ctx context.Context) error {
	return f.Fn(ctx)
}

// Name returns the job name for logging.
func (f JobHandlerFunc) Name() string {
	return f.JobName
}

// Clock abstracts time so tests can drive firings deterministically.
type Clock interface {
	// Now returns the current time
	Now() time.Time

	// After returns a channel that delivers the time after d elapses
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the wall-clock implementation used in production.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// After returns time.After(d).
func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
