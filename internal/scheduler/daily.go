package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultFireTimeout bounds a single job execution.
const DefaultFireTimeout = 2 * time.Minute

// entry is one armed job and the machinery to disarm it.
type entry struct {
	job    Job
	cancel context.CancelFunc
	done   chan struct{}
}

// Daily runs jobs once per day at their configured local time. Each armed
// job owns one goroutine that sleeps until the next occurrence; replacing a
// job tears the old goroutine down completely before the new one arms, so
// old and new schedules can never both fire.
type Daily struct {
	clock       Clock
	logger      *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	entries     map[string]*entry
	fireTimeout time.Duration
	mu          sync.Mutex
	running     bool
}

// DailyOption configures the scheduler.
type DailyOption func(*Daily)

// WithClock sets a custom clock, for tests.
func WithClock(clock Clock) DailyOption {
	return func(d *Daily) {
		d.clock = clock
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) DailyOption {
	return func(d *Daily) {
		d.logger = logger
	}
}

// WithFireTimeout bounds each job execution.
func WithFireTimeout(timeout time.Duration) DailyOption {
	return func(d *Daily) {
		d.fireTimeout = timeout
	}
}

// NewDaily creates a stopped scheduler. Jobs may be scheduled before Start;
// they arm once Start is called.
func NewDaily(opts ...DailyOption) *Daily {
	d := &Daily{
		clock:       SystemClock{},
		logger:      slog.Default(),
		entries:     make(map[string]*entry),
		fireTimeout: DefaultFireTimeout,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Start arms all scheduled jobs. It returns immediately.
func (d *Daily) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("scheduler already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.running = true

	for _, e := range d.entries {
		d.arm(e)
	}

	d.logger.Info("scheduler started", slog.Int("jobs", len(d.entries)))
	return nil
}

// Stop disarms all jobs and waits for their goroutines to exit.
func (d *Daily) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.cancel()

	waiting := make([]*entry, 0, len(d.entries))
	for _, e := range d.entries {
		if e.done != nil {
			waiting = append(waiting, e)
		}
	}
	d.mu.Unlock()

	for _, e := range waiting {
		<-e.done
	}

	d.logger.Info("scheduler stopped")
	return nil
}

// Schedule registers the job. An existing job with the same ID is disarmed
// first; only then does the replacement arm.
func (d *Daily) Schedule(job Job) error {
	if err := validateJob(job); err != nil {
		return err
	}
	if job.Location == nil {
		job.Location = time.Local
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if old, exists := d.entries[job.ID]; exists {
		d.disarmLocked(old)
	}

	e := &entry{job: job}
	d.entries[job.ID] = e
	if d.running {
		d.arm(e)
	}

	d.logger.Info("job scheduled",
		slog.String("job_id", job.ID),
		slog.Int("hour", job.Hour),
		slog.Int("minute", job.Minute))
	return nil
}

// Remove disarms and forgets the job. Removing an unknown ID is an error.
func (d *Daily) Remove(jobID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, exists := d.entries[jobID]
	if !exists {
		return fmt.Errorf("no job with id %s", jobID)
	}

	d.disarmLocked(e)
	delete(d.entries, jobID)
	return nil
}

// List returns all scheduled jobs, ordered by ID.
func (d *Daily) List() []Job {
	d.mu.Lock()
	defer d.mu.Unlock()

	jobs := make([]Job, 0, len(d.entries))
	for _, e := range d.entries {
		jobs = append(jobs, e.job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs
}

// arm starts the job goroutine. Caller holds d.mu and has checked running.
func (d *Daily) arm(e *entry) {
	jobCtx, cancel := context.WithCancel(d.ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	go d.run(jobCtx, e)
}

// disarmLocked cancels the entry's goroutine and waits for it to exit, so
// the caller can arm a successor without any firing overlap. Caller holds
// d.mu; the run goroutine never takes it, so waiting here cannot deadlock.
func (d *Daily) disarmLocked(e *entry) {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
	e.cancel = nil
	e.done = nil
}

func (d *Daily) run(ctx context.Context, e *entry) {
	defer close(e.done)

	for {
		wait := untilNext(d.clock.Now(), e.job.Hour, e.job.Minute, e.job.Location)

		select {
		case <-ctx.Done():
			return
		case <-d.clock.After(wait):
			d.fire(ctx, e.job)
		}
	}
}

func (d *Daily) fire(ctx context.Context, job Job) {
	fireCtx, cancel := context.WithTimeout(ctx, d.fireTimeout)
	defer cancel()

	if err := job.Handler.Execute(fireCtx); err != nil {
		d.logger.Error("job execution failed",
			slog.String("job_id", job.ID),
			slog.String("job", job.Handler.Name()),
			slog.Any("error", err))
		return
	}

	d.logger.Debug("job executed", slog.String("job_id", job.ID))
}

// untilNext computes the wait until the next Hour:Minute occurrence in loc,
// strictly after now.
func untilNext(now time.Time, hour, minute int, loc *time.Location) time.Duration {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(local)
}

func validateJob(job Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if job.Handler == nil {
		return fmt.Errorf("job handler is required")
	}
	if job.Hour < 0 || job.Hour > 23 {
		return fmt.Errorf("job hour %d out of range", job.Hour)
	}
	if job.Minute < 0 || job.Minute > 59 {
		return fmt.Errorf("job minute %d out of range", job.Minute)
	}
	return nil
}
