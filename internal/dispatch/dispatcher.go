// Package dispatch runs inbound-event work with per-user FIFO ordering.
// One user's tasks execute strictly in submission order on a single
// goroutine; different users' tasks run in parallel and never wait on each
// other's network calls.
package dispatch

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Task is one unit of event-handling work.
type Task func(ctx context.Context)

// userQueue holds the pending tasks for one user. A queue exists only
// while work is pending or running; idle queues are retired.
type userQueue struct {
	tasks   *list.List
	running bool
}

// Dispatcher fans tasks out to per-user drain goroutines.
type Dispatcher struct {
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
	onPanic func(userID string)
	queues  map[string]*userQueue
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithPanicNotifier registers a callback invoked after a task panic has
// been recovered, so the wiring can tell the affected user something went
// wrong. The callback runs on the draining goroutine.
func WithPanicNotifier(fn func(userID string)) Option {
	return func(d *Dispatcher) {
		d.onPanic = fn
	}
}

// New creates a dispatcher bound to the given root context.
func New(ctx context.Context, opts ...Option) *Dispatcher {
	ctx, cancel := context.WithCancel(ctx)

	d := &Dispatcher{
		ctx:    ctx,
		cancel: cancel,
		logger: slog.Default(),
		queues: make(map[string]*userQueue),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Submit enqueues a task for the user. Tasks for the same user run in
// submission order; the call itself never blocks on task execution.
func (d *Dispatcher) Submit(userID string, task Task) error {
	if task == nil {
		return fmt.Errorf("cannot submit nil task")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fmt.Errorf("dispatcher shutting down")
	}

	q, exists := d.queues[userID]
	if !exists {
		q = &userQueue{tasks: list.New()}
		d.queues[userID] = q
	}
	q.tasks.PushBack(task)

	if !q.running {
		q.running = true
		d.wg.Add(1)
		go d.drain(userID, q)
	}

	return nil
}

// drain runs the user's tasks until the queue empties, then retires it.
func (d *Dispatcher) drain(userID string, q *userQueue) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		front := q.tasks.Front()
		if front == nil {
			q.running = false
			delete(d.queues, userID)
			d.mu.Unlock()
			return
		}
		q.tasks.Remove(front)
		d.mu.Unlock()

		task, ok := front.Value.(Task)
		if !ok {
			continue
		}

		d.runOne(userID, task)
	}
}

// runOne executes a single task behind the panic boundary. A panicking
// task is logged with its stack and converted into the panic notification;
// it never takes down the process or the user's queue.
func (d *Dispatcher) runOne(userID string, task Task) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("recovered panic in event task",
				slog.String("user_id", userID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			if d.onPanic != nil {
				d.onPanic(userID)
			}
		}
	}()

	task(d.ctx)
}

// Shutdown refuses new work and waits up to timeout for in-flight tasks.
func (d *Dispatcher) Shutdown(timeout time.Duration) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-time.After(timeout):
		d.cancel()
		return fmt.Errorf("dispatcher shutdown timed out after %v", timeout)
	}
}

// Pending reports how many tasks are queued or running, for tests and
// introspection.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	total := 0
	for _, q := range d.queues {
		total += q.tasks.Len()
		if q.running {
			total++
		}
	}
	return total
}
