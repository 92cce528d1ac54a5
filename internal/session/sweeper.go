package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultSweepInterval is how often idle sessions are checked.
	DefaultSweepInterval = 1 * time.Minute

	// DefaultIdleTTL is how long an in-flight dialogue may sit without
	// input before it is discarded.
	DefaultIdleTTL = 30 * time.Minute
)

// Sweeper periodically evicts abandoned dialogues from a Store. Completed
// plans are held elsewhere and are never swept.
type Sweeper struct {
	store    *Store
	logger   *slog.Logger
	interval time.Duration
	ttl      time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewSweeper creates a sweeper with the default interval and TTL.
func NewSweeper(store *Store, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		logger:   logger,
		interval: DefaultSweepInterval,
		ttl:      DefaultIdleTTL,
	}
}

// NewSweeperWithPolicy creates a sweeper with a custom interval and TTL.
func NewSweeperWithPolicy(store *Store, logger *slog.Logger, interval, ttl time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		logger:   logger,
		interval: interval,
		ttl:      ttl,
	}
}

// Start begins the periodic sweep. It returns immediately; the sweep runs
// until Stop is called or the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(sweepCtx)

	return nil
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.store.SweepIdle(s.ttl); removed > 0 {
				s.logger.Info("evicted idle sessions", slog.Int("count", removed))
			}
		}
	}
}

// Stop halts the sweep and waits for the loop to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancel()
	<-s.done
	s.running = false
}
