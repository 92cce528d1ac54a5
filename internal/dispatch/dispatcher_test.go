package dispatch_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaiyuhsu/commutebot/internal/dispatch"
)

func TestDispatcher_PerUserOrdering(t *testing.T) {
	d := dispatch.New(context.Background())
	defer func() { _ = d.Shutdown(time.Second) }()

	const n = 50
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		i := i
		require.NoError(t, d.Submit("user1", func(context.Context) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		}))
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, n)
	for i, got := range order {
		if got != i {
			t.Fatalf("task %d ran out of order at position %d", got, i)
		}
	}
}

func TestDispatcher_UsersDoNotBlockEachOther(t *testing.T) {
	d := dispatch.New(context.Background())
	defer func() { _ = d.Shutdown(time.Second) }()

	release := make(chan struct{})
	blocked := make(chan struct{})
	require.NoError(t, d.Submit("slow-user", func(context.Context) {
		close(blocked)
		<-release
	}))
	<-blocked

	done := make(chan struct{})
	require.NoError(t, d.Submit("fast-user", func(context.Context) {
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fast user's task serialized behind another user's pending work")
	}

	close(release)
}

func TestDispatcher_PanicBoundary(t *testing.T) {
	var notified atomic.Value
	d := dispatch.New(context.Background(),
		dispatch.WithPanicNotifier(func(userID string) {
			notified.Store(userID)
		}))
	defer func() { _ = d.Shutdown(time.Second) }()

	ran := make(chan struct{})
	require.NoError(t, d.Submit("user1", func(context.Context) {
		panic("boom")
	}))
	require.NoError(t, d.Submit("user1", func(context.Context) {
		close(ran)
	}))

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queue died after panic")
	}

	assert.Equal(t, "user1", notified.Load())
}

func TestDispatcher_ShutdownRefusesNewWork(t *testing.T) {
	d := dispatch.New(context.Background())
	require.NoError(t, d.Shutdown(time.Second))

	err := d.Submit("user1", func(context.Context) {})
	require.Error(t, err)
}

func TestDispatcher_ShutdownWaitsForInFlightTasks(t *testing.T) {
	d := dispatch.New(context.Background())

	var finished atomic.Bool
	started := make(chan struct{})
	require.NoError(t, d.Submit("user1", func(context.Context) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	}))
	<-started

	require.NoError(t, d.Shutdown(time.Second))
	assert.True(t, finished.Load())
}

func TestDispatcher_QueueRetiredWhenIdle(t *testing.T) {
	d := dispatch.New(context.Background())
	defer func() { _ = d.Shutdown(time.Second) }()

	done := make(chan struct{})
	require.NoError(t, d.Submit("user1", func(context.Context) {
		close(done)
	}))
	<-done

	require.Eventually(t, func() bool {
		return d.Pending() == 0
	}, time.Second, time.Millisecond)
}
