package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesAndDrainsOnStop(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	q := NewQueue("test", func(_ context.Context, j Job) error {
		mu.Lock()
		seen[j.ID] = true
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 16})

	q.Start(context.Background())
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id, Kind: "noop"}))
	}

	require.NoError(t, q.Stop(context.Background()))
	assert.Len(t, seen, 3)

	err := q.Enqueue(Job{Kind: "noop"})
	assert.ErrorIs(t, err, ErrQueueStopped)
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var calls int32
	var gaveUp atomic.Bool
	q := NewQueue("retry", func(context.Context, Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnGiveUp:   func(Job, error) { gaveUp.Store(true) },
	})

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{Kind: "fail"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.True(t, gaveUp.Load())
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.Enqueue(Job{}), ErrQueueStopped)
	assert.NoError(t, q.Stop(context.Background()))
}

func TestQueueFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("full", func(context.Context, Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "1"}))
	// worker may or may not have picked up the first job yet
	var fullErr error
	for i := 0; i < 3 && fullErr == nil; i++ {
		fullErr = q.Enqueue(Job{})
	}
	assert.ErrorIs(t, fullErr, ErrQueueFull)

	close(block)
	require.NoError(t, q.Stop(context.Background()))
}
