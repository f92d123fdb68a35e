package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_DeferFires(t *testing.T) {
	t.Parallel()

	s := New()
	defer s.Stop()

	fired := make(chan struct{})
	s.Defer("k1", 10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("deferred action never fired")
	}

	assert.False(t, s.Cancel("k1"), "a fired action leaves nothing to cancel")
}

func TestScheduler_CancelPreventsFiring(t *testing.T) {
	t.Parallel()

	s := New()
	defer s.Stop()

	var fired atomic.Bool
	s.Defer("k1", 20*time.Millisecond, func() { fired.Store(true) })
	require.True(t, s.Cancel("k1"))

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
	assert.False(t, s.Cancel("k1"), "double cancel reports no pending action")
}

func TestScheduler_DeferReplacesSameKey(t *testing.T) {
	t.Parallel()

	s := New()
	defer s.Stop()

	var first, second atomic.Bool
	s.Defer("k1", 20*time.Millisecond, func() { first.Store(true) })
	s.Defer("k1", 20*time.Millisecond, func() { second.Store(true) })

	time.Sleep(60 * time.Millisecond)
	assert.False(t, first.Load(), "replaced action must not fire")
	assert.True(t, second.Load())
}

func TestScheduler_IndependentKeys(t *testing.T) {
	t.Parallel()

	s := New()
	defer s.Stop()

	var a, b atomic.Bool
	s.Defer("a", 10*time.Millisecond, func() { a.Store(true) })
	s.Defer("b", 10*time.Millisecond, func() { b.Store(true) })
	require.True(t, s.Cancel("a"))

	time.Sleep(40 * time.Millisecond)
	assert.False(t, a.Load())
	assert.True(t, b.Load())
}

func TestScheduler_StopDropsPending(t *testing.T) {
	t.Parallel()

	s := New()

	var fired atomic.Bool
	s.Defer("k1", 20*time.Millisecond, func() { fired.Store(true) })
	s.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestScheduler_MaintenanceRunsImmediately(t *testing.T) {
	t.Parallel()

	s := New()
	defer s.Stop()

	ran := make(chan struct{})
	require.NoError(t, s.AddMaintenance("sweep", func(_ context.Context) { close(ran) }))

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("startup sweep never ran")
	}
}
