package limiter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/site-auditor/pkg/limiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease_TracksInFlight(t *testing.T) {
	l := limiter.NewConcurrentRateLimiter(2, 0)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "a.example:443"))
	require.NoError(t, l.Acquire(ctx, "b.example:443"))
	assert.Equal(t, 2, l.InFlight())

	l.Release("a.example:443")
	assert.Equal(t, 1, l.InFlight())
	l.Release("b.example:443")
	assert.Equal(t, 0, l.InFlight())
}

func TestAcquire_PerHostSaturationBlocks(t *testing.T) {
	l := limiter.NewConcurrentRateLimiter(1, 0)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "example.com:443"))

	blocked := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := l.Acquire(ctx, "example.com:443"); err == nil {
			close(blocked)
			l.Release("example.com:443")
		}
	}()

	select {
	case <-blocked:
		t.Fatal("second acquire should block while the slot is held")
	case <-time.After(50 * time.Millisecond):
	}

	l.Release("example.com:443")

	select {
	case <-blocked:
	case <-time.After(time.Second):
		t.Fatal("second acquire never proceeded after release")
	}
	wg.Wait()
}

func TestAcquire_OtherHostNotBlocked(t *testing.T) {
	l := limiter.NewConcurrentRateLimiter(1, 0)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "a.example:443"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := l.Acquire(ctx, "b.example:443"); err == nil {
			l.Release("b.example:443")
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("different host must not share the saturated slot")
	}
	l.Release("a.example:443")
}

func TestAcquire_CancelledContext(t *testing.T) {
	l := limiter.NewConcurrentRateLimiter(1, 0)
	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx, "example.com:443"))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Acquire(cancelled, "example.com:443")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, l.InFlight())
}

func TestAcquire_GlobalCapPacesRequests(t *testing.T) {
	// 20 req/s → second token roughly 50ms after the first
	l := limiter.NewConcurrentRateLimiter(10, 20)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Acquire(ctx, "a.example:443"))
	require.NoError(t, l.Acquire(ctx, "b.example:443"))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	l.Release("a.example:443")
	l.Release("b.example:443")
}
