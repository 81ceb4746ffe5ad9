package limiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter
// Specialized component to manage request pacing during crawling.
// Responsibilities:
// - Bound in-flight requests per host:port
// - Enforce an optional global requests-per-second cap
// - Make sure workers block instead of busy-spinning when saturated
type RateLimiter interface {
	Acquire(ctx context.Context, hostPort string) error
	Release(hostPort string)
	InFlight() int
}

type ConcurrentRateLimiter struct {
	mu        sync.Mutex
	perHost   int
	slots     map[string]chan struct{}
	inFlight  int
	globalCap *rate.Limiter
}

// NewConcurrentRateLimiter bounds each host:port to perHost in-flight
// requests. reqPerSec <= 0 disables the global cap.
func NewConcurrentRateLimiter(perHost int, reqPerSec float64) *ConcurrentRateLimiter {
	if perHost < 1 {
		perHost = 1
	}
	limiter := &ConcurrentRateLimiter{
		perHost: perHost,
		slots:   make(map[string]chan struct{}),
	}
	if reqPerSec > 0 {
		// burst of 1 keeps the cap leaky-bucket shaped
		limiter.globalCap = rate.NewLimiter(rate.Limit(reqPerSec), 1)
	}
	return limiter
}

func (r *ConcurrentRateLimiter) hostSlots(hostPort string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	slots, exists := r.slots[hostPort]
	if !exists {
		slots = make(chan struct{}, r.perHost)
		r.slots[hostPort] = slots
	}
	return slots
}

// Acquire blocks until a per-host slot and (if configured) a global
// token are available, or ctx is cancelled. On success the caller owns
// one slot and must Release it.
func (r *ConcurrentRateLimiter) Acquire(ctx context.Context, hostPort string) error {
	slots := r.hostSlots(hostPort)

	select {
	case slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if r.globalCap != nil {
		if err := r.globalCap.Wait(ctx); err != nil {
			<-slots
			return err
		}
	}

	r.mu.Lock()
	r.inFlight++
	r.mu.Unlock()
	return nil
}

func (r *ConcurrentRateLimiter) Release(hostPort string) {
	r.mu.Lock()
	slots, exists := r.slots[hostPort]
	if r.inFlight > 0 {
		r.inFlight--
	}
	r.mu.Unlock()

	if exists {
		select {
		case <-slots:
		default:
		}
	}
}

func (r *ConcurrentRateLimiter) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}
