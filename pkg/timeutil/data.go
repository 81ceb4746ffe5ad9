package timeutil

import "time"

// Exponential backoff parameters.
// example:
//
//	initialDuration := 250 * time.Millisecond // first retry delay
//	multiplier := 2.0                         // double each time
//	maxDuration := 4 * time.Second            // cap
type BackoffParam struct {
	initialDuration time.Duration
	multiplier      float64
	maxDuration     time.Duration
	jitterFraction  float64
}

func NewBackoffParam(
	initialDuration time.Duration,
	multiplier float64,
	maxDuration time.Duration,
	jitterFraction float64,
) BackoffParam {
	return BackoffParam{
		initialDuration: initialDuration,
		multiplier:      multiplier,
		maxDuration:     maxDuration,
		jitterFraction:  jitterFraction,
	}
}

// DefaultBackoffParam is the crawl-wide retry schedule:
// 250 ms base, factor 2, capped at 4 s, jitter ±20%.
func DefaultBackoffParam() BackoffParam {
	return NewBackoffParam(250*time.Millisecond, 2.0, 4*time.Second, 0.2)
}

func (b *BackoffParam) InitialDuration() time.Duration {
	return b.initialDuration
}

func (b *BackoffParam) Multiplier() float64 {
	return b.multiplier
}

func (b *BackoffParam) MaxDuration() time.Duration {
	return b.maxDuration
}

func (b *BackoffParam) JitterFraction() float64 {
	return b.jitterFraction
}

func DurationPtr(d time.Duration) *time.Duration {
	return &d
}
