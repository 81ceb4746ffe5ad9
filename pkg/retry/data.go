package retry

import (
	"github.com/rohmanhakim/site-auditor/pkg/failure"
	"github.com/rohmanhakim/site-auditor/pkg/timeutil"
)

// RetryParam bundles everything Retry needs to schedule re-attempts.
// MaxRetries counts re-attempts after the first try, so a task runs at
// most MaxRetries+1 times.
type RetryParam struct {
	MaxRetries   int
	RandomSeed   int64
	BackoffParam timeutil.BackoffParam
	// OnAttempt, when set, observes every attempt (1-based) before it
	// runs. Observational only; it must not influence retry decisions.
	OnAttempt func(attempt int)
}

func NewRetryParam(maxRetries int, randomSeed int64, backoffParam timeutil.BackoffParam) RetryParam {
	return RetryParam{
		MaxRetries:   maxRetries,
		RandomSeed:   randomSeed,
		BackoffParam: backoffParam,
	}
}

// Result carries the task value, the terminal error (if any), and how
// many attempts were consumed.
type Result[T any] struct {
	value    T
	err      failure.ClassifiedError
	attempts int
}

func NewSuccessResult[T any](value T, attempts int) Result[T] {
	return Result[T]{
		value:    value,
		attempts: attempts,
	}
}

func (r Result[T]) Value() T {
	return r.value
}

func (r Result[T]) Err() failure.ClassifiedError {
	return r.err
}

func (r Result[T]) Attempts() int {
	return r.attempts
}
