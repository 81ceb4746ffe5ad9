package retry

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rohmanhakim/site-auditor/pkg/failure"
	"github.com/rohmanhakim/site-auditor/pkg/timeutil"
)

// Retry executes fn until it succeeds, fails terminally, or
// MaxRetries+1 attempts are consumed. Between attempts it sleeps for
// an exponential backoff with jitter. Only retryable errors trigger a
// re-attempt; whether an error is retryable is the task's call, via
// the IsRetryable method on the returned error.
func Retry[T any](retryParam RetryParam, fn func() (T, failure.ClassifiedError)) Result[T] {
	var lastErr failure.ClassifiedError
	var zero T

	if retryParam.MaxRetries < 0 {
		return Result[T]{
			value: zero,
			err: &RetryError{
				Message:   "max retries cannot be negative",
				Cause:     ErrNegativeRetries,
				Retryable: false,
			},
			attempts: 0,
		}
	}

	maxAttempts := retryParam.MaxRetries + 1
	rng := rand.New(rand.NewSource(retryParam.RandomSeed))

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if retryParam.OnAttempt != nil {
			retryParam.OnAttempt(attempt)
		}

		result, err := fn()
		if err == nil {
			return NewSuccessResult(result, attempt)
		}

		lastErr = err

		if !isErrorRetryable(err) {
			return Result[T]{
				value:    zero,
				err:      err,
				attempts: attempt,
			}
		}

		if attempt == maxAttempts {
			break
		}

		delay := timeutil.ExponentialBackoffDelay(attempt, rng, retryParam.BackoffParam)
		time.Sleep(delay)
	}

	return Result[T]{
		value: zero,
		err: &RetryError{
			Message:   fmt.Sprintf("exhausted %d attempts. Last error: %v", maxAttempts, lastErr),
			Cause:     ErrExhaustedAttempts,
			Retryable: false,
			Last:      lastErr,
		},
		attempts: maxAttempts,
	}
}

// isErrorRetryable asks the task error whether it may be re-attempted.
// Errors that don't expose IsRetryable default to retryable.
func isErrorRetryable(err failure.ClassifiedError) bool {
	type hasRetryable interface {
		IsRetryable() bool
	}

	if r, ok := err.(hasRetryable); ok {
		return r.IsRetryable()
	}
	return true
}
