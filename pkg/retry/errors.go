package retry

import (
	"fmt"

	"github.com/rohmanhakim/site-auditor/pkg/failure"
)

type RetryErrorCause string

const (
	ErrExhaustedAttempts RetryErrorCause = "exhausted attempts"
	ErrNegativeRetries   RetryErrorCause = "negative retry count"
)

// RetryError is returned when the retry loop itself gives up, as
// opposed to the task's own terminal error.
type RetryError struct {
	Message   string
	Cause     RetryErrorCause
	Retryable bool
	// Last is the final task error observed before giving up.
	Last failure.ClassifiedError
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retry error: %s: %s", e.Cause, e.Message)
}

func (e *RetryError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *RetryError) IsRetryable() bool {
	return e.Retryable
}

func (e *RetryError) Unwrap() error {
	if e.Last == nil {
		return nil
	}
	return e.Last
}

// Is lets errors.Is match any *RetryError target.
func (e *RetryError) Is(target error) bool {
	_, ok := target.(*RetryError)
	return ok
}
