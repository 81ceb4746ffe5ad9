package robots

import (
	"fmt"

	"github.com/rohmanhakim/site-auditor/pkg/failure"
)

type RobotsErrorCause string

const (
	ErrCauseHttpFetchFailure RobotsErrorCause = "http fetch failure"
	ErrCauseParseError       RobotsErrorCause = "parse error"
)

type RobotsError struct {
	Message   string
	Retryable bool
	Cause     RobotsErrorCause
}

func (e *RobotsError) Error() string {
	return fmt.Sprintf("robots error: %s: %s", e.Cause, e.Message)
}

func (e *RobotsError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *RobotsError) IsRetryable() bool {
	return e.Retryable
}
