package fetcher

import (
	"fmt"

	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseDNSFailure        FetchErrorCause = "dns failure"
	ErrCauseConnectRefused    FetchErrorCause = "connect refused"
	ErrCauseTLSFailure        FetchErrorCause = "tls failure"
	ErrCauseTimeout           FetchErrorCause = "timeout"
	ErrCauseResponseMalformed FetchErrorCause = "response malformed"
	ErrCauseTooLarge          FetchErrorCause = "too large"
	ErrCauseServerError       FetchErrorCause = "server error"
)

type FetchError struct {
	Message   string
	Retryable bool
	Cause     FetchErrorCause
	// HTTPStatus carries the real status for 5xx outcomes so retry
	// exhaustion still records what the server last said.
	HTTPStatus int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch error: %s: %s", e.Cause, e.Message)
}

func (e *FetchError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// SentinelStatus maps a terminal fetch error onto the negative status
// recorded in the VisitedURL.
func (e *FetchError) SentinelStatus() int {
	switch e.Cause {
	case ErrCauseDNSFailure:
		return resource.StatusDNSFailure
	case ErrCauseConnectRefused:
		return resource.StatusConnectionFail
	case ErrCauseTLSFailure:
		return resource.StatusTLSFailure
	case ErrCauseTimeout:
		return resource.StatusTimeout
	case ErrCauseResponseMalformed:
		return resource.StatusResponseMalformed
	case ErrCauseTooLarge:
		return resource.StatusTooLarge
	case ErrCauseServerError:
		if e.HTTPStatus > 0 {
			return e.HTTPStatus
		}
		return resource.StatusConnectionFail
	default:
		return resource.StatusConnectionFail
	}
}
