package config

import (
	"fmt"

	"github.com/rohmanhakim/site-auditor/pkg/failure"
)

type ConfigErrorCause string

const (
	ErrCauseFileUnreadable ConfigErrorCause = "file unreadable"
	ErrCauseContentInvalid ConfigErrorCause = "content invalid"
	ErrCauseMissingSeed    ConfigErrorCause = "missing seed"
)

type ConfigError struct {
	Message string
	Cause   ConfigErrorCause
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Cause, e.Message)
}

func (e *ConfigError) Severity() failure.Severity {
	return failure.SeverityFatal
}
