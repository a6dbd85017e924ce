package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ValidationError reports a malformed or missing request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ConfigurationError reports required configuration that is not set.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "missing configuration: " + strings.Join(e.Missing, ", ")
}

// UpstreamError reports a non-success answer from the provider.
type UpstreamError struct {
	Op     string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.Status, strings.TrimSpace(e.Body))
}

// RunFailureError reports a run that ended in a failure status.
type RunFailureError struct {
	RunID  string
	Status RunStatus
	Detail string
}

func (e *RunFailureError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("run %s: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("run %s", e.Status)
}

// TimeoutError reports a run that did not finish before the deadline.
type TimeoutError struct {
	RunID      string
	Deadline   time.Duration
	LastStatus RunStatus
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("run timeout (>%s, last status %q)", e.Deadline, e.LastStatus)
}

// AuditLogError reports a failed audit webhook post. It never reaches the
// caller of the relay.
type AuditLogError struct {
	Status int
	Err    error
}

func (e *AuditLogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audit webhook: %v", e.Err)
	}
	return fmt.Sprintf("audit webhook returned status %d", e.Status)
}

func (e *AuditLogError) Unwrap() error { return e.Err }

// HTTPStatus maps an error from the relay flow to the response status code.
func HTTPStatus(err error) int {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
