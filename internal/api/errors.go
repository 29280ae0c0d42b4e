package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork marks failures worth retrying: transport errors and 5xx responses.
	ErrNetwork = errors.New("network failure")
	// ErrServerNotFound is returned when the backend has no record for a server id.
	ErrServerNotFound = errors.New("not found on server")
)

// RetryableError is a transient failure. It unwraps to ErrNetwork.
type RetryableError struct {
	Op     string
	Status int // 0 when the request never got a response
	Err    error
}

func (e *RetryableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNetwork}
	}
	return []error{ErrNetwork, e.Err}
}

// StatusError is a non-retryable rejection by the backend.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Op, e.Status, e.Body)
}

// IsRetryable reports whether err is a transient failure.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
