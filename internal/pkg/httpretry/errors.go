package httpretry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// TransientError marks a failure worth retrying: rate limits, server
// errors, timeouts, refused connections.
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient: status %d", e.Status)
	}
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a failure retrying cannot fix: auth and validation
// errors, any 4xx other than 429.
type FatalError struct {
	Status int
	Err    error
}

func (e *FatalError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fatal: status %d", e.Status)
	}
	return fmt.Sprintf("fatal: %v", e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsTransient reports whether err (anywhere in its chain) is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsAuthError reports whether err is a FatalError carrying a 401/403 status.
func IsAuthError(err error) bool {
	var fe *FatalError
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Status == http.StatusUnauthorized || fe.Status == http.StatusForbidden
}

// ClassifyStatus maps a non-2xx status code onto the error taxonomy.
// Returns nil for 2xx.
func ClassifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests || status >= 500:
		return &TransientError{Status: status}
	default:
		return &FatalError{Status: status}
	}
}

// classifyNetErr maps a transport-level error. Context cancellation is
// passed through untouched so callers can distinguish it from upstream
// flakiness; everything else (timeouts, refused connections, resets)
// counts as transient.
func classifyNetErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &TransientError{Err: err}
}
