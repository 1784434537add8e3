// internal/dispatch/errors.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned when pacing bounds or the repeat count are malformed.
	// It is always reported before any attempt is made.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrSessionUnavailable is returned when the session or target is missing or not ready.
	ErrSessionUnavailable = errors.New("session unavailable")
	// ErrRunInProgress is returned when a run is already active against the same target.
	ErrRunInProgress = errors.New("a dispatch run is already active for this target")
)

// FailureKind classifies a failed delivery attempt.
type FailureKind string

const (
	FailureTimeout         FailureKind = "timeout"
	FailureElementNotFound FailureKind = "element_not_found"
	FailureTransientState  FailureKind = "transient_state"
	FailureUnknown         FailureKind = "unknown"
)

// SendError describes a single failed delivery attempt. It never aborts a run.
type SendError struct {
	Kind  FailureKind
	Cause error
}

// NewSendError wraps cause with the given failure kind.
func NewSendError(kind FailureKind, cause error) *SendError {
	return &SendError{Kind: kind, Cause: cause}
}

func (e *SendError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("send failed (%s)", e.Kind)
	}
	return fmt.Sprintf("send failed (%s): %v", e.Kind, e.Cause)
}

func (e *SendError) Unwrap() error { return e.Cause }

// AsSendError normalizes any error returned by a Sender into a *SendError.
// Errors that already carry a kind keep it; bare deadline errors become timeouts.
func AsSendError(err error) *SendError {
	if err == nil {
		return nil
	}
	var se *SendError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewSendError(FailureTimeout, err)
	}
	return NewSendError(FailureUnknown, err)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
