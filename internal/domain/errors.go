package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// TransientError marks a failure worth retrying: timeouts, rate limits, flaky networks.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a failure that retrying cannot fix: auth, malformed input, quota.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: fatal: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// PartialDataError describes usable but incomplete stage output. It is never fatal.
type PartialDataError struct {
	Stage  string
	Detail string
}

func (e PartialDataError) Error() string {
	if e.Stage == "" {
		return e.Detail
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Detail)
}

// Transient wraps err as a TransientError unless it already carries a classification.
func Transient(op string, err error) error {
	if err == nil || IsTransient(err) || IsFatal(err) {
		return err
	}
	return &TransientError{Op: op, Err: err}
}

// Fatal wraps err as a FatalError unless it already carries a classification.
func Fatal(op string, err error) error {
	if err == nil || IsTransient(err) || IsFatal(err) {
		return err
	}
	return &FatalError{Op: op, Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsFatal reports whether err is (or wraps) a FatalError.
func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}

// IsCanceled reports run-level cancellation, which is neither retried nor reclassified.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Classify assigns a kind to an unclassified adapter error.
// Deadlines and network timeouts are transient, cancellation passes through,
// everything else is fatal.
func Classify(op string, err error) error {
	if err == nil || IsTransient(err) || IsFatal(err) || IsCanceled(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Op: op, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransientError{Op: op, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &TransientError{Op: op, Err: err}
	}
	return &FatalError{Op: op, Err: err}
}

// FromStatus converts an upstream HTTP status into a classified error.
func FromStatus(op string, status int, body string) error {
	err := fmt.Errorf("unexpected status %d %s: %s", status, http.StatusText(status), body)
	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status >= http.StatusInternalServerError:
		return &TransientError{Op: op, Err: err}
	default:
		return &FatalError{Op: op, Err: err}
	}
}
