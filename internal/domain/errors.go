package domain

import (
	"errors"
	"fmt"
)

// Shared evaluation errors.
var (
	// ErrInsufficientHistory means a token does not yet have enough recorded
	// seconds for the requested computation. Not a failure: retry next tick.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrDataInconsistent means a metric window violated its ordering or
	// shape invariants. The single evaluation is skipped and logged.
	ErrDataInconsistent = errors.New("inconsistent metric data")
)

// TransientError wraps a failed external collaborator call. The token is
// skipped for the current tick and retried on the next one.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError. Returns nil for nil err.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
