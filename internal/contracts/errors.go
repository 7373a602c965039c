package contracts

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the engine.
var (
	// ErrDataUnavailable means a required data source could not answer.
	// The engine is fail-closed: callers must propagate it, never
	// substitute a permissive default.
	ErrDataUnavailable = errors.New("required data unavailable")

	// ErrCalendarDataGap means a settlement rollback walked past its
	// bound without finding a trading day.
	ErrCalendarDataGap = errors.New("trading calendar data gap")

	// ErrScanInProgress means a risk scan cycle is already running.
	ErrScanInProgress = errors.New("risk scan already in progress")
)

// FetchError wraps an upstream fetch failure with the operation that
// attempted it.
type FetchError struct {
	Op  string
	Err error
}

// NewFetchError creates a FetchError.
func NewFetchError(op string, err error) *FetchError {
	return &FetchError{Op: op, Err: err}
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is or wraps a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
