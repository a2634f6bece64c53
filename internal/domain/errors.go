package domain

import (
	"errors"
	"fmt"
)

// Error categories. Callers classify failures with errors.Is against these
// sentinels; every error returned by a service wraps exactly one of them.
var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrValidation is returned when a gate condition is unmet, such as
	// approving a draft that no human has edited. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a concurrent mutation is detected via a
	// version check during persist.
	ErrConflict = errors.New("concurrent modification detected")

	// ErrTransient is returned for network or model failures on external
	// calls. Eligible for exactly one automatic retry.
	ErrTransient = errors.New("transient failure")

	// ErrConfiguration is returned when a required backend is unavailable or
	// an input is unsupported (e.g., an unknown language code). Not retried.
	ErrConfiguration = errors.New("configuration error")
)

// StateError reports a draft operation attempted from the wrong state.
// It unwraps to ErrValidation so callers can classify it uniformly.
type StateError struct {
	DraftID  string
	Op       string
	Expected []DraftStatus
	Actual   DraftStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("draft %s: cannot %s from %s (expected one of %v)",
		e.DraftID, e.Op, e.Actual, e.Expected)
}

func (e *StateError) Unwrap() error { return ErrValidation }

// VersionError reports an optimistic concurrency failure while persisting
// the result of a long external call. It unwraps to ErrConflict.
type VersionError struct {
	DraftID         string
	ExpectedVersion int64
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("draft %s: version changed while operation was in flight (expected %d)",
		e.DraftID, e.ExpectedVersion)
}

func (e *VersionError) Unwrap() error { return ErrConflict }
