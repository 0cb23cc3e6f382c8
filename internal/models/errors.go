package models

import "errors"

// Sentinel errors shared across services and stores. Callers match them
// with errors.Is; services wrap them with context via fmt.Errorf and %w.
var (
	// ErrAuthExpired marks an authoritative credential rejection. Only
	// this error clears a stored session; transient failures never do.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrForbidden marks an operation the current identity and role may
	// not perform.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition marks an order lifecycle edge that does not
	// exist, regardless of who requests it.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotFound marks a record that does not (or no longer) exist.
	ErrNotFound = errors.New("not found")

	// ErrValidationFailed marks input or state that fails a precondition,
	// such as a checkout attempt with an unvalidated cart.
	ErrValidationFailed = errors.New("validation failed")

	// ErrTransient marks a failure worth retrying: network faults,
	// timeouts, backend outages.
	ErrTransient = errors.New("transient failure")
)
