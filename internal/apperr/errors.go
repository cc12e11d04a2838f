package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across repositories, services and handlers.
// Handlers map these to HTTP statuses; callers branch with errors.Is/As.
var (
	// ErrNotFound signals an unknown job, batch or organization.
	ErrNotFound = errors.New("not found")

	// ErrForbidden signals a cross-tenant access attempt.
	ErrForbidden = errors.New("forbidden")

	// ErrDuplicateJob signals a job identifier collision on create.
	ErrDuplicateJob = errors.New("duplicate job")

	// ErrTierOutOfOrder signals a tier result appended at or below the
	// job's highest recorded tier. Indicates a broken caller, not user error.
	ErrTierOutOfOrder = errors.New("tier result out of order")

	// ErrJobTerminal signals a tier result appended to a job that already
	// reached a terminal or awaiting-review state.
	ErrJobTerminal = errors.New("job already terminal")

	// ErrUpstreamUnavailable signals an unreachable scorer collaborator.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// QuotaExceededError is returned when an admission would push an
// organization past its quota limit. Carries current usage so the client
// can decide what to do; the admission itself is rejected entirely.
type QuotaExceededError struct {
	Used      int
	Limit     int
	Requested int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: used %d of %d, requested %d", e.Used, e.Limit, e.Requested)
}

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError.
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
