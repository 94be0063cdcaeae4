package models

import (
	"errors"
	"fmt"
)

// ErrWriteConflict signals a retryable write collision on a fingerprint
// (concurrent insert race or transaction serialization failure). The
// reconciler retries the whole operation a bounded number of times
// before surfacing a ConflictError.
var ErrWriteConflict = errors.New("write conflict")

// ValidationError marks an observation that is rejected before
// reconciliation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid observation: %s %s", e.Field, e.Reason)
}

// ConflictError is returned when concurrent writes on the same
// fingerprint could not be resolved within the retry bound. It is
// transient; the caller may resubmit the observation.
type ConflictError struct {
	Fingerprint string
	Attempts    int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("reconcile conflict on %s after %d attempts", e.Fingerprint, e.Attempts)
}

// NotFoundError is returned by queries for an unknown fingerprint.
type NotFoundError struct {
	Fingerprint string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no record for fingerprint %s", e.Fingerprint)
}
