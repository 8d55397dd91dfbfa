// internal/errors/errors.go
package appErrors

import (
	"encoding/json"
	"fmt"
)

// ValidationError rejects malformed input before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Helper constructor
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError means a referenced sequence/campaign/entity does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NewNotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// EventError records one external event that could not be applied.
type EventError struct {
	Email string
	Err   error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("event for %s: %v", e.Email, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

// MarshalJSON flattens the wrapped error so sync responses can carry the
// per-event failure list.
func (e *EventError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Email string `json:"email"`
		Error string `json:"error"`
	}{Email: e.Email, Error: e.Err.Error()})
}

// PartialSyncFailure reports a reconciliation that applied some events and
// failed others. The operation as a whole still counts as a success;
// callers inspect the per-event list.
type PartialSyncFailure struct {
	Failures []*EventError
}

func (e *PartialSyncFailure) Error() string {
	return fmt.Sprintf("%d event(s) failed to apply", len(e.Failures))
}

// ExternalPlatformError wraps a failed sending-platform call. Campaign
// creation downgrades it to a warning rather than failing.
type ExternalPlatformError struct {
	Op  string
	Err error
}

func (e *ExternalPlatformError) Error() string {
	return fmt.Sprintf("sending platform %s: %v", e.Op, e.Err)
}

func (e *ExternalPlatformError) Unwrap() error { return e.Err }

// InconsistentStateError means one half of the campaign-creation unit
// persisted while the other did not. Surfaced distinctly so the caller can
// reconcile instead of silently losing the mismatch.
type InconsistentStateError struct {
	Op  string
	Err error
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("inconsistent state during %s: %v", e.Op, e.Err)
}

func (e *InconsistentStateError) Unwrap() error { return e.Err }
