// Package ingesterrors defines the error taxonomy shared across the
// ingestion pipeline (spec.md §7): client-input errors that become a
// non-5xx request failure, per-record validation errors that never fail
// the request, and system-integrity errors that force the terminal
// status to "error" regardless of any other signal.
package ingesterrors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors: ErrEmptyPayload is a client-input error, ErrPersistence
// a server-side one. Checked with errors.Is.
var (
	ErrEmptyPayload   = errors.New("payload contains no metrics or workouts")
	ErrPersistence    = errors.New("persistence error")
)

// DuplicatePayloadError carries the prior raw_ingestion_id a client needs
// to learn about its earlier, already-accepted submission.
type DuplicatePayloadError struct {
	OriginalRawIngestionID uuid.UUID
}

func (e *DuplicatePayloadError) Error() string {
	return fmt.Sprintf("duplicate payload, original raw_ingestion_id=%s", e.OriginalRawIngestionID)
}

// UnsupportedFamilyError is raised when a payload variant has no
// registered family handler. Treated as a system-integrity error,
// equivalent to ParameterLimit, never silently dropped.
type UnsupportedFamilyError struct {
	Family string
}

func (e *UnsupportedFamilyError) Error() string {
	return fmt.Sprintf("unsupported family: %s", e.Family)
}

// UnsafeChunkConfigError is returned by the Planner's startup validation
// when a configured chunk-size override would violate invariant P1. This
// is the only guard between a misconfiguration and silent data loss, so
// the process must refuse to serve traffic when this error is non-nil.
type UnsafeChunkConfigError struct {
	Family          string
	ConfiguredChunk int
	ParamsPerRecord int
	MaxSafeChunk    int
}

func (e *UnsafeChunkConfigError) Error() string {
	return fmt.Sprintf(
		"unsafe chunk size for family %s: configured=%d params_per_record=%d max_safe=%d",
		e.Family, e.ConfiguredChunk, e.ParamsPerRecord, e.MaxSafeChunk,
	)
}

// ValidationError is a per-record validation failure. It is collected by
// the Dispatcher and never aborts the request.
type ValidationError struct {
	Family        string
	Field         string
	OffendingValue any
	ValidRange     [2]any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s.%s=%v out of range %v", e.Family, e.Field, e.OffendingValue, e.ValidRange)
}

// ParameterLimitError marks a planned or observed statement that would
// exceed the backing store's parameter ceiling. A system-integrity
// failure: the Reconciler must emit "error" regardless of other signals.
type ParameterLimitError struct {
	Family     string
	Attempted  int
	Ceiling    int
}

func (e *ParameterLimitError) Error() string {
	return fmt.Sprintf("parameter limit exceeded for family %s: attempted=%d ceiling=%d", e.Family, e.Attempted, e.Ceiling)
}

// TransientDBError wraps a retryable database error (connection loss,
// deadlock, serialization failure).
type TransientDBError struct {
	Cause error
}

func (e *TransientDBError) Error() string { return fmt.Sprintf("transient db error: %v", e.Cause) }
func (e *TransientDBError) Unwrap() error  { return e.Cause }

// PermanentDBError wraps a non-retryable database error (constraint
// violation, encoding failure). The chunk's records are not inserted;
// the family outcome is partial, never fails other chunks/families.
type PermanentDBError struct {
	Cause error
}

func (e *PermanentDBError) Error() string { return fmt.Sprintf("permanent db error: %v", e.Cause) }
func (e *PermanentDBError) Unwrap() error  { return e.Cause }
