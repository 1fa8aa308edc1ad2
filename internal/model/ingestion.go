package model

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingStatus is the terminal (and transient) status label stored on
// a RawIngestion row.
type ProcessingStatus string

const (
	StatusReceived            ProcessingStatus = "received"
	StatusProcessing          ProcessingStatus = "processing"
	StatusAcceptedForProcessing ProcessingStatus = "accepted_for_processing"
	StatusProcessed           ProcessingStatus = "processed"
	StatusPartialSuccess      ProcessingStatus = "partial_success"
	StatusError               ProcessingStatus = "error"
	StatusCancelled           ProcessingStatus = "cancelled"
)

// RawIngestion is the durable audit record of every accepted request.
type RawIngestion struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	PayloadHash       string
	PayloadSize       int
	RawPayload        []byte
	ReceivedAt        time.Time
	ProcessingStatus  ProcessingStatus
	ProcessingErrors  []ErrorEntry
	ProcessingMetadata ReconcileMetadata
	ProcessedAt       *time.Time
}

// ErrorEntry is one entry of the response/record-level errors[] array.
type ErrorEntry struct {
	Family Family `json:"family"`
	Index  int    `json:"index"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// Warning is a structured, non-blocking event (e.g. HR > 220).
type Warning struct {
	Family Family `json:"family"`
	Index  int    `json:"index"`
	Detail string `json:"detail"`
}

// ReconcileMetadata is written back onto a RawIngestion by the Status
// Reconciler.
type ReconcileMetadata struct {
	Expected           int                      `json:"expected"`
	Actual             int                       `json:"actual"`
	Invalid            int                       `json:"invalid"`
	DuplicatesRemoved  int                       `json:"duplicates_removed"`
	LossPercentage     float64                   `json:"loss_percentage"`
	ParamViolations    int                       `json:"param_violations"`
	PerFamilyBreakdown map[Family]FamilyOutcome  `json:"per_family_breakdown"`
}

// ChunkPlan is a transient descriptor derived from a family's record
// count and the process's startup-validated configuration.
type ChunkPlan struct {
	Family          Family
	ParamsPerRecord int
	ChunkSize       int
	ChunkCount      int
}

// ChunkError records a permanently failed chunk (spec.md §4.4/§4.7).
type ChunkError struct {
	Family    Family
	ChunkIndex int
	Detail    string
	Permanent bool
}

// FamilyOutcome is the per-family result of the Chunked Upserter.
type FamilyOutcome struct {
	Family           Family
	Requested        int
	Inserted         int
	DuplicatesInDB   int
	Invalid          int
	DuplicatesRemoved int
	FailedChunks     []ChunkError
}

// BatchResult is the Family Dispatcher's aggregate outcome.
type BatchResult struct {
	TotalProcessed       int
	FailedCount          int
	RetryAttempts        int
	DeduplicationStats   map[Family]int
	Errors               []ErrorEntry
	Warnings             []Warning
	ChunkProgress        []ChunkProgressEvent
	PerFamily            map[Family]FamilyOutcome
	UnsupportedFamilies  []Family
}

// ChunkProgressEvent describes one chunk's state for BatchResult.ChunkProgress.
// No pipeline stage populates ChunkProgress, whatever
// BATCH_ENABLE_PROGRESS_TRACKING is set to.
type ChunkProgressEvent struct {
	Family     Family
	ChunkIndex int
	ChunkCount int
	State      string // "planned" | "executing" | "committed" | "retry_scheduled" | "failed"
}

// Payload is the normalized request body: every metric record grouped
// into the closed sum type, regardless of which of the two wire shapes
// it arrived in (see internal/api/normalize).
type Payload struct {
	Metrics []HealthMetric
}

// Count returns the number of metric records in the payload.
func (p Payload) Count() int { return len(p.Metrics) }
