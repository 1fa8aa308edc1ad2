// Package coordinator implements the Ingestion Coordinator (spec.md
// §4.6): the entry point that turns an external request into durable
// state transitions and picks synchronous vs. deferred execution.
package coordinator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/vitalpipe/ingest/internal/api/normalize"
	"github.com/vitalpipe/ingest/internal/config"
	"github.com/vitalpipe/ingest/internal/ingesterrors"
	"github.com/vitalpipe/ingest/internal/model"
	"github.com/vitalpipe/ingest/internal/queue"
	"github.com/vitalpipe/ingest/internal/reconcile"
	"github.com/vitalpipe/ingest/internal/store"
)

// duplicateWindow is the lookback window spec.md §4.6 fixes at 24h.
const duplicateWindow = 24 * time.Hour

// Dispatcher is the collaborator that runs the per-family pipelines.
// Scoped to an interface so coordinator tests never need a live
// database or family tables.
type Dispatcher interface {
	Process(ctx context.Context, payload model.Payload) (model.BatchResult, error)
}

// IngestionResponse is the shape returned to the HTTP layer, covering
// both the synchronous (200) and asynchronous-acceptance (202) cases of
// spec.md §6.1.
type IngestionResponse struct {
	Success           bool             `json:"success"`
	ProcessingStatus  model.ProcessingStatus `json:"processing_status"`
	ProcessedCount    int              `json:"processed_count"`
	FailedCount       int              `json:"failed_count"`
	Errors            []model.ErrorEntry `json:"errors"`
	Warnings          []model.Warning  `json:"warnings"`
	RawIngestionID    uuid.UUID        `json:"raw_ingestion_id"`
	ProcessingTimeMS  int64            `json:"processing_time_ms"`
	Message           string           `json:"message,omitempty"`
}

// Coordinator ties together persistence, size-based routing, the
// Dispatcher and the Reconciler.
type Coordinator struct {
	store      store.RawIngestionStore
	dispatcher Dispatcher
	enqueuer   queue.Enqueuer
	cfg        config.Config
	logger     log.Logger
}

func New(s store.RawIngestionStore, d Dispatcher, enqueuer queue.Enqueuer, cfg config.Config, logger log.Logger) *Coordinator {
	return &Coordinator{store: s, dispatcher: d, enqueuer: enqueuer, cfg: cfg, logger: logger}
}

// Ingest implements the flow of spec.md §4.6: early rejections, persist,
// size-based routing, expected-count accounting.
func (c *Coordinator) Ingest(ctx context.Context, userID uuid.UUID, payloadBytes []byte) (IngestionResponse, error) {
	start := time.Now()

	payload, err := normalize.Parse(payloadBytes)
	if err != nil {
		return IngestionResponse{}, err
	}
	if payload.Count() == 0 {
		return IngestionResponse{}, ingesterrors.ErrEmptyPayload
	}

	hash := contentHash(userID, payloadBytes)
	if dup, err := c.store.FindRecentDuplicate(ctx, userID, hash, duplicateWindow); err != nil {
		return IngestionResponse{}, &ingesterrors.TransientDBError{Cause: err}
	} else if dup != nil {
		return IngestionResponse{}, &ingesterrors.DuplicatePayloadError{OriginalRawIngestionID: dup.ID}
	}

	expected := payload.Count()
	raw := &model.RawIngestion{
		ID:               uuid.New(),
		UserID:           userID,
		PayloadHash:      hash,
		PayloadSize:      len(payloadBytes),
		RawPayload:       payloadBytes,
		ReceivedAt:       time.Now(),
		ProcessingStatus: model.StatusReceived,
	}
	if err := c.store.Create(ctx, raw); err != nil {
		return IngestionResponse{}, &ingesterrors.TransientDBError{Cause: err}
	}

	if c.isAsync(len(payloadBytes), expected) {
		return c.acceptForBackgroundProcessing(ctx, raw)
	}

	return c.processSynchronously(ctx, raw, payload, expected, start)
}

func (c *Coordinator) isAsync(byteSize, recordCount int) bool {
	return byteSize > c.cfg.Async.ThresholdBytes || recordCount > c.cfg.Async.ThresholdRecords
}

func (c *Coordinator) acceptForBackgroundProcessing(ctx context.Context, raw *model.RawIngestion) (IngestionResponse, error) {
	if err := c.enqueuer.Enqueue(ctx, queue.Job{RawIngestionID: raw.ID, UserID: raw.UserID}); err != nil {
		level.Error(c.logger).Log("msg", "failed to enqueue background ingestion", "raw_ingestion_id", raw.ID, "err", err)
		return IngestionResponse{}, &ingesterrors.TransientDBError{Cause: err}
	}
	return IngestionResponse{
		Success:          true,
		ProcessingStatus: model.StatusAcceptedForProcessing,
		ProcessedCount:   0,
		RawIngestionID:   raw.ID,
		Message:          "Use raw_ingestion_id to check status.",
	}, nil
}

func (c *Coordinator) processSynchronously(ctx context.Context, raw *model.RawIngestion, payload model.Payload, expected int, start time.Time) (IngestionResponse, error) {
	result, err := c.dispatcher.Process(ctx, payload)
	if err != nil {
		level.Error(c.logger).Log("msg", "dispatcher failed", "raw_ingestion_id", raw.ID, "err", err)
		return IngestionResponse{}, err
	}

	status, meta := reconcile.Reconcile(expected, result, c.cfg.Reconcile)

	if err := c.store.Finalize(ctx, raw.ID, status, result.Errors, meta); err != nil {
		level.Error(c.logger).Log("msg", "failed to finalize raw ingestion", "raw_ingestion_id", raw.ID, "err", err)
		return IngestionResponse{}, &ingesterrors.TransientDBError{Cause: err}
	}

	return IngestionResponse{
		Success:          status == model.StatusProcessed,
		ProcessingStatus: status,
		ProcessedCount:   result.TotalProcessed,
		FailedCount:      result.FailedCount,
		Errors:           result.Errors,
		Warnings:         result.Warnings,
		RawIngestionID:   raw.ID,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}, nil
}

// ProcessBackground runs the Dispatcher + Reconciler for a previously
// accepted RawIngestion. Invoked by a worker goroutine pool draining
// internal/queue, never by the HTTP request path.
func (c *Coordinator) ProcessBackground(ctx context.Context, job queue.Job) error {
	raw, err := c.store.Get(ctx, job.RawIngestionID)
	if err != nil {
		return err
	}
	if raw == nil {
		return errors.New("raw ingestion not found")
	}

	payload, err := normalize.Parse(raw.RawPayload)
	if err != nil {
		return err
	}
	expected := payload.Count()

	result, err := c.dispatcher.Process(ctx, payload)
	if err != nil {
		level.Error(c.logger).Log("msg", "background dispatcher failed", "raw_ingestion_id", raw.ID, "err", err)
		return err
	}

	status, meta := reconcile.Reconcile(expected, result, c.cfg.Reconcile)
	return c.store.Finalize(ctx, raw.ID, status, result.Errors, meta)
}

// contentHash is the SHA-256 of the user id followed by the payload bytes
// exactly as received. The payload is not canonicalized first, so two
// submissions with the same content but different JSON formatting (key
// order, whitespace) hash differently.
func contentHash(userID uuid.UUID, payloadBytes []byte) string {
	h := sha256.New()
	h.Write(userID[:])
	h.Write(payloadBytes)
	return hex.EncodeToString(h.Sum(nil))
}
