// Package store owns persistence for the durable RawIngestion audit
// record (spec.md §3.1, §6.2). Schema migration is explicitly out of
// scope (spec.md §1); the DDL constants below document the shape
// migrations must produce, they are never executed by this package.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalpipe/ingest/internal/model"
)

// RawIngestionDDL documents the table migrations must produce. Not
// executed by this package at runtime.
const RawIngestionDDL = `
CREATE TABLE IF NOT EXISTS raw_ingestions (
	id                   uuid PRIMARY KEY,
	user_id              uuid NOT NULL,
	payload_hash         text NOT NULL,
	payload_size         integer NOT NULL,
	raw_payload          jsonb NOT NULL,
	received_at          timestamptz NOT NULL,
	processing_status    text NOT NULL,
	processing_errors    jsonb NOT NULL DEFAULT '[]',
	processing_metadata  jsonb NOT NULL DEFAULT '{}',
	processed_at         timestamptz
);
CREATE UNIQUE INDEX IF NOT EXISTS raw_ingestions_user_hash_idx
	ON raw_ingestions (user_id, payload_hash);
`

// RawIngestionStore is the persistence collaborator the Ingestion
// Coordinator depends on.
type RawIngestionStore interface {
	// Create persists a newly received RawIngestion with status
	// "received".
	Create(ctx context.Context, r *model.RawIngestion) error
	// Get fetches a RawIngestion by id.
	Get(ctx context.Context, id uuid.UUID) (*model.RawIngestion, error)
	// FindRecentDuplicate looks for an identical content hash from the
	// same user within the given window, in status "processed" or
	// "accepted_for_processing" (spec.md §4.6 step 1).
	FindRecentDuplicate(ctx context.Context, userID uuid.UUID, payloadHash string, window time.Duration) (*model.RawIngestion, error)
	// Finalize writes the terminal status and reconciliation metadata
	// computed by the Status Reconciler.
	Finalize(ctx context.Context, id uuid.UUID, status model.ProcessingStatus, errs []model.ErrorEntry, meta model.ReconcileMetadata) error
}

// PGXStore is the Postgres-backed RawIngestionStore implementation.
type PGXStore struct {
	pool *pgxpool.Pool
}

func NewPGXStore(pool *pgxpool.Pool) *PGXStore {
	return &PGXStore{pool: pool}
}

func (s *PGXStore) Create(ctx context.Context, r *model.RawIngestion) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO raw_ingestions
			(id, user_id, payload_hash, payload_size, raw_payload, received_at, processing_status, processing_errors, processing_metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '[]', '{}')
	`, r.ID, r.UserID, r.PayloadHash, r.PayloadSize, r.RawPayload, r.ReceivedAt, r.ProcessingStatus)
	return err
}

func (s *PGXStore) Get(ctx context.Context, id uuid.UUID) (*model.RawIngestion, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, payload_hash, payload_size, raw_payload, received_at,
		       processing_status, processing_errors, processing_metadata, processed_at
		FROM raw_ingestions WHERE id = $1
	`, id)
	return scanRawIngestion(row)
}

func (s *PGXStore) FindRecentDuplicate(ctx context.Context, userID uuid.UUID, payloadHash string, window time.Duration) (*model.RawIngestion, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, payload_hash, payload_size, raw_payload, received_at,
		       processing_status, processing_errors, processing_metadata, processed_at
		FROM raw_ingestions
		WHERE user_id = $1 AND payload_hash = $2
		  AND received_at > now() - ($3 * interval '1 second')
		  AND processing_status IN ('processed', 'accepted_for_processing')
		ORDER BY received_at DESC
		LIMIT 1
	`, userID, payloadHash, window.Seconds())

	ri, err := scanRawIngestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ri, err
}

func (s *PGXStore) Finalize(ctx context.Context, id uuid.UUID, status model.ProcessingStatus, errs []model.ErrorEntry, meta model.ReconcileMetadata) error {
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return err
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE raw_ingestions
		SET processing_status = $2, processing_errors = $3, processing_metadata = $4, processed_at = now()
		WHERE id = $1
	`, id, status, errsJSON, metaJSON)
	return err
}

func scanRawIngestion(row pgx.Row) (*model.RawIngestion, error) {
	var (
		ri       model.RawIngestion
		errsJSON []byte
		metaJSON []byte
	)
	if err := row.Scan(
		&ri.ID, &ri.UserID, &ri.PayloadHash, &ri.PayloadSize, &ri.RawPayload,
		&ri.ReceivedAt, &ri.ProcessingStatus, &errsJSON, &metaJSON, &ri.ProcessedAt,
	); err != nil {
		return nil, err
	}
	if len(errsJSON) > 0 {
		_ = json.Unmarshal(errsJSON, &ri.ProcessingErrors)
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &ri.ProcessingMetadata)
	}
	return &ri, nil
}
