// Package upsert implements the Chunked Upserter (spec.md §4.4): for a
// single metric family, it plans safe chunk sizes via internal/planner,
// then issues one parameterized bulk-INSERT ... ON CONFLICT per chunk
// inside its own transaction, retrying transient failures with bounded
// exponential backoff and recording permanent failures without aborting
// later chunks.
package upsert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalpipe/ingest/internal/config"
	"github.com/vitalpipe/ingest/internal/ingesterrors"
	"github.com/vitalpipe/ingest/internal/metricssink"
	"github.com/vitalpipe/ingest/internal/model"
	"github.com/vitalpipe/ingest/internal/planner"
)

// Upserter persists validated, deduplicated records for a single family
// at a time while preserving invariant P1 and delivering accurate
// accounting.
type Upserter struct {
	pool   *pgxpool.Pool
	cfg    config.BatchConfig
	dbCfg  config.DatabaseConfig
	sink   metricssink.Sink
	logger log.Logger
}

func New(pool *pgxpool.Pool, cfg config.BatchConfig, dbCfg config.DatabaseConfig, sink metricssink.Sink, logger log.Logger) *Upserter {
	return &Upserter{pool: pool, cfg: cfg, dbCfg: dbCfg, sink: sink, logger: logger}
}

// Upsert persists records for family, chunked to respect the
// parameter ceiling, and returns the family's outcome.
func (u *Upserter) Upsert(ctx context.Context, family model.Family, records []model.HealthMetric) (model.FamilyOutcome, error) {
	outcome := model.FamilyOutcome{Family: family, Requested: len(records)}
	if len(records) == 0 {
		return outcome, nil
	}

	table, ok := Tables[family]
	if !ok {
		return outcome, &ingesterrors.UnsupportedFamilyError{Family: string(family)}
	}

	plan, err := planner.Plan(family, len(records), u.cfg)
	if err != nil {
		return outcome, err
	}
	// Defensive check: this should be unreachable given startup
	// validation, but spec.md §4.7 requires it as a second line of
	// defense against a ParameterLimit violation reaching the database.
	if plan.ChunkSize*plan.ParamsPerRecord > planner.PMax() {
		u.sink.RecordParameterLimitAlert(family)
		return outcome, &ingesterrors.ParameterLimitError{
			Family:    string(family),
			Attempted: plan.ChunkSize * plan.ParamsPerRecord,
			Ceiling:   planner.PMax(),
		}
	}

	for chunkIndex := 0; chunkIndex < plan.ChunkCount; chunkIndex++ {
		start := chunkIndex * plan.ChunkSize
		end := start + plan.ChunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		inserted, chunkErr := u.upsertChunk(ctx, table, family, chunkIndex, chunk)
		outcome.Inserted += inserted
		if chunkErr != nil {
			outcome.FailedChunks = append(outcome.FailedChunks, *chunkErr)
		}
	}

	u.sink.RecordIngested(family, outcome.Inserted)
	return outcome, nil
}

// upsertChunk executes exactly one chunk's bulk-INSERT inside its own
// transaction, retrying transient errors with exponential backoff. A
// chunk failure never rolls back previously committed chunks of the same
// family: each chunk is its own durability boundary.
func (u *Upserter) upsertChunk(ctx context.Context, table FamilyTable, family model.Family, chunkIndex int, chunk []model.HealthMetric) (int, *model.ChunkError) {
	var inserted int

	op := func() error {
		timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(u.dbCfg.StatementTimeoutSeconds)*time.Second)
		defer cancel()

		tx, err := u.pool.Begin(timeoutCtx)
		if err != nil {
			return classify(err)
		}
		defer tx.Rollback(timeoutCtx) //nolint:errcheck // no-op once committed

		sql, args := buildBulkInsert(table, chunk)
		start := time.Now()
		tag, err := tx.Exec(timeoutCtx, sql, args...)
		u.sink.RecordChunkLatency(family, time.Since(start).Seconds())
		if err != nil {
			return classify(err)
		}
		if err := tx.Commit(timeoutCtx); err != nil {
			return classify(err)
		}
		inserted = int(tag.RowsAffected())
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Duration(u.cfg.InitialBackoffMS) * time.Millisecond
	bo.MaxInterval = time.Duration(u.cfg.MaxBackoffMS) * time.Millisecond
	retryable := backoff.WithMaxRetries(bo, uint64(u.cfg.MaxRetries))

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := op()
		var transient *ingesterrors.TransientDBError
		if err != nil && !errorsAsTransient(err, &transient) {
			// Permanent: stop retrying immediately.
			return backoff.Permanent(err)
		}
		return err
	}, retryable)

	if err == nil {
		return inserted, nil
	}

	var permErr error = err
	if pe, ok := err.(*backoff.PermanentError); ok {
		permErr = pe.Err
	}

	level.Warn(u.logger).Log(
		"msg", "chunk failed",
		"family", family,
		"chunk_index", chunkIndex,
		"attempts", attempt,
		"err", permErr,
	)

	return inserted, &model.ChunkError{
		Family:     family,
		ChunkIndex: chunkIndex,
		Detail:     permErr.Error(),
		Permanent:  true,
	}
}

func errorsAsTransient(err error, target **ingesterrors.TransientDBError) bool {
	if t, ok := err.(*ingesterrors.TransientDBError); ok {
		*target = t
		return true
	}
	return false
}

// classify maps a raw pgx/postgres error into the Transient-DB /
// Permanent-DB taxonomy of spec.md §7.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if asPgError(err, &pgErr) {
		switch pgErr.Code[:2] {
		case "08": // connection exception
			return &ingesterrors.TransientDBError{Cause: err}
		}
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return &ingesterrors.TransientDBError{Cause: err}
		}
		return &ingesterrors.PermanentDBError{Cause: err}
	}
	// Unrecognized errors (context deadline, pool exhaustion) are treated
	// as transient: the chunk is retried rather than discarded.
	return &ingesterrors.TransientDBError{Cause: err}
}

func asPgError(err error, target **pgconn.PgError) bool {
	pgErr, ok := asPgErrorUnwrap(err)
	if ok {
		*target = pgErr
	}
	return ok
}

func asPgErrorUnwrap(err error) (*pgconn.PgError, bool) {
	for err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok {
			return pgErr, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}

// buildBulkInsert constructs a single parameterized INSERT statement of
// exactly len(chunk) * len(table.Columns) placeholders, terminated with
// an ON CONFLICT clause that COALESCEs each non-key column (non-null
// incoming wins), making retries of the same chunk idempotent.
func buildBulkInsert(table FamilyTable, chunk []model.HealthMetric) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table.Name)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(table.Columns, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(chunk)*len(table.Columns))
	paramIndex := 1
	for i, record := range chunk {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for c := range table.Columns {
			if c > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", paramIndex)
			paramIndex++
		}
		sb.WriteString(")")
		args = append(args, table.Values(record)...)
	}

	sb.WriteString(" ON CONFLICT (")
	sb.WriteString(strings.Join(table.ConflictColumns, ", "))
	sb.WriteString(") DO UPDATE SET ")

	isConflictColumn := make(map[string]bool, len(table.ConflictColumns))
	for _, c := range table.ConflictColumns {
		isConflictColumn[c] = true
	}

	first := true
	for _, col := range table.Columns {
		if isConflictColumn[col] {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&sb, "%s = COALESCE(EXCLUDED.%s, %s.%s)", col, col, table.Name, col)
	}

	return sb.String(), args
}
