package upsert

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/vitalpipe/ingest/internal/ingesterrors"
	"github.com/vitalpipe/ingest/internal/model"
	"github.com/vitalpipe/ingest/internal/planner"
)

func TestFamilyTables_ColumnCountsMatchPlannerParamsPerRecord(t *testing.T) {
	for family, table := range Tables {
		paramsPerRecord, ok := planner.ParamsPerRecord[family]
		if !ok {
			t.Fatalf("family %s has an upsert table but no planner.ParamsPerRecord entry", family)
		}
		assert.Equal(t, paramsPerRecord, len(table.Columns), "family %s: column count must equal ParamsPerRecord", family)
	}
}

func TestPlannerFamilies_AllHaveUpsertTables(t *testing.T) {
	for _, family := range model.AllFamilies() {
		_, ok := Tables[family]
		assert.True(t, ok, "family %s has no registered upsert table", family)
	}
}

func TestBuildBulkInsert_PlaceholderCountMatchesArgCount(t *testing.T) {
	user := uuid.New()
	table := Tables[model.HeartRate]
	chunk := []model.HealthMetric{
		model.HeartRateMetric{Base: model.NewBase(user, time.Now(), "device-1", 0), BPM: 70, Context: "resting"},
		model.HeartRateMetric{Base: model.NewBase(user, time.Now(), "device-1", 1), BPM: 72, Context: "resting"},
	}

	sql, args := buildBulkInsert(table, chunk)
	assert.Len(t, args, len(chunk)*len(table.Columns))
	assert.Contains(t, sql, "INSERT INTO heart_rate_metrics")
	assert.Contains(t, sql, "ON CONFLICT (user_id, recorded_at, context)")
	assert.Contains(t, sql, "DO UPDATE SET")
	// Conflict columns are never reassigned via COALESCE.
	assert.NotContains(t, sql, "user_id = COALESCE")
}

func TestBuildBulkInsert_CoalesceMergePreservesNonConflictColumns(t *testing.T) {
	user := uuid.New()
	table := Tables[model.BloodPressure]
	chunk := []model.HealthMetric{
		model.BloodPressureMetric{Base: model.NewBase(user, time.Now(), "device-1", 0), Systolic: 120, Diastolic: 80},
	}

	sql, _ := buildBulkInsert(table, chunk)
	assert.Contains(t, sql, "systolic = COALESCE(EXCLUDED.systolic, blood_pressure_metrics.systolic)")
	assert.Contains(t, sql, "diastolic = COALESCE(EXCLUDED.diastolic, blood_pressure_metrics.diastolic)")
}

func TestClassify_ConnectionExceptionIsTransient(t *testing.T) {
	err := classify(&pgconn.PgError{Code: "08006"})
	var transient *ingesterrors.TransientDBError
	assert.True(t, errors.As(err, &transient))
}

func TestClassify_SerializationFailureIsTransient(t *testing.T) {
	err := classify(&pgconn.PgError{Code: "40001"})
	var transient *ingesterrors.TransientDBError
	assert.True(t, errors.As(err, &transient))
}

func TestClassify_ConstraintViolationIsPermanent(t *testing.T) {
	err := classify(&pgconn.PgError{Code: "23505"})
	var permanent *ingesterrors.PermanentDBError
	assert.True(t, errors.As(err, &permanent))
}

func TestClassify_UnrecognizedErrorIsTreatedAsTransient(t *testing.T) {
	err := classify(errors.New("context deadline exceeded"))
	var transient *ingesterrors.TransientDBError
	assert.True(t, errors.As(err, &transient))
}
