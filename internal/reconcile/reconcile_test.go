package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitalpipe/ingest/internal/config"
	"github.com/vitalpipe/ingest/internal/model"
)

func thresholds() config.ReconcileConfig {
	return config.Default().Reconcile
}

func TestReconcile_CleanBatchIsProcessed(t *testing.T) {
	result := model.BatchResult{
		TotalProcessed: 100,
		PerFamily: map[model.Family]model.FamilyOutcome{
			model.HeartRate: {Family: model.HeartRate, Requested: 100, Inserted: 100},
		},
	}

	status, meta := Reconcile(100, result, thresholds())
	assert.Equal(t, model.StatusProcessed, status)
	assert.Equal(t, 100, meta.Expected)
	assert.Equal(t, 100, meta.Actual)
	assert.Zero(t, meta.LossPercentage)
}

func TestReconcile_InvalidRecordsYieldPartialSuccess(t *testing.T) {
	result := model.BatchResult{
		TotalProcessed: 90,
		PerFamily: map[model.Family]model.FamilyOutcome{
			model.HeartRate: {Family: model.HeartRate, Requested: 100, Inserted: 90, Invalid: 10},
		},
	}

	status, meta := Reconcile(100, result, thresholds())
	assert.Equal(t, model.StatusPartialSuccess, status)
	assert.Equal(t, 10, meta.Invalid)
}

func TestReconcile_ParameterLimitViolationIsAlwaysError(t *testing.T) {
	result := model.BatchResult{
		TotalProcessed: 100,
		Errors: []model.ErrorEntry{
			{Family: model.Activity, Kind: "parameter_limit", Detail: "exceeded ceiling"},
		},
		PerFamily: map[model.Family]model.FamilyOutcome{
			model.Activity: {Family: model.Activity, Requested: 100, Inserted: 100},
		},
	}

	status, meta := Reconcile(100, result, thresholds())
	assert.Equal(t, model.StatusError, status)
	assert.Equal(t, 1, meta.ParamViolations)
}

func TestReconcile_UnsupportedFamilyIsAlwaysError(t *testing.T) {
	result := model.BatchResult{
		TotalProcessed:      100,
		UnsupportedFamilies: []model.Family{model.Family("unknown_family")},
		Errors: []model.ErrorEntry{
			{Family: model.Family("unknown_family"), Kind: "unsupported_family", Detail: "unsupported family: unknown_family"},
		},
		PerFamily: map[model.Family]model.FamilyOutcome{
			model.HeartRate: {Family: model.HeartRate, Requested: 100, Inserted: 100},
		},
	}

	status, meta := Reconcile(100, result, thresholds())
	assert.Equal(t, model.StatusError, status)
	assert.Equal(t, 1, meta.ParamViolations)
}

func TestReconcile_ZeroPersistedWithNonEmptyInputIsError(t *testing.T) {
	result := model.BatchResult{
		TotalProcessed: 0,
		PerFamily: map[model.Family]model.FamilyOutcome{
			model.HeartRate: {Family: model.HeartRate, Requested: 100, Inserted: 0},
		},
	}

	status, _ := Reconcile(100, result, thresholds())
	assert.Equal(t, model.StatusError, status)
}

func TestReconcile_PermanentChunkFailureForcesAtLeastPartialSuccess(t *testing.T) {
	result := model.BatchResult{
		TotalProcessed: 95,
		PerFamily: map[model.Family]model.FamilyOutcome{
			model.HeartRate: {
				Family: model.HeartRate, Requested: 100, Inserted: 95,
				FailedChunks: []model.ChunkError{{Family: model.HeartRate, ChunkIndex: 1, Detail: "constraint violation", Permanent: true}},
			},
		},
	}

	status, _ := Reconcile(100, result, thresholds())
	assert.Equal(t, model.StatusPartialSuccess, status)
}

func TestReconcile_LossBeyondErrorThresholdIsError(t *testing.T) {
	result := model.BatchResult{
		TotalProcessed: 50,
		PerFamily: map[model.Family]model.FamilyOutcome{
			model.HeartRate: {Family: model.HeartRate, Requested: 100, Inserted: 50, Invalid: 50},
		},
	}
	th := thresholds()
	th.DataLossErrorPct = 5.0

	status, meta := Reconcile(100, result, th)
	assert.Equal(t, model.StatusError, status)
	assert.InDelta(t, 50.0, meta.LossPercentage, 0.01)
}

func TestReconcile_SilentFailureGapBeyondToleranceIsNeverProcessed(t *testing.T) {
	// 100 expected, 40 inserted, nothing explains the other 60: far
	// beyond the default absolute tolerance of 50.
	result := model.BatchResult{
		TotalProcessed: 40,
		PerFamily: map[model.Family]model.FamilyOutcome{
			model.HeartRate: {Family: model.HeartRate, Requested: 100, Inserted: 40},
		},
	}

	status, _ := Reconcile(100, result, thresholds())
	assert.NotEqual(t, model.StatusProcessed, status)
}
