package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalpipe/ingest/internal/config"
	"github.com/vitalpipe/ingest/internal/model"
)

func TestPMaxRespectsSafetyFraction(t *testing.T) {
	assert.LessOrEqual(t, PMax(), int(float64(MaxBindParameters)*0.80))
}

func TestPlan_ExactlyAtChunkSizeIsOneChunk(t *testing.T) {
	cfg := config.BatchConfig{ChunkSizeOverride: map[model.Family]int{}}
	paramsPerRecord := ParamsPerRecord[model.HeartRate]
	safe := maxSafeChunk(paramsPerRecord)

	plan, err := Plan(model.HeartRate, safe, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.ChunkCount)
	assert.Equal(t, safe, plan.ChunkSize)
}

func TestPlan_OneOverChunkSizeIsTwoChunksSecondHoldsOne(t *testing.T) {
	cfg := config.BatchConfig{ChunkSizeOverride: map[model.Family]int{model.HeartRate: 100}}

	plan, err := Plan(model.HeartRate, 101, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, plan.ChunkCount)
	assert.Equal(t, 100, plan.ChunkSize)
}

func TestPlan_EveryChunkStaysUnderParameterCeiling(t *testing.T) {
	cfg := config.BatchConfig{ChunkSizeOverride: map[model.Family]int{}}
	for _, family := range model.AllFamilies() {
		for _, available := range []int{0, 1, 500, 10000, 200000} {
			plan, err := Plan(family, available, cfg)
			require.NoError(t, err)
			require.LessOrEqual(t, plan.ChunkSize*plan.ParamsPerRecord, PMax(),
				"family=%s available=%d", family, available)
		}
	}
}

func TestPlan_ActivityAvoidsParameterLimitCatastrophe(t *testing.T) {
	// spec.md §8 scenario 3: chunk_size=2700, params_per_record=19,
	// 10000 records -> 4 chunks of 2700,2700,2700,1900.
	cfg := config.BatchConfig{ChunkSizeOverride: map[model.Family]int{model.Activity: 2700}}

	plan, err := Plan(model.Activity, 10000, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2700, plan.ChunkSize)
	assert.Equal(t, 4, plan.ChunkCount)
	assert.LessOrEqual(t, plan.ChunkSize*plan.ParamsPerRecord, 51300)
}

func TestValidateStartup_RejectsUnsafeOverride(t *testing.T) {
	// heart_rate_chunk_size = 10_000, params_per_record = 6 -> 60_000
	// bind params, which exceeds PMax() = 52_428.
	cfg := config.BatchConfig{ChunkSizeOverride: map[model.Family]int{model.HeartRate: 10000}}

	err := ValidateStartup(cfg)
	require.Error(t, err)
}

func TestValidateStartup_AcceptsDefaultConfiguration(t *testing.T) {
	cfg := config.Default().Batch
	require.NoError(t, ValidateStartup(cfg))
}

func TestValidateStartup_AcceptsOverrideAtExactSafeCeiling(t *testing.T) {
	paramsPerRecord := ParamsPerRecord[model.HeartRate]
	safe := maxSafeChunk(paramsPerRecord)
	cfg := config.BatchConfig{ChunkSizeOverride: map[model.Family]int{model.HeartRate: safe}}

	require.NoError(t, ValidateStartup(cfg))
}
