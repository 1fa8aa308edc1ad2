package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalpipe/ingest/internal/model"
)

func TestParse_FlatShape(t *testing.T) {
	body := []byte(`{
		"data": {
			"metrics": [
				{"type": "heart_rate", "user_id": "11111111-1111-1111-1111-111111111111", "recorded_at": "2026-01-01T00:00:00Z", "source_device": "watch-1", "bpm": 72, "context": "resting", "is_resting": true}
			]
		}
	}`)

	payload, err := Parse(body)
	require.NoError(t, err)
	require.Len(t, payload.Metrics, 1)

	hr, ok := payload.Metrics[0].(model.HeartRateMetric)
	require.True(t, ok)
	assert.Equal(t, model.HeartRate, hr.Family())
	assert.Equal(t, 72, hr.BPM)
	assert.Equal(t, "resting", hr.Context)
	assert.True(t, hr.IsResting)
}

func TestParse_NestedShape(t *testing.T) {
	body := []byte(`{
		"data": {
			"metrics": [
				{
					"name": "heart_rate",
					"data": [
						{"user_id": "11111111-1111-1111-1111-111111111111", "recorded_at": "2026-01-01T00:00:00Z", "source_device": "watch-1", "bpm": 88, "context": "active"}
					]
				},
				{
					"name": "blood_pressure",
					"data": [
						{"user_id": "11111111-1111-1111-1111-111111111111", "recorded_at": "2026-01-01T00:05:00Z", "source_device": "cuff-1", "systolic": 118, "diastolic": 76}
					]
				}
			]
		}
	}`)

	payload, err := Parse(body)
	require.NoError(t, err)
	require.Len(t, payload.Metrics, 2)

	hr, ok := payload.Metrics[0].(model.HeartRateMetric)
	require.True(t, ok)
	assert.Equal(t, 88, hr.BPM)
	assert.Equal(t, "active", hr.Context)

	bp, ok := payload.Metrics[1].(model.BloodPressureMetric)
	require.True(t, ok)
	assert.Equal(t, 118, bp.Systolic)
	assert.Equal(t, 76, bp.Diastolic)
}

func TestParse_NestedShapeMultipleSamplesPerGroupIndexedContinuously(t *testing.T) {
	body := []byte(`{
		"data": {
			"metrics": [
				{
					"name": "heart_rate",
					"data": [
						{"user_id": "11111111-1111-1111-1111-111111111111", "recorded_at": "2026-01-01T00:00:00Z", "bpm": 60},
						{"user_id": "11111111-1111-1111-1111-111111111111", "recorded_at": "2026-01-01T00:01:00Z", "bpm": 61}
					]
				}
			]
		}
	}`)

	payload, err := Parse(body)
	require.NoError(t, err)
	require.Len(t, payload.Metrics, 2)
	assert.Equal(t, 0, payload.Metrics[0].RawIndex())
	assert.Equal(t, 1, payload.Metrics[1].RawIndex())
}

func TestParse_EmptyMetricsAndWorkoutsIsEmptyPayload(t *testing.T) {
	body := []byte(`{"data": {"metrics": []}}`)
	payload, err := Parse(body)
	require.NoError(t, err)
	assert.Equal(t, 0, payload.Count())
}

func TestParse_WorkoutsAppendedAfterMetrics(t *testing.T) {
	body := []byte(`{
		"data": {
			"metrics": [
				{"type": "heart_rate", "user_id": "11111111-1111-1111-1111-111111111111", "recorded_at": "2026-01-01T00:00:00Z", "bpm": 70}
			],
			"workouts": [
				{"user_id": "11111111-1111-1111-1111-111111111111", "workout_type": "run", "started_at": "2026-01-01T01:00:00Z", "ended_at": "2026-01-01T01:30:00Z"}
			]
		}
	}`)

	payload, err := Parse(body)
	require.NoError(t, err)
	require.Len(t, payload.Metrics, 2)

	workout, ok := payload.Metrics[1].(model.WorkoutMetric)
	require.True(t, ok)
	assert.Equal(t, "run", workout.WorkoutType)
	assert.Equal(t, 1, workout.RawIndex())
}

func TestParse_UnrecognizedFamilyInFlatShapeReturnsError(t *testing.T) {
	body := []byte(`{
		"data": {
			"metrics": [
				{"type": "not_a_real_family", "user_id": "11111111-1111-1111-1111-111111111111", "recorded_at": "2026-01-01T00:00:00Z"}
			]
		}
	}`)

	_, err := Parse(body)
	assert.Error(t, err)
}

func TestParse_UnrecognizedFamilyInNestedShapeReturnsError(t *testing.T) {
	body := []byte(`{
		"data": {
			"metrics": [
				{"name": "not_a_real_family", "data": [
					{"user_id": "11111111-1111-1111-1111-111111111111", "recorded_at": "2026-01-01T00:00:00Z"}
				]}
			]
		}
	}`)

	_, err := Parse(body)
	assert.Error(t, err)
}

func TestLooksNested_DistinguishesShapesByStructure(t *testing.T) {
	flat := []byte(`{"type": "heart_rate", "bpm": 70}`)
	nested := []byte(`{"name": "heart_rate", "data": [{"bpm": 70}]}`)

	assert.False(t, looksNested(flat))
	assert.True(t, looksNested(nested))
}
