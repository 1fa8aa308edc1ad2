package validation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalpipe/ingest/internal/config"
	"github.com/vitalpipe/ingest/internal/ingesterrors"
	"github.com/vitalpipe/ingest/internal/model"
)

func TestValidate_BloodPressure_OutOfRangeSystolic(t *testing.T) {
	// spec.md §8 scenario 5: systolic=400 must be rejected with the
	// offending field/value/range surfaced.
	b := config.DefaultBounds()
	m := model.BloodPressureMetric{
		Base:      model.NewBase(uuid.New(), time.Now(), "", 0),
		Systolic:  400,
		Diastolic: 80,
	}

	err := Validate(m, b)
	require.Error(t, err)

	var verr *ingesterrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "blood_pressure", verr.Family)
	assert.Equal(t, "systolic", verr.Field)
	assert.Equal(t, 400.0, verr.OffendingValue)
	assert.Equal(t, [2]any{50.0, 250.0}, verr.ValidRange)
}

func TestValidate_BloodPressure_DiastolicMustBeLessThanSystolic(t *testing.T) {
	b := config.DefaultBounds()
	m := model.BloodPressureMetric{
		Base:      model.NewBase(uuid.New(), time.Now(), "", 0),
		Systolic:  110,
		Diastolic: 120,
	}
	require.Error(t, Validate(m, b))
}

func TestValidate_BloodPressure_Valid(t *testing.T) {
	b := config.DefaultBounds()
	m := model.BloodPressureMetric{
		Base:      model.NewBase(uuid.New(), time.Now(), "", 0),
		Systolic:  120,
		Diastolic: 80,
	}
	assert.NoError(t, Validate(m, b))
}

func TestValidate_HeartRate_Bounds(t *testing.T) {
	b := config.DefaultBounds()
	cases := []struct {
		bpm   int
		valid bool
	}{
		{14, false}, {15, true}, {300, true}, {301, false}, {70, true},
	}
	for _, tc := range cases {
		m := model.HeartRateMetric{Base: model.NewBase(uuid.New(), time.Now(), "", 0), BPM: tc.bpm}
		err := Validate(m, b)
		if tc.valid {
			assert.NoError(t, err, "bpm=%d", tc.bpm)
		} else {
			assert.Error(t, err, "bpm=%d", tc.bpm)
		}
	}
}

func TestValidate_HeartRate_WarningAboveButInRange(t *testing.T) {
	b := config.DefaultBounds()
	m := model.HeartRateMetric{Base: model.NewBase(uuid.New(), time.Now(), "", 0), BPM: 230}

	assert.NoError(t, Validate(m, b))
	assert.Len(t, Warnings(m), 1)
}

func TestValidate_Sleep_StartBeforeEnd(t *testing.T) {
	b := config.DefaultBounds()
	now := time.Now()
	m := model.SleepMetric{
		Base:              model.NewBase(uuid.New(), now, "", 0),
		Start:             now,
		End:               now.Add(-time.Hour),
		EfficiencyPercent: 90,
		TotalMinutes:      60,
	}
	require.Error(t, Validate(m, b))
}

func TestValidate_Sleep_ComponentsMustSumToTotal(t *testing.T) {
	b := config.DefaultBounds()
	now := time.Now()
	m := model.SleepMetric{
		Base:              model.NewBase(uuid.New(), now, "", 0),
		Start:             now,
		End:               now.Add(8 * time.Hour),
		EfficiencyPercent: 90,
		DeepMinutes:       60,
		RemMinutes:        60,
		LightMinutes:      200,
		AwakeMinutes:      10,
		TotalMinutes:      100, // way off from the 330 minute component sum
	}
	require.Error(t, Validate(m, b))
}

func TestValidate_Activity_Bounds(t *testing.T) {
	b := config.DefaultBounds()
	m := model.ActivityMetric{
		Base:       model.NewBase(uuid.New(), time.Now(), "", 0),
		SubType:    "steps",
		Steps:      200001,
		DistanceKM: 1,
		Calories:   100,
	}
	require.Error(t, Validate(m, b))
}

func TestValidate_Workout_StartBeforeEndAndDuration(t *testing.T) {
	b := config.DefaultBounds()
	now := time.Now()
	m := model.WorkoutMetric{
		Base:        model.NewBase(uuid.New(), now, "", 0),
		WorkoutType: "run",
		StartedAt:   now,
		EndedAt:     now.Add(25 * time.Hour),
	}
	require.Error(t, Validate(m, b))
}

func TestValidate_Workout_GPSBounds(t *testing.T) {
	b := config.DefaultBounds()
	now := time.Now()
	m := model.WorkoutMetric{
		Base:        model.NewBase(uuid.New(), now, "", 0),
		WorkoutType: "run",
		StartedAt:   now,
		EndedAt:     now.Add(time.Hour),
		HasGPS:      true,
		MinLat:      91,
	}
	require.Error(t, Validate(m, b))
}
