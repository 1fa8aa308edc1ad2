package validation

import (
	"math"

	"github.com/vitalpipe/ingest/internal/config"
	"github.com/vitalpipe/ingest/internal/ingesterrors"
	"github.com/vitalpipe/ingest/internal/model"
)

func validateHeartRate(m model.HeartRateMetric, b config.BoundsConfig) error {
	rng := b.HeartRateBPM
	if m.IsResting {
		rng = b.RestingHeartRateBPM
	}
	return inRange(string(model.HeartRate), "bpm", float64(m.BPM), rng)
}

func validateBloodPressure(m model.BloodPressureMetric, b config.BoundsConfig) error {
	if err := inRange(string(model.BloodPressure), "systolic", float64(m.Systolic), b.Systolic); err != nil {
		return err
	}
	if err := inRange(string(model.BloodPressure), "diastolic", float64(m.Diastolic), b.Diastolic); err != nil {
		return err
	}
	if m.Diastolic >= m.Systolic {
		return &ingesterrors.ValidationError{
			Family:        string(model.BloodPressure),
			Field:         "diastolic",
			OffendingValue: m.Diastolic,
			ValidRange:     [2]any{0, m.Systolic - 1},
		}
	}
	return nil
}

func validateSleep(m model.SleepMetric, b config.BoundsConfig) error {
	if !m.Start.Before(m.End) {
		return &ingesterrors.ValidationError{
			Family:        string(model.Sleep),
			Field:         "start",
			OffendingValue: m.Start,
			ValidRange:     [2]any{nil, m.End},
		}
	}
	if err := inRange(string(model.Sleep), "efficiency_percent", m.EfficiencyPercent, b.SleepEfficiencyPct); err != nil {
		return err
	}

	componentSum := m.DeepMinutes + m.RemMinutes + m.LightMinutes + m.AwakeMinutes
	if math.Abs(componentSum-m.TotalMinutes) > b.SleepToleranceMinutes {
		return &ingesterrors.ValidationError{
			Family:        string(model.Sleep),
			Field:         "total_minutes",
			OffendingValue: m.TotalMinutes,
			ValidRange:     [2]any{componentSum - b.SleepToleranceMinutes, componentSum + b.SleepToleranceMinutes},
		}
	}
	return nil
}

func validateActivity(m model.ActivityMetric, b config.BoundsConfig) error {
	if err := inRange(string(model.Activity), "steps", float64(m.Steps), b.Steps); err != nil {
		return err
	}
	if err := inRange(string(model.Activity), "distance_km", m.DistanceKM, b.DistanceKM); err != nil {
		return err
	}
	if err := inRange(string(model.Activity), "calories", m.Calories, b.Calories); err != nil {
		return err
	}
	if m.Steps < 0 || m.DistanceKM < 0 || m.Calories < 0 {
		return &ingesterrors.ValidationError{
			Family:        string(model.Activity),
			Field:         "counters",
			OffendingValue: "negative counter",
			ValidRange:     [2]any{0, nil},
		}
	}
	return nil
}

func validateWorkout(m model.WorkoutMetric, b config.BoundsConfig) error {
	if !m.StartedAt.Before(m.EndedAt) {
		return &ingesterrors.ValidationError{
			Family:        string(model.Workout),
			Field:         "started_at",
			OffendingValue: m.StartedAt,
			ValidRange:     [2]any{nil, m.EndedAt},
		}
	}

	durationHours := m.EndedAt.Sub(m.StartedAt).Hours()
	if err := inRange(string(model.Workout), "duration_hours", durationHours, b.WorkoutDurationHours); err != nil {
		return err
	}

	if m.HasGPS {
		if err := inRange(string(model.Workout), "min_lat", m.MinLat, b.Latitude); err != nil {
			return err
		}
		if err := inRange(string(model.Workout), "max_lat", m.MaxLat, b.Latitude); err != nil {
			return err
		}
		if err := inRange(string(model.Workout), "min_lon", m.MinLon, b.Longitude); err != nil {
			return err
		}
		if err := inRange(string(model.Workout), "max_lon", m.MaxLon, b.Longitude); err != nil {
			return err
		}
	}

	if m.AvgHR > 0 {
		if err := inRange(string(model.Workout), "avg_hr", float64(m.AvgHR), b.HeartRateBPM); err != nil {
			return err
		}
	}
	if m.MaxHR > 0 {
		if err := inRange(string(model.Workout), "max_hr", float64(m.MaxHR), b.HeartRateBPM); err != nil {
			return err
		}
	}
	return nil
}
