package upsert

import "github.com/vitalpipe/ingest/internal/model"

// FamilyTable describes the destination table for one metric family: its
// name, the ordered column list a bulk-INSERT statement fills (length
// must equal planner.ParamsPerRecord[family]), the columns backing its
// DedupKey uniqueness constraint (the ON CONFLICT target), and the
// function that extracts one record's row values in column order.
type FamilyTable struct {
	Name            string
	Columns         []string
	ConflictColumns []string
	Values          func(model.HealthMetric) []any
}

func str(v string) string { return v }

// Tables is the single source of truth mapping each family to its
// destination table. Every entry's len(Columns) must equal
// planner.ParamsPerRecord[family] — internal/upsert's tests assert this
// directly against the Planner's table so the two can never drift.
var Tables = map[model.Family]FamilyTable{
	model.HeartRate: {
		Name:            "heart_rate_metrics",
		Columns:         []string{"user_id", "recorded_at", "bpm", "context", "is_resting", "source_device"},
		ConflictColumns: []string{"user_id", "recorded_at", "context"},
		Values: func(hm model.HealthMetric) []any {
			m := hm.(model.HeartRateMetric)
			return []any{m.UserID(), m.Timestamp(), m.BPM, m.Context, m.IsResting, nullableString(m.SourceDevice())}
		},
	},
	model.BloodPressure: {
		Name:            "blood_pressure_metrics",
		Columns:         []string{"user_id", "recorded_at", "systolic", "diastolic", "source_device"},
		ConflictColumns: []string{"user_id", "recorded_at"},
		Values: func(hm model.HealthMetric) []any {
			m := hm.(model.BloodPressureMetric)
			return []any{m.UserID(), m.Timestamp(), m.Systolic, m.Diastolic, nullableString(m.SourceDevice())}
		},
	},
	model.Sleep: {
		Name:            "sleep_metrics",
		Columns:         []string{"user_id", "started_at", "ended_at", "efficiency_percent", "deep_minutes", "rem_minutes", "light_minutes", "awake_minutes", "total_minutes"},
		ConflictColumns: []string{"user_id", "started_at"},
		Values: func(hm model.HealthMetric) []any {
			m := hm.(model.SleepMetric)
			return []any{m.UserID(), m.Start, m.End, m.EfficiencyPercent, m.DeepMinutes, m.RemMinutes, m.LightMinutes, m.AwakeMinutes, m.TotalMinutes}
		},
	},
	model.Activity: {
		Name: "activity_metrics",
		Columns: []string{
			"user_id", "recorded_at", "sub_type", "steps", "distance_km", "calories",
			"flights_climbed", "active_calories", "basal_calories", "exercise_minutes",
			"stand_hours", "move_goal_calories", "exercise_goal_minutes", "stand_goal_hours",
			"avg_heart_rate", "max_heart_rate", "vo2_max", "device_timezone_offset_minutes", "source_device",
		},
		ConflictColumns: []string{"user_id", "recorded_at", "sub_type"},
		Values: func(hm model.HealthMetric) []any {
			m := hm.(model.ActivityMetric)
			return []any{
				m.UserID(), m.Timestamp(), m.SubType, m.Steps, m.DistanceKM, m.Calories,
				m.FlightsClimbed, m.ActiveCalories, m.BasalCalories, m.ExerciseMinutes,
				m.StandHours, m.MoveGoalCalories, m.ExerciseGoalMinutes, m.StandGoalHours,
				m.AvgHeartRate, m.MaxHeartRate, m.VO2Max, m.DeviceTimezoneOffsetMinutes, nullableString(m.SourceDevice()),
			}
		},
	},
	model.BodyMeasurement: {
		Name:            "body_measurement_metrics",
		Columns:         []string{"user_id", "recorded_at", "metric_type", "value", "source_device"},
		ConflictColumns: []string{"user_id", "recorded_at", "metric_type"},
		Values: func(hm model.HealthMetric) []any {
			m := hm.(model.BodyMeasurementMetric)
			return []any{m.UserID(), m.Timestamp(), m.MetricType, m.Value, nullableString(m.SourceDevice())}
		},
	},
	model.Temperature: {
		Name:            "temperature_metrics",
		Columns:         []string{"user_id", "recorded_at", "context", "celsius", "source_device"},
		ConflictColumns: []string{"user_id", "recorded_at", "context"},
		Values: func(hm model.HealthMetric) []any {
			m := hm.(model.TemperatureMetric)
			return []any{m.UserID(), m.Timestamp(), m.Context, m.Celsius, nullableString(m.SourceDevice())}
		},
	},
	model.BloodGlucose: {
		Name:            "blood_glucose_metrics",
		Columns:         []string{"user_id", "recorded_at", "meal_context", "mg_dl", "source_device"},
		ConflictColumns: []string{"user_id", "recorded_at", "meal_context"},
		Values: func(hm model.HealthMetric) []any {
			m := hm.(model.BloodGlucoseMetric)
			return []any{m.UserID(), m.Timestamp(), m.MealContext, m.MgDL, nullableString(m.SourceDevice())}
		},
	},
	model.Respiratory: {
		Name:            "respiratory_metrics",
		Columns:         []string{"user_id", "recorded_at", "metric_type", "value", "source_device"},
		ConflictColumns: []string{"user_id", "recorded_at", "metric_type"},
		Values: func(hm model.HealthMetric) []any {
			m := hm.(model.RespiratoryMetric)
			return []any{m.UserID(), m.Timestamp(), m.MetricType, m.Value, nullableString(m.SourceDevice())}
		},
	},
	model.Nutrition: {
		Name:            "nutrition_metrics",
		Columns:         []string{"user_id", "recorded_at", "nutrient_type", "amount", "source_device"},
		ConflictColumns: []string{"user_id", "recorded_at", "nutrient_type"},
		Values: func(hm model.HealthMetric) []any {
			m := hm.(model.NutritionMetric)
			return []any{m.UserID(), m.Timestamp(), m.NutrientType, m.Amount, nullableString(m.SourceDevice())}
		},
	},
	model.Workout: {
		Name:            "workout_metrics",
		Columns:         []string{"user_id", "workout_type", "started_at", "ended_at", "has_gps", "min_lat", "max_lat", "min_lon", "max_lon", "avg_hr", "max_hr", "source_device"},
		ConflictColumns: []string{"user_id", "started_at", "workout_type"},
		Values: func(hm model.HealthMetric) []any {
			m := hm.(model.WorkoutMetric)
			return []any{m.UserID(), m.WorkoutType, m.StartedAt, m.EndedAt, m.HasGPS, m.MinLat, m.MaxLat, m.MinLon, m.MaxLon, m.AvgHR, m.MaxHR, nullableString(m.SourceDevice())}
		},
	},
	model.Menstrual: {
		Name:            "menstrual_metrics",
		Columns:         []string{"user_id", "recorded_at", "flow_level", "source_device"},
		ConflictColumns: []string{"user_id", "recorded_at"},
		Values: func(hm model.HealthMetric) []any {
			m := hm.(model.MenstrualMetric)
			return []any{m.UserID(), m.Timestamp(), m.FlowLevel, nullableString(m.SourceDevice())}
		},
	},
	model.Fertility: {
		Name:            "fertility_metrics",
		Columns:         []string{"user_id", "recorded_at", "indicator_type", "value", "source_device"},
		ConflictColumns: []string{"user_id", "recorded_at", "indicator_type"},
		Values: func(hm model.HealthMetric) []any {
			m := hm.(model.FertilityMetric)
			return []any{m.UserID(), m.Timestamp(), m.IndicatorType, m.Value, nullableString(m.SourceDevice())}
		},
	},
	model.Environmental: {
		Name:            "environmental_metrics",
		Columns:         []string{"user_id", "recorded_at", "metric_type", "value", "source_device"},
		ConflictColumns: []string{"user_id", "recorded_at", "metric_type"},
		Values: func(hm model.HealthMetric) []any {
			m := hm.(model.EnvironmentalMetric)
			return []any{m.UserID(), m.Timestamp(), m.MetricType, m.Value, nullableString(m.SourceDevice())}
		},
	},
	model.AudioExposure: {
		Name:            "audio_exposure_metrics",
		Columns:         []string{"user_id", "recorded_at", "context", "decibels", "source_device"},
		ConflictColumns: []string{"user_id", "recorded_at", "context"},
		Values: func(hm model.HealthMetric) []any {
			m := hm.(model.AudioExposureMetric)
			return []any{m.UserID(), m.Timestamp(), m.Context, m.Decibels, nullableString(m.SourceDevice())}
		},
	},
}

func init() {
	for _, f := range []model.Family{model.Mental, model.Safety, model.Mindfulness, model.Symptom, model.Hygiene} {
		family := f
		Tables[family] = FamilyTable{
			Name:            str(string(family)) + "_metrics",
			Columns:         []string{"user_id", "recorded_at", "discriminator", "value", "source_device"},
			ConflictColumns: []string{"user_id", "recorded_at", "discriminator"},
			Values: func(hm model.HealthMetric) []any {
				m := hm.(model.UniformMetric)
				return []any{m.UserID(), m.Timestamp(), m.Discriminator, m.Value, nullableString(m.SourceDevice())}
			},
		}
	}
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
