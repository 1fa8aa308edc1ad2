// Package validation implements the per-record range and cross-field
// checks of spec.md §4.3. Bounds are externalized to config.BoundsConfig
// with documented defaults; warnings (in-range but suspicious values)
// never block ingestion.
package validation

import (
	"github.com/vitalpipe/ingest/internal/config"
	"github.com/vitalpipe/ingest/internal/ingesterrors"
	"github.com/vitalpipe/ingest/internal/model"
)

// Validate runs the per-family rule set against m. It returns a
// *ingesterrors.ValidationError naming the offending field, or nil.
func Validate(m model.HealthMetric, b config.BoundsConfig) error {
	switch v := m.(type) {
	case model.HeartRateMetric:
		return validateHeartRate(v, b)
	case model.BloodPressureMetric:
		return validateBloodPressure(v, b)
	case model.SleepMetric:
		return validateSleep(v, b)
	case model.ActivityMetric:
		return validateActivity(v, b)
	case model.WorkoutMetric:
		return validateWorkout(v, b)
	case model.BloodGlucoseMetric:
		return inRange(string(model.BloodGlucose), "mg_dl", v.MgDL, b.BloodGlucoseMgDL)
	case model.TemperatureMetric:
		return inRange(string(model.Temperature), "celsius", v.Celsius, b.TemperatureCelsius)
	case model.RespiratoryMetric:
		rng := b.RespiratoryRate
		if v.MetricType == "spo2" {
			rng = b.SpO2Percent
		}
		return inRange(string(model.Respiratory), v.MetricType, v.Value, rng)
	case model.NutritionMetric:
		return inRange(string(model.Nutrition), v.NutrientType, v.Amount, b.NutritionCalories)
	case model.EnvironmentalMetric:
		return inRange(string(model.Environmental), v.MetricType, v.Value, b.EnvironmentalValue)
	case model.AudioExposureMetric:
		return inRange(string(model.AudioExposure), "decibels", v.Decibels, b.AudioExposureDecibels)
	case model.BodyMeasurementMetric, model.MenstrualMetric, model.FertilityMetric, model.UniformMetric:
		// These families carry no hard physiological bound in spec.md;
		// only non-negativity of any numeric attribute is required.
		return validateNonNegative(m)
	default:
		return nil
	}
}

// Warnings returns structured, non-blocking events for in-range but
// suspicious values (spec.md §4.3: "HR > 220").
func Warnings(m model.HealthMetric) []model.Warning {
	var out []model.Warning
	if hrMetric, ok := m.(model.HeartRateMetric); ok && hrMetric.BPM > 220 {
		out = append(out, model.Warning{
			Family: model.HeartRate,
			Index:  hrMetric.RawIndex(),
			Detail: "heart rate exceeds 220 bpm, in range but physiologically unusual",
		})
	}
	return out
}

func inRange(family, field string, value float64, r config.Range) error {
	if value < r.Min || value > r.Max {
		return &ingesterrors.ValidationError{
			Family:        family,
			Field:         field,
			OffendingValue: value,
			ValidRange:     [2]any{r.Min, r.Max},
		}
	}
	return nil
}

func validateNonNegative(m model.HealthMetric) error {
	var value float64
	var field string
	switch v := m.(type) {
	case model.BodyMeasurementMetric:
		value, field = v.Value, v.MetricType
	case model.MenstrualMetric:
		return nil
	case model.FertilityMetric:
		value, field = v.Value, v.IndicatorType
	case model.UniformMetric:
		value, field = v.Value, v.Discriminator
	}
	if value < 0 {
		return &ingesterrors.ValidationError{
			Family:        string(m.Family()),
			Field:         field,
			OffendingValue: value,
			ValidRange:     [2]any{0, nil},
		}
	}
	return nil
}
