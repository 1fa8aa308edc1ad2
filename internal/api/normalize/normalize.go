// Package normalize turns either of the two wire shapes the mobile
// exporter produces (spec.md §6.1, §9 "Dual payload shapes") into the
// canonical model.Payload sum type, before any family grouping happens.
package normalize

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vitalpipe/ingest/internal/model"
)

// envelope matches the outer `{"data": {...}}` shared by both shapes.
type envelope struct {
	Data struct {
		Metrics  json.RawMessage `json:"metrics"`
		Workouts []workoutRecord `json:"workouts"`
	} `json:"data"`
}

// flatRecord is one element of the flat `metrics[]` shape: a single
// object carrying its own family tag alongside its fields.
type flatRecord struct {
	Type      string    `json:"type"`
	UserID    uuid.UUID `json:"user_id"`
	RecordedAt time.Time `json:"recorded_at"`
	Device    string    `json:"source_device"`
	rawFields
}

// nestedGroup is one element of the nested `metrics[]` shape: a family
// name plus its own time series.
type nestedGroup struct {
	Name string          `json:"name"`
	Data []flatRecordRow `json:"data"`
}

// flatRecordRow is one sample inside a nestedGroup's data[] array; it
// lacks a Type field since the group name supplies the family.
type flatRecordRow struct {
	UserID     uuid.UUID `json:"user_id"`
	RecordedAt time.Time `json:"recorded_at"`
	Device     string    `json:"source_device"`
	rawFields
}

// rawFields holds every family-specific attribute generically; exact
// fields are pulled out by family in buildMetric. Both wire shapes funnel
// through the same extraction so there is only one family-field mapping
// to maintain.
type rawFields struct {
	BPM           *int     `json:"bpm"`
	Context       *string  `json:"context"`
	IsResting     *bool    `json:"is_resting"`
	Systolic      *int     `json:"systolic"`
	Diastolic     *int     `json:"diastolic"`
	SubType       *string  `json:"sub_type"`
	Steps         *int     `json:"steps"`
	DistanceKM    *float64 `json:"distance_km"`
	Calories      *float64 `json:"calories"`
	MetricType    *string  `json:"metric_type"`
	Value         *float64 `json:"value"`
	Discriminator *string  `json:"discriminator"`

	EndedAt           *time.Time `json:"ended_at"`
	EfficiencyPercent *float64   `json:"efficiency_percent"`
	DeepMinutes       *float64   `json:"deep_minutes"`
	RemMinutes        *float64   `json:"rem_minutes"`
	LightMinutes      *float64   `json:"light_minutes"`
	AwakeMinutes      *float64   `json:"awake_minutes"`
	TotalMinutes      *float64   `json:"total_minutes"`
}

type workoutRecord struct {
	UserID      uuid.UUID `json:"user_id"`
	WorkoutType string    `json:"workout_type"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	HasGPS      bool      `json:"has_gps"`
	MinLat      float64   `json:"min_lat"`
	MaxLat      float64   `json:"max_lat"`
	MinLon      float64   `json:"min_lon"`
	MaxLon      float64   `json:"max_lon"`
	AvgHR       int       `json:"avg_hr"`
	MaxHR       int       `json:"max_hr"`
	Device      string    `json:"source_device"`
}

// Parse accepts either wire shape and returns the normalized payload.
func Parse(raw []byte) (model.Payload, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.Payload{}, fmt.Errorf("malformed request body: %w", err)
	}

	metrics, err := parseMetrics(env.Data.Metrics)
	if err != nil {
		return model.Payload{}, err
	}

	index := len(metrics)
	for _, w := range env.Data.Workouts {
		metrics = append(metrics, model.WorkoutMetric{
			Base:        model.NewBase(w.UserID, w.StartedAt, w.Device, index),
			WorkoutType: w.WorkoutType,
			StartedAt:   w.StartedAt,
			EndedAt:     w.EndedAt,
			HasGPS:      w.HasGPS,
			MinLat:      w.MinLat,
			MaxLat:      w.MaxLat,
			MinLon:      w.MinLon,
			MaxLon:      w.MaxLon,
			AvgHR:       w.AvgHR,
			MaxHR:       w.MaxHR,
		})
		index++
	}

	return model.Payload{Metrics: metrics}, nil
}

// parseMetrics disambiguates the two wire shapes by structure rather than
// by which unmarshal happens not to error: a flat record and a nested
// group both decode successfully into either struct (unknown fields are
// simply ignored by encoding/json), so trying the flat shape first and
// falling back "on error" never actually falls back for well-formed
// nested input. Instead, the first element is peeked for the nested
// shape's distinguishing "name"+"data" keys before either shape is fully
// decoded, and that one decision applies to the whole metrics[] array.
func parseMetrics(raw json.RawMessage) ([]model.HealthMetric, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("malformed metrics payload: %w", err)
	}
	if len(elems) == 0 {
		return nil, nil
	}

	if looksNested(elems[0]) {
		return parseNestedMetrics(elems)
	}
	return parseFlatMetrics(elems)
}

// looksNested reports whether a metrics[] element is a {name, data[]}
// group rather than a flat tagged record: nested groups carry both a
// non-empty "name" and a "data" array, neither of which a flat record has.
func looksNested(first json.RawMessage) bool {
	var probe struct {
		Name string          `json:"name"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(first, &probe); err != nil {
		return false
	}
	return probe.Name != "" && len(probe.Data) > 0
}

func parseFlatMetrics(elems []json.RawMessage) ([]model.HealthMetric, error) {
	out := make([]model.HealthMetric, 0, len(elems))
	for i, raw := range elems {
		var r flatRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("malformed metrics payload: %w", err)
		}
		m, err := buildMetric(model.Family(r.Type), r.UserID, r.RecordedAt, r.Device, i, r.rawFields)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func parseNestedMetrics(elems []json.RawMessage) ([]model.HealthMetric, error) {
	var out []model.HealthMetric
	index := 0
	for _, raw := range elems {
		var group nestedGroup
		if err := json.Unmarshal(raw, &group); err != nil {
			return nil, fmt.Errorf("malformed metrics payload: %w", err)
		}
		for _, r := range group.Data {
			m, err := buildMetric(model.Family(group.Name), r.UserID, r.RecordedAt, r.Device, index, r.rawFields)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
			index++
		}
	}
	return out, nil
}

// buildMetric maps one generic record plus its family tag into the
// concrete model.HealthMetric union member.
func buildMetric(family model.Family, userID uuid.UUID, at time.Time, device string, index int, f rawFields) (model.HealthMetric, error) {
	base := model.NewBase(userID, at, device, index)

	switch family {
	case model.HeartRate:
		return model.HeartRateMetric{
			Base:      base,
			BPM:       intOr(f.BPM, 0),
			Context:   strOr(f.Context, ""),
			IsResting: boolOr(f.IsResting, false),
		}, nil
	case model.BloodPressure:
		return model.BloodPressureMetric{
			Base:      base,
			Systolic:  intOr(f.Systolic, 0),
			Diastolic: intOr(f.Diastolic, 0),
		}, nil
	case model.Sleep:
		endedAt := at
		if f.EndedAt != nil {
			endedAt = *f.EndedAt
		}
		return model.SleepMetric{
			Base:              base,
			Start:             at,
			End:               endedAt,
			EfficiencyPercent: floatOr(f.EfficiencyPercent, 0),
			DeepMinutes:       floatOr(f.DeepMinutes, 0),
			RemMinutes:        floatOr(f.RemMinutes, 0),
			LightMinutes:      floatOr(f.LightMinutes, 0),
			AwakeMinutes:      floatOr(f.AwakeMinutes, 0),
			TotalMinutes:      floatOr(f.TotalMinutes, 0),
		}, nil
	case model.Activity:
		return model.ActivityMetric{
			Base:       base,
			SubType:    strOr(f.SubType, ""),
			Steps:      intOr(f.Steps, 0),
			DistanceKM: floatOr(f.DistanceKM, 0),
			Calories:   floatOr(f.Calories, 0),
		}, nil
	case model.BodyMeasurement, model.Temperature, model.BloodGlucose, model.Respiratory,
		model.Nutrition, model.Fertility, model.Environmental, model.AudioExposure:
		return buildGenericMeasurement(family, base, f)
	case model.Mental, model.Safety, model.Mindfulness, model.Symptom, model.Hygiene:
		return model.UniformMetric{
			Base:          base,
			Fam:           family,
			Discriminator: strOr(f.Discriminator, ""),
			Value:         floatOr(f.Value, 0),
		}, nil
	case model.Menstrual:
		return model.MenstrualMetric{Base: base, FlowLevel: strOr(f.Discriminator, "")}, nil
	default:
		return nil, fmt.Errorf("unrecognized metric family in payload: %q", family)
	}
}

// buildGenericMeasurement covers the families whose wire shape is just
// {metric_type or discriminator, value} (metric_type wins when both are
// present; a "context" key is not read here): body measurement, temperature, blood
// glucose, respiratory, nutrition, fertility, environmental, audio
// exposure.
func buildGenericMeasurement(family model.Family, base model.Base, f rawFields) (model.HealthMetric, error) {
	value := floatOr(f.Value, 0)
	discriminator := strOr(f.MetricType, strOr(f.Discriminator, ""))

	switch family {
	case model.BodyMeasurement:
		return model.BodyMeasurementMetric{Base: base, MetricType: discriminator, Value: value}, nil
	case model.Temperature:
		return model.TemperatureMetric{Base: base, Context: discriminator, Celsius: value}, nil
	case model.BloodGlucose:
		return model.BloodGlucoseMetric{Base: base, MealContext: discriminator, MgDL: value}, nil
	case model.Respiratory:
		return model.RespiratoryMetric{Base: base, MetricType: discriminator, Value: value}, nil
	case model.Nutrition:
		return model.NutritionMetric{Base: base, NutrientType: discriminator, Amount: value}, nil
	case model.Fertility:
		return model.FertilityMetric{Base: base, IndicatorType: discriminator, Value: value}, nil
	case model.Environmental:
		return model.EnvironmentalMetric{Base: base, MetricType: discriminator, Value: value}, nil
	case model.AudioExposure:
		return model.AudioExposureMetric{Base: base, Context: discriminator, Decibels: value}, nil
	default:
		return nil, fmt.Errorf("buildGenericMeasurement: unhandled family %q", family)
	}
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func strOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}
