package model

import (
	"time"

	"github.com/google/uuid"
)

// DedupKey is the per-family composite identity used to collapse
// duplicates within a batch and backed, per family, by a database
// uniqueness constraint that upserts rely on.
type DedupKey struct {
	UserID        uuid.UUID
	Timestamp     time.Time
	Discriminator string
}

// HealthMetric is the tagged-union member every family-specific struct
// implements. The Dispatcher groups a mixed payload by Family() and
// never inspects concrete types beyond that point.
type HealthMetric interface {
	Family() Family
	UserID() uuid.UUID
	Timestamp() time.Time
	DedupKey() DedupKey
	SourceDevice() string
	// RawIndex is the record's position in the original payload array,
	// carried through to {family, index, kind, detail} error entries.
	RawIndex() int
}

// Base is embedded by every concrete metric struct to supply the parts
// of HealthMetric common to all families. Exported so callers outside
// this package (the API payload normalizer) can construct concrete
// metric values directly via NewBase.
type Base struct {
	User   uuid.UUID
	At     time.Time
	Device string
	Index  int
}

func (b Base) UserID() uuid.UUID    { return b.User }
func (b Base) Timestamp() time.Time { return b.At }
func (b Base) SourceDevice() string { return b.Device }
func (b Base) RawIndex() int        { return b.Index }

// HeartRateMetric — bpm samples, optionally a resting-HR sample, tagged
// with a measurement context (the family's dedup discriminator).
type HeartRateMetric struct {
	Base
	BPM        int
	Context    string // e.g. "resting", "active", "workout" — dedup discriminator
	IsResting  bool
}

func (m HeartRateMetric) Family() Family { return HeartRate }
func (m HeartRateMetric) DedupKey() DedupKey {
	return DedupKey{UserID: m.User, Timestamp: m.At, Discriminator: m.Context}
}

// BloodPressureMetric — systolic/diastolic pair.
type BloodPressureMetric struct {
	Base
	Systolic  int
	Diastolic int
}

func (m BloodPressureMetric) Family() Family { return BloodPressure }
func (m BloodPressureMetric) DedupKey() DedupKey {
	return DedupKey{UserID: m.User, Timestamp: m.At}
}

// SleepMetric — a sleep session with component-duration breakdown.
type SleepMetric struct {
	Base
	Start              time.Time
	End                time.Time
	EfficiencyPercent  float64
	DeepMinutes        float64
	RemMinutes         float64
	LightMinutes       float64
	AwakeMinutes       float64
	TotalMinutes       float64
}

func (m SleepMetric) Family() Family { return Sleep }
func (m SleepMetric) DedupKey() DedupKey {
	return DedupKey{UserID: m.User, Timestamp: m.Start}
}

// ActivityMetric — step/distance/calorie counters for a sub-type (the
// dedup discriminator, e.g. "steps", "flights_climbed", "stand_minutes").
type ActivityMetric struct {
	Base
	SubType           string
	Steps             int
	DistanceKM        float64
	Calories          float64
	FlightsClimbed    int
	ActiveCalories    float64
	BasalCalories     float64
	ExerciseMinutes   float64
	StandHours        int
	MoveGoalCalories  float64
	ExerciseGoalMinutes float64
	StandGoalHours    int
	AvgHeartRate      int
	MaxHeartRate      int
	VO2Max            float64
	DeviceTimezoneOffsetMinutes int
}

func (m ActivityMetric) Family() Family { return Activity }
func (m ActivityMetric) DedupKey() DedupKey {
	return DedupKey{UserID: m.User, Timestamp: m.At, Discriminator: m.SubType}
}

// BodyMeasurementMetric — weight, body fat %, BMI, etc.
type BodyMeasurementMetric struct {
	Base
	MetricType string // discriminator: "weight_kg", "body_fat_pct", ...
	Value      float64
}

func (m BodyMeasurementMetric) Family() Family { return BodyMeasurement }
func (m BodyMeasurementMetric) DedupKey() DedupKey {
	return DedupKey{UserID: m.User, Timestamp: m.At, Discriminator: m.MetricType}
}

// TemperatureMetric — body or ambient temperature in Celsius.
type TemperatureMetric struct {
	Base
	Context     string // discriminator: "basal", "skin", "ambient"
	Celsius     float64
}

func (m TemperatureMetric) Family() Family { return Temperature }
func (m TemperatureMetric) DedupKey() DedupKey {
	return DedupKey{UserID: m.User, Timestamp: m.At, Discriminator: m.Context}
}

// BloodGlucoseMetric — mg/dL reading tagged with meal context, the
// family's dedup discriminator.
type BloodGlucoseMetric struct {
	Base
	MealContext string // discriminator: "fasting", "post_meal", "random"
	MgDL        float64
}

func (m BloodGlucoseMetric) Family() Family { return BloodGlucose }
func (m BloodGlucoseMetric) DedupKey() DedupKey {
	return DedupKey{UserID: m.User, Timestamp: m.At, Discriminator: m.MealContext}
}

// RespiratoryMetric — breaths per minute or SpO2 percentage.
type RespiratoryMetric struct {
	Base
	MetricType string // discriminator: "respiratory_rate", "spo2"
	Value      float64
}

func (m RespiratoryMetric) Family() Family { return Respiratory }
func (m RespiratoryMetric) DedupKey() DedupKey {
	return DedupKey{UserID: m.User, Timestamp: m.At, Discriminator: m.MetricType}
}

// NutritionMetric — a single nutrient entry (calories, protein, water...).
type NutritionMetric struct {
	Base
	NutrientType string // discriminator
	Amount       float64
}

func (m NutritionMetric) Family() Family { return Nutrition }
func (m NutritionMetric) DedupKey() DedupKey {
	return DedupKey{UserID: m.User, Timestamp: m.At, Discriminator: m.NutrientType}
}

// WorkoutMetric — a bounded activity session with optional GPS bounds
// and heart-rate summary.
type WorkoutMetric struct {
	Base
	WorkoutType string
	StartedAt   time.Time
	EndedAt     time.Time
	HasGPS      bool
	MinLat      float64
	MaxLat      float64
	MinLon      float64
	MaxLon      float64
	AvgHR       int
	MaxHR       int
}

func (m WorkoutMetric) Family() Family { return Workout }
func (m WorkoutMetric) DedupKey() DedupKey {
	return DedupKey{UserID: m.User, Timestamp: m.StartedAt, Discriminator: m.WorkoutType}
}

// MenstrualMetric — cycle-tracking entries.
type MenstrualMetric struct {
	Base
	FlowLevel string // discriminator
}

func (m MenstrualMetric) Family() Family { return Menstrual }
func (m MenstrualMetric) DedupKey() DedupKey {
	return DedupKey{UserID: m.User, Timestamp: m.At}
}

// FertilityMetric — basal body temp / ovulation-test style entries.
type FertilityMetric struct {
	Base
	IndicatorType string // discriminator
	Value         float64
}

func (m FertilityMetric) Family() Family { return Fertility }
func (m FertilityMetric) DedupKey() DedupKey {
	return DedupKey{UserID: m.User, Timestamp: m.At, Discriminator: m.IndicatorType}
}

// EnvironmentalMetric — UV exposure, ambient noise, daylight minutes.
type EnvironmentalMetric struct {
	Base
	MetricType string // discriminator
	Value      float64
}

func (m EnvironmentalMetric) Family() Family { return Environmental }
func (m EnvironmentalMetric) DedupKey() DedupKey {
	return DedupKey{UserID: m.User, Timestamp: m.At, Discriminator: m.MetricType}
}

// AudioExposureMetric — headphone/environmental decibel exposure.
type AudioExposureMetric struct {
	Base
	Context  string // discriminator: "headphone", "environmental"
	Decibels float64
}

func (m AudioExposureMetric) Family() Family { return AudioExposure }
func (m AudioExposureMetric) DedupKey() DedupKey {
	return DedupKey{UserID: m.User, Timestamp: m.At, Discriminator: m.Context}
}

// UniformMetric covers the Mental, Safety, Mindfulness, Symptom and
// Hygiene families, which spec.md §3.1 says are "treated uniformly": a
// family tag plus a generic value and discriminator is sufficient for
// their validation/dedup/upsert needs.
type UniformMetric struct {
	Base
	Fam           Family
	Discriminator string
	Value         float64
}

func (m UniformMetric) Family() Family { return m.Fam }
func (m UniformMetric) DedupKey() DedupKey {
	return DedupKey{UserID: m.User, Timestamp: m.At, Discriminator: m.Discriminator}
}

// NewBase constructs the embeddable common fields shared by every
// concrete metric struct.
func NewBase(userID uuid.UUID, at time.Time, device string, index int) Base {
	return Base{User: userID, At: at, Device: device, Index: index}
}
