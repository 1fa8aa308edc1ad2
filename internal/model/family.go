// Package model defines the domain types shared across the ingestion
// pipeline: the metric family sum type, the durable raw-ingestion record,
// and the transient descriptors the pipeline stages pass between each
// other.
package model

// Family is a closed enumeration of the metric families the core knows
// how to validate, deduplicate and persist. Adding a family requires a
// new constant here and in AllFamilies, an entry in
// planner.ParamsPerRecord, and an entry in upsert.Tables; the last two are
// checked at startup by dispatch.RegisterAllFamilyHandlers.
type Family string

const (
	HeartRate        Family = "heart_rate"
	BloodPressure    Family = "blood_pressure"
	Sleep            Family = "sleep"
	Activity         Family = "activity"
	BodyMeasurement  Family = "body_measurement"
	Temperature      Family = "temperature"
	BloodGlucose     Family = "blood_glucose"
	Respiratory      Family = "respiratory"
	Nutrition        Family = "nutrition"
	Workout          Family = "workout"
	Menstrual        Family = "menstrual"
	Fertility        Family = "fertility"
	Environmental    Family = "environmental"
	AudioExposure    Family = "audio_exposure"
	Mental           Family = "mental"
	Safety           Family = "safety"
	Mindfulness      Family = "mindfulness"
	Symptom          Family = "symptom"
	Hygiene          Family = "hygiene"
)

// AllFamilies returns every family the core is aware of. Used at startup
// to validate that every family has a registered handler and a planner
// entry, so an unhandled family fails the build/boot rather than being
// silently dropped at request time.
func AllFamilies() []Family {
	return []Family{
		HeartRate, BloodPressure, Sleep, Activity, BodyMeasurement,
		Temperature, BloodGlucose, Respiratory, Nutrition, Workout,
		Menstrual, Fertility, Environmental, AudioExposure,
		Mental, Safety, Mindfulness, Symptom, Hygiene,
	}
}

func (f Family) String() string { return string(f) }

// Valid reports whether f is a recognized family.
func (f Family) Valid() bool {
	for _, known := range AllFamilies() {
		if f == known {
			return true
		}
	}
	return false
}
