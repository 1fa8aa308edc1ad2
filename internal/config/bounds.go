package config

// Range is a documented [min, max] validation bound for one metric.
type Range struct {
	Min float64
	Max float64
}

// BoundsConfig holds the VALIDATION_<METRIC>_<MIN|MAX> keys of spec.md
// §6.3, one Range per bounded metric. Sleep/Workout cross-field rules
// (start<end, component-duration tolerance) are not expressible as a
// single range and are checked directly in internal/validation.
type BoundsConfig struct {
	HeartRateBPM        Range `yaml:"heart_rate_bpm"`
	RestingHeartRateBPM Range `yaml:"resting_heart_rate_bpm"`
	Systolic            Range `yaml:"systolic"`
	Diastolic           Range `yaml:"diastolic"`
	SleepEfficiencyPct  Range `yaml:"sleep_efficiency_pct"`
	SleepToleranceMinutes float64 `yaml:"sleep_tolerance_minutes"`
	Steps               Range `yaml:"steps"`
	DistanceKM          Range `yaml:"distance_km"`
	Calories            Range `yaml:"calories"`
	WorkoutDurationHours Range `yaml:"workout_duration_hours"`
	Latitude            Range `yaml:"latitude"`
	Longitude           Range `yaml:"longitude"`
	BloodGlucoseMgDL    Range `yaml:"blood_glucose_mg_dl"`
	TemperatureCelsius  Range `yaml:"temperature_celsius"`
	RespiratoryRate     Range `yaml:"respiratory_rate"`
	SpO2Percent         Range `yaml:"spo2_percent"`
	NutritionCalories   Range `yaml:"nutrition_calories"`
	EnvironmentalValue  Range `yaml:"environmental_value"`
	AudioExposureDecibels Range `yaml:"audio_exposure_decibels"`
}

// DefaultBounds returns the documented defaults from spec.md §4.3.
func DefaultBounds() BoundsConfig {
	return BoundsConfig{
		HeartRateBPM:          Range{15, 300},
		RestingHeartRateBPM:   Range{15, 300},
		Systolic:              Range{50, 250},
		Diastolic:             Range{30, 150},
		SleepEfficiencyPct:    Range{0, 100},
		SleepToleranceMinutes: 5,
		Steps:                 Range{0, 200000},
		DistanceKM:            Range{0, 500},
		Calories:              Range{0, 20000},
		WorkoutDurationHours:  Range{0, 24},
		Latitude:              Range{-90, 90},
		Longitude:             Range{-180, 180},
		BloodGlucoseMgDL:      Range{20, 600},
		TemperatureCelsius:    Range{25, 45},
		RespiratoryRate:       Range{4, 60},
		SpO2Percent:           Range{50, 100},
		NutritionCalories:     Range{0, 10000},
		EnvironmentalValue:    Range{0, 1000},
		AudioExposureDecibels: Range{0, 180},
	}
}
