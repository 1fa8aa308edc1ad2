// Package planner is the Parameter-Budget Planner: a pure function from
// (family, record count, configuration) to a safe chunk size, the single
// guard between a misconfiguration and silent data loss (spec.md §4.1,
// §9 "Parameter-limit-aware chunking").
package planner

import (
	"errors"
	"math"

	"github.com/vitalpipe/ingest/internal/config"
	"github.com/vitalpipe/ingest/internal/ingesterrors"
	"github.com/vitalpipe/ingest/internal/model"
)

// MaxBindParameters is the backing store's per-statement parameter
// ceiling (the target engine's actual limit is 65,535).
const MaxBindParameters = 65535

// SafetyFraction must stay at or below 0.80 per invariant P1.
const SafetyFraction = 0.80

// PMax is the usable parameter budget after applying the safety
// fraction.
func PMax() int {
	return int(math.Floor(float64(MaxBindParameters) * SafetyFraction))
}

// ParamsPerRecord is the compile-time property of each family: the
// number of bind parameters one record contributes to a bulk-insert
// statement. This table is the single source of truth consulted by Plan
// (and through its ChunkPlan by the Upserter's defensive parameter-limit
// check) and by dispatch.RegisterAllFamilyHandlers at startup.
var ParamsPerRecord = map[model.Family]int{
	model.HeartRate:       6,
	model.BloodPressure:   5,
	model.Sleep:           9,
	model.Activity:        19,
	model.BodyMeasurement: 5,
	model.Temperature:     5,
	model.BloodGlucose:    5,
	model.Respiratory:     5,
	model.Nutrition:       5,
	model.Workout:         12,
	model.Menstrual:       4,
	model.Fertility:       5,
	model.Environmental:   5,
	model.AudioExposure:   5,
	model.Mental:          5,
	model.Safety:          5,
	model.Mindfulness:     5,
	model.Symptom:         5,
	model.Hygiene:         5,
}

// maxSafeChunk returns floor(PMax / paramsPerRecord), the largest chunk
// size that can never violate invariant P1 for the given family.
func maxSafeChunk(paramsPerRecord int) int {
	if paramsPerRecord <= 0 {
		return 0
	}
	return PMax() / paramsPerRecord
}

// Plan computes a ChunkPlan for family given available records. An
// optional per-family override (cfg.ChunkSizeOverride) may only decrease
// the safe size — ValidateStartup is responsible for rejecting overrides
// that would increase it past the safe ceiling.
func Plan(family model.Family, available int, cfg config.BatchConfig) (model.ChunkPlan, error) {
	paramsPerRecord, ok := ParamsPerRecord[family]
	if !ok {
		return model.ChunkPlan{}, &ingesterrors.UnsupportedFamilyError{Family: string(family)}
	}

	safe := maxSafeChunk(paramsPerRecord)
	chunkSize := safe
	if override, ok := cfg.ChunkSizeOverride[family]; ok && override > 0 {
		chunkSize = override
	}
	if chunkSize > available {
		chunkSize = available
	}
	if chunkSize <= 0 {
		chunkSize = 1
	}

	chunkCount := 0
	if available > 0 {
		chunkCount = int(math.Ceil(float64(available) / float64(chunkSize)))
	}

	return model.ChunkPlan{
		Family:          family,
		ParamsPerRecord: paramsPerRecord,
		ChunkSize:       chunkSize,
		ChunkCount:      chunkCount,
	}, nil
}

// ValidateStartup checks every configured chunk-size override against
// invariant P1 and every known family's default safe chunk size. It is
// the only guard between a misconfigured deploy and silent data loss: if
// it returns a non-nil error, the process must refuse to serve traffic.
func ValidateStartup(cfg config.BatchConfig) error {
	var errs []error
	for _, family := range model.AllFamilies() {
		paramsPerRecord, ok := ParamsPerRecord[family]
		if !ok {
			errs = append(errs, &ingesterrors.UnsupportedFamilyError{Family: string(family)})
			continue
		}

		safe := maxSafeChunk(paramsPerRecord)
		override, hasOverride := cfg.ChunkSizeOverride[family]
		if !hasOverride {
			continue
		}
		if override <= 0 || override*paramsPerRecord > PMax() {
			errs = append(errs, &ingesterrors.UnsafeChunkConfigError{
				Family:          string(family),
				ConfiguredChunk: override,
				ParamsPerRecord: paramsPerRecord,
				MaxSafeChunk:    safe,
			})
		}
	}

	if len(errs) == 0 {
		return nil
	}
	// errors.Join preserves every offending family's detail in one error
	// rather than reporting one family at a time.
	return errors.Join(errs...)
}
