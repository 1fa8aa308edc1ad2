// Package reconcile implements the Status Reconciler (spec.md §4.7): the
// single point of truth that turns a BatchResult into a truthful terminal
// ProcessingStatus, replacing any "no errors => success" shortcut with
// explicit expected/actual/invalid/duplicate accounting.
package reconcile

import (
	"github.com/vitalpipe/ingest/internal/config"
	"github.com/vitalpipe/ingest/internal/model"
)

// Reconcile computes the terminal status label and the metadata written
// back onto the RawIngestion row.
func Reconcile(expected int, result model.BatchResult, thresholds config.ReconcileConfig) (model.ProcessingStatus, model.ReconcileMetadata) {
	actual := result.TotalProcessed
	invalid := 0
	duplicatesRemoved := 0
	paramViolations := 0
	permanentChunkFailures := 0

	for _, outcome := range result.PerFamily {
		invalid += outcome.Invalid
		duplicatesRemoved += outcome.DuplicatesRemoved
		for _, ce := range outcome.FailedChunks {
			if ce.Permanent {
				permanentChunkFailures++
			}
		}
	}
	for _, e := range result.Errors {
		// unsupported_family is a system-integrity error, treated as
		// ParameterLimit-equivalent (ingesterrors.UnsupportedFamilyError
		// doc comment): it must also force the terminal status to error.
		if e.Kind == "parameter_limit" || e.Kind == "unsupported_family" {
			paramViolations++
		}
	}

	lossPercentage := 0.0
	if expected > 0 {
		lossPercentage = float64(expected-actual) / float64(expected) * 100
	}

	meta := model.ReconcileMetadata{
		Expected:           expected,
		Actual:             actual,
		Invalid:            invalid,
		DuplicatesRemoved:  duplicatesRemoved,
		LossPercentage:     lossPercentage,
		ParamViolations:    paramViolations,
		PerFamilyBreakdown: result.PerFamily,
	}

	silentFailure := isSilentFailure(expected, actual, invalid, duplicatesRemoved, permanentChunkFailures, thresholds)

	switch {
	case paramViolations > 0:
		return model.StatusError, meta
	case expected > 0 && actual == 0:
		return model.StatusError, meta
	case lossPercentage > thresholds.DataLossErrorPct:
		return model.StatusError, meta
	case silentFailure:
		return model.StatusPartialSuccess, meta
	case lossPercentage > thresholds.DataLossWarnPct:
		return model.StatusPartialSuccess, meta
	case invalid > 0 || permanentChunkFailures > 0:
		return model.StatusPartialSuccess, meta
	default:
		return model.StatusProcessed, meta
	}
}

// isSilentFailure reports two of the three signals spec.md §4.7 lists as
// "each triggers at least partial_success": an unexplained accounting
// gap beyond the absolute tolerance, or any permanent chunk failure. The
// third, a chunk plan over the parameter ceiling, arrives as a
// "parameter_limit" error entry and is counted in Reconcile itself.
func isSilentFailure(expected, actual, invalid, duplicatesRemoved, permanentChunkFailures int, thresholds config.ReconcileConfig) bool {
	if permanentChunkFailures > 0 {
		return true
	}
	explained := invalid + duplicatesRemoved
	gap := expected - actual - explained
	if gap > thresholds.SilentFailureAbsoluteTolerance {
		return true
	}
	return false
}
