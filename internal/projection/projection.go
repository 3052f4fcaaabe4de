// Package projection implements the glucose projection model: an additive
// combination of baseline drift toward target, carbohydrate impact, and
// insulin impact. It is intentionally linear for tractability and is not
// a clinical predictor.
package projection

import (
	"math"

	"github.com/glycotrace/glycotrace/internal/models"
)

// SafetyFloor is the minimum glucose value the model will ever produce
// (mg/dL). The clamp is a correctness requirement: composed insulin
// effects must not project physiologically impossible values.
const SafetyFloor = 40.0

// Baseline returns the natural glucose value elapsedMinutes after a
// baseline reading, absent any effect sources: an exponential approach
// from the baseline value toward the target over the stabilization window.
func Baseline(baselineValue, elapsedMinutes float64, constants *models.PatientConstants) float64 {
	window := constants.StabilizationHours * 60
	if window <= 0 {
		return constants.TargetGlucose
	}
	decay := math.Exp(-3 * elapsedMinutes / window)
	return constants.TargetGlucose + (baselineValue-constants.TargetGlucose)*decay
}

// Project folds the aggregated effects into a single glucose estimate:
// the natural baseline, plus carbohydrate-equivalent impact, minus
// insulin impact, clamped to the safety floor.
func Project(baselineValue, elapsedMinutes float64, constants *models.PatientConstants, activeInsulin, activeCarbEquivalent float64) float64 {
	natural := Baseline(baselineValue, elapsedMinutes, constants)

	value := natural +
		activeCarbEquivalent*constants.CarbToBGFactor -
		activeInsulin*constants.InsulinSensitivityFactor

	return math.Max(SafetyFloor, value)
}

// NetEffect returns the combined effect contribution in mg/dL relative to
// the natural baseline.
func NetEffect(constants *models.PatientConstants, activeInsulin, activeCarbEquivalent float64) float64 {
	return activeCarbEquivalent*constants.CarbToBGFactor -
		activeInsulin*constants.InsulinSensitivityFactor
}
