package effect

import (
	"math"

	"github.com/glycotrace/glycotrace/internal/models"
)

// CarbEquivalent folds carbs, protein, and fat into a single scalar using
// the patient's weighting factors.
func CarbEquivalent(meal models.MealRecord, constants *models.PatientConstants) float64 {
	return meal.CarbsGrams +
		meal.ProteinGrams*constants.ProteinFactor +
		meal.FatGrams*constants.FatFactor
}

// MealAbsorption returns the instantaneous carbohydrate-equivalent
// magnitude, in grams, of a meal at elapsedHours after it occurred.
//
// The absorption class scales both the peak time and the total duration
// of the base profile and shapes the curve: fast absorption rises convex
// and decays steeply, slow absorption rises concave and carries a longer
// tail. The curve is continuous at the peak and reaches exactly zero at
// the adjusted duration.
func MealAbsorption(meal models.MealRecord, profile models.KineticProfile, constants *models.PatientConstants, elapsedHours float64) float64 {
	carbEq := CarbEquivalent(meal, constants)
	if carbEq <= 0 {
		return 0
	}

	mod := constants.AbsorptionModifier(meal.AbsorptionClass)
	peak := profile.Peak() * mod
	dur := profile.DurationHours * mod

	if elapsedHours < 0 || elapsedHours > dur || dur <= 0 {
		return 0
	}

	// Exponent above 1 for fast classes (convex rise, steep decay),
	// below 1 for slow ones (concave rise, long tail).
	shape := 1.0 / mod

	if elapsedHours <= peak {
		if peak <= 0 {
			return carbEq
		}
		return carbEq * math.Pow(elapsedHours/peak, shape)
	}
	if dur == peak {
		return 0
	}
	return carbEq * math.Pow((dur-elapsedHours)/(dur-peak), shape)
}

// MealDuration returns the class-adjusted absorption duration in hours
func MealDuration(meal models.MealRecord, profile models.KineticProfile, constants *models.PatientConstants) float64 {
	return profile.DurationHours * constants.AbsorptionModifier(meal.AbsorptionClass)
}
