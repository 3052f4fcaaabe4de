package timeline

import (
	"time"

	"github.com/glycotrace/glycotrace/internal/effect"
	"github.com/glycotrace/glycotrace/internal/kinetics"
	"github.com/glycotrace/glycotrace/internal/models"
	"github.com/glycotrace/glycotrace/pkg/logger"
)

// CurvePoint is one sample of a single-source effect curve, used by
// dose/meal detail views.
type CurvePoint struct {
	Timestamp int64   `json:"timestamp"` // Unix timestamp in milliseconds
	Magnitude float64 `json:"magnitude"`
}

// DosePreview samples a single dose's action curve at 5-minute intervals
// over its full action window.
func DosePreview(dose models.InsulinDose, constants *models.PatientConstants, log logger.Logger) []CurvePoint {
	if constants == nil {
		constants = models.NewPatientConstants()
	}
	resolver := kinetics.NewResolver(constants.MedicationProfiles, log)
	profile, _ := resolver.Resolve(dose.MedicationID)

	return sampleCurve(dose.Time(), profile.DurationHours, func(elapsedHours float64) float64 {
		return effect.InsulinActivity(dose.Units, profile, elapsedHours)
	})
}

// MealPreview samples a single meal's absorption curve at 5-minute
// intervals over its class-adjusted duration.
func MealPreview(meal models.MealRecord, constants *models.PatientConstants, log logger.Logger) []CurvePoint {
	if constants == nil {
		constants = models.NewPatientConstants()
	}
	resolver := kinetics.NewResolver(constants.MedicationProfiles, log)
	profile, _ := resolver.Resolve("meal")
	duration := effect.MealDuration(meal, profile, constants)

	return sampleCurve(meal.Time(), duration, func(elapsedHours float64) float64 {
		return effect.MealAbsorption(meal, profile, constants, elapsedHours)
	})
}

func sampleCurve(start time.Time, durationHours float64, f func(elapsedHours float64) float64) []CurvePoint {
	if durationHours <= 0 {
		return nil
	}
	step := models.PreviewIntervalMinutes
	steps := int(durationHours*60)/step + 1

	points := make([]CurvePoint, 0, steps)
	for i := 0; i <= steps; i++ {
		elapsedMinutes := float64(i * step)
		if elapsedMinutes > durationHours*60 {
			break
		}
		at := start.Add(time.Duration(i*step) * time.Minute)
		points = append(points, CurvePoint{
			Timestamp: at.UnixMilli(),
			Magnitude: f(elapsedMinutes / 60),
		})
	}
	return points
}
