package effect

import (
	"math"
	"time"

	"github.com/glycotrace/glycotrace/internal/models"
)

// ActivityIntensity returns the instantaneous intensity of an activity in
// [0, 1]. While the activity runs, intensity ramps from 0.2 to 1.0 with
// the elapsed fraction; afterwards it decays linearly to zero over an
// effect tail derived from the activity's duration and level, capped by
// the configured maximum.
func ActivityIntensity(a models.ActivityRecord, coeffs models.ActivityCoefficients, now time.Time) float64 {
	start := a.Start()
	end := a.End()

	if now.Before(start) {
		return 0
	}

	if !now.After(end) {
		total := end.Sub(start).Minutes()
		if total <= 0 {
			return 0
		}
		frac := now.Sub(start).Minutes() / total
		return 0.2 + 0.8*frac
	}

	tail := activityTailHours(a, coeffs)
	if tail <= 0 {
		return 0
	}
	elapsed := now.Sub(end).Hours()
	if elapsed >= tail {
		return 0
	}
	return 1 - elapsed/tail
}

// ActivityMultiplier returns the signed multiplier an activity applies to
// insulin sensitivity, relative to 1.0. Positive levels raise sensitivity,
// negative levels lower it. The result never goes below zero.
func ActivityMultiplier(a models.ActivityRecord, coeffs models.ActivityCoefficients, now time.Time) float64 {
	intensity := ActivityIntensity(a, coeffs, now)
	if intensity == 0 {
		return 1.0
	}
	m := 1.0 + float64(a.Level)*coeffs.ImpactPerLevel*intensity
	return math.Max(0, m)
}

// CombinedActivityMultiplier composes the multipliers of every activity
// active at now.
func CombinedActivityMultiplier(activities []models.ActivityRecord, coeffs models.ActivityCoefficients, now time.Time) float64 {
	m := 1.0
	for i := range activities {
		m *= ActivityMultiplier(activities[i], coeffs, now)
	}
	return m
}

func activityTailHours(a models.ActivityRecord, coeffs models.ActivityCoefficients) float64 {
	level := math.Abs(float64(a.Level))
	tail := a.DurationHours() + coeffs.TailHoursPerLevel*level
	if coeffs.MaxTailHours > 0 && tail > coeffs.MaxTailHours {
		tail = coeffs.MaxTailHours
	}
	return tail
}
