// Package effect implements the single-source effect curve generators and
// the active-effect aggregator. Every generator is a pure function of its
// inputs and returns zero outside [0, duration]; that window bound is a
// hard invariant, not a convenience default.
package effect

import "github.com/glycotrace/glycotrace/internal/models"

// InsulinActivity returns the instantaneous action magnitude, in units, of
// a dose at elapsedHours after administration.
//
// Triangular profiles rise to the full dose at the peak and fall linearly
// to zero at the duration, with an onset-weighted sub-phase before onset.
// Peakless profiles (tagged explicitly) ramp to half the dose by onset and
// decay linearly to zero at the duration.
func InsulinActivity(units float64, profile models.KineticProfile, elapsedHours float64) float64 {
	if units <= 0 || elapsedHours < 0 || elapsedHours > profile.DurationHours {
		return 0
	}

	if profile.Shape == models.ShapePeakless {
		return peaklessActivity(units, profile, elapsedHours)
	}
	return triangularActivity(units, profile, elapsedHours)
}

func triangularActivity(units float64, profile models.KineticProfile, elapsed float64) float64 {
	onset := profile.OnsetHours
	peak := profile.Peak()
	dur := profile.DurationHours

	if peak <= 0 {
		// Degenerate profile: all action at t=0, linear decay only.
		if dur == 0 {
			return 0
		}
		return units * (dur - elapsed) / dur
	}

	switch {
	case elapsed < onset:
		// Onset sub-phase: scaled so the curve meets the main rise at onset.
		return units * (elapsed / onset) * (onset / peak)
	case elapsed <= peak:
		return units * (elapsed / peak)
	default:
		if dur == peak {
			return 0
		}
		return units * (dur - elapsed) / (dur - peak)
	}
}

func peaklessActivity(units float64, profile models.KineticProfile, elapsed float64) float64 {
	onset := profile.OnsetHours
	dur := profile.DurationHours

	if onset <= 0 {
		return units * 0.5 * (dur - elapsed) / dur
	}
	if elapsed <= onset {
		return units * 0.5 * (elapsed / onset)
	}
	return units * 0.5 * (dur - elapsed) / (dur - onset)
}
