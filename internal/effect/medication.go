package effect

import (
	"strconv"
	"strings"
	"time"

	"github.com/glycotrace/glycotrace/internal/models"
)

// MedicationFactor returns the multiplier a chronic medication applies at
// now. Outside the course's date range the factor is 1.0.
//
// Duration-based medications (those with a configured kinetic profile,
// passed as non-nil) interpolate from 1.0 to the steady-state factor
// across onset to peak, hold through the peak window, and decay back to
// 1.0 by the duration, measured from the most recent daily dose time.
// Non-duration-based medications contribute the constant factor whenever
// the schedule is active, regardless of elapsed time.
func MedicationFactor(course models.MedicationCourse, profile *models.KineticProfile, now time.Time) float64 {
	if !course.Schedule.Active(now) {
		return 1.0
	}
	if profile == nil {
		return course.Factor
	}

	lastDose, ok := lastDailyDose(course.Schedule.DailyTimes, now)
	if !ok {
		// No parsable dose times: treat as always at steady state.
		return course.Factor
	}

	elapsed := now.Sub(lastDose).Hours()
	onset := profile.OnsetHours
	peak := profile.Peak()
	dur := profile.DurationHours

	// The factor holds at steady state from the peak until halfway to the
	// end of the action window, then decays back to neutral.
	holdEnd := peak + (dur-peak)/2

	switch {
	case elapsed < onset:
		return 1.0
	case elapsed < peak:
		if peak == onset {
			return course.Factor
		}
		frac := (elapsed - onset) / (peak - onset)
		return 1.0 + (course.Factor-1.0)*frac
	case elapsed <= holdEnd:
		return course.Factor
	case elapsed < dur:
		frac := (elapsed - holdEnd) / (dur - holdEnd)
		return course.Factor + (1.0-course.Factor)*frac
	default:
		return 1.0
	}
}

// CombinedMedicationMultiplier composes the factors of every medication
// course supplied, looking up duration-based profiles in the keyed set.
func CombinedMedicationMultiplier(courses []models.MedicationCourse, profiles map[string]models.KineticProfile, now time.Time) float64 {
	m := 1.0
	for i := range courses {
		var profile *models.KineticProfile
		if p, ok := profiles[courses[i].MedicationID]; ok && p.Valid() {
			profile = &p
		}
		m *= MedicationFactor(courses[i], profile, now)
	}
	return m
}

// lastDailyDose scans dailyTimes backward from now and returns the latest
// scheduled dose that has already occurred, looking back up to one day.
func lastDailyDose(dailyTimes []string, now time.Time) (time.Time, bool) {
	best := time.Time{}
	found := false

	for dayOffset := 0; dayOffset <= 1; dayOffset++ {
		day := now.AddDate(0, 0, -dayOffset)
		for _, hhmm := range dailyTimes {
			h, m, ok := parseClock(hhmm)
			if !ok {
				continue
			}
			t := time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, now.Location())
			if t.After(now) {
				continue
			}
			if !found || t.After(best) {
				best = t
				found = true
			}
		}
		if found {
			break
		}
	}

	return best, found
}

func parseClock(s string) (hour, minute int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
