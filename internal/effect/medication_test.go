package effect

import (
	"math"
	"testing"
	"time"

	"github.com/glycotrace/glycotrace/internal/models"
)

func testCourse(factor float64, dailyTimes ...string) models.MedicationCourse {
	return models.MedicationCourse{
		ID:           "course-1",
		MedicationID: "metformin",
		Factor:       factor,
		Schedule: models.MedicationSchedule{
			StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
			EndDate:    time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC).UnixMilli(),
			DailyTimes: dailyTimes,
		},
	}
}

func TestMedicationFactor_ConstantWhenNonDurationBased(t *testing.T) {
	course := testCourse(1.2, "08:00", "20:00")
	at := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	if got := MedicationFactor(course, nil, at); got != 1.2 {
		t.Errorf("Expected constant factor 1.2, got %f", got)
	}
}

func TestMedicationFactor_InactiveOutsideSchedule(t *testing.T) {
	course := testCourse(1.2, "08:00")
	before := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	after := time.Date(2027, 6, 1, 12, 0, 0, 0, time.UTC)

	if got := MedicationFactor(course, nil, before); got != 1.0 {
		t.Errorf("Expected neutral factor before schedule start, got %f", got)
	}
	if got := MedicationFactor(course, nil, after); got != 1.0 {
		t.Errorf("Expected neutral factor after schedule end, got %f", got)
	}
}

func TestMedicationFactor_DurationCurve(t *testing.T) {
	course := testCourse(1.4, "08:00")
	profile := &models.KineticProfile{
		OnsetHours:    1,
		PeakHours:     ptr(3),
		DurationHours: 12,
		Shape:         models.ShapeTriangular,
	}

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	dose := day.Add(8 * time.Hour)

	// Before onset: still neutral.
	if got := MedicationFactor(course, profile, dose.Add(30*time.Minute)); got != 1.0 {
		t.Errorf("Expected 1.0 before onset, got %f", got)
	}
	// Halfway through the rise.
	if got := MedicationFactor(course, profile, dose.Add(2*time.Hour)); math.Abs(got-1.2) > 1e-9 {
		t.Errorf("Expected 1.2 halfway through rise, got %f", got)
	}
	// Holding through the peak window (peak 3h, hold until 7.5h).
	if got := MedicationFactor(course, profile, dose.Add(5*time.Hour)); math.Abs(got-1.4) > 1e-9 {
		t.Errorf("Expected steady-state 1.4 during hold, got %f", got)
	}
	// Fully decayed by the duration.
	if got := MedicationFactor(course, profile, dose.Add(13*time.Hour)); got != 1.0 {
		t.Errorf("Expected 1.0 past duration, got %f", got)
	}
}

func TestMedicationFactor_ScansDailyTimesBackward(t *testing.T) {
	course := testCourse(1.4, "08:00", "20:00")
	profile := &models.KineticProfile{
		OnsetHours:    1,
		PeakHours:     ptr(3),
		DurationHours: 10,
		Shape:         models.ShapeTriangular,
	}

	// At 21:00 the most recent dose is 20:00, not 08:00: the curve is in
	// its pre-onset phase, not past its duration.
	at := time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)
	if got := MedicationFactor(course, profile, at); got != 1.0 {
		t.Errorf("Expected 1.0 one hour after the evening dose, got %f", got)
	}

	// At 22:00 the evening dose is halfway through its rise.
	at = time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC)
	if got := MedicationFactor(course, profile, at); math.Abs(got-1.2) > 1e-9 {
		t.Errorf("Expected 1.2 halfway through the evening rise, got %f", got)
	}

	// Early morning: the latest dose is yesterday's 20:00.
	at = time.Date(2026, 3, 15, 2, 0, 0, 0, time.UTC)
	if got := MedicationFactor(course, profile, at); math.Abs(got-1.4) > 1e-9 {
		t.Errorf("Expected steady-state from yesterday's dose, got %f", got)
	}
}

func TestCombinedMedicationMultiplier(t *testing.T) {
	a := testCourse(1.2)
	b := testCourse(1.5)
	b.ID = "course-2"
	b.MedicationID = "other"

	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	got := CombinedMedicationMultiplier([]models.MedicationCourse{a, b}, nil, at)
	if math.Abs(got-1.8) > 1e-9 {
		t.Errorf("Expected composed multiplier 1.8, got %f", got)
	}
}
