// Package models contains the data structures shared by the timeline engine
package models

import (
	"math"
	"time"
)

// ReadingSource identifies how a glucose reading was obtained
type ReadingSource string

const (
	SourceManual ReadingSource = "manual"
	SourceSensor ReadingSource = "sensor"
)

// GlucoseReading represents a single measured glucose value.
// Readings are ground truth: the engine never mutates or overwrites them.
type GlucoseReading struct {
	ID        string        `json:"id"`
	Timestamp int64         `json:"timestamp"` // Unix timestamp in milliseconds
	Value     float64       `json:"value"`     // mg/dL
	Source    ReadingSource `json:"source"`
	IsActual  bool          `json:"isActual"`
}

// Time returns the time of the reading
func (r *GlucoseReading) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// ValueMmolL returns the glucose value in mmol/L
func (r *GlucoseReading) ValueMmolL() float64 {
	return ToMmol(r.Value)
}

// Valid reports whether the reading can enter a computation.
// Readings with non-positive timestamps or non-finite values are dropped
// rather than propagated as errors.
func (r *GlucoseReading) Valid() bool {
	return r.Timestamp > 0 && isFiniteMagnitude(r.Value)
}

// AbsorptionClass describes how quickly a meal is absorbed
type AbsorptionClass string

const (
	AbsorptionVerySlow AbsorptionClass = "very_slow"
	AbsorptionSlow     AbsorptionClass = "slow"
	AbsorptionMedium   AbsorptionClass = "medium"
	AbsorptionFast     AbsorptionClass = "fast"
	AbsorptionVeryFast AbsorptionClass = "very_fast"
)

// InsulinDose represents a single administered insulin dose
type InsulinDose struct {
	ID             string  `json:"id"`
	MedicationID   string  `json:"medicationId"`
	Units          float64 `json:"units"`
	AdministeredAt int64   `json:"administeredAt"` // Unix timestamp in milliseconds
	Notes          string  `json:"notes,omitempty"`
}

// Time returns the administration time of the dose
func (d *InsulinDose) Time() time.Time {
	return time.UnixMilli(d.AdministeredAt)
}

// Valid reports whether the dose can enter a computation
func (d *InsulinDose) Valid() bool {
	return d.AdministeredAt > 0 && isFiniteMagnitude(d.Units) && d.Units > 0
}

// MealRecord represents a logged meal with its nutrition breakdown
type MealRecord struct {
	ID              string          `json:"id"`
	CarbsGrams      float64         `json:"carbs"`
	ProteinGrams    float64         `json:"protein"`
	FatGrams        float64         `json:"fat"`
	AbsorptionClass AbsorptionClass `json:"absorptionType"`
	OccurredAt      int64           `json:"occurredAt"` // Unix timestamp in milliseconds
}

// Time returns the time the meal occurred
func (m *MealRecord) Time() time.Time {
	return time.UnixMilli(m.OccurredAt)
}

// Valid reports whether the meal can enter a computation
func (m *MealRecord) Valid() bool {
	return m.OccurredAt > 0 &&
		isFiniteMagnitude(m.CarbsGrams) &&
		isFiniteMagnitude(m.ProteinGrams) &&
		isFiniteMagnitude(m.FatGrams)
}

// ActivityRecord represents a period of physical activity.
// Level is signed: positive levels increase insulin sensitivity, negative
// levels (rare, e.g. illness annotations) decrease it.
type ActivityRecord struct {
	ID      string `json:"id"`
	Level   int    `json:"level"`
	StartAt int64  `json:"startAt"` // Unix timestamp in milliseconds
	EndAt   int64  `json:"endAt"`   // Unix timestamp in milliseconds
}

// Start returns the start time of the activity
func (a *ActivityRecord) Start() time.Time {
	return time.UnixMilli(a.StartAt)
}

// End returns the end time of the activity
func (a *ActivityRecord) End() time.Time {
	return time.UnixMilli(a.EndAt)
}

// DurationHours returns the length of the activity in hours
func (a *ActivityRecord) DurationHours() float64 {
	return a.End().Sub(a.Start()).Hours()
}

// Valid reports whether the activity can enter a computation
func (a *ActivityRecord) Valid() bool {
	return a.StartAt > 0 && a.EndAt > 0 && a.EndAt > a.StartAt
}

// MedicationSchedule describes when a chronic medication course is active
type MedicationSchedule struct {
	StartDate  int64    `json:"startDate"` // Unix timestamp in milliseconds
	EndDate    int64    `json:"endDate"`   // Unix timestamp in milliseconds, 0 = open-ended
	DailyTimes []string `json:"dailyTimes"` // "HH:MM", local clock times
}

// Active reports whether the schedule covers the given time
func (s *MedicationSchedule) Active(at time.Time) bool {
	if s.StartDate > 0 && at.Before(time.UnixMilli(s.StartDate)) {
		return false
	}
	if s.EndDate > 0 && at.After(time.UnixMilli(s.EndDate)) {
		return false
	}
	return true
}

// MedicationCourse represents a chronic medication taken on a schedule.
// Factor is the steady-state multiplier the medication applies to insulin
// sensitivity (1.0 = no effect).
type MedicationCourse struct {
	ID           string             `json:"id"`
	MedicationID string             `json:"medicationId"`
	Factor       float64            `json:"factor"`
	Schedule     MedicationSchedule `json:"schedule"`
}

// Valid reports whether the course can enter a computation
func (c *MedicationCourse) Valid() bool {
	return isFiniteMagnitude(c.Factor) && c.Factor > 0
}

// EffectSources bundles every effect-source record supplied for one
// engine invocation. All slices are read-only inputs.
type EffectSources struct {
	Doses       []InsulinDose      `json:"doses"`
	Meals       []MealRecord       `json:"meals"`
	Activities  []ActivityRecord   `json:"activities"`
	Medications []MedicationCourse `json:"medications"`
}

// FilterReadings returns the readings usable for computation and the
// number of records dropped. A single bad record never blanks a timeline.
func FilterReadings(readings []GlucoseReading) ([]GlucoseReading, int) {
	kept := make([]GlucoseReading, 0, len(readings))
	for _, r := range readings {
		if r.Valid() {
			kept = append(kept, r)
		}
	}
	return kept, len(readings) - len(kept)
}

// FilterSources returns a copy of sources with malformed records removed
// and the total number of records dropped.
func FilterSources(sources EffectSources) (EffectSources, int) {
	dropped := 0

	out := EffectSources{
		Doses:       make([]InsulinDose, 0, len(sources.Doses)),
		Meals:       make([]MealRecord, 0, len(sources.Meals)),
		Activities:  make([]ActivityRecord, 0, len(sources.Activities)),
		Medications: make([]MedicationCourse, 0, len(sources.Medications)),
	}

	for _, d := range sources.Doses {
		if d.Valid() {
			out.Doses = append(out.Doses, d)
		} else {
			dropped++
		}
	}
	for _, m := range sources.Meals {
		if m.Valid() {
			out.Meals = append(out.Meals, m)
		} else {
			dropped++
		}
	}
	for _, a := range sources.Activities {
		if a.Valid() {
			out.Activities = append(out.Activities, a)
		} else {
			dropped++
		}
	}
	for _, c := range sources.Medications {
		if c.Valid() {
			out.Medications = append(out.Medications, c)
		} else {
			dropped++
		}
	}

	return out, dropped
}

func isFiniteMagnitude(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// ToMmol converts a mg/dL value to mmol/L
func ToMmol(mgdl float64) float64 {
	return mgdl / 18.0182
}

// ToMgdl converts a mmol/L value to mg/dL
func ToMgdl(mmol float64) float64 {
	return mmol * 18.0182
}
