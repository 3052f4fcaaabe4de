package effect

import (
	"math"
	"time"

	"github.com/glycotrace/glycotrace/internal/kinetics"
	"github.com/glycotrace/glycotrace/internal/models"
)

// Breakdown holds an aggregated effect total with its per-source split.
// Totals are never negative.
type Breakdown struct {
	Total float64            `json:"total"`
	ByID  map[string]float64 `json:"byId,omitempty"`
}

// ActiveInsulin sums the action magnitudes of every dose active at the
// given time, the units-on-board figure. Doses outside their action
// window contribute nothing and are excluded from the per-source split.
func ActiveInsulin(doses []models.InsulinDose, resolver *kinetics.Resolver, at time.Time) Breakdown {
	b := Breakdown{ByID: make(map[string]float64)}

	for i := range doses {
		d := &doses[i]
		profile, _ := resolver.Resolve(d.MedicationID)
		elapsed := at.Sub(d.Time()).Hours()
		mag := InsulinActivity(d.Units, profile, elapsed)
		if mag > 0 {
			b.ByID[d.ID] = mag
			b.Total += mag
		}
	}

	b.Total = math.Max(0, b.Total)
	return b
}

// ActiveCarbs sums the carbohydrate-equivalent magnitudes of every meal
// active at the given time. The base meal profile comes from the resolver
// (overridable per patient under the "meal" key); class adjustment happens
// inside the curve.
func ActiveCarbs(meals []models.MealRecord, resolver *kinetics.Resolver, constants *models.PatientConstants, at time.Time) Breakdown {
	b := Breakdown{ByID: make(map[string]float64)}

	for i := range meals {
		m := &meals[i]
		profile, _ := resolver.Resolve("meal")
		elapsed := at.Sub(m.Time()).Hours()
		mag := MealAbsorption(*m, profile, constants, elapsed)
		if mag > 0 {
			b.ByID[m.ID] = mag
			b.Total += mag
		}
	}

	b.Total = math.Max(0, b.Total)
	return b
}
