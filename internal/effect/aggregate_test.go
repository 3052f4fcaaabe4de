package effect

import (
	"math"
	"testing"
	"time"

	"github.com/glycotrace/glycotrace/internal/kinetics"
	"github.com/glycotrace/glycotrace/internal/models"
	"github.com/glycotrace/glycotrace/pkg/logger"
)

func TestActiveInsulin_SumsActiveDoses(t *testing.T) {
	resolver := kinetics.NewResolver(nil, logger.Nop())
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	doses := []models.InsulinDose{
		{
			// Rapid dose exactly at its peak (1.25h): full magnitude.
			ID:             "dose-peak",
			MedicationID:   "rapid",
			Units:          4,
			AdministeredAt: at.Add(-75 * time.Minute).UnixMilli(),
		},
		{
			// Expired dose: rapid duration is 4h.
			ID:             "dose-expired",
			MedicationID:   "rapid",
			Units:          6,
			AdministeredAt: at.Add(-5 * time.Hour).UnixMilli(),
		},
	}

	b := ActiveInsulin(doses, resolver, at)

	if math.Abs(b.Total-4) > 1e-9 {
		t.Errorf("Expected total 4 units active, got %f", b.Total)
	}
	if _, ok := b.ByID["dose-expired"]; ok {
		t.Error("Expected expired dose to be excluded from the per-source split")
	}
	if got := b.ByID["dose-peak"]; math.Abs(got-4) > 1e-9 {
		t.Errorf("Expected dose-peak contribution 4, got %f", got)
	}
}

func TestActiveInsulin_NoDoses(t *testing.T) {
	resolver := kinetics.NewResolver(nil, logger.Nop())
	b := ActiveInsulin(nil, resolver, time.Now())

	if b.Total != 0 {
		t.Errorf("Expected zero total for empty input, got %f", b.Total)
	}
	if len(b.ByID) != 0 {
		t.Errorf("Expected empty per-source split, got %v", b.ByID)
	}
}

func TestActiveInsulin_UnknownTypeUsesDefault(t *testing.T) {
	resolver := kinetics.NewResolver(nil, logger.Nop())
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	doses := []models.InsulinDose{{
		// Default profile peaks at 2h.
		ID:             "dose-unknown",
		MedicationID:   "mystery",
		Units:          3,
		AdministeredAt: at.Add(-2 * time.Hour).UnixMilli(),
	}}

	b := ActiveInsulin(doses, resolver, at)
	if math.Abs(b.Total-3) > 1e-9 {
		t.Errorf("Expected fallback profile to yield 3 units at its peak, got %f", b.Total)
	}
	if got := resolver.Degraded(); len(got) != 1 || got[0] != "mystery" {
		t.Errorf("Expected resolver to record the degraded type, got %v", got)
	}
}

func TestActiveCarbs_SumsActiveMeals(t *testing.T) {
	resolver := kinetics.NewResolver(nil, logger.Nop())
	constants := models.NewPatientConstants()
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	meals := []models.MealRecord{
		{
			// Medium meal exactly at the built-in 1h peak: full carb equivalent.
			ID:              "meal-peak",
			CarbsGrams:      50,
			AbsorptionClass: models.AbsorptionMedium,
			OccurredAt:      at.Add(-1 * time.Hour).UnixMilli(),
		},
		{
			// Finished absorbing: medium duration is 3h.
			ID:              "meal-done",
			CarbsGrams:      80,
			AbsorptionClass: models.AbsorptionMedium,
			OccurredAt:      at.Add(-4 * time.Hour).UnixMilli(),
		},
	}

	b := ActiveCarbs(meals, resolver, constants, at)

	if math.Abs(b.Total-50) > 1e-9 {
		t.Errorf("Expected total 50 g active, got %f", b.Total)
	}
	if _, ok := b.ByID["meal-done"]; ok {
		t.Error("Expected finished meal to be excluded from the per-source split")
	}
}

func TestActiveCarbs_ProteinAndFatWeighted(t *testing.T) {
	resolver := kinetics.NewResolver(nil, logger.Nop())
	constants := models.NewPatientConstants()
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	meals := []models.MealRecord{{
		ID:              "meal-mixed",
		CarbsGrams:      30,
		ProteinGrams:    20, // weighted 0.5 -> 10
		FatGrams:        10, // weighted 0.2 -> 2
		AbsorptionClass: models.AbsorptionMedium,
		OccurredAt:      at.Add(-1 * time.Hour).UnixMilli(),
	}}

	b := ActiveCarbs(meals, resolver, constants, at)
	if math.Abs(b.Total-42) > 1e-9 {
		t.Errorf("Expected carb equivalent 42 at peak, got %f", b.Total)
	}
}
