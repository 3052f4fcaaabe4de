package timeline

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/glycotrace/glycotrace/internal/models"
	"github.com/glycotrace/glycotrace/pkg/logger"
)

func testWindow(start, end time.Time) models.TimeWindow {
	return models.TimeWindow{
		Start:           start.UnixMilli(),
		End:             end.UnixMilli(),
		IntervalMinutes: 15,
	}
}

func reading(id string, at time.Time, value float64) models.GlucoseReading {
	return models.GlucoseReading{
		ID:        id,
		Timestamp: at.UnixMilli(),
		Value:     value,
		Source:    models.SourceSensor,
		IsActual:  true,
	}
}

func pointAt(t *testing.T, tl models.Timeline, at time.Time) models.TimelinePoint {
	t.Helper()
	for _, p := range tl.Points {
		if p.Timestamp == at.UnixMilli() {
			return p
		}
	}
	t.Fatalf("No point at %s in timeline of %d points", at, len(tl.Points))
	return models.TimelinePoint{}
}

func TestCompute_InvalidWindow(t *testing.T) {
	engine := NewEngine(DefaultOptions(), logger.Nop())
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	_, err := engine.Compute(now, testWindow(now, now.Add(-time.Hour)), nil, models.EffectSources{}, nil)
	if !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("Expected configuration error for inverted window, got %v", err)
	}

	bad := testWindow(now.Add(-time.Hour), now)
	bad.IntervalMinutes = 0
	_, err = engine.Compute(now, bad, nil, models.EffectSources{}, nil)
	if !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("Expected configuration error for zero interval, got %v", err)
	}
}

func TestCompute_EmptyInputsWithoutGapFill(t *testing.T) {
	opts := DefaultOptions()
	opts.GapFill = false
	engine := NewEngine(opts, logger.Nop())
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tl, err := engine.Compute(now, testWindow(now.Add(-time.Hour), now), nil, models.EffectSources{}, nil)
	if err != nil {
		t.Fatalf("Expected no error for empty inputs, got %v", err)
	}
	if !tl.Empty() {
		t.Errorf("Expected empty timeline, got %d points", len(tl.Points))
	}
}

func TestCompute_SingleReadingRoundTrip(t *testing.T) {
	opts := DefaultOptions()
	opts.GapFill = false
	engine := NewEngine(opts, logger.Nop())

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	at := now.Add(-30 * time.Minute)
	readings := []models.GlucoseReading{reading("r1", at, 142)}

	tl, err := engine.Compute(now, testWindow(now.Add(-time.Hour), now), readings, models.EffectSources{}, nil)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(tl.Points) != 1 {
		t.Fatalf("Expected exactly the input reading back, got %d points", len(tl.Points))
	}
	p := tl.Points[0]
	if p.Timestamp != at.UnixMilli() || p.Value != 142 || p.Classification != models.PointActual {
		t.Errorf("Expected the reading unchanged, got %+v", p)
	}
}

func TestCompute_GapConnection(t *testing.T) {
	opts := DefaultOptions()
	opts.GapFill = false
	engine := NewEngine(opts, logger.Nop())

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)

	readings := []models.GlucoseReading{
		reading("r1", start, 110),
		reading("r2", start.Add(15*time.Minute), 115), // within 20 min
		reading("r3", start.Add(40*time.Minute), 120), // 25 min gap
	}

	tl, err := engine.Compute(now, testWindow(start, now), readings, models.EffectSources{}, nil)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(tl.Points) != 3 {
		t.Fatalf("Expected 3 actual points, got %d", len(tl.Points))
	}
	if tl.Points[0].ConnectedToPrevious {
		t.Error("Expected the first point to start a segment")
	}
	if !tl.Points[1].ConnectedToPrevious {
		t.Error("Expected a 15 min gap to stay connected")
	}
	if tl.Points[2].ConnectedToPrevious {
		t.Error("Expected a 25 min gap to break the segment")
	}
}

func TestCompute_GapFillSynthesizesGrid(t *testing.T) {
	engine := NewEngine(DefaultOptions(), logger.Nop())

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	window := testWindow(base, base.Add(time.Hour))
	now := base.Add(2 * time.Hour)

	readings := []models.GlucoseReading{reading("r1", base.Add(30*time.Minute), 150)}

	tl, err := engine.Compute(now, window, readings, models.EffectSources{}, nil)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	// Boundary anchor at window start, estimate at :15, actual at :30,
	// estimates at :45 and :00.
	if len(tl.Points) != 5 {
		t.Fatalf("Expected 5 points on the grid, got %d", len(tl.Points))
	}

	boundary := tl.Points[0]
	if boundary.Classification != models.PointEstimatedAnchor {
		t.Errorf("Expected a synthesized boundary anchor, got %s", boundary.Classification)
	}
	if boundary.Value != 100 {
		t.Errorf("Expected boundary anchor at target glucose, got %f", boundary.Value)
	}

	actual := pointAt(t, tl, base.Add(30*time.Minute))
	if actual.Classification != models.PointActual || actual.Value != 150 {
		t.Errorf("Expected the actual reading preserved, got %+v", actual)
	}
	if !actual.ConnectedToPrevious {
		t.Error("Expected gap fill to keep the series continuous across the anchor")
	}

	// Estimates past the last reading decay toward target.
	p45 := pointAt(t, tl, base.Add(45*time.Minute))
	p60 := pointAt(t, tl, base.Add(60*time.Minute))
	if p45.Classification != models.PointEstimated || p60.Classification != models.PointEstimated {
		t.Error("Expected estimated points past the last reading")
	}
	if !(p60.Value < p45.Value && p45.Value < 150 && p60.Value > 100) {
		t.Errorf("Expected monotone decay from 150 toward 100, got %f then %f", p45.Value, p60.Value)
	}
}

func TestCompute_HistoricalPointsIgnoreEffectOverlays(t *testing.T) {
	engine := NewEngine(DefaultOptions(), logger.Nop())

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)
	window := testWindow(start, now.Add(time.Hour))

	readings := []models.GlucoseReading{reading("r1", start, 120)}
	sources := models.EffectSources{
		Meals: []models.MealRecord{{
			ID:              "m1",
			CarbsGrams:      50,
			AbsorptionClass: models.AbsorptionMedium,
			OccurredAt:      now.Add(-30 * time.Minute).UnixMilli(),
		}},
	}

	tl, err := engine.Compute(now, window, readings, sources, nil)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	// 15 min after the meal, still historical: the absorption is recorded
	// as a contribution but never folded into the value.
	hist := pointAt(t, tl, now.Add(-15*time.Minute))
	if hist.TotalCarbEquivalentActive <= 0 {
		t.Error("Expected the meal contribution recorded on a historical point")
	}
	if hist.NetEffect != 0 {
		t.Errorf("Expected zero net effect on a historical point, got %f", hist.NetEffect)
	}

	// At now the meal is 30 min in (half way up the 1h peak: 25 g), so the
	// overlay raises the estimate by 25 * 4 = 100 over the baseline.
	cur := pointAt(t, tl, now)
	wantBaseline := 100 + 20*math.Exp(-1)
	if math.Abs(cur.NetEffect-100) > 1e-9 {
		t.Errorf("Expected net effect 100 at now, got %f", cur.NetEffect)
	}
	if math.Abs(cur.Value-(wantBaseline+100)) > 1e-6 {
		t.Errorf("Expected value %f at now, got %f", wantBaseline+100, cur.Value)
	}
	if cur.Value <= hist.Value {
		t.Error("Expected the overlay to lift the estimate above the historical baseline")
	}
}

func TestCompute_ExtendToNowStopsAtNow(t *testing.T) {
	opts := DefaultOptions()
	opts.ExtendTo = ExtendToNow
	engine := NewEngine(opts, logger.Nop())

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)
	window := testWindow(start, now.Add(time.Hour))

	readings := []models.GlucoseReading{reading("r1", start, 130)}

	tl, err := engine.Compute(now, window, readings, models.EffectSources{}, nil)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if tl.Empty() {
		t.Fatal("Expected a non-empty timeline")
	}
	last := tl.Points[len(tl.Points)-1]
	if last.Timestamp > now.UnixMilli() {
		t.Errorf("Expected no points past now, last at %d", last.Timestamp)
	}
}

func TestCompute_SummaryAccounting(t *testing.T) {
	engine := NewEngine(DefaultOptions(), logger.Nop())

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	window := testWindow(now.Add(-time.Hour), now)

	readings := []models.GlucoseReading{
		reading("r1", now.Add(-30*time.Minute), 140),
		{ID: "bad", Timestamp: 0, Value: 100, Source: models.SourceSensor}, // dropped
	}
	sources := models.EffectSources{
		Doses: []models.InsulinDose{{
			ID:             "d1",
			MedicationID:   "unregistered-insulin",
			Units:          2,
			AdministeredAt: now.Add(-2 * time.Hour).UnixMilli(),
		}},
	}

	tl, err := engine.Compute(now, window, readings, sources, nil)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if tl.Summary.DroppedRecords != 1 {
		t.Errorf("Expected 1 dropped record, got %d", tl.Summary.DroppedRecords)
	}
	if len(tl.Summary.DegradedProfiles) != 1 || tl.Summary.DegradedProfiles[0] != "unregistered-insulin" {
		t.Errorf("Expected the unknown insulin type reported as degraded, got %v", tl.Summary.DegradedProfiles)
	}
	if tl.Summary.TotalActiveInsulin <= 0 {
		t.Error("Expected active insulin on board at now")
	}
}
