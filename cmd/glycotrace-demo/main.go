// Command glycotrace-demo runs the timeline engine over a synthetic day
// of records and prints the resulting timeline summary. It exists to
// exercise the engine end to end; the engine itself owns no CLI surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glycotrace/glycotrace/internal/calibrate"
	"github.com/glycotrace/glycotrace/internal/config"
	"github.com/glycotrace/glycotrace/internal/metrics"
	"github.com/glycotrace/glycotrace/internal/models"
	"github.com/glycotrace/glycotrace/internal/timeline"
	"github.com/glycotrace/glycotrace/pkg/logger"
)

func main() {
	serveMetrics := flag.Bool("metrics", false, "serve prometheus metrics after the run")
	flag.Parse()

	if err := run(*serveMetrics); err != nil {
		fmt.Fprintf(os.Stderr, "glycotrace-demo: %v\n", err)
		os.Exit(1)
	}
}

func run(serveMetrics bool) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := logger.New(os.Stdout, level).Named("demo")

	met := metrics.New()
	engine := timeline.NewEngine(cfg.EngineOptions(), log)
	svc := timeline.NewService(engine, &cfg.Patient, log, met)

	now := time.Now()
	readings, sources := syntheticDay(now)
	svc.SetRecords(readings, sources)

	window := models.TimeWindow{
		Start:           now.Add(-8 * time.Hour).UnixMilli(),
		End:             now.Add(4 * time.Hour).UnixMilli(),
		IntervalMinutes: cfg.IntervalMinutes,
	}

	tl, err := svc.Timeline(now, window)
	if err != nil {
		return err
	}

	log.Info(ctx, "timeline computed",
		logger.Int("points", len(tl.Points)),
		logger.Float64("activeInsulin", tl.Summary.TotalActiveInsulin),
		logger.Float64("activeCarbEquivalent", tl.Summary.TotalCarbEquivalent),
		logger.Int("droppedRecords", tl.Summary.DroppedRecords))

	printTimeline(tl, now)

	if _, stats, err := calibrate.Estimate(readings, sources.Doses, sources.Meals, now); err == nil {
		log.Info(ctx, "history analyzed",
			logger.Float64("averageGlucose", stats.AverageGlucose),
			logger.Float64("timeInRange", stats.TimeInRange),
			logger.Float64("gmi", stats.GMI),
			logger.Float64("sensitivityConfidence", stats.SensitivityConfidence))
	}

	if serveMetrics {
		http.Handle("/metrics", promhttp.HandlerFor(met.Registry(), promhttp.HandlerOpts{}))
		log.Info(ctx, "serving metrics", logger.String("addr", cfg.MetricsAddr))
		return http.ListenAndServe(cfg.MetricsAddr, nil)
	}
	return nil
}

// syntheticDay fabricates a plausible half day: sensor readings every
// five minutes until two hours ago, one breakfast with its bolus, a walk,
// and a long-acting basal dose.
func syntheticDay(now time.Time) ([]models.GlucoseReading, models.EffectSources) {
	var readings []models.GlucoseReading
	for m := 8 * 60; m >= 2*60; m -= 5 {
		at := now.Add(-time.Duration(m) * time.Minute)
		value := 110 + 30*wave01(float64(m)/180)
		readings = append(readings, models.GlucoseReading{
			ID:        uuid.NewString(),
			Timestamp: at.UnixMilli(),
			Value:     value,
			Source:    models.SourceSensor,
			IsActual:  true,
		})
	}

	sources := models.EffectSources{
		Doses: []models.InsulinDose{
			{
				ID:             uuid.NewString(),
				MedicationID:   "rapid",
				Units:          4,
				AdministeredAt: now.Add(-3 * time.Hour).UnixMilli(),
			},
			{
				ID:             uuid.NewString(),
				MedicationID:   "long",
				Units:          18,
				AdministeredAt: now.Add(-9 * time.Hour).UnixMilli(),
			},
		},
		Meals: []models.MealRecord{
			{
				ID:              uuid.NewString(),
				CarbsGrams:      45,
				ProteinGrams:    20,
				FatGrams:        15,
				AbsorptionClass: models.AbsorptionMedium,
				OccurredAt:      now.Add(-3 * time.Hour).UnixMilli(),
			},
		},
		Activities: []models.ActivityRecord{
			{
				ID:      uuid.NewString(),
				Level:   2,
				StartAt: now.Add(-90 * time.Minute).UnixMilli(),
				EndAt:   now.Add(-45 * time.Minute).UnixMilli(),
			},
		},
	}

	return readings, sources
}

func wave01(x float64) float64 {
	// Cheap smooth wave in [0, 1] without pulling in a plotting stack.
	s := x - float64(int(x))
	if s < 0.5 {
		return 2 * s
	}
	return 2 * (1 - s)
}

func printTimeline(tl models.Timeline, now time.Time) {
	for _, p := range tl.Points {
		marker := " "
		if p.Time().After(now) {
			marker = ">"
		}
		fmt.Printf("%s %s  %6.1f mg/dL  %-15s iob=%.2f carbEq=%.1f\n",
			marker,
			p.Time().Format("15:04"),
			p.Value,
			p.Classification,
			p.TotalInsulinActive,
			p.TotalCarbEquivalentActive)
	}
	fmt.Printf("\nactive insulin: %.2f u, active carb-equivalent: %.1f g\n",
		tl.Summary.TotalActiveInsulin, tl.Summary.TotalCarbEquivalent)
}
