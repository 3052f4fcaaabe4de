package timeline

import (
	"sort"
	"time"

	"github.com/glycotrace/glycotrace/internal/effect"
	"github.com/glycotrace/glycotrace/internal/kinetics"
	"github.com/glycotrace/glycotrace/internal/models"
	"github.com/glycotrace/glycotrace/internal/projection"
	"github.com/glycotrace/glycotrace/pkg/logger"
)

// Engine reconciles actual glucose readings with modeled effect sources
// into a single ordered timeline. Each Compute call operates on its own
// input snapshot and keeps no state, so an Engine may be shared across
// goroutines.
type Engine struct {
	opts Options
	log  logger.Logger
}

// NewEngine creates an Engine with the given options
func NewEngine(opts Options, log logger.Logger) *Engine {
	if opts.GapConnectMinutes <= 0 {
		opts.GapConnectMinutes = DefaultOptions().GapConnectMinutes
	}
	if opts.ExtendTo == "" {
		opts.ExtendTo = ExtendToWindowEnd
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{opts: opts, log: log}
}

// Compute builds the timeline for one window. The current time is always
// an explicit parameter; the engine never reads the wall clock. The only
// rejected condition is an invalid window; every data problem degrades
// gracefully instead.
func (e *Engine) Compute(
	now time.Time,
	window models.TimeWindow,
	readings []models.GlucoseReading,
	sources models.EffectSources,
	constants *models.PatientConstants,
) (models.Timeline, error) {
	if err := window.Validate(); err != nil {
		return models.Timeline{}, err
	}
	if constants == nil {
		constants = models.NewPatientConstants()
	}

	readings, droppedReadings := models.FilterReadings(readings)
	sources, droppedSources := models.FilterSources(sources)
	dropped := droppedReadings + droppedSources

	resolver := kinetics.NewResolver(constants.MedicationProfiles, e.log)

	actuals := e.windowReadings(readings, window)

	// Empty-input policy: nothing to anchor on and no gap-fill means an
	// empty timeline, not an error.
	if len(actuals) == 0 && !e.opts.GapFill {
		return models.Timeline{
			Summary: e.summarize(resolver, sources, constants, now, dropped),
		}, nil
	}

	anchors := e.buildAnchors(actuals, window, constants)
	points := e.assemble(anchors, window, now, sources, resolver, constants)

	return models.Timeline{
		Points:  points,
		Summary: e.summarize(resolver, sources, constants, now, dropped),
	}, nil
}

// anchor is a point estimates interpolate between: an actual reading or a
// synthesized boundary value.
type anchor struct {
	at        time.Time
	value     float64
	point     models.TimelinePoint
	synthetic bool
}

// windowReadings returns the actual readings inside the window, sorted,
// with connectable pairs marked.
func (e *Engine) windowReadings(readings []models.GlucoseReading, window models.TimeWindow) []models.TimelinePoint {
	inWindow := make([]models.GlucoseReading, 0, len(readings))
	for _, r := range readings {
		if r.Timestamp >= window.Start && r.Timestamp <= window.End {
			inWindow = append(inWindow, r)
		}
	}
	sort.Slice(inWindow, func(i, j int) bool {
		return inWindow[i].Timestamp < inWindow[j].Timestamp
	})

	threshold := time.Duration(e.opts.GapConnectMinutes) * time.Minute
	points := make([]models.TimelinePoint, len(inWindow))
	for i, r := range inWindow {
		connected := false
		if i > 0 {
			gap := r.Time().Sub(inWindow[i-1].Time())
			connected = gap <= threshold
		}
		points[i] = models.TimelinePoint{
			Timestamp:           r.Timestamp,
			Value:               r.Value,
			Classification:      models.PointActual,
			ConnectedToPrevious: connected,
		}
	}
	return points
}

// buildAnchors seeds the boundary anchor and wraps actual readings
func (e *Engine) buildAnchors(actuals []models.TimelinePoint, window models.TimeWindow, constants *models.PatientConstants) []anchor {
	anchors := make([]anchor, 0, len(actuals)+1)

	needBoundary := e.opts.GapFill &&
		(len(actuals) == 0 || actuals[0].Timestamp > window.Start)
	if needBoundary {
		anchors = append(anchors, anchor{
			at:    window.StartTime(),
			value: constants.TargetGlucose,
			point: models.TimelinePoint{
				Timestamp:      window.Start,
				Value:          constants.TargetGlucose,
				Classification: models.PointEstimatedAnchor,
			},
			synthetic: true,
		})
	}

	for _, p := range actuals {
		anchors = append(anchors, anchor{
			at:    p.Time(),
			value: p.Value,
			point: p,
		})
	}
	return anchors
}

// assemble walks the anchors in order, interpolating estimated points
// between them and extending past the last one.
func (e *Engine) assemble(
	anchors []anchor,
	window models.TimeWindow,
	now time.Time,
	sources models.EffectSources,
	resolver *kinetics.Resolver,
	constants *models.PatientConstants,
) []models.TimelinePoint {
	interval := window.Interval()
	points := make([]models.TimelinePoint, 0, len(anchors))

	for i, a := range anchors {
		p := a.point
		if i > 0 && e.opts.GapFill && !p.ConnectedToPrevious {
			// Estimated points between anchors keep the series continuous.
			p.ConnectedToPrevious = true
		}
		e.attachContributions(&p, now, sources, resolver, constants)
		points = append(points, p)

		if !e.opts.GapFill {
			continue
		}

		var until time.Time
		if i+1 < len(anchors) {
			until = anchors[i+1].at
		} else {
			until = e.extensionLimit(window, now)
		}

		for t := a.at.Add(interval); t.Before(until); t = t.Add(interval) {
			points = append(points, e.estimate(a, t, now, sources, resolver, constants))
		}

		// Land exactly on the extension limit when it falls off-grid.
		if i+1 == len(anchors) && until.After(a.at) {
			last := points[len(points)-1]
			if last.Timestamp != until.UnixMilli() {
				points = append(points, e.estimate(a, until, now, sources, resolver, constants))
			}
		}
	}

	return points
}

func (e *Engine) extensionLimit(window models.TimeWindow, now time.Time) time.Time {
	if e.opts.ExtendTo == ExtendToNow {
		if now.Before(window.StartTime()) {
			return window.StartTime()
		}
		if now.After(window.EndTime()) {
			return window.EndTime()
		}
		return now
	}
	return window.EndTime()
}

// estimate produces one estimated point, seeded from the left anchor.
// Historical estimated points carry the baseline-only value: they stand
// for what would have happened absent intervention, so forward-looking
// effect overlays apply only at or after now.
func (e *Engine) estimate(
	a anchor,
	at time.Time,
	now time.Time,
	sources models.EffectSources,
	resolver *kinetics.Resolver,
	constants *models.PatientConstants,
) models.TimelinePoint {
	elapsed := at.Sub(a.at).Minutes()

	insulin := effect.ActiveInsulin(sources.Doses, resolver, at)
	carbs := effect.ActiveCarbs(sources.Meals, resolver, constants, at)
	adjInsulin := insulin.Total *
		effect.CombinedActivityMultiplier(sources.Activities, constants.ActivityCoefficients, at) *
		effect.CombinedMedicationMultiplier(sources.Medications, constants.MedicationProfiles, at)

	p := models.TimelinePoint{
		Timestamp:                 at.UnixMilli(),
		Classification:            models.PointEstimated,
		ConnectedToPrevious:       true,
		TotalInsulinActive:        insulin.Total,
		TotalCarbEquivalentActive: carbs.Total,
		PerSourceContributions:    mergeByID(insulin.ByID, carbs.ByID),
	}

	if at.Before(now) {
		p.Value = projection.Project(a.value, elapsed, constants, 0, 0)
		p.NetEffect = 0
	} else {
		p.Value = projection.Project(a.value, elapsed, constants, adjInsulin, carbs.Total)
		p.NetEffect = projection.NetEffect(constants, adjInsulin, carbs.Total)
	}
	return p
}

// attachContributions fills the effect fields of an anchor point without
// touching its value. Actual readings are ground truth.
func (e *Engine) attachContributions(
	p *models.TimelinePoint,
	now time.Time,
	sources models.EffectSources,
	resolver *kinetics.Resolver,
	constants *models.PatientConstants,
) {
	at := p.Time()
	insulin := effect.ActiveInsulin(sources.Doses, resolver, at)
	carbs := effect.ActiveCarbs(sources.Meals, resolver, constants, at)

	p.TotalInsulinActive = insulin.Total
	p.TotalCarbEquivalentActive = carbs.Total
	p.PerSourceContributions = mergeByID(insulin.ByID, carbs.ByID)
}

func (e *Engine) summarize(
	resolver *kinetics.Resolver,
	sources models.EffectSources,
	constants *models.PatientConstants,
	now time.Time,
	dropped int,
) models.TimelineSummary {
	insulin := effect.ActiveInsulin(sources.Doses, resolver, now)
	carbs := effect.ActiveCarbs(sources.Meals, resolver, constants, now)

	return models.TimelineSummary{
		TotalActiveInsulin:  insulin.Total,
		TotalCarbEquivalent: carbs.Total,
		PerSource:           mergeByID(insulin.ByID, carbs.ByID),
		DegradedProfiles:    resolver.Degraded(),
		DroppedRecords:      dropped,
	}
}

func mergeByID(maps ...map[string]float64) map[string]float64 {
	out := make(map[string]float64)
	for _, m := range maps {
		for k, v := range m {
			out[k] += v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
