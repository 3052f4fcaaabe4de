package timeline

import (
	"context"
	"encoding/binary"
	"hash"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/glycotrace/glycotrace/internal/effect"
	"github.com/glycotrace/glycotrace/internal/kinetics"
	"github.com/glycotrace/glycotrace/internal/metrics"
	"github.com/glycotrace/glycotrace/internal/models"
	"github.com/glycotrace/glycotrace/pkg/logger"
)

// Service is the concurrency-safe front door to the engine. It holds the
// current record snapshot and patient constants, caches the last computed
// timeline, and invalidates that cache whenever any input changes. There
// is no caching beyond the current snapshot: stale output is never served
// across input changes.
type Service struct {
	engine *Engine
	log    logger.Logger
	met    *metrics.Metrics

	mu        sync.RWMutex
	constants *models.PatientConstants
	readings  []models.GlucoseReading
	sources   models.EffectSources

	inputDigest uint64
	cacheKey    uint64
	cached      *models.Timeline
}

// NewService creates a Service around an engine
func NewService(engine *Engine, constants *models.PatientConstants, log logger.Logger, met *metrics.Metrics) *Service {
	if constants == nil {
		constants = models.NewPatientConstants()
	}
	if log == nil {
		log = logger.Nop()
	}
	if met == nil {
		met = metrics.New()
	}
	return &Service{
		engine:    engine,
		log:       log,
		met:       met,
		constants: constants,
	}
}

// SetRecords replaces the record snapshot and invalidates the cache
func (s *Service) SetRecords(readings []models.GlucoseReading, sources models.EffectSources) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readings = readings
	s.sources = sources
	s.inputDigest = digestRecords(readings, sources)
	s.cached = nil
}

// SetConstants replaces the patient constants and invalidates the cache
func (s *Service) SetConstants(constants *models.PatientConstants) {
	if constants == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.constants = constants
	s.cached = nil
}

// InvalidateCache forces the next computation to run from scratch
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
}

// Constants returns a copy of the current patient constants
func (s *Service) Constants() models.PatientConstants {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.constants
}

// Timeline computes (or returns the cached) timeline for the window.
// now is truncated to the grid interval for cache purposes so repeated
// calls within one interval reuse the previous result.
func (s *Service) Timeline(now time.Time, window models.TimeWindow) (models.Timeline, error) {
	key := s.snapshotKey(now, window)

	s.mu.RLock()
	if s.cached != nil && s.cacheKey == key {
		t := *s.cached
		s.mu.RUnlock()
		s.met.CacheHits.Inc()
		return t, nil
	}
	readings := s.readings
	sources := s.sources
	constants := s.constants
	s.mu.RUnlock()

	start := time.Now()
	tl, err := s.engine.Compute(now, window, readings, sources, constants)
	s.met.Computations.Inc()
	s.met.ComputeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return models.Timeline{}, err
	}

	s.met.DegradedProfiles.Add(float64(len(tl.Summary.DegradedProfiles)))
	s.met.DroppedRecords.Add(float64(tl.Summary.DroppedRecords))
	if len(tl.Summary.DegradedProfiles) > 0 {
		s.log.Warn(context.Background(), "timeline computed with degraded kinetic profiles",
			logger.Any("sourceTypes", tl.Summary.DegradedProfiles))
	}

	s.mu.Lock()
	s.cacheKey = key
	s.cached = &tl
	s.mu.Unlock()

	return tl, nil
}

// ActiveInsulin returns the current units-on-board breakdown
func (s *Service) ActiveInsulin(now time.Time) effect.Breakdown {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resolver := kinetics.NewResolver(s.constants.MedicationProfiles, s.log)
	return effect.ActiveInsulin(s.sources.Doses, resolver, now)
}

// ActiveCarbs returns the current carbohydrate-equivalent-on-board breakdown
func (s *Service) ActiveCarbs(now time.Time) effect.Breakdown {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resolver := kinetics.NewResolver(s.constants.MedicationProfiles, s.log)
	return effect.ActiveCarbs(s.sources.Meals, resolver, s.constants, now)
}

// snapshotKey digests everything a computation depends on
func (s *Service) snapshotKey(now time.Time, window models.TimeWindow) uint64 {
	s.mu.RLock()
	digest := s.inputDigest
	s.mu.RUnlock()

	h := fnv.New64a()
	writeU64(h, digest)
	writeU64(h, uint64(window.Start))
	writeU64(h, uint64(window.End))
	writeU64(h, uint64(window.IntervalMinutes))
	writeU64(h, uint64(now.Truncate(window.Interval()).UnixMilli()))
	return h.Sum64()
}

func digestRecords(readings []models.GlucoseReading, sources models.EffectSources) uint64 {
	h := fnv.New64a()

	for _, r := range readings {
		h.Write([]byte(r.ID))
		writeU64(h, uint64(r.Timestamp))
		writeU64(h, math.Float64bits(r.Value))
	}
	for _, d := range sources.Doses {
		h.Write([]byte(d.ID))
		writeU64(h, uint64(d.AdministeredAt))
		writeU64(h, math.Float64bits(d.Units))
	}
	for _, m := range sources.Meals {
		h.Write([]byte(m.ID))
		writeU64(h, uint64(m.OccurredAt))
		writeU64(h, math.Float64bits(m.CarbsGrams))
		writeU64(h, math.Float64bits(m.ProteinGrams))
		writeU64(h, math.Float64bits(m.FatGrams))
	}
	for _, a := range sources.Activities {
		h.Write([]byte(a.ID))
		writeU64(h, uint64(a.StartAt))
		writeU64(h, uint64(a.EndAt))
		writeU64(h, uint64(a.Level))
	}
	for _, c := range sources.Medications {
		h.Write([]byte(c.ID))
		writeU64(h, math.Float64bits(c.Factor))
		writeU64(h, uint64(c.Schedule.StartDate))
		writeU64(h, uint64(c.Schedule.EndDate))
		for _, t := range c.Schedule.DailyTimes {
			h.Write([]byte(t))
		}
	}
	return h.Sum64()
}

func writeU64(h hash.Hash, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	h.Write(buf[:])
}
