// Package kinetics resolves effect-source identifiers to kinetic profiles
package kinetics

import (
	"context"
	"sort"

	"github.com/glycotrace/glycotrace/internal/models"
	"github.com/glycotrace/glycotrace/pkg/logger"
)

func ptr(v float64) *float64 { return &v }

// DefaultProfile is the conservative fallback used when a source type is
// unknown. Resolution with this profile is a degraded-data condition, not
// a hard error.
func DefaultProfile() models.KineticProfile {
	return models.KineticProfile{
		OnsetHours:    0.5,
		PeakHours:     ptr(2),
		DurationHours: 4.5,
		Shape:         models.ShapeTriangular,
	}
}

// builtins covers common insulin classes so that engines work sensibly
// without per-patient profile configuration.
var builtins = map[string]models.KineticProfile{
	"rapid": {
		OnsetHours:    0.25,
		PeakHours:     ptr(1.25),
		DurationHours: 4,
		Shape:         models.ShapeTriangular,
	},
	"short": {
		OnsetHours:    0.5,
		PeakHours:     ptr(2.5),
		DurationHours: 6,
		Shape:         models.ShapeTriangular,
	},
	"intermediate": {
		OnsetHours:    1.5,
		PeakHours:     ptr(6),
		DurationHours: 14,
		Shape:         models.ShapeTriangular,
	},
	"long": {
		OnsetHours:    2,
		DurationHours: 24,
		Shape:         models.ShapePeakless,
	},
	"ultra_long": {
		OnsetHours:    6,
		DurationHours: 42,
		Shape:         models.ShapePeakless,
	},
	"meal": {
		OnsetHours:    0.25,
		PeakHours:     ptr(1),
		DurationHours: 3,
		Shape:         models.ShapeTriangular,
	},
}

// Resolver maps source type ids to kinetic profiles. Patient-specific
// profiles take precedence over the built-in set; anything else falls
// back to DefaultProfile.
//
// A Resolver is built once per invocation and memoizes lookups for its
// lifetime; it must not be shared across invocations with different
// constants.
type Resolver struct {
	profiles map[string]models.KineticProfile
	log      logger.Logger

	cache    map[string]models.KineticProfile
	degraded map[string]bool
}

// NewResolver creates a Resolver over the patient's keyed profiles
func NewResolver(profiles map[string]models.KineticProfile, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{
		profiles: profiles,
		log:      log,
		cache:    make(map[string]models.KineticProfile),
		degraded: make(map[string]bool),
	}
}

// Resolve returns the profile for a source type id. It never fails: the
// second return value is false when the id was unknown (or its configured
// profile invalid) and the default profile was substituted.
func (r *Resolver) Resolve(sourceTypeID string) (models.KineticProfile, bool) {
	if p, ok := r.cache[sourceTypeID]; ok {
		return p, !r.degraded[sourceTypeID]
	}

	p, known := r.lookup(sourceTypeID)
	r.cache[sourceTypeID] = p
	if !known {
		r.degraded[sourceTypeID] = true
		r.log.Warn(context.Background(), "unknown kinetic profile, using default",
			logger.String("sourceType", sourceTypeID))
	}
	return p, known
}

func (r *Resolver) lookup(id string) (models.KineticProfile, bool) {
	if p, ok := r.profiles[id]; ok {
		if p.Valid() {
			return p, true
		}
		r.log.Warn(context.Background(), "configured kinetic profile violates timing invariant",
			logger.String("sourceType", id))
		return DefaultProfile(), false
	}
	if p, ok := builtins[id]; ok {
		return p, true
	}
	return DefaultProfile(), false
}

// Degraded lists the source type ids that resolved to the default profile
func (r *Resolver) Degraded() []string {
	if len(r.degraded) == 0 {
		return nil
	}
	out := make([]string, 0, len(r.degraded))
	for id := range r.degraded {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
