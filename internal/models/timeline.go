// Package models contains the data structures shared by the timeline engine
package models

import (
	"errors"
	"fmt"
	"time"
)

// PointClassification tags how a timeline point was produced
type PointClassification string

const (
	// PointActual marks a measured glucose reading
	PointActual PointClassification = "actual"
	// PointEstimatedAnchor marks a synthesized boundary anchor
	PointEstimatedAnchor PointClassification = "estimatedAnchor"
	// PointEstimated marks an interpolated or projected value
	PointEstimated PointClassification = "estimated"
)

// TimelinePoint is the engine's output unit: one glucose value on the
// reconstruction grid together with the effect contributions behind it.
type TimelinePoint struct {
	Timestamp      int64               `json:"timestamp"` // Unix timestamp in milliseconds
	Value          float64             `json:"value"`     // mg/dL
	Classification PointClassification `json:"classification"`

	// ConnectedToPrevious is true when this point and the previous one
	// should render as a continuous segment.
	ConnectedToPrevious bool `json:"connectedToPrevious"`

	// PerSourceContributions maps source ids to their instantaneous
	// effect magnitudes at this timestamp.
	PerSourceContributions map[string]float64 `json:"perSourceContributions,omitempty"`

	TotalInsulinActive        float64 `json:"totalInsulinActive"`        // units
	TotalCarbEquivalentActive float64 `json:"totalCarbEquivalentActive"` // grams-equivalent
	NetEffect                 float64 `json:"netEffect"`                 // mg/dL relative to baseline
}

// Time returns the time of the point
func (p *TimelinePoint) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// TimelineSummary carries the aggregates alongside a computed timeline
type TimelineSummary struct {
	TotalActiveInsulin  float64            `json:"totalActiveInsulin"`  // units on board at "now"
	TotalCarbEquivalent float64            `json:"totalCarbEquivalent"` // grams-equivalent on board at "now"
	PerSource           map[string]float64 `json:"perSource,omitempty"`
	DegradedProfiles    []string           `json:"degradedProfiles,omitempty"`
	DroppedRecords      int                `json:"droppedRecords"`
}

// Timeline is the ordered point sequence handed to the rendering collaborator
type Timeline struct {
	Points  []TimelinePoint `json:"points"`
	Summary TimelineSummary `json:"summary"`
}

// Empty reports whether the timeline carries no points
func (t *Timeline) Empty() bool {
	return len(t.Points) == 0
}

// Default grid intervals (minutes)
const (
	DefaultIntervalMinutes = 15 // general timelines
	PreviewIntervalMinutes = 5  // single-dose/meal curve previews
)

// ErrConfiguration marks a window that cannot be repaired locally; it is
// the only condition the engine rejects outright.
var ErrConfiguration = errors.New("timeline configuration error")

// TimeWindow is the reconstruction grid for one engine invocation
type TimeWindow struct {
	Start           int64 `json:"start"` // Unix timestamp in milliseconds
	End             int64 `json:"end"`   // Unix timestamp in milliseconds
	IntervalMinutes int   `json:"intervalMinutes"`
}

// NewTimeWindow builds a window over [start, end] with the default interval
func NewTimeWindow(start, end time.Time) TimeWindow {
	return TimeWindow{
		Start:           start.UnixMilli(),
		End:             end.UnixMilli(),
		IntervalMinutes: DefaultIntervalMinutes,
	}
}

// StartTime returns the window start
func (w TimeWindow) StartTime() time.Time {
	return time.UnixMilli(w.Start)
}

// EndTime returns the window end
func (w TimeWindow) EndTime() time.Time {
	return time.UnixMilli(w.End)
}

// Interval returns the grid spacing as a duration
func (w TimeWindow) Interval() time.Duration {
	return time.Duration(w.IntervalMinutes) * time.Minute
}

// Validate rejects non-monotonic windows and non-positive intervals
func (w TimeWindow) Validate() error {
	if w.End < w.Start {
		return fmt.Errorf("%w: end %d before start %d", ErrConfiguration, w.End, w.Start)
	}
	if w.IntervalMinutes <= 0 {
		return fmt.Errorf("%w: non-positive interval %d", ErrConfiguration, w.IntervalMinutes)
	}
	return nil
}
