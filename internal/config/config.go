// Package config defines engine configuration and its loading rules.
package config

import (
	"fmt"

	"github.com/glycotrace/glycotrace/internal/models"
	"github.com/glycotrace/glycotrace/internal/timeline"
)

// Config carries everything a timeline service needs at startup.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr is the address the demo harness serves /metrics on.
	MetricsAddr string `koanf:"metrics_addr"`

	// GapConnectMinutes is the largest gap between consecutive actual
	// readings still rendered as a continuous segment.
	GapConnectMinutes int `koanf:"gap_connect_minutes"`

	// GapFill enables synthesizing estimated points.
	GapFill bool `koanf:"gap_fill"`

	// ExtendTo selects how far past the last reading to project:
	// "now" or "window_end".
	ExtendTo string `koanf:"extend_to"`

	// IntervalMinutes is the default reconstruction grid spacing.
	IntervalMinutes int `koanf:"interval_minutes"`

	// Patient holds the patient-specific model constants.
	Patient models.PatientConstants `koanf:"patient"`
}

// New returns a Config with defaults
func New() *Config {
	return &Config{
		LogLevel:          "info",
		MetricsAddr:       ":9477",
		GapConnectMinutes: 20,
		GapFill:           true,
		ExtendTo:          string(timeline.ExtendToWindowEnd),
		IntervalMinutes:   models.DefaultIntervalMinutes,
		Patient:           *models.NewPatientConstants(),
	}
}

// Validate rejects configurations the engine would refuse anyway
func (c *Config) Validate() error {
	if c.IntervalMinutes <= 0 {
		return fmt.Errorf("interval_minutes must be positive, got %d", c.IntervalMinutes)
	}
	if c.GapConnectMinutes <= 0 {
		return fmt.Errorf("gap_connect_minutes must be positive, got %d", c.GapConnectMinutes)
	}
	switch timeline.ExtendMode(c.ExtendTo) {
	case timeline.ExtendToNow, timeline.ExtendToWindowEnd:
	default:
		return fmt.Errorf("extend_to must be %q or %q, got %q",
			timeline.ExtendToNow, timeline.ExtendToWindowEnd, c.ExtendTo)
	}
	if c.Patient.StabilizationHours <= 0 {
		return fmt.Errorf("patient.stabilization_hours must be positive")
	}
	return nil
}

// EngineOptions converts the config into timeline engine options
func (c *Config) EngineOptions() timeline.Options {
	return timeline.Options{
		GapConnectMinutes: c.GapConnectMinutes,
		GapFill:           c.GapFill,
		ExtendTo:          timeline.ExtendMode(c.ExtendTo),
	}
}
