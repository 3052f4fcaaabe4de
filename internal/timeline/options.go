// Package timeline assembles glucose timelines: it merges actual readings
// with estimated points projected from the active effect sources over a
// bounded time window.
package timeline

// ExtendMode controls how far past the last actual reading the engine
// projects estimated points.
type ExtendMode string

const (
	// ExtendToNow projects up to the current time (clipped to the window)
	ExtendToNow ExtendMode = "now"
	// ExtendToWindowEnd projects to the end of the requested window
	ExtendToWindowEnd ExtendMode = "window_end"
)

// Options configures a timeline engine
type Options struct {
	// GapConnectMinutes is the largest gap between consecutive actual
	// readings that still renders as a continuous segment.
	GapConnectMinutes int

	// GapFill enables synthesizing estimated points between and beyond
	// sparse actual readings. With GapFill off the engine emits actual
	// readings only.
	GapFill bool

	// ExtendTo selects how far past the last reading to project
	ExtendTo ExtendMode
}

// DefaultOptions returns the recommended engine configuration
func DefaultOptions() Options {
	return Options{
		GapConnectMinutes: 20,
		GapFill:           true,
		ExtendTo:          ExtendToWindowEnd,
	}
}
