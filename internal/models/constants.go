// Package models contains the data structures shared by the timeline engine
package models

import "time"

// KineticShape selects the curve family for an effect source
type KineticShape string

const (
	ShapeTriangular KineticShape = "triangular"
	ShapePeakless   KineticShape = "peakless"
	ShapeBiphasic   KineticShape = "biphasic"
)

// KineticProfile describes the timing of an effect source.
// Invariant: 0 <= OnsetHours <= (PeakHours or DurationHours) <= DurationHours.
// Peakless profiles are tagged explicitly via Shape; a nil PeakHours alone
// does not imply a peakless curve.
type KineticProfile struct {
	OnsetHours    float64      `json:"onsetHours" koanf:"onset_hours"`
	PeakHours     *float64     `json:"peakHours,omitempty" koanf:"peak_hours"`
	DurationHours float64      `json:"durationHours" koanf:"duration_hours"`
	Shape         KineticShape `json:"shape" koanf:"shape"`
}

// Peak returns the peak time in hours, falling back to DurationHours for
// profiles without a distinct peak.
func (p KineticProfile) Peak() float64 {
	if p.PeakHours != nil {
		return *p.PeakHours
	}
	return p.DurationHours
}

// Valid reports whether the profile satisfies the timing invariant
func (p KineticProfile) Valid() bool {
	if p.OnsetHours < 0 || p.DurationHours <= 0 {
		return false
	}
	peak := p.Peak()
	return p.OnsetHours <= peak && peak <= p.DurationHours
}

// ActivityCoefficients tunes how physical activity modulates insulin
// sensitivity.
type ActivityCoefficients struct {
	// ImpactPerLevel is the sensitivity change per activity level at full
	// intensity (0.1 = +10% per level).
	ImpactPerLevel float64 `json:"impactPerLevel" koanf:"impact_per_level"`
	// TailHoursPerLevel extends the post-activity effect tail per level.
	TailHoursPerLevel float64 `json:"tailHoursPerLevel" koanf:"tail_hours_per_level"`
	// MaxTailHours caps the post-activity effect tail.
	MaxTailHours float64 `json:"maxTailHours" koanf:"max_tail_hours"`
}

// PatientConstants carries the patient-specific factors supplied by the
// caller. They parameterize the curve generators and the projection model;
// the engine never derives them implicitly.
type PatientConstants struct {
	// TargetGlucose is the glucose value the baseline drifts toward (mg/dL)
	TargetGlucose float64 `json:"targetGlucose" koanf:"target_glucose"`

	// CorrectionFactor scales correction estimates (mg/dL per unit)
	CorrectionFactor float64 `json:"correctionFactor" koanf:"correction_factor"`

	// InsulinSensitivityFactor is how much one active unit lowers glucose (mg/dL)
	InsulinSensitivityFactor float64 `json:"insulinSensitivityFactor" koanf:"insulin_sensitivity_factor"`

	// CarbToBGFactor is how much one carbohydrate-equivalent gram raises glucose (mg/dL)
	CarbToBGFactor float64 `json:"carbToBgFactor" koanf:"carb_to_bg_factor"`

	// ProteinFactor and FatFactor weight protein/fat grams into
	// carbohydrate-equivalents.
	ProteinFactor float64 `json:"proteinFactor" koanf:"protein_factor"`
	FatFactor     float64 `json:"fatFactor" koanf:"fat_factor"`

	// StabilizationHours is the window over which an unperturbed baseline
	// approaches the target.
	StabilizationHours float64 `json:"stabilizationHours" koanf:"stabilization_hours"`

	// AbsorptionModifiers scale meal peak/duration per absorption class.
	// Values above 1 slow absorption down, values below 1 speed it up.
	AbsorptionModifiers map[AbsorptionClass]float64 `json:"absorptionModifiers" koanf:"absorption_modifiers"`

	// ActivityCoefficients tunes activity impact curves
	ActivityCoefficients ActivityCoefficients `json:"activityCoefficients" koanf:"activity_coefficients"`

	// MedicationProfiles maps medication ids to their kinetic profiles.
	// Unknown ids fall back to the resolver's default profile.
	MedicationProfiles map[string]KineticProfile `json:"medicationProfiles" koanf:"medication_profiles"`
}

// NewPatientConstants creates PatientConstants with conservative defaults
func NewPatientConstants() *PatientConstants {
	return &PatientConstants{
		TargetGlucose:            100, // mg/dL
		CorrectionFactor:         50,
		InsulinSensitivityFactor: 50, // 1 unit lowers BG by 50 mg/dL
		CarbToBGFactor:           4,  // 1 g carbs raises BG by 4 mg/dL
		ProteinFactor:            0.5,
		FatFactor:                0.2,
		StabilizationHours:       3,
		AbsorptionModifiers: map[AbsorptionClass]float64{
			AbsorptionVerySlow: 1.6,
			AbsorptionSlow:     1.3,
			AbsorptionMedium:   1.0,
			AbsorptionFast:     0.75,
			AbsorptionVeryFast: 0.5,
		},
		ActivityCoefficients: ActivityCoefficients{
			ImpactPerLevel:    0.1,
			TailHoursPerLevel: 0.5,
			MaxTailHours:      24,
		},
		MedicationProfiles: make(map[string]KineticProfile),
	}
}

// AbsorptionModifier returns the peak/duration scale for a class,
// defaulting to 1.0 for unknown classes.
func (c *PatientConstants) AbsorptionModifier(class AbsorptionClass) float64 {
	if m, ok := c.AbsorptionModifiers[class]; ok && m > 0 {
		return m
	}
	return 1.0
}

// StabilizationWindow returns the stabilization window as a duration
func (c *PatientConstants) StabilizationWindow() time.Duration {
	return time.Duration(c.StabilizationHours * float64(time.Hour))
}
