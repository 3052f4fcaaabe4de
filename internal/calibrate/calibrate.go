// Package calibrate estimates patient constants from historical records.
// The estimates feed the projection model; they are not dosing advice.
package calibrate

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/glycotrace/glycotrace/internal/effect"
	"github.com/glycotrace/glycotrace/internal/models"
)

// ErrInsufficientData is returned when the history is too thin to
// estimate anything beyond the defaults.
var ErrInsufficientData = errors.New("calibrate: insufficient history")

// Stats describes the history a calibration ran over and how much trust
// each estimate deserves.
type Stats struct {
	AverageGlucose         float64   `json:"averageGlucose"`
	GlucoseStdDev          float64   `json:"glucoseStdDev"`
	CoefficientOfVariation float64   `json:"coefficientOfVariation"`
	TimeInRange            float64   `json:"timeInRange"`    // % in 70-180 mg/dL
	TimeBelowRange         float64   `json:"timeBelowRange"` // % below 70
	TimeAboveRange         float64   `json:"timeAboveRange"` // % above 180
	GMI                    float64   `json:"gmi"`            // estimated HbA1c

	SensitivityConfidence float64 `json:"sensitivityConfidence"` // 0-100
	CarbFactorConfidence  float64 `json:"carbFactorConfidence"`  // 0-100

	ReadingsAnalyzed int       `json:"readingsAnalyzed"`
	DosesAnalyzed    int       `json:"dosesAnalyzed"`
	MealsAnalyzed    int       `json:"mealsAnalyzed"`
	CalculatedAt     time.Time `json:"calculatedAt"`
}

// minReadings is the smallest history worth analyzing.
const minReadings = 24

// Estimate derives patient constants from history, starting from the
// defaults and overriding only what the data supports. now anchors the
// CalculatedAt stamp; it is explicit for the same reason it is in the
// engine.
func Estimate(
	readings []models.GlucoseReading,
	doses []models.InsulinDose,
	meals []models.MealRecord,
	now time.Time,
) (*models.PatientConstants, Stats, error) {
	constants := models.NewPatientConstants()
	stats := Stats{
		ReadingsAnalyzed: len(readings),
		DosesAnalyzed:    len(doses),
		MealsAnalyzed:    len(meals),
		CalculatedAt:     now,
	}

	readings, _ = models.FilterReadings(readings)
	if len(readings) < minReadings {
		return constants, stats, ErrInsufficientData
	}

	sorted := make([]models.GlucoseReading, len(readings))
	copy(sorted, readings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	glucoseStats(sorted, &stats)

	if isf, conf := estimateSensitivity(sorted, doses, meals); conf > 0 {
		constants.InsulinSensitivityFactor = isf
		constants.CorrectionFactor = isf
		stats.SensitivityConfidence = conf
	}

	if cf, conf := estimateCarbFactor(sorted, doses, meals, constants); conf > 0 {
		constants.CarbToBGFactor = cf
		stats.CarbFactorConfidence = conf
	}

	return constants, stats, nil
}

func glucoseStats(readings []models.GlucoseReading, stats *Stats) {
	var sum float64
	var inRange, below, above int

	for _, r := range readings {
		sum += r.Value
		switch {
		case r.Value < 70:
			below++
		case r.Value > 180:
			above++
		default:
			inRange++
		}
	}

	n := float64(len(readings))
	stats.AverageGlucose = sum / n

	var sumSq float64
	for _, r := range readings {
		diff := r.Value - stats.AverageGlucose
		sumSq += diff * diff
	}
	stats.GlucoseStdDev = math.Sqrt(sumSq / n)

	stats.TimeInRange = float64(inRange) / n * 100
	stats.TimeBelowRange = float64(below) / n * 100
	stats.TimeAboveRange = float64(above) / n * 100

	// GMI = 3.31 + 0.02392 x mean glucose (mg/dL)
	stats.GMI = 3.31 + 0.02392*stats.AverageGlucose

	if stats.AverageGlucose > 0 {
		stats.CoefficientOfVariation = stats.GlucoseStdDev / stats.AverageGlucose * 100
	}
}

// estimateSensitivity measures glucose drop per unit across isolated
// correction doses: doses with no meal within an hour, starting above
// 150 mg/dL.
func estimateSensitivity(readings []models.GlucoseReading, doses []models.InsulinDose, meals []models.MealRecord) (float64, float64) {
	var values []float64

	for _, d := range doses {
		if d.Units < 0.5 || hasMealNear(meals, d.Time(), time.Hour) {
			continue
		}

		before, ok := readingAt(readings, d.Time())
		if !ok || before < 150 {
			continue
		}

		nadir := before
		for m := 30; m <= 240; m += 15 {
			v, ok := readingAt(readings, d.Time().Add(time.Duration(m)*time.Minute))
			if ok && v < nadir {
				nadir = v
			}
		}

		drop := before - nadir
		if drop < 20 {
			continue
		}

		isf := drop / d.Units
		// ISF outside 10-150 mg/dL per unit is noise, not signal.
		if isf >= 10 && isf <= 150 {
			values = append(values, isf)
		}
	}

	if len(values) < 3 {
		return 0, 0
	}

	conf := math.Min(90, 30+float64(len(values))*5)
	return median(values), conf
}

// estimateCarbFactor measures glucose rise per carbohydrate-equivalent
// gram across uncovered meals: meals with no dose within an hour.
func estimateCarbFactor(readings []models.GlucoseReading, doses []models.InsulinDose, meals []models.MealRecord, constants *models.PatientConstants) (float64, float64) {
	var values []float64

	for _, m := range meals {
		carbEq := effect.CarbEquivalent(m, constants)
		if carbEq < 10 || hasDoseNear(doses, m.Time(), time.Hour) {
			continue
		}

		before, ok := readingAt(readings, m.Time())
		if !ok {
			continue
		}

		peak := before
		for mins := 30; mins <= 180; mins += 15 {
			v, ok := readingAt(readings, m.Time().Add(time.Duration(mins)*time.Minute))
			if ok && v > peak {
				peak = v
			}
		}

		rise := peak - before
		if rise < 15 {
			continue
		}

		cf := rise / carbEq
		if cf >= 1 && cf <= 10 {
			values = append(values, cf)
		}
	}

	if len(values) < 3 {
		return 0, 0
	}

	conf := math.Min(90, 30+float64(len(values))*5)
	return median(values), conf
}

// readingAt returns the glucose value closest to the target time, if one
// exists within 10 minutes.
func readingAt(readings []models.GlucoseReading, target time.Time) (float64, bool) {
	best := 0.0
	bestDiff := time.Duration(math.MaxInt64)

	for i := range readings {
		diff := readings[i].Time().Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			bestDiff = diff
			best = readings[i].Value
		}
	}

	if bestDiff <= 10*time.Minute {
		return best, true
	}
	return 0, false
}

func hasMealNear(meals []models.MealRecord, at time.Time, within time.Duration) bool {
	for i := range meals {
		diff := meals[i].Time().Sub(at)
		if diff < 0 {
			diff = -diff
		}
		if diff <= within {
			return true
		}
	}
	return false
}

func hasDoseNear(doses []models.InsulinDose, at time.Time, within time.Duration) bool {
	for i := range doses {
		diff := doses[i].Time().Sub(at)
		if diff < 0 {
			diff = -diff
		}
		if diff <= within {
			return true
		}
	}
	return false
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
