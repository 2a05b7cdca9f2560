package telemetry

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// StepStats summarizes step durations (in microseconds) over a run.
type StepStats struct {
	Mean float64
	P10  float64
	P50  float64
	P90  float64
}

// ComputeStepStats returns mean and percentiles of the given step
// durations. The input is not modified. Returns zeros for empty input.
func ComputeStepStats(stepMicros []float64) StepStats {
	if len(stepMicros) == 0 {
		return StepStats{}
	}
	sorted := make([]float64, len(stepMicros))
	copy(sorted, stepMicros)
	sort.Float64s(sorted)

	return StepStats{
		Mean: stat.Mean(sorted, nil),
		P10:  stat.Quantile(0.1, stat.Empirical, sorted, nil),
		P50:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:  stat.Quantile(0.9, stat.Empirical, sorted, nil),
	}
}

// Log emits the run summary via slog.
func (s StepStats) Log(steps int) {
	slog.Info("run summary",
		"steps", steps,
		"mean_us", s.Mean,
		"p10_us", s.P10,
		"p50_us", s.P50,
		"p90_us", s.P90,
	)
}

// StepTimer accumulates per-step durations over a whole run for an
// end-of-run summary.
type StepTimer struct {
	micros []float64
}

// Record adds one step duration.
func (t *StepTimer) Record(d time.Duration) {
	t.micros = append(t.micros, float64(d.Microseconds()))
}

// Steps returns the number of recorded steps.
func (t *StepTimer) Steps() int { return len(t.micros) }

// Summary returns mean and percentiles over all recorded steps.
func (t *StepTimer) Summary() StepStats {
	return ComputeStepStats(t.micros)
}
