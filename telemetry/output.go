package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/drape/config"
)

// PerfRecord is one perf.csv row: windowed timing aggregates at a step.
type PerfRecord struct {
	Step        uint64  `csv:"step"`
	AvgStepUs   int64   `csv:"avg_step_us"`
	MinStepUs   int64   `csv:"min_step_us"`
	MaxStepUs   int64   `csv:"max_step_us"`
	StepsPerSec float64 `csv:"steps_per_sec"`
	WindUs      int64   `csv:"wind_us"`
	SolveUs     int64   `csv:"solve_us"`
	BreakUs     int64   `csv:"break_us"`
	IntegrateUs int64   `csv:"integrate_us"`
	NormalsUs   int64   `csv:"normals_us"`
	Springs     int     `csv:"springs"`
}

// ToRecord flattens window stats into a CSV row.
func (s PerfStats) ToRecord(step uint64, springCount int) PerfRecord {
	return PerfRecord{
		Step:        step,
		AvgStepUs:   s.AvgStepDuration.Microseconds(),
		MinStepUs:   s.MinStepDuration.Microseconds(),
		MaxStepUs:   s.MaxStepDuration.Microseconds(),
		StepsPerSec: s.StepsPerSecond,
		WindUs:      s.PhaseAvg[PhaseWind].Microseconds(),
		SolveUs:     s.PhaseAvg[PhaseSolve].Microseconds(),
		BreakUs:     s.PhaseAvg[PhaseBreak].Microseconds(),
		IntegrateUs: s.PhaseAvg[PhaseIntegrate].Microseconds(),
		NormalsUs:   s.PhaseAvg[PhaseNormals].Microseconds(),
		Springs:     springCount,
	}
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir      string
	perfFile *os.File

	perfHeaderWritten bool
}

// NewOutputManager creates an output manager rooted at dir.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}

	return &OutputManager{dir: dir, perfFile: f}, nil
}

// WriteConfig saves the effective configuration as YAML next to the CSVs.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WritePerf appends a perf record to perf.csv.
func (om *OutputManager) WritePerf(rec PerfRecord) error {
	if om == nil {
		return nil
	}

	records := []PerfRecord{rec}
	if !om.perfHeaderWritten {
		if err := gocsv.Marshal(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
		om.perfHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.perfFile); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes the output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	return om.perfFile.Close()
}
