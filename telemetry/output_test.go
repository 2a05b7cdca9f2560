package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}
	if om != nil {
		t.Fatal("empty dir should disable output")
	}
	// All methods must be nil-safe.
	if err := om.WritePerf(PerfRecord{}); err != nil {
		t.Errorf("WritePerf on nil manager: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("Close on nil manager: %v", err)
	}
}

func TestOutputManagerWritesPerfCSV(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	if err := om.WritePerf(PerfRecord{Step: 100, AvgStepUs: 1500, Springs: 50}); err != nil {
		t.Fatalf("WritePerf: %v", err)
	}
	if err := om.WritePerf(PerfRecord{Step: 200, AvgStepUs: 1600, Springs: 49}); err != nil {
		t.Fatalf("WritePerf: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "perf.csv"))
	if err != nil {
		t.Fatalf("reading perf.csv: %v", err)
	}
	content := string(data)

	if got := strings.Count(content, "avg_step_us"); got != 1 {
		t.Errorf("header written %d times, want once", got)
	}
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 3 {
		t.Errorf("perf.csv has %d lines, want header + 2 records", len(lines))
	}
	if !strings.Contains(content, "1500") || !strings.Contains(content, "1600") {
		t.Error("perf.csv missing record values")
	}
}
