package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollectorBasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseSolve)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseIntegrate)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	if stats.AvgStepDuration <= 0 {
		t.Error("expected positive average step duration")
	}
	if _, ok := stats.PhaseAvg[PhaseSolve]; !ok {
		t.Error("expected solve phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseIntegrate]; !ok {
		t.Error("expected integrate phase to be tracked")
	}
	if stats.PhaseAvg[PhaseIntegrate] <= stats.PhaseAvg[PhaseSolve] {
		t.Error("integrate phase should dominate solve phase in this scenario")
	}
	if stats.MinStepDuration > stats.MaxStepDuration {
		t.Errorf("min %v > max %v", stats.MinStepDuration, stats.MaxStepDuration)
	}
}

func TestPerfCollectorRollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	// Overfill the window; older samples must be overwritten, not grown.
	for i := 0; i < 12; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseSolve)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.AvgStepDuration <= 0 {
		t.Error("expected positive average step duration after window filled")
	}
	if stats.StepsPerSecond <= 0 {
		t.Error("expected positive steps per second")
	}
	if pc.sampleCount != 5 {
		t.Errorf("sample count = %d, want window size 5", pc.sampleCount)
	}
}

func TestPerfCollectorEmpty(t *testing.T) {
	pc := NewPerfCollector(10)
	stats := pc.Stats()

	if stats.AvgStepDuration != 0 {
		t.Error("empty collector should report zero average")
	}
	if len(stats.PhaseAvg) != 0 {
		t.Error("empty collector should report no phases")
	}
}

func TestPerfStatsToRecord(t *testing.T) {
	pc := NewPerfCollector(4)
	pc.StartTick()
	pc.StartPhase(PhaseWind)
	pc.StartPhase(PhaseNormals)
	pc.EndTick()

	rec := pc.Stats().ToRecord(480, 1234)
	if rec.Step != 480 {
		t.Errorf("record step = %d, want 480", rec.Step)
	}
	if rec.Springs != 1234 {
		t.Errorf("record springs = %d, want 1234", rec.Springs)
	}
	if rec.AvgStepUs < 0 {
		t.Error("negative average step duration")
	}
}
