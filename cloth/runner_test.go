package cloth

import (
	"testing"
	"time"
)

func TestRunnerStepsAndStops(t *testing.T) {
	cfg := testConfig(4, 4)
	cfg.Physics.FrameDelayMillis = 1
	m := testMeshFrom(cfg)

	r := NewRunner(m)
	r.Start()

	frame := r.WaitFrame(0)
	if frame == 0 {
		t.Error("no frame completed")
	}
	// The consumer can pace itself on consecutive frames.
	if next := r.WaitFrame(frame); next <= frame && !r.Paused() {
		t.Errorf("frame counter did not advance past %d", frame)
	}

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestRunnerWakesWaitersWhenStepFails(t *testing.T) {
	cfg := testConfig(4, 4)
	cfg.Physics.FrameDelayMillis = 1
	m := testMeshFrom(cfg)

	// Close the pool up front so the first step fails and the loop dies
	// without anyone calling Stop.
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewRunner(m)

	released := make(chan uint64, 1)
	go func() {
		released <- r.WaitFrame(0)
	}()

	r.Start()

	select {
	case frame := <-released:
		if frame != 0 {
			t.Errorf("dead runner reported frame %d, want 0", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitFrame still blocked after the runner died on a step error")
	}
}

func TestRunnerPauseAndSingleStep(t *testing.T) {
	cfg := testConfig(4, 4)
	cfg.Physics.FrameDelayMillis = 1
	m := testMeshFrom(cfg)

	r := NewRunner(m)
	r.SetPaused(true)
	r.Start()

	time.Sleep(20 * time.Millisecond)
	if f := r.Frame(); f != 0 {
		t.Fatalf("paused runner completed %d frames, want 0", f)
	}

	if err := r.StepOnce(); err != nil {
		t.Fatalf("StepOnce: %v", err)
	}
	if f := r.Frame(); f != 1 {
		t.Errorf("frame counter = %d after single step, want 1", f)
	}

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
