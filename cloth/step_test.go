package cloth

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// A mesh built at rest has every spring at its rest length, so the solve
// phase produces zero forces and gravity acts alone. One step must then
// displace every non-fixed mass straight down by gravity/mass*dt^2
// (dt^2 = 1 here), the discrete Verlet update.
func TestStepGravityOnlyDisplacement(t *testing.T) {
	cfg := testConfig(4, 4)
	m := testMeshFrom(cfg)
	defer m.Close()

	fixed := m.index(0, 0)
	m.SetFixed(fixed, true)

	before := make([]r3.Vec, len(m.masses))
	for i := range m.masses {
		before[i] = m.masses[i].Pos
	}

	if err := m.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}

	wantDrop := cfg.Physics.Gravity / (cfg.Grid.ParticleMass * cfg.Physics.DTSquared)
	for i := range m.masses {
		got := m.masses[i].Pos
		if int32(i) == fixed {
			if got != before[i] {
				t.Errorf("fixed mass moved from %+v to %+v", before[i], got)
			}
			continue
		}
		if got.X != before[i].X || got.Z != before[i].Z {
			t.Errorf("mass %d drifted horizontally: %+v -> %+v", i, before[i], got)
		}
		drop := before[i].Y - got.Y
		if math.Abs(drop-wantDrop) > 1e-9 {
			t.Errorf("mass %d dropped %v, want %v", i, drop, wantDrop)
		}
		if m.masses[i].Prev != before[i] {
			t.Errorf("mass %d previous position not rotated", i)
		}
	}
}

func TestStepClampsDisplacementToMaxSpeed(t *testing.T) {
	cfg := testConfig(4, 4)
	cfg.Physics.MaxParticleSpeed = 1 // far below the gravity displacement
	m := testMeshFrom(cfg)
	defer m.Close()

	before := m.MassAt(1, 1).Pos
	if err := m.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	moved := r3.Norm(r3.Sub(m.MassAt(1, 1).Pos, before))
	if moved > 1+1e-9 {
		t.Errorf("displacement %v exceeds the speed clamp", moved)
	}
}

func TestStepFloorClamp(t *testing.T) {
	cfg := testConfig(3, 3)
	m := testMeshFrom(cfg)
	defer m.Close()

	// Drop a mass just above the floor with the fall speed implied by a
	// previous position far above.
	idx := m.index(1, 1)
	m.masses[idx].Pos = r3.Vec{X: 0, Y: cfg.Derived.FloorY + 1}
	m.masses[idx].Prev = r3.Vec{X: 0, Y: cfg.Derived.FloorY + 100}

	if err := m.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if y := m.masses[idx].Pos.Y; y < cfg.Derived.FloorY {
		t.Errorf("mass fell through the floor: y = %v, floor = %v", y, cfg.Derived.FloorY)
	}
}

func TestBrokenSpringsRemovedUnlessSelected(t *testing.T) {
	cfg := testConfig(3, 3)
	cfg.Physics.MaxSpringLength = 10
	m := testMeshFrom(cfg)
	defer m.Close()

	s := m.Springs()[0]
	// Stretch the spring far past the breakage threshold.
	m.masses[s.M2].Pos = r3.Add(m.masses[s.M1].Pos, r3.Vec{X: 500})

	// A SELECTED endpoint exempts the spring regardless of length.
	m.SetSelected(s.M1, true)
	before := len(m.Springs())
	m.removeBrokenSprings()
	if len(m.Springs()) != before {
		t.Fatal("spring with a selected endpoint must survive breakage")
	}

	m.SetSelected(s.M1, false)
	m.removeBrokenSprings()
	if len(m.Springs()) != before-1 {
		t.Fatal("over-extended spring was not removed")
	}
	if !s.Removed {
		t.Error("spring not marked removed")
	}
	if len(m.removedSprings) != 1 {
		t.Errorf("removal log has %d entries, want 1", len(m.removedSprings))
	}
}

func TestSpringForceLaw(t *testing.T) {
	m := testMesh(3, 3)
	defer m.Close()

	s := &Spring{M1: m.index(0, 0), M2: m.index(1, 0), RestLen: 10, Coefficient: 2}
	m.masses[s.M1].Pos = r3.Vec{}
	m.masses[s.M2].Pos = r3.Vec{X: 15}

	s.CalcForce(m.masses)
	// Stretched by 5 with stiffness 2: force 10 along +X, directed M1->M2.
	want := r3.Vec{X: 10}
	if math.Abs(s.Force.X-want.X) > 1e-9 || s.Force.Y != 0 || s.Force.Z != 0 {
		t.Errorf("force = %+v, want %+v", s.Force, want)
	}

	// Compressed springs push the endpoints apart.
	m.masses[s.M2].Pos = r3.Vec{X: 5}
	s.CalcForce(m.masses)
	if s.Force.X >= 0 {
		t.Errorf("compressed spring force = %+v, want negative X", s.Force)
	}
}

func TestStepRecomputesNormals(t *testing.T) {
	m := testMesh(4, 4)
	defer m.Close()

	if err := m.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	// A planar grid in the XY plane has +-Z normals everywhere.
	for i := range m.masses {
		n := m.masses[i].Normal
		if math.Abs(math.Abs(n.Z)-1) > 1e-6 {
			t.Errorf("mass %d normal = %+v, want +-Z unit", i, n)
		}
	}
}
