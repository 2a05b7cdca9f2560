package cloth

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/drape/config"
	"github.com/pthm-cable/drape/telemetry"
)

// lockTimeout bounds every acquisition of a mesh lock. Failing to acquire
// within this bound indicates a deadlock or a stuck worker; the mesh must
// be treated as unrecoverable.
const lockTimeout = 5 * time.Second

// ErrLockTimeout is returned when a mesh lock could not be acquired within
// lockTimeout. Callers should tear down the simulation rather than proceed
// with a potentially inconsistent mesh.
var ErrLockTimeout = errors.New("cloth: mesh lock not acquired within timeout")

// Mesh owns the mass arena and the spring collection of one cloth instance.
// The whole mesh (grid, springs, wind state) is guarded by a single lock;
// all exported mutating operations must be called with the lock held unless
// documented otherwise.
type Mesh struct {
	cols, rows int

	masses  []Mass
	springs []*Spring

	// Springs removed since the last UpdateFromOriginal drain.
	removedSprings []*Spring

	wind *WindSimulator
	cfg  *config.Config
	pool *Pool
	rng  *rand.Rand
	perf *telemetry.PerfCollector

	// Set on copies only: the live mesh this snapshot mirrors.
	original *Mesh

	mu chan struct{} // 1-buffered; holding the token means holding the lock
}

// NewMesh builds a planar cloth grid from the configuration: masses laid
// out over x_resolution x y_resolution with row 0 at the top, every
// pin_interval-th mass of the top row fixed, and structural, shear and
// bend springs attached. The mesh owns a worker pool sized to the machine.
func NewMesh(cfg *config.Config, rng *rand.Rand) *Mesh {
	cols, rows := cfg.Grid.Columns, cfg.Grid.Rows
	m := &Mesh{
		cols:   cols,
		rows:   rows,
		masses: make([]Mass, cols*rows),
		wind:   NewWindSimulator(rng, cfg.Wind),
		cfg:    cfg,
		pool:   NewPool(0, cfg.Derived.BatchCount*2),
		rng:    rng,
		mu:     make(chan struct{}, 1),
	}

	sx, sy := cfg.Derived.SpacingX, cfg.Derived.SpacingY
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			mass := &m.masses[m.index(col, row)]
			mass.Pos = r3.Vec{X: float64(col) * sx, Y: cfg.Grid.YResolution - float64(row)*sy}
			mass.Prev = mass.Pos
			mass.M = cfg.Grid.ParticleMass
			mass.Color = Color{R: 64, G: 128, B: 64}
			if row == 0 && cfg.Grid.PinInterval > 0 && col%cfg.Grid.PinInterval == 0 {
				mass.Flags |= FlagFixed
			}
		}
	}

	structural := Color{R: 120, G: 120, B: 120}
	shear := Color{R: 80, G: 80, B: 80}
	sc := cfg.Springs
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if col+1 < cols {
				m.AddSpring(m.newSpring(col, row, col+1, row, sc.StructuralCoefficient, true, structural))
			}
			if row+1 < rows {
				m.AddSpring(m.newSpring(col, row, col, row+1, sc.StructuralCoefficient, true, structural))
			}
			// Shear springs keep the grid cells from collapsing diagonally.
			if col+1 < cols && row+1 < rows {
				m.AddSpring(m.newSpring(col, row, col+1, row+1, sc.ShearCoefficient, sc.RenderShear, shear))
				m.AddSpring(m.newSpring(col+1, row, col, row+1, sc.ShearCoefficient, sc.RenderShear, shear))
			}
			// Bend springs resist folding; never rendered.
			if col+2 < cols {
				m.AddSpring(m.newSpring(col, row, col+2, row, sc.BendCoefficient, false, shear))
			}
			if row+2 < rows {
				m.AddSpring(m.newSpring(col, row, col, row+2, sc.BendCoefficient, false, shear))
			}
		}
	}
	return m
}

func (m *Mesh) newSpring(c1, r1, c2, r2 int, coefficient float64, render bool, color Color) *Spring {
	i1, i2 := m.index(c1, r1), m.index(c2, r2)
	return &Spring{
		M1:          i1,
		M2:          i2,
		RestLen:     r3.Norm(r3.Sub(m.masses[i2].Pos, m.masses[i1].Pos)),
		Coefficient: coefficient,
		Render:      render,
		Color:       color,
	}
}

// Columns returns the grid column count.
func (m *Mesh) Columns() int { return m.cols }

// Rows returns the grid row count.
func (m *Mesh) Rows() int { return m.rows }

func (m *Mesh) index(col, row int) int32 {
	return int32(row*m.cols + col)
}

// MassAt returns the mass at the given grid cell.
func (m *Mesh) MassAt(col, row int) *Mass {
	return &m.masses[m.index(col, row)]
}

// Masses exposes the mass arena. Callers must hold the mesh lock while the
// simulation is running.
func (m *Mesh) Masses() []Mass { return m.masses }

// Springs exposes the live spring collection under the same discipline.
func (m *Mesh) Springs() []*Spring { return m.springs }

// Wind returns the mesh's wind simulator.
func (m *Mesh) Wind() *WindSimulator { return m.wind }

// SetPerfCollector installs a collector that receives per-phase timings
// from Step. Pass nil to disable.
func (m *Mesh) SetPerfCollector(p *telemetry.PerfCollector) { m.perf = p }

// Lock acquires the mesh lock, waiting at most lockTimeout. A timeout is a
// programming error (deadlock or runaway phase), not a retryable condition.
func (m *Mesh) Lock() error {
	timer := time.NewTimer(lockTimeout)
	defer timer.Stop()
	select {
	case m.mu <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w (%s)", ErrLockTimeout, lockTimeout)
	}
}

// Unlock releases the mesh lock.
func (m *Mesh) Unlock() {
	<-m.mu
}

// AddSpring registers s in the global spring collection and in both
// endpoints' adjacency. Caller must hold the mesh lock.
func (m *Mesh) AddSpring(s *Spring) {
	m.masses[s.M1].attach(s)
	m.masses[s.M2].attach(s)
	m.springs = append(m.springs, s)
}

// RemoveSpring detaches s from both endpoints, removes it from the live
// collection and records it in the pending-removal log consumed by
// UpdateFromOriginal. Returns an error if s is not part of this mesh.
// Caller must hold the mesh lock.
func (m *Mesh) RemoveSpring(s *Spring) error {
	for i, ms := range m.springs {
		if ms == s {
			m.springs = append(m.springs[:i], m.springs[i+1:]...)
			m.detachSpring(s)
			return nil
		}
	}
	return fmt.Errorf("cloth: spring %d-%d not present in mesh", s.M1, s.M2)
}

// detachSpring unhooks s from both endpoints' adjacency, marks it removed
// and logs it for the snapshot protocol.
func (m *Mesh) detachSpring(s *Spring) {
	m.masses[s.M1].detach(s)
	m.masses[s.M2].detach(s)
	s.Removed = true
	m.removedSprings = append(m.removedSprings, s)
}

// NearestMass scans all masses for the one closest to pos, rejecting the
// best candidate if its squared distance exceeds maxDistSquared. Linear in
// the grid size; used for interactive picking only, never per frame of the
// simulation.
func (m *Mesh) NearestMass(pos r3.Vec, maxDistSquared float64) (int32, bool) {
	best := int32(-1)
	closest := 0.0
	for i := range m.masses {
		d := m.masses[i].SquaredDistanceTo(pos)
		if best < 0 || d < closest {
			best = int32(i)
			closest = d
		}
	}
	if best < 0 || closest > maxDistSquared {
		return -1, false
	}
	return best, true
}

// SpringsNear returns the rendered springs whose midpoint lies within
// maxDist of pos. Used by the viewer's cutting tool. Caller must hold the
// mesh lock.
func (m *Mesh) SpringsNear(pos r3.Vec, maxDist float64) []*Spring {
	var result []*Spring
	maxSq := maxDist * maxDist
	for _, s := range m.springs {
		if !s.Render {
			continue
		}
		mid := r3.Scale(0.5, r3.Add(m.masses[s.M1].Pos, m.masses[s.M2].Pos))
		if r3.Norm2(r3.Sub(mid, pos)) <= maxSq {
			result = append(result, s)
		}
	}
	return result
}

// SetFixed pins or unpins a mass. Caller must hold the mesh lock.
func (m *Mesh) SetFixed(idx int32, fixed bool) {
	if fixed {
		m.masses[idx].Flags |= FlagFixed
	} else {
		m.masses[idx].Flags &^= FlagFixed
	}
}

// SetSelected marks or unmarks a mass as under user manipulation.
// Caller must hold the mesh lock.
func (m *Mesh) SetSelected(idx int32, selected bool) {
	if selected {
		m.masses[idx].Flags |= FlagSelected
	} else {
		m.masses[idx].Flags &^= FlagSelected
	}
}

// MoveMass teleports a mass to pos, zeroing its implicit velocity so the
// drag does not fling it. Caller must hold the mesh lock.
func (m *Mesh) MoveMass(idx int32, pos r3.Vec) {
	m.masses[idx].Pos = pos
	m.masses[idx].Prev = pos
}

// Close drains the worker pool, waiting up to the configured shutdown
// bound for in-flight tasks.
func (m *Mesh) Close() error {
	if m.pool == nil {
		return nil
	}
	timeout := time.Duration(m.cfg.Parallel.ShutdownSeconds * float64(time.Second))
	return m.pool.Close(timeout)
}
