package cloth

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/drape/telemetry"
)

// forceContext carries the per-phase constants of one integration pass.
type forceContext struct {
	gravity       r3.Vec
	wind          r3.Vec
	windDirection r3.Vec // unit
	applyWind     bool

	dtSquared float64
	damping   float64
	maxSpeed  float64
	floorY    float64
}

// Step advances the simulation by one full step: advance wind, then
// iterations x (solve constraints -> break springs -> integrate), then
// recompute normals. Gravity and wind are applied only on the final
// iteration. The mesh lock is held for the whole step; every parallel
// phase ends in a full barrier, so no phase observes a partially updated
// predecessor.
func (m *Mesh) Step() error {
	if m.original != nil {
		return fmt.Errorf("cloth: mesh is a snapshot copy, not steppable")
	}
	if err := m.Lock(); err != nil {
		return err
	}
	defer m.Unlock()

	if m.perf != nil {
		m.perf.StartTick()
		defer m.perf.EndTick()
	}

	m.startPhase(telemetry.PhaseWind)
	m.wind.Step()

	gravity := r3.Vec{Y: -m.cfg.Physics.Gravity}
	springsCanBreak := m.cfg.Physics.MaxSpringLength > 0

	for count := m.cfg.Physics.Iterations; count > 0; count-- {
		m.startPhase(telemetry.PhaseSolve)
		if err := m.solveConstraints(); err != nil {
			return fmt.Errorf("solving constraints: %w", err)
		}

		if springsCanBreak {
			m.startPhase(telemetry.PhaseBreak)
			m.removeBrokenSprings()
		}

		m.startPhase(telemetry.PhaseIntegrate)
		var err error
		if count == 1 {
			err = m.applyForces(gravity, m.wind.Enabled())
		} else {
			// Gravity only once per step, wind with it.
			err = m.applyForces(r3.Vec{}, false)
		}
		if err != nil {
			return fmt.Errorf("integrating: %w", err)
		}
	}

	m.startPhase(telemetry.PhaseNormals)
	if err := m.calculateNormals(); err != nil {
		return fmt.Errorf("recomputing normals: %w", err)
	}
	return nil
}

func (m *Mesh) startPhase(name string) {
	if m.perf != nil {
		m.perf.StartPhase(name)
	}
}

// solveConstraints recomputes every spring's restoring force in parallel.
// Springs are independent, so chunk boundaries are arbitrary.
func (m *Mesh) solveConstraints() error {
	springs := m.springs
	ranges := chunkRanges(len(springs), m.cfg.Derived.BatchCount)
	if ranges == nil {
		return nil
	}
	return m.pool.RunPhase(len(ranges), func(i int) {
		for _, s := range springs[ranges[i][0]:ranges[i][1]] {
			s.CalcForce(m.masses)
		}
	})
}

// removeBrokenSprings drops every spring whose squared length exceeds the
// configured maximum, unless an endpoint is SELECTED (springs never tear
// out from under the user's cursor). Mutates the shared collection, so it
// runs single-threaded inside the step's exclusive region.
func (m *Mesh) removeBrokenSprings() {
	maxSq := m.cfg.Physics.MaxSpringLength * m.cfg.Physics.MaxSpringLength
	kept := m.springs[:0]
	for _, s := range m.springs {
		if s.LengthSquared(m.masses) > maxSq &&
			!m.masses[s.M1].Selected() && !m.masses[s.M2].Selected() {
			m.detachSpring(s)
			continue
		}
		kept = append(kept, s)
	}
	m.springs = kept
}

// applyForces runs the Verlet position update for every mass. With wind
// active the grid is partitioned into neighbour-aware slices (the wind
// force needs each vertex's right and bottom neighbour); otherwise flat
// index ranges suffice. Each mass is written by exactly one worker.
func (m *Mesh) applyForces(gravity r3.Vec, applyWind bool) error {
	ctx := forceContext{
		gravity:   gravity,
		applyWind: applyWind,
		dtSquared: m.cfg.Physics.DTSquared,
		damping:   m.cfg.Physics.Damping,
		maxSpeed:  m.cfg.Physics.MaxParticleSpeed,
		floorY:    m.cfg.Derived.FloorY,
	}
	if applyWind {
		ctx.wind = m.wind.CurrentWindVector()
		if n := r3.Norm2(ctx.wind); n > 0 {
			ctx.windDirection = r3.Unit(ctx.wind)
		} else {
			ctx.applyWind = false
		}
	}

	if ctx.applyWind {
		slices := m.splitSlices(m.cfg.Derived.BatchCount)
		return m.pool.RunPhase(len(slices), func(i int) {
			it := slices[i].Iter(true)
			for it.Next() {
				m.integrateMass(it.Index(), it.Right(), it.Bottom(), &ctx)
			}
		})
	}

	ranges := chunkRanges(len(m.masses), m.cfg.Derived.BatchCount)
	return m.pool.RunPhase(len(ranges), func(i int) {
		for mi := ranges[i][0]; mi < ranges[i][1]; mi++ {
			m.integrateMass(int32(mi), -1, -1, &ctx)
		}
	})
}

// integrateMass applies one Verlet update to the mass at index mi.
// right/bottom are the neighbour indices for the wind force, -1 if absent.
func (m *Mesh) integrateMass(mi, right, bottom int32, ctx *forceContext) {
	mass := &m.masses[mi]
	if mass.Flags&(FlagFixed|FlagSelected) != 0 {
		return
	}

	// Sum incident spring forces; force vectors point M1 -> M2.
	var sum r3.Vec
	for _, s := range mass.springs {
		if s.M1 == mi {
			sum = r3.Add(sum, s.Force)
		} else {
			sum = r3.Sub(sum, s.Force)
		}
	}

	if ctx.applyWind && right >= 0 && bottom >= 0 {
		sum = r3.Add(sum, m.windForceAt(mass, right, bottom, ctx))
	}

	sum = r3.Add(sum, ctx.gravity)

	delta := r3.Sub(mass.Pos, mass.Prev)
	sum = r3.Sub(sum, r3.Scale(ctx.damping, delta))
	sum = r3.Scale(1/(mass.M*ctx.dtSquared), sum)

	delta = clampMagnitude(r3.Add(delta, sum), ctx.maxSpeed)

	prev := mass.Pos
	mass.Pos = r3.Add(mass.Pos, delta)
	if mass.Pos.Y < ctx.floorY {
		mass.Pos.Y = ctx.floorY
	}
	mass.Prev = prev
}

// windForceAt scales the ambient wind by the absolute cosine of the angle
// between the wind direction and the local surface normal, approximated
// from the edge vectors to the right and bottom neighbours. Grazing wind
// has near-zero effect, perpendicular wind full effect.
func (m *Mesh) windForceAt(mass *Mass, right, bottom int32, ctx *forceContext) r3.Vec {
	v1 := r3.Sub(m.masses[right].Pos, mass.Pos)
	v2 := r3.Sub(m.masses[bottom].Pos, mass.Pos)
	cross := r3.Cross(v1, v2)
	n := r3.Norm(cross)
	if n == 0 {
		return r3.Vec{}
	}
	angle := r3.Dot(ctx.windDirection, r3.Scale(1/n, cross))
	if angle < 0 {
		angle = -angle
	}
	return r3.Scale(angle, ctx.wind)
}

// calculateNormals recomputes every mass's averaged surface normal in
// parallel per slice. Neighbour positions are read across slice boundaries
// against the full grid bounds; positions are not mutated in this phase.
func (m *Mesh) calculateNormals() error {
	slices := m.splitSlices(m.cfg.Derived.BatchCount)
	return m.pool.RunPhase(len(slices), func(i int) {
		s := &slices[i]
		for y := s.Y0; y < s.Y1; y++ {
			for x := s.X0; x < s.X1; x++ {
				m.calculateAveragedNormal(x, y)
			}
		}
	})
}

// calculateAveragedNormal averages the cross products of the edge-vector
// pairs of up to four adjacent grid quadrants.
func (m *Mesh) calculateAveragedNormal(x, y int) {
	mass := &m.masses[m.index(x, y)]
	pos := mass.Pos

	edge := func(col, row int) r3.Vec {
		return r3.Sub(m.masses[m.index(col, row)].Pos, pos)
	}

	var normal r3.Vec
	count := 0
	if x+1 < m.cols && y+1 < m.rows {
		normal = r3.Add(normal, r3.Cross(edge(x+1, y), edge(x, y+1)))
		count++
	}
	if x+1 < m.cols && y-1 >= 0 {
		normal = r3.Add(normal, r3.Cross(edge(x, y-1), edge(x+1, y)))
		count++
	}
	if x-1 >= 0 && y-1 >= 0 {
		normal = r3.Add(normal, r3.Cross(edge(x-1, y), edge(x, y-1)))
		count++
	}
	if x-1 >= 0 && y+1 < m.rows {
		normal = r3.Add(normal, r3.Cross(edge(x, y+1), edge(x-1, y)))
		count++
	}
	if count == 0 {
		return
	}
	normal = r3.Scale(1/float64(count), normal)
	if r3.Norm2(normal) > 0 {
		normal = r3.Unit(normal)
	}
	mass.Normal = normal
}
