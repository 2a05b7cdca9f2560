// Package cloth implements a parallel spring-mass simulation of a deformable
// 2D mesh: a grid of point masses connected by springs, advanced with Verlet
// integration under gravity, damping and a stochastic wind field. Per-step
// work is fanned out over a fixed worker pool; a consumer thread reads a
// structurally consistent view of the mesh through the copy protocol in
// copy.go without blocking the simulation.
package cloth

import "gonum.org/v1/gonum/spatial/r3"

// Flags are per-mass state bits.
type Flags uint8

const (
	// FlagFixed pins a mass in place; the integrator never moves it.
	FlagFixed Flags = 1 << iota
	// FlagSelected marks a mass currently manipulated by the user.
	// Selected masses are not integrated and their springs never break.
	FlagSelected
)

// Color is a display color carried by masses and springs. The core never
// interprets it; the viewer maps it to screen colors.
type Color struct {
	R, G, B uint8
}

// Mass is a single point of the mesh. Masses live in the mesh's arena and
// are addressed by flat index; springs reference them by that index.
type Mass struct {
	Pos    r3.Vec // Current position
	Prev   r3.Vec // Position at the previous integration step
	Normal r3.Vec // Averaged surface normal, recomputed each step
	M      float64
	Flags  Flags
	Color  Color

	// Springs incident to this mass, in attachment order. A spring appears
	// in both endpoints' lists; the force sign is derived from which
	// endpoint the mass is.
	springs []*Spring
}

// Fixed reports whether the integrator must leave this mass in place.
func (m *Mass) Fixed() bool { return m.Flags&FlagFixed != 0 }

// Selected reports whether the mass is under user manipulation.
func (m *Mass) Selected() bool { return m.Flags&FlagSelected != 0 }

// Springs returns the springs incident to this mass.
func (m *Mass) Springs() []*Spring { return m.springs }

func (m *Mass) attach(s *Spring) {
	m.springs = append(m.springs, s)
}

func (m *Mass) detach(s *Spring) {
	for i, ms := range m.springs {
		if ms == s {
			m.springs = append(m.springs[:i], m.springs[i+1:]...)
			return
		}
	}
}

// SquaredDistanceTo returns the squared distance from the mass's current
// position to p.
func (m *Mass) SquaredDistanceTo(p r3.Vec) float64 {
	return r3.Norm2(r3.Sub(m.Pos, p))
}

// clampMagnitude limits v to the given maximum length.
func clampMagnitude(v r3.Vec, limit float64) r3.Vec {
	n2 := r3.Norm2(v)
	if n2 <= limit*limit || n2 == 0 {
		return v
	}
	return r3.Scale(limit, r3.Unit(v))
}
