package cloth

import "gonum.org/v1/gonum/spatial/r3"

// Spring is a constraint between exactly two masses, referenced by arena
// index. Force is recomputed every solve phase and consumed by the
// integrator; it is stored directed from M1 towards M2.
type Spring struct {
	M1, M2      int32
	RestLen     float64
	Coefficient float64

	Force r3.Vec

	Removed bool
	Render  bool // Whether the viewer draws this spring
	Color   Color
}

// CalcForce recomputes the restoring force from the current endpoint
// positions: magnitude coefficient*(length-restLen), directed M1 -> M2.
// Safe to call concurrently for distinct springs; positions are not
// mutated during the solve phase.
func (s *Spring) CalcForce(masses []Mass) {
	d := r3.Sub(masses[s.M2].Pos, masses[s.M1].Pos)
	length := r3.Norm(d)
	if length == 0 {
		s.Force = r3.Vec{}
		return
	}
	s.Force = r3.Scale(s.Coefficient*(length-s.RestLen)/length, d)
}

// LengthSquared returns the squared distance between the endpoints.
func (s *Spring) LengthSquared(masses []Mass) float64 {
	return r3.Norm2(r3.Sub(masses[s.M2].Pos, masses[s.M1].Pos))
}

// clone returns a copy of the spring with force and flags preserved.
// Endpoint indices carry over unchanged: a copied mesh uses the same
// arena layout as its original.
func (s *Spring) clone() *Spring {
	c := *s
	return &c
}
