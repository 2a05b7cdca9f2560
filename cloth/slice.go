package cloth

import "math"

// Slice is a rectangular sub-range of the mass grid used as one unit of
// parallel work. Coordinate ranges are half-open: [X0,X1) x [Y0,Y1).
type Slice struct {
	mesh *Mesh

	X0, Y0 int
	X1, Y1 int

	// True when the slice's last column/row is the grid's last column/row.
	// Inside the grid a slice's iterator may read one column/row past its
	// own range (owned by another worker, but read-only during the phase);
	// at the true edge the neighbour is absent.
	AtRightEdge  bool
	AtBottomEdge bool
}

// Iter returns a row-major iterator over the slice. When fetchNeighbours
// is set, Right and Bottom report the grid neighbours of the mass returned
// by the last Next.
func (s *Slice) Iter(fetchNeighbours bool) GridIter {
	return GridIter{s: s, x: s.X0, y: s.Y0, fetch: fetchNeighbours, right: -1, bottom: -1}
}

// GridIter walks a slice in row-major order, optionally yielding the right
// and bottom grid neighbour of each visited mass.
type GridIter struct {
	s     *Slice
	x, y  int
	fetch bool

	cur    int32
	right  int32
	bottom int32
}

// Next advances the iterator. It returns false once the slice is exhausted.
func (it *GridIter) Next() bool {
	if it.y >= it.s.Y1 {
		return false
	}
	m := it.s.mesh
	it.cur = m.index(it.x, it.y)

	if it.fetch {
		// Reading across the slice boundary into the neighbouring tile is
		// safe: positions are not mutated during a neighbour-aware phase.
		if it.s.AtRightEdge && it.x+1 >= it.s.X1 {
			it.right = -1
		} else {
			it.right = m.index(it.x+1, it.y)
		}
		if it.s.AtBottomEdge && it.y+1 >= it.s.Y1 {
			it.bottom = -1
		} else {
			it.bottom = m.index(it.x, it.y+1)
		}
	}

	it.x++
	if it.x >= it.s.X1 {
		it.x = it.s.X0
		it.y++
	}
	return true
}

// Index returns the arena index of the mass returned by the last Next.
func (it *GridIter) Index() int32 { return it.cur }

// Right returns the arena index of the right grid neighbour of the last
// visited mass, or -1 if the mass is in the grid's last column (or the
// iterator was created without neighbour fetching).
func (it *GridIter) Right() int32 { return it.right }

// Bottom returns the arena index of the bottom grid neighbour, or -1 in
// the grid's last row.
func (it *GridIter) Bottom() int32 { return it.bottom }

// splitSlices covers the full grid with near-square tiles whose count
// approximates batchCount. Full-width tiles of side ceil(sqrt(batchCount))
// plus remainder tiles; the union covers every cell exactly once.
func (m *Mesh) splitSlices(batchCount int) []Slice {
	side := int(math.Ceil(math.Sqrt(float64(batchCount))))
	if side < 1 {
		side = 1
	}

	var slices []Slice
	for y0 := 0; y0 < m.rows; y0 += side {
		y1 := y0 + side
		if y1 > m.rows {
			y1 = m.rows
		}
		for x0 := 0; x0 < m.cols; x0 += side {
			x1 := x0 + side
			if x1 > m.cols {
				x1 = m.cols
			}
			slices = append(slices, Slice{
				mesh:         m,
				X0:           x0,
				Y0:           y0,
				X1:           x1,
				Y1:           y1,
				AtRightEdge:  x1 == m.cols,
				AtBottomEdge: y1 == m.rows,
			})
		}
	}
	return slices
}
