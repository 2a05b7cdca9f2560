package cloth

import "testing"

func TestSplitSlicesCoversGridExactly(t *testing.T) {
	tests := []struct {
		name       string
		cols, rows int
		batchCount int
	}{
		{"single batch", 4, 4, 1},
		{"even split", 8, 8, 4},
		{"remainder tiles", 10, 7, 9},
		{"more batches than cells", 3, 3, 64},
		{"wide grid", 17, 2, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testMesh(tt.cols, tt.rows)
			defer m.Close()

			covered := make([]int, tt.cols*tt.rows)
			for _, s := range m.splitSlices(tt.batchCount) {
				if s.X0 >= s.X1 || s.Y0 >= s.Y1 {
					t.Fatalf("empty slice %+v", s)
				}
				if s.AtRightEdge != (s.X1 == tt.cols) {
					t.Errorf("slice %+v: AtRightEdge=%v, want %v", s, s.AtRightEdge, s.X1 == tt.cols)
				}
				if s.AtBottomEdge != (s.Y1 == tt.rows) {
					t.Errorf("slice %+v: AtBottomEdge=%v, want %v", s, s.AtBottomEdge, s.Y1 == tt.rows)
				}
				for y := s.Y0; y < s.Y1; y++ {
					for x := s.X0; x < s.X1; x++ {
						covered[y*tt.cols+x]++
					}
				}
			}
			for i, c := range covered {
				if c != 1 {
					t.Fatalf("cell %d covered %d times, want exactly once", i, c)
				}
			}
		})
	}
}

func TestSliceIteratorRowMajorOrder(t *testing.T) {
	m := testMesh(6, 6)
	defer m.Close()

	s := Slice{mesh: m, X0: 1, Y0: 2, X1: 4, Y1: 5}
	it := s.Iter(false)

	var got []int32
	for it.Next() {
		got = append(got, it.Index())
	}
	if len(got) != 9 {
		t.Fatalf("visited %d cells, want 9", len(got))
	}
	i := 0
	for y := 2; y < 5; y++ {
		for x := 1; x < 4; x++ {
			if got[i] != m.index(x, y) {
				t.Fatalf("position %d: got index %d, want %d", i, got[i], m.index(x, y))
			}
			i++
		}
	}
}

func TestSliceIteratorNeighbours(t *testing.T) {
	const cols, rows = 6, 6
	m := testMesh(cols, rows)
	defer m.Close()

	// Interior slice: neighbours must be present everywhere, including
	// reads across the slice boundary into the adjacent tiles.
	interior := Slice{mesh: m, X0: 0, Y0: 0, X1: 3, Y1: 3}
	it := interior.Iter(true)
	for it.Next() {
		if it.Right() != it.Index()+1 {
			t.Errorf("index %d: right neighbour %d, want %d", it.Index(), it.Right(), it.Index()+1)
		}
		if it.Bottom() != it.Index()+cols {
			t.Errorf("index %d: bottom neighbour %d, want %d", it.Index(), it.Bottom(), it.Index()+cols)
		}
	}

	// Corner slice at the grid's true edge: neighbours absent exactly at
	// the last column/row.
	corner := Slice{mesh: m, X0: 3, Y0: 3, X1: cols, Y1: rows, AtRightEdge: true, AtBottomEdge: true}
	it = corner.Iter(true)
	for it.Next() {
		x := int(it.Index()) % cols
		y := int(it.Index()) / cols

		wantRight := m.index(x+1, y)
		if x == cols-1 {
			wantRight = -1
		}
		if it.Right() != wantRight {
			t.Errorf("(%d,%d): right neighbour %d, want %d", x, y, it.Right(), wantRight)
		}

		wantBottom := m.index(x, y+1)
		if y == rows-1 {
			wantBottom = -1
		}
		if it.Bottom() != wantBottom {
			t.Errorf("(%d,%d): bottom neighbour %d, want %d", x, y, it.Bottom(), wantBottom)
		}
	}
}
