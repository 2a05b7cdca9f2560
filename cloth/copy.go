package cloth

import "fmt"

// CreateCopy builds a completely independent mesh of identical topology for
// a consumer thread. Copies share nothing with the original but the arena
// layout: a mass's index is the identity mapping between the two meshes.
// The copy inherits positions, flags and wind state by value and keeps a
// back-reference to the original for UpdateFromOriginal. Copies carry no
// worker pool; Step refuses them.
func (m *Mesh) CreateCopy() (*Mesh, error) {
	if err := m.Lock(); err != nil {
		return nil, fmt.Errorf("creating copy: %w", err)
	}
	defer m.Unlock()

	cp := &Mesh{
		cols:     m.cols,
		rows:     m.rows,
		masses:   make([]Mass, len(m.masses)),
		wind:     m.wind.clone(),
		cfg:      m.cfg,
		original: m,
		mu:       make(chan struct{}, 1),
	}
	for i := range m.masses {
		cp.masses[i] = m.masses[i]
		cp.masses[i].springs = nil
	}
	for _, s := range m.springs {
		cp.AddSpring(s.clone())
	}
	return cp, nil
}

// UpdateFromOriginal reconciles a snapshot against its live mesh: positions
// and flags are value-copied for every grid cell, then the original's
// pending-removal log is drained exactly once and the corresponding copy
// springs are detached. Lock order is fixed - copy first, then original -
// so no circular wait can occur. Calling twice without an intervening
// simulation step degrades to a position-only refresh.
func (c *Mesh) UpdateFromOriginal() error {
	if c.original == nil {
		return fmt.Errorf("cloth: mesh is not a copy")
	}
	if err := c.Lock(); err != nil {
		return fmt.Errorf("updating copy: %w", err)
	}
	defer c.Unlock()

	var removed []*Spring
	err := func() error {
		orig := c.original
		if err := orig.Lock(); err != nil {
			return fmt.Errorf("updating copy: %w", err)
		}
		defer orig.Unlock()

		for i := range orig.masses {
			om := &orig.masses[i]
			cm := &c.masses[i]
			cm.Pos = om.Pos
			cm.Prev = om.Prev
			cm.Normal = om.Normal
			cm.Flags = om.Flags
		}

		// Swap the log for an empty one so entries are never replayed.
		removed = orig.removedSprings
		orig.removedSprings = nil
		return nil
	}()
	if err != nil {
		return err
	}

	for _, rs := range removed {
		if err := c.removeMirroredSpring(rs); err != nil {
			return err
		}
	}
	return nil
}

// removeMirroredSpring locates the copy's counterpart of a spring removed
// from the original - same endpoint indices under the identity mapping -
// detaches it and drops it from the copy's collection. A missing
// counterpart means the mapping is corrupted; that is a structural
// consistency failure, never a silent no-op.
func (c *Mesh) removeMirroredSpring(rs *Spring) error {
	for _, s := range c.masses[rs.M1].springs {
		if s.M1 == rs.M1 && s.M2 == rs.M2 {
			for i, cs := range c.springs {
				if cs == s {
					c.springs = append(c.springs[:i], c.springs[i+1:]...)
					c.masses[s.M1].detach(s)
					c.masses[s.M2].detach(s)
					s.Removed = true
					return nil
				}
			}
		}
	}
	return fmt.Errorf("cloth: removed spring %d-%d has no counterpart in copy", rs.M1, rs.M2)
}
