package viewer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Interaction radii in world units.
const (
	pickRadius = 15.0
	cutRadius  = 8.0
)

// handleInput processes mouse and keyboard input. All live-mesh mutation
// happens here, under the mesh lock.
func (v *Viewer) handleInput() error {
	mouse := rl.GetMousePosition()
	world := v.toWorld(mouse)

	if rl.IsKeyPressed(rl.KeySpace) {
		v.runner.SetPaused(!v.runner.Paused())
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		v.showPanel = !v.showPanel
	}
	if rl.IsKeyPressed(rl.KeyN) && v.runner.Paused() {
		if err := v.runner.StepOnce(); err != nil {
			return err
		}
	}

	// Drag: select the nearest mass on press, move it while held,
	// deselect on release. Selected masses are ignored by the integrator
	// and exempt from spring breakage.
	if rl.IsMouseButtonPressed(rl.MouseLeftButton) {
		if err := v.mesh.Lock(); err != nil {
			return err
		}
		if idx, ok := v.mesh.NearestMass(world, pickRadius*pickRadius); ok {
			v.mesh.SetSelected(idx, true)
			v.dragged = idx
		}
		v.mesh.Unlock()
	}
	if v.dragged >= 0 && rl.IsMouseButtonDown(rl.MouseLeftButton) {
		if err := v.mesh.Lock(); err != nil {
			return err
		}
		v.mesh.MoveMass(v.dragged, world)
		v.mesh.Unlock()
	}
	if v.dragged >= 0 && rl.IsMouseButtonReleased(rl.MouseLeftButton) {
		if err := v.mesh.Lock(); err != nil {
			return err
		}
		v.mesh.SetSelected(v.dragged, false)
		v.mesh.Unlock()
		v.dragged = -1
	}

	// Cut springs under the cursor.
	if rl.IsMouseButtonDown(rl.MouseRightButton) {
		if err := v.mesh.Lock(); err != nil {
			return err
		}
		for _, s := range v.mesh.SpringsNear(world, cutRadius) {
			if err := v.mesh.RemoveSpring(s); err != nil {
				v.mesh.Unlock()
				return err
			}
		}
		v.mesh.Unlock()
	}

	// Toggle pinning of the nearest mass.
	if rl.IsKeyPressed(rl.KeyP) {
		if err := v.mesh.Lock(); err != nil {
			return err
		}
		if idx, ok := v.mesh.NearestMass(world, pickRadius*pickRadius); ok {
			v.mesh.SetFixed(idx, !v.mesh.Masses()[idx].Fixed())
		}
		v.mesh.Unlock()
	}

	// Toggle wind.
	if rl.IsKeyPressed(rl.KeyW) {
		if err := v.mesh.Lock(); err != nil {
			return err
		}
		v.mesh.Wind().SetEnabled(!v.mesh.Wind().Enabled())
		v.mesh.Unlock()
	}

	return nil
}
