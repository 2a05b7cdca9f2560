package viewer

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// drawPanel renders the parameter panel and applies any edits to the live
// configuration. Parameters are read by the simulation thread under the
// mesh lock, so edits are applied under the same lock between steps.
func (v *Viewer) drawPanel() error {
	const (
		panelX = 10
		panelY = 60
		panelW = 280
		rowH   = 28
	)

	rl.DrawRectangle(panelX-4, panelY-4, panelW+8, rowH*5+8, rl.Color{R: 20, G: 20, B: 20, A: 200})

	phys := &v.cfg.Physics
	gravity := float32(phys.Gravity)
	iterations := float32(phys.Iterations)
	maxLen := float32(phys.MaxSpringLength)
	windOn := v.mesh.Wind().Enabled()

	y := int32(panelY)
	gravity = gui.SliderBar(
		rl.Rectangle{X: panelX + 70, Y: float32(y), Width: panelW - 130, Height: 20},
		"gravity", fmt.Sprintf("%.1f", gravity), gravity, 0, 30)
	y += rowH
	iterations = gui.SliderBar(
		rl.Rectangle{X: panelX + 70, Y: float32(y), Width: panelW - 130, Height: 20},
		"iters", fmt.Sprintf("%d", int(iterations)), iterations, 1, 10)
	y += rowH
	maxLen = gui.SliderBar(
		rl.Rectangle{X: panelX + 70, Y: float32(y), Width: panelW - 130, Height: 20},
		"max len", fmt.Sprintf("%.0f", maxLen), maxLen, 0, 200)
	y += rowH
	windOn = gui.CheckBox(
		rl.Rectangle{X: panelX + 70, Y: float32(y), Width: 20, Height: 20},
		"wind", windOn)

	changed := float64(gravity) != phys.Gravity ||
		int(iterations) != phys.Iterations ||
		float64(maxLen) != phys.MaxSpringLength ||
		windOn != v.mesh.Wind().Enabled()
	if !changed {
		return nil
	}

	if err := v.mesh.Lock(); err != nil {
		return err
	}
	defer v.mesh.Unlock()
	phys.Gravity = float64(gravity)
	phys.Iterations = int(iterations)
	phys.MaxSpringLength = float64(maxLen)
	if windOn != v.mesh.Wind().Enabled() {
		v.mesh.Wind().SetEnabled(windOn)
	}
	return nil
}
