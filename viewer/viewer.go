// Package viewer renders the cloth interactively and hosts all user
// interaction. It is the consumer side of the snapshot protocol: it owns a
// copy mesh, reconciles it against the live mesh once per frame and draws
// exclusively from the copy, so rendering never contends with the
// simulation beyond the brief refresh.
package viewer

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/drape/cloth"
	"github.com/pthm-cable/drape/config"
)

// Viewer drives the render loop and input handling.
type Viewer struct {
	mesh     *cloth.Mesh // live mesh; touched only under its lock
	snapshot *cloth.Mesh
	runner   *cloth.Runner
	cfg      *config.Config

	dragged   int32 // arena index of the mass being dragged, -1 when none
	showPanel bool
}

// Run opens the window and blocks until it is closed.
func Run(mesh *cloth.Mesh, runner *cloth.Runner, cfg *config.Config) error {
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "drape")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	snapshot, err := mesh.CreateCopy()
	if err != nil {
		return fmt.Errorf("viewer: %w", err)
	}

	v := &Viewer{
		mesh:     mesh,
		snapshot: snapshot,
		runner:   runner,
		cfg:      cfg,
		dragged:  -1,
	}

	for !rl.WindowShouldClose() {
		if err := v.snapshot.UpdateFromOriginal(); err != nil {
			return fmt.Errorf("viewer: refreshing snapshot: %w", err)
		}
		if err := v.handleInput(); err != nil {
			return fmt.Errorf("viewer: %w", err)
		}
		v.draw()
	}
	return nil
}

// toWorld maps a screen point to cloth world space (z = 0 plane).
func (v *Viewer) toWorld(p rl.Vector2) r3.Vec {
	return r3.Vec{
		X: float64(p.X) * v.cfg.Grid.XResolution / float64(v.cfg.Screen.Width),
		Y: v.cfg.Grid.YResolution * (1 - float64(p.Y)/float64(v.cfg.Screen.Height)),
	}
}

// toScreen maps a world position to screen coordinates.
func (v *Viewer) toScreen(p r3.Vec) rl.Vector2 {
	return rl.Vector2{
		X: float32(p.X / v.cfg.Grid.XResolution * float64(v.cfg.Screen.Width)),
		Y: float32((1 - p.Y/v.cfg.Grid.YResolution) * float64(v.cfg.Screen.Height)),
	}
}

func (v *Viewer) draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	masses := v.snapshot.Masses()
	for _, s := range v.snapshot.Springs() {
		if !s.Render {
			continue
		}
		p1 := v.toScreen(masses[s.M1].Pos)
		p2 := v.toScreen(masses[s.M2].Pos)
		rl.DrawLineV(p1, p2, rl.Color{R: s.Color.R, G: s.Color.G, B: s.Color.B, A: 255})
	}

	for i := range masses {
		m := &masses[i]
		p := v.toScreen(m.Pos)
		switch {
		case m.Selected():
			rl.DrawCircleV(p, 4, rl.Red)
		case m.Fixed():
			rl.DrawCircleV(p, 3, rl.SkyBlue)
		default:
			rl.DrawPixelV(p, rl.Color{R: m.Color.R, G: m.Color.G, B: m.Color.B, A: 255})
		}
	}

	hud := fmt.Sprintf("step %d | springs %d | fps %d", v.runner.Frame(), len(v.snapshot.Springs()), rl.GetFPS())
	if v.runner.Paused() {
		hud += " | PAUSED"
	}
	rl.DrawText(hud, 10, 10, 18, rl.RayWhite)
	rl.DrawText("drag: move mass | right-drag: cut | P: pin | W: wind | space: pause | tab: panel", 10, 32, 14, rl.Gray)

	if v.showPanel {
		if err := v.drawPanel(); err != nil {
			rl.DrawText(err.Error(), 10, 54, 14, rl.Red)
		}
	}

	rl.EndDrawing()
}
