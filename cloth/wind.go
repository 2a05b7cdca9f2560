package cloth

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/drape/config"
)

// Convergence thresholds: once the gap to the desired value drops below
// these, nudging stops until the next retarget.
const (
	windForceEpsilon       = 0.01
	windDirectionEpsilonSq = 0.0001
)

// WindSimulator generates a smoothly varying ambient wind vector. Every
// StepsUntilDirectionChanged steps it draws a new target force and
// direction, then walks the current values towards the targets in linear
// increments sized to arrive after StepsUntilDirectionAdjusted steps.
type WindSimulator struct {
	params config.WindConfig

	currentDirection r3.Vec
	desiredDirection r3.Vec

	currentForce float64
	desiredForce float64

	directionIncrement r3.Vec
	forceIncrement     float64

	stepCount int
	rng       *rand.Rand
}

// NewWindSimulator creates a wind simulator and draws the first target.
func NewWindSimulator(rng *rand.Rand, params config.WindConfig) *WindSimulator {
	w := &WindSimulator{params: params, rng: rng}
	w.retarget()
	return w
}

// clone returns a value copy sharing the random source. Used by the
// snapshot protocol; a snapshot's wind is never stepped.
func (w *WindSimulator) clone() *WindSimulator {
	c := *w
	return &c
}

// Step advances the wind by one simulation step. Called once per mesh
// step, not per solver iteration.
func (w *WindSimulator) Step() {
	w.stepCount++
	if !w.params.Enabled {
		return
	}
	if w.stepCount%w.params.StepsUntilDirectionChanged == 0 {
		w.retarget()
	} else {
		w.nudge()
	}
}

// Enabled reports whether the wind contributes any force.
func (w *WindSimulator) Enabled() bool { return w.params.Enabled }

// SetEnabled toggles the wind. Disabling collapses all state to zero.
// Caller must hold the owning mesh's lock.
func (w *WindSimulator) SetEnabled(enabled bool) {
	w.params.Enabled = enabled
	w.retarget()
}

// CurrentWindVector returns the instantaneous wind force vector:
// unit(direction) * force.
func (w *WindSimulator) CurrentWindVector() r3.Vec {
	if r3.Norm2(w.currentDirection) == 0 {
		return r3.Vec{}
	}
	return r3.Scale(w.currentForce, r3.Unit(w.currentDirection))
}

func (w *WindSimulator) nudge() {
	if math.Abs(w.desiredForce-w.currentForce) > windForceEpsilon {
		w.currentForce += w.forceIncrement
	}
	if r3.Norm2(r3.Sub(w.desiredDirection, w.currentDirection)) > windDirectionEpsilonSq {
		w.currentDirection = r3.Add(w.currentDirection, w.directionIncrement)
	}
}

// retarget draws a new desired force and direction and computes the linear
// per-step increments towards them.
func (w *WindSimulator) retarget() {
	if !w.params.Enabled {
		w.directionIncrement = r3.Vec{}
		w.forceIncrement = 0
		w.desiredForce = 0
		w.currentForce = 0
		w.currentDirection = r3.Vec{}
		w.desiredDirection = r3.Vec{}
		return
	}

	steps := float64(w.params.StepsUntilDirectionAdjusted)

	w.desiredForce = w.params.MinForce + w.rng.Float64()*(w.params.MaxForce-w.params.MinForce)
	w.forceIncrement = (w.desiredForce - w.currentForce) / steps

	minRad := w.params.MinAngle * math.Pi / 180
	maxRad := w.params.MaxAngle * math.Pi / 180
	azimuth := minRad + w.rng.Float64()*(maxRad-minRad)
	elevation := minRad + w.rng.Float64()*(maxRad-minRad)
	w.desiredDirection = sphericalToUnit(azimuth, elevation)

	// Linear interpolation of the direction vector; CurrentWindVector
	// renormalizes, so intermediate directions stay unit-scaled.
	w.directionIncrement = r3.Scale(1/steps, r3.Sub(w.desiredDirection, w.currentDirection))
}

// sphericalToUnit converts an azimuth (angle in the XZ plane) and an
// elevation (angle towards +Y) into a unit vector.
func sphericalToUnit(azimuth, elevation float64) r3.Vec {
	return r3.Vec{
		X: math.Cos(elevation) * math.Cos(azimuth),
		Y: math.Sin(elevation),
		Z: math.Cos(elevation) * math.Sin(azimuth),
	}
}
