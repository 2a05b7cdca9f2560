package cloth

import (
	"math/rand"

	"github.com/pthm-cable/drape/config"
)

// testConfig builds a minimal valid configuration for a cols x rows grid.
// Derived values are filled in directly so tests control the batch count.
func testConfig(cols, rows int) *config.Config {
	cfg := &config.Config{}
	cfg.Grid = config.GridConfig{
		Columns:      cols,
		Rows:         rows,
		XResolution:  1000,
		YResolution:  1000,
		PinInterval:  0,
		ParticleMass: 1,
	}
	cfg.Physics = config.PhysicsConfig{
		Gravity:          9.81,
		DTSquared:        1,
		Iterations:       1,
		Damping:          0,
		MaxParticleSpeed: 1000,
		MaxSpringLength:  0,
	}
	cfg.Springs = config.SpringsConfig{
		StructuralCoefficient: 0.1,
		ShearCoefficient:      0.1,
		BendCoefficient:       0.05,
	}
	cfg.Wind = config.WindConfig{
		Enabled:                     false,
		MinForce:                    1,
		MaxForce:                    5,
		MinAngle:                    0,
		MaxAngle:                    90,
		StepsUntilDirectionChanged:  1000,
		StepsUntilDirectionAdjusted: 50,
	}
	cfg.Parallel = config.ParallelConfig{LoadFactor: 1, ShutdownSeconds: 5}
	cfg.Derived.BatchCount = 4
	cfg.Derived.SpacingX = cfg.Grid.XResolution / float64(cols)
	cfg.Derived.SpacingY = cfg.Grid.YResolution / float64(rows)
	cfg.Derived.FloorY = -cfg.Grid.YResolution * 0.2
	return cfg
}

func testMesh(cols, rows int) *Mesh {
	return testMeshFrom(testConfig(cols, rows))
}

func testMeshFrom(cfg *config.Config) *Mesh {
	return NewMesh(cfg, rand.New(rand.NewSource(1)))
}
