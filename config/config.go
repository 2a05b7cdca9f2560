// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Grid      GridConfig      `yaml:"grid"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Springs   SpringsConfig   `yaml:"springs"`
	Wind      WindConfig      `yaml:"wind"`
	Parallel  ParallelConfig  `yaml:"parallel"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings for the viewer.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// GridConfig holds cloth grid dimensions and layout.
type GridConfig struct {
	Columns      int     `yaml:"columns"`
	Rows         int     `yaml:"rows"`
	XResolution  float64 `yaml:"x_resolution"` // World-space width spanned by the grid
	YResolution  float64 `yaml:"y_resolution"` // World-space height spanned by the grid
	PinInterval  int     `yaml:"pin_interval"` // Pin every n-th mass of the top row (0 = pin none)
	ParticleMass float64 `yaml:"particle_mass"`
}

// PhysicsConfig holds integration parameters.
type PhysicsConfig struct {
	Gravity          float64 `yaml:"gravity"`
	DTSquared        float64 `yaml:"dt_squared"` // Integration time step, squared
	Iterations       int     `yaml:"iterations"` // Constraint solver iterations per step
	Damping          float64 `yaml:"damping"`
	MaxParticleSpeed float64 `yaml:"max_particle_speed"`
	MaxSpringLength  float64 `yaml:"max_spring_length"` // <= 0 disables breakage
	FrameDelayMillis int     `yaml:"frame_delay_millis"`
}

// SpringsConfig holds per-model spring stiffness coefficients.
type SpringsConfig struct {
	StructuralCoefficient float64 `yaml:"structural_coefficient"`
	ShearCoefficient      float64 `yaml:"shear_coefficient"`
	BendCoefficient       float64 `yaml:"bend_coefficient"`
	RenderShear           bool    `yaml:"render_shear"`
}

// WindConfig holds wind force generator parameters.
// Angles are in degrees; forces in world units.
type WindConfig struct {
	Enabled                     bool    `yaml:"enabled"`
	MinForce                    float64 `yaml:"min_force"`
	MaxForce                    float64 `yaml:"max_force"`
	MinAngle                    float64 `yaml:"min_angle"`
	MaxAngle                    float64 `yaml:"max_angle"`
	StepsUntilDirectionChanged  int     `yaml:"steps_until_direction_changed"`
	StepsUntilDirectionAdjusted int     `yaml:"steps_until_direction_adjusted"`
}

// ParallelConfig holds worker pool parameters.
type ParallelConfig struct {
	LoadFactor      float64 `yaml:"load_factor"`      // Batches per core
	ShutdownSeconds float64 `yaml:"shutdown_seconds"` // Bounded wait when draining the pool
}

// TelemetryConfig holds performance logging parameters.
type TelemetryConfig struct {
	Window    int    `yaml:"window"` // Steps per perf averaging window
	OutputDir string `yaml:"output_dir"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	BatchCount int     // ceil(cores * load_factor)
	SpacingX   float64 // Horizontal distance between grid neighbours
	SpacingY   float64 // Vertical distance between grid neighbours
	FloorY     float64 // Vertical clamp applied by the integrator
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Compute derived values
	cfg.computeDerived()

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Grid.Columns < 2 || c.Grid.Rows < 2 {
		return fmt.Errorf("grid must be at least 2x2, got %dx%d", c.Grid.Columns, c.Grid.Rows)
	}
	if c.Physics.DTSquared <= 0 {
		return fmt.Errorf("dt_squared must be positive, got %v", c.Physics.DTSquared)
	}
	if c.Physics.Iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d", c.Physics.Iterations)
	}
	if c.Wind.StepsUntilDirectionAdjusted < 1 || c.Wind.StepsUntilDirectionChanged < 1 {
		return fmt.Errorf("wind step counts must be at least 1")
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	loadFactor := c.Parallel.LoadFactor
	if loadFactor <= 0 {
		loadFactor = 1
	}
	c.Derived.BatchCount = int(math.Ceil(float64(runtime.GOMAXPROCS(0)) * loadFactor))
	if c.Derived.BatchCount < 1 {
		c.Derived.BatchCount = 1
	}

	c.Derived.SpacingX = c.Grid.XResolution / float64(c.Grid.Columns)
	c.Derived.SpacingY = c.Grid.YResolution / float64(c.Grid.Rows)
	c.Derived.FloorY = -c.Grid.YResolution * 0.2
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
