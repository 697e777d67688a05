// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Advection AdvectionConfig `yaml:"advection"`
	Pressure  PressureConfig  `yaml:"pressure"`
	LevelSet  LevelSetConfig  `yaml:"level_set"`
	Particles ParticlesConfig `yaml:"particles"`
	Bubbles   BubblesConfig   `yaml:"bubbles"`
	Scene     SceneConfig     `yaml:"scene"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// GridConfig holds the cell grid dimensions.
type GridConfig struct {
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	Depth    int     `yaml:"depth"`
	CellSize float64 `yaml:"cell_size"` // metres per cell
}

// PhysicsConfig holds time stepping and body forces.
type PhysicsConfig struct {
	DT      float64 `yaml:"dt"`      // seconds per step
	Gravity float64 `yaml:"gravity"` // m/s², applied along -y
}

// AdvectionConfig selects the backtrace integrator.
type AdvectionConfig struct {
	Scheme string `yaml:"scheme"` // midpoint or rk3
}

// PressureConfig holds solver selection and budgets.
type PressureConfig struct {
	Solver        string  `yaml:"solver"`         // jacobi or pcg
	Iterations    int     `yaml:"iterations"`     // jacobi sweeps
	MaxIterations int     `yaml:"max_iterations"` // pcg cap
	Tolerance     float64 `yaml:"tolerance"`      // pcg residual threshold, 1/s
}

// LevelSetConfig holds free surface parameters.
type LevelSetConfig struct {
	ClampBound float64 `yaml:"clamp_bound"` // |phi| limit after reinitialization, cells
}

// ParticlesConfig holds particle level set parameters.
type ParticlesConfig struct {
	BandWidth float64 `yaml:"band_width"` // cells either side of the surface
	PerCell   int     `yaml:"per_cell"`
	MinRadius float64 `yaml:"min_radius"`
	MaxRadius float64 `yaml:"max_radius"`
	Seed      int64   `yaml:"seed"`
}

// BubblesConfig holds bubble coupling parameters.
type BubblesConfig struct {
	RadiusScale float64 `yaml:"radius_scale"` // bubble radius per escaped particle radius
}

// SceneConfig selects and sizes the initial condition.
type SceneConfig struct {
	Kind           string  `yaml:"kind"`        // dam, drop or pool
	FillHeight     float64 `yaml:"fill_height"` // fraction of grid height
	DropRadius     float64 `yaml:"drop_radius"` // fraction of smallest extent
	NoiseAmplitude float64 `yaml:"noise_amplitude"`
	NoiseScale     float64 `yaml:"noise_scale"`
	Seed           int64   `yaml:"seed"`
}

// TelemetryConfig holds output cadence.
type TelemetryConfig struct {
	PerfWindow    int `yaml:"perf_window"`    // steps per perf stats window
	LogEvery      int `yaml:"log_every"`      // log a frame line every N steps
	SnapshotEvery int `yaml:"snapshot_every"` // save a binary frame every N steps, 0 disables
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32    float32 // Physics.DT as float32
	Cells   int     // Grid.Width * Grid.Height * Grid.Depth
	Bound32 float32 // LevelSet.ClampBound as float32
	// CFL is the largest speed, in m/s, a single step can carry one cell.
	CFL float64
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

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
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
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

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
	cfg.computeDerived()

	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Grid.Width < 3 || c.Grid.Height < 3 || c.Grid.Depth < 3:
		return fmt.Errorf("grid must be at least 3 cells per axis, got %dx%dx%d", c.Grid.Width, c.Grid.Height, c.Grid.Depth)
	case c.Grid.CellSize <= 0:
		return fmt.Errorf("grid.cell_size must be positive, got %v", c.Grid.CellSize)
	case c.Physics.DT <= 0:
		return fmt.Errorf("physics.dt must be positive, got %v", c.Physics.DT)
	case c.Particles.MinRadius > c.Particles.MaxRadius:
		return fmt.Errorf("particles.min_radius %v exceeds max_radius %v", c.Particles.MinRadius, c.Particles.MaxRadius)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.Cells = c.Grid.Width * c.Grid.Height * c.Grid.Depth
	c.Derived.Bound32 = float32(c.LevelSet.ClampBound)
	c.Derived.CFL = c.Grid.CellSize / c.Physics.DT
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
