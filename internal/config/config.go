package config

import (
	"fmt"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pendulum/internal/analysis"
	"github.com/san-kum/pendulum/internal/dynamo"
	"github.com/san-kum/pendulum/internal/integrators"
	"github.com/san-kum/pendulum/internal/physics"
)

const (
	DefaultDt      = 0.01
	DefaultHorizon = 200.0
	DefaultStride  = 5
	DefaultWidth   = 48
	DefaultHeight  = 20
)

type Config struct {
	Params        physics.Params      `yaml:"params"`
	Horizon       float64             `yaml:"horizon"`
	Dt            float64             `yaml:"dt"`
	Seed          int64               `yaml:"seed"`
	Initial       InitialConfig       `yaml:"initial"`
	Solver        SolverConfig        `yaml:"solver"`
	Field         FieldConfig         `yaml:"field"`
	Animation     AnimationConfig     `yaml:"animation"`
	Output        OutputConfig        `yaml:"output"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// InitialConfig bounds the uniform draw of the initial state. Theta0 and
// Omega0 pin a component instead of drawing it.
type InitialConfig struct {
	ThetaMin float64  `yaml:"theta_min"`
	ThetaMax float64  `yaml:"theta_max"`
	OmegaMin float64  `yaml:"omega_min"`
	OmegaMax float64  `yaml:"omega_max"`
	Theta0   *float64 `yaml:"theta0,omitempty"`
	Omega0   *float64 `yaml:"omega0,omitempty"`
}

type SolverConfig struct {
	Method   string  `yaml:"method"`
	RTol     float64 `yaml:"rtol"`
	ATol     float64 `yaml:"atol"`
	MaxSteps int     `yaml:"max_steps"`
	MinStep  float64 `yaml:"min_step"`
	MaxStep  float64 `yaml:"max_step"`
}

type FieldConfig struct {
	ThetaMin    float64 `yaml:"theta_min"`
	ThetaMax    float64 `yaml:"theta_max"`
	OmegaMin    float64 `yaml:"omega_min"`
	OmegaMax    float64 `yaml:"omega_max"`
	Cols        int     `yaml:"cols"`
	Rows        int     `yaml:"rows"`
	FixedPoints string  `yaml:"fixed_points"`
}

type AnimationConfig struct {
	// FrameStride is the number of trajectory samples advanced per frame.
	FrameStride  int    `yaml:"frame_stride"`
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	GIFMaxFrames int    `yaml:"gif_max_frames"`
	GIFScale     int    `yaml:"gif_scale"`
	Theme        string `yaml:"theme"`
}

type OutputConfig struct {
	Plot string `yaml:"plot"`
	GIF  string `yaml:"gif"`
	// PlotWidth and PlotHeight are in inches.
	PlotWidth  float64 `yaml:"plot_width"`
	PlotHeight float64 `yaml:"plot_height"`
	PlotDPI    int     `yaml:"plot_dpi"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ObservabilityConfig struct {
	MetricsFile string `yaml:"metrics_file"`
	TraceFile   string `yaml:"trace_file"`
}

func DefaultConfig() *Config {
	grid := analysis.DefaultGridSpec()
	return &Config{
		Params:  physics.DefaultParams(),
		Horizon: DefaultHorizon,
		Dt:      DefaultDt,
		Initial: InitialConfig{
			ThetaMin: -3 * math.Pi,
			ThetaMax: 3 * math.Pi,
			OmegaMin: -8,
			OmegaMax: 8,
		},
		Solver: SolverConfig{
			Method:   "rk45",
			RTol:     1e-6,
			ATol:     1e-9,
			MaxSteps: 1_000_000,
			MinStep:  1e-12,
		},
		Field: FieldConfig{
			ThetaMin:    grid.ThetaMin,
			ThetaMax:    grid.ThetaMax,
			OmegaMin:    grid.OmegaMin,
			OmegaMax:    grid.OmegaMax,
			Cols:        grid.Cols,
			Rows:        grid.Rows,
			FixedPoints: string(grid.FixedPoints),
		},
		Animation: AnimationConfig{
			FrameStride:  DefaultStride,
			Width:        DefaultWidth,
			Height:       DefaultHeight,
			GIFMaxFrames: 400,
			GIFScale:     2,
			Theme:        "cyberpunk",
		},
		Output: OutputConfig{
			Plot:       "phase_portrait.png",
			GIF:        "pendulum.gif",
			PlotWidth:  10,
			PlotHeight: 8,
			PlotDPI:    150,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto reads a YAML file over cfg. Keys missing from the file keep
// their current values.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if !(c.Dt > 0) || !(c.Horizon > 0) {
		return fmt.Errorf("dt and horizon must be positive (dt=%g, horizon=%g): %w", c.Dt, c.Horizon, dynamo.ErrInvalidConfig)
	}
	if c.Dt >= c.Horizon {
		return fmt.Errorf("dt %g must be smaller than horizon %g: %w", c.Dt, c.Horizon, dynamo.ErrInvalidConfig)
	}
	if c.Initial.ThetaMin > c.Initial.ThetaMax || c.Initial.OmegaMin > c.Initial.OmegaMax {
		return fmt.Errorf("initial state bounds are inverted: %w", dynamo.ErrInvalidConfig)
	}
	if !slices.Contains(integrators.Names(), c.Solver.Method) {
		return fmt.Errorf("unknown integrator %q: %w", c.Solver.Method, dynamo.ErrInvalidConfig)
	}
	if !(c.Solver.RTol > 0) || !(c.Solver.ATol > 0) {
		return fmt.Errorf("rtol and atol must be positive (rtol=%g, atol=%g): %w", c.Solver.RTol, c.Solver.ATol, dynamo.ErrInvalidConfig)
	}
	if c.Solver.MinStep < 0 || c.Solver.MaxStep < 0 {
		return fmt.Errorf("min_step and max_step must not be negative: %w", dynamo.ErrInvalidConfig)
	}
	if c.Solver.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative (0 means unlimited): %w", dynamo.ErrInvalidConfig)
	}
	if err := c.GridSpec().Validate(); err != nil {
		return err
	}
	if c.Animation.FrameStride < 1 || c.Animation.Width < 8 || c.Animation.Height < 4 {
		return fmt.Errorf("animation needs stride >= 1 and at least 8x4 cells: %w", dynamo.ErrInvalidConfig)
	}
	if c.Output.PlotWidth <= 0 || c.Output.PlotHeight <= 0 {
		return fmt.Errorf("plot size must be positive: %w", dynamo.ErrInvalidConfig)
	}
	return nil
}

func (c *Config) GridSpec() analysis.GridSpec {
	return analysis.GridSpec{
		ThetaMin:    c.Field.ThetaMin,
		ThetaMax:    c.Field.ThetaMax,
		OmegaMin:    c.Field.OmegaMin,
		OmegaMax:    c.Field.OmegaMax,
		Cols:        c.Field.Cols,
		Rows:        c.Field.Rows,
		FixedPoints: analysis.FixedPointPolicy(c.Field.FixedPoints),
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	if c.Initial.Theta0 != nil {
		v := *c.Initial.Theta0
		out.Initial.Theta0 = &v
	}
	if c.Initial.Omega0 != nil {
		v := *c.Initial.Omega0
		out.Initial.Omega0 = &v
	}
	return &out
}

// Float returns a pointer to v, for the optional initial state fields.
func Float(v float64) *float64 {
	return &v
}
