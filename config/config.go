// Package config provides configuration loading and access for the viewer.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/starfield/camera"
	"github.com/pthm-cable/starfield/galaxy"
	"github.com/pthm-cable/starfield/physics"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen" toml:"screen"`
	Galaxy    GalaxyConfig    `yaml:"galaxy" toml:"galaxy"`
	Physics   PhysicsConfig   `yaml:"physics" toml:"physics"`
	Loop      LoopConfig      `yaml:"loop" toml:"loop"`
	Spawn     SpawnConfig     `yaml:"spawn" toml:"spawn"`
	Camera    CameraConfig    `yaml:"camera" toml:"camera"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-" toml:"-"`
}

// Vec3 is a 3D vector in config files.
type Vec3 struct {
	X float64 `yaml:"x" toml:"x"`
	Y float64 `yaml:"y" toml:"y"`
	Z float64 `yaml:"z" toml:"z"`
}

// R3 converts to a gonum vector.
func (v Vec3) R3() r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width         int     `yaml:"width" toml:"width"`
	Height        int     `yaml:"height" toml:"height"`
	TargetFPS     int     `yaml:"target_fps" toml:"target_fps"`
	MaxPixelRatio float64 `yaml:"max_pixel_ratio" toml:"max_pixel_ratio"` // Upper bound on DPI scaling
	Background    string  `yaml:"background" toml:"background"`
}

// GalaxyConfig holds the generation parameters and display motion.
type GalaxyConfig struct {
	Count           int     `yaml:"count" toml:"count"`
	Size            float64 `yaml:"size" toml:"size"`
	Radius          float64 `yaml:"radius" toml:"radius"`
	Branches        int     `yaml:"branches" toml:"branches"`
	Spin            float64 `yaml:"spin" toml:"spin"`
	Randomness      float64 `yaml:"randomness" toml:"randomness"`
	RandomnessPower float64 `yaml:"randomness_power" toml:"randomness_power"`
	InsideColor     string  `yaml:"inside_color" toml:"inside_color"`
	OutsideColor    string  `yaml:"outside_color" toml:"outside_color"`

	ScaleJitter   bool    `yaml:"scale_jitter" toml:"scale_jitter"`     // Multiply jitter by randomness*r
	Tilt          float64 `yaml:"tilt" toml:"tilt"`                     // Radians about X
	RotationSpeed float64 `yaml:"rotation_speed" toml:"rotation_speed"` // Multiples of π rad/s about Y
	WaveAmplitude float64 `yaml:"wave_amplitude" toml:"wave_amplitude"` // 0 disables the particle wave
	WaveSpeed     float64 `yaml:"wave_speed" toml:"wave_speed"`         // Radians of wave phase per second
}

// PhysicsConfig holds world settings.
type PhysicsConfig struct {
	Gravity        Vec3       `yaml:"gravity" toml:"gravity"`
	Friction       float64    `yaml:"friction" toml:"friction"`
	Restitution    float64    `yaml:"restitution" toml:"restitution"`
	LinearDamping  float64    `yaml:"linear_damping" toml:"linear_damping"`
	AngularDamping float64    `yaml:"angular_damping" toml:"angular_damping"`
	RestingSpeed   float64    `yaml:"resting_speed" toml:"resting_speed"`
	Wind           WindConfig `yaml:"wind" toml:"wind"`
}

// WindConfig holds the optional noise wind.
type WindConfig struct {
	Enabled bool    `yaml:"enabled" toml:"enabled"`
	Base    Vec3    `yaml:"base" toml:"base"`
	Gust    float64 `yaml:"gust" toml:"gust"`
	Scale   float64 `yaml:"scale" toml:"scale"`
	Speed   float64 `yaml:"speed" toml:"speed"`
}

// LoopConfig holds fixed-step settings.
type LoopConfig struct {
	FixedStep        float64 `yaml:"fixed_step" toml:"fixed_step"` // Seconds
	MaxStepsPerFrame int     `yaml:"max_steps_per_frame" toml:"max_steps_per_frame"`
}

// SpawnConfig holds the initial scene and random sphere ranges.
type SpawnConfig struct {
	Spheres   []Vec3  `yaml:"spheres" toml:"spheres"` // Initial sphere positions
	Radius    float64 `yaml:"radius" toml:"radius"`   // Radius of initial spheres
	Mass      float64 `yaml:"mass" toml:"mass"`
	MaxRadius float64 `yaml:"max_radius" toml:"max_radius"` // Random spheres: radius = u*max_radius
	Spread    float64 `yaml:"spread" toml:"spread"`         // Random spheres: offset = (u-0.5)*spread
	Height    float64 `yaml:"height" toml:"height"`         // Random spheres: base height
	Material  string  `yaml:"material" toml:"material"`
	Color     string  `yaml:"color" toml:"color"`
}

// CameraConfig holds orbit camera settings.
type CameraConfig struct {
	Target      Vec3    `yaml:"target" toml:"target"`
	Distance    float64 `yaml:"distance" toml:"distance"`
	Yaw         float64 `yaml:"yaw" toml:"yaw"`     // Radians
	Pitch       float64 `yaml:"pitch" toml:"pitch"` // Radians
	FOV         float64 `yaml:"fov" toml:"fov"`     // Degrees
	Damping     float64 `yaml:"damping" toml:"damping"`
	MinDistance float64 `yaml:"min_distance" toml:"min_distance"`
	MaxDistance float64 `yaml:"max_distance" toml:"max_distance"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window" toml:"stats_window"` // Seconds per stats window
	PerfCollectorWindow int     `yaml:"perf_collector_window" toml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	InsideColor  galaxy.Color
	OutsideColor galaxy.Color
	SphereColor  galaxy.Color
	Background   galaxy.Color
	StatsFrames  int // Telemetry.StatsWindow in frames at the fixed step
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

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML or TOML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
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
		if err := unmarshal(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", filepath.Base(path), err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	colors := []struct {
		field string
		hex   string
		dst   *galaxy.Color
	}{
		{"galaxy.inside_color", c.Galaxy.InsideColor, &c.Derived.InsideColor},
		{"galaxy.outside_color", c.Galaxy.OutsideColor, &c.Derived.OutsideColor},
		{"spawn.color", c.Spawn.Color, &c.Derived.SphereColor},
		{"screen.background", c.Screen.Background, &c.Derived.Background},
	}
	for _, col := range colors {
		parsed, err := galaxy.ParseColor(col.hex)
		if err != nil {
			return fmt.Errorf("config %s: %w", col.field, err)
		}
		*col.dst = parsed
	}

	c.Derived.StatsFrames = 1
	if c.Loop.FixedStep > 0 && c.Telemetry.StatsWindow > 0 {
		c.Derived.StatsFrames = max(1, int(c.Telemetry.StatsWindow/c.Loop.FixedStep+0.5))
	}
	return nil
}

// Validate checks values that the components would reject later.
func (c *Config) Validate() error {
	if _, err := c.GalaxyParameters(); err != nil {
		return fmt.Errorf("config galaxy: %w", err)
	}
	switch {
	case c.Galaxy.WaveAmplitude < 0:
		return fmt.Errorf("config galaxy: wave_amplitude %v must not be negative", c.Galaxy.WaveAmplitude)
	case c.Screen.Width <= 0 || c.Screen.Height <= 0:
		return fmt.Errorf("config screen: size %dx%d must be positive", c.Screen.Width, c.Screen.Height)
	case c.Loop.FixedStep <= 0:
		return fmt.Errorf("config loop: fixed_step %v must be positive", c.Loop.FixedStep)
	case c.Loop.MaxStepsPerFrame < 1:
		return fmt.Errorf("config loop: max_steps_per_frame %d must be at least 1", c.Loop.MaxStepsPerFrame)
	case c.Spawn.Radius <= 0 || c.Spawn.MaxRadius <= 0:
		return fmt.Errorf("config spawn: radius %v and max_radius %v must be positive", c.Spawn.Radius, c.Spawn.MaxRadius)
	case c.Spawn.Mass <= 0:
		return fmt.Errorf("config spawn: mass %v must be positive", c.Spawn.Mass)
	case c.Physics.Friction < 0 || c.Physics.Restitution < 0:
		return fmt.Errorf("config physics: friction %v and restitution %v must not be negative", c.Physics.Friction, c.Physics.Restitution)
	}
	return nil
}

// GalaxyParameters converts the galaxy section into generation parameters.
func (c *Config) GalaxyParameters() (galaxy.Parameters, error) {
	g := c.Galaxy
	inside, err := galaxy.ParseColor(g.InsideColor)
	if err != nil {
		return galaxy.Parameters{}, err
	}
	outside, err := galaxy.ParseColor(g.OutsideColor)
	if err != nil {
		return galaxy.Parameters{}, err
	}
	p := galaxy.Parameters{
		Count:           g.Count,
		Size:            float32(g.Size),
		Radius:          float32(g.Radius),
		Branches:        g.Branches,
		Spin:            float32(g.Spin),
		Randomness:      float32(g.Randomness),
		RandomnessPower: float32(g.RandomnessPower),
		InsideColor:     inside,
		OutsideColor:    outside,
		ScaleJitter:     g.ScaleJitter,
	}
	return p, p.Validate()
}

// SetGalaxyParameters writes p back into the galaxy section.
func (c *Config) SetGalaxyParameters(p galaxy.Parameters) {
	c.Galaxy.Count = p.Count
	c.Galaxy.Size = float64(p.Size)
	c.Galaxy.Radius = float64(p.Radius)
	c.Galaxy.Branches = p.Branches
	c.Galaxy.Spin = float64(p.Spin)
	c.Galaxy.Randomness = float64(p.Randomness)
	c.Galaxy.RandomnessPower = float64(p.RandomnessPower)
	c.Galaxy.InsideColor = p.InsideColor.Hex()
	c.Galaxy.OutsideColor = p.OutsideColor.Hex()
	c.Galaxy.ScaleJitter = p.ScaleJitter
	c.Derived.InsideColor = p.InsideColor
	c.Derived.OutsideColor = p.OutsideColor
}

// GalaxyMotion returns the display rotation settings.
func (c *Config) GalaxyMotion() galaxy.Motion {
	g := c.Galaxy
	return galaxy.Motion{
		Tilt:          float32(g.Tilt),
		RotationSpeed: float32(g.RotationSpeed),
		WaveAmplitude: float32(g.WaveAmplitude),
		WaveSpeed:     float32(g.WaveSpeed),
	}
}

// CameraOptions returns the orbit camera settings.
func (c *Config) CameraOptions() camera.Options {
	cc := c.Camera
	return camera.Options{
		Target:        [3]float32{float32(cc.Target.X), float32(cc.Target.Y), float32(cc.Target.Z)},
		Distance:      float32(cc.Distance),
		Yaw:           float32(cc.Yaw),
		Pitch:         float32(cc.Pitch),
		FOV:           float32(cc.FOV),
		Damping:       float32(cc.Damping),
		MinDistance:   float32(cc.MinDistance),
		MaxDistance:   float32(cc.MaxDistance),
		MaxPixelRatio: float32(c.Screen.MaxPixelRatio),
	}
}

// PhysicsConfig converts the physics section into world settings. The wind
// field, if enabled, is seeded with seed.
func (c *Config) PhysicsConfig(seed int64) physics.Config {
	p := c.Physics
	cfg := physics.Config{
		Gravity:        p.Gravity.R3(),
		Friction:       p.Friction,
		Restitution:    p.Restitution,
		LinearDamping:  p.LinearDamping,
		AngularDamping: p.AngularDamping,
		RestingSpeed:   p.RestingSpeed,
	}
	if p.Wind.Enabled {
		cfg.Wind = physics.NewWindField(seed, p.Wind.Base.R3(), p.Wind.Gust, p.Wind.Scale, p.Wind.Speed)
	}
	return cfg
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

// WriteTOML writes the configuration to a TOML file.
func (c *Config) WriteTOML(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
