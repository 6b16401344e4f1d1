package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure returned from Validate and Load.
var ErrInvalidConfig = errors.New("invalid config")

// PresentMode selects how finished frames are handed to the display.
type PresentMode string

const (
	PresentModeVSync     PresentMode = "vsync"
	PresentModeImmediate PresentMode = "immediate"
)

// Config is the full runtime configuration of oxy-rt. The zero value is not usable; start from Default.
type Config struct {
	Scene        SceneConfig        `yaml:"scene"`
	Kernel       KernelConfig       `yaml:"kernel"`
	Output       OutputConfig       `yaml:"output"`
	Window       WindowConfig       `yaml:"window"`
	Camera       CameraConfig       `yaml:"camera"`
	Light        LightConfig        `yaml:"light"`
	Invalidation InvalidationConfig `yaml:"invalidation"`
	Engine       EngineConfig       `yaml:"engine"`
	Log          LogConfig          `yaml:"log"`
}

// SceneConfig holds the procedural sphere generation parameters.
type SceneConfig struct {
	Seed            uint64  `yaml:"seed"`
	SphereCount     int     `yaml:"sphere_count"`
	RadiusMin       float32 `yaml:"radius_min"`
	RadiusMax       float32 `yaml:"radius_max"`
	PlacementRadius float32 `yaml:"placement_radius"`
}

// KernelConfig describes the compute kernel. Shader is a path to a WGSL file; empty selects the built-in one.
type KernelConfig struct {
	MaxBounces uint32 `yaml:"max_bounces"`
	TileWidth  int    `yaml:"tile_width"`
	TileHeight int    `yaml:"tile_height"`
	Shader     string `yaml:"shader"`
}

type OutputConfig struct {
	Width       int         `yaml:"width"`
	Height      int         `yaml:"height"`
	PresentMode PresentMode `yaml:"present_mode"`
}

type WindowConfig struct {
	Title string `yaml:"title"`
}

// CameraConfig places the orbit camera. Angles are in degrees.
type CameraConfig struct {
	FovDegrees       float32    `yaml:"fov_degrees"`
	Radius           float32    `yaml:"radius"`
	ElevationDegrees float32    `yaml:"elevation_degrees"`
	Target           [3]float32 `yaml:"target"`
}

type LightConfig struct {
	Direction [3]float32 `yaml:"direction"`
	Intensity float32    `yaml:"intensity"`
}

// InvalidationConfig controls how sensitive accumulation resets are to pose changes.
type InvalidationConfig struct {
	Epsilon float32 `yaml:"epsilon"`
}

// EngineConfig controls the frame driver. A FrameLimit of 0 renders until quit; Workers of 0 uses GOMAXPROCS.
type EngineConfig struct {
	TickRate   int  `yaml:"tick_rate"`
	FrameLimit int  `yaml:"frame_limit"`
	Workers    int  `yaml:"workers"`
	Profiling  bool `yaml:"profiling"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: a fully populated, valid configuration
func Default() Config {
	return Config{
		Scene: SceneConfig{
			Seed:            12345,
			SphereCount:     100,
			RadiusMin:       3,
			RadiusMax:       8,
			PlacementRadius: 100,
		},
		Kernel: KernelConfig{
			MaxBounces: 8,
			TileWidth:  8,
			TileHeight: 8,
		},
		Output: OutputConfig{
			Width:       1280,
			Height:      720,
			PresentMode: PresentModeVSync,
		},
		Window: WindowConfig{Title: "oxy-rt"},
		Camera: CameraConfig{
			FovDegrees:       60,
			Radius:           250,
			ElevationDegrees: 25,
		},
		Light: LightConfig{
			Direction: [3]float32{-0.3, -1, 0.4},
			Intensity: 1,
		},
		Invalidation: InvalidationConfig{Epsilon: 1e-5},
		Engine:       EngineConfig{TickRate: 60},
		Log:          LogConfig{Level: "info"},
	}
}

// Load reads a YAML file on top of Default and validates the result.
// Keys missing from the file keep their default values.
//
// Parameters:
//   - path: the YAML file to read
//
// Returns:
//   - Config: the loaded configuration
//   - error: a read, decode or validation error
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode unmarshals YAML into cfg, rejecting unknown keys, and validates the result.
//
// Parameters:
//   - data: the YAML document
//   - cfg: the configuration to decode into, usually pre-filled by Default
//
// Returns:
//   - error: a decode or validation error
func Decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return cfg.Validate()
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks every field for a usable value.
//
// Returns:
//   - error: nil, or an error wrapping ErrInvalidConfig naming the offending field
func (c Config) Validate() error {
	switch {
	case c.Scene.SphereCount < 0:
		return fmt.Errorf("%w: scene.sphere_count must not be negative, got %d", ErrInvalidConfig, c.Scene.SphereCount)
	case c.Scene.RadiusMin <= 0 || c.Scene.RadiusMax < c.Scene.RadiusMin:
		return fmt.Errorf("%w: scene radius range [%g, %g] is invalid", ErrInvalidConfig, c.Scene.RadiusMin, c.Scene.RadiusMax)
	case c.Scene.PlacementRadius <= 0:
		return fmt.Errorf("%w: scene.placement_radius must be positive, got %g", ErrInvalidConfig, c.Scene.PlacementRadius)
	case c.Kernel.TileWidth <= 0 || c.Kernel.TileHeight <= 0:
		return fmt.Errorf("%w: kernel tile size %dx%d must be positive", ErrInvalidConfig, c.Kernel.TileWidth, c.Kernel.TileHeight)
	case c.Output.Width <= 0 || c.Output.Height <= 0:
		return fmt.Errorf("%w: output size %dx%d must be positive", ErrInvalidConfig, c.Output.Width, c.Output.Height)
	case c.Output.PresentMode != PresentModeVSync && c.Output.PresentMode != PresentModeImmediate:
		return fmt.Errorf("%w: unknown output.present_mode %q", ErrInvalidConfig, c.Output.PresentMode)
	case c.Camera.FovDegrees <= 0 || c.Camera.FovDegrees >= 180:
		return fmt.Errorf("%w: camera.fov_degrees must be in (0, 180), got %g", ErrInvalidConfig, c.Camera.FovDegrees)
	case c.Camera.Radius <= 0:
		return fmt.Errorf("%w: camera.radius must be positive, got %g", ErrInvalidConfig, c.Camera.Radius)
	case c.Light.Direction == [3]float32{}:
		return fmt.Errorf("%w: light.direction must be non-zero", ErrInvalidConfig)
	case c.Invalidation.Epsilon < 0:
		return fmt.Errorf("%w: invalidation.epsilon must not be negative, got %g", ErrInvalidConfig, c.Invalidation.Epsilon)
	case c.Engine.TickRate <= 0:
		return fmt.Errorf("%w: engine.tick_rate must be positive, got %d", ErrInvalidConfig, c.Engine.TickRate)
	case c.Engine.FrameLimit < 0 || c.Engine.Workers < 0:
		return fmt.Errorf("%w: engine.frame_limit and engine.workers must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps the configured level name onto a slog.Level.
//
// Returns:
//   - slog.Level: the parsed level
//   - error: an error wrapping ErrInvalidConfig for unknown names
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	return level, nil
}
