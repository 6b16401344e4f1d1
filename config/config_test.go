package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Scene.Seed != 12345 || cfg.Scene.SphereCount != 100 {
		t.Errorf("unexpected scene defaults: %+v", cfg.Scene)
	}
	if cfg.Kernel.TileWidth != 8 || cfg.Kernel.TileHeight != 8 || cfg.Kernel.MaxBounces != 8 {
		t.Errorf("unexpected kernel defaults: %+v", cfg.Kernel)
	}
	if cfg.Invalidation.Epsilon != 1e-5 {
		t.Errorf("Epsilon = %g, want 1e-5", cfg.Invalidation.Epsilon)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxyrt.yaml")
	doc := []byte(`
scene:
  seed: 12346
  sphere_count: 10
output:
  width: 320
  height: 200
  present_mode: immediate
log:
  level: debug
`)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Scene.Seed != 12346 || cfg.Scene.SphereCount != 10 {
		t.Errorf("scene = %+v", cfg.Scene)
	}
	if cfg.Scene.RadiusMax != 8 {
		t.Errorf("RadiusMax = %g, want default 8", cfg.Scene.RadiusMax)
	}
	if cfg.Output.PresentMode != PresentModeImmediate {
		t.Errorf("PresentMode = %q", cfg.Output.PresentMode)
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, %v", level, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	cfg := Default()
	if err := Decode([]byte("scene:\n  spheres: 3\n"), &cfg); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestDecodeEmptyDocument(t *testing.T) {
	cfg := Default()
	if err := Decode(nil, &cfg); err != nil {
		t.Fatalf("Decode(nil) = %v", err)
	}
	if cfg != Default() {
		t.Error("empty document changed the configuration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative sphere count", func(c *Config) { c.Scene.SphereCount = -1 }},
		{"inverted radius range", func(c *Config) { c.Scene.RadiusMin, c.Scene.RadiusMax = 8, 3 }},
		{"zero placement radius", func(c *Config) { c.Scene.PlacementRadius = 0 }},
		{"zero tile", func(c *Config) { c.Kernel.TileWidth = 0 }},
		{"zero output", func(c *Config) { c.Output.Height = 0 }},
		{"bad present mode", func(c *Config) { c.Output.PresentMode = "mailbox" }},
		{"bad fov", func(c *Config) { c.Camera.FovDegrees = 180 }},
		{"zero light", func(c *Config) { c.Light.Direction = [3]float32{} }},
		{"negative epsilon", func(c *Config) { c.Invalidation.Epsilon = -1 }},
		{"zero tick rate", func(c *Config) { c.Engine.TickRate = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Camera.Target = [3]float32{1, 2, 3}
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	got := Default()
	if err := Decode(data, &got); err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if got != cfg {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}
