package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/config"
	"github.com/anthonynsimon/bild/imgio"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { common.SetLogger(nil) })
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"oxyrt"}, args...))
	return out.String(), err
}

func TestConfigCommandAppliesFlags(t *testing.T) {
	out, err := runApp(t, "config", "--seed", "42", "--bounces", "3", "--width", "320", "--epsilon", "0.5")
	if err != nil {
		t.Fatalf("config command: %v", err)
	}
	cfg := config.Default()
	if err := config.Decode([]byte(out), &cfg); err != nil {
		t.Fatalf("printed config does not decode: %v\n%s", err, out)
	}
	if cfg.Scene.Seed != 42 || cfg.Kernel.MaxBounces != 3 || cfg.Output.Width != 320 || cfg.Invalidation.Epsilon != 0.5 {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Output.Height != config.Default().Output.Height {
		t.Errorf("unset flag changed height to %d", cfg.Output.Height)
	}
}

func TestConfigFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxyrt.yaml")
	yaml := "scene:\n  seed: 7\n  sphere_count: 12\nkernel:\n  max_bounces: 2\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runApp(t, "--config", path, "config", "--bounces", "5")
	if err != nil {
		t.Fatalf("config command: %v", err)
	}
	cfg := config.Default()
	if err := config.Decode([]byte(out), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Scene.Seed != 7 || cfg.Scene.SphereCount != 12 {
		t.Errorf("file values lost: %+v", cfg.Scene)
	}
	if cfg.Kernel.MaxBounces != 5 {
		t.Errorf("MaxBounces = %d, want the flag value 5", cfg.Kernel.MaxBounces)
	}
}

func TestInvalidFlagValue(t *testing.T) {
	_, err := runApp(t, "config", "--width=-4")
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestHeadlessWritesPNG(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name       string
		args       []string
		wantBounds image.Rectangle
	}{
		{"native size", nil, image.Rect(0, 0, 8, 6)},
		{"scaled", []string{"--scale-width", "16"}, image.Rect(0, 0, 16, 12)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".png")
			args := append([]string{"headless",
				"--width", "8", "--height", "6",
				"--frames", "2", "--spheres", "4", "--bounces", "2", "--workers", "2",
				"--output", path,
			}, tt.args...)
			if _, err := runApp(t, args...); err != nil {
				t.Fatalf("headless command: %v", err)
			}
			img, err := imgio.Open(path)
			if err != nil {
				t.Fatalf("reading %s: %v", path, err)
			}
			if img.Bounds() != tt.wantBounds {
				t.Errorf("bounds = %v, want %v", img.Bounds(), tt.wantBounds)
			}
		})
	}
}

func TestWatchSignalsReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := watchSignals(ctx); err != nil {
		t.Errorf("watchSignals() = %v, want nil", err)
	}
}

func TestScaleImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 5))
	if got := scaleImage(src, 0); got != src {
		t.Error("width 0 should return the source")
	}
	if got := scaleImage(src, 10); got != src {
		t.Error("same width should return the source")
	}
	if got := scaleImage(src, 4).Bounds(); got != image.Rect(0, 0, 4, 2) {
		t.Errorf("scaled bounds = %v, want 4x2", got)
	}
}
