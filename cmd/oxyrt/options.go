package main

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/config"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/urfave/cli"
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "config, c",
		Usage:  "YAML configuration file",
		EnvVar: "OXYRT_CONFIG",
	},
	cli.StringFlag{
		Name:  "log-level",
		Usage: "log level (debug, info, warn, error); overrides log.level",
	},
}

var sceneFlags = []cli.Flag{
	cli.Uint64Flag{Name: "seed", Usage: "scene generation seed"},
	cli.IntFlag{Name: "spheres", Usage: "number of sphere placement attempts"},
	cli.Float64Flag{Name: "placement-radius", Usage: "radius of the disk spheres are placed in"},
	cli.UintFlag{Name: "bounces", Usage: "maximum ray bounces"},
	cli.IntFlag{Name: "width", Usage: "output width in pixels"},
	cli.IntFlag{Name: "height", Usage: "output height in pixels"},
	cli.IntFlag{Name: "frames", Usage: "stop after this many frames (0 = unlimited)"},
	cli.IntFlag{Name: "workers", Usage: "worker goroutines (0 = one per CPU)"},
	cli.Float64Flag{Name: "epsilon", Usage: "pose change threshold for resetting the accumulation"},
	cli.BoolFlag{Name: "profile", Usage: "log frame and memory statistics every second"},
}

var renderFlags = []cli.Flag{
	cli.StringFlag{Name: "shader", Usage: "WGSL kernel replacing the built-in one"},
	cli.StringFlag{Name: "present-mode", Usage: "vsync or immediate"},
	cli.StringFlag{Name: "output, o", Usage: "write the converged image to this PNG on exit"},
	cli.Float64Flag{Name: "gamma", Value: scene.DisplayGamma, Usage: "gamma used to encode the PNG"},
}

var headlessFlags = []cli.Flag{
	cli.StringFlag{Name: "output, o", Value: "oxyrt.png", Usage: "PNG file for the converged image"},
	cli.IntFlag{Name: "scale-width", Usage: "resample the PNG to this width, keeping the aspect ratio"},
	cli.Float64Flag{Name: "gamma", Value: scene.DisplayGamma, Usage: "gamma used to encode the PNG"},
}

// loadConfig reads the configuration file, when given, and applies the command line overrides.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := ctx.GlobalString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	applyFlags(ctx, &cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyFlags copies every flag set on the command line into cfg.
func applyFlags(ctx *cli.Context, cfg *config.Config) {
	if ctx.GlobalIsSet("log-level") {
		cfg.Log.Level = ctx.GlobalString("log-level")
	}
	if ctx.IsSet("seed") {
		cfg.Scene.Seed = ctx.Uint64("seed")
	}
	if ctx.IsSet("spheres") {
		cfg.Scene.SphereCount = ctx.Int("spheres")
	}
	if ctx.IsSet("placement-radius") {
		cfg.Scene.PlacementRadius = float32(ctx.Float64("placement-radius"))
	}
	if ctx.IsSet("bounces") {
		cfg.Kernel.MaxBounces = uint32(ctx.Uint("bounces"))
	}
	if ctx.IsSet("width") {
		cfg.Output.Width = ctx.Int("width")
	}
	if ctx.IsSet("height") {
		cfg.Output.Height = ctx.Int("height")
	}
	if ctx.IsSet("frames") {
		cfg.Engine.FrameLimit = ctx.Int("frames")
	}
	if ctx.IsSet("workers") {
		cfg.Engine.Workers = ctx.Int("workers")
	}
	if ctx.IsSet("epsilon") {
		cfg.Invalidation.Epsilon = float32(ctx.Float64("epsilon"))
	}
	if ctx.IsSet("profile") {
		cfg.Engine.Profiling = ctx.Bool("profile")
	}
	if ctx.IsSet("shader") {
		cfg.Kernel.Shader = ctx.String("shader")
	}
	if ctx.IsSet("present-mode") {
		cfg.Output.PresentMode = config.PresentMode(ctx.String("present-mode"))
	}
}
