// Command oxyrt renders a procedurally generated sphere scene with a progressive path tracer.
//
//	oxyrt render   [flags]  interactive WebGPU window with an orbit camera
//	oxyrt headless [flags]  CPU rendering of a fixed number of frames into a PNG
//	oxyrt config   [flags]  print the effective configuration as YAML
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/urfave/cli"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "oxyrt:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "oxyrt"
	app.Usage = "progressive ray tracer"
	app.Version = "0.1.0"
	app.Flags = globalFlags
	app.Commands = []cli.Command{
		{
			Name:   "render",
			Usage:  "render interactively in a window (WebGPU)",
			Flags:  append(sceneFlags, renderFlags...),
			Action: Render,
		},
		{
			Name:   "headless",
			Usage:  "render frames on the CPU and write the converged image",
			Flags:  append(sceneFlags, headlessFlags...),
			Action: Headless,
		},
		{
			Name:   "config",
			Usage:  "print the effective configuration",
			Flags:  sceneFlags,
			Action: PrintConfig,
		},
	}
	return app
}

// setupLogging installs a text logger on stderr at the configured level.
func setupLogging(level slog.Level) {
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// PrintConfig writes the configuration after file loading and flag overrides to stdout.
func PrintConfig(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	out, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = ctx.App.Writer.Write(out)
	return err
}
