package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/config"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
	"github.com/urfave/cli"
)

const minWindowSize = 64

// Render opens a window and renders with the WebGPU backend until the window closes,
// the frame limit is reached or the process is interrupted.
func Render(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	level, _ := cfg.Log.SlogLevel()
	setupLogging(level)

	opts := []renderer.RendererBuilderOption{
		renderer.WithPresentMode(presentMode(cfg)),
	}
	if cfg.Kernel.Shader != "" {
		k, err := loadKernelShader(cfg.Kernel.Shader)
		if err != nil {
			return err
		}
		opts = append(opts, renderer.WithKernelShader(k))
	}

	win := window.NewWindow(
		window.WithTitle(common.Coalesce(cfg.Window.Title, "oxy-rt")),
		window.WithSize(cfg.Output.Width, cfg.Output.Height),
		window.WithMinSize(minWindowSize, minWindowSize),
	)
	defer win.Close()

	r := renderer.NewRenderer(renderer.BackendTypeWGPU, win, opts...)
	defer r.Release()
	s := newScene(cfg, r)
	defer s.Shutdown()
	eng := newEngine(cfg, s, win)
	printControls(ctx, cfg)

	sigCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go func() {
		if watchSignals(sigCtx) != nil {
			eng.Quit()
		}
	}()

	if err := eng.Run(); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if out := ctx.String("output"); out != "" {
		return saveSnapshot(s, out, ctx.Float64("gamma"), 0)
	}
	return nil
}

func loadKernelShader(path string) (shader.Shader, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read kernel %s: %w", path, err)
	}
	k, err := shader.NewShaderFromSource(path, shader.ShaderTypeCompute, string(src))
	if err != nil {
		return nil, fmt.Errorf("kernel %s: %w", path, err)
	}
	common.Logger().Info("custom kernel loaded", "path", path)
	return k, nil
}

func printControls(ctx *cli.Context, cfg config.Config) {
	fmt.Fprintf(ctx.App.Writer, "%s: %dx%d, seed %d, %d bounces\n",
		cfg.Window.Title, cfg.Output.Width, cfg.Output.Height, cfg.Scene.Seed, cfg.Kernel.MaxBounces)
	fmt.Fprintln(ctx.App.Writer, "  A/D W/S or arrows: orbit   Q/E or scroll: zoom   drag: orbit   J/L I/K: pan")
	fmt.Fprintln(ctx.App.Writer, "  R: randomize scene         Esc: quit")
}
