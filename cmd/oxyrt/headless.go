package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

// defaultHeadlessFrames is rendered when neither the configuration nor the flags set a frame limit.
const defaultHeadlessFrames = 64

var errInterrupted = errors.New("interrupted")

// Headless renders frames with the CPU tracer and writes the converged image.
// An interrupt stops rendering early; the image accumulated so far is still written.
func Headless(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	level, _ := cfg.Log.SlogLevel()
	setupLogging(level)

	frames := common.Coalesce(cfg.Engine.FrameLimit, defaultHeadlessFrames)

	r := renderer.NewRenderer(renderer.BackendTypeSoftware, nil,
		renderer.WithSoftwareKernel(scene.NewTracer()),
		renderer.WithOutputSize(cfg.Output.Width, cfg.Output.Height),
		renderer.WithTileSize(cfg.Kernel.TileWidth, cfg.Kernel.TileHeight),
		renderer.WithWorkers(workers(cfg)),
	)
	defer r.Release()
	s := newScene(cfg, r)
	defer s.Shutdown()
	eng := newEngine(cfg, s, nil)

	g, gctx := errgroup.WithContext(context.Background())
	renderCtx, stop := context.WithCancel(gctx)
	g.Go(func() error {
		return watchSignals(renderCtx)
	})
	g.Go(func() error {
		defer stop()
		return eng.RunFrames(renderCtx, frames)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, errInterrupted) {
		return fmt.Errorf("render failed: %w", err)
	}

	common.Logger().Info("rendering finished", "samples", s.Accumulation().SampleCount)
	return saveSnapshot(s, ctx.String("output"), ctx.Float64("gamma"), ctx.Int("scale-width"))
}

// watchSignals returns errInterrupted on SIGINT or SIGTERM, or nil once ctx is done.
func watchSignals(ctx context.Context) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case <-ctx.Done():
		return nil
	case s := <-sig:
		common.Logger().Info("stopping", "signal", s.String())
		return errInterrupted
	}
}
