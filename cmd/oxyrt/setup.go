package main

import (
	"runtime"

	"github.com/Carmen-Shannon/oxy-rt/config"
	"github.com/Carmen-Shannon/oxy-rt/engine"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
	"github.com/go-gl/mathgl/mgl32"
)

func workers(cfg config.Config) int {
	if cfg.Engine.Workers > 0 {
		return cfg.Engine.Workers
	}
	return runtime.NumCPU()
}

func presentMode(cfg config.Config) renderer.PresentMode {
	if cfg.Output.PresentMode == config.PresentModeImmediate {
		return renderer.PresentModeUncapped
	}
	return renderer.PresentModeVSync
}

func newCamera(cfg config.Config) camera.Camera {
	cc := cfg.Camera
	return camera.NewCamera(
		camera.WithFov(mgl32.DegToRad(cc.FovDegrees)),
		camera.WithAspect(float32(cfg.Output.Width)/float32(cfg.Output.Height)),
		camera.WithController(camera.NewCameraController(
			camera.WithRadius(cc.Radius),
			camera.WithElevation(mgl32.DegToRad(cc.ElevationDegrees)),
			camera.WithTarget(mgl32.Vec3(cc.Target)),
		)),
	)
}

func newLight(cfg config.Config) light.Light {
	return light.NewLight(
		light.WithDirection(mgl32.Vec3(cfg.Light.Direction)),
		light.WithIntensity(cfg.Light.Intensity),
	)
}

func sceneParameters(cfg config.Config) scene.Parameters {
	sc := cfg.Scene
	return scene.Parameters{
		Generator: scene.GeneratorOptions{
			Seed:            sc.Seed,
			CountMax:        sc.SphereCount,
			RadiusMin:       sc.RadiusMin,
			RadiusMax:       sc.RadiusMax,
			PlacementRadius: sc.PlacementRadius,
		},
		MaxBounces: cfg.Kernel.MaxBounces,
	}
}

func newScene(cfg config.Config, r renderer.Renderer) scene.Scene {
	return scene.NewScene(r, newCamera(cfg), newLight(cfg),
		scene.WithParameters(sceneParameters(cfg)),
		scene.WithEpsilon(cfg.Invalidation.Epsilon),
		scene.WithRegistryWorkers(workers(cfg)),
	)
}

func newEngine(cfg config.Config, s scene.Scene, win window.Window) engine.Engine {
	opts := []engine.EngineBuilderOption{
		engine.WithProfiling(cfg.Engine.Profiling),
		engine.WithTickRate(float64(cfg.Engine.TickRate)),
		engine.WithFrameLimit(cfg.Engine.FrameLimit),
	}
	if win != nil {
		opts = append(opts, engine.WithWindow(win))
	}
	return engine.NewEngine(s, opts...)
}
