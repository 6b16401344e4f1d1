package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithProfilingInterval sets how often the profiler reports. Values <= 0 mean 1 second.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfilingInterval(interval time.Duration) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = profiler.NewProfiler(interval)
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickInterval(fps)
	}
}

// WithWindow attaches a window. The engine renders headless without one.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameInterval(fps)
	}
}

// WithFrameLimit stops the engine after the given number of rendered frames.
// 0 renders until the engine is stopped.
//
// Parameters:
//   - frames: the number of frames to render
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameLimit(frames int) EngineBuilderOption {
	return func(e *engine) {
		e.frameLimit = max(frames, 0)
	}
}

// WithMaxConsecutiveFailures sets how many frames in a row may fail before rendering stops.
// Values < 1 are treated as 1.
//
// Parameters:
//   - n: the failure budget
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMaxConsecutiveFailures(n int) EngineBuilderOption {
	return func(e *engine) {
		e.maxConsecutiveErrors = max(n, 1)
	}
}
