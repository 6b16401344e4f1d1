package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
)

var (
	// ErrRenderPanic wraps a panic recovered from a frame.
	ErrRenderPanic = errors.New("render panic")

	// ErrTooManyFailures is returned when consecutive frames keep failing.
	ErrTooManyFailures = errors.New("too many consecutive frame failures")
)

// engine implements the Engine interface.
// Coordinates the tick, render, and window goroutines around a single progressive scene.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once
	err         error     // the error that stopped the render loop

	window window.Window
	scene  scene.Scene
	input  *inputState

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool
	resets           int

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	frameCallback  func(deltaTime float32, stats scene.FrameStats)

	renderFrameLimit     time.Duration // minimum frame duration; 0 = uncapped
	frameLimit           int           // frames to render before quitting; 0 = unlimited
	maxConsecutiveErrors int
	failures             int
}

// Engine drives a progressive scene. Interactive runs render on a dedicated goroutine while the
// window pumps input on the calling goroutine; headless runs render on the calling goroutine.
type Engine interface {
	// Window returns the window, or nil for a headless engine.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Scene returns the scene being rendered.
	//
	// Returns:
	//   - scene.Scene: the scene
	Scene() scene.Scene

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// Held camera keys are applied and the tick callback is called at this rate.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for scene logic such as moving registered meshes.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetFrameCallback registers the function called after every rendered frame.
	//
	// Parameters:
	//   - callback: function receiving the frame delta time in seconds and the frame statistics
	SetFrameCallback(callback func(deltaTime float32, stats scene.FrameStats))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run initializes the scene, starts the tick and render goroutines and pumps window messages
	// until the window closes, Quit is called or the frame limit is reached.
	// Must be called from the goroutine that created the window.
	//
	// Returns:
	//   - error: the error that stopped rendering, or nil on a regular shutdown
	Run() error

	// RunFrames initializes the scene if needed and renders frames on the calling goroutine.
	// The tick callback runs once before every frame.
	//
	// Parameters:
	//   - ctx: stops rendering between frames when canceled
	//   - frames: the number of frames to render; 0 uses the configured frame limit, and
	//     renders until ctx is canceled when that is 0 as well
	//
	// Returns:
	//   - error: the error that stopped rendering; nil when all frames rendered or ctx was canceled
	RunFrames(ctx context.Context, frames int) error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times and from any goroutine; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine rendering s with the provided options.
// With a window, resize events resize the renderer and the camera controls are bound.
//
// Panics if s is nil.
//
// Parameters:
//   - s: the scene to drive
//   - options: functional options for engine configuration (window, profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(s scene.Scene, options ...EngineBuilderOption) Engine {
	if s == nil {
		panic("engine: NewEngine requires a non-nil Scene")
	}
	e := &engine{
		mu:                   &sync.Mutex{},
		tickRateChannel:      make(chan time.Duration, 1),
		quitChannel:          make(chan struct{}),
		scene:                s,
		input:                newInputState(),
		profiler:             profiler.NewProfiler(time.Second),
		engineTickRate:       time.Second / 60,
		maxConsecutiveErrors: 10,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			e.scene.Renderer().Resize(width, height)
		})
		e.bindControls(e.window)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) Run() error {
	if e.window == nil {
		return fmt.Errorf("engine: Run requires a window, use RunFrames for headless rendering")
	}
	if err := e.initScene(); err != nil {
		return err
	}

	e.running.Store(true)
	e.handle()
	e.window.ProcessMessages()
	e.Quit()
	e.wg.Wait()
	e.running.Store(false)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *engine) RunFrames(ctx context.Context, frames int) error {
	if err := e.initScene(); err != nil {
		return err
	}
	if frames <= 0 {
		frames = e.frameLimit
	}

	e.running.Store(true)
	defer e.running.Store(false)

	last := time.Now()
	for rendered := 0; frames == 0 || rendered < frames; {
		select {
		case <-ctx.Done():
			return nil
		case <-e.quitChannel:
			return e.stopError()
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		e.applyInput()
		if e.tickCallback != nil {
			e.tickCallback(dt)
		}
		ok, err := e.frame(ctx, dt)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if ok {
			rendered++
		}
	}
	return nil
}

// initScene initializes an uninitialized scene. Already initialized scenes are left alone.
func (e *engine) initScene() error {
	if e.scene.State() != scene.StateUninitialized {
		return nil
	}
	if err := e.scene.Initialize(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit(nil)
}

// signalQuit records err as the reason for stopping and closes the quit channel.
// Only the first call has an effect.
func (e *engine) signalQuit(err error) {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.err = err
		e.mu.Unlock()
		close(e.quitChannel)
		if e.window != nil {
			e.window.RequestClose()
		}
	})
}

func (e *engine) stopError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// handle launches the engine and render goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Applies held camera keys, fires the tick callback at the configured tick rate and listens for
// dynamic rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.applyInput()
			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Every iteration ticks the scene once. Stops on the frame limit, a disposed scene, too many
// consecutive failures or a recovered panic.
func (e *engine) handleRender() {
	defer e.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-e.quitChannel:
			cancel()
		case <-ctx.Done():
		}
	}()

	lastRender := time.Now()
	rendered := 0

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		ok, err := e.frame(ctx, dt)
		if err != nil {
			if ctx.Err() == nil {
				e.signalQuit(err)
			}
			return
		}
		if ok {
			rendered++
			if e.frameLimit > 0 && rendered >= e.frameLimit {
				common.Logger().Info("frame limit reached", "frames", rendered)
				e.signalQuit(nil)
				return
			}
		}

		// Frame rate limiting
		if e.renderFrameLimit > 0 {
			elapsed := time.Since(lastRender)
			if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// frame ticks the scene once. A failed frame is logged and skipped; it is only returned as an
// error when rendering must stop.
//
// Returns:
//   - bool: true if the frame was rendered
//   - error: a stopping error (canceled context, disposed scene, panic, or too many failures)
func (e *engine) frame(ctx context.Context, dt float32) (rendered bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render recovered from panic", "panic", r)
			rendered, err = false, fmt.Errorf("engine: %w: %v", ErrRenderPanic, r)
		}
	}()

	stats, err := e.scene.Tick(ctx)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return false, ctx.Err()
	case errors.Is(err, scene.ErrInvalidState):
		return false, fmt.Errorf("engine: %w", err)
	default:
		e.failures++
		common.Logger().Warn("frame skipped", "error", err, "consecutive", e.failures)
		if e.failures >= e.maxConsecutiveErrors {
			return false, fmt.Errorf("engine: %w: %w", ErrTooManyFailures, err)
		}
		return false, nil
	}
	e.failures = 0

	if stats.Reset {
		e.resets++
		common.Logger().Debug("accumulation reset", "changed", stats.Changed.String(), "frame", stats.Frame)
	}
	if e.frameCallback != nil {
		e.frameCallback(dt, stats)
	}
	if e.profilingEnabled.Load() && e.profiler.Tick(profiler.Sample{
		SampleCount: stats.SampleCount,
		Resets:      e.resets,
		Renderer:    e.scene.Renderer().Stats(),
	}) {
		e.resets = 0
	}
	return true, nil
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetFrameCallback(callback func(deltaTime float32, stats scene.FrameStats)) {
	e.frameCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameInterval(fps)
}

func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

func frameInterval(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
