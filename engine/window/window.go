package window

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides the output surface and the input events that drive the orbit camera.
// Wraps platform-specific window implementations with a common interface.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press and key repeat events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetDragCallback sets the callback for cursor movement while a drag button is held.
	// The left and middle mouse buttons both start a drag.
	//
	// Parameters:
	//   - callback: function receiving the cursor movement in pixels since the previous event
	SetDragCallback(callback func(dx, dy float32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// RequestClose asks the message loop to stop. Safe to call from any goroutine.
	RequestClose()

	// ProcessMessages runs the window message loop on the calling goroutine, which must be
	// the goroutine that created the window. Blocks until the window is closed.
	// Calls the update callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// platformWindow is the native side of a window. Every method must be called on the thread
// that created it.
type platformWindow interface {
	surfaceDescriptor() *wgpu.SurfaceDescriptor
	// poll dispatches pending events and reports whether the window should keep running.
	poll() bool
	running() bool
	// requestClose may be called from any goroutine.
	requestClose()
	destroy()
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	mu *sync.Mutex

	title string

	// size limits applied to the platform window; 0 leaves a bound unset
	minWidth, minHeight int
	maxWidth, maxHeight int

	// framebuffer size, updated from the resize event
	width, height int

	platform platformWindow

	onUpdate  func()
	onResize  func(width, height int)
	onScroll  func(delta float32)
	onKeyDown func(keyCode uint32)
	onKeyUp   func(keyCode uint32)
	onDrag    func(dx, dy float32)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a native window. It locks the calling goroutine to its OS thread;
// ProcessMessages and Close must run on that goroutine.
//
// Panics if the platform window cannot be created (no display, GLFW init failure).
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the platform window
func NewWindow(options ...WindowBuilderOption) Window {
	w := newEngineWindow(options...)
	p, err := newPlatformWindow(w)
	if err != nil {
		panic(fmt.Sprintf("window: failed to create platform window: %v", err))
	}
	w.platform = p
	return w
}

func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		mu:     &sync.Mutex{},
		title:  "oxy-rt",
		width:  1280,
		height: 720,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetDragCallback(callback func(dx, dy float32)) {
	w.onDrag = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.platform == nil {
		return nil
	}
	return w.platform.surfaceDescriptor()
}

func (w *engineWindow) IsRunning() bool {
	return w.platform != nil && w.platform.running()
}

func (w *engineWindow) Close() error {
	if w.platform == nil {
		return errors.New("window is not initialized")
	}
	w.platform.destroy()
	w.platform = nil
	return nil
}

func (w *engineWindow) RequestClose() {
	if w.platform != nil {
		w.platform.requestClose()
	}
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if !w.platform.poll() {
			break
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width
}

func (w *engineWindow) Height() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.height
}

// resized records a framebuffer size reported by the platform and forwards it.
// A zero dimension means the window was minimized and is dropped.
func (w *engineWindow) resized(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	w.mu.Lock()
	w.width, w.height = width, height
	w.mu.Unlock()
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

// keyEvent forwards a key transition. Escape closes the window instead.
func (w *engineWindow) keyEvent(key uint32, down bool) {
	switch {
	case key == common.KeyEsc:
		if down {
			w.RequestClose()
		}
	case down && w.onKeyDown != nil:
		w.onKeyDown(key)
	case !down && w.onKeyUp != nil:
		w.onKeyUp(key)
	}
}
