package window

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow is the GLFW platformWindow.
type glfwWindow struct {
	window *glfw.Window
	closed atomic.Bool

	// drag state, touched only from GLFW callbacks on the window thread
	dragging     bool
	lastX, lastY float64
}

var _ platformWindow = &glfwWindow{}

// newPlatformWindow creates a GLFW window without a client API and routes its input to w.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
func newPlatformWindow(w *engineWindow) (platformWindow, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// The surface is driven by WebGPU; no OpenGL context.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	win.SetSizeLimits(dontCare(w.minWidth), dontCare(w.minHeight), dontCare(w.maxWidth), dontCare(w.maxHeight))

	gw := &glfwWindow{window: win}
	gw.bind(w)
	w.resized(win.GetFramebufferSize())
	return gw, nil
}

// bind installs the GLFW callbacks that feed w.
func (gw *glfwWindow) bind(w *engineWindow) {
	gw.window.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		w.keyEvent(uint32(key), action != glfw.Release)
	})

	gw.window.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		if w.onScroll != nil {
			w.onScroll(float32(yoff))
		}
	})

	// Left and middle both drag-orbit.
	gw.window.SetMouseButtonCallback(func(win *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft && button != glfw.MouseButtonMiddle {
			return
		}
		gw.dragging = action == glfw.Press
		if gw.dragging {
			gw.lastX, gw.lastY = win.GetCursorPos()
		}
	})

	gw.window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if !gw.dragging {
			return
		}
		dx, dy := x-gw.lastX, y-gw.lastY
		gw.lastX, gw.lastY = x, y
		if w.onDrag != nil {
			w.onDrag(float32(dx), float32(dy))
		}
	})

	// Framebuffer size, not window size: they differ on high-DPI displays.
	gw.window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resized(width, height)
	})
}

func dontCare(v int) int {
	if v <= 0 {
		return glfw.DontCare
	}
	return v
}

// surfaceDescriptor uses the wgpuglfw bridge, which picks HWND, Xlib, Wayland or Metal.
func (gw *glfwWindow) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

func (gw *glfwWindow) poll() bool {
	glfw.PollEvents()
	return gw.running()
}

func (gw *glfwWindow) running() bool {
	return !gw.closed.Load() && !gw.window.ShouldClose()
}

// requestClose only sets a flag; SetShouldClose is restricted to the main thread.
// PostEmptyEvent wakes the loop so it notices.
func (gw *glfwWindow) requestClose() {
	gw.closed.Store(true)
	glfw.PostEmptyEvent()
}

func (gw *glfwWindow) destroy() {
	gw.closed.Store(true)
	gw.window.Destroy()
	glfw.Terminate()
}
