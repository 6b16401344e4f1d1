package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/gpu_buffer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
	"github.com/go-gl/mathgl/mgl32"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	kernel      *kernel
	released    bool

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	kernelShader         shader.Shader
	softwareKernel       SoftwareKernel
	outputWidth          int
	outputHeight         int
	tileSize             [2]int
	workers              int
	memoryLimit          int
}

// Renderer is the device abstraction the progressive accumulation loop drives.
//
// It hands out typed storage buffers (it is a gpu_buffer.Allocator) and RGBA32F images,
// exposes the compute Kernel, and performs the per-frame blend and present passes.
// All methods are safe for concurrent use; calls are serialized onto the backend.
type Renderer interface {
	gpu_buffer.Allocator

	// CreateImage allocates a width x height RGBA32F image cleared to zero.
	//
	// Parameters:
	//   - label: debug label for the image
	//   - width: width in pixels, at least 1
	//   - height: height in pixels, at least 1
	//
	// Returns:
	//   - Image: the new image
	//   - error: an error if the size is invalid or the device is out of memory
	CreateImage(label string, width, height int) (Image, error)

	// ReleaseImage frees an image. Nil and already released images are ignored.
	//
	// Parameters:
	//   - img: the image to release
	ReleaseImage(img Image)

	// Kernel returns the compute kernel. The same Kernel is returned on every call.
	//
	// Returns:
	//   - Kernel: the kernel
	Kernel() Kernel

	// Blend folds a fresh sample into the accumulation image as a running average:
	// accumulation = accumulation + (sample - accumulation) * weight. A weight of 1
	// replaces the accumulation with the sample.
	//
	// Parameters:
	//   - sample: the image the kernel just wrote
	//   - accumulation: the running average
	//   - weight: 1/(n+1) for the n-th sample since the last reset
	//
	// Returns:
	//   - error: ErrImageSize if the images differ in size, or a device error
	Blend(sample, accumulation Image, weight float32) error

	// Present shows the accumulation image on the output surface.
	//
	// Parameters:
	//   - accumulation: the image to show
	//
	// Returns:
	//   - error: a device error, e.g. the surface texture could not be acquired
	Present(accumulation Image) error

	// ReadPixels copies an image back to host memory, row-major, top row first.
	//
	// Parameters:
	//   - img: the image to read
	//
	// Returns:
	//   - []mgl32.Vec4: width*height RGBA pixels
	//   - error: a device error
	ReadPixels(img Image) ([]mgl32.Vec4, error)

	// OutputSize returns the size of the output surface in pixels.
	//
	// Returns:
	//   - int: width
	//   - int: height
	OutputSize() (int, int)

	// Resize reconfigures the output surface. Images are not resized; the caller recreates them.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode.
	//
	// Parameters:
	//   - mode: PresentModeVSync or PresentModeUncapped
	SetPresentMode(mode PresentMode)

	// Stats returns resource and work counters of the backend.
	//
	// Returns:
	//   - Stats: the counters
	Stats() Stats

	// BackendType reports which backend the renderer was built with.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	BackendType() RendererBackendType

	// Release frees every device resource. Later calls return ErrRendererReleased.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer with the given backend.
//
// The WGPU backend needs a window for its surface and a kernel shader (WithKernelShader,
// or the built-in default kernel). The software backend ignores the window and needs a
// SoftwareKernel (WithSoftwareKernel or WithKernelFunc); its output size comes from
// WithOutputSize, or the window when one is given.
//
// Parameters:
//   - backendType: the backend to use
//   - win: the window to present into, may be nil for BackendTypeSoftware
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the configured renderer
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		tileSize:    [2]int{8, 8},
		workers:     1,
	}
	for _, opt := range options {
		opt(r)
	}
	if win != nil && r.outputWidth == 0 && r.outputHeight == 0 {
		r.outputWidth, r.outputHeight = win.Width(), win.Height()
	}

	switch backendType {
	case BackendTypeSoftware:
		if r.softwareKernel == nil {
			panic("renderer: software backend requires a kernel, use WithSoftwareKernel or WithKernelFunc")
		}
		r.backend = newSoftwareRendererBackend(r.softwareKernel, r.outputWidth, r.outputHeight, r.tileSize, r.workers, r.memoryLimit)
	case BackendTypeWGPU:
		if win == nil {
			panic("renderer: the wgpu backend requires a window")
		}
		if r.kernelShader == nil {
			r.kernelShader = DefaultKernelShader()
		}
		r.backend = newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter, r.kernelShader)
	default:
		panic(fmt.Sprintf("renderer: unknown backend type %d", backendType))
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	r.backend.ConfigureSurface(r.outputWidth, r.outputHeight)
	r.kernel = &kernel{r: r, params: newKernelParams()}

	common.Logger().Info("renderer created",
		"backend", backendType.String(),
		"width", r.outputWidth,
		"height", r.outputHeight,
		"tile", r.backend.TileSize())
	return r
}

func (r *renderer) CreateBuffer(label string, count, stride int) (gpu_buffer.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil, ErrRendererReleased
	}
	if count <= 0 || stride <= 0 {
		return nil, fmt.Errorf("create buffer %q: invalid size %d x %d", label, count, stride)
	}
	return r.backend.CreateBuffer(label, count, stride)
}

func (r *renderer) WriteBuffer(h gpu_buffer.Handle, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrRendererReleased
	}
	return r.backend.WriteBuffer(h, data)
}

func (r *renderer) ReleaseBuffer(h gpu_buffer.Handle) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.backend.ReleaseBuffer(h)
}

func (r *renderer) CreateImage(label string, width, height int) (Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil, ErrRendererReleased
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("create image %q: invalid size %dx%d", label, width, height)
	}
	return r.backend.CreateImage(label, width, height)
}

func (r *renderer) ReleaseImage(img Image) {
	if img == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.backend.ReleaseImage(img)
}

func (r *renderer) Kernel() Kernel {
	return r.kernel
}

func (r *renderer) Blend(sample, accumulation Image, weight float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrRendererReleased
	}
	if sample == nil || accumulation == nil {
		return fmt.Errorf("blend: %w", ErrImageSize)
	}
	if sample.Width() != accumulation.Width() || sample.Height() != accumulation.Height() {
		return fmt.Errorf("blend %s into %s: %w", sample.Label(), accumulation.Label(), ErrImageSize)
	}
	return r.backend.Blend(sample, accumulation, mgl32.Clamp(weight, 0, 1))
}

func (r *renderer) Present(accumulation Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrRendererReleased
	}
	return r.backend.Present(accumulation)
}

func (r *renderer) ReadPixels(img Image) ([]mgl32.Vec4, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil, ErrRendererReleased
	}
	return r.backend.ReadPixels(img)
}

func (r *renderer) OutputSize() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.OutputSize()
}

func (r *renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released || width <= 0 || height <= 0 {
		return
	}
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.Stats()
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	r.backend.Release()
}
