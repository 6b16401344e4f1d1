package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/gpu_buffer"
	"github.com/go-gl/mathgl/mgl32"
)

// RendererBackendType identifies the implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU backend. It requires a window surface.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeSoftware selects the CPU backend, which runs a Go kernel on a worker pool.
	// It needs no window and no GPU.
	BackendTypeSoftware
)

// String returns the backend name used in logs and configuration.
func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoftware:
		return "software"
	default:
		return "unknown"
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	PresentModeUncapped
)

// Kernel parameter names. The scene pushes values under these names and the backends bind them
// to the kernel: the WGPU backend through the FrameParams uniform and the annotated buffer
// declarations, the software backend through KernelInputs.
const (
	ParamCameraToWorld           = "camera_to_world"
	ParamCameraInverseProjection = "camera_inverse_projection"
	ParamDirectionalLight        = "directional_light"
	ParamMaxBounces              = "max_bounces"
	ParamPixelOffset             = "pixel_offset"
	ParamSeed                    = "seed"

	BufferSpheres     = "spheres"
	BufferVertices    = "vertices"
	BufferIndices     = "indices"
	BufferMeshObjects = "mesh_objects"

	ImageResult = "result"
)

var (
	// ErrNoResultImage is returned by Dispatch when no image was bound under ImageResult.
	ErrNoResultImage = errors.New("kernel has no result image bound")

	// ErrImageSize is returned when two images of a blend or readback do not match in size.
	ErrImageSize = errors.New("image size mismatch")

	// ErrRendererReleased is returned by operations on a released renderer.
	ErrRendererReleased = errors.New("renderer released")

	// ErrOutOfMemory is returned by CreateBuffer and CreateImage when the device cannot fit the allocation.
	ErrOutOfMemory = errors.New("out of device memory")
)

// Image is a 2D RGBA float32 render target owned by a backend.
type Image interface {
	// Label returns the debug label the image was created with.
	Label() string

	// Width returns the width in pixels.
	Width() int

	// Height returns the height in pixels.
	Height() int
}

// RendererBackend is implemented by each backend. The Renderer serializes calls into it.
type RendererBackend interface {
	gpu_buffer.Allocator

	// CreateImage allocates a width x height RGBA32F image cleared to zero.
	CreateImage(label string, width, height int) (Image, error)

	// ReleaseImage frees an image. Releasing twice is a no-op.
	ReleaseImage(img Image)

	// Dispatch runs the kernel over the given workgroup grid with the given parameters.
	Dispatch(params *kernelParams, groups [3]uint32) error

	// TileSize returns the kernel's workgroup size in pixels.
	TileSize() [2]int

	// Blend writes accumulation = accumulation + (sample - accumulation) * weight for every pixel.
	Blend(sample, accumulation Image, weight float32) error

	// Present shows the accumulation image on the output surface.
	Present(accumulation Image) error

	// ReadPixels copies an image back to host memory in row-major order.
	ReadPixels(img Image) ([]mgl32.Vec4, error)

	// OutputSize returns the current output surface size.
	OutputSize() (int, int)

	// ConfigureSurface resizes the output surface.
	ConfigureSurface(width, height int)

	// SetPresentMode changes the surface present mode.
	SetPresentMode(mode PresentMode)

	// Stats returns resource and work counters.
	Stats() Stats

	// Release frees every device resource owned by the backend.
	Release()
}

// Stats counts live resources and the work a backend performed since creation.
type Stats struct {
	LiveBuffers       int
	LiveImages        int
	LiveBytes         int
	BufferAllocations int
	BufferWrites      int
	Dispatches        int
	Blends            int
	Presents          int
}
