package renderer

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU fallback adapter instead of hardware GPU
// acceleration. This requires a software Vulkan ICD (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithKernelShader sets the WGSL compute kernel used by the WGPU backend.
// The shader's @workgroup_size becomes the kernel tile size.
//
// Parameters:
//   - s: a compute shader declaring its bindings with @oxy:group and @oxy:provider annotations
//
// Returns:
//   - RendererBuilderOption: a function that applies the kernel shader to a renderer
func WithKernelShader(s shader.Shader) RendererBuilderOption {
	return func(r *renderer) {
		r.kernelShader = s
	}
}

// WithSoftwareKernel sets the Go kernel run by the software backend.
func WithSoftwareKernel(k SoftwareKernel) RendererBuilderOption {
	return func(r *renderer) {
		r.softwareKernel = k
	}
}

// WithKernelFunc sets a per-pixel Go function as the software backend's kernel.
func WithKernelFunc(fn KernelFunc) RendererBuilderOption {
	return func(r *renderer) {
		r.softwareKernel = NewFuncKernel(fn)
	}
}

// WithOutputSize sets the output surface size. For the WGPU backend this overrides the
// window's framebuffer size on creation.
//
// Parameters:
//   - width: output width in pixels
//   - height: output height in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the output size to a renderer
func WithOutputSize(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		r.outputWidth = width
		r.outputHeight = height
	}
}

// WithTileSize sets the software kernel's workgroup size. Values below 1 are ignored.
func WithTileSize(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		if width > 0 && height > 0 {
			r.tileSize = [2]int{width, height}
		}
	}
}

// WithWorkers sets the number of software backend workers. Values below 1 are ignored.
func WithWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithMemoryLimit caps the bytes the software backend may hold in live buffers and images.
// Allocations past the cap fail with ErrOutOfMemory. Zero means unlimited.
//
// Parameters:
//   - bytes: the cap in bytes
//
// Returns:
//   - RendererBuilderOption: a function that applies the limit to a renderer
func WithMemoryLimit(bytes int) RendererBuilderOption {
	return func(r *renderer) {
		r.memoryLimit = bytes
	}
}
