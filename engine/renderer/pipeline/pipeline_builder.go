package pipeline

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption configures a pipeline before a backend registers it.
type PipelineBuilderOption func(*pipeline)

// WithKernel sets the compute stage of a compute pipeline. The tracing kernel and the blend pass
// are both built this way.
//
// Parameters:
//   - s: a compute shader
//
// Returns:
//   - PipelineBuilderOption: the option setting the compute stage
func WithKernel(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.computeShader = s
	}
}

// WithStages sets both stages of a render pipeline. vs and fs may be two entry points parsed
// from the same WGSL source.
//
// Parameters:
//   - vs: the vertex stage
//   - fs: the fragment stage
//
// Returns:
//   - PipelineBuilderOption: the option setting the vertex and fragment stages
func WithStages(vs, fs shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = vs
		p.fragmentShader = fs
	}
}

// WithPrimitive overrides the triangle list topology of a render pipeline.
func WithPrimitive(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithColorWrites restricts which channels the fragment stage writes to the surface.
func WithColorWrites(mask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = mask
	}
}
