package pipeline

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	// pipelineType indicates the type of pipeline this is; compute or render
	pipelineType PipelineType
	// pipelineKey is the unique identifier for this pipeline, used for labels and lookups
	pipelineKey string

	vertexShader, fragmentShader, computeShader shader.Shader

	// renderPipeline is the render pipeline if this is a render pipeline, nil otherwise
	renderPipeline *wgpu.RenderPipeline
	// computePipeline is the compute pipeline if this is a compute pipeline, nil otherwise
	computePipeline *wgpu.ComputePipeline
	// layouts are the bind group layouts the pipeline was created with, indexed by group
	layouts []*wgpu.BindGroupLayout

	// The following are only used by render pipelines.

	topology  wgpu.PrimitiveTopology
	writeMask wgpu.ColorWriteMask
}

// Pipeline defines the interface for a GPU pipeline, encapsulating either a render pipeline
// (vertex + fragment shaders) or a compute pipeline (compute shader).
//
// The accumulation loop uses three: the tracing kernel and the blend pass are compute pipelines,
// the present pass is a full-screen render pipeline.
type Pipeline interface {
	// Type returns the type of the pipeline
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader associated with the specified type if it exists, nil otherwise.
	//
	// Parameters:
	//   - shaderType: the type of shader to retrieve (vertex, fragment, or compute)
	//
	// Returns:
	//   - shader.Shader: the shader associated with the specified type, or nil if not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// Pipeline returns the underlying pipeline object, either *wgpu.RenderPipeline or *wgpu.ComputePipeline.
	// The caller is responsible for type asserting the returned value.
	//
	// Returns:
	//   - any: the underlying pipeline object, nil before registration
	Pipeline() any

	// BindGroupLayout returns the layout of a bind group the pipeline was created with.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout, or nil if the group is unused or the pipeline is not registered
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the primitive topology
	Topology() wgpu.PrimitiveTopology

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the color write mask
	WriteMask() wgpu.ColorWriteMask

	// SetRenderPipeline stores the created render pipeline and its bind group layouts.
	//
	// Parameters:
	//   - rp: the created render pipeline
	//   - layouts: the bind group layouts indexed by group
	SetRenderPipeline(rp *wgpu.RenderPipeline, layouts []*wgpu.BindGroupLayout)

	// SetComputePipeline stores the created compute pipeline and its bind group layouts.
	//
	// Parameters:
	//   - cp: the created compute pipeline
	//   - layouts: the bind group layouts indexed by group
	SetComputePipeline(cp *wgpu.ComputePipeline, layouts []*wgpu.BindGroupLayout)

	// Release releases the GPU pipeline and its layouts.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a new Pipeline with the specified key, type, and configuration options.
// The GPU pipeline itself is created when a backend registers it.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified type and configuration
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:  pipelineKey,
		pipelineType: pipelineType,
		topology:     wgpu.PrimitiveTopologyTriangleList,
		writeMask:    wgpu.ColorWriteMaskAll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Pipeline() any {
	switch p.pipelineType {
	case PipelineTypeRender:
		if p.renderPipeline == nil {
			return nil
		}
		return p.renderPipeline
	case PipelineTypeCompute:
		if p.computePipeline == nil {
			return nil
		}
		return p.computePipeline
	default:
		return nil
	}
}

func (p *pipeline) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	if group < 0 || group >= len(p.layouts) {
		return nil
	}
	return p.layouts[group]
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	case shader.ShaderTypeCompute:
		return p.computeShader
	default:
		return nil
	}
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline, layouts []*wgpu.BindGroupLayout) {
	p.renderPipeline = rp
	p.layouts = layouts
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline, layouts []*wgpu.BindGroupLayout) {
	p.computePipeline = cp
	p.layouts = layouts
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	for _, l := range p.layouts {
		if l != nil {
			l.Release()
		}
	}
	p.layouts = nil
}
