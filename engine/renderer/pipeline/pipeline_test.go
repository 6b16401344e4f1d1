package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

const testKernel = `
@compute @workgroup_size(8, 8)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
}
`

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("present", PipelineTypeRender)
	if p.Type() != PipelineTypeRender {
		t.Fatalf("Type() = %v, want render", p.Type())
	}
	if p.PipelineKey() != "present" {
		t.Fatalf("PipelineKey() = %q", p.PipelineKey())
	}
	if p.Topology() != wgpu.PrimitiveTopologyTriangleList {
		t.Errorf("Topology() = %v, want triangle list", p.Topology())
	}
	if p.WriteMask() != wgpu.ColorWriteMaskAll {
		t.Errorf("WriteMask() = %v, want all", p.WriteMask())
	}
	if p.Pipeline() != nil {
		t.Errorf("Pipeline() = %v before registration, want nil", p.Pipeline())
	}
	if p.BindGroupLayout(0) != nil {
		t.Error("BindGroupLayout(0) before registration should be nil")
	}
}

func TestPipelineShaderLookup(t *testing.T) {
	cs, err := shader.NewShaderFromSource("kernel", shader.ShaderTypeCompute, testKernel)
	if err != nil {
		t.Fatalf("NewShaderFromSource: %v", err)
	}
	p := NewPipeline("kernel", PipelineTypeCompute,
		WithKernel(cs),
		WithPrimitive(wgpu.PrimitiveTopologyPointList),
		WithColorWrites(wgpu.ColorWriteMaskRed),
	)

	if p.Shader(shader.ShaderTypeCompute) != cs {
		t.Error("compute shader not returned")
	}
	if p.Shader(shader.ShaderTypeVertex) != nil || p.Shader(shader.ShaderTypeFragment) != nil {
		t.Error("unset stages should be nil")
	}
	if p.Topology() != wgpu.PrimitiveTopologyPointList {
		t.Errorf("Topology() = %v", p.Topology())
	}
	if p.WriteMask() != wgpu.ColorWriteMaskRed {
		t.Errorf("WriteMask() = %v", p.WriteMask())
	}
}

func TestReleaseUnregisteredPipeline(t *testing.T) {
	p := NewPipeline("blend", PipelineTypeCompute)
	p.Release()
	p.Release()
	if p.Pipeline() != nil {
		t.Error("released pipeline should report nil")
	}
}
