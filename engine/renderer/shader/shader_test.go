package shader

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/mesh_registry"
	"github.com/cogentcore/webgpu/wgpu"
)

const testKernel = `//@oxy:include frame_params
//@oxy:include sphere
//@oxy:include mesh_object
//@oxy:include vertex

//@oxy:group 0 0 storage_uniform params frame_params
//@oxy:group 0 1 storage_read spheres array<sphere>
//@oxy:group 0 2 storage_read vertices array<vertex>
//@oxy:group 0 3 storage_read indices array<u32>
//@oxy:group 0 4 storage_read mesh_objects array<mesh_object>
//@oxy:provider 0 5 result
@group(0) @binding(5) var result: texture_storage_2d<rgba32float, write>;

@compute @workgroup_size(8, 8)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    textureStore(result, vec2<i32>(id.xy), vec4<f32>(params.seed));
}
`

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    AnnotationType
		wantNil bool
		wantErr bool
	}{
		{name: "plain code", line: "let x = 1;", wantNil: true},
		{name: "plain comment", line: "// trace the primary ray", wantNil: true},
		{name: "prefix outside comment", line: `let s = "@oxy:include sphere";`, wantNil: true},
		{name: "include", line: "//@oxy:include sphere", want: annotationTypeInclude},
		{name: "include unknown", line: "//@oxy:include camera", wantErr: true},
		{name: "group struct", line: "//@oxy:group 0 0 storage_uniform params frame_params", want: AnnotationTypeBindingGroup},
		{name: "group scalar array", line: "//@oxy:group 0 3 storage_read indices array<u32>", want: AnnotationTypeBindingGroup},
		{name: "group bare scalar", line: "//@oxy:group 0 3 storage_read indices u32", wantErr: true},
		{name: "group bad address space", line: "//@oxy:group 0 1 storage spheres array<sphere>", wantErr: true},
		{name: "group bad number", line: "//@oxy:group x 1 storage_read spheres array<sphere>", wantErr: true},
		{name: "group missing arg", line: "//@oxy:group 0 1 storage_read array<sphere>", wantErr: true},
		{name: "provider", line: "  //@oxy:provider 0 5 result", want: AnnotationTypeProvider},
		{name: "provider unknown", line: "//@oxy:provider 0 5 shadow", wantErr: true},
		{name: "empty", line: "//@oxy:", wantErr: true},
		{name: "unknown type", line: "//@oxy:bind 0 0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := parseAnnotation(tt.line, 7)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseAnnotation(%q) error = nil, want error", tt.line)
				}
				if !strings.Contains(err.Error(), "line 7") {
					t.Errorf("error %q does not name the line", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAnnotation(%q) error = %v", tt.line, err)
			}
			if tt.wantNil {
				if a != nil {
					t.Errorf("parseAnnotation(%q) = %+v, want nil", tt.line, a)
				}
				return
			}
			if a == nil || a.Type != tt.want {
				t.Fatalf("parseAnnotation(%q) = %+v, want type %q", tt.line, a, tt.want)
			}
		})
	}
}

func TestProcessGeneratesDeclarations(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process(testKernel)
	if err != nil {
		t.Fatalf("Process error = %v", err)
	}

	for _, want := range []string{
		"struct FrameParams {",
		"struct Sphere {",
		"struct MeshObject {",
		"struct Vertex {",
		"@group(0) @binding(0) var<uniform> params: FrameParams;",
		"@group(0) @binding(1) var<storage, read> spheres: array<Sphere>;",
		"@group(0) @binding(3) var<storage, read> indices: array<u32>;",
		"@group(0) @binding(4) var<storage, read> mesh_objects: array<MeshObject>;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("processed source missing %q", want)
		}
	}
	if strings.Contains(out, "@oxy:") {
		t.Error("processed source still contains group or include annotations")
	}

	decls := pp.Declarations()
	if len(decls) != 6 {
		t.Fatalf("len(Declarations) = %d, want 6", len(decls))
	}
	if decls[5].VarName() != "result" || *decls[5].Binding != 5 {
		t.Errorf("last declaration = %+v, want result provider at binding 5", decls[5])
	}
}

func TestProcessIncludesStructOnce(t *testing.T) {
	out, err := NewPreProcessor().Process("//@oxy:include sphere\n//@oxy:include sphere\n")
	if err != nil {
		t.Fatalf("Process error = %v", err)
	}
	if n := strings.Count(out, "struct Sphere"); n != 1 {
		t.Errorf("Sphere injected %d times, want 1", n)
	}
}

func TestProcessRejectsDuplicateSlot(t *testing.T) {
	src := "//@oxy:group 0 1 storage_read spheres array<sphere>\n//@oxy:provider 0 1 result\n"
	if _, err := NewPreProcessor().Process(src); err == nil {
		t.Error("Process accepted two declarations on one slot")
	}
}

func TestNewShaderFromSourceReflectsKernel(t *testing.T) {
	s, err := NewShaderFromSource("kernel", ShaderTypeCompute, testKernel)
	if err != nil {
		t.Fatalf("NewShaderFromSource error = %v", err)
	}
	if s.EntryPoint() != "main" {
		t.Errorf("EntryPoint = %q, want main", s.EntryPoint())
	}
	if s.WorkgroupSize() != [3]uint32{8, 8, 1} {
		t.Errorf("WorkgroupSize = %v, want [8 8 1]", s.WorkgroupSize())
	}

	entries := s.BindGroupLayoutDescriptor(0).Entries
	if len(entries) != 6 {
		t.Fatalf("len(entries) = %d, want 6", len(entries))
	}
	wantSizes := []uint64{176, 56, 12, 4, 72}
	for i, want := range wantSizes {
		if entries[i].Binding != uint32(i) {
			t.Errorf("entry %d binding = %d", i, entries[i].Binding)
		}
		if entries[i].Buffer.MinBindingSize != want {
			t.Errorf("binding %d MinBindingSize = %d, want %d", i, entries[i].Buffer.MinBindingSize, want)
		}
		if entries[i].Visibility != wgpu.ShaderStageCompute {
			t.Errorf("binding %d visibility = %v", i, entries[i].Visibility)
		}
	}
	if entries[0].Buffer.Type != wgpu.BufferBindingTypeUniform {
		t.Errorf("params buffer type = %v, want uniform", entries[0].Buffer.Type)
	}
	if entries[1].Buffer.Type != wgpu.BufferBindingTypeReadOnlyStorage {
		t.Errorf("spheres buffer type = %v, want read-only storage", entries[1].Buffer.Type)
	}
	out := entries[5].StorageTexture
	if out.Format != wgpu.TextureFormatRGBA32Float || out.Access != wgpu.StorageTextureAccessWriteOnly || out.ViewDimension != wgpu.TextureViewDimension2D {
		t.Errorf("result storage texture = %+v", out)
	}

	if b, ok := s.BindGroupFromVarName(0, "mesh_objects"); !ok || b != 4 {
		t.Errorf("BindGroupFromVarName(mesh_objects) = %d, %v", b, ok)
	}
	if d, ok := s.Declaration("vertices"); !ok || *d.Binding != 2 {
		t.Errorf("Declaration(vertices) = %+v, %v", d, ok)
	}
	if _, ok := s.Declaration("spheres_missing"); ok {
		t.Error("Declaration found an undeclared name")
	}
}

func TestNewShaderFromSourceRequiresEntryPoint(t *testing.T) {
	if _, err := NewShaderFromSource("frag", ShaderTypeFragment, testKernel); err == nil {
		t.Error("compute-only source accepted as fragment shader")
	}
}

func TestNewShaderPanicsOnMissingFile(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewShader did not panic on a missing file")
		}
	}()
	NewShader("missing", ShaderTypeCompute, "does/not/exist.wgsl")
}

func TestStructSizesMatchGoTypes(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   uint64
	}{
		{"FrameParams", FrameParamsSource, 176},
		{"Sphere", SphereSource, 56},
		{"MeshObject", mesh_registry.GPUMeshObjectSource, uint64((&mesh_registry.MeshObject{}).Size())},
		{"Vertex", mesh_registry.GPUVertexSource, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StructSize(tt.source, tt.name)
			if !ok || got != tt.want {
				t.Errorf("StructSize(%s) = %d, %v; want %d", tt.name, got, ok, tt.want)
			}
		})
	}
}

func TestStripComments(t *testing.T) {
	src := "a /* b /* nested */ c */ d // e\nf"
	if got := stripComments(src); got != "a  d \nf" {
		t.Errorf("stripComments = %q", got)
	}
}
