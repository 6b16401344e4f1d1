// pre_processor.go implements the WGSL shader pre-processor. It scans shader source for
// @oxy: annotations, replaces them with injected struct sources or generated declarations,
// and collects the declarations list the renderer backends use to bind resources.
package shader

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-rt/engine/mesh_registry"
)

// FrameParamsSource is the canonical WGSL definition of the FrameParams uniform written
// before every kernel dispatch.
//
//go:embed assets/frame_params.wgsl
var FrameParamsSource string

// SphereSource is the canonical WGSL definition of the Sphere struct (56 bytes, tightly packed).
//
//go:embed assets/sphere.wgsl
var SphereSource string

// registryEntry pairs a WGSL struct source with the type name used in generated declarations.
type registryEntry struct {
	Source string
	Type   string
}

type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string
	declarations         []Annotation
}

// PreProcessor processes raw WGSL shader source code containing @oxy: annotations,
// replacing them with generated declarations or injected struct sources while collecting
// a declarations list for downstream resource binding.
type PreProcessor interface {
	// Process replaces @oxy:include annotations with the registered struct source and
	// @oxy:group annotations with @group/@binding declarations. @oxy:provider annotations
	// produce no WGSL output. Each struct is injected at most once per call.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error if any annotation is malformed or references an unknown type
	Process(source string) (string, error)

	// Declarations returns the group and provider annotations collected during the most
	// recent call to Process, in source order.
	//
	// Returns:
	//   - []Annotation: the declarations collected during the last Process call
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the kernel ABI structs registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgFrameParams: {Source: FrameParamsSource, Type: "FrameParams"},
			AnnotationArgSphere:      {Source: SphereSource, Type: "Sphere"},
			AnnotationArgMeshObject:  {Source: mesh_registry.GPUMeshObjectSource, Type: "MeshObject"},
			AnnotationArgVertex:      {Source: mesh_registry.GPUVertexSource, Type: "Vertex"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]
	included := make(map[AnnotationArg]bool)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			if included[a.Args[0]] {
				continue
			}
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", i+1, a.Args[0])
			}
			included[a.Args[0]] = true
			out = append(out, entry.Source)
		case AnnotationTypeBindingGroup:
			if p.slotTaken(*a) {
				return "", fmt.Errorf("line %d: group %d binding %d declared twice", i+1, *a.Group, *a.Binding)
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
				*a.Group, *a.Binding, p.addressSpaceRegistry[a.Args[0]], a.Args[1], p.resolveType(a.Args[2])))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeProvider:
			if p.slotTaken(*a) {
				return "", fmt.Errorf("line %d: group %d binding %d declared twice", i+1, *a.Group, *a.Binding)
			}
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return slices.Clone(p.declarations)
}

// resolveType maps an annotation type key to its WGSL spelling. Scalars pass through.
func (p *preProcessor) resolveType(arg AnnotationArg) string {
	if inner, ok := strings.CutPrefix(string(arg), "array<"); ok {
		inner = strings.TrimSuffix(inner, ">")
		return fmt.Sprintf("array<%s>", p.resolveType(AnnotationArg(inner)))
	}
	if entry, ok := p.structRegistry[arg]; ok {
		return entry.Type
	}
	return string(arg)
}

func (p *preProcessor) slotTaken(a Annotation) bool {
	for _, d := range p.declarations {
		if *d.Group == *a.Group && *d.Binding == *a.Binding {
			return true
		}
	}
	return false
}
