// annotations.go defines the annotation types, argument constants, and parser for the
// WGSL pre-processor. Annotations are single-line WGSL comments prefixed with @oxy: that
// inject the kernel ABI structs, declare bind group variables, and mark hand-written
// bindings with the resource they expect. The parsed results are consumed by the renderer
// backends to bind kernel parameters, buffers and images by name.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition at the
	// annotation site. It is consumed entirely during pre-processing.
	//
	// Syntax: //@oxy:include <struct_type>
	//
	// Example: //@oxy:include sphere
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration and
	// records a declaration carrying the group, binding, address space, variable name and type.
	// The variable name is the kernel parameter the binding receives (e.g. "spheres").
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 1 storage_read spheres array<sphere>
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider records which resource a hand-written binding expects without
	// generating any WGSL. Used for textures and internal pass parameters that have no
	// registered struct.
	//
	// Syntax: //@oxy:provider <group> <binding> <provider_identity>
	//
	// Example: //@oxy:provider 0 5 result
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed (include, group, or provider).
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:  [0] = struct type key (e.g. "sphere")
	//   - group:    [0] = address space, [1] = var name, [2] = type key
	//   - provider: [0] = provider identity (e.g. "result")
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source.
	Line int

	// Group is the @group index for group and provider annotations. Nil for include annotations.
	Group *int

	// Binding is the @binding index for group and provider annotations. Nil for include annotations.
	Binding *int
}

// VarName returns the declared variable name of a group annotation, or the provider identity
// of a provider annotation. Include annotations return an empty string.
func (a Annotation) VarName() string {
	switch a.Type {
	case AnnotationTypeBindingGroup:
		return string(a.Args[1])
	case AnnotationTypeProvider:
		return string(a.Args[0])
	default:
		return ""
	}
}

// AnnotationArg is a typed string constant used as an argument in annotations.
type AnnotationArg string

// Struct type arguments. Each maps to a Go GPU type with an embedded .wgsl definition.
const (
	// AnnotationArgFrameParams identifies the per-dispatch FrameParams uniform.
	// Source: engine/renderer/shader/assets/frame_params.wgsl
	AnnotationArgFrameParams AnnotationArg = "frame_params"

	// AnnotationArgSphere identifies the Sphere struct.
	// Source: engine/renderer/shader/assets/sphere.wgsl
	AnnotationArgSphere AnnotationArg = "sphere"

	// AnnotationArgMeshObject identifies the MeshObject struct.
	// Source: engine/mesh_registry/assets/mesh_object.wgsl
	AnnotationArgMeshObject AnnotationArg = "mesh_object"

	// AnnotationArgVertex identifies the tightly packed Vertex struct.
	// Source: engine/mesh_registry/assets/vertex.wgsl
	AnnotationArgVertex AnnotationArg = "vertex"
)

// Address space arguments, mapped to WGSL var<> declarations.
const (
	annotationArgStorageTypeUniform   AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead      AnnotationArg = "storage_read"
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// Provider identity arguments.
const (
	// AnnotationArgResult identifies the kernel's output storage texture.
	AnnotationArgResult AnnotationArg = "result"

	// AnnotationArgSample identifies the freshly traced sample read by the blend pass.
	AnnotationArgSample AnnotationArg = "sample"

	// AnnotationArgAccumulation identifies the running accumulation buffer.
	AnnotationArgAccumulation AnnotationArg = "accumulation"

	// AnnotationArgPassParams identifies the small uniform of the blend and present passes.
	AnnotationArgPassParams AnnotationArg = "pass_params"
)

// validStructTypes lists the struct type keys accepted by include and group annotations.
// Each entry must have a registryEntry in the PreProcessor's structRegistry.
var validStructTypes = []AnnotationArg{
	AnnotationArgFrameParams,
	AnnotationArgSphere,
	AnnotationArgMeshObject,
	AnnotationArgVertex,
}

// validScalarTypes lists the WGSL scalar types that group annotations may declare as
// array elements directly, such as the shared index pool.
var validScalarTypes = []AnnotationArg{"u32", "i32", "f32"}

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
	annotationArgStorageTypeReadWrite,
}

var validProviderIdentities = []AnnotationArg{
	AnnotationArgResult,
	AnnotationArgSample,
	AnnotationArgAccumulation,
	AnnotationArgPassParams,
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires five arguments (group, binding, address space, var name, type)", lineNum)
		}
		group, binding, err := parseSlot(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		if err := validateGroupType(args[5]); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	case AnnotationTypeProvider:
		if len(args) != 4 {
			return nil, fmt.Errorf("line %d: @oxy provider annotation requires three arguments (group, binding, provider identity)", lineNum)
		}
		group, binding, err := parseSlot(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validProviderIdentities, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown provider identity %q in @oxy provider annotation", lineNum, args[3])
		}
		return &Annotation{
			Type:    AnnotationTypeProvider,
			Args:    []AnnotationArg{AnnotationArg(args[3])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}

func parseSlot(groupArg, bindingArg string, lineNum int) (int, int, error) {
	group, err := strconv.Atoi(groupArg)
	if err != nil || group < 0 {
		return 0, 0, fmt.Errorf("line %d: invalid group number %q", lineNum, groupArg)
	}
	binding, err := strconv.Atoi(bindingArg)
	if err != nil || binding < 0 {
		return 0, 0, fmt.Errorf("line %d: invalid binding number %q", lineNum, bindingArg)
	}
	return group, binding, nil
}

// validateGroupType accepts a registered struct key, or array<T> where T is a registered
// struct key or a WGSL scalar.
func validateGroupType(typeArg string) error {
	inner, isArray := strings.CutPrefix(typeArg, "array<")
	if !isArray {
		if !slices.Contains(validStructTypes, AnnotationArg(typeArg)) {
			return fmt.Errorf("unknown struct type %q in @oxy group annotation", typeArg)
		}
		return nil
	}
	if !strings.HasSuffix(inner, ">") {
		return fmt.Errorf("malformed array type %q in @oxy group annotation", typeArg)
	}
	inner = strings.TrimSuffix(inner, ">")
	if slices.Contains(validStructTypes, AnnotationArg(inner)) || slices.Contains(validScalarTypes, AnnotationArg(inner)) {
		return nil
	}
	return fmt.Errorf("unknown array element type %q in @oxy group annotation", inner)
}
