package mesh_registry

import (
	_ "embed"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// GPUMeshObjectSource is the canonical WGSL definition of the MeshObject struct.
// Matches MeshObject exactly (72 bytes, 4-byte aligned; the matrix is a flat f32 array).
//
//go:embed assets/mesh_object.wgsl
var GPUMeshObjectSource string

// GPUVertexSource is the canonical WGSL definition of a tightly packed vertex position (12 bytes).
// Matches mgl32.Vec3 so FlattenedGeometry.Vertices uploads without repacking.
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// MeshObject describes one registered instance inside the flattened index pool.
type MeshObject struct {
	WorldTransform mgl32.Mat4 // offset 0, size 64 (array<f32, 16>)
	IndexOffset    int32      // offset 64
	IndexCount     int32      // offset 68
}

// Size returns the size of the MeshObject struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (m *MeshObject) Size() int {
	return int(unsafe.Sizeof(*m))
}
