package scene

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Sphere is the GPU-aligned representation of a procedurally placed sphere.
// Matches the WGSL Sphere struct of the shader package (shader.SphereSource): 56 bytes, 4-byte aligned,
// the vectors are declared as array<f32, 3> so no padding is inserted between fields.
type Sphere struct {
	Position   mgl32.Vec3 // offset 0
	Radius     float32    // offset 12
	Specular   mgl32.Vec3 // offset 16
	Smoothness float32    // offset 28
	Albedo     mgl32.Vec3 // offset 32
	Emission   mgl32.Vec3 // offset 44
}

// Size returns the size of the Sphere struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (56)
func (s *Sphere) Size() int {
	return int(unsafe.Sizeof(*s))
}

// Emissive reports whether the sphere is a light source.
func (s *Sphere) Emissive() bool {
	return s.Emission != (mgl32.Vec3{})
}
