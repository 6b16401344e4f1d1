package model

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// model is the implementation of the Model interface.
type model struct {
	mu             *sync.Mutex
	name           string
	vertices       []mgl32.Vec3
	indices        []uint32
	boundingRadius float32
}

// Model defines the interface for a triangle mesh in local space.
// A Model is shared between any number of game objects; each object supplies its own world transform.
// Vertices and indices are treated as immutable once the model is built.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Vertices returns the local-space vertex positions.
	// The returned slice must not be modified.
	//
	// Returns:
	//   - []mgl32.Vec3: the vertex positions
	Vertices() []mgl32.Vec3

	// Indices returns the triangle list, three indices per triangle, relative to this model's vertices.
	// The returned slice must not be modified.
	//
	// Returns:
	//   - []uint32: the triangle indices
	Indices() []uint32

	// TriangleCount returns the number of triangles in the mesh.
	//
	// Returns:
	//   - int: len(Indices()) / 3
	TriangleCount() int

	// BoundingRadius returns the maximum vertex distance from the local origin.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32
}

var _ Model = &model{}

func (m *model) Name() string {
	return m.name
}

func (m *model) Vertices() []mgl32.Vec3 {
	return m.vertices
}

func (m *model) Indices() []uint32 {
	return m.indices
}

func (m *model) TriangleCount() int {
	return len(m.indices) / 3
}

func (m *model) BoundingRadius() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.boundingRadius == 0 && len(m.vertices) > 0 {
		for _, v := range m.vertices {
			if l := v.Len(); l > m.boundingRadius {
				m.boundingRadius = l
			}
		}
	}
	return m.boundingRadius
}
