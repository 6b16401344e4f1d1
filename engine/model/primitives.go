package model

import "github.com/go-gl/mathgl/mgl32"

// NewQuad creates a unit quad in the XZ plane centred on the origin, facing +Y.
// Four vertices, two triangles.
func NewQuad() Model {
	return NewModel(
		WithName("quad"),
		WithVertices([]mgl32.Vec3{
			{-0.5, 0, -0.5},
			{0.5, 0, -0.5},
			{0.5, 0, 0.5},
			{-0.5, 0, 0.5},
		}),
		WithIndices([]uint32{0, 2, 1, 0, 3, 2}),
	)
}

// NewPrism creates a triangular prism one unit tall with its base on the XZ plane.
// Six vertices, eight triangles.
func NewPrism() Model {
	return NewModel(
		WithName("prism"),
		WithVertices([]mgl32.Vec3{
			{-0.5, 0, -0.5}, {0.5, 0, -0.5}, {0, 0, 0.5},
			{-0.5, 1, -0.5}, {0.5, 1, -0.5}, {0, 1, 0.5},
		}),
		WithIndices([]uint32{
			0, 1, 2,
			3, 5, 4,
			0, 3, 4, 0, 4, 1,
			1, 4, 5, 1, 5, 2,
			2, 5, 3, 2, 3, 0,
		}),
	)
}

// NewCube creates a unit cube centred on the origin. Eight shared vertices, twelve triangles.
func NewCube() Model {
	return NewModel(
		WithName("cube"),
		WithVertices([]mgl32.Vec3{
			{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5},
			{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5},
		}),
		WithIndices([]uint32{
			0, 2, 1, 0, 3, 2, // back
			4, 5, 6, 4, 6, 7, // front
			0, 4, 7, 0, 7, 3, // left
			1, 2, 6, 1, 6, 5, // right
			3, 7, 6, 3, 6, 2, // top
			0, 1, 5, 0, 5, 4, // bottom
		}),
	)
}
