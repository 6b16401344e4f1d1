package model

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestPrimitives(t *testing.T) {
	tests := []struct {
		name      string
		m         Model
		vertices  int
		triangles int
	}{
		{"quad", NewQuad(), 4, 2},
		{"prism", NewPrism(), 6, 8},
		{"cube", NewCube(), 8, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.m.Name() != tt.name {
				t.Errorf("Name() = %q", tt.m.Name())
			}
			if n := len(tt.m.Vertices()); n != tt.vertices {
				t.Errorf("vertices = %d, want %d", n, tt.vertices)
			}
			if n := tt.m.TriangleCount(); n != tt.triangles {
				t.Errorf("triangles = %d, want %d", n, tt.triangles)
			}
		})
	}
}

func TestNewModelCopiesInput(t *testing.T) {
	verts := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	idx := []uint32{0, 1, 2}
	m := NewModel(WithVertices(verts), WithIndices(idx))

	verts[0] = mgl32.Vec3{9, 9, 9}
	idx[0] = 2
	if m.Vertices()[0] != (mgl32.Vec3{}) || m.Indices()[0] != 0 {
		t.Error("model aliases caller slices")
	}
}

func TestNewModelPanicsOnBadIndices(t *testing.T) {
	tests := []struct {
		name string
		idx  []uint32
	}{
		{"out of range", []uint32{0, 1, 3}},
		{"partial triangle", []uint32{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			NewModel(WithVertices([]mgl32.Vec3{{}, {}, {}}), WithIndices(tt.idx))
		})
	}
}

func TestBoundingRadius(t *testing.T) {
	m := NewModel(WithVertices([]mgl32.Vec3{{3, 4, 0}, {1, 0, 0}, {0, 0, 0}}), WithIndices([]uint32{0, 1, 2}))
	if r := m.BoundingRadius(); r != 5 {
		t.Errorf("BoundingRadius() = %g, want 5", r)
	}
}
