package model

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// NewModel creates a new Model from the provided options.
// Panics if an index references a vertex that does not exist or the index count is not a multiple of three.
//
// Parameters:
//   - options: functional options to configure the model
//
// Returns:
//   - Model: the newly created model
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{
		mu: &sync.Mutex{},
	}
	for _, opt := range options {
		opt(m)
	}

	if len(m.indices)%3 != 0 {
		panic(fmt.Sprintf("model %q: index count %d is not a multiple of 3", m.name, len(m.indices)))
	}
	for i, idx := range m.indices {
		if int(idx) >= len(m.vertices) {
			panic(fmt.Sprintf("model %q: index %d at position %d out of range for %d vertices", m.name, idx, i, len(m.vertices)))
		}
	}
	return m
}

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithVertices is an option builder that sets the local-space vertex positions. The slice is copied.
//
// Parameters:
//   - vertices: the vertex positions
//
// Returns:
//   - ModelBuilderOption: a function that applies the vertices option to a model
func WithVertices(vertices []mgl32.Vec3) ModelBuilderOption {
	return func(m *model) {
		m.vertices = append([]mgl32.Vec3(nil), vertices...)
	}
}

// WithIndices is an option builder that sets the triangle list. The slice is copied.
//
// Parameters:
//   - indices: three indices per triangle
//
// Returns:
//   - ModelBuilderOption: a function that applies the indices option to a model
func WithIndices(indices []uint32) ModelBuilderOption {
	return func(m *model) {
		m.indices = append([]uint32(nil), indices...)
	}
}
