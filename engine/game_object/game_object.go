package game_object

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

type gameObject struct {
	mu  *sync.Mutex
	id  uint64
	mdl model.Model

	position mgl32.Vec3
	rotation mgl32.Vec3
	scale    mgl32.Vec3
}

// GameObject defines the interface for a placed instance of a Model.
// A GameObject satisfies mesh_registry.Object: registering it with a Scene's registry makes its
// triangles visible to the ray tracing kernel. The transform is sampled each time the registry
// rebuilds its geometry, so moving an object does not by itself trigger a rebuild.
type GameObject interface {
	// ID returns the object's identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Model returns the Model associated with this object, or nil if not set.
	//
	// Returns:
	//   - model.Model: the associated model or nil
	Model() model.Model

	// Position returns the world-space translation.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// Rotation returns the Euler rotation in radians (applied Y, then X, then Z).
	//
	// Returns:
	//   - mgl32.Vec3: the rotation angles
	Rotation() mgl32.Vec3

	// Scale returns the per-axis scale.
	//
	// Returns:
	//   - mgl32.Vec3: the scale factors
	Scale() mgl32.Vec3

	// SetPosition sets the world-space translation.
	//
	// Parameters:
	//   - p: the new position
	SetPosition(p mgl32.Vec3)

	// SetRotation sets the Euler rotation in radians.
	//
	// Parameters:
	//   - r: the new rotation angles
	SetRotation(r mgl32.Vec3)

	// SetScale sets the per-axis scale.
	//
	// Parameters:
	//   - s: the new scale factors
	SetScale(s mgl32.Vec3)

	// Vertices returns the local-space vertices of the model, or nil if no model is set.
	//
	// Returns:
	//   - []mgl32.Vec3: the vertex positions
	Vertices() []mgl32.Vec3

	// Indices returns the triangle indices of the model, or nil if no model is set.
	//
	// Returns:
	//   - []uint32: the triangle indices
	Indices() []uint32

	// WorldTransform builds the local-to-world matrix from the current position, rotation and scale.
	//
	// Returns:
	//   - mgl32.Mat4: the model matrix
	WorldTransform() mgl32.Mat4
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new GameObject configured with the given options.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		mu:    &sync.Mutex{},
		scale: mgl32.Vec3{1, 1, 1},
	}
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) Model() model.Model {
	return g.mdl
}

func (g *gameObject) Position() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position
}

func (g *gameObject) Rotation() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotation
}

func (g *gameObject) Scale() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale
}

func (g *gameObject) SetPosition(p mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = p
}

func (g *gameObject) SetRotation(r mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = r
}

func (g *gameObject) SetScale(s mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = s
}

func (g *gameObject) Vertices() []mgl32.Vec3 {
	if g.mdl == nil {
		return nil
	}
	return g.mdl.Vertices()
}

func (g *gameObject) Indices() []uint32 {
	if g.mdl == nil {
		return nil
	}
	return g.mdl.Indices()
}

func (g *gameObject) WorldTransform() mgl32.Mat4 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return common.BuildModelMatrix(g.position, g.rotation, g.scale)
}
