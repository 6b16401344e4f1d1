package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Lens is the perspective part of a camera. Near and Far only shape the projection the kernel
// unprojects through; rays are not clipped by them.
type Lens struct {
	Fov    float32 // vertical, radians
	Aspect float32 // width / height
	Near   float32
	Far    float32
}

// DefaultLens is a 60 degree lens with a square aspect.
func DefaultLens() Lens {
	return Lens{Fov: 60 * math32.Pi / 180, Aspect: 1, Near: 0.1, Far: 1000}
}

type cameraImpl struct {
	mu *sync.Mutex

	lens Lens

	viewMatrix        mgl32.Mat4
	projectionMatrix  mgl32.Mat4
	cameraToWorld     mgl32.Mat4
	inverseProjection mgl32.Mat4

	controller CameraController
}

// Camera turns the pose of a CameraController and a Lens into the two matrices the tracing
// kernel generates primary rays from. World up is +Y.
type Camera interface {
	// Lens returns the current lens.
	//
	// Returns:
	//   - Lens: fov, aspect and clip planes
	Lens() Lens

	// SetLens replaces the lens and recomputes the projection.
	//
	// Parameters:
	//   - l: the new lens
	SetLens(l Lens)

	// SetAspect changes only the aspect ratio. The scene calls it when the output is resized.
	//
	// Parameters:
	//   - aspect: width / height
	SetAspect(aspect float32)

	// ViewMatrix returns the world-to-camera matrix.
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the perspective projection (WebGPU depth range).
	ProjectionMatrix() mgl32.Mat4

	// CameraToWorld returns the inverse of the view matrix. The kernel takes the ray origin
	// from its translation and rotates view-space directions into world space with it.
	//
	// Returns:
	//   - mgl32.Mat4: the camera-to-world matrix, identity while no controller is attached
	CameraToWorld() mgl32.Mat4

	// InverseProjection returns the inverse of the projection matrix. The kernel unprojects
	// normalized device coordinates through it to get view-space ray directions.
	//
	// Returns:
	//   - mgl32.Mat4: the inverse projection matrix
	InverseProjection() mgl32.Mat4

	// Controller returns the attached controller, or nil.
	Controller() CameraController

	// SetController attaches ctrl and takes its pose immediately.
	SetController(ctrl CameraController)

	// Update takes the controller's current pose. The scene calls it once per frame, before the
	// pose is compared against the previous frame. Does nothing without a controller.
	Update()
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera with DefaultLens. Until a controller is attached, through
// WithController or SetController, the view matrices are the identity.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:            &sync.Mutex{},
		lens:          DefaultLens(),
		viewMatrix:    mgl32.Ident4(),
		cameraToWorld: mgl32.Ident4(),
	}
	for _, option := range options {
		option(c)
	}
	c.recompute()
	return c
}

func (c *cameraImpl) Lens() Lens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lens
}

func (c *cameraImpl) SetLens(l Lens) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lens = l
	c.recompute()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lens.Aspect = aspect
	c.recompute()
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) CameraToWorld() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cameraToWorld
}

func (c *cameraImpl) InverseProjection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjection
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
	c.recompute()
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller != nil {
		c.recompute()
	}
}

// recompute rebuilds the projection pair and, with a controller attached, the view pair.
// Caller must hold the mutex.
func (c *cameraImpl) recompute() {
	l := c.lens
	c.projectionMatrix = common.Perspective(l.Fov, l.Aspect, l.Near, l.Far)
	c.inverseProjection = c.projectionMatrix.Inv()

	if c.controller == nil {
		return
	}
	pose := c.controller.Pose()
	c.viewMatrix = mgl32.LookAtV(pose.Position, pose.Target, mgl32.Vec3{0, 1, 0})
	c.cameraToWorld = c.viewMatrix.Inv()
}
