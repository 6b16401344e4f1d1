package camera

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraControllerImpl struct {
	mu *sync.Mutex

	// position is derived from target and the spherical coordinates.
	position mgl32.Vec3
	target   mgl32.Vec3

	radius    float32
	azimuth   float32 // around +Y; 0 places the camera on +Z looking down -Z
	elevation float32 // above the ground plane

	radiusBounds    [2]float32
	elevationBounds [2]float32

	speeds Speeds
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a controller orbiting the origin at radius 250 and 25 degrees
// of elevation.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:              &sync.Mutex{},
		radius:          250,
		elevation:       25 * math32.Pi / 180,
		radiusBounds:    [2]float32{5, 2000},
		elevationBounds: [2]float32{0.02, math32.Pi/2 - 0.05},
		speeds:          DefaultSpeeds(),
	}
	for _, option := range options {
		option(cc)
	}
	cc.settle()
	return cc
}

// update applies fn under the lock and moves the camera to the resulting coordinates.
func (cc *cameraControllerImpl) update(fn func()) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	fn()
	cc.settle()
}

// settle clamps the spherical coordinates and recomputes the position.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) settle() {
	cc.radius = mgl32.Clamp(cc.radius, cc.radiusBounds[0], cc.radiusBounds[1])
	cc.elevation = mgl32.Clamp(cc.elevation, cc.elevationBounds[0], cc.elevationBounds[1])

	sinEl, cosEl := math32.Sin(cc.elevation), math32.Cos(cc.elevation)
	sinAz, cosAz := math32.Sin(cc.azimuth), math32.Cos(cc.azimuth)
	cc.position = cc.target.Add(mgl32.Vec3{sinAz * cosEl, sinEl, cosAz * cosEl}.Mul(cc.radius))
}

func (cc *cameraControllerImpl) Pose() Pose {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return Pose{Position: cc.position, Target: cc.target}
}

func (cc *cameraControllerImpl) Position() mgl32.Vec3 {
	return cc.Pose().Position
}

func (cc *cameraControllerImpl) Target() mgl32.Vec3 {
	return cc.Pose().Target
}

func (cc *cameraControllerImpl) SetTarget(target mgl32.Vec3) {
	cc.update(func() { cc.target = target })
}

func (cc *cameraControllerImpl) OrbitLeft() {
	cc.update(func() { cc.azimuth -= cc.speeds.Orbit })
}

func (cc *cameraControllerImpl) OrbitRight() {
	cc.update(func() { cc.azimuth += cc.speeds.Orbit })
}

func (cc *cameraControllerImpl) OrbitUp() {
	cc.update(func() { cc.elevation += cc.speeds.Orbit })
}

func (cc *cameraControllerImpl) OrbitDown() {
	cc.update(func() { cc.elevation -= cc.speeds.Orbit })
}

func (cc *cameraControllerImpl) Drag(dx, dy float32) {
	cc.update(func() {
		cc.azimuth += dx * cc.speeds.Drag
		cc.elevation -= dy * cc.speeds.Drag
	})
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.update(func() { cc.radius -= delta * cc.speeds.Zoom })
}

func (cc *cameraControllerImpl) Pan(right, forward float32) {
	cc.update(func() {
		sinAz, cosAz := math32.Sin(cc.azimuth), math32.Cos(cc.azimuth)
		r := mgl32.Vec3{cosAz, 0, -sinAz}.Mul(right)
		f := mgl32.Vec3{-sinAz, 0, -cosAz}.Mul(forward)
		cc.target = cc.target.Add(r.Add(f).Mul(cc.speeds.Pan))
	})
}

func (cc *cameraControllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *cameraControllerImpl) SetRadius(radius float32) {
	cc.update(func() { cc.radius = radius })
}

func (cc *cameraControllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *cameraControllerImpl) SetAzimuth(azimuth float32) {
	cc.update(func() { cc.azimuth = azimuth })
}

func (cc *cameraControllerImpl) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}

func (cc *cameraControllerImpl) SetElevation(elevation float32) {
	cc.update(func() { cc.elevation = elevation })
}
