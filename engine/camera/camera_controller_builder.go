package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraControllerOption configures a controller at construction. Radius and elevation are
// clamped after every option has been applied, so option order does not matter.
type CameraControllerOption func(*cameraControllerImpl)

// Speeds scales the controller's input. A zero field keeps the default.
type Speeds struct {
	Orbit float32 // radians per orbit step
	Drag  float32 // radians per pixel of drag
	Zoom  float32 // world units per zoom step
	Pan   float32 // world units per pan step
}

// DefaultSpeeds returns the speeds a new controller starts with.
func DefaultSpeeds() Speeds {
	return Speeds{Orbit: 0.03, Drag: 0.005, Zoom: 15, Pan: 2}
}

// WithTarget sets the pivot point.
func WithTarget(target mgl32.Vec3) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.target = target
	}
}

// WithRadius sets the distance to the target.
func WithRadius(radius float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.radius = radius
	}
}

// WithAzimuth sets the angle around +Y in radians.
func WithAzimuth(azimuth float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.azimuth = azimuth
	}
}

// WithElevation sets the angle above the ground plane in radians.
func WithElevation(elevation float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.elevation = elevation
	}
}

// WithRadiusBounds limits how far Zoom and SetRadius can go.
//
// Parameters:
//   - lo: closest distance to the target
//   - hi: farthest distance to the target
//
// Returns:
//   - CameraControllerOption: functional option to set radius bounds
func WithRadiusBounds(lo, hi float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.radiusBounds = [2]float32{lo, hi}
	}
}

// WithElevationBounds limits the elevation. Keeping hi below pi/2 avoids a degenerate
// look-at when the camera would sit straight above the target.
//
// Parameters:
//   - lo: lowest elevation in radians
//   - hi: highest elevation in radians
//
// Returns:
//   - CameraControllerOption: functional option to set elevation bounds
func WithElevationBounds(lo, hi float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.elevationBounds = [2]float32{lo, hi}
	}
}

// WithSpeeds overrides the non-zero fields of s.
func WithSpeeds(s Speeds) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		if s.Orbit != 0 {
			cc.speeds.Orbit = s.Orbit
		}
		if s.Drag != 0 {
			cc.speeds.Drag = s.Drag
		}
		if s.Zoom != 0 {
			cc.speeds.Zoom = s.Zoom
		}
		if s.Pan != 0 {
			cc.speeds.Pan = s.Pan
		}
	}
}
