package camera

import "github.com/go-gl/mathgl/mgl32"

// Pose is where a controller puts the camera.
type Pose struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
}

// CameraController orbits the camera around a target on a sphere described by radius,
// azimuth and elevation. Every mutator clamps radius and elevation to the configured bounds.
//
// Any call that changes the pose shows up in the camera matrices on the next frame, which
// restarts the accumulated image.
type CameraController interface {
	// Pose returns the current position and look-at target.
	Pose() Pose

	// Position returns the world-space camera position.
	Position() mgl32.Vec3

	// Target returns the pivot the camera orbits and looks at.
	Target() mgl32.Vec3

	// SetTarget moves the pivot, keeping radius and angles.
	SetTarget(target mgl32.Vec3)

	// OrbitLeft and OrbitRight step the azimuth by the orbit speed.
	OrbitLeft()
	OrbitRight()

	// OrbitUp and OrbitDown step the elevation by the orbit speed.
	OrbitUp()
	OrbitDown()

	// Drag orbits by a cursor movement scaled by the drag speed. Moving the cursor down
	// lowers the camera.
	//
	// Parameters:
	//   - dx: horizontal movement in pixels
	//   - dy: vertical movement in pixels
	Drag(dx, dy float32)

	// Zoom moves the camera along the view ray. Positive delta moves toward the target.
	//
	// Parameters:
	//   - delta: zoom steps, scaled by the zoom speed
	Zoom(delta float32)

	// Pan slides the target over the ground plane, along the camera's flattened right and
	// forward axes. The camera keeps its offset to the target.
	//
	// Parameters:
	//   - right: steps to the right, negative for left
	//   - forward: steps toward the view direction, negative for back
	Pan(right, forward float32)

	Radius() float32
	SetRadius(radius float32)
	Azimuth() float32
	SetAzimuth(azimuth float32)
	Elevation() float32
	SetElevation(elevation float32)
}
