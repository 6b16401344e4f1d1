package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func TestControllerSphericalPosition(t *testing.T) {
	cc := NewCameraController(
		WithRadius(10),
		WithAzimuth(0),
		WithElevation(0.5),
		WithTarget(mgl32.Vec3{1, 2, 3}),
	)
	want := mgl32.Vec3{1, 2 + 10*math32.Sin(0.5), 3 + 10*math32.Cos(0.5)}
	if got := cc.Position(); !got.ApproxEqualThreshold(want, 1e-4) {
		t.Fatalf("Position() = %v, want %v", got, want)
	}
	if d := cc.Position().Sub(cc.Target()).Len(); math32.Abs(d-10) > 1e-4 {
		t.Errorf("distance to target = %v, want 10", d)
	}
}

func TestControllerClamps(t *testing.T) {
	cc := NewCameraController(WithRadiusBounds(5, 50), WithElevationBounds(0.1, 1.0), WithRadius(20))

	cc.SetRadius(1000)
	if cc.Radius() != 50 {
		t.Errorf("Radius() = %v, want 50", cc.Radius())
	}
	cc.Zoom(1000)
	if cc.Radius() != 5 {
		t.Errorf("Radius() after zoom in = %v, want 5", cc.Radius())
	}
	cc.SetElevation(3)
	if cc.Elevation() != 1.0 {
		t.Errorf("Elevation() = %v, want 1", cc.Elevation())
	}
	cc.Drag(0, 1e6)
	if cc.Elevation() != 0.1 {
		t.Errorf("Elevation() after drag = %v, want 0.1", cc.Elevation())
	}
}

func TestControllerPanKeepsOrbit(t *testing.T) {
	cc := NewCameraController(WithRadius(10), WithElevation(0.3))
	before := cc.Position().Sub(cc.Target())

	cc.Pan(3, -2)

	after := cc.Position().Sub(cc.Target())
	if !after.ApproxEqualThreshold(before, 1e-4) {
		t.Errorf("offset changed from %v to %v", before, after)
	}
	if cc.Target()[1] != 0 {
		t.Errorf("panning left the ground plane: target %v", cc.Target())
	}
	if cc.Target() == (mgl32.Vec3{}) {
		t.Error("target did not move")
	}
}

func TestControllerSpeeds(t *testing.T) {
	cc := NewCameraController(WithSpeeds(Speeds{Orbit: 0.5}), WithAzimuth(0))
	cc.OrbitRight()
	if cc.Azimuth() != 0.5 {
		t.Errorf("Azimuth() = %v, want 0.5", cc.Azimuth())
	}
	r := cc.Radius()
	cc.Zoom(1)
	if want := r - DefaultSpeeds().Zoom; cc.Radius() != want {
		t.Errorf("Radius() = %v, want %v from the default zoom speed", cc.Radius(), want)
	}
}

func TestLensUpdatesProjection(t *testing.T) {
	c := NewCamera()
	if c.Lens() != DefaultLens() {
		t.Fatalf("Lens() = %+v, want the default", c.Lens())
	}
	before := c.InverseProjection()
	c.SetAspect(2)
	if c.Lens().Aspect != 2 {
		t.Errorf("Aspect = %v, want 2", c.Lens().Aspect)
	}
	if c.InverseProjection() == before {
		t.Error("SetAspect did not recompute the projection")
	}
}

func TestCameraWithoutController(t *testing.T) {
	c := NewCamera()
	if c.CameraToWorld() != mgl32.Ident4() {
		t.Errorf("CameraToWorld() = %v, want identity", c.CameraToWorld())
	}
	c.Update()
	if c.Controller() != nil {
		t.Error("Controller() should be nil")
	}
}

func TestCameraToWorldMatchesPose(t *testing.T) {
	cc := NewCameraController(WithRadius(10), WithElevation(0.4), WithAzimuth(1.1))
	c := NewCamera(WithController(cc), WithAspect(16.0/9.0))

	origin := c.CameraToWorld().Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	if !origin.ApproxEqualThreshold(cc.Position(), 1e-3) {
		t.Fatalf("camera origin = %v, want %v", origin, cc.Position())
	}

	// The view-space -Z axis must point at the target.
	forward := c.CameraToWorld().Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3().Normalize()
	want := cc.Target().Sub(cc.Position()).Normalize()
	if !forward.ApproxEqualThreshold(want, 1e-4) {
		t.Errorf("forward = %v, want %v", forward, want)
	}

	cc.OrbitLeft()
	stale := c.CameraToWorld()
	c.Update()
	if c.CameraToWorld().ApproxEqualThreshold(stale, 1e-6) {
		t.Error("Update() did not pick up the new pose")
	}
}

func TestInverseProjectionUnprojectsCenter(t *testing.T) {
	c := NewCamera(WithFov(math32.Pi/2), WithAspect(2))
	dir := c.InverseProjection().Mul4x1(mgl32.Vec4{1, 1, 0, 1}).Vec3()
	// With a 90 degree vertical fov the top edge is at y/z = 1 and the right edge at x/z = aspect.
	if math32.Abs(dir[0]/-dir[2]-2) > 1e-4 || math32.Abs(dir[1]/-dir[2]-1) > 1e-4 {
		t.Errorf("unprojected corner = %v", dir)
	}
	if prod := c.ProjectionMatrix().Mul4(c.InverseProjection()); !prod.ApproxEqualThreshold(mgl32.Ident4(), 1e-4) {
		t.Errorf("P * P^-1 = %v", prod)
	}
}
