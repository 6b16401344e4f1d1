package camera

// CameraBuilderOption configures a camera at construction.
type CameraBuilderOption func(*cameraImpl)

// WithLens replaces the whole default lens.
func WithLens(l Lens) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.lens = l
	}
}

// WithFov sets the vertical field of view in radians.
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.lens.Fov = fov
	}
}

// WithAspect sets width / height. The scene overrides it on the first resize.
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.lens.Aspect = aspect
	}
}

// WithController attaches the controller the camera takes its pose from.
//
// Parameters:
//   - ctrl: the controller to attach
//
// Returns:
//   - CameraBuilderOption: functional option to set the controller
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
