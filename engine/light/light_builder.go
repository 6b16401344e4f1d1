package light

import "github.com/go-gl/mathgl/mgl32"

// LightBuilderOption configures a light at construction.
type LightBuilderOption func(*lightImpl)

// WithDirection sets the direction the light travels in, pointing from the sun toward the scene.
// It is normalized; a zero vector stays zero.
func WithDirection(dir mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.direction = normalize(dir)
	}
}

// WithIntensity scales the light. The kernel reads it from the w component of Vector.
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithEnabled switches the light on or off. A disabled light packs a zero Vector.
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.enabled = enabled
	}
}

// normalize returns v scaled to unit length, or the zero vector if v has zero length.
func normalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() == 0 {
		return mgl32.Vec3{}
	}
	return v.Normalize()
}
