package light

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu        *sync.Mutex
	direction mgl32.Vec3
	intensity float32
	enabled   bool
}

// Light defines the interface for the directional light of the scene, the sun.
//
// The kernel receives the light as a single four-component vector: the normalized direction
// the light travels in xyz and the intensity in w. The scene compares direction and intensity
// frame to frame, so changing either resets the accumulated image.
type Light interface {
	// Direction returns the normalized direction the light travels in.
	//
	// Returns:
	//   - mgl32.Vec3: normalized direction, or the zero vector if none was set
	Direction() mgl32.Vec3

	// Intensity returns the scalar intensity multiplier for the light.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// Enabled returns whether the light contributes to the image.
	//
	// Returns:
	//   - bool: true if the light is enabled
	Enabled() bool

	// Vector packs the light for the kernel: direction in xyz, intensity in w.
	// A disabled light packs to the zero vector, which the kernel skips.
	//
	// Returns:
	//   - mgl32.Vec4: the packed light
	Vector() mgl32.Vec4

	// SetDirection sets the direction of the light. The direction is normalized before storing.
	//
	// Parameters:
	//   - dir: the direction the light travels in
	SetDirection(dir mgl32.Vec3)

	// SetIntensity sets the scalar intensity multiplier.
	//
	// Parameters:
	//   - intensity: the new intensity value
	SetIntensity(intensity float32)

	// SetEnabled enables or disables the light.
	//
	// Parameters:
	//   - enabled: true to enable, false to disable
	SetEnabled(enabled bool)
}

var _ Light = &lightImpl{}

// NewLight creates a new enabled directional light pointing straight down with intensity 1.
//
// Parameters:
//   - opts: optional builder options to configure the light
//
// Returns:
//   - Light: the newly created light
func NewLight(opts ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:        &sync.Mutex{},
		direction: mgl32.Vec3{0, -1, 0},
		intensity: 1.0,
		enabled:   true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.direction
}

func (l *lightImpl) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intensity
}

func (l *lightImpl) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *lightImpl) Vector() mgl32.Vec4 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return mgl32.Vec4{}
	}
	return l.direction.Vec4(l.intensity)
}

func (l *lightImpl) SetDirection(dir mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.direction = normalize(dir)
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = intensity
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}
