package invalidation

import (
	"strings"
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Flag is a bitset of the inputs that can invalidate an accumulated image.
type Flag uint32

const (
	FlagCamera Flag = 1 << iota
	FlagLight
	FlagMeshSet
	FlagBounces
	FlagResolution
	FlagScene

	FlagNone Flag = 0
	FlagAll       = FlagCamera | FlagLight | FlagMeshSet | FlagBounces | FlagResolution | FlagScene
)

var flagNames = []struct {
	flag Flag
	name string
}{
	{FlagCamera, "camera"},
	{FlagLight, "light"},
	{FlagMeshSet, "mesh_set"},
	{FlagBounces, "bounces"},
	{FlagResolution, "resolution"},
	{FlagScene, "scene"},
}

// Has reports whether every bit of o is set in f.
func (f Flag) Has(o Flag) bool {
	return f&o == o && o != 0
}

func (f Flag) String() string {
	if f == FlagNone {
		return "none"
	}
	var parts []string
	for _, n := range flagNames {
		if f&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Observation is a snapshot of every input the tracker compares frame to frame.
type Observation struct {
	CameraToWorld mgl32.Mat4
	// InverseProjection carries the lens; a fov or aspect change is a camera change.
	InverseProjection mgl32.Mat4
	LightDirection    mgl32.Vec3
	LightIntensity    float32
	MeshSetChanged    bool
	MaxBounces        uint32
}

// Tracker detects changes in the inputs of a progressive render.
// It keeps two kinds of state: a single needs-reset signal consumed once per frame, and per-flag
// dirty bits that tell the renderer which parameters must be pushed to the kernel again.
type Tracker struct {
	mu      *sync.Mutex
	epsilon float32

	seen      bool
	last      Observation
	needReset bool
	dirty     Flag
}

// NewTracker creates a Tracker comparing poses component-wise with the given absolute epsilon.
// A negative epsilon is treated as 0 (exact comparison).
//
// Parameters:
//   - epsilon: the largest per-component difference still treated as equal
//
// Returns:
//   - *Tracker: the new tracker
func NewTracker(epsilon float32) *Tracker {
	if epsilon < 0 {
		epsilon = 0
	}
	return &Tracker{
		mu:      &sync.Mutex{},
		epsilon: epsilon,
	}
}

// Observe compares obs with the previous observation. Every concern that changed sets its dirty flag,
// replaces the stored value and raises the reset signal. The first observation flags everything.
//
// Parameters:
//   - obs: the current inputs
//
// Returns:
//   - Flag: the concerns that changed in this observation
func (t *Tracker) Observe(obs Observation) Flag {
	t.mu.Lock()
	defer t.mu.Unlock()

	var changed Flag
	if !t.seen {
		t.seen = true
		changed = FlagCamera | FlagLight | FlagMeshSet | FlagBounces
	} else {
		if !matApprox(t.last.CameraToWorld, obs.CameraToWorld, t.epsilon) ||
			!matApprox(t.last.InverseProjection, obs.InverseProjection, t.epsilon) {
			changed |= FlagCamera
		}
		if !vecApprox(t.last.LightDirection, obs.LightDirection, t.epsilon) ||
			math32.Abs(t.last.LightIntensity-obs.LightIntensity) > t.epsilon {
			changed |= FlagLight
		}
		if obs.MeshSetChanged {
			changed |= FlagMeshSet
		}
		if t.last.MaxBounces != obs.MaxBounces {
			changed |= FlagBounces
		}
	}

	if changed != FlagNone {
		t.last = obs
		t.last.MeshSetChanged = false
		t.dirty |= changed
		t.needReset = true
	}
	return changed
}

// Invalidate raises the reset signal and marks the given flags dirty without an observation.
// Used for changes the tracker cannot see, such as a resize or a regenerated scene.
//
// Parameters:
//   - f: the concerns to flag
func (t *Tracker) Invalidate(f Flag) {
	if f == FlagNone {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty |= f
	t.needReset = true
}

// ConsumeReset returns the reset signal and clears it.
//
// Returns:
//   - bool: true if anything changed since the last call
func (t *Tracker) ConsumeReset() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.needReset
	t.needReset = false
	return r
}

// Dirty reports whether any of the given flags still needs a push.
func (t *Tracker) Dirty(f Flag) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty&f != 0
}

// ClearDirty clears the given flags once their values were pushed.
func (t *Tracker) ClearDirty(f Flag) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty &^= f
}

// Pending returns every flag that is still dirty.
func (t *Tracker) Pending() Flag {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}

// Epsilon returns the comparison threshold.
func (t *Tracker) Epsilon() float32 {
	return t.epsilon
}

func matApprox(a, b mgl32.Mat4, eps float32) bool {
	for i := range a {
		if math32.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func vecApprox(a, b mgl32.Vec3, eps float32) bool {
	for i := range a {
		if math32.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}
