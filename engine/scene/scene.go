package scene

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/invalidation"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/mesh_registry"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/gpu_buffer"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrInvalidState is returned when an operation is not allowed in the scene's current State.
	ErrInvalidState = errors.New("operation not allowed in current scene state")

	// ErrDisposed is returned by every operation after Shutdown. It wraps ErrInvalidState.
	ErrDisposed = fmt.Errorf("%w: scene disposed", ErrInvalidState)
)

// State is the lifecycle state of a Scene.
type State int

const (
	// StateUninitialized is the state of a new scene; only SetParameters, Initialize and Shutdown are allowed.
	StateUninitialized State = iota

	// StateSceneReady means spheres are generated and the next Tick starts a fresh accumulation.
	StateSceneReady

	// StateRendering means at least one frame was accumulated since the last parameter change.
	StateRendering

	// StateDisposed is terminal; every resource was released.
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSceneReady:
		return "scene_ready"
	case StateRendering:
		return "rendering"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Parameters are the inputs of a scene that are not poses: sphere generation and the bounce limit.
type Parameters struct {
	Generator  GeneratorOptions
	MaxBounces uint32
}

// DefaultParameters returns DefaultGeneratorOptions with 8 bounces.
func DefaultParameters() Parameters {
	return Parameters{
		Generator:  DefaultGeneratorOptions(),
		MaxBounces: 8,
	}
}

// AccumulationState describes the converged image: how many samples it averages and its size.
type AccumulationState struct {
	SampleCount uint32
	Width       int
	Height      int
}

// FrameStats reports what one Tick did.
type FrameStats struct {
	// Frame is the number of frames accumulated before this one across all resets.
	Frame uint64
	// SampleCount is the number of samples in the accumulation after this frame.
	SampleCount uint32
	// Reset is true when this frame started a new accumulation.
	Reset bool
	// Changed holds the inputs observed to change this frame.
	Changed invalidation.Flag
	// Groups is the dispatched workgroup grid.
	Groups [3]uint32
	// Spheres and MeshObjects are the element counts bound to the kernel.
	Spheres     int
	MeshObjects int
}

type scene struct {
	mu    *sync.Mutex
	state State

	r        renderer.Renderer
	cam      camera.Camera
	sun      light.Light
	registry *mesh_registry.Registry
	tracker  *invalidation.Tracker

	params     Parameters
	spheres    []Sphere
	regenerate bool
	// spheresDirty is set while the sphere buffer does not hold the current spheres.
	spheresDirty bool
	// pendingGeometry holds a rebuilt geometry until it was uploaded completely.
	pendingGeometry *mesh_registry.FlattenedGeometry

	sphereBuf     *gpu_buffer.Buffer[Sphere]
	vertexBuf     *gpu_buffer.Buffer[mgl32.Vec3]
	indexBuf      *gpu_buffer.Buffer[uint32]
	meshObjectBuf *gpu_buffer.Buffer[mesh_registry.MeshObject]

	sample       renderer.Image
	accumulation renderer.Image
	sampleCount  uint32
	frame        uint64

	seedSource      func() uint64
	rng             *rand.Rand
	epsilon         float32
	ownsRegistry    bool
	registryWorkers int
}

// Scene is the progressive accumulation renderer.
//
// It owns a procedurally generated set of spheres, the GPU buffers holding them and the flattened
// geometry of the mesh registry, and the sample and accumulation images. Every Tick traces one
// stochastic sample per pixel and folds it into the accumulation as a running average. Whenever the
// camera pose, the light, the registered meshes, the bounce limit, the output size or the spheres
// change, the average restarts from the next sample.
//
// State machine:
//
//	Uninitialized --Initialize--> SceneReady --Tick--> Rendering
//	Rendering --SetParameters/Randomize--> SceneReady
//	any --Shutdown--> Disposed
//
// All methods are safe for concurrent use; Tick is expected to run on a single frame goroutine.
type Scene interface {
	// Initialize generates the spheres for the current parameters.
	//
	// Returns:
	//   - error: ErrInvalidState unless the scene is uninitialized
	Initialize() error

	// SetParameters replaces the generation parameters and the bounce limit.
	// The spheres are regenerated on the next Tick.
	//
	// Parameters:
	//   - p: the new parameters
	//
	// Returns:
	//   - error: ErrInvalidOptions for unusable generator options, ErrDisposed after Shutdown
	SetParameters(p Parameters) error

	// Parameters returns the current parameters. After Randomize the seed is the one drawn.
	//
	// Returns:
	//   - Parameters: the parameters
	Parameters() Parameters

	// Randomize draws a fresh seed from the seed source and regenerates the spheres.
	//
	// Returns:
	//   - error: ErrInvalidState before Initialize, ErrDisposed after Shutdown
	Randomize() error

	// Tick renders one frame: it synchronizes buffers and images, pushes the kernel parameters,
	// dispatches the kernel, blends the sample into the accumulation and presents it.
	//
	// A resource error skips the dispatch; the previous buffers stay bound and the sample count
	// does not advance. Every pending change is retried on the next Tick.
	//
	// Parameters:
	//   - ctx: cancels the frame before any work is done
	//
	// Returns:
	//   - FrameStats: what the frame did
	//   - error: ErrInvalidState before Initialize, ctx.Err(), or a wrapped resource or device error
	Tick(ctx context.Context) (FrameStats, error)

	// Shutdown releases every buffer and image. Calling it again is a no-op.
	Shutdown()

	// Accumulation returns the sample count and size of the converged image.
	//
	// Returns:
	//   - AccumulationState: the accumulation state
	Accumulation() AccumulationState

	// Spheres returns a copy of the generated spheres.
	//
	// Returns:
	//   - []Sphere: the spheres
	Spheres() []Sphere

	// State returns the lifecycle state.
	//
	// Returns:
	//   - State: the current state
	State() State

	// Registry returns the mesh registry feeding the scene.
	//
	// Returns:
	//   - *mesh_registry.Registry: the registry
	Registry() *mesh_registry.Registry

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// Light returns the scene's directional light.
	Light() light.Light

	// Renderer returns the scene's renderer.
	Renderer() renderer.Renderer

	// Snapshot reads the accumulation image back from the device.
	//
	// Returns:
	//   - []mgl32.Vec4: the pixels, row-major, top row first
	//   - AccumulationState: the size and sample count of the pixels
	//   - error: ErrInvalidState if nothing was rendered yet, or a device error
	Snapshot() ([]mgl32.Vec4, AccumulationState, error)
}

var _ Scene = &scene{}

// NewScene creates an uninitialized Scene rendering through r.
//
// Panics if r, cam or l is nil.
//
// Parameters:
//   - r: the renderer providing the kernel, buffers and images
//   - cam: the camera whose pose is observed every frame
//   - l: the directional light
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the new scene
func NewScene(r renderer.Renderer, cam camera.Camera, l light.Light, options ...SceneBuilderOption) Scene {
	if r == nil {
		panic("scene: NewScene requires a non-nil Renderer")
	}
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}
	if l == nil {
		panic("scene: NewScene requires a non-nil Light")
	}

	s := &scene{
		mu:              &sync.Mutex{},
		r:               r,
		cam:             cam,
		sun:             l,
		params:          DefaultParameters(),
		epsilon:         1e-5,
		seedSource:      rand.Uint64,
		registryWorkers: 1,
	}
	for _, option := range options {
		option(s)
	}

	if s.registry == nil {
		s.registry = mesh_registry.NewRegistry(s.registryWorkers)
		s.ownsRegistry = true
	}
	if s.rng == nil {
		seed := s.seedSource()
		s.rng = rand.New(rand.NewPCG(seed, ^seed))
	}
	s.tracker = invalidation.NewTracker(s.epsilon)
	return s
}

// DispatchGroups returns the workgroup grid covering a width x height image with tiles of the given size.
//
// Parameters:
//   - width: image width in pixels
//   - height: image height in pixels
//   - tile: the workgroup size in pixels
//
// Returns:
//   - [3]uint32: ceil(width/tile[0]), ceil(height/tile[1]), 1
func DispatchGroups(width, height int, tile [2]int) [3]uint32 {
	return [3]uint32{
		uint32(common.CeilDiv(width, tile[0])),
		uint32(common.CeilDiv(height, tile[1])),
		1,
	}
}

func (s *scene) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateDisposed:
		return ErrDisposed
	case StateUninitialized:
	default:
		return fmt.Errorf("%w: Initialize in state %s", ErrInvalidState, s.state)
	}

	s.generate()
	s.state = StateSceneReady
	common.Logger().Info("scene initialized",
		"seed", s.params.Generator.Seed,
		"spheres", len(s.spheres),
		"max_bounces", s.params.MaxBounces)
	return nil
}

func (s *scene) SetParameters(p Parameters) error {
	if err := p.Generator.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisposed {
		return ErrDisposed
	}

	s.params = p
	s.regenerate = true
	if s.state == StateRendering {
		s.state = StateSceneReady
	}
	return nil
}

func (s *scene) Parameters() Parameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

func (s *scene) Randomize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateDisposed:
		return ErrDisposed
	case StateUninitialized:
		return fmt.Errorf("%w: Randomize before Initialize", ErrInvalidState)
	}

	s.params.Generator.Seed = s.seedSource()
	s.generate()
	s.state = StateSceneReady
	common.Logger().Info("scene randomized", "seed", s.params.Generator.Seed, "spheres", len(s.spheres))
	return nil
}

// generate replaces the spheres from the current parameters. Caller must hold the mutex.
func (s *scene) generate() {
	s.spheres = Generate(s.params.Generator)
	s.regenerate = false
	s.spheresDirty = true
	s.tracker.Invalidate(invalidation.FlagScene)
}

func (s *scene) Tick(ctx context.Context) (FrameStats, error) {
	if err := ctx.Err(); err != nil {
		return FrameStats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateDisposed:
		return FrameStats{}, ErrDisposed
	case StateUninitialized:
		return FrameStats{}, fmt.Errorf("%w: Tick before Initialize", ErrInvalidState)
	}

	stats := FrameStats{Frame: s.frame}

	if err := s.ensureImages(); err != nil {
		return stats, fmt.Errorf("scene: %w", err)
	}
	if s.regenerate {
		s.generate()
	}

	s.cam.Update()
	if geom, rebuilt := s.registry.RebuildIfDirty(); rebuilt {
		s.pendingGeometry = &geom
	}
	sun := s.sun.Vector()
	stats.Changed = s.tracker.Observe(invalidation.Observation{
		CameraToWorld:     s.cam.CameraToWorld(),
		InverseProjection: s.cam.InverseProjection(),
		LightDirection:    sun.Vec3(),
		LightIntensity:    sun[3],
		MeshSetChanged:    s.pendingGeometry != nil,
		MaxBounces:        s.params.MaxBounces,
	})

	if err := s.syncBuffers(); err != nil {
		return stats, fmt.Errorf("scene: %w", err)
	}

	if s.tracker.ConsumeReset() {
		s.sampleCount = 0
		stats.Reset = true
	}

	k := s.r.Kernel()
	s.pushParameters(k, sun)

	k.SetBuffer(renderer.BufferSpheres, s.sphereBuf.Handle())
	k.SetBuffer(renderer.BufferVertices, s.vertexBuf.Handle())
	k.SetBuffer(renderer.BufferIndices, s.indexBuf.Handle())
	k.SetBuffer(renderer.BufferMeshObjects, s.meshObjectBuf.Handle())
	k.SetImage(renderer.ImageResult, s.sample)
	stats.Spheres = s.sphereBuf.Count()
	stats.MeshObjects = s.meshObjectBuf.Count()

	stats.Groups = DispatchGroups(s.sample.Width(), s.sample.Height(), k.TileSize())
	if err := k.Dispatch(stats.Groups); err != nil {
		return stats, fmt.Errorf("scene: dispatch: %w", err)
	}
	if err := s.r.Blend(s.sample, s.accumulation, 1/(float32(s.sampleCount)+1)); err != nil {
		return stats, fmt.Errorf("scene: blend: %w", err)
	}
	if err := s.r.Present(s.accumulation); err != nil {
		return stats, fmt.Errorf("scene: present: %w", err)
	}

	s.sampleCount++
	s.frame++
	s.state = StateRendering
	stats.SampleCount = s.sampleCount
	return stats, nil
}

// ensureImages (re)creates the sample and accumulation images when the output size changed.
// Caller must hold the mutex.
func (s *scene) ensureImages() error {
	w, h := s.r.OutputSize()
	if s.accumulation != nil && s.accumulation.Width() == w && s.accumulation.Height() == h {
		return nil
	}
	s.releaseImages()

	sample, err := s.r.CreateImage("sample", w, h)
	if err != nil {
		return fmt.Errorf("failed to create sample image %dx%d: %w", w, h, err)
	}
	accumulation, err := s.r.CreateImage("accumulation", w, h)
	if err != nil {
		s.r.ReleaseImage(sample)
		return fmt.Errorf("failed to create accumulation image %dx%d: %w", w, h, err)
	}
	s.sample, s.accumulation = sample, accumulation

	s.cam.SetAspect(float32(w) / float32(h))
	s.tracker.Invalidate(invalidation.FlagResolution)
	common.Logger().Debug("accumulation images created", "width", w, "height", h)
	return nil
}

// syncBuffers uploads the spheres and a pending geometry rebuild. Caller must hold the mutex.
func (s *scene) syncBuffers() error {
	var err error
	if s.spheresDirty {
		if s.sphereBuf, err = gpu_buffer.Sync(s.r, renderer.BufferSpheres, s.sphereBuf, s.spheres); err != nil {
			return err
		}
		s.spheresDirty = false
	}

	if g := s.pendingGeometry; g != nil {
		if s.vertexBuf, err = gpu_buffer.Sync(s.r, renderer.BufferVertices, s.vertexBuf, g.Vertices); err != nil {
			return err
		}
		if s.indexBuf, err = gpu_buffer.Sync(s.r, renderer.BufferIndices, s.indexBuf, g.Indices); err != nil {
			return err
		}
		if s.meshObjectBuf, err = gpu_buffer.Sync(s.r, renderer.BufferMeshObjects, s.meshObjectBuf, g.Objects); err != nil {
			return err
		}
		s.pendingGeometry = nil
	}
	return nil
}

// pushParameters writes both camera matrices, the dirty kernel parameters and the per-frame
// jitter and seed. Caller must hold the mutex.
func (s *scene) pushParameters(k renderer.Kernel, sun mgl32.Vec4) {
	k.SetMatrix(renderer.ParamCameraToWorld, s.cam.CameraToWorld())
	k.SetMatrix(renderer.ParamCameraInverseProjection, s.cam.InverseProjection())
	s.tracker.ClearDirty(invalidation.FlagCamera | invalidation.FlagResolution)

	if s.tracker.Dirty(invalidation.FlagLight) {
		k.SetVector4(renderer.ParamDirectionalLight, sun)
		s.tracker.ClearDirty(invalidation.FlagLight)
	}
	if s.tracker.Dirty(invalidation.FlagBounces) {
		k.SetUint(renderer.ParamMaxBounces, s.params.MaxBounces)
		s.tracker.ClearDirty(invalidation.FlagBounces)
	}
	s.tracker.ClearDirty(invalidation.FlagMeshSet | invalidation.FlagScene)

	k.SetVector2(renderer.ParamPixelOffset, mgl32.Vec2{s.rng.Float32(), s.rng.Float32()})
	k.SetFloat(renderer.ParamSeed, s.rng.Float32())
}

func (s *scene) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisposed {
		return
	}

	gpu_buffer.Release(s.r, s.sphereBuf)
	gpu_buffer.Release(s.r, s.vertexBuf)
	gpu_buffer.Release(s.r, s.indexBuf)
	gpu_buffer.Release(s.r, s.meshObjectBuf)
	s.sphereBuf, s.vertexBuf, s.indexBuf, s.meshObjectBuf = nil, nil, nil, nil
	s.releaseImages()

	if s.ownsRegistry {
		s.registry.Close()
	}
	s.state = StateDisposed
	common.Logger().Info("scene shut down", "frames", s.frame)
}

// releaseImages frees the sample and accumulation images. Caller must hold the mutex.
func (s *scene) releaseImages() {
	if s.sample != nil {
		s.r.ReleaseImage(s.sample)
		s.sample = nil
	}
	if s.accumulation != nil {
		s.r.ReleaseImage(s.accumulation)
		s.accumulation = nil
	}
}

func (s *scene) Accumulation() AccumulationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accumulationState()
}

// accumulationState returns the current accumulation state. Caller must hold the mutex.
func (s *scene) accumulationState() AccumulationState {
	st := AccumulationState{SampleCount: s.sampleCount}
	if s.accumulation != nil {
		st.Width, st.Height = s.accumulation.Width(), s.accumulation.Height()
	}
	return st
}

func (s *scene) Spheres() []Sphere {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sphere(nil), s.spheres...)
}

func (s *scene) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *scene) Registry() *mesh_registry.Registry {
	return s.registry
}

func (s *scene) Camera() camera.Camera {
	return s.cam
}

func (s *scene) Light() light.Light {
	return s.sun
}

func (s *scene) Renderer() renderer.Renderer {
	return s.r
}

func (s *scene) Snapshot() ([]mgl32.Vec4, AccumulationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.accumulationState()
	if s.state == StateDisposed {
		return nil, st, ErrDisposed
	}
	if s.accumulation == nil || s.sampleCount == 0 {
		return nil, st, fmt.Errorf("%w: nothing accumulated yet", ErrInvalidState)
	}
	pixels, err := s.r.ReadPixels(s.accumulation)
	if err != nil {
		return nil, st, fmt.Errorf("scene: snapshot: %w", err)
	}
	return pixels, st, nil
}
