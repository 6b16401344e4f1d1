package renderer

import (
	"sync"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/gpu_buffer"
	"github.com/go-gl/mathgl/mgl32"
)

// Kernel is the compute kernel that traces one stochastic sample per pixel.
// Parameters persist between dispatches until overwritten.
type Kernel interface {
	// SetMatrix sets a matrix parameter such as ParamCameraToWorld.
	//
	// Parameters:
	//   - name: the parameter name
	//   - m: the value
	SetMatrix(name string, m mgl32.Mat4)

	// SetVector4 sets a four-component parameter such as ParamDirectionalLight.
	//
	// Parameters:
	//   - name: the parameter name
	//   - v: the value
	SetVector4(name string, v mgl32.Vec4)

	// SetVector2 sets a two-component parameter such as ParamPixelOffset.
	//
	// Parameters:
	//   - name: the parameter name
	//   - v: the value
	SetVector2(name string, v mgl32.Vec2)

	// SetFloat sets a scalar parameter such as ParamSeed.
	//
	// Parameters:
	//   - name: the parameter name
	//   - v: the value
	SetFloat(name string, v float32)

	// SetUint sets an unsigned integer parameter such as ParamMaxBounces.
	//
	// Parameters:
	//   - name: the parameter name
	//   - v: the value
	SetUint(name string, v uint32)

	// SetBuffer binds a buffer. A nil handle marks the buffer absent: the kernel sees
	// zero elements and must skip that geometry.
	//
	// Parameters:
	//   - name: the buffer name, e.g. BufferSpheres
	//   - h: the buffer, or nil
	SetBuffer(name string, h gpu_buffer.Handle)

	// SetImage binds an image. The kernel writes its samples into ImageResult.
	//
	// Parameters:
	//   - name: the image name
	//   - img: the image, or nil to unbind
	SetImage(name string, img Image)

	// TileSize returns the number of pixels covered by one workgroup.
	//
	// Returns:
	//   - [2]int: the workgroup width and height
	TileSize() [2]int

	// Dispatch runs the kernel over a grid of workgroups.
	//
	// Parameters:
	//   - groups: the workgroup count in x, y and z
	//
	// Returns:
	//   - error: ErrNoResultImage, ErrRendererReleased, or a device error
	Dispatch(groups [3]uint32) error
}

// KernelInputs is the snapshot of kernel parameters a software kernel reads during one dispatch.
type KernelInputs struct {
	Width, Height           int
	CameraToWorld           mgl32.Mat4
	CameraInverseProjection mgl32.Mat4
	DirectionalLight        mgl32.Vec4
	PixelOffset             mgl32.Vec2
	Seed                    float32
	MaxBounces              uint32

	// Buffers holds the raw contents of every bound buffer. Absent buffers are missing.
	Buffers map[string][]byte
}

// BufferData decodes a bound buffer of the inputs into typed elements.
// Absent buffers decode to nil.
//
// Parameters:
//   - in: the kernel inputs
//   - name: the buffer name
//
// Returns:
//   - []T: a copy of the buffer contents
func BufferData[T any](in *KernelInputs, name string) []T {
	return common.BytesToSlice[T](in.Buffers[name])
}

// SoftwareKernel is the CPU counterpart of the WGSL compute kernel.
// Prepare runs once per dispatch; Shade then runs concurrently for different pixels.
type SoftwareKernel interface {
	Prepare(in *KernelInputs) error
	Shade(x, y int) mgl32.Vec4
}

// KernelFunc shades one pixel from the dispatch inputs.
type KernelFunc func(x, y int, in *KernelInputs) mgl32.Vec4

type funcKernel struct {
	fn KernelFunc
	in *KernelInputs
}

// NewFuncKernel adapts a KernelFunc to a SoftwareKernel.
//
// Parameters:
//   - fn: the per-pixel function
//
// Returns:
//   - SoftwareKernel: the adapted kernel
func NewFuncKernel(fn KernelFunc) SoftwareKernel {
	return &funcKernel{fn: fn}
}

func (k *funcKernel) Prepare(in *KernelInputs) error {
	k.in = in
	return nil
}

func (k *funcKernel) Shade(x, y int) mgl32.Vec4 {
	return k.fn(x, y, k.in)
}

// FrameParams is the GPU layout of the kernel's per-dispatch uniform.
// Matches assets/frame_params.wgsl in the shader package (176 bytes, 16-byte aligned).
type FrameParams struct {
	CameraToWorld           mgl32.Mat4 // offset 0
	CameraInverseProjection mgl32.Mat4 // offset 64
	DirectionalLight        mgl32.Vec4 // offset 128
	PixelOffset             mgl32.Vec2 // offset 144
	Seed                    float32    // offset 152
	MaxBounces              uint32     // offset 156
	SphereCount             uint32     // offset 160
	VertexCount             uint32     // offset 164
	IndexCount              uint32     // offset 168
	MeshObjectCount         uint32     // offset 172
}

// Size returns the size of the FrameParams struct in bytes.
func (f *FrameParams) Size() int {
	return int(unsafe.Sizeof(*f))
}

// kernelParams stores the parameters set through Kernel between dispatches.
type kernelParams struct {
	mu       *sync.Mutex
	matrices map[string]mgl32.Mat4
	vectors  map[string]mgl32.Vec4
	floats   map[string]float32
	uints    map[string]uint32
	buffers  map[string]gpu_buffer.Handle
	images   map[string]Image
}

func newKernelParams() *kernelParams {
	return &kernelParams{
		mu:       &sync.Mutex{},
		matrices: make(map[string]mgl32.Mat4),
		vectors:  make(map[string]mgl32.Vec4),
		floats:   make(map[string]float32),
		uints:    make(map[string]uint32),
		buffers:  make(map[string]gpu_buffer.Handle),
		images:   make(map[string]Image),
	}
}

func (p *kernelParams) setMatrix(name string, m mgl32.Mat4) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.matrices[name] = m
}

func (p *kernelParams) setVector(name string, v mgl32.Vec4) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vectors[name] = v
}

func (p *kernelParams) setFloat(name string, v float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.floats[name] = v
}

func (p *kernelParams) setUint(name string, v uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uints[name] = v
}

func (p *kernelParams) setBuffer(name string, h gpu_buffer.Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h == nil {
		delete(p.buffers, name)
		return
	}
	p.buffers[name] = h
}

func (p *kernelParams) setImage(name string, img Image) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if img == nil {
		delete(p.images, name)
		return
	}
	p.images[name] = img
}

func (p *kernelParams) image(name string) Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.images[name]
}

func (p *kernelParams) buffer(name string) gpu_buffer.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffers[name]
}

// inputs snapshots the scalar parameters. Buffers is left for the backend to fill.
func (p *kernelParams) inputs() KernelInputs {
	p.mu.Lock()
	defer p.mu.Unlock()
	pixel := p.vectors[ParamPixelOffset]
	in := KernelInputs{
		CameraToWorld:           p.matrices[ParamCameraToWorld],
		CameraInverseProjection: p.matrices[ParamCameraInverseProjection],
		DirectionalLight:        p.vectors[ParamDirectionalLight],
		PixelOffset:             mgl32.Vec2{pixel[0], pixel[1]},
		Seed:                    p.floats[ParamSeed],
		MaxBounces:              p.uints[ParamMaxBounces],
	}
	if img := p.images[ImageResult]; img != nil {
		in.Width, in.Height = img.Width(), img.Height()
	}
	return in
}

// frameParams builds the uniform for a WGPU dispatch, with element counts of the bound buffers.
func (p *kernelParams) frameParams() FrameParams {
	in := p.inputs()
	p.mu.Lock()
	defer p.mu.Unlock()
	count := func(name string) uint32 {
		if h := p.buffers[name]; h != nil {
			return uint32(h.Count())
		}
		return 0
	}
	return FrameParams{
		CameraToWorld:           in.CameraToWorld,
		CameraInverseProjection: in.CameraInverseProjection,
		DirectionalLight:        in.DirectionalLight,
		PixelOffset:             in.PixelOffset,
		Seed:                    in.Seed,
		MaxBounces:              in.MaxBounces,
		SphereCount:             count(BufferSpheres),
		VertexCount:             count(BufferVertices),
		IndexCount:              count(BufferIndices),
		MeshObjectCount:         count(BufferMeshObjects),
	}
}

// kernel is the Renderer-facing Kernel. It records parameters and forwards dispatches to the backend.
type kernel struct {
	r      *renderer
	params *kernelParams
}

var _ Kernel = &kernel{}

func (k *kernel) SetMatrix(name string, m mgl32.Mat4) {
	k.params.setMatrix(name, m)
}

func (k *kernel) SetVector4(name string, v mgl32.Vec4) {
	k.params.setVector(name, v)
}

func (k *kernel) SetVector2(name string, v mgl32.Vec2) {
	k.params.setVector(name, mgl32.Vec4{v[0], v[1], 0, 0})
}

func (k *kernel) SetFloat(name string, v float32) {
	k.params.setFloat(name, v)
}

func (k *kernel) SetUint(name string, v uint32) {
	k.params.setUint(name, v)
}

func (k *kernel) SetBuffer(name string, h gpu_buffer.Handle) {
	k.params.setBuffer(name, h)
}

func (k *kernel) SetImage(name string, img Image) {
	k.params.setImage(name, img)
}

func (k *kernel) TileSize() [2]int {
	return k.r.backend.TileSize()
}

func (k *kernel) Dispatch(groups [3]uint32) error {
	k.r.mu.Lock()
	defer k.r.mu.Unlock()
	if k.r.released {
		return ErrRendererReleased
	}
	if k.params.image(ImageResult) == nil {
		return ErrNoResultImage
	}
	return k.r.backend.Dispatch(k.params, groups)
}
