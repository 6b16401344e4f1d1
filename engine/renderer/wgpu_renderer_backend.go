package renderer

import (
	_ "embed"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sort"
	"strings"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/gpu_buffer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

//go:embed assets/kernel.wgsl
var kernelSource string

//go:embed assets/blend.wgsl
var blendSource string

//go:embed assets/present.wgsl
var presentSource string

// DefaultKernelShader returns the built-in WGSL tracing kernel: a ground plane, the sphere
// buffer and the flattened triangle meshes, lit by the sky and the directional light.
//
// Returns:
//   - shader.Shader: the parsed compute shader
func DefaultKernelShader() shader.Shader {
	s, err := shader.NewShaderFromSource("oxy-rt kernel", shader.ShaderTypeCompute, kernelSource)
	if err != nil {
		panic(fmt.Sprintf("renderer: built-in kernel: %v", err))
	}
	return s
}

// passParams is the uniform shared by the blend and present passes (16 bytes).
type passParams struct {
	Width  uint32
	Height uint32
	Weight float32
	_      uint32
}

// Size returns the size of the passParams struct in bytes.
func (p *passParams) Size() int {
	return int(unsafe.Sizeof(*p))
}

type bindingKind int

const (
	bindingFrameParams bindingKind = iota
	bindingBuffer
	bindingResult
)

// kernelBinding describes one entry of the kernel's bind group 0 and what fills it.
type kernelBinding struct {
	binding uint32
	kind    bindingKind
	name    string
	minSize uint64
}

type wgpuBuffer struct {
	id       uint64
	label    string
	count    int
	stride   int
	size     uint64
	buf      *wgpu.Buffer
	released bool
}

func (b *wgpuBuffer) Label() string { return b.label }
func (b *wgpuBuffer) Count() int    { return b.count }
func (b *wgpuBuffer) Stride() int   { return b.stride }

// imageStore records which half of a wgpuImage holds its latest pixels.
type imageStore int

const (
	storeBuffer imageStore = iota
	storeTexture
)

// wgpuImage pairs a storage texture, written by the kernel and sampled by the blend pass,
// with a storage buffer of the same pixels that the blend pass accumulates into.
type wgpuImage struct {
	id        uint64
	label     string
	width     int
	height    int
	texture   *wgpu.Texture
	view      *wgpu.TextureView
	buffer    *wgpu.Buffer
	lastWrite imageStore
	released  bool
}

func (i *wgpuImage) Label() string { return i.label }
func (i *wgpuImage) Width() int    { return i.width }
func (i *wgpuImage) Height() int   { return i.height }

// wgpuRendererBackendImpl implements RendererBackend on WebGPU.
type wgpuRendererBackendImpl struct {
	instance      *wgpu.Instance
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *wgpu.Queue
	surface       *wgpu.Surface
	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	width         int
	height        int

	kernelPipeline  pipeline.Pipeline
	blendPipeline   pipeline.Pipeline
	presentPipeline pipeline.Pipeline

	kernelProvider  bind_group_provider.BindGroupProvider
	blendProvider   bind_group_provider.BindGroupProvider
	presentProvider bind_group_provider.BindGroupProvider

	kernelBindings  []kernelBinding
	blendBindings   map[shader.AnnotationArg]uint32
	presentBindings map[shader.AnnotationArg]uint32
	placeholders    map[uint32]*wgpu.Buffer

	nextID  uint64
	buffers map[*wgpuBuffer]struct{}
	images  map[*wgpuImage]struct{}
	stats   Stats
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, kernelShader shader.Shader) *wgpuRendererBackendImpl {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		instance:     wgpu.CreateInstance(nil),
		presentMode:  wgpu.PresentModeFifo,
		placeholders: make(map[uint32]*wgpu.Buffer),
		buffers:      make(map[*wgpuBuffer]struct{}),
		images:       make(map[*wgpuImage]struct{}),
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "oxy-rt Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	b.device = d
	b.queue = d.GetQueue()
	b.surfaceFormat = b.surface.GetCapabilities(b.adapter).Formats[0]

	if err := b.initKernel(kernelShader); err != nil {
		panic(fmt.Sprintf("renderer: kernel %s: %v", kernelShader.Key(), err))
	}
	if err := b.initBlend(); err != nil {
		panic(fmt.Sprintf("renderer: blend pass: %v", err))
	}
	if err := b.initPresent(); err != nil {
		panic(fmt.Sprintf("renderer: present pass: %v", err))
	}
	return b
}

func (b *wgpuRendererBackendImpl) initKernel(s shader.Shader) error {
	if s.ShaderType() != shader.ShaderTypeCompute {
		return errors.New("kernel must be a compute shader")
	}
	bindings, err := resolveKernelBindings(s)
	if err != nil {
		return err
	}
	b.kernelBindings = bindings

	b.kernelPipeline = pipeline.NewPipeline("kernel", pipeline.PipelineTypeCompute, pipeline.WithKernel(s))
	if err := b.registerComputePipeline(b.kernelPipeline); err != nil {
		return err
	}
	b.kernelProvider = bind_group_provider.NewBindGroupProvider("Kernel", bind_group_provider.WithPipelineGroup(b.kernelPipeline, 0))

	for _, kb := range bindings {
		if kb.kind != bindingFrameParams {
			continue
		}
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Frame Params",
			Size:  max(kb.minSize, uint64((&FrameParams{}).Size())),
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		b.kernelProvider.SetBuffer(int(kb.binding), buf)
	}
	return nil
}

// resolveKernelBindings maps every entry of the kernel's bind group 0 to the resource that fills it,
// using the @oxy annotations and falling back to the WGSL variable name.
func resolveKernelBindings(s shader.Shader) ([]kernelBinding, error) {
	for g := range s.BindGroupLayoutDescriptors() {
		if g != 0 {
			return nil, fmt.Errorf("bindings must live in group 0, found group %d", g)
		}
	}
	annotated := make(map[uint32]shader.Annotation)
	for _, d := range s.Declarations() {
		if *d.Group == 0 {
			annotated[uint32(*d.Binding)] = d
		}
	}

	bufferNames := []string{BufferSpheres, BufferVertices, BufferIndices, BufferMeshObjects}
	desc := s.BindGroupLayoutDescriptor(0)
	bindings := make([]kernelBinding, 0, len(desc.Entries))
	hasResult := false
	for _, e := range desc.Entries {
		name := s.BindGroupVarName(0, int(e.Binding))
		kb := kernelBinding{binding: e.Binding, name: name, minSize: e.Buffer.MinBindingSize}
		d, ok := annotated[e.Binding]
		switch {
		case ok && d.Type == shader.AnnotationTypeBindingGroup && d.Args[2] == shader.AnnotationArgFrameParams:
			kb.kind = bindingFrameParams
		case ok && d.Type == shader.AnnotationTypeProvider && d.VarName() == string(shader.AnnotationArgResult):
			kb.kind = bindingResult
		case !ok && name == ImageResult:
			kb.kind = bindingResult
		case slices.Contains(bufferNames, name):
			kb.kind = bindingBuffer
		default:
			return nil, fmt.Errorf("binding %d (%s) is not a kernel parameter", e.Binding, name)
		}
		if kb.kind == bindingResult {
			if e.StorageTexture.Format != wgpu.TextureFormatRGBA32Float {
				return nil, fmt.Errorf("result binding %d must be an rgba32float storage texture", e.Binding)
			}
			hasResult = true
		}
		bindings = append(bindings, kb)
	}
	if !hasResult {
		return nil, errors.New("no result storage texture declared")
	}
	return bindings, nil
}

// providerBindings returns the binding index of every @oxy:provider declaration in group 0.
func providerBindings(s shader.Shader) map[shader.AnnotationArg]uint32 {
	out := make(map[shader.AnnotationArg]uint32)
	for _, d := range s.Declarations() {
		if d.Type == shader.AnnotationTypeProvider && *d.Group == 0 {
			out[d.Args[0]] = uint32(*d.Binding)
		}
	}
	return out
}

func (b *wgpuRendererBackendImpl) initBlend() error {
	s, err := shader.NewShaderFromSource("blend", shader.ShaderTypeCompute, blendSource)
	if err != nil {
		return err
	}
	b.blendBindings = providerBindings(s)
	b.blendPipeline = pipeline.NewPipeline("blend", pipeline.PipelineTypeCompute, pipeline.WithKernel(s))
	if err := b.registerComputePipeline(b.blendPipeline); err != nil {
		return err
	}
	b.blendProvider = bind_group_provider.NewBindGroupProvider("Blend", bind_group_provider.WithPipelineGroup(b.blendPipeline, 0))
	return b.createPassParams(b.blendProvider, b.blendBindings[shader.AnnotationArgPassParams])
}

func (b *wgpuRendererBackendImpl) initPresent() error {
	vs, err := shader.NewShaderFromSource("present", shader.ShaderTypeVertex, presentSource)
	if err != nil {
		return err
	}
	fs, err := shader.NewShaderFromSource("present", shader.ShaderTypeFragment, presentSource)
	if err != nil {
		return err
	}
	b.presentBindings = providerBindings(fs)
	b.presentPipeline = pipeline.NewPipeline("present", pipeline.PipelineTypeRender, pipeline.WithStages(vs, fs))
	if err := b.registerRenderPipeline(b.presentPipeline); err != nil {
		return err
	}
	b.presentProvider = bind_group_provider.NewBindGroupProvider("Present", bind_group_provider.WithPipelineGroup(b.presentPipeline, 0))
	return b.createPassParams(b.presentProvider, b.presentBindings[shader.AnnotationArgPassParams])
}

func (b *wgpuRendererBackendImpl) createPassParams(provider bind_group_provider.BindGroupProvider, binding uint32) error {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: provider.Label() + " Params",
		Size:  uint64((&passParams{}).Size()),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	provider.SetBuffer(int(binding), buf)
	return nil
}

func (b *wgpuRendererBackendImpl) registerComputePipeline(p pipeline.Pipeline) error {
	computeShader := p.Shader(shader.ShaderTypeCompute)
	if computeShader == nil {
		return errors.New("compute shader must be set to create a compute pipeline")
	}

	module, err := b.device.CreateShaderModule(computeShader.Module())
	if err != nil {
		return err
	}
	defer module.Release()

	layouts, pipelineLayout, err := b.createLayouts(p.PipelineKey(), computeShader.BindGroupLayoutDescriptors())
	if err != nil {
		return err
	}
	defer pipelineLayout.Release()

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return err
	}
	p.SetComputePipeline(created, layouts)
	return nil
}

func (b *wgpuRendererBackendImpl) registerRenderPipeline(p pipeline.Pipeline) error {
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)
	if vertexShader == nil || fragmentShader == nil {
		return errors.New("both vertex and fragment shaders must be set to create a render pipeline")
	}

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return err
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return err
	}
	defer fs.Release()

	merged := mergeBindGroupLayouts(vertexShader.BindGroupLayoutDescriptors(), fragmentShader.BindGroupLayoutDescriptors())
	layouts, pipelineLayout, err := b.createLayouts(p.PipelineKey(), merged)
	if err != nil {
		return err
	}
	defer pipelineLayout.Release()

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets: []wgpu.ColorTargetState{{
				Format:    b.surfaceFormat,
				WriteMask: p.WriteMask(),
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}
	p.SetRenderPipeline(created, layouts)
	return nil
}

// createLayouts creates one bind group layout per group and the pipeline layout over them.
// The bind group layouts are returned so bind groups can be created against them.
func (b *wgpuRendererBackendImpl) createLayouts(label string, descriptors map[int]wgpu.BindGroupLayoutDescriptor) ([]*wgpu.BindGroupLayout, *wgpu.PipelineLayout, error) {
	maxGroup := -1
	for g := range descriptors {
		maxGroup = max(maxGroup, g)
	}
	layouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g, desc := range descriptors {
		bgl, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		layouts[g] = bgl
	}
	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, nil, err
	}
	return layouts, pipelineLayout, nil
}

func (b *wgpuRendererBackendImpl) id() uint64 {
	b.nextID++
	return b.nextID
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, count, stride int) (gpu_buffer.Handle, error) {
	size := alignTo4(uint64(count * stride))
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q (%d bytes): %w", label, size, err)
	}
	h := &wgpuBuffer{id: b.id(), label: label, count: count, stride: stride, size: size, buf: buf}
	b.buffers[h] = struct{}{}
	b.stats.LiveBuffers++
	b.stats.LiveBytes += int(size)
	b.stats.BufferAllocations++
	return h, nil
}

func (b *wgpuRendererBackendImpl) WriteBuffer(h gpu_buffer.Handle, data []byte) error {
	wb, ok := h.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("write buffer: foreign handle %T", h)
	}
	if wb.released {
		return fmt.Errorf("write buffer %q: %w", wb.label, gpu_buffer.ErrReleased)
	}
	if uint64(len(data)) > wb.size {
		return fmt.Errorf("write buffer %q: %d bytes exceed capacity %d", wb.label, len(data), wb.size)
	}
	if err := b.queue.WriteBuffer(wb.buf, 0, padTo4(data)); err != nil {
		return fmt.Errorf("write buffer %q: %w", wb.label, err)
	}
	b.stats.BufferWrites++
	return nil
}

func (b *wgpuRendererBackendImpl) ReleaseBuffer(h gpu_buffer.Handle) {
	wb, ok := h.(*wgpuBuffer)
	if !ok || wb.released {
		return
	}
	wb.released = true
	wb.buf.Release()
	wb.buf = nil
	delete(b.buffers, wb)
	b.stats.LiveBuffers--
	b.stats.LiveBytes -= int(wb.size)
}

func (b *wgpuRendererBackendImpl) CreateImage(label string, width, height int) (Image, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA32Float,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("create image %q: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create image %q: %w", label, err)
	}
	size := uint64(width * height * 16)
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Pixels",
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		view.Release()
		tex.Release()
		return nil, fmt.Errorf("create image %q: %w", label, err)
	}

	img := &wgpuImage{id: b.id(), label: label, width: width, height: height, texture: tex, view: view, buffer: buf}
	b.images[img] = struct{}{}
	b.stats.LiveImages++
	b.stats.LiveBytes += int(2 * size)
	return img, nil
}

func (b *wgpuRendererBackendImpl) ReleaseImage(img Image) {
	wi, ok := img.(*wgpuImage)
	if !ok || wi.released {
		return
	}
	wi.released = true
	wi.view.Release()
	wi.texture.Release()
	wi.buffer.Release()
	wi.view, wi.texture, wi.buffer = nil, nil, nil
	delete(b.images, wi)
	b.stats.LiveImages--
	b.stats.LiveBytes -= wi.width * wi.height * 32
}

func (b *wgpuRendererBackendImpl) image(img Image) (*wgpuImage, error) {
	wi, ok := img.(*wgpuImage)
	if !ok {
		return nil, fmt.Errorf("foreign image %T", img)
	}
	if wi.released {
		return nil, fmt.Errorf("image %q: %w", wi.label, gpu_buffer.ErrReleased)
	}
	return wi, nil
}

// placeholder returns the zeroed buffer bound in place of an absent kernel buffer.
func (b *wgpuRendererBackendImpl) placeholder(kb kernelBinding) (*wgpu.Buffer, error) {
	if buf, ok := b.placeholders[kb.binding]; ok {
		return buf, nil
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: kb.name + " Placeholder",
		Size:  alignTo4(max(kb.minSize, 4)),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	b.placeholders[kb.binding] = buf
	return buf, nil
}

// kernelBindGroup recreates the kernel bind group when the bound buffers or the result image changed.
func (b *wgpuRendererBackendImpl) kernelBindGroup(params *kernelParams, out *wgpuImage) (*wgpu.BindGroup, error) {
	entries := make([]wgpu.BindGroupEntry, 0, len(b.kernelBindings))
	var key strings.Builder
	for _, kb := range b.kernelBindings {
		switch kb.kind {
		case bindingFrameParams:
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: kb.binding,
				Buffer:  b.kernelProvider.Buffer(int(kb.binding)),
				Size:    wgpu.WholeSize,
			})
		case bindingResult:
			entries = append(entries, wgpu.BindGroupEntry{Binding: kb.binding, TextureView: out.view})
			fmt.Fprintf(&key, "%d:i%d;", kb.binding, out.id)
		case bindingBuffer:
			h := params.buffer(kb.name)
			if h == nil {
				buf, err := b.placeholder(kb)
				if err != nil {
					return nil, fmt.Errorf("placeholder %q: %w", kb.name, err)
				}
				entries = append(entries, wgpu.BindGroupEntry{Binding: kb.binding, Buffer: buf, Size: wgpu.WholeSize})
				fmt.Fprintf(&key, "%d:p;", kb.binding)
				continue
			}
			wb, ok := h.(*wgpuBuffer)
			if !ok || wb.released {
				return nil, fmt.Errorf("buffer %q: %w", kb.name, gpu_buffer.ErrReleased)
			}
			entries = append(entries, wgpu.BindGroupEntry{Binding: kb.binding, Buffer: wb.buf, Size: wgpu.WholeSize})
			fmt.Fprintf(&key, "%d:b%d;", kb.binding, wb.id)
		}
	}

	if b.kernelProvider.Stale(key.String()) {
		bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   b.kernelProvider.Label() + " Bind Group",
			Layout:  b.kernelProvider.BindGroupLayout(),
			Entries: entries,
		})
		if err != nil {
			return nil, err
		}
		b.kernelProvider.SetBindGroup(bg, key.String())
	}
	return b.kernelProvider.BindGroup(), nil
}

func (b *wgpuRendererBackendImpl) writeBuffers(writes []bind_group_provider.BufferWrite) {
	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (b *wgpuRendererBackendImpl) Dispatch(params *kernelParams, groups [3]uint32) error {
	out, err := b.image(params.image(ImageResult))
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	fp := params.frameParams()
	writes := make([]bind_group_provider.BufferWrite, 0, 1)
	for _, kb := range b.kernelBindings {
		if kb.kind == bindingFrameParams {
			writes = append(writes, bind_group_provider.BufferWrite{
				Provider: b.kernelProvider,
				Binding:  int(kb.binding),
				Data:     common.StructToBytes(&fp),
			})
		}
	}
	b.writeBuffers(writes)

	bindGroup, err := b.kernelBindGroup(params, out)
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	err = b.submit(func(encoder *wgpu.CommandEncoder) error {
		pass := encoder.BeginComputePass(nil)
		pass.SetPipeline(b.kernelPipeline.Pipeline().(*wgpu.ComputePipeline))
		pass.SetBindGroup(0, bindGroup, nil)
		pass.DispatchWorkgroups(groups[0], groups[1], groups[2])
		pass.End()
		return nil
	})
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	out.lastWrite = storeTexture
	b.stats.Dispatches++
	return nil
}

// submit records commands into a fresh encoder and submits them to the queue.
func (b *wgpuRendererBackendImpl) submit(record func(encoder *wgpu.CommandEncoder) error) error {
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	if err := record(encoder); err != nil {
		return err
	}
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer commandBuffer.Release()
	b.queue.Submit(commandBuffer)
	return nil
}

func (b *wgpuRendererBackendImpl) TileSize() [2]int {
	size := b.kernelPipeline.Shader(shader.ShaderTypeCompute).WorkgroupSize()
	return [2]int{int(max(size[0], 1)), int(max(size[1], 1))}
}

func (b *wgpuRendererBackendImpl) Blend(sample, accumulation Image, weight float32) error {
	src, err := b.image(sample)
	if err != nil {
		return fmt.Errorf("blend: %w", err)
	}
	dst, err := b.image(accumulation)
	if err != nil {
		return fmt.Errorf("blend: %w", err)
	}

	paramsBinding := b.blendBindings[shader.AnnotationArgPassParams]
	pp := passParams{Width: uint32(dst.width), Height: uint32(dst.height), Weight: weight}
	b.writeBuffers([]bind_group_provider.BufferWrite{{
		Provider: b.blendProvider,
		Binding:  int(paramsBinding),
		Data:     common.StructToBytes(&pp),
	}})

	key := fmt.Sprintf("%d:%d", src.id, dst.id)
	if b.blendProvider.Stale(key) {
		bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  b.blendProvider.Label() + " Bind Group",
			Layout: b.blendProvider.BindGroupLayout(),
			Entries: []wgpu.BindGroupEntry{
				{Binding: b.blendBindings[shader.AnnotationArgSample], TextureView: src.view},
				{Binding: b.blendBindings[shader.AnnotationArgAccumulation], Buffer: dst.buffer, Size: wgpu.WholeSize},
				{Binding: paramsBinding, Buffer: b.blendProvider.Buffer(int(paramsBinding)), Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("blend: %w", err)
		}
		b.blendProvider.SetBindGroup(bg, key)
	}

	tile := b.blendPipeline.Shader(shader.ShaderTypeCompute).WorkgroupSize()
	err = b.submit(func(encoder *wgpu.CommandEncoder) error {
		pass := encoder.BeginComputePass(nil)
		pass.SetPipeline(b.blendPipeline.Pipeline().(*wgpu.ComputePipeline))
		pass.SetBindGroup(0, b.blendProvider.BindGroup(), nil)
		pass.DispatchWorkgroups(
			uint32(common.CeilDiv(dst.width, int(tile[0]))),
			uint32(common.CeilDiv(dst.height, int(tile[1]))),
			1)
		pass.End()
		return nil
	})
	if err != nil {
		return fmt.Errorf("blend: %w", err)
	}
	dst.lastWrite = storeBuffer
	b.stats.Blends++
	return nil
}

func (b *wgpuRendererBackendImpl) Present(accumulation Image) error {
	src, err := b.image(accumulation)
	if err != nil {
		return fmt.Errorf("present: %w", err)
	}

	paramsBinding := b.presentBindings[shader.AnnotationArgPassParams]
	pp := passParams{Width: uint32(src.width), Height: uint32(src.height), Weight: 1}
	b.writeBuffers([]bind_group_provider.BufferWrite{{
		Provider: b.presentProvider,
		Binding:  int(paramsBinding),
		Data:     common.StructToBytes(&pp),
	}})

	key := fmt.Sprintf("%d", src.id)
	if b.presentProvider.Stale(key) {
		bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  b.presentProvider.Label() + " Bind Group",
			Layout: b.presentProvider.BindGroupLayout(),
			Entries: []wgpu.BindGroupEntry{
				{Binding: b.presentBindings[shader.AnnotationArgAccumulation], Buffer: src.buffer, Size: wgpu.WholeSize},
				{Binding: paramsBinding, Buffer: b.presentProvider.Buffer(int(paramsBinding)), Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("present: %w", err)
		}
		b.presentProvider.SetBindGroup(bg, key)
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("present: acquire surface texture: %w", err)
	}
	defer surfaceTexture.Release()
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("present: %w", err)
	}
	defer view.Release()

	err = b.submit(func(encoder *wgpu.CommandEncoder) error {
		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			ColorAttachments: []wgpu.RenderPassColorAttachment{{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			}},
		})
		pass.SetPipeline(b.presentPipeline.Pipeline().(*wgpu.RenderPipeline))
		pass.SetBindGroup(0, b.presentProvider.BindGroup(), nil)
		pass.Draw(3, 1, 0, 0)
		pass.End()
		return nil
	})
	if err != nil {
		return fmt.Errorf("present: %w", err)
	}
	b.surface.Present()
	b.stats.Presents++
	return nil
}

// ReadPixels copies the image's latest pixels into a mappable staging buffer and waits for the map.
// Texture rows are padded to the 256-byte copy alignment and unpadded on the way out.
func (b *wgpuRendererBackendImpl) ReadPixels(img Image) ([]mgl32.Vec4, error) {
	wi, err := b.image(img)
	if err != nil {
		return nil, fmt.Errorf("read pixels: %w", err)
	}

	rowBytes := uint64(wi.width * 16)
	stride := rowBytes
	if wi.lastWrite == storeTexture {
		stride = (rowBytes + 255) &^ 255
	}
	size := stride * uint64(wi.height)

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: wi.label + " Readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("read pixels: %w", err)
	}
	defer staging.Release()

	err = b.submit(func(encoder *wgpu.CommandEncoder) error {
		if wi.lastWrite == storeBuffer {
			return encoder.CopyBufferToBuffer(wi.buffer, 0, staging, 0, size)
		}
		return encoder.CopyTextureToBuffer(
			&wgpu.ImageCopyTexture{
				Texture:  wi.texture,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			&wgpu.ImageCopyBuffer{
				Buffer: staging,
				Layout: wgpu.TextureDataLayout{
					Offset:       0,
					BytesPerRow:  uint32(stride),
					RowsPerImage: uint32(wi.height),
				},
			},
			&wgpu.Extent3D{
				Width:              uint32(wi.width),
				Height:             uint32(wi.height),
				DepthOrArrayLayers: 1,
			},
		)
	})
	if err != nil {
		return nil, fmt.Errorf("read pixels: %w", err)
	}

	var status wgpu.BufferMapAsyncStatus
	if err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	}); err != nil {
		return nil, fmt.Errorf("read pixels: map: %w", err)
	}
	b.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("read pixels: map status %d", status)
	}
	defer staging.Unmap()

	mapped := staging.GetMappedRange(0, uint(size))
	pixels := make([]mgl32.Vec4, 0, wi.width*wi.height)
	for y := 0; y < wi.height; y++ {
		row := mapped[uint64(y)*stride : uint64(y)*stride+rowBytes]
		pixels = append(pixels, common.BytesToSlice[mgl32.Vec4](row)...)
	}
	return pixels, nil
}

func (b *wgpuRendererBackendImpl) OutputSize() (int, int) {
	return b.width, b.height
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.width, b.height = width, height
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
	if b.width > 0 && b.height > 0 {
		b.ConfigureSurface(b.width, b.height)
	}
}

func (b *wgpuRendererBackendImpl) Stats() Stats {
	return b.stats
}

func (b *wgpuRendererBackendImpl) Release() {
	for buf := range b.buffers {
		b.ReleaseBuffer(buf)
	}
	for img := range b.images {
		b.ReleaseImage(img)
	}
	for binding, buf := range b.placeholders {
		buf.Release()
		delete(b.placeholders, binding)
	}
	for _, p := range []bind_group_provider.BindGroupProvider{b.kernelProvider, b.blendProvider, b.presentProvider} {
		p.Release()
	}
	for _, p := range []pipeline.Pipeline{b.kernelPipeline, b.blendPipeline, b.presentPipeline} {
		p.Release()
	}
	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.surface.Release()
	b.instance.Release()
}

func alignTo4(n uint64) uint64 {
	return (n + 3) &^ 3
}

// padTo4 returns data extended with zeros to a multiple of four bytes, as queue writes require.
func padTo4(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}
	padded := make([]byte, alignTo4(uint64(len(data))))
	copy(padded, data)
	return padded
}

// mergeBindGroupLayouts combines bind group layout descriptors from vertex and fragment shaders.
// Bindings present in both stages are merged with OR'd visibility flags.
//
// Parameters:
//   - vertexLayouts: bind group layout descriptors from the vertex shader
//   - fragmentLayouts: bind group layout descriptors from the fragment shader
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func mergeBindGroupLayouts(
	vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor,
) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)

	groupIndices := make(map[int]bool)
	for g := range vertexLayouts {
		groupIndices[g] = true
	}
	for g := range fragmentLayouts {
		groupIndices[g] = true
	}

	for g := range groupIndices {
		vDesc, hasV := vertexLayouts[g]
		fDesc, hasF := fragmentLayouts[g]

		switch {
		case hasV && !hasF:
			merged[g] = vDesc
		case hasF && !hasV:
			merged[g] = fDesc
		default:
			entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry)
			for _, e := range vDesc.Entries {
				entryMap[e.Binding] = e
			}
			for _, e := range fDesc.Entries {
				if existing, ok := entryMap[e.Binding]; ok {
					existing.Visibility |= e.Visibility
					entryMap[e.Binding] = existing
				} else {
					entryMap[e.Binding] = e
				}
			}

			entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
			for _, e := range entryMap {
				entries = append(entries, e)
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].Binding < entries[j].Binding
			})

			merged[g] = wgpu.BindGroupLayoutDescriptor{
				Label:   vDesc.Label,
				Entries: entries,
			}
		}
	}

	return merged
}
