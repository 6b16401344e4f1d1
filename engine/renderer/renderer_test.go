package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/gpu_buffer"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// seedKernel writes the dispatch seed into every pixel, plus the pixel coordinates in red and green.
func seedKernel(x, y int, in *KernelInputs) mgl32.Vec4 {
	return mgl32.Vec4{float32(x), float32(y), in.Seed, 1}
}

func newTestRenderer(t *testing.T, fn KernelFunc, options ...RendererBuilderOption) Renderer {
	t.Helper()
	opts := append([]RendererBuilderOption{
		WithKernelFunc(fn),
		WithOutputSize(4, 3),
		WithTileSize(2, 2),
		WithWorkers(3),
	}, options...)
	r := NewRenderer(BackendTypeSoftware, nil, opts...)
	t.Cleanup(r.Release)
	return r
}

func newImages(t *testing.T, r Renderer) (Image, Image) {
	t.Helper()
	w, h := r.OutputSize()
	sample, err := r.CreateImage("sample", w, h)
	if err != nil {
		t.Fatalf("CreateImage(sample): %v", err)
	}
	acc, err := r.CreateImage("accumulation", w, h)
	if err != nil {
		t.Fatalf("CreateImage(accumulation): %v", err)
	}
	return sample, acc
}

func fullGrid(r Renderer) [3]uint32 {
	w, h := r.OutputSize()
	tile := r.Kernel().TileSize()
	return [3]uint32{uint32((w + tile[0] - 1) / tile[0]), uint32((h + tile[1] - 1) / tile[1]), 1}
}

func TestNewRendererSoftwareRequiresKernel(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic without a software kernel")
		}
	}()
	NewRenderer(BackendTypeSoftware, nil)
}

func TestRendererBasics(t *testing.T) {
	r := newTestRenderer(t, seedKernel)
	if r.BackendType() != BackendTypeSoftware {
		t.Errorf("BackendType() = %v", r.BackendType())
	}
	if w, h := r.OutputSize(); w != 4 || h != 3 {
		t.Errorf("OutputSize() = %dx%d, want 4x3", w, h)
	}
	if got := r.Kernel().TileSize(); got != [2]int{2, 2} {
		t.Errorf("TileSize() = %v, want [2 2]", got)
	}
	if r.Kernel() != r.Kernel() {
		t.Error("Kernel() should return the same kernel on every call")
	}
	r.Resize(8, 6)
	if w, h := r.OutputSize(); w != 8 || h != 6 {
		t.Errorf("after Resize OutputSize() = %dx%d, want 8x6", w, h)
	}
	r.Resize(0, 6)
	if w, h := r.OutputSize(); w != 8 || h != 6 {
		t.Errorf("invalid Resize changed OutputSize() to %dx%d", w, h)
	}
}

func TestDispatchWithoutResultImage(t *testing.T) {
	r := newTestRenderer(t, seedKernel)
	if err := r.Kernel().Dispatch([3]uint32{1, 1, 1}); !errors.Is(err, ErrNoResultImage) {
		t.Fatalf("Dispatch() error = %v, want ErrNoResultImage", err)
	}
}

func TestDispatchCoversGridOnly(t *testing.T) {
	r := newTestRenderer(t, seedKernel)
	sample, _ := newImages(t, r)
	k := r.Kernel()
	k.SetImage(ImageResult, sample)
	k.SetFloat(ParamSeed, 7)

	if err := k.Dispatch([3]uint32{1, 1, 1}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	pix, err := r.ReadPixels(sample)
	if err != nil {
		t.Fatalf("ReadPixels: %v", err)
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			got := pix[y*4+x]
			inside := x < 2 && y < 2
			if inside && got != (mgl32.Vec4{float32(x), float32(y), 7, 1}) {
				t.Errorf("pixel (%d,%d) = %v, want shaded", x, y, got)
			}
			if !inside && got != (mgl32.Vec4{}) {
				t.Errorf("pixel (%d,%d) = %v outside the grid, want zero", x, y, got)
			}
		}
	}

	if err := k.Dispatch([3]uint32{5, 5, 0}); err != nil {
		t.Fatalf("Dispatch with empty z: %v", err)
	}
}

func TestBlendRunningAverage(t *testing.T) {
	r := newTestRenderer(t, seedKernel)
	sample, acc := newImages(t, r)
	k := r.Kernel()
	k.SetImage(ImageResult, sample)

	seeds := []float32{1, 2, 3, 4, 10}
	for n, seed := range seeds {
		k.SetFloat(ParamSeed, seed)
		if err := k.Dispatch(fullGrid(r)); err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
		if err := r.Blend(sample, acc, 1/float32(n+1)); err != nil {
			t.Fatalf("Blend: %v", err)
		}
	}

	pix, err := r.ReadPixels(acc)
	if err != nil {
		t.Fatalf("ReadPixels: %v", err)
	}
	for i, p := range pix {
		if !mgl32.FloatEqualThreshold(p[2], 4, 1e-5) {
			t.Fatalf("pixel %d blue = %v, want mean 4", i, p[2])
		}
		x, y := i%4, i/4
		if !mgl32.FloatEqualThreshold(p[0], float32(x), 1e-5) || !mgl32.FloatEqualThreshold(p[1], float32(y), 1e-5) {
			t.Fatalf("pixel %d = %v, constant channels drifted", i, p)
		}
	}
}

func TestBlendWeightOneReplaces(t *testing.T) {
	r := newTestRenderer(t, seedKernel)
	sample, acc := newImages(t, r)
	k := r.Kernel()
	k.SetImage(ImageResult, sample)

	for _, seed := range []float32{5, 9} {
		k.SetFloat(ParamSeed, seed)
		if err := k.Dispatch(fullGrid(r)); err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
		if err := r.Blend(sample, acc, 0.5); err != nil {
			t.Fatalf("Blend: %v", err)
		}
	}
	if err := r.Blend(sample, acc, 1); err != nil {
		t.Fatalf("Blend: %v", err)
	}

	want, _ := r.ReadPixels(sample)
	got, _ := r.ReadPixels(acc)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pixel %d = %v, want raw sample %v", i, got[i], want[i])
		}
	}
}

func TestBlendSizeMismatch(t *testing.T) {
	r := newTestRenderer(t, seedKernel)
	a, err := r.CreateImage("a", 4, 3)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.CreateImage("b", 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Blend(a, b, 1); !errors.Is(err, ErrImageSize) {
		t.Errorf("Blend() error = %v, want ErrImageSize", err)
	}
	if err := r.Blend(nil, b, 1); !errors.Is(err, ErrImageSize) {
		t.Errorf("Blend(nil) error = %v, want ErrImageSize", err)
	}
}

func TestKernelSeesBoundBuffers(t *testing.T) {
	var seen []float32
	var hasVertices bool
	fn := func(x, y int, in *KernelInputs) mgl32.Vec4 {
		if x == 0 && y == 0 {
			seen = BufferData[float32](in, BufferSpheres)
			_, hasVertices = in.Buffers[BufferVertices]
		}
		return mgl32.Vec4{}
	}
	r := newTestRenderer(t, fn, WithWorkers(1))
	sample, _ := newImages(t, r)

	buf, err := gpu_buffer.Sync[float32](r, "spheres", nil, []float32{1.5, 2.5, 3.5})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	k := r.Kernel()
	k.SetImage(ImageResult, sample)
	k.SetBuffer(BufferSpheres, buf.Handle())
	k.SetBuffer(BufferVertices, nil)
	if err := k.Dispatch(fullGrid(r)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(seen) != 3 || seen[1] != 2.5 {
		t.Errorf("kernel saw %v, want [1.5 2.5 3.5]", seen)
	}
	if hasVertices {
		t.Error("absent vertex buffer should not reach the kernel")
	}

	gpu_buffer.Release(r, buf)
	k.SetBuffer(BufferSpheres, buf.Handle())
	if err := k.Dispatch(fullGrid(r)); err != nil {
		t.Fatalf("Dispatch after release with unbound buffer: %v", err)
	}
}

func TestMemoryLimit(t *testing.T) {
	r := newTestRenderer(t, seedKernel, WithMemoryLimit(4*3*16+8))
	img, err := r.CreateImage("sample", 4, 3)
	if err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	if _, err := r.CreateImage("accumulation", 4, 3); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("CreateImage over limit error = %v, want ErrOutOfMemory", err)
	}
	if _, err := r.CreateBuffer("spheres", 3, 4); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("CreateBuffer over limit error = %v, want ErrOutOfMemory", err)
	}
	if _, err := r.CreateBuffer("indices", 2, 4); err != nil {
		t.Fatalf("CreateBuffer within limit: %v", err)
	}

	r.ReleaseImage(img)
	if _, err := r.CreateImage("accumulation", 4, 3); err != nil {
		t.Fatalf("CreateImage after release: %v", err)
	}
}

func TestCreateRejectsInvalidSizes(t *testing.T) {
	r := newTestRenderer(t, seedKernel)
	if _, err := r.CreateImage("empty", 0, 3); err == nil {
		t.Error("CreateImage(0x3) should fail")
	}
	if _, err := r.CreateBuffer("empty", 0, 4); err == nil {
		t.Error("CreateBuffer(0 elements) should fail")
	}
}

func TestReadReleasedImage(t *testing.T) {
	r := newTestRenderer(t, seedKernel)
	img, _ := r.CreateImage("sample", 4, 3)
	r.ReleaseImage(img)
	r.ReleaseImage(img)
	if _, err := r.ReadPixels(img); !errors.Is(err, gpu_buffer.ErrReleased) {
		t.Errorf("ReadPixels() error = %v, want ErrReleased", err)
	}
}

func TestStats(t *testing.T) {
	r := newTestRenderer(t, seedKernel)
	sample, acc := newImages(t, r)
	k := r.Kernel()
	k.SetImage(ImageResult, sample)

	h, err := r.CreateBuffer("spheres", 2, 8)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.WriteBuffer(h, make([]byte, 16)); err != nil {
		t.Fatal(err)
	}
	if err := k.Dispatch(fullGrid(r)); err != nil {
		t.Fatal(err)
	}
	if err := r.Blend(sample, acc, 1); err != nil {
		t.Fatal(err)
	}
	if err := r.Present(acc); err != nil {
		t.Fatal(err)
	}

	want := Stats{
		LiveBuffers:       1,
		LiveImages:        2,
		LiveBytes:         2*4*3*16 + 16,
		BufferAllocations: 1,
		BufferWrites:      1,
		Dispatches:        1,
		Blends:            1,
		Presents:          1,
	}
	if got := r.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}

	r.ReleaseBuffer(h)
	r.ReleaseImage(sample)
	if got := r.Stats(); got.LiveBuffers != 0 || got.LiveImages != 1 || got.LiveBytes != 4*3*16 {
		t.Errorf("after release Stats() = %+v", got)
	}
}

func TestWriteBufferOverCapacity(t *testing.T) {
	r := newTestRenderer(t, seedKernel)
	h, err := r.CreateBuffer("indices", 2, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.WriteBuffer(h, make([]byte, 12)); err == nil {
		t.Error("WriteBuffer past capacity should fail")
	}
	r.ReleaseBuffer(h)
	if err := r.WriteBuffer(h, make([]byte, 4)); !errors.Is(err, gpu_buffer.ErrReleased) {
		t.Errorf("WriteBuffer after release error = %v, want ErrReleased", err)
	}
}

func TestReleasedRenderer(t *testing.T) {
	r := NewRenderer(BackendTypeSoftware, nil, WithKernelFunc(seedKernel), WithOutputSize(2, 2))
	sample, err := r.CreateImage("sample", 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	r.Kernel().SetImage(ImageResult, sample)
	r.Release()
	r.Release()

	if _, err := r.CreateImage("x", 2, 2); !errors.Is(err, ErrRendererReleased) {
		t.Errorf("CreateImage() error = %v, want ErrRendererReleased", err)
	}
	if _, err := r.CreateBuffer("x", 1, 4); !errors.Is(err, ErrRendererReleased) {
		t.Errorf("CreateBuffer() error = %v, want ErrRendererReleased", err)
	}
	if err := r.Kernel().Dispatch([3]uint32{1, 1, 1}); !errors.Is(err, ErrRendererReleased) {
		t.Errorf("Dispatch() error = %v, want ErrRendererReleased", err)
	}
	if err := r.Present(sample); !errors.Is(err, ErrRendererReleased) {
		t.Errorf("Present() error = %v, want ErrRendererReleased", err)
	}
}

func TestFrameParamsLayout(t *testing.T) {
	var fp FrameParams
	if fp.Size() != 176 {
		t.Fatalf("FrameParams size = %d, want 176", fp.Size())
	}
	if (&passParams{}).Size() != 16 {
		t.Fatalf("passParams size = %d, want 16", (&passParams{}).Size())
	}
}

func TestFrameParamsCounts(t *testing.T) {
	r := newTestRenderer(t, seedKernel)
	h, err := r.CreateBuffer("indices", 6, 4)
	if err != nil {
		t.Fatal(err)
	}
	k := r.Kernel().(*kernel)
	k.SetBuffer(BufferIndices, h)
	k.SetUint(ParamMaxBounces, 8)
	k.SetVector2(ParamPixelOffset, mgl32.Vec2{0.25, 0.75})

	fp := k.params.frameParams()
	if fp.IndexCount != 6 || fp.SphereCount != 0 || fp.MaxBounces != 8 {
		t.Errorf("frameParams() = %+v", fp)
	}
	if fp.PixelOffset != (mgl32.Vec2{0.25, 0.75}) {
		t.Errorf("PixelOffset = %v", fp.PixelOffset)
	}
}

func TestDefaultKernelShader(t *testing.T) {
	s := DefaultKernelShader()
	bindings, err := resolveKernelBindings(s)
	if err != nil {
		t.Fatalf("resolveKernelBindings: %v", err)
	}
	kinds := map[string]bindingKind{}
	for _, kb := range bindings {
		kinds[kb.name] = kb.kind
	}
	want := map[string]bindingKind{
		"params":          bindingFrameParams,
		BufferSpheres:     bindingBuffer,
		BufferVertices:    bindingBuffer,
		BufferIndices:     bindingBuffer,
		BufferMeshObjects: bindingBuffer,
		ImageResult:       bindingResult,
	}
	for name, kind := range want {
		if got, ok := kinds[name]; !ok || got != kind {
			t.Errorf("binding %s kind = %v (present %v), want %v", name, got, ok, kind)
		}
	}
	if s.WorkgroupSize() != [3]uint32{8, 8, 1} {
		t.Errorf("WorkgroupSize() = %v", s.WorkgroupSize())
	}
}

func TestMergeBindGroupLayouts(t *testing.T) {
	v := map[int]wgpu.BindGroupLayoutDescriptor{0: {Entries: []wgpu.BindGroupLayoutEntry{
		{Binding: 1, Visibility: wgpu.ShaderStageVertex},
	}}}
	f := map[int]wgpu.BindGroupLayoutDescriptor{0: {Entries: []wgpu.BindGroupLayoutEntry{
		{Binding: 1, Visibility: wgpu.ShaderStageFragment},
		{Binding: 0, Visibility: wgpu.ShaderStageFragment},
	}}}
	merged := mergeBindGroupLayouts(v, f)
	entries := merged[0].Entries
	if len(entries) != 2 || entries[0].Binding != 0 || entries[1].Binding != 1 {
		t.Fatalf("merged entries = %+v", entries)
	}
	if entries[1].Visibility != wgpu.ShaderStageVertex|wgpu.ShaderStageFragment {
		t.Errorf("binding 1 visibility = %v", entries[1].Visibility)
	}
}
