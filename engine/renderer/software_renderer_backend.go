package renderer

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/gpu_buffer"
	"github.com/go-gl/mathgl/mgl32"
)

type softwareBuffer struct {
	label    string
	count    int
	stride   int
	data     []byte
	released bool
}

func (b *softwareBuffer) Label() string { return b.label }
func (b *softwareBuffer) Count() int    { return b.count }
func (b *softwareBuffer) Stride() int   { return b.stride }

type softwareImage struct {
	label    string
	width    int
	height   int
	pix      []mgl32.Vec4
	released bool
}

func (i *softwareImage) Label() string { return i.label }
func (i *softwareImage) Width() int    { return i.width }
func (i *softwareImage) Height() int   { return i.height }

// softwareRendererBackendImpl runs the kernel and the blend pass on the CPU, one pool task per row.
// Present keeps a copy of the shown image as the front buffer.
type softwareRendererBackendImpl struct {
	kernel      SoftwareKernel
	pool        worker.DynamicWorkerPool
	parallel    bool
	tile        [2]int
	width       int
	height      int
	memoryLimit int
	presentMode PresentMode

	buffers map[*softwareBuffer]struct{}
	images  map[*softwareImage]struct{}
	front   []mgl32.Vec4
	stats   Stats
}

var _ RendererBackend = &softwareRendererBackendImpl{}

func newSoftwareRendererBackend(k SoftwareKernel, width, height int, tile [2]int, workers, memoryLimit int) *softwareRendererBackendImpl {
	return &softwareRendererBackendImpl{
		kernel:      k,
		pool:        worker.NewDynamicWorkerPool(max(workers, 1), 256, 1*time.Second),
		parallel:    workers > 1,
		tile:        tile,
		width:       width,
		height:      height,
		memoryLimit: memoryLimit,
		buffers:     make(map[*softwareBuffer]struct{}),
		images:      make(map[*softwareImage]struct{}),
	}
}

func (b *softwareRendererBackendImpl) reserve(label string, size int) error {
	if b.memoryLimit > 0 && b.stats.LiveBytes+size > b.memoryLimit {
		return fmt.Errorf("allocate %q (%d bytes, %d live, limit %d): %w", label, size, b.stats.LiveBytes, b.memoryLimit, ErrOutOfMemory)
	}
	b.stats.LiveBytes += size
	return nil
}

func (b *softwareRendererBackendImpl) CreateBuffer(label string, count, stride int) (gpu_buffer.Handle, error) {
	if err := b.reserve(label, count*stride); err != nil {
		return nil, err
	}
	buf := &softwareBuffer{label: label, count: count, stride: stride, data: make([]byte, count*stride)}
	b.buffers[buf] = struct{}{}
	b.stats.LiveBuffers++
	b.stats.BufferAllocations++
	return buf, nil
}

func (b *softwareRendererBackendImpl) WriteBuffer(h gpu_buffer.Handle, data []byte) error {
	buf, ok := h.(*softwareBuffer)
	if !ok {
		return fmt.Errorf("write buffer: foreign handle %T", h)
	}
	if buf.released {
		return fmt.Errorf("write buffer %q: %w", buf.label, gpu_buffer.ErrReleased)
	}
	if len(data) > len(buf.data) {
		return fmt.Errorf("write buffer %q: %d bytes exceed capacity %d", buf.label, len(data), len(buf.data))
	}
	copy(buf.data, data)
	b.stats.BufferWrites++
	return nil
}

func (b *softwareRendererBackendImpl) ReleaseBuffer(h gpu_buffer.Handle) {
	buf, ok := h.(*softwareBuffer)
	if !ok || buf.released {
		return
	}
	buf.released = true
	delete(b.buffers, buf)
	b.stats.LiveBuffers--
	b.stats.LiveBytes -= len(buf.data)
	buf.data = nil
}

func (b *softwareRendererBackendImpl) CreateImage(label string, width, height int) (Image, error) {
	if err := b.reserve(label, width*height*16); err != nil {
		return nil, err
	}
	img := &softwareImage{label: label, width: width, height: height, pix: make([]mgl32.Vec4, width*height)}
	b.images[img] = struct{}{}
	b.stats.LiveImages++
	return img, nil
}

func (b *softwareRendererBackendImpl) ReleaseImage(img Image) {
	si, ok := img.(*softwareImage)
	if !ok || si.released {
		return
	}
	si.released = true
	delete(b.images, si)
	b.stats.LiveImages--
	b.stats.LiveBytes -= len(si.pix) * 16
	si.pix = nil
}

func (b *softwareRendererBackendImpl) image(img Image) (*softwareImage, error) {
	si, ok := img.(*softwareImage)
	if !ok {
		return nil, fmt.Errorf("foreign image %T", img)
	}
	if si.released {
		return nil, fmt.Errorf("image %q: %w", si.label, gpu_buffer.ErrReleased)
	}
	return si, nil
}

func (b *softwareRendererBackendImpl) Dispatch(params *kernelParams, groups [3]uint32) error {
	out, err := b.image(params.image(ImageResult))
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	in := params.inputs()
	in.Buffers = make(map[string][]byte)
	for _, name := range []string{BufferSpheres, BufferVertices, BufferIndices, BufferMeshObjects} {
		h := params.buffer(name)
		if h == nil {
			continue
		}
		buf, ok := h.(*softwareBuffer)
		if !ok || buf.released {
			return fmt.Errorf("dispatch: buffer %q: %w", name, gpu_buffer.ErrReleased)
		}
		in.Buffers[name] = buf.data
	}
	if err := b.kernel.Prepare(&in); err != nil {
		return fmt.Errorf("dispatch: prepare kernel: %w", err)
	}

	width := min(int(groups[0])*b.tile[0], out.width)
	height := min(int(groups[1])*b.tile[1], out.height)
	if groups[2] == 0 {
		width, height = 0, 0
	}
	b.forEachRow(height, func(y int) {
		row := out.pix[y*out.width : y*out.width+width]
		for x := range row {
			row[x] = b.kernel.Shade(x, y)
		}
	})
	b.stats.Dispatches++
	return nil
}

func (b *softwareRendererBackendImpl) TileSize() [2]int {
	return b.tile
}

func (b *softwareRendererBackendImpl) Blend(sample, accumulation Image, weight float32) error {
	src, err := b.image(sample)
	if err != nil {
		return fmt.Errorf("blend: %w", err)
	}
	dst, err := b.image(accumulation)
	if err != nil {
		return fmt.Errorf("blend: %w", err)
	}
	b.forEachRow(dst.height, func(y int) {
		lo, hi := y*dst.width, (y+1)*dst.width
		s, d := src.pix[lo:hi], dst.pix[lo:hi]
		for x := range d {
			d[x] = d[x].Add(s[x].Sub(d[x]).Mul(weight))
		}
	})
	b.stats.Blends++
	return nil
}

func (b *softwareRendererBackendImpl) Present(accumulation Image) error {
	src, err := b.image(accumulation)
	if err != nil {
		return fmt.Errorf("present: %w", err)
	}
	b.front = append(b.front[:0], src.pix...)
	b.stats.Presents++
	return nil
}

func (b *softwareRendererBackendImpl) ReadPixels(img Image) ([]mgl32.Vec4, error) {
	si, err := b.image(img)
	if err != nil {
		return nil, fmt.Errorf("read pixels: %w", err)
	}
	return append([]mgl32.Vec4(nil), si.pix...), nil
}

func (b *softwareRendererBackendImpl) OutputSize() (int, int) {
	return b.width, b.height
}

func (b *softwareRendererBackendImpl) ConfigureSurface(width, height int) {
	b.width, b.height = width, height
}

func (b *softwareRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.presentMode = mode
}

func (b *softwareRendererBackendImpl) Stats() Stats {
	return b.stats
}

func (b *softwareRendererBackendImpl) Release() {
	for buf := range b.buffers {
		b.ReleaseBuffer(buf)
	}
	for img := range b.images {
		b.ReleaseImage(img)
	}
	b.front = nil
}

// forEachRow calls fn for every row in [0, rows) and returns once all calls finished.
// Rows run on the worker pool when the backend has more than one worker.
func (b *softwareRendererBackendImpl) forEachRow(rows int, fn func(y int)) {
	if !b.parallel || rows < 2 {
		for y := range rows {
			fn(y)
		}
		return
	}
	var wg sync.WaitGroup
	for y := range rows {
		wg.Add(1)
		row := y
		b.pool.SubmitTask(worker.Task{
			ID: row,
			Do: func() (any, error) {
				defer wg.Done()
				fn(row)
				return nil, nil
			},
		})
	}
	wg.Wait()
}
