package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string
	// key identifies the resources the current bind group was created from.
	key string

	// The following fields are GPU allocated resources and must be released when no longer needed.

	// bindGroup is the GPU bind group created for this provider, or nil if not yet created.
	bindGroup *wgpu.BindGroup
	// bindGroupLayout is the layout bind groups are created against. It is borrowed from the pipeline.
	bindGroupLayout *wgpu.BindGroupLayout
	// buffers holds the GPU buffers owned by this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer
}

// BindGroupProvider owns the bind group of one pipeline pass together with the small buffers
// only that pass uses, such as the kernel's FrameParams uniform or the blend pass parameters.
//
// Resources the pass merely borrows (scene storage buffers, image views) are not owned by the
// provider. Instead the backend computes a key from their identities each frame; when the key
// differs from Key() the bind group is stale and is recreated.
//
// Usage pattern:
//  1. The backend creates a provider per pass and attaches the layout from the pipeline
//  2. Owned uniforms are created once and stored with SetBuffer()
//  3. Each frame, if Stale(key), the backend creates a new bind group and calls SetBindGroup(bg, key)
//  4. The pass binds BindGroup()
type BindGroupProvider interface {
	// Release releases the bind group and all buffers owned by this provider.
	// The borrowed layout is left to the pipeline that created it.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Key returns the resource key the current bind group was created with.
	//
	// Returns:
	//   - string: the key, empty before the first bind group
	Key() string

	// Stale reports whether the bind group must be recreated for the given resource key.
	//
	// Parameters:
	//   - key: the key computed from the resources the pass binds this frame
	//
	// Returns:
	//   - bool: true if there is no bind group or it was created for a different key
	Stale(key string) bool

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if no bind group has been created.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the layout bind groups of this provider are created against.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the owned buffer at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// Buffers returns all owned buffers keyed by binding index.
	//
	// Returns:
	//   - map[int]*wgpu.Buffer: a map of buffers keyed by binding index
	Buffers() map[int]*wgpu.Buffer

	// SetBindGroup replaces the bind group, releasing the previous one.
	//
	// Parameters:
	//   - bg: the created bind group
	//   - key: the resource key bg was created from
	SetBindGroup(bg *wgpu.BindGroup, key string)

	// SetBindGroupLayout sets the layout used to create bind groups.
	//
	// Parameters:
	//   - bgl: the bind group layout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer stores an owned buffer at a binding, releasing any buffer previously stored there.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	SetBuffer(binding int, buf *wgpu.Buffer)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider.
//
// Parameters:
//   - label: the debug label
//   - options: variadic list of BindGroupProviderOption functions
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:   label,
		buffers: make(map[int]*wgpu.Buffer),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Key() string {
	return p.key
}

func (p *bindGroupProvider) Stale(key string) bool {
	return p.bindGroup == nil || p.key != key
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]*wgpu.Buffer {
	return p.buffers
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup, key string) {
	if p.bindGroup != nil && p.bindGroup != bg {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
	p.key = key
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	if p.buffers == nil {
		p.buffers = make(map[int]*wgpu.Buffer)
	}
	if old := p.buffers[binding]; old != nil && old != buf {
		old.Release()
	}
	if buf == nil {
		delete(p.buffers, binding)
		return
	}
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) Release() {
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	p.key = ""
	p.bindGroupLayout = nil
}
