package bind_group_provider

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// BindGroupProviderOption configures a provider at construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithPipelineGroup borrows the layout of one bind group of a registered pipeline. Bind groups
// built by the provider are only valid for that pipeline.
//
// Parameters:
//   - p: a pipeline a backend has already registered
//   - group: the bind group index inside p
//
// Returns:
//   - BindGroupProviderOption: the option setting the layout
func WithPipelineGroup(p pipeline.Pipeline, group int) BindGroupProviderOption {
	return func(bp *bindGroupProvider) {
		bp.bindGroupLayout = p.BindGroupLayout(group)
	}
}

// WithOwnedBuffer hands buf to the provider, which releases it with the bind group.
func WithOwnedBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(bp *bindGroupProvider) {
		if buf != nil {
			bp.buffers[binding] = buf
		}
	}
}
