package bind_group_provider

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
)

func TestNewBindGroupProviderIsStale(t *testing.T) {
	p := NewBindGroupProvider("kernel")
	if p.Label() != "kernel" {
		t.Fatalf("Label() = %q", p.Label())
	}
	if p.Key() != "" {
		t.Errorf("Key() = %q, want empty", p.Key())
	}
	if !p.Stale("") {
		t.Error("a provider without a bind group must be stale for every key")
	}
	if p.BindGroup() != nil || p.BindGroupLayout() != nil {
		t.Error("new provider should hold no GPU objects")
	}
	if p.Buffer(0) != nil {
		t.Error("Buffer(0) should be nil")
	}
	if len(p.Buffers()) != 0 {
		t.Errorf("Buffers() has %d entries", len(p.Buffers()))
	}
}

func TestNilOptionsHoldNothing(t *testing.T) {
	unregistered := pipeline.NewPipeline("blend", pipeline.PipelineTypeCompute)
	p := NewBindGroupProvider("blend", WithPipelineGroup(unregistered, 0), WithOwnedBuffer(2, nil))
	if p.BindGroupLayout() != nil {
		t.Error("an unregistered pipeline has no layout to borrow")
	}
	if len(p.Buffers()) != 0 {
		t.Errorf("Buffers() has %d entries, want 0", len(p.Buffers()))
	}
}

func TestSetBufferNilRemovesBinding(t *testing.T) {
	p := NewBindGroupProvider("blend")
	p.SetBuffer(2, nil)
	if _, ok := p.Buffers()[2]; ok {
		t.Error("binding 2 should be removed")
	}
}

func TestReleaseEmptyProvider(t *testing.T) {
	p := NewBindGroupProvider("present")
	p.Release()
	p.Release()
	if !p.Stale("anything") {
		t.Error("released provider should be stale")
	}
}
