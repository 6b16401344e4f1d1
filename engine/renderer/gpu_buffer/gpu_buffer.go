package gpu_buffer

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-rt/common"
)

// ErrReleased is returned when an operation targets a buffer whose backing handle was already released.
var ErrReleased = errors.New("gpu buffer released")

// Handle is an opaque backend buffer. Backends hand these out from CreateBuffer and take them back in ReleaseBuffer.
type Handle interface {
	// Label returns the debug label the buffer was created with.
	Label() string

	// Count returns the number of elements the buffer was sized for.
	Count() int

	// Stride returns the size in bytes of a single element.
	Stride() int
}

// Allocator creates, fills and destroys backend buffers.
// Both the WGPU and the software renderer backends implement it.
type Allocator interface {
	// CreateBuffer allocates a storage buffer of exactly count*stride bytes.
	//
	// Parameters:
	//   - label: debug label for the buffer
	//   - count: number of elements
	//   - stride: bytes per element
	//
	// Returns:
	//   - Handle: the new buffer
	//   - error: error if the device could not allocate the buffer
	CreateBuffer(label string, count, stride int) (Handle, error)

	// WriteBuffer uploads data to the start of the buffer.
	//
	// Parameters:
	//   - h: the destination buffer
	//   - data: raw bytes, at most Count()*Stride() long
	//
	// Returns:
	//   - error: error if the handle was released or the data does not fit
	WriteBuffer(h Handle, data []byte) error

	// ReleaseBuffer frees the buffer. Releasing a released handle is a no-op.
	//
	// Parameters:
	//   - h: the buffer to release
	ReleaseBuffer(h Handle)
}

// Buffer is a typed view over a backend Handle. The stride is always the in-memory size of T,
// so the Go struct layout must match the GPU struct layout.
type Buffer[T any] struct {
	handle Handle
	count  int
}

// Handle returns the backend handle, or nil for a nil buffer.
func (b *Buffer[T]) Handle() Handle {
	if b == nil {
		return nil
	}
	return b.handle
}

// Count returns the element count, or 0 for a nil buffer.
func (b *Buffer[T]) Count() int {
	if b == nil {
		return 0
	}
	return b.count
}

// Stride returns the size in bytes of T.
func (b *Buffer[T]) Stride() int {
	return StrideOf[T]()
}

// StrideOf returns the size in bytes of T as laid out in a GPU buffer.
func StrideOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Sync makes existing match data and uploads it, reusing the allocation when count and stride are unchanged.
// The upload happens on every call, even when data did not change since the previous call.
//
// An empty data slice releases existing and returns nil: absent buffers are skipped at bind time.
// When a new allocation fails the previous buffer is returned untouched together with the error,
// so the caller keeps rendering with the old contents.
//
// Parameters:
//   - alloc: the backend allocator
//   - label: debug label for new allocations
//   - existing: the buffer from the previous call, may be nil
//   - data: the elements to upload
//
// Returns:
//   - *Buffer[T]: the buffer now holding data, or nil if data is empty
//   - error: an allocation or upload error
func Sync[T any](alloc Allocator, label string, existing *Buffer[T], data []T) (*Buffer[T], error) {
	if len(data) == 0 {
		Release(alloc, existing)
		return nil, nil
	}

	stride := StrideOf[T]()
	buf := existing
	if buf != nil && (buf.count != len(data) || buf.handle == nil || buf.handle.Stride() != stride) {
		buf = nil
	}

	if buf == nil {
		h, err := alloc.CreateBuffer(label, len(data), stride)
		if err != nil {
			return existing, fmt.Errorf("failed to allocate %s (%d x %d bytes): %w", label, len(data), stride, err)
		}
		Release(alloc, existing)
		buf = &Buffer[T]{handle: h, count: len(data)}
		common.Logger().Debug("gpu buffer allocated", "label", label, "count", len(data), "stride", stride)
	}

	if err := alloc.WriteBuffer(buf.handle, common.SliceToBytes(data)); err != nil {
		return buf, fmt.Errorf("failed to upload %s: %w", label, err)
	}
	return buf, nil
}

// Release frees the backend handle behind b. Safe to call with a nil or already released buffer.
//
// Parameters:
//   - alloc: the allocator that created the buffer
//   - b: the buffer to release
func Release[T any](alloc Allocator, b *Buffer[T]) {
	if b == nil || b.handle == nil {
		return
	}
	alloc.ReleaseBuffer(b.handle)
	b.handle = nil
	b.count = 0
}
