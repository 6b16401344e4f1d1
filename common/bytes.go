package common

import (
	"unsafe"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	size := int(unsafe.Sizeof(data[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), size*len(data))
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice.
// The returned slice has length equal to the struct's size in memory and aliases it.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(unsafe.Sizeof(*v)))
}

// BytesToSlice copies raw bytes into a freshly allocated slice of T.
// Trailing bytes that do not form a whole element are ignored. The copy means the result
// stays valid after the source (for example a mapped GPU range) is unmapped.
//
// Parameters:
//   - data: the raw bytes to decode
//
// Returns:
//   - []T: the decoded elements, or nil if data holds less than one element
func BytesToSlice[T any](data []byte) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size == 0 || len(data) < size {
		return nil
	}
	out := make([]T, len(data)/size)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), len(out)*size), data)
	return out
}
