// Package growbuf provides a kind-tagged growable buffer used as the storage
// primitive of the asset pipeline.
package growbuf

import (
	"fmt"
	"unsafe"
)

// Kind tags the element type stored in a Buffer.
type Kind int

const (
	KindUnknown Kind = iota
	KindVertex
	KindUint32
	KindTexture
	KindMesh
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "Unknown"
	case KindVertex:
		return "Vertex"
	case KindUint32:
		return "Uint32"
	case KindTexture:
		return "Texture"
	case KindMesh:
		return "Mesh"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Releaser is implemented by elements owning secondary resources that must be
// dropped when the buffer holding them is freed.
type Releaser interface {
	Release()
}

// Buffer is a contiguous growable buffer of T values.
//
// Elements are copied in by value. Any PushBack or InsertBack may reallocate
// the storage, which invalidates every pointer previously returned by At.
type Buffer[T any] struct {
	kind Kind
	data []T
}

// New returns an empty buffer tagged with kind.
func New[T any](kind Kind) *Buffer[T] {
	b := &Buffer[T]{}
	b.Init(kind)
	return b
}

// Init resets b to an empty buffer tagged with kind, dropping any storage.
func (b *Buffer[T]) Init(kind Kind) {
	b.kind = kind
	b.data = nil
}

// Kind returns the element kind tag.
func (b *Buffer[T]) Kind() Kind {
	return b.kind
}

// ElemSize returns the size in bytes of one element.
func (b *Buffer[T]) ElemSize() uintptr {
	var zero T
	return unsafe.Sizeof(zero)
}

// Len returns the number of stored elements.
func (b *Buffer[T]) Len() int {
	return len(b.data)
}

// Cap returns the allocated capacity in elements. Cap() >= Len() always.
func (b *Buffer[T]) Cap() int {
	return cap(b.data)
}

// PushBack appends a copy of v.
func (b *Buffer[T]) PushBack(v T) {
	b.grow(1)
	b.data = append(b.data, v)
}

// InsertBack appends copies of vs in order.
func (b *Buffer[T]) InsertBack(vs ...T) {
	if len(vs) == 0 {
		return
	}
	b.grow(len(vs))
	b.data = append(b.data, vs...)
}

// At returns a pointer to element i. The pointer is only valid until the next
// mutation of b.
func (b *Buffer[T]) At(i int) *T {
	return &b.data[i]
}

// Get returns a copy of element i.
func (b *Buffer[T]) Get(i int) T {
	return b.data[i]
}

// Clone returns an independent copy of the stored elements.
// An empty buffer yields nil.
func (b *Buffer[T]) Clone() []T {
	if len(b.data) == 0 {
		return nil
	}
	out := make([]T, len(b.data))
	copy(out, b.data)
	return out
}

// Free releases the storage. Elements implementing Releaser are released
// first. The buffer keeps its kind and may be reused.
func (b *Buffer[T]) Free() {
	for i := range b.data {
		if r, ok := any(&b.data[i]).(Releaser); ok {
			r.Release()
		}
	}
	b.data = nil
}

// grow makes room for n more elements, doubling the capacity when needed.
func (b *Buffer[T]) grow(n int) {
	need := len(b.data) + n
	if need <= cap(b.data) {
		return
	}
	newCap := cap(b.data) * 2
	if newCap < need {
		newCap = need
	}
	data := make([]T, len(b.data), newCap)
	copy(data, b.data)
	b.data = data
}
