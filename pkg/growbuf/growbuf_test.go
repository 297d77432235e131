package growbuf

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type owned struct {
	name     string
	released *int
}

func (o *owned) Release() {
	o.name = ""
	if o.released != nil {
		*o.released++
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindUnknown, "Unknown"},
		{KindVertex, "Vertex"},
		{KindUint32, "Uint32"},
		{KindTexture, "Texture"},
		{KindMesh, "Mesh"},
		{Kind(42), "Kind(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestNew_Empty(t *testing.T) {
	b := New[uint32](KindUint32)

	assert.Equal(t, KindUint32, b.Kind())
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, b.Cap())
	assert.Nil(t, b.Clone())
	assert.Equal(t, unsafe.Sizeof(uint32(0)), b.ElemSize())
}

func TestPushBack_GrowsAndCopies(t *testing.T) {
	b := New[uint32](KindUint32)
	for i := uint32(0); i < 100; i++ {
		b.PushBack(i)
		require.GreaterOrEqual(t, b.Cap(), b.Len())
	}

	require.Equal(t, 100, b.Len())
	for i := 0; i < 100; i++ {
		assert.Equal(t, uint32(i), b.Get(i))
	}
}

func TestInsertBack_Bulk(t *testing.T) {
	b := New[int](KindUnknown)
	b.PushBack(1)
	b.InsertBack(2, 3, 4)
	b.InsertBack()

	src := []int{5, 6}
	b.InsertBack(src...)
	src[0] = 99

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, b.Clone())
	assert.GreaterOrEqual(t, b.Cap(), b.Len())
}

func TestClone_IsIndependent(t *testing.T) {
	b := New[int](KindUnknown)
	b.InsertBack(1, 2, 3)

	out := b.Clone()
	out[0] = 100
	*b.At(1) = 200

	assert.Equal(t, []int{100, 2, 3}, out)
	assert.Equal(t, []int{1, 200, 3}, b.Clone())
}

func TestFree_ReleasesElements(t *testing.T) {
	released := 0
	b := New[owned](KindTexture)
	b.PushBack(owned{name: "a", released: &released})
	b.PushBack(owned{name: "b", released: &released})

	b.Free()

	assert.Equal(t, 2, released)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, b.Cap())
	assert.Equal(t, KindTexture, b.Kind())

	// A freed buffer is reusable.
	b.PushBack(owned{name: "c"})
	assert.Equal(t, 1, b.Len())
}

func TestFree_PlainElements(t *testing.T) {
	b := New[float32](KindUnknown)
	b.InsertBack(1, 2)
	b.Free()
	assert.Equal(t, 0, b.Len())
}

func TestInit_Resets(t *testing.T) {
	var b Buffer[int]
	b.Init(KindUint32)
	b.InsertBack(1, 2, 3)
	b.Init(KindVertex)

	assert.Equal(t, KindVertex, b.Kind())
	assert.Equal(t, 0, b.Len())
}
