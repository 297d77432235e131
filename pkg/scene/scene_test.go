package scene

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlot_Order(t *testing.T) {
	assert.Equal(t, [...]Slot{SlotDiffuse, SlotSpecular, SlotNormal, SlotHeight}, Slots)
	assert.Equal(t, "Height", SlotHeight.String())
	assert.Equal(t, "Slot(9)", Slot(9).String())
	assert.Equal(t, "Specular", ColorSpecular.String())
}

func TestMaterial_TexturesAndColors(t *testing.T) {
	m := NewMaterial("wood")

	assert.Equal(t, 0, m.TextureCount(SlotDiffuse))
	_, ok := m.Color(ColorDiffuse)
	assert.False(t, ok)

	m.AddTexture(SlotDiffuse, "a.png")
	m.AddTexture(SlotDiffuse, "b.png")
	m.AddTexture(SlotNormal, "n.png")
	m.SetColor(ColorDiffuse, [4]float32{1, 0, 0, 1})

	require.Equal(t, 2, m.TextureCount(SlotDiffuse))
	assert.Equal(t, "b.png", m.Texture(SlotDiffuse, 1))
	assert.Equal(t, 1, m.TextureCount(SlotNormal))
	assert.Equal(t, 0, m.TextureCount(SlotHeight))

	c, ok := m.Color(ColorDiffuse)
	assert.True(t, ok)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, c)
}

func TestMesh_Channels(t *testing.T) {
	m := &Mesh{Positions: make([]mgl32.Vec3, 3)}

	assert.Equal(t, 3, m.NumVertices())
	assert.False(t, m.HasNormals())
	assert.False(t, m.HasTexCoords(0))
	assert.False(t, m.HasTexCoords(-1))
	assert.False(t, m.HasTexCoords(MaxTexCoordChannels))
	assert.False(t, m.HasBones())

	m.TexCoords[0] = make([]mgl32.Vec2, 3)
	assert.True(t, m.HasTexCoords(0))
}

func TestDir(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"models/house/house.gltf", "models/house/"},
		{"/abs/model.rsm", "/abs/"},
		{"model.rsm", ""},
		{`data\model\tree.rsm`, `data\model\`},
		{"dir/", "dir/"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Dir(tt.path))
		})
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "models/tex.png", Join("models/", "tex.png"))
	assert.Equal(t, "tex.png", Join("", "tex.png"))
	assert.Equal(t, "data/texture/a.bmp", Join(`data\`, `texture\a.bmp`))
}

func TestOSFileSystem(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(p, []byte("hello"), 0644))

	data, err := ReadFile(OSFileSystem{}, p)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = OSFileSystem{}.Open(filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestImporterFunc(t *testing.T) {
	want := &Scene{Root: &Node{Name: "root"}}
	imp := ImporterFunc(func(path string, fsys FileSystem) (*Scene, error) {
		return want, nil
	})

	got, err := imp.Import("x", nil)
	require.NoError(t, err)
	assert.Same(t, want, got)
}
