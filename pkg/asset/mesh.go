package asset

import "slices"

// Mesh is one immutable drawable unit. Indices reference Vertices in groups
// of three. Textures are value copies of model pool entries, so a Mesh stays
// valid whatever happens to the pool afterwards.
type Mesh struct {
	name     string
	vertices []Vertex
	indices  []uint32
	textures []Texture
}

func newMesh(name string, vertices []Vertex, indices []uint32, textures []Texture) *Mesh {
	return &Mesh{
		name:     name,
		vertices: vertices,
		indices:  indices,
		textures: textures,
	}
}

// Name returns the source mesh name.
func (m *Mesh) Name() string { return m.name }

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.vertices) }

// IndexCount returns the number of indices.
func (m *Mesh) IndexCount() int { return len(m.indices) }

// TextureCount returns the number of textures.
func (m *Mesh) TextureCount() int { return len(m.textures) }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.indices) / 3 }

// Vertex returns a copy of vertex i.
func (m *Mesh) Vertex(i int) Vertex { return m.vertices[i] }

// Index returns index i.
func (m *Mesh) Index(i int) uint32 { return m.indices[i] }

// Texture returns a copy of texture i.
func (m *Mesh) Texture(i int) Texture { return m.textures[i] }

// Vertices returns a copy of the vertex sequence.
func (m *Mesh) Vertices() []Vertex { return slices.Clone(m.vertices) }

// Indices returns a copy of the index sequence.
func (m *Mesh) Indices() []uint32 { return slices.Clone(m.indices) }

// Textures returns a copy of the texture sequence.
func (m *Mesh) Textures() []Texture { return slices.Clone(m.textures) }
