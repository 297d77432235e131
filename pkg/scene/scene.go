// Package scene defines the scene graph handed to the asset pipeline by
// external importers.
//
// A Scene is expected to be triangulated and acyclic. Importers fill it in;
// the pipeline only reads it.
package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxTexCoordChannels is the number of texture coordinate channels a mesh can
// carry. The pipeline only consumes channel 0.
const MaxTexCoordChannels = 8

// MaxBoneInfluence is the number of bone influences kept per vertex.
const MaxBoneInfluence = 4

// Slot is a texture semantic on a material.
type Slot int

const (
	SlotDiffuse Slot = iota
	SlotSpecular
	SlotNormal
	SlotHeight
)

// Slots lists every slot in the order the pipeline requests them.
var Slots = [...]Slot{SlotDiffuse, SlotSpecular, SlotNormal, SlotHeight}

// String returns a human-readable slot name.
func (s Slot) String() string {
	switch s {
	case SlotDiffuse:
		return "Diffuse"
	case SlotSpecular:
		return "Specular"
	case SlotNormal:
		return "Normal"
	case SlotHeight:
		return "Height"
	default:
		return fmt.Sprintf("Slot(%d)", int(s))
	}
}

// ColorKey selects a base colour on a material.
type ColorKey int

const (
	ColorDiffuse ColorKey = iota
	ColorSpecular
)

// String returns a human-readable colour key name.
func (k ColorKey) String() string {
	switch k {
	case ColorDiffuse:
		return "Diffuse"
	case ColorSpecular:
		return "Specular"
	default:
		return fmt.Sprintf("ColorKey(%d)", int(k))
	}
}

// Scene is a parsed, triangulated scene graph.
type Scene struct {
	Root      *Node
	Meshes    []*Mesh
	Materials []*Material

	// Incomplete is set by importers that could not produce a usable scene.
	Incomplete bool
}

// Node is one node of the scene graph. Meshes holds indices into
// Scene.Meshes.
type Node struct {
	Name     string
	Meshes   []int
	Children []*Node
}

// Face is one polygon; after triangulation it has exactly 3 indices.
type Face struct {
	Indices []uint32
}

// Mesh is the raw per-vertex data of one drawable unit.
//
// Positions defines the vertex count. Normals, Tangents, Bitangents, BoneIDs
// and BoneWeights are either nil or have one entry per vertex. BoneIDs and
// BoneWeights are set together or not at all. A texture
// coordinate channel is present when its slice is non-nil.
type Mesh struct {
	Name string

	Positions  []mgl32.Vec3
	Normals    []mgl32.Vec3
	TexCoords  [MaxTexCoordChannels][]mgl32.Vec2
	Tangents   []mgl32.Vec3
	Bitangents []mgl32.Vec3

	BoneIDs     [][MaxBoneInfluence]int32
	BoneWeights [][MaxBoneInfluence]float32

	Faces         []Face
	MaterialIndex int
}

// NumVertices returns the vertex count.
func (m *Mesh) NumVertices() int {
	return len(m.Positions)
}

// HasNormals reports whether the mesh carries normals.
func (m *Mesh) HasNormals() bool {
	return m.Normals != nil
}

// HasTexCoords reports whether texture coordinate channel ch exists.
func (m *Mesh) HasTexCoords(ch int) bool {
	if ch < 0 || ch >= MaxTexCoordChannels {
		return false
	}
	return m.TexCoords[ch] != nil
}

// HasBones reports whether the mesh carries bone influences.
func (m *Mesh) HasBones() bool {
	return m.BoneIDs != nil && m.BoneWeights != nil
}

// Material holds texture references per slot and optional base colours.
type Material struct {
	Name string

	textures map[Slot][]string
	colors   map[ColorKey][4]float32
}

// NewMaterial returns an empty material.
func NewMaterial(name string) *Material {
	return &Material{Name: name}
}

// AddTexture appends a texture file reference to slot.
func (m *Material) AddTexture(slot Slot, file string) {
	if m.textures == nil {
		m.textures = make(map[Slot][]string)
	}
	m.textures[slot] = append(m.textures[slot], file)
}

// TextureCount returns the number of texture references in slot.
func (m *Material) TextureCount(slot Slot) int {
	return len(m.textures[slot])
}

// Texture returns the i-th texture reference in slot.
func (m *Material) Texture(slot Slot, i int) string {
	return m.textures[slot][i]
}

// SetColor sets a base colour.
func (m *Material) SetColor(key ColorKey, rgba [4]float32) {
	if m.colors == nil {
		m.colors = make(map[ColorKey][4]float32)
	}
	m.colors[key] = rgba
}

// Color returns a base colour and whether it was set.
func (m *Material) Color(key ColorKey) ([4]float32, bool) {
	c, ok := m.colors[key]
	return c, ok
}
