package asset

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-assets/pkg/growbuf"
	"github.com/Faultbox/midgard-assets/pkg/scene"
)

// Image slots in request order.
var slotTypes = [...]struct {
	slot scene.Slot
	typ  TextureType
}{
	{scene.SlotDiffuse, TextureDiffuse},
	{scene.SlotSpecular, TextureSpecular},
	{scene.SlotNormal, TextureNormal},
	{scene.SlotHeight, TextureHeight},
}

// Fallback colours in request order, after all image slots.
var colorTypes = [...]struct {
	key scene.ColorKey
	typ TextureType
}{
	{scene.ColorDiffuse, TextureDiffuse},
	{scene.ColorSpecular, TextureSpecular},
}

// assembleMesh converts one scene mesh into an immutable Mesh. New textures
// are added to the model pool as a side effect.
func assembleMesh(m *Model, src *scene.Mesh, sc *scene.Scene, log *zap.Logger) (*Mesh, error) {
	if m == nil || src == nil || sc == nil {
		return nil, fmt.Errorf("%w: nil model, mesh or scene", ErrInvalidArgument)
	}
	if src.MaterialIndex < 0 || src.MaterialIndex >= len(sc.Materials) {
		return nil, fmt.Errorf("%w: mesh %q material %d of %d",
			ErrInvalidArgument, src.Name, src.MaterialIndex, len(sc.Materials))
	}
	mat := sc.Materials[src.MaterialIndex]
	if mat == nil {
		return nil, fmt.Errorf("%w: mesh %q has nil material", ErrInvalidArgument, src.Name)
	}
	if err := validateMesh(src); err != nil {
		return nil, err
	}

	vertices := growbuf.New[Vertex](growbuf.KindVertex)
	indices := growbuf.New[uint32](growbuf.KindUint32)
	textures := growbuf.New[Texture](growbuf.KindTexture)
	defer vertices.Free()
	defer indices.Free()
	defer textures.Free()

	extractVertices(vertices, src)
	if err := extractIndices(indices, src); err != nil {
		return nil, err
	}
	for _, st := range slotTypes {
		loadMaterialTextures(m, textures, mat, st.slot, st.typ, log)
	}
	for _, ct := range colorTypes {
		loadMaterialColor(m, textures, mat, ct.key, ct.typ, log)
	}

	mesh := newMesh(src.Name, vertices.Clone(), indices.Clone(), textures.Clone())
	log.Debug("mesh assembled",
		zap.String("mesh", src.Name),
		zap.String("material", mat.Name),
		zap.Int("vertices", mesh.VertexCount()),
		zap.Int("indices", mesh.IndexCount()),
		zap.Int("textures", mesh.TextureCount()))
	return mesh, nil
}

// validateMesh checks that every optional per-vertex stream matches the
// position count and that bone ids and weights come as a pair.
func validateMesh(src *scene.Mesh) error {
	n := src.NumVertices()
	streams := []struct {
		name    string
		present bool
		length  int
	}{
		{"normals", src.Normals != nil, len(src.Normals)},
		{"texcoords", src.HasTexCoords(0), len(src.TexCoords[0])},
		{"tangents", src.Tangents != nil, len(src.Tangents)},
		{"bitangents", src.Bitangents != nil, len(src.Bitangents)},
		{"bone ids", src.BoneIDs != nil, len(src.BoneIDs)},
		{"bone weights", src.BoneWeights != nil, len(src.BoneWeights)},
	}
	for _, s := range streams {
		if s.present && s.length != n {
			return fmt.Errorf("%w: mesh %q has %d %s for %d vertices",
				ErrMalformedMesh, src.Name, s.length, s.name, n)
		}
	}
	// Bone ids and weights only mean something together.
	if (src.BoneIDs != nil) != (src.BoneWeights != nil) {
		return fmt.Errorf("%w: mesh %q has bone ids or weights but not both",
			ErrMalformedMesh, src.Name)
	}
	return nil
}

// extractVertices copies per-vertex data into dst.
//
// Only texture coordinate channel 0 is read. Tangent and bitangent are only
// read when that channel exists; otherwise they keep their zero value.
func extractVertices(dst *growbuf.Buffer[Vertex], src *scene.Mesh) {
	hasUV := src.HasTexCoords(0)
	hasBones := src.HasBones()

	for i, pos := range src.Positions {
		var v Vertex
		v.Position = pos

		if src.HasNormals() {
			v.Normal = src.Normals[i]
		}

		if hasUV {
			v.TexCoords = src.TexCoords[0][i]
			if src.Tangents != nil {
				v.Tangent = src.Tangents[i]
			}
			if src.Bitangents != nil {
				v.Bitangent = src.Bitangents[i]
			}
		} else {
			v.TexCoords[0] = 0
			v.TexCoords[1] = 0
		}

		if hasBones {
			v.BoneIDs = src.BoneIDs[i]
			v.Weights = src.BoneWeights[i]
		}

		dst.PushBack(v)
	}
}

// extractIndices appends every face's indices in order.
func extractIndices(dst *growbuf.Buffer[uint32], src *scene.Mesh) error {
	n := uint32(src.NumVertices())
	for i, face := range src.Faces {
		if len(face.Indices) != 3 {
			return fmt.Errorf("%w: mesh %q face %d has %d indices, want 3",
				ErrMalformedMesh, src.Name, i, len(face.Indices))
		}
		for _, idx := range face.Indices {
			if idx >= n {
				return fmt.Errorf("%w: mesh %q face %d index %d out of range [0, %d)",
					ErrMalformedMesh, src.Name, i, idx, n)
			}
		}
		dst.InsertBack(face.Indices...)
	}
	return nil
}

// loadMaterialTextures resolves every image reference of slot. Known files
// are copied out of the pool; unknown ones are created and added to both dst
// and the pool.
func loadMaterialTextures(m *Model, dst *growbuf.Buffer[Texture], mat *scene.Material, slot scene.Slot, typ TextureType, log *zap.Logger) {
	for i := 0; i < mat.TextureCount(slot); i++ {
		name := mat.Texture(slot, i)
		if name == "" {
			log.Warn("empty texture reference skipped",
				zap.String("material", mat.Name),
				zap.Stringer("slot", slot))
			continue
		}

		if found := FindByFile(m.textures, name, m.directory); found != nil {
			dst.PushBack(*found)
			continue
		}

		t := NewFileTexture(typ, name, m.directory)
		dst.PushBack(t)
		m.addTexture(t)
		log.Debug("texture added",
			zap.Stringer("type", typ),
			zap.String("file", name))
	}
}

// loadMaterialColor adds the fallback colour texture for key. Black (zero
// RGB) counts as unset; alpha is not considered.
func loadMaterialColor(m *Model, dst *growbuf.Buffer[Texture], mat *scene.Material, key scene.ColorKey, typ TextureType, log *zap.Logger) {
	rgba, ok := mat.Color(key)
	if !ok || (rgba[0] == 0 && rgba[1] == 0 && rgba[2] == 0) {
		return
	}

	if found := FindByColor(m.textures, rgba); found != nil {
		dst.PushBack(*found)
		return
	}

	t := NewColorTexture(rgba, typ)
	dst.PushBack(t)
	m.addTexture(t)
	log.Debug("color texture added",
		zap.Stringer("type", typ),
		zap.Float32s("rgba", rgba[:]))
}
