package rsmimport

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-assets/pkg/formats"
	"github.com/Faultbox/midgard-assets/pkg/scene"
)

// Faces with a smaller normal are degenerate and skipped.
const degenerateEpsilon = 1e-5

// Positions closer than this share a smoothed normal.
const smoothEpsilon float32 = 0.001

// meshBuilder accumulates the triangles of one node that use one texture.
type meshBuilder struct {
	texture int // global texture index, -1 for none
	mesh    *scene.Mesh

	// Per-vertex smoothing keys, parallel to mesh.Positions.
	groups []smoothKey
}

type smoothKey struct {
	pos   [3]int32
	group int32
	back  bool
}

// addTriangle appends an unwelded triangle with a flat normal.
func (b *meshBuilder) addTriangle(pos [3]mgl32.Vec3, uv [3]mgl32.Vec2, normal mgl32.Vec3, group int32, back bool) {
	base := uint32(len(b.mesh.Positions))
	for j := 0; j < 3; j++ {
		b.mesh.Positions = append(b.mesh.Positions, pos[j])
		b.mesh.Normals = append(b.mesh.Normals, normal)
		b.mesh.TexCoords[0] = append(b.mesh.TexCoords[0], uv[j])
		b.groups = append(b.groups, smoothKey{pos: quantize(pos[j]), group: group, back: back})
	}
	b.mesh.Faces = append(b.mesh.Faces, scene.Face{Indices: []uint32{base, base + 1, base + 2}})
}

func quantize(p mgl32.Vec3) [3]int32 {
	return [3]int32{
		int32(p[0] / smoothEpsilon),
		int32(p[1] / smoothEpsilon),
		int32(p[2] / smoothEpsilon),
	}
}

// smooth averages the normals of vertices that share a position, a
// smoothing group and a side.
func (b *meshBuilder) smooth() {
	buckets := make(map[smoothKey][]int)
	for i, k := range b.groups {
		buckets[k] = append(buckets[k], i)
	}
	for _, idxs := range buckets {
		if len(idxs) < 2 {
			continue
		}
		var sum mgl32.Vec3
		for _, i := range idxs {
			sum = sum.Add(b.mesh.Normals[i])
		}
		if sum.Len() < 1e-4 {
			continue
		}
		avg := sum.Normalize()
		for _, i := range idxs {
			b.mesh.Normals[i] = avg
		}
	}
}

// buildNodeMeshes splits the faces of node i into one builder per texture,
// in order of first use.
func buildNodeMeshes(rsm *formats.RSM, i int, opts Options) []*meshBuilder {
	node := &rsm.Nodes[i]
	m := nodeMatrix(rsm, i, opts.AnimTime)

	var builders []*meshBuilder
	byTexture := make(map[int]*meshBuilder)

	for _, face := range node.Faces {
		if !validFace(node, face) {
			continue
		}

		var pos [3]mgl32.Vec3
		var uv [3]mgl32.Vec2
		for j := 0; j < 3; j++ {
			p := mgl32.TransformCoordinate(mgl32.Vec3(node.Vertices[face.VertexIDs[j]]), m)
			p[1] = -p[1]
			pos[j] = p
			if tc := int(face.TexCoordIDs[j]); tc < len(node.TexCoords) {
				uv[j] = mgl32.Vec2{node.TexCoords[tc].U, node.TexCoords[tc].V}
			}
		}

		normal := pos[1].Sub(pos[0]).Cross(pos[2].Sub(pos[0]))
		if normal.Len() < degenerateEpsilon {
			continue
		}
		normal = normal.Normalize()

		tex := faceTexture(rsm, node, face)
		b, ok := byTexture[tex]
		if !ok {
			b = &meshBuilder{texture: tex, mesh: &scene.Mesh{}}
			byTexture[tex] = b
			builders = append(builders, b)
		}

		b.addTriangle(pos, uv, normal, face.SmoothGroup, false)
		if face.TwoSide != 0 || opts.ForceTwoSided {
			b.addTriangle(
				[3]mgl32.Vec3{pos[2], pos[1], pos[0]},
				[3]mgl32.Vec2{uv[2], uv[1], uv[0]},
				normal.Mul(-1), face.SmoothGroup, true)
		}
	}

	if rsm.Shading != formats.RSMShadingFlat {
		for _, b := range builders {
			b.smooth()
		}
	}
	return builders
}

func validFace(node *formats.RSMNode, face formats.RSMFace) bool {
	for _, vid := range face.VertexIDs {
		if int(vid) >= len(node.Vertices) {
			return false
		}
	}
	return true
}

// faceTexture maps a face's node-local texture slot to a global texture
// index, or -1 when it does not resolve.
func faceTexture(rsm *formats.RSM, node *formats.RSMNode, face formats.RSMFace) int {
	if int(face.TextureID) >= len(node.TextureIDs) {
		return -1
	}
	tex := int(node.TextureIDs[face.TextureID])
	if tex < 0 || tex >= len(rsm.Textures) {
		return -1
	}
	return tex
}
