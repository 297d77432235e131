package asset

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-assets/pkg/scene"
)

// MaxBoneInfluence is the number of bone influences stored per vertex.
const MaxBoneInfluence = scene.MaxBoneInfluence

// Vertex is one interleaved vertex ready for upload.
type Vertex struct {
	Position  mgl32.Vec3
	Normal    mgl32.Vec3
	TexCoords mgl32.Vec2
	Tangent   mgl32.Vec3
	Bitangent mgl32.Vec3

	// Bone indices influencing this vertex and their weights.
	BoneIDs [MaxBoneInfluence]int32
	Weights [MaxBoneInfluence]float32
}
