package rsmimport

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-assets/pkg/formats"
)

// nodeMatrix returns the matrix that takes node i's vertices to model space:
// the inherited hierarchy matrix followed by the node's own offset and 3x3
// matrix, which children do not inherit.
func nodeMatrix(rsm *formats.RSM, i int, timeMs float32) mgl32.Mat4 {
	node := &rsm.Nodes[i]
	visited := make(map[int]bool)
	m := hierarchyMatrix(rsm, i, timeMs, visited)
	m = m.Mul4(mgl32.Translate3D(node.Offset[0], node.Offset[1], node.Offset[2]))
	return m.Mul4(mgl32.Mat3(node.Matrix).Mat4())
}

// hierarchyMatrix returns parent * Position * Rotation * Scale for node i.
// A node reached twice while walking up the parents ends the walk.
func hierarchyMatrix(rsm *formats.RSM, i int, timeMs float32, visited map[int]bool) mgl32.Mat4 {
	if visited[i] {
		return mgl32.Ident4()
	}
	visited[i] = true
	node := &rsm.Nodes[i]

	local := mgl32.Translate3D(node.Position[0], node.Position[1], node.Position[2])

	// Keyframes replace the static axis-angle rotation.
	if len(node.RotKeys) > 0 {
		local = local.Mul4(rotationAt(node.RotKeys, timeMs).Mat4())
	} else if node.RotAngle != 0 {
		axis := mgl32.Vec3(node.RotAxis)
		if axis.Len() > 1e-6 {
			local = local.Mul4(mgl32.HomogRotate3D(node.RotAngle, axis.Normalize()))
		}
	}

	local = local.Mul4(mgl32.Scale3D(node.Scale[0], node.Scale[1], node.Scale[2]))
	if len(node.ScaleKeys) > 0 {
		s := scaleAt(node.ScaleKeys, timeMs)
		local = local.Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	}

	if node.Parent != "" && node.Parent != node.Name {
		if p := rsm.NodeIndex(node.Parent); p >= 0 {
			return hierarchyMatrix(rsm, p, timeMs, visited).Mul4(local)
		}
	}
	return local
}

// keySpan finds the keys surrounding timeMs and the blend factor between
// them. Keys are assumed sorted by frame.
func keySpan(frames func(int) int32, n int, timeMs float32) (prev, next int, t float32) {
	for i := 0; i < n; i++ {
		if float32(frames(i)) > timeMs {
			next = i
			break
		}
		prev, next = i, i
	}
	if prev == next {
		return prev, next, 0
	}
	f0, f1 := frames(prev), frames(next)
	if f1 != f0 {
		t = (timeMs - float32(f0)) / float32(f1-f0)
	}
	return prev, next, t
}

func quat(q [4]float32) mgl32.Quat {
	return mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}
}

// rotationAt interpolates rotation keys at timeMs.
func rotationAt(keys []formats.RSMRotKeyframe, timeMs float32) mgl32.Quat {
	switch len(keys) {
	case 0:
		return mgl32.QuatIdent()
	case 1:
		return quat(keys[0].Quaternion).Normalize()
	}
	prev, next, t := keySpan(func(i int) int32 { return keys[i].Frame }, len(keys), timeMs)
	if prev == next {
		return quat(keys[prev].Quaternion).Normalize()
	}
	q0 := quat(keys[prev].Quaternion).Normalize()
	q1 := quat(keys[next].Quaternion).Normalize()
	return mgl32.QuatSlerp(q0, q1, t)
}

// scaleAt interpolates scale keys at timeMs.
func scaleAt(keys []formats.RSMScaleKeyframe, timeMs float32) mgl32.Vec3 {
	switch len(keys) {
	case 0:
		return mgl32.Vec3{1, 1, 1}
	case 1:
		return mgl32.Vec3(keys[0].Scale)
	}
	prev, next, t := keySpan(func(i int) int32 { return keys[i].Frame }, len(keys), timeMs)
	s0, s1 := mgl32.Vec3(keys[prev].Scale), mgl32.Vec3(keys[next].Scale)
	return s0.Add(s1.Sub(s0).Mul(t))
}
