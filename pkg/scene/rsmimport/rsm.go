// Package rsmimport converts Ragnarok Online RSM models into scene graphs.
//
// Geometry is baked into model space at a fixed animation time, so every
// scene mesh is ready to draw without node transforms. Vertices are not
// shared between faces.
package rsmimport

import (
	"fmt"

	"github.com/Faultbox/midgard-assets/pkg/formats"
	"github.com/Faultbox/midgard-assets/pkg/scene"
)

// Options controls how geometry is baked.
type Options struct {
	// AnimTime is the animation time in milliseconds used for keyframed nodes.
	AnimTime float32
	// ForceTwoSided emits back faces for every face, not only flagged ones.
	ForceTwoSided bool
}

// Importer reads .rsm and .rsm2 files. The zero value bakes the pose at
// time 0.
type Importer struct {
	Options Options
}

// Import reads and converts the model at path.
func (imp Importer) Import(path string, fsys scene.FileSystem) (*scene.Scene, error) {
	rc, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	rsm, err := formats.ReadRSM(rc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return Convert(rsm, imp.Options), nil
}

// Convert builds a scene from a parsed model. Each RSM texture becomes one
// material; faces whose texture does not resolve share an extra untextured
// material.
func Convert(rsm *formats.RSM, opts Options) *scene.Scene {
	sc := &scene.Scene{}
	for _, tex := range rsm.Textures {
		mat := scene.NewMaterial(tex)
		mat.AddTexture(scene.SlotDiffuse, tex)
		sc.Materials = append(sc.Materials, mat)
	}
	untextured := -1

	// meshes[i] lists the scene meshes of RSM node i.
	meshes := make([][]int, len(rsm.Nodes))
	for i := range rsm.Nodes {
		for _, b := range buildNodeMeshes(rsm, i, opts) {
			mat := b.texture
			if mat < 0 {
				if untextured < 0 {
					untextured = len(sc.Materials)
					sc.Materials = append(sc.Materials, scene.NewMaterial("untextured"))
				}
				mat = untextured
			}
			b.mesh.Name = fmt.Sprintf("%s:%d", rsm.Nodes[i].Name, b.texture)
			b.mesh.MaterialIndex = mat
			meshes[i] = append(meshes[i], len(sc.Meshes))
			sc.Meshes = append(sc.Meshes, b.mesh)
		}
	}

	sc.Root = buildTree(rsm, meshes)
	return sc
}

// buildTree links nodes by parent name under a synthetic root. The RSM root
// comes first; nodes it does not reach, including members of parent cycles,
// are attached to the synthetic root in file order.
func buildTree(rsm *formats.RSM, meshes [][]int) *scene.Node {
	root := &scene.Node{Name: "root"}
	placed := make([]bool, len(rsm.Nodes))

	var build func(i int) *scene.Node
	build = func(i int) *scene.Node {
		placed[i] = true
		n := &scene.Node{Name: rsm.Nodes[i].Name, Meshes: meshes[i]}
		for _, c := range rsm.ChildIndices(i) {
			if !placed[c] {
				n.Children = append(n.Children, build(c))
			}
		}
		return n
	}

	if r := rsm.RootNodeIndex(); r >= 0 {
		root.Children = append(root.Children, build(r))
	}
	for i := range rsm.Nodes {
		if !placed[i] {
			root.Children = append(root.Children, build(i))
		}
	}
	return root
}
