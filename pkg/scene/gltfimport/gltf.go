// Package gltfimport reads glTF 2.0 files (.gltf and .glb) into scene graphs.
package gltfimport

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/midgard-assets/pkg/scene"
)

// Attribute names.
const (
	attrPosition = "POSITION"
	attrNormal   = "NORMAL"
	attrTangent  = "TANGENT"
	attrJoints   = "JOINTS_0"
	attrWeights  = "WEIGHTS_0"
)

var (
	ErrNoPositions  = errors.New("gltf: primitive has no POSITION attribute")
	ErrBadReference = errors.New("gltf: index out of range")
	ErrNodeCycle    = errors.New("gltf: node hierarchy has a cycle")
)

// Importer decodes glTF documents. The zero value is ready to use.
type Importer struct{}

// Import reads path through fsys. External buffers are resolved relative to
// the directory of path through the same file system.
func (Importer) Import(path string, fsys scene.FileSystem) (*scene.Scene, error) {
	data, err := scene.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}

	doc := new(gltf.Document)
	dec := gltf.NewDecoderFS(bytes.NewReader(data), shimFS{fsys: fsys, dir: scene.Dir(path)})
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return Convert(doc)
}

// shimFS exposes a scene.FileSystem as an fs.FS rooted at dir, so the
// decoder can load external buffers.
type shimFS struct {
	fsys scene.FileSystem
	dir  string
}

func (s shimFS) resolve(op, uri string) (string, error) {
	name, err := url.PathUnescape(uri)
	if err != nil {
		name = uri
	}
	if name == "" {
		return "", &fs.PathError{Op: op, Path: uri, Err: fs.ErrInvalid}
	}
	return scene.Join(s.dir, name), nil
}

// Open implements fs.FS.
func (s shimFS) Open(uri string) (fs.File, error) {
	data, err := s.ReadFile(uri)
	if err != nil {
		return nil, err
	}
	return &shimFile{Reader: bytes.NewReader(data), name: path.Base(uri), size: int64(len(data))}, nil
}

// ReadFile implements fs.ReadFileFS.
func (s shimFS) ReadFile(uri string) ([]byte, error) {
	name, err := s.resolve("read", uri)
	if err != nil {
		return nil, err
	}
	data, err := scene.ReadFile(s.fsys, name)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: uri, Err: err}
	}
	return data, nil
}

// shimFile is an in-memory fs.File.
type shimFile struct {
	*bytes.Reader
	name string
	size int64
}

func (f *shimFile) Stat() (fs.FileInfo, error) { return f, nil }
func (f *shimFile) Close() error               { return nil }

// fs.FileInfo
func (f *shimFile) Name() string       { return f.name }
func (f *shimFile) Size() int64        { return f.size }
func (f *shimFile) Mode() fs.FileMode  { return 0o444 }
func (f *shimFile) ModTime() time.Time { return time.Time{} }
func (f *shimFile) IsDir() bool        { return false }
func (f *shimFile) Sys() any           { return nil }

// converter carries the state of one document conversion.
type converter struct {
	doc *gltf.Document
	sc  *scene.Scene

	// meshes[i] lists the scene meshes created for glTF mesh i.
	meshes [][]int

	defaultMaterial int
}

// Convert maps an already decoded document onto a Scene.
func Convert(doc *gltf.Document) (*scene.Scene, error) {
	c := &converter{
		doc:             doc,
		sc:              &scene.Scene{},
		defaultMaterial: -1,
	}

	if err := c.convertMaterials(); err != nil {
		return nil, err
	}
	if err := c.convertMeshes(); err != nil {
		return nil, err
	}
	root, err := c.convertRoot()
	if err != nil {
		return nil, err
	}
	c.sc.Root = root
	return c.sc, nil
}

func (c *converter) convertMaterials() error {
	for i, gm := range c.doc.Materials {
		name := gm.Name
		if name == "" {
			name = fmt.Sprintf("material%d", i)
		}
		mat := scene.NewMaterial(name)

		baseColor := [4]float32{1, 1, 1, 1}
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				baseColor = *pbr.BaseColorFactor
			}
			if pbr.BaseColorTexture != nil {
				if err := c.addTexture(mat, scene.SlotDiffuse, pbr.BaseColorTexture.Index); err != nil {
					return fmt.Errorf("material %q: %w", name, err)
				}
			}
			if pbr.MetallicRoughnessTexture != nil {
				if err := c.addTexture(mat, scene.SlotSpecular, pbr.MetallicRoughnessTexture.Index); err != nil {
					return fmt.Errorf("material %q: %w", name, err)
				}
			}
		}
		if nt := gm.NormalTexture; nt != nil && nt.Index != nil {
			if err := c.addTexture(mat, scene.SlotNormal, *nt.Index); err != nil {
				return fmt.Errorf("material %q: %w", name, err)
			}
		}
		if ot := gm.OcclusionTexture; ot != nil && ot.Index != nil {
			if err := c.addTexture(mat, scene.SlotHeight, *ot.Index); err != nil {
				return fmt.Errorf("material %q: %w", name, err)
			}
		}
		mat.SetColor(scene.ColorDiffuse, baseColor)

		c.sc.Materials = append(c.sc.Materials, mat)
	}
	return nil
}

// addTexture resolves texture index idx to a file reference.
func (c *converter) addTexture(mat *scene.Material, slot scene.Slot, idx uint32) error {
	if int(idx) >= len(c.doc.Textures) {
		return fmt.Errorf("%w: texture %d of %d", ErrBadReference, idx, len(c.doc.Textures))
	}
	tex := c.doc.Textures[idx]
	if tex.Source == nil {
		return nil
	}
	src := *tex.Source
	if int(src) >= len(c.doc.Images) {
		return fmt.Errorf("%w: image %d of %d", ErrBadReference, src, len(c.doc.Images))
	}
	mat.AddTexture(slot, imageRef(c.doc.Images[src], src))
	return nil
}

// imageRef returns the file name of an external image, or "*<index>" for
// images stored inside the document.
func imageRef(img *gltf.Image, idx uint32) string {
	if img.URI == "" || img.IsEmbeddedResource() {
		return fmt.Sprintf("*%d", idx)
	}
	if name, err := url.PathUnescape(img.URI); err == nil {
		return name
	}
	return img.URI
}

// material returns the scene material for a primitive, creating a plain
// default material the first time one without a material is seen.
func (c *converter) material(ref *uint32) (int, error) {
	if ref != nil {
		if int(*ref) >= len(c.sc.Materials) {
			return 0, fmt.Errorf("%w: material %d of %d", ErrBadReference, *ref, len(c.sc.Materials))
		}
		return int(*ref), nil
	}
	if c.defaultMaterial < 0 {
		mat := scene.NewMaterial("default")
		mat.SetColor(scene.ColorDiffuse, [4]float32{1, 1, 1, 1})
		c.defaultMaterial = len(c.sc.Materials)
		c.sc.Materials = append(c.sc.Materials, mat)
	}
	return c.defaultMaterial, nil
}

func (c *converter) convertMeshes() error {
	c.meshes = make([][]int, len(c.doc.Meshes))
	for i, gm := range c.doc.Meshes {
		for j, prim := range gm.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				c.sc.Incomplete = true
				continue
			}
			name := gm.Name
			if name == "" {
				name = fmt.Sprintf("mesh%d", i)
			}
			if len(gm.Primitives) > 1 {
				name = fmt.Sprintf("%s.%d", name, j)
			}

			mesh, err := c.convertPrimitive(name, prim)
			if err != nil {
				return fmt.Errorf("mesh %q: %w", name, err)
			}
			c.meshes[i] = append(c.meshes[i], len(c.sc.Meshes))
			c.sc.Meshes = append(c.sc.Meshes, mesh)
		}
	}
	return nil
}

func (c *converter) accessor(idx uint32) (*gltf.Accessor, error) {
	if int(idx) >= len(c.doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d of %d", ErrBadReference, idx, len(c.doc.Accessors))
	}
	return c.doc.Accessors[idx], nil
}

func (c *converter) convertPrimitive(name string, prim *gltf.Primitive) (*scene.Mesh, error) {
	posIdx, ok := prim.Attributes[attrPosition]
	if !ok {
		return nil, ErrNoPositions
	}
	acr, err := c.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(c.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	mesh := &scene.Mesh{
		Name:      name,
		Positions: make([]mgl32.Vec3, len(positions)),
	}
	for i, p := range positions {
		mesh.Positions[i] = mgl32.Vec3(p)
	}

	if idx, ok := prim.Attributes[attrNormal]; ok {
		if acr, err = c.accessor(idx); err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
		mesh.Normals = make([]mgl32.Vec3, len(normals))
		for i, n := range normals {
			mesh.Normals[i] = mgl32.Vec3(n)
		}
	}

	for ch := 0; ch < scene.MaxTexCoordChannels; ch++ {
		idx, ok := prim.Attributes[fmt.Sprintf("TEXCOORD_%d", ch)]
		if !ok {
			continue
		}
		if acr, err = c.accessor(idx); err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read texcoord %d: %w", ch, err)
		}
		mesh.TexCoords[ch] = make([]mgl32.Vec2, len(uvs))
		for i, uv := range uvs {
			mesh.TexCoords[ch][i] = mgl32.Vec2(uv)
		}
	}

	if idx, ok := prim.Attributes[attrTangent]; ok {
		if acr, err = c.accessor(idx); err != nil {
			return nil, err
		}
		tangents, err := modeler.ReadTangent(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read tangents: %w", err)
		}
		setTangents(mesh, tangents)
	}

	if err := c.readSkin(mesh, prim); err != nil {
		return nil, err
	}

	if mesh.MaterialIndex, err = c.material(prim.Material); err != nil {
		return nil, err
	}

	indices, err := c.readIndices(prim, len(positions))
	if err != nil {
		return nil, err
	}
	mesh.Faces = make([]scene.Face, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		mesh.Faces = append(mesh.Faces, scene.Face{Indices: []uint32{indices[i], indices[i+1], indices[i+2]}})
	}
	return mesh, nil
}

// setTangents stores tangents and derives bitangents from the normal and the
// tangent handedness in w.
func setTangents(mesh *scene.Mesh, tangents [][4]float32) {
	mesh.Tangents = make([]mgl32.Vec3, len(tangents))
	for i, t := range tangents {
		mesh.Tangents[i] = mgl32.Vec3{t[0], t[1], t[2]}
	}
	if len(mesh.Normals) != len(tangents) {
		return
	}
	mesh.Bitangents = make([]mgl32.Vec3, len(tangents))
	for i, t := range tangents {
		mesh.Bitangents[i] = mesh.Normals[i].Cross(mesh.Tangents[i]).Mul(t[3])
	}
}

func (c *converter) readSkin(mesh *scene.Mesh, prim *gltf.Primitive) error {
	jIdx, hasJoints := prim.Attributes[attrJoints]
	wIdx, hasWeights := prim.Attributes[attrWeights]
	if !hasJoints || !hasWeights {
		return nil
	}

	acr, err := c.accessor(jIdx)
	if err != nil {
		return err
	}
	joints, err := modeler.ReadJoints(c.doc, acr, nil)
	if err != nil {
		return fmt.Errorf("read joints: %w", err)
	}
	if acr, err = c.accessor(wIdx); err != nil {
		return err
	}
	weights, err := modeler.ReadWeights(c.doc, acr, nil)
	if err != nil {
		return fmt.Errorf("read weights: %w", err)
	}

	mesh.BoneIDs = make([][4]int32, len(joints))
	for i, j := range joints {
		mesh.BoneIDs[i] = [4]int32{int32(j[0]), int32(j[1]), int32(j[2]), int32(j[3])}
	}
	mesh.BoneWeights = weights
	return nil
}

// readIndices returns the primitive's index list, or 0..n-1 for
// non-indexed geometry.
func (c *converter) readIndices(prim *gltf.Primitive, n int) ([]uint32, error) {
	if prim.Indices == nil {
		indices := make([]uint32, n)
		for i := range indices {
			indices[i] = uint32(i)
		}
		return indices, nil
	}
	acr, err := c.accessor(*prim.Indices)
	if err != nil {
		return nil, err
	}
	indices, err := modeler.ReadIndices(c.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("read indices: %w", err)
	}
	return indices, nil
}

// convertRoot builds a synthetic root whose children are the roots of the
// default scene. Documents without scenes use every node that is nobody's
// child.
func (c *converter) convertRoot() (*scene.Node, error) {
	root := &scene.Node{Name: "root"}

	var roots []uint32
	switch {
	case len(c.doc.Scenes) > 0:
		si := uint32(0)
		if c.doc.Scene != nil {
			si = *c.doc.Scene
		}
		if int(si) >= len(c.doc.Scenes) {
			return nil, fmt.Errorf("%w: scene %d of %d", ErrBadReference, si, len(c.doc.Scenes))
		}
		roots = c.doc.Scenes[si].Nodes
	default:
		isChild := make([]bool, len(c.doc.Nodes))
		for _, n := range c.doc.Nodes {
			for _, ch := range n.Children {
				if int(ch) < len(isChild) {
					isChild[ch] = true
				}
			}
		}
		for i, child := range isChild {
			if !child {
				roots = append(roots, uint32(i))
			}
		}
	}

	visiting := make(map[uint32]bool)
	for _, idx := range roots {
		child, err := c.convertNode(idx, visiting)
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, child)
	}
	return root, nil
}

func (c *converter) convertNode(idx uint32, visiting map[uint32]bool) (*scene.Node, error) {
	if int(idx) >= len(c.doc.Nodes) {
		return nil, fmt.Errorf("%w: node %d of %d", ErrBadReference, idx, len(c.doc.Nodes))
	}
	if visiting[idx] {
		return nil, fmt.Errorf("%w: node %d", ErrNodeCycle, idx)
	}
	visiting[idx] = true
	defer delete(visiting, idx)

	gn := c.doc.Nodes[idx]
	node := &scene.Node{Name: gn.Name}
	if node.Name == "" {
		node.Name = fmt.Sprintf("node%d", idx)
	}
	if gn.Mesh != nil {
		mi := *gn.Mesh
		if int(mi) >= len(c.meshes) {
			return nil, fmt.Errorf("%w: mesh %d of %d", ErrBadReference, mi, len(c.meshes))
		}
		node.Meshes = append(node.Meshes, c.meshes[mi]...)
	}
	for _, ch := range gn.Children {
		child, err := c.convertNode(ch, visiting)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}
