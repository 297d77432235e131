// Package asset assembles imported scene graphs into flat, renderer-ready
// models: interleaved vertices, triangle indices and a deduplicated texture
// pool shared by all meshes of a model.
package asset

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-assets/pkg/growbuf"
	"github.com/Faultbox/midgard-assets/pkg/scene"
)

// Model owns the meshes of one imported file and its texture pool.
type Model struct {
	directory string
	meshes    *growbuf.Buffer[*Mesh]
	textures  *growbuf.Buffer[Texture]
}

// Stats summarises a model.
type Stats struct {
	Meshes    int `yaml:"meshes"`
	Vertices  int `yaml:"vertices"`
	Indices   int `yaml:"indices"`
	Triangles int `yaml:"triangles"`
	Textures  int `yaml:"textures"`
}

// Option configures Load and Assemble.
type Option func(*options)

type options struct {
	importer scene.Importer
	fsys     scene.FileSystem
	log      *zap.Logger
}

// WithImporter forces the importer instead of choosing one by extension.
func WithImporter(imp scene.Importer) Option {
	return func(o *options) { o.importer = imp }
}

// WithFileSystem sets the file-access shim handed to the importer.
func WithFileSystem(fsys scene.FileSystem) Option {
	return func(o *options) { o.fsys = fsys }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

func newOptions(opts []Option) *options {
	o := &options{
		fsys: scene.OSFileSystem{},
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.fsys == nil {
		o.fsys = scene.OSFileSystem{}
	}
	return o
}

func newModel(directory string) *Model {
	return &Model{
		directory: directory,
		meshes:    growbuf.New[*Mesh](growbuf.KindMesh),
		textures:  growbuf.New[Texture](growbuf.KindTexture),
	}
}

// Load imports the file at path and assembles it into a Model.
//
// The importer is picked from the file extension unless WithImporter is
// given. On failure no Model is returned.
func Load(path string, opts ...Option) (*Model, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty model path", ErrInvalidArgument)
	}
	o := newOptions(opts)

	imp := o.importer
	if imp == nil {
		var err error
		if imp, err = ImporterFor(path); err != nil {
			return nil, err
		}
	}

	sc, err := imp.Import(path, o.fsys)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrImportFailed, path, err)
	}
	if err := checkScene(sc); err != nil {
		return nil, fmt.Errorf("%w: %s", err, path)
	}

	m, err := assemble(sc, scene.Dir(path), o)
	if err != nil {
		return nil, err
	}
	o.log.Info("model loaded",
		zap.String("path", path),
		zap.Int("meshes", m.MeshCount()),
		zap.Int("textures", m.TextureCount()))
	return m, nil
}

// Assemble builds a Model from an already imported scene. directory is used
// as the file path of image textures.
func Assemble(sc *scene.Scene, directory string, opts ...Option) (*Model, error) {
	if err := checkScene(sc); err != nil {
		return nil, err
	}
	return assemble(sc, directory, newOptions(opts))
}

func checkScene(sc *scene.Scene) error {
	switch {
	case sc == nil:
		return fmt.Errorf("%w: importer returned no scene", ErrImportFailed)
	case sc.Incomplete:
		return fmt.Errorf("%w: scene is incomplete", ErrImportFailed)
	case sc.Root == nil:
		return fmt.Errorf("%w: scene has no root node", ErrImportFailed)
	}
	return nil
}

func assemble(sc *scene.Scene, directory string, o *options) (*Model, error) {
	m := newModel(directory)
	if err := processNode(m, sc.Root, sc, o.log); err != nil {
		m.Release()
		return nil, err
	}
	return m, nil
}

// Directory returns the base directory texture paths were resolved against.
func (m *Model) Directory() string { return m.directory }

// MeshCount returns the number of meshes.
func (m *Model) MeshCount() int { return m.meshes.Len() }

// Mesh returns mesh i.
func (m *Model) Mesh(i int) *Mesh { return m.meshes.Get(i) }

// Meshes returns the meshes in traversal order.
func (m *Model) Meshes() []*Mesh { return m.meshes.Clone() }

// TextureCount returns the size of the texture pool.
func (m *Model) TextureCount() int { return m.textures.Len() }

// Textures returns a copy of the texture pool.
func (m *Model) Textures() []Texture { return m.textures.Clone() }

// Stats returns aggregate counts over all meshes.
func (m *Model) Stats() Stats {
	s := Stats{
		Meshes:   m.meshes.Len(),
		Textures: m.textures.Len(),
	}
	for i := 0; i < m.meshes.Len(); i++ {
		mesh := m.meshes.Get(i)
		s.Vertices += mesh.VertexCount()
		s.Indices += mesh.IndexCount()
		s.Triangles += mesh.TriangleCount()
	}
	return s
}

// Release drops all meshes and the texture pool. The model is empty
// afterwards.
func (m *Model) Release() {
	m.meshes.Free()
	m.textures.Free()
}

// addMesh appends a finished mesh.
func (m *Model) addMesh(mesh *Mesh) {
	m.meshes.PushBack(mesh)
}

// addTexture appends a copy of t to the pool.
func (m *Model) addTexture(t Texture) {
	m.textures.PushBack(t)
}
