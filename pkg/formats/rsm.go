package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Faultbox/midgard-assets/pkg/encoding"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
	ErrInvalidRSMCount       = errors.New("invalid RSM element count")
)

// Sanity limits for counts read from the file.
const (
	maxRSMTextures  = 1000
	maxRSMNodes     = 10000
	maxRSMElements  = 100000
	maxRSMKeyframes = 10000
	maxRSMBoxes     = 1000

	rsmNameLen = 40
)

// RSMVersion represents the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// RSMShadingType represents the shading mode for rendering.
type RSMShadingType int32

const (
	RSMShadingNone   RSMShadingType = 0
	RSMShadingFlat   RSMShadingType = 1
	RSMShadingSmooth RSMShadingType = 2
)

// String returns a human-readable shading type name.
func (s RSMShadingType) String() string {
	switch s {
	case RSMShadingNone:
		return "None"
	case RSMShadingFlat:
		return "Flat"
	case RSMShadingSmooth:
		return "Smooth"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// RSMTexCoord is a texture coordinate with a vertex colour (v1.2+).
type RSMTexCoord struct {
	Color [4]uint8
	U, V  float32
}

// RSMFace is a triangle. TextureID indexes the owning node's TextureIDs.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16
	Padding     uint16
	TwoSide     int32
	SmoothGroup int32 // v1.2+
}

// RSMPosKeyframe is a position keyframe (v < 1.5).
type RSMPosKeyframe struct {
	Frame    int32
	Position [3]float32
}

// RSMRotKeyframe is a rotation keyframe, quaternion in X, Y, Z, W order.
type RSMRotKeyframe struct {
	Frame      int32
	Quaternion [4]float32
}

// RSMScaleKeyframe is a scale keyframe (v1.5+).
type RSMScaleKeyframe struct {
	Frame int32
	Scale [3]float32
}

// RSMNode is one node of the model hierarchy.
type RSMNode struct {
	Name       string
	Parent     string
	TextureIDs []int32 // indices into RSM.Textures

	Matrix   [9]float32 // 3x3, column-major
	Offset   [3]float32 // pivot, not inherited by children
	Position [3]float32
	RotAngle float32 // radians
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords []RSMTexCoord
	Faces     []RSMFace

	PosKeys   []RSMPosKeyframe
	RotKeys   []RSMRotKeyframe
	ScaleKeys []RSMScaleKeyframe
}

// RSMVolumeBox represents a bounding volume box.
type RSMVolumeBox struct {
	Size     [3]float32
	Position [3]float32
	Rotation [3]float32
	Flag     int32 // v1.3+
}

// RSM represents a parsed RSM (Resource Model) file.
type RSM struct {
	Version     RSMVersion
	AnimLength  int32 // milliseconds
	Shading     RSMShadingType
	Alpha       float32 // 0-1
	Textures    []string
	RootNode    string
	Nodes       []RSMNode
	VolumeBoxes []RSMVolumeBox
}

// rsmReader wraps a reader with a sticky error so a sequence of reads can be
// checked once.
type rsmReader struct {
	r   io.Reader
	err error
}

func (d *rsmReader) read(v any) {
	if d.err != nil {
		return
	}
	if err := binary.Read(d.r, binary.LittleEndian, v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrTruncatedRSMData
		}
		d.err = err
	}
}

func (d *rsmReader) skip(n int64) {
	if d.err != nil {
		return
	}
	if _, err := io.CopyN(io.Discard, d.r, n); err != nil {
		d.err = ErrTruncatedRSMData
	}
}

// name reads a fixed-length, NUL-terminated EUC-KR string.
func (d *rsmReader) name() string {
	var buf [rsmNameLen]byte
	d.read(&buf)
	if d.err != nil {
		return ""
	}
	return encoding.FixedStringToUTF8(buf[:])
}

// count reads an int32 element count and checks it against limit.
func (d *rsmReader) count(what string, limit int32) int {
	var n int32
	d.read(&n)
	if d.err == nil && (n < 0 || n > limit) {
		d.err = fmt.Errorf("%w: %d %s", ErrInvalidRSMCount, n, what)
	}
	if d.err != nil {
		return 0
	}
	return int(n)
}

// ParseRSM parses RSM data from a byte slice.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 14 {
		return nil, ErrTruncatedRSMData
	}
	return ReadRSM(bytes.NewReader(data))
}

// ReadRSM parses an RSM model from r.
func ReadRSM(r io.Reader) (*RSM, error) {
	d := &rsmReader{r: r}

	var magic [4]byte
	d.read(&magic)
	if d.err != nil {
		return nil, d.err
	}
	if string(magic[:]) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	rsm := &RSM{Alpha: 1.0}
	d.read(&rsm.Version.Major)
	d.read(&rsm.Version.Minor)
	if d.err != nil {
		return nil, d.err
	}
	if rsm.Version.Major < 1 || rsm.Version.Major > 2 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	d.read(&rsm.AnimLength)
	d.read(&rsm.Shading)
	if rsm.Version.AtLeast(1, 4) {
		var alpha uint8
		d.read(&alpha)
		rsm.Alpha = float32(alpha) / 255.0
	}
	d.skip(16) // reserved

	rsm.Textures = make([]string, d.count("textures", maxRSMTextures))
	for i := range rsm.Textures {
		rsm.Textures[i] = d.name()
	}
	rsm.RootNode = d.name()
	if d.err != nil {
		return nil, d.err
	}

	var nodeCount int32
	d.read(&nodeCount)
	if d.err != nil {
		return nil, d.err
	}
	if nodeCount < 0 || nodeCount > maxRSMNodes {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNodeCount, nodeCount)
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		readRSMNode(d, rsm.Version, &rsm.Nodes[i])
		if d.err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, d.err)
		}
	}

	readVolumeBoxes(d, rsm)
	if d.err != nil {
		return nil, fmt.Errorf("parsing volume boxes: %w", d.err)
	}
	return rsm, nil
}

func readRSMNode(d *rsmReader, version RSMVersion, node *RSMNode) {
	node.Name = d.name()
	node.Parent = d.name()

	if n := d.count("node textures", maxRSMTextures); n > 0 {
		node.TextureIDs = make([]int32, n)
		d.read(node.TextureIDs)
	}

	d.read(&node.Matrix)
	d.read(&node.Offset)
	d.read(&node.Position)
	d.read(&node.RotAngle)
	d.read(&node.RotAxis)
	d.read(&node.Scale)

	if n := d.count("vertices", maxRSMElements); n > 0 {
		node.Vertices = make([][3]float32, n)
		d.read(node.Vertices)
	}

	if n := d.count("texcoords", maxRSMElements); n > 0 {
		node.TexCoords = make([]RSMTexCoord, n)
		for i := range node.TexCoords {
			tc := &node.TexCoords[i]
			if version.AtLeast(1, 2) {
				d.read(&tc.Color)
			} else {
				tc.Color = [4]uint8{255, 255, 255, 255}
			}
			d.read(&tc.U)
			d.read(&tc.V)
		}
	}

	if n := d.count("faces", maxRSMElements); n > 0 {
		node.Faces = make([]RSMFace, n)
		for i := range node.Faces {
			f := &node.Faces[i]
			d.read(&f.VertexIDs)
			d.read(&f.TexCoordIDs)
			d.read(&f.TextureID)
			d.read(&f.Padding)
			d.read(&f.TwoSide)
			if version.AtLeast(1, 2) {
				d.read(&f.SmoothGroup)
			}
		}
	}

	if !version.AtLeast(1, 5) {
		if n := d.count("position keys", maxRSMKeyframes); n > 0 {
			node.PosKeys = make([]RSMPosKeyframe, n)
			d.read(node.PosKeys)
		}
	}

	if n := d.count("rotation keys", maxRSMKeyframes); n > 0 {
		node.RotKeys = make([]RSMRotKeyframe, n)
		d.read(node.RotKeys)
	}

	if version.AtLeast(1, 5) {
		if n := d.count("scale keys", maxRSMKeyframes); n > 0 {
			node.ScaleKeys = make([]RSMScaleKeyframe, n)
			d.read(node.ScaleKeys)
		}
	}
}

// readVolumeBoxes reads the optional trailing box list. A file that ends
// right after the nodes has none.
func readVolumeBoxes(d *rsmReader, rsm *RSM) {
	var n int32
	if err := binary.Read(d.r, binary.LittleEndian, &n); err != nil {
		if !errors.Is(err, io.EOF) {
			d.err = ErrTruncatedRSMData
		}
		return
	}
	if n <= 0 || n >= maxRSMBoxes {
		return
	}

	rsm.VolumeBoxes = make([]RSMVolumeBox, n)
	for i := range rsm.VolumeBoxes {
		box := &rsm.VolumeBoxes[i]
		d.read(&box.Size)
		d.read(&box.Position)
		d.read(&box.Rotation)
		if rsm.Version.AtLeast(1, 3) {
			d.read(&box.Flag)
		}
	}
}

// GetTotalVertexCount returns the total number of vertices across all nodes.
func (rsm *RSM) GetTotalVertexCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Vertices)
	}
	return total
}

// GetTotalFaceCount returns the total number of faces across all nodes.
func (rsm *RSM) GetTotalFaceCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Faces)
	}
	return total
}

// NodeIndex returns the index of the first node called name, or -1.
func (rsm *RSM) NodeIndex(name string) int {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return i
		}
	}
	return -1
}

// GetNodeByName returns a node by its name, or nil if not found.
func (rsm *RSM) GetNodeByName(name string) *RSMNode {
	if i := rsm.NodeIndex(name); i >= 0 {
		return &rsm.Nodes[i]
	}
	return nil
}

// RootNodeIndex returns the index of the root node. When RootNode names no
// node, the first node without a resolvable parent is used. It returns -1
// for a model without nodes.
func (rsm *RSM) RootNodeIndex() int {
	if i := rsm.NodeIndex(rsm.RootNode); i >= 0 {
		return i
	}
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		if n.Parent == "" || n.Parent == n.Name || rsm.NodeIndex(n.Parent) < 0 {
			return i
		}
	}
	if len(rsm.Nodes) > 0 {
		return 0
	}
	return -1
}

// ChildIndices returns the indices of the nodes whose parent is node i, in
// file order. Self-parented nodes are not their own children.
func (rsm *RSM) ChildIndices(i int) []int {
	if i < 0 || i >= len(rsm.Nodes) {
		return nil
	}
	name := rsm.Nodes[i].Name
	var children []int
	for j := range rsm.Nodes {
		if j != i && rsm.Nodes[j].Parent == name {
			children = append(children, j)
		}
	}
	return children
}

// HasAnimation returns true if the model has any animation keyframes.
func (rsm *RSM) HasAnimation() bool {
	for _, node := range rsm.Nodes {
		if len(node.PosKeys) > 0 || len(node.RotKeys) > 0 || len(node.ScaleKeys) > 0 {
			return true
		}
	}
	return false
}
