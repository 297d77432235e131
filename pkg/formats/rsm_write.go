package formats

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Faultbox/midgard-assets/pkg/encoding"
)

// rsmWriter mirrors rsmReader for encoding.
type rsmWriter struct {
	w   io.Writer
	err error
}

func (e *rsmWriter) write(v any) {
	if e.err != nil {
		return
	}
	e.err = binary.Write(e.w, binary.LittleEndian, v)
}

func (e *rsmWriter) name(s string) {
	e.write(encoding.UTF8ToFixedString(s, rsmNameLen))
}

func (e *rsmWriter) count(n int) {
	e.write(int32(n))
}

// WriteRSM encodes rsm in the layout ReadRSM understands for its version.
func WriteRSM(w io.Writer, rsm *RSM) error {
	v := rsm.Version
	if v.Major < 1 || v.Major > 2 {
		return fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, v)
	}

	e := &rsmWriter{w: w}
	e.write([]byte("GRSM"))
	e.write(v.Major)
	e.write(v.Minor)
	e.write(rsm.AnimLength)
	e.write(rsm.Shading)
	if v.AtLeast(1, 4) {
		e.write(uint8(rsm.Alpha*255 + 0.5))
	}
	e.write(make([]byte, 16))

	e.count(len(rsm.Textures))
	for _, tex := range rsm.Textures {
		e.name(tex)
	}
	e.name(rsm.RootNode)

	e.count(len(rsm.Nodes))
	for i := range rsm.Nodes {
		writeRSMNode(e, v, &rsm.Nodes[i])
	}

	e.count(len(rsm.VolumeBoxes))
	for _, box := range rsm.VolumeBoxes {
		e.write(box.Size)
		e.write(box.Position)
		e.write(box.Rotation)
		if v.AtLeast(1, 3) {
			e.write(box.Flag)
		}
	}
	return e.err
}

func writeRSMNode(e *rsmWriter, v RSMVersion, node *RSMNode) {
	e.name(node.Name)
	e.name(node.Parent)

	e.count(len(node.TextureIDs))
	e.write(node.TextureIDs)

	e.write(node.Matrix)
	e.write(node.Offset)
	e.write(node.Position)
	e.write(node.RotAngle)
	e.write(node.RotAxis)
	e.write(node.Scale)

	e.count(len(node.Vertices))
	e.write(node.Vertices)

	e.count(len(node.TexCoords))
	for _, tc := range node.TexCoords {
		if v.AtLeast(1, 2) {
			e.write(tc.Color)
		}
		e.write(tc.U)
		e.write(tc.V)
	}

	e.count(len(node.Faces))
	for _, f := range node.Faces {
		e.write(f.VertexIDs)
		e.write(f.TexCoordIDs)
		e.write(f.TextureID)
		e.write(f.Padding)
		e.write(f.TwoSide)
		if v.AtLeast(1, 2) {
			e.write(f.SmoothGroup)
		}
	}

	if !v.AtLeast(1, 5) {
		e.count(len(node.PosKeys))
		e.write(node.PosKeys)
	}
	e.count(len(node.RotKeys))
	e.write(node.RotKeys)
	if v.AtLeast(1, 5) {
		e.count(len(node.ScaleKeys))
		e.write(node.ScaleKeys)
	}
}
