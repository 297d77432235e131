package asset

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-assets/pkg/growbuf"
)

// ColorEpsilon is the per-channel tolerance used when matching colours.
const ColorEpsilon = 0.001

// TextureType is the semantic of a texture.
type TextureType int

const (
	TextureUnknown  TextureType = 0
	TextureDiffuse  TextureType = 0x1001
	TextureSpecular TextureType = 0x1002
	TextureNormal   TextureType = 0x1003
	TextureHeight   TextureType = 0x1004
)

// String returns the sampler-style name of the type.
func (t TextureType) String() string {
	switch t {
	case TextureUnknown:
		return "unknown"
	case TextureDiffuse:
		return "texture_diffuse"
	case TextureSpecular:
		return "texture_specular"
	case TextureNormal:
		return "texture_normal"
	case TextureHeight:
		return "texture_height"
	default:
		return fmt.Sprintf("TextureType(%#x)", int(t))
	}
}

// Texture is either an image reference (FileName set) or a flat colour
// fallback (FileName empty, RGBA meaningful). FilePath is the directory the
// file name is relative to and is only meaningful when FileName is set; it
// may legitimately be empty.
type Texture struct {
	Type     TextureType
	FileName string
	FilePath string
	RGBA     [4]float32
}

// NewFileTexture returns an image texture. RGBA is left zeroed.
func NewFileTexture(typ TextureType, name, path string) Texture {
	return Texture{Type: typ, FileName: name, FilePath: path}
}

// NewColorTexture returns a flat colour texture.
func NewColorTexture(rgba [4]float32, typ TextureType) Texture {
	return Texture{Type: typ, RGBA: rgba}
}

// IsColor reports whether t is a colour fallback.
func (t *Texture) IsColor() bool {
	return t.FileName == ""
}

// SameFile reports whether t references exactly the given file. Colour
// textures never match.
func (t *Texture) SameFile(name, path string) bool {
	if t.IsColor() {
		return false
	}
	return t.FileName == name && t.FilePath == path
}

// SameColor reports whether every channel of t is within ColorEpsilon of rgba.
func (t *Texture) SameColor(rgba [4]float32) bool {
	for i := range rgba {
		if math32.Abs(t.RGBA[i]-rgba[i]) >= ColorEpsilon {
			return false
		}
	}
	return true
}

// Release drops the owned file strings.
func (t *Texture) Release() {
	t.FileName = ""
	t.FilePath = ""
}

// String implements fmt.Stringer.
func (t Texture) String() string {
	if t.IsColor() {
		return fmt.Sprintf("%s rgba(%.3f, %.3f, %.3f, %.3f)", t.Type, t.RGBA[0], t.RGBA[1], t.RGBA[2], t.RGBA[3])
	}
	return fmt.Sprintf("%s %s%s", t.Type, t.FilePath, t.FileName)
}

// FindByFile returns the first texture in pool referencing (name, path).
// The pointer is only valid until pool is next mutated.
func FindByFile(pool *growbuf.Buffer[Texture], name, path string) *Texture {
	if pool == nil || name == "" {
		return nil
	}
	for i := 0; i < pool.Len(); i++ {
		if t := pool.At(i); t.SameFile(name, path) {
			return t
		}
	}
	return nil
}

// FindByColor returns the first colour texture in pool matching rgba within
// ColorEpsilon. The pointer is only valid until pool is next mutated.
func FindByColor(pool *growbuf.Buffer[Texture], rgba [4]float32) *Texture {
	if pool == nil {
		return nil
	}
	for i := 0; i < pool.Len(); i++ {
		if t := pool.At(i); t.IsColor() && t.SameColor(rgba) {
			return t
		}
	}
	return nil
}
