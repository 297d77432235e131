// Package grf provides reading functionality for Ragnarok Online GRF archives.
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"

	"github.com/Faultbox/midgard-assets/pkg/encoding"
	"github.com/Faultbox/midgard-assets/pkg/scene"
)

const (
	grfMagic   = "Master of Magic"
	headerSize = 46
	version200 = 0x200

	entryFlagFile    = 0x01
	entryFlagEncrypt = 0x02

	// maxInflateRatio bounds the output of a zlib stream; deflate cannot
	// expand data by more than about 1032:1.
	maxInflateRatio = 1032
)

var (
	ErrInvalidMagic = errors.New("grf: invalid magic")
	ErrUnsupported  = errors.New("grf: unsupported archive")
	ErrCorrupt      = errors.New("grf: corrupt archive")

	// ErrFileNotFound matches scene.ErrNotFound with errors.Is.
	ErrFileNotFound = fmt.Errorf("grf: %w", scene.ErrNotFound)
)

// Archive represents an opened GRF archive. Reads are safe for concurrent
// use.
type Archive struct {
	file     *os.File
	size     int64
	header   Header
	fileList map[string]*Entry
}

// Header contains GRF file header information.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry represents a file entry in the archive.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Open opens a GRF archive for reading.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	archive := &Archive{
		file:     file,
		size:     info.Size(),
		fileList: make(map[string]*Entry),
	}

	if err := archive.readHeader(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading header: %w", err)
	}

	if err := archive.readFileTable(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading file table: %w", err)
	}

	return archive, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

func (a *Archive) readHeader() error {
	r := io.NewSectionReader(a.file, 0, headerSize)
	if err := binary.Read(r, binary.LittleEndian, &a.header); err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if string(a.header.Magic[:]) != grfMagic {
		return ErrInvalidMagic
	}
	if a.header.Version != version200 {
		return fmt.Errorf("%w: version 0x%x", ErrUnsupported, a.header.Version)
	}
	return nil
}

func (a *Archive) readFileTable() error {
	tableOffset := int64(a.header.TableOffset) + headerSize

	var sizes [2]uint32 // compressed, uncompressed
	if err := binary.Read(io.NewSectionReader(a.file, tableOffset, 8), binary.LittleEndian, &sizes); err != nil {
		return fmt.Errorf("%w: table sizes: %w", ErrCorrupt, err)
	}

	if !a.fits(tableOffset+8, int64(sizes[0])) {
		return fmt.Errorf("%w: table size %d exceeds archive", ErrCorrupt, sizes[0])
	}
	compressed := make([]byte, sizes[0])
	if _, err := a.file.ReadAt(compressed, tableOffset+8); err != nil {
		return fmt.Errorf("%w: table data: %w", ErrCorrupt, err)
	}
	tableData, err := inflate(compressed, sizes[1])
	if err != nil {
		return fmt.Errorf("%w: table: %w", ErrCorrupt, err)
	}

	if a.header.FileCount < a.header.Seed+7 {
		return fmt.Errorf("%w: file count %d", ErrCorrupt, a.header.FileCount)
	}
	fileCount := a.header.FileCount - a.header.Seed - 7
	offset := 0

	for i := uint32(0); i < fileCount; i++ {
		nameEnd := bytes.IndexByte(tableData[offset:], 0)
		if nameEnd < 0 {
			break
		}
		name := encoding.EUCKRToUTF8(tableData[offset : offset+nameEnd])
		offset += nameEnd + 1

		if offset+17 > len(tableData) {
			break
		}

		entry := &Entry{
			Name:             encoding.NormalizePath(name),
			CompressedSize:   binary.LittleEndian.Uint32(tableData[offset:]),
			AlignedSize:      binary.LittleEndian.Uint32(tableData[offset+4:]),
			UncompressedSize: binary.LittleEndian.Uint32(tableData[offset+8:]),
			Flags:            tableData[offset+12],
			Offset:           binary.LittleEndian.Uint32(tableData[offset+13:]),
		}
		offset += 17

		if entry.Flags&entryFlagFile != 0 {
			a.fileList[entry.Name] = entry
		}
	}

	return nil
}

// List returns all file paths in the archive, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.fileList))
	for p := range a.fileList {
		result = append(result, p)
	}
	sort.Strings(result)
	return result
}

// Glob returns the sorted paths matching a path.Match pattern.
func (a *Archive) Glob(pattern string) ([]string, error) {
	pattern = encoding.NormalizePath(pattern)
	var result []string
	for _, p := range a.List() {
		ok, err := path.Match(pattern, p)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, p)
		}
	}
	return result, nil
}

// Contains checks if a file exists.
func (a *Archive) Contains(path string) bool {
	_, ok := a.fileList[encoding.NormalizePath(path)]
	return ok
}

// Stat returns the table entry for path.
func (a *Archive) Stat(path string) (Entry, bool) {
	e, ok := a.fileList[encoding.NormalizePath(path)]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Read reads a file from the archive.
func (a *Archive) Read(path string) ([]byte, error) {
	entry, ok := a.fileList[encoding.NormalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if entry.Flags&entryFlagEncrypt != 0 {
		return nil, fmt.Errorf("%w: %s is encrypted", ErrUnsupported, path)
	}
	if entry.CompressedSize > entry.AlignedSize {
		return nil, fmt.Errorf("%w: %s sizes", ErrCorrupt, path)
	}

	if !a.fits(int64(entry.Offset)+headerSize, int64(entry.AlignedSize)) {
		return nil, fmt.Errorf("%w: %s extends past end of archive", ErrCorrupt, path)
	}
	data := make([]byte, entry.AlignedSize)
	if _, err := a.file.ReadAt(data, int64(entry.Offset)+headerSize); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}

	if entry.CompressedSize == entry.UncompressedSize {
		return data[:entry.UncompressedSize], nil
	}

	result, err := inflate(data[:entry.CompressedSize], entry.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}
	return result, nil
}

// fits reports whether n bytes at off lie inside the archive file.
func (a *Archive) fits(off, n int64) bool {
	return off >= 0 && n >= 0 && off <= a.size && n <= a.size-off
}

// inflate decompresses a zlib stream of known size.
func inflate(compressed []byte, size uint32) ([]byte, error) {
	if uint64(size) > uint64(len(compressed))*maxInflateRatio {
		return nil, fmt.Errorf("inflated size %d too large for %d compressed bytes", size, len(compressed))
	}
	reader, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	result := make([]byte, size)
	if _, err := io.ReadFull(reader, result); err != nil {
		return nil, err
	}
	return result, nil
}

// FS exposes the archive as a model file system. Names are resolved the same
// way as Read.
func (a *Archive) FS() scene.FileSystem {
	return archiveFS{a}
}

type archiveFS struct {
	a *Archive
}

func (f archiveFS) Open(name string) (io.ReadCloser, error) {
	data, err := f.a.Read(name)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
