package core

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// VBF container constants. A .vbf archive stores each file as a run of
// 64 KiB blocks; a block is zlib-compressed unless compression did not pay
// off, in which case it is stored raw.
const (
	vbfMagic        = 0x4B595253
	vbfMaxBlockSize = 64 * 1024
)

// ErrBadArchive is returned when a file is not a valid VBF container.
var ErrBadArchive = errors.New("invalid vbf archive")

// ArchiveEntry describes one file inside a VBF archive.
type ArchiveEntry struct {
	Path         string
	OriginalSize int64

	dataOffset int64
	blockSizes []uint16
}

// ArchiveReader reads entries out of a VBF archive. It keeps the file handle
// open between Unpack calls; Close releases it.
type ArchiveReader struct {
	path    string
	f       *os.File
	entries map[string]*ArchiveEntry
}

// OpenArchive parses the archive metadata and returns a ready reader.
func OpenArchive(path string) (*ArchiveReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := &ArchiveReader{path: path, f: f, entries: make(map[string]*ArchiveEntry)}
	if err := r.loadMetadata(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return r, nil
}

// Close releases the underlying file handle.
func (r *ArchiveReader) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// Entries returns the archive contents sorted by path.
func (r *ArchiveReader) Entries() []*ArchiveEntry {
	out := make([]*ArchiveEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Entry looks up a single entry by its archive path (always lowercase).
func (r *ArchiveReader) Entry(path string) (*ArchiveEntry, bool) {
	e, ok := r.entries[strings.ToLower(path)]
	return e, ok
}

func (r *ArchiveReader) loadMetadata() error {
	var header struct {
		Magic      uint32
		HeaderSize uint32
		FileCount  uint64
	}
	if err := binary.Read(r.f, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("%w: short header", ErrBadArchive)
	}
	if header.Magic != vbfMagic {
		return fmt.Errorf("%w: bad magic 0x%08X", ErrBadArchive, header.Magic)
	}

	// The name checksum table (one MD5 per file) is not needed for reading.
	if _, err := r.f.Seek(16*int64(header.FileCount), io.SeekCurrent); err != nil {
		return err
	}

	type fileMeta struct {
		BlockStartIndex uint32
		Reserved        uint32
		OriginalSize    uint64
		DataOffset      uint64
		PathOffset      uint64
	}
	metas := make([]fileMeta, header.FileCount)
	for i := range metas {
		if err := binary.Read(r.f, binary.LittleEndian, &metas[i]); err != nil {
			return fmt.Errorf("%w: short file metadata", ErrBadArchive)
		}
	}

	pathData, err := r.readPathBlob()
	if err != nil {
		return err
	}

	totalBlocks := 0
	for _, m := range metas {
		totalBlocks += blockCount(int64(m.OriginalSize))
	}
	blockSizes := make([]uint16, totalBlocks)
	if err := binary.Read(r.f, binary.LittleEndian, blockSizes); err != nil {
		return fmt.Errorf("%w: short block size table", ErrBadArchive)
	}

	for _, m := range metas {
		name, err := nullString(pathData, m.PathOffset)
		if err != nil {
			return err
		}

		blocks := blockCount(int64(m.OriginalSize))
		start := int(m.BlockStartIndex)
		if start+blocks > len(blockSizes) {
			return fmt.Errorf("%w: block index out of range for %q", ErrBadArchive, name)
		}

		r.entries[name] = &ArchiveEntry{
			Path:         name,
			OriginalSize: int64(m.OriginalSize),
			dataOffset:   int64(m.DataOffset),
			blockSizes:   blockSizes[start : start+blocks],
		}
	}

	return nil
}

// readPathBlob reads the length-prefixed table of NUL-terminated paths. The
// u32 prefix counts itself, so the payload is size-4 bytes.
func (r *ArchiveReader) readPathBlob() ([]byte, error) {
	var size uint32
	if err := binary.Read(r.f, binary.LittleEndian, &size); err != nil {
		return nil, fmt.Errorf("%w: short path table size", ErrBadArchive)
	}
	if size < 4 {
		return nil, fmt.Errorf("%w: path table size %d", ErrBadArchive, size)
	}
	data := make([]byte, size-4)
	if _, err := io.ReadFull(r.f, data); err != nil {
		return nil, fmt.Errorf("%w: short path table", ErrBadArchive)
	}
	return data, nil
}

// Unpack reads and decompresses one entry.
func (r *ArchiveReader) Unpack(path string) ([]byte, error) {
	if r.f == nil {
		return nil, errors.New("archive is closed")
	}
	entry, ok := r.Entry(path)
	if !ok {
		return nil, fmt.Errorf("entry %q not found in %s", path, filepath.Base(r.path))
	}

	if _, err := r.f.Seek(entry.dataOffset, io.SeekStart); err != nil {
		return nil, err
	}

	out := make([]byte, 0, entry.OriginalSize)
	remainder := entry.OriginalSize % vbfMaxBlockSize

	for i, bs := range entry.blockSizes {
		blockSize := int64(bs)
		if blockSize == 0 {
			blockSize = vbfMaxBlockSize
		}

		block := make([]byte, blockSize)
		if _, err := io.ReadFull(r.f, block); err != nil {
			return nil, fmt.Errorf("%w: short data block", ErrBadArchive)
		}

		// A full block, or a final block exactly matching the remainder,
		// is stored raw; anything else is zlib-compressed.
		last := i == len(entry.blockSizes)-1
		if blockSize == vbfMaxBlockSize || (last && blockSize == remainder) {
			out = append(out, block...)
			continue
		}

		zr, err := zlib.NewReader(bytes.NewReader(block))
		if err != nil {
			return nil, fmt.Errorf("entry %q block %d: %w", path, i, err)
		}
		plain, err := io.ReadAll(zr)
		_ = zr.Close()
		if err != nil {
			return nil, fmt.Errorf("entry %q block %d: %w", path, i, err)
		}
		out = append(out, plain...)
	}

	if int64(len(out)) != entry.OriginalSize {
		return nil, fmt.Errorf("%w: entry %q unpacked to %d bytes, expected %d",
			ErrBadArchive, path, len(out), entry.OriginalSize)
	}
	return out, nil
}

// FindArchives returns all .vbf archives directly inside folder.
func FindArchives(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".vbf") {
			out = append(out, filepath.Join(folder, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func blockCount(size int64) int {
	n := size / vbfMaxBlockSize
	if size%vbfMaxBlockSize != 0 {
		n++
	}
	return int(n)
}

func nullString(data []byte, offset uint64) (string, error) {
	if offset > uint64(len(data)) {
		return "", fmt.Errorf("%w: path offset out of range", ErrBadArchive)
	}
	rest := data[offset:]
	if i := bytes.IndexByte(rest, 0); i >= 0 {
		rest = rest[:i]
	}
	return strings.ToLower(string(rest)), nil
}
