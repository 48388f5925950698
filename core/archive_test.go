package core

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// testArchiveFile is one file to be packed by buildTestArchive.
type testArchiveFile struct {
	path    string
	content []byte
	// raw stores every block uncompressed (full blocks as size 0, the
	// remainder block with its literal size).
	raw bool
}

// buildTestArchive writes a minimal valid VBF container to dir and returns
// its path.
func buildTestArchive(t *testing.T, dir string, files []testArchiveFile) string {
	t.Helper()

	type meta struct {
		blockStart uint32
		size       uint64
		pathOff    uint64
	}

	var (
		pathBlob   bytes.Buffer
		blockSizes []uint16
		blobs      bytes.Buffer
		metas      []meta
	)

	for _, f := range files {
		m := meta{
			blockStart: uint32(len(blockSizes)),
			size:       uint64(len(f.content)),
			pathOff:    uint64(pathBlob.Len()),
		}
		pathBlob.WriteString(f.path)
		pathBlob.WriteByte(0)

		for pos := 0; pos < len(f.content); pos += vbfMaxBlockSize {
			end := pos + vbfMaxBlockSize
			if end > len(f.content) {
				end = len(f.content)
			}
			chunk := f.content[pos:end]

			if f.raw {
				if len(chunk) == vbfMaxBlockSize {
					blockSizes = append(blockSizes, 0)
				} else {
					blockSizes = append(blockSizes, uint16(len(chunk)))
				}
				blobs.Write(chunk)
				continue
			}

			var z bytes.Buffer
			zw := zlib.NewWriter(&z)
			if _, err := zw.Write(chunk); err != nil {
				t.Fatalf("zlib write: %v", err)
			}
			if err := zw.Close(); err != nil {
				t.Fatalf("zlib close: %v", err)
			}
			blockSizes = append(blockSizes, uint16(z.Len()))
			blobs.Write(z.Bytes())
		}
		metas = append(metas, m)
	}

	n := len(files)
	dataStart := 16 + 16*n + 32*n + 4 + pathBlob.Len() + 2*len(blockSizes)

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(vbfMagic))
	binary.Write(&out, binary.LittleEndian, uint32(dataStart))
	binary.Write(&out, binary.LittleEndian, uint64(n))
	out.Write(make([]byte, 16*n)) // md5 table, unused by the reader

	// Walk the per-file block runs again to assign absolute data offsets.
	offset := uint64(dataStart)
	blockIdx := 0
	for i, f := range files {
		binary.Write(&out, binary.LittleEndian, metas[i].blockStart)
		binary.Write(&out, binary.LittleEndian, uint32(0))
		binary.Write(&out, binary.LittleEndian, metas[i].size)
		binary.Write(&out, binary.LittleEndian, offset)
		binary.Write(&out, binary.LittleEndian, metas[i].pathOff)

		for pos := 0; pos < len(f.content); pos += vbfMaxBlockSize {
			bs := uint64(blockSizes[blockIdx])
			if bs == 0 {
				bs = vbfMaxBlockSize
			}
			offset += bs
			blockIdx++
		}
	}

	binary.Write(&out, binary.LittleEndian, uint32(pathBlob.Len()+4))
	out.Write(pathBlob.Bytes())
	binary.Write(&out, binary.LittleEndian, blockSizes)
	out.Write(blobs.Bytes())

	path := filepath.Join(dir, "test.vbf")
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return path
}

func repeatBytes(pattern string, size int) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	return out
}

func TestArchiveReader_CompressedEntry(t *testing.T) {
	content := repeatBytes("final fantasy xii ", 1000)
	path := buildTestArchive(t, t.TempDir(), []testArchiveFile{
		{path: "data/hello.bin", content: content},
	})

	r, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer r.Close()

	entries := r.Entries()
	if len(entries) != 1 || entries[0].Path != "data/hello.bin" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].OriginalSize != int64(len(content)) {
		t.Fatalf("size = %d, want %d", entries[0].OriginalSize, len(content))
	}

	got, err := r.Unpack("data/hello.bin")
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("unpacked content differs")
	}
}

func TestArchiveReader_RawAndMultiBlock(t *testing.T) {
	small := repeatBytes("raw", 100)
	big := repeatBytes("x", vbfMaxBlockSize+10)
	path := buildTestArchive(t, t.TempDir(), []testArchiveFile{
		{path: "raw.bin", content: small, raw: true},
		{path: "BIG/file.dat", content: big, raw: true},
	})

	r, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer r.Close()

	got, err := r.Unpack("raw.bin")
	if err != nil {
		t.Fatalf("Unpack raw: %v", err)
	}
	if !bytes.Equal(got, small) {
		t.Fatalf("raw content differs")
	}

	// Paths are stored and matched lowercase.
	got, err = r.Unpack("big/file.dat")
	if err != nil {
		t.Fatalf("Unpack multi-block: %v", err)
	}
	if !bytes.Equal(got, big) {
		t.Fatalf("multi-block content differs")
	}
}

func TestArchiveReader_MissingEntry(t *testing.T) {
	path := buildTestArchive(t, t.TempDir(), []testArchiveFile{
		{path: "a.bin", content: []byte("abc"), raw: true},
	})

	r, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer r.Close()

	if _, err := r.Unpack("nope.bin"); err == nil {
		t.Fatalf("expected error for missing entry")
	}
}

func TestOpenArchive_BadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.vbf")
	if err := os.WriteFile(path, make([]byte, 64), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := OpenArchive(path); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}

func TestFindArchives(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.vbf", "a.VBF", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	got, err := FindArchives(dir)
	if err != nil {
		t.Fatalf("FindArchives: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 archives, got %v", got)
	}

	if got, err := FindArchives(filepath.Join(dir, "missing")); err != nil || len(got) != 0 {
		t.Fatalf("missing dir: got %v, %v", got, err)
	}
}
