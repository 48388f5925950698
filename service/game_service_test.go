package service

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestMoveMergeRename(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "scripts", "a.lua"))

	if err := moveMerge(filepath.Join(dir, "scripts"), filepath.Join(dir, "x64", "scripts")); err != nil {
		t.Fatalf("moveMerge: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "x64", "scripts", "a.lua")); err != nil {
		t.Fatalf("moved file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "scripts")); !os.IsNotExist(err) {
		t.Fatalf("source still present: %v", err)
	}
}

func TestMoveMergeIntoExistingDir(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "scripts", "new.lua"))
	writeTestFile(t, filepath.Join(dir, "scripts", "shared.lua"))
	writeTestFile(t, filepath.Join(dir, "x64", "scripts", "old.lua"))

	if err := moveMerge(filepath.Join(dir, "scripts"), filepath.Join(dir, "x64", "scripts")); err != nil {
		t.Fatalf("moveMerge: %v", err)
	}

	for _, name := range []string{"new.lua", "shared.lua", "old.lua"} {
		if _, err := os.Stat(filepath.Join(dir, "x64", "scripts", name)); err != nil {
			t.Fatalf("expected %s after merge: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "scripts")); !os.IsNotExist(err) {
		t.Fatalf("source still present after merge: %v", err)
	}
}

func TestMoveMergeFileReplacesFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "dxgi.dll")
	dst := filepath.Join(dir, "x64", "dxgi.dll")
	writeTestFile(t, src)
	writeTestFile(t, dst)
	if err := os.WriteFile(src, []byte("newer"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := moveMerge(src, dst); err != nil {
		t.Fatalf("moveMerge: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "newer" {
		t.Fatalf("destination not replaced: %q", data)
	}
}
