package handlers

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func TestIsVersionNewer(t *testing.T) {
	if !isVersionNewer("v1.2.4", "v1.2.3") {
		t.Fatalf("expected newer version")
	}
	if isVersionNewer("v1.2.3", "v1.2.3") {
		t.Fatalf("expected not newer for equal versions")
	}
	if isVersionNewer("v1.2.3", "v1.2.4") {
		t.Fatalf("expected not newer for older versions")
	}
	if isVersionNewer("banana", "v1.0.0") {
		t.Fatalf("expected not newer for malformed latest")
	}
	if isVersionNewer("v2.0.0", "dev") {
		t.Fatalf("expected not newer for malformed current")
	}
}

func TestExtractZipBinary(t *testing.T) {
	tmpDir := t.TempDir()
	archivePath := filepath.Join(tmpDir, "zodiac-v0.3.0-windows-amd64.zip")

	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, content := range map[string]string{
		"README.md":  "readme",
		"zodiac.exe": "binary-bytes",
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	outPath, err := extractZipBinary(archivePath, tmpDir, "windows")
	if err != nil {
		t.Fatalf("extractZipBinary: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read extracted: %v", err)
	}
	if string(data) != "binary-bytes" {
		t.Fatalf("unexpected extracted content: %q", data)
	}
}

func TestVerifyUpdateCode(t *testing.T) {
	updateMgr.mu.Lock()
	updateMgr.code = ""
	updateMgr.mu.Unlock()

	if err := verifyUpdateCode("123456"); err == nil {
		t.Fatalf("expected error when no code generated")
	}

	code, err := generateSixDigitCode()
	if err != nil {
		t.Fatalf("generateSixDigitCode: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}
}
