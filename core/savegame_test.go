package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListSaves(t *testing.T) {
	dir := t.TempDir()
	for name, size := range map[string]int{
		"FFXII_000":     10,
		"FFXII_012":     2048,
		"FFXII_007":     512,
		"FFXII_0ab":     5, // non-numeric slot
		"FFXII_12":      5, // wrong width
		"GameSetting.ini": 1,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	saves, err := ListSaves(dir)
	if err != nil {
		t.Fatalf("ListSaves: %v", err)
	}
	if len(saves) != 3 {
		t.Fatalf("expected 3 saves, got %d", len(saves))
	}

	wantSlots := []int{0, 7, 12}
	for i, s := range saves {
		if s.Slot != wantSlots[i] {
			t.Fatalf("slot order = %v, want %v at %d", s.Slot, wantSlots[i], i)
		}
	}
	if saves[1].Size != 512 {
		t.Fatalf("slot 7 size = %d, want 512", saves[1].Size)
	}
	if saves[1].Name() != "Slot 7" {
		t.Fatalf("name = %q", saves[1].Name())
	}
	if md := saves[2].Metadata(); md["Slot"] != "12" || md["Size"] == "" {
		t.Fatalf("unexpected metadata: %v", md)
	}
}

func TestListSaves_MissingDir(t *testing.T) {
	saves, err := ListSaves(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if len(saves) != 0 {
		t.Fatalf("expected no saves, got %d", len(saves))
	}
}

func TestParseSaveSlot(t *testing.T) {
	tests := []struct {
		name string
		slot int
		ok   bool
	}{
		{"FFXII_000", 0, true},
		{"FFXII_123", 123, true},
		{"FFXII_01", 0, false},
		{"FFXII_abc", 0, false},
		{"FFXII_0000", 0, false},
		{"SAVE_000", 0, false},
	}
	for _, tt := range tests {
		slot, ok := parseSaveSlot(tt.name)
		if ok != tt.ok || slot != tt.slot {
			t.Fatalf("parseSaveSlot(%q) = %d, %v; want %d, %v", tt.name, slot, ok, tt.slot, tt.ok)
		}
	}
}
