package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// SaveGame is one save slot on disk. The game writes slots as files named
// FFXII_NNN with a three-digit slot number and no extension.
type SaveGame struct {
	Slot     int
	Path     string
	Size     int64
	Modified time.Time
}

// Name returns the display name for the slot.
func (s SaveGame) Name() string {
	return fmt.Sprintf("Slot %d", s.Slot)
}

// Metadata returns the key/value details shown for a save.
func (s SaveGame) Metadata() map[string]string {
	return map[string]string{
		"Slot":       strconv.Itoa(s.Slot),
		"Size":       humanize.Bytes(uint64(s.Size)),
		"Last Saved": s.Modified.Format("2006-01-02 15:04"),
	}
}

// ListSaves scans dir for save slots, ordered by slot number. A missing
// directory yields an empty list, not an error: the game simply has not
// written a save yet.
func ListSaves(dir string) ([]SaveGame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var saves []SaveGame
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		slot, ok := parseSaveSlot(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		saves = append(saves, SaveGame{
			Slot:     slot,
			Path:     filepath.Join(dir, e.Name()),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	sort.Slice(saves, func(i, j int) bool { return saves[i].Slot < saves[j].Slot })
	return saves, nil
}

// parseSaveSlot extracts the slot number from names like FFXII_007.
func parseSaveSlot(name string) (int, bool) {
	if len(name) != 9 || name[:6] != "FFXII_" {
		return 0, false
	}
	for _, ch := range name[6:] {
		if ch < '0' || ch > '9' {
			return 0, false
		}
	}
	slot, err := strconv.Atoi(name[6:])
	if err != nil {
		return 0, false
	}
	return slot, true
}
