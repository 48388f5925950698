package core

import (
	"os"
	"path/filepath"
)

// GameBinaryRelPath is the game executable relative to the install dir.
const GameBinaryRelPath = "x64/FFXII_TZA.exe"

// documentsRelPath is the game documents folder under the user documents dir.
const documentsRelPath = "My Games/FINAL FANTASY XII THE ZODIAC AGE"

// LoaderDLLs are the external file loader libraries expected next to the
// game binary. The loader itself is a separate tool; we only verify it is
// installed before launching.
var LoaderDLLs = []string{"dxgi.dll", "dinput8.dll", "launcher.dll"}

// IniFiles returns the configuration files the game keeps in its documents
// directory.
func IniFiles() []string {
	return []string{"GameSetting.ini", "keymap.ini"}
}

// DocumentsDir resolves the directory holding saves and ini files. The game
// nests them one level deeper per Steam user; an empty steamID means the
// game runs without Steam and uses the base folder directly. A non-empty
// override replaces the resolved game documents folder entirely.
func DocumentsDir(override, steamID string) (string, error) {
	base := override
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, "Documents", filepath.FromSlash(documentsRelPath))
	}
	if steamID != "" {
		base = filepath.Join(base, steamID)
	}
	return base, nil
}

// GameBinary returns the absolute path of the game executable.
func GameBinary(gamePath string) string {
	return filepath.Join(gamePath, filepath.FromSlash(GameBinaryRelPath))
}

// MissingLoaderDLLs reports which loader libraries are absent from the
// install dir. An empty result means the external loader is ready.
func MissingLoaderDLLs(gamePath string) []string {
	var missing []string
	for _, dll := range LoaderDLLs {
		if _, err := os.Stat(filepath.Join(gamePath, dll)); err != nil {
			missing = append(missing, dll)
		}
	}
	return missing
}
