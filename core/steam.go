package core

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/andygrunwald/vdf"
)

// ErrSteamNotFound is returned when no Steam installation can be located.
var ErrSteamNotFound = errors.New("steam installation not found")

// ErrNoSteamUsers is returned when loginusers.vdf contains no accounts.
var ErrNoSteamUsers = errors.New("no steam users found")

// FindSteamPath returns the first existing Steam installation directory
// from the per-OS candidate list.
func FindSteamPath() (string, error) {
	for _, c := range steamPathCandidates() {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c, nil
		}
	}
	return "", ErrSteamNotFound
}

func steamPathCandidates() []string {
	if runtime.GOOS == "windows" {
		candidates := []string{
			filepath.Join(os.Getenv("ProgramFiles(x86)"), "Steam"),
			filepath.Join(os.Getenv("ProgramFiles"), "Steam"),
		}
		return candidates
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".local/share/Steam"),
		filepath.Join(home, ".steam/steam"),
		filepath.Join(home, ".steam/root"),
		filepath.Join(home, ".var/app/com.valvesoftware.Steam/data/Steam"),
	}
}

// LastLoggedSteamID returns the 64-bit Steam ID of the most recently
// logged-in user recorded in the installation's loginusers.vdf. When no
// user is flagged MostRecent the lexically first account is returned so
// single-user machines still resolve.
func LastLoggedSteamID(steamPath string) (string, error) {
	f, err := os.Open(filepath.Join(steamPath, "config", "loginusers.vdf"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	return lastLoggedSteamIDFrom(f)
}

func lastLoggedSteamIDFrom(f *os.File) (string, error) {
	parsed, err := vdf.NewParser(f).Parse()
	if err != nil {
		return "", err
	}

	users, ok := parsed["users"].(map[string]interface{})
	if !ok || len(users) == 0 {
		return "", ErrNoSteamUsers
	}

	ids := make([]string, 0, len(users))
	for id, raw := range users {
		ids = append(ids, id)
		info, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if recent, _ := info["MostRecent"].(string); recent == "1" {
			return id, nil
		}
	}

	sort.Strings(ids)
	return ids[0], nil
}

// DetectSteamID64 combines installation lookup and loginusers parsing.
func DetectSteamID64() (string, error) {
	steamPath, err := FindSteamPath()
	if err != nil {
		return "", err
	}
	return LastLoggedSteamID(steamPath)
}
