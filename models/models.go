package models

import "strings"

// PreferencesRead is the response model for the persisted plugin preferences.
type PreferencesRead struct {
	AutoSteamID         bool   `json:"auto_steam_id"`
	SteamID64           string `json:"steam_id_64"`
	DisableAutoUpdates  bool   `json:"disable_auto_updates"`
	SkipUpdateUntilDate int64  `json:"skip_update_until_date"`
	SkipUpdateVersion   string `json:"skip_update_version"`
}

// PreferencesUpdate is a partial update request; nil fields are left untouched.
type PreferencesUpdate struct {
	AutoSteamID         *bool   `json:"auto_steam_id"`
	SteamID64           *string `json:"steam_id_64"`
	DisableAutoUpdates  *bool   `json:"disable_auto_updates"`
	SkipUpdateUntilDate *int64  `json:"skip_update_until_date"`
	SkipUpdateVersion   *string `json:"skip_update_version"`
}

// Normalize trims whitespace from input fields
func (p *PreferencesUpdate) Normalize() {
	if p.SteamID64 != nil {
		v := strings.TrimSpace(*p.SteamID64)
		p.SteamID64 = &v
	}
	if p.SkipUpdateVersion != nil {
		v := strings.TrimSpace(*p.SkipUpdateVersion)
		p.SkipUpdateVersion = &v
	}
}

// SaveGameRead is the response model for a single save slot.
type SaveGameRead struct {
	Slot     int    `json:"slot"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	SizeText string `json:"size_text"`
	Modified int64  `json:"modified"`
}

// GamePathsRead describes the resolved game locations.
type GamePathsRead struct {
	GamePath     string   `json:"game_path"`
	GameBinary   string   `json:"game_binary"`
	DocumentsDir string   `json:"documents_dir"`
	SavesDir     string   `json:"saves_dir"`
	IniFiles     []string `json:"ini_files"`
	LoaderReady  bool     `json:"loader_ready"`
	MissingDLLs  []string `json:"missing_dlls,omitempty"`
}

// LaunchRead is the response model for a tracked game session.
type LaunchRead struct {
	ID        string `json:"id"`
	PID       int    `json:"pid"`
	Binary    string `json:"binary"`
	StartedAt int64  `json:"started_at"`
	Running   bool   `json:"running"`
}

// ArchiveEntryRead describes one file inside a VBF archive.
type ArchiveEntryRead struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// ModCheckRequest points a layout check at a staged mod directory.
type ModCheckRequest struct {
	Path string `json:"path" binding:"required"`
}

// Normalize trims whitespace from input fields
func (m *ModCheckRequest) Normalize() {
	m.Path = strings.TrimSpace(m.Path)
}

// ModActionRead is one planned (or applied) layout fix.
type ModActionRead struct {
	Kind string `json:"kind"` // move|delete
	From string `json:"from"`
	To   string `json:"to,omitempty"`
}

// ModCheckRead is the response model for a layout check.
type ModCheckRead struct {
	Status  string          `json:"status"` // valid|fixable|invalid
	Actions []ModActionRead `json:"actions,omitempty"`
}
