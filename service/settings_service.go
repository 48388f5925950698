package service

import (
	"fmt"
	"strings"

	"zodiac/core"
	"zodiac/database"
	"zodiac/models"
)

// Persisted preference keys. The names are the ones the original MO2 plugin
// used, so a migrated settings dump stays readable.
const (
	SettingAutoSteamID         = "autoSteamId"
	SettingSteamID64           = "steamId64"
	SettingDisableAutoUpdates  = "disableAutoUpdates"
	SettingSkipUpdateUntilDate = "skipUpdateUntilDate"
	SettingSkipUpdateVersion   = "skipUpdateVersion"
)

// Preference defaults, applied on first start and whenever a stored value
// is missing or unreadable.
const (
	defaultAutoSteamID        = true
	defaultDisableAutoUpdates = false
	defaultSkipUntilDate      = int64(0)
)

// SettingsService provides typed access to the persisted plugin
// preferences on top of the generic key/value store.
type SettingsService struct{}

// NewSettingsService constructs a settings service
func NewSettingsService() *SettingsService {
	return &SettingsService{}
}

// EnsureDefaults creates any missing preference rows so the configuration
// UI always has a full set to show.
func (s *SettingsService) EnsureDefaults() error {
	defaults := map[string]string{
		SettingAutoSteamID:         "true",
		SettingSteamID64:           "",
		SettingDisableAutoUpdates:  "false",
		SettingSkipUpdateUntilDate: "0",
		SettingSkipUpdateVersion:   core.DefaultSkipVersion,
	}

	for key, value := range defaults {
		if _, ok, err := database.GetSetting(key); err != nil {
			return err
		} else if !ok {
			if err := database.SetSetting(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Preferences returns the current preferences with per-field fallback to
// defaults.
func (s *SettingsService) Preferences() models.PreferencesRead {
	return models.PreferencesRead{
		AutoSteamID:         database.GetBoolSetting(SettingAutoSteamID, defaultAutoSteamID),
		SteamID64:           strings.TrimSpace(database.GetStringSetting(SettingSteamID64, "")),
		DisableAutoUpdates:  database.GetBoolSetting(SettingDisableAutoUpdates, defaultDisableAutoUpdates),
		SkipUpdateUntilDate: database.GetInt64Setting(SettingSkipUpdateUntilDate, defaultSkipUntilDate),
		SkipUpdateVersion:   database.GetStringSetting(SettingSkipUpdateVersion, core.DefaultSkipVersion),
	}
}

// Update applies a partial preference update and returns the new state.
// Preferences change only here and through prompt responses.
func (s *SettingsService) Update(req models.PreferencesUpdate) (models.PreferencesRead, error) {
	req.Normalize()

	if req.SteamID64 != nil && *req.SteamID64 != "" {
		for _, ch := range *req.SteamID64 {
			if ch < '0' || ch > '9' {
				return models.PreferencesRead{}, fmt.Errorf("steam_id_64 must be numeric")
			}
		}
	}
	if req.SkipUpdateUntilDate != nil && *req.SkipUpdateUntilDate < 0 {
		return models.PreferencesRead{}, fmt.Errorf("skip_update_until_date must not be negative")
	}

	if req.AutoSteamID != nil {
		if err := database.SetBoolSetting(SettingAutoSteamID, *req.AutoSteamID); err != nil {
			return models.PreferencesRead{}, err
		}
	}
	if req.SteamID64 != nil {
		if err := database.SetSetting(SettingSteamID64, *req.SteamID64); err != nil {
			return models.PreferencesRead{}, err
		}
	}
	if req.DisableAutoUpdates != nil {
		if err := database.SetBoolSetting(SettingDisableAutoUpdates, *req.DisableAutoUpdates); err != nil {
			return models.PreferencesRead{}, err
		}
	}
	if req.SkipUpdateUntilDate != nil {
		if err := database.SetInt64Setting(SettingSkipUpdateUntilDate, *req.SkipUpdateUntilDate); err != nil {
			return models.PreferencesRead{}, err
		}
	}
	if req.SkipUpdateVersion != nil {
		value := core.NormalizeTag(*req.SkipUpdateVersion)
		if value == "" {
			value = core.DefaultSkipVersion
		}
		if err := database.SetSetting(SettingSkipUpdateVersion, value); err != nil {
			return models.PreferencesRead{}, err
		}
	}

	return s.Preferences(), nil
}

// GatePreferences projects the stored preferences into the update gate's
// input shape.
func (s *SettingsService) GatePreferences() core.GatePreferences {
	p := s.Preferences()
	return core.GatePreferences{
		DisableAutoUpdates:  p.DisableAutoUpdates,
		SkipUpdateUntilDate: p.SkipUpdateUntilDate,
		SkipUpdateVersion:   p.SkipUpdateVersion,
	}
}

// ApplyGatePatch persists the preference fields a prompt response changed.
func (s *SettingsService) ApplyGatePatch(prefs core.GatePreferences) error {
	if err := database.SetInt64Setting(SettingSkipUpdateUntilDate, prefs.SkipUpdateUntilDate); err != nil {
		return err
	}
	return database.SetSetting(SettingSkipUpdateVersion, prefs.SkipUpdateVersion)
}

// EffectiveSteamID returns the Steam ID used to locate saves and ini files.
// With auto-detection enabled and no stored ID, the most recently logged-in
// Steam user is detected and persisted. Detection failure falls back to the
// empty ID (game running without Steam) rather than erroring.
func (s *SettingsService) EffectiveSteamID() string {
	p := s.Preferences()
	if p.SteamID64 != "" || !p.AutoSteamID {
		return p.SteamID64
	}

	id, err := core.DetectSteamID64()
	if err != nil {
		core.ErrorLoggerInstance.LogError("WARN", "steam", "steam id auto-detection failed", err.Error())
		return ""
	}

	if err := database.SetSetting(SettingSteamID64, id); err != nil {
		core.ErrorLoggerInstance.LogError("WARN", "steam", "failed to persist detected steam id", err.Error())
	}
	return id
}
