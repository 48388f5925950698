package service

import (
	"gorm.io/gorm"

	"zodiac/state"
)

// Services is the global service container
type Services struct {
	Settings *SettingsService
	Update   *UpdateService
	Game     *GameService
}

// GlobalServices is the global service instance
var GlobalServices *Services

// InitServices initializes all services
func InitServices(db *gorm.DB, appState *state.AppState) error {
	settingsSvc := NewSettingsService()
	if err := settingsSvc.EnsureDefaults(); err != nil {
		return err
	}

	GlobalServices = &Services{
		Settings: settingsSvc,
		Update:   NewUpdateService(settingsSvc, appState),
		Game:     NewGameService(settingsSvc, appState),
	}
	return nil
}
