package database

import (
	"errors"
	"strconv"
	"strings"

	"zodiac/models"

	"gorm.io/gorm"
)

// GetSetting returns a persisted key/value setting.
// ok is false when the key does not exist.
func GetSetting(key string) (value string, ok bool, err error) {
	if DB == nil {
		return "", false, errors.New("database not initialized")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, errors.New("empty setting key")
	}

	var s models.AppSetting
	if err := DB.First(&s, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return s.Value, true, nil
}

// SetSetting persists a key/value setting.
func SetSetting(key, value string) error {
	if DB == nil {
		return errors.New("database not initialized")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("empty setting key")
	}

	value = strings.TrimSpace(value)
	return DB.Save(&models.AppSetting{Key: key, Value: value}).Error
}

// GetBoolSetting reads a boolean setting. A missing or unparseable value
// falls back to def; preference corruption must never break startup.
func GetBoolSetting(key string, def bool) bool {
	raw, ok, err := GetSetting(key)
	if err != nil || !ok {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

// GetInt64Setting reads an integer setting with the same fallback rules as
// GetBoolSetting.
func GetInt64Setting(key string, def int64) int64 {
	raw, ok, err := GetSetting(key)
	if err != nil || !ok {
		return def
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return def
	}
	return v
}

// GetStringSetting reads a string setting, falling back to def when the key
// is absent or unreadable.
func GetStringSetting(key string, def string) string {
	raw, ok, err := GetSetting(key)
	if err != nil || !ok {
		return def
	}
	return raw
}

// SetBoolSetting persists a boolean setting.
func SetBoolSetting(key string, value bool) error {
	return SetSetting(key, strconv.FormatBool(value))
}

// SetInt64Setting persists an integer setting.
func SetInt64Setting(key string, value int64) error {
	return SetSetting(key, strconv.FormatInt(value, 10))
}

// DeleteSetting removes a persisted setting if it exists.
func DeleteSetting(key string) error {
	if DB == nil {
		return errors.New("database not initialized")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("empty setting key")
	}

	return DB.Where("key = ?", key).Delete(&models.AppSetting{}).Error
}
