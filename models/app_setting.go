package models

import "time"

// AppSetting stores small persistent key/value settings in SQLite.
// All plugin preferences (Steam ID, update gating) live here as scalars
// so the schema never changes when a preference is added.
type AppSetting struct {
	Key       string    `gorm:"primaryKey;size:128" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
