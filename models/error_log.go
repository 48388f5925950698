package models

import "time"

// ErrorLog is an in-memory record of a non-fatal failure (update checks,
// Steam lookups, archive reads). Kept out of SQLite on purpose.
type ErrorLog struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`  // ERROR, WARN
	Source    string    `json:"source"` // originating module
	Message   string    `json:"message"`
	Detail    string    `json:"detail"`
}
