package core

import (
	"log"
	"sync"
	"time"

	"zodiac/models"
)

// ErrorLogger keeps a capped in-memory ring of non-fatal failures so the
// web UI and CLI can show why an update check or Steam lookup silently did
// nothing. Entries are never persisted.
type ErrorLogger struct {
	mu        sync.RWMutex
	logs      []*models.ErrorLog
	maxLogs   int
	idCounter int
}

var ErrorLoggerInstance = &ErrorLogger{
	logs:    make([]*models.ErrorLog, 0, 100),
	maxLogs: 100,
}

// LogError records an entry and mirrors it to the standard logger.
func (e *ErrorLogger) LogError(level, source, message, detail string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.logs) >= e.maxLogs {
		e.logs = e.logs[1:]
	}

	e.idCounter++
	e.logs = append(e.logs, &models.ErrorLog{
		ID:        e.idCounter,
		Timestamp: time.Now(),
		Level:     level,
		Source:    source,
		Message:   message,
		Detail:    detail,
	})

	log.Printf("%s: %s: %s (%s)", level, source, message, detail)
}

// Recent returns the recorded entries, newest last.
func (e *ErrorLogger) Recent() []*models.ErrorLog {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*models.ErrorLog, len(e.logs))
	copy(out, e.logs)
	return out
}

// Clear discards all recorded entries.
func (e *ErrorLogger) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logs = e.logs[:0]
}
