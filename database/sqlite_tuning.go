package database

import (
	"fmt"
	"net/url"
	"strings"

	"zodiac/config"
)

type sqlitePoolConfig struct {
	maxOpenConns int
	maxIdleConns int
}

// sanitizeSQLitePoolConfig enforces sensible bounds: at least one open
// connection, idle connections clamped to [0, maxOpenConns].
func sanitizeSQLitePoolConfig(cfg sqlitePoolConfig) sqlitePoolConfig {
	if cfg.maxOpenConns < 1 {
		cfg.maxOpenConns = 1
	}
	if cfg.maxIdleConns < 0 {
		cfg.maxIdleConns = 0
	}
	if cfg.maxIdleConns > cfg.maxOpenConns {
		cfg.maxIdleConns = cfg.maxOpenConns
	}
	return cfg
}

// buildSQLiteDSN constructs a SQLite DSN from dbPath and settings. When
// PRAGMAs are enabled, busy_timeout, journal_mode and synchronous are added
// as _pragma query parameters, preserving any query already on the path.
func buildSQLiteDSN(dbPath string, settings *config.Config) string {
	base, rawQuery, _ := strings.Cut(dbPath, "?")

	query, _ := url.ParseQuery(rawQuery)

	if settings.SQLitePragmasEnabled {
		if settings.SQLiteBusyTimeoutMS > 0 {
			query.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", settings.SQLiteBusyTimeoutMS))
		}
		if journalMode := normalizeSQLiteJournalMode(settings.SQLiteJournalMode); journalMode != "" {
			query.Add("_pragma", fmt.Sprintf("journal_mode(%s)", journalMode))
		}
		if synchronous := normalizeSQLiteSynchronous(settings.SQLiteSynchronous); synchronous != "" {
			query.Add("_pragma", fmt.Sprintf("synchronous(%s)", synchronous))
		}
	}

	if len(query) == 0 {
		return base
	}

	return base + "?" + query.Encode()
}

// normalizeSQLiteJournalMode converts the input to an accepted uppercase
// SQLite journal mode or returns an empty string if the value is invalid.
func normalizeSQLiteJournalMode(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	switch value {
	case "WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "OFF":
		return value
	default:
		return ""
	}
}

// normalizeSQLiteSynchronous validates a SQLite `synchronous` pragma value,
// returning the trimmed uppercase value or an empty string when invalid.
func normalizeSQLiteSynchronous(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	switch value {
	case "OFF", "NORMAL", "FULL", "EXTRA":
		return value
	case "0", "1", "2", "3":
		return value
	default:
		return ""
	}
}
