package database

import (
	"strings"
	"testing"

	"zodiac/config"
)

func TestBuildSQLiteDSN_PragmaParams(t *testing.T) {
	cfg := &config.Config{
		SQLitePragmasEnabled: true,
		SQLiteBusyTimeoutMS:  5000,
		SQLiteJournalMode:    "WAL",
		SQLiteSynchronous:    "NORMAL",
	}

	dsn := buildSQLiteDSN("test.db", cfg)
	if dsn == "test.db" {
		t.Fatalf("expected DSN to include pragma params, got %q", dsn)
	}
	if want := "_pragma=busy_timeout%285000%29"; !strings.Contains(dsn, want) {
		t.Fatalf("expected DSN to contain %q, got %q", want, dsn)
	}
	if want := "_pragma=journal_mode%28WAL%29"; !strings.Contains(dsn, want) {
		t.Fatalf("expected DSN to contain %q, got %q", want, dsn)
	}
	if want := "_pragma=synchronous%28NORMAL%29"; !strings.Contains(dsn, want) {
		t.Fatalf("expected DSN to contain %q, got %q", want, dsn)
	}
}

func TestBuildSQLiteDSN_PreservesExistingQuery(t *testing.T) {
	cfg := &config.Config{
		SQLitePragmasEnabled: true,
		SQLiteBusyTimeoutMS:  100,
	}
	dsn := buildSQLiteDSN("test.db?cache=shared", cfg)
	if !strings.Contains(dsn, "cache=shared") {
		t.Fatalf("expected existing query to be preserved, got %q", dsn)
	}
	if !strings.Contains(dsn, "_pragma=") {
		t.Fatalf("expected pragma params, got %q", dsn)
	}
}

func TestBuildSQLiteDSN_PragmasDisabled(t *testing.T) {
	cfg := &config.Config{SQLitePragmasEnabled: false}
	if dsn := buildSQLiteDSN("test.db", cfg); dsn != "test.db" {
		t.Fatalf("expected bare path, got %q", dsn)
	}
}

func TestSanitizeSQLitePoolConfig(t *testing.T) {
	got := sanitizeSQLitePoolConfig(sqlitePoolConfig{maxOpenConns: 0, maxIdleConns: 5})
	if got.maxOpenConns != 1 {
		t.Fatalf("expected maxOpenConns clamped to 1, got %d", got.maxOpenConns)
	}
	if got.maxIdleConns != 1 {
		t.Fatalf("expected maxIdleConns clamped to maxOpenConns, got %d", got.maxIdleConns)
	}

	got = sanitizeSQLitePoolConfig(sqlitePoolConfig{maxOpenConns: 4, maxIdleConns: -1})
	if got.maxIdleConns != 0 {
		t.Fatalf("expected negative maxIdleConns clamped to 0, got %d", got.maxIdleConns)
	}
}
