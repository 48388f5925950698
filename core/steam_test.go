package core

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLoginUsers(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "config", "loginusers.vdf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return dir
}

func TestLastLoggedSteamID_MostRecent(t *testing.T) {
	dir := writeLoginUsers(t, `"users"
{
	"76561198000000001"
	{
		"AccountName"	"first"
		"MostRecent"	"0"
	}
	"76561198000000002"
	{
		"AccountName"	"second"
		"MostRecent"	"1"
	}
}
`)

	id, err := LastLoggedSteamID(dir)
	if err != nil {
		t.Fatalf("LastLoggedSteamID: %v", err)
	}
	if id != "76561198000000002" {
		t.Fatalf("got %q, want the MostRecent user", id)
	}
}

func TestLastLoggedSteamID_FallbackToFirst(t *testing.T) {
	dir := writeLoginUsers(t, `"users"
{
	"76561198000000009"
	{
		"AccountName"	"only"
	}
}
`)

	id, err := LastLoggedSteamID(dir)
	if err != nil {
		t.Fatalf("LastLoggedSteamID: %v", err)
	}
	if id != "76561198000000009" {
		t.Fatalf("got %q, want the only user", id)
	}
}

func TestLastLoggedSteamID_Empty(t *testing.T) {
	dir := writeLoginUsers(t, `"users"
{
}
`)

	if _, err := LastLoggedSteamID(dir); err == nil {
		t.Fatalf("expected error for empty user list")
	}
}

func TestLastLoggedSteamID_MissingFile(t *testing.T) {
	if _, err := LastLoggedSteamID(t.TempDir()); err == nil {
		t.Fatalf("expected error when loginusers.vdf is missing")
	}
}
