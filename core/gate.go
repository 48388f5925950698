package core

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSkipVersion is the sentinel meaning "no version is being skipped".
const DefaultSkipVersion = "v0.0.0"

// RemindLaterDelay is how long "remind me later" defers the next prompt.
const RemindLaterDelay = 24 * time.Hour

// GatePreferences are the persisted preferences consulted before an update
// prompt may be shown. A zero SkipUpdateUntilDate means no deferral is
// active.
type GatePreferences struct {
	DisableAutoUpdates  bool
	SkipUpdateUntilDate int64
	SkipUpdateVersion   string
}

// Decision is the outcome of the update gate for one application start.
type Decision int

const (
	// DecisionDoNotCheck: checking is disabled or the remote fetch failed.
	DecisionDoNotCheck Decision = iota
	// DecisionUpToDate: the remote version is not newer (or not comparable).
	DecisionUpToDate
	// DecisionVersionSkipped: the user chose to skip exactly this version.
	DecisionVersionSkipped
	// DecisionDeferred: a "remind me later" deferral is still active.
	DecisionDeferred
	// DecisionPrompt: a newer version exists and the user should be asked.
	DecisionPrompt
)

func (d Decision) String() string {
	switch d {
	case DecisionDoNotCheck:
		return "do_not_check"
	case DecisionUpToDate:
		return "up_to_date"
	case DecisionVersionSkipped:
		return "version_skipped"
	case DecisionDeferred:
		return "deferred"
	case DecisionPrompt:
		return "prompt"
	default:
		return "unknown"
	}
}

// EvaluateUpdateGate decides whether the user should be prompted about
// remoteVersion. It is a pure function of its arguments; the caller supplies
// the fetched remote tag and the current time, and maps fetch failures to
// DecisionDoNotCheck before ever calling this.
//
// Malformed version strings (local or remote) are non-comparable and yield
// DecisionUpToDate: a broken tag must never produce a prompt. The deferral
// boundary is inclusive-exclusive: suppressed while now < until, eligible
// again once now == until.
func EvaluateUpdateGate(prefs GatePreferences, localVersion, remoteVersion string, now time.Time) Decision {
	if prefs.DisableAutoUpdates {
		return DecisionDoNotCheck
	}

	remote, ok := ParseVersion(remoteVersion)
	if !ok {
		return DecisionUpToDate
	}
	local, ok := ParseVersion(localVersion)
	if !ok {
		return DecisionUpToDate
	}
	if !remote.Newer(local) {
		return DecisionUpToDate
	}

	if skip, ok := ParseVersion(prefs.SkipUpdateVersion); ok && skip == remote {
		return DecisionVersionSkipped
	}

	if prefs.SkipUpdateUntilDate != 0 && now.Unix() < prefs.SkipUpdateUntilDate {
		return DecisionDeferred
	}

	return DecisionPrompt
}

// PromptResponse is one of the four choices offered by an update prompt.
type PromptResponse string

const (
	ResponseUpdateNow   PromptResponse = "update_now"
	ResponseRemindLater PromptResponse = "remind_later"
	ResponseSkipVersion PromptResponse = "skip_version"
	ResponseCancel      PromptResponse = "cancel"
)

// ParsePromptResponse validates a user-supplied response string.
func ParsePromptResponse(s string) (PromptResponse, error) {
	switch PromptResponse(strings.ToLower(strings.TrimSpace(s))) {
	case ResponseUpdateNow:
		return ResponseUpdateNow, nil
	case ResponseRemindLater:
		return ResponseRemindLater, nil
	case ResponseSkipVersion:
		return ResponseSkipVersion, nil
	case ResponseCancel:
		return ResponseCancel, nil
	default:
		return "", fmt.Errorf("unknown prompt response %q", s)
	}
}

// ApplyPromptResponse returns the preference patch produced by answering a
// prompt about remoteVersion at time now, and whether anything changed.
// UpdateNow and Cancel leave the preferences untouched: the install action
// is external, and a cancelled prompt reappears on the next start.
func ApplyPromptResponse(prefs GatePreferences, resp PromptResponse, remoteVersion string, now time.Time) (GatePreferences, bool) {
	switch resp {
	case ResponseRemindLater:
		prefs.SkipUpdateUntilDate = now.Add(RemindLaterDelay).Unix()
		return prefs, true
	case ResponseSkipVersion:
		prefs.SkipUpdateVersion = NormalizeTag(remoteVersion)
		return prefs, true
	default:
		return prefs, false
	}
}
