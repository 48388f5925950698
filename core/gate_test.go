package core

import (
	"testing"
	"time"
)

func TestEvaluateUpdateGate_Decisions(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name   string
		prefs  GatePreferences
		local  string
		remote string
		want   Decision
	}{
		{
			name:   "defaults prompt on newer remote",
			prefs:  GatePreferences{SkipUpdateVersion: DefaultSkipVersion},
			local:  "v1.0.0",
			remote: "v1.1.0",
			want:   DecisionPrompt,
		},
		{
			name:   "disabled wins over everything",
			prefs:  GatePreferences{DisableAutoUpdates: true, SkipUpdateVersion: DefaultSkipVersion},
			local:  "v1.0.0",
			remote: "v9.9.9",
			want:   DecisionDoNotCheck,
		},
		{
			name:   "equal versions are up to date",
			prefs:  GatePreferences{SkipUpdateVersion: DefaultSkipVersion},
			local:  "v1.2.3",
			remote: "v1.2.3",
			want:   DecisionUpToDate,
		},
		{
			name:   "older remote is up to date",
			prefs:  GatePreferences{SkipUpdateVersion: DefaultSkipVersion},
			local:  "v1.2.3",
			remote: "v1.2.2",
			want:   DecisionUpToDate,
		},
		{
			name:   "malformed remote is treated as up to date",
			prefs:  GatePreferences{SkipUpdateVersion: DefaultSkipVersion},
			local:  "v1.0.0",
			remote: "nightly-build",
			want:   DecisionUpToDate,
		},
		{
			name:   "malformed local is treated as up to date",
			prefs:  GatePreferences{SkipUpdateVersion: DefaultSkipVersion},
			local:  "dev",
			remote: "v2.0.0",
			want:   DecisionUpToDate,
		},
		{
			name:   "skipped version suppresses the prompt",
			prefs:  GatePreferences{SkipUpdateVersion: "v1.2.0"},
			local:  "v1.0.0",
			remote: "v1.2.0",
			want:   DecisionVersionSkipped,
		},
		{
			name:   "skip match ignores the v prefix",
			prefs:  GatePreferences{SkipUpdateVersion: "1.2.0"},
			local:  "v1.0.0",
			remote: "v1.2.0",
			want:   DecisionVersionSkipped,
		},
		{
			name:   "skip applies even while deferred",
			prefs:  GatePreferences{SkipUpdateVersion: "v1.2.0", SkipUpdateUntilDate: now.Unix() + 1000},
			local:  "v1.0.0",
			remote: "v1.2.0",
			want:   DecisionVersionSkipped,
		},
		{
			name:   "other versions prompt despite a skip entry",
			prefs:  GatePreferences{SkipUpdateVersion: "v1.2.0"},
			local:  "v1.0.0",
			remote: "v1.3.0",
			want:   DecisionPrompt,
		},
		{
			name:   "reset skip version re-enables prompting",
			prefs:  GatePreferences{SkipUpdateVersion: DefaultSkipVersion},
			local:  "v1.0.0",
			remote: "v1.2.0",
			want:   DecisionPrompt,
		},
		{
			name:   "active deferral suppresses the prompt",
			prefs:  GatePreferences{SkipUpdateVersion: DefaultSkipVersion, SkipUpdateUntilDate: now.Unix() + 1000},
			local:  "v1.0.0",
			remote: "v1.1.0",
			want:   DecisionDeferred,
		},
		{
			name:   "zero deferral means no deferral",
			prefs:  GatePreferences{SkipUpdateVersion: DefaultSkipVersion, SkipUpdateUntilDate: 0},
			local:  "v1.0.0",
			remote: "v1.1.0",
			want:   DecisionPrompt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateUpdateGate(tt.prefs, tt.local, tt.remote, now); got != tt.want {
				t.Fatalf("EvaluateUpdateGate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateUpdateGate_DeferralBoundary(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)

	prefs := GatePreferences{SkipUpdateVersion: DefaultSkipVersion}
	prefs, changed := ApplyPromptResponse(prefs, ResponseRemindLater, "v1.1.0", start)
	if !changed {
		t.Fatalf("remind later should change preferences")
	}
	if want := start.Add(24 * time.Hour).Unix(); prefs.SkipUpdateUntilDate != want {
		t.Fatalf("SkipUpdateUntilDate = %d, want %d", prefs.SkipUpdateUntilDate, want)
	}

	// One second before the deadline the prompt stays suppressed.
	before := start.Add(24*time.Hour - time.Second)
	if got := EvaluateUpdateGate(prefs, "v1.0.0", "v1.1.0", before); got != DecisionDeferred {
		t.Fatalf("just before deadline: got %v, want %v", got, DecisionDeferred)
	}

	// At exactly the deadline the deferral has expired.
	at := start.Add(24 * time.Hour)
	if got := EvaluateUpdateGate(prefs, "v1.0.0", "v1.1.0", at); got != DecisionPrompt {
		t.Fatalf("at deadline: got %v, want %v", got, DecisionPrompt)
	}
}

func TestApplyPromptResponse(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	base := GatePreferences{SkipUpdateVersion: DefaultSkipVersion}

	got, changed := ApplyPromptResponse(base, ResponseUpdateNow, "v1.1.0", now)
	if changed || got != base {
		t.Fatalf("update now must not touch preferences: %+v", got)
	}

	got, changed = ApplyPromptResponse(base, ResponseCancel, "v1.1.0", now)
	if changed || got != base {
		t.Fatalf("cancel must not touch preferences: %+v", got)
	}

	got, changed = ApplyPromptResponse(base, ResponseSkipVersion, "1.1.0", now)
	if !changed || got.SkipUpdateVersion != "v1.1.0" {
		t.Fatalf("skip version patch = %+v", got)
	}
	if got.SkipUpdateUntilDate != 0 {
		t.Fatalf("skip version must not set a deferral")
	}

	// Resetting the sentinel re-enables prompting for the skipped version.
	got.SkipUpdateVersion = DefaultSkipVersion
	if d := EvaluateUpdateGate(got, "v1.0.0", "v1.1.0", now); d != DecisionPrompt {
		t.Fatalf("after reset: got %v, want %v", d, DecisionPrompt)
	}
}

func TestParsePromptResponse(t *testing.T) {
	for _, s := range []string{"update_now", "REMIND_LATER", " skip_version ", "cancel"} {
		if _, err := ParsePromptResponse(s); err != nil {
			t.Fatalf("ParsePromptResponse(%q): %v", s, err)
		}
	}
	if _, err := ParsePromptResponse("maybe"); err == nil {
		t.Fatalf("expected error for unknown response")
	}
}
