package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/pkg/browser"

	"zodiac/config"
	"zodiac/core"
	"zodiac/state"
	"zodiac/version"
)

// GithubRelease is the subset of the GitHub release payload the updater
// cares about.
type GithubRelease struct {
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	Body        string `json:"body"`
	HTMLURL     string `json:"html_url"`
	PublishedAt string `json:"published_at"`
	Assets      []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
	} `json:"assets"`
}

type releaseCache struct {
	mu       sync.Mutex
	release  *GithubRelease
	etag     string
	fetched  time.Time
	lastErr  error
	lastCode int
}

var latestReleaseCache releaseCache

// UpdateStatus describes the outcome of an update gate evaluation.
type UpdateStatus struct {
	Decision       core.Decision
	CurrentVersion string
	LatestVersion  string
	ReleaseURL     string
	FetchError     string
}

// UpdateService decides whether the user should be told about a new
// release, and records prompt responses.
type UpdateService struct {
	settings *SettingsService
	appState *state.AppState
}

func NewUpdateService(settings *SettingsService, appState *state.AppState) *UpdateService {
	return &UpdateService{settings: settings, appState: appState}
}

// Evaluate runs the update gate against the latest GitHub release. Fetch
// failures never propagate as errors; they resolve to a do-not-check
// decision so startup always proceeds.
func (s *UpdateService) Evaluate(ctx context.Context, now time.Time) UpdateStatus {
	prefs := s.settings.GatePreferences()
	current := strings.TrimSpace(version.Version)

	status := UpdateStatus{
		Decision:       core.DecisionDoNotCheck,
		CurrentVersion: core.NormalizeTag(current),
	}

	if prefs.DisableAutoUpdates {
		log.Printf("update: check skipped (auto updates disabled)")
		return status
	}

	release, err := s.FetchLatestRelease(ctx)
	if err != nil {
		log.Printf("update: fetch latest release failed: %v", err)
		core.ErrorLoggerInstance.LogError("WARN", "update", "release check failed", err.Error())
		status.FetchError = err.Error()
		return status
	}

	latest := strings.TrimSpace(release.TagName)
	status.LatestVersion = core.NormalizeTag(latest)
	status.ReleaseURL = release.HTMLURL
	status.Decision = core.EvaluateUpdateGate(prefs, current, latest, now)

	log.Printf(
		"update: gate decision=%s current=%s latest=%s",
		status.Decision, status.CurrentVersion, status.LatestVersion,
	)

	if status.Decision == core.DecisionPrompt {
		s.appState.SetPendingPrompt(&state.PendingPrompt{
			RemoteVersion: core.NormalizeTag(latest),
			ReleaseURL:    release.HTMLURL,
			ReleaseNotes:  release.Body,
			PublishedAt:   release.PublishedAt,
		})
		s.notifyPrompt(status)
	}
	return status
}

// RespondToPrompt applies a user's answer to the pending update prompt.
// Remind-later and skip-version persist preference changes; update-now and
// cancel only clear the prompt.
func (s *UpdateService) RespondToPrompt(response string) (core.PromptResponse, error) {
	resp, err := core.ParsePromptResponse(response)
	if err != nil {
		return "", err
	}

	pending := s.appState.PendingPrompt()
	if pending == nil {
		return "", errors.New("no update prompt is pending")
	}

	prefs := s.settings.GatePreferences()
	patched, changed := core.ApplyPromptResponse(prefs, resp, pending.RemoteVersion, time.Now())
	if changed {
		if err := s.settings.ApplyGatePatch(patched); err != nil {
			return "", err
		}
	}

	s.appState.SetPendingPrompt(nil)
	log.Printf("update: prompt response=%s version=%s", resp, pending.RemoteVersion)

	if resp == core.ResponseUpdateNow && pending.ReleaseURL != "" {
		// Show the release notes while the self-update endpoint does the
		// actual download and restart.
		if err := browser.OpenURL(pending.ReleaseURL); err != nil {
			log.Printf("update: open release page failed: %v", err)
		}
	}
	return resp, nil
}

func (s *UpdateService) notifyPrompt(status UpdateStatus) {
	if !config.Settings.UpdateNotifyEnabled {
		return
	}
	title := "FF12 companion update available"
	body := fmt.Sprintf("Version %s is available (current %s).", status.LatestVersion, status.CurrentVersion)
	if err := beeep.Notify(title, body, ""); err != nil {
		// Headless boxes have no notification daemon; the prompt is still
		// reachable over the API and CLI.
		log.Printf("update: desktop notification failed: %v", err)
	}
}

// FetchLatestRelease queries the GitHub latest-release endpoint with a
// small in-process cache to stay under API rate limits.
func (s *UpdateService) FetchLatestRelease(ctx context.Context) (*GithubRelease, error) {
	const ttl = 30 * time.Second
	latestReleaseCache.mu.Lock()
	cached := latestReleaseCache.release
	etag := latestReleaseCache.etag
	fetched := latestReleaseCache.fetched
	latestReleaseCache.mu.Unlock()

	if cached != nil && time.Since(fetched) < ttl {
		return cached, nil
	}

	apiURL := fmt.Sprintf(
		"https://api.github.com/repos/%s/%s/releases/latest",
		config.Settings.UpdateRepoOwner, config.Settings.UpdateRepoName,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "zodiac-self-update")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	if token := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logProxyEnv("update: fetch")
	client := NewUpdateHTTPClient(time.Duration(config.Settings.UpdateCheckTimeoutSeconds) * time.Second)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		latestReleaseCache.mu.Lock()
		latestReleaseCache.fetched = time.Now()
		latestReleaseCache.lastErr = nil
		latestReleaseCache.lastCode = resp.StatusCode
		latestReleaseCache.mu.Unlock()
		return cached, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("github api error: %s: %s", resp.Status, strings.TrimSpace(string(body)))

		// Degrade gracefully under rate limiting when a cached release exists.
		if resp.StatusCode == http.StatusForbidden && cached != nil {
			log.Printf("update: github api forbidden, using cached release: %v", err)
			return cached, nil
		}

		latestReleaseCache.mu.Lock()
		latestReleaseCache.lastErr = err
		latestReleaseCache.lastCode = resp.StatusCode
		latestReleaseCache.mu.Unlock()
		return nil, err
	}

	var release GithubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, err
	}
	if release.TagName == "" {
		return nil, errors.New("github latest release missing tag_name")
	}

	if newEtag := strings.TrimSpace(resp.Header.Get("ETag")); newEtag != "" {
		etag = newEtag
	}

	latestReleaseCache.mu.Lock()
	latestReleaseCache.release = &release
	latestReleaseCache.etag = etag
	latestReleaseCache.fetched = time.Now()
	latestReleaseCache.lastErr = nil
	latestReleaseCache.lastCode = resp.StatusCode
	latestReleaseCache.mu.Unlock()

	return &release, nil
}

// SelectReleaseAsset picks the release asset matching the given OS and
// architecture.
func SelectReleaseAsset(release *GithubRelease, goos, goarch string) (assetName, downloadURL string, err error) {
	if release == nil {
		return "", "", errors.New("nil release")
	}
	if len(release.Assets) == 0 {
		return "", "", errors.New("latest release has no assets")
	}

	osToken := strings.ToLower(goos)
	archToken := strings.ToLower(goarch)

	wantExt := ".tar.gz"
	if goos == "windows" {
		wantExt = ".zip"
	}

	var best struct {
		name string
		url  string
	}

	for _, a := range release.Assets {
		nameLower := strings.ToLower(a.Name)
		if !strings.Contains(nameLower, "zodiac") {
			continue
		}
		if !strings.Contains(nameLower, osToken) {
			continue
		}
		if !strings.Contains(nameLower, archToken) {
			continue
		}
		if !strings.HasSuffix(nameLower, wantExt) {
			continue
		}

		tagLower := strings.ToLower(strings.TrimSpace(release.TagName))
		if tagLower != "" && strings.Contains(nameLower, tagLower) {
			best.name = a.Name
			best.url = a.BrowserDownloadURL
			break
		}

		if best.url == "" {
			best.name = a.Name
			best.url = a.BrowserDownloadURL
		}
	}

	if best.url == "" {
		return "", "", fmt.Errorf("no suitable asset found for %s/%s", goos, goarch)
	}
	return best.name, best.url, nil
}
