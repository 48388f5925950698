package handlers

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"zodiac/core"
	"zodiac/service"
	"zodiac/state"
	"zodiac/version"
)

type updateCheckResponse struct {
	Decision        string `json:"decision"`
	CurrentVersion  string `json:"current_version"`
	LatestVersion   string `json:"latest_version,omitempty"`
	UpdateAvailable bool   `json:"update_available"`
	ReleaseURL      string `json:"release_url,omitempty"`
	FetchError      string `json:"fetch_error,omitempty"`
}

type updatePromptResponse struct {
	Pending       bool   `json:"pending"`
	RemoteVersion string `json:"remote_version,omitempty"`
	ReleaseURL    string `json:"release_url,omitempty"`
	ReleaseNotes  string `json:"release_notes,omitempty"`
	PublishedAt   string `json:"published_at,omitempty"`
}

type updatePromptRequest struct {
	Response string `json:"response" binding:"required"`
}

type updateApplyResponse struct {
	OK            bool   `json:"ok"`
	TargetVersion string `json:"target_version"`
	Message       string `json:"message"`
	HelperPID     int    `json:"helper_pid,omitempty"`
	HelperLogPath string `json:"helper_log_path,omitempty"`
}

type updateGenerateCodeResponse struct {
	Code      string `json:"code"`
	ExpiresAt int64  `json:"expires_at"`
}

type updateProxyResponse struct {
	ManualProxy    string `json:"manual_proxy,omitempty"`
	EnvHTTPProxy   string `json:"env_http_proxy,omitempty"`
	EnvHTTPSProxy  string `json:"env_https_proxy,omitempty"`
	EnvAllProxy    string `json:"env_all_proxy,omitempty"`
	EnvNoProxy     string `json:"env_no_proxy,omitempty"`
	EffectiveProxy string `json:"effective_proxy,omitempty"`
	Source         string `json:"source"` // manual|env|none
}

type updateProxyRequest struct {
	ProxyURL string `json:"proxy_url"`
}

type updateApplyRequest struct {
	Code string `json:"code"`
}

type updateCodeManager struct {
	mu        sync.RWMutex
	code      string
	expiresAt time.Time
}

var updateMgr updateCodeManager

// CheckUpdate runs the update gate against the latest release and reports
// the decision.
func CheckUpdate(c *gin.Context) {
	log.Printf("update: check requested (client=%s)", c.ClientIP())
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	status := service.GlobalServices.Update.Evaluate(ctx, time.Now())
	okV2(c, updateCheckResponse{
		Decision:        status.Decision.String(),
		CurrentVersion:  status.CurrentVersion,
		LatestVersion:   status.LatestVersion,
		UpdateAvailable: status.Decision == core.DecisionPrompt,
		ReleaseURL:      status.ReleaseURL,
		FetchError:      status.FetchError,
	})
}

// GetUpdatePrompt returns the pending update prompt, if any.
func GetUpdatePrompt(c *gin.Context) {
	pending := state.Global.PendingPrompt()
	if pending == nil {
		okV2(c, updatePromptResponse{Pending: false})
		return
	}
	okV2(c, updatePromptResponse{
		Pending:       true,
		RemoteVersion: pending.RemoteVersion,
		ReleaseURL:    pending.ReleaseURL,
		ReleaseNotes:  pending.ReleaseNotes,
		PublishedAt:   pending.PublishedAt,
	})
}

// RespondUpdatePrompt records the user's answer to the pending prompt.
func RespondUpdatePrompt(c *gin.Context) {
	var req updatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", "Invalid request")
		return
	}

	resp, err := service.GlobalServices.Update.RespondToPrompt(req.Response)
	if err != nil {
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", err.Error())
		return
	}
	okV2(c, gin.H{"ok": true, "response": string(resp)})
}

// GenerateUpdateCode creates a short-lived confirmation code for applying an update.
// A code is issued only when a newer release is available.
func GenerateUpdateCode(c *gin.Context) {
	log.Printf("update: generate code requested (client=%s)", c.ClientIP())
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	release, err := service.GlobalServices.Update.FetchLatestRelease(ctx)
	if err != nil {
		log.Printf("update: generate code fetch latest release failed: %v", err)
		errV2(c, http.StatusBadGateway, CodeBadGateway, "Bad gateway", err.Error())
		return
	}

	current := strings.TrimSpace(version.Version)
	latest := strings.TrimSpace(release.TagName)
	if !isVersionNewer(latest, current) {
		log.Printf("update: generate code skipped (already up to date current=%s latest=%s)", current, latest)
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", "already up to date")
		return
	}

	code, err := generateSixDigitCode()
	if err != nil {
		log.Printf("update: generate code failed: %v", err)
		errV2(c, http.StatusInternalServerError, CodeInternal, "Internal error", err.Error())
		return
	}

	expiresAt := time.Now().Add(5 * time.Minute)
	updateMgr.mu.Lock()
	updateMgr.code = code
	updateMgr.expiresAt = expiresAt
	updateMgr.mu.Unlock()

	log.Printf("update: code generated (expires_at=%s)", expiresAt.UTC().Format(time.RFC3339))
	okV2(c, updateGenerateCodeResponse{
		Code:      code,
		ExpiresAt: expiresAt.Unix(),
	})
}

// GetUpdateProxy returns the current effective proxy configuration for update HTTP requests.
func GetUpdateProxy(c *gin.Context) {
	manual, _ := service.ManualUpdateProxyURL()
	env := service.ReadProxyEnv()
	effective, source := service.ChooseEffectiveProxy(manual, env)

	okV2(c, updateProxyResponse{
		ManualProxy:    service.RedactProxy(manual),
		EnvHTTPProxy:   service.RedactProxy(env.HTTPProxy),
		EnvHTTPSProxy:  service.RedactProxy(env.HTTPSProxy),
		EnvAllProxy:    service.RedactProxy(env.AllProxy),
		EnvNoProxy:     env.NoProxy,
		EffectiveProxy: service.RedactProxy(effective),
		Source:         source,
	})
}

// SetUpdateProxy persists a manual proxy URL used by update HTTP requests. An empty value clears it.
func SetUpdateProxy(c *gin.Context) {
	var req updateProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", "Invalid request")
		return
	}

	value := strings.TrimSpace(req.ProxyURL)
	if value != "" {
		u, err := url.Parse(value)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", "invalid proxy url")
			return
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https", "socks5", "socks5h":
		default:
			errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", "proxy url must start with http(s):// or socks5(h)://")
			return
		}
	}

	if err := service.SetManualUpdateProxyURL(value); err != nil {
		errV2(c, http.StatusInternalServerError, CodeInternal, "Internal error", err.Error())
		return
	}
	okV2(c, gin.H{"ok": true})
}

// ApplyUpdate downloads and installs the latest release asset, then restarts via a helper process.
func ApplyUpdate(c *gin.Context) {
	log.Printf("update: apply requested (client=%s)", c.ClientIP())
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Minute)
	defer cancel()

	var req updateApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("update: apply invalid request: %v", err)
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", "Invalid request")
		return
	}
	if shutdownChan == nil {
		log.Printf("update: apply aborted (shutdown channel not set)")
		errV2(c, http.StatusInternalServerError, CodeInternal, "Internal error", "shutdown channel is not initialized")
		return
	}
	if err := verifyUpdateCode(req.Code); err != nil {
		log.Printf("update: apply code verification failed: %v", err)
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", err.Error())
		return
	}

	release, err := service.GlobalServices.Update.FetchLatestRelease(ctx)
	if err != nil {
		log.Printf("update: apply fetch latest release failed: %v", err)
		errV2(c, http.StatusBadGateway, CodeBadGateway, "Bad gateway", err.Error())
		return
	}

	assetName, downloadURL, err := service.SelectReleaseAsset(release, runtime.GOOS, runtime.GOARCH)
	if err != nil {
		log.Printf("update: apply select asset failed (tag=%s os=%s arch=%s): %v", release.TagName, runtime.GOOS, runtime.GOARCH, err)
		errV2(c, http.StatusBadGateway, CodeBadGateway, "Bad gateway", err.Error())
		return
	}

	current := strings.TrimSpace(version.Version)
	latest := strings.TrimSpace(release.TagName)
	if !isVersionNewer(latest, current) {
		log.Printf("update: apply aborted (already up to date current=%s latest=%s)", current, latest)
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", "already up to date")
		return
	}

	exePath, err := os.Executable()
	if err != nil {
		log.Printf("update: apply os.Executable failed: %v", err)
		errV2(c, http.StatusInternalServerError, CodeInternal, "Internal error", err.Error())
		return
	}
	exePath, _ = filepath.Abs(exePath)

	tmpDir, err := os.MkdirTemp("", "zodiac-update-*")
	if err != nil {
		log.Printf("update: apply MkdirTemp failed: %v", err)
		errV2(c, http.StatusInternalServerError, CodeInternal, "Internal error", err.Error())
		return
	}

	archivePath := filepath.Join(tmpDir, filepath.Base(assetName))
	log.Printf(
		"update: apply downloading tag=%s asset=%s url=%s exe=%s tmp=%s",
		latest, assetName, downloadURL, exePath, tmpDir,
	)
	if err := downloadFile(ctx, downloadURL, archivePath); err != nil {
		log.Printf("update: apply download failed (dst=%s): %v", archivePath, err)
		_ = os.RemoveAll(tmpDir)
		errV2(c, http.StatusBadGateway, CodeBadGateway, "Bad gateway", err.Error())
		return
	}

	newBinPath, err := extractBinary(archivePath, tmpDir, runtime.GOOS)
	if err != nil {
		log.Printf("update: apply extract failed (archive=%s tmp=%s): %v", archivePath, tmpDir, err)
		_ = os.RemoveAll(tmpDir)
		errV2(c, http.StatusBadGateway, CodeBadGateway, "Bad gateway", err.Error())
		return
	}
	log.Printf("update: apply extracted binary=%s", newBinPath)

	if runtime.GOOS != "windows" {
		_ = os.Chmod(newBinPath, 0o755)
	}

	helperLogPath := filepath.Join(filepath.Dir(exePath), "zodiac-update-helper.log")
	if err := ensureWritableFile(helperLogPath); err != nil {
		helperLogPath = filepath.Join(os.TempDir(), fmt.Sprintf("zodiac-update-helper-%d.log", time.Now().UnixNano()))
		if err2 := ensureWritableFile(helperLogPath); err2 != nil {
			log.Printf("update: apply create helper log file failed (path=%s): %v", helperLogPath, err2)
		}
	}

	helperArgs := []string{
		"--self-update-helper",
		"--target", exePath,
		"--source", newBinPath,
		"--parent-pid", fmt.Sprintf("%d", os.Getpid()),
		"--cleanup", tmpDir,
		"--helper-log", helperLogPath,
		"--restart",
		"--",
	}
	helperArgs = append(helperArgs, os.Args[1:]...)

	cmd := exec.Command(exePath, helperArgs...)
	if f, err := os.OpenFile(helperLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
		// Note: do not close `f` here. The parent process exits shortly after
		// starting the helper, and closing the writer early would stop the
		// stdout/stderr tee goroutines from writing.
		cmd.Stdout = io.MultiWriter(os.Stdout, f)
		cmd.Stderr = io.MultiWriter(os.Stderr, f)
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		log.Printf("update: apply open helper log file for stdout/stderr failed (path=%s): %v", helperLogPath, err)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("update: apply start helper failed: %v", err)
		_ = os.RemoveAll(tmpDir)
		errV2(c, http.StatusInternalServerError, CodeInternal, "Internal error", err.Error())
		return
	}
	log.Printf("update: apply helper started (pid=%d) helper_log=%s", cmd.Process.Pid, helperLogPath)

	okV2(c, updateApplyResponse{
		OK:            true,
		TargetVersion: core.NormalizeTag(latest),
		Message:       "update started; restarting",
		HelperPID:     cmd.Process.Pid,
		HelperLogPath: helperLogPath,
	})

	if f, ok := c.Writer.(http.Flusher); ok {
		f.Flush()
	}

	go func() {
		// Give the client time to receive and render the response before shutting down.
		time.Sleep(5 * time.Second)
		if shutdownChan != nil {
			log.Printf("update: apply triggering shutdown via channel")
			shutdownChan <- true
			return
		}
		log.Printf("update: apply cannot shutdown (shutdown channel not set)")
	}()
}

func ensureWritableFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_ = f.Close()
	return nil
}

func verifyUpdateCode(code string) error {
	code = strings.TrimSpace(code)

	updateMgr.mu.RLock()
	stored := updateMgr.code
	expiresAt := updateMgr.expiresAt
	updateMgr.mu.RUnlock()

	if stored == "" {
		return errors.New("no update code generated; please generate one first")
	}
	if time.Now().After(expiresAt) {
		updateMgr.mu.Lock()
		updateMgr.code = ""
		updateMgr.mu.Unlock()
		return errors.New("update code expired; please generate a new one")
	}
	if code != stored {
		return errors.New("invalid update code")
	}

	updateMgr.mu.Lock()
	updateMgr.code = ""
	updateMgr.mu.Unlock()
	return nil
}

func generateSixDigitCode() (string, error) {
	nBig, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", nBig.Int64()), nil
}

func isVersionNewer(latest, current string) bool {
	lt, okL := core.ParseVersion(latest)
	ct, okC := core.ParseVersion(current)
	if !okL || !okC {
		return false
	}
	return lt.Newer(ct)
}

func downloadFile(ctx context.Context, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	client := service.NewUpdateHTTPClient(2 * time.Minute)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("download error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

func extractBinary(archivePath, tmpDir, goos string) (string, error) {
	lower := strings.ToLower(archivePath)
	if strings.HasSuffix(lower, ".zip") {
		return extractZipBinary(archivePath, tmpDir, goos)
	}
	if strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz") {
		return extractTarGzBinary(archivePath, tmpDir, goos)
	}
	return "", fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath))
}

func extractZipBinary(path, tmpDir, goos string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	wantName := "zodiac"
	if goos == "windows" {
		wantName = "zodiac.exe"
	}

	var best *zip.File
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		base := strings.ToLower(filepath.Base(f.Name))
		if base == wantName {
			best = f
			break
		}
		if best == nil && strings.Contains(base, "zodiac") {
			best = f
		}
	}
	if best == nil {
		return "", errors.New("zip archive does not contain zodiac binary")
	}

	rc, err := best.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	outPath := filepath.Join(tmpDir, filepath.Base(wantName))
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return "", err
	}

	return outPath, nil
}

func extractTarGzBinary(path, tmpDir, goos string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return "", err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	wantName := "zodiac"
	if goos == "windows" {
		wantName = "zodiac.exe"
	}

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if hdr.FileInfo().IsDir() {
			continue
		}
		base := strings.ToLower(filepath.Base(hdr.Name))
		if base != wantName {
			continue
		}

		outPath := filepath.Join(tmpDir, filepath.Base(wantName))
		out, err := os.Create(outPath)
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(out, tr); err != nil {
			_ = out.Close()
			return "", err
		}
		_ = out.Close()
		return outPath, nil
	}

	return "", errors.New("tar.gz archive does not contain zodiac binary")
}
