package handlers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"zodiac/core"
	"zodiac/database"
	"zodiac/models"
	"zodiac/service"
	"zodiac/state"
	"zodiac/version"
)

// ShutdownManager manages shutdown confirmation codes
type ShutdownManager struct {
	code      string
	expiresAt time.Time
	mu        sync.RWMutex
}

var shutdownMgr = &ShutdownManager{}

// HealthCheck reports process and database health.
func HealthCheck(c *gin.Context) {
	sessionCount := len(state.Global.Sessions())

	sqlDB, err := database.DB.DB()
	dbHealthy := true
	if err != nil {
		dbHealthy = false
	} else if err := sqlDB.Ping(); err != nil {
		dbHealthy = false
	}

	health := gin.H{
		"status":     "healthy",
		"timestamp":  time.Now().Unix(),
		"version":    version.GetVersion(),
		"sessions":   sessionCount,
		"db_healthy": dbHealthy,
	}

	if !dbHealthy {
		health["status"] = "degraded"
		respondV2(c, http.StatusServiceUnavailable, CodeInternal, "Service degraded", health)
		return
	}

	okV2(c, health)
}

// GetPreferences returns the persisted plugin preferences.
func GetPreferences(c *gin.Context) {
	okV2(c, service.GlobalServices.Settings.Preferences())
}

// UpdatePreferences applies a partial preference update.
func UpdatePreferences(c *gin.Context) {
	var req models.PreferencesUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", err.Error())
		return
	}

	prefs, err := service.GlobalServices.Settings.Update(req)
	if err != nil {
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", err.Error())
		return
	}
	okV2(c, prefs)
}

// GetSteamID returns the effective Steam ID, auto-detecting when enabled.
func GetSteamID(c *gin.Context) {
	okV2(c, gin.H{"steam_id_64": service.GlobalServices.Settings.EffectiveSteamID()})
}

// GetPaths returns the resolved game and documents locations.
func GetPaths(c *gin.Context) {
	paths, err := service.GlobalServices.Game.Paths()
	if err != nil {
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", err.Error())
		return
	}
	okV2(c, paths)
}

// ListSaves lists the save slots of the effective Steam user.
func ListSaves(c *gin.Context) {
	saves, err := service.GlobalServices.Game.ListSaves()
	if err != nil {
		errV2(c, http.StatusInternalServerError, CodeInternal, "Internal error", err.Error())
		return
	}
	okV2(c, saves)
}

// ListArchives lists the VBF archives under the game directory.
func ListArchives(c *gin.Context) {
	archives, err := service.GlobalServices.Game.ListArchives()
	if err != nil {
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", err.Error())
		return
	}
	okV2(c, archives)
}

// GetArchiveEntries lists the files inside one archive.
func GetArchiveEntries(c *gin.Context) {
	path := strings.TrimSpace(c.Query("path"))
	if path == "" {
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", "path query parameter is required")
		return
	}

	entries, err := service.GlobalServices.Game.ArchiveEntries(path)
	if err != nil {
		if errors.Is(err, core.ErrBadArchive) {
			errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", err.Error())
			return
		}
		errV2(c, http.StatusInternalServerError, CodeInternal, "Internal error", err.Error())
		return
	}
	okV2(c, entries)
}

type archiveExtractRequest struct {
	Archive string `json:"archive" binding:"required"`
	Entry   string `json:"entry" binding:"required"`
	Dest    string `json:"dest" binding:"required"`
}

// ExtractArchiveEntry unpacks one archive entry to a destination directory.
func ExtractArchiveEntry(c *gin.Context) {
	var req archiveExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", err.Error())
		return
	}

	outPath, err := service.GlobalServices.Game.ExtractArchiveEntry(req.Archive, req.Entry, req.Dest)
	if err != nil {
		if errors.Is(err, core.ErrBadArchive) {
			errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", err.Error())
			return
		}
		errV2(c, http.StatusInternalServerError, CodeInternal, "Internal error", err.Error())
		return
	}
	okV2(c, gin.H{"path": outPath})
}

// CheckModLayout inspects a staged mod directory without changing it.
func CheckModLayout(c *gin.Context) {
	var req models.ModCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", err.Error())
		return
	}
	req.Normalize()

	result, err := service.GlobalServices.Game.CheckModLayout(req.Path)
	if err != nil {
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", err.Error())
		return
	}
	okV2(c, result)
}

// FixModLayout repairs a staged mod directory in place.
func FixModLayout(c *gin.Context) {
	var req models.ModCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", err.Error())
		return
	}
	req.Normalize()

	result, err := service.GlobalServices.Game.FixModLayout(req.Path)
	if err != nil {
		errV2(c, http.StatusInternalServerError, CodeInternal, "Internal error", err.Error())
		return
	}
	okV2(c, result)
}

// LaunchGame starts the game and registers a session.
func LaunchGame(c *gin.Context) {
	session, err := service.GlobalServices.Game.Launch()
	if err != nil {
		if errors.Is(err, core.ErrGameNotFound) {
			errV2(c, http.StatusNotFound, CodeNotFound, "Game binary not found", err.Error())
			return
		}
		errV2(c, http.StatusInternalServerError, CodeInternal, "Internal error", err.Error())
		return
	}
	okV2(c, session)
}

// ListSessions lists tracked game sessions.
func ListSessions(c *gin.Context) {
	okV2(c, service.GlobalServices.Game.Sessions())
}

// StopSession terminates a tracked game session.
func StopSession(c *gin.Context) {
	id := c.Param("id")
	if err := service.GlobalServices.Game.StopSession(id); err != nil {
		errV2(c, http.StatusNotFound, CodeNotFound, "Session not found", id)
		return
	}
	okV2(c, gin.H{"ok": true})
}

// GetErrorLogs returns recent in-memory error entries.
func GetErrorLogs(c *gin.Context) {
	okV2(c, core.ErrorLoggerInstance.Recent())
}

// ClearErrorLogs clears the in-memory error log.
func ClearErrorLogs(c *gin.Context) {
	core.ErrorLoggerInstance.Clear()
	okV2(c, gin.H{"ok": true})
}

// GenerateShutdownCode issues a short-lived confirmation code for shutdown.
func GenerateShutdownCode(c *gin.Context) {
	shutdownMgr.mu.Lock()
	defer shutdownMgr.mu.Unlock()

	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		errV2(c, http.StatusInternalServerError, CodeInternal, "Failed to generate code", "Failed to generate code")
		return
	}

	shutdownMgr.code = fmt.Sprintf("%06d", n.Int64())
	shutdownMgr.expiresAt = time.Now().Add(5 * time.Minute)

	okV2(c, gin.H{"code": shutdownMgr.code, "expires_at": shutdownMgr.expiresAt.Unix()})
}

// VerifyAndShutdown validates the confirmation code and shuts the app down
func VerifyAndShutdown(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", "Invalid request")
		return
	}

	shutdownMgr.mu.RLock()
	storedCode := shutdownMgr.code
	expiresAt := shutdownMgr.expiresAt
	shutdownMgr.mu.RUnlock()

	if storedCode == "" {
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "No shutdown code generated", "No shutdown code generated")
		return
	}

	if time.Now().After(expiresAt) {
		shutdownMgr.mu.Lock()
		shutdownMgr.code = ""
		shutdownMgr.mu.Unlock()
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Shutdown code expired", "Shutdown code expired")
		return
	}

	if req.Code != storedCode {
		errV2(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid shutdown code", "Invalid shutdown code")
		return
	}

	shutdownMgr.mu.Lock()
	shutdownMgr.code = ""
	shutdownMgr.mu.Unlock()

	okV2(c, gin.H{"ok": true})

	go func() {
		// Give clients time to receive the response.
		time.Sleep(500 * time.Millisecond)
		core.ErrorLoggerInstance.LogError("INFO", "system", "shutdown requested via API", "user initiated shutdown with confirmation code")
		if shutdownChan != nil {
			shutdownChan <- true
		}
	}()
}

// Global shutdown channel (must be initialized in main.go)
var shutdownChan chan bool

// SetShutdownChannel sets the shutdown channel
func SetShutdownChannel(ch chan bool) {
	shutdownChan = ch
}
