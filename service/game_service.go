package service

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"zodiac/config"
	"zodiac/core"
	"zodiac/models"
	"zodiac/state"
)

// GameService handles everything that touches the installed game: paths,
// saves, archives, mod layout checks and launches.
type GameService struct {
	settings *SettingsService
	appState *state.AppState
}

func NewGameService(settings *SettingsService, appState *state.AppState) *GameService {
	return &GameService{settings: settings, appState: appState}
}

// Paths resolves the game and documents locations for the current
// configuration and Steam user.
func (s *GameService) Paths() (models.GamePathsRead, error) {
	gamePath := strings.TrimSpace(config.Settings.GamePath)
	if gamePath == "" {
		return models.GamePathsRead{}, fmt.Errorf("game path is not configured (set ZODIAC_GAME_PATH or --game-path)")
	}

	steamID := s.settings.EffectiveSteamID()
	docsDir, err := core.DocumentsDir(config.Settings.DocumentsDir, steamID)
	if err != nil {
		return models.GamePathsRead{}, err
	}

	missing := core.MissingLoaderDLLs(gamePath)
	iniFiles := make([]string, 0, 2)
	for _, name := range core.IniFiles() {
		iniFiles = append(iniFiles, filepath.Join(docsDir, name))
	}

	return models.GamePathsRead{
		GamePath:     gamePath,
		GameBinary:   core.GameBinary(gamePath),
		DocumentsDir: docsDir,
		SavesDir:     docsDir,
		IniFiles:     iniFiles,
		LoaderReady:  len(missing) == 0,
		MissingDLLs:  missing,
	}, nil
}

// ListSaves returns the save slots of the effective Steam user.
func (s *GameService) ListSaves() ([]models.SaveGameRead, error) {
	steamID := s.settings.EffectiveSteamID()
	docsDir, err := core.DocumentsDir(config.Settings.DocumentsDir, steamID)
	if err != nil {
		return nil, err
	}

	saves, err := core.ListSaves(docsDir)
	if err != nil {
		return nil, err
	}

	out := make([]models.SaveGameRead, 0, len(saves))
	for _, save := range saves {
		out = append(out, models.SaveGameRead{
			Slot:     save.Slot,
			Name:     save.Name(),
			Path:     save.Path,
			Size:     save.Size,
			SizeText: humanize.Bytes(uint64(save.Size)),
			Modified: save.Modified.Unix(),
		})
	}
	return out, nil
}

// ListArchives finds the VBF archives under the game directory.
func (s *GameService) ListArchives() ([]string, error) {
	gamePath := strings.TrimSpace(config.Settings.GamePath)
	if gamePath == "" {
		return nil, fmt.Errorf("game path is not configured")
	}
	return core.FindArchives(gamePath)
}

// ArchiveEntries lists the files inside one archive.
func (s *GameService) ArchiveEntries(archivePath string) ([]models.ArchiveEntryRead, error) {
	r, err := core.OpenArchive(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	entries := r.Entries()
	out := make([]models.ArchiveEntryRead, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.ArchiveEntryRead{
			Path: e.Path,
			Size: e.OriginalSize,
		})
	}
	return out, nil
}

// ExtractArchiveEntry unpacks one archive entry to destDir, preserving the
// entry's relative path.
func (s *GameService) ExtractArchiveEntry(archivePath, entryPath, destDir string) (string, error) {
	r, err := core.OpenArchive(archivePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	data, err := r.Unpack(entryPath)
	if err != nil {
		return "", err
	}

	outPath := filepath.Join(destDir, filepath.FromSlash(entryPath))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

// CheckModLayout inspects a staged mod directory and reports whether it
// matches the expected layout, with the fix actions that would repair it.
func (s *GameService) CheckModLayout(dir string) (models.ModCheckRead, error) {
	root, err := core.ScanModTree(dir)
	if err != nil {
		return models.ModCheckRead{}, err
	}

	status := core.CheckModLayout(root)
	result := models.ModCheckRead{Status: status.String()}

	if status == core.StatusFixable {
		// Plan against a fresh scan so the reported actions match what
		// FixModLayout would actually do.
		plan, err := core.ScanModTree(dir)
		if err != nil {
			return models.ModCheckRead{}, err
		}
		for _, action := range core.FixModLayout(plan) {
			result.Actions = append(result.Actions, models.ModActionRead{
				Kind: action.Kind,
				From: action.From,
				To:   action.To,
			})
		}
	}
	return result, nil
}

// FixModLayout repairs a staged mod directory in place and returns the
// actions applied.
func (s *GameService) FixModLayout(dir string) (models.ModCheckRead, error) {
	root, err := core.ScanModTree(dir)
	if err != nil {
		return models.ModCheckRead{}, err
	}

	if status := core.CheckModLayout(root); status != core.StatusFixable {
		return models.ModCheckRead{Status: status.String()}, nil
	}

	actions := core.FixModLayout(root)
	for _, action := range actions {
		if err := applyModAction(dir, action); err != nil {
			return models.ModCheckRead{}, fmt.Errorf("apply %s %s: %w", action.Kind, action.From, err)
		}
	}

	// Re-scan to report the resulting state.
	fixed, err := core.ScanModTree(dir)
	if err != nil {
		return models.ModCheckRead{}, err
	}
	result := models.ModCheckRead{Status: core.CheckModLayout(fixed).String()}
	for _, action := range actions {
		result.Actions = append(result.Actions, models.ModActionRead{
			Kind: action.Kind,
			From: action.From,
			To:   action.To,
		})
	}
	return result, nil
}

func applyModAction(dir string, action core.ModAction) error {
	from := filepath.Join(dir, filepath.FromSlash(action.From))
	switch action.Kind {
	case "move":
		to := filepath.Join(dir, filepath.FromSlash(action.To))
		return moveMerge(from, to)
	case "delete":
		return os.RemoveAll(from)
	default:
		return fmt.Errorf("unknown action kind %q", action.Kind)
	}
}

// moveMerge renames src to dst, merging directory contents when dst already
// exists as a directory. Files replace files.
func moveMerge(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	dstInfo, err := os.Stat(dst)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		return os.Rename(src, dst)
	}
	if err != nil {
		return err
	}

	if srcInfo.IsDir() && dstInfo.IsDir() {
		children, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := moveMerge(filepath.Join(src, child.Name()), filepath.Join(dst, child.Name())); err != nil {
				return err
			}
		}
		return os.Remove(src)
	}

	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

// Launch starts the game and registers the session.
func (s *GameService) Launch() (models.LaunchRead, error) {
	gamePath := strings.TrimSpace(config.Settings.GamePath)
	if gamePath == "" {
		return models.LaunchRead{}, fmt.Errorf("game path is not configured")
	}

	if missing := core.MissingLoaderDLLs(gamePath); len(missing) > 0 {
		log.Printf("launch: loader dlls missing, mods will not load: %s", strings.Join(missing, ", "))
		core.ErrorLoggerInstance.LogError("WARN", "launch", "loader dlls missing", strings.Join(missing, ", "))
	}

	session, err := core.LaunchGame(uuid.NewString(), gamePath)
	if err != nil {
		return models.LaunchRead{}, err
	}
	s.appState.AddSession(session)

	return sessionRead(session), nil
}

// Sessions lists tracked game sessions, pruning ones that already exited.
func (s *GameService) Sessions() []models.LaunchRead {
	s.appState.PruneExitedSessions()
	sessions := s.appState.Sessions()
	out := make([]models.LaunchRead, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, sessionRead(session))
	}
	return out
}

// StopSession terminates a tracked game session.
func (s *GameService) StopSession(id string) error {
	if !s.appState.RemoveAndStopSession(id) {
		return core.ErrSessionNotFound
	}
	return nil
}

func sessionRead(session *core.GameSession) models.LaunchRead {
	return models.LaunchRead{
		ID:        session.ID,
		PID:       session.PID(),
		Binary:    session.Binary,
		StartedAt: session.StartedAt.Unix(),
		Running:   session.Running(),
	}
}
