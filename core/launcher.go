package core

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// GameSession tracks one launched game process. The process belongs to the
// user; shutting zodiac down never kills it.
type GameSession struct {
	ID        string
	Binary    string
	StartedAt time.Time

	cmd  *exec.Cmd
	done chan struct{}
}

// PID returns the operating system process ID.
func (s *GameSession) PID() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Running reports whether the process has not yet exited.
func (s *GameSession) Running() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Stop terminates the game process.
func (s *GameSession) Stop() {
	if !s.Running() {
		return
	}
	if s.cmd != nil && s.cmd.Process != nil {
		if err := s.cmd.Process.Kill(); err != nil {
			log.Printf("launch: failed to kill pid %d: %v", s.cmd.Process.Pid, err)
		}
	}
}

// Wait blocks until the process exits.
func (s *GameSession) Wait() {
	<-s.done
}

// LaunchGame starts the game executable inside gamePath and hands process
// execution off to the OS. File redirection is the external loader's job;
// callers should check MissingLoaderDLLs beforehand and warn, but a missing
// loader does not block a vanilla launch.
func LaunchGame(id, gamePath string) (*GameSession, error) {
	binary := GameBinary(gamePath)
	if _, err := os.Stat(binary); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, binary)
	}

	cmd := exec.Command(binary)
	cmd.Dir = filepath.Dir(binary)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	session := &GameSession{
		ID:        id,
		Binary:    binary,
		StartedAt: time.Now(),
		cmd:       cmd,
		done:      make(chan struct{}),
	}

	// Reap the process in the background to avoid zombies.
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("launch: game process %d exited: %v", cmd.Process.Pid, err)
		}
		close(session.done)
	}()

	return session, nil
}
