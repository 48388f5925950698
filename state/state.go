package state

import (
	"sync"

	"zodiac/core"
)

// PendingPrompt is an update prompt awaiting a user response. It lives only
// in memory: an unanswered prompt simply reappears on the next start.
type PendingPrompt struct {
	RemoteVersion string
	ReleaseURL    string
	ReleaseNotes  string
	PublishedAt   string
}

// AppState holds shared runtime state: launched game sessions and the
// pending update prompt, if any.
type AppState struct {
	mu       sync.RWMutex
	sessions map[string]*core.GameSession
	prompt   *PendingPrompt
}

// Global is the shared application state instance
var Global = &AppState{
	sessions: make(map[string]*core.GameSession),
}

// AddSession registers a launched game session.
func (s *AppState) AddSession(session *core.GameSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

// GetSession fetches a session by ID.
func (s *AppState) GetSession(id string) (*core.GameSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Sessions returns a snapshot of all tracked sessions.
func (s *AppState) Sessions() []*core.GameSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.GameSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

// RemoveAndStopSession removes a session and stops its process. Stopping
// happens outside the lock to avoid holding it across a kill.
func (s *AppState) RemoveAndStopSession(id string) bool {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if ok {
		session.Stop()
	}
	return ok
}

// PruneExitedSessions drops sessions whose process has exited and returns
// how many were removed.
func (s *AppState) PruneExitedSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if !session.Running() {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// SetPendingPrompt stores the prompt produced by an update check; nil
// clears it.
func (s *AppState) SetPendingPrompt(p *PendingPrompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = p
}

// PendingPrompt returns the prompt awaiting a response, or nil.
func (s *AppState) PendingPrompt() *PendingPrompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompt
}
