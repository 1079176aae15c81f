package workspace

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type session struct {
	ws       *Workspace
	lastSeen time.Time
}

// Manager owns the workspaces of all live sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// Create starts a new session with a fresh workspace.
func (m *Manager) Create() (string, *Workspace) {
	id := uuid.NewString()
	ws := New()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = &session{ws: ws, lastSeen: m.now()}
	return id, ws
}

// Get returns the workspace of a session and refreshes its last access.
func (m *Manager) Get(id string) (*Workspace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastSeen = m.now()
	return s.ws, true
}

// GetOrCreate returns the workspace for id, creating it when a valid token
// outlived its evicted session.
func (m *Manager) GetOrCreate(id string) *Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		s = &session{ws: New()}
		m.sessions[id] = s
	}
	s.lastSeen = m.now()
	return s.ws
}

// Delete ends a session.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Cleanup evicts sessions idle for longer than maxAge and returns how many
// were removed.
func (m *Manager) Cleanup(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	removed := 0
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
