package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager owns the live sessions, keyed by session id. Sessions are created
// on first touch and expired by the janitor sweep after the configured idle
// TTL; the relational store keeps the durable audit trail, not the manager.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	sessionTTL time.Duration
	requestTTL time.Duration
}

// NewManager creates a session manager.
func NewManager(sessionTTL, requestTTL time.Duration) *Manager {
	return &Manager{
		sessions:   make(map[string]*Session),
		sessionTTL: sessionTTL,
		requestTTL: requestTTL,
	}
}

// Get returns the session for id, creating and initializing it if absent.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s := m.sessions[id]
	m.mu.RUnlock()
	if s != nil {
		s.EnsureInitialized()
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s = m.sessions[id]; s == nil {
		s = &Session{ID: id}
		m.sessions[id] = s
	}
	s.EnsureInitialized()
	return s
}

// NewID generates a fresh session identifier.
func (m *Manager) NewID() string {
	return uuid.New().String()
}

// Sweep evicts stale terminal request entries and idle sessions. Called
// periodically by the janitor; also usable directly from tests.
func (m *Manager) Sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.sweepRequests(now, m.requestTTL)
		if m.sessionTTL > 0 && s.idleSince(now) > m.sessionTTL {
			delete(m.sessions, id)
		}
	}
}

// StartJanitor runs Sweep on the given interval until stop is closed.
func (m *Manager) StartJanitor(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				m.Sweep(now)
			}
		}
	}()
}
