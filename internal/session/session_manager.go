package session

import (
	"sync"

	"golang.org/x/time/rate"
)

// Manager tracks live sessions
type Manager struct {
	sessions          map[string]*Session
	queueSize         int
	messagesPerSecond float64
	burstSize         int
	mu                sync.RWMutex
}

// NewManager: messagesPerSecond <= 0 disables per-session rate limiting
func NewManager(queueSize int, messagesPerSecond float64, burstSize int) *Manager {
	return &Manager{
		sessions:          make(map[string]*Session),
		queueSize:         queueSize,
		messagesPerSecond: messagesPerSecond,
		burstSize:         burstSize,
	}
}

// Create: registers a new session for a fresh connection
func (sm *Manager) Create() *Session {
	var limiter *rate.Limiter
	if sm.messagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(sm.messagesPerSecond), sm.burstSize)
	}
	s := New(sm.queueSize, limiter)

	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[s.ID] = s
	return s
}

// Remove: closes and forgets a session (called on disconnect)
func (sm *Manager) Remove(s *Session) {
	s.Close()

	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, s.ID)
}

// Count returns the number of live sessions
func (sm *Manager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}
