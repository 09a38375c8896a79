package room

import (
	"sync"

	"canvassync/internal/session"
)

// Membership is the set of sessions connected to a room. Snapshot must be
// safe to iterate while other goroutines Add and Remove.
type Membership interface {
	Add(s *session.Session)
	Remove(id string) bool
	Snapshot() []*session.Session
	Len() int
}

// Members is the default Membership: session ID → session
type Members struct {
	sessions map[string]*session.Session
	mu       sync.RWMutex
}

func NewMembers() *Members {
	return &Members{sessions: make(map[string]*session.Session)}
}

func (m *Members) Add(s *session.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Remove reports whether id was a member
func (m *Members) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Snapshot: returns a copy of current members (for broadcasting)
func (m *Members) Snapshot() []*session.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*session.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

func (m *Members) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
