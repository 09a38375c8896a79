package room

import (
	"errors"
	"sync"
	"time"

	"canvassync/internal/middleware"
	"canvassync/internal/session"
)

// DefaultRoom is joined when no room code is given
const DefaultRoom = "default"

// Room lifetime
const (
	EmptyRoomTTL = 1 * time.Hour
	MaxRoomAge   = 24 * time.Hour
)

var ErrTooManyRooms = errors.New("server at maximum room capacity")

// Manager manages all rooms in the application
type Manager struct {
	rooms      map[string]*Room
	replay     bool
	newMembers func() Membership
	mu         sync.RWMutex
}

// NewManager: replay makes every room retain its last snapshot for joiners
func NewManager(replay bool) *Manager {
	return &Manager{
		rooms:      make(map[string]*Room),
		replay:     replay,
		newMembers: func() Membership { return NewMembers() },
	}
}

// WithMembership swaps the membership set constructor for new rooms
func (rm *Manager) WithMembership(fn func() Membership) *Manager {
	rm.newMembers = fn
	return rm
}

// GetOrCreate returns the room for code, creating it within the room limit
func (rm *Manager) GetOrCreate(code string, maxRooms int) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.getOrCreateLocked(code, maxRooms)
}

func (rm *Manager) getOrCreateLocked(code string, maxRooms int) (*Room, error) {
	if code == "" {
		code = DefaultRoom
	}
	if r, ok := rm.rooms[code]; ok {
		return r, nil
	}
	if maxRooms > 0 && len(rm.rooms) >= maxRooms {
		return nil, ErrTooManyRooms
	}

	var syncer *Synchronizer
	if rm.replay {
		syncer = NewSynchronizer()
	}
	r := New(code, rm.newMembers(), syncer)
	rm.rooms[code] = r
	return r, nil
}

// JoinRoom connects a session to a room, creating the room if necessary.
// The manager lock is held across the connect so cleanup cannot drop the
// room between lookup and join.
func (rm *Manager) JoinRoom(code string, s *session.Session, rl *middleware.RateLimit) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	r, err := rm.getOrCreateLocked(code, rl.MaxRooms)
	if err != nil {
		return nil, err
	}
	if err := r.Connect(s, rl.MaxRoomSize); err != nil {
		return nil, err
	}
	return r, nil
}

// GetRoom: checks if a room exists and returns it
func (rm *Manager) GetRoom(code string) (*Room, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	r, ok := rm.rooms[code]
	return r, ok
}

// Cleanup removes empty rooms that have been idle for an hour or were
// created more than a day ago. Rooms with members are never removed.
func (rm *Manager) Cleanup() int {
	return rm.cleanup(time.Now())
}

func (rm *Manager) cleanup(now time.Time) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	removed := 0
	for code, r := range rm.rooms {
		if r.idle(now, EmptyRoomTTL, MaxRoomAge) {
			delete(rm.rooms, code)
			removed++
		}
	}
	return removed
}

// RoomCount returns the total number of rooms
func (rm *Manager) RoomCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return len(rm.rooms)
}
