package room

import (
	"errors"
	"sync"
	"time"

	"canvassync/internal/session"
)

var ErrRoomFull = errors.New("room is full")

// Room is one shared canvas: a membership set and nothing else, unless
// replay is enabled, in which case it also keeps the last canvasImage frame
// and the addText frames since.
type Room struct {
	Code        string
	members     Membership
	broadcaster *Broadcaster
	syncer      *Synchronizer
	LastActive  time.Time
	CreatedAt   time.Time
	mu          sync.RWMutex
}

// New creates a room over the given membership set
func New(code string, members Membership, syncer *Synchronizer) *Room {
	now := time.Now()
	return &Room{
		Code:        code,
		members:     members,
		broadcaster: NewBroadcaster(),
		syncer:      syncer,
		LastActive:  now,
		CreatedAt:   now,
	}
}

// Connect adds s to the room. The joiner starts from a blank canvas unless
// the room replays its last snapshot. Fan-out and joins hold the room lock,
// so a replayed snapshot is never queued behind a newer one.
func (r *Room) Connect(s *session.Session, maxRoomSize int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if maxRoomSize > 0 && r.members.Len() >= maxRoomSize {
		return ErrRoomFull
	}
	r.members.Add(s)
	r.LastActive = time.Now()

	if r.syncer != nil {
		if err := r.syncer.SyncNewSession(s); err != nil {
			r.members.Remove(s.ID)
			return err
		}
	}
	return nil
}

// Disconnect removes s. Remaining members are not notified.
func (r *Room) Disconnect(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.members.Remove(s.ID)
	r.LastActive = time.Now()
}

// CanvasUpdate forwards a canvasImage frame, unchanged, to everyone but the sender
func (r *Room) CanvasUpdate(sender *session.Session, frame []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.LastActive = time.Now()
	if r.syncer != nil {
		r.syncer.Remember(frame)
	}
	return r.broadcaster.Broadcast(r.members, frame, sender)
}

// Annotation forwards an addText frame, unchanged, to everyone but the sender
func (r *Room) Annotation(sender *session.Session, frame []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.LastActive = time.Now()
	if r.syncer != nil {
		r.syncer.RememberAnnotation(frame)
	}
	return r.broadcaster.Broadcast(r.members, frame, sender)
}

// ConnectionCount returns number of connections in room
func (r *Room) ConnectionCount() int {
	return r.members.Len()
}

// idle reports whether the room should be dropped by cleanup. Rooms with
// members never are.
func (r *Room) idle(now time.Time, emptyFor, maxAge time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.members.Len() > 0 {
		return false
	}
	inactive := now.Sub(r.LastActive) > emptyFor
	expired := now.Sub(r.CreatedAt) > maxAge
	return inactive || expired
}
