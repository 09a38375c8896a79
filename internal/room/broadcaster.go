package room

import (
	"log"

	"canvassync/internal/session"
)

// Broadcaster: fans a frame out to every member except the sender
type Broadcaster struct{}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Broadcast enqueues msg on each receiver's send queue. Enqueue never
// blocks, so one slow receiver cannot stall the sender or the others.
// Receivers whose queue is full or closed are evicted and closed.
// It returns the number of receivers the frame was queued for.
func (b *Broadcaster) Broadcast(members Membership, msg []byte, sender *session.Session) int {
	var failed []*session.Session
	delivered := 0

	for _, s := range members.Snapshot() {
		if s == sender {
			continue
		}
		if err := s.Enqueue(msg); err != nil {
			log.Printf("Broadcast failed for session %s: %v", s.ID, err)
			failed = append(failed, s)
			continue
		}
		delivered++
	}

	for _, s := range failed {
		members.Remove(s.ID)
		s.Close()
	}
	return delivered
}
