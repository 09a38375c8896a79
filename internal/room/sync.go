package room

import (
	"fmt"
	"sync"

	"canvassync/internal/session"
)

// MaxReplayAnnotations bounds the addText frames kept after the last
// snapshot. Past it the oldest are dropped.
const MaxReplayAnnotations = 128

// Synchronizer keeps the most recent canvasImage frame of a room, plus the
// addText frames that followed it, and hands them to late joiners. Without
// one, a joiner sees a blank canvas until the next update.
type Synchronizer struct {
	last        []byte
	annotations [][]byte
	mu          sync.RWMutex
}

func NewSynchronizer() *Synchronizer {
	return &Synchronizer{}
}

// Remember replaces the retained frame. Annotations drawn before it are
// part of the snapshot and are forgotten.
func (s *Synchronizer) Remember(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = frame
	s.annotations = nil
}

// RememberAnnotation retains an addText frame for replay after the snapshot
func (s *Synchronizer) RememberAnnotation(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.annotations) >= MaxReplayAnnotations {
		s.annotations = append(s.annotations[:0], s.annotations[1:]...)
	}
	s.annotations = append(s.annotations, frame)
}

// SyncNewSession queues the retained snapshot, if any, then the annotations
// that followed it, in arrival order
func (s *Synchronizer) SyncNewSession(sess *session.Session) error {
	s.mu.RLock()
	frames := make([][]byte, 0, len(s.annotations)+1)
	if s.last != nil {
		frames = append(frames, s.last)
	}
	frames = append(frames, s.annotations...)
	s.mu.RUnlock()

	for _, f := range frames {
		if err := sess.Enqueue(f); err != nil {
			return fmt.Errorf("failed to send sync frames: %w", err)
		}
	}
	return nil
}
