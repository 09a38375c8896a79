package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	ErrQueueFull = errors.New("send queue full")
	ErrClosed    = errors.New("session closed")
)

// Session is a connected participant. It has no identity beyond the
// connection itself; the ID only labels log lines and membership entries.
type Session struct {
	ID          string
	RateLimiter *rate.Limiter

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a session with a bounded send queue
func New(queueSize int, limiter *rate.Limiter) *Session {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Session{
		ID:          uuid.NewString(),
		RateLimiter: limiter,
		send:        make(chan []byte, queueSize),
		done:        make(chan struct{}),
	}
}

// Enqueue hands a frame to the writer without blocking. Frames are written
// in the order they were enqueued.
func (s *Session) Enqueue(msg []byte) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	select {
	case s.send <- msg:
		return nil
	case <-s.done:
		return ErrClosed
	default:
		return ErrQueueFull
	}
}

// Outbox is drained by the connection's writer
func (s *Session) Outbox() <-chan []byte {
	return s.send
}

// Allow: reports whether the session may send another message now
func (s *Session) Allow() bool {
	if s.RateLimiter == nil {
		return true
	}
	return s.RateLimiter.Allow()
}

// Close is idempotent
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Done is closed once the session is closed
func (s *Session) Done() <-chan struct{} {
	return s.done
}
