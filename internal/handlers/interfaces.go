package handlers

import (
	"canvassync/internal/session"
)

// Relay is the fan-out surface of a room
type Relay interface {
	CanvasUpdate(sender *session.Session, frame []byte) int
	Annotation(sender *session.Session, frame []byte) int
}
