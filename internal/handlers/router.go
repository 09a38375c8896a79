package handlers

import (
	"fmt"

	"canvassync/internal/protocol"
	"canvassync/internal/session"
)

// MessageRouter routes incoming frames to the relay by event type
type MessageRouter struct {
	canvasHandler     *CanvasHandler
	annotationHandler *AnnotationHandler
}

func NewMessageRouter() *MessageRouter {
	return &MessageRouter{
		canvasHandler:     NewCanvasHandler(),
		annotationHandler: NewAnnotationHandler(),
	}
}

// Route: process a frame via appropriate handler. Only the type field is
// read; payloads travel on untouched.
func (mr *MessageRouter) Route(rm Relay, s *session.Session, frame []byte) error {
	messageType, err := protocol.EventType(frame)
	if err != nil {
		return err
	}

	switch messageType {
	case protocol.EventCanvasImage:
		return mr.canvasHandler.Handle(rm, s, frame)
	case protocol.EventAddText:
		return mr.annotationHandler.Handle(rm, s, frame)
	default:
		return fmt.Errorf("%w: %s", protocol.ErrUnknownEvent, messageType)
	}
}
