package handlers

import (
	"canvassync/internal/session"
)

// CanvasHandler forwards canvasImage snapshots
type CanvasHandler struct{}

func NewCanvasHandler() *CanvasHandler {
	return &CanvasHandler{}
}

// Handle: no decoding, validation or storage happens here
func (h *CanvasHandler) Handle(rm Relay, s *session.Session, frame []byte) error {
	rm.CanvasUpdate(s, frame)
	return nil
}
