package handlers

import (
	"canvassync/internal/session"
)

// AnnotationHandler forwards addText events
type AnnotationHandler struct{}

func NewAnnotationHandler() *AnnotationHandler {
	return &AnnotationHandler{}
}

func (h *AnnotationHandler) Handle(rm Relay, s *session.Session, frame []byte) error {
	rm.Annotation(s, frame)
	return nil
}
