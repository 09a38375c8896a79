package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Channel event names
const (
	EventCanvasImage = "canvasImage"
	EventAddText     = "addText"
)

const snapshotPrefix = "data:image/png;base64,"

var (
	ErrUnknownEvent    = errors.New("unknown event type")
	ErrMissingType     = errors.New("missing message type")
	ErrMalformedImage  = errors.New("malformed canvas image")
	ErrMissingSnapshot = errors.New("missing snapshot payload")
)

// Snapshot: PNG encoding of the full canvas. Every snapshot replaces the
// whole surface; there is no delta form.
type Snapshot []byte

// Annotation: one text placement at an absolute canvas coordinate.
// Width/Height are the emitter's canvas size when set.
type Annotation struct {
	Text   string  `json:"text" validate:"required,max=1000"`
	X      float64 `json:"x" validate:"min=-1000000,max=1000000"`
	Y      float64 `json:"y" validate:"min=-1000000,max=1000000"`
	Color  string  `json:"color,omitempty" validate:"omitempty,max=50"`
	Width  int     `json:"w,omitempty" validate:"omitempty,min=1,max=100000"`
	Height int     `json:"h,omitempty" validate:"omitempty,min=1,max=100000"`
}

// Envelope is the frame sent over the channel
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Message is the decoded form of an Envelope. Exactly one of Snapshot or
// Annotation is set, matching Event.
type Message struct {
	Event      string
	Snapshot   Snapshot
	Annotation *Annotation
}

// CanvasImage builds a canvasImage message
func CanvasImage(s Snapshot) Message {
	return Message{Event: EventCanvasImage, Snapshot: s}
}

// AddText builds an addText message
func AddText(a Annotation) Message {
	return Message{Event: EventAddText, Annotation: &a}
}

// EventType reads only the type field of a frame.
func EventType(frame []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &head); err != nil {
		return "", fmt.Errorf("unmarshal base message: %w", err)
	}
	if head.Type == "" {
		return "", ErrMissingType
	}
	return head.Type, nil
}

// Encode marshals a message into a wire frame
func Encode(m Message) ([]byte, error) {
	var data any
	switch m.Event {
	case EventCanvasImage:
		if len(m.Snapshot) == 0 {
			return nil, ErrMissingSnapshot
		}
		data = EncodeDataURL(m.Snapshot)
	case EventAddText:
		if m.Annotation == nil {
			return nil, errors.New("missing annotation payload")
		}
		data = m.Annotation
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, m.Event)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", m.Event, err)
	}
	frame, err := json.Marshal(Envelope{Type: m.Event, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return frame, nil
}

// Decode parses a wire frame. Image payloads are unwrapped from their data
// URL but not decoded as PNG; that happens when the canvas applies them.
func Decode(frame []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Message{}, fmt.Errorf("unmarshal base message: %w", err)
	}

	switch env.Type {
	case "":
		return Message{}, ErrMissingType
	case EventCanvasImage:
		var url string
		if err := json.Unmarshal(env.Data, &url); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformedImage, err)
		}
		snap, err := DecodeDataURL(url)
		if err != nil {
			return Message{}, err
		}
		return CanvasImage(snap), nil
	case EventAddText:
		var a Annotation
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return Message{}, fmt.Errorf("unmarshal annotation: %w", err)
		}
		return AddText(a), nil
	default:
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownEvent, env.Type)
	}
}

// EncodeDataURL wraps PNG bytes the way a browser canvas toDataURL does
func EncodeDataURL(s Snapshot) string {
	return snapshotPrefix + base64.StdEncoding.EncodeToString(s)
}

// DecodeDataURL unwraps a PNG data URL
func DecodeDataURL(url string) (Snapshot, error) {
	payload, ok := strings.CutPrefix(url, snapshotPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: not a png data url", ErrMalformedImage)
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImage, err)
	}
	if len(b) == 0 {
		return nil, ErrMissingSnapshot
	}
	return Snapshot(b), nil
}
