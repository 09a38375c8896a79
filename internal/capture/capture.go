// Package capture turns pointer input into strokes on the local canvas and
// applies remote updates to the same canvas.
//
// Drawing is optimistic: a segment is rasterized locally before its snapshot
// is handed to the outbound channel, and nothing waits on delivery.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"canvassync/internal/canvas"
	"canvassync/internal/protocol"
)

// Default pen, as the browser client starts
const (
	DefaultColor = "#000000"
	DefaultWidth = 5
)

// Surface is the raster the Capturer draws on. *canvas.Surface implements it.
type Surface interface {
	Width() int
	Height() int
	DrawSegment(x0, y0, x1, y1 float64, pen canvas.Pen) error
	DrawText(s string, x, y float64, color string) error
	Encode() (protocol.Snapshot, error)
	Replace(snap protocol.Snapshot) error
}

// Source is an input device class. Each source has its own stroke state.
type Source int

const (
	Mouse Source = iota
	Touch
	numSources
)

func (s Source) String() string {
	switch s {
	case Mouse:
		return "mouse"
	case Touch:
		return "touch"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

var ErrUnknownSource = errors.New("unknown input source")

type stroke struct {
	drawing bool
	x, y    float64
}

// Capturer owns one participant's canvas. All canvas writes, local or
// remote, go through mu.
type Capturer struct {
	mu        sync.Mutex
	surface   Surface
	validator *protocol.Validator
	pen       canvas.Pen
	strokes   [numSources]stroke
	outbound  chan<- protocol.Message
	dropped   int
}

// New creates a Capturer. outbound may be nil, in which case every emitted
// update is lost.
func New(surface Surface, outbound chan<- protocol.Message) *Capturer {
	return &Capturer{
		surface:   surface,
		validator: protocol.NewValidator(),
		pen:       canvas.Pen{Color: DefaultColor, Width: DefaultWidth},
		outbound:  outbound,
	}
}

// SetPen changes the color and width used by subsequent segments and text
func (c *Capturer) SetPen(color string, width float64) error {
	if err := c.validator.Pen(color, width); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pen = canvas.Pen{Color: color, Width: width}
	return nil
}

func (c *Capturer) Pen() canvas.Pen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pen
}

// Drawing reports whether src has an active stroke
func (c *Capturer) Drawing(src Source) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if src < 0 || src >= numSources {
		return false
	}
	return c.strokes[src].drawing
}

// Dropped counts outbound updates lost because no channel could take them
func (c *Capturer) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Snapshot encodes the canvas as it is now
func (c *Capturer) Snapshot() (protocol.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surface.Encode()
}

// BeginStroke anchors a stroke at (x, y). Calling it mid-stroke re-anchors.
func (c *Capturer) BeginStroke(src Source, x, y float64) error {
	if src < 0 || src >= numSources {
		return ErrUnknownSource
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.strokes[src] = stroke{drawing: true, x: x, y: y}
	return nil
}

// ContinueStroke draws from the anchor to (x, y), moves the anchor, and
// emits one full-canvas snapshot. It is a no-op while src is idle.
func (c *Capturer) ContinueStroke(src Source, x, y float64) error {
	if src < 0 || src >= numSources {
		return ErrUnknownSource
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	st := &c.strokes[src]
	if !st.drawing {
		return nil
	}

	if err := c.surface.DrawSegment(st.x, st.y, x, y, c.pen); err != nil {
		return fmt.Errorf("draw segment: %w", err)
	}
	st.x, st.y = x, y

	snap, err := c.surface.Encode()
	if err != nil {
		return fmt.Errorf("capture snapshot: %w", err)
	}
	c.emit(protocol.CanvasImage(snap))
	return nil
}

// EndStroke returns src to idle. Always legal.
func (c *Capturer) EndStroke(src Source) {
	if src < 0 || src >= numSources {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.strokes[src].drawing = false
}

// ReceiveSnapshot replaces the whole canvas. Active strokes keep their
// anchors; the next segment draws over the new base. A snapshot that fails
// to decode leaves the canvas as it was.
func (c *Capturer) ReceiveSnapshot(snap protocol.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surface.Replace(snap)
}

// ReceiveAnnotation draws remote text. It never emits.
func (c *Capturer) ReceiveAnnotation(a protocol.Annotation) error {
	a, err := c.validator.Annotation(a)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	x, y := a.X, a.Y
	if a.Width > 0 && a.Height > 0 {
		x *= float64(c.surface.Width()) / float64(a.Width)
		y *= float64(c.surface.Height()) / float64(a.Height)
	}

	color := c.pen.Color
	if a.Color != "" {
		if _, err := canvas.ParseColor(a.Color); err == nil {
			color = a.Color
		}
	}
	return c.surface.DrawText(a.Text, x, y, color)
}

// PlaceAnnotation draws text locally and emits one addText event. Empty
// text is rejected before anything is drawn or sent.
func (c *Capturer) PlaceAnnotation(text string, x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, err := c.validator.Annotation(protocol.Annotation{
		Text:   text,
		X:      x,
		Y:      y,
		Color:  c.pen.Color,
		Width:  c.surface.Width(),
		Height: c.surface.Height(),
	})
	if err != nil {
		return err
	}

	if err := c.surface.DrawText(a.Text, a.X, a.Y, a.Color); err != nil {
		return fmt.Errorf("draw text: %w", err)
	}
	c.emit(protocol.AddText(a))
	return nil
}

// Receive applies an inbound message of either kind
func (c *Capturer) Receive(m protocol.Message) error {
	switch m.Event {
	case protocol.EventCanvasImage:
		return c.ReceiveSnapshot(m.Snapshot)
	case protocol.EventAddText:
		if m.Annotation == nil {
			return errors.New("missing annotation payload")
		}
		return c.ReceiveAnnotation(*m.Annotation)
	default:
		return fmt.Errorf("%w: %s", protocol.ErrUnknownEvent, m.Event)
	}
}

// emit is fire-and-forget. Caller holds mu.
func (c *Capturer) emit(m protocol.Message) {
	if c.outbound == nil {
		c.dropped++
		return
	}
	select {
	case c.outbound <- m:
	default:
		c.dropped++
	}
}
