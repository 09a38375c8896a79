// Package canvas is the raster surface a participant draws on: line and text
// rasterization plus full-surface PNG encode and replace.
package canvas

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"sync"

	"canvassync/internal/protocol"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
)

// FontSize matches the browser client's "16px" text
const FontSize = 16

// MaxSnapshotPixels bounds the image size a snapshot may declare. Larger
// headers are rejected before any pixel buffer is allocated.
const MaxSnapshotPixels = 4096 * 4096

var ErrDecode = errors.New("snapshot decode failed")

var (
	fontOnce   sync.Once
	fontSource *text.FontSource
	fontErr    error
)

func loadFont() (*text.FontSource, error) {
	fontOnce.Do(func() {
		fontSource, fontErr = text.NewFontSource(goregular.TTF)
	})
	return fontSource, fontErr
}

// Pen is the stroke style captured at draw time
type Pen struct {
	Color string
	Width float64
}

// Surface wraps a gg drawing context. It is not safe for concurrent use;
// the owner serializes access.
type Surface struct {
	dc   *gg.Context
	face text.Face
}

// New creates a white surface of the given size
func New(width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}
	src, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}

	s := &Surface{
		dc:   gg.NewContext(width, height),
		face: src.Face(FontSize),
	}
	s.dc.SetFont(s.face)
	s.Clear()
	return s, nil
}

func (s *Surface) Width() int  { return s.dc.Width() }
func (s *Surface) Height() int { return s.dc.Height() }

// Clear paints the whole surface white
func (s *Surface) Clear() {
	s.dc.ClearWithColor(gg.White)
}

// DrawSegment strokes one line with round caps and joins
func (s *Surface) DrawSegment(x0, y0, x1, y1 float64, pen Pen) error {
	c, err := ParseColor(pen.Color)
	if err != nil {
		return err
	}

	s.dc.SetColor(c)
	s.dc.SetLineWidth(pen.Width)
	s.dc.SetLineCap(gg.LineCapRound)
	s.dc.SetLineJoin(gg.LineJoinRound)
	s.dc.DrawLine(x0, y0, x1, y1)
	if err := s.dc.Stroke(); err != nil {
		return fmt.Errorf("stroke segment: %w", err)
	}
	return nil
}

// DrawText fills str with its baseline at y
func (s *Surface) DrawText(str string, x, y float64, color string) error {
	c, err := ParseColor(color)
	if err != nil {
		return err
	}
	s.dc.SetColor(c)
	s.dc.DrawString(str, x, y)
	return nil
}

// Encode captures the entire surface as a snapshot
func (s *Surface) Encode() (protocol.Snapshot, error) {
	var buf bytes.Buffer
	if err := s.dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode canvas: %w", err)
	}
	return protocol.Snapshot(buf.Bytes()), nil
}

// Replace overwrites the whole surface with a decoded snapshot. A snapshot of
// a different size is scaled to this surface. On decode failure the surface
// is left untouched, as it is for snapshots declaring more than
// MaxSnapshotPixels.
func (s *Surface) Replace(snap protocol.Snapshot) error {
	cfg, err := png.DecodeConfig(bytes.NewReader(snap))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxSnapshotPixels {
		return fmt.Errorf("%w: declared size %dx%d out of range", ErrDecode, cfg.Width, cfg.Height)
	}

	img, err := png.Decode(bytes.NewReader(snap))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := image.Rect(0, 0, s.Width(), s.Height())
	if img.Bounds().Dx() != bounds.Dx() || img.Bounds().Dy() != bounds.Dy() {
		dst := image.NewRGBA(bounds)
		xdraw.BiLinear.Scale(dst, bounds, img, img.Bounds(), xdraw.Src, nil)
		img = dst
	}

	next := gg.NewContextForImage(img)
	next.SetFont(s.face)
	if err := s.dc.Close(); err != nil {
		log.Printf("Error closing replaced canvas context: %v", err)
	}
	s.dc = next
	return nil
}

// Image returns a copy of the current pixels
func (s *Surface) Image() image.Image {
	return s.dc.Image()
}

// ParseColor accepts #rgb and #rrggbb
func ParseColor(hex string) (colorful.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	return c, nil
}
