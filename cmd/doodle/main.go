// Command doodle joins a room as a headless participant: it draws a
// zig-zag stroke, optionally places a line of text, keeps applying
// everyone else's updates for a while, and saves the canvas as a PNG.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"canvassync/internal/canvas"
	"canvassync/internal/capture"
	"canvassync/internal/client"
	"canvassync/internal/palette"
	"canvassync/internal/protocol"
)

type options struct {
	url    string
	room   string
	width  int
	height int
	color  string
	pen    float64
	text   string
	out    string
	linger time.Duration
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("doodle", flag.ContinueOnError)
	fs.StringVar(&o.url, "url", "ws://localhost:8080/ws", "relay websocket url")
	fs.StringVar(&o.room, "room", "", "room code (server default when empty)")
	fs.IntVar(&o.width, "width", 800, "canvas width")
	fs.IntVar(&o.height, "height", 600, "canvas height")
	fs.StringVar(&o.color, "color", "", "pen color as #rrggbb (picked from the host name when empty)")
	fs.Float64Var(&o.pen, "pen", capture.DefaultWidth, "pen width")
	fs.StringVar(&o.text, "text", "", "text to place after the stroke")
	fs.StringVar(&o.out, "out", "doodle.png", "where to write the final canvas")
	fs.DurationVar(&o.linger, "linger", 5*time.Second, "how long to keep receiving updates")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.width <= 0 || o.height <= 0 {
		return o, errors.New("width and height must be positive")
	}
	return o, nil
}

func roomURL(base, room string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if room != "" {
		q := u.Query()
		q.Set("room", room)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// zigzag returns the points of a stroke across the canvas
func zigzag(w, h int) [][2]float64 {
	const teeth = 8
	pts := make([][2]float64, 0, teeth+1)
	for i := 0; i <= teeth; i++ {
		x := float64(w) * (0.1 + 0.8*float64(i)/teeth)
		y := float64(h) * 0.3
		if i%2 == 1 {
			y = float64(h) * 0.7
		}
		pts = append(pts, [2]float64{x, y})
	}
	return pts
}

func run(ctx context.Context, o options) error {
	surface, err := canvas.New(o.width, o.height)
	if err != nil {
		return err
	}
	outbound := make(chan protocol.Message, 64)
	c := capture.New(surface, outbound)

	color := o.color
	if color == "" {
		host, _ := os.Hostname()
		color = palette.ForName(fmt.Sprintf("%s-%d", host, os.Getpid()))
	}
	if err := c.SetPen(color, o.pen); err != nil {
		return fmt.Errorf("pen: %w", err)
	}

	addr, err := roomURL(o.url, o.room)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	conn, err := client.Dial(ctx, addr, c, outbound)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, o.linger)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- conn.Run(runCtx) }()

	pts := zigzag(o.width, o.height)
	if err := c.BeginStroke(capture.Mouse, pts[0][0], pts[0][1]); err != nil {
		return err
	}
	for _, p := range pts[1:] {
		if err := c.ContinueStroke(capture.Mouse, p[0], p[1]); err != nil {
			return err
		}
		time.Sleep(30 * time.Millisecond)
	}
	c.EndStroke(capture.Mouse)

	if o.text != "" {
		if err := c.PlaceAnnotation(o.text, float64(o.width)*0.1, float64(o.height)*0.15); err != nil {
			log.Printf("Annotation not placed: %v", err)
		}
	}

	if err := <-done; err != nil {
		log.Printf("Connection ended: %v", err)
	}
	if n := c.Dropped(); n > 0 {
		log.Printf("%d updates were not sent", n)
	}

	snap, err := c.Snapshot()
	if err != nil {
		return err
	}
	if err := os.WriteFile(o.out, snap, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", o.out, err)
	}
	log.Printf("Wrote %s", o.out)
	return nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, o); err != nil {
		log.Fatal(err)
	}
}
