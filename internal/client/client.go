// Package client connects a Capturer to a relay. Local updates queued on the
// outbound channel are written to the socket; inbound frames are applied to
// the canvas. Nothing is acknowledged or retried.
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"canvassync/internal/capture"
	"canvassync/internal/protocol"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Conn is one participant's connection to a relay
type Conn struct {
	ws       *websocket.Conn
	capturer *capture.Capturer
	outbound <-chan protocol.Message
}

// Dial opens a websocket to url. outbound should be the channel capturer
// emits on.
func Dial(ctx context.Context, url string, capturer *capture.Capturer, outbound <-chan protocol.Message) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Conn{ws: ws, capturer: capturer, outbound: outbound}, nil
}

// Run relays in both directions until ctx is done or the connection fails.
// Cancelling ctx closes the connection cleanly and returns nil.
func (c *Conn) Run(ctx context.Context) error {
	readErr := make(chan error, 1)
	go func() { readErr <- c.readLoop() }()

	for {
		select {
		case <-ctx.Done():
			c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			c.ws.Close()
			<-readErr
			return nil
		case err := <-readErr:
			c.ws.Close()
			return err
		case m := <-c.outbound:
			frame, err := protocol.Encode(m)
			if err != nil {
				log.Printf("Error encoding %s: %v", m.Event, err)
				continue
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.ws.Close()
				<-readErr
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}

// readLoop applies inbound frames. Frames that fail to decode or apply are
// dropped.
func (c *Conn) readLoop() error {
	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		m, err := protocol.Decode(frame)
		if err != nil {
			log.Printf("Dropping frame: %v", err)
			continue
		}
		if err := c.capturer.Receive(m); err != nil {
			log.Printf("Dropping %s: %v", m.Event, err)
		}
	}
}

// Close tears down the connection without a close handshake
func (c *Conn) Close() error {
	return c.ws.Close()
}
