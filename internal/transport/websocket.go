package transport

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"canvassync/internal/handlers"
	"canvassync/internal/middleware"
	"canvassync/internal/room"
	"canvassync/internal/session"

	"github.com/gorilla/websocket"
)

// Keepalive timing
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Handler upgrades HTTP requests and relays frames between room members
type Handler struct {
	upgrader websocket.Upgrader
	rooms    *room.Manager
	sessions *session.Manager
	router   *handlers.MessageRouter
	limits   *middleware.RateLimit
}

// NewHandler: an empty domains list accepts any origin
func NewHandler(domains []string, rooms *room.Manager, sessions *session.Manager, limits *middleware.RateLimit) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin(domains)},
		rooms:    rooms,
		sessions: sessions,
		router:   handlers.NewMessageRouter(),
		limits:   limits,
	}
}

// CORS
func checkOrigin(domains []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(domains))
	for _, d := range domains {
		if d = strings.TrimSpace(d); d != "" {
			allowed[d] = true
		}
	}
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		return allowed[r.Header.Get("Origin")]
	}
}

// ServeHTTP joins the room named by ?room= before upgrading, so a full
// room or server is reported as a plain HTTP error.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomCode := r.URL.Query().Get("room")
	if roomCode == "" {
		roomCode = room.DefaultRoom
	}

	s := h.sessions.Create()
	rm, err := h.rooms.JoinRoom(roomCode, s, h.limits)
	if err != nil {
		h.sessions.Remove(s)
		log.Printf("Error: Connection to room (%s) - %v", roomCode, err)
		status := http.StatusServiceUnavailable
		if errors.Is(err, room.ErrRoomFull) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rm.Disconnect(s)
		h.sessions.Remove(s)
		log.Println("Error upgrading connection -", err)
		return
	}
	log.Printf("Session %s joined room %s", s.ID, roomCode)

	go h.writePump(conn, s)
	h.readPump(conn, rm, s)

	rm.Disconnect(s)
	h.sessions.Remove(s)
	log.Printf("Session %s left room %s", s.ID, roomCode)
}

// readPump handles the message loop for one connection until it dies
func (h *Handler) readPump(conn *websocket.Conn, rm *room.Room, s *session.Session) {
	defer conn.Close()

	if h.limits.MaxMessageSize > 0 {
		// Oversized frames are dropped below; far larger ones end the connection.
		conn.SetReadLimit(int64(h.limits.MaxMessageSize) * 2)
	}
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Error: Reading message from session %s: %v", s.ID, err)
			}
			return
		}

		if !h.limits.ValidateMessageSize(len(msg)) {
			log.Printf("Message too large from session %s: %d bytes", s.ID, len(msg))
			continue
		}

		if !s.Allow() {
			log.Printf("Rate limit exceeded for session: %s", s.ID)
			continue
		}

		if err := h.router.Route(rm, s, msg); err != nil {
			log.Printf("Error handling message from session %s: %v", s.ID, err)
			continue
		}
	}
}

// writePump is the only writer on conn. It stops when the session closes,
// which also happens when the room evicts a receiver that cannot keep up.
func (h *Handler) writePump(conn *websocket.Conn, s *session.Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg := <-s.Outbox():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
