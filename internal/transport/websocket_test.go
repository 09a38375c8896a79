package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"canvassync/internal/middleware"
	"canvassync/internal/room"
	"canvassync/internal/session"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = `{"type":"canvasImage","data":"data:image/png;base64,iVBORw0KGgo="}`

func newServer(t *testing.T, domains []string, maxRoomSize int) *httptest.Server {
	t.Helper()
	limits := middleware.NewRateLimit(maxRoomSize, 10, 1<<20, 0, 0, 16)
	h := NewHandler(domains, room.NewManager(false), session.NewManager(16, 0, 0), limits)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, roomCode string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?room=" + roomCode
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(msg)
}

func assertSilent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, msg, err := conn.ReadMessage()
	assert.Error(t, err, "unexpected frame %q", msg)
}

func TestRelayFansOutToOthers(t *testing.T) {
	srv := newServer(t, nil, 0)
	a := dial(t, wsURL(srv, "r1"))
	b := dial(t, wsURL(srv, "r1"))
	c := dial(t, wsURL(srv, "r1"))
	other := dial(t, wsURL(srv, "r2"))

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(frame)))

	assert.Equal(t, frame, readFrame(t, b))
	assert.Equal(t, frame, readFrame(t, c))
	assertSilent(t, a)
	assertSilent(t, other)
}

func TestRelayDropsUnknownEvents(t *testing.T) {
	srv := newServer(t, nil, 0)
	a := dial(t, wsURL(srv, "r"))
	b := dial(t, wsURL(srv, "r"))

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"cursor","data":1}`)))
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	text := `{"type":"addText","data":{"text":"hi","x":1,"y":2}}`
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(text)))

	assert.Equal(t, text, readFrame(t, b))
}

func TestRelayPreservesSenderOrder(t *testing.T) {
	srv := newServer(t, nil, 0)
	a := dial(t, wsURL(srv, "r"))
	b := dial(t, wsURL(srv, "r"))

	frames := make([]string, 10)
	for i := range frames {
		frames[i] = `{"type":"addText","data":{"text":"` + strings.Repeat("x", i+1) + `","x":0,"y":0}}`
		require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(frames[i])))
	}
	for _, want := range frames {
		assert.Equal(t, want, readFrame(t, b))
	}
}

func TestRoomFullRejectedBeforeUpgrade(t *testing.T) {
	srv := newServer(t, nil, 1)
	dial(t, wsURL(srv, "r"))

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "r"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestOriginCheck(t *testing.T) {
	srv := newServer(t, []string{"https://ok.example"}, 0)

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "r"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://ok.example")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "r"), header)
	require.NoError(t, err)
	conn.Close()
}
