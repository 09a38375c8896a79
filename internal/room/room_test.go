package room

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"canvassync/internal/middleware"
	"canvassync/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queued(s *session.Session) []string {
	var out []string
	for {
		select {
		case m := <-s.Outbox():
			out = append(out, string(m))
		default:
			return out
		}
	}
}

func connected(t *testing.T, r *Room, n int) []*session.Session {
	t.Helper()
	out := make([]*session.Session, n)
	for i := range out {
		out[i] = session.New(64, nil)
		require.NoError(t, r.Connect(out[i], 0))
	}
	return out
}

func TestFanOutExcludesSender(t *testing.T) {
	r := New("r", NewMembers(), nil)
	s := connected(t, r, 3)

	assert.Equal(t, 2, r.CanvasUpdate(s[0], []byte("snap")))
	assert.Equal(t, 2, r.Annotation(s[1], []byte("text")))

	assert.Equal(t, []string{"text"}, queued(s[0]))
	assert.Equal(t, []string{"snap"}, queued(s[1]))
	assert.Equal(t, []string{"snap", "text"}, queued(s[2]))
}

func TestFramesForwardedUnchanged(t *testing.T) {
	r := New("r", NewMembers(), nil)
	s := connected(t, r, 2)

	frame := []byte(`{"type":"canvasImage","data":"data:image/png;base64,AAAA"}`)
	r.CanvasUpdate(s[0], frame)

	got := <-s[1].Outbox()
	assert.Equal(t, frame, got)
}

func TestPerSenderOrderPreserved(t *testing.T) {
	r := New("r", NewMembers(), nil)
	s := connected(t, r, 3)

	var wg sync.WaitGroup
	for _, sender := range s[:2] {
		wg.Add(1)
		go func(sender *session.Session) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				r.CanvasUpdate(sender, []byte(fmt.Sprintf("%s/%02d", sender.ID, i)))
			}
		}(sender)
	}
	wg.Wait()

	got := queued(s[2])
	require.Len(t, got, 40)

	next := map[string]int{}
	for _, m := range got {
		var id string
		var seq int
		_, err := fmt.Sscanf(m[len(m)-2:], "%02d", &seq)
		require.NoError(t, err)
		id = m[:len(m)-3]
		assert.Equal(t, next[id], seq, "sender %s out of order", id)
		next[id] = seq + 1
	}
}

func TestDisconnectStopsDelivery(t *testing.T) {
	r := New("r", NewMembers(), nil)
	s := connected(t, r, 2)

	r.Disconnect(s[1])
	assert.Equal(t, 0, r.CanvasUpdate(s[0], []byte("snap")))
	assert.Empty(t, queued(s[1]))
	assert.Equal(t, 1, r.ConnectionCount())
}

func TestStuckReceiverIsEvicted(t *testing.T) {
	r := New("r", NewMembers(), nil)
	fast := connected(t, r, 2)
	slow := session.New(1, nil)
	require.NoError(t, r.Connect(slow, 0))

	r.CanvasUpdate(fast[0], []byte("1"))
	r.CanvasUpdate(fast[0], []byte("2"))

	assert.Equal(t, []string{"1", "2"}, queued(fast[1]))
	assert.Equal(t, 2, r.ConnectionCount())
	select {
	case <-slow.Done():
	default:
		t.Fatal("slow session not closed")
	}
}

func TestRoomFull(t *testing.T) {
	r := New("r", NewMembers(), nil)
	require.NoError(t, r.Connect(session.New(1, nil), 1))
	assert.ErrorIs(t, r.Connect(session.New(1, nil), 1), ErrRoomFull)
}

func TestLateJoinerStartsBlank(t *testing.T) {
	r := New("r", NewMembers(), nil)
	s := connected(t, r, 2)
	for i := 0; i < 5; i++ {
		r.CanvasUpdate(s[0], []byte(fmt.Sprintf("snap-%d", i)))
	}

	late := session.New(8, nil)
	require.NoError(t, r.Connect(late, 0))
	assert.Empty(t, queued(late), "no state is transferred to a joiner")

	r.CanvasUpdate(s[1], []byte("next"))
	assert.Equal(t, []string{"next"}, queued(late))
}

func TestReplayHandsLastSnapshotToJoiner(t *testing.T) {
	r := New("r", NewMembers(), NewSynchronizer())
	s := connected(t, r, 2)
	r.CanvasUpdate(s[0], []byte("snap-1"))
	r.Annotation(s[0], []byte("text"))
	r.CanvasUpdate(s[1], []byte("snap-2"))

	late := session.New(8, nil)
	require.NoError(t, r.Connect(late, 0))
	assert.Equal(t, []string{"snap-2"}, queued(late))
}

func TestReplayIncludesTextAfterSnapshot(t *testing.T) {
	r := New("r", NewMembers(), NewSynchronizer())
	s := connected(t, r, 2)
	r.Annotation(s[0], []byte("text-0"))
	r.CanvasUpdate(s[0], []byte("snap-1"))
	r.Annotation(s[1], []byte("text-1"))
	r.Annotation(s[0], []byte("text-2"))

	late := session.New(8, nil)
	require.NoError(t, r.Connect(late, 0))
	assert.Equal(t, []string{"snap-1", "text-1", "text-2"}, queued(late))
}

func TestReplayWithoutSnapshotSendsText(t *testing.T) {
	r := New("r", NewMembers(), NewSynchronizer())
	s := connected(t, r, 1)
	r.Annotation(s[0], []byte("hello"))

	late := session.New(8, nil)
	require.NoError(t, r.Connect(late, 0))
	assert.Equal(t, []string{"hello"}, queued(late))
}

func TestReplayKeepsNewestAnnotations(t *testing.T) {
	syncer := NewSynchronizer()
	syncer.Remember([]byte("snap"))
	for i := 0; i < MaxReplayAnnotations+2; i++ {
		syncer.RememberAnnotation([]byte(fmt.Sprintf("text-%d", i)))
	}

	late := session.New(MaxReplayAnnotations+1, nil)
	require.NoError(t, syncer.SyncNewSession(late))
	got := queued(late)
	require.Len(t, got, MaxReplayAnnotations+1)
	assert.Equal(t, "snap", got[0])
	assert.Equal(t, "text-2", got[1])
	assert.Equal(t, fmt.Sprintf("text-%d", MaxReplayAnnotations+1), got[len(got)-1])
}

// recordingMembers wraps Members to show the set is injectable
type recordingMembers struct {
	*Members
	added []string
}

func (m *recordingMembers) Add(s *session.Session) {
	m.added = append(m.added, s.ID)
	m.Members.Add(s)
}

func TestManagerUsesInjectedMembership(t *testing.T) {
	var rec *recordingMembers
	rm := NewManager(false).WithMembership(func() Membership {
		rec = &recordingMembers{Members: NewMembers()}
		return rec
	})

	s := session.New(1, nil)
	r, err := rm.JoinRoom("", s, middleware.NewRateLimit(10, 10, 0, 0, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, DefaultRoom, r.Code)
	assert.Equal(t, []string{s.ID}, rec.added)
}

func TestManagerRoomLimit(t *testing.T) {
	rm := NewManager(false)
	rl := middleware.NewRateLimit(10, 1, 0, 0, 0, 0)

	_, err := rm.JoinRoom("a", session.New(1, nil), rl)
	require.NoError(t, err)
	_, err = rm.JoinRoom("a", session.New(1, nil), rl)
	require.NoError(t, err, "existing rooms do not count against the limit")
	_, err = rm.JoinRoom("b", session.New(1, nil), rl)
	assert.ErrorIs(t, err, ErrTooManyRooms)
	assert.Equal(t, 1, rm.RoomCount())
}

func TestManagerCleanup(t *testing.T) {
	rm := NewManager(false)
	busy, _ := rm.GetOrCreate("busy", 0)
	require.NoError(t, busy.Connect(session.New(1, nil), 0))
	_, _ = rm.GetOrCreate("empty", 0)

	now := time.Now()
	assert.Equal(t, 0, rm.cleanup(now))
	assert.Equal(t, 1, rm.cleanup(now.Add(2*time.Hour)))
	_, ok := rm.GetRoom("busy")
	assert.True(t, ok)

	assert.Zero(t, rm.cleanup(now.Add(25*time.Hour)), "a room with members is kept past its maximum age")
	assert.Equal(t, 1, rm.RoomCount())
}

func TestOldBusyRoomKeepsFanOutToNewJoiners(t *testing.T) {
	rm := NewManager(false)
	limits := middleware.NewRateLimit(0, 0, 0, 0, 0, 8)

	first := session.New(8, nil)
	art, err := rm.JoinRoom("art", first, limits)
	require.NoError(t, err)

	assert.Zero(t, rm.cleanup(time.Now().Add(25*time.Hour)))

	late := session.New(8, nil)
	again, err := rm.JoinRoom("art", late, limits)
	require.NoError(t, err)
	assert.Same(t, art, again)

	assert.Equal(t, 1, again.CanvasUpdate(late, []byte("frame")))
	assert.Equal(t, []string{"frame"}, queued(first))
}

func TestOldRoomExpiresOnceEmpty(t *testing.T) {
	rm := NewManager(false)
	s := session.New(1, nil)
	r, err := rm.JoinRoom("art", s, middleware.NewRateLimit(0, 0, 0, 0, 0, 1))
	require.NoError(t, err)
	r.Disconnect(s)

	assert.Equal(t, 1, rm.cleanup(time.Now().Add(25*time.Hour)))
	_, ok := rm.GetRoom("art")
	assert.False(t, ok)
}
