package channel_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmanninglive/scrum-poker/pkg/channel"
	"github.com/gmanninglive/scrum-poker/pkg/protocol"
)

const eventWait = 5 * time.Second

// testHub is a miniature session hub speaking the scrum-poker wire
// protocol: the first frame on a connection is the bare display name, vote
// submissions are rebroadcast to every subscriber, and join/leave events
// carry the full roster.
type testHub struct {
	received chan []byte // frames the hub read after the announcement

	mu          sync.Mutex
	users       []string
	subscribers map[*subscriber]struct{}
}

type subscriber struct {
	msgs chan []byte
}

func newTestHub() *testHub {
	return &testHub{
		received:    make(chan []byte, 16),
		subscribers: make(map[*subscriber]struct{}),
	}
}

func (h *testHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	ctx := r.Context()

	// Loop until an unclaimed display name arrives; reject duplicates the
	// way the production hub does.
	var name string
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		if h.claim(string(data)) {
			name = string(data)
			break
		}

		frame, _ := json.Marshal(map[string]any{
			"type":    "error",
			"payload": map[string]string{"Error": "UsernameTaken"},
		})
		if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
			return
		}
	}
	defer h.release(name)

	sub := &subscriber{msgs: make(chan []byte, 16)}
	h.addSubscriber(sub)
	defer h.removeSubscriber(sub)

	h.broadcast("user_joined", map[string]string{"username": name})

	// The reader owns conn.Read after the announcement; done tells the
	// writer loop the client went away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}

			h.received <- data
			h.broadcast("user_voted", json.RawMessage(data))
		}
	}()

	for {
		select {
		case msg := <-sub.msgs:
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *testHub) claim(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, u := range h.users {
		if u == name {
			return false
		}
	}

	h.users = append(h.users, name)

	return true
}

func (h *testHub) release(name string) {
	h.mu.Lock()
	for i, u := range h.users {
		if u == name {
			h.users = append(h.users[:i], h.users[i+1:]...)
			break
		}
	}
	h.mu.Unlock()

	h.broadcast("user_left", map[string]string{"user": name})
}

func (h *testHub) addSubscriber(sub *subscriber) {
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
}

func (h *testHub) removeSubscriber(sub *subscriber) {
	h.mu.Lock()
	delete(h.subscribers, sub)
	h.mu.Unlock()
}

// broadcast fans a {"type":...,"payload":...,"users":[...]} frame out to
// every subscriber. Slow subscribers drop messages rather than block.
func (h *testHub) broadcast(typ string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	frame, err := json.Marshal(map[string]any{
		"type":    typ,
		"payload": payload,
		"users":   h.users,
	})
	if err != nil {
		panic(err)
	}

	for sub := range h.subscribers {
		select {
		case sub.msgs <- frame:
		default:
		}
	}
}

// broadcastRaw sends an arbitrary frame verbatim, for malformed-frame tests.
func (h *testHub) broadcastRaw(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		select {
		case sub.msgs <- data:
		default:
		}
	}
}

func startHub(t *testing.T) (*testHub, *httptest.Server) {
	t.Helper()

	hub := newTestHub()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, name string) *channel.Channel {
	t.Helper()

	ch, err := channel.New(srv.URL, "demo", channel.Options{Logf: t.Logf})
	require.NoError(t, err)
	t.Cleanup(ch.Close)

	require.NoError(t, ch.Connect(context.Background(), name))

	return ch
}

func nextEvent(t *testing.T, ch *channel.Channel) protocol.Event {
	t.Helper()

	select {
	case ev, ok := <-ch.Events():
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestConnect_AnnouncesAndJoins(t *testing.T) {
	hub, srv := startHub(t)
	ch := dial(t, srv, "alice")

	assert.Equal(t, channel.Open, ch.State())

	ev := nextEvent(t, ch)
	roster, ok := ev.(protocol.RosterEvent)
	require.True(t, ok, "want roster, got %T", ev)
	assert.Equal(t, []string{"alice"}, roster.Users)

	hub.mu.Lock()
	users := append([]string(nil), hub.users...)
	hub.mu.Unlock()
	assert.Equal(t, []string{"alice"}, users)
}

func TestConnect_Idempotent(t *testing.T) {
	_, srv := startHub(t)
	ch := dial(t, srv, "alice")

	// A second connect while open is a no-op, not a duplicate connection.
	require.NoError(t, ch.Connect(context.Background(), "alice"))
	assert.Equal(t, channel.Open, ch.State())
}

func TestSend_RoundTripsVote(t *testing.T) {
	hub, srv := startHub(t)
	ch := dial(t, srv, "alice")
	nextEvent(t, ch) // own join

	err := ch.Send(context.Background(), protocol.CastVote{User: "alice", Vote: 5})
	require.NoError(t, err)

	select {
	case data := <-hub.received:
		assert.JSONEq(t, `{"Vote":{"user":"alice","vote":5}}`, string(data))
	case <-time.After(eventWait):
		t.Fatal("hub never received the vote")
	}

	// The hub echoes the vote back to its sender.
	ev := nextEvent(t, ch)
	vote, ok := ev.(protocol.VoteEvent)
	require.True(t, ok, "want vote, got %T", ev)
	assert.Equal(t, protocol.VoteEvent{User: "alice", Vote: 5}, vote)
}

func TestSend_BeforeConnect(t *testing.T) {
	ch, err := channel.New("http://example.com", "demo", channel.Options{})
	require.NoError(t, err)

	err = ch.Send(context.Background(), protocol.CastVote{User: "alice", Vote: 1})
	assert.ErrorIs(t, err, channel.ErrNotOpen)
}

func TestMalformedFramesAreDropped(t *testing.T) {
	hub, srv := startHub(t)

	var (
		logMu   sync.Mutex
		dropped int
	)
	logf := func(format string, v ...any) {
		logMu.Lock()
		dropped++
		logMu.Unlock()
	}

	ch, err := channel.New(srv.URL, "demo", channel.Options{Logf: logf})
	require.NoError(t, err)
	t.Cleanup(ch.Close)
	require.NoError(t, ch.Connect(context.Background(), "alice"))

	nextEvent(t, ch) // own join

	hub.broadcastRaw([]byte("not json at all"))
	hub.broadcastRaw([]byte(`[1,2,3]`))
	hub.broadcastRaw([]byte(`{"users":["alice","bob"]}`))

	// The valid frame after the garbage still arrives.
	ev := nextEvent(t, ch)
	roster, ok := ev.(protocol.RosterEvent)
	require.True(t, ok, "want roster, got %T", ev)
	assert.Equal(t, []string{"alice", "bob"}, roster.Users)

	logMu.Lock()
	defer logMu.Unlock()
	assert.Equal(t, 2, dropped)
}

func TestIdentityRejected(t *testing.T) {
	_, srv := startHub(t)

	first := dial(t, srv, "alice")
	nextEvent(t, first)

	// A second connection claiming the same name is rejected but kept
	// open so the user can re-announce.
	dup := dial(t, srv, "alice")

	ev := nextEvent(t, dup)
	errEv, ok := ev.(protocol.ErrorEvent)
	require.True(t, ok, "want error, got %T", ev)
	assert.Equal(t, "UsernameTaken", errEv.Reason)
}

func TestServerClose_EndsEventStream(t *testing.T) {
	_, srv := startHub(t)
	ch := dial(t, srv, "alice")
	nextEvent(t, ch)

	srv.CloseClientConnections()

	select {
	case _, ok := <-ch.Events():
		if ok {
			// A stray frame may arrive before the close propagates;
			// drain until the stream ends.
			for range ch.Events() { //nolint:revive // draining
			}
		}
	case <-time.After(eventWait):
		t.Fatal("event stream never closed")
	}

	assert.Equal(t, channel.Closed, ch.State())
}

func TestClose_BeforeConnect(t *testing.T) {
	ch, err := channel.New("http://example.com", "demo", channel.Options{})
	require.NoError(t, err)

	ch.Close()
	ch.Close() // idempotent

	_, ok := <-ch.Events()
	assert.False(t, ok)
	assert.ErrorIs(t, ch.Connect(context.Background(), "alice"), channel.ErrClosed)
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://example.com", "ws://example.com/ws/abc"},
		{"https://example.com", "wss://example.com/ws/abc"},
		{"ws://example.com", "ws://example.com/ws/abc"},
		{"wss://example.com:8443", "wss://example.com:8443/ws/abc"},
		{"http://example.com/ignored/path", "ws://example.com/ws/abc"},
	}

	for _, tt := range tests {
		got, err := channel.EndpointURL(tt.base, "abc")
		require.NoError(t, err, tt.base)
		assert.Equal(t, tt.want, got, tt.base)
	}

	_, err := channel.EndpointURL("ftp://example.com", "abc")
	assert.Error(t, err)
}

func TestSessionID(t *testing.T) {
	assert.Equal(t, "abc-123", channel.SessionID("/session/abc-123"))
	assert.Equal(t, "abc-123", channel.SessionID("abc-123"))
}
