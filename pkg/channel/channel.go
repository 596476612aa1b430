// Package channel owns the single websocket connection between a client and
// a session hub. It translates local actions into outbound wire messages and
// inbound frames into typed protocol events, delivered in order on the
// Events stream.
//
// A Channel manages exactly one connection: once it closes, the instance is
// done. There is no automatic reconnect; callers that want retry behavior
// create a fresh Channel.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"github.com/gmanninglive/scrum-poker/pkg/protocol"
)

// State is the connection lifecycle state.
type State int

const (
	// Disconnected is the initial state before Connect is called.
	Disconnected State = iota

	// Connecting covers the dial and the identity announcement.
	Connecting

	// Open means the announcement was sent and the read loop is running.
	Open

	// Closed is terminal: the connection ended or Close was called.
	Closed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrNotOpen is returned by Send when the connection is not open.
var ErrNotOpen = errors.New("channel: connection not open")

// ErrClosed is returned by Connect after the channel has terminated.
var ErrClosed = errors.New("channel: closed")

// defaultEventBuffer mirrors the hub's per-subscriber message buffer.
const defaultEventBuffer = 16

// Options configures a Channel.
type Options struct {
	// Logf receives diagnostics such as dropped malformed frames.
	// Defaults to log.Printf.
	Logf func(format string, v ...any)

	// EventBuffer is the capacity of the Events stream. Defaults to 16.
	EventBuffer int
}

// Channel is one logical bidirectional connection to a session endpoint.
type Channel struct {
	url  string
	logf func(format string, v ...any)

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	started bool // the read loop owns closing events once it runs

	events    chan protocol.Event
	closeOnce sync.Once

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a Channel for the session-scoped endpoint derived from
// baseURL and sessionID. The connection is not dialed until Connect.
func New(baseURL, sessionID string, opts Options) (*Channel, error) {
	endpoint, err := EndpointURL(baseURL, sessionID)
	if err != nil {
		return nil, err
	}

	logf := opts.Logf
	if logf == nil {
		logf = log.Printf
	}

	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	return &Channel{
		url:    endpoint,
		logf:   logf,
		events: make(chan protocol.Event, buffer),
		done:   make(chan struct{}),
	}, nil
}

// EndpointURL builds the websocket endpoint <scheme>://<host>/ws/<id> from a
// base URL. The socket scheme mirrors the base scheme: https becomes wss,
// http becomes ws; ws and wss pass through.
func EndpointURL(baseURL, sessionID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("channel: parse base url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("channel: unsupported scheme %q", u.Scheme)
	}

	u.Path = "/ws/" + sessionID
	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), nil
}

// SessionID extracts the session identifier from a session page path by
// stripping the fixed "/session/" prefix.
func SessionID(path string) string {
	return strings.TrimPrefix(path, "/session/")
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Events returns the inbound event stream. It is closed when the connection
// ends, whatever the cause.
func (c *Channel) Events() <-chan protocol.Event {
	return c.events
}

// Connect dials the endpoint, announces the identity as the first outbound
// frame, and starts the read loop. Calling Connect while already connecting
// or open is a no-op; calling it after the channel closed returns ErrClosed.
func (c *Channel) Connect(ctx context.Context, name string) error {
	c.mu.Lock()
	switch c.state {
	case Connecting, Open:
		c.mu.Unlock()
		return nil
	case Closed:
		c.mu.Unlock()
		return ErrClosed
	}
	c.state = Connecting
	c.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		c.terminate(nil)
		return fmt.Errorf("channel: dial %s: %w", c.url, err)
	}

	// The hub learns this connection's display name from the first frame,
	// which is the bare name rather than a JSON envelope.
	announce, err := protocol.Announce{Name: name}.Encode()
	if err != nil {
		c.terminate(conn)
		return fmt.Errorf("channel: announce: %w", err)
	}

	if err := conn.Write(ctx, websocket.MessageText, announce); err != nil {
		c.terminate(conn)
		return fmt.Errorf("channel: announce: %w", err)
	}

	c.mu.Lock()
	if c.state == Closed {
		// Close raced the dial.
		c.mu.Unlock()
		c.terminate(conn)
		return ErrClosed
	}
	c.conn = conn
	c.state = Open
	c.started = true
	c.mu.Unlock()

	go c.readLoop(conn)

	return nil
}

// Send encodes msg and writes it as a text frame. It fails with ErrNotOpen
// unless the channel is open.
func (c *Channel) Send(ctx context.Context, msg protocol.Outbound) error {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()

	if state != Open || conn == nil {
		return ErrNotOpen
	}

	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("channel: encode: %w", err)
	}

	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("channel: write: %w", err)
	}

	return nil
}

// Close tears the connection down and closes the Events stream. Safe to
// call in any state, any number of times.
func (c *Channel) Close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	started := c.started
	c.state = Closed
	c.mu.Unlock()

	c.doneOnce.Do(func() { close(c.done) })

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}

	// Once the read loop is running it owns closing the events stream;
	// closing it here too would race a concurrent send.
	if !started {
		c.closeOnce.Do(func() { close(c.events) })
	}
}

// terminate marks the channel closed after a failed connect attempt. The
// read loop never started, so the events stream is closed here.
func (c *Channel) terminate(conn *websocket.Conn) {
	c.mu.Lock()
	c.state = Closed
	c.mu.Unlock()

	c.doneOnce.Do(func() { close(c.done) })

	if conn != nil {
		_ = conn.Close(websocket.StatusInternalError, "")
	}

	c.closeOnce.Do(func() { close(c.events) })
}

// readLoop parses every inbound frame and forwards the decoded events.
// Malformed frames are logged and dropped; they never end the connection.
// Any read error ends the loop and closes the Events stream.
func (c *Channel) readLoop(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		c.state = Closed
		c.conn = nil
		c.mu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		c.closeOnce.Do(func() { close(c.events) })
	}()

	ctx := context.Background()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		if typ != websocket.MessageText {
			c.logf("channel: ignoring %v frame", typ)
			continue
		}

		ev, err := protocol.DecodeEvent(data)
		if err != nil {
			c.logf("channel: dropping frame: %v", err)
			continue
		}

		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}
