package main

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gmanninglive/scrum-poker/pkg/channel"
	"github.com/gmanninglive/scrum-poker/pkg/protocol"
	"github.com/gmanninglive/scrum-poker/pkg/session"
)

// deck is the set of estimates a participant can cast, bound to the number
// keys 1..8 in order.
var deck = []int{0, 1, 2, 3, 5, 8, 13, 21}

// appState represents the application state machine.
type appState int

const (
	stateConnecting appState = iota
	stateSession
	stateDisconnected
)

// appModel is the root bubbletea model. The bubbletea update loop is the
// program's single thread of control: every handler runs to completion
// before the next message, so the reconciler needs no locking.
type appModel struct {
	ctx  context.Context
	cfg  config
	name string

	rec *session.Reconciler
	ch  *channel.Channel

	program      *tea.Program
	cancelBridge context.CancelFunc

	state    appState
	spin     spinner.Model
	voted    bool // hides the deck until the next story
	rejected bool
	lastErr  error
	width    int
}

func newAppModel(ctx context.Context, cfg config, name string) appModel {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = spinnerStyle

	return appModel{
		ctx:   ctx,
		cfg:   cfg,
		name:  name,
		state: stateConnecting,
		spin:  spin,
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.connectCmd())
}

// connectCmd dials the session endpoint and announces the identity off the
// update loop.
func (m appModel) connectCmd() tea.Cmd {
	ctx, cfg, name := m.ctx, m.cfg, m.name

	return func() tea.Msg {
		ch, err := channel.New(cfg.URL, cfg.Session, channel.Options{})
		if err != nil {
			return connectedMsg{err: err}
		}

		if err := ch.Connect(ctx, name); err != nil {
			return connectedMsg{err: err}
		}

		return connectedMsg{ch: ch}
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case programReadyMsg:
		m.program = msg.program
		return m.startBridgeIfReady(), nil

	case connectedMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			return m, tea.Quit
		}

		m.ch = msg.ch
		m.rec = session.New(m.name, m.ch)
		m.state = stateSession
		return m.startBridgeIfReady(), nil

	case sessionEventMsg:
		return m.handleEvent(msg.event)

	case disconnectedMsg:
		// Terminal for this run: no further updates will arrive.
		m.state = stateDisconnected
		return m, nil

	case voteSentMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			m.voted = false
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != stateConnecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// startBridgeIfReady starts the event bridge once both the program handle
// and the connected channel are available, in whichever order they arrive.
func (m appModel) startBridgeIfReady() appModel {
	if m.program == nil || m.ch == nil || m.cancelBridge != nil {
		return m
	}

	m.cancelBridge = startBridge(m.ctx, m.program, m.ch)

	return m
}

// handleEvent feeds one inbound event to the reconciler. A rejection quits
// the program so the caller can re-open the name entry path.
func (m appModel) handleEvent(ev protocol.Event) (tea.Model, tea.Cmd) {
	m.rec.Apply(ev)

	if _, ok := m.rec.Rejected(); ok {
		m.rejected = true
		return m, m.quitCmd()
	}

	return m, nil
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, m.quitCmd()
	}

	if m.state != stateSession {
		return m, nil
	}

	switch key := msg.String(); key {
	case "v":
		m.rec.Reveal()
		return m, nil

	case "n":
		// Next story: local-only, like the reveal. Other participants
		// reset on their own.
		m.rec.ResetRound()
		m.voted = false
		return m, nil

	default:
		if idx := deckIndex(key); idx >= 0 && !m.voted && m.rec.Phase() == session.Collecting {
			m.voted = true
			return m, m.castVoteCmd(deck[idx])
		}
	}

	return m, nil
}

// deckIndex maps the keys 1..8 onto deck positions; -1 for anything else.
func deckIndex(key string) int {
	if len(key) != 1 || key[0] < '1' {
		return -1
	}

	idx := int(key[0] - '1')
	if idx >= len(deck) {
		return -1
	}

	return idx
}

// castVoteCmd submits the vote off the update loop. The local view is only
// updated by the hub's echoed vote event.
func (m appModel) castVoteCmd(value int) tea.Cmd {
	ctx, rec := m.ctx, m.rec

	return func() tea.Msg {
		return voteSentMsg{err: rec.CastVote(ctx, value)}
	}
}

// quitCmd tears down the bridge and the connection before quitting.
func (m appModel) quitCmd() tea.Cmd {
	cancel, ch := m.cancelBridge, m.ch

	return func() tea.Msg {
		if cancel != nil {
			cancel()
		}
		if ch != nil {
			ch.Close()
		}

		return tea.Quit()
	}
}
