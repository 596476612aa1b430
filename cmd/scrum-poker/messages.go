package main

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gmanninglive/scrum-poker/pkg/channel"
	"github.com/gmanninglive/scrum-poker/pkg/protocol"
)

// programReadyMsg passes the *tea.Program to the model so it can start the
// bridge goroutine once the channel is connected.
type programReadyMsg struct {
	program *tea.Program
}

// connectedMsg reports the outcome of the connect command.
type connectedMsg struct {
	ch  *channel.Channel
	err error
}

// sessionEventMsg delivers one decoded inbound event from the bridge.
type sessionEventMsg struct {
	event protocol.Event
}

// disconnectedMsg signals that the event stream ended. Connection loss is
// terminal for this program run; there is no automatic reconnect.
type disconnectedMsg struct{}

// voteSentMsg is returned by the tea.Cmd that submits a vote.
type voteSentMsg struct {
	err error
}
