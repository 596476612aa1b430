// Package protocol defines the wire messages exchanged with a scrum-poker
// session hub. Outbound messages know how to encode themselves; inbound
// frames are decoded exactly once, at the channel boundary, into a tagged
// Event union so nothing downstream ever re-inspects raw JSON.
//
// The wire format has one deliberate asymmetry: the very first outbound
// frame on a connection is the participant's display name as a bare UTF-8
// string, not a JSON envelope. The hub uses it to associate the connection
// with a name. Every later frame, in both directions, is JSON.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformed reports an inbound frame that is not a JSON object of any
// recognized shape. Malformed frames are a recoverable condition: callers
// log and drop them.
var ErrMalformed = errors.New("protocol: malformed frame")

// Outbound is a message the client can send to the hub.
type Outbound interface {
	Encode() ([]byte, error)
}

// Announce establishes this connection's identity. It must be the first
// message sent after the transport opens, and is sent exactly once.
type Announce struct {
	Name string
}

// Encode returns the bare display name with no envelope.
func (a Announce) Encode() ([]byte, error) {
	return []byte(a.Name), nil
}

// CastVote submits a numeric estimate for a participant.
type CastVote struct {
	User string `json:"user"`
	Vote int    `json:"vote"`
}

// voteEnvelope is the JSON shape shared by outbound vote submissions and
// inbound vote broadcasts: {"Vote":{"user":...,"vote":...}}.
type voteEnvelope struct {
	Vote CastVote `json:"Vote"`
}

// Encode wraps the vote in its JSON envelope.
func (c CastVote) Encode() ([]byte, error) {
	data, err := json.Marshal(voteEnvelope{Vote: c})
	if err != nil {
		return nil, fmt.Errorf("protocol: encode vote: %w", err)
	}

	return data, nil
}

// Event is one decoded inbound frame. Exactly one concrete variant exists
// per wire shape: ErrorEvent, VoteEvent, or RosterEvent.
type Event interface {
	isEvent()
}

// ErrorEvent reports that the hub rejected this connection or identity,
// typically because the display name is already taken in the session.
type ErrorEvent struct {
	Reason string
}

// VoteEvent carries a single vote update to merge. It is an incremental
// update, never a snapshot of all votes.
type VoteEvent struct {
	User string
	Vote int
}

// RosterEvent carries the full participant list. It always replaces the
// local roster wholesale; an absent or null users field means the roster is
// empty, not that the frame is invalid.
type RosterEvent struct {
	Users []string
}

func (ErrorEvent) isEvent()  {}
func (VoteEvent) isEvent()   {}
func (RosterEvent) isEvent() {}

// frame matches the outer shape of hub broadcasts. Observed hubs send
// {"type":...,"payload":{...},"users":[...]}, but bare shapes such as
// {"Vote":{...}} or {"users":[...]} also occur and are accepted: when the
// payload field is absent the document itself is the discriminant.
type frame struct {
	Payload json.RawMessage `json:"payload"`
	Users   []string        `json:"users"`
}

// discriminant matches the payload object. Precedence is Error > Vote; a
// frame carrying neither is a roster replacement.
type discriminant struct {
	Error json.RawMessage `json:"Error"`
	Vote  *CastVote       `json:"Vote"`
}

// DecodeEvent classifies one inbound text frame into exactly one Event.
// Invalid JSON and unrecognized shapes return an error wrapping
// ErrMalformed.
func DecodeEvent(data []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var d discriminant

	if len(f.Payload) > 0 {
		if err := json.Unmarshal(f.Payload, &d); err != nil {
			return nil, fmt.Errorf("%w: payload: %v", ErrMalformed, err)
		}
	} else if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch {
	case len(d.Error) > 0:
		return ErrorEvent{Reason: errorReason(d.Error)}, nil
	case d.Vote != nil:
		return VoteEvent{User: d.Vote.User, Vote: d.Vote.Vote}, nil
	default:
		return RosterEvent{Users: f.Users}, nil
	}
}

// errorReason extracts a human-readable reason from the Error payload. The
// hub sends an enum-ish value; string payloads are used verbatim and
// anything else falls back to its raw JSON text.
func errorReason(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	if unquoted, err := strconv.Unquote(string(raw)); err == nil {
		return unquoted
	}

	return string(raw)
}
