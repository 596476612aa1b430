// Package session maintains the client-local view of one planning-poker
// session: the roster, the votes recorded for the current round, the round
// phase, and the per-participant color assignments. A Reconciler is the
// single writer of all of that state; the channel only delivers events and
// the UI only reads projections.
//
// All entry points run on the host program's single event loop and execute
// to completion before the next event, so the Reconciler does no locking.
package session

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/gmanninglive/scrum-poker/pkg/protocol"
)

// Phase says whether individual votes are currently hidden or visible.
type Phase int

const (
	// Collecting hides individual votes behind a "voting" placeholder.
	Collecting Phase = iota

	// Revealing shows each recorded vote and the aggregate estimate.
	Revealing
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case Collecting:
		return "collecting"
	case Revealing:
		return "revealing"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Sender is the outbound half of the session channel. CastVote goes through
// it; the echoed broadcast is the only path back into local state.
type Sender interface {
	Send(ctx context.Context, msg protocol.Outbound) error
}

// Reconciler owns the session view. Create one with New; the zero value is
// not usable because votes and colors are keyed maps.
type Reconciler struct {
	identity string
	sender   Sender

	roster []string
	votes  map[string]int
	phase  Phase

	colors map[string]string
	rng    *rand.Rand

	rejected     bool
	rejectReason string
}

// New creates a Reconciler for the local participant identified by name.
// Outbound vote submissions go through sender.
func New(name string, sender Sender) *Reconciler {
	return &Reconciler{
		identity: name,
		sender:   sender,
		votes:    make(map[string]int),
		colors:   make(map[string]string),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Identity returns the local participant's display name.
func (r *Reconciler) Identity() string { return r.identity }

// Phase returns the current round phase.
func (r *Reconciler) Phase() Phase { return r.phase }

// Apply ingests one inbound event. Events are applied strictly in arrival
// order; there is no reordering or coalescing.
func (r *Reconciler) Apply(ev protocol.Event) {
	switch ev := ev.(type) {
	case protocol.VoteEvent:
		// Last write wins per user. The roster is never touched here.
		r.votes[ev.User] = ev.Vote

	case protocol.RosterEvent:
		// Wholesale replacement, order and duplicates preserved. Votes for
		// users who dropped off are kept: visibility is derived from roster
		// membership at projection time, so a vote survives a brief
		// disconnect-reconnect.
		r.roster = append(r.roster[:0:0], ev.Users...)
		r.assignColors(ev.Users)

	case protocol.ErrorEvent:
		// Identity rejected by the hub. Roster and votes stay untouched;
		// the UI re-opens the name entry path.
		r.rejected = true
		r.rejectReason = ev.Reason
	}
}

// CastVote submits an estimate for the local participant. No optimistic
// local write happens: the hub echoes the vote to every subscriber,
// including this one, so the locally rendered state always matches what the
// rest of the session will see.
func (r *Reconciler) CastVote(ctx context.Context, value int) error {
	err := r.sender.Send(ctx, protocol.CastVote{User: r.identity, Vote: value})
	if err != nil {
		return fmt.Errorf("session: cast vote: %w", err)
	}

	return nil
}

// ResetRound clears every recorded vote and returns the phase to
// Collecting. The roster is unaffected.
//
// This is a local-only action: the wire protocol has no round-reset
// message, so other participants keep their recorded votes until they reset
// on their own. Known protocol gap.
func (r *Reconciler) ResetRound() {
	clear(r.votes)
	r.phase = Collecting
}

// Reveal switches the phase to Revealing so recorded votes render as
// numbers. Like ResetRound this is local-only; see the protocol gap note
// there.
func (r *Reconciler) Reveal() {
	r.phase = Revealing
}

// Rejected reports whether the hub rejected this identity, with the reason
// it gave.
func (r *Reconciler) Rejected() (reason string, ok bool) {
	return r.rejectReason, r.rejected
}

// ClearRejected resets the rejection flag once the user re-enters a name.
func (r *Reconciler) ClearRejected() {
	r.rejected = false
	r.rejectReason = ""
}

// assignColors gives every newly seen name a color token. Assignments are
// append-only: once a name has a token it keeps it for the lifetime of the
// process, even across roster churn.
func (r *Reconciler) assignColors(users []string) {
	for _, u := range users {
		if _, ok := r.colors[u]; ok {
			continue
		}

		r.colors[u] = ColorToken(r.rng)
	}
}

// VoteStatus describes how one roster row's vote renders.
type VoteStatus int

const (
	// NotVoted means no vote is recorded for the row (or the phase is
	// Revealing and the participant never voted).
	NotVoted VoteStatus = iota

	// VotedHidden means a vote exists but the phase hides its value.
	VotedHidden

	// Revealed means the row's Vote field carries the literal estimate.
	Revealed
)

// Row is one rendered roster entry. Duplicate names produce distinct rows;
// rows are keyed by position, never by name.
type Row struct {
	Name   string
	Color  string
	Status VoteStatus
	Vote   int // meaningful only when Status is Revealed
}

// Projection is the read-only view the renderer consumes.
type Projection struct {
	Rows  []Row
	Phase Phase

	// Estimate is the floored arithmetic mean of all recorded votes.
	// HasEstimate is false when no votes exist; the aggregate is then
	// explicitly unavailable rather than zero.
	Estimate    int
	HasEstimate bool
}

// Projection derives the current view. It is recomputed from scratch on
// every call and never cached. Votes whose owner is absent from the roster
// produce no row.
func (r *Reconciler) Projection() Projection {
	p := Projection{Phase: r.phase, Rows: make([]Row, 0, len(r.roster))}

	for _, name := range r.roster {
		row := Row{Name: name, Color: r.colors[name]}

		if v, ok := r.votes[name]; ok {
			if r.phase == Revealing {
				row.Status = Revealed
				row.Vote = v
			} else {
				row.Status = VotedHidden
			}
		}

		p.Rows = append(p.Rows, row)
	}

	if len(r.votes) > 0 {
		sum := 0
		for _, v := range r.votes {
			sum += v
		}

		p.Estimate = int(math.Floor(float64(sum) / float64(len(r.votes))))
		p.HasEstimate = true
	}

	return p
}
