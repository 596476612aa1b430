package main

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/gmanninglive/scrum-poker/pkg/session"
)

func (m appModel) View() string {
	switch m.state {
	case stateConnecting:
		return fmt.Sprintf("\n %s Connecting to session %s...\n", m.spin.View(), m.cfg.Session)

	case stateDisconnected:
		return "\n " + errorStyle.Render("Connection lost.") + " No further updates will arrive.\n" +
			helpStyle.Render(" q quit") + "\n"
	}

	var b strings.Builder

	b.WriteString("\n " + titleStyle.Render("Session "+m.cfg.Session) + "\n\n")
	b.WriteString(renderRoster(m.rec.Projection()))
	b.WriteString("\n" + renderDeck(m.voted, m.rec.Phase()))

	if m.lastErr != nil {
		b.WriteString("\n " + errorStyle.Render("error: "+m.lastErr.Error()) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render(" v reveal · n next story · q quit") + "\n")

	return b.String()
}

// renderRoster turns the projection into one line per participant plus the
// aggregate line. Rows are keyed by position, so duplicate names render as
// distinct rows.
func renderRoster(p session.Projection) string {
	if len(p.Rows) == 0 {
		return dimStyle.Render(" Waiting for participants...") + "\n"
	}

	width := 0
	for _, row := range p.Rows {
		if w := runewidth.StringWidth(row.Name); w > width {
			width = w
		}
	}

	var b strings.Builder

	for _, row := range p.Rows {
		name := nameStyle(row.Color).Render(row.Name)
		pad := strings.Repeat(" ", width-runewidth.StringWidth(row.Name))

		b.WriteString(fmt.Sprintf(" %s%s  %s\n", name, pad, renderStatus(row)))
	}

	b.WriteString("\n " + renderEstimate(p) + "\n")

	return b.String()
}

// renderStatus is the row's vote slot: a placeholder while collecting, the
// literal value once revealed.
func renderStatus(row session.Row) string {
	switch row.Status {
	case session.VotedHidden:
		return votedStyle.Render("voted")
	case session.Revealed:
		return votedStyle.Render(fmt.Sprintf("voted %d", row.Vote))
	default:
		return dimStyle.Render("voting...")
	}
}

// renderEstimate shows the floored mean, or an explicit unavailable marker
// when no votes exist.
func renderEstimate(p session.Projection) string {
	if !p.HasEstimate {
		return dimStyle.Render("estimate: waiting for votes")
	}

	if p.Phase == session.Collecting {
		return dimStyle.Render("estimate: hidden until reveal")
	}

	return estimateStyle.Render(fmt.Sprintf("estimate: %d", p.Estimate))
}

// renderDeck lists the castable cards with their key bindings. It hides
// once a vote is in, until the next story starts.
func renderDeck(voted bool, phase session.Phase) string {
	if phase != session.Collecting {
		return ""
	}

	if voted {
		return dimStyle.Render(" Vote cast. Waiting for the round to reveal.") + "\n"
	}

	var b strings.Builder
	b.WriteString(" Cast your vote: ")

	for i, v := range deck {
		if i > 0 {
			b.WriteString("  ")
		}

		b.WriteString(fmt.Sprintf("%s %d", deckKeyStyle.Render(fmt.Sprintf("[%d]", i+1)), v))
	}

	b.WriteString("\n")

	return b.String()
}
