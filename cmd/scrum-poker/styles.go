package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/gmanninglive/scrum-poker/pkg/session"
)

// Centralized style definitions for the TUI.
var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	estimateStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	votedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	deckKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
)

// hueShades maps each palette hue to its shade hex values, 100 through 900.
var hueShades = map[string][9]string{
	"pink":  {"#fce7f3", "#fbcfe8", "#f9a8d4", "#f472b6", "#ec4899", "#db2777", "#be185d", "#9d174d", "#831843"},
	"green": {"#dcfce7", "#bbf7d0", "#86efac", "#4ade80", "#22c55e", "#16a34a", "#15803d", "#166534", "#14532d"},
	"blue":  {"#dbeafe", "#bfdbfe", "#93c5fd", "#60a5fa", "#3b82f6", "#2563eb", "#1d4ed8", "#1e40af", "#1e3a8a"},
	"red":   {"#fee2e2", "#fecaca", "#fca5a5", "#f87171", "#ef4444", "#dc2626", "#b91c1c", "#991b1b", "#7f1d1d"},
}

// nameStyle renders a participant name in their assigned session color.
// Unknown or malformed tokens fall back to the default foreground.
func nameStyle(token string) lipgloss.Style {
	hue, shade, ok := session.ParseColorToken(token)
	if !ok {
		return lipgloss.NewStyle()
	}

	shades, ok := hueShades[hue]
	if !ok {
		return lipgloss.NewStyle()
	}

	idx := shade/100 - 1
	if idx < 0 || idx >= len(shades) {
		return lipgloss.NewStyle()
	}

	return lipgloss.NewStyle().Foreground(lipgloss.Color(shades[idx]))
}
