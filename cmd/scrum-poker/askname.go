package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// askName prompts for a display name. reason, when non-empty, explains why
// the previous name bounced (e.g. already taken in the session).
func askName(initial, reason string) (string, error) {
	name := initial

	fields := make([]huh.Field, 0, 2)

	if reason != "" {
		fields = append(fields, huh.NewNote().
			Title("Name rejected").
			Description(reason))
	}

	fields = append(fields, huh.NewInput().
		Title("Display name").
		Value(&name).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("a display name is required")
			}
			return nil
		}))

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return "", fmt.Errorf("name prompt: %w", err)
	}

	return strings.TrimSpace(name), nil
}
