package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// config holds the client settings. Everything is optional: flags override
// the config file, and the config file overrides the defaults.
type config struct {
	// URL is the base HTTP address of the session hub; the websocket
	// scheme is derived from it.
	URL string `yaml:"url"`

	// Session is the default session id to join.
	Session string `yaml:"session"`
}

const defaultHubURL = "http://localhost:3000"

// defaultConfigPath returns ~/.config/scrum-poker/config.yaml (or the
// platform equivalent). Empty when no config dir can be resolved.
func defaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(base, "scrum-poker", "config.yaml")
}

// loadConfig reads a YAML config file. Environment variables referenced as
// ${VAR} or $VAR are expanded before parsing. A missing file is not an
// error; it yields the zero config.
func loadConfig(path string) (config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration
	if errors.Is(err, os.ErrNotExist) {
		return config{}, nil
	}
	if err != nil {
		return config{}, fmt.Errorf("load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// resolve applies precedence: flag value, then SCRUM_POKER_URL, then the
// config file, then the built-in default.
func (c config) resolve(flagURL, flagSession string) config {
	out := c

	if env := os.Getenv("SCRUM_POKER_URL"); env != "" && out.URL == "" {
		out.URL = env
	}

	if flagURL != "" {
		out.URL = flagURL
	}
	if flagSession != "" {
		out.Session = flagSession
	}

	if out.URL == "" {
		out.URL = defaultHubURL
	}

	return out
}
