package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/gmanninglive/scrum-poker/pkg/channel"
	"github.com/gmanninglive/scrum-poker/pkg/identity"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scrum-poker [flags]\n\nJoin a planning poker session.\n\nFlags:\n")
		flag.PrintDefaults()
	}

	urlFlag := flag.String("url", "", "hub base URL (default from config, SCRUM_POKER_URL, or "+defaultHubURL+")")
	sessionFlag := flag.String("session", "", "session id to join (\"new\" generates a fresh one)")
	nameFlag := flag.String("name", "", "display name (overrides the saved one)")
	configPath := flag.String("config", "", "path to configuration file (default: the user config dir)")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(*configPath, *urlFlag, *sessionFlag, *nameFlag); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}

func run(configPath, urlFlag, sessionFlag, nameFlag string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if configPath == "" {
		configPath = defaultConfigPath()
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	cfg = cfg.resolve(urlFlag, sessionFlag)

	if cfg.Session == "" || cfg.Session == "new" {
		cfg.Session = uuid.NewString()
		fmt.Printf("Created session %s — share this id to invite others.\n", cfg.Session)
	}

	// Accept a pasted session page path as well as a bare id.
	cfg.Session = channel.SessionID(cfg.Session)

	store := identityStore()

	name := nameFlag
	if name == "" {
		name, _ = store.Read()
	}

	// The program quits back here when the hub rejects the identity, so
	// the name entry step re-opens with the rejection reason shown.
	reason := ""
	for {
		if name == "" {
			name, err = askName("", reason)
			if err != nil {
				return err
			}

			if err := store.Write(name); err != nil {
				// Non-fatal: the session proceeds unpersisted.
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
		}

		p := tea.NewProgram(newAppModel(ctx, cfg, name))

		// Send the program reference so the model can start the bridge.
		go func() { p.Send(programReadyMsg{program: p}) }()

		final, err := p.Run()
		if err != nil {
			return err
		}

		m, ok := final.(appModel)
		if !ok {
			return nil
		}

		if m.rejected {
			if r, ok := m.rec.Rejected(); ok && r != "" {
				reason = r
			} else {
				reason = "the session rejected this name"
			}

			name = ""
			continue
		}

		if m.lastErr != nil {
			return m.lastErr
		}

		return nil
	}
}

// identityStore returns the file-backed store, or the no-op store when no
// config directory is available. Storage being unavailable never blocks a
// session.
func identityStore() identity.Store {
	store, err := identity.NewFileStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return identity.Noop{}
	}

	return store
}
