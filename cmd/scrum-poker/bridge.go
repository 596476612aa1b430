package main

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gmanninglive/scrum-poker/pkg/channel"
)

// startBridge launches the goroutine that forwards channel events into the
// program. It only calls p.Send() and never touches model state directly.
// The returned cancel function stops the bridge and waits for the goroutine
// to exit, so no stale messages are sent after it returns.
func startBridge(ctx context.Context, p *tea.Program, ch *channel.Channel) context.CancelFunc {
	bridgeCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup

	wg.Go(func() {
		for {
			select {
			case <-bridgeCtx.Done():
				return
			case ev, ok := <-ch.Events():
				if !ok {
					p.Send(disconnectedMsg{})
					return
				}

				p.Send(sessionEventMsg{event: ev})
			}
		}
	})

	return func() {
		cancel()
		wg.Wait()
	}
}
