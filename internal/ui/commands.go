package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oakley-srs/oakley/internal/gateway"
	"github.com/oakley-srs/oakley/internal/host"
	"github.com/oakley-srs/oakley/internal/logtail"
	"github.com/oakley-srs/oakley/internal/state"
	"github.com/oakley-srs/oakley/internal/subscribe"
)

// Messages

type subscribedMsg struct {
	handle *subscribe.Handle
	err    error
}

type hostEventMsg struct {
	event host.Event
}

type hostDoneMsg struct{}

type generationResultMsg struct {
	epoch uint64
	card  host.Card
	err   error
}

type saveResultMsg struct {
	epoch uint64
	err   error
}

type discardResultMsg struct {
	epoch uint64
	err   error
}

type expireMsg struct {
	epoch uint64
}

type refreshedMsg struct {
	snapshot state.Snapshot
}

type diagnosticsMsg struct {
	lines []string
	err   error
}

type tickMsg time.Time

// Commands

// activateCmd mounts the host event subscription. Events reach the model
// through waitForHostEvent.
func activateCmd(ctx context.Context, manager *subscribe.Manager, sink subscribe.Sink) tea.Cmd {
	return func() tea.Msg {
		h, err := manager.Activate(ctx, sink)
		return subscribedMsg{handle: h, err: err}
	}
}

// channelSink returns a Sink that forwards events to ch in arrival order.
// It blocks until the model drains the event or ctx ends.
func channelSink(ctx context.Context, ch chan<- host.Event) subscribe.Sink {
	return func(evt host.Event) {
		select {
		case ch <- evt:
		case <-ctx.Done():
		}
	}
}

// waitForHostEvent delivers one event per Update. The model re-arms it
// after handling each event.
func waitForHostEvent(ch <-chan host.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return hostDoneMsg{}
		}
		return hostEventMsg{event: evt}
	}
}

func generateCmd(ctx context.Context, gw *gateway.Gateway, clip gateway.Clipboard, epoch uint64) tea.Cmd {
	return func() tea.Msg {
		card, err := gw.GenerateFromClipboard(ctx, clip)
		return generationResultMsg{epoch: epoch, card: card, err: err}
	}
}

func saveCmd(ctx context.Context, gw *gateway.Gateway, card host.Card, epoch uint64) tea.Cmd {
	return func() tea.Msg {
		return saveResultMsg{epoch: epoch, err: gw.AcceptCard(ctx, card)}
	}
}

func discardCmd(ctx context.Context, gw *gateway.Gateway, id int64, epoch uint64) tea.Cmd {
	return func() tea.Msg {
		return discardResultMsg{epoch: epoch, err: gw.DiscardCard(ctx, id)}
	}
}

// refreshCmd reloads the card list. The outcome is recorded in the store,
// so the message only carries the resulting snapshot.
func refreshCmd(ctx context.Context, syncer *state.Syncer) tea.Cmd {
	return func() tea.Msg {
		_ = syncer.Refresh(ctx)
		return refreshedMsg{snapshot: syncer.Store().Snapshot()}
	}
}

// watchdogCmd fires expireMsg for epoch after d.
func watchdogCmd(d time.Duration, epoch uint64) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return expireMsg{epoch: epoch}
	})
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func loadDiagnosticsCmd(path string, limit int) tea.Cmd {
	return func() tea.Msg {
		entries, err := logtail.Tail(path, limit)
		if err != nil {
			return diagnosticsMsg{err: err}
		}
		lines := make([]string, 0, len(entries))
		for _, e := range entries {
			lines = append(lines, logtail.Format(e))
		}
		return diagnosticsMsg{lines: lines}
	}
}
