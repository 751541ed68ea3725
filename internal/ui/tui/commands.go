package tui

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1ikeadragon/subconverge/internal/domain"
)

func listenEvents(sink *ChannelSink) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-sink.Events():
			return eventMsg(ev)
		case <-sink.done:
			return eventsClosedMsg{}
		}
	}
}

func listenRunner(ch <-chan runDoneMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return runDoneMsg{err: fmt.Errorf("runner channel closed")}
		}
		return msg
	}
}

// startRunAsync executes the run in its own goroutine. The returned channel
// receives exactly one runDoneMsg.
func startRunAsync(ctx context.Context, deps Deps, sink *ChannelSink, log *slog.Logger) (chan runDoneMsg, tea.Cmd) {
	ch := make(chan runDoneMsg, 1)

	go func() {
		defer close(ch)
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic.recovered",
					"where", "tui.run",
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
				ch <- runDoneMsg{err: &domain.OpError{
					Op:   "tui.run",
					Kind: domain.KindExecution,
					Err:  fmt.Errorf("panic: %v", r),
				}}
			}
		}()

		log.Info("tui.run.start", "domain", deps.Domain)
		report, err := deps.Execute(ctx, sink)
		if err != nil {
			log.Error("tui.run.failed", "err", err.Error())
		}
		ch <- runDoneMsg{report: report, err: err}
	}()

	return ch, listenRunner(ch)
}
