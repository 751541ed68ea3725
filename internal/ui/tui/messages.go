package tui

import "github.com/1ikeadragon/subconverge/internal/domain"

type eventMsg domain.Event

type runDoneMsg struct {
	report domain.Report
	err    error
}

// eventsClosedMsg means the sink was closed and no more events will arrive.
type eventsClosedMsg struct{}
