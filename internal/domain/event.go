package domain

// EventKind identifies a progress notification.
type EventKind string

const (
	EventPhase       EventKind = "phase"
	EventRoundStart  EventKind = "round_start"
	EventItemDone    EventKind = "item_done"
	EventRoundDone   EventKind = "round_done"
	EventProbeStart  EventKind = "probe_start"
	EventProbeDone   EventKind = "probe_done"
	EventRunFinished EventKind = "run_finished"
)

// Event is emitted by the enumerator to progress sinks. Fields not relevant to
// Kind are left zero.
type Event struct {
	Kind  EventKind
	Phase Phase

	Round   int
	Pending int
	Item    string
	Found   int
	Err     error

	Stats  RoundStats
	Total  int
	Report *Report
}
