package tui

import (
	"sync"

	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/ports"
)

// ChannelSink forwards events to the UI loop. Item events are dropped when
// the buffer is full; every other kind waits for room until Close.
type ChannelSink struct {
	ch   chan domain.Event
	done chan struct{}
	once sync.Once
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelSink{
		ch:   make(chan domain.Event, buffer),
		done: make(chan struct{}),
	}
}

var _ ports.ProgressSink = (*ChannelSink)(nil)

func (s *ChannelSink) Emit(ev domain.Event) {
	select {
	case <-s.done:
		return
	default:
	}

	if ev.Kind == domain.EventItemDone {
		select {
		case s.ch <- ev:
		default:
		}
		return
	}

	select {
	case s.ch <- ev:
	case <-s.done:
	}
}

func (s *ChannelSink) Events() <-chan domain.Event { return s.ch }

// Close stops delivery. Emit never blocks after Close.
func (s *ChannelSink) Close() {
	s.once.Do(func() { close(s.done) })
}
