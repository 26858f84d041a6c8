package bridge

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/gomidi/midi/v2"
)

// Monitor is a fixed-size single-producer single-consumer queue of events
// forwarded by the bridge. The audio thread is the only producer; events that do
// not fit are counted and dropped.
type Monitor struct {
	buf     []Event
	mask    uint64
	head    atomic.Uint64 // next slot written by the producer
	tail    atomic.Uint64 // next slot read by the consumer
	dropped atomic.Uint64
}

// NewMonitor returns a monitor holding at least capacity events. The capacity is
// rounded up to a power of two.
func NewMonitor(capacity int) *Monitor {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Monitor{buf: make([]Event, size), mask: uint64(size - 1)}
}

// Cap returns the number of events the monitor can hold.
func (m *Monitor) Cap() int {
	return len(m.buf)
}

func (m *Monitor) push(ev Event) bool {
	head := m.head.Load()
	if head-m.tail.Load() >= uint64(len(m.buf)) {
		m.dropped.Add(1)
		return false
	}
	m.buf[head&m.mask] = ev
	m.head.Store(head + 1)
	return true
}

// Drain hands every queued event to fn and returns how many were read. It must
// only be called from one goroutine at a time.
func (m *Monitor) Drain(fn func(Event)) int {
	tail := m.tail.Load()
	head := m.head.Load()
	n := 0
	for ; tail < head; tail++ {
		fn(m.buf[tail&m.mask])
		m.tail.Store(tail + 1)
		n++
	}
	return n
}

// Dropped returns the number of events lost because the monitor was full.
func (m *Monitor) Dropped() uint64 {
	return m.dropped.Load()
}

// Run drains the monitor every interval and logs the events until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var reported uint64
	flush := func() {
		m.Drain(func(ev Event) {
			logger.Info().
				Uint32("offset", ev.Offset).
				Str("kind", ev.Kind.String()).
				Msg(ev.Message().String())
		})
		if d := m.Dropped(); d != reported {
			logger.Warn().Uint64("dropped", d-reported).Msg("midi monitor overflow")
			reported = d
		}
	}
	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-ticker.C:
			flush()
		}
	}
}

// Message rebuilds the raw MIDI message of the event.
func (e Event) Message() midi.Message {
	var status byte
	switch e.Kind {
	case NoteOff:
		status = statusNoteOff
	case NoteOn:
		status = statusNoteOn
	case ControlChange:
		status = statusControlChange
	case PitchBend:
		status = statusPitchBend
	}
	return midi.Message{status | e.Channel&0x0F, e.Data1, e.Data2}
}
