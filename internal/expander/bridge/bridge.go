// Package bridge forwards MIDI from the audio driver to the synthesis engine.
// Process runs on the audio thread: it does not block, allocate or lock.
package bridge

import (
	"github.com/TomatoPi/5FX-Expander/internal/expander/audio"
	"github.com/TomatoPi/5FX-Expander/internal/expander/synth"
)

// Bridge is the process callback tying a driver to an engine.
type Bridge struct {
	engine  synth.Engine
	monitor *Monitor
}

// New returns a bridge rendering through engine. monitor may be nil.
func New(engine synth.Engine, monitor *Monitor) *Bridge {
	return &Bridge{engine: engine, monitor: monitor}
}

// Process is an audio.ProcessFunc. Every decodable message is forwarded with its
// frame offset, then the engine renders the block into out.
func (b *Bridge) Process(frames uint32, in audio.MidiBuffer, out [2][]float32) {
	if in != nil {
		n := in.Len()
		for i := 0; i < n; i++ {
			msg, ok := in.At(i)
			if !ok {
				continue
			}
			ev, ok := Decode(msg.Data, msg.Time)
			if !ok {
				continue
			}
			b.dispatch(ev)
			if b.monitor != nil {
				b.monitor.push(ev)
			}
		}
	}

	if l := uint32(len(out[0])); l < frames {
		frames = l
	}
	if l := uint32(len(out[1])); l < frames {
		frames = l
	}
	b.engine.Process(out, frames)
}

func (b *Bridge) dispatch(ev Event) {
	switch ev.Kind {
	case NoteOn:
		b.engine.NoteOn(ev.Offset, ev.Channel, ev.Data1, ev.Data2)
	case NoteOff:
		b.engine.NoteOff(ev.Offset, ev.Channel, ev.Data1)
	case ControlChange:
		b.engine.ControlChange(ev.Offset, ev.Channel, ev.Data1, ev.Data2)
	case PitchBend:
		b.engine.PitchBend(ev.Offset, ev.Channel, ev.Value())
	}
}
