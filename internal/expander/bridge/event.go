package bridge

// MIDI channel voice status nibbles handled by the bridge.
const (
	statusNoteOff       = 0x80
	statusNoteOn        = 0x90
	statusControlChange = 0xB0
	statusPitchBend     = 0xE0
)

// Kind is the type of a decoded channel voice event.
type Kind uint8

const (
	NoteOff Kind = iota + 1
	NoteOn
	ControlChange
	PitchBend
)

func (k Kind) String() string {
	switch k {
	case NoteOff:
		return "NoteOff"
	case NoteOn:
		return "NoteOn"
	case ControlChange:
		return "ControlChange"
	case PitchBend:
		return "PitchBend"
	}
	return "Unknown"
}

// Event is one decoded MIDI message, positioned at a frame offset of the
// current block.
type Event struct {
	Offset  uint32
	Channel uint8
	Kind    Kind
	Data1   uint8
	Data2   uint8
}

// Value returns the 14-bit pitch bend value carried by a PitchBend event.
// Data1 is the least significant 7 bits, Data2 the most significant.
func (e Event) Value() uint16 {
	return uint16(e.Data2&0x7F)<<7 | uint16(e.Data1&0x7F)
}

// Decode turns a raw 3-byte MIDI message into an Event. Messages of any other
// length and statuses other than note off, note on, control change and pitch
// bend are rejected.
func Decode(raw []byte, offset uint32) (Event, bool) {
	if len(raw) != 3 {
		return Event{}, false
	}
	ev := Event{
		Offset:  offset,
		Channel: raw[0] & 0x0F,
		Data1:   raw[1],
		Data2:   raw[2],
	}
	switch raw[0] & 0xF0 {
	case statusNoteOff:
		ev.Kind = NoteOff
	case statusNoteOn:
		ev.Kind = NoteOn
	case statusControlChange:
		ev.Kind = ControlChange
	case statusPitchBend:
		ev.Kind = PitchBend
	default:
		return Event{}, false
	}
	return ev, true
}
