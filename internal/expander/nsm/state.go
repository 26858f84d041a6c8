package nsm

// State is the handshake state of a Controller.
type State int

const (
	Idle State = iota
	Announcing
	AwaitingOpen
	Negotiated
	Running
	Saving
	Closing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Announcing:
		return "announcing"
	case AwaitingOpen:
		return "awaiting-open"
	case Negotiated:
		return "negotiated"
	case Running:
		return "running"
	case Saving:
		return "saving"
	case Closing:
		return "closing"
	}
	return "unknown"
}
