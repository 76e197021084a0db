package negotiation

type State int

const (
	Idle State = iota
	AcquiringMedia
	AwaitingPeer
	Negotiating
	Connected
	Disconnected
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AcquiringMedia:
		return "acquiring-media"
	case AwaitingPeer:
		return "awaiting-peer"
	case Negotiating:
		return "negotiating"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
