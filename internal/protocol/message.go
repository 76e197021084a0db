package protocol

import "encoding/json"

// Message represents every signaling frame exchanged between a client and the relay.
// SDP and Candidate are opaque to the relay and forwarded byte-for-byte.
type Message struct {
	Type      string          `json:"type" msgpack:"type"`
	RoomID    string          `json:"room_id,omitempty" msgpack:"room_id,omitempty"`
	Target    string          `json:"target,omitempty" msgpack:"target,omitempty"`
	Sender    string          `json:"sender,omitempty" msgpack:"sender,omitempty"`
	PeerID    string          `json:"peer_id,omitempty" msgpack:"peer_id,omitempty"`
	SDP       json.RawMessage `json:"sdp,omitempty" msgpack:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty" msgpack:"candidate,omitempty"`
	Error     string          `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Message type constants.
const (
	// client -> relay
	TypeJoin  = "join"
	TypeLeave = "leave"

	// both directions; target on the way in, sender on the way out
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"

	// relay -> client
	TypeJoined     = "joined"
	TypeRoomFull   = "room-full"
	TypeOtherUser  = "other-user"
	TypeUserJoined = "user-joined"
	TypeUserLeft   = "user-left"
	TypeError      = "error"
)

// IsNegotiation reports whether the message carries a payload addressed to a peer.
func (m *Message) IsNegotiation() bool {
	switch m.Type {
	case TypeOffer, TypeAnswer, TypeICECandidate:
		return true
	}
	return false
}

// Forwarded returns the relayed form of a negotiation message: the target is
// replaced by the sender and the payload is carried over untouched.
func (m *Message) Forwarded(sender string) *Message {
	return &Message{
		Type:      m.Type,
		Sender:    sender,
		SDP:       m.SDP,
		Candidate: m.Candidate,
	}
}

func NewJoin(roomID string) *Message {
	return &Message{Type: TypeJoin, RoomID: roomID}
}

func NewLeave() *Message {
	return &Message{Type: TypeLeave}
}

func NewJoined(roomID string) *Message {
	return &Message{Type: TypeJoined, RoomID: roomID}
}

func NewRoomFull(roomID string) *Message {
	return &Message{Type: TypeRoomFull, RoomID: roomID}
}

func NewOtherUser(peerID string) *Message {
	return &Message{Type: TypeOtherUser, PeerID: peerID}
}

func NewUserJoined(peerID string) *Message {
	return &Message{Type: TypeUserJoined, PeerID: peerID}
}

func NewUserLeft(peerID string) *Message {
	return &Message{Type: TypeUserLeft, PeerID: peerID}
}

func NewError(reason string) *Message {
	return &Message{Type: TypeError, Error: reason}
}

// NewOffer addresses a session description offer to target.
func NewOffer(target string, sdp json.RawMessage) *Message {
	return &Message{Type: TypeOffer, Target: target, SDP: sdp}
}

// NewAnswer addresses a session description answer to target.
func NewAnswer(target string, sdp json.RawMessage) *Message {
	return &Message{Type: TypeAnswer, Target: target, SDP: sdp}
}

// NewICECandidate addresses a trickled candidate to target.
func NewICECandidate(target string, candidate json.RawMessage) *Message {
	return &Message{Type: TypeICECandidate, Target: target, Candidate: candidate}
}
