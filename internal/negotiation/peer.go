package negotiation

import (
	"context"

	pion "github.com/pion/webrtc/v4"

	"github.com/warpcall/warpcall/internal/protocol"
)

// Channel is the signaling connection to the relay.
type Channel interface {
	Send(msg *protocol.Message) error
	// Incoming is closed when the connection ends.
	Incoming() <-chan *protocol.Message
	// Err reports why Incoming closed, nil after a local Close.
	Err() error
	Close() error
}

// Dialer opens a Channel to the relay.
type Dialer func(ctx context.Context) (Channel, error)

// PeerConnection is the slice of the media engine the session drives.
// CreateOffer, CreateAnswer and the description setters may block.
type PeerConnection interface {
	AddTrack(track pion.TrackLocal) error
	CreateOffer() (pion.SessionDescription, error)
	CreateAnswer() (pion.SessionDescription, error)
	SetLocalDescription(desc pion.SessionDescription) error
	SetRemoteDescription(desc pion.SessionDescription) error
	AddICECandidate(candidate pion.ICECandidateInit) error
	SignalingState() pion.SignalingState
	Close() error
}

// RemoteTrack describes a track received from the peer.
type RemoteTrack struct {
	ID       string
	StreamID string
	Kind     string
}

// PeerEvents are the notifications a PeerConnection reports. Callbacks may
// run on any goroutine.
type PeerEvents struct {
	OnICECandidate      func(candidate pion.ICECandidateInit)
	OnConnectionState   func(state pion.PeerConnectionState)
	OnTrack             func(track RemoteTrack)
	OnNegotiationNeeded func()
}

type PeerFactory interface {
	NewPeerConnection(events PeerEvents) (PeerConnection, error)
}

// RemoteMedia is what the presentation layer sees of the peer once connected.
type RemoteMedia struct {
	PeerID string
	Tracks []RemoteTrack
}
