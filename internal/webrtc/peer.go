// Package webrtc backs the negotiation session with pion peer connections.
package webrtc

import (
	"fmt"

	"github.com/pion/rtcp"
	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/warpcall/warpcall/internal/negotiation"
)

const rtpBufferSize = 1500

// Factory creates pion peer connections sharing one media engine setup.
type Factory struct {
	api        *pion.API
	iceServers []pion.ICEServer
	log        zerolog.Logger
}

func NewFactory(stunServers []string, log zerolog.Logger) (*Factory, error) {
	m := &pion.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	var iceServers []pion.ICEServer
	if len(stunServers) > 0 {
		iceServers = []pion.ICEServer{{URLs: stunServers}}
	}

	return &Factory{
		api:        pion.NewAPI(pion.WithMediaEngine(m)),
		iceServers: iceServers,
		log:        log,
	}, nil
}

func (f *Factory) NewPeerConnection(events negotiation.PeerEvents) (negotiation.PeerConnection, error) {
	pc, err := f.api.NewPeerConnection(pion.Configuration{ICEServers: f.iceServers})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &PeerConnection{pc: pc, log: f.log}
	p.register(events)
	return p, nil
}

// PeerConnection adapts *pion.PeerConnection to negotiation.PeerConnection.
type PeerConnection struct {
	pc  *pion.PeerConnection
	log zerolog.Logger
}

func (p *PeerConnection) register(events negotiation.PeerEvents) {
	p.pc.OnICECandidate(func(c *pion.ICECandidate) {
		// nil marks the end of gathering
		if c == nil || events.OnICECandidate == nil {
			return
		}
		events.OnICECandidate(c.ToJSON())
	})

	p.pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		if events.OnConnectionState != nil {
			events.OnConnectionState(state)
		}
	})

	p.pc.OnNegotiationNeeded(func() {
		if events.OnNegotiationNeeded != nil {
			events.OnNegotiationNeeded()
		}
	})

	p.pc.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
		if track.Kind() == pion.RTPCodecTypeVideo {
			p.requestKeyframe(track)
		}
		go drain(track)

		if events.OnTrack != nil {
			events.OnTrack(negotiation.RemoteTrack{
				ID:       track.ID(),
				StreamID: track.StreamID(),
				Kind:     track.Kind().String(),
			})
		}
	})
}

// requestKeyframe asks the sender for a full frame so video starts promptly.
func (p *PeerConnection) requestKeyframe(track *pion.TrackRemote) {
	err := p.pc.WriteRTCP([]rtcp.Packet{
		&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())},
	})
	if err != nil {
		p.log.Debug().Err(err).Msg("send PLI")
	}
}

// drain consumes RTP so the receive buffers never fill.
func drain(track *pion.TrackRemote) {
	buf := make([]byte, rtpBufferSize)
	for {
		if _, _, err := track.Read(buf); err != nil {
			return
		}
	}
}

func (p *PeerConnection) AddTrack(track pion.TrackLocal) error {
	sender, err := p.pc.AddTrack(track)
	if err != nil {
		return fmt.Errorf("add track: %w", err)
	}

	// Incoming RTCP is read and discarded so the sender never stalls.
	go func() {
		buf := make([]byte, rtpBufferSize)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return nil
}

func (p *PeerConnection) CreateOffer() (pion.SessionDescription, error) {
	return p.pc.CreateOffer(nil)
}

func (p *PeerConnection) CreateAnswer() (pion.SessionDescription, error) {
	return p.pc.CreateAnswer(nil)
}

func (p *PeerConnection) SetLocalDescription(desc pion.SessionDescription) error {
	return p.pc.SetLocalDescription(desc)
}

func (p *PeerConnection) SetRemoteDescription(desc pion.SessionDescription) error {
	return p.pc.SetRemoteDescription(desc)
}

func (p *PeerConnection) AddICECandidate(candidate pion.ICECandidateInit) error {
	return p.pc.AddICECandidate(candidate)
}

func (p *PeerConnection) SignalingState() pion.SignalingState {
	return p.pc.SignalingState()
}

func (p *PeerConnection) Close() error {
	return p.pc.Close()
}
