// Package negotiation drives one client-side call attempt: it acquires local
// media, joins a room through the relay, and negotiates a peer connection
// with whoever else is in the room.
package negotiation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/warpcall/warpcall/internal/media"
	"github.com/warpcall/warpcall/internal/protocol"
)

const (
	OpAcquireMedia = "acquire media"
	OpDial         = "connect to relay"
	OpJoin         = "join room"
	OpCreatePeer   = "create peer connection"
	OpOffer        = "create offer"
	OpAnswer       = "create answer"
	OpApplyAnswer  = "apply answer"
	OpConnect      = "connect to peer"
	OpRelay        = "relay"
)

const DefaultNegotiationTimeout = 30 * time.Second

type Options struct {
	RoomID      string
	Media       media.Provider
	Constraints media.Constraints
	Dial        Dialer
	Peers       PeerFactory

	// NegotiationTimeout bounds the time spent in Negotiating. Zero disables it.
	NegotiationTimeout time.Duration

	// Start with the corresponding local track disabled.
	NoAudio bool
	NoVideo bool

	Logger zerolog.Logger
}

// Status is a snapshot for the presentation layer.
type Status struct {
	State        State
	RoomID       string
	PeerID       string
	Joined       bool
	AudioEnabled bool
	VideoEnabled bool
	Err          error
}

func (s Status) Connected() bool {
	return s.State == Connected
}

func (s Status) Connecting() bool {
	return s.State == AcquiringMedia || s.State == Negotiating
}

// Event is published on every state change.
type Event struct {
	State State
	Err   error
}

// opResult is produced off the loop by a blocking operation. apply runs on
// the loop; discard runs instead when the session closed in the meantime.
type opResult struct {
	apply   func()
	discard func()
}

type peerEvent struct {
	gen int
	fn  func()
}

type pendingCandidate struct {
	sender    string
	candidate pion.ICECandidateInit
}

// Session is a single negotiation session. Inbound messages, peer
// connection events and local requests are handled one at a time on an
// internal loop; blocking media and engine calls run beside it.
type Session struct {
	opts Options
	log  zerolog.Logger

	startMu sync.Mutex
	started bool

	leaveCh    chan struct{}
	leaveOnce  sync.Once
	closed     chan struct{}
	done       chan struct{}
	events     chan Event
	results    chan opResult
	peerEvents chan peerEvent

	mu      sync.RWMutex
	state   State
	roomID  string
	peerID  string
	joined  bool
	lastErr error
	local   media.Handle
	remote  *RemoteMedia

	// Owned by the loop.
	ctx              context.Context
	cancel           context.CancelFunc
	leaveSignal      <-chan struct{}
	ctxDone          <-chan struct{}
	ch               Channel
	pc               PeerConnection
	pcGen            int
	busy             bool
	offerer          bool
	remoteSet        bool
	everConnected    bool
	needsNegotiation bool
	pending          []pendingCandidate
	tracks           []RemoteTrack
	timer            *time.Timer
}

func New(opts Options) *Session {
	if opts.Constraints.Audio == nil && opts.Constraints.Video == nil {
		opts.Constraints = media.DefaultConstraints()
	}
	return &Session{
		opts:       opts,
		log:        opts.Logger,
		leaveCh:    make(chan struct{}),
		closed:     make(chan struct{}),
		done:       make(chan struct{}),
		events:     make(chan Event, 64),
		results:    make(chan opResult),
		peerEvents: make(chan peerEvent, 64),
	}
}

// Join starts the session: media is acquired, the relay dialed and the room
// joined in the background. Progress is reported through Events.
func (s *Session) Join(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.started {
		if s.State() == Closed {
			return ErrClosed
		}
		return ErrAlreadyJoined
	}

	roomID, err := protocol.NormalizeRoomID(s.opts.RoomID)
	if err != nil {
		return NewError(OpJoin, err)
	}
	s.started = true

	s.mu.Lock()
	s.roomID = roomID
	s.mu.Unlock()

	s.log = s.opts.Logger.With().Str("room_id", roomID).Logger()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.ctxDone = s.ctx.Done()
	s.leaveSignal = s.leaveCh

	s.setState(AcquiringMedia, nil)
	s.startOp(s.acquireMedia)

	go s.run()
	return nil
}

// Leave closes the session from any state. It returns once the session is
// Closed; an operation still in flight releases its resources when it
// resolves, after which Done is closed.
func (s *Session) Leave() {
	s.startMu.Lock()
	if !s.started {
		s.started = true
		s.startMu.Unlock()

		s.setState(Closed, nil)
		close(s.closed)
		close(s.events)
		close(s.done)
		return
	}
	s.startMu.Unlock()

	s.leaveOnce.Do(func() { close(s.leaveCh) })
	<-s.closed
}

// ToggleAudio flips the local audio track and returns its new enabled flag.
func (s *Session) ToggleAudio() bool {
	return s.toggle(media.KindAudio)
}

// ToggleVideo flips the local video track and returns its new enabled flag.
func (s *Session) ToggleVideo() bool {
	return s.toggle(media.KindVideo)
}

func (s *Session) toggle(kind media.Kind) bool {
	s.mu.RLock()
	local := s.local
	s.mu.RUnlock()

	if local == nil {
		return false
	}
	enabled, ok := local.Toggle(kind)
	if !ok {
		return false
	}
	s.opts.Logger.Debug().Str("kind", string(kind)).Bool("enabled", enabled).Msg("toggled local track")
	return enabled
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		State:  s.state,
		RoomID: s.roomID,
		PeerID: s.peerID,
		Joined: s.joined,
		Err:    s.lastErr,
	}
	if s.local != nil {
		st.AudioEnabled = s.local.Enabled(media.KindAudio)
		st.VideoEnabled = s.local.Enabled(media.KindVideo)
	}
	return st
}

// Err returns the most recent error, fatal or not.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Events is closed once the session has released everything.
func (s *Session) Events() <-chan Event {
	return s.events
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// LocalMedia returns the acquired handle, nil before acquisition.
func (s *Session) LocalMedia() media.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.local
}

// RemoteMedia is nil unless the session is Connected.
func (s *Session) RemoteMedia() *RemoteMedia {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.remote == nil {
		return nil
	}
	rm := &RemoteMedia{PeerID: s.remote.PeerID}
	rm.Tracks = append(rm.Tracks, s.remote.Tracks...)
	return rm
}

func (s *Session) run() {
	defer func() {
		close(s.events)
		close(s.done)
	}()

	for {
		if s.state == Closed && !s.busy {
			return
		}

		// Inbound messages wait while an operation is outstanding.
		var incoming <-chan *protocol.Message
		if s.ch != nil && !s.busy && s.state != Closed {
			incoming = s.ch.Incoming()
		}
		var timeout <-chan time.Time
		if s.timer != nil {
			timeout = s.timer.C
		}

		select {
		case <-s.leaveSignal:
			s.log.Info().Msg("leaving room")
			s.shutdown(nil, true)

		case <-s.ctxDone:
			s.shutdown(nil, true)

		case msg, ok := <-incoming:
			if !ok {
				s.shutdown(s.relayLost(), false)
				break
			}
			s.handleMessage(msg)

		case r := <-s.results:
			s.busy = false
			if s.state == Closed {
				if r.discard != nil {
					r.discard()
				}
				break
			}
			if r.apply != nil {
				r.apply()
			}

		case ev := <-s.peerEvents:
			if s.state != Closed && ev.gen == s.pcGen {
				ev.fn()
			}

		case <-timeout:
			s.timer = nil
			if s.state == Negotiating {
				s.negotiationFailed(WrapError(OpConnect, ErrNegotiationFailure, "timed out"))
			}
		}

		s.maybeRenegotiate()
	}
}

// relayLost builds the error for a signaling channel that ended on its own.
func (s *Session) relayLost() error {
	if cause := s.ch.Err(); cause != nil {
		return WrapError(OpRelay, ErrRelayUnreachable, cause.Error())
	}
	return NewError(OpRelay, ErrRelayUnreachable)
}

func (s *Session) startOp(op func(ctx context.Context) opResult) {
	s.busy = true
	ctx := s.ctx
	go func() {
		s.results <- op(ctx)
	}()
}

func (s *Session) acquireMedia(ctx context.Context) opResult {
	h, err := s.opts.Media.Acquire(ctx, s.opts.Constraints)
	return opResult{
		apply: func() {
			if err != nil {
				s.shutdown(NewError(OpAcquireMedia, fmt.Errorf("%w: %w", ErrMediaAccess, err)), false)
				return
			}
			if s.opts.NoAudio {
				h.SetEnabled(media.KindAudio, false)
			}
			if s.opts.NoVideo {
				h.SetEnabled(media.KindVideo, false)
			}

			s.mu.Lock()
			s.local = h
			s.mu.Unlock()

			s.log.Debug().Int("tracks", h.ActiveTracks()).Msg("local media ready")
			s.startOp(s.dial)
		},
		discard: func() {
			if h != nil {
				h.Stop()
			}
		},
	}
}

func (s *Session) dial(ctx context.Context) opResult {
	ch, err := s.opts.Dial(ctx)
	return opResult{
		apply: func() {
			if err != nil {
				s.shutdown(NewError(OpDial, fmt.Errorf("%w: %w", ErrRelayUnreachable, err)), false)
				return
			}
			s.ch = ch

			if err := ch.Send(protocol.NewJoin(s.roomID)); err != nil {
				s.shutdown(NewError(OpJoin, fmt.Errorf("%w: %w", ErrRelayUnreachable, err)), false)
				return
			}
			s.setState(AwaitingPeer, nil)
		},
		discard: func() {
			if ch != nil {
				ch.Close()
			}
		},
	}
}

func (s *Session) handleMessage(msg *protocol.Message) {
	log := s.log.With().Str("type", msg.Type).Logger()

	switch msg.Type {
	case protocol.TypeJoined:
		s.mu.Lock()
		s.joined = true
		s.mu.Unlock()
		log.Info().Msg("joined room")

	case protocol.TypeRoomFull:
		s.shutdown(WrapError(OpJoin, ErrRoomFull, msg.RoomID), false)

	case protocol.TypeError:
		log.Warn().Str("reason", msg.Error).Msg("relay reported an error")
		s.setErr(WrapError(OpRelay, ErrRelayRejected, msg.Error))

	case protocol.TypeOtherUser:
		log.Info().Str("peer_id", msg.PeerID).Msg("peer already in room")
		s.setPeer(msg.PeerID)
		s.offerer = false

	case protocol.TypeUserJoined:
		s.onUserJoined(msg.PeerID)

	case protocol.TypeOffer:
		s.onOffer(msg)

	case protocol.TypeAnswer:
		s.onAnswer(msg)

	case protocol.TypeICECandidate:
		s.onCandidate(msg)

	case protocol.TypeUserLeft:
		s.onUserLeft(msg.PeerID)

	default:
		log.Debug().Msg("ignoring message")
	}
}

// onUserJoined makes this session the offerer: only the occupant that sees
// the second participant arrive sends the initial offer.
func (s *Session) onUserJoined(peerID string) {
	if s.state != AwaitingPeer && s.state != Disconnected {
		s.log.Warn().Str("peer_id", peerID).Stringer("state", s.state).Msg("unexpected user-joined")
		return
	}

	s.resetPeer()
	s.setPeer(peerID)
	s.offerer = true
	s.log.Info().Str("peer_id", peerID).Msg("peer joined, sending offer")

	if err := s.createPeer(); err != nil {
		s.negotiationFailed(err)
		return
	}
	s.enterNegotiating()
	s.startOffer()
}

func (s *Session) onOffer(msg *protocol.Message) {
	if s.state < AwaitingPeer {
		return
	}
	if s.peerID == "" {
		s.setPeer(msg.Sender)
	}
	if msg.Sender != s.peerID {
		s.log.Debug().Str("sender", msg.Sender).Msg("dropping offer from unknown sender")
		return
	}

	desc, err := decodeDescription(msg.SDP, pion.SDPTypeOffer)
	if err != nil {
		s.setErr(WrapError(OpAnswer, ErrNegotiationFailure, err.Error()))
		return
	}

	if s.pc == nil {
		if err := s.createPeer(); err != nil {
			s.negotiationFailed(err)
			return
		}
	}

	// Only the offerer renegotiates, so a local offer here means the peer
	// broke that rule; its offer loses.
	if s.pc.SignalingState() == pion.SignalingStateHaveLocalOffer {
		s.log.Debug().Bool("offerer", s.offerer).Msg("ignoring colliding offer")
		return
	}

	if s.state != Connected {
		s.enterNegotiating()
	}

	pc, gen, peer := s.pc, s.pcGen, s.peerID
	s.startOp(func(ctx context.Context) opResult {
		err := pc.SetRemoteDescription(desc)
		remoteApplied := err == nil

		var answer pion.SessionDescription
		if err == nil {
			answer, err = pc.CreateAnswer()
		}
		if err == nil {
			err = pc.SetLocalDescription(answer)
		}

		return opResult{apply: func() {
			if gen != s.pcGen {
				return
			}
			if remoteApplied {
				s.remoteSet = true
				s.flushCandidates()
			}
			if err != nil {
				s.negotiationFailed(NewError(OpAnswer, fmt.Errorf("%w: %w", ErrNegotiationFailure, err)))
				return
			}
			// The answer covers whatever the engine wanted renegotiated here.
			s.needsNegotiation = false
			s.sendDescription(protocol.NewAnswer, peer, answer)
		}}
	})
}

func (s *Session) onAnswer(msg *protocol.Message) {
	if s.pc == nil || msg.Sender != s.peerID {
		s.log.Debug().Str("sender", msg.Sender).Msg("dropping unexpected answer")
		return
	}
	if s.pc.SignalingState() != pion.SignalingStateHaveLocalOffer {
		s.log.Debug().Msg("dropping stale answer")
		return
	}

	desc, err := decodeDescription(msg.SDP, pion.SDPTypeAnswer)
	if err != nil {
		s.setErr(WrapError(OpApplyAnswer, ErrNegotiationFailure, err.Error()))
		return
	}

	pc, gen := s.pc, s.pcGen
	s.startOp(func(ctx context.Context) opResult {
		err := pc.SetRemoteDescription(desc)
		return opResult{apply: func() {
			if gen != s.pcGen {
				return
			}
			if err != nil {
				s.negotiationFailed(NewError(OpApplyAnswer, fmt.Errorf("%w: %w", ErrNegotiationFailure, err)))
				return
			}
			s.remoteSet = true
			s.flushCandidates()
		}}
	})
}

func (s *Session) onCandidate(msg *protocol.Message) {
	if s.peerID != "" && msg.Sender != s.peerID {
		s.log.Debug().Str("sender", msg.Sender).Msg("dropping candidate from unknown sender")
		return
	}

	var c pion.ICECandidateInit
	if err := json.Unmarshal(msg.Candidate, &c); err != nil {
		s.log.Warn().Err(err).Msg("dropping malformed candidate")
		return
	}

	if s.pc == nil || !s.remoteSet {
		s.pending = append(s.pending, pendingCandidate{sender: msg.Sender, candidate: c})
		return
	}
	s.addCandidate(c)
}

func (s *Session) flushCandidates() {
	pending := s.pending
	s.pending = nil

	for _, p := range pending {
		if p.sender != s.peerID {
			continue
		}
		s.addCandidate(p.candidate)
	}
	if len(pending) > 0 {
		s.log.Debug().Int("count", len(pending)).Msg("flushed buffered candidates")
	}
}

func (s *Session) addCandidate(c pion.ICECandidateInit) {
	if err := s.pc.AddICECandidate(c); err != nil {
		s.log.Warn().Err(err).Msg("failed to add ICE candidate")
	}
}

// onUserLeft keeps local media; the session stays in the room for the next peer.
func (s *Session) onUserLeft(peerID string) {
	if peerID != s.peerID {
		s.log.Debug().Str("peer_id", peerID).Msg("ignoring user-left for unknown peer")
		return
	}
	s.log.Info().Str("peer_id", peerID).Msg("peer left")

	s.resetPeer()
	s.setPeer("")
	s.offerer = false

	if s.state == Negotiating || s.state == Connected {
		s.setState(Disconnected, nil)
	}
}

func (s *Session) createPeer() error {
	s.pcGen++
	gen := s.pcGen

	events := PeerEvents{
		OnICECandidate: func(c pion.ICECandidateInit) {
			s.post(gen, func() { s.sendCandidate(c) })
		},
		OnConnectionState: func(state pion.PeerConnectionState) {
			s.post(gen, func() { s.onConnectionState(state) })
		},
		OnTrack: func(t RemoteTrack) {
			s.post(gen, func() { s.onTrack(t) })
		},
		OnNegotiationNeeded: func() {
			s.post(gen, func() {
				// Until the first connection the initial exchange covers it.
				if s.everConnected {
					s.needsNegotiation = true
				}
			})
		},
	}

	pc, err := s.opts.Peers.NewPeerConnection(events)
	if err != nil {
		return NewError(OpCreatePeer, fmt.Errorf("%w: %w", ErrNegotiationFailure, err))
	}

	s.mu.RLock()
	local := s.local
	s.mu.RUnlock()

	if local != nil {
		for _, track := range local.Tracks() {
			if err := pc.AddTrack(track); err != nil {
				pc.Close()
				return WrapError(OpCreatePeer, ErrNegotiationFailure, err.Error())
			}
		}
	}

	s.pc = pc
	s.remoteSet = false
	s.everConnected = false
	return nil
}

func (s *Session) post(gen int, fn func()) {
	select {
	case s.peerEvents <- peerEvent{gen: gen, fn: fn}:
	case <-s.done:
	}
}

func (s *Session) startOffer() {
	pc, gen, peer := s.pc, s.pcGen, s.peerID
	s.needsNegotiation = false

	s.startOp(func(ctx context.Context) opResult {
		offer, err := pc.CreateOffer()
		if err == nil {
			err = pc.SetLocalDescription(offer)
		}
		return opResult{apply: func() {
			if gen != s.pcGen {
				return
			}
			if err != nil {
				s.negotiationFailed(NewError(OpOffer, fmt.Errorf("%w: %w", ErrNegotiationFailure, err)))
				return
			}
			s.sendDescription(protocol.NewOffer, peer, offer)
		}}
	})
}

// maybeRenegotiate replays the offer/answer exchange with the known peer
// when the engine asks for it after the first connection. The answerer
// never offers: pion cannot roll back a local offer, so two colliding
// offers would leave one side stuck. Its pending changes ride on the
// offerer's next exchange.
func (s *Session) maybeRenegotiate() {
	if !s.needsNegotiation || s.busy || s.pc == nil || !s.offerer {
		return
	}
	if !s.everConnected || s.state != Connected {
		return
	}
	if s.pc.SignalingState() != pion.SignalingStateStable {
		return
	}
	s.log.Info().Msg("renegotiating")
	s.startOffer()
}

func (s *Session) onConnectionState(state pion.PeerConnectionState) {
	s.log.Debug().Stringer("pc_state", state).Msg("peer connection state")

	switch state {
	case pion.PeerConnectionStateConnected:
		s.stopTimer()
		s.everConnected = true
		s.publishRemote()
		s.setState(Connected, nil)

	case pion.PeerConnectionStateDisconnected:
		if s.state == Connected || s.state == Negotiating {
			s.clearRemote()
			s.setState(Disconnected, nil)
		}

	case pion.PeerConnectionStateFailed, pion.PeerConnectionStateClosed:
		s.negotiationFailed(WrapError(OpConnect, ErrNegotiationFailure, state.String()))
	}
}

func (s *Session) onTrack(t RemoteTrack) {
	s.log.Info().Str("kind", t.Kind).Str("track_id", t.ID).Msg("remote track")
	s.tracks = append(s.tracks, t)
	if s.state == Connected {
		s.publishRemote()
	}
}

func (s *Session) sendCandidate(c pion.ICECandidateInit) {
	if s.peerID == "" {
		return
	}
	data, err := json.Marshal(c)
	if err != nil {
		s.log.Error().Err(err).Msg("encode candidate")
		return
	}
	s.send(protocol.NewICECandidate(s.peerID, data))
}

func (s *Session) sendDescription(newMsg func(string, json.RawMessage) *protocol.Message, peer string, desc pion.SessionDescription) {
	data, err := json.Marshal(desc)
	if err != nil {
		s.log.Error().Err(err).Msg("encode session description")
		return
	}
	s.send(newMsg(peer, data))
}

// send fails only when the channel is going away; its closure is handled
// when Incoming closes.
func (s *Session) send(msg *protocol.Message) {
	if s.ch == nil {
		return
	}
	if err := s.ch.Send(msg); err != nil {
		s.log.Warn().Err(err).Str("type", msg.Type).Msg("failed to send")
	}
}

func (s *Session) enterNegotiating() {
	s.setState(Negotiating, nil)
	s.stopTimer()
	if s.opts.NegotiationTimeout > 0 {
		s.timer = time.NewTimer(s.opts.NegotiationTimeout)
	}
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// negotiationFailed drops the peer connection but keeps the pairing, so a
// fresh offer from the same peer can start over.
func (s *Session) negotiationFailed(err error) {
	s.log.Warn().Err(err).Msg("negotiation failed")
	s.resetPeer()
	s.setState(Disconnected, err)
}

func (s *Session) resetPeer() {
	s.stopTimer()
	s.closePC()
	s.remoteSet = false
	s.everConnected = false
	s.needsNegotiation = false
	s.pending = nil
	s.tracks = nil
	s.clearRemote()
}

func (s *Session) closePC() {
	if s.pc == nil {
		return
	}
	// Callbacks from the old connection become stale.
	s.pcGen++
	pc := s.pc
	s.pc = nil
	if err := pc.Close(); err != nil {
		s.log.Debug().Err(err).Msg("close peer connection")
	}
}

// shutdown releases everything and enters Closed. explicit sends leave first.
func (s *Session) shutdown(cause error, explicit bool) {
	if s.state == Closed {
		return
	}
	s.leaveSignal = nil
	s.ctxDone = nil

	s.resetPeer()

	if s.ch != nil {
		if explicit {
			if err := s.ch.Send(protocol.NewLeave()); err != nil {
				s.log.Debug().Err(err).Msg("leave not delivered")
			}
		}
		s.ch.Close()
		s.ch = nil
	}

	s.mu.Lock()
	local := s.local
	s.peerID = ""
	s.joined = false
	s.mu.Unlock()

	if local != nil {
		local.Stop()
	}
	s.cancel()

	if cause != nil {
		s.log.Error().Err(cause).Msg("session closed")
	}
	s.setState(Closed, cause)
	close(s.closed)
}

func (s *Session) setState(state State, err error) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	if err != nil {
		s.lastErr = err
	}
	s.mu.Unlock()

	if prev == state && err == nil {
		return
	}
	s.log.Info().Stringer("from", prev).Stringer("to", state).Msg("state changed")

	select {
	case s.events <- Event{State: state, Err: err}:
	default:
		s.log.Debug().Stringer("state", state).Msg("event buffer full")
	}
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Session) setPeer(peerID string) {
	s.mu.Lock()
	s.peerID = peerID
	s.mu.Unlock()
}

func (s *Session) publishRemote() {
	rm := &RemoteMedia{PeerID: s.peerID}
	rm.Tracks = append(rm.Tracks, s.tracks...)

	s.mu.Lock()
	s.remote = rm
	s.mu.Unlock()
}

func (s *Session) clearRemote() {
	s.mu.Lock()
	s.remote = nil
	s.mu.Unlock()
}

func decodeDescription(raw json.RawMessage, want pion.SDPType) (pion.SessionDescription, error) {
	var desc pion.SessionDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		return desc, fmt.Errorf("decode session description: %w", err)
	}
	if desc.Type != want {
		return desc, fmt.Errorf("expected %s, got %s", want, desc.Type)
	}
	return desc, nil
}
