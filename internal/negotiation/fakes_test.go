package negotiation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/warpcall/warpcall/internal/media"
	"github.com/warpcall/warpcall/internal/protocol"
)

const waitFor = 2 * time.Second

var errFakeClosed = errors.New("fake channel closed")

type fakeChannel struct {
	in   chan *protocol.Message
	sent chan *protocol.Message

	mu        sync.Mutex
	closed    bool
	err       error
	closeOnce sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		in:   make(chan *protocol.Message, 64),
		sent: make(chan *protocol.Message, 128),
	}
}

func (c *fakeChannel) Send(msg *protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errFakeClosed
	}
	c.sent <- msg
	return nil
}

func (c *fakeChannel) Incoming() <-chan *protocol.Message {
	return c.in
}

func (c *fakeChannel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// drop simulates the relay connection going away.
func (c *fakeChannel) drop() {
	c.dropWith(nil)
}

func (c *fakeChannel) dropWith(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = cause
		c.mu.Unlock()
		close(c.in)
	})
}

func (c *fakeChannel) push(msg *protocol.Message) {
	c.in <- msg
}

func (c *fakeChannel) next(t *testing.T) *protocol.Message {
	t.Helper()
	select {
	case msg := <-c.sent:
		return msg
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for an outbound message")
		return nil
	}
}

func (c *fakeChannel) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case msg := <-c.sent:
		t.Fatalf("unexpected outbound %s", msg.Type)
	case <-time.After(d):
	}
}

type fakePC struct {
	events    PeerEvents
	offerGate chan struct{}

	mu         sync.Mutex
	state      pion.SignalingState
	tracks     []pion.TrackLocal
	local      *pion.SessionDescription
	remote     *pion.SessionDescription
	candidates []pion.ICECandidateInit
	closed     bool
	offers     int
}

func (p *fakePC) AddTrack(track pion.TrackLocal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracks = append(p.tracks, track)
	return nil
}

func (p *fakePC) CreateOffer() (pion.SessionDescription, error) {
	if p.offerGate != nil {
		<-p.offerGate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return pion.SessionDescription{}, errors.New("closed")
	}
	p.offers++
	return pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: "v=0 offer"}, nil
}

func (p *fakePC) CreateAnswer() (pion.SessionDescription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != pion.SignalingStateHaveRemoteOffer {
		return pion.SessionDescription{}, errors.New("no remote offer")
	}
	return pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: "v=0 answer"}, nil
}

func (p *fakePC) SetLocalDescription(desc pion.SessionDescription) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("closed")
	}
	switch desc.Type {
	case pion.SDPTypeOffer:
		p.state = pion.SignalingStateHaveLocalOffer
	case pion.SDPTypeAnswer:
		p.state = pion.SignalingStateStable
	case pion.SDPTypeRollback:
		// pion rejects local rollback.
		return errors.New("invalid SDP type supplied to SetLocalDescription(): rollback")
	}
	p.local = &desc
	return nil
}

func (p *fakePC) SetRemoteDescription(desc pion.SessionDescription) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("closed")
	}
	switch desc.Type {
	case pion.SDPTypeOffer:
		if p.state == pion.SignalingStateHaveLocalOffer {
			return errors.New("glare")
		}
		p.state = pion.SignalingStateHaveRemoteOffer
	case pion.SDPTypeAnswer:
		p.state = pion.SignalingStateStable
	}
	p.remote = &desc
	return nil
}

func (p *fakePC) AddICECandidate(c pion.ICECandidateInit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.remote == nil {
		return errors.New("remote description not set")
	}
	p.candidates = append(p.candidates, c)
	return nil
}

func (p *fakePC) SignalingState() pion.SignalingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *fakePC) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePC) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePC) hasRemote() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remote != nil
}

func (p *fakePC) appliedCandidates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.candidates))
	for i, c := range p.candidates {
		out[i] = c.Candidate
	}
	return out
}

func (p *fakePC) trackCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tracks)
}

func (p *fakePC) offerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offers
}

func (p *fakePC) connect() {
	p.events.OnConnectionState(pion.PeerConnectionStateConnected)
}

type fakeFactory struct {
	offerGate chan struct{}

	mu  sync.Mutex
	pcs []*fakePC
}

func (f *fakeFactory) NewPeerConnection(events PeerEvents) (PeerConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pc := &fakePC{events: events, offerGate: f.offerGate, state: pion.SignalingStateStable}
	f.pcs = append(f.pcs, pc)
	return pc, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pcs)
}

func (f *fakeFactory) last(t *testing.T) *fakePC {
	t.Helper()
	require.Eventually(t, func() bool { return f.count() > 0 }, waitFor, 5*time.Millisecond)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pcs[len(f.pcs)-1]
}

// gatedProvider blocks Acquire until released, ignoring cancellation.
type gatedProvider struct {
	gate chan struct{}

	mu     sync.Mutex
	handle media.Handle
}

func (p *gatedProvider) Acquire(ctx context.Context, c media.Constraints) (media.Handle, error) {
	<-p.gate
	h, err := media.NewSyntheticProvider(zerolog.Nop()).Acquire(context.Background(), c)
	p.mu.Lock()
	p.handle = h
	p.mu.Unlock()
	return h, err
}

func (p *gatedProvider) acquired() media.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

type failingProvider struct{ err error }

func (p failingProvider) Acquire(context.Context, media.Constraints) (media.Handle, error) {
	return nil, p.err
}

type harness struct {
	s     *Session
	ch    *fakeChannel
	peers *fakeFactory

	mu    sync.Mutex
	dials int
}

func newHarness(t *testing.T, configure func(*Options, *harness)) *harness {
	t.Helper()
	h := &harness{ch: newFakeChannel(), peers: &fakeFactory{}}

	opts := Options{
		RoomID: "x7q",
		Media:  media.NewSyntheticProvider(zerolog.Nop()),
		Dial: func(ctx context.Context) (Channel, error) {
			h.mu.Lock()
			h.dials++
			h.mu.Unlock()
			return h.ch, nil
		},
		Peers:  h.peers,
		Logger: zerolog.Nop(),
	}
	if configure != nil {
		configure(&opts, h)
	}

	h.s = New(opts)
	t.Cleanup(h.s.Leave)
	return h
}

func (h *harness) dialCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dials
}

// join starts the session and waits until it is in the room.
func (h *harness) join(t *testing.T) {
	t.Helper()
	require.NoError(t, h.s.Join(context.Background()))

	msg := h.ch.next(t)
	require.Equal(t, protocol.TypeJoin, msg.Type)
	require.Equal(t, "X7Q", msg.RoomID)

	h.waitState(t, AwaitingPeer)
	h.ch.push(protocol.NewJoined("X7Q"))
}

func (h *harness) waitState(t *testing.T, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.s.State() == want },
		waitFor, 5*time.Millisecond, "want state %s, have %s", want, h.s.State())
}

// connectAsOfferer drives the session to Connected after it observed peer B arrive.
func (h *harness) connectAsOfferer(t *testing.T) *fakePC {
	t.Helper()
	h.join(t)
	h.ch.push(protocol.NewUserJoined("B"))

	offer := h.ch.next(t)
	require.Equal(t, protocol.TypeOffer, offer.Type)
	require.Equal(t, "B", offer.Target)

	pc := h.peers.last(t)
	h.ch.push(relayedAnswer("B"))
	require.Eventually(t, pc.hasRemote, waitFor, 5*time.Millisecond)

	pc.connect()
	h.waitState(t, Connected)
	return pc
}

// connectAsAnswerer drives the session to Connected after peer A offered.
func (h *harness) connectAsAnswerer(t *testing.T) *fakePC {
	t.Helper()
	h.join(t)
	h.ch.push(protocol.NewOtherUser("A"))
	h.ch.push(relayedOffer("A"))

	answer := h.ch.next(t)
	require.Equal(t, protocol.TypeAnswer, answer.Type)
	require.Equal(t, "A", answer.Target)

	pc := h.peers.last(t)
	pc.connect()
	h.waitState(t, Connected)
	return pc
}

func description(typ pion.SDPType, sdp string) json.RawMessage {
	data, _ := json.Marshal(pion.SessionDescription{Type: typ, SDP: sdp})
	return data
}

func relayedOffer(sender string) *protocol.Message {
	return protocol.NewOffer("self", description(pion.SDPTypeOffer, "v=0 remote offer")).Forwarded(sender)
}

func relayedAnswer(sender string) *protocol.Message {
	return protocol.NewAnswer("self", description(pion.SDPTypeAnswer, "v=0 remote answer")).Forwarded(sender)
}

func relayedCandidate(sender, candidate string) *protocol.Message {
	data, _ := json.Marshal(pion.ICECandidateInit{Candidate: candidate})
	return protocol.NewICECandidate("self", data).Forwarded(sender)
}
