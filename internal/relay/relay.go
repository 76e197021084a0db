// Package relay routes signaling messages between sessions. It never looks
// inside offer, answer or candidate payloads.
package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/warpcall/warpcall/internal/protocol"
	"github.com/warpcall/warpcall/internal/registry"
)

// Options tunes per-connection behaviour.
type Options struct {
	// Maximum message size allowed from peer.
	ReadLimit int64

	// Time allowed to read the next pong message from the peer.
	PongWait time.Duration

	// Time allowed to write a message to the peer.
	WriteWait time.Duration

	// Outbound queue length per session. Messages beyond it are dropped.
	SendBuffer int
}

func DefaultOptions() Options {
	return Options{
		ReadLimit:  64 * 1024, // enough for SDP messages
		PongWait:   60 * time.Second,
		WriteWait:  10 * time.Second,
		SendBuffer: 256,
	}
}

// pingPeriod must be less than PongWait.
func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

// Relay is the signaling router layered on a registry.
type Relay struct {
	reg  *registry.Registry
	log  zerolog.Logger
	opts Options

	mu      sync.RWMutex
	clients map[registry.SessionID]*Client
}

func New(reg *registry.Registry, log zerolog.Logger, opts Options) *Relay {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultOptions().SendBuffer
	}
	return &Relay{
		reg:     reg,
		log:     log,
		opts:    opts,
		clients: make(map[registry.SessionID]*Client),
	}
}

// Attach registers a new session for conn. The caller starts the pumps.
func (r *Relay) Attach(conn *websocket.Conn, codec protocol.Codec) *Client {
	id := r.reg.Connect()
	c := &Client{
		ID:    id,
		relay: r,
		conn:  conn,
		codec: codec,
		send:  make(chan *protocol.Message, r.opts.SendBuffer),
		log:   r.log.With().Str("session_id", id.String()).Logger(),
	}

	r.mu.Lock()
	r.clients[id] = c
	r.mu.Unlock()

	c.log.Info().Str("codec", codec.Name()).Msg("session connected")
	return c
}

// Detach treats the session as having left, tells its peer, and closes the
// outbound queue so the write pump can finish.
func (r *Relay) Detach(c *Client) {
	dep, left := r.reg.Disconnect(c.ID)

	r.mu.Lock()
	if r.clients[c.ID] == c {
		delete(r.clients, c.ID)
	}
	r.mu.Unlock()
	c.closeSend()

	if left {
		r.notifyDeparture(c, dep)
	}
	c.log.Info().Msg("session disconnected")
}

// Handle processes one inbound message from c.
func (r *Relay) Handle(c *Client, msg *protocol.Message) {
	log := c.log.With().Str("type", msg.Type).Logger()

	if msg.IsNegotiation() {
		r.handleNegotiation(c, msg, log)
		return
	}

	switch msg.Type {
	case protocol.TypeJoin:
		r.handleJoin(c, msg, log)

	case protocol.TypeLeave:
		dep, left := r.reg.Leave(c.ID)
		if !left {
			log.Debug().Msg("leave ignored, session not in a room")
			return
		}
		r.notifyDeparture(c, dep)

	default:
		log.Warn().Msg("unknown message type")
		r.deliver(c.ID, protocol.NewError("unknown message type: "+msg.Type))
	}
}

func (r *Relay) handleJoin(c *Client, msg *protocol.Message, log zerolog.Logger) {
	if msg.RoomID == "" {
		r.deliver(c.ID, protocol.NewError(protocol.ErrEmptyRoomID.Error()))
		return
	}

	log = log.With().Str("room_id", msg.RoomID).Logger()

	out, err := r.reg.Join(c.ID, msg.RoomID)
	if err != nil {
		log.Error().Err(err).Msg("join failed")
		r.deliver(c.ID, protocol.NewError(err.Error()))
		return
	}

	switch out.Result {
	case registry.RoomFull:
		log.Info().Msg("room is full, join rejected")
		r.deliver(c.ID, protocol.NewRoomFull(msg.RoomID))

	case registry.AlreadyInRoom:
		current, _ := r.reg.RoomOf(c.ID)
		log.Info().Str("current_room", current).Msg("join rejected, session already in another room")
		r.deliver(c.ID, protocol.NewError("already in room "+current))

	case registry.Joined:
		r.deliver(c.ID, protocol.NewJoined(msg.RoomID))
		if out.Repeat {
			log.Debug().Msg("repeated join")
			return
		}

		log.Info().Str("peer_id", out.Peer.String()).Msg("session joined room")
		if out.Peer != "" {
			r.deliver(out.Peer, protocol.NewUserJoined(c.ID.String()))
			r.deliver(c.ID, protocol.NewOtherUser(out.Peer.String()))
		}
	}
}

func (r *Relay) handleNegotiation(c *Client, msg *protocol.Message, log zerolog.Logger) {
	target := registry.SessionID(msg.Target)
	log = log.With().Str("target", msg.Target).Logger()

	if target == "" || !r.reg.Connected(target) {
		// benign race: the peer just left
		log.Debug().Msg("dropping message for unknown target")
		return
	}

	if !r.deliver(target, msg.Forwarded(c.ID.String())) {
		log.Warn().Msg("failed to queue relayed message")
		return
	}
	log.Debug().Msg("relayed")
}

func (r *Relay) notifyDeparture(c *Client, dep registry.Departure) {
	log := c.log.With().Str("room_id", dep.RoomID).Logger()
	if dep.Peer == "" {
		log.Info().Msg("left room, room deleted")
		return
	}
	log.Info().Str("peer_id", dep.Peer.String()).Msg("left room")
	r.deliver(dep.Peer, protocol.NewUserLeft(c.ID.String()))
}

// deliver queues msg for id without waiting. It reports false when the
// session is gone or its queue is full.
func (r *Relay) deliver(id registry.SessionID, msg *protocol.Message) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		c.log.Warn().Str("type", msg.Type).Msg("send buffer full, dropping message")
		return false
	}
}

// Shutdown drops every connection. Each session detaches, and its peer is
// notified, as its read pump exits.
func (r *Relay) Shutdown() {
	r.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(r.clients))
	for _, c := range r.clients {
		if c.conn != nil {
			conns = append(conns, c.conn)
		}
	}
	r.mu.RUnlock()

	r.log.Info().Int("sessions", len(conns)).Msg("closing sessions")
	for _, conn := range conns {
		conn.Close()
	}
}
