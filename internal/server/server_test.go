package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warpcall/warpcall/internal/config"
	"github.com/warpcall/warpcall/internal/protocol"
	"github.com/warpcall/warpcall/internal/registry"
	"github.com/warpcall/warpcall/internal/relay"
)

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	rl := relay.New(reg, zerolog.Nop(), relay.DefaultOptions())
	srv := httptest.NewServer(NewRouter(rl, reg, &config.ServerConfig{}, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, reg
}

type wsPeer struct {
	t     *testing.T
	conn  *websocket.Conn
	codec protocol.Codec
}

func dial(t *testing.T, srv *httptest.Server, codec string) *wsPeer {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if codec != "" {
		url += "?codec=" + codec
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c, err := protocol.CodecByName(codec)
	require.NoError(t, err)
	return &wsPeer{t: t, conn: conn, codec: c}
}

func (p *wsPeer) send(msg *protocol.Message) {
	data, err := p.codec.Encode(msg)
	require.NoError(p.t, err)
	require.NoError(p.t, p.conn.WriteMessage(p.codec.FrameType(), data))
}

func (p *wsPeer) recv() *protocol.Message {
	p.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	frameType, data, err := p.conn.ReadMessage()
	require.NoError(p.t, err)
	assert.Equal(p.t, p.codec.FrameType(), frameType)

	var msg protocol.Message
	require.NoError(p.t, p.codec.Decode(data, &msg))
	return &msg
}

func TestJoinAndRelayOverWebsocket(t *testing.T) {
	srv, _ := newTestServer(t)

	a := dial(t, srv, "")
	a.send(protocol.NewJoin("X7Q"))
	assert.Equal(t, protocol.TypeJoined, a.recv().Type)

	b := dial(t, srv, "")
	b.send(protocol.NewJoin("X7Q"))
	joined := b.recv()
	require.Equal(t, protocol.TypeJoined, joined.Type)
	assert.Equal(t, "X7Q", joined.RoomID)

	other := b.recv()
	require.Equal(t, protocol.TypeOtherUser, other.Type)
	aID := other.PeerID

	userJoined := a.recv()
	require.Equal(t, protocol.TypeUserJoined, userJoined.Type)
	bID := userJoined.PeerID

	candidate := json.RawMessage(`{"candidate":"candidate:1 1 udp 2122260223 10.0.0.2 54321 typ host","sdpMid":"0"}`)
	a.send(protocol.NewICECandidate(bID, candidate))

	got := b.recv()
	assert.Equal(t, protocol.TypeICECandidate, got.Type)
	assert.Equal(t, aID, got.Sender)
	assert.Empty(t, got.Target)
	assert.JSONEq(t, string(candidate), string(got.Candidate))

	c := dial(t, srv, "")
	c.send(protocol.NewJoin("X7Q"))
	assert.Equal(t, protocol.TypeRoomFull, c.recv().Type)
}

func TestDisconnectNotifiesPeer(t *testing.T) {
	srv, reg := newTestServer(t)

	a := dial(t, srv, "")
	a.send(protocol.NewJoin("ROOM1"))
	a.recv()

	b := dial(t, srv, "")
	b.send(protocol.NewJoin("ROOM1"))
	b.recv()
	bID := a.recv().PeerID

	b.conn.Close()

	left := a.recv()
	assert.Equal(t, protocol.TypeUserLeft, left.Type)
	assert.Equal(t, bID, left.PeerID)

	require.Eventually(t, func() bool {
		return len(reg.Members("ROOM1")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMsgpackCodec(t *testing.T) {
	srv, _ := newTestServer(t)

	a := dial(t, srv, protocol.CodecMsgpack)
	a.send(protocol.NewJoin("BIN"))
	assert.Equal(t, protocol.TypeJoined, a.recv().Type)

	// JSON and msgpack sessions share rooms.
	b := dial(t, srv, protocol.CodecJSON)
	b.send(protocol.NewJoin("BIN"))
	assert.Equal(t, protocol.TypeJoined, b.recv().Type)
	assert.Equal(t, protocol.TypeOtherUser, b.recv().Type)
	assert.Equal(t, protocol.TypeUserJoined, a.recv().Type)
}

func TestUnknownCodecRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?codec=xml"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndRooms(t *testing.T) {
	srv, _ := newTestServer(t)

	a := dial(t, srv, "")
	a.send(protocol.NewJoin("ALPHA"))
	a.recv()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, []string{"ALPHA"}, health.Rooms)

	resp2, err := http.Get(srv.URL + "/rooms")
	require.NoError(t, err)
	defer resp2.Body.Close()

	var rooms []RoomInfo
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "ALPHA", rooms[0].RoomID)
	assert.Len(t, rooms[0].Members, 1)
}

func TestOriginRestriction(t *testing.T) {
	reg := registry.New()
	rl := relay.New(reg, zerolog.Nop(), relay.DefaultOptions())
	cfg := &config.ServerConfig{AllowedOrigins: []string{"https://call.example"}}
	srv := httptest.NewServer(NewRouter(rl, reg, cfg, zerolog.Nop()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://call.example")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestRelayShutdownDropsSessions(t *testing.T) {
	reg := registry.New()
	rl := relay.New(reg, zerolog.Nop(), relay.DefaultOptions())
	srv := httptest.NewServer(NewRouter(rl, reg, &config.ServerConfig{}, zerolog.Nop()))
	defer srv.Close()

	a := dial(t, srv, "")
	a.send(protocol.NewJoin("DOWN"))
	a.recv()

	rl.Shutdown()

	a.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := a.conn.ReadMessage()
	require.Error(t, err)

	require.Eventually(t, func() bool {
		return len(reg.Rooms()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
