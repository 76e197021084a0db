package signaling

import (
	"context"
	"errors"
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
	"github.com/warpcall/warpcall/internal/server"
)

func startRelay(t *testing.T) string {
	t.Helper()
	reg := registry.New()
	rl := relay.New(reg, zerolog.Nop(), relay.DefaultOptions())
	srv := httptest.NewServer(server.NewRouter(rl, reg, &config.ServerConfig{}, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dialClient(t *testing.T, url string, codec protocol.Codec) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, url, codec, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func next(t *testing.T, c *Client) *protocol.Message {
	t.Helper()
	select {
	case msg, ok := <-c.Incoming():
		require.True(t, ok, "incoming closed")
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestClientExchangesMessages(t *testing.T) {
	for _, codec := range []protocol.Codec{protocol.JSONCodec{}, protocol.MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			url := startRelay(t)
			url += "?codec=" + codec.Name()

			a := dialClient(t, url, codec)
			require.NoError(t, a.Send(protocol.NewJoin("ROOM")))
			assert.Equal(t, protocol.TypeJoined, next(t, a).Type)

			b := dialClient(t, url, codec)
			require.NoError(t, b.Send(protocol.NewJoin("ROOM")))
			assert.Equal(t, protocol.TypeJoined, next(t, b).Type)
			other := next(t, b)
			require.Equal(t, protocol.TypeOtherUser, other.Type)
			bID := next(t, a).PeerID

			require.NoError(t, a.Send(protocol.NewOffer(bID, []byte(`{"type":"offer","sdp":"v=0"}`))))
			offer := next(t, b)
			assert.Equal(t, protocol.TypeOffer, offer.Type)
			assert.Equal(t, other.PeerID, offer.Sender)
			assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(offer.SDP))
		})
	}
}

func TestLeaveIsFlushedBeforeClose(t *testing.T) {
	url := startRelay(t)

	a := dialClient(t, url, protocol.JSONCodec{})
	require.NoError(t, a.Send(protocol.NewJoin("R")))
	next(t, a)

	b := dialClient(t, url, protocol.JSONCodec{})
	require.NoError(t, b.Send(protocol.NewJoin("R")))
	next(t, b)
	next(t, b)
	next(t, a)

	require.NoError(t, b.Send(protocol.NewLeave()))
	require.NoError(t, b.Close())

	assert.Equal(t, protocol.TypeUserLeft, next(t, a).Type)
}

func TestSendAfterClose(t *testing.T) {
	url := startRelay(t)
	c := dialClient(t, url, protocol.JSONCodec{})

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send(protocol.NewLeave()), ErrClosed)

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-c.Incoming():
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.NoError(t, c.Err())
}

func TestRelayDropEndsClient(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
		conn.Close()
	}))
	defer srv.Close()

	c := dialClient(t, "ws"+strings.TrimPrefix(srv.URL, "http"), protocol.JSONCodec{})

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-c.Incoming():
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	assert.Error(t, c.Err())
	require.Eventually(t, func() bool {
		return errors.Is(c.Send(protocol.NewLeave()), ErrClosed)
	}, 5*time.Second, 10*time.Millisecond)
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Dial(ctx, "ws://127.0.0.1:1/ws", protocol.JSONCodec{}, zerolog.Nop())
	assert.Error(t, err)
}
