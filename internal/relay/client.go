package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/warpcall/warpcall/internal/protocol"
	"github.com/warpcall/warpcall/internal/registry"
)

// Client is a wrapper for a single websocket connection (a session).
type Client struct {
	ID registry.SessionID

	relay *Relay
	conn  *websocket.Conn
	codec protocol.Codec

	// send is a buffered channel for all outbound messages.
	// The relay writes to it and WritePump drains it onto the websocket.
	send      chan *protocol.Message
	closeOnce sync.Once

	log zerolog.Logger
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// ReadPump pumps messages from the websocket connection to the relay.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	opts := c.relay.opts

	defer func() {
		c.relay.Detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(opts.ReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Error().Err(err).Msg("unexpected close")
			}
			return
		}

		var msg protocol.Message
		if err := c.codec.Decode(data, &msg); err != nil {
			c.log.Warn().Err(err).Msg("malformed frame")
			c.relay.deliver(c.ID, protocol.NewError("malformed message"))
			continue
		}

		c.relay.Handle(c, &msg)
	}
}

// WritePump pumps messages from the relay to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	opts := c.relay.opts
	ticker := time.NewTicker(opts.pingPeriod())

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if !ok {
				// The relay closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := c.codec.Encode(message)
			if err != nil {
				c.log.Error().Err(err).Str("type", message.Type).Msg("encode failed")
				continue
			}
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				c.log.Debug().Err(err).Msg("write failed")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
