// Package signaling is the client side of the relay connection. It never
// reconnects: once the websocket ends the client is finished.
package signaling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/warpcall/warpcall/internal/protocol"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMessageSize   = 64 * 1024
	handshakeTimeout = 10 * time.Second
)

var ErrClosed = errors.New("signaling channel closed")

// Client manages the WebSocket connection to the relay.
type Client struct {
	conn  *websocket.Conn
	codec protocol.Codec
	log   zerolog.Logger

	incoming chan *protocol.Message
	outgoing chan *protocol.Message

	// done is closed by Close, dead once the connection is gone.
	done      chan struct{}
	dead      chan struct{}
	closeOnce sync.Once
	deadOnce  sync.Once

	mu  sync.Mutex
	err error
}

// Dial establishes the WebSocket connection to the relay.
func Dial(ctx context.Context, serverURL string, codec protocol.Codec, log zerolog.Logger) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &Client{
		conn:     conn,
		codec:    codec,
		log:      log,
		incoming: make(chan *protocol.Message, 32),
		outgoing: make(chan *protocol.Message, 64),
		done:     make(chan struct{}),
		dead:     make(chan struct{}),
	}

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return c, nil
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
		c.markDead()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.setErr(err)
			}
			return
		}

		var msg protocol.Message
		if err := c.codec.Decode(data, &msg); err != nil {
			c.log.Warn().Err(err).Msg("dropping malformed frame from relay")
			continue
		}

		select {
		case c.incoming <- &msg:
		case <-c.done:
			return
		}
	}
}

// writePump writes messages to the WebSocket connection and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.markDead()
	}()

	for {
		select {
		case message := <-c.outgoing:
			if err := c.write(message); err != nil {
				c.setErr(err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.setErr(err)
				return
			}

		case <-c.done:
			c.flush()
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever was queued before Close, such as a final leave.
func (c *Client) flush() {
	for {
		select {
		case message := <-c.outgoing:
			if err := c.write(message); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(message *protocol.Message) error {
	data, err := c.codec.Encode(message)
	if err != nil {
		c.log.Error().Err(err).Str("type", message.Type).Msg("encode failed")
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(c.codec.FrameType(), data)
}

// Send queues a message for the relay. It fails once the client is closed
// or the connection dropped.
func (c *Client) Send(msg *protocol.Message) error {
	select {
	case <-c.done:
		return ErrClosed
	case <-c.dead:
		return ErrClosed
	default:
	}

	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	case <-c.dead:
		return ErrClosed
	}
}

// Incoming returns the channel for receiving messages. It is closed when
// the connection ends.
func (c *Client) Incoming() <-chan *protocol.Message {
	return c.incoming
}

// Err reports why the connection ended, nil if it ended through Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close sends a close frame after flushing queued messages. Safe to call repeatedly.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *Client) setErr(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}

func (c *Client) markDead() {
	c.deadOnce.Do(func() { close(c.dead) })
}
