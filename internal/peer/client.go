package peer

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/BioHazard786/Pairline/internal/dns"
	"github.com/BioHazard786/Pairline/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	dialTimeout    = 10 * time.Second
)

// Client manages the WebSocket connection to the relay.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	msgpack   bool
	codec     signaling.Codec
	resolver  *dns.Resolver
	log       *zap.Logger

	incoming  chan *Inbound
	outgoing  chan *signaling.Request
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new signaling client. With useMsgpack the client offers
// the MessagePack subprotocol and falls back to JSON if the relay declines.
func NewClient(serverURL string, useMsgpack bool, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		serverURL: serverURL,
		msgpack:   useMsgpack,
		codec:     signaling.JSON,
		resolver:  &dns.Resolver{},
		log:       log.Named("signaling"),
		incoming:  make(chan *Inbound, 32),
		outgoing:  make(chan *signaling.Request, 32),
		done:      make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection. A non-empty userID is bound
// to the connection up front through the userId query parameter.
func (c *Client) Connect(ctx context.Context, userID string) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if userID != "" {
		q := u.Query()
		q.Set("userId", userID)
		u.RawQuery = q.Encode()
	}

	subprotocols := []string{signaling.SubprotocolJSON}
	if c.msgpack {
		subprotocols = []string{signaling.SubprotocolMsgpack, signaling.SubprotocolJSON}
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: dialTimeout,
		Subprotocols:     subprotocols,
		NetDialContext:   c.resolver.DialContext,
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.codec = signaling.CodecFor(conn.Subprotocol())
	c.log.Debug("connected", zap.String("url", u.String()), zap.String("codec", c.codec.Name()))

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

// Codec returns the wire format the relay agreed to.
func (c *Client) Codec() signaling.Codec { return c.codec }

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Inbound
		if err := c.codec.Unmarshal(data, &msg); err != nil {
			c.log.Debug("dropping undecodable frame", zap.Error(err))
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
	}()

	for {
		select {
		case req := <-c.outgoing:
			if err := c.write(req); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			// Flush what was queued before Close, e.g. a final end_call.
			for {
				select {
				case req := <-c.outgoing:
					if err := c.write(req); err != nil {
						return
					}
					continue
				default:
				}
				break
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) write(req *signaling.Request) error {
	data, err := c.codec.Marshal(req)
	if err != nil {
		c.log.Warn("encode request", zap.String("type", string(req.Type)), zap.Error(err))
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(c.codec.FrameType(), data)
}

// SendMessage queues a request for the relay.
func (c *Client) SendMessage(req *signaling.Request) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.outgoing <- req:
		return nil
	case <-c.done:
		return ErrClientClosed
	}
}

// Incoming returns the channel for receiving messages. It is closed when the
// connection drops.
func (c *Client) Incoming() <-chan *Inbound {
	return c.incoming
}

// Close closes the WebSocket connection after flushing queued requests.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
