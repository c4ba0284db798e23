package signaling

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/BioHazard786/Pairline/internal/config"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// ClientOptions tune a single connection.
type ClientOptions struct {
	// UserID binds the connection to a user up front (the ?userId= query).
	UserID string

	SendBuffer     int
	MaxMessageSize int64
}

// Client is a wrapper for a single websocket connection.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	codec Codec

	// ID is the transport-level connection identifier. It stands in for the
	// user ID when the client never supplies one.
	ID string

	remote  string
	maxSize int64
	send    chan *Event

	// The fields below are owned by the hub goroutine.
	userID string
	rooms  map[string]struct{}
	closed bool
}

// NewClient wraps conn. conn may be nil for connections driven directly
// through the hub, as the tests do.
func NewClient(hub *Hub, conn *websocket.Conn, codec Codec, opts ClientOptions) *Client {
	if codec == nil {
		codec = JSON
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = config.DefaultSendBuffer
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = config.DefaultMaxMessageSize
	}

	c := &Client{
		hub:     hub,
		conn:    conn,
		codec:   codec,
		ID:      uuid.NewString(),
		maxSize: opts.MaxMessageSize,
		send:    make(chan *Event, opts.SendBuffer),
		userID:  opts.UserID,
		rooms:   make(map[string]struct{}),
	}
	if conn != nil {
		c.remote = conn.RemoteAddr().String()
	}
	return c
}

// Send is the outbound channel. The hub closes it when the client goes away.
func (c *Client) Send() <-chan *Event { return c.send }

// Codec returns the wire format negotiated for the connection.
func (c *Client) Codec() Codec { return c.codec }

func (c *Client) logger() *zap.Logger {
	return c.hub.log.With(zap.String("conn_id", c.ID), zap.String("remote", c.remote))
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	log := c.logger()

	// When this function exits (e.g., connection closes), unregister the client
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug("read failed", zap.Error(err))
			}
			break
		}

		var req Request
		if err := c.codec.Unmarshal(data, &req); err != nil {
			log.Debug("dropping undecodable frame", zap.Error(err), zap.Int("bytes", len(data)))
			c.hub.metrics.Dropped.WithLabelValues(dropMalformed).Inc()
			continue
		}
		req.client = c

		if !c.hub.Dispatch(&req) {
			break
		}
	}
}

// WritePump pumps events from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	log := c.logger()
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := c.codec.Marshal(event)
			if err != nil {
				log.Warn("encode event", zap.String("type", string(event.Type)), zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				log.Debug("write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
