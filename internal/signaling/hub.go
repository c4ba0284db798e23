package signaling

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/BioHazard786/Pairline/internal/matchmaking"
	"github.com/BioHazard786/Pairline/internal/metrics"
)

// ErrHubStopped is returned by queries made after Run has returned.
var ErrHubStopped = errors.New("signaling: hub stopped")

// Reasons a call ends, as reported by the calls_ended_total metric.
const (
	reasonEndCall    = "end_call"
	reasonDisconnect = "disconnect"
)

// Hub is the central brain of the signaling server.
// It owns every session, the matchmaker and the room subscriptions, and
// mutates them only from the Run goroutine.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	inbound    chan *Request
	queries    chan func()
	done       chan struct{}

	clients    map[*Client]struct{}
	sessions   *Sessions
	matchmaker *matchmaking.Matchmaker

	// rooms maps a room ID to the connections subscribed to it.
	rooms map[string]map[*Client]struct{}

	log     *zap.Logger
	metrics *metrics.Metrics
}

// Stats is a point-in-time view of the hub.
type Stats struct {
	Connections   int `json:"connections"`
	Sessions      int `json:"sessions"`
	QueueSize     int `json:"queueSize"`
	ActiveMatches int `json:"activeMatches"`
	Rooms         int `json:"rooms"`
}

// NewHub creates a new Hub instance. A nil logger or metrics set is replaced
// with a no-op logger and a fresh private registry.
func NewHub(log *zap.Logger, m *metrics.Metrics) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *Request),
		queries:    make(chan func()),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		sessions:   NewSessions(),
		matchmaker: matchmaking.New(),
		rooms:      make(map[string]map[*Client]struct{}),
		log:        log.Named("hub"),
		metrics:    m,
	}
}

// Run starts the hub's main processing loop and blocks until ctx is done.
// This is the single goroutine that manages all state.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.connect(c)

		case c := <-h.unregister:
			h.disconnect(c)

		case req := <-h.inbound:
			h.handle(req)

		case fn := <-h.queries:
			fn()
		}
	}
}

// Register hands a new connection to the hub. It reports false once the hub
// has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister tells the hub that c went away. Calling it more than once is safe.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Dispatch queues a decoded request for the hub. It reports false once the
// hub has stopped.
func (h *Hub) Dispatch(req *Request) bool {
	select {
	case h.inbound <- req:
		return true
	case <-h.done:
		return false
	}
}

// Stats returns the current counters.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := h.query(ctx, func() {
		s = Stats{
			Connections:   len(h.clients),
			Sessions:      h.sessions.Len(),
			QueueSize:     h.matchmaker.QueueSize(),
			ActiveMatches: h.matchmaker.ActiveMatches(),
			Rooms:         len(h.rooms),
		}
	})
	return s, err
}

// MatchOf returns the active match of userID.
func (h *Hub) MatchOf(ctx context.Context, userID string) (matchmaking.Match, bool, error) {
	var (
		m  matchmaking.Match
		ok bool
	)
	err := h.query(ctx, func() {
		m, ok = h.matchmaker.Match(userID)
	})
	return m, ok, err
}

// query runs fn on the hub goroutine. fn must not block.
func (h *Hub) query(ctx context.Context, fn func()) error {
	reply := make(chan struct{})
	select {
	case h.queries <- func() { fn(); close(reply) }:
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-reply
	return nil
}

func (h *Hub) connect(c *Client) {
	h.clients[c] = struct{}{}
	if c.userID != "" {
		h.sessions.Register(c.userID, c)
	}
	h.log.Debug("client registered",
		zap.String("conn_id", c.ID),
		zap.String("user_id", c.userID),
		zap.String("codec", c.codec.Name()))
	h.updateGauges()
}

// disconnect is idempotent per client. Only the live session of a user tears
// down its match and queue entry, so a replaced connection closing late
// cannot end its successor's call.
func (h *Hub) disconnect(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	if c.userID != "" && h.sessions.RemoveIf(c.userID, c) {
		h.endMatch(c, reasonDisconnect)
		h.matchmaker.Leave(c.userID)
	}

	h.leaveRooms(c)
	delete(h.clients, c)
	c.closed = true
	close(c.send)

	h.log.Debug("client unregistered", zap.String("conn_id", c.ID), zap.String("user_id", c.userID))
	h.updateGauges()
}

func (h *Hub) shutdown() {
	for c := range h.clients {
		if !c.closed {
			c.closed = true
			close(c.send)
		}
	}
	h.log.Info("hub stopped", zap.Int("connections", len(h.clients)))
}

func (h *Hub) handle(req *Request) {
	c := req.client
	if c == nil {
		return
	}
	if _, ok := h.clients[c]; !ok {
		h.drop(dropStale, req.Type, "request from unregistered connection")
		return
	}

	switch req.Type {
	case EventJoinQueue:
		h.joinQueue(c, req.Payload.UserID)
	case EventLeaveQueue:
		h.leaveQueue(c)
	case EventJoinRoom:
		h.joinRoom(c, req.Payload.RoomID)
	case EventOffer, EventAnswer, EventICECandidate:
		h.relay(c, req)
	case EventEndCall:
		h.endCall(c, req.Payload.RoomID)
	default:
		h.drop(dropUnknown, req.Type, "unknown event type")
	}

	h.updateGauges()
}

// bind fixes the identity of c on first use and makes c the live session of
// that user.
func (h *Hub) bind(c *Client, requested string) string {
	switch {
	case c.userID == "" && requested != "":
		c.userID = requested
	case c.userID == "":
		c.userID = c.ID
	case requested != "" && requested != c.userID:
		h.log.Debug("ignoring userId, connection already bound",
			zap.String("conn_id", c.ID),
			zap.String("user_id", c.userID),
			zap.String("requested", requested))
	}

	if !h.sessions.IsCurrent(c.userID, c) {
		h.sessions.Register(c.userID, c)
	}
	return c.userID
}

func (h *Hub) joinQueue(c *Client, requested string) {
	userID := h.bind(c, requested)

	pairing, err := h.matchmaker.EnqueueOrPair(userID)
	if err != nil {
		h.metrics.Dropped.WithLabelValues(dropPairing).Inc()
		h.log.Warn("pairing failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	switch {
	case pairing.Created:
		m := *pairing.Match
		h.metrics.MatchesTotal.Inc()
		h.log.Info("match created",
			zap.String("room_id", m.RoomID),
			zap.String("caller", m.Caller),
			zap.String("callee", m.Callee))
		h.announce(m, m.Caller)
		h.announce(m, m.Callee)

	case pairing.Match != nil:
		h.log.Debug("already matched", zap.String("user_id", userID), zap.String("room_id", pairing.Match.RoomID))
		h.announce(*pairing.Match, userID)

	case pairing.Queued:
		h.log.Debug("queued", zap.String("user_id", userID), zap.Int("queue_size", pairing.QueueSize))
		h.send(c, &Event{
			Type: EventQueueStatus,
			Payload: QueueStatusPayload{
				Status:    StatusWaiting,
				QueueSize: pairing.QueueSize,
			},
		})
	}
}

func (h *Hub) leaveQueue(c *Client) {
	if c.userID == "" {
		h.drop(dropStale, EventLeaveQueue, "connection has no user")
		return
	}
	if h.matchmaker.Leave(c.userID) {
		h.log.Debug("left queue", zap.String("user_id", c.userID))
	}
}

func (h *Hub) joinRoom(c *Client, roomID string) {
	if roomID == "" || c.userID == "" {
		h.drop(dropMalformed, EventJoinRoom, "missing roomId or user")
		return
	}
	m, ok := h.matchmaker.Room(roomID)
	if !ok || !m.Has(c.userID) {
		h.drop(dropStale, EventJoinRoom, "not a member of room")
		return
	}
	h.subscribe(c, roomID)
}

func (h *Hub) endCall(c *Client, roomID string) {
	if c.userID == "" {
		h.drop(dropStale, EventEndCall, "connection has no user")
		return
	}
	m, ok := h.matchmaker.Match(c.userID)
	if !ok || (roomID != "" && roomID != m.RoomID) {
		h.drop(dropStale, EventEndCall, "no such match")
		return
	}
	h.endMatch(c, reasonEndCall)
}

func (h *Hub) updateGauges() {
	h.metrics.Connections.Set(float64(len(h.clients)))
	h.metrics.Sessions.Set(float64(h.sessions.Len()))
	h.metrics.QueueSize.Set(float64(h.matchmaker.QueueSize()))
	h.metrics.ActiveMatches.Set(float64(h.matchmaker.ActiveMatches()))
}
