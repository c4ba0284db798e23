package signaling

import (
	"go.uber.org/zap"

	"github.com/BioHazard786/Pairline/internal/matchmaking"
)

// Reasons an event is dropped, as reported by the events_dropped_total metric.
const (
	dropMalformed  = "malformed"
	dropStale      = "stale"
	dropUnknown    = "unknown_type"
	dropBufferFull = "buffer_full"
	dropPairing    = "pairing_failed"
)

// announce subscribes the live session of userID to the match room and sends
// it a role-annotated match_found.
func (h *Hub) announce(m matchmaking.Match, userID string) {
	c, ok := h.sessions.Lookup(userID)
	if !ok {
		return
	}
	h.subscribe(c, m.RoomID)
	h.send(c, &Event{
		Type: EventMatchFound,
		Payload: MatchFoundPayload{
			Status:        StatusMatched,
			RoomID:        m.RoomID,
			MatchedUserID: m.Peer(userID),
			Role:          string(m.RoleOf(userID)),
		},
	})
}

// relay forwards a handshake message to every other member of the room.
func (h *Hub) relay(c *Client, req *Request) {
	roomID := req.Payload.RoomID
	if roomID == "" || c.userID == "" {
		h.drop(dropMalformed, req.Type, "missing roomId or sender")
		return
	}
	members, ok := h.rooms[roomID]
	if !ok {
		h.drop(dropStale, req.Type, "unknown room")
		return
	}
	if _, member := members[c]; !member {
		h.drop(dropStale, req.Type, "sender is not in room")
		return
	}

	signal := SignalPayload{From: c.userID}
	switch req.Type {
	case EventOffer:
		signal.Offer = req.Payload.Offer
	case EventAnswer:
		signal.Answer = req.Payload.Answer
	case EventICECandidate:
		signal.Candidate = req.Payload.Candidate
	}
	event := &Event{Type: req.Type, Payload: signal}

	for member := range members {
		// Skip the sender and any stale connection of the same user.
		if member.userID == c.userID {
			continue
		}
		if h.send(member, event) {
			h.metrics.SignalsRelayed.WithLabelValues(string(req.Type)).Inc()
		}
	}
}

// endMatch tears down the match of c and sends call_ended to everyone else
// involved, each connection at most once. Nothing happens when c has no match.
func (h *Hub) endMatch(c *Client, reason string) {
	m, ok := h.matchmaker.End(c.userID)
	if !ok {
		return
	}
	h.metrics.CallsEnded.WithLabelValues(reason).Inc()
	h.log.Info("match ended",
		zap.String("room_id", m.RoomID),
		zap.String("by", c.userID),
		zap.String("reason", reason))

	event := &Event{Type: EventCallEnded}
	notified := make(map[*Client]struct{})

	for member := range h.rooms[m.RoomID] {
		if member.userID == c.userID {
			continue
		}
		h.send(member, event)
		notified[member] = struct{}{}
	}
	if peer, ok := h.sessions.Lookup(m.Peer(c.userID)); ok {
		if _, done := notified[peer]; !done {
			h.send(peer, event)
		}
	}

	h.closeRoom(m.RoomID)
}

func (h *Hub) subscribe(c *Client, roomID string) {
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[roomID] = members
	}
	members[c] = struct{}{}
	c.rooms[roomID] = struct{}{}
}

func (h *Hub) unsubscribe(c *Client, roomID string) {
	delete(c.rooms, roomID)
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *Hub) leaveRooms(c *Client) {
	for roomID := range c.rooms {
		h.unsubscribe(c, roomID)
	}
}

func (h *Hub) closeRoom(roomID string) {
	for member := range h.rooms[roomID] {
		delete(member.rooms, roomID)
	}
	delete(h.rooms, roomID)
}

// send never blocks the hub. A full or closed outbound buffer drops the event.
func (h *Hub) send(c *Client, event *Event) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- event:
		return true
	default:
		h.metrics.Dropped.WithLabelValues(dropBufferFull).Inc()
		h.log.Warn("outbound buffer full, dropping event",
			zap.String("conn_id", c.ID),
			zap.String("user_id", c.userID),
			zap.String("type", string(event.Type)))
		return false
	}
}

func (h *Hub) drop(reason string, t EventType, msg string) {
	h.metrics.Dropped.WithLabelValues(reason).Inc()
	h.log.Debug("dropping event", zap.String("type", string(t)), zap.String("reason", reason), zap.String("detail", msg))
}
