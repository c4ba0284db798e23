package signaling

// EventType names every message exchanged over the /ws connection.
type EventType string

// Client to server.
const (
	EventJoinQueue    EventType = "join_queue"
	EventLeaveQueue   EventType = "leave_queue"
	EventJoinRoom     EventType = "join_room"
	EventOffer        EventType = "webrtc_offer"
	EventAnswer       EventType = "webrtc_answer"
	EventICECandidate EventType = "webrtc_ice_candidate"
	EventEndCall      EventType = "end_call"
)

// Server to client. Relayed handshake events reuse EventOffer, EventAnswer
// and EventICECandidate.
const (
	EventMatchFound  EventType = "match_found"
	EventQueueStatus EventType = "queue_status"
	EventCallEnded   EventType = "call_ended"
)

const (
	StatusMatched = "matched"
	StatusWaiting = "waiting"
)

// Request is one decoded inbound message.
type Request struct {
	Type    EventType      `json:"type" msgpack:"type"`
	Payload RequestPayload `json:"payload" msgpack:"payload"`

	// client is the connection that sent the request.
	// It's set by the read pump and never decoded from the wire.
	client *Client
}

// RequestPayload carries the fields of every inbound event. Offer, Answer and
// Candidate are opaque to the server and relayed as decoded.
type RequestPayload struct {
	UserID    string `json:"userId,omitempty" msgpack:"userId,omitempty"`
	RoomID    string `json:"roomId,omitempty" msgpack:"roomId,omitempty"`
	Offer     any    `json:"offer,omitempty" msgpack:"offer,omitempty"`
	Answer    any    `json:"answer,omitempty" msgpack:"answer,omitempty"`
	Candidate any    `json:"candidate,omitempty" msgpack:"candidate,omitempty"`
}

// Event is one outbound message.
type Event struct {
	Type    EventType `json:"type" msgpack:"type"`
	Payload any       `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// MatchFoundPayload is sent to both participants when a pairing is made.
type MatchFoundPayload struct {
	Status        string `json:"status" msgpack:"status"`
	RoomID        string `json:"roomId" msgpack:"roomId"`
	MatchedUserID string `json:"matchedUserId" msgpack:"matchedUserId"`
	Role          string `json:"role" msgpack:"role"`
}

// QueueStatusPayload is sent when no one was waiting.
type QueueStatusPayload struct {
	Status    string `json:"status" msgpack:"status"`
	QueueSize int    `json:"queueSize" msgpack:"queueSize"`
}

// SignalPayload is a relayed handshake message tagged with its sender.
type SignalPayload struct {
	Offer     any    `json:"offer,omitempty" msgpack:"offer,omitempty"`
	Answer    any    `json:"answer,omitempty" msgpack:"answer,omitempty"`
	Candidate any    `json:"candidate,omitempty" msgpack:"candidate,omitempty"`
	From      string `json:"from" msgpack:"from"`
}

// IsSignal reports whether t is one of the relayed handshake events.
func (t EventType) IsSignal() bool {
	switch t {
	case EventOffer, EventAnswer, EventICECandidate:
		return true
	}
	return false
}
