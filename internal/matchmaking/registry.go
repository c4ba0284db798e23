package matchmaking

import (
	"fmt"
	"strings"
	"time"
)

// Role labels the side of a match that starts the WebRTC handshake.
type Role string

const (
	RoleCaller Role = "caller"
	RoleCallee Role = "callee"
)

// Match pairs two users in a room.
type Match struct {
	// Caller was waiting in the queue when the match was made.
	Caller string `json:"caller"`

	// Callee is the user whose join completed the pairing.
	Callee string `json:"callee"`

	RoomID    string    `json:"roomId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Peer returns the other participant of the match.
func (m Match) Peer(userID string) string {
	if m.Caller == userID {
		return m.Callee
	}
	return m.Caller
}

// RoleOf returns the role userID plays in the match.
func (m Match) RoleOf(userID string) Role {
	if m.Caller == userID {
		return RoleCaller
	}
	return RoleCallee
}

// Has reports whether userID participates in the match.
func (m Match) Has(userID string) bool {
	return m.Caller == userID || m.Callee == userID
}

// roomEscaper percent-encodes the separator so that distinct pairs never
// share a room ID: {a_b, c} and {a, b_c} must not both become room_a_b_c.
var (
	roomEscaper   = strings.NewReplacer("%", "%25", "_", "%5F")
	roomUnescaper = strings.NewReplacer("%5F", "_", "%25", "%")
)

// RoomID derives the room identifier for an unordered pair of users.
// IDs without '_' or '%' appear verbatim, as in room_A_B.
func RoomID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "room_" + roomEscaper.Replace(a) + "_" + roomEscaper.Replace(b)
}

// SplitRoomID recovers the two user IDs of a room built by RoomID.
func SplitRoomID(roomID string) (a, b string, ok bool) {
	rest, ok := strings.CutPrefix(roomID, "room_")
	if !ok {
		return "", "", false
	}
	ea, eb, ok := strings.Cut(rest, "_")
	if !ok || ea == "" || eb == "" {
		return "", "", false
	}
	a, b = roomUnescaper.Replace(ea), roomUnescaper.Replace(eb)
	if RoomID(a, b) != roomID {
		return "", "", false
	}
	return a, b, true
}

// Registry holds active matches keyed by room, plus the user → peer index.
// Both maps are always changed together.
type Registry struct {
	rooms map[string]Match
	peers map[string]string

	now func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]Match),
		peers: make(map[string]string),
		now:   time.Now,
	}
}

// Get returns the active match of userID.
func (r *Registry) Get(userID string) (Match, bool) {
	peer, ok := r.peers[userID]
	if !ok {
		return Match{}, false
	}
	m, ok := r.rooms[RoomID(userID, peer)]
	if !ok || !m.Has(userID) {
		return Match{}, false
	}
	return m, true
}

// Room returns the match living in roomID.
func (r *Registry) Room(roomID string) (Match, bool) {
	m, ok := r.rooms[roomID]
	return m, ok
}

// Create records a new match between caller and callee.
func (r *Registry) Create(caller, callee string) (Match, error) {
	if caller == "" || callee == "" {
		return Match{}, ErrEmptyUserID
	}
	if caller == callee {
		return Match{}, ErrSelfMatch
	}
	if _, ok := r.peers[caller]; ok {
		return Match{}, ErrAlreadyMatched
	}
	if _, ok := r.peers[callee]; ok {
		return Match{}, ErrAlreadyMatched
	}

	roomID := RoomID(caller, callee)
	if taken, ok := r.rooms[roomID]; ok {
		return Match{}, fmt.Errorf("%w: %s held by %s and %s", ErrRoomTaken, roomID, taken.Caller, taken.Callee)
	}

	m := Match{
		Caller:    caller,
		Callee:    callee,
		RoomID:    roomID,
		CreatedAt: r.now(),
	}
	r.rooms[m.RoomID] = m
	r.peers[caller] = callee
	r.peers[callee] = caller
	return m, nil
}

// End removes the match containing userID and returns it.
// Calling End again for the same match reports false.
func (r *Registry) End(userID string) (Match, bool) {
	m, ok := r.Get(userID)
	if !ok {
		return Match{}, false
	}
	delete(r.rooms, m.RoomID)
	delete(r.peers, m.Caller)
	delete(r.peers, m.Callee)
	return m, true
}

// Len returns the number of active matches.
func (r *Registry) Len() int { return len(r.rooms) }
