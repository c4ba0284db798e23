// Package matchmaking pairs waiting users two at a time in strict FIFO order
// and keeps the registry of active matches.
//
// A Matchmaker is not safe for concurrent use. The signaling hub owns one and
// calls it from its single event loop, which makes every compound operation
// (inspect queue head, pop it, create the match) atomic.
package matchmaking

import "fmt"

// Pairing is the outcome of EnqueueOrPair.
type Pairing struct {
	// Match is set when the user is matched, either freshly or already.
	Match *Match

	// Created is true when this call made the match.
	Created bool

	// Queued is true when the user is waiting; QueueSize is the size after the call.
	Queued    bool
	QueueSize int
}

// Matchmaker combines the pairing queue and the match registry.
type Matchmaker struct {
	queue    *Queue
	registry *Registry
}

// New creates an empty matchmaker.
func New() *Matchmaker {
	return &Matchmaker{
		queue:    NewQueue(),
		registry: NewRegistry(),
	}
}

// EnqueueOrPair matches userID with the longest-waiting user, or queues it.
//
// A user that is already matched gets its current match back unchanged and
// is not queued again. A user that is already queued stays where it is.
func (m *Matchmaker) EnqueueOrPair(userID string) (Pairing, error) {
	if userID == "" {
		return Pairing{}, ErrEmptyUserID
	}

	if existing, ok := m.registry.Get(userID); ok {
		return Pairing{Match: &existing}, nil
	}

	if m.queue.Contains(userID) {
		return Pairing{Queued: true, QueueSize: m.queue.Len()}, nil
	}

	for {
		peer, ok := m.queue.Peek()
		if !ok {
			break
		}
		if _, matched := m.registry.Get(peer); matched {
			// A matched user has no business waiting; skip it.
			m.queue.Pop()
			continue
		}
		match, err := m.registry.Create(peer, userID)
		if err != nil {
			// peer keeps its place; the caller decides what to tell userID.
			return Pairing{}, fmt.Errorf("pair %q with %q: %w", peer, userID, err)
		}
		m.queue.Pop()
		return Pairing{Match: &match, Created: true}, nil
	}

	m.queue.Push(userID)
	return Pairing{Queued: true, QueueSize: m.queue.Len()}, nil
}

// Leave removes userID from the queue. It does not touch an active match.
func (m *Matchmaker) Leave(userID string) bool {
	return m.queue.Remove(userID)
}

// End tears down the match of userID and returns it. The second call for the
// same match reports false.
func (m *Matchmaker) End(userID string) (Match, bool) {
	return m.registry.End(userID)
}

// Match returns the active match of userID.
func (m *Matchmaker) Match(userID string) (Match, bool) {
	return m.registry.Get(userID)
}

// Room returns the active match living in roomID.
func (m *Matchmaker) Room(roomID string) (Match, bool) {
	return m.registry.Room(roomID)
}

// QueueSize returns the number of waiting users.
func (m *Matchmaker) QueueSize() int { return m.queue.Len() }

// ActiveMatches returns the number of live matches.
func (m *Matchmaker) ActiveMatches() int { return m.registry.Len() }
