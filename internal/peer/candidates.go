package peer

import (
	pion "github.com/pion/webrtc/v4"
)

// candidateQueue holds remote ICE candidates until the remote description is
// set; pion rejects candidates that arrive before it.
type candidateQueue struct {
	ready   bool
	pending []pion.ICECandidateInit
}

// Add applies c now if the queue is ready, otherwise keeps it.
func (q *candidateQueue) Add(c pion.ICECandidateInit, apply func(pion.ICECandidateInit) error) error {
	if !q.ready {
		q.pending = append(q.pending, c)
		return nil
	}
	return apply(c)
}

// Ready applies every held candidate in arrival order. Later candidates are
// applied directly. The first error is returned after all were tried.
func (q *candidateQueue) Ready(apply func(pion.ICECandidateInit) error) error {
	q.ready = true
	pending := q.pending
	q.pending = nil

	var first error
	for _, c := range pending {
		if err := apply(c); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Len returns the number of held candidates.
func (q *candidateQueue) Len() int { return len(q.pending) }
