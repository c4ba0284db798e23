package matchmaking

// Queue is a FIFO waiting list of user IDs. A user ID appears at most once.
type Queue struct {
	order  []string
	queued map[string]struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{queued: make(map[string]struct{})}
}

// Push appends userID to the tail. It reports false if userID is already queued.
func (q *Queue) Push(userID string) bool {
	if q.Contains(userID) {
		return false
	}
	q.order = append(q.order, userID)
	q.queued[userID] = struct{}{}
	return true
}

// Peek returns the longest-waiting user ID without removing it.
func (q *Queue) Peek() (string, bool) {
	if len(q.order) == 0 {
		return "", false
	}
	return q.order[0], true
}

// Pop removes and returns the longest-waiting user ID.
func (q *Queue) Pop() (string, bool) {
	if len(q.order) == 0 {
		return "", false
	}
	head := q.order[0]
	q.order[0] = ""
	q.order = q.order[1:]
	delete(q.queued, head)
	return head, true
}

// Remove drops userID from the queue, keeping the order of everyone else.
func (q *Queue) Remove(userID string) bool {
	if !q.Contains(userID) {
		return false
	}
	for i, id := range q.order {
		if id == userID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	delete(q.queued, userID)
	return true
}

// Contains reports whether userID is waiting.
func (q *Queue) Contains(userID string) bool {
	_, ok := q.queued[userID]
	return ok
}

// Len returns the number of waiting user IDs.
func (q *Queue) Len() int { return len(q.order) }
