package signaling

// Sessions maps a user ID to the connection currently serving it.
// Only the hub goroutine touches it.
type Sessions struct {
	byUser map[string]*Client
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{byUser: make(map[string]*Client)}
}

// Register stores c for userID, replacing any previous connection.
func (s *Sessions) Register(userID string, c *Client) {
	s.byUser[userID] = c
}

// Lookup returns the live connection of userID.
func (s *Sessions) Lookup(userID string) (*Client, bool) {
	c, ok := s.byUser[userID]
	return c, ok
}

// RemoveIf forgets userID only while it still points at c, so a connection
// that was replaced by a reconnect cannot evict its successor.
func (s *Sessions) RemoveIf(userID string, c *Client) bool {
	if cur, ok := s.byUser[userID]; ok && cur == c {
		delete(s.byUser, userID)
		return true
	}
	return false
}

// IsCurrent reports whether c is the live connection of userID.
func (s *Sessions) IsCurrent(userID string, c *Client) bool {
	cur, ok := s.byUser[userID]
	return ok && cur == c
}

// Len returns the number of users with a live connection.
func (s *Sessions) Len() int { return len(s.byUser) }
