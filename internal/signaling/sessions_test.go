package signaling

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionsLastWriteWins(t *testing.T) {
	s := NewSessions()
	first, second := &Client{ID: "c1"}, &Client{ID: "c2"}

	s.Register("A", first)
	s.Register("A", second)
	require.Equal(t, 1, s.Len())

	got, ok := s.Lookup("A")
	require.True(t, ok)
	require.Same(t, second, got)
	require.False(t, s.IsCurrent("A", first))
	require.True(t, s.IsCurrent("A", second))
}

func TestSessionsRemoveIfKeepsSuccessor(t *testing.T) {
	s := NewSessions()
	old, cur := &Client{ID: "c1"}, &Client{ID: "c2"}
	s.Register("A", old)
	s.Register("A", cur)

	require.False(t, s.RemoveIf("A", old))
	require.True(t, s.IsCurrent("A", cur))

	require.True(t, s.RemoveIf("A", cur))
	require.False(t, s.RemoveIf("A", cur))
	require.Zero(t, s.Len())
}
