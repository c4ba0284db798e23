package signaling

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/Pairline/internal/config"
)

func TestNewClientFallsBackToConfigDefaults(t *testing.T) {
	c := NewClient(nil, nil, nil, ClientOptions{})
	require.Equal(t, config.DefaultSendBuffer, cap(c.send))
	require.EqualValues(t, config.DefaultMaxMessageSize, c.maxSize)
	require.Equal(t, JSON, c.Codec())
	require.NotEmpty(t, c.ID)

	c = NewClient(nil, nil, Msgpack, ClientOptions{SendBuffer: 4, MaxMessageSize: 512, UserID: "A"})
	require.Equal(t, 4, cap(c.send))
	require.EqualValues(t, 512, c.maxSize)
	require.Equal(t, "A", c.userID)
}
