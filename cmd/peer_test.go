package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/Pairline/internal/peer"
)

func TestDescribeCoversEveryStage(t *testing.T) {
	for stage := peer.StageQueued; stage <= peer.StageEnded; stage++ {
		s := describe(peer.Update{Stage: stage, QueueSize: 2, PeerID: "A", RoomID: "room_A_B", Role: "caller", Detail: "offer sent"})
		require.False(t, s.Text == "" && s.State == "", "stage %s renders nothing", stage)
	}

	require.Equal(t, "Waiting in queue (2)", describe(peer.Update{Stage: peer.StageQueued, QueueSize: 2}).Text)
}

func TestCommandsAreRegistered(t *testing.T) {
	for _, name := range []string{"serve", "peer", "stats"} {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, c.Name())
	}
}
