package peer

import (
	"errors"
	"net"
	"testing"

	pion "github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/Pairline/internal/matchmaking"
)

func TestCandidateQueueHoldsUntilReady(t *testing.T) {
	var q candidateQueue
	var applied []string
	apply := func(c pion.ICECandidateInit) error {
		applied = append(applied, c.Candidate)
		return nil
	}

	require.NoError(t, q.Add(pion.ICECandidateInit{Candidate: "a"}, apply))
	require.NoError(t, q.Add(pion.ICECandidateInit{Candidate: "b"}, apply))
	require.Empty(t, applied)
	require.Equal(t, 2, q.Len())

	require.NoError(t, q.Ready(apply))
	require.Equal(t, []string{"a", "b"}, applied)
	require.Zero(t, q.Len())

	require.NoError(t, q.Add(pion.ICECandidateInit{Candidate: "c"}, apply))
	require.Equal(t, []string{"a", "b", "c"}, applied)
}

func TestCandidateQueueAppliesAllOnError(t *testing.T) {
	var q candidateQueue
	boom := errors.New("boom")
	calls := 0
	apply := func(c pion.ICECandidateInit) error {
		calls++
		if c.Candidate == "bad" {
			return boom
		}
		return nil
	}

	q.Add(pion.ICECandidateInit{Candidate: "bad"}, apply)
	q.Add(pion.ICECandidateInit{Candidate: "good"}, apply)
	require.ErrorIs(t, q.Ready(apply), boom)
	require.Equal(t, 2, calls)
}

func TestSelfFromRoom(t *testing.T) {
	require.Equal(t, "B", selfFromRoom("room_A_B", "A"))
	require.Equal(t, "A", selfFromRoom("room_A_B", "B"))
	require.Equal(t, "x_y", selfFromRoom("room_a_x%5Fy", "a"))
	require.Equal(t, "a_b", selfFromRoom(matchmaking.RoomID("a_b", "c"), "c"))
	require.Equal(t, "", selfFromRoom("room_A_B", "C"))
}

func TestDescriptionSurvivesWireForm(t *testing.T) {
	desc := &pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: "v=0\r\n"}
	wire, err := toWire(desc)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"type": "answer", "sdp": "v=0\r\n"}, wire)

	back, err := parseDescription(wire, pion.SDPTypeAnswer)
	require.NoError(t, err)
	require.Equal(t, desc.SDP, back.SDP)

	_, err = parseDescription(wire, pion.SDPTypeOffer)
	require.ErrorIs(t, err, ErrUnexpectedSignal)
}

func TestHelloMessage(t *testing.T) {
	msg, err := NewChannelMessage(ChannelHello, HelloPayload{UserID: "A", Role: "caller", SentAt: 42})
	require.NoError(t, err)
	require.Equal(t, ChannelHello, msg.Type)

	var hello HelloPayload
	require.NoError(t, msg.DecodePayload(&hello))
	require.Equal(t, HelloPayload{UserID: "A", Role: "caller", SentAt: 42}, hello)
}

func TestDataChannelMessagesReachTheLoop(t *testing.T) {
	s := NewSession(nil, nil, nil, Options{}, nil)

	data, err := EncodeChannelMessage(ChannelHello, HelloPayload{UserID: "B", Role: "callee"})
	require.NoError(t, err)
	s.receive(data)
	require.Equal(t, HelloPayload{UserID: "B", Role: "callee"}, <-s.hello)

	data, err = EncodeChannelMessage(ChannelBye, ByePayload{Reason: "hangup"})
	require.NoError(t, err)
	s.receive(data)
	require.Equal(t, ByePayload{Reason: "hangup"}, <-s.bye)

	data, err = EncodeChannelMessage("shrug", nil)
	require.NoError(t, err)
	s.receive(data)
	s.receive([]byte{0xc1})
	require.Empty(t, s.hello)
	require.Empty(t, s.bye)
}

func TestByeWithoutOpenChannelIsNoop(t *testing.T) {
	s := NewSession(nil, nil, nil, Options{}, nil)
	s.sayBye("hangup")
	require.Nil(t, s.dc)
}

func TestStageString(t *testing.T) {
	require.Equal(t, "queued", StageQueued.String())
	require.Equal(t, "ended", StageEnded.String())
	require.Equal(t, "unknown", Stage(99).String())
}

func TestLooksLikeTunnel(t *testing.T) {
	require.True(t, looksLikeTunnel("wg0"))
	require.True(t, looksLikeTunnel("utun3"))
	require.True(t, looksLikeTunnel("CloudflareWARP"))
	require.False(t, looksLikeTunnel("eth0"))
	require.False(t, looksLikeTunnel("en0"))
}

func TestCGNATRange(t *testing.T) {
	require.True(t, cgnat.Contains(net.ParseIP("100.100.1.1")))
	require.False(t, cgnat.Contains(net.ParseIP("100.128.0.1")))
	require.False(t, cgnat.Contains(net.ParseIP("192.168.1.10")))
}
