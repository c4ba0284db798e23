package signaling

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestCodecForFallsBackToJSON(t *testing.T) {
	require.Equal(t, Msgpack, CodecFor(SubprotocolMsgpack))
	require.Equal(t, JSON, CodecFor(SubprotocolJSON))
	require.Equal(t, JSON, CodecFor(""))
	require.Equal(t, JSON, CodecFor("graphql-ws"))

	require.Equal(t, websocket.TextMessage, JSON.FrameType())
	require.Equal(t, websocket.BinaryMessage, Msgpack.FrameType())
}

func TestJSONRequestDecodesOpaquePayload(t *testing.T) {
	frame := []byte(`{"type":"webrtc_offer","payload":{"roomId":"room_A_B","offer":{"type":"offer","sdp":"v=0"}}}`)

	var req Request
	require.NoError(t, JSON.Unmarshal(frame, &req))
	require.Equal(t, EventOffer, req.Type)
	require.Equal(t, "room_A_B", req.Payload.RoomID)
	require.Equal(t, map[string]any{"type": "offer", "sdp": "v=0"}, req.Payload.Offer)
	require.True(t, req.Type.IsSignal())
}

func TestMsgpackRequestFromForeignEncoder(t *testing.T) {
	// A client that builds the envelope from plain maps.
	frame, err := msgpack.Marshal(map[string]any{
		"type": "join_queue",
		"payload": map[string]any{
			"userId": "A",
		},
	})
	require.NoError(t, err)

	var req Request
	require.NoError(t, Msgpack.Unmarshal(frame, &req))
	require.Equal(t, EventJoinQueue, req.Type)
	require.Equal(t, "A", req.Payload.UserID)
	require.False(t, req.Type.IsSignal())
}

func TestEventsOmitEmptyFields(t *testing.T) {
	data, err := JSON.Marshal(&Event{Type: EventCallEnded})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"call_ended"}`, string(data))

	data, err = JSON.Marshal(&Event{
		Type:    EventICECandidate,
		Payload: SignalPayload{Candidate: "candidate:1", From: "B"},
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"webrtc_ice_candidate","payload":{"candidate":"candidate:1","from":"B"}}`, string(data))
}

func TestMsgpackEventKeepsWireNames(t *testing.T) {
	data, err := Msgpack.Marshal(&Event{
		Type: EventMatchFound,
		Payload: MatchFoundPayload{
			Status:        StatusMatched,
			RoomID:        "room_A_B",
			MatchedUserID: "A",
			Role:          "callee",
		},
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &decoded))
	require.Equal(t, "match_found", decoded["type"])
	require.Equal(t, map[string]any{
		"status":        "matched",
		"roomId":        "room_A_B",
		"matchedUserId": "A",
		"role":          "callee",
	}, decoded["payload"])
}
