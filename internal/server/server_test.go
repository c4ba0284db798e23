package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/BioHazard786/Pairline/internal/config"
	"github.com/BioHazard786/Pairline/internal/matchmaking"
	"github.com/BioHazard786/Pairline/internal/metrics"
	"github.com/BioHazard786/Pairline/internal/signaling"
)

type envelope struct {
	Type    string         `json:"type" msgpack:"type"`
	Payload map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	// Pump goroutines may outlive the test by a moment; keep them quiet.
	log := zaptest.NewLogger(t, zaptest.Level(zapcore.WarnLevel))
	m := metrics.New()
	hub := signaling.NewHub(log, m)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	cfg := &config.Server{
		Addr:           ":0",
		CORSOrigins:    []string{"*"},
		MaxMessageSize: config.DefaultMaxMessageSize,
		SendBuffer:     config.DefaultSendBuffer,
	}
	srv := httptest.NewServer(NewRouter(cfg, log, hub, m))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-stopped
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string, subprotocols ...string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	dialer := websocket.Dialer{Subprotocols: subprotocols, HandshakeTimeout: time.Second}
	conn, _, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeJSONFrame(t *testing.T, conn *websocket.Conn, env envelope) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(env))
}

func readFrame(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env envelope
	if kind == websocket.BinaryMessage {
		require.NoError(t, msgpack.Unmarshal(data, &env))
	} else {
		require.NoError(t, json.Unmarshal(data, &env))
	}
	return env
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "healthy", body["status"])
}

func TestMatchOverWebsocketWithMixedCodecs(t *testing.T) {
	srv := newTestServer(t)

	a := dial(t, srv, "?userId=A")
	b := dial(t, srv, "", signaling.SubprotocolMsgpack)
	require.Equal(t, signaling.SubprotocolMsgpack, b.Subprotocol())

	writeJSONFrame(t, a, envelope{Type: "join_queue"})
	status := readFrame(t, a)
	require.Equal(t, "queue_status", status.Type)
	require.EqualValues(t, 1, status.Payload["queueSize"])

	frame, err := msgpack.Marshal(envelope{Type: "join_queue", Payload: map[string]any{"userId": "B"}})
	require.NoError(t, err)
	require.NoError(t, b.WriteMessage(websocket.BinaryMessage, frame))

	found := readFrame(t, b)
	require.Equal(t, "match_found", found.Type)
	require.Equal(t, "room_A_B", found.Payload["roomId"])
	require.Equal(t, "A", found.Payload["matchedUserId"])
	require.Equal(t, "callee", found.Payload["role"])

	found = readFrame(t, a)
	require.Equal(t, "caller", found.Payload["role"])

	writeJSONFrame(t, a, envelope{Type: "webrtc_offer", Payload: map[string]any{
		"roomId": "room_A_B",
		"offer":  map[string]any{"type": "offer", "sdp": "v=0"},
	}})
	offer := readFrame(t, b)
	require.Equal(t, "webrtc_offer", offer.Type)
	require.Equal(t, "A", offer.Payload["from"])
	require.Equal(t, map[string]any{"type": "offer", "sdp": "v=0"}, offer.Payload["offer"])

	resp, err := http.Get(srv.URL + "/api/match/B")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var match matchmaking.Match
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&match))
	require.Equal(t, "A", match.Caller)
	require.Equal(t, "B", match.Callee)

	// Dropping A's connection ends the call for B.
	require.NoError(t, a.Close())
	ended := readFrame(t, b)
	require.Equal(t, "call_ended", ended.Type)
}

func TestMatchLookupNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/match/nobody")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatsAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	a := dial(t, srv, "?userId=A")
	writeJSONFrame(t, a, envelope{Type: "join_queue"})
	readFrame(t, a)

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats signaling.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Equal(t, 1, stats.QueueSize)
	require.Equal(t, 1, stats.Sessions)
	require.Zero(t, stats.ActiveMatches)

	metricsResp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	require.Equal(t, http.StatusOK, metricsResp.StatusCode)

	body, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "pairline_queue_size 1")
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/stats", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
