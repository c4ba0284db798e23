package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	// Run from an empty directory so no .env is picked up.
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"PAIRLINE_ADDR", "PORT", "CORS_ALLOW", "LOG_LEVEL", "APP_ENV",
		"WS_MAX_MESSAGE_SIZE", "WS_SEND_BUFFER",
		"PAIRLINE_SERVER", "STUN_SERVER", "TURN_SERVER", "TURN_USERNAME", "TURN_PASSWORD",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadServerDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadServer(ServerOptions{})
	require.NoError(t, err)
	require.Equal(t, DefaultAddr, cfg.Addr)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
	require.Equal(t, "info", cfg.LogLevel)
	require.EqualValues(t, DefaultMaxMessageSize, cfg.MaxMessageSize)
	require.Equal(t, DefaultSendBuffer, cfg.SendBuffer)
}

func TestLoadServerPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ALLOW", "https://a.example, https://b.example")
	t.Setenv("APP_ENV", "development")

	cfg, err := LoadServer(ServerOptions{})
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Addr)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	require.Equal(t, "debug", cfg.LogLevel)

	t.Setenv("PAIRLINE_ADDR", "127.0.0.1:7000")
	cfg, err = LoadServer(ServerOptions{})
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7000", cfg.Addr)

	cfg, err = LoadServer(ServerOptions{Addr: ":1234", CORS: "https://c.example", LogLevel: "warn"})
	require.NoError(t, err)
	require.Equal(t, ":1234", cfg.Addr)
	require.Equal(t, []string{"https://c.example"}, cfg.CORSOrigins)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadServerRejectsBadLimits(t *testing.T) {
	clearEnv(t)

	t.Setenv("WS_SEND_BUFFER", "0")
	_, err := LoadServer(ServerOptions{})
	require.Error(t, err)

	t.Setenv("WS_SEND_BUFFER", "lots")
	_, err = LoadServer(ServerOptions{})
	require.Error(t, err)
}

func TestLoadPeer(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadPeer(PeerOptions{})
	require.NoError(t, err)
	require.Equal(t, DefaultServerURL, cfg.ServerURL)
	require.Equal(t, []string{DefaultSTUN}, cfg.GetSTUNServers())
	require.Nil(t, cfg.GetTURNServers())
	require.Equal(t, "http://localhost:8080", cfg.HTTPBase())

	t.Setenv("PAIRLINE_SERVER", "wss://relay.example/ws")
	t.Setenv("TURN_SERVER", "turn.example")
	t.Setenv("TURN_USERNAME", "u")
	t.Setenv("TURN_PASSWORD", "p")
	cfg, err = LoadPeer(PeerOptions{})
	require.NoError(t, err)
	require.Equal(t, "https://relay.example", cfg.HTTPBase())
	require.Len(t, cfg.GetTURNServers(), 3)

	_, err = LoadPeer(PeerOptions{ServerURL: "http://relay.example"})
	require.Error(t, err)
}

func TestLoadPeerNeedsTURNCredentials(t *testing.T) {
	clearEnv(t)
	_, err := LoadPeer(PeerOptions{TURNServer: "turn.example"})
	require.Error(t, err)

	_, err = LoadPeer(PeerOptions{ForceRelay: true})
	require.Error(t, err)
}
