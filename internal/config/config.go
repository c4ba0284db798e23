// Package config resolves server and peer settings.
//
// Every value is read with the same priority:
//  1. CLI flags (passed via the options structs) - highest priority
//  2. Environment variables, after loading an optional .env file
//  3. Hardcoded defaults - lowest priority
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Default configuration values
const (
	DefaultAddr     = ":8080"
	DefaultCORS     = "*"
	DefaultLogLevel = "info"

	// DefaultMaxMessageSize is enough for SDP offers with many candidates.
	DefaultMaxMessageSize = 64 * 1024

	// DefaultSendBuffer is the outbound queue length per connection.
	DefaultSendBuffer = 256

	DefaultServerURL = "ws://localhost:8080/ws"
	DefaultSTUN      = "stun:stun.l.google.com:19302"
)

// Server holds the relay configuration.
type Server struct {
	Addr        string
	CORSOrigins []string
	LogLevel    string
	Env         string

	MaxMessageSize int64
	SendBuffer     int
}

// ServerOptions carries flag overrides. Zero values mean "not set".
type ServerOptions struct {
	Addr     string
	CORS     string
	LogLevel string
}

// Peer holds the peer CLI configuration.
type Peer struct {
	// ServerURL is the relay websocket endpoint.
	ServerURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay restricts ICE to TURN candidates.
	ForceRelay bool
}

// PeerOptions carries flag overrides. Zero values mean "not set".
type PeerOptions struct {
	ServerURL  string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
}

// LoadDotEnv loads .env from the working directory if it exists. Variables
// already present in the environment win.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// LoadServer resolves the relay configuration.
func LoadServer(opts ServerOptions) (*Server, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	addr := first(opts.Addr, os.Getenv("PAIRLINE_ADDR"))
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		}
	}
	if addr == "" {
		addr = DefaultAddr
	}

	env := first(os.Getenv("APP_ENV"), "production")
	defLevel := DefaultLogLevel
	if env == "development" {
		defLevel = "debug"
	}

	maxSize, err := intEnv("WS_MAX_MESSAGE_SIZE", DefaultMaxMessageSize)
	if err != nil {
		return nil, err
	}
	sendBuffer, err := intEnv("WS_SEND_BUFFER", DefaultSendBuffer)
	if err != nil {
		return nil, err
	}

	cfg := &Server{
		Addr:           addr,
		CORSOrigins:    splitCSV(first(opts.CORS, os.Getenv("CORS_ALLOW"), DefaultCORS)),
		LogLevel:       first(opts.LogLevel, os.Getenv("LOG_LEVEL"), defLevel),
		Env:            env,
		MaxMessageSize: int64(maxSize),
		SendBuffer:     sendBuffer,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Server) Validate() error {
	if c.Addr == "" {
		return errors.New("config: listen address is empty")
	}
	if len(c.CORSOrigins) == 0 {
		return errors.New("config: no CORS origins")
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("config: WS_MAX_MESSAGE_SIZE must be positive, got %d", c.MaxMessageSize)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("config: WS_SEND_BUFFER must be positive, got %d", c.SendBuffer)
	}
	return nil
}

// LoadPeer resolves the peer CLI configuration.
func LoadPeer(opts PeerOptions) (*Peer, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Peer{
		ServerURL:  first(opts.ServerURL, os.Getenv("PAIRLINE_SERVER"), DefaultServerURL),
		STUNServer: first(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN),
		TURNServer: first(opts.TURNServer, os.Getenv("TURN_SERVER")),
		TURNUser:   first(opts.TURNUser, os.Getenv("TURN_USERNAME")),
		TURNPass:   first(opts.TURNPass, os.Getenv("TURN_PASSWORD")),
		ForceRelay: opts.ForceRelay,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the peer cannot run with.
func (c *Peer) Validate() error {
	if c.ServerURL == "" {
		return errors.New("config: server URL is empty")
	}
	if !strings.HasPrefix(c.ServerURL, "ws://") && !strings.HasPrefix(c.ServerURL, "wss://") {
		return fmt.Errorf("config: server URL %q must use ws:// or wss://", c.ServerURL)
	}
	if c.TURNServer != "" && (c.TURNUser == "" || c.TURNPass == "") {
		return errors.New("config: TURN server needs a username and password")
	}
	if c.ForceRelay && c.TURNServer == "" {
		return errors.New("config: cannot force relay mode without a TURN server")
	}
	return nil
}

// HTTPBase returns the relay's HTTP origin derived from the websocket URL.
func (c *Peer) HTTPBase() string {
	base := strings.TrimSuffix(c.ServerURL, "/ws")
	if rest, ok := strings.CutPrefix(base, "wss://"); ok {
		return "https://" + rest
	}
	return "http://" + strings.TrimPrefix(base, "ws://")
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Peer) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Peer) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("turn:%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURNServer),
	}
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
