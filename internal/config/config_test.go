package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, DefaultSTUNServers, cfg.GetSTUNServers())
	assert.Equal(t, DefaultCodec, cfg.Codec)
	assert.Equal(t, DefaultNegotiationTimeout, cfg.NegotiationTimeout)
	assert.True(t, cfg.Audio)
	assert.True(t, cfg.Video)
}

func TestLoadPriority(t *testing.T) {
	t.Setenv("SERVER_URL", "wss://relay.example.com/ws")
	t.Setenv("STUN_SERVERS", "stun:a.example.com:3478,stun:b.example.com:3478")
	t.Setenv("CODEC", "msgpack")
	t.Setenv("NEGOTIATION_TIMEOUT", "5s")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "wss://relay.example.com/ws", cfg.ServerURL)
	assert.Equal(t, []string{"stun:a.example.com:3478", "stun:b.example.com:3478"}, cfg.STUNServers)
	assert.Equal(t, "msgpack", cfg.Codec)
	assert.Equal(t, 5*time.Second, cfg.NegotiationTimeout)

	cfg, err = Load(Options{
		ServerURL: "ws://127.0.0.1:9000/ws",
		Codec:     "json",
		NoVideo:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9000/ws", cfg.ServerURL)
	assert.Equal(t, "json", cfg.Codec)
	assert.True(t, cfg.Audio)
	assert.False(t, cfg.Video)
}

func TestLoadExplicitZeroTimeout(t *testing.T) {
	t.Setenv("NEGOTIATION_TIMEOUT", "5s")

	zero := time.Duration(0)
	cfg, err := Load(Options{NegotiationTimeout: &zero})
	require.NoError(t, err)
	assert.Zero(t, cfg.NegotiationTimeout)

	cfg, err = Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.NegotiationTimeout)

	negative := -time.Second
	_, err = Load(Options{NegotiationTimeout: &negative})
	assert.Error(t, err)
}

func TestLoadRejectsHTTPScheme(t *testing.T) {
	_, err := Load(Options{ServerURL: "http://localhost:3001"})
	assert.Error(t, err)
}

func TestURLs(t *testing.T) {
	cfg := &Config{ServerURL: "wss://relay.example.com:8443/ws", Codec: "msgpack"}

	assert.Equal(t, "https://relay.example.com:8443/rooms", cfg.HTTPURL("rooms"))
	assert.Equal(t, "wss://relay.example.com:8443/ws?codec=msgpack", cfg.DialURL())

	cfg.ServerURL = "ws://localhost:3001/ws"
	assert.Equal(t, "http://localhost:3001/health", cfg.HTTPURL("/health"))
}

func TestLoadServerFromEnv(t *testing.T) {
	t.Setenv("ADDR", ":9100")
	t.Setenv("WS_PONG_WAIT", "30s")

	cfg, err := LoadServer(ServerOptions{})
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PongWait)
	assert.Equal(t, 10*time.Second, cfg.WebSocket.WriteWait)
	assert.Equal(t, int64(65536), cfg.WebSocket.ReadLimit)
	assert.True(t, cfg.OriginAllowed("https://anything.example"))

	cfg, err = LoadServer(ServerOptions{Addr: ":7000"})
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
}

func TestLoadServerFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":4000"
websocket:
  send_buffer: 32
allowed_origins:
  - "https://call.example.com"
`), 0o600))

	cfg, err := LoadServer(ServerOptions{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, ":4000", cfg.Addr)
	assert.Equal(t, 32, cfg.WebSocket.SendBuffer)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)
	assert.True(t, cfg.OriginAllowed("https://call.example.com"))
	assert.False(t, cfg.OriginAllowed("https://evil.example.com"))

	_, err = LoadServer(ServerOptions{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
