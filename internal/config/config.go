package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Default configuration values
const (
	DefaultServerURL          = "ws://localhost:3001/ws"
	DefaultCodec              = "json"
	DefaultNegotiationTimeout = 30 * time.Second
)

// DefaultSTUNServers are used for address discovery. No TURN relay is configured.
var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
	"stun:stun2.l.google.com:19302",
}

// Config holds client configuration
type Config struct {
	// ServerURL is the relay websocket endpoint
	ServerURL string `env:"SERVER_URL"`

	// ICE servers for WebRTC
	STUNServers []string `env:"STUN_SERVERS" env-separator:","`

	// Codec selects the signaling wire encoding ("json" or "msgpack")
	Codec string `env:"CODEC"`

	// NegotiationTimeout bounds an offer/answer exchange. Zero disables it.
	NegotiationTimeout time.Duration `env:"NEGOTIATION_TIMEOUT" env-default:"30s"`

	// Initial local track state
	Audio bool `env:"AUDIO" env-default:"true"`
	Video bool `env:"VIDEO" env-default:"true"`
}

// Options for loading config with CLI flag overrides
type Options struct {
	ServerURL          string
	STUNServers        []string
	Codec              string
	NegotiationTimeout *time.Duration // nil leaves the env/default value
	NoAudio            bool
	NoVideo            bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables (a .env file in the working directory is honoured)
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	loadDotEnv()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if opts.ServerURL != "" {
		cfg.ServerURL = opts.ServerURL
	}
	if len(opts.STUNServers) > 0 {
		cfg.STUNServers = opts.STUNServers
	}
	if opts.Codec != "" {
		cfg.Codec = opts.Codec
	}
	if opts.NegotiationTimeout != nil {
		cfg.NegotiationTimeout = *opts.NegotiationTimeout
	}
	if opts.NoAudio {
		cfg.Audio = false
	}
	if opts.NoVideo {
		cfg.Video = false
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	if len(c.STUNServers) == 0 {
		c.STUNServers = append([]string(nil), DefaultSTUNServers...)
	}
	if c.Codec == "" {
		c.Codec = DefaultCodec
	}
}

func (c *Config) validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid server URL %q: scheme must be ws or wss", c.ServerURL)
	}
	if c.NegotiationTimeout < 0 {
		return errors.New("negotiation timeout cannot be negative")
	}
	return nil
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	return c.STUNServers
}

// DialURL returns the websocket URL with the codec selection attached.
func (c *Config) DialURL() string {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return c.ServerURL
	}
	q := u.Query()
	q.Set("codec", c.Codec)
	u.RawQuery = q.Encode()
	return u.String()
}

// HTTPURL maps the websocket endpoint to a plain HTTP URL on the same host.
// "ws://host:3001/ws" with path "/rooms" becomes "http://host:3001/rooms".
func (c *Config) HTTPURL(path string) string {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "wss":
		u.Scheme = "https"
	default:
		u.Scheme = "http"
	}
	u.Path = "/" + strings.TrimPrefix(path, "/")
	u.RawQuery = ""
	return u.String()
}

func loadDotEnv() {
	// missing .env is fine
	_ = godotenv.Load(".env")
}
