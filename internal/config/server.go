package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ServerConfig holds relay configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR" env-default:":3001"`

	WebSocket WebSocketConfig `yaml:"websocket"`

	// AllowedOrigins restricts websocket upgrades. Empty allows every origin.
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:","`
}

type WebSocketConfig struct {
	ReadLimit  int64         `yaml:"read_limit" env:"WS_READ_LIMIT" env-default:"65536"`
	PongWait   time.Duration `yaml:"pong_wait" env:"WS_PONG_WAIT" env-default:"60s"`
	WriteWait  time.Duration `yaml:"write_wait" env:"WS_WRITE_WAIT" env-default:"10s"`
	SendBuffer int           `yaml:"send_buffer" env:"SEND_BUFFER" env-default:"256"`
}

// ServerOptions carries flag overrides for LoadServer.
type ServerOptions struct {
	Addr       string
	ConfigPath string
}

// LoadServer reads an optional YAML file (flag or CONFIG_PATH), then the
// environment, then applies flag overrides.
func LoadServer(opts ServerOptions) (*ServerConfig, error) {
	loadDotEnv()

	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg ServerConfig
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}

	if cfg.WebSocket.PongWait <= 0 {
		return nil, fmt.Errorf("websocket pong wait must be positive")
	}
	return &cfg, nil
}

// OriginAllowed reports whether a websocket upgrade from origin is accepted.
func (c *ServerConfig) OriginAllowed(origin string) bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
