package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger for client commands.
// Default: production only shows errors.
func Init() {
	setup(zerolog.ErrorLevel)
}

// InitServer configures the global logger for the relay, which logs
// connection lifecycle at info by default.
func InitServer() {
	setup(zerolog.InfoLevel)
}

// Component returns the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}

func setup(fallback zerolog.Level) {
	zerolog.SetGlobalLevel(levelFromEnv(fallback))

	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

func levelFromEnv(fallback zerolog.Level) zerolog.Level {
	l, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		return fallback
	}

	switch l {
	case "dev", "development", "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "production", "prod":
		return zerolog.ErrorLevel
	default:
		return fallback
	}
}
