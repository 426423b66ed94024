// Package logging provides structured logging with zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	TimeFormat string // RFC3339, Unix, etc.
}

// DefaultConfig returns sensible default logging configuration.
// Level and format can be overridden via ZEROLOG_LOG_LEVEL and ENV=dev.
func DefaultConfig() Config {
	cfg := Config{
		Level:      "info",
		Format:     "json",
		TimeFormat: time.RFC3339,
	}
	if envLevel := os.Getenv("ZEROLOG_LOG_LEVEL"); envLevel != "" {
		cfg.Level = strings.ToLower(envLevel)
	}
	if os.Getenv("ENV") == "dev" {
		cfg.Format = "console"
	}
	return cfg
}

// Init initializes the global zerolog logger.
func Init(cfg Config) {
	zerolog.TimeFieldFormat = cfg.TimeFormat

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.Kitchen,
		}
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Str("service", "clarity-caption-service").
		Logger()
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	return log.Logger
}

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}

// WithRoom returns a logger with room context.
func WithRoom(room, identity string) zerolog.Logger {
	return log.With().
		Str("room", room).
		Str("identity", identity).
		Logger()
}

// WithSpeaker returns a logger with speaker context.
func WithSpeaker(room, speakerId, utteranceId string) zerolog.Logger {
	return log.With().
		Str("room", room).
		Str("speakerId", speakerId).
		Str("utteranceId", utteranceId).
		Logger()
}

// WithProvider returns a logger with translation/recognition provider context.
func WithProvider(component, provider string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Str("provider", provider).
		Logger()
}
