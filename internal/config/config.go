// Package config loads agent configuration from the environment. A .env
// file in the working directory is honored for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Recognizer backends.
const (
	RecognizerGoogle = "google"
	RecognizerMock   = "mock"
)

// LiveKitConfig holds room connection settings.
type LiveKitConfig struct {
	URL       string
	APIKey    string
	APISecret string
	RoomName  string
	Identity  string
	Name      string
	TokenTTL  time.Duration
}

// SpeechConfig holds recognizer settings. CaptureIdentity limits audio
// capture to one participant; empty means the first audio publisher.
type SpeechConfig struct {
	Backend         string
	SampleRate      int
	CaptureIdentity string
}

// KafkaConfig holds caption archive settings.
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	TopicPartial   string
	TopicFinal     string
	Principal      string
	ArchiveInterim bool
}

// SubtitleConfig holds display settings.
type SubtitleConfig struct {
	MaxItems   int
	DisplayTTL time.Duration
}

// TranslateConfig holds translation client settings.
type TranslateConfig struct {
	HTTPTimeout     time.Duration
	MaxCacheEntries int
}

// Config is the full agent configuration.
type Config struct {
	LiveKit         LiveKitConfig
	Speech          SpeechConfig
	Kafka           KafkaConfig
	Subtitles       SubtitleConfig
	Translate       TranslateConfig
	DefaultLanguage string
	HTTPAddr        string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{
		LiveKit: LiveKitConfig{
			URL:       os.Getenv("LIVEKIT_URL"),
			APIKey:    os.Getenv("LIVEKIT_API_KEY"),
			APISecret: os.Getenv("LIVEKIT_API_SECRET"),
			RoomName:  os.Getenv("ROOM_NAME"),
			Identity:  getEnv("AGENT_IDENTITY", "caption-agent"),
			Name:      getEnv("AGENT_NAME", "Caption Agent"),
			TokenTTL:  getEnvDuration("TOKEN_TTL", 6*time.Hour),
		},
		Speech: SpeechConfig{
			Backend:         getEnv("RECOGNIZER", RecognizerGoogle),
			SampleRate:      getEnvInt("SAMPLE_RATE", 16000),
			CaptureIdentity: os.Getenv("CAPTURE_IDENTITY"),
		},
		Kafka: KafkaConfig{
			Enabled:        getEnvBool("KAFKA_ENABLED", false),
			Brokers:        splitList(os.Getenv("KAFKA_BROKERS")),
			TopicPartial:   getEnv("KAFKA_TOPIC_PARTIAL", "captions.transcript.partial"),
			TopicFinal:     getEnv("KAFKA_TOPIC_FINAL", "captions.transcript.final"),
			Principal:      getEnv("KAFKA_PRINCIPAL", "caption-agent"),
			ArchiveInterim: getEnvBool("KAFKA_ARCHIVE_INTERIM", false),
		},
		Subtitles: SubtitleConfig{
			MaxItems:   getEnvInt("MAX_SUBTITLES", 3),
			DisplayTTL: getEnvDuration("SUBTITLE_TTL", 10*time.Second),
		},
		Translate: TranslateConfig{
			HTTPTimeout:     getEnvDuration("TRANSLATE_TIMEOUT", 5*time.Second),
			MaxCacheEntries: getEnvInt("TRANSLATE_CACHE_ENTRIES", 4096),
		},
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.LiveKit.URL == "" {
		return fmt.Errorf("LIVEKIT_URL is required")
	}
	if c.LiveKit.APIKey == "" {
		return fmt.Errorf("LIVEKIT_API_KEY is required")
	}
	if c.LiveKit.APISecret == "" {
		return fmt.Errorf("LIVEKIT_API_SECRET is required")
	}
	if c.LiveKit.RoomName == "" {
		return fmt.Errorf("ROOM_NAME is required")
	}
	switch c.Speech.Backend {
	case RecognizerGoogle, RecognizerMock:
	default:
		return fmt.Errorf("unknown recognizer backend %q", c.Speech.Backend)
	}
	if c.Speech.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.Speech.SampleRate)
	}
	if c.Subtitles.MaxItems <= 0 {
		return fmt.Errorf("max subtitles must be positive, got %d", c.Subtitles.MaxItems)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when Kafka is enabled")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid integer, using default")
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid boolean, using default")
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration, using default")
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
