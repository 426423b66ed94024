package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("LIVEKIT_URL", "wss://livekit.example.com")
	t.Setenv("LIVEKIT_API_KEY", "key")
	t.Setenv("LIVEKIT_API_SECRET", "secret")
	t.Setenv("ROOM_NAME", "demo-room")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LiveKit.Identity != "caption-agent" {
		t.Errorf("identity = %q, want caption-agent", cfg.LiveKit.Identity)
	}
	if cfg.Speech.Backend != RecognizerGoogle {
		t.Errorf("backend = %q, want google", cfg.Speech.Backend)
	}
	if cfg.Speech.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", cfg.Speech.SampleRate)
	}
	if cfg.DefaultLanguage != "en" {
		t.Errorf("default language = %q, want en", cfg.DefaultLanguage)
	}
	if cfg.Subtitles.MaxItems != 3 {
		t.Errorf("max subtitles = %d, want 3", cfg.Subtitles.MaxItems)
	}
	if cfg.Subtitles.DisplayTTL != 10*time.Second {
		t.Errorf("display ttl = %v, want 10s", cfg.Subtitles.DisplayTTL)
	}
	if cfg.Kafka.Enabled {
		t.Error("kafka should be disabled by default")
	}
	if cfg.Kafka.ArchiveInterim {
		t.Error("interim archiving should be disabled by default")
	}
	if cfg.Speech.CaptureIdentity != "" {
		t.Errorf("capture identity = %q, want empty", cfg.Speech.CaptureIdentity)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("http addr = %q, want :8080", cfg.HTTPAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("RECOGNIZER", "mock")
	t.Setenv("SAMPLE_RATE", "48000")
	t.Setenv("DEFAULT_LANGUAGE", "es")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("KAFKA_ARCHIVE_INTERIM", "true")
	t.Setenv("SUBTITLE_TTL", "15s")
	t.Setenv("CAPTURE_IDENTITY", "presenter")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Speech.Backend != RecognizerMock {
		t.Errorf("backend = %q, want mock", cfg.Speech.Backend)
	}
	if cfg.Speech.SampleRate != 48000 {
		t.Errorf("sample rate = %d, want 48000", cfg.Speech.SampleRate)
	}
	if cfg.DefaultLanguage != "es" {
		t.Errorf("default language = %q, want es", cfg.DefaultLanguage)
	}
	if got := len(cfg.Kafka.Brokers); got != 2 {
		t.Fatalf("brokers = %d, want 2", got)
	}
	if cfg.Kafka.Brokers[1] != "broker-2:9092" {
		t.Errorf("broker[1] = %q, want broker-2:9092", cfg.Kafka.Brokers[1])
	}
	if !cfg.Kafka.ArchiveInterim {
		t.Error("interim archiving should be enabled")
	}
	if cfg.Subtitles.DisplayTTL != 15*time.Second {
		t.Errorf("display ttl = %v, want 15s", cfg.Subtitles.DisplayTTL)
	}
	if cfg.Speech.CaptureIdentity != "presenter" {
		t.Errorf("capture identity = %q, want presenter", cfg.Speech.CaptureIdentity)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("LIVEKIT_URL", "")
	t.Setenv("LIVEKIT_API_KEY", "key")
	t.Setenv("LIVEKIT_API_SECRET", "secret")
	t.Setenv("ROOM_NAME", "demo-room")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing LIVEKIT_URL")
	}
}

func TestValidateUnknownRecognizer(t *testing.T) {
	setRequired(t)
	t.Setenv("RECOGNIZER", "whisper")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown recognizer")
	}
}

func TestValidateKafkaEnabledNeedsBrokers(t *testing.T) {
	setRequired(t)
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for enabled Kafka without brokers")
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	setRequired(t)
	t.Setenv("SAMPLE_RATE", "not-a-number")
	t.Setenv("KAFKA_ENABLED", "definitely")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Speech.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want default 16000", cfg.Speech.SampleRate)
	}
	if cfg.Kafka.Enabled {
		t.Error("kafka enabled should fall back to false")
	}
}
