// Package events publishes caption events to Kafka for archival and
// analytics. Publishing is best-effort; failures never block the caption
// pipeline.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"clarity-caption-service/internal/captions"
	"clarity-caption-service/internal/observability/logging"
	"clarity-caption-service/internal/observability/metrics"
)

// CaptionEvent is the archive record for one transcript event.
type CaptionEvent struct {
	EventType string `json:"eventType"`
	Room      string `json:"room"`
	SpeakerID string `json:"speakerId"`
	Speaker   string `json:"speaker"`
	Language  string `json:"language"`
	Text      string `json:"text"`
	Utterance string `json:"utteranceId"`
	Timestamp int64  `json:"timestamp"`
}

// Publisher publishes caption events to separate Kafka topics for interim
// and final transcripts. When disabled it runs in log-only mode.
type Publisher struct {
	writerPartial *kafka.Writer
	writerFinal   *kafka.Writer
	principal     string
	room          string
	topicPartial  string
	topicFinal    string
	enabled       bool
	metrics       *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers      []string
	TopicPartial string
	TopicFinal   string
	Principal    string
	Room         string
	Enabled      bool
}

// New creates a caption archive publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{enabled: false, metrics: m}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:    cfg.Principal,
			room:         cfg.Room,
			topicPartial: cfg.TopicPartial,
			topicFinal:   cfg.TopicFinal,
			enabled:      false,
			metrics:      m,
		}
	}

	// Longer dial timeouts for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerPartial := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicPartial,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
	writerFinal := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicFinal,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicPartial", cfg.TopicPartial).
		Str("topicFinal", cfg.TopicFinal).
		Str("room", cfg.Room).
		Msg("Kafka caption archive initialized")

	return &Publisher{
		writerPartial: writerPartial,
		writerFinal:   writerFinal,
		principal:     cfg.Principal,
		room:          cfg.Room,
		topicPartial:  cfg.TopicPartial,
		topicFinal:    cfg.TopicFinal,
		enabled:       true,
		metrics:       m,
	}
}

// Enabled reports whether events actually reach Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// Publish archives one transcript event, routed to the interim or final
// topic by its IsFinal flag.
func (p *Publisher) Publish(ctx context.Context, ev captions.TranscriptEvent) error {
	record := CaptionEvent{
		EventType: "caption.transcript.partial",
		Room:      p.room,
		SpeakerID: ev.SenderID,
		Speaker:   ev.SenderName,
		Language:  ev.SenderLanguage,
		Text:      ev.Text,
		Utterance: ev.ID,
		Timestamp: ev.Timestamp.UnixMilli(),
	}
	writer, topic, eventType := p.writerPartial, p.topicPartial, "partial"
	if ev.IsFinal {
		record.EventType = "caption.transcript.final"
		writer, topic, eventType = p.writerFinal, p.topicFinal, "final"
	}
	return p.publish(ctx, writer, topic, eventType, ev.SenderID, record)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event CaptionEvent) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal caption event")
		return err
	}

	speakerLog := logging.WithSpeaker(p.room, key, event.Utterance)
	speakerLog.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		RawJSON("payload", payload).
		Msg("Publishing caption event")

	// Log-only mode
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(event.EventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write caption event to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerPartial != nil {
		if e := p.writerPartial.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing partial writer")
			err = e
		}
	}
	if p.writerFinal != nil {
		if e := p.writerFinal.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing final writer")
			err = e
		}
	}
	return err
}
