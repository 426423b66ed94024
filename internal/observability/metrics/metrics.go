// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clarity_captions"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Local recognition metrics
	AudioFrames        prometheus.Counter
	TranscriptsPartial prometheus.Counter
	TranscriptsFinal   prometheus.Counter
	RecognizerRestarts prometheus.Counter
	RecognizerReinits  prometheus.Counter
	RecognizerErrors   *prometheus.CounterVec

	// Data channel metrics
	TranscriptsSent     prometheus.Counter
	TranscriptsReceived prometheus.Counter
	PacketsDropped      *prometheus.CounterVec

	// Translation metrics
	TranslationRequests *prometheus.CounterVec
	TranslationErrors   *prometheus.CounterVec
	TranslationLatency  *prometheus.HistogramVec
	TranslationCacheHit prometheus.Counter
	TranslationFallback prometheus.Counter

	// Subtitle store metrics
	SubtitlesActive  prometheus.Gauge
	SubtitlesExpired prometheus.Counter

	// Kafka archive metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		AudioFrames: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_total",
			Help:      "Total number of decoded audio frames forwarded to the recognizer",
		}),
		TranscriptsPartial: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_partial_total",
			Help:      "Total number of interim transcripts produced by local recognition",
		}),
		TranscriptsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_total",
			Help:      "Total number of final transcripts produced by local recognition",
		}),
		RecognizerRestarts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognizer_restarts_total",
			Help:      "Total number of recognition session auto-restarts",
		}),
		RecognizerReinits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognizer_reinits_total",
			Help:      "Total number of full recognizer reinitializations after restart storms",
		}),
		RecognizerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognizer_errors_total",
			Help:      "Total number of recognition errors",
		}, []string{"kind"}),

		TranscriptsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_sent_total",
			Help:      "Total number of transcript messages published to the data channel",
		}),
		TranscriptsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_received_total",
			Help:      "Total number of transcript messages accepted from the data channel",
		}),
		PacketsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_dropped_total",
			Help:      "Total number of inbound data packets dropped",
		}, []string{"reason"}),

		TranslationRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_requests_total",
			Help:      "Total number of translation provider requests",
		}, []string{"provider"}),
		TranslationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_errors_total",
			Help:      "Total number of translation provider failures",
		}, []string{"provider"}),
		TranslationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "translation_latency_seconds",
			Help:      "Translation provider request latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"provider"}),
		TranslationCacheHit: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_cache_hits_total",
			Help:      "Total number of translation cache hits",
		}),
		TranslationFallback: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_fallbacks_total",
			Help:      "Total number of translations served from the static phrase dictionary",
		}),

		SubtitlesActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subtitles_active",
			Help:      "Number of subtitle items currently tracked",
		}),
		SubtitlesExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subtitles_expired_total",
			Help:      "Total number of subtitle items removed by display TTL or staleness",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordLocalTranscript records a transcript from local recognition.
func (m *Metrics) RecordLocalTranscript(isFinal bool) {
	if isFinal {
		m.TranscriptsFinal.Inc()
	} else {
		m.TranscriptsPartial.Inc()
	}
}

// RecordRecognizerError records a recognition error by kind.
func (m *Metrics) RecordRecognizerError(kind string) {
	m.RecognizerErrors.WithLabelValues(kind).Inc()
}

// RecordPacketDropped records an inbound data packet being dropped.
func (m *Metrics) RecordPacketDropped(reason string) {
	m.PacketsDropped.WithLabelValues(reason).Inc()
}

// RecordTranslation records a translation provider request.
func (m *Metrics) RecordTranslation(provider string, err error, latencySeconds float64) {
	m.TranslationRequests.WithLabelValues(provider).Inc()
	m.TranslationLatency.WithLabelValues(provider).Observe(latencySeconds)
	if err != nil {
		m.TranslationErrors.WithLabelValues(provider).Inc()
	}
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
