package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"clarity-caption-service/internal/config"
	"clarity-caption-service/internal/events"
	"clarity-caption-service/internal/language"
	"clarity-caption-service/internal/observability"
	"clarity-caption-service/internal/observability/logging"
	"clarity-caption-service/internal/session"
	"clarity-caption-service/internal/speech"
	googlespeech "clarity-caption-service/internal/speech/google"
	"clarity-caption-service/internal/speech/ingress"
	mockspeech "clarity-caption-service/internal/speech/mock"
	"clarity-caption-service/internal/subtitles"
	"clarity-caption-service/internal/translate"
	"clarity-caption-service/internal/transport"
)

func main() {
	logging.Init(logging.DefaultConfig())

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Kafka caption archive, log-only when disabled
	publisher := events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicPartial: cfg.Kafka.TopicPartial,
		TopicFinal:   cfg.Kafka.TopicFinal,
		Principal:    cfg.Kafka.Principal,
		Room:         cfg.LiveKit.RoomName,
	})
	defer publisher.Close()

	store := subtitles.NewStore(subtitles.Config{
		MaxItems:   cfg.Subtitles.MaxItems,
		DisplayTTL: cfg.Subtitles.DisplayTTL,
	})

	translator := translate.New(translate.Config{
		HTTPTimeout:     cfg.Translate.HTTPTimeout,
		MaxCacheEntries: cfg.Translate.MaxCacheEntries,
	})

	// The mock backend scripts its own utterances and needs no room audio.
	var recognizer speech.Recognizer
	var audioSink ingress.Sink
	switch cfg.Speech.Backend {
	case config.RecognizerMock:
		recognizer = mockspeech.New()
	default:
		gr, err := googlespeech.New(ctx, int32(cfg.Speech.SampleRate))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create speech recognizer")
		}
		recognizer = gr
		audioSink = gr
	}

	var tap *ingress.Ingress
	if audioSink != nil {
		tap = ingress.New(audioSink, ingress.Config{
			TargetIdentity: cfg.Speech.CaptureIdentity,
			SampleRate:     cfg.Speech.SampleRate,
		})
		defer tap.Close()
	}

	channel := transport.NewChannel()

	// The adapter's result callback targets the session, which is built
	// after the room connects; capture stays off until then.
	sess := &sessionRef{}
	adapter := speech.NewAdapter(recognizer, cfg.DefaultLanguage, speech.DefaultConfig(),
		func(text string, isFinal bool) {
			if s := sess.get(); s != nil {
				s.HandleSpeechResult(text, isFinal)
			}
		},
		func(err error) { log.Error().Err(err).Msg("Speech capture failed") },
	)

	prefs := language.NewCoordinator(cfg.DefaultLanguage, adapter, store)

	roomCfg := transport.RoomConfig{
		URL:       cfg.LiveKit.URL,
		APIKey:    cfg.LiveKit.APIKey,
		APISecret: cfg.LiveKit.APISecret,
		RoomName:  cfg.LiveKit.RoomName,
		Identity:  cfg.LiveKit.Identity,
		Name:      cfg.LiveKit.Name,
		TokenTTL:  cfg.LiveKit.TokenTTL,
	}
	if tap != nil {
		roomCfg.OnAudioTrack = func(identity string, track transport.AudioTrack) {
			tap.HandleTrack(identity, track)
		}
		roomCfg.OnAudioTrackEnded = tap.RemoveTrack
	}
	room, err := transport.Connect(roomCfg, channel.HandleData)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to join room")
	}
	defer room.Close()
	channel.Bind(room)

	s := session.New(session.Config{
		Identity:       cfg.LiveKit.Identity,
		DisplayName:    cfg.LiveKit.Name,
		ArchiveInterim: cfg.Kafka.ArchiveInterim,
	}, channel, adapter, translator, store, prefs, publisher)
	sess.set(s)
	channel.SetHandler(s.HandleInbound)

	if err := s.SetMicrophoneEnabled(ctx, true); err != nil {
		log.Error().Err(err).Msg("Failed to start speech capture")
	}

	srv := observability.NewServer(cfg.HTTPAddr, store, prefs)
	srv.Start()

	log.Info().
		Str("room", cfg.LiveKit.RoomName).
		Str("language", prefs.Language()).
		Str("recognizer", cfg.Speech.Backend).
		Msg("Caption agent running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down caption agent")
	s.Close()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}

type sessionRef struct {
	mu sync.Mutex
	s  *session.Session
}

func (r *sessionRef) set(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s = s
}

func (r *sessionRef) get() *session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.s
}
