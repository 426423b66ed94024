// Package session ties the caption pipeline together: local speech results
// go out over the room data channel, inbound transcripts are translated to
// the local display language and handed to the subtitle store.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clarity-caption-service/internal/captions"
	"clarity-caption-service/internal/language"
	"clarity-caption-service/internal/observability/logging"
	"clarity-caption-service/internal/observability/metrics"
)

// minCaptionLength is the shortest interim text worth broadcasting,
// in runes. Finals always go out.
const minCaptionLength = 2

// Sender broadcasts transcript events to the room.
type Sender interface {
	Send(ev captions.TranscriptEvent) error
	Detach()
}

// SpeechControl starts and stops the local recognizer.
type SpeechControl interface {
	Start(ctx context.Context) error
	Stop()
}

// Translator converts text between languages.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// SubtitleSink receives display-ready subtitle items.
type SubtitleSink interface {
	Ingest(item captions.SubtitleItem)
}

// Archiver records caption events for later analysis. May be nil.
type Archiver interface {
	Publish(ctx context.Context, ev captions.TranscriptEvent) error
}

// Preferences exposes the local display language.
type Preferences interface {
	Language() string
}

// Config holds the identity the session speaks as. ArchiveInterim extends
// caption archiving to interim results; finals are always archived.
type Config struct {
	Identity       string
	DisplayName    string
	ArchiveInterim bool
}

// Session orchestrates one participant's caption pipeline.
type Session struct {
	cfg     Config
	channel Sender
	speech  SpeechControl
	trans   Translator
	store   SubtitleSink
	prefs   Preferences
	archive Archiver
	m       *metrics.Metrics
	logger  zerolog.Logger

	mu        sync.Mutex
	micOn     bool
	currentID string

	// injectable for tests
	newID func() string
	now   func() time.Time
}

// New creates a session. archive may be nil when captions are not archived.
func New(cfg Config, channel Sender, speech SpeechControl, trans Translator, store SubtitleSink, prefs Preferences, archive Archiver) *Session {
	return &Session{
		cfg:     cfg,
		channel: channel,
		speech:  speech,
		trans:   trans,
		store:   store,
		prefs:   prefs,
		archive: archive,
		m:       metrics.DefaultMetrics,
		logger:  logging.WithComponent("session"),
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// SetMicrophoneEnabled starts or stops local speech capture. Disabling the
// microphone drops any in-progress utterance but leaves the language
// configuration untouched.
func (s *Session) SetMicrophoneEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	if s.micOn == enabled {
		s.mu.Unlock()
		return nil
	}
	s.micOn = enabled
	if !enabled {
		s.currentID = ""
	}
	s.mu.Unlock()

	if enabled {
		s.logger.Info().Msg("Microphone enabled, starting capture")
		return s.speech.Start(ctx)
	}
	s.logger.Info().Msg("Microphone disabled, stopping capture")
	s.speech.Stop()
	return nil
}

// MicrophoneEnabled reports whether local capture is active.
func (s *Session) MicrophoneEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.micOn
}

// HandleSpeechResult processes one recognition result from the local
// microphone. Interim results of the same utterance share an id; a final
// result closes the utterance.
func (s *Session) HandleSpeechResult(text string, isFinal bool) {
	trimmed := strings.TrimSpace(text)
	if !isFinal && len([]rune(trimmed)) < minCaptionLength {
		return
	}
	if trimmed == "" {
		return
	}

	s.mu.Lock()
	if s.currentID == "" {
		s.currentID = s.newID()
	}
	id := s.currentID
	if isFinal {
		s.currentID = ""
	}
	s.mu.Unlock()

	s.m.RecordLocalTranscript(isFinal)

	ev := captions.TranscriptEvent{
		ID:             id,
		SenderID:       s.cfg.Identity,
		SenderName:     s.cfg.DisplayName,
		SenderLanguage: s.prefs.Language(),
		Text:           trimmed,
		IsFinal:        isFinal,
		Timestamp:      s.now(),
	}

	if err := s.channel.Send(ev); err != nil {
		s.logger.Warn().Err(err).Str("utterance", id).Msg("Failed to broadcast transcript")
	}

	// Local speaker sees their own words untranslated.
	s.store.Ingest(captions.SubtitleItem{
		ID:              ev.ID,
		SpeakerName:     ev.SenderName,
		SpeakerLanguage: language.Name(ev.SenderLanguage),
		OriginalText:    ev.Text,
		TranslatedText:  ev.Text,
		Timestamp:       ev.Timestamp,
		IsFinal:         ev.IsFinal,
	})

	s.archiveEvent(ev)
}

// HandleInbound processes a transcript event received from another
// participant: translate to the local display language and hand the result
// to the subtitle store. Translation failure falls back to the original
// text so the caption is never lost.
func (s *Session) HandleInbound(ev captions.TranscriptEvent) {
	target := s.prefs.Language()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	translated, err := s.trans.Translate(ctx, ev.Text, ev.SenderLanguage, target)
	if err != nil {
		s.logger.Debug().
			Err(err).
			Str("source", ev.SenderLanguage).
			Str("target", target).
			Msg("Translation unavailable, showing original text")
		translated = ev.Text
	}

	s.store.Ingest(captions.SubtitleItem{
		ID:              ev.ID,
		SpeakerName:     ev.SenderName,
		SpeakerLanguage: language.Name(ev.SenderLanguage),
		OriginalText:    ev.Text,
		TranslatedText:  translated,
		Timestamp:       ev.Timestamp,
		IsFinal:         ev.IsFinal,
	})

	s.archiveEvent(ev)
}

func (s *Session) archiveEvent(ev captions.TranscriptEvent) {
	if s.archive == nil {
		return
	}
	if !ev.IsFinal && !s.cfg.ArchiveInterim {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.archive.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("utterance", ev.ID).Msg("Failed to archive caption")
	}
}

// Close shuts the pipeline down: capture stops and inbound delivery stops.
func (s *Session) Close() {
	s.mu.Lock()
	s.micOn = false
	s.currentID = ""
	s.mu.Unlock()

	s.speech.Stop()
	s.channel.Detach()
	s.logger.Info().Msg("Session closed")
}
