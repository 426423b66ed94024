// Package captions defines the data structures for caption events.
package captions

import "time"

// TranscriptEvent is one utterance fragment from one speaker at one moment.
// The ID is stable across interim updates of the same utterance; a new
// utterance gets a new ID once the previous one is finalized.
type TranscriptEvent struct {
	ID             string    `json:"id"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName"`
	SenderLanguage string    `json:"senderLanguage"`
	Text           string    `json:"text"`
	IsFinal        bool      `json:"isFinal"`
	Timestamp      time.Time `json:"timestamp"`
}

// SubtitleItem is a display-ready, translated projection of a TranscriptEvent
// for one viewer. Exactly one item per utterance ID exists in a viewer's
// store at any time; updates are upserts, not appends.
type SubtitleItem struct {
	ID              string    `json:"id"`
	SpeakerName     string    `json:"speakerName"`
	SpeakerLanguage string    `json:"speakerLanguage"`
	OriginalText    string    `json:"originalText"`
	TranslatedText  string    `json:"translatedText"`
	Timestamp       time.Time `json:"timestamp"`
	IsFinal         bool      `json:"isFinal"`
}
