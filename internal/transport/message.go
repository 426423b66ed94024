// Package transport carries transcript events between room participants over
// the room's reliable data channel.
package transport

import (
	"encoding/json"
	"errors"
	"time"

	"clarity-caption-service/internal/captions"
)

// MessageTypeTranscript tags transcript messages on the shared data channel.
// The channel coexists with other application traffic; unknown types are
// ignored, not errors.
const MessageTypeTranscript = "transcript"

var (
	errMalformed   = errors.New("malformed payload")
	errUnknownType = errors.New("unknown message type")
)

// message is the wire format for transcript events.
type message struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Text       string `json:"text"`
	Language   string `json:"language"`
	IsFinal    bool   `json:"isFinal"`
	Timestamp  string `json:"timestamp"` // ISO 8601
	SenderName string `json:"senderName"`
	SenderID   string `json:"senderId"`
}

// encodeTranscript serializes a transcript event for the data channel.
func encodeTranscript(ev captions.TranscriptEvent) ([]byte, error) {
	return json.Marshal(message{
		Type:       MessageTypeTranscript,
		ID:         ev.ID,
		Text:       ev.Text,
		Language:   ev.SenderLanguage,
		IsFinal:    ev.IsFinal,
		Timestamp:  ev.Timestamp.UTC().Format(time.RFC3339Nano),
		SenderName: ev.SenderName,
		SenderID:   ev.SenderID,
	})
}

// decodeTranscript parses an inbound payload. Non-JSON payloads return
// errMalformed; JSON with a foreign type tag returns errUnknownType.
func decodeTranscript(payload []byte) (captions.TranscriptEvent, error) {
	var msg message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return captions.TranscriptEvent{}, errMalformed
	}
	if msg.Type != MessageTypeTranscript {
		return captions.TranscriptEvent{}, errUnknownType
	}

	ts, err := time.Parse(time.RFC3339Nano, msg.Timestamp)
	if err != nil {
		// Tolerate senders with clockless payloads.
		ts = time.Now()
	}

	lang := msg.Language
	if lang == "" {
		lang = "unknown"
	}

	return captions.TranscriptEvent{
		ID:             msg.ID,
		SenderID:       msg.SenderID,
		SenderName:     msg.SenderName,
		SenderLanguage: lang,
		Text:           msg.Text,
		IsFinal:        msg.IsFinal,
		Timestamp:      ts,
	}, nil
}
