package transport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"clarity-caption-service/internal/captions"
	"clarity-caption-service/internal/observability/logging"
	"clarity-caption-service/internal/observability/metrics"
)

// RoomSession is the slice of the room transport the channel needs.
type RoomSession interface {
	// LocalIdentity returns our own participant identity.
	LocalIdentity() string

	// PublishData broadcasts payload to all current room members.
	PublishData(payload []byte, reliable bool) error

	// ParticipantName resolves a display name from the live roster.
	ParticipantName(identity string) (string, bool)
}

// Handler receives decoded inbound transcript events.
type Handler func(ev captions.TranscriptEvent)

// ErrNotBound is returned by Send before a room session is attached.
var ErrNotBound = errors.New("channel not bound to a room session")

// placeholderName is used when neither the roster nor the payload can
// identify the sender. Display never blocks on missing identity.
const placeholderName = "Unknown participant"

// Channel serializes local transcript events onto the room's reliable data
// channel and routes inbound transcript messages to a handler. Messages from
// the local participant and payloads this channel does not understand are
// dropped silently.
type Channel struct {
	m   *metrics.Metrics
	log zerolog.Logger

	mu      sync.RWMutex
	room    RoomSession
	handler Handler
}

// NewChannel creates an unbound channel.
func NewChannel() *Channel {
	return &Channel{
		m:   metrics.DefaultMetrics,
		log: logging.WithComponent("transport"),
	}
}

// Bind attaches the room session. Inbound data arriving before Bind is
// dropped.
func (c *Channel) Bind(room RoomSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = room
}

// SetHandler attaches the inbound event handler.
func (c *Channel) SetHandler(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// Detach removes the inbound handler; events arriving afterwards are
// dropped. Called on room teardown.
func (c *Channel) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = nil
}

// Send broadcasts a transcript event to all room members via reliable
// delivery.
func (c *Channel) Send(ev captions.TranscriptEvent) error {
	c.mu.RLock()
	room := c.room
	c.mu.RUnlock()
	if room == nil {
		return ErrNotBound
	}

	payload, err := encodeTranscript(ev)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := room.PublishData(payload, true); err != nil {
		return fmt.Errorf("publish transcript: %w", err)
	}
	c.m.TranscriptsSent.Inc()
	return nil
}

// HandleData processes one inbound data packet. senderIdentity is the
// transport-level sender; it takes precedence over the sender embedded in
// the payload.
func (c *Channel) HandleData(payload []byte, senderIdentity string) {
	c.mu.RLock()
	room := c.room
	handler := c.handler
	c.mu.RUnlock()
	if room == nil || handler == nil {
		c.m.RecordPacketDropped("unbound")
		return
	}

	ev, err := decodeTranscript(payload)
	switch {
	case errors.Is(err, errMalformed):
		c.m.RecordPacketDropped("malformed")
		return
	case errors.Is(err, errUnknownType):
		c.m.RecordPacketDropped("unknown_type")
		return
	}

	if senderIdentity != "" {
		ev.SenderID = senderIdentity
	}

	// Local events already took the direct path; processing them again
	// would double subtitles.
	if ev.SenderID == room.LocalIdentity() {
		c.m.RecordPacketDropped("self")
		return
	}

	if name, ok := room.ParticipantName(ev.SenderID); ok && name != "" {
		ev.SenderName = name
	} else if ev.SenderName == "" {
		ev.SenderName = placeholderName
	}

	c.m.TranscriptsReceived.Inc()
	handler(ev)
}
