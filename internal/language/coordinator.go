package language

import (
	"sync"

	"github.com/rs/zerolog"

	"clarity-caption-service/internal/observability/logging"
)

// RecognizerControl is the slice of the speech adapter the coordinator needs.
type RecognizerControl interface {
	SetLanguage(code string)
}

// SubtitleClearer is the slice of the subtitle store the coordinator needs.
type SubtitleClearer interface {
	Clear()
}

// Coordinator owns the viewer's chosen display language. Changing it
// reconfigures the recognition locale and clears the subtitle store, since
// translations computed under the old preference are stale.
type Coordinator struct {
	rec  RecognizerControl
	subs SubtitleClearer
	log  zerolog.Logger

	mu   sync.RWMutex
	code string
}

// NewCoordinator creates a coordinator with the given initial language code.
// rec and subs may be nil (useful in tests and partial wiring).
func NewCoordinator(initial string, rec RecognizerControl, subs SubtitleClearer) *Coordinator {
	if initial == "" {
		initial = "en"
	}
	return &Coordinator{
		rec:  rec,
		subs: subs,
		log:  logging.WithComponent("language"),
		code: initial,
	}
}

// Language returns the current preference.
func (c *Coordinator) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.code
}

// SetLanguage changes the preference. A no-op when code equals the current
// preference.
func (c *Coordinator) SetLanguage(code string) {
	c.mu.Lock()
	if code == "" || code == c.code {
		c.mu.Unlock()
		return
	}
	old := c.code
	c.code = code
	c.mu.Unlock()

	c.log.Info().Str("from", old).Str("to", code).Msg("language preference changed")

	if c.rec != nil {
		c.rec.SetLanguage(code)
	}
	if c.subs != nil {
		c.subs.Clear()
	}
}
