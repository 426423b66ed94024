// Package subtitles provides the caption aggregation and display engine: a
// bounded, time-decaying, ordered queue of subtitle items for one viewer.
package subtitles

import (
	"sort"
	"sync"
	"time"

	"clarity-caption-service/internal/captions"
	"clarity-caption-service/internal/observability/metrics"
)

// Config holds store configuration.
type Config struct {
	// MaxItems bounds how many items Visible returns.
	MaxItems int
	// DisplayTTL removes a final item this long after its timestamp.
	DisplayTTL time.Duration
	// StaleAfter retires a non-final item not updated for this long; the
	// speaker stopped without the recognizer ever finalizing.
	StaleAfter time.Duration
	// Now is the clock; defaults to time.Now. Injectable for tests.
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxItems:   3,
		DisplayTTL: 10 * time.Second,
		StaleAfter: 30 * time.Second,
	}
}

type entry struct {
	item      captions.SubtitleItem
	updatedAt time.Time
}

// Store tracks subtitle items keyed by utterance ID. Ingest is an upsert:
// exactly one item per ID exists at any time. Purely in-memory, no I/O.
type Store struct {
	cfg Config
	now func() time.Time
	m   *metrics.Metrics

	mu      sync.Mutex
	entries map[string]*entry
}

// NewStore creates a subtitle store.
func NewStore(cfg Config) *Store {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 3
	}
	if cfg.DisplayTTL <= 0 {
		cfg.DisplayTTL = 10 * time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 30 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		cfg:     cfg,
		now:     now,
		m:       metrics.DefaultMetrics,
		entries: make(map[string]*entry),
	}
}

// Ingest upserts an item. An existing item with the same ID is replaced in
// place; ordering changes only through the item's own timestamp.
func (s *Store) Ingest(item captions.SubtitleItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[item.ID]; ok {
		e.item = item
		e.updatedAt = s.now()
	} else {
		s.entries[item.ID] = &entry{item: item, updatedAt: s.now()}
	}
	s.pruneLocked()
}

// Visible returns at most MaxItems items for rendering: the most recently
// updated in-progress item, plus the most recent final items, ordered by
// timestamp ascending.
func (s *Store) Visible() []captions.SubtitleItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	var interim *entry
	finals := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.item.IsFinal {
			finals = append(finals, e)
			continue
		}
		if interim == nil || e.updatedAt.After(interim.updatedAt) {
			interim = e
		}
	}

	// Most recent finals first, then trim to the display bound.
	sort.Slice(finals, func(i, j int) bool {
		return finals[i].item.Timestamp.After(finals[j].item.Timestamp)
	})
	limit := s.cfg.MaxItems
	if interim != nil {
		limit--
	}
	if len(finals) > limit {
		finals = finals[:limit]
	}

	visible := make([]captions.SubtitleItem, 0, len(finals)+1)
	for _, e := range finals {
		visible = append(visible, e.item)
	}
	if interim != nil {
		visible = append(visible, interim.item)
	}
	sort.Slice(visible, func(i, j int) bool {
		return visible[i].Timestamp.Before(visible[j].Timestamp)
	})
	return visible
}

// Len returns the number of tracked items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear drops all tracked items. Called when the language preference
// changes, since existing translations are stale.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
	s.m.SubtitlesActive.Set(0)
}

// pruneLocked removes expired finals and stalled interims.
func (s *Store) pruneLocked() {
	now := s.now()
	for id, e := range s.entries {
		if e.item.IsFinal {
			if now.Sub(e.item.Timestamp) >= s.cfg.DisplayTTL {
				delete(s.entries, id)
				s.m.SubtitlesExpired.Inc()
			}
			continue
		}
		if now.Sub(e.updatedAt) >= s.cfg.StaleAfter {
			delete(s.entries, id)
			s.m.SubtitlesExpired.Inc()
		}
	}
	s.m.SubtitlesActive.Set(float64(len(s.entries)))
}
