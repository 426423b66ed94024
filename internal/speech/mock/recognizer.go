// Package mock provides a scripted recognizer for local development without
// cloud credentials. It plays progressive partial transcripts followed by
// exactly one final transcript per utterance, on a timer.
package mock

import (
	"context"
	"sync"
	"time"

	"clarity-caption-service/internal/speech"
)

// Utterance is one scripted utterance with progressive transcripts.
type Utterance struct {
	Partials []string
	Final    string
}

// DefaultUtterances provides sample utterances for simulation.
var DefaultUtterances = []Utterance{
	{
		Partials: []string{"hello", "hello every", "hello everyone"},
		Final:    "hello everyone",
	},
	{
		Partials: []string{"can you", "can you hear", "can you hear me"},
		Final:    "can you hear me",
	},
	{
		Partials: []string{"thank", "thank you"},
		Final:    "thank you",
	},
	{
		Partials: []string{"see you", "see you to"},
		Final:    "see you tomorrow",
	},
}

// Recognizer implements speech.Recognizer with scripted output.
type Recognizer struct {
	Utterances []Utterance
	Interval   time.Duration // delay between emitted results

	mu   sync.Mutex
	stop chan struct{}
}

// New creates a mock recognizer playing the default script.
func New() *Recognizer {
	return &Recognizer{
		Utterances: DefaultUtterances,
		Interval:   400 * time.Millisecond,
	}
}

// Supported always reports true.
func (r *Recognizer) Supported() bool { return true }

// Start begins playing the script until Stop or context cancellation.
func (r *Recognizer) Start(ctx context.Context, languageCode string, cb speech.Callback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		close(r.stop)
	}
	stop := make(chan struct{})
	r.stop = stop

	go r.play(ctx, stop, cb)
	return nil
}

// Stop ends the current session. Safe to call when not started.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	return nil
}

// Reset is a no-op for the mock.
func (r *Recognizer) Reset() error { return nil }

func (r *Recognizer) play(ctx context.Context, stop chan struct{}, cb speech.Callback) {
	for _, utt := range r.Utterances {
		for _, partial := range utt.Partials {
			if !r.sleep(ctx, stop) {
				return
			}
			cb.OnResult(partial, false)
		}
		if !r.sleep(ctx, stop) {
			return
		}
		cb.OnResult(utt.Final, true)
	}
	// Script exhausted; the session ends like a platform timeout would.
	cb.OnEnd()
}

func (r *Recognizer) sleep(ctx context.Context, stop chan struct{}) bool {
	select {
	case <-time.After(r.Interval):
		return true
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	}
}
