// Package speech wraps a continuous speech-recognition capability with
// lifecycle management: restart on unexpected termination, bounded
// reinitialization on restart storms, and locale swaps with a settle delay.
package speech

import (
	"context"
	"errors"
)

// Callback receives recognition results from the underlying capability.
type Callback interface {
	// OnResult is called with an interim or final transcript for the
	// current utterance.
	OnResult(text string, isFinal bool)

	// OnEnd is called when the capability ends the session on its own,
	// without Stop having been requested.
	OnEnd()

	// OnError is called when a recognition error occurs.
	OnError(err error)
}

// Recognizer is a continuous, interim-results-enabled recognition capability
// (Google Cloud Speech streaming, a mock, etc.).
//
// Implementations must not invoke Callback methods synchronously from within
// Start or Stop.
type Recognizer interface {
	// Supported reports whether the capability is available in this
	// environment. Callers should hide recognition UI when false.
	Supported() bool

	// Start begins a recognition session in the given language.
	Start(ctx context.Context, languageCode string, cb Callback) error

	// Stop ends the current session. Safe to call when not started.
	Stop() error

	// Reset fully tears down and rebuilds the underlying capability.
	// Used after a restart storm, when restarting the session alone no
	// longer helps.
	Reset() error
}

// Recoverable recognition errors. These are logged and absorbed; they do not
// count toward restart storms and are never escalated to the error callback.
var (
	ErrNoSpeech = errors.New("no speech detected")
	ErrAborted  = errors.New("recognition aborted")
)

// IsRecoverable reports whether err is a transient recognition hiccup.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNoSpeech) || errors.Is(err, ErrAborted)
}
