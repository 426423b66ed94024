package speech

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"clarity-caption-service/internal/observability/logging"
	"clarity-caption-service/internal/observability/metrics"
)

// Config holds adapter timing and retry configuration.
type Config struct {
	RestartDelay       time.Duration // delay before restarting a dead session
	SettleDelay        time.Duration // delay between Stop and Start on a language swap
	ReinitDelay        time.Duration // backoff before a full recognizer reset
	MaxRestartAttempts int           // consecutive restarts before a full reset
}

// DefaultConfig returns sensible default adapter configuration.
func DefaultConfig() Config {
	return Config{
		RestartDelay:       300 * time.Millisecond,
		SettleDelay:        300 * time.Millisecond,
		ReinitDelay:        500 * time.Millisecond,
		MaxRestartAttempts: 3,
	}
}

// Adapter manages the lifecycle of a Recognizer session.
//
// Start and Stop are idempotent. When the underlying session terminates
// without Stop having been called, the adapter restarts it after a short
// delay. If the session fails to stay alive across consecutive restart
// attempts, the adapter resets the recognizer once with backoff; if the
// session still cannot be established, the failure is reported once through
// the error callback and the adapter stops.
type Adapter struct {
	rec      Recognizer
	cfg      Config
	onResult func(text string, isFinal bool)
	onError  func(err error)
	m        *metrics.Metrics
	log      zerolog.Logger

	mu        sync.Mutex
	ctx       context.Context
	listening bool
	language  string
	restarts  int  // consecutive restart attempts since the last result
	reinited  bool // a full reset already happened in this storm
	gen       int  // invalidates pending timers and stale callbacks
}

// NewAdapter creates an adapter around rec. onResult and onError must be
// non-nil.
func NewAdapter(rec Recognizer, language string, cfg Config, onResult func(string, bool), onError func(error)) *Adapter {
	return &Adapter{
		rec:      rec,
		cfg:      cfg,
		language: language,
		onResult: onResult,
		onError:  onError,
		m:        metrics.DefaultMetrics,
		log:      logging.WithComponent("speech"),
	}
}

// Supported reports whether recognition is available in this environment.
func (a *Adapter) Supported() bool {
	return a.rec.Supported()
}

// Language returns the current recognition language code.
func (a *Adapter) Language() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.language
}

// Start begins listening. A no-op while already listening.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.listening {
		a.mu.Unlock()
		return nil
	}
	if !a.rec.Supported() {
		a.mu.Unlock()
		return fmt.Errorf("speech recognition not supported")
	}
	a.listening = true
	a.ctx = ctx
	a.restarts = 0
	a.reinited = false
	a.gen++
	gen := a.gen
	lang := a.language
	a.mu.Unlock()

	if err := a.rec.Start(ctx, lang, &sessionCallback{a: a, gen: gen}); err != nil {
		a.mu.Lock()
		a.listening = false
		a.mu.Unlock()
		return fmt.Errorf("start recognition: %w", err)
	}
	a.log.Debug().Str("language", lang).Msg("recognition started")
	return nil
}

// Stop ends listening. Safe to call when not listening.
func (a *Adapter) Stop() {
	a.mu.Lock()
	if !a.listening {
		a.mu.Unlock()
		return
	}
	a.listening = false
	a.gen++
	a.mu.Unlock()

	if err := a.rec.Stop(); err != nil {
		a.log.Warn().Err(err).Msg("error stopping recognition")
	}
	a.log.Debug().Msg("recognition stopped")
}

// SetLanguage swaps the recognition locale. While listening, the session is
// stopped and restarted after a settle delay; starting immediately after
// stopping trips invalid-state errors in some capabilities.
func (a *Adapter) SetLanguage(code string) {
	a.mu.Lock()
	a.language = code
	if !a.listening {
		a.mu.Unlock()
		return
	}
	a.gen++
	gen := a.gen
	a.mu.Unlock()

	if err := a.rec.Stop(); err != nil {
		a.log.Warn().Err(err).Msg("error stopping recognition for language swap")
	}

	time.AfterFunc(a.cfg.SettleDelay, func() {
		a.restart(gen)
	})
}

// restart starts a new session if the adapter is still listening and gen is
// still current.
func (a *Adapter) restart(gen int) {
	a.mu.Lock()
	if !a.listening || gen != a.gen {
		a.mu.Unlock()
		return
	}
	ctx := a.ctx
	lang := a.language
	a.mu.Unlock()

	if err := a.rec.Start(ctx, lang, &sessionCallback{a: a, gen: gen}); err != nil {
		a.handleSessionDeath(gen, err)
		return
	}
	a.log.Debug().Str("language", lang).Msg("recognition session restarted")
}

// handleSessionDeath reacts to a session ending unexpectedly or a restart
// attempt failing. startErr is nil when the session ended without error.
func (a *Adapter) handleSessionDeath(gen int, startErr error) {
	a.mu.Lock()
	if !a.listening || gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.restarts++

	if a.restarts <= a.cfg.MaxRestartAttempts {
		a.mu.Unlock()
		a.m.RecognizerRestarts.Inc()
		time.AfterFunc(a.cfg.RestartDelay, func() {
			a.restart(gen)
		})
		return
	}

	if !a.reinited {
		a.reinited = true
		a.restarts = 0
		a.mu.Unlock()
		a.m.RecognizerReinits.Inc()
		a.log.Warn().Msg("restart storm: reinitializing recognizer")
		time.AfterFunc(a.cfg.ReinitDelay, func() {
			if err := a.rec.Reset(); err != nil {
				a.giveUp(gen, fmt.Errorf("reinitialize recognizer: %w", err))
				return
			}
			a.restart(gen)
		})
		return
	}

	// Already reset once this storm; the capability is not coming back.
	a.mu.Unlock()
	if startErr == nil {
		startErr = fmt.Errorf("recognition session will not stay alive")
	}
	a.giveUp(gen, startErr)
}

// giveUp disables listening and reports the failure once.
func (a *Adapter) giveUp(gen int, err error) {
	a.mu.Lock()
	if !a.listening || gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.listening = false
	a.gen++
	a.mu.Unlock()

	a.m.RecordRecognizerError("fatal")
	a.log.Error().Err(err).Msg("recognition disabled after bounded restart attempts")
	a.onError(err)
}

// sessionCallback routes recognizer callbacks for one session generation,
// discarding events from sessions superseded by Stop or SetLanguage.
type sessionCallback struct {
	a   *Adapter
	gen int
}

func (c *sessionCallback) OnResult(text string, isFinal bool) {
	a := c.a
	a.mu.Lock()
	if !a.listening || c.gen != a.gen {
		a.mu.Unlock()
		return
	}
	// A productive session ends any storm accounting.
	a.restarts = 0
	a.reinited = false
	a.mu.Unlock()

	a.onResult(text, isFinal)
}

func (c *sessionCallback) OnEnd() {
	c.a.handleSessionDeath(c.gen, nil)
}

func (c *sessionCallback) OnError(err error) {
	a := c.a
	if IsRecoverable(err) {
		a.m.RecordRecognizerError("recoverable")
		a.log.Debug().Err(err).Msg("recoverable recognition error")
		return
	}
	a.m.RecordRecognizerError("session")
	a.log.Warn().Err(err).Msg("recognition error")
	a.onError(err)
}
