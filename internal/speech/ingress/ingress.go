// Package ingress taps room audio tracks and feeds PCM frames into the
// speech recognizer. Each tracked participant gets one pump goroutine that
// reads RTP packets, decodes Opus, and forwards LINEAR16 audio to the sink.
package ingress

import (
	"encoding/binary"
	"sync"

	"github.com/pion/rtp"
	"github.com/rs/zerolog"

	"clarity-caption-service/internal/observability/logging"
	"clarity-caption-service/internal/observability/metrics"
)

// Sink receives decoded LINEAR16 audio, little-endian, at the configured
// sample rate. Implemented by the streaming recognizer.
type Sink interface {
	SendAudio(pcm []byte) error
}

// Track is one remote audio track delivering RTP packets.
type Track interface {
	Read(buf []byte) (int, error)
}

// Config holds audio ingress configuration.
type Config struct {
	// TargetIdentity limits capture to one participant. Empty means the
	// first subscribed audio track wins.
	TargetIdentity string
	// SampleRate is the PCM rate the sink expects.
	SampleRate int
}

// Ingress routes room audio tracks into the recognizer sink.
type Ingress struct {
	sink Sink
	cfg  Config
	m    *metrics.Metrics
	log  zerolog.Logger

	// injectable for tests; the default builds an Opus decoder with a
	// resampler to the configured rate
	newDecoder func(sampleRate int) (frameDecoder, error)

	mu     sync.Mutex
	taps   map[string]*tap
	closed bool
}

// frameDecoder turns one Opus payload into PCM samples at the target rate.
type frameDecoder interface {
	Decode(payload []byte) ([]int16, error)
	Close()
}

type tap struct {
	stop chan struct{}
	done chan struct{}
}

// New creates an audio ingress feeding sink.
func New(sink Sink, cfg Config) *Ingress {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	return &Ingress{
		sink:       sink,
		cfg:        cfg,
		m:          metrics.DefaultMetrics,
		log:        logging.WithComponent("ingress"),
		newDecoder: newOpusDecoder,
		taps:       make(map[string]*tap),
	}
}

// HandleTrack starts pumping one participant's audio track. Tracks from
// other participants than the capture target, and duplicate tracks for the
// same participant, are ignored.
func (i *Ingress) HandleTrack(identity string, track Track) {
	if i.cfg.TargetIdentity != "" && identity != i.cfg.TargetIdentity {
		i.log.Debug().Str("identity", identity).Msg("ignoring audio track, not the capture target")
		return
	}

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	if i.cfg.TargetIdentity == "" && len(i.taps) > 0 {
		i.mu.Unlock()
		i.log.Debug().Str("identity", identity).Msg("ignoring audio track, already capturing")
		return
	}
	if _, exists := i.taps[identity]; exists {
		i.mu.Unlock()
		i.log.Warn().Str("identity", identity).Msg("audio track already tapped")
		return
	}

	dec, err := i.newDecoder(i.cfg.SampleRate)
	if err != nil {
		i.mu.Unlock()
		i.log.Error().Err(err).Str("identity", identity).Msg("failed to create audio decoder")
		return
	}

	t := &tap{stop: make(chan struct{}), done: make(chan struct{})}
	i.taps[identity] = t
	i.mu.Unlock()

	i.log.Info().Str("identity", identity).Msg("tapping audio track")
	go i.pump(identity, track, dec, t)
}

// RemoveTrack stops pumping a participant's audio. Safe to call for
// identities that were never tapped.
func (i *Ingress) RemoveTrack(identity string) {
	i.mu.Lock()
	t, ok := i.taps[identity]
	if ok {
		delete(i.taps, identity)
	}
	i.mu.Unlock()
	if !ok {
		return
	}

	close(t.stop)
	<-t.done
	i.log.Info().Str("identity", identity).Msg("audio track released")
}

// Close stops all taps.
func (i *Ingress) Close() {
	i.mu.Lock()
	i.closed = true
	taps := i.taps
	i.taps = make(map[string]*tap)
	i.mu.Unlock()

	for _, t := range taps {
		close(t.stop)
		<-t.done
	}
}

func (i *Ingress) pump(identity string, track Track, dec frameDecoder, t *tap) {
	defer close(t.done)
	defer dec.Close()

	buf := make([]byte, 1500)
	var pkt rtp.Packet

	for {
		select {
		case <-t.stop:
			return
		default:
		}

		n, err := track.Read(buf)
		if err != nil {
			select {
			case <-t.stop:
			default:
				i.log.Warn().Err(err).Str("identity", identity).Msg("audio track read failed")
			}
			return
		}

		if err := pkt.Unmarshal(buf[:n]); err != nil {
			i.log.Warn().Err(err).Str("identity", identity).Msg("dropping unparseable RTP packet")
			continue
		}
		if len(pkt.Payload) == 0 {
			// DTX
			continue
		}

		pcm, err := dec.Decode(pkt.Payload)
		if err != nil {
			i.log.Warn().Err(err).Str("identity", identity).Msg("dropping undecodable audio frame")
			continue
		}
		if len(pcm) == 0 {
			continue
		}

		if err := i.sink.SendAudio(pcmBytes(pcm)); err != nil {
			i.log.Debug().Err(err).Str("identity", identity).Msg("recognizer rejected audio frame")
			continue
		}
		i.m.AudioFrames.Inc()
	}
}

// pcmBytes serializes samples as little-endian LINEAR16.
func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
