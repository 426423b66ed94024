package ingress

import (
	"bytes"
	"encoding/binary"
	"fmt"

	soxr "github.com/zaf/resample"
	opus "gopkg.in/hraban/opus.v2"
)

// opusFrameSamples is the decode buffer size: 20ms at 48kHz mono, the frame
// duration WebRTC audio tracks carry.
const opusFrameSamples = 960

// opusDecoder decodes Opus payloads at 48kHz and resamples down to the
// recognizer's rate.
type opusDecoder struct {
	dec        *opus.Decoder
	resampler  *soxr.Resampler
	buf        *bytes.Buffer
	pcm48k     []int16
	sampleRate int
}

func newOpusDecoder(sampleRate int) (frameDecoder, error) {
	dec, err := opus.NewDecoder(48000, 1)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}

	d := &opusDecoder{
		dec:        dec,
		pcm48k:     make([]int16, opusFrameSamples),
		sampleRate: sampleRate,
	}
	if sampleRate != 48000 {
		// The resampler writes into buf; Decode reads it back out.
		buf := &bytes.Buffer{}
		resampler, err := soxr.New(buf, 48000.0, float64(sampleRate), 1, soxr.I16, soxr.HighQ)
		if err != nil {
			return nil, fmt.Errorf("create resampler: %w", err)
		}
		d.resampler = resampler
		d.buf = buf
	}
	return d, nil
}

func (d *opusDecoder) Decode(payload []byte) ([]int16, error) {
	n, err := d.dec.Decode(payload, d.pcm48k)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	if d.resampler == nil {
		out := make([]int16, n)
		copy(out, d.pcm48k[:n])
		return out, nil
	}
	return d.resample(d.pcm48k[:n])
}

func (d *opusDecoder) resample(samples []int16) ([]int16, error) {
	in := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(in[i*2:], uint16(s))
	}

	d.buf.Reset()
	if _, err := d.resampler.Write(in); err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	outBytes := d.buf.Bytes()
	if len(outBytes) == 0 {
		// The resampler buffers internally near frame boundaries.
		return nil, nil
	}
	out := make([]int16, len(outBytes)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(outBytes[i*2:]))
	}
	return out, nil
}

func (d *opusDecoder) Close() {
	if d.resampler != nil {
		_ = d.resampler.Close()
	}
}
