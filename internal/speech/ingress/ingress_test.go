package ingress

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pion/rtp"
)

// fakeTrack serves queued RTP packets and then blocks until closed.
type fakeTrack struct {
	packets chan []byte
}

func newFakeTrack() *fakeTrack {
	return &fakeTrack{packets: make(chan []byte, 16)}
}

func (f *fakeTrack) Read(buf []byte) (int, error) {
	pkt, ok := <-f.packets
	if !ok {
		return 0, io.EOF
	}
	return copy(buf, pkt), nil
}

func (f *fakeTrack) push(t *testing.T, payload []byte, seq uint16) {
	t.Helper()
	pkt := rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			SequenceNumber: seq,
			Timestamp:      uint32(seq) * 960,
			SSRC:           42,
		},
		Payload: payload,
	}
	raw, err := pkt.Marshal()
	if err != nil {
		t.Fatalf("marshal RTP packet: %v", err)
	}
	f.packets <- raw
}

// fakeDecoder widens each payload byte into one sample.
type fakeDecoder struct {
	closed bool
	err    error
}

func (d *fakeDecoder) Decode(payload []byte) ([]int16, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := make([]int16, len(payload))
	for i, b := range payload {
		out[i] = int16(b)
	}
	return out, nil
}

func (d *fakeDecoder) Close() { d.closed = true }

type fakeSink struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (f *fakeSink) SendAudio(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, append([]byte(nil), pcm...))
	return nil
}

func (f *fakeSink) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeSink) frame(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames[i]
}

func newTestIngress(sink Sink, dec *fakeDecoder, target string) *Ingress {
	i := New(sink, Config{TargetIdentity: target, SampleRate: 16000})
	i.newDecoder = func(int) (frameDecoder, error) { return dec, nil }
	return i
}

func waitForFrames(t *testing.T, sink *fakeSink, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for sink.frameCount() < want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d frames, got %d", want, sink.frameCount())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestIngress_ForwardsDecodedAudio(t *testing.T) {
	sink := &fakeSink{}
	track := newFakeTrack()
	ing := newTestIngress(sink, &fakeDecoder{}, "alice")
	defer ing.Close()
	defer close(track.packets)

	ing.HandleTrack("alice", track)
	track.push(t, []byte{1, 2, 3}, 1)
	track.push(t, []byte{4, 5}, 2)

	waitForFrames(t, sink, 2)

	// LINEAR16 little-endian: sample k becomes bytes {k, 0}.
	want := []byte{1, 0, 2, 0, 3, 0}
	got := sink.frame(0)
	if len(got) != len(want) {
		t.Fatalf("frame length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame = %v, want %v", got, want)
		}
	}
}

func TestIngress_IgnoresOtherParticipants(t *testing.T) {
	sink := &fakeSink{}
	track := newFakeTrack()
	ing := newTestIngress(sink, &fakeDecoder{}, "alice")
	defer ing.Close()

	ing.HandleTrack("bob", track)
	track.push(t, []byte{9}, 1)

	time.Sleep(20 * time.Millisecond)
	if got := sink.frameCount(); got != 0 {
		t.Fatalf("forwarded %d frames from non-target participant, want 0", got)
	}
}

func TestIngress_NoTargetTapsFirstTrackOnly(t *testing.T) {
	sink := &fakeSink{}
	first := newFakeTrack()
	second := newFakeTrack()
	ing := newTestIngress(sink, &fakeDecoder{}, "")
	defer ing.Close()
	defer close(first.packets)

	ing.HandleTrack("alice", first)
	ing.HandleTrack("bob", second)

	first.push(t, []byte{1}, 1)
	second.push(t, []byte{2}, 1)

	waitForFrames(t, sink, 1)
	time.Sleep(20 * time.Millisecond)
	if got := sink.frameCount(); got != 1 {
		t.Fatalf("forwarded %d frames, want only the first track's 1", got)
	}
}

func TestIngress_EmptyPayloadSkipped(t *testing.T) {
	sink := &fakeSink{}
	track := newFakeTrack()
	ing := newTestIngress(sink, &fakeDecoder{}, "alice")
	defer ing.Close()
	defer close(track.packets)

	ing.HandleTrack("alice", track)
	track.push(t, nil, 1) // DTX
	track.push(t, []byte{7}, 2)

	waitForFrames(t, sink, 1)
	if got := sink.frame(0); len(got) != 2 || got[0] != 7 {
		t.Fatalf("frame = %v, want the non-DTX payload only", got)
	}
}

func TestIngress_MalformedPacketSkipped(t *testing.T) {
	sink := &fakeSink{}
	track := newFakeTrack()
	ing := newTestIngress(sink, &fakeDecoder{}, "alice")
	defer ing.Close()
	defer close(track.packets)

	ing.HandleTrack("alice", track)
	track.packets <- []byte{0x00} // not RTP
	track.push(t, []byte{3}, 1)

	waitForFrames(t, sink, 1)
}

func TestIngress_DecodeErrorSkipsFrame(t *testing.T) {
	sink := &fakeSink{}
	track := newFakeTrack()
	dec := &fakeDecoder{err: errors.New("bad frame")}
	ing := newTestIngress(sink, dec, "alice")
	defer ing.Close()
	defer close(track.packets)

	ing.HandleTrack("alice", track)
	track.push(t, []byte{1}, 1)

	time.Sleep(20 * time.Millisecond)
	if got := sink.frameCount(); got != 0 {
		t.Fatalf("forwarded %d undecodable frames, want 0", got)
	}
}

func TestIngress_SinkErrorDoesNotStopPump(t *testing.T) {
	sink := &fakeSink{err: errors.New("stream not open")}
	track := newFakeTrack()
	ing := newTestIngress(sink, &fakeDecoder{}, "alice")
	defer ing.Close()
	defer close(track.packets)

	ing.HandleTrack("alice", track)
	track.push(t, []byte{1}, 1)

	time.Sleep(20 * time.Millisecond)
	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	track.push(t, []byte{2}, 2)

	waitForFrames(t, sink, 1)
}

func TestIngress_RemoveTrackStopsPump(t *testing.T) {
	sink := &fakeSink{}
	track := newFakeTrack()
	dec := &fakeDecoder{}
	ing := newTestIngress(sink, dec, "alice")

	ing.HandleTrack("alice", track)
	track.push(t, []byte{1}, 1)
	waitForFrames(t, sink, 1)

	close(track.packets)
	ing.RemoveTrack("alice")

	if !dec.closed {
		t.Fatal("decoder not closed on track removal")
	}
	// Removing again is a no-op.
	ing.RemoveTrack("alice")
}

func TestIngress_CloseStopsAllTaps(t *testing.T) {
	sink := &fakeSink{}
	track := newFakeTrack()
	dec := &fakeDecoder{}
	ing := newTestIngress(sink, dec, "alice")

	ing.HandleTrack("alice", track)
	close(track.packets)
	ing.Close()

	if !dec.closed {
		t.Fatal("decoder not closed on ingress close")
	}

	// No new taps after close.
	ing.HandleTrack("alice", newFakeTrack())
	time.Sleep(10 * time.Millisecond)
	ing.Close()
}
