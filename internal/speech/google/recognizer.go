// Package google provides a Google Cloud Speech-to-Text recognizer.
package google

import (
	"context"
	"io"
	"strings"
	"sync"

	speechapi "cloud.google.com/go/speech/apiv1"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"

	"clarity-caption-service/internal/speech"
)

// recognitionLocales maps bare ISO 639-1 codes to default recognition
// locales. Codes not listed are passed through unchanged.
var recognitionLocales = map[string]string{
	"en": "en-US",
	"es": "es-ES",
	"fr": "fr-FR",
	"de": "de-DE",
	"zh": "zh-CN",
	"ja": "ja-JP",
	"ru": "ru-RU",
	"ar": "ar-SA",
	"hi": "hi-IN",
	"pt": "pt-BR",
}

// Locale returns the recognition locale for an ISO 639-1 code.
func Locale(code string) string {
	if strings.Contains(code, "-") {
		return code
	}
	if l, ok := recognitionLocales[code]; ok {
		return l
	}
	return code
}

// Recognizer implements speech.Recognizer using Google Cloud Speech-to-Text
// streaming recognition with interim results.
// Requires GOOGLE_APPLICATION_CREDENTIALS to be set.
type Recognizer struct {
	sampleRateHz int32

	mu      sync.Mutex
	initCtx context.Context
	client  *speechapi.Client
	stream  speechpb.Speech_StreamingRecognizeClient
}

// New creates a new Google recognizer.
func New(ctx context.Context, sampleRateHz int32) (*Recognizer, error) {
	c, err := speechapi.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Recognizer{
		sampleRateHz: sampleRateHz,
		initCtx:      ctx,
		client:       c,
	}, nil
}

// Supported reports whether the client initialized.
func (r *Recognizer) Supported() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client != nil
}

// Start begins a streaming recognition session and sends the initial config.
func (r *Recognizer) Start(ctx context.Context, languageCode string, cb speech.Callback) error {
	r.mu.Lock()
	client := r.client
	r.mu.Unlock()

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		return err
	}

	// Streaming config has to be the first message
	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz: r.sampleRateHz,
					LanguageCode:    Locale(languageCode),
				},
				InterimResults: true,
			},
		},
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.stream = stream
	r.mu.Unlock()

	go r.listen(stream, cb)
	return nil
}

// SendAudio sends audio bytes into the current session.
func (r *Recognizer) SendAudio(audio []byte) error {
	r.mu.Lock()
	stream := r.stream
	r.mu.Unlock()
	if stream == nil {
		return nil
	}
	return stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
}

// Stop ends the current session.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	stream := r.stream
	r.stream = nil
	r.mu.Unlock()
	if stream == nil {
		return nil
	}
	return stream.CloseSend()
}

// Reset tears down and rebuilds the underlying client.
func (r *Recognizer) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		_ = r.stream.CloseSend()
		r.stream = nil
	}
	if r.client != nil {
		_ = r.client.Close()
	}
	c, err := speechapi.NewClient(r.initCtx)
	if err != nil {
		r.client = nil
		return err
	}
	r.client = c
	return nil
}

// listen receives transcript responses and invokes callbacks until the
// stream ends.
func (r *Recognizer) listen(stream speechpb.Speech_StreamingRecognizeClient, cb speech.Callback) {
	for {
		resp, err := stream.Recv()
		if err != nil {
			r.mu.Lock()
			stopped := r.stream == nil || r.stream != stream
			r.mu.Unlock()
			if stopped {
				return
			}
			if err != io.EOF {
				cb.OnError(err)
			}
			cb.OnEnd()
			return
		}

		for _, res := range resp.Results {
			if len(res.Alternatives) == 0 {
				continue
			}
			cb.OnResult(res.Alternatives[0].Transcript, res.IsFinal)
		}
	}
}
