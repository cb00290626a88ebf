// Package whisper implements backend.ASR on top of the whisper.cpp CGO
// bindings (github.com/ggerganov/whisper.cpp/bindings/go), grounded on the
// teacher's pkg/provider/stt/whisper NativeProvider: audio is accumulated
// until an RMS-based silence gap is observed, then run through a fresh
// whisper.cpp inference context. Unlike the teacher's streaming
// SessionHandle, backend.ASR is called synchronously once per Audio IU, so
// all buffering state lives on the Provider and is guarded by a mutex
// rather than confined to a per-session goroutine.
package whisper

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

const (
	bitsPerSample          = 16
	defaultRMSThreshold    = 300.0
	defaultLanguage        = "en"
	defaultSilenceThresholdMs = 500
	defaultMaxBufferMs     = 10_000
)

// Provider implements backend.ASR using a shared whisper.cpp model. Create
// one Provider per model file; it is safe for concurrent use by multiple
// ASRModule instances only if each is given its own Provider, since
// buffering state is per-Provider, not per-caller.
type Provider struct {
	model    whisperlib.Model
	language string

	silenceThresholdMs int
	maxBufferMs        int

	mu        sync.Mutex
	buffer    []byte
	hadSpeech bool
	silenceMs int
}

// Option configures a Provider.
type Option func(*Provider)

// WithLanguage sets the BCP-47 language code passed to whisper.cpp.
// Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithSilenceThresholdMs sets the consecutive-silence duration that marks
// the buffered utterance final and triggers a flush. Defaults to 500ms.
func WithSilenceThresholdMs(ms int) Option {
	return func(p *Provider) { p.silenceThresholdMs = ms }
}

// WithMaxBufferMs bounds how long speech can accumulate before a forced
// flush, regardless of silence. Defaults to 10s.
func WithMaxBufferMs(ms int) Option {
	return func(p *Provider) { p.maxBufferMs = ms }
}

// New loads a whisper.cpp model from modelPath. Close must be called when
// the provider is no longer needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	p := &Provider{
		model:              model,
		language:           defaultLanguage,
		silenceThresholdMs: defaultSilenceThresholdMs,
		maxBufferMs:        defaultMaxBufferMs,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the underlying whisper model.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Recognize implements backend.ASR. It buffers pcm until a silence gap or
// the max buffer duration is reached, running whisper.cpp inference on
// every call so the caller always sees an up-to-date hypothesis; final is
// true only on the call that closes out the buffered utterance.
func (p *Provider) Recognize(ctx context.Context, pcm []byte, rate, channels int) (string, float64, float64, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, 0, false, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bytesPerMs := rate * channels * (bitsPerSample / 8) / 1000
	if bytesPerMs <= 0 {
		bytesPerMs = 32
	}
	maxBufferBytes := p.maxBufferMs * bytesPerMs
	chunkMs := len(pcm) / bytesPerMs

	rms := computeRMS(pcm)
	final := false
	if rms < defaultRMSThreshold {
		if p.hadSpeech {
			p.silenceMs += chunkMs
			p.buffer = append(p.buffer, pcm...)
			if p.silenceMs >= p.silenceThresholdMs {
				final = true
			}
		}
	} else {
		p.hadSpeech = true
		p.silenceMs = 0
		p.buffer = append(p.buffer, pcm...)
		if maxBufferBytes > 0 && len(p.buffer) >= maxBufferBytes {
			final = true
		}
	}

	if len(p.buffer) == 0 {
		return "", 0, 1.0, false, nil
	}

	text, err := p.infer(channels, p.buffer)
	if err != nil {
		return "", 0, 0, false, err
	}

	stability := math.Min(1.0, float64(len(p.buffer))/float64(max(maxBufferBytes, 1)))
	confidence := 1.0
	if !final {
		confidence = 0.5
	}

	if final {
		p.buffer = nil
		p.hadSpeech = false
		p.silenceMs = 0
	}

	return text, stability, confidence, final, nil
}

// infer converts the buffered PCM to mono float32 and runs one whisper.cpp
// inference pass over a fresh context.
func (p *Provider) infer(channels int, pcm []byte) (string, error) {
	samples := pcmToFloat32Mono(pcm, channels)

	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(p.language); err != nil {
		return "", fmt.Errorf("whisper: set language: %w", err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func computeRMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		v := float64(sample)
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}

func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 1 {
		n := len(pcm) / 2
		samples := make([]float32, n)
		for i := range n {
			sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
			samples[i] = float32(sample) / 32768.0
		}
		return samples
	}
	samplesPerChannel := len(pcm) / (2 * channels)
	mono := make([]float32, samplesPerChannel)
	for i := range samplesPerChannel {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[idx : idx+2]))
			sum += float32(sample) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
