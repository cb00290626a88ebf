package backend

import (
	"context"

	"github.com/retico-go/retico/internal/resilience"
)

// ASRFallback implements [ASR] with automatic failover across multiple ASR
// backends, each behind its own circuit breaker. A tripped primary is
// bypassed in favour of the next healthy fallback until it recovers.
type ASRFallback struct {
	group *resilience.FallbackGroup[ASR]
}

var _ ASR = (*ASRFallback)(nil)

// NewASRFallback creates an [ASRFallback] with primary as the preferred backend.
func NewASRFallback(primary ASR, primaryName string, cfg resilience.FallbackConfig) *ASRFallback {
	return &ASRFallback{group: resilience.NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional ASR backend as a fallback.
func (f *ASRFallback) AddFallback(name string, asr ASR) {
	f.group.AddFallback(name, asr)
}

// Recognize implements ASR, trying each backend in order until one succeeds.
func (f *ASRFallback) Recognize(ctx context.Context, pcm []byte, rate, channels int) (string, float64, float64, bool, error) {
	type result struct {
		text                  string
		stability, confidence float64
		final                 bool
	}
	r, err := resilience.ExecuteWithResult(f.group, func(a ASR) (result, error) {
		text, stability, confidence, final, err := a.Recognize(ctx, pcm, rate, channels)
		return result{text, stability, confidence, final}, err
	})
	return r.text, r.stability, r.confidence, r.final, err
}

// TTSFallback implements [TTS] with automatic failover across multiple TTS backends.
type TTSFallback struct {
	group *resilience.FallbackGroup[TTS]
}

var _ TTS = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred backend.
func NewTTSFallback(primary TTS, primaryName string, cfg resilience.FallbackConfig) *TTSFallback {
	return &TTSFallback{group: resilience.NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional TTS backend as a fallback.
func (f *TTSFallback) AddFallback(name string, tts TTS) {
	f.group.AddFallback(name, tts)
}

// Synthesize implements TTS, trying each backend in order until one succeeds.
func (f *TTSFallback) Synthesize(ctx context.Context, text string) ([]byte, int, int, int, error) {
	type result struct {
		raw                           []byte
		rate, sampleSize, channels int
	}
	r, err := resilience.ExecuteWithResult(f.group, func(t TTS) (result, error) {
		raw, rate, sampleSize, channels, err := t.Synthesize(ctx, text)
		return result{raw, rate, sampleSize, channels}, err
	})
	return r.raw, r.rate, r.sampleSize, r.channels, err
}

// TranslatorFallback implements [Translator] with automatic failover across
// multiple translation backends.
type TranslatorFallback struct {
	group *resilience.FallbackGroup[Translator]
}

var _ Translator = (*TranslatorFallback)(nil)

// NewTranslatorFallback creates a [TranslatorFallback] with primary as the
// preferred backend.
func NewTranslatorFallback(primary Translator, primaryName string, cfg resilience.FallbackConfig) *TranslatorFallback {
	return &TranslatorFallback{group: resilience.NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional translation backend as a fallback.
func (f *TranslatorFallback) AddFallback(name string, tr Translator) {
	f.group.AddFallback(name, tr)
}

// Translate implements Translator, trying each backend in order until one succeeds.
func (f *TranslatorFallback) Translate(ctx context.Context, text, src, dst string) (string, error) {
	return resilience.ExecuteWithResult(f.group, func(tr Translator) (string, error) {
		return tr.Translate(ctx, text, src, dst)
	})
}
