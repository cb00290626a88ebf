package backend

import (
	"context"

	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/module"
)

// TTS is the narrow text-to-speech contract: synthesize one complete
// utterance of text into raw PCM audio.
type TTS interface {
	Synthesize(ctx context.Context, text string) (raw []byte, rate, sampleSize, channels int, err error)
}

// TTSModule adapts a TTS backend into a General pipeline stage consuming
// GeneratedText IUs and producing dispatchable Speech IUs. backendName
// identifies the backend in logs when Synthesize fails.
type TTSModule struct {
	base        *module.Base
	tts         TTS
	backendName string
}

// NewTTSModule constructs a TTSModule.
func NewTTSModule(base *module.Base, tts TTS, backendName string) *TTSModule {
	return &TTSModule{base: base, tts: tts, backendName: backendName}
}

// ProcessIU implements module.Processor. On a backend failure it still emits
// a (revoked, meta-annotated) Speech IU rather than returning an error, per
// spec.md §7's BackendUnavailable handling.
func (m *TTSModule) ProcessIU(in iu.Unit) (iu.Unit, error) {
	g := in.(*iu.GeneratedText)
	raw, rate, sampleSize, channels, err := m.tts.Synthesize(context.Background(), g.Text)
	h := iu.NewHeader(m.base.ID(), m.base.NextIUID(), g, nil)
	if err != nil {
		markBackendError(&h, m.backendName, err)
	}
	return &iu.Speech{
		Header:     h,
		RawAudio:   raw,
		Rate:       rate,
		SampleSize: sampleSize,
		Channels:   channels,
		Dispatch:   g.Dispatch,
	}, nil
}

// SimulatedTTS returns a fixed amount of silence proportional to text
// length rather than performing real synthesis — content is out of scope;
// it exists so a simulation harness produces a plausibly-timed utterance.
type SimulatedTTS struct {
	Rate          int
	SampleSize    int
	Channels      int
	MsPerChar     int
}

// Synthesize implements TTS with a duration derived from len(text).
func (s *SimulatedTTS) Synthesize(_ context.Context, text string) ([]byte, int, int, int, error) {
	ms := len(text) * s.MsPerChar
	samples := s.Rate * ms / 1000
	return make([]byte, samples*s.SampleSize*s.Channels), s.Rate, s.SampleSize, s.Channels, nil
}
