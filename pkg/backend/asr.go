// Package backend defines the narrow external-backend contracts (ASR, TTS,
// Translator) named in the spec, plus simulated pass-through
// implementations whose content is explicitly out of scope — they only
// relay meta-data set upstream by a simulation harness, matching the
// original's simulation/{asr,nlu,nlg,eot}.py modules.
package backend

import (
	"context"

	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/module"
)

// ASR is the narrow automatic-speech-recognition contract: recognize one
// chunk of PCM audio and report the current best hypothesis for the
// utterance in progress.
type ASR interface {
	// Recognize consumes one chunk of raw PCM audio and returns the updated
	// hypothesis for the utterance currently in progress.
	Recognize(ctx context.Context, pcm []byte, rate, channels int) (text string, stability, confidence float64, final bool, err error)
}

// ASRModule adapts an ASR backend into a General pipeline stage consuming
// Audio IUs and producing SpeechRecognition IUs. backendName identifies the
// backend in logs and metrics when Recognize fails.
type ASRModule struct {
	base        *module.Base
	asr         ASR
	backendName string
}

// NewASRModule constructs an ASRModule.
func NewASRModule(base *module.Base, asr ASR, backendName string) *ASRModule {
	return &ASRModule{base: base, asr: asr, backendName: backendName}
}

// ProcessIU implements module.Processor. On a backend failure it still emits
// a (revoked, meta-annotated) SpeechRecognition IU rather than returning an
// error, per spec.md §7's BackendUnavailable handling.
func (m *ASRModule) ProcessIU(in iu.Unit) (iu.Unit, error) {
	a := in.(*iu.Audio)
	text, stability, confidence, final, err := m.asr.Recognize(context.Background(), a.RawAudio, a.Rate, a.Channels)
	h := iu.NewHeader(m.base.ID(), m.base.NextIUID(), a, nil)
	if err != nil {
		markBackendError(&h, m.backendName, err)
	}
	return &iu.SpeechRecognition{
		Header:     h,
		Text:       text,
		Stability:  stability,
		Confidence: confidence,
		Final:      final,
	}, nil
}

// SimulatedASR echoes a transcript pre-populated on the input IU's Meta-like
// carrier rather than performing real recognition — content is out of
// scope; it exists so a simulation harness can drive the pipeline end to
// end. Set Text/Stability/Confidence/Final before each Recognize call via a
// harness-owned closure.
type SimulatedASR struct {
	Next func() (text string, stability, confidence float64, final bool)
}

// Recognize implements ASR by calling Next, ignoring the actual audio
// payload.
func (s *SimulatedASR) Recognize(_ context.Context, _ []byte, _, _ int) (string, float64, float64, bool, error) {
	text, stability, confidence, final := s.Next()
	return text, stability, confidence, final, nil
}
