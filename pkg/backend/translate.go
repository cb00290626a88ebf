package backend

import (
	"context"

	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/module"
)

// Translator is the narrow translation contract: translate one span of text
// between two BCP-47 language tags.
type Translator interface {
	Translate(ctx context.Context, text, src, dst string) (string, error)
}

// TranslatorModule adapts a Translator backend into a General pipeline
// stage consuming Text IUs and producing translated Text IUs. backendName
// identifies the backend in logs when Translate fails.
type TranslatorModule struct {
	base        *module.Base
	tr          Translator
	src, dst    string
	backendName string
}

// NewTranslatorModule constructs a TranslatorModule translating from src to
// dst.
func NewTranslatorModule(base *module.Base, tr Translator, src, dst, backendName string) *TranslatorModule {
	return &TranslatorModule{base: base, tr: tr, src: src, dst: dst, backendName: backendName}
}

// ProcessIU implements module.Processor. On a backend failure it still
// emits a (revoked, meta-annotated) Text IU carrying the untranslated text
// rather than returning an error, per spec.md §7's BackendUnavailable
// handling.
func (m *TranslatorModule) ProcessIU(in iu.Unit) (iu.Unit, error) {
	t := in.(*iu.Text)
	out, err := m.tr.Translate(context.Background(), t.Text, m.src, m.dst)
	h := iu.NewHeader(m.base.ID(), m.base.NextIUID(), t, nil)
	if err != nil {
		markBackendError(&h, m.backendName, err)
		out = t.Text
	}
	return &iu.Text{Header: h, Text: out}, nil
}

// SimulatedTranslator returns its input unchanged — content is out of
// scope; it exists so a simulation harness can exercise the pipeline shape
// without a real translation backend.
type SimulatedTranslator struct{}

// Translate implements Translator as an identity function.
func (SimulatedTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}
