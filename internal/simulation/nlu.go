// Package simulation wires two full per-agent pipelines (ASR → NLU →
// turn-taking DM → NLG → TTS → dispatcher → network → {ASR, EoT}) end to
// end, as a library — there is deliberately no CLI entry point, matching
// spec.md's exclusion of command-line simulation runners. It is the Go
// analogue of original_source/retico/headless.py, which builds a module
// graph from a pickled (modules, connections) tuple and runs it; here the
// graph is built directly in Go rather than deserialized.
package simulation

import (
	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/module"
)

// NLU converts an ASR hypothesis into a dialogue act. Real natural-language
// understanding is out of scope (spec.md §1), so this adapter draws the act
// and concepts from a caller-supplied source rather than the recognized
// text — matching retico/modules/simulation/nlu.py's meta-data pass-through,
// with the closure standing in for the Python module's meta_data dict.
type NLU struct {
	base *module.Base
	next func() (act string, concepts map[string]string)
}

// NewNLU constructs an NLU module. next is called once per consumed
// SpeechRecognition IU to obtain the act and concepts to emit.
func NewNLU(base *module.Base, next func() (string, map[string]string)) *NLU {
	return &NLU{base: base, next: next}
}

// ProcessIU implements module.Processor.
func (n *NLU) ProcessIU(in iu.Unit) (iu.Unit, error) {
	sr := in.(*iu.SpeechRecognition)
	act, concepts := n.next()
	h := iu.NewHeader(n.base.ID(), n.base.NextIUID(), sr, nil)
	return &iu.DialogueAct{Header: h, Act: act, Concepts: concepts, Confidence: sr.Confidence}, nil
}
