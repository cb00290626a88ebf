package simulation

import (
	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/module"
)

// EoT predicts end-of-turn directly from the dispatch progress of the
// incoming (far-end) audio: completion doubles as end-of-turn probability,
// and is-dispatching doubles as is-speaking, exactly
// retico/modules/simulation/eot.py's SimulatedEoTModule. A real predictor
// would instead derive these from prosodic features, which is out of scope
// per spec.md §1.
type EoT struct {
	base *module.Base
}

// NewEoT constructs an EoT module.
func NewEoT(base *module.Base) *EoT {
	return &EoT{base: base}
}

// ProcessIU implements module.Processor.
func (e *EoT) ProcessIU(in iu.Unit) (iu.Unit, error) {
	d := in.(*iu.DispatchedAudio)
	h := iu.NewHeader(e.base.ID(), e.base.NextIUID(), d, nil)
	return &iu.EndOfTurn{Header: h, Probability: d.Completion, IsSpeaking: d.IsDispatching}, nil
}
