// Package dialogue implements the dialogue-act file recorder and the
// manually-triggered dialogue-act emitter, grounded on
// original_source/retico/core/dialogue/io.py's DialogueActRecorderModule
// and DialogueActTriggerModule.
package dialogue

import (
	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/module"
)

// TriggerData carries the act and concepts to emit on Fire. A zero value
// falls back to a bare "greeting" act, matching the original's
// trigger(data={}) default.
type TriggerData struct {
	Act      string
	Concepts map[string]string
}

// Trigger implements module.TriggerFunc, emitting one DispatchableAct per
// Fire call.
type Trigger struct {
	base     *module.Base
	dispatch bool
}

// NewTrigger constructs a Trigger. dispatch sets the Dispatch flag on every
// emitted act.
func NewTrigger(base *module.Base, dispatch bool) *Trigger {
	return &Trigger{base: base, dispatch: dispatch}
}

// OnTrigger implements module.TriggerFunc.
func (t *Trigger) OnTrigger(data any) (iu.Unit, error) {
	act, concepts := "greeting", map[string]string(nil)
	if d, ok := data.(TriggerData); ok {
		if d.Act != "" {
			act = d.Act
		}
		concepts = d.Concepts
	}

	h := iu.NewHeader(t.base.ID(), t.base.NextIUID(), nil, nil)
	out := &iu.DispatchableAct{
		DialogueAct: iu.DialogueAct{Header: h, Act: act, Concepts: concepts, Confidence: 1.0},
		Dispatch:    t.dispatch,
	}
	return out, nil
}
