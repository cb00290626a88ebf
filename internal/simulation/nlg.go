package simulation

import (
	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/module"
)

// NLG renders a DispatchableAct into text via a fixed act → utterance
// table, falling back to Default when the act is unrecognized and to a
// silent, non-dispatching GeneratedText when the act is empty. Real natural
// language generation is out of scope (spec.md §1); this mirrors
// retico/modules/simulation/nlg.py's template lookup without the
// SQLite-backed candidate database that module draws from, which has no
// equivalent surface in this domain.
type NLG struct {
	base      *module.Base
	templates map[string]string
	def       string
}

// NewNLG constructs an NLG module. templates maps a dialogue act to the
// text produced for it; def is used for any act with no table entry.
func NewNLG(base *module.Base, templates map[string]string, def string) *NLG {
	return &NLG{base: base, templates: templates, def: def}
}

// ProcessIU implements module.Processor.
func (n *NLG) ProcessIU(in iu.Unit) (iu.Unit, error) {
	da := in.(*iu.DispatchableAct)
	h := iu.NewHeader(n.base.ID(), n.base.NextIUID(), da, nil)
	if da.Act == "" {
		return &iu.GeneratedText{Header: h, Text: "", Dispatch: false}, nil
	}
	text, ok := n.templates[da.Act]
	if !ok {
		text = n.def
	}
	return &iu.GeneratedText{Header: h, Text: text, Dispatch: da.Dispatch}, nil
}
