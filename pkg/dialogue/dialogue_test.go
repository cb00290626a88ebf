package dialogue_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/retico-go/retico/pkg/dialogue"
	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/module"
)

func TestTrigger_OnTrigger_DefaultsToGreeting(t *testing.T) {
	base := module.NewBase("trig", nil, []iu.Kind{iu.KindDispatchableAct})
	trig := dialogue.NewTrigger(base, true)

	out, err := trig.OnTrigger(nil)
	if err != nil {
		t.Fatalf("OnTrigger: %v", err)
	}
	act := out.(*iu.DispatchableAct)
	if act.Act != "greeting" {
		t.Fatalf("expected default act 'greeting', got %q", act.Act)
	}
	if !act.Dispatch {
		t.Fatal("expected Dispatch=true per constructor")
	}
}

func TestTrigger_OnTrigger_UsesProvidedAct(t *testing.T) {
	base := module.NewBase("trig", nil, []iu.Kind{iu.KindDispatchableAct})
	trig := dialogue.NewTrigger(base, false)

	out, err := trig.OnTrigger(dialogue.TriggerData{Act: "goodbye", Concepts: map[string]string{"reason": "done"}})
	if err != nil {
		t.Fatalf("OnTrigger: %v", err)
	}
	act := out.(*iu.DispatchableAct)
	if act.Act != "goodbye" || act.Concepts["reason"] != "done" {
		t.Fatalf("expected provided act/concepts, got %+v", act)
	}
}

func TestRecorder_RewindsStartTimeForEarlierIU(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acts.tsv")
	r, err := dialogue.NewRecorder(path)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	later := iu.NewHeader("m1", 1, nil, nil)
	later.CreatedAt = time.Now()
	if err := r.ProcessIU(&iu.DialogueAct{Header: later, Act: "greeting"}); err != nil {
		t.Fatalf("ProcessIU: %v", err)
	}

	earlier := iu.NewHeader("m1", 2, nil, nil)
	earlier.CreatedAt = later.CreatedAt.Add(-2 * time.Second)
	if err := r.ProcessIU(&iu.DialogueAct{Header: earlier, Act: "request_info"}); err != nil {
		t.Fatalf("ProcessIU: %v", err)
	}
	r.Close()

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	// The first line's elapsed_ms must be re-derived once the start time
	// rewinds to the earlier IU, so it should read 2000 in hindsight — but
	// since it was already flushed before the rewind, per the original's
	// semantics only new writes see an updated start. Assert the earlier
	// line itself records elapsed 0 against the rewound start.
	secondFields := strings.Split(lines[1], "\t")
	if secondFields[2] != "0" {
		t.Fatalf("expected earlier IU to record elapsed 0 against rewound start, got %q", secondFields[2])
	}
}
