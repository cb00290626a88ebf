package simulation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/retico-go/retico/pkg/backend"
)

// scriptedDM always returns the same act and records heard acts, mirroring
// pkg/turntaking's own test double.
type scriptedDM struct {
	mu   sync.Mutex
	act  string
	heard []string
}

func (s *scriptedDM) NextAct() (string, map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.act, nil
}

func (s *scriptedDM) ProcessAct(act string, _ map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heard = append(s.heard, act)
}

func testAgentConfig(name string, firstSpeaker bool, dm *scriptedDM) AgentConfig {
	return AgentConfig{
		Name:         name,
		FirstSpeaker: firstSpeaker,
		DM:           dm,
		ASR:          &backend.SimulatedASR{Next: func() (string, float64, float64, bool) { return "", 0, 0, true }},
		TTS:          &backend.SimulatedTTS{Rate: 16000, SampleSize: 2, Channels: 1, MsPerChar: 1},
		NLUNext:      func() (string, map[string]string) { return "", nil },
		NLGTemplates: map[string]string{"greeting": "hello", "goodbye": "bye"},
		NLGDefault:   "...",
		Rate:         16000,
		SampleSize:   2,
		Channels:     1,
		ChunkSize:    160,
		Speed:        20.0,
		Seed:         1,
	}
}

// TestPipeline_GoodbyeFiresDialogueEndOnce exercises S5 end to end through a
// single agent's full chain (manager → NLG → TTS → dispatcher): when the
// inner DM always answers "goodbye", the turn-taking manager must publish a
// dispatching DispatchableAct and fire "dialogue_end" exactly once.
func TestPipeline_GoodbyeFiresDialogueEndOnce(t *testing.T) {
	dm := &scriptedDM{act: "goodbye"}
	p, err := NewAgentPipeline(testAgentConfig("agent", true, dm))
	if err != nil {
		t.Fatalf("NewAgentPipeline: %v", err)
	}

	var mu sync.Mutex
	endCount := 0
	done := make(chan struct{})
	p.Manager().EventSubscribe("dialogue_end", func(any) {
		mu.Lock()
		defer mu.Unlock()
		endCount++
		select {
		case <-done:
		default:
			close(done)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer p.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dialogue_end")
	}

	// Give any racing scheduler ticks a moment to settle before asserting
	// the event fired exactly once.
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if endCount != 1 {
		t.Fatalf("dialogue_end fired %d times, want 1", endCount)
	}
}
