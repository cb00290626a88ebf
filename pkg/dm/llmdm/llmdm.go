// Package llmdm adapts an [llm.Provider] (typically backed by
// github.com/mozilla-ai/any-llm-go, so any of its supported backends can
// drive dialogue content) into the turn-taking manager's
// InnerDialogueManager contract: each heard act is appended to a running
// transcript, and the next act is obtained from one blocking completion
// call over that transcript.
package llmdm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/retico-go/retico/pkg/provider/llm"
	"github.com/retico-go/retico/pkg/types"
)

// Manager drives dialogue content via an LLM completion call per turn. It
// satisfies turntaking.InnerDialogueManager.
type Manager struct {
	provider llm.Provider
	system   string
	timeout  time.Duration

	mu      sync.Mutex
	history []string
}

// New constructs a Manager over provider, instructing it via systemPrompt
// to respond with a single dialogue-act token per turn (e.g.
// "request_info", "provide_info", "confirm", "greeting", "goodbye").
func New(provider llm.Provider, systemPrompt string) *Manager {
	return &Manager{provider: provider, system: systemPrompt, timeout: 5 * time.Second}
}

// ProcessAct records a heard act in the running transcript.
func (m *Manager) ProcessAct(act string, concepts map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, fmt.Sprintf("other: %s %v", act, concepts))
}

// NextAct asks the LLM provider for the next act given the transcript so
// far. On any provider error it falls back to "goodbye" so the dialogue
// always terminates gracefully rather than stalling the scheduler.
func (m *Manager) NextAct() (string, map[string]string) {
	m.mu.Lock()
	transcript := strings.Join(m.history, "\n")
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	resp, err := m.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: m.system,
		Messages: []types.Message{
			{Role: "user", Content: transcript},
		},
		Temperature: 0.2,
		MaxTokens:   16,
	})
	if err != nil {
		return "goodbye", nil
	}

	act := strings.TrimSpace(resp.Content)
	if act == "" {
		act = "goodbye"
	}

	m.mu.Lock()
	m.history = append(m.history, "self: "+act)
	m.mu.Unlock()
	return act, nil
}
