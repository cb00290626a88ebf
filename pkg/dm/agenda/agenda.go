// Package agenda implements a scripted-sequence inner dialogue manager: a
// fixed list of (act to say, act expected in reply) steps is walked in
// order, advancing only once the expected reply has been heard. Matching
// tolerates ASR/NLU noise on the act string via Jaro-Winkler fuzzy
// comparison when an exact match fails, grounded on the same matchr-based
// approach used for entity matching elsewhere in this codebase.
package agenda

import (
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
)

// defaultFuzzyThreshold is the minimum Jaro-Winkler similarity score (0..1)
// for an incoming act to be accepted as matching the agenda's expected act.
const defaultFuzzyThreshold = 0.80

// Step is one scripted exchange: Act is what this side says; ExpectAct is
// what it expects to hear from the other side before advancing past this
// step (empty if this step does not wait for a reply).
type Step struct {
	Act       string
	Concepts  map[string]string
	ExpectAct string
}

// Manager walks a scripted Step list. It satisfies
// turntaking.InnerDialogueManager.
type Manager struct {
	mu        sync.Mutex
	steps     []Step
	pos       int
	satisfied bool
	threshold float64
}

// New constructs a Manager over steps, starting at step 0.
func New(steps []Step) *Manager {
	return &Manager{steps: steps, threshold: defaultFuzzyThreshold}
}

// WithFuzzyThreshold overrides the default Jaro-Winkler acceptance
// threshold.
func (m *Manager) WithFuzzyThreshold(t float64) *Manager {
	m.threshold = t
	return m
}

// NextAct returns the current step's act. If the current step has no
// ExpectAct (or its expected reply has already been satisfied), the agenda
// also advances to the following step before returning. Once the script is
// exhausted it returns "goodbye" on every subsequent call.
func (m *Manager) NextAct() (string, map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos >= len(m.steps) {
		return "goodbye", nil
	}
	s := m.steps[m.pos]
	if s.ExpectAct == "" || m.satisfied {
		m.pos++
		m.satisfied = false
		if m.pos >= len(m.steps) {
			return "goodbye", nil
		}
		s = m.steps[m.pos]
	}
	return s.Act, s.Concepts
}

// ProcessAct marks the current step's expected reply satisfied if act
// matches it exactly or closely enough per Jaro-Winkler similarity.
func (m *Manager) ProcessAct(act string, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos >= len(m.steps) {
		return
	}
	want := m.steps[m.pos].ExpectAct
	if want == "" {
		return
	}
	if act == want {
		m.satisfied = true
		return
	}
	if matchr.JaroWinkler(strings.ToLower(act), strings.ToLower(want), false) >= m.threshold {
		m.satisfied = true
	}
}
