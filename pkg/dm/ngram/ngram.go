// Package ngram implements a frequency-table next-act predictor: given a
// corpus of (previous act, next act) pairs, it picks the most frequent next
// act observed after the current last-heard act, falling back to a
// configured default when the act has never been seen.
package ngram

import "sync"

// Manager predicts the next dialogue act from a first-order (bigram)
// frequency table over (previous act, next act) pairs. It satisfies
// turntaking.InnerDialogueManager.
type Manager struct {
	mu      sync.Mutex
	table   map[string]map[string]int
	last    string
	def     string
}

// New builds a Manager from training pairs, where each pair is
// (prevAct, nextAct) observed in a reference corpus. def is returned when
// the current last-heard act has no recorded continuations.
func New(pairs [][2]string, def string) *Manager {
	m := &Manager{table: make(map[string]map[string]int), def: def}
	for _, p := range pairs {
		m.observe(p[0], p[1])
	}
	return m
}

func (m *Manager) observe(prev, next string) {
	row, ok := m.table[prev]
	if !ok {
		row = make(map[string]int)
		m.table[prev] = row
	}
	row[next]++
}

// ProcessAct records act as the most recently heard act and folds the
// (previous, act) transition into the frequency table, so the predictor
// keeps learning online from the live conversation.
func (m *Manager) ProcessAct(act string, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last != "" {
		m.observe(m.last, act)
	}
	m.last = act
}

// NextAct returns the most frequent act observed to follow the last-heard
// act, or def if none has been observed.
func (m *Manager) NextAct() (string, map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.table[m.last]
	if !ok || len(row) == 0 {
		return m.def, nil
	}
	var best string
	var bestCount int
	for act, count := range row {
		if count > bestCount || (count == bestCount && act < best) {
			best, bestCount = act, count
		}
	}
	return best, nil
}
