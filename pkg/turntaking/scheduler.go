package turntaking

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/module"
	"github.com/retico-go/retico/pkg/queue"
)

// PProcess is the minimum completion an incoming DialogueAct must reach
// before it is forwarded to the inner dialogue-manager adapter.
const PProcess = 0.30

// TickInterval is the scheduler loop's sleep interval.
const TickInterval = 50 * time.Millisecond

// InnerDialogueManager is the narrow contract a dialogue-content adapter
// (agenda-based, n-gram, or LLM-backed) satisfies. Its internals are out of
// scope for the turn-taking manager, which only calls these two methods.
type InnerDialogueManager interface {
	ProcessAct(act string, concepts map[string]string)
	NextAct() (act string, concepts map[string]string)
}

// Manager is the turn-taking dialogue manager: it consumes DialogueAct (from
// the other side), DispatchedAudio (self progress), and EndOfTurn (other
// progress) IUs, maintains two DialogueState records, and runs a scheduler
// loop that decides when to speak, stay silent, or interrupt, emitting
// DispatchableAct IUs.
type Manager struct {
	*module.Base
	dm InnerDialogueManager

	firstSpeaker bool

	mu          sync.Mutex
	self        DialogueState
	other       DialogueState
	r           float64
	started     bool
	suspended   bool
	lastOtherAct string

	rng *rand.Rand

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a Manager. firstSpeaker marks this side as the one
// that opens the dialogue.
func NewManager(base *module.Base, dm InnerDialogueManager, firstSpeaker bool, seed int64) *Manager {
	m := &Manager{
		Base:         base,
		dm:           dm,
		firstSpeaker: firstSpeaker,
		rng:          rand.New(rand.NewSource(seed)),
	}
	m.r = m.rng.Float64()
	return m
}

// Running reports whether the scheduler loop and input drain goroutines are
// active.
func (m *Manager) Running() bool { return m.running.Load() }

// Run starts one drain goroutine per subscribed left buffer plus the 50ms
// scheduler loop.
func (m *Manager) Run(ctx context.Context) error {
	if m.Running() {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running.Store(true)

	for _, lb := range m.LeftBufs() {
		m.wg.Add(1)
		go m.drain(runCtx, lb)
	}
	m.wg.Add(1)
	go m.schedule(runCtx)
	return nil
}

// Stop cancels the scheduler and drain goroutines and closes all buffers.
func (m *Manager) Stop() error {
	if !m.Running() {
		return nil
	}
	m.running.Store(false)
	if m.cancel != nil {
		m.cancel()
	}
	m.Close()
	m.wg.Wait()
	return nil
}

func (m *Manager) drain(ctx context.Context, lb *queue.Queue[iu.Unit]) {
	defer m.wg.Done()
	for {
		in, err := lb.Get()
		if err != nil {
			return
		}
		if m.AcceptsKind(in.Kind()) {
			m.handleInput(in)
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// handleInput applies one of the three spec-defined update rules depending
// on the IU's kind.
func (m *Manager) handleInput(in iu.Unit) {
	now := time.Now()
	switch v := in.(type) {
	case *iu.DialogueAct:
		m.mu.Lock()
		if m.other.Completion > PProcess && v.Act != m.lastOtherAct {
			m.dm.ProcessAct(v.Act, v.Concepts)
			m.other.CurrentAct = v.Act
			m.lastOtherAct = v.Act
			m.mu.Unlock()
			m.EventCall(context.Background(), "heard", v.Act)
			return
		}
		m.mu.Unlock()

	case *iu.DispatchedAudio:
		m.mu.Lock()
		wasSpeaking := m.self.IsSpeaking
		m.self.IsSpeaking = v.IsDispatching
		m.self.Completion = v.Completion
		if !wasSpeaking && v.IsDispatching {
			m.self.UtterStart = now
			m.suspended = false
			m.r = m.rng.Float64()
		}
		if wasSpeaking && !v.IsDispatching {
			m.self.UtterEnd = now
			m.suspended = false
			m.r = m.rng.Float64()
		}
		m.mu.Unlock()

	case *iu.EndOfTurn:
		m.mu.Lock()
		m.other.IsSpeaking = v.IsSpeaking
		m.other.Completion = v.Probability
		if v.Probability == 1 {
			m.other.LastAct = m.other.CurrentAct
			m.other.UtterEnd = now
		}
		m.mu.Unlock()
	}
}

// schedule runs the 50ms decision loop.
func (m *Manager) schedule(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// tick evaluates one scheduler decision, per spec §4.5.
func (m *Manager) tick() {
	m.mu.Lock()
	if m.suspended {
		m.mu.Unlock()
		return
	}

	if !m.started {
		m.started = true
		if m.firstSpeaker {
			m.mu.Unlock()
			m.speak()
			return
		}
		m.mu.Unlock()
		return
	}

	now := time.Now()
	self, other := &m.self, &m.other

	switch {
	case ISpeak(self, other):
		m.mu.Unlock()
		return

	case TheySpeak(self, other):
		tse := TimeSinceEOT(other, now)
		r := m.r
		g := Gando(r, other.CurrentAct)
		spokeLong := SpokeLongerThan(other, now, time.Second)
		m.mu.Unlock()
		if tse > g && spokeLong {
			m.speak()
		}
		return

	case BothSilent(self, other):
		spokeLast := ISpokeLast(self, other)
		r := m.r
		tse := TimeSinceEOT(other, now)
		g := Gando(r, other.CurrentAct)
		if !spokeLast && tse > g {
			m.mu.Unlock()
			m.speak()
			return
		}
		if spokeLast {
			p := Pause(r, self.LastAct, other.LastAct)
			elapsed := now.Sub(self.UtterEnd).Seconds()
			m.mu.Unlock()
			if elapsed > p {
				m.speak()
			}
			return
		}
		m.mu.Unlock()
		return

	case BothSpeak(self, other):
		middle := InMiddleOfTurn(self) || InMiddleOfTurn(other)
		m.mu.Unlock()
		if middle && m.rng.Float64() < 0.10 {
			m.silence()
		}
		return

	default:
		m.mu.Unlock()
	}
}

// speak draws the next act from the inner dialogue manager, publishes it as
// a dispatchable DialogueAct, updates state, and suspends the scheduler
// until dispatch feedback resumes it.
func (m *Manager) speak() {
	act, concepts := m.dm.NextAct()

	m.mu.Lock()
	m.self.LastAct = m.self.CurrentAct
	m.self.CurrentAct = act
	m.self.UtterStart = time.Now()
	m.r = m.rng.Float64()
	m.suspended = true
	m.mu.Unlock()

	out := &iu.DispatchableAct{
		DialogueAct: iu.DialogueAct{
			Header:     iu.NewHeader(m.ID(), m.NextIUID(), nil, nil),
			Act:        act,
			Concepts:   concepts,
			Confidence: 1,
		},
		Dispatch: true,
	}
	m.Publish(out)
	m.EventCall(context.Background(), "said", act)
	if act == "goodbye" {
		m.EventCall(context.Background(), "dialogue_end", nil)
	}
}

// silence publishes a non-dispatchable act, suppressing output for this
// decision window, and fires the doubletalk event.
func (m *Manager) silence() {
	out := &iu.DispatchableAct{
		DialogueAct: iu.DialogueAct{
			Header: iu.NewHeader(m.ID(), m.NextIUID(), nil, nil),
		},
		Dispatch: false,
	}
	m.Publish(out)
	m.EventCall(context.Background(), "silence", nil)
	m.EventCall(context.Background(), "doubletalk", nil)
}
