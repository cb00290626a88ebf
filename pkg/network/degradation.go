// Package network simulates an imperfect transport between the dispatcher
// and the far end of a pipeline: fixed delay and a two-state Markov
// packet-loss model, applied in that combined order (loss determined first,
// then delay), matching the original's DelayPacketLossNetworkModule.
package network

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/retico-go/retico/pkg/iu"
)

// Degradation mutates (or drops) an in-flight DispatchedAudio IU to simulate
// network impairment. PacketLoss records a lost packet in the IU's Meta map
// so downstream components (and tests) can introspect it; Delay leaves the
// IU's Meta unchanged.
type Degradation interface {
	// Degrade is invoked once per IU. It may block (Delay does, to pace
	// arrival) and returns the (possibly mutated) IU, or nil to drop it.
	Degrade(ctx context.Context, in *iu.DispatchedAudio) *iu.DispatchedAudio
}

// Delay holds each IU back so that it "arrives" a fixed duration after it
// was created, preserving inter-arrival ordering: if the IU is already older
// than the configured delay (e.g. because an upstream stage was slow), it is
// forwarded immediately.
type Delay struct {
	Duration time.Duration
}

// Degrade blocks until Duration has elapsed since in was created (or returns
// immediately if that time has already passed), then returns in unchanged.
func (d *Delay) Degrade(ctx context.Context, in *iu.DispatchedAudio) *iu.DispatchedAudio {
	remaining := d.Duration - in.Age()
	if remaining > 0 {
		select {
		case <-time.After(remaining):
		case <-ctx.Done():
			return nil
		}
	}
	return in
}

// markovState is the internal two-state Markov chain used by PacketLoss.
type markovState int

const (
	stateOK markovState = iota
	stateLost
)

// PacketLoss implements a two-state (Gilbert-Elliott style) Markov
// packet-loss model. Given a target average packet-loss probability ppl and
// an average burst length burstR (consecutive lost packets), the
// state-transition probabilities are:
//
//	q = (1 - ppl) / burstR        // Lost -> OK
//	p = ppl * q / (1 - ppl)       // OK  -> Lost
//
// matching the original's set_packetloss formula exactly.
type PacketLoss struct {
	ppl    float64
	burstR float64
	pOK2Lost float64
	pLost2OK float64

	rng   *rand.Rand
	state markovState
}

// NewPacketLoss constructs a PacketLoss degrader targeting the given average
// loss probability and average burst length (burstR >= 1).
func NewPacketLoss(ppl, burstR float64, seed int64) *PacketLoss {
	pl := &PacketLoss{rng: rand.New(rand.NewSource(seed))}
	pl.Configure(ppl, burstR)
	return pl
}

// Configure updates the target loss probability and burst length, recomputing
// the transition probabilities. It does not reset the current state.
func (pl *PacketLoss) Configure(ppl, burstR float64) {
	pl.ppl = ppl
	pl.burstR = math.Max(burstR, 1)
	q := (1 - ppl) / pl.burstR
	pl.pLost2OK = q
	pl.pOK2Lost = ppl * q / (1 - ppl)
}

// determine advances the Markov chain by one step and reports whether the
// packet represented by this step is lost.
func (pl *PacketLoss) determine() bool {
	switch pl.state {
	case stateOK:
		if pl.rng.Float64() < pl.pOK2Lost {
			pl.state = stateLost
		}
	case stateLost:
		if pl.rng.Float64() < pl.pLost2OK {
			pl.state = stateOK
		}
	}
	return pl.state == stateLost
}

// Degrade zeroes in's raw audio (rather than dropping the IU outright, so
// downstream modules still see a frame at the expected cadence) when the
// Markov chain determines this packet is lost, and records the outcome in
// the IU for inspection.
func (pl *PacketLoss) Degrade(_ context.Context, in *iu.DispatchedAudio) *iu.DispatchedAudio {
	if pl.determine() {
		lost := *in
		lost.RawAudio = make([]byte, len(in.RawAudio))
		lost.SetMeta("packet-loss", true)
		return &lost
	}
	return in
}

// Module applies an ordered chain of Degradations to DispatchedAudio IUs
// flowing through it. It is a General module: one input kind, one output
// kind, degradations applied in order for every IU (loss before delay is
// the caller's responsibility via the order passed to New).
type Module struct {
	degradations []Degradation
}

// New constructs a network Module applying degradations in order. Pair it
// with [module.NewGeneral] to run it as a pipeline stage.
func New(degradations ...Degradation) *Module {
	return &Module{degradations: degradations}
}

// NewPacketLossOnly constructs a Module that only applies packet loss.
func NewPacketLossOnly(pl *PacketLoss) *Module { return New(pl) }

// NewDelayOnly constructs a Module that only applies fixed delay.
func NewDelayOnly(d *Delay) *Module { return New(d) }

// NewCombined constructs a Module that applies packet loss first, then
// delay — matching DelayPacketLossNetworkModule in the original source.
func NewCombined(pl *PacketLoss, d *Delay) *Module { return New(pl, d) }

// ProcessIU implements module.Processor. Each degradation runs in sequence;
// a nil result from any of them drops the IU entirely.
func (m *Module) ProcessIU(in iu.Unit) (iu.Unit, error) {
	cur := in.(*iu.DispatchedAudio)
	ctx := context.Background()
	for _, d := range m.degradations {
		cur = d.Degrade(ctx, cur)
		if cur == nil {
			return nil, nil
		}
	}
	return cur, nil
}
