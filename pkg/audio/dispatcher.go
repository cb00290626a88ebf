package audio

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/module"
	"github.com/retico-go/retico/pkg/queue"
)

// InterruptReason identifies why the [Dispatcher] stopped dispatching the
// currently playing utterance before it completed.
type InterruptReason int

const (
	// NewUtterance indicates a fresh dispatchable Speech IU preempted the one
	// currently being chunked out.
	NewUtterance InterruptReason = iota

	// ManualInterrupt indicates [Dispatcher.Interrupt] was called explicitly,
	// e.g. by the turn-taking scheduler reacting to barge-in.
	ManualInterrupt
)

// String returns the human-readable name of the interrupt reason.
func (r InterruptReason) String() string {
	switch r {
	case NewUtterance:
		return "NEW_UTTERANCE"
	case ManualInterrupt:
		return "MANUAL_INTERRUPT"
	default:
		return "UNKNOWN"
	}
}

// Dispatcher chunks incoming [iu.Speech] utterances into fixed-size
// [iu.DispatchedAudio] frames and paces their output to real time, filling
// silence between utterances. It is the Go analogue of the original
// AudioDispatcherModule: a consumer of Speech IUs whose actual output is
// produced asynchronously by its own pacing goroutine rather than
// synchronously from ProcessIU, so it composes module.Base directly instead
// of one of the four stock worker-loop shapes.
type Dispatcher struct {
	*module.Base

	targetChunkSize int
	rate            int
	sampleSize      int
	channels        int
	speed           float64
	silenceFill     bool

	mu      sync.Mutex
	current *iu.Speech
	pos     int

	onInterrupt func(reason InterruptReason)

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher. targetChunkSize is in samples;
// speed scales real-time pacing (1.0 = real time); silenceFill, when true,
// emits continuous zero-filled DispatchedAudio frames between utterances so
// downstream consumers always see a steady stream.
func NewDispatcher(base *module.Base, targetChunkSize, rate, sampleSize, channels int, speed float64, silenceFill bool) *Dispatcher {
	if speed <= 0 {
		speed = 1.0
	}
	return &Dispatcher{
		Base:            base,
		targetChunkSize: targetChunkSize,
		rate:            rate,
		sampleSize:      sampleSize,
		channels:        channels,
		speed:           speed,
		silenceFill:     silenceFill,
	}
}

// Running reports whether the dispatcher's goroutines are active. This
// shadows the embedded Base.Running, which Dispatcher does not use since it
// does not run through General/Producing/Consuming.
func (d *Dispatcher) Running() bool { return d.running.Load() }

// OnInterrupt registers a callback invoked whenever dispatch of an utterance
// is cut short.
func (d *Dispatcher) OnInterrupt(fn func(reason InterruptReason)) { d.onInterrupt = fn }

// IsDispatching reports whether the dispatcher currently has an utterance in
// flight.
func (d *Dispatcher) IsDispatching() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current != nil
}

// Interrupt stops dispatch of the current utterance, if any, and fires
// onInterrupt with reason ManualInterrupt.
func (d *Dispatcher) Interrupt() {
	d.mu.Lock()
	had := d.current != nil
	d.current = nil
	d.pos = 0
	d.mu.Unlock()
	if had && d.onInterrupt != nil {
		d.onInterrupt(ManualInterrupt)
	}
}

// ProcessIU accepts a new Speech utterance. A dispatch-flagged utterance
// preempts whatever is currently in flight; Dispatch=false utterances are
// ignored. ProcessIU never returns an IU directly — output is produced
// asynchronously by the pacing goroutine started by Run.
func (d *Dispatcher) ProcessIU(in iu.Unit) (iu.Unit, error) {
	sp := in.(*iu.Speech)
	if !sp.Dispatch {
		return nil, nil
	}
	d.mu.Lock()
	preempting := d.current != nil
	d.current = sp
	d.pos = 0
	d.mu.Unlock()
	if preempting && d.onInterrupt != nil {
		d.onInterrupt(NewUtterance)
	}
	return nil, nil
}

// Run starts one drain goroutine per subscribed left buffer (consuming
// Speech IUs) plus the real-time pacing goroutine that emits
// DispatchedAudio frames.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.Running() {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)

	for _, lb := range d.LeftBufs() {
		d.wg.Add(1)
		go d.drainLeft(runCtx, lb)
	}

	d.wg.Add(1)
	go d.pace(runCtx)
	return nil
}

// Stop cancels the pacing and drain goroutines and closes all buffers.
func (d *Dispatcher) Stop() error {
	if !d.Running() {
		return nil
	}
	d.running.Store(false)
	if d.cancel != nil {
		d.cancel()
	}
	d.Close()
	d.wg.Wait()
	return nil
}

func (d *Dispatcher) drainLeft(ctx context.Context, lb *queue.Queue[iu.Unit]) {
	defer d.wg.Done()
	for {
		in, err := lb.Get()
		if err != nil {
			return
		}
		if d.AcceptsKind(in.Kind()) {
			_, _ = d.ProcessIU(in)
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// pace runs the real-time dispatch loop: at each tick it emits one
// DispatchedAudio frame of targetChunkSize samples from the current
// utterance (or a silence frame if none, when silenceFill is set), sleeping
// targetChunkSize/rate/speed between ticks.
func (d *Dispatcher) pace(ctx context.Context) {
	defer d.wg.Done()
	tick := time.Duration(float64(d.targetChunkSize) / float64(d.rate) / d.speed * float64(time.Second))
	if tick <= 0 {
		tick = 20 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if out := d.nextFrame(); out != nil {
				d.Publish(out)
			}
		}
	}
}

// nextFrame advances dispatch state by one chunk and returns the frame to
// publish, or nil if there is nothing to dispatch and silence fill is off.
func (d *Dispatcher) nextFrame() iu.Unit {
	d.mu.Lock()
	defer d.mu.Unlock()

	frameBytes := d.targetChunkSize * d.sampleSize * d.channels
	if d.current == nil {
		if !d.silenceFill {
			return nil
		}
		return &iu.DispatchedAudio{
			Header:        iu.NewHeader(d.ID(), d.NextIUID(), nil, nil),
			RawAudio:      generateSilence(frameBytes),
			Rate:          d.rate,
			SampleSize:    d.sampleSize,
			Channels:      d.channels,
			Completion:    0,
			IsDispatching: false,
		}
	}

	total := len(d.current.RawAudio)
	nFrames := total / (d.sampleSize * d.channels)
	start := d.pos
	end := start + frameBytes
	var chunk []byte
	if end >= total {
		chunk = make([]byte, frameBytes)
		copy(chunk, d.current.RawAudio[start:])
	} else {
		chunk = d.current.RawAudio[start:end]
	}

	samplesDone := (start + frameBytes) / (d.sampleSize * d.channels)
	completion := 1.0
	if nFrames > 0 {
		completion = math.Min(1, float64(samplesDone)/float64(nFrames))
	}

	out := &iu.DispatchedAudio{
		Header:        iu.NewHeader(d.ID(), d.NextIUID(), d.current, nil),
		RawAudio:      chunk,
		Rate:          d.rate,
		SampleSize:    d.sampleSize,
		Channels:      d.channels,
		Completion:    completion,
		IsDispatching: true,
	}

	if end >= total {
		d.current = nil
		d.pos = 0
	} else {
		d.pos = end
	}
	return out
}

// generateSilence returns n zero bytes of PCM silence.
func generateSilence(n int) []byte { return make([]byte, n) }
