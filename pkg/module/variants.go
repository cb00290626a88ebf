package module

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/queue"
)

// Processor is implemented by modules that consume one IU and optionally
// produce one in return. A nil return value (with a nil error) means the
// input was consumed but nothing is emitted.
type Processor interface {
	ProcessIU(u iu.Unit) (iu.Unit, error)
}

// Consumer is implemented by modules with no output buffer.
type Consumer interface {
	ProcessIU(u iu.Unit) error
}

// ProduceFunc is implemented by modules with no input buffer. It should
// block until either a value is produced (emit it and return nil) or ctx is
// done (return ctx.Err()). Run calls ProduceLoop repeatedly until it returns
// a non-nil error.
type ProduceFunc interface {
	ProduceLoop(ctx context.Context, emit func(iu.Unit)) error
}

// TriggerFunc is implemented by modules that sit idle until externally
// triggered.
type TriggerFunc interface {
	OnTrigger(data any) (iu.Unit, error)
}

// snapshotLeftBufs returns a copy of b's current left buffers under lock.
func (b *Base) snapshotLeftBufs() []*queue.Queue[iu.Unit] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*queue.Queue[iu.Unit](nil), b.leftBufs...)
}

// General is a module that both consumes and produces IUs, draining every
// subscribed left buffer concurrently and forwarding each result to all
// subscribers.
type General struct {
	*Base
	proc Processor

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewGeneral constructs a General module over proc.
func NewGeneral(base *Base, proc Processor) *General {
	return &General{Base: base, proc: proc}
}

// Run starts one draining goroutine per subscribed left buffer. Each
// goroutine independently pulls IUs, checks the declared input kind, calls
// ProcessIU, and publishes any result — matching the per-producer worker
// threads the original module loop spawns.
func (g *General) Run(ctx context.Context) error {
	if g.Running() {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.running.Store(true)

	for _, lb := range g.snapshotLeftBufs() {
		g.wg.Add(1)
		go g.drain(runCtx, lb)
	}
	return nil
}

func (g *General) drain(ctx context.Context, lb *queue.Queue[iu.Unit]) {
	defer g.wg.Done()
	for {
		in, err := lb.Get()
		if err != nil {
			if !errors.Is(err, queue.ErrClosed) {
				slog.Error("module: left buffer get failed", "module", g.ID(), "error", err)
			}
			return
		}
		if !g.acceptsKind(in.Kind()) {
			slog.Warn("module: stopping on invalid IU kind", "module", g.ID(), "kind", in.Kind())
			return
		}
		out, err := g.proc.ProcessIU(in)
		if err != nil {
			slog.Error("module: ProcessIU failed", "module", g.ID(), "error", err)
			continue
		}
		g.publish(out)
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// Stop cancels the run context, closes all buffers (unblocking any drain
// goroutine parked in Get), and waits for them to exit.
func (g *General) Stop() error {
	if !g.Running() {
		return nil
	}
	g.running.Store(false)
	if g.cancel != nil {
		g.cancel()
	}
	g.Close()
	g.wg.Wait()
	return nil
}

// Producing is a module with no input buffer that emits IUs from its own
// ProduceLoop, e.g. a microphone or a scripted agenda.
type Producing struct {
	*Base
	produce ProduceFunc

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewProducing constructs a Producing module over produce.
func NewProducing(base *Base, produce ProduceFunc) *Producing {
	return &Producing{Base: base, produce: produce}
}

// Run starts the single producing goroutine.
func (p *Producing) Run(ctx context.Context) error {
	if p.Running() {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running.Store(true)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			if err := p.produce.ProduceLoop(runCtx, p.publish); err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Error("module: producer stopped", "module", p.ID(), "error", err)
				}
				return
			}
		}
	}()
	return nil
}

// Stop cancels the run context and waits for the producing goroutine to
// exit, then closes all buffers.
func (p *Producing) Stop() error {
	if !p.Running() {
		return nil
	}
	p.running.Store(false)
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.Close()
	return nil
}

// Consuming is a module with no output buffer: recorders, speakers, and
// other terminal sinks.
type Consuming struct {
	*Base
	sink Consumer

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewConsuming constructs a Consuming module over sink.
func NewConsuming(base *Base, sink Consumer) *Consuming {
	return &Consuming{Base: base, sink: sink}
}

// Run starts one draining goroutine per subscribed left buffer.
func (c *Consuming) Run(ctx context.Context) error {
	if c.Running() {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running.Store(true)

	for _, lb := range c.snapshotLeftBufs() {
		c.wg.Add(1)
		go c.drain(runCtx, lb)
	}
	return nil
}

func (c *Consuming) drain(ctx context.Context, lb *queue.Queue[iu.Unit]) {
	defer c.wg.Done()
	for {
		in, err := lb.Get()
		if err != nil {
			if !errors.Is(err, queue.ErrClosed) {
				slog.Error("module: left buffer get failed", "module", c.ID(), "error", err)
			}
			return
		}
		if !c.acceptsKind(in.Kind()) {
			slog.Warn("module: stopping on invalid IU kind", "module", c.ID(), "kind", in.Kind())
			return
		}
		if err := c.sink.ProcessIU(in); err != nil {
			slog.Error("module: ProcessIU failed", "module", c.ID(), "error", err)
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// Stop cancels the run context, waits for drain goroutines to exit, and
// closes all buffers.
func (c *Consuming) Stop() error {
	if !c.Running() {
		return nil
	}
	c.running.Store(false)
	if c.cancel != nil {
		c.cancel()
	}
	c.Close()
	c.wg.Wait()
	return nil
}

// Trigger is a module with neither continuous input nor output scheduling:
// it sits idle until Fire is called, which synchronously produces (and
// publishes) one IU.
type Trigger struct {
	*Base
	impl TriggerFunc
}

// NewTrigger constructs a Trigger module over impl.
func NewTrigger(base *Base, impl TriggerFunc) *Trigger {
	return &Trigger{Base: base, impl: impl}
}

// Run marks the module active; Trigger does nothing else until externally
// called.
func (t *Trigger) Run(ctx context.Context) error {
	t.running.Store(true)
	return nil
}

// Stop closes all buffers and marks the module inactive.
func (t *Trigger) Stop() error {
	t.running.Store(false)
	t.Close()
	return nil
}

// Fire invokes the module's trigger logic with data and publishes the
// resulting IU, if any, to every subscriber.
func (t *Trigger) Fire(data any) error {
	if !t.Running() {
		return ErrNotRunning
	}
	out, err := t.impl.OnTrigger(data)
	if err != nil {
		return err
	}
	t.publish(out)
	return nil
}
