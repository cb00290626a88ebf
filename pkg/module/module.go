// Package module implements the worker-loop framework shared by every
// pipeline stage: the common buffer/event machinery in [Base], and the four
// worker-loop shapes ([General], [Producing], [Consuming], [Trigger]) built
// on top of it.
//
// A module owns one left buffer per upstream subscription (an incoming
// [queue.Queue]) and one right buffer per downstream subscriber (an outgoing
// [queue.Queue]); [Base.Subscribe] wires a producer's right buffer in as one
// of the consumer's left buffers. IUs are never broadcast through a single
// shared channel — each subscriber gets its own queue so a slow consumer
// cannot stall the others.
package module

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/queue"
)

// Sentinel errors returned by module-framework operations.
var (
	// ErrInvalidIUKind is reported when a module receives an IU kind outside
	// its declared input kinds. The owning worker loop logs and stops rather
	// than propagating the value further.
	ErrInvalidIUKind = errors.New("module: invalid IU kind")

	// ErrQueueClosed is returned by operations attempted after a module's
	// buffers have been closed by Stop.
	ErrQueueClosed = errors.New("module: queue closed")

	// ErrNotRunning is returned by Trigger on a module that has not been
	// started.
	ErrNotRunning = errors.New("module: not running")
)

// Module is the capability surface every pipeline stage implements.
type Module interface {
	ID() iu.ModuleID
	InputKinds() []iu.Kind
	OutputKinds() []iu.Kind
}

// eventCallback is a registered handler for a named event.
type eventCallback struct {
	name string
	fn   func(data any)
}

// Base provides the buffer, subscription, event, and lifecycle plumbing
// shared by all module variants. Concrete modules embed Base and supply
// their own worker-loop goroutine (via [General], [Producing], [Consuming],
// or [Trigger]) plus a ProcessIU method.
type Base struct {
	id          iu.ModuleID
	inputKinds  []iu.Kind
	outputKinds []iu.Kind

	mu         sync.Mutex
	leftBufs   []*queue.Queue[iu.Unit]
	rightBufs  []*queue.Queue[iu.Unit]
	subs       []*Base // modules subscribed to this one's output, for fan-out Put
	producers  []*Base // modules this one is subscribed to, one per left buffer
	events     []eventCallback
	sem        *semaphore.Weighted

	classTag string
	initArgs map[string]any
	meta     map[string]any

	counter atomic.Uint64
	running atomic.Bool
}

// MaxEventWorkers bounds how many event callbacks of one module may run
// concurrently (each Base has its own limit), per spec's fire-and-forget-but-bounded event bus.
const MaxEventWorkers = 32

// NewBase constructs a Base for a module identified by id, accepting input
// kinds and producing output kinds.
func NewBase(id iu.ModuleID, input, output []iu.Kind) *Base {
	return &Base{
		id:          id,
		inputKinds:  input,
		outputKinds: output,
		sem:         semaphore.NewWeighted(MaxEventWorkers),
	}
}

func (b *Base) ID() iu.ModuleID        { return b.id }
func (b *Base) InputKinds() []iu.Kind  { return b.inputKinds }
func (b *Base) OutputKinds() []iu.Kind { return b.outputKinds }

// acceptsKind reports whether k is among the module's declared input kinds.
func (b *Base) acceptsKind(k iu.Kind) bool {
	for _, want := range b.inputKinds {
		if want == k {
			return true
		}
	}
	return false
}

// NextIUID returns a process-unique, monotonically increasing id for this
// module's next produced IU.
func (b *Base) NextIUID() uint64 { return b.counter.Add(1) }

// Subscribe wires producer's output into this module as a new left buffer.
// A dedicated queue is created per subscription so producer fan-out never
// lets one slow consumer block the others.
func (b *Base) Subscribe(producer *Base) {
	q := queue.New[iu.Unit](0)
	producer.mu.Lock()
	producer.rightBufs = append(producer.rightBufs, q)
	producer.subs = append(producer.subs, b)
	producer.mu.Unlock()

	b.mu.Lock()
	b.leftBufs = append(b.leftBufs, q)
	b.producers = append(b.producers, producer)
	b.mu.Unlock()
}

// Subs returns the modules currently subscribed to this one's output, for
// graph-persistence BFS.
func (b *Base) Subs() []*Base {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Base(nil), b.subs...)
}

// Producers returns the modules this one is subscribed to, one per left
// buffer, for graph-persistence BFS.
func (b *Base) Producers() []*Base {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Base(nil), b.producers...)
}

// SetClassInfo records the registry class tag and constructor arguments
// this module was built from, so it can be re-created by pkg/graph's
// Registry on Load. Concrete module constructors that want to participate
// in graph persistence call this once after NewBase.
func (b *Base) SetClassInfo(tag string, args map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.classTag = tag
	b.initArgs = args
}

// ClassTag returns the registry class tag set via SetClassInfo, or "" if
// the module was never registered.
func (b *Base) ClassTag() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.classTag
}

// InitArgs returns the constructor arguments set via SetClassInfo.
func (b *Base) InitArgs() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initArgs
}

// SetMeta replaces this module's persisted metadata map (primitive values
// only, per the graph file's init_args/meta constraint).
func (b *Base) SetMeta(meta map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.meta = meta
}

// Meta returns this module's persisted metadata map.
func (b *Base) Meta() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.meta
}

// publish pushes out to every right buffer (one per subscriber) and marks out
// as processed by this module.
func (b *Base) publish(out iu.Unit) {
	if out == nil {
		return
	}
	out.Header().MarkProcessed(b.id)
	b.mu.Lock()
	bufs := append([]*queue.Queue[iu.Unit](nil), b.rightBufs...)
	b.mu.Unlock()
	for _, q := range bufs {
		_ = q.Put(out)
	}
}

// EventSubscribe registers fn to run when event name is emitted via
// EventCall on this module, or any event if name is "*". Callbacks are
// invoked on goroutines bounded by [MaxEventWorkers] across the whole
// module; EventCall never blocks on a slow callback for longer than it
// takes to acquire a pool slot.
func (b *Base) EventSubscribe(name string, fn func(data any)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, eventCallback{name: name, fn: fn})
}

// EventCall dispatches name to every subscriber registered for that name or
// for "*", each on its own goroutine, bounded by the module's event worker
// pool. EventCall does not wait for callbacks to complete.
func (b *Base) EventCall(ctx context.Context, name string, data any) {
	b.mu.Lock()
	cbs := append([]eventCallback(nil), b.events...)
	b.mu.Unlock()

	for _, cb := range cbs {
		if cb.name != name && cb.name != "*" {
			continue
		}
		if err := b.sem.Acquire(ctx, 1); err != nil {
			slog.Warn("module: event dispatch aborted", "module", b.id, "event", name, "error", err)
			return
		}
		go func(fn func(data any)) {
			defer b.sem.Release(1)
			fn(data)
		}(cb.fn)
	}
}

// Close closes every left and right buffer, unblocking any goroutine waiting
// in Get or Put. Concrete module Stop implementations call this after their
// worker loop has exited.
func (b *Base) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, q := range b.leftBufs {
		q.Close()
	}
	for _, q := range b.rightBufs {
		q.Close()
	}
}

// Running reports whether the module's worker loop is currently active.
func (b *Base) Running() bool { return b.running.Load() }

// Publish exposes publish to callers outside the package that implement a
// custom worker loop shape (e.g. the audio dispatcher, which both consumes
// Speech IUs and produces DispatchedAudio IUs on its own pacing timer rather
// than synchronously from ProcessIU).
func (b *Base) Publish(out iu.Unit) { b.publish(out) }

// AcceptsKind exposes acceptsKind to custom worker loop implementations.
func (b *Base) AcceptsKind(k iu.Kind) bool { return b.acceptsKind(k) }

// LeftBufs exposes snapshotLeftBufs to custom worker loop implementations.
func (b *Base) LeftBufs() []*queue.Queue[iu.Unit] { return b.snapshotLeftBufs() }
