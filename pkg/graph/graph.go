// Package graph implements save/load of a running module graph to a framed
// binary ".rtc" file, grounded on original_source/retico/headless.py's
// save_configuration/load_configuration: a BFS over left/right buffers from
// seed modules collects every reachable module and producer→consumer
// connection, which the original pickles as a (modules, connections) tuple.
// Pickle has no idiomatic Go analogue, so this package frames the same
// logical tuple with encoding/binary (length prefix, version) wrapping an
// encoding/gob payload instead.
package graph

import (
	"bufio"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/module"
)

// Sentinel errors per the graph persistence error kinds.
var (
	// ErrUnknownModuleClass is returned when Load encounters a class tag
	// with no matching Registry entry.
	ErrUnknownModuleClass = errors.New("graph: unknown module class")

	// ErrMalformedGraph is returned when Load encounters a connection that
	// references an id not present among the loaded modules.
	ErrMalformedGraph = errors.New("graph: malformed graph")
)

const (
	magic          = "RTCG"
	formatVersion  = uint32(1)
)

// ModuleRecord is one module's persisted identity: the registry class tag
// it was constructed from, the primitive constructor arguments needed to
// reconstruct it, its graph-local id, and any primitive metadata.
type ModuleRecord struct {
	Class string
	Args  map[string]any
	ID    iu.ModuleID
	Meta  map[string]any
}

// Connection is one producer→consumer subscription.
type Connection struct {
	ConsumerID iu.ModuleID
	ProducerID iu.ModuleID
}

// Graph is the full logical content of a ".rtc" file.
type Graph struct {
	Modules     []ModuleRecord
	Connections []Connection
}

// Constructor builds a fresh module.Base from a class tag's saved args and
// id, ready to be wired via Subscribe.
type Constructor func(id iu.ModuleID, args map[string]any) (*module.Base, error)

// Registry maps class tags to Constructors, so Load can instantiate modules
// by name.
type Registry map[string]Constructor

// Save performs a BFS over left and right buffers starting from seeds,
// collecting every reachable module and every producer→consumer connection
// discovered through a producer's subscriber list, and writes the result to
// path as a framed binary blob.
func Save(path string, seeds []*module.Base) error {
	g := Collect(seeds)
	return write(path, g)
}

// Collect runs the reachability BFS and builds the logical Graph, exposed
// for alternative stores (e.g. pkg/graph/pgstore) that frame the same
// (modules, connections) tuple differently from Save's .rtc file.
func Collect(seeds []*module.Base) Graph {
	seen := make(map[*module.Base]bool)
	var order []*module.Base
	queue := append([]*module.Base(nil), seeds...)
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if b == nil || seen[b] {
			continue
		}
		seen[b] = true
		order = append(order, b)
		queue = append(queue, b.Producers()...)
		queue = append(queue, b.Subs()...)
	}

	var g Graph
	for _, b := range order {
		g.Modules = append(g.Modules, ModuleRecord{
			Class: b.ClassTag(),
			Args:  b.InitArgs(),
			ID:    b.ID(),
			Meta:  b.Meta(),
		})
		for _, sub := range b.Subs() {
			if !seen[sub] {
				continue
			}
			g.Connections = append(g.Connections, Connection{
				ConsumerID: sub.ID(),
				ProducerID: b.ID(),
			})
		}
	}
	return g
}

// write frames g as: 4-byte magic, 4-byte version, 8-byte payload length,
// gob-encoded payload.
func write(path string, g Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("graph: create %q: %w", path, err)
	}
	defer f.Close()

	buf := &countingBuffer{}
	if err := gob.NewEncoder(buf).Encode(g); err != nil {
		return fmt.Errorf("graph: encode: %w", err)
	}

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(magic); err != nil {
		return fmt.Errorf("graph: write magic: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, formatVersion); err != nil {
		return fmt.Errorf("graph: write version: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint64(len(buf.data))); err != nil {
		return fmt.Errorf("graph: write length: %w", err)
	}
	if _, err := w.Write(buf.data); err != nil {
		return fmt.Errorf("graph: write payload: %w", err)
	}
	return w.Flush()
}

// Load reads a ".rtc" file written by Save, instantiates each module from
// its class tag via reg, and wires every connection by calling Subscribe on
// the consumer with the producer. Returns the instantiated modules indexed
// by their saved id, plus the raw connection list.
func Load(path string, reg Registry) (map[iu.ModuleID]*module.Base, []Connection, error) {
	g, err := read(path)
	if err != nil {
		return nil, nil, err
	}

	modules := make(map[iu.ModuleID]*module.Base, len(g.Modules))
	for _, rec := range g.Modules {
		ctor, ok := reg[rec.Class]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownModuleClass, rec.Class)
		}
		b, err := ctor(rec.ID, rec.Args)
		if err != nil {
			return nil, nil, fmt.Errorf("graph: construct %q: %w", rec.Class, err)
		}
		b.SetClassInfo(rec.Class, rec.Args)
		b.SetMeta(rec.Meta)
		modules[rec.ID] = b
	}

	for _, c := range g.Connections {
		consumer, ok := modules[c.ConsumerID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: connection references unknown consumer %q", ErrMalformedGraph, c.ConsumerID)
		}
		producer, ok := modules[c.ProducerID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: connection references unknown producer %q", ErrMalformedGraph, c.ProducerID)
		}
		consumer.Subscribe(producer)
	}

	return modules, g.Connections, nil
}

func read(path string) (Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return Graph{}, fmt.Errorf("graph: open %q: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	gotMagic := make([]byte, len(magic))
	if _, err := io.ReadFull(r, gotMagic); err != nil {
		return Graph{}, fmt.Errorf("%w: read magic: %v", ErrMalformedGraph, err)
	}
	if string(gotMagic) != magic {
		return Graph{}, fmt.Errorf("%w: bad magic %q", ErrMalformedGraph, gotMagic)
	}

	var version uint32
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return Graph{}, fmt.Errorf("%w: read version: %v", ErrMalformedGraph, err)
	}
	if version != formatVersion {
		return Graph{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedGraph, version)
	}

	var length uint64
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return Graph{}, fmt.Errorf("%w: read length: %v", ErrMalformedGraph, err)
	}

	payload := io.LimitReader(r, int64(length))
	var g Graph
	if err := gob.NewDecoder(payload).Decode(&g); err != nil {
		return Graph{}, fmt.Errorf("%w: decode payload: %v", ErrMalformedGraph, err)
	}
	return g, nil
}

// countingBuffer is a minimal io.Writer that accumulates bytes, used so the
// gob payload's length is known before it's framed.
type countingBuffer struct {
	data []byte
}

func (b *countingBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}
