package dialogue

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/retico-go/retico/pkg/iu"
)

// Recorder writes one tab-separated line per consumed DialogueAct or
// DispatchableAct IU:
//
//	"dialogue_act" \t creator_suffix \t elapsed_ms \t "-1" \t act[":"concept1,concept2,...] [\t dispatch]
//
// elapsed_ms is measured from the recording's start time, which is rewound
// to an IU's created_at if that IU arrives before the current start — the
// original's behaviour for out-of-order first arrivals.
type Recorder struct {
	mu    sync.Mutex
	w     *bufio.Writer
	f     *os.File
	start time.Time
}

// NewRecorder creates (or truncates) path and returns a Recorder whose
// start time is set to now; Close must be called when recording ends.
func NewRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("dialogue recorder: create %q: %w", path, err)
	}
	return &Recorder{w: bufio.NewWriter(f), f: f, start: time.Now()}, nil
}

// ProcessIU implements module.Consumer.
func (r *Recorder) ProcessIU(in iu.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	createdAt := in.Header().CreatedAt
	if createdAt.Before(r.start) {
		r.start = createdAt
	}
	elapsedMs := createdAt.Sub(r.start).Milliseconds()

	creatorSuffix := creatorSuffix(in.Header().Creator)

	var act string
	var concepts map[string]string
	var dispatch *bool

	switch v := in.(type) {
	case *iu.DispatchableAct:
		act, concepts = v.Act, v.Concepts
		d := v.Dispatch
		dispatch = &d
	case *iu.DialogueAct:
		act, concepts = v.Act, v.Concepts
	default:
		return fmt.Errorf("dialogue recorder: unsupported IU kind %v", in.Kind())
	}

	actField := act
	if len(concepts) > 0 {
		keys := make([]string, 0, len(concepts))
		for k := range concepts {
			keys = append(keys, k)
		}
		actField = act + ":" + strings.Join(keys, ",")
	}

	fields := []string{"dialogue_act", creatorSuffix, strconv.FormatInt(elapsedMs, 10), "-1", actField}
	if dispatch != nil {
		fields = append(fields, strconv.FormatBool(*dispatch))
	}

	if _, err := io.WriteString(r.w, strings.Join(fields, "\t")+"\n"); err != nil {
		return fmt.Errorf("dialogue recorder: write: %w", err)
	}
	return nil
}

// Close flushes buffered output and closes the underlying file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("dialogue recorder: flush: %w", err)
	}
	return r.f.Close()
}

// creatorSuffix mirrors the original's str(creator).split(" ")[-1]: the
// last whitespace-separated token of the creator's identity, used here
// directly since ModuleID carries no Python repr prefix to strip.
func creatorSuffix(id iu.ModuleID) string {
	parts := strings.Fields(string(id))
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
