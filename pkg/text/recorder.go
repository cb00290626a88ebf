// Package text implements the tab-separated text recorder named in the
// spec, grounded on original_source/retico/core/text/io.py's
// TextRecorderModule — the teacher repo has no text-domain analogue, so
// the line format is built directly from spec.md §6 rather than adapted
// from teacher code; the surrounding Consuming-module wiring and
// fmt.Errorf-wrapped file I/O follow pkg/audio's Recorder.
package text

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/retico-go/retico/pkg/iu"
)

// Recorder writes one tab-separated line per consumed Text, GeneratedText,
// or SpeechRecognition IU:
//
//	creator_of_grounded_in \t created_at_unix_ms \t text [\t dispatch] [\t predictions \t stability \t confidence \t final]
type Recorder struct {
	mu sync.Mutex
	w  *bufio.Writer
	f  *os.File
}

// NewRecorder creates (or truncates) path and returns a Recorder writing to
// it. Close must be called when recording ends.
func NewRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("text recorder: create %q: %w", path, err)
	}
	return &Recorder{w: bufio.NewWriter(f), f: f}, nil
}

// ProcessIU implements module.Consumer.
func (r *Recorder) ProcessIU(in iu.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	creatorOfGroundedIn := iu.ModuleID("")
	if g := in.Header().GroundedIn; g != nil {
		creatorOfGroundedIn = g.Header().Creator
	}

	fields := []string{
		string(creatorOfGroundedIn),
		strconv.FormatInt(in.Header().CreatedAt.UnixMilli(), 10),
	}

	switch v := in.(type) {
	case *iu.Text:
		fields = append(fields, v.Text)
	case *iu.GeneratedText:
		fields = append(fields, v.Text, strconv.FormatBool(v.Dispatch))
	case *iu.SpeechRecognition:
		fields = append(fields, v.Text,
			strings.Join(v.Predictions, ","),
			strconv.FormatFloat(v.Stability, 'f', -1, 64),
			strconv.FormatFloat(v.Confidence, 'f', -1, 64),
			strconv.FormatBool(v.Final),
		)
	default:
		return fmt.Errorf("text recorder: unsupported IU kind %v", in.Kind())
	}

	if _, err := io.WriteString(r.w, strings.Join(fields, "\t")+"\n"); err != nil {
		return fmt.Errorf("text recorder: write: %w", err)
	}
	return nil
}

// Close flushes buffered output and closes the underlying file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("text recorder: flush: %w", err)
	}
	return r.f.Close()
}
