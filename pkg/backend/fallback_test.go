package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/retico-go/retico/internal/resilience"
)

var errFallbackTest = errors.New("backend_test: synthetic failure")

type fakeASR struct {
	text string
	err  error
}

func (f fakeASR) Recognize(context.Context, []byte, int, int) (string, float64, float64, bool, error) {
	if f.err != nil {
		return "", 0, 0, false, f.err
	}
	return f.text, 1.0, 1.0, true, nil
}

func TestASRFallback_PrimaryFailsFallbackSucceeds(t *testing.T) {
	f := NewASRFallback(fakeASR{err: errFallbackTest}, "primary", resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("secondary", fakeASR{text: "hello"})

	text, _, _, final, err := f.Recognize(context.Background(), nil, 16000, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello" || !final {
		t.Fatalf("got (%q, final=%v), want (hello, final=true)", text, final)
	}
}

func TestASRFallback_AllFail(t *testing.T) {
	f := NewASRFallback(fakeASR{err: errFallbackTest}, "primary", resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("secondary", fakeASR{err: errFallbackTest})

	_, _, _, _, err := f.Recognize(context.Background(), nil, 16000, 1)
	if !errors.Is(err, resilience.ErrAllFailed) {
		t.Fatalf("err = %v, want wrapping resilience.ErrAllFailed", err)
	}
}

type fakeTranslator struct {
	out string
	err error
}

func (f fakeTranslator) Translate(context.Context, string, string, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

func TestTranslatorFallback_PrimaryFailsFallbackSucceeds(t *testing.T) {
	f := NewTranslatorFallback(fakeTranslator{err: errFallbackTest}, "primary", resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("secondary", fakeTranslator{out: "bonjour"})

	out, err := f.Translate(context.Background(), "hello", "en", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "bonjour" {
		t.Fatalf("out = %q, want bonjour", out)
	}
}
