package backend

import (
	"errors"
	"log/slog"

	"github.com/retico-go/retico/pkg/iu"
)

// ErrBackendUnavailable is the sentinel wrapped by ASR/TTS/Translator backend
// errors. Per spec.md §7's BackendUnavailable error kind, the module that hit
// it records the failure in the emitted IU's meta and continues rather than
// tearing down the pipeline.
var ErrBackendUnavailable = errors.New("backend: unavailable")

// markBackendError logs the failure and stamps h so downstream consumers can
// detect and skip the degenerate IU built around it.
func markBackendError(h *iu.Header, backendName string, err error) {
	h.Revoked = true
	h.SetMeta("error", ErrBackendUnavailable)
	h.SetMeta("error_detail", err.Error())
	slog.Error("backend unavailable", "backend", backendName, "error", err)
}
