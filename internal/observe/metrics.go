// Package observe provides application-wide observability primitives for
// retico: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all retico metrics.
const meterName = "github.com/retico-go/retico"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// DispatcherTickDuration tracks how long one audio dispatcher tick
	// (chunk-and-send or silence-fill) takes to process.
	DispatcherTickDuration metric.Float64Histogram

	// TurnTakingDecisionDuration tracks latency of the turn-taking scheduler's
	// handleInput/handleUpdate decision path.
	TurnTakingDecisionDuration metric.Float64Histogram

	// NetworkDelay tracks the delay a network degrader module injected before
	// forwarding an IU.
	NetworkDelay metric.Float64Histogram

	// --- Counters ---

	// IUsPublished counts IUs published by a module. Use with attributes:
	//   attribute.String("module", ...), attribute.String("kind", ...)
	IUsPublished metric.Int64Counter

	// DialogueActsEmitted counts dialogue acts emitted by the turn-taking
	// manager or a trigger. Use with attribute:
	//   attribute.String("act", ...)
	DialogueActsEmitted metric.Int64Counter

	// PacketsLost counts IUs a network degrader module marked as lost (audio
	// zeroed). Use with
	// attribute: attribute.String("module", ...)
	PacketsLost metric.Int64Counter

	// --- Error counters ---

	// BackendErrors counts backend (ASR/TTS/Translator/platform) errors.
	// Use with attributes: attribute.String("backend", ...), attribute.String("kind", ...)
	BackendErrors metric.Int64Counter

	// --- Gauges ---

	// LiveModules tracks the number of currently running pipeline modules.
	LiveModules metric.Int64UpDownCounter

	// OpenQueues tracks the number of currently open per-subscriber IU
	// queues across the module graph.
	OpenQueues metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for real-time incremental-processing latencies.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.DispatcherTickDuration, err = m.Float64Histogram("retico.dispatcher.tick.duration",
		metric.WithDescription("Latency of one audio dispatcher tick."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnTakingDecisionDuration, err = m.Float64Histogram("retico.turntaking.decision.duration",
		metric.WithDescription("Latency of a turn-taking scheduler decision."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.NetworkDelay, err = m.Float64Histogram("retico.network.delay",
		metric.WithDescription("Delay injected by a network degrader module."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.IUsPublished, err = m.Int64Counter("retico.ius.published",
		metric.WithDescription("Total IUs published by module and kind."),
	); err != nil {
		return nil, err
	}
	if met.DialogueActsEmitted, err = m.Int64Counter("retico.dialogue_acts.emitted",
		metric.WithDescription("Total dialogue acts emitted, by act label."),
	); err != nil {
		return nil, err
	}
	if met.PacketsLost, err = m.Int64Counter("retico.packets.lost",
		metric.WithDescription("Total IUs marked as lost (audio zeroed) by a network degrader module."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.BackendErrors, err = m.Int64Counter("retico.backend.errors",
		metric.WithDescription("Total backend errors by backend name and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.LiveModules, err = m.Int64UpDownCounter("retico.modules.live",
		metric.WithDescription("Number of currently running pipeline modules."),
	); err != nil {
		return nil, err
	}
	if met.OpenQueues, err = m.Int64UpDownCounter("retico.queues.open",
		metric.WithDescription("Number of currently open per-subscriber IU queues."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("retico.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordIUPublished is a convenience method that records an IU-published
// counter increment with the standard attribute set.
func (m *Metrics) RecordIUPublished(ctx context.Context, module, kind string) {
	m.IUsPublished.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("module", module),
			attribute.String("kind", kind),
		),
	)
}

// RecordDialogueAct is a convenience method that records a dialogue-act
// counter increment.
func (m *Metrics) RecordDialogueAct(ctx context.Context, act string) {
	m.DialogueActsEmitted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("act", act)),
	)
}

// RecordPacketLost is a convenience method that records a lost-packet counter
// increment.
func (m *Metrics) RecordPacketLost(ctx context.Context, module string) {
	m.PacketsLost.Add(ctx, 1,
		metric.WithAttributes(attribute.String("module", module)),
	)
}

// RecordBackendError is a convenience method that records a backend error
// counter increment.
func (m *Metrics) RecordBackendError(ctx context.Context, backendName, kind string) {
	m.BackendErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("backend", backendName),
			attribute.String("kind", kind),
		),
	)
}
