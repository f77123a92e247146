// Package observe provides application-wide observability primitives for
// Podium: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exposed for
// scraping through the Prometheus exporter installed by [InitProvider]. A
// package-level default [Metrics] instance ([DefaultMetrics]) is provided for
// convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Podium metrics.
const meterName = "github.com/MrWong99/podium"

// Provider kinds used as the "kind" attribute.
const (
	KindSTT = "stt"
	KindLLM = "llm"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
type Metrics struct {
	// --- Latency histograms ---

	// STTDuration tracks transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks coaching-feedback generation latency.
	LLMDuration metric.Float64Histogram

	// AnalysisDuration tracks the full analyse-speech pipeline.
	AnalysisDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Attributes:
	//   provider, kind, status
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Attributes: provider, kind
	ProviderErrors metric.Int64Counter

	// Analyses counts completed speech analyses. Attributes:
	//   category, feedback_source
	Analyses metric.Int64Counter

	// Interruptions counts realtime coaching interruptions. Attribute: type
	Interruptions metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes. Attributes:
	//   provider, to
	BreakerTransitions metric.Int64Counter

	// --- Gauges ---

	// ActiveRooms tracks conversation rooms created and not yet ended.
	ActiveRooms metric.Int64UpDownCounter

	// ActiveStreams tracks open realtime analysis WebSocket streams.
	ActiveStreams metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	//   method, route, status
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Hosted
// transcription of a two-minute answer routinely takes several seconds.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	histogram := func(name, desc string) (metric.Float64Histogram, error) {
		return m.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		)
	}

	if met.STTDuration, err = histogram("podium.stt.duration",
		"Latency of speech-to-text transcription."); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = histogram("podium.llm.duration",
		"Latency of coaching feedback generation."); err != nil {
		return nil, err
	}
	if met.AnalysisDuration, err = histogram("podium.analysis.duration",
		"Latency of the full speech analysis pipeline."); err != nil {
		return nil, err
	}

	if met.ProviderRequests, err = m.Int64Counter("podium.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("podium.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.Analyses, err = m.Int64Counter("podium.analyses",
		metric.WithDescription("Completed speech analyses by category and feedback source."),
	); err != nil {
		return nil, err
	}
	if met.Interruptions, err = m.Int64Counter("podium.realtime.interruptions",
		metric.WithDescription("Realtime coaching interruptions by type."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("podium.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes by provider and target state."),
	); err != nil {
		return nil, err
	}

	if met.ActiveRooms, err = m.Int64UpDownCounter("podium.active_rooms",
		metric.WithDescription("Number of open conversation practice rooms."),
	); err != nil {
		return nil, err
	}
	if met.ActiveStreams, err = m.Int64UpDownCounter("podium.active_streams",
		metric.WithDescription("Number of open realtime analysis streams."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("podium.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails, which does not happen with the global provider.
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

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderCall records the outcome and latency of one provider call.
// The latency goes to STTDuration or LLMDuration depending on kind.
func (m *Metrics) RecordProviderCall(ctx context.Context, provider, kind string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		))
	}
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
		attribute.String("status", status),
	))

	attrs := metric.WithAttributes(attribute.String("provider", provider))
	switch kind {
	case KindSTT:
		m.STTDuration.Record(ctx, d.Seconds(), attrs)
	case KindLLM:
		m.LLMDuration.Record(ctx, d.Seconds(), attrs)
	}
}

// RecordAnalysis records one completed speech analysis.
func (m *Metrics) RecordAnalysis(ctx context.Context, category, feedbackSource string, d time.Duration) {
	m.Analyses.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("feedback_source", feedbackSource),
	))
	m.AnalysisDuration.Record(ctx, d.Seconds())
}

// RecordInterruption records one realtime coaching interruption.
func (m *Metrics) RecordInterruption(ctx context.Context, kind string) {
	m.Interruptions.Add(ctx, 1, metric.WithAttributes(attribute.String("type", kind)))
}

// RecordBreakerTransition records a circuit breaker state change. Its
// signature matches the breaker's OnStateChange hook after binding the
// state names.
func (m *Metrics) RecordBreakerTransition(provider, to string) {
	m.BreakerTransitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("to", to),
	))
}
