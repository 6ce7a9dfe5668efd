// Package observe provides application-wide observability primitives for
// creatorgw: OpenTelemetry metrics, distributed tracing, structured logging,
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

// meterName is the instrumentation scope name used for all creatorgw metrics.
const meterName = "github.com/MrWong99/creatorgw"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ToolDuration tracks end-to-end tool call latency, validation through
	// composition. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolDuration metric.Float64Histogram

	// JobDuration tracks remote job latency from submit to fetched results.
	// Use with attributes:
	//   attribute.String("job_type", ...), attribute.String("state", ...)
	JobDuration metric.Float64Histogram

	// --- Counters ---

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// JobOutcomes counts remote jobs by their terminal state. Use with attributes:
	//   attribute.String("job_type", ...), attribute.String("state", ...)
	JobOutcomes metric.Int64Counter

	// ProviderRequests counts job provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("to", ...)
	BreakerTransitions metric.Int64Counter

	// --- Gauges ---

	// ActiveToolCalls tracks the number of tool calls currently in flight.
	ActiveToolCalls metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Remote
// jobs run from seconds up to the largest envelope timeout of ten minutes.
var latencyBuckets = []float64{
	0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120, 300, 600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ToolDuration, err = m.Float64Histogram("creatorgw.tool.duration",
		metric.WithDescription("Latency of tool calls from validation to composed response."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.JobDuration, err = m.Float64Histogram("creatorgw.job.duration",
		metric.WithDescription("Latency of remote jobs from submission to fetched results."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ToolCalls, err = m.Int64Counter("creatorgw.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.JobOutcomes, err = m.Int64Counter("creatorgw.job.outcomes",
		metric.WithDescription("Total remote jobs by job type and terminal state."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("creatorgw.provider.requests",
		metric.WithDescription("Total job provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}

	if met.BreakerTransitions, err = m.Int64Counter("creatorgw.provider.breaker_transitions",
		metric.WithDescription("Total job provider circuit breaker state changes by target state."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveToolCalls, err = m.Int64UpDownCounter("creatorgw.active_tool_calls",
		metric.WithDescription("Number of tool calls currently in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("creatorgw.http.request.duration",
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

// RecordToolCall records a tool call counter increment and its latency with
// the standard attribute set.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	)
	m.ToolCalls.Add(ctx, 1, attrs)
	m.ToolDuration.Record(ctx, seconds, attrs)
}

// RecordJob records a job outcome counter increment and its latency with the
// standard attribute set.
func (m *Metrics) RecordJob(ctx context.Context, jobType, state string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("job_type", jobType),
		attribute.String("state", state),
	)
	m.JobOutcomes.Add(ctx, 1, attrs)
	m.JobDuration.Record(ctx, seconds, attrs)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordBreakerTransition records a circuit breaker moving to state to.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, provider, to string) {
	m.BreakerTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("to", to),
		),
	)
}
