package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"creatorgw.tool.duration", m.ToolDuration},
		{"creatorgw.job.duration", m.JobDuration},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 1.5)
		tc.h.Record(ctx, 42)
	}

	rm := collect(t, reader)

	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a histogram", tc.name)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("sample count = %d, want 2", got)
			}
		})
	}
}

// sumFor returns the value of the data point carrying attribute key=value.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not a sum", name)
	}
	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == key && kv.Value.AsString() == value {
				return dp.Value
			}
		}
	}
	t.Fatalf("metric %q: no data point with %s=%s", name, key, value)
	return 0
}

func TestCounterIncrement(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderRequest(ctx, "apify", "submit", "ok")
	m.RecordProviderRequest(ctx, "apify", "submit", "ok")
	m.RecordProviderRequest(ctx, "apify", "submit", "error")

	rm := collect(t, reader)
	if got := sumFor(t, rm, "creatorgw.provider.requests", "status", "ok"); got != 2 {
		t.Errorf("counter value = %d, want 2", got)
	}
	if got := sumFor(t, rm, "creatorgw.provider.requests", "status", "error"); got != 1 {
		t.Errorf("counter value = %d, want 1", got)
	}
}

func TestRecordToolCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordToolCall(ctx, "generate_rate_card", "ok", 2.1)
	m.RecordToolCall(ctx, "generate_rate_card", "not_found", 1.2)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "creatorgw.tool.calls", "status", "ok"); got != 1 {
		t.Errorf("ok calls = %d, want 1", got)
	}
	if got := sumFor(t, rm, "creatorgw.tool.calls", "status", "not_found"); got != 1 {
		t.Errorf("not_found calls = %d, want 1", got)
	}

	hist, ok := findMetric(rm, "creatorgw.tool.duration").Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("tool duration is not a histogram")
	}
	var total uint64
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	if total != 2 {
		t.Errorf("tool duration samples = %d, want 2", total)
	}
}

func TestRecordJob(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordJob(ctx, "apify~instagram-profile-scraper", "succeeded", 14)
	m.RecordJob(ctx, "apify~instagram-profile-scraper", "succeeded", 20)
	m.RecordJob(ctx, "apify~instagram-profile-scraper", "timed-out", 120)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "creatorgw.job.outcomes", "state", "succeeded"); got != 2 {
		t.Errorf("succeeded = %d, want 2", got)
	}
	if got := sumFor(t, rm, "creatorgw.job.outcomes", "state", "timed-out"); got != 1 {
		t.Errorf("timed-out = %d, want 1", got)
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordBreakerTransition(ctx, "apify", "open")
	m.RecordBreakerTransition(ctx, "apify", "half-open")
	m.RecordBreakerTransition(ctx, "apify", "open")

	rm := collect(t, reader)
	if got := sumFor(t, rm, "creatorgw.provider.breaker_transitions", "to", "open"); got != 2 {
		t.Errorf("open = %d, want 2", got)
	}
	if got := sumFor(t, rm, "creatorgw.provider.breaker_transitions", "to", "half-open"); got != 1 {
		t.Errorf("half-open = %d, want 1", got)
	}
}

func TestActiveToolCallsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	// UpDownCounters are additive: three calls start, one finishes.
	m.ActiveToolCalls.Add(ctx, 1)
	m.ActiveToolCalls.Add(ctx, 1)
	m.ActiveToolCalls.Add(ctx, 1)
	m.ActiveToolCalls.Add(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "creatorgw.active_tool_calls")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := sum.DataPoints[0].Value; got != 2 {
		t.Errorf("gauge value = %d, want 2", got)
	}
}

func TestHTTPRequestDuration(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.HTTPRequestDuration.Record(ctx, 0.05,
		metric.WithAttributes(
			attribute.String("method", "GET"),
			attribute.String("path", "/healthz"),
		),
	)

	rm := collect(t, reader)
	met := findMetric(rm, "creatorgw.http.request.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := hist.DataPoints[0].Count; got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	// DefaultMetrics uses the global OTel provider so we just check
	// that repeated calls return the same pointer.
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
