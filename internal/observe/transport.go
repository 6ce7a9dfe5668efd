package observe

import (
	"net/http"
	"strconv"
)

// RequestClassifier names the operation an outgoing provider request performs
// (e.g. "submit", "await", "fetch").
type RequestClassifier func(*http.Request) string

// providerTransport counts every provider round trip on
// creatorgw.provider.requests.
type providerTransport struct {
	base     http.RoundTripper
	provider string
	classify RequestClassifier
	metrics  *Metrics
}

// NewProviderTransport wraps base so every request is recorded with
// [Metrics.RecordProviderRequest]. The status attribute is the HTTP status
// code, or "error" when the round trip itself failed. A nil base uses
// [http.DefaultTransport]; a nil classify labels every request with its
// method.
func NewProviderTransport(base http.RoundTripper, provider string, m *Metrics, classify RequestClassifier) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if m == nil {
		m = DefaultMetrics()
	}
	if classify == nil {
		classify = func(r *http.Request) string { return r.Method }
	}
	return &providerTransport{base: base, provider: provider, classify: classify, metrics: m}
}

func (t *providerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	kind := t.classify(req)
	resp, err := t.base.RoundTrip(req)
	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	t.metrics.RecordProviderRequest(req.Context(), t.provider, kind, status)
	return resp, err
}
