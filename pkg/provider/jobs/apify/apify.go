// Package apify provides a jobs.Provider backed by the Apify platform REST API
// (v2). Each job type is an Apify actor ID (e.g. "apify~instagram-profile-scraper");
// a job is an actor run and its records are the items of the run's default
// dataset.
//
// The three provider operations map onto three endpoints:
//
//   - Submit: POST /v2/acts/{actorId}/runs?memory=&timeout=
//   - Await:  GET  /v2/actor-runs/{runId}?waitForFinish=N (long-poll, repeated
//     until the run reaches a terminal status)
//   - Fetch:  GET  /v2/datasets/{datasetId}/items?format=json&clean=true
//
// Typical usage:
//
//	p, err := apify.New(token, apify.WithWaitForFinish(60*time.Second))
//	job, err := p.Submit(ctx, "apify~instagram-profile-scraper", input, env)
//	state, msg, err := p.Await(ctx, job)
//	records, err := p.Fetch(ctx, job)
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/creatorgw/pkg/provider/jobs"
)

// Compile-time interface assertion.
var _ jobs.Provider = (*Provider)(nil)

const (
	defaultBaseURL       = "https://api.apify.com"
	defaultWaitForFinish = 60 * time.Second
	defaultPollInterval  = time.Second
	defaultHTTPTimeout   = 90 * time.Second

	// maxErrorBody caps how much of an error response body is echoed back in
	// error messages.
	maxErrorBody = 512
)

// Option is a functional option for configuring the Apify Provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL. Defaults to https://api.apify.com.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the HTTP client used for all requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// WithWaitForFinish sets the server-side long-poll duration of each run status
// request. Apify caps this at 60 seconds.
func WithWaitForFinish(d time.Duration) Option {
	return func(p *Provider) {
		p.waitForFinish = d
	}
}

// WithPollInterval sets the pause between two status requests that both
// reported a non-terminal run.
func WithPollInterval(d time.Duration) Option {
	return func(p *Provider) {
		p.pollInterval = d
	}
}

// Provider implements jobs.Provider against the Apify REST API.
// It is safe for concurrent use; the only shared state is the HTTP client.
type Provider struct {
	token         string
	baseURL       string
	httpClient    *http.Client
	waitForFinish time.Duration
	pollInterval  time.Duration
}

// New creates a new Apify Provider authenticated with token. token must be
// non-empty.
func New(token string, opts ...Option) (*Provider, error) {
	if token == "" {
		return nil, errors.New("apify: token must not be empty")
	}
	p := &Provider{
		token:         token,
		baseURL:       defaultBaseURL,
		httpClient:    &http.Client{Timeout: defaultHTTPTimeout},
		waitForFinish: defaultWaitForFinish,
		pollInterval:  defaultPollInterval,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ---- wire types ----

// runEnvelope is the {"data": {...}} wrapper Apify puts around run objects.
type runEnvelope struct {
	Data runObject `json:"data"`
}

// runObject is the subset of the Apify run object the provider reads.
type runObject struct {
	ID               string `json:"id"`
	ActID            string `json:"actId"`
	Status           string `json:"status"`
	StatusMessage    string `json:"statusMessage"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

// apiError is the error body returned by the Apify API on non-2xx responses.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ---- jobs.Provider ----

// Submit starts an actor run. jobType is the actor ID; input is sent as the
// run's JSON input.
func (p *Provider) Submit(ctx context.Context, jobType string, input any, env jobs.Envelope) (*jobs.Job, error) {
	if jobType == "" {
		return nil, errors.New("apify: job type must not be empty")
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("apify: encode input for %s: %w", jobType, err)
	}

	q := url.Values{}
	if env.MemoryMB > 0 {
		q.Set("memory", strconv.Itoa(env.MemoryMB))
	}
	if env.TimeoutSeconds > 0 {
		q.Set("timeout", strconv.Itoa(env.TimeoutSeconds))
	}
	endpoint := p.baseURL + "/v2/acts/" + url.PathEscape(jobType) + "/runs"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var out runEnvelope
	if err := p.do(ctx, http.MethodPost, endpoint, body, &out); err != nil {
		return nil, fmt.Errorf("apify: start %s: %w", jobType, err)
	}
	if out.Data.ID == "" {
		return nil, fmt.Errorf("apify: start %s: response carried no run id", jobType)
	}

	return &jobs.Job{
		ID:        out.Data.ID,
		JobType:   jobType,
		Input:     input,
		Envelope:  env,
		DatasetID: out.Data.DefaultDatasetID,
	}, nil
}

// Await long-polls the run until Apify reports a terminal status. The run's
// dataset ID is refreshed on job from the final status response.
func (p *Provider) Await(ctx context.Context, job *jobs.Job) (jobs.State, string, error) {
	if job == nil || job.ID == "" {
		return "", "", errors.New("apify: await requires a submitted job")
	}

	wait := int(p.waitForFinish / time.Second)
	endpoint := p.baseURL + "/v2/actor-runs/" + url.PathEscape(job.ID) + "?waitForFinish=" + strconv.Itoa(wait)

	for {
		var out runEnvelope
		if err := p.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
			return "", "", fmt.Errorf("apify: poll run %s: %w", job.ID, err)
		}

		state := mapStatus(out.Data.Status)
		if state == "" {
			return "", "", fmt.Errorf("apify: run %s reported unknown status %q", job.ID, out.Data.Status)
		}
		if state.Terminal() {
			if out.Data.DefaultDatasetID != "" {
				job.DatasetID = out.Data.DefaultDatasetID
			}
			return state, out.Data.StatusMessage, nil
		}

		timer := time.NewTimer(p.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", "", fmt.Errorf("apify: await run %s: %w", job.ID, ctx.Err())
		case <-timer.C:
		}
	}
}

// Fetch downloads all items of the run's default dataset.
func (p *Provider) Fetch(ctx context.Context, job *jobs.Job) (jobs.ResultSet, error) {
	if job == nil || job.DatasetID == "" {
		return nil, errors.New("apify: fetch requires a job with a dataset id")
	}
	endpoint := p.baseURL + "/v2/datasets/" + url.PathEscape(job.DatasetID) + "/items?format=json&clean=true"

	var items []json.RawMessage
	if err := p.do(ctx, http.MethodGet, endpoint, nil, &items); err != nil {
		return nil, fmt.Errorf("apify: fetch dataset %s: %w", job.DatasetID, err)
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return jobs.ResultSet(items), nil
}

// ---- helpers ----

// do performs an authenticated JSON request and decodes a 2xx response body
// into out.
func (p *Provider) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Error.Message != "" {
			return fmt.Errorf("status %d: %s (%s)", resp.StatusCode, ae.Error.Message, ae.Error.Type)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// mapStatus converts an Apify run status to a jobs.State. Transitional
// "-ING" statuses map to running. Unknown statuses return "".
func mapStatus(status string) jobs.State {
	switch status {
	case "READY":
		return jobs.StateQueued
	case "RUNNING", "TIMING-OUT", "ABORTING":
		return jobs.StateRunning
	case "SUCCEEDED":
		return jobs.StateSucceeded
	case "FAILED":
		return jobs.StateFailed
	case "TIMED-OUT":
		return jobs.StateTimedOut
	case "ABORTED":
		return jobs.StateAborted
	}
	return ""
}

// RequestKind names the provider operation a request built by this package
// performs: "submit", "await", "fetch", or "other". It is meant for request
// metrics on a wrapping http.RoundTripper.
func RequestKind(r *http.Request) string {
	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.Contains(path, "/v2/acts/") && strings.HasSuffix(path, "/runs"):
		return "submit"
	case r.Method == http.MethodGet && strings.Contains(path, "/v2/actor-runs/"):
		return "await"
	case r.Method == http.MethodGet && strings.Contains(path, "/v2/datasets/"):
		return "fetch"
	}
	return "other"
}
