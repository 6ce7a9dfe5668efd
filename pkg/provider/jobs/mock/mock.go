// Package mock provides a test double for the jobs.Provider interface.
//
// Outcomes are scripted per job type: Results holds the records a job type
// produces, States overrides the terminal state (default succeeded). Every
// Submit is recorded so tests can assert on the payload and envelope a
// command was translated into.
//
// Example:
//
//	p := &mock.Provider{
//	    Results: map[string]jobs.ResultSet{
//	        "profile-scraper": {json.RawMessage(`{"username":"a","followersCount":1200}`)},
//	    },
//	}
//	job, _ := p.Submit(ctx, "profile-scraper", input, env)
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/MrWong99/creatorgw/pkg/provider/jobs"
)

// SubmitCall records a single invocation of Submit.
type SubmitCall struct {
	// JobType is the job type passed to Submit.
	JobType string
	// Input is the payload passed to Submit.
	Input any
	// Envelope is the resource envelope passed to Submit.
	Envelope jobs.Envelope
}

// Provider is a mock implementation of jobs.Provider. It is safe for
// concurrent use.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Results maps a job type to the records Fetch returns for it. A job type
	// without an entry yields an empty ResultSet.
	Results map[string]jobs.ResultSet

	// States maps a job type to the terminal state Await reports. Job types
	// without an entry succeed.
	States map[string]jobs.State

	// Messages maps a job type to the status message Await reports.
	Messages map[string]string

	// SubmitErr, if non-nil, is returned from every Submit.
	SubmitErr error

	// AwaitErr, if non-nil, is returned from every Await.
	AwaitErr error

	// FetchErr, if non-nil, is returned from every Fetch.
	FetchErr error

	// AwaitHook, if set, is called at the start of every Await. Tests use it
	// to hold jobs in flight.
	AwaitHook func(ctx context.Context, job *jobs.Job)

	// --- Call records ---

	// SubmitCalls records every call to Submit in order.
	SubmitCalls []SubmitCall

	// AwaitCalls counts calls to Await.
	AwaitCalls int

	// FetchCalls counts calls to Fetch.
	FetchCalls int
}

// Submit records the call and returns a job with a random ID, or SubmitErr.
func (p *Provider) Submit(_ context.Context, jobType string, input any, env jobs.Envelope) (*jobs.Job, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SubmitCalls = append(p.SubmitCalls, SubmitCall{JobType: jobType, Input: input, Envelope: env})
	if p.SubmitErr != nil {
		return nil, p.SubmitErr
	}
	id := uuid.NewString()
	return &jobs.Job{
		ID:        id,
		JobType:   jobType,
		Input:     input,
		Envelope:  env,
		DatasetID: "ds-" + id,
	}, nil
}

// Await runs AwaitHook, then returns the scripted state for the job's type.
func (p *Provider) Await(ctx context.Context, job *jobs.Job) (jobs.State, string, error) {
	p.mu.Lock()
	hook := p.AwaitHook
	p.AwaitCalls++
	p.mu.Unlock()

	if hook != nil {
		hook(ctx, job)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.AwaitErr != nil {
		return "", "", p.AwaitErr
	}
	state, ok := p.States[job.JobType]
	if !ok {
		state = jobs.StateSucceeded
	}
	return state, p.Messages[job.JobType], nil
}

// Fetch returns a copy of the scripted records for the job's type.
func (p *Provider) Fetch(_ context.Context, job *jobs.Job) (jobs.ResultSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FetchCalls++
	if p.FetchErr != nil {
		return nil, p.FetchErr
	}
	if job == nil {
		return nil, fmt.Errorf("mock: fetch called with nil job")
	}
	src := p.Results[job.JobType]
	out := make(jobs.ResultSet, len(src))
	copy(out, src)
	return out, nil
}

// Submits returns a copy of all recorded Submit calls. Thread-safe.
func (p *Provider) Submits() []SubmitCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SubmitCall, len(p.SubmitCalls))
	copy(out, p.SubmitCalls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SubmitCalls = nil
	p.AwaitCalls = 0
	p.FetchCalls = 0
}

// Ensure Provider implements jobs.Provider at compile time.
var _ jobs.Provider = (*Provider)(nil)
