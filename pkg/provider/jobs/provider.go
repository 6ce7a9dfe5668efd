// Package jobs defines the Provider interface for remote computation backends.
//
// A jobs provider runs opaque units of work ("jobs") on behalf of the gateway:
// profile scrapers, authenticity auditors, sponsorship miners and so on. The
// gateway never looks inside a job; it only submits an input payload with a
// fixed resource [Envelope], waits for the job to reach a terminal [State],
// and fetches the records the job produced.
//
// Implementations must be safe for concurrent use.
package jobs

import (
	"context"
	"encoding/json"
)

// Envelope bounds the resources a remote job may consume. Envelopes are fixed
// per tool and are never caller-configurable.
type Envelope struct {
	// MemoryMB is the memory ceiling for the job in megabytes.
	MemoryMB int

	// TimeoutSeconds is the wall-clock ceiling for the job. The provider is
	// responsible for terminating the job once it is exceeded.
	TimeoutSeconds int
}

// State is the lifecycle state of a remote job as reported by the provider.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed-out"
	StateAborted   State = "aborted"
)

// Terminal reports whether s is a final state from which the job will not
// move again.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut, StateAborted:
		return true
	}
	return false
}

// Job is a handle to a submitted unit of remote work.
type Job struct {
	// ID is the provider-assigned identifier of the run.
	ID string

	// JobType identifies which remote job definition was started.
	JobType string

	// Input is the payload the job was started with.
	Input any

	// Envelope is the resource ceiling the job was started with.
	Envelope Envelope

	// DatasetID locates the job's output records. Providers that address
	// results by job ID may leave it empty.
	DatasetID string
}

// ResultSet is the ordered sequence of opaque records produced by a completed
// job. Callers must treat it as read-only.
type ResultSet []json.RawMessage

// Provider is the abstraction over a remote job backend.
type Provider interface {
	// Submit starts a job of the given type with input as its payload and env
	// as its resource ceiling. It returns as soon as the provider has accepted
	// the job; the job is typically still queued.
	Submit(ctx context.Context, jobType string, input any, env Envelope) (*Job, error)

	// Await blocks until the provider reports a terminal state for job and
	// returns it together with the provider's status message, if any.
	// A non-nil error is returned only when the state could not be obtained
	// (transport failure, malformed response, ctx cancelled).
	Await(ctx context.Context, job *Job) (State, string, error)

	// Fetch returns every record produced by a succeeded job.
	Fetch(ctx context.Context, job *Job) (ResultSet, error)
}
