package dispatch

import (
	"fmt"

	"github.com/MrWong99/creatorgw/pkg/provider/jobs"
)

// NotFoundError reports that a lookup job finished successfully but produced
// no record for the requested identifier. It is informational: nothing went
// wrong, there is just nothing to price.
type NotFoundError struct {
	// Identifier is the username or handle that was looked up.
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no public profile found for %q", e.Identifier)
}

// ExternalJobError reports that the provider finished a job in a state other
// than succeeded.
type ExternalJobError struct {
	// JobType is the job definition that was run.
	JobType string

	// JobID is the provider-assigned run identifier.
	JobID string

	// State is the terminal state: failed, timed-out or aborted.
	State jobs.State

	// Reason is the provider-reported status message.
	Reason string
}

func (e *ExternalJobError) Error() string {
	var what string
	switch e.State {
	case jobs.StateTimedOut:
		what = "timed out"
	case jobs.StateAborted:
		what = "was aborted"
	default:
		what = "failed"
	}
	return fmt.Sprintf("job %s (run %s) %s: %s", e.JobType, e.JobID, what, e.Reason)
}

// TimedOut reports whether the job exceeded its resource envelope's timeout.
func (e *ExternalJobError) TimedOut() bool {
	return e.State == jobs.StateTimedOut
}
