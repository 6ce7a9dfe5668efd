package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/creatorgw/pkg/provider/jobs"
)

// guardedProvider gates new jobs on a [Breaker] and reports every provider
// call's outcome to it.
type guardedProvider struct {
	inner   jobs.Provider
	breaker *Breaker
}

var _ jobs.Provider = (*guardedProvider)(nil)

// GuardProvider wraps p so that Submit passes through b. A Submit rejected by
// an open breaker fails with an error wrapping [ErrCircuitOpen].
//
// Await and Fetch belong to a job that is already running remotely, so they
// always reach p; their transport failures still count towards opening the
// breaker. Jobs that reach a failed, timed-out or aborted state are not
// provider failures and do not trip it.
func GuardProvider(p jobs.Provider, b *Breaker) jobs.Provider {
	return &guardedProvider{inner: p, breaker: b}
}

func (g *guardedProvider) Submit(ctx context.Context, jobType string, input any, env jobs.Envelope) (*jobs.Job, error) {
	var job *jobs.Job
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		job, err = g.inner.Submit(ctx, jobType, input, env)
		return err
	})
	if err != nil {
		return nil, g.wrap(err)
	}
	return job, nil
}

func (g *guardedProvider) Await(ctx context.Context, job *jobs.Job) (jobs.State, string, error) {
	state, msg, err := g.inner.Await(ctx, job)
	g.breaker.Record(ctx, err)
	return state, msg, err
}

func (g *guardedProvider) Fetch(ctx context.Context, job *jobs.Job) (jobs.ResultSet, error) {
	rs, err := g.inner.Fetch(ctx, job)
	g.breaker.Record(ctx, err)
	return rs, err
}

func (g *guardedProvider) wrap(err error) error {
	if errors.Is(err, ErrCircuitOpen) {
		return fmt.Errorf("job provider %s is unavailable after repeated failures: %w", g.breaker.name, err)
	}
	return err
}
