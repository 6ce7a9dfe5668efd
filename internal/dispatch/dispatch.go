// Package dispatch turns validated commands into remote jobs.
//
// Each tool maps onto exactly one job definition through a static table of
// job type, payload projection and resource envelope. The table is resolved
// once in [New] (defaults overlaid with configured job-type overrides) and is
// immutable afterwards, so a [Dispatcher] is safe for concurrent use without
// locks.
//
// A dispatch is strictly sequential: submit, block until the provider
// reports a terminal state, then fetch the records. Nothing is retried.
// generate_rate_card is the one two-stage tool: it runs the profile job and,
// when a record comes back, prices it locally with the pricing model instead
// of running a second job.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/creatorgw/internal/catalogue"
	"github.com/MrWong99/creatorgw/internal/observe"
	"github.com/MrWong99/creatorgw/internal/pricing"
	"github.com/MrWong99/creatorgw/pkg/provider/jobs"
)

// Job outcome labels recorded for failures that never reach a terminal
// provider state.
const (
	outcomeSubmitError = "submit_error"
	outcomeAwaitError  = "await_error"
	outcomeFetchError  = "fetch_error"
)

// Dispatcher runs commands as remote jobs on a [jobs.Provider].
type Dispatcher struct {
	provider jobs.Provider
	routes   map[string]route
	metrics  *observe.Metrics
}

// Option configures a [Dispatcher].
type Option func(*Dispatcher)

// WithMetrics records job outcomes on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// New creates a Dispatcher. overrides replaces the default job type of the
// named tools; it may be nil.
func New(provider jobs.Provider, overrides map[string]string, opts ...Option) (*Dispatcher, error) {
	if provider == nil {
		return nil, fmt.Errorf("dispatch: provider must not be nil")
	}
	routes, err := buildRoutes(overrides)
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{provider: provider, routes: routes}
	for _, o := range opts {
		o(d)
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	return d, nil
}

// JobType returns the resolved job type for tool.
func (d *Dispatcher) JobType(tool string) (string, bool) {
	r, ok := d.routes[tool]
	return r.jobType, ok
}

// Dispatch runs cmd and returns the records its job produced.
//
// For [catalogue.RateCardRequest] the result set holds a single synthesized
// record, the JSON-encoded [pricing.RateCard]; an empty profile result yields
// *NotFoundError. A job that ends failed, timed-out or aborted yields
// *ExternalJobError. Any other error is a transport or provider failure.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd catalogue.Command) (jobs.ResultSet, error) {
	if rc, ok := cmd.(*catalogue.RateCardRequest); ok {
		return d.rateCard(ctx, rc)
	}
	return d.run(ctx, cmd)
}

// rateCard fetches the creator's profile and prices it.
func (d *Dispatcher) rateCard(ctx context.Context, req *catalogue.RateCardRequest) (jobs.ResultSet, error) {
	rs, err := d.run(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(rs) == 0 {
		return nil, &NotFoundError{Identifier: req.Username}
	}

	profile := pricing.ProfileFromRecord(rs[0], req.Username, req.Platform)
	card := pricing.PriceCard(profile)
	b, err := json.Marshal(card)
	if err != nil {
		return nil, fmt.Errorf("dispatch: encode rate card for %s: %w", req.Username, err)
	}

	observe.Logger(ctx).Debug("rate card priced",
		"username", profile.Username,
		"followers", card.Followers,
		"tier", card.Tier.String(),
	)
	return jobs.ResultSet{b}, nil
}

// run executes the single job mapped to cmd's tool.
func (d *Dispatcher) run(ctx context.Context, cmd catalogue.Command) (rs jobs.ResultSet, err error) {
	if cmd == nil {
		return nil, fmt.Errorf("dispatch: nil command")
	}
	tool := cmd.ToolName()
	r, ok := d.routes[tool]
	if !ok {
		return nil, fmt.Errorf("dispatch: no job mapping for tool %q", tool)
	}
	input, err := project(cmd)
	if err != nil {
		return nil, err
	}

	ctx, span := observe.StartSpan(ctx, "dispatch "+r.jobType,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("job.type", r.jobType),
			attribute.Int("job.memory_mb", r.envelope.MemoryMB),
			attribute.Int("job.timeout_s", r.envelope.TimeoutSeconds),
		),
	)
	defer func() { observe.EndSpan(span, err) }()
	start := time.Now()
	log := observe.Logger(ctx).With("tool", tool, "job_type", r.jobType)

	job, err := d.provider.Submit(ctx, r.jobType, input, r.envelope)
	if err != nil {
		d.metrics.RecordJob(ctx, r.jobType, outcomeSubmitError, time.Since(start).Seconds())
		return nil, fmt.Errorf("dispatch: submit %s: %w", r.jobType, err)
	}
	span.SetAttributes(attribute.String("job.id", job.ID))
	log = log.With("job_id", job.ID)
	log.Debug("job submitted")

	state, reason, err := d.provider.Await(ctx, job)
	if err != nil {
		d.metrics.RecordJob(ctx, r.jobType, outcomeAwaitError, time.Since(start).Seconds())
		return nil, fmt.Errorf("dispatch: await %s run %s: %w", r.jobType, job.ID, err)
	}
	span.SetAttributes(attribute.String("job.state", string(state)))

	if state != jobs.StateSucceeded {
		d.metrics.RecordJob(ctx, r.jobType, string(state), time.Since(start).Seconds())
		if reason == "" {
			reason = "no reason reported by provider"
		}
		log.Warn("job did not succeed", "state", state, "reason", reason)
		return nil, &ExternalJobError{JobType: r.jobType, JobID: job.ID, State: state, Reason: reason}
	}

	rs, err = d.provider.Fetch(ctx, job)
	if err != nil {
		d.metrics.RecordJob(ctx, r.jobType, outcomeFetchError, time.Since(start).Seconds())
		return nil, fmt.Errorf("dispatch: fetch %s run %s: %w", r.jobType, job.ID, err)
	}

	elapsed := time.Since(start)
	d.metrics.RecordJob(ctx, r.jobType, string(state), elapsed.Seconds())
	span.SetAttributes(attribute.Int("job.records", len(rs)))
	log.Debug("job finished", "records", len(rs), "duration", elapsed)
	return rs, nil
}
