// Package resilience protects the gateway from a failing job provider.
//
// [Breaker] is a three-state circuit breaker (closed, open, half-open).
// [GuardProvider] wraps a [jobs.Provider] so that once the provider keeps
// failing at the transport level, tool calls fail fast instead of each
// waiting out its own HTTP timeout.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [Breaker.Execute] while the breaker rejects
// calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the reset timeout
	// has elapsed since the last failure.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through. Enough
	// successes close the breaker; any failure re-opens it.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds tuning knobs for a [Breaker].
type BreakerConfig struct {
	// Name labels the breaker in log messages.
	Name string

	// MaxFailures is the number of consecutive failures in the closed state
	// before the breaker opens. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before admitting
	// probes. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of probe calls admitted in the half-open
	// state; that many successes close the breaker. Default: 1.
	HalfOpenMax int

	// OnStateChange, if set, is called after every transition with the
	// breaker's lock released.
	OnStateChange func(name string, from, to State)
}

// Breaker implements the three-state circuit breaker pattern.
type Breaker struct {
	name          string
	maxFailures   int
	resetTimeout  time.Duration
	halfOpenMax   int
	onStateChange func(name string, from, to State)
	now           func() time.Time

	mu              sync.Mutex
	state           State
	consecutiveFail int
	openedAt        time.Time
	probes          int
	probeSuccesses  int
}

// NewBreaker creates a [Breaker]. Zero-value config fields are replaced with
// defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 1
	}
	return &Breaker{
		name:          cfg.Name,
		maxFailures:   cfg.MaxFailures,
		resetTimeout:  cfg.ResetTimeout,
		halfOpenMax:   cfg.HalfOpenMax,
		onStateChange: cfg.OnStateChange,
		now:           time.Now,
		state:         StateClosed,
	}
}

// Execute runs fn unless the breaker is open. A non-nil error from fn counts
// as a failure, except when ctx is done: a caller giving up says nothing
// about the provider's health.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	probe, err := b.admit()
	if err != nil {
		return err
	}

	err = fn(ctx)

	switch {
	case err == nil:
		b.settle(probe, true)
	case ctx.Err() != nil:
		b.release(probe)
	default:
		b.settle(probe, false)
	}
	return err
}

// Record counts the outcome of a call that was not gated by the breaker,
// such as polling a job that was admitted earlier. It never rejects and never
// takes a half-open probe slot. Errors seen after ctx is done are ignored.
func (b *Breaker) Record(ctx context.Context, err error) {
	switch {
	case err == nil:
		b.settle(false, true)
	case ctx.Err() != nil:
	default:
		b.settle(false, false)
	}
}

// admit decides whether a call may proceed and reports whether it is a
// half-open probe.
func (b *Breaker) admit() (probe bool, err error) {
	b.mu.Lock()
	var from State
	transitioned := false
	defer func() {
		b.mu.Unlock()
		if transitioned {
			b.notify(from, StateHalfOpen)
		}
	}()

	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.resetTimeout {
			return false, ErrCircuitOpen
		}
		from, transitioned = b.state, true
		b.state = StateHalfOpen
		b.probes = 0
		b.probeSuccesses = 0
	}
	if b.state == StateHalfOpen {
		if b.probes >= b.halfOpenMax {
			return false, ErrCircuitOpen
		}
		b.probes++
		return true, nil
	}
	return false, nil
}

// settle records the outcome of an admitted call.
func (b *Breaker) settle(probe, ok bool) {
	b.mu.Lock()
	from := b.state
	switch {
	case ok && probe && b.state == StateHalfOpen:
		b.probeSuccesses++
		if b.probeSuccesses >= b.halfOpenMax {
			b.state = StateClosed
			b.consecutiveFail = 0
		}
	case ok:
		b.consecutiveFail = 0
	case probe && b.state == StateHalfOpen:
		b.state = StateOpen
		b.openedAt = b.now()
	default:
		b.consecutiveFail++
		if b.state == StateClosed && b.consecutiveFail >= b.maxFailures {
			b.state = StateOpen
			b.openedAt = b.now()
		}
	}
	to := b.state
	b.mu.Unlock()

	if from != to {
		b.notify(from, to)
	}
}

// release returns an unused probe slot.
func (b *Breaker) release(probe bool) {
	if !probe {
		return
	}
	b.mu.Lock()
	if b.state == StateHalfOpen && b.probes > 0 {
		b.probes--
	}
	b.mu.Unlock()
}

func (b *Breaker) notify(from, to State) {
	log := slog.With("name", b.name, "from", from.String(), "to", to.String())
	if to == StateOpen {
		log.Warn("circuit breaker opened", "reset_timeout", b.resetTimeout)
	} else {
		log.Info("circuit breaker state changed")
	}
	if b.onStateChange != nil {
		b.onStateChange(b.name, from, to)
	}
}

// State returns the breaker's current state. An open breaker whose reset
// timeout has elapsed reports [StateHalfOpen]; the transition itself happens
// on the next call.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.resetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Reset forces the breaker back to [StateClosed].
func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.state
	b.state = StateClosed
	b.consecutiveFail = 0
	b.probes = 0
	b.probeSuccesses = 0
	b.mu.Unlock()

	if from != StateClosed {
		b.notify(from, StateClosed)
	}
}
