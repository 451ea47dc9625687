package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

// ErrRateLimitExceeded reports that a slot could not be acquired within
// the caller's wait budget. Callers treat the source as unavailable for
// this attempt and move on.
var ErrRateLimitExceeded = errors.New("rate limit wait budget exceeded")

// State of one source's limiter. Steady runs at the base interval;
// Backoff runs at base * 2^failures; Saturated means the interval has
// hit the ceiling and cannot grow further.
type State string

const (
	StateSteady    State = "steady"
	StateBackoff   State = "backoff"
	StateSaturated State = "saturated"
)

// SourceConfig is the static limit for one upstream source.
type SourceConfig struct {
	BaseInterval time.Duration
}

// Config holds the per-source limits plus the shared bounds.
type Config struct {
	Sources     map[string]SourceConfig
	MaxInterval time.Duration
	MaxWait     time.Duration
}

// sourceState is the per-source slice of the limiter. Transitions are
// driven only by ReportSuccess and ReportFailure; Acquire never mutates
// the backoff level.
type sourceState struct {
	limiter             *rate.Limiter
	base                time.Duration
	interval            time.Duration
	consecutiveFailures int
}

// Limiter enforces per-source minimum request intervals with adaptive
// backoff. Each failure doubles the source's interval up to the ceiling,
// each success halves it back one step toward the base. Sources are
// independent: backing off one never slows another.
type Limiter struct {
	mu          sync.Mutex
	sources     map[string]*sourceState
	maxInterval time.Duration
	maxWait     time.Duration
}

func New(cfg Config) *Limiter {
	maxInterval := cfg.MaxInterval
	if maxInterval <= 0 {
		maxInterval = 60 * time.Second
	}
	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = 2 * maxInterval
	}

	sources := make(map[string]*sourceState, len(cfg.Sources))
	for name, sc := range cfg.Sources {
		base := sc.BaseInterval
		if base <= 0 {
			base = time.Second
		}
		sources[name] = &sourceState{
			limiter:  rate.NewLimiter(rate.Every(base), 1),
			base:     base,
			interval: base,
		}
	}

	return &Limiter{
		sources:     sources,
		maxInterval: maxInterval,
		maxWait:     maxWait,
	}
}

// Acquire blocks until the source's next request slot opens, or fails
// with ErrRateLimitExceeded once the wait budget runs out. Unknown
// sources are not limited.
func (l *Limiter) Acquire(ctx context.Context, source string) error {
	l.mu.Lock()
	state, ok := l.sources[source]
	l.mu.Unlock()
	if !ok {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := state.limiter.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return errors.Wrapf(ctx.Err(), "acquire slot for %s", source)
		}
		return errors.Wrapf(ErrRateLimitExceeded, "source %s at interval %s", source, l.EffectiveInterval(source))
	}
	return nil
}

// ReportSuccess decays the source's backoff one step toward its base
// interval.
func (l *Limiter) ReportSuccess(source string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.sources[source]
	if !ok || state.consecutiveFailures == 0 {
		return
	}
	state.consecutiveFailures--
	l.applyInterval(state)
}

// ReportFailure doubles the source's interval, capped at the ceiling.
func (l *Limiter) ReportFailure(source string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.sources[source]
	if !ok {
		return
	}
	if state.interval < l.maxInterval {
		state.consecutiveFailures++
	}
	l.applyInterval(state)
}

// Reset drops a source back to its base interval.
func (l *Limiter) Reset(source string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.sources[source]
	if !ok {
		return
	}
	state.consecutiveFailures = 0
	l.applyInterval(state)
}

// EffectiveInterval reports the interval the source currently honors.
func (l *Limiter) EffectiveInterval(source string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.sources[source]
	if !ok {
		return 0
	}
	return state.interval
}

// SourceState reports where the source sits in the backoff cycle.
func (l *Limiter) SourceState(source string) State {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.sources[source]
	if !ok || state.consecutiveFailures == 0 {
		return StateSteady
	}
	if state.interval >= l.maxInterval {
		return StateSaturated
	}
	return StateBackoff
}

// applyInterval recomputes interval = base * 2^failures capped at the
// ceiling, and pushes the new rate into the token bucket. Callers hold
// the mutex.
func (l *Limiter) applyInterval(state *sourceState) {
	interval := state.base
	for i := 0; i < state.consecutiveFailures; i++ {
		interval *= 2
		if interval >= l.maxInterval {
			interval = l.maxInterval
			break
		}
	}
	if interval == state.interval {
		return
	}
	state.interval = interval
	state.limiter.SetLimit(rate.Every(interval))
}
