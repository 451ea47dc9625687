package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
)

func newTestLimiter() *Limiter {
	return New(Config{
		Sources: map[string]SourceConfig{
			"espn_api":         {BaseInterval: 100 * time.Millisecond},
			"pro_football_ref": {BaseInterval: 250 * time.Millisecond},
		},
		MaxInterval: 800 * time.Millisecond,
		MaxWait:     10 * time.Millisecond,
	})
}

func TestFailureDoublesInterval(t *testing.T) {
	l := newTestLimiter()

	if got := l.EffectiveInterval("espn_api"); got != 100*time.Millisecond {
		t.Fatalf("base interval = %s, want 100ms", got)
	}

	l.ReportFailure("espn_api")
	if got := l.EffectiveInterval("espn_api"); got != 200*time.Millisecond {
		t.Fatalf("after one failure interval = %s, want 200ms", got)
	}

	l.ReportFailure("espn_api")
	if got := l.EffectiveInterval("espn_api"); got != 400*time.Millisecond {
		t.Fatalf("after two failures interval = %s, want 400ms", got)
	}
}

func TestIntervalCapsAtCeiling(t *testing.T) {
	l := newTestLimiter()

	for i := 0; i < 10; i++ {
		l.ReportFailure("espn_api")
	}
	if got := l.EffectiveInterval("espn_api"); got != 800*time.Millisecond {
		t.Fatalf("interval = %s, want ceiling 800ms", got)
	}
	if got := l.SourceState("espn_api"); got != StateSaturated {
		t.Fatalf("state = %s, want %s", got, StateSaturated)
	}
}

func TestSuccessDecaysOneStep(t *testing.T) {
	l := newTestLimiter()

	l.ReportFailure("espn_api")
	l.ReportFailure("espn_api")
	l.ReportSuccess("espn_api")

	if got := l.EffectiveInterval("espn_api"); got != 200*time.Millisecond {
		t.Fatalf("after decay interval = %s, want 200ms", got)
	}
	if got := l.SourceState("espn_api"); got != StateBackoff {
		t.Fatalf("state = %s, want %s", got, StateBackoff)
	}

	l.ReportSuccess("espn_api")
	if got := l.EffectiveInterval("espn_api"); got != 100*time.Millisecond {
		t.Fatalf("fully decayed interval = %s, want base 100ms", got)
	}
	if got := l.SourceState("espn_api"); got != StateSteady {
		t.Fatalf("state = %s, want %s", got, StateSteady)
	}
}

func TestSuccessBelowBaseIsNoop(t *testing.T) {
	l := newTestLimiter()

	l.ReportSuccess("espn_api")
	l.ReportSuccess("espn_api")
	if got := l.EffectiveInterval("espn_api"); got != 100*time.Millisecond {
		t.Fatalf("interval = %s, want base 100ms", got)
	}
}

func TestSourcesAreIndependent(t *testing.T) {
	l := newTestLimiter()

	l.ReportFailure("espn_api")
	l.ReportFailure("espn_api")

	if got := l.EffectiveInterval("pro_football_ref"); got != 250*time.Millisecond {
		t.Fatalf("untouched source interval = %s, want 250ms", got)
	}
	if got := l.SourceState("pro_football_ref"); got != StateSteady {
		t.Fatalf("untouched source state = %s, want %s", got, StateSteady)
	}
}

func TestAcquireExceedsWaitBudget(t *testing.T) {
	l := newTestLimiter()

	// First acquire consumes the single burst token; the second must wait
	// a full interval, which is longer than the 10ms budget.
	if err := l.Acquire(context.Background(), "pro_football_ref"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	err := l.Acquire(context.Background(), "pro_football_ref")
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("second acquire error = %v, want ErrRateLimitExceeded", err)
	}
}

func TestAcquireUnknownSource(t *testing.T) {
	l := newTestLimiter()
	if err := l.Acquire(context.Background(), "nowhere"); err != nil {
		t.Fatalf("unknown source should pass: %v", err)
	}
}

func TestAcquireHonorsCallerCancel(t *testing.T) {
	l := newTestLimiter()

	if err := l.Acquire(context.Background(), "pro_football_ref"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Acquire(ctx, "pro_football_ref")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled acquire error = %v, want context.Canceled", err)
	}
}

func TestResetReturnsToBase(t *testing.T) {
	l := newTestLimiter()

	for i := 0; i < 4; i++ {
		l.ReportFailure("espn_api")
	}
	l.Reset("espn_api")

	if got := l.EffectiveInterval("espn_api"); got != 100*time.Millisecond {
		t.Fatalf("after reset interval = %s, want base 100ms", got)
	}
}
