package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/evgenk/nfl-fantasy-data/internal/platform/logging"
	"github.com/evgenk/nfl-fantasy-data/internal/validate"
)

// Attempt records the outcome of one adapter try, kept for provenance
// and for the error message when every adapter fails.
type Attempt struct {
	Source   string
	Fetched  int
	Accepted int
	Ratio    float64
	Duration time.Duration
	Err      error
}

// ExhaustedError is returned when every adapter in the chain failed or
// produced an unacceptable batch. It carries each attempt so the report
// can say exactly what happened per source.
type ExhaustedError struct {
	Kind     string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			parts = append(parts, fmt.Sprintf("%s: %v", a.Source, a.Err))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: accepted %d/%d (ratio %.2f)", a.Source, a.Accepted, a.Fetched, a.Ratio))
	}
	return fmt.Sprintf("all sources exhausted for %s: %s", e.Kind, strings.Join(parts, "; "))
}

// Result is one successful extraction: the accepted records, where they
// came from, what was rejected, and the full attempt trail.
type Result[T any] struct {
	Records  []T
	Source   string
	Rejected []validate.Rejection
	Attempts []Attempt
}

// ValidateFunc splits a fetched batch into accepted and rejected.
type ValidateFunc[T any] func([]T) validate.Outcome[T]

// Orchestrator tries adapters in priority order until one produces an
// acceptable batch. A batch is acceptable when it has at least one
// accepted record and its acceptance ratio clears the configured floor.
// The default floor of zero accepts any non-empty validated batch.
type Orchestrator[T any] struct {
	kind     string
	adapters []Adapter[T]
	validate ValidateFunc[T]
	minRatio float64
	log      *logging.Logger
}

func NewOrchestrator[T any](kind string, validateFn ValidateFunc[T], minRatio float64, logger *logging.Logger, adapters ...Adapter[T]) *Orchestrator[T] {
	if logger == nil {
		logger = logging.Default()
	}
	sorted := append([]Adapter[T](nil), adapters...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return &Orchestrator[T]{
		kind:     kind,
		adapters: sorted,
		validate: validateFn,
		minRatio: minRatio,
		log:      logger,
	}
}

// Fetch walks the adapter chain. Validation verdicts are final within a
// run: a record rejected from the primary's batch is not re-fetched from
// a lower source, only whole-batch failures fall through.
func (o *Orchestrator[T]) Fetch(ctx context.Context, sel Selector) (Result[T], error) {
	attempts := make([]Attempt, 0, len(o.adapters))

	for _, adapter := range o.adapters {
		if err := ctx.Err(); err != nil {
			return Result[T]{Attempts: attempts}, errors.Wrapf(err, "fetch %s", o.kind)
		}

		start := time.Now()
		records, err := adapter.Fetch(ctx, sel)
		elapsed := time.Since(start)

		if err != nil {
			attempts = append(attempts, Attempt{
				Source:   adapter.Name(),
				Duration: elapsed,
				Err:      err,
			})
			o.log.WarnContext(ctx, "source attempt failed",
				"kind", o.kind,
				"source", adapter.Name(),
				"error", err,
			)
			continue
		}

		outcome := o.validate(records)
		attempt := Attempt{
			Source:   adapter.Name(),
			Fetched:  len(records),
			Accepted: len(outcome.Accepted),
			Ratio:    outcome.Ratio(),
			Duration: elapsed,
		}
		attempts = append(attempts, attempt)

		if len(outcome.Accepted) == 0 || outcome.Ratio() < o.minRatio {
			o.log.WarnContext(ctx, "source batch below acceptance floor",
				"kind", o.kind,
				"source", adapter.Name(),
				"fetched", attempt.Fetched,
				"accepted", attempt.Accepted,
				"ratio", attempt.Ratio,
				"floor", o.minRatio,
			)
			continue
		}

		if len(outcome.Rejected) > 0 {
			o.log.InfoContext(ctx, "records rejected by validation",
				"kind", o.kind,
				"source", adapter.Name(),
				"rejected", len(outcome.Rejected),
			)
		}

		return Result[T]{
			Records:  outcome.Accepted,
			Source:   adapter.Name(),
			Rejected: outcome.Rejected,
			Attempts: attempts,
		}, nil
	}

	return Result[T]{Attempts: attempts}, &ExhaustedError{Kind: o.kind, Attempts: attempts}
}
