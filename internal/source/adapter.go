package source

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// Priority orders adapters within an orchestrator. Lower runs first.
type Priority int

const (
	PriorityPrimary   Priority = 1
	PrioritySecondary Priority = 2
	PriorityFallback  Priority = 3
)

// ErrUnavailable means the source could not be reached or answered with
// an error status. The orchestrator falls through to the next adapter.
var ErrUnavailable = errors.New("source unavailable")

// ErrEmpty means the source answered but carried no records for the
// selector. Distinct from unavailable: an empty secondary source is a
// normal Tuesday, an unreachable one is an incident.
var ErrEmpty = errors.New("source returned no records")

// Selector scopes one extraction request. Adapters read the fields they
// need and ignore the rest; a weekly games fetch only looks at Season and
// Week, a boxscore fetch needs the game identity too.
type Selector struct {
	Season         int
	Week           int
	TeamCode       string
	GameExternalID string
	GameDate       time.Time
	HomeTeam       string
}

// Adapter extracts one kind of record from one upstream source. Fetch
// honors the context and reports ErrUnavailable or ErrEmpty through the
// error chain so the orchestrator can route on them.
type Adapter[T any] interface {
	Name() string
	Priority() Priority
	Fetch(ctx context.Context, sel Selector) ([]T, error)
}
