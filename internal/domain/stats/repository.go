package stats

import (
	"context"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/ingest"
)

// Repository persists per-variant stat lines. Implementations route each
// line to its variant table; re-extraction overwrites on the
// (player, game) key instead of duplicating.
type Repository interface {
	Upsert(ctx context.Context, lines []Line) (ingest.UpsertSummary, error)
	ListBySeason(ctx context.Context, season int) ([]Line, error)
}
