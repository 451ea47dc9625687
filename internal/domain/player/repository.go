package player

import (
	"context"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/ingest"
)

// Repository describes player persistence needs from the pipeline.
// KeysByAlias maps every identifier a source may use for a player, the
// natural key itself, the external id and the bare name, onto the
// canonical natural key, so stat lines from different sources land on
// the same row.
type Repository interface {
	Upsert(ctx context.Context, players []Player) (ingest.UpsertSummary, error)
	KeysByAlias(ctx context.Context) (map[string]string, error)
	List(ctx context.Context) ([]Player, error)
}
