package team

import (
	"context"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/ingest"
)

// Repository describes team persistence needs from the pipeline.
type Repository interface {
	Upsert(ctx context.Context, teams []Team) (ingest.UpsertSummary, error)
	List(ctx context.Context) ([]Team, error)
}
