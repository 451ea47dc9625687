package game

import (
	"context"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/ingest"
)

// Repository describes game persistence needs from the pipeline.
type Repository interface {
	Upsert(ctx context.Context, games []Game) (ingest.UpsertSummary, error)
	ListBySeason(ctx context.Context, season int) ([]Game, error)
}

// ParticipationRepository persists (player, game) participation rows.
type ParticipationRepository interface {
	Upsert(ctx context.Context, rows []Participation) (ingest.UpsertSummary, error)
}
