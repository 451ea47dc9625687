package scoring

import (
	"context"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/ingest"
)

// RuleRepository reads and seeds the scoring_rules table. Upsert is the
// operator-facing weight change path; InsertMissing is the seed path and
// never overwrites an existing row.
type RuleRepository interface {
	ListActive(ctx context.Context) ([]Rule, error)
	Upsert(ctx context.Context, rules []Rule) (ingest.UpsertSummary, error)
	InsertMissing(ctx context.Context, rules []Rule) (ingest.UpsertSummary, error)
}

// FantasyRepository persists computed per-game fantasy point rows.
type FantasyRepository interface {
	Upsert(ctx context.Context, records []FantasyPoints) (ingest.UpsertSummary, error)
	ListBySeason(ctx context.Context, season int) ([]FantasyPoints, error)
}

// SeasonRepository persists recomputed season aggregates.
type SeasonRepository interface {
	Upsert(ctx context.Context, aggregates []SeasonAggregate) (ingest.UpsertSummary, error)
	ListBySeason(ctx context.Context, season int) ([]SeasonAggregate, error)
}
