package sqlstore

import (
	"context"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/scoring"
	"github.com/evgenk/nfl-fantasy-data/internal/platform/logging"
)

// SeedScoringRules installs any default half-PPR rules missing from the
// scoring_rules table. Rows already present are left alone: the table is
// where operators tune weights, and a restart must never roll a tuned
// weight back to its compiled-in default.
func SeedScoringRules(ctx context.Context, rules *RuleRepository, log *logging.Logger) error {
	summary, err := rules.InsertMissing(ctx, scoring.DefaultRules())
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "seeded scoring rules",
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
	)
	return nil
}
