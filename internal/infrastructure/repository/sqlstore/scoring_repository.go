package sqlstore

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/ingest"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/scoring"
	qb "github.com/evgenk/nfl-fantasy-data/internal/platform/querybuilder"
)

type ruleTableModel struct {
	StatName      string  `db:"stat_name"`
	PointsPerUnit float64 `db:"points_per_unit"`
	Active        bool    `db:"active"`
}

var ruleColumns = []string{"stat_name", "points_per_unit", "active"}

type RuleRepository struct {
	db *sqlx.DB
}

func NewRuleRepository(db *sqlx.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) ListActive(ctx context.Context) ([]scoring.Rule, error) {
	query, args, err := qb.Select(ruleColumns...).
		From("scoring_rules").
		Where(qb.Eq("active", true)).
		OrderBy("stat_name").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list scoring rules query: %w", err)
	}

	var rows []ruleTableModel
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list scoring rules: %w", err)
	}

	out := make([]scoring.Rule, 0, len(rows))
	for _, row := range rows {
		out = append(out, scoring.Rule{
			StatName:      row.StatName,
			PointsPerUnit: row.PointsPerUnit,
			Active:        row.Active,
		})
	}
	return out, nil
}

func (r *RuleRepository) Upsert(ctx context.Context, rules []scoring.Rule) (ingest.UpsertSummary, error) {
	var summary ingest.UpsertSummary

	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			summary.RecordFailure(rule.StatName, err.Error())
			continue
		}

		model := ruleTableModel{
			StatName:      rule.StatName,
			PointsPerUnit: rule.PointsPerUnit,
			Active:        rule.Active,
		}
		status, err := upsertStatusRow(ctx, r.db, "scoring_rules", ruleColumns,
			qb.Eq("stat_name", rule.StatName), model, `ON CONFLICT (stat_name) DO UPDATE SET
			points_per_unit = EXCLUDED.points_per_unit,
			active = EXCLUDED.active,
			updated_at = CURRENT_TIMESTAMP`)
		if err != nil {
			summary.RecordFailure(rule.StatName, err.Error())
			continue
		}
		status.count(&summary)
	}

	return summary, nil
}

// InsertMissing writes only rules whose stat name has no row yet.
// Existing rows are never touched, so weights tuned through Upsert
// survive restarts and redeploys.
func (r *RuleRepository) InsertMissing(ctx context.Context, rules []scoring.Rule) (ingest.UpsertSummary, error) {
	var summary ingest.UpsertSummary

	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			summary.RecordFailure(rule.StatName, err.Error())
			continue
		}

		query, args, err := qb.Select(ruleColumns...).
			From("scoring_rules").
			Where(qb.Eq("stat_name", rule.StatName)).
			ToSQL()
		if err != nil {
			summary.RecordFailure(rule.StatName, err.Error())
			continue
		}
		var existing ruleTableModel
		err = r.db.GetContext(ctx, &existing, r.db.Rebind(query), args...)
		if err != nil && !isNotFound(err) {
			summary.RecordFailure(rule.StatName, err.Error())
			continue
		}
		if err == nil {
			summary.Skipped++
			continue
		}

		model := ruleTableModel{
			StatName:      rule.StatName,
			PointsPerUnit: rule.PointsPerUnit,
			Active:        rule.Active,
		}
		query, args, err = qb.InsertModel("scoring_rules", model, "ON CONFLICT (stat_name) DO NOTHING")
		if err != nil {
			summary.RecordFailure(rule.StatName, err.Error())
			continue
		}
		if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
			summary.RecordFailure(rule.StatName, err.Error())
			continue
		}
		summary.Inserted++
	}

	return summary, nil
}

type fantasyTableModel struct {
	PlayerKey    string  `db:"player_key"`
	GameID       string  `db:"game_id"`
	Passing      float64 `db:"passing_points"`
	Rushing      float64 `db:"rushing_points"`
	Receiving    float64 `db:"receiving_points"`
	Defensive    float64 `db:"defensive_points"`
	SpecialTeams float64 `db:"special_teams_points"`
	Misc         float64 `db:"misc_points"`
	Total        float64 `db:"total_points"`
}

var fantasyColumns = []string{
	"player_key", "game_id", "passing_points", "rushing_points", "receiving_points",
	"defensive_points", "special_teams_points", "misc_points", "total_points",
}

const fantasyConflict = `ON CONFLICT (player_key, game_id) DO UPDATE SET
	passing_points = EXCLUDED.passing_points,
	rushing_points = EXCLUDED.rushing_points,
	receiving_points = EXCLUDED.receiving_points,
	defensive_points = EXCLUDED.defensive_points,
	special_teams_points = EXCLUDED.special_teams_points,
	misc_points = EXCLUDED.misc_points,
	total_points = EXCLUDED.total_points,
	updated_at = CURRENT_TIMESTAMP`

type FantasyRepository struct {
	db *sqlx.DB
}

func NewFantasyRepository(db *sqlx.DB) *FantasyRepository {
	return &FantasyRepository{db: db}
}

// Upsert writes computed per-game point rows. Player keys are expected to
// be canonical already; the scoring stage only ever reads stored stat
// lines, which carry canonical keys.
func (r *FantasyRepository) Upsert(ctx context.Context, records []scoring.FantasyPoints) (ingest.UpsertSummary, error) {
	var summary ingest.UpsertSummary

	for _, rec := range records {
		key := rec.PlayerKey + "/" + rec.GameExternalID
		if rec.PlayerKey == "" || rec.GameExternalID == "" {
			summary.RecordFailure(key, "fantasy points row is missing its key")
			continue
		}

		model := fantasyTableModel{
			PlayerKey:    rec.PlayerKey,
			GameID:       rec.GameExternalID,
			Passing:      rec.Passing,
			Rushing:      rec.Rushing,
			Receiving:    rec.Receiving,
			Defensive:    rec.Defensive,
			SpecialTeams: rec.SpecialTeams,
			Misc:         rec.Misc,
			Total:        rec.Total,
		}
		status, err := upsertStatRow(ctx, r.db, "fantasy_points", fantasyColumns,
			rec.PlayerKey, rec.GameExternalID, model, fantasyConflict)
		if err != nil {
			summary.RecordFailure(key, err.Error())
			continue
		}
		status.count(&summary)
	}

	return summary, nil
}

func (r *FantasyRepository) ListBySeason(ctx context.Context, season int) ([]scoring.FantasyPoints, error) {
	rows, err := listSeasonRows[fantasyTableModel](ctx, r.db, "fantasy_points", fantasyColumns, season)
	if err != nil {
		return nil, err
	}

	out := make([]scoring.FantasyPoints, 0, len(rows))
	for _, row := range rows {
		out = append(out, scoring.FantasyPoints{
			PlayerKey:      row.PlayerKey,
			GameExternalID: row.GameID,
			Passing:        row.Passing,
			Rushing:        row.Rushing,
			Receiving:      row.Receiving,
			Defensive:      row.Defensive,
			SpecialTeams:   row.SpecialTeams,
			Misc:           row.Misc,
			Total:          row.Total,
		})
	}
	return out, nil
}

type seasonTableModel struct {
	PlayerKey   string  `db:"player_key"`
	Season      int     `db:"season"`
	GamesPlayed int     `db:"games_played"`
	StatTotals  string  `db:"stat_totals"`
	TotalPoints float64 `db:"total_points"`
	AvgPoints   float64 `db:"avg_points"`
}

var seasonColumns = []string{
	"player_key", "season", "games_played", "stat_totals", "total_points", "avg_points",
}

const seasonConflict = `ON CONFLICT (player_key, season) DO UPDATE SET
	games_played = EXCLUDED.games_played,
	stat_totals = EXCLUDED.stat_totals,
	total_points = EXCLUDED.total_points,
	avg_points = EXCLUDED.avg_points,
	updated_at = CURRENT_TIMESTAMP`

// SeasonRepository persists season rollups. Stat totals land in a JSON
// text column; the set of stat names is open-ended and nothing queries
// individual totals server-side.
type SeasonRepository struct {
	db *sqlx.DB
}

func NewSeasonRepository(db *sqlx.DB) *SeasonRepository {
	return &SeasonRepository{db: db}
}

func (r *SeasonRepository) Upsert(ctx context.Context, aggregates []scoring.SeasonAggregate) (ingest.UpsertSummary, error) {
	var summary ingest.UpsertSummary

	for _, agg := range aggregates {
		key := fmt.Sprintf("%s/%d", agg.PlayerKey, agg.Season)
		if agg.PlayerKey == "" || agg.Season == 0 {
			summary.RecordFailure(key, "season aggregate is missing its key")
			continue
		}

		// ConfigStd sorts map keys, so identical totals always produce
		// the same text and the skip comparison holds.
		totals, err := sonic.ConfigStd.MarshalToString(agg.StatTotals)
		if err != nil {
			summary.RecordFailure(key, err.Error())
			continue
		}

		model := seasonTableModel{
			PlayerKey:   agg.PlayerKey,
			Season:      agg.Season,
			GamesPlayed: agg.GamesPlayed,
			StatTotals:  totals,
			TotalPoints: agg.TotalPoints,
			AvgPoints:   agg.AvgPoints,
		}
		status, err := upsertStatusRow(ctx, r.db, "season_stats", seasonColumns,
			qb.Expr("player_key = ? AND season = ?", agg.PlayerKey, agg.Season), model, seasonConflict)
		if err != nil {
			summary.RecordFailure(key, err.Error())
			continue
		}
		status.count(&summary)
	}

	return summary, nil
}

func (r *SeasonRepository) ListBySeason(ctx context.Context, season int) ([]scoring.SeasonAggregate, error) {
	query, args, err := qb.Select(seasonColumns...).
		From("season_stats").
		Where(qb.Eq("season", season)).
		OrderBy("player_key").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list season stats query: %w", err)
	}

	var rows []seasonTableModel
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list season stats %d: %w", season, err)
	}

	out := make([]scoring.SeasonAggregate, 0, len(rows))
	for _, row := range rows {
		var totals map[string]float64
		if row.StatTotals != "" {
			if err := sonic.UnmarshalString(row.StatTotals, &totals); err != nil {
				return nil, fmt.Errorf("decode stat totals for %s: %w", row.PlayerKey, err)
			}
		}
		out = append(out, scoring.SeasonAggregate{
			PlayerKey:   row.PlayerKey,
			Season:      row.Season,
			GamesPlayed: row.GamesPlayed,
			StatTotals:  totals,
			TotalPoints: row.TotalPoints,
			AvgPoints:   row.AvgPoints,
		})
	}
	return out, nil
}

// upsertStatusRow is upsertStatRow for tables not keyed (player_key,
// game_id); the caller supplies the key condition.
func upsertStatusRow[M comparable](ctx context.Context, db *sqlx.DB, table string, columns []string, keyCond qb.Condition, model M, conflict string) (rowStatus, error) {
	query, args, err := qb.Select(columns...).
		From(table).
		Where(keyCond).
		ToSQL()
	if err != nil {
		return rowSkipped, fmt.Errorf("build select %s query: %w", table, err)
	}

	var existing M
	err = db.GetContext(ctx, &existing, db.Rebind(query), args...)
	if err != nil && !isNotFound(err) {
		return rowSkipped, err
	}
	found := err == nil
	if found && existing == model {
		return rowSkipped, nil
	}

	query, args, err = qb.InsertModel(table, model, conflict)
	if err != nil {
		return rowSkipped, fmt.Errorf("build insert %s query: %w", table, err)
	}
	if _, err := db.ExecContext(ctx, db.Rebind(query), args...); err != nil {
		return rowSkipped, err
	}

	if found {
		return rowUpdated, nil
	}
	return rowInserted, nil
}
