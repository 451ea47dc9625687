package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/ingest"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/stats"
	qb "github.com/evgenk/nfl-fantasy-data/internal/platform/querybuilder"
)

type passingTableModel struct {
	PlayerKey           string `db:"player_key"`
	GameID              string `db:"game_id"`
	Attempts            int    `db:"attempts"`
	Completions         int    `db:"completions"`
	Yards               int    `db:"yards"`
	Touchdowns          int    `db:"touchdowns"`
	Interceptions       int    `db:"interceptions"`
	Sacked              int    `db:"sacked"`
	SackYardsLost       int    `db:"sack_yards_lost"`
	TwoPointConversions int    `db:"two_point_conversions"`
}

var passingColumns = []string{
	"player_key", "game_id", "attempts", "completions", "yards", "touchdowns",
	"interceptions", "sacked", "sack_yards_lost", "two_point_conversions",
}

const passingConflict = `ON CONFLICT (player_key, game_id) DO UPDATE SET
	attempts = EXCLUDED.attempts,
	completions = EXCLUDED.completions,
	yards = EXCLUDED.yards,
	touchdowns = EXCLUDED.touchdowns,
	interceptions = EXCLUDED.interceptions,
	sacked = EXCLUDED.sacked,
	sack_yards_lost = EXCLUDED.sack_yards_lost,
	two_point_conversions = EXCLUDED.two_point_conversions,
	updated_at = CURRENT_TIMESTAMP`

type rushingTableModel struct {
	PlayerKey           string `db:"player_key"`
	GameID              string `db:"game_id"`
	Attempts            int    `db:"attempts"`
	Yards               int    `db:"yards"`
	Touchdowns          int    `db:"touchdowns"`
	Longest             int    `db:"longest"`
	TwoPointConversions int    `db:"two_point_conversions"`
	FumblesLost         int    `db:"fumbles_lost"`
}

var rushingColumns = []string{
	"player_key", "game_id", "attempts", "yards", "touchdowns",
	"longest", "two_point_conversions", "fumbles_lost",
}

const rushingConflict = `ON CONFLICT (player_key, game_id) DO UPDATE SET
	attempts = EXCLUDED.attempts,
	yards = EXCLUDED.yards,
	touchdowns = EXCLUDED.touchdowns,
	longest = EXCLUDED.longest,
	two_point_conversions = EXCLUDED.two_point_conversions,
	fumbles_lost = EXCLUDED.fumbles_lost,
	updated_at = CURRENT_TIMESTAMP`

type receivingTableModel struct {
	PlayerKey           string `db:"player_key"`
	GameID              string `db:"game_id"`
	Targets             int    `db:"targets"`
	Receptions          int    `db:"receptions"`
	Yards               int    `db:"yards"`
	Touchdowns          int    `db:"touchdowns"`
	Longest             int    `db:"longest"`
	TwoPointConversions int    `db:"two_point_conversions"`
	FumblesLost         int    `db:"fumbles_lost"`
}

var receivingColumns = []string{
	"player_key", "game_id", "targets", "receptions", "yards", "touchdowns",
	"longest", "two_point_conversions", "fumbles_lost",
}

const receivingConflict = `ON CONFLICT (player_key, game_id) DO UPDATE SET
	targets = EXCLUDED.targets,
	receptions = EXCLUDED.receptions,
	yards = EXCLUDED.yards,
	touchdowns = EXCLUDED.touchdowns,
	longest = EXCLUDED.longest,
	two_point_conversions = EXCLUDED.two_point_conversions,
	fumbles_lost = EXCLUDED.fumbles_lost,
	updated_at = CURRENT_TIMESTAMP`

type defensiveTableModel struct {
	PlayerKey        string  `db:"player_key"`
	GameID           string  `db:"game_id"`
	TacklesSolo      int     `db:"tackles_solo"`
	TacklesAssisted  int     `db:"tackles_assisted"`
	Sacks            float64 `db:"sacks"`
	Interceptions    int     `db:"interceptions"`
	FumblesForced    int     `db:"fumbles_forced"`
	FumblesRecovered int     `db:"fumbles_recovered"`
	PassesDefended   int     `db:"passes_defended"`
	Safeties         int     `db:"safeties"`
	Touchdowns       int     `db:"touchdowns"`
	BlockedKicks     int     `db:"blocked_kicks"`
}

var defensiveColumns = []string{
	"player_key", "game_id", "tackles_solo", "tackles_assisted", "sacks",
	"interceptions", "fumbles_forced", "fumbles_recovered", "passes_defended",
	"safeties", "touchdowns", "blocked_kicks",
}

const defensiveConflict = `ON CONFLICT (player_key, game_id) DO UPDATE SET
	tackles_solo = EXCLUDED.tackles_solo,
	tackles_assisted = EXCLUDED.tackles_assisted,
	sacks = EXCLUDED.sacks,
	interceptions = EXCLUDED.interceptions,
	fumbles_forced = EXCLUDED.fumbles_forced,
	fumbles_recovered = EXCLUDED.fumbles_recovered,
	passes_defended = EXCLUDED.passes_defended,
	safeties = EXCLUDED.safeties,
	touchdowns = EXCLUDED.touchdowns,
	blocked_kicks = EXCLUDED.blocked_kicks,
	updated_at = CURRENT_TIMESTAMP`

type kickingTableModel struct {
	PlayerKey            string `db:"player_key"`
	GameID               string `db:"game_id"`
	FieldGoalsMade       int    `db:"field_goals_made"`
	FieldGoalsAttempted  int    `db:"field_goals_attempted"`
	ExtraPointsMade      int    `db:"extra_points_made"`
	ExtraPointsAttempted int    `db:"extra_points_attempted"`
	LongestFieldGoal     int    `db:"longest_field_goal"`
}

var kickingColumns = []string{
	"player_key", "game_id", "field_goals_made", "field_goals_attempted",
	"extra_points_made", "extra_points_attempted", "longest_field_goal",
}

const kickingConflict = `ON CONFLICT (player_key, game_id) DO UPDATE SET
	field_goals_made = EXCLUDED.field_goals_made,
	field_goals_attempted = EXCLUDED.field_goals_attempted,
	extra_points_made = EXCLUDED.extra_points_made,
	extra_points_attempted = EXCLUDED.extra_points_attempted,
	longest_field_goal = EXCLUDED.longest_field_goal,
	updated_at = CURRENT_TIMESTAMP`

type puntingTableModel struct {
	PlayerKey string `db:"player_key"`
	GameID    string `db:"game_id"`
	Punts     int    `db:"punts"`
	Yards     int    `db:"yards"`
	Longest   int    `db:"longest"`
	Inside20  int    `db:"inside_20"`
}

var puntingColumns = []string{
	"player_key", "game_id", "punts", "yards", "longest", "inside_20",
}

const puntingConflict = `ON CONFLICT (player_key, game_id) DO UPDATE SET
	punts = EXCLUDED.punts,
	yards = EXCLUDED.yards,
	longest = EXCLUDED.longest,
	inside_20 = EXCLUDED.inside_20,
	updated_at = CURRENT_TIMESTAMP`

type returnTableModel struct {
	PlayerKey       string `db:"player_key"`
	GameID          string `db:"game_id"`
	KickReturns     int    `db:"kick_returns"`
	KickReturnYards int    `db:"kick_return_yards"`
	KickReturnTDs   int    `db:"kick_return_tds"`
	PuntReturns     int    `db:"punt_returns"`
	PuntReturnYards int    `db:"punt_return_yards"`
	PuntReturnTDs   int    `db:"punt_return_tds"`
}

var returnColumns = []string{
	"player_key", "game_id", "kick_returns", "kick_return_yards",
	"kick_return_tds", "punt_returns", "punt_return_yards", "punt_return_tds",
}

const returnConflict = `ON CONFLICT (player_key, game_id) DO UPDATE SET
	kick_returns = EXCLUDED.kick_returns,
	kick_return_yards = EXCLUDED.kick_return_yards,
	kick_return_tds = EXCLUDED.kick_return_tds,
	punt_returns = EXCLUDED.punt_returns,
	punt_return_yards = EXCLUDED.punt_return_yards,
	punt_return_tds = EXCLUDED.punt_return_tds,
	updated_at = CURRENT_TIMESTAMP`

// StatRepository routes each stat line to its variant table. All seven
// tables share the (player_key, game_id) key, so a re-extracted game
// overwrites its rows in place.
type StatRepository struct {
	db      *sqlx.DB
	players *PlayerRepository
}

func NewStatRepository(db *sqlx.DB, players *PlayerRepository) *StatRepository {
	return &StatRepository{db: db, players: players}
}

func (r *StatRepository) Upsert(ctx context.Context, lines []stats.Line) (ingest.UpsertSummary, error) {
	var summary ingest.UpsertSummary

	aliases, err := r.players.KeysByAlias(ctx)
	if err != nil {
		return summary, err
	}

	for _, line := range lines {
		key := string(line.Variant()) + "/" + line.PlayerKey() + "/" + line.GameKey()

		playerKey, ok := aliases[line.PlayerKey()]
		if !ok {
			summary.RecordFailure(key, "unknown player "+line.PlayerKey())
			continue
		}
		gameID := line.GameKey()

		var status rowStatus
		switch s := line.(type) {
		case stats.Passing:
			if err := s.Validate(); err != nil {
				summary.RecordFailure(key, err.Error())
				continue
			}
			model := passingTableModel{
				PlayerKey:           playerKey,
				GameID:              gameID,
				Attempts:            s.Attempts,
				Completions:         s.Completions,
				Yards:               s.Yards,
				Touchdowns:          s.Touchdowns,
				Interceptions:       s.InterceptionsThrown,
				Sacked:              s.Sacked,
				SackYardsLost:       s.SackYardsLost,
				TwoPointConversions: s.TwoPointConversions,
			}
			status, err = upsertStatRow(ctx, r.db, "passing_stats", passingColumns, playerKey, gameID, model, passingConflict)
		case stats.Rushing:
			if err := s.Validate(); err != nil {
				summary.RecordFailure(key, err.Error())
				continue
			}
			model := rushingTableModel{
				PlayerKey:           playerKey,
				GameID:              gameID,
				Attempts:            s.Attempts,
				Yards:               s.Yards,
				Touchdowns:          s.Touchdowns,
				Longest:             s.Longest,
				TwoPointConversions: s.TwoPointConversions,
				FumblesLost:         s.FumblesLost,
			}
			status, err = upsertStatRow(ctx, r.db, "rushing_stats", rushingColumns, playerKey, gameID, model, rushingConflict)
		case stats.Receiving:
			if err := s.Validate(); err != nil {
				summary.RecordFailure(key, err.Error())
				continue
			}
			model := receivingTableModel{
				PlayerKey:           playerKey,
				GameID:              gameID,
				Targets:             s.Targets,
				Receptions:          s.Receptions,
				Yards:               s.Yards,
				Touchdowns:          s.Touchdowns,
				Longest:             s.Longest,
				TwoPointConversions: s.TwoPointConversions,
				FumblesLost:         s.FumblesLost,
			}
			status, err = upsertStatRow(ctx, r.db, "receiving_stats", receivingColumns, playerKey, gameID, model, receivingConflict)
		case stats.Defensive:
			if err := s.Validate(); err != nil {
				summary.RecordFailure(key, err.Error())
				continue
			}
			model := defensiveTableModel{
				PlayerKey:        playerKey,
				GameID:           gameID,
				TacklesSolo:      s.TacklesSolo,
				TacklesAssisted:  s.TacklesAssisted,
				Sacks:            s.Sacks,
				Interceptions:    s.Interceptions,
				FumblesForced:    s.FumblesForced,
				FumblesRecovered: s.FumblesRecovered,
				PassesDefended:   s.PassesDefended,
				Safeties:         s.Safeties,
				Touchdowns:       s.Touchdowns,
				BlockedKicks:     s.BlockedKicks,
			}
			status, err = upsertStatRow(ctx, r.db, "defensive_stats", defensiveColumns, playerKey, gameID, model, defensiveConflict)
		case stats.Kicking:
			if err := s.Validate(); err != nil {
				summary.RecordFailure(key, err.Error())
				continue
			}
			model := kickingTableModel{
				PlayerKey:            playerKey,
				GameID:               gameID,
				FieldGoalsMade:       s.FieldGoalsMade,
				FieldGoalsAttempted:  s.FieldGoalsAttempted,
				ExtraPointsMade:      s.ExtraPointsMade,
				ExtraPointsAttempted: s.ExtraPointsAttempted,
				LongestFieldGoal:     s.LongestFieldGoal,
			}
			status, err = upsertStatRow(ctx, r.db, "kicking_stats", kickingColumns, playerKey, gameID, model, kickingConflict)
		case stats.Punting:
			if err := s.Validate(); err != nil {
				summary.RecordFailure(key, err.Error())
				continue
			}
			model := puntingTableModel{
				PlayerKey: playerKey,
				GameID:    gameID,
				Punts:     s.Punts,
				Yards:     s.Yards,
				Longest:   s.Longest,
				Inside20:  s.Inside20,
			}
			status, err = upsertStatRow(ctx, r.db, "punting_stats", puntingColumns, playerKey, gameID, model, puntingConflict)
		case stats.Return:
			if err := s.Validate(); err != nil {
				summary.RecordFailure(key, err.Error())
				continue
			}
			model := returnTableModel{
				PlayerKey:       playerKey,
				GameID:          gameID,
				KickReturns:     s.KickReturns,
				KickReturnYards: s.KickReturnYards,
				KickReturnTDs:   s.KickReturnTDs,
				PuntReturns:     s.PuntReturns,
				PuntReturnYards: s.PuntReturnYards,
				PuntReturnTDs:   s.PuntReturnTDs,
			}
			status, err = upsertStatRow(ctx, r.db, "return_stats", returnColumns, playerKey, gameID, model, returnConflict)
		default:
			summary.RecordFailure(key, fmt.Sprintf("unsupported stat variant %q", line.Variant()))
			continue
		}
		if err != nil {
			summary.RecordFailure(key, err.Error())
			continue
		}
		status.count(&summary)
	}

	return summary, nil
}

// ListBySeason reconstructs every stat line of a season across the seven
// variant tables. Lines come back grouped by variant, then ordered by
// player and game within each.
func (r *StatRepository) ListBySeason(ctx context.Context, season int) ([]stats.Line, error) {
	var lines []stats.Line

	passing, err := listSeasonRows[passingTableModel](ctx, r.db, "passing_stats", passingColumns, season)
	if err != nil {
		return nil, err
	}
	for _, row := range passing {
		lines = append(lines, stats.Passing{
			Ref:                 stats.NewRef(row.PlayerKey, row.GameID),
			Attempts:            row.Attempts,
			Completions:         row.Completions,
			Yards:               row.Yards,
			Touchdowns:          row.Touchdowns,
			InterceptionsThrown: row.Interceptions,
			Sacked:              row.Sacked,
			SackYardsLost:       row.SackYardsLost,
			TwoPointConversions: row.TwoPointConversions,
		})
	}

	rushing, err := listSeasonRows[rushingTableModel](ctx, r.db, "rushing_stats", rushingColumns, season)
	if err != nil {
		return nil, err
	}
	for _, row := range rushing {
		lines = append(lines, stats.Rushing{
			Ref:                 stats.NewRef(row.PlayerKey, row.GameID),
			Attempts:            row.Attempts,
			Yards:               row.Yards,
			Touchdowns:          row.Touchdowns,
			Longest:             row.Longest,
			TwoPointConversions: row.TwoPointConversions,
			FumblesLost:         row.FumblesLost,
		})
	}

	receiving, err := listSeasonRows[receivingTableModel](ctx, r.db, "receiving_stats", receivingColumns, season)
	if err != nil {
		return nil, err
	}
	for _, row := range receiving {
		lines = append(lines, stats.Receiving{
			Ref:                 stats.NewRef(row.PlayerKey, row.GameID),
			Targets:             row.Targets,
			Receptions:          row.Receptions,
			Yards:               row.Yards,
			Touchdowns:          row.Touchdowns,
			Longest:             row.Longest,
			TwoPointConversions: row.TwoPointConversions,
			FumblesLost:         row.FumblesLost,
		})
	}

	defensive, err := listSeasonRows[defensiveTableModel](ctx, r.db, "defensive_stats", defensiveColumns, season)
	if err != nil {
		return nil, err
	}
	for _, row := range defensive {
		lines = append(lines, stats.Defensive{
			Ref:              stats.NewRef(row.PlayerKey, row.GameID),
			TacklesSolo:      row.TacklesSolo,
			TacklesAssisted:  row.TacklesAssisted,
			Sacks:            row.Sacks,
			Interceptions:    row.Interceptions,
			FumblesForced:    row.FumblesForced,
			FumblesRecovered: row.FumblesRecovered,
			PassesDefended:   row.PassesDefended,
			Safeties:         row.Safeties,
			Touchdowns:       row.Touchdowns,
			BlockedKicks:     row.BlockedKicks,
		})
	}

	kicking, err := listSeasonRows[kickingTableModel](ctx, r.db, "kicking_stats", kickingColumns, season)
	if err != nil {
		return nil, err
	}
	for _, row := range kicking {
		lines = append(lines, stats.Kicking{
			Ref:                  stats.NewRef(row.PlayerKey, row.GameID),
			FieldGoalsMade:       row.FieldGoalsMade,
			FieldGoalsAttempted:  row.FieldGoalsAttempted,
			ExtraPointsMade:      row.ExtraPointsMade,
			ExtraPointsAttempted: row.ExtraPointsAttempted,
			LongestFieldGoal:     row.LongestFieldGoal,
		})
	}

	punting, err := listSeasonRows[puntingTableModel](ctx, r.db, "punting_stats", puntingColumns, season)
	if err != nil {
		return nil, err
	}
	for _, row := range punting {
		lines = append(lines, stats.Punting{
			Ref:      stats.NewRef(row.PlayerKey, row.GameID),
			Punts:    row.Punts,
			Yards:    row.Yards,
			Longest:  row.Longest,
			Inside20: row.Inside20,
		})
	}

	returns, err := listSeasonRows[returnTableModel](ctx, r.db, "return_stats", returnColumns, season)
	if err != nil {
		return nil, err
	}
	for _, row := range returns {
		lines = append(lines, stats.Return{
			Ref:             stats.NewRef(row.PlayerKey, row.GameID),
			KickReturns:     row.KickReturns,
			KickReturnYards: row.KickReturnYards,
			KickReturnTDs:   row.KickReturnTDs,
			PuntReturns:     row.PuntReturns,
			PuntReturnYards: row.PuntReturnYards,
			PuntReturnTDs:   row.PuntReturnTDs,
		})
	}

	return lines, nil
}

type rowStatus int

const (
	rowInserted rowStatus = iota
	rowUpdated
	rowSkipped
)

func (s rowStatus) count(summary *ingest.UpsertSummary) {
	switch s {
	case rowInserted:
		summary.Inserted++
	case rowUpdated:
		summary.Updated++
	case rowSkipped:
		summary.Skipped++
	}
}

// upsertStatRow writes one variant row keyed (player_key, game_id). A row
// identical to the stored one is skipped without an exec.
func upsertStatRow[M comparable](ctx context.Context, db *sqlx.DB, table string, columns []string, playerKey, gameID string, model M, conflict string) (rowStatus, error) {
	query, args, err := qb.Select(columns...).
		From(table).
		Where(qb.Eq("player_key", playerKey), qb.Eq("game_id", gameID)).
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

func listSeasonRows[M any](ctx context.Context, db *sqlx.DB, table string, columns []string, season int) ([]M, error) {
	query, args, err := qb.Select(columns...).
		From(table).
		Where(qb.Expr("game_id IN (SELECT external_id FROM games WHERE season = ?)", season)).
		OrderBy("player_key", "game_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list %s query: %w", table, err)
	}

	var rows []M
	if err := db.SelectContext(ctx, &rows, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list %s season %d: %w", table, season, err)
	}
	return rows, nil
}
