package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/game"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/ingest"
	qb "github.com/evgenk/nfl-fantasy-data/internal/platform/querybuilder"
)

// gameTableModel stores game_date as unix seconds so the column reads
// back identically from both engines.
type gameTableModel struct {
	ExternalID string        `db:"external_id"`
	Season     int           `db:"season"`
	Week       int           `db:"week"`
	GameDate   int64         `db:"game_date"`
	HomeTeam   string        `db:"home_team"`
	AwayTeam   string        `db:"away_team"`
	HomeScore  sql.NullInt64 `db:"home_score"`
	AwayScore  sql.NullInt64 `db:"away_score"`
	GameType   string        `db:"game_type"`
}

var gameColumns = []string{
	"external_id", "season", "week", "game_date",
	"home_team", "away_team", "home_score", "away_score", "game_type",
}

type GameRepository struct {
	db *sqlx.DB
}

func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

// Upsert writes games keyed by external id. Scores only ever move from
// NULL to a value: a source that answers with a scheduled-looking row
// for a finished game cannot blank the recorded result.
func (r *GameRepository) Upsert(ctx context.Context, games []game.Game) (ingest.UpsertSummary, error) {
	var summary ingest.UpsertSummary

	for _, g := range games {
		if err := g.Validate(); err != nil {
			summary.RecordFailure(g.ExternalID, err.Error())
			continue
		}

		existing, err := r.getByExternalID(ctx, g.ExternalID)
		if err != nil && !isNotFound(err) {
			summary.RecordFailure(g.ExternalID, err.Error())
			continue
		}
		found := err == nil
		if found && sameGameRow(existing, g) {
			summary.Skipped++
			continue
		}

		model := gameTableModel{
			ExternalID: g.ExternalID,
			Season:     g.Season,
			Week:       g.Week,
			GameDate:   g.Date.Unix(),
			HomeTeam:   g.HomeTeam,
			AwayTeam:   g.AwayTeam,
			HomeScore:  ptrToNullInt(g.HomeScore),
			AwayScore:  ptrToNullInt(g.AwayScore),
			GameType:   string(g.Type),
		}
		query, args, err := qb.InsertModel("games", model, `ON CONFLICT (external_id) DO UPDATE SET
			week = EXCLUDED.week,
			game_date = EXCLUDED.game_date,
			home_score = COALESCE(EXCLUDED.home_score, games.home_score),
			away_score = COALESCE(EXCLUDED.away_score, games.away_score),
			game_type = EXCLUDED.game_type,
			updated_at = CURRENT_TIMESTAMP`)
		if err != nil {
			summary.RecordFailure(g.ExternalID, err.Error())
			continue
		}
		if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
			summary.RecordFailure(g.ExternalID, err.Error())
			continue
		}

		if found {
			summary.Updated++
		} else {
			summary.Inserted++
		}
	}

	return summary, nil
}

func sameGameRow(row gameTableModel, g game.Game) bool {
	if row.Week != g.Week || row.GameType != string(g.Type) {
		return false
	}
	home, away := nullIntToPtr(row.HomeScore), nullIntToPtr(row.AwayScore)
	if !sameScore(home, g.HomeScore) || !sameScore(away, g.AwayScore) {
		return false
	}
	return row.GameDate == g.Date.Unix()
}

func sameScore(a, b *int) bool {
	if (a == nil) != (b == nil) {
		// An incoming nil score never reverts a stored one.
		return b == nil
	}
	return a == nil || *a == *b
}

func (r *GameRepository) getByExternalID(ctx context.Context, externalID string) (gameTableModel, error) {
	query, args, err := qb.Select(gameColumns...).
		From("games").
		Where(qb.Eq("external_id", externalID)).
		ToSQL()
	if err != nil {
		return gameTableModel{}, fmt.Errorf("build select game query: %w", err)
	}

	var row gameTableModel
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), args...); err != nil {
		return gameTableModel{}, err
	}
	return row, nil
}

func (r *GameRepository) ListBySeason(ctx context.Context, season int) ([]game.Game, error) {
	query, args, err := qb.Select(gameColumns...).
		From("games").
		Where(qb.Eq("season", season)).
		OrderBy("week", "game_date", "external_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list games query: %w", err)
	}

	var rows []gameTableModel
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list games season %d: %w", season, err)
	}

	out := make([]game.Game, 0, len(rows))
	for _, row := range rows {
		out = append(out, game.Game{
			ExternalID: row.ExternalID,
			Season:     row.Season,
			Week:       row.Week,
			Date:       time.Unix(row.GameDate, 0).UTC(),
			HomeTeam:   row.HomeTeam,
			AwayTeam:   row.AwayTeam,
			HomeScore:  nullIntToPtr(row.HomeScore),
			AwayScore:  nullIntToPtr(row.AwayScore),
			Type:       game.Type(row.GameType),
		})
	}
	return out, nil
}

type participationTableModel struct {
	PlayerKey string `db:"player_key"`
	GameID    string `db:"game_id"`
	TeamCode  string `db:"team_code"`
	Played    bool   `db:"played"`
}

type ParticipationRepository struct {
	db      *sqlx.DB
	players *PlayerRepository
}

func NewParticipationRepository(db *sqlx.DB, players *PlayerRepository) *ParticipationRepository {
	return &ParticipationRepository{db: db, players: players}
}

// Upsert writes player-game links, resolving whatever player alias the
// source used onto the canonical key. Rows for unknown players fail
// individually and the batch continues.
func (r *ParticipationRepository) Upsert(ctx context.Context, rows []game.Participation) (ingest.UpsertSummary, error) {
	var summary ingest.UpsertSummary

	aliases, err := r.players.KeysByAlias(ctx)
	if err != nil {
		return summary, err
	}

	for _, p := range rows {
		key := p.PlayerKey + "/" + p.GameExternalID
		if err := p.Validate(); err != nil {
			summary.RecordFailure(key, err.Error())
			continue
		}

		playerKey, ok := aliases[p.PlayerKey]
		if !ok {
			summary.RecordFailure(key, "unknown player "+p.PlayerKey)
			continue
		}

		existing, err := r.getRow(ctx, playerKey, p.GameExternalID)
		if err != nil && !isNotFound(err) {
			summary.RecordFailure(key, err.Error())
			continue
		}
		found := err == nil
		if found && existing.TeamCode == p.TeamCode && existing.Played == p.Played {
			summary.Skipped++
			continue
		}

		model := participationTableModel{
			PlayerKey: playerKey,
			GameID:    p.GameExternalID,
			TeamCode:  p.TeamCode,
			Played:    p.Played,
		}
		query, args, err := qb.InsertModel("player_games", model, `ON CONFLICT (player_key, game_id) DO UPDATE SET
			team_code = EXCLUDED.team_code,
			played = EXCLUDED.played`)
		if err != nil {
			summary.RecordFailure(key, err.Error())
			continue
		}
		if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
			summary.RecordFailure(key, err.Error())
			continue
		}

		if found {
			summary.Updated++
		} else {
			summary.Inserted++
		}
	}

	return summary, nil
}

func (r *ParticipationRepository) getRow(ctx context.Context, playerKey, gameID string) (participationTableModel, error) {
	query, args, err := qb.Select("player_key", "game_id", "team_code", "played").
		From("player_games").
		Where(qb.Eq("player_key", playerKey), qb.Eq("game_id", gameID)).
		ToSQL()
	if err != nil {
		return participationTableModel{}, fmt.Errorf("build select participation query: %w", err)
	}

	var row participationTableModel
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), args...); err != nil {
		return participationTableModel{}, err
	}
	return row, nil
}
