package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/ingest"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/player"
	qb "github.com/evgenk/nfl-fantasy-data/internal/platform/querybuilder"
)

// TeamCode is nullable: a free agent has no team and must not trip the
// foreign key into teams.
type playerTableModel struct {
	NaturalKey string         `db:"natural_key"`
	ExternalID string         `db:"external_id"`
	Name       string         `db:"name"`
	Position   string         `db:"position"`
	TeamCode   sql.NullString `db:"team_code"`
	HeightIn   int            `db:"height_in"`
	WeightLb   int            `db:"weight_lb"`
	Active     bool           `db:"active"`
}

var playerColumns = []string{
	"natural_key", "external_id", "name", "position",
	"team_code", "height_in", "weight_lb", "active",
}

type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Upsert writes players keyed by natural key. Name and position are
// fixed at insert; team, physicals and the active flag track the latest
// extraction. A later pass never blanks an external id.
func (r *PlayerRepository) Upsert(ctx context.Context, players []player.Player) (ingest.UpsertSummary, error) {
	var summary ingest.UpsertSummary

	for _, p := range players {
		key := p.NaturalKey()
		if err := p.Validate(); err != nil {
			summary.RecordFailure(key, err.Error())
			continue
		}

		existing, err := r.getByKey(ctx, key)
		if err != nil && !isNotFound(err) {
			summary.RecordFailure(key, err.Error())
			continue
		}
		found := err == nil
		if found && existing.TeamCode.String == p.TeamCode &&
			existing.HeightIn == p.HeightIn && existing.WeightLb == p.WeightLb &&
			existing.Active == p.Active {
			summary.Skipped++
			continue
		}

		model := playerTableModel{
			NaturalKey: key,
			ExternalID: p.ExternalID,
			Name:       p.Name,
			Position:   string(p.Position),
			TeamCode:   strToNullStr(p.TeamCode),
			HeightIn:   p.HeightIn,
			WeightLb:   p.WeightLb,
			Active:     p.Active,
		}
		query, args, err := qb.InsertModel("players", model, `ON CONFLICT (natural_key) DO UPDATE SET
			external_id = CASE WHEN EXCLUDED.external_id = '' THEN players.external_id ELSE EXCLUDED.external_id END,
			team_code = EXCLUDED.team_code,
			height_in = EXCLUDED.height_in,
			weight_lb = EXCLUDED.weight_lb,
			active = EXCLUDED.active,
			updated_at = CURRENT_TIMESTAMP`)
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

func (r *PlayerRepository) getByKey(ctx context.Context, key string) (playerTableModel, error) {
	query, args, err := qb.Select(playerColumns...).
		From("players").
		Where(qb.Eq("natural_key", key)).
		ToSQL()
	if err != nil {
		return playerTableModel{}, fmt.Errorf("build select player query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), args...); err != nil {
		return playerTableModel{}, err
	}
	return row, nil
}

// KeysByAlias maps natural key, external id and bare name onto each
// player's natural key. Bare names are dropped when two players share
// one, a name alone cannot identify either.
func (r *PlayerRepository) KeysByAlias(ctx context.Context) (map[string]string, error) {
	query, args, err := qb.Select("natural_key", "external_id", "name").
		From("players").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build player aliases query: %w", err)
	}

	var rows []struct {
		NaturalKey string `db:"natural_key"`
		ExternalID string `db:"external_id"`
		Name       string `db:"name"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list player aliases: %w", err)
	}

	out := make(map[string]string, len(rows)*2)
	ambiguousNames := make(map[string]struct{})
	for _, row := range rows {
		out[row.NaturalKey] = row.NaturalKey
		if row.ExternalID != "" {
			out[row.ExternalID] = row.NaturalKey
		}
		if _, taken := out[row.Name]; taken && out[row.Name] != row.NaturalKey {
			ambiguousNames[row.Name] = struct{}{}
			continue
		}
		out[row.Name] = row.NaturalKey
	}
	for name := range ambiguousNames {
		delete(out, name)
	}
	return out, nil
}

func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	query, args, err := qb.Select(playerColumns...).
		From("players").
		OrderBy("natural_key").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list players query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, player.Player{
			ExternalID: row.ExternalID,
			Name:       row.Name,
			Position:   player.Position(row.Position),
			TeamCode:   row.TeamCode.String,
			HeightIn:   row.HeightIn,
			WeightLb:   row.WeightLb,
			Active:     row.Active,
		})
	}
	return out, nil
}
