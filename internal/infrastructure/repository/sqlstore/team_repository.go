package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/ingest"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/team"
	qb "github.com/evgenk/nfl-fantasy-data/internal/platform/querybuilder"
)

type teamTableModel struct {
	Code       string `db:"code"`
	Name       string `db:"name"`
	Conference string `db:"conference"`
	Division   string `db:"division"`
}

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// Upsert writes teams keyed by code. Conference and division are set on
// insert and never changed afterwards; only the display name follows
// later extractions.
func (r *TeamRepository) Upsert(ctx context.Context, teams []team.Team) (ingest.UpsertSummary, error) {
	var summary ingest.UpsertSummary

	for _, t := range teams {
		if err := t.Validate(); err != nil {
			summary.RecordFailure(t.Code, err.Error())
			continue
		}

		existing, err := r.getByCode(ctx, t.Code)
		if err != nil && !isNotFound(err) {
			summary.RecordFailure(t.Code, err.Error())
			continue
		}
		found := err == nil
		if found && existing.Name == t.Name {
			summary.Skipped++
			continue
		}

		model := teamTableModel{
			Code:       t.Code,
			Name:       t.Name,
			Conference: t.Conference,
			Division:   t.Division,
		}
		query, args, err := qb.InsertModel("teams", model, `ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = CURRENT_TIMESTAMP`)
		if err != nil {
			summary.RecordFailure(t.Code, err.Error())
			continue
		}
		if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
			summary.RecordFailure(t.Code, err.Error())
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

func (r *TeamRepository) getByCode(ctx context.Context, code string) (teamTableModel, error) {
	query, args, err := qb.Select("code", "name", "conference", "division").
		From("teams").
		Where(qb.Eq("code", code)).
		ToSQL()
	if err != nil {
		return teamTableModel{}, fmt.Errorf("build select team query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), args...); err != nil {
		return teamTableModel{}, err
	}
	return row, nil
}

func (r *TeamRepository) List(ctx context.Context) ([]team.Team, error) {
	query, args, err := qb.Select("code", "name", "conference", "division").
		From("teams").
		OrderBy("code").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list teams query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, team.Team{
			Code:       row.Code,
			Name:       row.Name,
			Conference: row.Conference,
			Division:   row.Division,
		})
	}
	return out, nil
}
