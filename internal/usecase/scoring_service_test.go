package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/ingest"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/scoring"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/stats"
	"github.com/evgenk/nfl-fantasy-data/internal/platform/logging"
)

func TestScoringService_ScoreSeason_InvalidSeason(t *testing.T) {
	t.Parallel()

	svc := NewScoringService(stubRuleRepo{}, stubStatLineRepo{}, &captureFantasyRepo{}, &captureSeasonRepo{}, logging.NewNop())

	_, err := svc.ScoreSeason(context.Background(), 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got=%v", err)
	}
}

func TestScoringService_ScoreSeason_NoActiveRules(t *testing.T) {
	t.Parallel()

	svc := NewScoringService(stubRuleRepo{}, stubStatLineRepo{}, &captureFantasyRepo{}, &captureSeasonRepo{}, logging.NewNop())

	_, err := svc.ScoreSeason(context.Background(), 2024)
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got=%v", err)
	}
}

func TestScoringService_ScoreSeason_NoLines(t *testing.T) {
	t.Parallel()

	fantasy := &captureFantasyRepo{}
	seasons := &captureSeasonRepo{}
	svc := NewScoringService(stubRuleRepo{rules: scoring.DefaultRules()}, stubStatLineRepo{}, fantasy, seasons, logging.NewNop())

	report, err := svc.ScoreSeason(context.Background(), 2024)
	if err != nil {
		t.Fatalf("ScoreSeason error: %v", err)
	}
	if report.Lines != 0 || report.Games != 0 || report.Players != 0 {
		t.Fatalf("expected empty report, got=%+v", report)
	}
	if fantasy.records != nil || seasons.aggregates != nil {
		t.Fatalf("expected no persistence on an empty season")
	}
}

func TestScoringService_ScoreSeason_ComputesAndPersists(t *testing.T) {
	t.Parallel()

	lines := []stats.Line{
		stats.Passing{Ref: stats.NewRef("p1", "g1"), Attempts: 40, Completions: 28, Yards: 300, Touchdowns: 2, InterceptionsThrown: 1},
		stats.Rushing{Ref: stats.NewRef("p1", "g1"), Attempts: 5, Yards: 30, FumblesLost: 1},
		stats.Receiving{Ref: stats.NewRef("p2", "g1"), Targets: 8, Receptions: 5, Yards: 80, Touchdowns: 1},
		stats.Passing{Ref: stats.NewRef("p1", "g2"), Attempts: 10, Completions: 7, Yards: 100},
	}

	fantasy := &captureFantasyRepo{}
	seasons := &captureSeasonRepo{}
	svc := NewScoringService(stubRuleRepo{rules: scoring.DefaultRules()}, stubStatLineRepo{lines: lines}, fantasy, seasons, logging.NewNop())

	report, err := svc.ScoreSeason(context.Background(), 2024)
	if err != nil {
		t.Fatalf("ScoreSeason error: %v", err)
	}

	if report.Lines != 4 {
		t.Fatalf("expected 4 lines, got=%d", report.Lines)
	}
	if report.Games != 3 {
		t.Fatalf("expected 3 (player, game) groups, got=%d", report.Games)
	}
	if report.Players != 2 {
		t.Fatalf("expected 2 players, got=%d", report.Players)
	}
	if report.Fantasy.Inserted != 3 {
		t.Fatalf("expected 3 fantasy rows persisted, got=%+v", report.Fantasy)
	}
	if report.Aggregates.Inserted != 2 {
		t.Fatalf("expected 2 aggregates persisted, got=%+v", report.Aggregates)
	}

	if len(fantasy.records) != 3 {
		t.Fatalf("expected 3 fantasy records, got=%d", len(fantasy.records))
	}
	first := fantasy.records[0]
	if first.PlayerKey != "p1" || first.GameExternalID != "g1" {
		t.Fatalf("unexpected first record identity: %+v", first)
	}
	// 300*0.04 + 2*4 - 2 passing, 30*0.1 rushing, -2 for the lost fumble.
	assertClose(t, "passing bucket", first.Passing, 18.0)
	assertClose(t, "rushing bucket", first.Rushing, 3.0)
	assertClose(t, "misc bucket", first.Misc, -2.0)
	assertClose(t, "total", first.Total, 19.0)

	if len(seasons.aggregates) != 2 {
		t.Fatalf("expected 2 aggregates, got=%d", len(seasons.aggregates))
	}
	p1 := seasons.aggregates[0]
	if p1.PlayerKey != "p1" || p1.Season != 2024 {
		t.Fatalf("unexpected first aggregate identity: %+v", p1)
	}
	if p1.GamesPlayed != 2 {
		t.Fatalf("expected 2 games played for p1, got=%d", p1.GamesPlayed)
	}
	assertClose(t, "p1 total points", p1.TotalPoints, 23.0)
	assertClose(t, "p1 avg points", p1.AvgPoints, 11.5)
	assertClose(t, "p1 passing yards total", p1.StatTotals["passing_yards"], 400)

	p2 := seasons.aggregates[1]
	if p2.GamesPlayed != 1 {
		t.Fatalf("expected 1 game played for p2, got=%d", p2.GamesPlayed)
	}
	assertClose(t, "p2 total points", p2.TotalPoints, 16.5)
}

func assertClose(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s: got=%v want=%v", name, got, want)
	}
}

func TestScoringService_Leaders(t *testing.T) {
	t.Parallel()

	fantasy := &captureFantasyRepo{records: []scoring.FantasyPoints{
		{PlayerKey: "p1", GameExternalID: "g1", Total: 12.0},
		{PlayerKey: "p2", GameExternalID: "g1", Total: 31.5},
		{PlayerKey: "p1", GameExternalID: "g2", Total: 22.4},
	}}
	seasons := &captureSeasonRepo{aggregates: []scoring.SeasonAggregate{
		{PlayerKey: "p3", Season: 2024, GamesPlayed: 1, TotalPoints: 2.0, AvgPoints: 2.0},
		{PlayerKey: "p1", Season: 2024, GamesPlayed: 2, TotalPoints: 34.4, AvgPoints: 17.2},
		{PlayerKey: "p2", Season: 2024, GamesPlayed: 1, TotalPoints: 31.5, AvgPoints: 31.5},
	}}
	svc := NewScoringService(stubRuleRepo{}, stubStatLineRepo{}, fantasy, seasons, logging.NewNop())

	leaders, err := svc.Leaders(context.Background(), 2024, 2)
	if err != nil {
		t.Fatalf("Leaders: %v", err)
	}
	if len(leaders.Players) != 2 {
		t.Fatalf("players = %d, want 2", len(leaders.Players))
	}
	if leaders.Players[0].PlayerKey != "p1" || leaders.Players[1].PlayerKey != "p2" {
		t.Fatalf("player order = %s, %s", leaders.Players[0].PlayerKey, leaders.Players[1].PlayerKey)
	}
	if len(leaders.Games) != 2 {
		t.Fatalf("games = %d, want 2", len(leaders.Games))
	}
	if leaders.Games[0].PlayerKey != "p2" || leaders.Games[1].GameExternalID != "g2" {
		t.Fatalf("game order = %+v", leaders.Games)
	}
}

func TestScoringService_Leaders_InputValidation(t *testing.T) {
	t.Parallel()

	svc := NewScoringService(stubRuleRepo{}, stubStatLineRepo{}, &captureFantasyRepo{}, &captureSeasonRepo{}, logging.NewNop())

	if _, err := svc.Leaders(context.Background(), 0, 5); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("season 0: expected ErrInvalidInput, got=%v", err)
	}
	if _, err := svc.Leaders(context.Background(), 2024, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("limit 0: expected ErrInvalidInput, got=%v", err)
	}
}

type stubRuleRepo struct {
	rules []scoring.Rule
	err   error
}

func (r stubRuleRepo) ListActive(_ context.Context) ([]scoring.Rule, error) {
	return r.rules, r.err
}

func (r stubRuleRepo) Upsert(_ context.Context, _ []scoring.Rule) (ingest.UpsertSummary, error) {
	return ingest.UpsertSummary{}, nil
}

func (r stubRuleRepo) InsertMissing(_ context.Context, _ []scoring.Rule) (ingest.UpsertSummary, error) {
	return ingest.UpsertSummary{}, nil
}

type stubStatLineRepo struct {
	lines []stats.Line
	err   error
}

func (r stubStatLineRepo) Upsert(_ context.Context, _ []stats.Line) (ingest.UpsertSummary, error) {
	return ingest.UpsertSummary{}, nil
}

func (r stubStatLineRepo) ListBySeason(_ context.Context, _ int) ([]stats.Line, error) {
	return r.lines, r.err
}

type captureFantasyRepo struct {
	records []scoring.FantasyPoints
	err     error
}

func (r *captureFantasyRepo) Upsert(_ context.Context, records []scoring.FantasyPoints) (ingest.UpsertSummary, error) {
	if r.err != nil {
		return ingest.UpsertSummary{}, r.err
	}
	r.records = records
	return ingest.UpsertSummary{Inserted: len(records)}, nil
}

func (r *captureFantasyRepo) ListBySeason(_ context.Context, _ int) ([]scoring.FantasyPoints, error) {
	return r.records, nil
}

type captureSeasonRepo struct {
	aggregates []scoring.SeasonAggregate
	err        error
}

func (r *captureSeasonRepo) Upsert(_ context.Context, aggregates []scoring.SeasonAggregate) (ingest.UpsertSummary, error) {
	if r.err != nil {
		return ingest.UpsertSummary{}, r.err
	}
	r.aggregates = aggregates
	return ingest.UpsertSummary{Inserted: len(aggregates)}, nil
}

func (r *captureSeasonRepo) ListBySeason(_ context.Context, _ int) ([]scoring.SeasonAggregate, error) {
	return r.aggregates, nil
}
