package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/game"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/ingest"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/player"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/scoring"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/stats"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/team"
	"github.com/evgenk/nfl-fantasy-data/internal/platform/logging"
	"github.com/evgenk/nfl-fantasy-data/internal/source"
	"github.com/evgenk/nfl-fantasy-data/internal/validate"
)

func TestNewPipelineService_RequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewPipelineService(PipelineParams{})
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got=%v", err)
	}
}

func TestPipelineService_Run_InputValidation(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture()
	svc := fx.service(t)

	if _, err := svc.Run(context.Background(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty seasons, got=%v", err)
	}
	if _, err := svc.Run(context.Background(), []int{1919}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for pre-NFL season, got=%v", err)
	}
}

func TestPipelineService_Run_FullSeason(t *testing.T) {
	t.Parallel()

	var statFetches atomic.Int32
	fx := newPipelineFixture()
	fx.statAdapter = func(sel source.Selector) ([]stats.Line, error) {
		statFetches.Add(1)
		return []stats.Line{
			stats.Passing{Ref: stats.NewRef("3139477", sel.GameExternalID), Attempts: 30, Completions: 20, Yards: 300, Touchdowns: 2},
		}, nil
	}
	svc := fx.service(t)

	report, err := svc.Run(context.Background(), []int{2024})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(report.Seasons) != 1 {
		t.Fatalf("expected 1 season report, got=%d", len(report.Seasons))
	}

	season := report.Seasons[0]
	if season.Failed() {
		t.Fatalf("expected clean season, got stages=%+v", season.Stages)
	}
	wantStages := []string{
		StageTeams, StageGames, StagePlayers, StageParticipations,
		StageStats, StageFantasyPoints, StageSeasonStats,
	}
	if len(season.Stages) != len(wantStages) {
		t.Fatalf("expected %d stages, got=%d", len(wantStages), len(season.Stages))
	}
	for i, want := range wantStages {
		if season.Stages[i].Stage != want {
			t.Fatalf("stage %d: expected %s, got=%s", i, want, season.Stages[i].Stage)
		}
	}

	teamsStage := season.Stages[0]
	if teamsStage.Persisted.Inserted != 2 || teamsStage.Source != "static" {
		t.Fatalf("unexpected teams stage: %+v", teamsStage)
	}
	gamesStage := season.Stages[1]
	if gamesStage.Fetched != 2 || gamesStage.Persisted.Inserted != 2 {
		t.Fatalf("unexpected games stage: %+v", gamesStage)
	}

	// One of the two roster fetches fails; the stage still persists the
	// roster it got and does not report a stage error.
	playersStage := season.Stages[2]
	if playersStage.Fetched != 1 || playersStage.Persisted.Inserted != 1 || playersStage.Err != "" {
		t.Fatalf("unexpected players stage: %+v", playersStage)
	}

	partStage := season.Stages[3]
	if partStage.Fetched != 1 || partStage.Persisted.Inserted != 1 {
		t.Fatalf("unexpected participations stage: %+v", partStage)
	}

	// Boxscores are only fetched for the final game, never the scheduled one.
	if got := statFetches.Load(); got != 1 {
		t.Fatalf("expected 1 stat fetch, got=%d", got)
	}
	statsStage := season.Stages[4]
	if statsStage.Fetched != 1 || statsStage.Persisted.Inserted != 1 {
		t.Fatalf("unexpected stats stage: %+v", statsStage)
	}

	fantasyStage := season.Stages[5]
	if fantasyStage.Fetched != 1 || fantasyStage.Persisted.Inserted != 1 {
		t.Fatalf("unexpected fantasy stage: %+v", fantasyStage)
	}
	aggStage := season.Stages[6]
	if aggStage.Fetched != 1 || aggStage.Persisted.Inserted != 1 {
		t.Fatalf("unexpected aggregates stage: %+v", aggStage)
	}

	if len(fx.fantasy.records) != 1 || fx.fantasy.records[0].PlayerKey != "3139477" {
		t.Fatalf("unexpected fantasy records: %+v", fx.fantasy.records)
	}
	if len(fx.seasons.aggregates) != 1 || fx.seasons.aggregates[0].Season != 2024 {
		t.Fatalf("unexpected aggregates: %+v", fx.seasons.aggregates)
	}
}

func TestPipelineService_Run_GameStageFailureStopsSeasonOnly(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture()
	fx.gameAdapter = func(_ source.Selector) ([]game.Game, error) {
		return nil, source.ErrUnavailable
	}
	svc := fx.service(t)

	report, err := svc.Run(context.Background(), []int{2024})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	season := report.Seasons[0]
	if !season.Failed() {
		t.Fatalf("expected failed season, got=%+v", season)
	}
	// With no games stored the roster, participation and stat stages are
	// skipped for this season.
	if len(season.Stages) != 2 {
		t.Fatalf("expected 2 stages, got=%+v", season.Stages)
	}
	if season.Stages[1].Stage != StageGames || season.Stages[1].Err == "" {
		t.Fatalf("expected games stage error, got=%+v", season.Stages[1])
	}
}

func TestPipelineService_Run_CancelledBetweenSeasons(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture()
	svc := fx.service(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.Run(ctx, []int{2023, 2024})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got=%v", err)
	}
	if len(report.Seasons) != 0 {
		t.Fatalf("expected no seasons processed, got=%d", len(report.Seasons))
	}
}

// pipelineFixture wires the service with one static source per kind and
// in-memory repositories. Individual tests override the adapter funcs.
type pipelineFixture struct {
	teamAdapter   func(source.Selector) ([]team.Team, error)
	gameAdapter   func(source.Selector) ([]game.Game, error)
	rosterAdapter func(source.Selector) ([]player.Player, error)
	partAdapter   func(source.Selector) ([]game.Participation, error)
	statAdapter   func(source.Selector) ([]stats.Line, error)

	teamRepo   *memTeamRepo
	playerRepo *memPlayerRepo
	gameRepo   *memGameRepo
	partRepo   *memParticipationRepo
	statRepo   *memStatRepo
	fantasy    *captureFantasyRepo
	seasons    *captureSeasonRepo
}

func newPipelineFixture() *pipelineFixture {
	finalGame := game.Game{
		ExternalID: "espn-1",
		Season:     2024,
		Week:       1,
		Date:       time.Date(2024, 9, 8, 17, 0, 0, 0, time.UTC),
		HomeTeam:   "KC",
		AwayTeam:   "BUF",
		HomeScore:  intPtr(27),
		AwayScore:  intPtr(20),
		Type:       game.TypeRegular,
	}
	scheduledGame := game.Game{
		ExternalID: "espn-2",
		Season:     2024,
		Week:       2,
		Date:       time.Date(2024, 9, 15, 17, 0, 0, 0, time.UTC),
		HomeTeam:   "BUF",
		AwayTeam:   "KC",
		Type:       game.TypeRegular,
	}

	return &pipelineFixture{
		teamAdapter: func(_ source.Selector) ([]team.Team, error) {
			return []team.Team{
				{Code: "KC", Name: "Kansas City Chiefs", Conference: "AFC", Division: "West"},
				{Code: "BUF", Name: "Buffalo Bills", Conference: "AFC", Division: "East"},
			}, nil
		},
		gameAdapter: func(_ source.Selector) ([]game.Game, error) {
			return []game.Game{finalGame, scheduledGame}, nil
		},
		rosterAdapter: func(sel source.Selector) ([]player.Player, error) {
			if sel.TeamCode != "KC" {
				return nil, source.ErrUnavailable
			}
			return []player.Player{
				{ExternalID: "3139477", Name: "Patrick Mahomes", Position: player.PositionQuarterback, TeamCode: "KC", HeightIn: 74, WeightLb: 225, Active: true},
			}, nil
		},
		partAdapter: func(sel source.Selector) ([]game.Participation, error) {
			return []game.Participation{
				{PlayerKey: "3139477", GameExternalID: sel.GameExternalID, TeamCode: "KC", Played: true},
			}, nil
		},
		statAdapter: func(sel source.Selector) ([]stats.Line, error) {
			return []stats.Line{
				stats.Passing{Ref: stats.NewRef("3139477", sel.GameExternalID), Attempts: 30, Completions: 20, Yards: 300, Touchdowns: 2},
			}, nil
		},
		teamRepo:   &memTeamRepo{},
		playerRepo: &memPlayerRepo{},
		gameRepo:   &memGameRepo{},
		partRepo:   &memParticipationRepo{},
		statRepo:   &memStatRepo{},
		fantasy:    &captureFantasyRepo{},
		seasons:    &captureSeasonRepo{},
	}
}

func (f *pipelineFixture) service(t *testing.T) *PipelineService {
	t.Helper()

	v := validate.New()
	log := logging.NewNop()

	svc, err := NewPipelineService(PipelineParams{
		Teams:          source.NewOrchestrator("teams", v.Teams, 0, log, stubAdapter[team.Team]{name: "static", fn: f.teamAdapter}),
		Games:          source.NewOrchestrator("games", v.Games, 0, log, stubAdapter[game.Game]{name: "static", fn: f.gameAdapter}),
		Rosters:        source.NewOrchestrator("players", v.Players, 0, log, stubAdapter[player.Player]{name: "static", fn: f.rosterAdapter}),
		Participations: source.NewOrchestrator("participations", v.Participations, 0, log, stubAdapter[game.Participation]{name: "static", fn: f.partAdapter}),
		Stats:          source.NewOrchestrator("stats", v.Lines, 0, log, stubAdapter[stats.Line]{name: "static", fn: f.statAdapter}),

		TeamRepo:          f.teamRepo,
		PlayerRepo:        f.playerRepo,
		GameRepo:          f.gameRepo,
		ParticipationRepo: f.partRepo,
		StatRepo:          f.statRepo,

		Validator: v,
		Scoring:   NewScoringService(stubRuleRepo{rules: scoring.DefaultRules()}, f.statRepo, f.fantasy, f.seasons, log),
		Workers:   2,
		Logger:    log,
	})
	if err != nil {
		t.Fatalf("NewPipelineService error: %v", err)
	}
	return svc
}

func intPtr(i int) *int { return &i }

type stubAdapter[T any] struct {
	name string
	prio source.Priority
	fn   func(source.Selector) ([]T, error)
}

func (a stubAdapter[T]) Name() string              { return a.name }
func (a stubAdapter[T]) Priority() source.Priority { return a.prio }

func (a stubAdapter[T]) Fetch(_ context.Context, sel source.Selector) ([]T, error) {
	return a.fn(sel)
}

type memTeamRepo struct {
	teams []team.Team
}

func (r *memTeamRepo) Upsert(_ context.Context, teams []team.Team) (ingest.UpsertSummary, error) {
	r.teams = teams
	return ingest.UpsertSummary{Inserted: len(teams)}, nil
}

func (r *memTeamRepo) List(_ context.Context) ([]team.Team, error) {
	return r.teams, nil
}

type memPlayerRepo struct {
	players []player.Player
}

func (r *memPlayerRepo) Upsert(_ context.Context, players []player.Player) (ingest.UpsertSummary, error) {
	r.players = players
	return ingest.UpsertSummary{Inserted: len(players)}, nil
}

func (r *memPlayerRepo) KeysByAlias(_ context.Context) (map[string]string, error) {
	aliases := make(map[string]string, len(r.players))
	for _, p := range r.players {
		aliases[p.NaturalKey()] = p.NaturalKey()
	}
	return aliases, nil
}

func (r *memPlayerRepo) List(_ context.Context) ([]player.Player, error) {
	return r.players, nil
}

type memGameRepo struct {
	games []game.Game
}

func (r *memGameRepo) Upsert(_ context.Context, games []game.Game) (ingest.UpsertSummary, error) {
	r.games = games
	return ingest.UpsertSummary{Inserted: len(games)}, nil
}

func (r *memGameRepo) ListBySeason(_ context.Context, season int) ([]game.Game, error) {
	var out []game.Game
	for _, g := range r.games {
		if g.Season == season {
			out = append(out, g)
		}
	}
	return out, nil
}

type memParticipationRepo struct {
	rows []game.Participation
}

func (r *memParticipationRepo) Upsert(_ context.Context, rows []game.Participation) (ingest.UpsertSummary, error) {
	r.rows = rows
	return ingest.UpsertSummary{Inserted: len(rows)}, nil
}

// memStatRepo is written to from pool workers, so it locks.
type memStatRepo struct {
	mu    sync.Mutex
	lines []stats.Line
}

func (r *memStatRepo) Upsert(_ context.Context, lines []stats.Line) (ingest.UpsertSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, lines...)
	return ingest.UpsertSummary{Inserted: len(lines)}, nil
}

func (r *memStatRepo) ListBySeason(_ context.Context, _ int) ([]stats.Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stats.Line(nil), r.lines...), nil
}
