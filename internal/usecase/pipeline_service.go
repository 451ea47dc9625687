package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/game"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/ingest"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/player"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/stats"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/team"
	"github.com/evgenk/nfl-fantasy-data/internal/platform/logging"
	"github.com/evgenk/nfl-fantasy-data/internal/source"
	"github.com/evgenk/nfl-fantasy-data/internal/validate"
)

const (
	StageTeams          = "teams"
	StageGames          = "games"
	StagePlayers        = "players"
	StageParticipations = "participations"
	StageStats          = "stats"
	StageFantasyPoints  = "fantasy_points"
	StageSeasonStats    = "season_aggregates"
)

const defaultPipelineWorkers = 4

// StageSummary is the report row for one pipeline stage of one season.
// Fetched counts records before validation; Source names the adapter(s)
// that supplied the accepted batches.
type StageSummary struct {
	Stage     string
	Source    string
	Fetched   int
	Rejected  int
	Persisted ingest.UpsertSummary
	Err       string
}

type SeasonReport struct {
	Season int
	Stages []StageSummary
}

func (r *SeasonReport) add(stage StageSummary) {
	r.Stages = append(r.Stages, stage)
}

// Failed reports whether any stage of the season recorded an error.
func (r SeasonReport) Failed() bool {
	for _, stage := range r.Stages {
		if stage.Err != "" {
			return true
		}
	}
	return false
}

type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Seasons    []SeasonReport
}

// PipelineParams wires the extraction pipeline. Every orchestrator and
// repository is required; Validator, Workers and Logger have defaults.
type PipelineParams struct {
	Teams          *source.Orchestrator[team.Team]
	Games          *source.Orchestrator[game.Game]
	Rosters        *source.Orchestrator[player.Player]
	Participations *source.Orchestrator[game.Participation]
	Stats          *source.Orchestrator[stats.Line]

	TeamRepo          team.Repository
	PlayerRepo        player.Repository
	GameRepo          game.Repository
	ParticipationRepo game.ParticipationRepository
	StatRepo          stats.Repository

	Validator *validate.Validator
	Scoring   *ScoringService
	Workers   int
	Logger    *logging.Logger
}

// PipelineService runs the extraction stages for a season in dependency
// order: teams, games, rosters, participations, stat lines, then the
// scoring pass. One season's failure never aborts the others.
type PipelineService struct {
	teamSource          *source.Orchestrator[team.Team]
	gameSource          *source.Orchestrator[game.Game]
	rosterSource        *source.Orchestrator[player.Player]
	participationSource *source.Orchestrator[game.Participation]
	statSource          *source.Orchestrator[stats.Line]

	teamRepo          team.Repository
	playerRepo        player.Repository
	gameRepo          game.Repository
	participationRepo game.ParticipationRepository
	statRepo          stats.Repository

	validator *validate.Validator
	scoring   *ScoringService
	workers   int
	logger    *logging.Logger
}

func NewPipelineService(p PipelineParams) (*PipelineService, error) {
	if p.Teams == nil || p.Games == nil || p.Rosters == nil || p.Participations == nil || p.Stats == nil {
		return nil, fmt.Errorf("%w: all source orchestrators are required", ErrDependencyUnavailable)
	}
	if p.TeamRepo == nil || p.PlayerRepo == nil || p.GameRepo == nil || p.ParticipationRepo == nil || p.StatRepo == nil {
		return nil, fmt.Errorf("%w: all repositories are required", ErrDependencyUnavailable)
	}
	if p.Scoring == nil {
		return nil, fmt.Errorf("%w: scoring service is required", ErrDependencyUnavailable)
	}
	if p.Validator == nil {
		p.Validator = validate.New()
	}
	if p.Workers <= 0 {
		p.Workers = defaultPipelineWorkers
	}
	if p.Logger == nil {
		p.Logger = logging.Default()
	}

	return &PipelineService{
		teamSource:          p.Teams,
		gameSource:          p.Games,
		rosterSource:        p.Rosters,
		participationSource: p.Participations,
		statSource:          p.Stats,
		teamRepo:            p.TeamRepo,
		playerRepo:          p.PlayerRepo,
		gameRepo:            p.GameRepo,
		participationRepo:   p.ParticipationRepo,
		statRepo:            p.StatRepo,
		validator:           p.Validator,
		scoring:             p.Scoring,
		workers:             p.Workers,
		logger:              p.Logger,
	}, nil
}

// Run extracts and scores the given seasons in order. Cancellation stops
// new fetches; writes already handed to a repository run to completion.
func (s *PipelineService) Run(ctx context.Context, seasons []int) (RunReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PipelineService.Run")
	defer span.End()

	if len(seasons) == 0 {
		return RunReport{}, fmt.Errorf("%w: at least one season is required", ErrInvalidInput)
	}
	for _, season := range seasons {
		if season < 1920 {
			return RunReport{}, fmt.Errorf("%w: invalid season %d", ErrInvalidInput, season)
		}
	}

	report := RunReport{StartedAt: time.Now()}
	for _, season := range seasons {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now()
			return report, fmt.Errorf("pipeline run: %w", err)
		}
		report.Seasons = append(report.Seasons, s.runSeason(ctx, season))
	}
	report.FinishedAt = time.Now()
	return report, nil
}

func (s *PipelineService) runSeason(ctx context.Context, season int) SeasonReport {
	seasonReport := SeasonReport{Season: season}
	persistCtx := context.WithoutCancel(ctx)
	log := s.logger.With("season", season)

	log.InfoContext(ctx, "season extraction started")

	seasonReport.add(s.syncTeams(ctx, persistCtx, season))

	gamesStage, seasonGames := s.syncGames(ctx, persistCtx, season)
	seasonReport.add(gamesStage)
	if len(seasonGames) == 0 {
		log.WarnContext(ctx, "no games available, skipping remaining stages")
		return seasonReport
	}

	seasonReport.add(s.syncRosters(ctx, persistCtx, season))
	seasonReport.add(s.syncParticipations(ctx, persistCtx, season, seasonGames))
	seasonReport.add(s.syncStats(ctx, persistCtx, season, seasonGames))

	scoreReport, err := s.scoring.ScoreSeason(ctx, season)
	if err != nil {
		seasonReport.add(StageSummary{Stage: StageFantasyPoints, Err: err.Error()})
		return seasonReport
	}
	seasonReport.add(StageSummary{Stage: StageFantasyPoints, Fetched: scoreReport.Lines, Persisted: scoreReport.Fantasy})
	seasonReport.add(StageSummary{Stage: StageSeasonStats, Fetched: scoreReport.Players, Persisted: scoreReport.Aggregates})

	log.InfoContext(ctx, "season extraction finished",
		"stages", len(seasonReport.Stages),
		"failed", seasonReport.Failed(),
	)
	return seasonReport
}

func (s *PipelineService) syncTeams(ctx, persistCtx context.Context, season int) StageSummary {
	stage := StageSummary{Stage: StageTeams}

	res, err := s.teamSource.Fetch(ctx, source.Selector{Season: season})
	if err != nil {
		stage.Err = err.Error()
		return stage
	}
	stage.Source = res.Source
	stage.Fetched = len(res.Records) + len(res.Rejected)
	stage.Rejected = len(res.Rejected)

	summary, err := s.teamRepo.Upsert(persistCtx, res.Records)
	stage.Persisted = summary
	if err != nil {
		stage.Err = err.Error()
	}
	return stage
}

func (s *PipelineService) syncGames(ctx, persistCtx context.Context, season int) (StageSummary, []game.Game) {
	stage := StageSummary{Stage: StageGames}

	res, err := s.gameSource.Fetch(ctx, source.Selector{Season: season})
	if err != nil {
		stage.Err = err.Error()
	} else {
		stage.Source = res.Source
		stage.Fetched = len(res.Records) + len(res.Rejected)
		stage.Rejected = len(res.Rejected)

		summary, uerr := s.gameRepo.Upsert(persistCtx, res.Records)
		stage.Persisted = summary
		if uerr != nil {
			stage.Err = uerr.Error()
		}
	}

	// Later stages iterate the stored schedule, not the fetched batch,
	// so a season with a failed refresh still processes known games.
	seasonGames, err := s.gameRepo.ListBySeason(ctx, season)
	if err != nil {
		if stage.Err == "" {
			stage.Err = err.Error()
		}
		return stage, nil
	}
	if err := s.validator.SeasonGameCount(season, len(seasonGames)); err != nil {
		s.logger.WarnContext(ctx, "season game count outside expected window",
			"season", season,
			"games", len(seasonGames),
			"error", err,
		)
	}
	return stage, seasonGames
}

func (s *PipelineService) syncRosters(ctx, persistCtx context.Context, season int) StageSummary {
	stage := StageSummary{Stage: StagePlayers}

	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		stage.Err = err.Error()
		return stage
	}
	if len(teams) == 0 {
		stage.Err = "no teams available for roster extraction"
		return stage
	}

	var players []player.Player
	sources := make(map[string]int)
	failures := 0
	for _, t := range teams {
		if ctx.Err() != nil {
			break
		}
		res, err := s.rosterSource.Fetch(ctx, source.Selector{Season: season, TeamCode: t.Code})
		if err != nil {
			failures++
			s.logger.WarnContext(ctx, "roster fetch failed",
				"season", season,
				"team", t.Code,
				"error", err,
			)
			continue
		}
		stage.Fetched += len(res.Records) + len(res.Rejected)
		stage.Rejected += len(res.Rejected)
		sources[res.Source]++
		players = append(players, res.Records...)
	}
	stage.Source = joinSources(sources)

	if len(players) == 0 {
		stage.Err = fmt.Sprintf("no rosters fetched (%d of %d teams failed)", failures, len(teams))
		return stage
	}
	summary, err := s.playerRepo.Upsert(persistCtx, players)
	stage.Persisted = summary
	if err != nil {
		stage.Err = err.Error()
	}
	return stage
}

func (s *PipelineService) syncParticipations(ctx, persistCtx context.Context, season int, seasonGames []game.Game) StageSummary {
	stage := StageSummary{Stage: StageParticipations}

	var rows []game.Participation
	sources := make(map[string]int)
	failures := 0
	for _, g := range seasonGames {
		if !g.Final() {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		res, err := s.participationSource.Fetch(ctx, gameSelector(season, g))
		if err != nil {
			failures++
			s.logger.WarnContext(ctx, "participation fetch failed",
				"season", season,
				"game", g.ExternalID,
				"error", err,
			)
			continue
		}
		stage.Fetched += len(res.Records) + len(res.Rejected)
		stage.Rejected += len(res.Rejected)
		sources[res.Source]++
		rows = append(rows, res.Records...)
	}
	stage.Source = joinSources(sources)

	if len(rows) == 0 {
		if failures > 0 {
			stage.Err = fmt.Sprintf("no participations fetched (%d games failed)", failures)
		}
		return stage
	}
	summary, err := s.participationRepo.Upsert(persistCtx, rows)
	stage.Persisted = summary
	if err != nil {
		stage.Err = err.Error()
	}
	return stage
}

// syncStats fans per-game boxscore extraction out over a bounded worker
// pool. Each game's lines are persisted as soon as they arrive so a
// cancellation mid-season keeps everything fetched up to that point.
func (s *PipelineService) syncStats(ctx, persistCtx context.Context, season int, seasonGames []game.Game) StageSummary {
	stage := StageSummary{Stage: StageStats}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		stage.Err = fmt.Sprintf("create worker pool: %v", err)
		return stage
	}
	defer pool.Release()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		failures int
	)
	sources := make(map[string]int)
	scheduled := 0

	for _, g := range seasonGames {
		if !g.Final() {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		g := g
		scheduled++
		wg.Add(1)
		task := func() {
			defer wg.Done()

			res, err := s.statSource.Fetch(ctx, gameSelector(season, g))
			if err != nil {
				mu.Lock()
				failures++
				mu.Unlock()
				s.logger.WarnContext(ctx, "stat fetch failed",
					"season", season,
					"game", g.ExternalID,
					"error", err,
				)
				return
			}

			summary, uerr := s.statRepo.Upsert(persistCtx, res.Records)
			mu.Lock()
			stage.Fetched += len(res.Records) + len(res.Rejected)
			stage.Rejected += len(res.Rejected)
			sources[res.Source]++
			stage.Persisted.Add(summary)
			if uerr != nil {
				failures++
			}
			mu.Unlock()
			if uerr != nil {
				s.logger.ErrorContext(ctx, "stat upsert failed",
					"season", season,
					"game", g.ExternalID,
					"error", uerr,
				)
			}
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			mu.Lock()
			failures++
			mu.Unlock()
		}
	}
	wg.Wait()

	stage.Source = joinSources(sources)
	if scheduled > 0 && stage.Persisted.Total() == 0 && failures > 0 {
		stage.Err = fmt.Sprintf("no stat lines persisted (%d games failed)", failures)
	}
	return stage
}

func gameSelector(season int, g game.Game) source.Selector {
	return source.Selector{
		Season:         season,
		Week:           g.Week,
		GameExternalID: g.ExternalID,
		GameDate:       g.Date,
		HomeTeam:       g.HomeTeam,
	}
}

func joinSources(sources map[string]int) string {
	if len(sources) == 0 {
		return ""
	}
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
