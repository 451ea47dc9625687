package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/evgenk/nfl-fantasy-data/internal/config"
	"github.com/evgenk/nfl-fantasy-data/internal/infrastructure/repository/sqlstore"
	"github.com/evgenk/nfl-fantasy-data/internal/platform/cache"
	"github.com/evgenk/nfl-fantasy-data/internal/platform/logging"
	"github.com/evgenk/nfl-fantasy-data/internal/platform/ratelimit"
	"github.com/evgenk/nfl-fantasy-data/internal/source"
	"github.com/evgenk/nfl-fantasy-data/internal/source/espn"
	"github.com/evgenk/nfl-fantasy-data/internal/source/pfr"
	"github.com/evgenk/nfl-fantasy-data/internal/source/static"
	"github.com/evgenk/nfl-fantasy-data/internal/usecase"
	"github.com/evgenk/nfl-fantasy-data/internal/validate"
)

// Pipeline bundles the wired services with the resources they own.
type Pipeline struct {
	Service *usecase.PipelineService
	Scoring *usecase.ScoringService
	db      *sqlx.DB
}

func (p *Pipeline) Close() error {
	return p.db.Close()
}

// NewPipeline builds the full extraction pipeline: database, rate
// limited source clients, orchestrator chains, repositories and the
// scoring engine. The default rule set is seeded before the service is
// handed out so scoring never runs against an empty table.
func NewPipeline(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := sqlstore.Open(ctx, cfg.DBDriver, cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	limiter := ratelimit.New(ratelimit.Config{
		Sources: map[string]ratelimit.SourceConfig{
			espn.SourceName: {BaseInterval: cfg.ESPNRateInterval},
			pfr.SourceName:  {BaseInterval: cfg.PFRRateInterval},
		},
		MaxInterval: cfg.RateMaxInterval,
		MaxWait:     cfg.RateMaxWait,
	})

	var store *cache.Store
	if cfg.CacheEnabled {
		store = cache.NewStore(cfg.CacheTTL)
	}

	espnClient := espn.NewClient(espn.ClientConfig{
		BaseURL: cfg.ESPNBaseURL,
		Timeout: cfg.SourceTimeout,
		Logger:  logger,
		Limiter: limiter,
		Cache:   store,
	})
	pfrClient := pfr.NewClient(pfr.ClientConfig{
		BaseURL: cfg.PFRBaseURL,
		Timeout: cfg.SourceTimeout,
		Logger:  logger,
		Limiter: limiter,
		Cache:   store,
	})

	v := validate.New()

	teamSource := source.NewOrchestrator("teams", v.Teams, cfg.RatioFor("teams"), logger,
		espn.NewTeamsAdapter(espnClient),
		static.NewTeamsAdapter(),
	)
	gameSource := source.NewOrchestrator("games", v.Games, cfg.RatioFor("games"), logger,
		espn.NewGamesAdapter(espnClient),
		pfr.NewWeekGamesAdapter(pfrClient),
	)
	rosterSource := source.NewOrchestrator("players", v.Players, cfg.RatioFor("players"), logger,
		espn.NewRosterAdapter(espnClient),
		pfr.NewRosterAdapter(pfrClient),
	)
	participationSource := source.NewOrchestrator("participations", v.Participations, cfg.RatioFor("participations"), logger,
		espn.NewParticipationsAdapter(espnClient),
	)
	statSource := source.NewOrchestrator("stats", v.Lines, cfg.RatioFor("stats"), logger,
		espn.NewStatsAdapter(espnClient),
		pfr.NewBoxscoreStatsAdapter(pfrClient),
	)

	teamRepo := sqlstore.NewTeamRepository(db)
	playerRepo := sqlstore.NewPlayerRepository(db)
	gameRepo := sqlstore.NewGameRepository(db)
	participationRepo := sqlstore.NewParticipationRepository(db, playerRepo)
	statRepo := sqlstore.NewStatRepository(db, playerRepo)
	ruleRepo := sqlstore.NewRuleRepository(db)
	fantasyRepo := sqlstore.NewFantasyRepository(db)
	seasonRepo := sqlstore.NewSeasonRepository(db)

	if err := sqlstore.SeedScoringRules(ctx, ruleRepo, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed scoring rules: %w", err)
	}

	scoringSvc := usecase.NewScoringService(ruleRepo, statRepo, fantasyRepo, seasonRepo, logger)

	pipelineSvc, err := usecase.NewPipelineService(usecase.PipelineParams{
		Teams:             teamSource,
		Games:             gameSource,
		Rosters:           rosterSource,
		Participations:    participationSource,
		Stats:             statSource,
		TeamRepo:          teamRepo,
		PlayerRepo:        playerRepo,
		GameRepo:          gameRepo,
		ParticipationRepo: participationRepo,
		StatRepo:          statRepo,
		Validator:         v,
		Scoring:           scoringSvc,
		Workers:           cfg.PipelineWorkers,
		Logger:            logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("build pipeline service: %w", err)
	}

	return &Pipeline{Service: pipelineSvc, Scoring: scoringSvc, db: db}, nil
}
