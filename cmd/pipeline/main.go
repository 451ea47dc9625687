package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/evgenk/nfl-fantasy-data/internal/app"
	"github.com/evgenk/nfl-fantasy-data/internal/config"
	"github.com/evgenk/nfl-fantasy-data/internal/observability"
	"github.com/evgenk/nfl-fantasy-data/internal/platform/logging"
	"github.com/evgenk/nfl-fantasy-data/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	if len(cfg.Seasons) == 0 {
		logger.Error("no seasons configured, set SEASONS (e.g. SEASONS=2021-2024)")
		os.Exit(2)
	}

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error("shutdown tracing", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.NewPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Error("build pipeline", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.Error("close pipeline", "error", err)
		}
	}()

	logger.Info("pipeline starting",
		"seasons", cfg.Seasons,
		"db_driver", cfg.DBDriver,
		"workers", cfg.PipelineWorkers,
	)

	report, err := pipeline.Service.Run(ctx, cfg.Seasons)
	logReport(logger, report)
	if err != nil {
		logger.Error("pipeline run aborted", "error", err)
		os.Exit(1)
	}

	for _, season := range report.Seasons {
		if season.Failed() {
			logger.Error("pipeline finished with failed stages")
			os.Exit(1)
		}
	}

	logLeaders(ctx, logger, pipeline.Scoring, report)
	logger.Info("pipeline finished", "duration", report.FinishedAt.Sub(report.StartedAt).String())
}

// logLeaders reads each scored season back out of the store and logs its
// top players and single-game performances.
func logLeaders(ctx context.Context, logger *logging.Logger, scoring *usecase.ScoringService, report usecase.RunReport) {
	const topN = 5
	for _, season := range report.Seasons {
		leaders, err := scoring.Leaders(ctx, season.Season, topN)
		if err != nil {
			logger.Warn("read season leaders", "season", season.Season, "error", err)
			continue
		}
		for rank, agg := range leaders.Players {
			logger.Info("season leader",
				"season", season.Season,
				"rank", rank+1,
				"player", agg.PlayerKey,
				"games", agg.GamesPlayed,
				"total_points", agg.TotalPoints,
				"avg_points", agg.AvgPoints,
			)
		}
		for rank, rec := range leaders.Games {
			logger.Info("top single game",
				"season", season.Season,
				"rank", rank+1,
				"player", rec.PlayerKey,
				"game", rec.GameExternalID,
				"points", rec.Total,
			)
		}
	}
}

func logReport(logger *logging.Logger, report usecase.RunReport) {
	for _, season := range report.Seasons {
		for _, stage := range season.Stages {
			fields := []any{
				"season", season.Season,
				"stage", stage.Stage,
				"source", stage.Source,
				"fetched", stage.Fetched,
				"rejected", stage.Rejected,
				"inserted", stage.Persisted.Inserted,
				"updated", stage.Persisted.Updated,
				"skipped", stage.Persisted.Skipped,
				"failed", stage.Persisted.Failed,
			}
			if stage.Err != "" {
				logger.Error("stage failed", append(fields, "error", stage.Err)...)
				continue
			}
			logger.Info("stage finished", fields...)
		}
	}
}
