package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/ingest"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/scoring"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/stats"
	"github.com/evgenk/nfl-fantasy-data/internal/platform/logging"
)

// ScoringService recomputes fantasy points and season rollups from the
// stored stat lines of a season. It only ever reads what the extraction
// stages persisted, so re-running it is always safe.
type ScoringService struct {
	rules   scoring.RuleRepository
	stats   stats.Repository
	fantasy scoring.FantasyRepository
	seasons scoring.SeasonRepository
	logger  *logging.Logger
}

func NewScoringService(
	rules scoring.RuleRepository,
	statRepo stats.Repository,
	fantasy scoring.FantasyRepository,
	seasons scoring.SeasonRepository,
	logger *logging.Logger,
) *ScoringService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ScoringService{
		rules:   rules,
		stats:   statRepo,
		fantasy: fantasy,
		seasons: seasons,
		logger:  logger,
	}
}

// ScoreReport summarizes one scoring pass over a season.
type ScoreReport struct {
	Season      int
	ActiveRules int
	Lines       int
	Games       int
	Players     int
	Fantasy     ingest.UpsertSummary
	Aggregates  ingest.UpsertSummary
}

type playerGameKey struct {
	player string
	game   string
}

// ScoreSeason loads the active rule table, scores every (player, game)
// group of the season and rewrites the fantasy_points and season_stats
// rows. Season rollups are recomputed wholesale, never patched.
func (s *ScoringService) ScoreSeason(ctx context.Context, season int) (ScoreReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.ScoreSeason")
	defer span.End()

	if season <= 0 {
		return ScoreReport{}, fmt.Errorf("%w: season must be positive", ErrInvalidInput)
	}

	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return ScoreReport{}, fmt.Errorf("load scoring rules: %w", err)
	}
	if len(rules) == 0 {
		return ScoreReport{}, fmt.Errorf("%w: no active scoring rules", ErrDependencyUnavailable)
	}
	table := scoring.NewRuleTable(rules)

	lines, err := s.stats.ListBySeason(ctx, season)
	if err != nil {
		return ScoreReport{}, fmt.Errorf("load stat lines for season %d: %w", season, err)
	}

	report := ScoreReport{
		Season:      season,
		ActiveRules: table.Len(),
		Lines:       len(lines),
	}
	if len(lines) == 0 {
		s.logger.InfoContext(ctx, "no stat lines to score", "season", season)
		return report, nil
	}

	// Group per (player, game) in first-seen order so scoring output is
	// stable across runs.
	groups := make(map[playerGameKey][]stats.Line)
	groupOrder := make([]playerGameKey, 0)
	playerOrder := make([]string, 0)
	playerSeen := make(map[string]struct{})
	playerLines := make(map[string][]stats.Line)

	for _, line := range lines {
		key := playerGameKey{player: line.PlayerKey(), game: line.GameKey()}
		if _, ok := groups[key]; !ok {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], line)

		if _, ok := playerSeen[key.player]; !ok {
			playerSeen[key.player] = struct{}{}
			playerOrder = append(playerOrder, key.player)
		}
		playerLines[key.player] = append(playerLines[key.player], line)
	}
	report.Games = len(groupOrder)
	report.Players = len(playerOrder)

	records := make([]scoring.FantasyPoints, 0, len(groupOrder))
	playerRecords := make(map[string][]scoring.FantasyPoints, len(playerOrder))
	for _, key := range groupOrder {
		record, err := scoring.Score(groups[key], table)
		if err != nil {
			s.logger.WarnContext(ctx, "scoring group failed",
				"season", season,
				"player", key.player,
				"game", key.game,
				"error", err,
			)
			continue
		}
		records = append(records, record)
		playerRecords[key.player] = append(playerRecords[key.player], record)
	}

	persistCtx := context.WithoutCancel(ctx)
	report.Fantasy, err = s.fantasy.Upsert(persistCtx, records)
	if err != nil {
		return report, fmt.Errorf("persist fantasy points for season %d: %w", season, err)
	}

	aggregates := make([]scoring.SeasonAggregate, 0, len(playerOrder))
	for _, playerKey := range playerOrder {
		aggregates = append(aggregates, scoring.AggregateSeason(playerKey, season, playerRecords[playerKey], playerLines[playerKey]))
	}
	report.Aggregates, err = s.seasons.Upsert(persistCtx, aggregates)
	if err != nil {
		return report, fmt.Errorf("persist season aggregates for season %d: %w", season, err)
	}

	s.logger.InfoContext(ctx, "season scored",
		"season", season,
		"lines", report.Lines,
		"games", report.Games,
		"players", report.Players,
		"fantasy_rows", report.Fantasy.Total(),
		"aggregate_rows", report.Aggregates.Total(),
	)
	return report, nil
}

// SeasonLeaders holds the top of a scored season: players by total
// rollup points and single games by per-game points.
type SeasonLeaders struct {
	Season  int
	Players []scoring.SeasonAggregate
	Games   []scoring.FantasyPoints
}

// Leaders reads the stored rollups and per-game rows of a season back
// out and returns the top limit of each, ordered by points with player
// key as the tiebreak so equal scores list stably.
func (s *ScoringService) Leaders(ctx context.Context, season, limit int) (SeasonLeaders, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.Leaders")
	defer span.End()

	if season <= 0 {
		return SeasonLeaders{}, fmt.Errorf("%w: season must be positive", ErrInvalidInput)
	}
	if limit <= 0 {
		return SeasonLeaders{}, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}

	aggregates, err := s.seasons.ListBySeason(ctx, season)
	if err != nil {
		return SeasonLeaders{}, fmt.Errorf("load season aggregates for %d: %w", season, err)
	}
	records, err := s.fantasy.ListBySeason(ctx, season)
	if err != nil {
		return SeasonLeaders{}, fmt.Errorf("load fantasy points for %d: %w", season, err)
	}

	sort.SliceStable(aggregates, func(i, j int) bool {
		if aggregates[i].TotalPoints != aggregates[j].TotalPoints {
			return aggregates[i].TotalPoints > aggregates[j].TotalPoints
		}
		return aggregates[i].PlayerKey < aggregates[j].PlayerKey
	})
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Total != records[j].Total {
			return records[i].Total > records[j].Total
		}
		if records[i].PlayerKey != records[j].PlayerKey {
			return records[i].PlayerKey < records[j].PlayerKey
		}
		return records[i].GameExternalID < records[j].GameExternalID
	})

	if len(aggregates) > limit {
		aggregates = aggregates[:limit]
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return SeasonLeaders{Season: season, Players: aggregates, Games: records}, nil
}
