package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/game"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/player"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/scoring"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/stats"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/team"
	"github.com/evgenk/nfl-fantasy-data/internal/platform/logging"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "..", "db", "migrations", "000001_init.up.sql"))
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}

	db, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

func intPtr(v int) *int { return &v }

var testGameDate = time.Date(2024, 9, 8, 17, 0, 0, 0, time.UTC)

// newSeededDB loads two teams, three players and one final 2024 game.
// Patrick Mahomes carries a source id, the two John Smiths share a bare
// name and are only tellable apart by natural key.
func newSeededDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db := newTestDB(t)
	ctx := context.Background()

	teamsRepo := NewTeamRepository(db)
	if _, err := teamsRepo.Upsert(ctx, []team.Team{
		{Code: "KC", Name: "Kansas City Chiefs", Conference: "AFC", Division: "West"},
		{Code: "BUF", Name: "Buffalo Bills", Conference: "AFC", Division: "East"},
	}); err != nil {
		t.Fatalf("seed teams: %v", err)
	}

	playersRepo := NewPlayerRepository(db)
	summary, err := playersRepo.Upsert(ctx, []player.Player{
		{ExternalID: "3139477", Name: "Patrick Mahomes", Position: player.PositionQuarterback, TeamCode: "KC", HeightIn: 74, WeightLb: 225, Active: true},
		{Name: "John Smith", Position: player.PositionLinebacker, TeamCode: "KC", Active: true},
		{Name: "John Smith", Position: player.PositionDefensiveBack, TeamCode: "BUF", Active: true},
	})
	if err != nil {
		t.Fatalf("seed players: %v", err)
	}
	if summary.Inserted != 3 {
		t.Fatalf("seed players inserted = %d, want 3", summary.Inserted)
	}

	gamesRepo := NewGameRepository(db)
	if _, err := gamesRepo.Upsert(ctx, []game.Game{{
		ExternalID: "espn-401547401",
		Season:     2024,
		Week:       1,
		Date:       testGameDate,
		HomeTeam:   "KC",
		AwayTeam:   "BUF",
		HomeScore:  intPtr(27),
		AwayScore:  intPtr(20),
		Type:       game.TypeRegular,
	}}); err != nil {
		t.Fatalf("seed game: %v", err)
	}
	return db
}

func TestTeamUpsertLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTeamRepository(db)

	teams := []team.Team{
		{Code: "KC", Name: "Kansas City Chiefs", Conference: "AFC", Division: "West"},
		{Code: "BUF", Name: "Buffalo Bills", Conference: "AFC", Division: "East"},
	}
	summary, err := repo.Upsert(ctx, teams)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if summary.Inserted != 2 || summary.Updated != 0 {
		t.Fatalf("first pass = %+v", summary)
	}

	summary, err = repo.Upsert(ctx, teams)
	if err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if summary.Skipped != 2 {
		t.Fatalf("identical pass = %+v", summary)
	}

	teams[0].Name = "KC Chiefs"
	summary, err = repo.Upsert(ctx, teams)
	if err != nil {
		t.Fatalf("Upsert rename: %v", err)
	}
	if summary.Updated != 1 || summary.Skipped != 1 {
		t.Fatalf("rename pass = %+v", summary)
	}

	listed, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 2 || listed[0].Code != "BUF" || listed[1].Name != "KC Chiefs" {
		t.Fatalf("listed = %+v", listed)
	}
}

func TestPlayerKeysByAlias(t *testing.T) {
	db := newSeededDB(t)
	ctx := context.Background()
	repo := NewPlayerRepository(db)

	aliases, err := repo.KeysByAlias(ctx)
	if err != nil {
		t.Fatalf("KeysByAlias: %v", err)
	}

	if got := aliases["3139477"]; got != "3139477" {
		t.Fatalf("external id alias = %q", got)
	}
	if got := aliases["Patrick Mahomes"]; got != "3139477" {
		t.Fatalf("name alias = %q", got)
	}
	if got := aliases["John Smith|LB"]; got != "John Smith|LB" {
		t.Fatalf("natural key alias = %q", got)
	}
	if _, ok := aliases["John Smith"]; ok {
		t.Fatal("ambiguous bare name should be dropped")
	}
}

func TestGameUpsertProtectsScores(t *testing.T) {
	db := newSeededDB(t)
	ctx := context.Background()
	repo := NewGameRepository(db)

	scheduled := game.Game{
		ExternalID: "espn-401547401",
		Season:     2024,
		Week:       1,
		Date:       testGameDate,
		HomeTeam:   "KC",
		AwayTeam:   "BUF",
		Type:       game.TypeRegular,
	}
	summary, err := repo.Upsert(ctx, []game.Game{scheduled})
	if err != nil {
		t.Fatalf("Upsert scheduled: %v", err)
	}
	if summary.Skipped != 1 {
		t.Fatalf("scheduled pass = %+v", summary)
	}

	listed, err := repo.ListBySeason(ctx, 2024)
	if err != nil {
		t.Fatalf("ListBySeason: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed %d games", len(listed))
	}
	if listed[0].HomeScore == nil || *listed[0].HomeScore != 27 {
		t.Fatalf("home score reverted: %+v", listed[0])
	}
	if !listed[0].Date.Equal(testGameDate) {
		t.Fatalf("date = %v, want %v", listed[0].Date, testGameDate)
	}

	corrected := scheduled
	corrected.HomeScore, corrected.AwayScore = intPtr(30), intPtr(20)
	summary, err = repo.Upsert(ctx, []game.Game{corrected})
	if err != nil {
		t.Fatalf("Upsert corrected: %v", err)
	}
	if summary.Updated != 1 {
		t.Fatalf("corrected pass = %+v", summary)
	}

	listed, err = repo.ListBySeason(ctx, 2024)
	if err != nil {
		t.Fatalf("ListBySeason after update: %v", err)
	}
	if *listed[0].HomeScore != 30 {
		t.Fatalf("home score = %d, want 30", *listed[0].HomeScore)
	}
}

func TestParticipationUpsertResolvesAliases(t *testing.T) {
	db := newSeededDB(t)
	ctx := context.Background()
	repo := NewParticipationRepository(db, NewPlayerRepository(db))

	rows := []game.Participation{
		{PlayerKey: "Patrick Mahomes", GameExternalID: "espn-401547401", TeamCode: "KC", Played: true},
		{PlayerKey: "Nobody Known", GameExternalID: "espn-401547401", TeamCode: "BUF", Played: true},
	}
	summary, err := repo.Upsert(ctx, rows)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if summary.Inserted != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if !strings.Contains(summary.Failures[0].Reason, "unknown player") {
		t.Fatalf("failure reason = %q", summary.Failures[0].Reason)
	}

	summary, err = repo.Upsert(ctx, rows[:1])
	if err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if summary.Skipped != 1 {
		t.Fatalf("identical pass = %+v", summary)
	}

	var stored participationTableModel
	if err := db.Get(&stored, db.Rebind("SELECT player_key, game_id, team_code, played FROM player_games WHERE game_id = ?"), "espn-401547401"); err != nil {
		t.Fatalf("read row: %v", err)
	}
	if stored.PlayerKey != "3139477" {
		t.Fatalf("stored player key = %q, want canonical", stored.PlayerKey)
	}
}

func TestStatUpsertRoutesAndListsBySeason(t *testing.T) {
	db := newSeededDB(t)
	ctx := context.Background()
	repo := NewStatRepository(db, NewPlayerRepository(db))

	lines := []stats.Line{
		stats.Passing{
			Ref:         stats.NewRef("Patrick Mahomes", "espn-401547401"),
			Attempts:    37,
			Completions: 25,
			Yards:       291,
			Touchdowns:  2,
			Sacked:      2,
		},
		stats.Defensive{
			Ref:         stats.NewRef("John Smith|LB", "espn-401547401"),
			TacklesSolo: 6,
			Sacks:       1.5,
		},
		stats.Rushing{
			Ref:      stats.NewRef("Nobody Known", "espn-401547401"),
			Attempts: 4,
		},
	}
	summary, err := repo.Upsert(ctx, lines)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if summary.Inserted != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	summary, err = repo.Upsert(ctx, lines[:2])
	if err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if summary.Skipped != 2 {
		t.Fatalf("identical pass = %+v", summary)
	}

	listed, err := repo.ListBySeason(ctx, 2024)
	if err != nil {
		t.Fatalf("ListBySeason: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("listed %d lines, want 2", len(listed))
	}

	passing, ok := listed[0].(stats.Passing)
	if !ok {
		t.Fatalf("first line is %T", listed[0])
	}
	if passing.PlayerKey() != "3139477" {
		t.Fatalf("passing player key = %q, want canonical", passing.PlayerKey())
	}
	if passing.Yards != 291 || passing.Sacked != 2 {
		t.Fatalf("passing = %+v", passing)
	}

	defensive, ok := listed[1].(stats.Defensive)
	if !ok {
		t.Fatalf("second line is %T", listed[1])
	}
	if defensive.PlayerKey() != "John Smith|LB" || defensive.Sacks != 1.5 {
		t.Fatalf("defensive = %+v", defensive)
	}

	if listed, err = repo.ListBySeason(ctx, 2023); err != nil || len(listed) != 0 {
		t.Fatalf("other season = %v lines, err %v", len(listed), err)
	}
}

func TestPlayerUpsertFreeAgent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewPlayerRepository(db)

	freeAgent := []player.Player{
		{ExternalID: "2580", Name: "Cam Newton", Position: player.PositionQuarterback, TeamCode: "", Active: false},
	}
	summary, err := repo.Upsert(ctx, freeAgent)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if summary.Inserted != 1 || summary.Failed != 0 {
		t.Fatalf("first pass = %+v", summary)
	}

	// The missing team lands as NULL, an empty string would violate the
	// foreign key into teams.
	var nullCodes int
	if err := db.GetContext(ctx, &nullCodes, "SELECT COUNT(*) FROM players WHERE team_code IS NULL"); err != nil {
		t.Fatalf("count null team codes: %v", err)
	}
	if nullCodes != 1 {
		t.Fatalf("null team codes = %d, want 1", nullCodes)
	}

	listed, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 || listed[0].TeamCode != "" {
		t.Fatalf("listed = %+v", listed)
	}

	summary, err = repo.Upsert(ctx, freeAgent)
	if err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if summary.Skipped != 1 {
		t.Fatalf("identical pass = %+v", summary)
	}
}

func TestSeedScoringRules(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRuleRepository(db)

	if err := SeedScoringRules(ctx, repo, logging.NewNop()); err != nil {
		t.Fatalf("SeedScoringRules: %v", err)
	}
	if err := SeedScoringRules(ctx, repo, logging.NewNop()); err != nil {
		t.Fatalf("SeedScoringRules again: %v", err)
	}

	rules, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(rules) != len(scoring.DefaultRules()) {
		t.Fatalf("active rules = %d, want %d", len(rules), len(scoring.DefaultRules()))
	}

	table := scoring.NewRuleTable(rules)
	if got := table.Weight("receptions"); got != 0.5 {
		t.Fatalf("receptions weight = %v", got)
	}
	if got := table.Weight("fumbles_lost"); got != -2 {
		t.Fatalf("fumbles_lost weight = %v", got)
	}
}

func TestSeedScoringRulesKeepsTunedWeights(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRuleRepository(db)

	if err := SeedScoringRules(ctx, repo, logging.NewNop()); err != nil {
		t.Fatalf("SeedScoringRules: %v", err)
	}

	// Operator switches the league to full PPR and disables a rule.
	if _, err := repo.Upsert(ctx, []scoring.Rule{
		{StatName: "receptions", PointsPerUnit: 1.0, Active: true},
		{StatName: "tackles_solo", PointsPerUnit: 1.0, Active: false},
	}); err != nil {
		t.Fatalf("Upsert tuned rules: %v", err)
	}

	if err := SeedScoringRules(ctx, repo, logging.NewNop()); err != nil {
		t.Fatalf("SeedScoringRules after tuning: %v", err)
	}

	rules, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	table := scoring.NewRuleTable(rules)
	if got := table.Weight("receptions"); got != 1.0 {
		t.Fatalf("receptions weight = %v, want the tuned 1.0", got)
	}
	for _, rule := range rules {
		if rule.StatName == "tackles_solo" {
			t.Fatal("deactivated rule was reactivated by reseeding")
		}
	}
}

func TestFantasyAndSeasonRoundTrip(t *testing.T) {
	db := newSeededDB(t)
	ctx := context.Background()

	fantasy := NewFantasyRepository(db)
	record := scoring.FantasyPoints{
		PlayerKey:      "3139477",
		GameExternalID: "espn-401547401",
		Passing:        19.64,
		Total:          19.64,
	}
	summary, err := fantasy.Upsert(ctx, []scoring.FantasyPoints{record})
	if err != nil {
		t.Fatalf("fantasy Upsert: %v", err)
	}
	if summary.Inserted != 1 {
		t.Fatalf("fantasy summary = %+v", summary)
	}

	points, err := fantasy.ListBySeason(ctx, 2024)
	if err != nil {
		t.Fatalf("fantasy ListBySeason: %v", err)
	}
	if len(points) != 1 || points[0].Passing != 19.64 || points[0].Total != 19.64 {
		t.Fatalf("points = %+v", points)
	}

	seasons := NewSeasonRepository(db)
	aggregate := scoring.SeasonAggregate{
		PlayerKey:   "3139477",
		Season:      2024,
		GamesPlayed: 1,
		StatTotals:  map[string]float64{"passing_yards": 291, "passing_tds": 2},
		TotalPoints: 19.64,
		AvgPoints:   19.64,
	}
	summary, err = seasons.Upsert(ctx, []scoring.SeasonAggregate{aggregate})
	if err != nil {
		t.Fatalf("season Upsert: %v", err)
	}
	if summary.Inserted != 1 {
		t.Fatalf("season summary = %+v", summary)
	}

	summary, err = seasons.Upsert(ctx, []scoring.SeasonAggregate{aggregate})
	if err != nil {
		t.Fatalf("season Upsert again: %v", err)
	}
	if summary.Skipped != 1 {
		t.Fatalf("identical season pass = %+v", summary)
	}

	aggregates, err := seasons.ListBySeason(ctx, 2024)
	if err != nil {
		t.Fatalf("season ListBySeason: %v", err)
	}
	if len(aggregates) != 1 {
		t.Fatalf("aggregates = %+v", aggregates)
	}
	if aggregates[0].StatTotals["passing_yards"] != 291 || aggregates[0].GamesPlayed != 1 {
		t.Fatalf("aggregate = %+v", aggregates[0])
	}
}
