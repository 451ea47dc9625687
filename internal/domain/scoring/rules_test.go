package scoring

import (
	"math"
	"testing"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/stats"
)

func defaultTable() RuleTable {
	return NewRuleTable(DefaultRules())
}

func TestScoreReceivingLine(t *testing.T) {
	line := stats.Receiving{
		Ref:        stats.NewRef("p-1", "g-1"),
		Targets:    9,
		Receptions: 7,
		Yards:      100,
		Touchdowns: 1,
	}

	got, err := Score([]stats.Line{line}, defaultTable())
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	// 7*0.5 + 100*0.1 + 1*6.0
	want := 19.5
	if got.Receiving != want {
		t.Fatalf("receiving bucket = %v, want %v", got.Receiving, want)
	}
	if got.Total != want {
		t.Fatalf("total = %v, want %v", got.Total, want)
	}
}

func TestScoreFumbleGoesToMisc(t *testing.T) {
	line := stats.Rushing{
		Ref:         stats.NewRef("p-1", "g-1"),
		Attempts:    18,
		Yards:       80,
		Touchdowns:  1,
		FumblesLost: 1,
	}

	got, err := Score([]stats.Line{line}, defaultTable())
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if got.Rushing != 80*0.1+6.0 {
		t.Fatalf("rushing bucket = %v, want %v", got.Rushing, 80*0.1+6.0)
	}
	if got.Misc != -2.0 {
		t.Fatalf("misc bucket = %v, want -2", got.Misc)
	}
	sum := got.Passing + got.Rushing + got.Receiving + got.Defensive + got.SpecialTeams + got.Misc
	if got.Total != sum {
		t.Fatalf("total %v is not the bucket sum %v", got.Total, sum)
	}
}

func TestScoreUnknownStatContributesNothing(t *testing.T) {
	table := NewRuleTable([]Rule{
		{StatName: "receiving_yards", PointsPerUnit: 0.1, Active: true},
	})
	line := stats.Receiving{
		Ref:        stats.NewRef("p-1", "g-1"),
		Receptions: 5,
		Yards:      50,
	}

	got, err := Score([]stats.Line{line}, table)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if got.Total != 5.0 {
		t.Fatalf("total = %v, want 5.0 (receptions carry no rule)", got.Total)
	}
}

func TestScoreInactiveRuleIgnored(t *testing.T) {
	table := NewRuleTable([]Rule{
		{StatName: "receptions", PointsPerUnit: 1.0, Active: false},
		{StatName: "receiving_yards", PointsPerUnit: 0.1, Active: true},
	})
	if table.Len() != 1 {
		t.Fatalf("table len = %d, want 1", table.Len())
	}
	if w := table.Weight("receptions"); w != 0 {
		t.Fatalf("inactive rule weight = %v, want 0", w)
	}
}

func TestScoreDeterministic(t *testing.T) {
	lines := []stats.Line{
		stats.Passing{
			Ref:                 stats.NewRef("p-1", "g-1"),
			Attempts:            30,
			Completions:         22,
			Yards:               275,
			Touchdowns:          2,
			InterceptionsThrown: 1,
		},
		stats.Rushing{
			Ref:      stats.NewRef("p-1", "g-1"),
			Attempts: 4,
			Yards:    23,
		},
	}

	first, err := Score(lines, defaultTable())
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	second, err := Score(lines, defaultTable())
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if first != second {
		t.Fatalf("same input scored differently: %+v vs %+v", first, second)
	}
	if first.Passing != 275*0.04+2*4.0-2.0 {
		t.Fatalf("passing bucket = %v", first.Passing)
	}
	if first.Rushing != 23*0.1 {
		t.Fatalf("rushing bucket = %v", first.Rushing)
	}
}

func TestScoreRejectsMixedLines(t *testing.T) {
	lines := []stats.Line{
		stats.Rushing{Ref: stats.NewRef("p-1", "g-1"), Yards: 10},
		stats.Rushing{Ref: stats.NewRef("p-2", "g-1"), Yards: 10},
	}
	if _, err := Score(lines, defaultTable()); err == nil {
		t.Fatal("expected error for lines from different players")
	}
}

func TestScoreHalfSack(t *testing.T) {
	line := stats.Defensive{
		Ref:         stats.NewRef("p-1", "g-1"),
		TacklesSolo: 4,
		Sacks:       1.5,
	}
	got, err := Score([]stats.Line{line}, defaultTable())
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	want := 4*1.0 + 1.5*2.0
	if math.Abs(got.Defensive-want) > 1e-9 {
		t.Fatalf("defensive bucket = %v, want %v", got.Defensive, want)
	}
}

func TestAggregateSeason(t *testing.T) {
	lines := []stats.Line{
		stats.Receiving{Ref: stats.NewRef("p-1", "g-1"), Receptions: 5, Yards: 60},
		stats.Receiving{Ref: stats.NewRef("p-1", "g-2"), Receptions: 3, Yards: 40, Touchdowns: 1},
		stats.Receiving{Ref: stats.NewRef("p-2", "g-1"), Receptions: 8, Yards: 90},
	}
	records := []FantasyPoints{
		{PlayerKey: "p-1", GameExternalID: "g-1", Total: 8.5},
		{PlayerKey: "p-1", GameExternalID: "g-2", Total: 11.5},
		{PlayerKey: "p-2", GameExternalID: "g-1", Total: 13.0},
	}

	agg := AggregateSeason("p-1", 2024, records, lines)

	if agg.GamesPlayed != 2 {
		t.Fatalf("games played = %d, want 2", agg.GamesPlayed)
	}
	if agg.TotalPoints != 20.0 {
		t.Fatalf("total points = %v, want 20", agg.TotalPoints)
	}
	if agg.AvgPoints != 10.0 {
		t.Fatalf("avg points = %v, want 10", agg.AvgPoints)
	}
	if agg.StatTotals["receiving_yards"] != 100 {
		t.Fatalf("receiving yards total = %v, want 100", agg.StatTotals["receiving_yards"])
	}
}

func TestAggregateSeasonZeroGames(t *testing.T) {
	agg := AggregateSeason("p-9", 2024, nil, nil)
	if agg.GamesPlayed != 0 {
		t.Fatalf("games played = %d, want 0", agg.GamesPlayed)
	}
	if agg.AvgPoints != 0 {
		t.Fatalf("avg points = %v, want 0", agg.AvgPoints)
	}
}
