package scoring

import (
	"fmt"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/stats"
)

// Category buckets for the fantasy point breakdown. Fumble penalties go to
// CategoryMisc regardless of which variant carried the fumble, so rushing
// and receiving buckets stay comparable across positions.
type Category string

const (
	CategoryPassing      Category = "passing"
	CategoryRushing      Category = "rushing"
	CategoryReceiving    Category = "receiving"
	CategoryDefensive    Category = "defensive"
	CategorySpecialTeams Category = "special_teams"
	CategoryMisc         Category = "misc"
)

var variantCategories = map[stats.Variant]Category{
	stats.VariantPassing:   CategoryPassing,
	stats.VariantRushing:   CategoryRushing,
	stats.VariantReceiving: CategoryReceiving,
	stats.VariantDefensive: CategoryDefensive,
	stats.VariantKicking:   CategorySpecialTeams,
	stats.VariantPunting:   CategorySpecialTeams,
	stats.VariantReturn:    CategorySpecialTeams,
}

// CategoryFor maps a stat onto its breakdown bucket. The variant decides
// the bucket; fumbles_lost is the lone stat name that overrides it.
func CategoryFor(variant stats.Variant, statName string) Category {
	if statName == "fumbles_lost" {
		return CategoryMisc
	}
	if category, ok := variantCategories[variant]; ok {
		return category
	}
	return CategoryMisc
}

// Score converts the stat lines of one (player, game) into a fantasy
// point breakdown using the active rule table. Deterministic and pure:
// the same lines and table always produce the identical record. Stat
// names without an active rule weigh zero. Penalty stats carry negative
// weights in the table, there is no separate subtraction pass.
func Score(lines []stats.Line, table RuleTable) (FantasyPoints, error) {
	if len(lines) == 0 {
		return FantasyPoints{}, fmt.Errorf("at least one stat line is required")
	}

	out := FantasyPoints{
		PlayerKey:      lines[0].PlayerKey(),
		GameExternalID: lines[0].GameKey(),
	}
	buckets := make(map[Category]float64, 6)

	for _, line := range lines {
		if line.PlayerKey() != out.PlayerKey || line.GameKey() != out.GameExternalID {
			return FantasyPoints{}, fmt.Errorf(
				"mixed stat lines: got (%s,%s), expected (%s,%s)",
				line.PlayerKey(), line.GameKey(), out.PlayerKey, out.GameExternalID,
			)
		}
		for statName, value := range line.Counts() {
			weight := table.Weight(statName)
			if weight == 0 {
				continue
			}
			buckets[CategoryFor(line.Variant(), statName)] += value * weight
		}
	}

	out.Passing = buckets[CategoryPassing]
	out.Rushing = buckets[CategoryRushing]
	out.Receiving = buckets[CategoryReceiving]
	out.Defensive = buckets[CategoryDefensive]
	out.SpecialTeams = buckets[CategorySpecialTeams]
	out.Misc = buckets[CategoryMisc]
	out.Total = out.Passing + out.Rushing + out.Receiving + out.Defensive + out.SpecialTeams + out.Misc

	return out, nil
}

// AggregateSeason recomputes the season rollup for one player from the
// per-game fantasy records and raw stat lines of that season. GamesPlayed
// counts distinct games with at least one stat line; the average guards
// the zero-game case instead of failing on it.
func AggregateSeason(playerKey string, season int, gameRecords []FantasyPoints, lines []stats.Line) SeasonAggregate {
	agg := SeasonAggregate{
		PlayerKey:  playerKey,
		Season:     season,
		StatTotals: make(map[string]float64),
	}

	games := make(map[string]struct{})
	for _, line := range lines {
		if line.PlayerKey() != playerKey {
			continue
		}
		games[line.GameKey()] = struct{}{}
		for statName, value := range line.Counts() {
			agg.StatTotals[statName] += value
		}
	}
	agg.GamesPlayed = len(games)

	for _, record := range gameRecords {
		if record.PlayerKey != playerKey {
			continue
		}
		agg.TotalPoints += record.Total
	}

	divisor := agg.GamesPlayed
	if divisor < 1 {
		divisor = 1
	}
	agg.AvgPoints = agg.TotalPoints / float64(divisor)

	return agg
}

// DefaultRules is the 0.5-PPR league rule set seeded into scoring_rules.
// It is data: swapping the table contents changes scoring without a
// redeploy, and the engine only ever reads the table.
func DefaultRules() []Rule {
	return []Rule{
		{StatName: "passing_yards", PointsPerUnit: 0.04, Active: true},
		{StatName: "passing_tds", PointsPerUnit: 4.0, Active: true},
		{StatName: "interceptions_thrown", PointsPerUnit: -2.0, Active: true},
		{StatName: "two_point_pass", PointsPerUnit: 2.0, Active: true},
		{StatName: "rushing_yards", PointsPerUnit: 0.1, Active: true},
		{StatName: "rushing_tds", PointsPerUnit: 6.0, Active: true},
		{StatName: "two_point_rush", PointsPerUnit: 2.0, Active: true},
		{StatName: "receiving_yards", PointsPerUnit: 0.1, Active: true},
		{StatName: "receptions", PointsPerUnit: 0.5, Active: true},
		{StatName: "receiving_tds", PointsPerUnit: 6.0, Active: true},
		{StatName: "two_point_reception", PointsPerUnit: 2.0, Active: true},
		{StatName: "fumbles_lost", PointsPerUnit: -2.0, Active: true},
		{StatName: "tackles_solo", PointsPerUnit: 1.0, Active: true},
		{StatName: "tackles_assisted", PointsPerUnit: 0.5, Active: true},
		{StatName: "sacks", PointsPerUnit: 2.0, Active: true},
		{StatName: "interceptions", PointsPerUnit: 2.0, Active: true},
		{StatName: "fumbles_forced", PointsPerUnit: 2.0, Active: true},
		{StatName: "fumbles_recovered", PointsPerUnit: 2.0, Active: true},
		{StatName: "passes_defended", PointsPerUnit: 1.0, Active: true},
		{StatName: "safeties", PointsPerUnit: 2.0, Active: true},
		{StatName: "defensive_tds", PointsPerUnit: 6.0, Active: true},
		{StatName: "blocked_kicks", PointsPerUnit: 2.0, Active: true},
		{StatName: "kick_return_tds", PointsPerUnit: 6.0, Active: true},
		{StatName: "punt_return_tds", PointsPerUnit: 6.0, Active: true},
	}
}
