package scoring

import "fmt"

// Rule is one row of the scoring_rules table: a stat name and its signed
// points-per-unit weight. The table is the sole source of point weights;
// the engine never hardcodes a value.
type Rule struct {
	StatName      string
	PointsPerUnit float64
	Active        bool
}

func (r Rule) Validate() error {
	if r.StatName == "" {
		return fmt.Errorf("scoring rule stat name is required")
	}
	return nil
}

// RuleTable indexes the active rules by stat name. Inactive rules are
// dropped at construction so lookups only ever see weights that count.
type RuleTable struct {
	byName map[string]Rule
}

func NewRuleTable(rules []Rule) RuleTable {
	byName := make(map[string]Rule, len(rules))
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		byName[rule.StatName] = rule
	}
	return RuleTable{byName: byName}
}

// Weight returns the points-per-unit for a stat name, or 0 when the name
// has no active rule. Unknown names contribute nothing, they never fail.
func (t RuleTable) Weight(statName string) float64 {
	return t.byName[statName].PointsPerUnit
}

func (t RuleTable) Len() int { return len(t.byName) }

// FantasyPoints is the computed per-(player, game) breakdown. Total is
// always the exact sum of the category buckets; rows are derived data and
// never hand-edited.
type FantasyPoints struct {
	PlayerKey      string
	GameExternalID string
	Passing        float64
	Rushing        float64
	Receiving      float64
	Defensive      float64
	SpecialTeams   float64
	Misc           float64
	Total          float64
}

// SeasonAggregate is the per-(player, season) rollup. It is a pure
// function of the underlying per-game rows and is recomputed wholesale on
// any backfill, never patched incrementally.
type SeasonAggregate struct {
	PlayerKey   string
	Season      int
	GamesPlayed int
	StatTotals  map[string]float64
	TotalPoints float64
	AvgPoints   float64
}
