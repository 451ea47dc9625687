package stats

import "fmt"

// Variant tags the closed set of per-game stat record shapes.
type Variant string

const (
	VariantPassing   Variant = "passing"
	VariantRushing   Variant = "rushing"
	VariantReceiving Variant = "receiving"
	VariantDefensive Variant = "defensive"
	VariantKicking   Variant = "kicking"
	VariantPunting   Variant = "punting"
	VariantReturn    Variant = "return"
)

var AllVariants = []Variant{
	VariantPassing,
	VariantRushing,
	VariantReceiving,
	VariantDefensive,
	VariantKicking,
	VariantPunting,
	VariantReturn,
}

// Line is one per-(player, game) stat record of one variant. Counts
// exposes the raw counting stats keyed by scoring-rule stat name, which is
// the only view the scoring engine consumes.
type Line interface {
	Variant() Variant
	PlayerKey() string
	GameKey() string
	Counts() map[string]float64
}

// Ref carries the (player, game) identity shared by every variant.
type Ref struct {
	PlayerNaturalKey string
	GameExternalID   string
}

func (r Ref) PlayerKey() string { return r.PlayerNaturalKey }
func (r Ref) GameKey() string   { return r.GameExternalID }

func (r Ref) validate(variant Variant) error {
	if r.PlayerNaturalKey == "" {
		return fmt.Errorf("%s stat player key is required", variant)
	}
	if r.GameExternalID == "" {
		return fmt.Errorf("%s stat game id is required", variant)
	}
	return nil
}

// NewRef builds the shared (player, game) identity for a stat line.
func NewRef(playerKey, gameExternalID string) Ref {
	return Ref{PlayerNaturalKey: playerKey, GameExternalID: gameExternalID}
}

type Passing struct {
	Ref
	Attempts            int
	Completions         int
	Yards               int
	Touchdowns          int
	InterceptionsThrown int
	Sacked              int
	SackYardsLost       int
	TwoPointConversions int
}

func (Passing) Variant() Variant { return VariantPassing }

func (s Passing) Counts() map[string]float64 {
	return map[string]float64{
		"passing_attempts":     float64(s.Attempts),
		"completions":          float64(s.Completions),
		"passing_yards":        float64(s.Yards),
		"passing_tds":          float64(s.Touchdowns),
		"interceptions_thrown": float64(s.InterceptionsThrown),
		"two_point_pass":       float64(s.TwoPointConversions),
	}
}

func (s Passing) Validate() error {
	if err := s.Ref.validate(VariantPassing); err != nil {
		return err
	}
	if s.Attempts < 0 || s.Completions < 0 || s.Touchdowns < 0 || s.InterceptionsThrown < 0 || s.Sacked < 0 {
		return fmt.Errorf("passing counters cannot be negative")
	}
	if s.Completions > s.Attempts {
		return fmt.Errorf("completions (%d) exceed attempts (%d)", s.Completions, s.Attempts)
	}
	return nil
}

type Rushing struct {
	Ref
	Attempts            int
	Yards               int
	Touchdowns          int
	Longest             int
	TwoPointConversions int
	FumblesLost         int
}

func (Rushing) Variant() Variant { return VariantRushing }

func (s Rushing) Counts() map[string]float64 {
	return map[string]float64{
		"rushing_attempts": float64(s.Attempts),
		"rushing_yards":    float64(s.Yards),
		"rushing_tds":      float64(s.Touchdowns),
		"two_point_rush":   float64(s.TwoPointConversions),
		"fumbles_lost":     float64(s.FumblesLost),
	}
}

func (s Rushing) Validate() error {
	if err := s.Ref.validate(VariantRushing); err != nil {
		return err
	}
	if s.Attempts < 0 || s.Touchdowns < 0 || s.FumblesLost < 0 {
		return fmt.Errorf("rushing counters cannot be negative")
	}
	return nil
}

type Receiving struct {
	Ref
	Targets             int
	Receptions          int
	Yards               int
	Touchdowns          int
	Longest             int
	TwoPointConversions int
	FumblesLost         int
}

func (Receiving) Variant() Variant { return VariantReceiving }

func (s Receiving) Counts() map[string]float64 {
	return map[string]float64{
		"targets":             float64(s.Targets),
		"receptions":          float64(s.Receptions),
		"receiving_yards":     float64(s.Yards),
		"receiving_tds":       float64(s.Touchdowns),
		"two_point_reception": float64(s.TwoPointConversions),
		"fumbles_lost":        float64(s.FumblesLost),
	}
}

func (s Receiving) Validate() error {
	if err := s.Ref.validate(VariantReceiving); err != nil {
		return err
	}
	if s.Targets < 0 || s.Receptions < 0 || s.Touchdowns < 0 || s.FumblesLost < 0 {
		return fmt.Errorf("receiving counters cannot be negative")
	}
	if s.Targets > 0 && s.Receptions > s.Targets {
		return fmt.Errorf("receptions (%d) exceed targets (%d)", s.Receptions, s.Targets)
	}
	return nil
}

// Defensive holds individual defensive player stats. Sacks is a decimal
// because half-sacks are credited when two defenders share one.
type Defensive struct {
	Ref
	TacklesSolo      int
	TacklesAssisted  int
	Sacks            float64
	Interceptions    int
	FumblesForced    int
	FumblesRecovered int
	PassesDefended   int
	Safeties         int
	Touchdowns       int
	BlockedKicks     int
}

func (Defensive) Variant() Variant { return VariantDefensive }

func (s Defensive) Counts() map[string]float64 {
	return map[string]float64{
		"tackles_solo":      float64(s.TacklesSolo),
		"tackles_assisted":  float64(s.TacklesAssisted),
		"sacks":             s.Sacks,
		"interceptions":     float64(s.Interceptions),
		"fumbles_forced":    float64(s.FumblesForced),
		"fumbles_recovered": float64(s.FumblesRecovered),
		"passes_defended":   float64(s.PassesDefended),
		"safeties":          float64(s.Safeties),
		"defensive_tds":     float64(s.Touchdowns),
		"blocked_kicks":     float64(s.BlockedKicks),
	}
}

func (s Defensive) Validate() error {
	if err := s.Ref.validate(VariantDefensive); err != nil {
		return err
	}
	if s.TacklesSolo < 0 || s.TacklesAssisted < 0 || s.Sacks < 0 || s.Interceptions < 0 {
		return fmt.Errorf("defensive counters cannot be negative")
	}
	return nil
}

type Kicking struct {
	Ref
	FieldGoalsMade       int
	FieldGoalsAttempted  int
	ExtraPointsMade      int
	ExtraPointsAttempted int
	LongestFieldGoal     int
}

func (Kicking) Variant() Variant { return VariantKicking }

func (s Kicking) Counts() map[string]float64 {
	return map[string]float64{
		"field_goals_made":      float64(s.FieldGoalsMade),
		"field_goals_attempted": float64(s.FieldGoalsAttempted),
		"extra_points_made":     float64(s.ExtraPointsMade),
	}
}

func (s Kicking) Validate() error {
	if err := s.Ref.validate(VariantKicking); err != nil {
		return err
	}
	if s.FieldGoalsMade < 0 || s.FieldGoalsAttempted < 0 {
		return fmt.Errorf("kicking counters cannot be negative")
	}
	if s.FieldGoalsMade > s.FieldGoalsAttempted {
		return fmt.Errorf("field goals made (%d) exceed attempts (%d)", s.FieldGoalsMade, s.FieldGoalsAttempted)
	}
	return nil
}

type Punting struct {
	Ref
	Punts    int
	Yards    int
	Longest  int
	Inside20 int
}

func (Punting) Variant() Variant { return VariantPunting }

func (s Punting) Counts() map[string]float64 {
	return map[string]float64{
		"punts":       float64(s.Punts),
		"punt_yards":  float64(s.Yards),
		"punts_in_20": float64(s.Inside20),
	}
}

func (s Punting) Validate() error {
	if err := s.Ref.validate(VariantPunting); err != nil {
		return err
	}
	if s.Punts < 0 || s.Yards < 0 {
		return fmt.Errorf("punting counters cannot be negative")
	}
	return nil
}

type Return struct {
	Ref
	KickReturns     int
	KickReturnYards int
	KickReturnTDs   int
	PuntReturns     int
	PuntReturnYards int
	PuntReturnTDs   int
}

func (Return) Variant() Variant { return VariantReturn }

func (s Return) Counts() map[string]float64 {
	return map[string]float64{
		"kick_returns":      float64(s.KickReturns),
		"kick_return_yards": float64(s.KickReturnYards),
		"kick_return_tds":   float64(s.KickReturnTDs),
		"punt_returns":      float64(s.PuntReturns),
		"punt_return_yards": float64(s.PuntReturnYards),
		"punt_return_tds":   float64(s.PuntReturnTDs),
	}
}

func (s Return) Validate() error {
	if err := s.Ref.validate(VariantReturn); err != nil {
		return err
	}
	if s.KickReturns < 0 || s.PuntReturns < 0 || s.KickReturnTDs < 0 || s.PuntReturnTDs < 0 {
		return fmt.Errorf("return counters cannot be negative")
	}
	return nil
}
