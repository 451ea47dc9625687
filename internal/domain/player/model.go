package player

import "fmt"

// Position represents roster position categories used in fantasy scoring.
type Position string

const (
	PositionQuarterback   Position = "QB"
	PositionRunningBack   Position = "RB"
	PositionWideReceiver  Position = "WR"
	PositionTightEnd      Position = "TE"
	PositionLinebacker    Position = "LB"
	PositionDefensiveLine Position = "DL"
	PositionDefensiveBack Position = "DB"
	PositionKicker        Position = "K"
	PositionPunter        Position = "P"
)

var AllPositions = map[Position]struct{}{
	PositionQuarterback:   {},
	PositionRunningBack:   {},
	PositionWideReceiver:  {},
	PositionTightEnd:      {},
	PositionLinebacker:    {},
	PositionDefensiveLine: {},
	PositionDefensiveBack: {},
	PositionKicker:        {},
	PositionPunter:        {},
}

// positionAliases maps the position labels the sources use onto the
// canonical enum. Sources disagree on defensive granularity.
var positionAliases = map[string]Position{
	"QB":  PositionQuarterback,
	"RB":  PositionRunningBack,
	"FB":  PositionRunningBack,
	"HB":  PositionRunningBack,
	"WR":  PositionWideReceiver,
	"TE":  PositionTightEnd,
	"LB":  PositionLinebacker,
	"ILB": PositionLinebacker,
	"OLB": PositionLinebacker,
	"MLB": PositionLinebacker,
	"DL":  PositionDefensiveLine,
	"DT":  PositionDefensiveLine,
	"DE":  PositionDefensiveLine,
	"NT":  PositionDefensiveLine,
	"DB":  PositionDefensiveBack,
	"CB":  PositionDefensiveBack,
	"S":   PositionDefensiveBack,
	"SS":  PositionDefensiveBack,
	"FS":  PositionDefensiveBack,
	"K":   PositionKicker,
	"PK":  PositionKicker,
	"P":   PositionPunter,
}

// NormalizePosition maps a source-specific position label onto the
// canonical enum. The second return is false for labels with no mapping
// (offensive linemen, long snappers).
func NormalizePosition(label string) (Position, bool) {
	pos, ok := positionAliases[label]
	return pos, ok
}

// Player is one athlete. ExternalID is the source's stable id and may be
// empty when the supplying source has none; NaturalKey falls back to
// name+position in that case. TeamCode changes on trades, it is the only
// reference mutated after creation besides the active flag and physicals.
type Player struct {
	ExternalID string
	Name       string
	Position   Position
	TeamCode   string
	HeightIn   int
	WeightLb   int
	Active     bool
}

// NaturalKey is the idempotence key for upserts and cross-table joins.
func (p Player) NaturalKey() string {
	if p.ExternalID != "" {
		return p.ExternalID
	}
	return p.Name + "|" + string(p.Position)
}

func (p Player) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("player name is required")
	}
	if _, ok := AllPositions[p.Position]; !ok {
		return fmt.Errorf("invalid player position: %s", p.Position)
	}
	if p.HeightIn < 0 || p.WeightLb < 0 {
		return fmt.Errorf("player physical attributes cannot be negative")
	}
	return nil
}
