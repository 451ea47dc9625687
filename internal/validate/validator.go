package validate

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/game"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/player"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/stats"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/team"
)

// Season game counts outside this band on a full-season backfill point at
// an extraction gap rather than a scheduling quirk.
const (
	MinSeasonGames = 250
	MaxSeasonGames = 285
)

// Rejection names one record that failed validation and every reason it
// failed. Records are never silently dropped.
type Rejection struct {
	Key     string
	Reasons []string
}

// Outcome splits one validated batch. Ratio is accepted over total and
// reports 1.0 for an empty batch.
type Outcome[T any] struct {
	Accepted []T
	Rejected []Rejection
}

func (o Outcome[T]) Ratio() float64 {
	total := len(o.Accepted) + len(o.Rejected)
	if total == 0 {
		return 1.0
	}
	return float64(len(o.Accepted)) / float64(total)
}

// Validator runs structural and plausibility checks over extracted
// batches. It is pure: no I/O, no persistence, identical verdicts for
// identical input.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	return &Validator{v: validator.New()}
}

func (c *Validator) check(value any, tag, reason string) (string, bool) {
	if err := c.v.Var(value, tag); err != nil {
		return reason, false
	}
	return "", true
}

// Teams validates team reference records.
func (c *Validator) Teams(teams []team.Team) Outcome[team.Team] {
	var out Outcome[team.Team]
	for _, t := range teams {
		reasons := structuralReasons(t.Validate())
		if t.Code != "" && !team.KnownCode(t.Code) {
			reasons = append(reasons, fmt.Sprintf("unknown team code %q", t.Code))
		}
		out.collect(t, t.Code, reasons)
	}
	return out
}

// Players validates roster records.
func (c *Validator) Players(players []player.Player) Outcome[player.Player] {
	var out Outcome[player.Player]
	for _, p := range players {
		reasons := structuralReasons(p.Validate())
		if p.HeightIn != 0 {
			if reason, ok := c.check(p.HeightIn, "gte=60,lte=84", fmt.Sprintf("height %d in outside 60..84", p.HeightIn)); !ok {
				reasons = append(reasons, reason)
			}
		}
		if p.WeightLb != 0 {
			if reason, ok := c.check(p.WeightLb, "gte=140,lte=400", fmt.Sprintf("weight %d lb outside 140..400", p.WeightLb)); !ok {
				reasons = append(reasons, reason)
			}
		}
		// An empty team code means a free agent and is fine; a non-empty
		// one has to name a real franchise.
		if p.TeamCode != "" && !team.KnownCode(p.TeamCode) {
			reasons = append(reasons, fmt.Sprintf("unknown team code %q", p.TeamCode))
		}
		out.collect(p, p.NaturalKey(), reasons)
	}
	return out
}

// Games validates schedule records, including the week window.
func (c *Validator) Games(games []game.Game) Outcome[game.Game] {
	var out Outcome[game.Game]
	for _, g := range games {
		reasons := structuralReasons(g.Validate())
		if reason, ok := c.check(g.Week, fmt.Sprintf("gte=%d,lte=%d", game.MinWeek, game.MaxWeek), fmt.Sprintf("week %d outside %d..%d", g.Week, game.MinWeek, game.MaxWeek)); !ok {
			reasons = append(reasons, reason)
		}
		if reason, ok := c.check(g.Season, "gte=1990,lte=2100", fmt.Sprintf("season %d is implausible", g.Season)); !ok {
			reasons = append(reasons, reason)
		}
		if g.HomeTeam != "" && !team.KnownCode(g.HomeTeam) {
			reasons = append(reasons, fmt.Sprintf("unknown home team code %q", g.HomeTeam))
		}
		if g.AwayTeam != "" && !team.KnownCode(g.AwayTeam) {
			reasons = append(reasons, fmt.Sprintf("unknown away team code %q", g.AwayTeam))
		}
		out.collect(g, g.ExternalID, reasons)
	}
	return out
}

// Participations validates player-game links.
func (c *Validator) Participations(parts []game.Participation) Outcome[game.Participation] {
	var out Outcome[game.Participation]
	for _, p := range parts {
		reasons := structuralReasons(p.Validate())
		if p.TeamCode != "" && !team.KnownCode(p.TeamCode) {
			reasons = append(reasons, fmt.Sprintf("unknown team code %q", p.TeamCode))
		}
		out.collect(p, p.PlayerKey+"/"+p.GameExternalID, reasons)
	}
	return out
}

// Lines validates stat lines against structural rules plus per-variant
// plausibility ceilings. A 700-yard passing line is a parse artifact,
// not a record book entry.
func (c *Validator) Lines(lines []stats.Line) Outcome[stats.Line] {
	var out Outcome[stats.Line]
	for _, line := range lines {
		reasons := c.lineReasons(line)
		out.collect(line, line.PlayerKey()+"/"+line.GameKey(), reasons)
	}
	return out
}

func (c *Validator) lineReasons(line stats.Line) []string {
	var reasons []string

	switch s := line.(type) {
	case stats.Passing:
		reasons = structuralReasons(s.Validate())
		if reason, ok := c.check(s.Yards, "gte=0,lte=600", fmt.Sprintf("passing yards %d outside 0..600", s.Yards)); !ok {
			reasons = append(reasons, reason)
		}
	case stats.Rushing:
		reasons = structuralReasons(s.Validate())
		if reason, ok := c.check(s.Yards, "gte=-20,lte=400", fmt.Sprintf("rushing yards %d outside -20..400", s.Yards)); !ok {
			reasons = append(reasons, reason)
		}
	case stats.Receiving:
		reasons = structuralReasons(s.Validate())
		if reason, ok := c.check(s.Yards, "gte=0,lte=350", fmt.Sprintf("receiving yards %d outside 0..350", s.Yards)); !ok {
			reasons = append(reasons, reason)
		}
	case stats.Defensive:
		reasons = structuralReasons(s.Validate())
	case stats.Kicking:
		reasons = structuralReasons(s.Validate())
	case stats.Punting:
		reasons = structuralReasons(s.Validate())
	case stats.Return:
		reasons = structuralReasons(s.Validate())
	default:
		reasons = append(reasons, fmt.Sprintf("unknown stat variant %T", line))
	}

	return reasons
}

// SeasonGameCount flags a full-season game total outside the plausible
// band. The caller decides whether that aborts or just logs.
func (c *Validator) SeasonGameCount(season, count int) error {
	if err := c.v.Var(count, fmt.Sprintf("gte=%d,lte=%d", MinSeasonGames, MaxSeasonGames)); err != nil {
		return fmt.Errorf("season %d has %d games, expected %d..%d", season, count, MinSeasonGames, MaxSeasonGames)
	}
	return nil
}

func (o *Outcome[T]) collect(record T, key string, reasons []string) {
	if len(reasons) == 0 {
		o.Accepted = append(o.Accepted, record)
		return
	}
	o.Rejected = append(o.Rejected, Rejection{Key: key, Reasons: reasons})
}

func structuralReasons(err error) []string {
	if err == nil {
		return nil
	}
	return []string{err.Error()}
}
