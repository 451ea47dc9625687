package game

import (
	"fmt"
	"time"
)

type Type string

const (
	TypeRegular Type = "regular"
	TypePlayoff Type = "playoff"
)

const (
	MinWeek = 1
	MaxWeek = 22
)

// Game is one scheduled or completed NFL game. ExternalID is the natural
// key. Scores stay nil until the game is played and are never reverted to
// nil by a later extraction pass.
type Game struct {
	ExternalID string
	Season     int
	Week       int
	Date       time.Time
	HomeTeam   string
	AwayTeam   string
	HomeScore  *int
	AwayScore  *int
	Type       Type
}

// Final reports whether both scores have been filled in.
func (g Game) Final() bool {
	return g.HomeScore != nil && g.AwayScore != nil
}

func (g Game) Validate() error {
	if g.ExternalID == "" {
		return fmt.Errorf("game external id is required")
	}
	if g.Season < 1920 {
		return fmt.Errorf("invalid season: %d", g.Season)
	}
	if g.Week < MinWeek || g.Week > MaxWeek {
		return fmt.Errorf("week must be in %d..%d: %d", MinWeek, MaxWeek, g.Week)
	}
	if g.Date.IsZero() {
		return fmt.Errorf("game date is required")
	}
	if g.HomeTeam == "" || g.AwayTeam == "" {
		return fmt.Errorf("home and away teams are required")
	}
	if g.HomeTeam == g.AwayTeam {
		return fmt.Errorf("home and away teams must differ: %s", g.HomeTeam)
	}
	if g.Type != TypeRegular && g.Type != TypePlayoff {
		return fmt.Errorf("invalid game type: %s", g.Type)
	}
	if (g.HomeScore == nil) != (g.AwayScore == nil) {
		return fmt.Errorf("scores must be set together")
	}
	if g.HomeScore != nil && (*g.HomeScore < 0 || *g.AwayScore < 0) {
		return fmt.Errorf("scores cannot be negative")
	}
	return nil
}

// Participation records that a player dressed for a team in one game.
// The (player, game) pair is unique; TeamCode captures which side the
// player was on, which matters across mid-season trades.
type Participation struct {
	PlayerKey      string
	GameExternalID string
	TeamCode       string
	Played         bool
}

func (p Participation) Validate() error {
	if p.PlayerKey == "" {
		return fmt.Errorf("participation player key is required")
	}
	if p.GameExternalID == "" {
		return fmt.Errorf("participation game id is required")
	}
	if p.TeamCode == "" {
		return fmt.Errorf("participation team code is required")
	}
	return nil
}
