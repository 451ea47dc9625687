package espn

import (
	"github.com/evgenk/nfl-fantasy-data/internal/domain/stats"
)

// lineBuilder accumulates boxscore categories into stat lines for one
// game. Passing, rushing, receiving, kicking and punting map one to one;
// the defensive and interceptions categories merge into a single
// defensive line per player, and the two return categories merge the
// same way.
type lineBuilder struct {
	gameID    string
	direct    []stats.Line
	defensive map[string]*stats.Defensive
	returns   map[string]*stats.Return
	order     []string
}

func newLineBuilder(gameID string) *lineBuilder {
	return &lineBuilder{
		gameID:    gameID,
		defensive: make(map[string]*stats.Defensive),
		returns:   make(map[string]*stats.Return),
	}
}

func (b *lineBuilder) add(category string, labels []string, entry statsAthlete) {
	playerID := entry.Athlete.ID
	if playerID == "" {
		return
	}
	row := newStatRow(labels, entry.Stats)

	switch category {
	case "passing":
		completions, attempts := row.pairAt("C/ATT", "/")
		sacked, sackYards := row.pairAt("SACKS-YDS", "-")
		b.direct = append(b.direct, stats.Passing{
			Ref:                 stats.NewRef(playerID, b.gameID),
			Attempts:            attempts,
			Completions:         completions,
			Yards:               row.intAt("YDS"),
			Touchdowns:          row.intAt("TD"),
			InterceptionsThrown: row.intAt("INT"),
			Sacked:              sacked,
			SackYardsLost:       sackYards,
		})
	case "rushing":
		b.direct = append(b.direct, stats.Rushing{
			Ref:        stats.NewRef(playerID, b.gameID),
			Attempts:   row.intAt("CAR"),
			Yards:      row.intAt("YDS"),
			Touchdowns: row.intAt("TD"),
			Longest:    row.intAt("LONG"),
		})
	case "receiving":
		b.direct = append(b.direct, stats.Receiving{
			Ref:        stats.NewRef(playerID, b.gameID),
			Targets:    row.intAt("TGTS"),
			Receptions: row.intAt("REC"),
			Yards:      row.intAt("YDS"),
			Touchdowns: row.intAt("TD"),
			Longest:    row.intAt("LONG"),
		})
	case "kicking":
		fgMade, fgAttempted := row.pairAt("FG", "/")
		xpMade, xpAttempted := row.pairAt("XP", "/")
		b.direct = append(b.direct, stats.Kicking{
			Ref:                  stats.NewRef(playerID, b.gameID),
			FieldGoalsMade:       fgMade,
			FieldGoalsAttempted:  fgAttempted,
			ExtraPointsMade:      xpMade,
			ExtraPointsAttempted: xpAttempted,
			LongestFieldGoal:     row.intAt("LONG"),
		})
	case "punting":
		b.direct = append(b.direct, stats.Punting{
			Ref:      stats.NewRef(playerID, b.gameID),
			Punts:    row.intAt("NO"),
			Yards:    row.intAt("YDS"),
			Longest:  row.intAt("LONG"),
			Inside20: row.intAt("IN 20"),
		})
	case "defensive":
		line := b.defensiveFor(playerID)
		line.TacklesSolo = row.intAt("SOLO")
		if total := row.intAt("TOT"); total > line.TacklesSolo {
			line.TacklesAssisted = total - line.TacklesSolo
		}
		line.Sacks = row.floatAt("SACKS")
		line.PassesDefended = row.intAt("PD")
		line.Touchdowns += row.intAt("TD")
	case "interceptions":
		line := b.defensiveFor(playerID)
		line.Interceptions = row.intAt("INT")
		line.Touchdowns += row.intAt("TD")
	case "fumbles":
		// Fumbles lost need the recovering team to attribute, which this
		// payload does not carry; the boxscore tables on the secondary
		// source fill them in.
	case "kickReturns":
		line := b.returnFor(playerID)
		line.KickReturns = row.intAt("NO")
		line.KickReturnYards = row.intAt("YDS")
		line.KickReturnTDs = row.intAt("TD")
	case "puntReturns":
		line := b.returnFor(playerID)
		line.PuntReturns = row.intAt("NO")
		line.PuntReturnYards = row.intAt("YDS")
		line.PuntReturnTDs = row.intAt("TD")
	}
}

func (b *lineBuilder) defensiveFor(playerID string) *stats.Defensive {
	if line, ok := b.defensive[playerID]; ok {
		return line
	}
	line := &stats.Defensive{Ref: stats.NewRef(playerID, b.gameID)}
	b.defensive[playerID] = line
	b.order = append(b.order, "d:"+playerID)
	return line
}

func (b *lineBuilder) returnFor(playerID string) *stats.Return {
	if line, ok := b.returns[playerID]; ok {
		return line
	}
	line := &stats.Return{Ref: stats.NewRef(playerID, b.gameID)}
	b.returns[playerID] = line
	b.order = append(b.order, "r:"+playerID)
	return line
}

// lines returns the accumulated stat lines in a stable order: direct
// categories first, then merged ones in first-seen order.
func (b *lineBuilder) lines() []stats.Line {
	out := make([]stats.Line, 0, len(b.direct)+len(b.order))
	out = append(out, b.direct...)
	for _, key := range b.order {
		playerID := key[2:]
		switch key[0] {
		case 'd':
			out = append(out, *b.defensive[playerID])
		case 'r':
			out = append(out, *b.returns[playerID])
		}
	}
	return out
}
