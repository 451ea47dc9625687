package espn

import (
	"context"
	"strconv"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/game"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/player"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/stats"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/team"
	"github.com/evgenk/nfl-fantasy-data/internal/source"
	"github.com/evgenk/nfl-fantasy-data/internal/source/static"
)

// ESPN uses a few abbreviations that differ from the canonical codes.
var abbreviationFixes = map[string]string{
	"WSH": "WAS",
}

func canonicalCode(abbr string) string {
	code := strings.ToUpper(strings.TrimSpace(abbr))
	if fixed, ok := abbreviationFixes[code]; ok {
		return fixed
	}
	return code
}

// TeamsAdapter extracts the franchise list. The teams endpoint carries
// no conference or division, those come from the static reference set.
type TeamsAdapter struct {
	client *Client
}

func NewTeamsAdapter(client *Client) *TeamsAdapter {
	return &TeamsAdapter{client: client}
}

func (a *TeamsAdapter) Name() string              { return SourceName }
func (a *TeamsAdapter) Priority() source.Priority { return source.PriorityPrimary }

func (a *TeamsAdapter) Fetch(ctx context.Context, _ source.Selector) ([]team.Team, error) {
	var envelope teamsEnvelope
	if err := a.client.getJSON(ctx, "/teams", nil, &envelope); err != nil {
		return nil, err
	}

	var out []team.Team
	for _, sport := range envelope.Sports {
		for _, league := range sport.Leagues {
			for _, entry := range league.Teams {
				code := canonicalCode(entry.Team.Abbreviation)
				if code == "" {
					continue
				}
				t := team.Team{
					Code: code,
					Name: strings.TrimSpace(entry.Team.DisplayName),
				}
				if ref, ok := static.Lookup(code); ok {
					t.Conference = ref.Conference
					t.Division = ref.Division
				}
				out = append(out, t)
			}
		}
	}

	if len(out) == 0 {
		return nil, crerr.Wrap(source.ErrEmpty, "espn teams")
	}
	return out, nil
}

// GamesAdapter extracts a season's schedule from the scoreboard
// endpoint, regular season and playoffs in separate requests.
type GamesAdapter struct {
	client *Client
}

func NewGamesAdapter(client *Client) *GamesAdapter {
	return &GamesAdapter{client: client}
}

func (a *GamesAdapter) Name() string              { return SourceName }
func (a *GamesAdapter) Priority() source.Priority { return source.PriorityPrimary }

func (a *GamesAdapter) Fetch(ctx context.Context, sel source.Selector) ([]game.Game, error) {
	if sel.Season <= 0 {
		return nil, crerr.New("espn games: season is required")
	}

	var out []game.Game
	seen := make(map[string]struct{})

	for _, part := range []struct {
		seasonType string
		gameType   game.Type
	}{
		{"2", game.TypeRegular},
		{"3", game.TypePlayoff},
	} {
		query := map[string]string{
			"year":       strconv.Itoa(sel.Season),
			"seasontype": part.seasonType,
		}
		if sel.Week > 0 {
			query["week"] = strconv.Itoa(sel.Week)
		}

		var envelope scoreboardEnvelope
		if err := a.client.getJSON(ctx, "/scoreboard", query, &envelope); err != nil {
			if part.gameType == game.TypePlayoff && len(out) > 0 {
				// Playoffs may not exist yet for an in-progress season.
				a.client.logger.WarnContext(ctx, "espn playoff scoreboard unavailable",
					"season", sel.Season, "error", err)
				break
			}
			return nil, err
		}

		for _, event := range envelope.Events {
			g, ok := mapScoreboardEvent(event, sel.Season, part.gameType)
			if !ok {
				continue
			}
			if _, dup := seen[g.ExternalID]; dup {
				continue
			}
			seen[g.ExternalID] = struct{}{}
			out = append(out, g)
		}
	}

	if len(out) == 0 {
		return nil, crerr.Wrapf(source.ErrEmpty, "espn scoreboard season %d", sel.Season)
	}
	return out, nil
}

func mapScoreboardEvent(event scoreboardEvent, season int, gameType game.Type) (game.Game, bool) {
	if event.ID == "" || len(event.Competitions) == 0 {
		return game.Game{}, false
	}

	date, err := time.Parse(time.RFC3339, event.Date)
	if err != nil {
		return game.Game{}, false
	}

	competition := event.Competitions[0]
	if len(competition.Competitors) != 2 {
		return game.Game{}, false
	}

	g := game.Game{
		ExternalID: event.ID,
		Season:     season,
		Week:       event.Week.Number,
		Date:       date,
		Type:       gameType,
	}
	if gameType == game.TypePlayoff {
		// Playoff weeks continue the regular season numbering.
		g.Week = event.Week.Number + 18
	}

	completed := competition.Status.Type.Completed
	for _, competitor := range competition.Competitors {
		code := canonicalCode(competitor.Team.Abbreviation)
		var score *int
		if completed && competitor.Score != "" {
			if parsed, err := strconv.Atoi(competitor.Score); err == nil {
				score = &parsed
			}
		}
		if competitor.HomeAway == "home" {
			g.HomeTeam = code
			g.HomeScore = score
		} else {
			g.AwayTeam = code
			g.AwayScore = score
		}
	}

	if g.HomeTeam == "" || g.AwayTeam == "" {
		return game.Game{}, false
	}
	if (g.HomeScore == nil) != (g.AwayScore == nil) {
		g.HomeScore = nil
		g.AwayScore = nil
	}
	return g, true
}

// RosterAdapter extracts one team's roster. Athlete ids become the
// players' external ids, which also key the boxscore stat lines.
type RosterAdapter struct {
	client *Client
}

func NewRosterAdapter(client *Client) *RosterAdapter {
	return &RosterAdapter{client: client}
}

func (a *RosterAdapter) Name() string              { return SourceName }
func (a *RosterAdapter) Priority() source.Priority { return source.PriorityPrimary }

func (a *RosterAdapter) Fetch(ctx context.Context, sel source.Selector) ([]player.Player, error) {
	if sel.TeamCode == "" {
		return nil, crerr.New("espn roster: team code is required")
	}

	var envelope rosterEnvelope
	path := "/teams/" + strings.ToLower(sel.TeamCode) + "/roster"
	if err := a.client.getJSON(ctx, path, nil, &envelope); err != nil {
		return nil, err
	}

	var out []player.Player
	for _, group := range envelope.Athletes {
		for _, athlete := range group.Items {
			position, ok := player.NormalizePosition(strings.ToUpper(athlete.Position.Abbreviation))
			if !ok {
				continue
			}
			out = append(out, player.Player{
				ExternalID: athlete.ID,
				Name:       strings.TrimSpace(athlete.FullName),
				Position:   position,
				TeamCode:   canonicalCode(sel.TeamCode),
				HeightIn:   int(athlete.Height),
				WeightLb:   int(athlete.Weight),
				Active:     true,
			})
		}
	}

	if len(out) == 0 {
		return nil, crerr.Wrapf(source.ErrEmpty, "espn roster %s", sel.TeamCode)
	}
	return out, nil
}

// StatsAdapter extracts per-player stat lines from the game summary
// boxscore. Kicking, punting and return categories ride along with the
// four core ones.
type StatsAdapter struct {
	client *Client
}

func NewStatsAdapter(client *Client) *StatsAdapter {
	return &StatsAdapter{client: client}
}

func (a *StatsAdapter) Name() string              { return SourceName }
func (a *StatsAdapter) Priority() source.Priority { return source.PriorityPrimary }

func (a *StatsAdapter) Fetch(ctx context.Context, sel source.Selector) ([]stats.Line, error) {
	envelope, err := a.client.fetchSummary(ctx, sel)
	if err != nil {
		return nil, err
	}

	// Defense and returns are split across categories in the payload;
	// they merge into one line per player before emission.
	builder := newLineBuilder(sel.GameExternalID)
	for _, side := range envelope.Boxscore.Players {
		for _, category := range side.Statistics {
			for _, entry := range category.Athletes {
				builder.add(category.Name, category.Labels, entry)
			}
		}
	}
	out := builder.lines()

	if len(out) == 0 {
		return nil, crerr.Wrapf(source.ErrEmpty, "espn summary %s", sel.GameExternalID)
	}
	return out, nil
}

// ParticipationsAdapter derives player-game links from the same summary
// payload the stats adapter reads; the shared cache makes the second
// parse free.
type ParticipationsAdapter struct {
	client *Client
}

func NewParticipationsAdapter(client *Client) *ParticipationsAdapter {
	return &ParticipationsAdapter{client: client}
}

func (a *ParticipationsAdapter) Name() string              { return SourceName }
func (a *ParticipationsAdapter) Priority() source.Priority { return source.PriorityPrimary }

func (a *ParticipationsAdapter) Fetch(ctx context.Context, sel source.Selector) ([]game.Participation, error) {
	envelope, err := a.client.fetchSummary(ctx, sel)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []game.Participation
	for _, side := range envelope.Boxscore.Players {
		teamCode := canonicalCode(side.Team.Abbreviation)
		for _, category := range side.Statistics {
			for _, entry := range category.Athletes {
				id := entry.Athlete.ID
				if id == "" {
					continue
				}
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				out = append(out, game.Participation{
					PlayerKey:      id,
					GameExternalID: sel.GameExternalID,
					TeamCode:       teamCode,
					Played:         true,
				})
			}
		}
	}

	if len(out) == 0 {
		return nil, crerr.Wrapf(source.ErrEmpty, "espn summary %s", sel.GameExternalID)
	}
	return out, nil
}

func (c *Client) fetchSummary(ctx context.Context, sel source.Selector) (*summaryEnvelope, error) {
	if sel.GameExternalID == "" {
		return nil, crerr.New("espn summary: game external id is required")
	}
	var envelope summaryEnvelope
	query := map[string]string{"event": sel.GameExternalID}
	if err := c.getJSON(ctx, "/summary", query, &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}
