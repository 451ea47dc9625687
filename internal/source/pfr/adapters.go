package pfr

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	crerr "github.com/cockroachdb/errors"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/game"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/player"
	"github.com/evgenk/nfl-fantasy-data/internal/domain/stats"
	"github.com/evgenk/nfl-fantasy-data/internal/source"
	"github.com/evgenk/nfl-fantasy-data/internal/source/static"
)

var boxscoreStemRe = regexp.MustCompile(`^(\d{8})0([a-z]{3})$`)

var stemToCode = func() map[string]string {
	m := make(map[string]string, len(pfrTeamCodes))
	for code, stem := range pfrTeamCodes {
		m[stem] = code
	}
	return m
}()

func codeFromStem(stem string) string {
	if code, ok := stemToCode[stem]; ok {
		return code
	}
	return strings.ToUpper(stem)
}

// RosterAdapter scrapes a team's season roster page. PFR rosters carry
// no stable cross-source id, so these players key on name and position.
type RosterAdapter struct {
	client *Client
}

func NewRosterAdapter(client *Client) *RosterAdapter {
	return &RosterAdapter{client: client}
}

func (a *RosterAdapter) Name() string              { return SourceName }
func (a *RosterAdapter) Priority() source.Priority { return source.PrioritySecondary }

func (a *RosterAdapter) Fetch(ctx context.Context, sel source.Selector) ([]player.Player, error) {
	if sel.TeamCode == "" || sel.Season <= 0 {
		return nil, crerr.New("pfr roster: team code and season are required")
	}

	path := fmt.Sprintf("/teams/%s/%d_roster.htm", teamStem(sel.TeamCode), sel.Season)
	doc, err := a.client.getDocument(ctx, path)
	if err != nil {
		return nil, err
	}

	var out []player.Player
	doc.Find("table#roster tbody tr").Each(func(_ int, row *goquery.Selection) {
		name := strings.TrimSpace(row.Find("td[data-stat=player] a").First().Text())
		if name == "" {
			return
		}
		position, ok := player.NormalizePosition(strings.ToUpper(strings.TrimSpace(row.Find("td[data-stat=pos]").Text())))
		if !ok {
			return
		}
		out = append(out, player.Player{
			Name:     name,
			Position: position,
			TeamCode: strings.ToUpper(sel.TeamCode),
			HeightIn: parseHeight(row.Find("td[data-stat=height]").Text()),
			WeightLb: cellInt(row, "weight"),
			Active:   true,
		})
	})

	if len(out) == 0 {
		return nil, crerr.Wrapf(source.ErrEmpty, "pfr roster %s %d", sel.TeamCode, sel.Season)
	}
	return out, nil
}

// WeekGamesAdapter scrapes the weekly scores pages. With no week in the
// selector it walks the whole season, stopping once the playoff weeks
// run dry.
type WeekGamesAdapter struct {
	client *Client
}

func NewWeekGamesAdapter(client *Client) *WeekGamesAdapter {
	return &WeekGamesAdapter{client: client}
}

func (a *WeekGamesAdapter) Name() string              { return SourceName }
func (a *WeekGamesAdapter) Priority() source.Priority { return source.PrioritySecondary }

func (a *WeekGamesAdapter) Fetch(ctx context.Context, sel source.Selector) ([]game.Game, error) {
	if sel.Season <= 0 {
		return nil, crerr.New("pfr games: season is required")
	}

	weeks := make([]int, 0, game.MaxWeek)
	if sel.Week > 0 {
		weeks = append(weeks, sel.Week)
	} else {
		for w := game.MinWeek; w <= game.MaxWeek; w++ {
			weeks = append(weeks, w)
		}
	}

	var out []game.Game
	for _, week := range weeks {
		games, err := a.fetchWeek(ctx, sel.Season, week)
		if err != nil {
			if crerr.Is(err, source.ErrEmpty) && week > 18 {
				break
			}
			if len(weeks) == 1 {
				return nil, err
			}
			a.client.logger.WarnContext(ctx, "pfr week page failed",
				"season", sel.Season, "week", week, "error", err)
			continue
		}
		out = append(out, games...)
	}

	if len(out) == 0 {
		return nil, crerr.Wrapf(source.ErrEmpty, "pfr games season %d", sel.Season)
	}
	return out, nil
}

func (a *WeekGamesAdapter) fetchWeek(ctx context.Context, season, week int) ([]game.Game, error) {
	path := fmt.Sprintf("/years/%d/week_%d.htm", season, week)
	doc, err := a.client.getDocument(ctx, path)
	if err != nil {
		return nil, err
	}

	var out []game.Game
	doc.Find("div.game_summary").Each(func(_ int, summary *goquery.Selection) {
		g, ok := parseGameSummary(summary, season, week)
		if ok {
			out = append(out, g)
		}
	})

	if len(out) == 0 {
		return nil, crerr.Wrapf(source.ErrEmpty, "pfr week %d/%d", season, week)
	}
	return out, nil
}

// parseGameSummary reads one scores box. The boxscore link stem encodes
// both the date and the home team, which sidesteps the winner-first row
// ordering on the page.
func parseGameSummary(summary *goquery.Selection, season, week int) (game.Game, bool) {
	href, ok := summary.Find("td.gamelink a").First().Attr("href")
	if !ok {
		return game.Game{}, false
	}
	stem := strings.TrimSuffix(strings.TrimPrefix(href, "/boxscores/"), ".htm")
	m := boxscoreStemRe.FindStringSubmatch(stem)
	if m == nil {
		return game.Game{}, false
	}

	date, err := time.Parse("20060102", m[1])
	if err != nil {
		return game.Game{}, false
	}
	homeCode := codeFromStem(m[2])

	type side struct {
		code  string
		score *int
	}
	var sides []side
	summary.Find("table.teams tbody tr").Each(func(_ int, row *goquery.Selection) {
		name := strings.TrimSpace(row.Find("td a").First().Text())
		code, known := static.CodeForName(name)
		if !known {
			return
		}
		s := side{code: code}
		if scoreText := strings.TrimSpace(row.Find("td.right").First().Text()); scoreText != "" {
			if parsed, err := strconv.Atoi(scoreText); err == nil {
				s.score = &parsed
			}
		}
		sides = append(sides, s)
	})
	if len(sides) != 2 {
		return game.Game{}, false
	}

	g := game.Game{
		ExternalID: stem,
		Season:     season,
		Week:       week,
		Date:       date,
		Type:       game.TypeRegular,
	}
	if week > 18 {
		g.Type = game.TypePlayoff
	}

	for _, s := range sides {
		if s.code == homeCode {
			g.HomeTeam = s.code
			g.HomeScore = s.score
		} else {
			g.AwayTeam = s.code
			g.AwayScore = s.score
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

// BoxscoreStatsAdapter scrapes per-player tables from a boxscore page.
// The page URL comes from the game's date and home team unless the game
// id already is a PFR stem.
type BoxscoreStatsAdapter struct {
	client *Client
}

func NewBoxscoreStatsAdapter(client *Client) *BoxscoreStatsAdapter {
	return &BoxscoreStatsAdapter{client: client}
}

func (a *BoxscoreStatsAdapter) Name() string              { return SourceName }
func (a *BoxscoreStatsAdapter) Priority() source.Priority { return source.PrioritySecondary }

func (a *BoxscoreStatsAdapter) Fetch(ctx context.Context, sel source.Selector) ([]stats.Line, error) {
	stem, err := boxscoreStem(sel)
	if err != nil {
		return nil, err
	}

	doc, err := a.client.getDocument(ctx, "/boxscores/"+stem+".htm")
	if err != nil {
		return nil, err
	}

	var out []stats.Line
	out = append(out, parseOffenseTable(doc, sel.GameExternalID)...)
	out = append(out, parseDefenseTable(doc, sel.GameExternalID)...)
	out = append(out, parseReturnsTable(doc, sel.GameExternalID)...)
	out = append(out, parseKickingTable(doc, sel.GameExternalID)...)

	if len(out) == 0 {
		return nil, crerr.Wrapf(source.ErrEmpty, "pfr boxscore %s", stem)
	}
	return out, nil
}

func boxscoreStem(sel source.Selector) (string, error) {
	if boxscoreStemRe.MatchString(sel.GameExternalID) {
		return sel.GameExternalID, nil
	}
	if sel.GameDate.IsZero() || sel.HomeTeam == "" {
		return "", crerr.New("pfr boxscore: need game date and home team")
	}
	return sel.GameDate.Format("20060102") + "0" + teamStem(sel.HomeTeam), nil
}

func parseOffenseTable(doc *goquery.Document, gameID string) []stats.Line {
	var out []stats.Line
	doc.Find("table#player_offense tbody tr").Each(func(_ int, row *goquery.Selection) {
		name := strings.TrimSpace(row.Find("th[data-stat=player] a").First().Text())
		if name == "" {
			return
		}
		ref := stats.NewRef(name, gameID)

		passAtt := cellInt(row, "pass_att")
		if passAtt > 0 || cellInt(row, "pass_cmp") > 0 {
			out = append(out, stats.Passing{
				Ref:                 ref,
				Attempts:            passAtt,
				Completions:         cellInt(row, "pass_cmp"),
				Yards:               cellInt(row, "pass_yds"),
				Touchdowns:          cellInt(row, "pass_td"),
				InterceptionsThrown: cellInt(row, "pass_int"),
				Sacked:              cellInt(row, "pass_sacked"),
				SackYardsLost:       cellInt(row, "pass_sacked_yds"),
			})
		}

		fumblesLost := cellInt(row, "fumbles_lost")
		rushAtt := cellInt(row, "rush_att")
		targets := cellInt(row, "targets")

		if rushAtt > 0 || (fumblesLost > 0 && targets == 0) {
			out = append(out, stats.Rushing{
				Ref:         ref,
				Attempts:    rushAtt,
				Yards:       cellInt(row, "rush_yds"),
				Touchdowns:  cellInt(row, "rush_td"),
				FumblesLost: fumblesLost,
			})
			fumblesLost = 0
		}
		if targets > 0 || cellInt(row, "rec") > 0 {
			out = append(out, stats.Receiving{
				Ref:         ref,
				Targets:     targets,
				Receptions:  cellInt(row, "rec"),
				Yards:       cellInt(row, "rec_yds"),
				Touchdowns:  cellInt(row, "rec_td"),
				FumblesLost: fumblesLost,
			})
		}
	})
	return out
}

func parseDefenseTable(doc *goquery.Document, gameID string) []stats.Line {
	var out []stats.Line
	doc.Find("table#player_defense tbody tr").Each(func(_ int, row *goquery.Selection) {
		name := strings.TrimSpace(row.Find("th[data-stat=player] a").First().Text())
		if name == "" {
			return
		}
		out = append(out, stats.Defensive{
			Ref:              stats.NewRef(name, gameID),
			TacklesSolo:      cellInt(row, "tackles_solo"),
			TacklesAssisted:  cellInt(row, "tackles_assists"),
			Sacks:            cellFloat(row, "sacks"),
			Interceptions:    cellInt(row, "def_int"),
			FumblesForced:    cellInt(row, "fumbles_forced"),
			FumblesRecovered: cellInt(row, "fumbles_rec"),
			PassesDefended:   cellInt(row, "pass_defended"),
			Touchdowns:       cellInt(row, "def_int_td") + cellInt(row, "fumbles_rec_td"),
		})
	})
	return out
}

func parseReturnsTable(doc *goquery.Document, gameID string) []stats.Line {
	var out []stats.Line
	doc.Find("table#returns tbody tr").Each(func(_ int, row *goquery.Selection) {
		name := strings.TrimSpace(row.Find("th[data-stat=player] a").First().Text())
		if name == "" {
			return
		}
		out = append(out, stats.Return{
			Ref:             stats.NewRef(name, gameID),
			KickReturns:     cellInt(row, "kick_ret"),
			KickReturnYards: cellInt(row, "kick_ret_yds"),
			KickReturnTDs:   cellInt(row, "kick_ret_td"),
			PuntReturns:     cellInt(row, "punt_ret"),
			PuntReturnYards: cellInt(row, "punt_ret_yds"),
			PuntReturnTDs:   cellInt(row, "punt_ret_td"),
		})
	})
	return out
}

func parseKickingTable(doc *goquery.Document, gameID string) []stats.Line {
	var out []stats.Line
	doc.Find("table#kicking tbody tr").Each(func(_ int, row *goquery.Selection) {
		name := strings.TrimSpace(row.Find("th[data-stat=player] a").First().Text())
		if name == "" {
			return
		}
		ref := stats.NewRef(name, gameID)

		if fga := cellInt(row, "fga"); fga > 0 || cellInt(row, "xpa") > 0 {
			out = append(out, stats.Kicking{
				Ref:                  ref,
				FieldGoalsMade:       cellInt(row, "fgm"),
				FieldGoalsAttempted:  fga,
				ExtraPointsMade:      cellInt(row, "xpm"),
				ExtraPointsAttempted: cellInt(row, "xpa"),
			})
		}
		if punts := cellInt(row, "punt"); punts > 0 {
			out = append(out, stats.Punting{
				Ref:   ref,
				Punts: punts,
				Yards: cellInt(row, "punt_yds"),
			})
		}
	})
	return out
}

func cellInt(row *goquery.Selection, stat string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(row.Find("td[data-stat=" + stat + "]").Text()))
	return n
}

func cellFloat(row *goquery.Selection, stat string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(row.Find("td[data-stat="+stat+"]").Text()), 64)
	return f
}

// parseHeight converts PFR's ft-in notation, e.g. "6-2", to inches.
func parseHeight(text string) int {
	parts := strings.SplitN(strings.TrimSpace(text), "-", 2)
	if len(parts) != 2 {
		return 0
	}
	feet, err1 := strconv.Atoi(parts[0])
	inches, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0
	}
	return feet*12 + inches
}
