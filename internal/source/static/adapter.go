package static

import (
	"context"

	"github.com/evgenk/nfl-fantasy-data/internal/domain/team"
	"github.com/evgenk/nfl-fantasy-data/internal/source"
)

// SourceName is the provenance label for the built-in reference set.
const SourceName = "static_reference"

var codeByName = func() map[string]string {
	reference := team.Reference()
	m := make(map[string]string, len(reference))
	for _, t := range reference {
		m[t.Name] = t.Code
	}
	// Franchises renamed within the data window.
	m["Washington Football Team"] = "WAS"
	m["Washington Redskins"] = "WAS"
	m["Oakland Raiders"] = "LV"
	m["San Diego Chargers"] = "LAC"
	m["St. Louis Rams"] = "LAR"
	return m
}()

// Lookup returns the reference record for a canonical team code. Network
// sources use it to fill in conference and division.
func Lookup(code string) (team.Team, bool) {
	return team.ReferenceByCode(code)
}

// CodeForName maps a franchise display name, current or historical, onto
// its canonical code.
func CodeForName(name string) (string, bool) {
	code, ok := codeByName[name]
	return code, ok
}

// Teams returns a copy of the full reference set.
func Teams() []team.Team {
	return team.Reference()
}

// TeamsAdapter serves the reference set as the last rung of the teams
// fallback chain.
type TeamsAdapter struct{}

func NewTeamsAdapter() *TeamsAdapter { return &TeamsAdapter{} }

func (a *TeamsAdapter) Name() string              { return SourceName }
func (a *TeamsAdapter) Priority() source.Priority { return source.PriorityFallback }

func (a *TeamsAdapter) Fetch(_ context.Context, _ source.Selector) ([]team.Team, error) {
	return Teams(), nil
}
