package espn

import (
	"strconv"
	"strings"
)

type teamsEnvelope struct {
	Sports []struct {
		Leagues []struct {
			Teams []struct {
				Team struct {
					ID           string `json:"id"`
					Abbreviation string `json:"abbreviation"`
					DisplayName  string `json:"displayName"`
				} `json:"team"`
			} `json:"teams"`
		} `json:"leagues"`
	} `json:"sports"`
}

type scoreboardEnvelope struct {
	Events []scoreboardEvent `json:"events"`
}

type scoreboardEvent struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Week struct {
		Number int `json:"number"`
	} `json:"week"`
	Competitions []struct {
		Status struct {
			Type struct {
				Completed bool `json:"completed"`
			} `json:"type"`
		} `json:"status"`
		Competitors []struct {
			HomeAway string `json:"homeAway"`
			Score    string `json:"score"`
			Team     struct {
				Abbreviation string `json:"abbreviation"`
			} `json:"team"`
		} `json:"competitors"`
	} `json:"competitions"`
}

type rosterEnvelope struct {
	Athletes []struct {
		Position string          `json:"position"`
		Items    []rosterAthlete `json:"items"`
	} `json:"athletes"`
}

type rosterAthlete struct {
	ID       string  `json:"id"`
	FullName string  `json:"fullName"`
	Height   float64 `json:"height"`
	Weight   float64 `json:"weight"`
	Position struct {
		Abbreviation string `json:"abbreviation"`
	} `json:"position"`
}

type summaryEnvelope struct {
	Boxscore struct {
		Players []struct {
			Team struct {
				Abbreviation string `json:"abbreviation"`
			} `json:"team"`
			Statistics []statCategory `json:"statistics"`
		} `json:"players"`
	} `json:"boxscore"`
}

type statCategory struct {
	Name     string         `json:"name"`
	Labels   []string       `json:"labels"`
	Athletes []statsAthlete `json:"athletes"`
}

type statsAthlete struct {
	Athlete struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	} `json:"athlete"`
	Stats []string `json:"stats"`
}

// statRow pairs a category's labels with one athlete's aligned values.
type statRow struct {
	index  map[string]int
	values []string
}

func newStatRow(labels, values []string) statRow {
	index := make(map[string]int, len(labels))
	for i, label := range labels {
		index[strings.ToUpper(strings.TrimSpace(label))] = i
	}
	return statRow{index: index, values: values}
}

func (r statRow) raw(label string) string {
	i, ok := r.index[label]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

func (r statRow) intAt(label string) int {
	n, _ := strconv.Atoi(r.raw(label))
	return n
}

func (r statRow) floatAt(label string) float64 {
	f, _ := strconv.ParseFloat(r.raw(label), 64)
	return f
}

// pairAt splits values like "23/35" or "3-41" into their two numbers.
func (r statRow) pairAt(label, sep string) (int, int) {
	parts := strings.SplitN(r.raw(label), sep, 2)
	if len(parts) != 2 {
		return 0, 0
	}
	first, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
	second, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
	return first, second
}
