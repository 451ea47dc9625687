package team

// referenceTeams is the full franchise list. It changes roughly once a
// decade, so shipping it compiled in keeps code plausibility checks and
// the teams fallback source working when every network source is down.
var referenceTeams = []Team{
	{Code: "ARI", Name: "Arizona Cardinals", Conference: ConferenceNFC, Division: "West"},
	{Code: "ATL", Name: "Atlanta Falcons", Conference: ConferenceNFC, Division: "South"},
	{Code: "BAL", Name: "Baltimore Ravens", Conference: ConferenceAFC, Division: "North"},
	{Code: "BUF", Name: "Buffalo Bills", Conference: ConferenceAFC, Division: "East"},
	{Code: "CAR", Name: "Carolina Panthers", Conference: ConferenceNFC, Division: "South"},
	{Code: "CHI", Name: "Chicago Bears", Conference: ConferenceNFC, Division: "North"},
	{Code: "CIN", Name: "Cincinnati Bengals", Conference: ConferenceAFC, Division: "North"},
	{Code: "CLE", Name: "Cleveland Browns", Conference: ConferenceAFC, Division: "North"},
	{Code: "DAL", Name: "Dallas Cowboys", Conference: ConferenceNFC, Division: "East"},
	{Code: "DEN", Name: "Denver Broncos", Conference: ConferenceAFC, Division: "West"},
	{Code: "DET", Name: "Detroit Lions", Conference: ConferenceNFC, Division: "North"},
	{Code: "GB", Name: "Green Bay Packers", Conference: ConferenceNFC, Division: "North"},
	{Code: "HOU", Name: "Houston Texans", Conference: ConferenceAFC, Division: "South"},
	{Code: "IND", Name: "Indianapolis Colts", Conference: ConferenceAFC, Division: "South"},
	{Code: "JAX", Name: "Jacksonville Jaguars", Conference: ConferenceAFC, Division: "South"},
	{Code: "KC", Name: "Kansas City Chiefs", Conference: ConferenceAFC, Division: "West"},
	{Code: "LV", Name: "Las Vegas Raiders", Conference: ConferenceAFC, Division: "West"},
	{Code: "LAC", Name: "Los Angeles Chargers", Conference: ConferenceAFC, Division: "West"},
	{Code: "LAR", Name: "Los Angeles Rams", Conference: ConferenceNFC, Division: "West"},
	{Code: "MIA", Name: "Miami Dolphins", Conference: ConferenceAFC, Division: "East"},
	{Code: "MIN", Name: "Minnesota Vikings", Conference: ConferenceNFC, Division: "North"},
	{Code: "NE", Name: "New England Patriots", Conference: ConferenceAFC, Division: "East"},
	{Code: "NO", Name: "New Orleans Saints", Conference: ConferenceNFC, Division: "South"},
	{Code: "NYG", Name: "New York Giants", Conference: ConferenceNFC, Division: "East"},
	{Code: "NYJ", Name: "New York Jets", Conference: ConferenceAFC, Division: "East"},
	{Code: "PHI", Name: "Philadelphia Eagles", Conference: ConferenceNFC, Division: "East"},
	{Code: "PIT", Name: "Pittsburgh Steelers", Conference: ConferenceAFC, Division: "North"},
	{Code: "SF", Name: "San Francisco 49ers", Conference: ConferenceNFC, Division: "West"},
	{Code: "SEA", Name: "Seattle Seahawks", Conference: ConferenceNFC, Division: "West"},
	{Code: "TB", Name: "Tampa Bay Buccaneers", Conference: ConferenceNFC, Division: "South"},
	{Code: "TEN", Name: "Tennessee Titans", Conference: ConferenceAFC, Division: "South"},
	{Code: "WAS", Name: "Washington Commanders", Conference: ConferenceNFC, Division: "East"},
}

var referenceByCode = func() map[string]Team {
	m := make(map[string]Team, len(referenceTeams))
	for _, t := range referenceTeams {
		m[t.Code] = t
	}
	return m
}()

// Reference returns a copy of the full franchise list.
func Reference() []Team {
	return append([]Team(nil), referenceTeams...)
}

// ReferenceByCode returns the reference record for a canonical team code.
func ReferenceByCode(code string) (Team, bool) {
	t, ok := referenceByCode[code]
	return t, ok
}

// KnownCode reports whether code names a current franchise. Records
// carrying any other code are implausible regardless of shape.
func KnownCode(code string) bool {
	_, ok := referenceByCode[code]
	return ok
}
