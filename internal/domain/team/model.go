package team

import "fmt"

const (
	ConferenceAFC = "AFC"
	ConferenceNFC = "NFC"
)

var AllDivisions = map[string]struct{}{
	"East":  {},
	"North": {},
	"South": {},
	"West":  {},
}

// Team is one NFL franchise. Code is the natural key; conference and
// division never change after creation, only the display name may be
// corrected by a later extraction pass.
type Team struct {
	Code       string
	Name       string
	Conference string
	Division   string
}

func (t Team) Validate() error {
	if t.Code == "" {
		return fmt.Errorf("team code is required")
	}
	if len(t.Code) < 2 || len(t.Code) > 3 {
		return fmt.Errorf("team code must be 2-3 characters: %s", t.Code)
	}
	if t.Name == "" {
		return fmt.Errorf("team name is required")
	}
	if t.Conference != ConferenceAFC && t.Conference != ConferenceNFC {
		return fmt.Errorf("invalid conference: %s", t.Conference)
	}
	if _, ok := AllDivisions[t.Division]; !ok {
		return fmt.Errorf("invalid division: %s", t.Division)
	}
	return nil
}
