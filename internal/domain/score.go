package domain

import "fmt"

const (
	QueueRankedSolo = "RANKED_SOLO_5x5"
	QueueRankedFlex = "RANKED_FLEX_SR"
)

const Unranked = "UNRANKED"

var tierOrder = map[string]int{
	"IRON":        0,
	"BRONZE":      1,
	"SILVER":      2,
	"GOLD":        3,
	"PLATINUM":    4,
	"EMERALD":     5,
	"DIAMOND":     6,
	"MASTER":      7,
	"GRANDMASTER": 8,
	"CHALLENGER":  9,
}

var divisionOrder = map[string]int{"IV": 0, "III": 1, "II": 2, "I": 3}

type Score struct {
	Queue        string
	Tier         string
	Division     string
	LeaguePoints int
	Wins         int
	Losses       int
}

func UnrankedScore(queue string) Score {
	return Score{Queue: queue, Tier: Unranked}
}

func (s Score) Ranked() bool {
	_, ok := tierOrder[s.Tier]
	return ok
}

// Value flattens tier, division and LP into one comparable number.
// Apex tiers have no divisions and uncapped LP. Unranked is -1.
func (s Score) Value() int {
	tier, ok := tierOrder[s.Tier]
	if !ok {
		return -1
	}
	if div, ok := divisionOrder[s.Division]; ok && tier < tierOrder["MASTER"] {
		return tier*400 + div*100 + s.LeaguePoints
	}
	return tier*400 + s.LeaguePoints
}

func (s Score) String() string {
	if !s.Ranked() {
		return Unranked
	}
	if s.Division == "" || tierOrder[s.Tier] >= tierOrder["MASTER"] {
		return fmt.Sprintf("%s - %d LP", s.Tier, s.LeaguePoints)
	}
	return fmt.Sprintf("%s %s - %d LP", s.Tier, s.Division, s.LeaguePoints)
}
