package domain

import (
	"strings"
	"time"
)

type Identity struct {
	ID         string // nanoid
	UserHandle string
	GameName   string
	TagLine    string
	Region     string // platform routing value, e.g. "euw1"
	Puuid      string
	CreatedAt  time.Time
}

// RiotID renders the identity the way players type it.
func (i Identity) RiotID() string {
	return i.GameName + "#" + i.TagLine
}

// ParseRiotID splits "Name#TAG". Both halves must be non-empty.
func ParseRiotID(s string) (name, tag string, ok bool) {
	name, tag, found := strings.Cut(strings.TrimSpace(s), "#")
	if !found || name == "" || tag == "" || strings.Contains(tag, "#") {
		return "", "", false
	}
	return name, tag, true
}

type GameSession struct {
	ID         string // match id from the source, e.g. "EUW1_7012345678"
	IdentityID string
	ContentID  int
	QueueType  string
	DetectedAt time.Time
	EndedAt    time.Time
	Outcome    *Outcome // nil when post-game data was unavailable
}

type Outcome struct {
	Win      bool
	Kills    int
	Deaths   int
	Assists  int
	Duration time.Duration
}

type RankedEntry struct {
	Position int
	Identity Identity
	Score    Score
}

type DisplayMetadata struct {
	ContentID int
	Slug      string
	Name      string
	Title     string
	IconURL   string
}

type GameStarted struct {
	Identity Identity
	Session  GameSession
}

type GameEnded struct {
	Identity Identity
	Session  GameSession
}

// ScoreSnapshot is a persisted score reading used to compute LP deltas.
type ScoreSnapshot struct {
	ID         string
	IdentityID string
	Score      Score
	TakenAt    time.Time
}
