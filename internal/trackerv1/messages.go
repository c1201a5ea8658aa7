// Package trackerv1 holds the messages and procedures of the tracker's
// connect API. Messages are plain structs carried as JSON.
package trackerv1

import "time"

type RegisterRequest struct {
	UserHandle string `json:"user_handle"`
	RiotID     string `json:"riot_id"`
	Region     string `json:"region,omitempty"`
}

type Identity struct {
	ID         string    `json:"id"`
	UserHandle string    `json:"user_handle"`
	RiotID     string    `json:"riot_id"`
	Region     string    `json:"region"`
	CreatedAt  time.Time `json:"created_at"`
}

type UnregisterRequest struct {
	IdentityID string `json:"identity_id"`
}

type UnregisterResponse struct{}

type ListIdentitiesRequest struct {
	UserHandle string `json:"user_handle"`
}

type ListIdentitiesResponse struct {
	Identities []Identity `json:"identities"`
}

type InGameRequest struct {
	IdentityID string `json:"identity_id"`
}

type InGameResponse struct {
	InGame bool `json:"in_game"`
}

type LeaderboardRequest struct{}

type LeaderboardEntry struct {
	Position     int    `json:"position"`
	IdentityID   string `json:"identity_id"`
	RiotID       string `json:"riot_id"`
	UserHandle   string `json:"user_handle"`
	Tier         string `json:"tier"`
	Division     string `json:"division,omitempty"`
	LeaguePoints int    `json:"league_points"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	Display      string `json:"display"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}
