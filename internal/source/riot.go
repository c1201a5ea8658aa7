// Package source adapts the Riot API to the live-state, outcome and score
// queries the poller and ranking view consume. Every failure at this
// boundary is reported as domain.ErrSourceUnavailable.
package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lol-tracker/internal/api"
	"lol-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type RiotAPI interface {
	GetActiveGame(ctx context.Context, platform, puuid string) (*api.CurrentGameInfo, error)
	GetMatch(ctx context.Context, matchID string) (*api.MatchDTO, error)
	GetLeagueEntries(ctx context.Context, platform, puuid string) ([]api.LeagueEntryDTO, error)
}

type RiotSource struct {
	riot   RiotAPI
	logger zerolog.Logger
}

func NewRiotSource(riot RiotAPI, logger zerolog.Logger) *RiotSource {
	return &RiotSource{riot: riot, logger: logger}
}

func (s *RiotSource) QueryLiveState(ctx context.Context, identity domain.Identity) (domain.LiveState, error) {
	game, err := s.riot.GetActiveGame(ctx, identity.Region, identity.Puuid)
	if api.IsNotFound(err) {
		return domain.NotInGame{}, nil
	}
	if err != nil {
		return nil, unavailable("active game", identity, err)
	}

	platform := game.PlatformID
	if platform == "" {
		platform = identity.Region
	}

	state := domain.InGame{
		SessionID: fmt.Sprintf("%s_%d", strings.ToUpper(platform), game.GameID),
		QueueType: QueueName(game.GameQueueConfigID, game.GameMode),
	}
	if game.GameStartTime > 0 {
		state.StartedAt = time.UnixMilli(game.GameStartTime)
	}
	for _, p := range game.Participants {
		if p.Puuid == identity.Puuid {
			state.ContentID = int(p.ChampionID)
			break
		}
	}
	return state, nil
}

func (s *RiotSource) QueryOutcome(ctx context.Context, identity domain.Identity, sessionID string) (*domain.Outcome, error) {
	match, err := s.riot.GetMatch(ctx, sessionID)
	if api.IsNotFound(err) {
		return nil, fmt.Errorf("match %s: %w", sessionID, domain.ErrOutcomeNotYetAvailable)
	}
	if err != nil {
		return nil, unavailable("match "+sessionID, identity, err)
	}

	for _, p := range match.Info.Participants {
		if p.Puuid != identity.Puuid {
			continue
		}
		return &domain.Outcome{
			Win:      p.Win,
			Kills:    p.Kills,
			Deaths:   p.Deaths,
			Assists:  p.Assists,
			Duration: time.Duration(match.Info.GameDuration) * time.Second,
		}, nil
	}

	s.logger.Debug().Str("session", sessionID).Str("puuid", identity.Puuid).Msg("identity missing from match participants")
	return nil, fmt.Errorf("match %s has no entry for %s: %w", sessionID, identity.RiotID(), domain.ErrOutcomeNotYetAvailable)
}

// QueryScore returns the solo queue standing; unranked is not an error.
func (s *RiotSource) QueryScore(ctx context.Context, identity domain.Identity) (domain.Score, error) {
	scores, err := s.QueryScores(ctx, identity)
	if err != nil {
		return domain.Score{}, err
	}
	return scores[domain.QueueRankedSolo], nil
}

// QueryScores returns one score per ranked queue, unranked queues included.
func (s *RiotSource) QueryScores(ctx context.Context, identity domain.Identity) (map[string]domain.Score, error) {
	entries, err := s.riot.GetLeagueEntries(ctx, identity.Region, identity.Puuid)
	if err != nil {
		return nil, unavailable("league entries", identity, err)
	}

	scores := map[string]domain.Score{
		domain.QueueRankedSolo: domain.UnrankedScore(domain.QueueRankedSolo),
		domain.QueueRankedFlex: domain.UnrankedScore(domain.QueueRankedFlex),
	}
	for _, e := range entries {
		if _, tracked := scores[e.QueueType]; !tracked {
			continue
		}
		scores[e.QueueType] = domain.Score{
			Queue:        e.QueueType,
			Tier:         e.Tier,
			Division:     e.Rank,
			LeaguePoints: e.LeaguePoints,
			Wins:         e.Wins,
			Losses:       e.Losses,
		}
	}
	return scores, nil
}

func unavailable(what string, identity domain.Identity, err error) error {
	return fmt.Errorf("%s for %s: %w: %w", what, identity.RiotID(), domain.ErrSourceUnavailable, err)
}
