// Package server implements the tracker's connect API on top of the
// registration and ranking services.
package server

import (
	"context"
	"errors"

	"lol-tracker/internal/domain"
	"lol-tracker/internal/trackerv1"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

type Registrar interface {
	Register(ctx context.Context, userHandle, riotID, region string) (*domain.Identity, error)
	Unregister(ctx context.Context, identityID string) error
	ListIdentities(ctx context.Context, userHandle string) ([]domain.Identity, error)
	InGame(ctx context.Context, identityID string) (bool, error)
}

type Ranking interface {
	Leaderboard(ctx context.Context) []domain.RankedEntry
}

type TrackerServer struct {
	registrar Registrar
	ranking   Ranking
}

var _ trackerv1.TrackerHandler = (*TrackerServer)(nil)

func NewTrackerServer(registrar Registrar, ranking Ranking) *TrackerServer {
	return &TrackerServer{registrar: registrar, ranking: ranking}
}

func (s *TrackerServer) Register(ctx context.Context, req *connect.Request[trackerv1.RegisterRequest]) (*connect.Response[trackerv1.Identity], error) {
	identity, err := s.registrar.Register(ctx, req.Msg.UserHandle, req.Msg.RiotID, req.Msg.Region)
	if err != nil {
		return nil, toConnectError(ctx, req.Spec().Procedure, err)
	}
	resp := toIdentity(*identity)
	return connect.NewResponse(&resp), nil
}

func (s *TrackerServer) Unregister(ctx context.Context, req *connect.Request[trackerv1.UnregisterRequest]) (*connect.Response[trackerv1.UnregisterResponse], error) {
	if err := s.registrar.Unregister(ctx, req.Msg.IdentityID); err != nil {
		return nil, toConnectError(ctx, req.Spec().Procedure, err)
	}
	return connect.NewResponse(&trackerv1.UnregisterResponse{}), nil
}

func (s *TrackerServer) ListIdentities(ctx context.Context, req *connect.Request[trackerv1.ListIdentitiesRequest]) (*connect.Response[trackerv1.ListIdentitiesResponse], error) {
	identities, err := s.registrar.ListIdentities(ctx, req.Msg.UserHandle)
	if err != nil {
		return nil, toConnectError(ctx, req.Spec().Procedure, err)
	}

	out := make([]trackerv1.Identity, len(identities))
	for i, identity := range identities {
		out[i] = toIdentity(identity)
	}
	return connect.NewResponse(&trackerv1.ListIdentitiesResponse{Identities: out}), nil
}

func (s *TrackerServer) InGame(ctx context.Context, req *connect.Request[trackerv1.InGameRequest]) (*connect.Response[trackerv1.InGameResponse], error) {
	inGame, err := s.registrar.InGame(ctx, req.Msg.IdentityID)
	if err != nil {
		return nil, toConnectError(ctx, req.Spec().Procedure, err)
	}
	return connect.NewResponse(&trackerv1.InGameResponse{InGame: inGame}), nil
}

func (s *TrackerServer) Leaderboard(ctx context.Context, req *connect.Request[trackerv1.LeaderboardRequest]) (*connect.Response[trackerv1.LeaderboardResponse], error) {
	entries := s.ranking.Leaderboard(ctx)

	out := make([]trackerv1.LeaderboardEntry, len(entries))
	for i, e := range entries {
		out[i] = trackerv1.LeaderboardEntry{
			Position:     e.Position,
			IdentityID:   e.Identity.ID,
			RiotID:       e.Identity.RiotID(),
			UserHandle:   e.Identity.UserHandle,
			Tier:         e.Score.Tier,
			Division:     e.Score.Division,
			LeaguePoints: e.Score.LeaguePoints,
			Wins:         e.Score.Wins,
			Losses:       e.Score.Losses,
			Display:      e.Score.String(),
		}
	}
	return connect.NewResponse(&trackerv1.LeaderboardResponse{Entries: out}), nil
}

func toIdentity(i domain.Identity) trackerv1.Identity {
	return trackerv1.Identity{
		ID:         i.ID,
		UserHandle: i.UserHandle,
		RiotID:     i.RiotID(),
		Region:     i.Region,
		CreatedAt:  i.CreatedAt,
	}
}

func codeFor(err error) connect.Code {
	switch {
	case errors.Is(err, domain.ErrInvalidIdentity):
		return connect.CodeInvalidArgument
	case errors.Is(err, domain.ErrUnknownIdentity):
		return connect.CodeNotFound
	case errors.Is(err, domain.ErrDuplicateRegistration):
		return connect.CodeAlreadyExists
	case errors.Is(err, domain.ErrSourceUnavailable):
		return connect.CodeUnavailable
	default:
		return connect.CodeInternal
	}
}

// Internal errors are logged and replaced so storage details never reach the
// caller.
func toConnectError(ctx context.Context, procedure string, err error) error {
	code := codeFor(err)
	if code == connect.CodeInternal {
		zerolog.Ctx(ctx).Error().Err(err).Str("procedure", procedure).Msg("request failed")
		return connect.NewError(code, errors.New("internal error"))
	}
	return connect.NewError(code, err)
}
