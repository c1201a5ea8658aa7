package trackerv1

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const TrackerName = "lol.v1.Tracker"

const (
	TrackerRegisterProcedure       = "/lol.v1.Tracker/Register"
	TrackerUnregisterProcedure     = "/lol.v1.Tracker/Unregister"
	TrackerListIdentitiesProcedure = "/lol.v1.Tracker/ListIdentities"
	TrackerInGameProcedure         = "/lol.v1.Tracker/InGame"
	TrackerLeaderboardProcedure    = "/lol.v1.Tracker/Leaderboard"
)

type TrackerHandler interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[Identity], error)
	Unregister(context.Context, *connect.Request[UnregisterRequest]) (*connect.Response[UnregisterResponse], error)
	ListIdentities(context.Context, *connect.Request[ListIdentitiesRequest]) (*connect.Response[ListIdentitiesResponse], error)
	InGame(context.Context, *connect.Request[InGameRequest]) (*connect.Response[InGameResponse], error)
	Leaderboard(context.Context, *connect.Request[LeaderboardRequest]) (*connect.Response[LeaderboardResponse], error)
}

// NewTrackerHandler builds an HTTP handler for every Tracker procedure and
// returns the path it should be mounted on.
func NewTrackerHandler(svc TrackerHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSONCodec()}, opts...)

	register := connect.NewUnaryHandler(TrackerRegisterProcedure, svc.Register, opts...)
	unregister := connect.NewUnaryHandler(TrackerUnregisterProcedure, svc.Unregister, opts...)
	listIdentities := connect.NewUnaryHandler(TrackerListIdentitiesProcedure, svc.ListIdentities, opts...)
	inGame := connect.NewUnaryHandler(TrackerInGameProcedure, svc.InGame, opts...)
	leaderboard := connect.NewUnaryHandler(TrackerLeaderboardProcedure, svc.Leaderboard, opts...)

	return "/" + TrackerName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case TrackerRegisterProcedure:
			register.ServeHTTP(w, r)
		case TrackerUnregisterProcedure:
			unregister.ServeHTTP(w, r)
		case TrackerListIdentitiesProcedure:
			listIdentities.ServeHTTP(w, r)
		case TrackerInGameProcedure:
			inGame.ServeHTTP(w, r)
		case TrackerLeaderboardProcedure:
			leaderboard.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
