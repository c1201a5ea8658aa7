// Package client talks to the tracker's connect API.
package client

import (
	"context"
	"net/http"
	"strings"
	"time"

	"lol-tracker/internal/trackerv1"

	"connectrpc.com/connect"
)

type Client struct {
	register       *connect.Client[trackerv1.RegisterRequest, trackerv1.Identity]
	unregister     *connect.Client[trackerv1.UnregisterRequest, trackerv1.UnregisterResponse]
	listIdentities *connect.Client[trackerv1.ListIdentitiesRequest, trackerv1.ListIdentitiesResponse]
	inGame         *connect.Client[trackerv1.InGameRequest, trackerv1.InGameResponse]
	leaderboard    *connect.Client[trackerv1.LeaderboardRequest, trackerv1.LeaderboardResponse]
}

func New(baseURL string) *Client {
	return NewWithHTTPClient(&http.Client{Timeout: 30 * time.Second}, baseURL)
}

func NewWithHTTPClient(httpClient connect.HTTPClient, baseURL string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opt := trackerv1.WithJSONCodec()
	return &Client{
		register: connect.NewClient[trackerv1.RegisterRequest, trackerv1.Identity](
			httpClient, baseURL+trackerv1.TrackerRegisterProcedure, opt),
		unregister: connect.NewClient[trackerv1.UnregisterRequest, trackerv1.UnregisterResponse](
			httpClient, baseURL+trackerv1.TrackerUnregisterProcedure, opt),
		listIdentities: connect.NewClient[trackerv1.ListIdentitiesRequest, trackerv1.ListIdentitiesResponse](
			httpClient, baseURL+trackerv1.TrackerListIdentitiesProcedure, opt),
		inGame: connect.NewClient[trackerv1.InGameRequest, trackerv1.InGameResponse](
			httpClient, baseURL+trackerv1.TrackerInGameProcedure, opt),
		leaderboard: connect.NewClient[trackerv1.LeaderboardRequest, trackerv1.LeaderboardResponse](
			httpClient, baseURL+trackerv1.TrackerLeaderboardProcedure, opt),
	}
}

func (c *Client) Register(ctx context.Context, userHandle, riotID, region string) (*trackerv1.Identity, error) {
	resp, err := c.register.CallUnary(ctx, connect.NewRequest(&trackerv1.RegisterRequest{
		UserHandle: userHandle,
		RiotID:     riotID,
		Region:     region,
	}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) ListIdentities(ctx context.Context, userHandle string) ([]trackerv1.Identity, error) {
	resp, err := c.listIdentities.CallUnary(ctx, connect.NewRequest(&trackerv1.ListIdentitiesRequest{UserHandle: userHandle}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Identities, nil
}

func (c *Client) Unregister(ctx context.Context, identityID string) error {
	_, err := c.unregister.CallUnary(ctx, connect.NewRequest(&trackerv1.UnregisterRequest{IdentityID: identityID}))
	return err
}

func (c *Client) InGame(ctx context.Context, identityID string) (bool, error) {
	resp, err := c.inGame.CallUnary(ctx, connect.NewRequest(&trackerv1.InGameRequest{IdentityID: identityID}))
	if err != nil {
		return false, err
	}
	return resp.Msg.InGame, nil
}

func (c *Client) Leaderboard(ctx context.Context) ([]trackerv1.LeaderboardEntry, error) {
	resp, err := c.leaderboard.CallUnary(ctx, connect.NewRequest(&trackerv1.LeaderboardRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Entries, nil
}
