package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"lol-tracker/internal/config"

	"github.com/valyala/fasthttp"
)

const riotHostFormat = "https://%s.api.riotgames.com"

var ErrRateLimited = errors.New("rate limited")

type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: %d (%s)", e.StatusCode, e.URL)
}

func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == fasthttp.StatusNotFound
}

type RiotClient struct {
	apiKey string
	client *fasthttp.Client
	// overrides the per-host URL, used by tests
	baseURL string

	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type RateLimitInfo struct {
	AppLimit    string `json:"app_limit"`
	AppCount    string `json:"app_count"`
	MethodLimit string `json:"method_limit"`
	MethodCount string `json:"method_count"`

	// requests are refused locally until then after a 429
	BlockedUntil time.Time `json:"blocked_until"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewRiotClient(cfg *config.Config) *RiotClient {
	return &RiotClient{
		apiKey: cfg.RiotAPIKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		rateLimit: RateLimitInfo{UpdatedAt: time.Now()},
	}
}

func (c *RiotClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *RiotClient) checkRateLimit() error {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	if time.Now().Before(c.rateLimit.BlockedUntil) {
		return fmt.Errorf("%w until %s", ErrRateLimited, c.rateLimit.BlockedUntil.Format(time.RFC3339))
	}
	return nil
}

func (c *RiotClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if v := string(resp.Header.Peek("X-App-Rate-Limit")); v != "" {
		c.rateLimit.AppLimit = v
	}
	if v := string(resp.Header.Peek("X-App-Rate-Limit-Count")); v != "" {
		c.rateLimit.AppCount = v
	}
	if v := string(resp.Header.Peek("X-Method-Rate-Limit")); v != "" {
		c.rateLimit.MethodLimit = v
	}
	if v := string(resp.Header.Peek("X-Method-Rate-Limit-Count")); v != "" {
		c.rateLimit.MethodCount = v
	}
	if resp.StatusCode() == fasthttp.StatusTooManyRequests {
		retryAfter := 1
		if v := string(resp.Header.Peek("Retry-After")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				retryAfter = n
			}
		}
		c.rateLimit.BlockedUntil = time.Now().Add(time.Duration(retryAfter) * time.Second)
	}
	c.rateLimit.UpdatedAt = time.Now()
}

func (c *RiotClient) url(host, path string) string {
	if c.baseURL != "" {
		return c.baseURL + path
	}
	return fmt.Sprintf(riotHostFormat, host) + path
}

func (c *RiotClient) GetAccountByRiotID(ctx context.Context, platform, name, tag string) (*AccountDTO, error) {
	u := c.url(AccountRoute(platform), fmt.Sprintf("/riot/account/v1/accounts/by-riot-id/%s/%s", url.PathEscape(name), url.PathEscape(tag)))
	return doRequest[AccountDTO](ctx, c, u)
}

func (c *RiotClient) GetActiveGame(ctx context.Context, platform, puuid string) (*CurrentGameInfo, error) {
	u := c.url(strings.ToLower(platform), "/lol/spectator/v5/active-games/by-summoner/"+url.PathEscape(puuid))
	return doRequest[CurrentGameInfo](ctx, c, u)
}

func (c *RiotClient) GetMatch(ctx context.Context, matchID string) (*MatchDTO, error) {
	platform, _, _ := strings.Cut(matchID, "_")
	u := c.url(MatchRoute(platform), "/lol/match/v5/matches/"+url.PathEscape(matchID))
	return doRequest[MatchDTO](ctx, c, u)
}

func (c *RiotClient) GetLeagueEntries(ctx context.Context, platform, puuid string) ([]LeagueEntryDTO, error) {
	u := c.url(strings.ToLower(platform), "/lol/league/v4/entries/by-puuid/"+url.PathEscape(puuid))
	entries, err := doRequest[[]LeagueEntryDTO](ctx, c, u)
	if err != nil {
		return nil, err
	}
	return *entries, nil
}

func doRequest[T any](ctx context.Context, client *RiotClient, url string) (*T, error) {
	if err := client.checkRateLimit(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("X-Riot-Token", client.apiKey)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	client.updateRateLimit(resp)

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode(), URL: url}
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

var platforms = map[string]bool{
	"br1": true, "eun1": true, "euw1": true, "jp1": true, "kr": true,
	"la1": true, "la2": true, "me1": true, "na1": true, "oc1": true,
	"ph2": true, "ru": true, "sg2": true, "th2": true, "tr1": true,
	"tw2": true, "vn2": true,
}

// IsPlatform reports whether p is a known platform routing value.
func IsPlatform(p string) bool {
	return platforms[strings.ToLower(p)]
}

// AccountRoute maps a platform to the regional cluster serving account-v1.
func AccountRoute(platform string) string {
	switch route := MatchRoute(platform); route {
	case "sea":
		return "asia"
	default:
		return route
	}
}

// MatchRoute maps a platform to the regional cluster serving match-v5.
func MatchRoute(platform string) string {
	switch strings.ToLower(platform) {
	case "na1", "br1", "la1", "la2":
		return "americas"
	case "kr", "jp1":
		return "asia"
	case "oc1", "ph2", "sg2", "th2", "tw2", "vn2":
		return "sea"
	default:
		return "europe"
	}
}

type AccountDTO struct {
	Puuid    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type CurrentGameInfo struct {
	GameID            int64                    `json:"gameId"`
	GameType          string                   `json:"gameType"`
	GameStartTime     int64                    `json:"gameStartTime"`
	MapID             int64                    `json:"mapId"`
	GameLength        int64                    `json:"gameLength"`
	PlatformID        string                   `json:"platformId"`
	GameMode          string                   `json:"gameMode"`
	GameQueueConfigID int                      `json:"gameQueueConfigId"`
	Participants      []CurrentGameParticipant `json:"participants"`
}

type CurrentGameParticipant struct {
	Puuid      string `json:"puuid"`
	ChampionID int64  `json:"championId"`
	TeamID     int64  `json:"teamId"`
	RiotID     string `json:"riotId"`
}

type MatchDTO struct {
	Metadata struct {
		MatchID      string   `json:"matchId"`
		Participants []string `json:"participants"`
	} `json:"metadata"`
	Info struct {
		GameDuration     int64            `json:"gameDuration"`
		GameEndTimestamp int64            `json:"gameEndTimestamp"`
		QueueID          int              `json:"queueId"`
		Participants     []ParticipantDTO `json:"participants"`
	} `json:"info"`
}

type ParticipantDTO struct {
	Puuid      string `json:"puuid"`
	ChampionID int    `json:"championId"`
	Win        bool   `json:"win"`
	Kills      int    `json:"kills"`
	Deaths     int    `json:"deaths"`
	Assists    int    `json:"assists"`
}

type LeagueEntryDTO struct {
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}
