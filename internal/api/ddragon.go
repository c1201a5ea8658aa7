package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lol-tracker/internal/config"

	"github.com/valyala/fasthttp"
)

const ddragonBaseURL = "https://ddragon.leagueoflegends.com"

// DataDragonClient fetches the static champion bundle. No API key needed.
type DataDragonClient struct {
	baseURL string
	locale  string
	client  *fasthttp.Client
}

func NewDataDragonClient(cfg *config.Config) *DataDragonClient {
	return &DataDragonClient{
		baseURL: ddragonBaseURL,
		locale:  cfg.DDragonLocale,
		client: &fasthttp.Client{
			ReadTimeout:         15 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

type ChampionBundle struct {
	Version string                  `json:"version"`
	Data    map[string]ChampionData `json:"data"`
}

type ChampionData struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

func (c *DataDragonClient) LatestVersion(ctx context.Context) (string, error) {
	var versions []string
	if err := c.getJSON(ctx, c.baseURL+"/api/versions.json", &versions); err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("data dragon returned no versions")
	}
	return versions[0], nil
}

func (c *DataDragonClient) Champions(ctx context.Context, version string) (*ChampionBundle, error) {
	var bundle ChampionBundle
	u := fmt.Sprintf("%s/cdn/%s/data/%s/champion.json", c.baseURL, version, c.locale)
	if err := c.getJSON(ctx, u, &bundle); err != nil {
		return nil, err
	}
	if bundle.Version == "" {
		bundle.Version = version
	}
	return &bundle, nil
}

func (c *DataDragonClient) ChampionIconURL(version, slug string) string {
	return fmt.Sprintf("%s/cdn/%s/img/champion/%s.png", c.baseURL, version, slug)
}

func (c *DataDragonClient) getJSON(ctx context.Context, url string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	if err != nil {
		return err
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode(), URL: url}
	}
	return json.Unmarshal(resp.Body(), out)
}
