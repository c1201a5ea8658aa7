// Package content resolves champion ids to display metadata. The table is
// published as one versioned bundle, so a miss refreshes the whole table.
package content

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"lol-tracker/internal/api"
	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

type BundleSource interface {
	LatestVersion(ctx context.Context) (string, error)
	Champions(ctx context.Context, version string) (*api.ChampionBundle, error)
	ChampionIconURL(version, slug string) string
}

type Lookup struct {
	source BundleSource
	logger zerolog.Logger
	group  singleflight.Group
	now    func() time.Time

	mu          sync.RWMutex
	version     string
	byID        map[int]domain.DisplayMetadata
	lastRefresh time.Time
}

func NewLookup(source BundleSource, logger zerolog.Logger) *Lookup {
	return &Lookup{
		source: source,
		logger: logger,
		now:    time.Now,
		byID:   make(map[int]domain.DisplayMetadata),
	}
}

func (l *Lookup) Version() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Resolve returns cached metadata, refreshing the bundle on a miss. Refreshes
// are shared between concurrent callers and throttled so that an id missing
// from the latest bundle does not cause a download per call.
func (l *Lookup) Resolve(ctx context.Context, id int) (domain.DisplayMetadata, error) {
	if meta, ok := l.get(id); ok {
		return meta, nil
	}

	_, err, _ := l.group.Do("refresh", func() (any, error) {
		if !l.refreshDue() {
			return nil, nil
		}
		return nil, l.Refresh(ctx)
	})
	if err != nil {
		l.logger.Warn().Err(err).Int("content_id", id).Msg("content bundle refresh failed")
	}
	if meta, ok := l.get(id); ok {
		return meta, nil
	}

	return domain.DisplayMetadata{}, fmt.Errorf("champion %d: %w", id, domain.ErrUnknownContentID)
}

// Refresh downloads the latest bundle and swaps the whole table.
func (l *Lookup) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.ContentRefreshTimeout)
	defer cancel()

	l.mu.Lock()
	l.lastRefresh = l.now()
	l.mu.Unlock()

	version, err := l.source.LatestVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch bundle version: %w", err)
	}
	bundle, err := l.source.Champions(ctx, version)
	if err != nil {
		return fmt.Errorf("failed to fetch champion bundle %s: %w", version, err)
	}

	table := make(map[int]domain.DisplayMetadata, len(bundle.Data))
	for _, c := range bundle.Data {
		key, err := strconv.Atoi(c.Key)
		if err != nil {
			l.logger.Debug().Str("champion", c.ID).Str("key", c.Key).Msg("skipping champion with non-numeric key")
			continue
		}
		table[key] = domain.DisplayMetadata{
			ContentID: key,
			Slug:      c.ID,
			Name:      c.Name,
			Title:     c.Title,
			IconURL:   l.source.ChampionIconURL(bundle.Version, c.ID),
		}
	}

	l.mu.Lock()
	l.version = bundle.Version
	l.byID = table
	l.mu.Unlock()

	l.logger.Info().Str("version", bundle.Version).Int("champions", len(table)).Msg("content bundle refreshed")
	return nil
}

func (l *Lookup) get(id int) (domain.DisplayMetadata, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	meta, ok := l.byID[id]
	return meta, ok
}

func (l *Lookup) refreshDue() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastRefresh.IsZero() || l.now().Sub(l.lastRefresh) >= constants.ContentRefreshCooldown
}

// Placeholder is shown when an id cannot be resolved.
func Placeholder(id int) domain.DisplayMetadata {
	return domain.DisplayMetadata{
		ContentID: id,
		Slug:      strconv.Itoa(id),
		Name:      fmt.Sprintf("Champion %d", id),
	}
}
