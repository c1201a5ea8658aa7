// Package ranking orders tracked identities by their current ranked score.
package ranking

import (
	"context"
	"iter"
	"slices"

	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Roster interface {
	Tracked() []domain.Identity
}

type ScoreSource interface {
	QueryScore(ctx context.Context, identity domain.Identity) (domain.Score, error)
}

type View struct {
	roster  Roster
	scores  ScoreSource
	logger  zerolog.Logger
	workers int
}

func NewView(roster Roster, scores ScoreSource, logger zerolog.Logger) *View {
	return &View{
		roster:  roster,
		scores:  scores,
		logger:  logger.With().Str("component", "ranking").Logger(),
		workers: constants.RankingWorkers,
	}
}

// Snapshot yields the tracked identities best first. Nothing is queried until
// the sequence is ranged over, and every range queries again. Identities whose
// score lookup fails are left out. Equal scores keep registration order.
func (v *View) Snapshot(ctx context.Context) iter.Seq[domain.RankedEntry] {
	return func(yield func(domain.RankedEntry) bool) {
		for _, e := range v.collect(ctx) {
			if !yield(e) {
				return
			}
		}
	}
}

func (v *View) Leaderboard(ctx context.Context) []domain.RankedEntry {
	return slices.Collect(v.Snapshot(ctx))
}

func (v *View) collect(ctx context.Context) []domain.RankedEntry {
	roster := v.roster.Tracked()

	scores := make([]domain.Score, len(roster))
	ok := make([]bool, len(roster))

	g := new(errgroup.Group)
	g.SetLimit(v.workers)
	for i, identity := range roster {
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(ctx, constants.SourceQueryTimeout)
			defer cancel()

			score, err := v.scores.QueryScore(qctx, identity)
			if err != nil {
				v.logger.Warn().Err(err).Str("identity_id", identity.ID).Msg("score lookup failed, identity left out")
				return nil
			}
			scores[i], ok[i] = score, true
			return nil
		})
	}
	_ = g.Wait()

	entries := make([]domain.RankedEntry, 0, len(roster))
	for i, identity := range roster {
		if ok[i] {
			entries = append(entries, domain.RankedEntry{Identity: identity, Score: scores[i]})
		}
	}

	slices.SortStableFunc(entries, func(a, b domain.RankedEntry) int {
		// descending
		return b.Score.Value() - a.Score.Value()
	})
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}
