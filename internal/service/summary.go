package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"
	"lol-tracker/internal/notifier"
	"lol-tracker/internal/source"

	"github.com/rs/zerolog"
)

type Roster interface {
	Tracked() []domain.Identity
}

type ScoresSource interface {
	QueryScores(ctx context.Context, identity domain.Identity) (map[string]domain.Score, error)
}

type SnapshotStore interface {
	Latest(ctx context.Context, identityID, queue string) (*domain.ScoreSnapshot, error)
	InsertBatch(ctx context.Context, snapshots []domain.ScoreSnapshot) error
	LastTakenAt(ctx context.Context) (time.Time, error)
}

type SessionHistory interface {
	ListEndedBetween(ctx context.Context, identityID string, from, to time.Time) ([]domain.GameSession, error)
}

type Poster interface {
	Post(ctx context.Context, embeds ...notifier.Embed)
}

type SummaryOptions struct {
	Hour     int
	Minute   int
	Location *time.Location
}

var summaryQueues = []struct {
	queue string
	color int
}{
	{domain.QueueRankedSolo, notifier.ColorSolo},
	{domain.QueueRankedFlex, notifier.ColorFlex},
}

// SummaryService posts one ranked recap per day, per queue, at a fixed local
// time.
type SummaryService struct {
	roster    Roster
	scores    ScoresSource
	snapshots SnapshotStore
	sessions  SessionHistory
	poster    Poster
	opts      SummaryOptions
	logger    zerolog.Logger
	now       func() time.Time

	mu       sync.Mutex
	lastSent string // local date of the last summary

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSummaryService(roster Roster, scores ScoresSource, snapshots SnapshotStore, sessions SessionHistory, poster Poster, opts SummaryOptions, logger zerolog.Logger) *SummaryService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &SummaryService{
		roster:    roster,
		scores:    scores,
		snapshots: snapshots,
		sessions:  sessions,
		poster:    poster,
		opts:      opts,
		logger:    logger.With().Str("component", "summary").Logger(),
		now:       time.Now,
	}
}

// due reports whether the summary for now's local day should go out. It only
// fires inside a short window after the scheduled time, and not at all when
// snapshots were already taken today, so a restart does not send a second
// one.
func (s *SummaryService) due(ctx context.Context, now time.Time) bool {
	local := now.In(s.opts.Location)
	scheduled := time.Date(local.Year(), local.Month(), local.Day(), s.opts.Hour, s.opts.Minute, 0, 0, s.opts.Location)
	if local.Before(scheduled) || !local.Before(scheduled.Add(constants.SummaryWindow)) {
		return false
	}

	today := local.Format(time.DateOnly)
	s.mu.Lock()
	sent := s.lastSent == today
	s.mu.Unlock()
	if sent {
		return false
	}

	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	last, err := s.snapshots.LastTakenAt(dbCtx)
	cancel()
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read last snapshot time, assuming no summary sent today")
		return true
	}
	if !last.IsZero() && last.In(s.opts.Location).Format(time.DateOnly) == today {
		s.logger.Info().Time("taken_at", last).Msg("summary already sent today")
		s.markSent(now)
		return false
	}
	return true
}

func (s *SummaryService) markSent(now time.Time) {
	s.mu.Lock()
	s.lastSent = now.In(s.opts.Location).Format(time.DateOnly)
	s.mu.Unlock()
}

// Check sends the summary if it is due.
func (s *SummaryService) Check(ctx context.Context) {
	now := s.now()
	if !s.due(ctx, now) {
		return
	}
	s.markSent(now)
	if err := s.Send(ctx, now); err != nil {
		s.logger.Error().Err(err).Msg("daily summary failed")
	}
}

// Send builds and posts the summary covering the local day before now.
func (s *SummaryService) Send(ctx context.Context, now time.Time) error {
	local := now.In(s.opts.Location)
	to := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.opts.Location)
	from := to.AddDate(0, 0, -1)

	roster := s.roster.Tracked()
	if len(roster) == 0 {
		s.logger.Info().Msg("no identities tracked, skipping daily summary")
		return nil
	}

	embeds := make([]notifier.Embed, len(summaryQueues))
	for i, q := range summaryQueues {
		embeds[i] = notifier.Embed{
			Title:     fmt.Sprintf("%s recap for %s", source.QueueLabel(q.queue), from.Format(time.DateOnly)),
			Color:     q.color,
			Timestamp: now.UTC().Format(time.RFC3339),
		}
	}

	var snapshots []domain.ScoreSnapshot
	for _, identity := range roster {
		qctx, cancel := context.WithTimeout(ctx, constants.SourceQueryTimeout)
		scores, err := s.scores.QueryScores(qctx, identity)
		cancel()
		if err != nil {
			s.logger.Warn().Err(err).Str("identity_id", identity.ID).Msg("score lookup failed, identity shown as unavailable")
			for i := range embeds {
				embeds[i].Fields = append(embeds[i].Fields, notifier.EmbedField{Name: identity.RiotID(), Value: "Rank unavailable"})
			}
			continue
		}

		day, err := s.sessions.ListEndedBetween(ctx, identity.ID, from, to)
		if err != nil {
			s.logger.Warn().Err(err).Str("identity_id", identity.ID).Msg("failed to load session history")
		}

		for i, q := range summaryQueues {
			score, ok := scores[q.queue]
			if !ok {
				score = domain.UnrankedScore(q.queue)
			}

			prev, err := s.snapshots.Latest(ctx, identity.ID, q.queue)
			if err != nil {
				s.logger.Warn().Err(err).Str("identity_id", identity.ID).Msg("failed to load previous snapshot")
			}

			embeds[i].Fields = append(embeds[i].Fields, notifier.EmbedField{
				Name:  identity.RiotID(),
				Value: summaryLine(score, prev, day),
			})
			snapshots = append(snapshots, domain.ScoreSnapshot{IdentityID: identity.ID, Score: score, TakenAt: now})
		}
	}

	s.poster.Post(ctx, embeds...)

	if err := s.snapshots.InsertBatch(ctx, snapshots); err != nil {
		return fmt.Errorf("failed to store score snapshots: %w", err)
	}

	s.logger.Info().
		Str("day", from.Format(time.DateOnly)).
		Int("identities", len(roster)).
		Msg("daily summary sent")
	return nil
}

func summaryLine(score domain.Score, prev *domain.ScoreSnapshot, day []domain.GameSession) string {
	var b strings.Builder
	b.WriteString(score.String())
	if prev != nil && prev.Score.Ranked() && score.Ranked() {
		fmt.Fprintf(&b, " (%+d LP)", score.Value()-prev.Score.Value())
	}

	var wins, losses int
	for _, g := range day {
		if g.QueueType != score.Queue || g.Outcome == nil {
			continue
		}
		if g.Outcome.Win {
			wins++
		} else {
			losses++
		}
	}
	fmt.Fprintf(&b, "\nYesterday: %dW %dL", wins, losses)

	if total := score.Wins + score.Losses; total > 0 {
		fmt.Fprintf(&b, " | Season: %dW %dL (%.1f%%)", score.Wins, score.Losses, float64(score.Wins)*100/float64(total))
	}
	return b.String()
}

// Start checks for a due summary on a fixed interval in the background.
func (s *SummaryService) Start() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cancel != nil {
		return errors.New("summary scheduler already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(constants.SummaryCheckInterval)
		defer ticker.Stop()

		s.logger.Info().
			Int("hour", s.opts.Hour).
			Int("minute", s.opts.Minute).
			Str("timezone", s.opts.Location.String()).
			Msg("daily summary scheduled")

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Check(context.WithoutCancel(ctx))
			}
		}
	}(s.done)
	return nil
}

func (s *SummaryService) Stop(ctx context.Context) error {
	s.runMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.runMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
