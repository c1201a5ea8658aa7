package service

import (
	"context"

	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type SessionRecorder interface {
	Record(ctx context.Context, session domain.GameSession) error
}

type EventNotifier interface {
	GameStarted(ctx context.Context, ev domain.GameStarted)
	GameEnded(ctx context.Context, ev domain.GameEnded)
}

// EventService receives poller transitions, stores finished sessions and
// forwards everything to the notifier.
type EventService struct {
	sessions SessionRecorder
	notifier EventNotifier
	logger   zerolog.Logger
}

func NewEventService(sessions SessionRecorder, notifier EventNotifier, logger zerolog.Logger) *EventService {
	return &EventService{
		sessions: sessions,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *EventService) OnGameStarted(ctx context.Context, ev domain.GameStarted) {
	s.notifier.GameStarted(ctx, ev)
}

func (s *EventService) OnGameEnded(ctx context.Context, ev domain.GameEnded) {
	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	err := s.sessions.Record(dbCtx, ev.Session)
	cancel()
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("identity_id", ev.Identity.ID).
			Str("session", ev.Session.ID).
			Msg("failed to record session history")
	}

	s.notifier.GameEnded(ctx, ev)
}

// OnOutcomeResolved stores an outcome that arrived after the game-ended
// notification went out. Nothing is posted for it.
func (s *EventService) OnOutcomeResolved(ctx context.Context, ev domain.GameEnded) {
	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := s.sessions.Record(dbCtx, ev.Session); err != nil {
		s.logger.Error().
			Err(err).
			Str("identity_id", ev.Identity.ID).
			Str("session", ev.Session.ID).
			Msg("failed to store late session outcome")
	}
}
