package poller

import (
	"fmt"
	"time"

	"lol-tracker/internal/domain"
)

type transitionKind int

const (
	gameStarted transitionKind = iota
	gameEnded
)

type transition struct {
	kind    transitionKind
	session domain.GameSession
	// ask the source for post-game data before emitting
	wantOutcome bool
}

// diff decides what a live-state observation means for an identity's open
// session. It returns the session that is open afterwards (nil for none) and
// the transitions to emit, in order.
func diff(identityID string, open *domain.GameSession, state domain.LiveState, now time.Time) (*domain.GameSession, []transition, error) {
	switch s := state.(type) {
	case domain.NotInGame:
		if open == nil {
			return nil, nil, nil
		}
		closed := *open
		closed.EndedAt = now
		return nil, []transition{{kind: gameEnded, session: closed, wantOutcome: true}}, nil

	case domain.InGame:
		if open != nil && open.ID == s.SessionID {
			return open, nil, nil
		}

		var out []transition
		if open != nil {
			// the source moved on to another game without us seeing the end
			closed := *open
			closed.EndedAt = now
			out = append(out, transition{kind: gameEnded, session: closed})
		}

		next := &domain.GameSession{
			ID:         s.SessionID,
			IdentityID: identityID,
			ContentID:  s.ContentID,
			QueueType:  s.QueueType,
			DetectedAt: now,
		}
		out = append(out, transition{kind: gameStarted, session: *next})
		return next, out, nil

	default:
		return open, nil, fmt.Errorf("unhandled live state %T", state)
	}
}
