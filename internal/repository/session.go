package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lol-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type SessionRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSessionRepository(sqlDB *sql.DB, logger zerolog.Logger) *SessionRepository {
	return &SessionRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// Record stores a closed session. Recording the same session twice keeps the
// latest outcome.
func (r *SessionRepository) Record(ctx context.Context, session domain.GameSession) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}

	var (
		hasOutcome, win        bool
		kills, deaths, assists int
		durationSecs           int64
	)
	if o := session.Outcome; o != nil {
		hasOutcome = true
		win = o.Win
		kills, deaths, assists = o.Kills, o.Deaths, o.Assists
		durationSecs = int64(o.Duration / time.Second)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO game_sessions (
			id, identity_id, session_id, content_id, queue_type, detected_at, ended_at,
			has_outcome, win, kills, deaths, assists, duration_secs
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (identity_id, session_id) DO UPDATE SET
			ended_at = excluded.ended_at,
			has_outcome = excluded.has_outcome,
			win = excluded.win,
			kills = excluded.kills,
			deaths = excluded.deaths,
			assists = excluded.assists,
			duration_secs = excluded.duration_secs`,
		id, session.IdentityID, session.ID, session.ContentID, session.QueueType,
		session.DetectedAt.UTC(), session.EndedAt.UTC(),
		hasOutcome, win, kills, deaths, assists, durationSecs,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("session", session.ID).Msg("failed to record session")
		return fmt.Errorf("failed to record session %s: %w", session.ID, err)
	}
	return nil
}

// ListEndedBetween returns an identity's sessions that ended in [from, to),
// oldest first.
func (r *SessionRepository) ListEndedBetween(ctx context.Context, identityID string, from, to time.Time) ([]domain.GameSession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, identity_id, content_id, queue_type, detected_at, ended_at,
			has_outcome, win, kills, deaths, assists, duration_secs
		FROM game_sessions
		WHERE identity_id = ? AND ended_at >= ? AND ended_at < ?
		ORDER BY ended_at`,
		identityID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var result []domain.GameSession
	for rows.Next() {
		var (
			s                      domain.GameSession
			hasOutcome, win        bool
			kills, deaths, assists int
			durationSecs           int64
		)
		err := rows.Scan(
			&s.ID, &s.IdentityID, &s.ContentID, &s.QueueType, &s.DetectedAt, &s.EndedAt,
			&hasOutcome, &win, &kills, &deaths, &assists, &durationSecs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if hasOutcome {
			s.Outcome = &domain.Outcome{
				Win:      win,
				Kills:    kills,
				Deaths:   deaths,
				Assists:  assists,
				Duration: time.Duration(durationSecs) * time.Second,
			}
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
