package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lol-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type SnapshotRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSnapshotRepository(sqlDB *sql.DB, logger zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *SnapshotRepository) InsertBatch(ctx context.Context, snapshots []domain.ScoreSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO score_snapshots (
			id, identity_id, queue_type, tier, division, league_points, wins, losses, taken_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, snap := range snapshots {
		id := snap.ID
		if id == "" {
			id, err = gonanoid.New()
			if err != nil {
				return fmt.Errorf("failed to generate nanoid: %w", err)
			}
		}
		s := snap.Score
		_, err := stmt.ExecContext(ctx,
			id, snap.IdentityID, s.Queue, s.Tier, s.Division, s.LeaguePoints, s.Wins, s.Losses,
			snap.TakenAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
	}

	return tx.Commit()
}

// Latest returns the most recent snapshot for an identity and queue, or nil
// when none was ever taken.
func (r *SnapshotRepository) Latest(ctx context.Context, identityID, queue string) (*domain.ScoreSnapshot, error) {
	var snap domain.ScoreSnapshot
	err := r.db.QueryRowContext(ctx, `
		SELECT id, identity_id, queue_type, tier, division, league_points, wins, losses, taken_at
		FROM score_snapshots
		WHERE identity_id = ? AND queue_type = ?
		ORDER BY taken_at DESC, rowid DESC
		LIMIT 1`,
		identityID, queue,
	).Scan(
		&snap.ID, &snap.IdentityID, &snap.Score.Queue, &snap.Score.Tier, &snap.Score.Division,
		&snap.Score.LeaguePoints, &snap.Score.Wins, &snap.Score.Losses, &snap.TakenAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return &snap, nil
}

// LastTakenAt returns the time of the newest snapshot of any identity, or the
// zero time when the table is empty.
func (r *SnapshotRepository) LastTakenAt(ctx context.Context) (time.Time, error) {
	var takenAt time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT taken_at FROM score_snapshots
		ORDER BY taken_at DESC, rowid DESC
		LIMIT 1`,
	).Scan(&takenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last snapshot time: %w", err)
	}
	return takenAt, nil
}
