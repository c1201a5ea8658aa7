package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lol-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type IdentityRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewIdentityRepository(sqlDB *sql.DB, logger zerolog.Logger) *IdentityRepository {
	return &IdentityRepository{
		db:     sqlDB,
		logger: logger,
	}
}

const identityColumns = `id, user_handle, game_name, tag_line, region, puuid, created_at`

// Create assigns an id and creation time and stores the identity. A second
// identity with the same puuid is rejected with ErrDuplicateRegistration.
func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}
	identity.ID = id
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO identities (`+identityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		identity.ID, identity.UserHandle, identity.GameName, identity.TagLine,
		identity.Region, identity.Puuid, identity.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateRegistration
	}
	if err != nil {
		r.logger.Error().Err(err).Str("riot_id", identity.RiotID()).Msg("failed to insert identity")
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	r.logger.Debug().
		Str("identity_id", identity.ID).
		Str("user", identity.UserHandle).
		Str("riot_id", identity.RiotID()).
		Msg("identity stored")
	return nil
}

func (r *IdentityRepository) Get(ctx context.Context, id string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = ?`, id)
	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUnknownIdentity
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity %s: %w", id, err)
	}
	return identity, nil
}

// List returns every identity in registration order.
func (r *IdentityRepository) List(ctx context.Context) ([]domain.Identity, error) {
	return r.query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY created_at, rowid`)
}

func (r *IdentityRepository) ListByUser(ctx context.Context, userHandle string) ([]domain.Identity, error) {
	return r.query(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE user_handle = ? ORDER BY created_at, rowid`,
		userHandle,
	)
}

func (r *IdentityRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete identity %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete identity %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrUnknownIdentity
	}

	r.logger.Debug().Str("identity_id", id).Msg("identity deleted")
	return nil
}

func (r *IdentityRepository) query(ctx context.Context, query string, args ...any) ([]domain.Identity, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	var result []domain.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		result = append(result, *identity)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(s scanner) (*domain.Identity, error) {
	var identity domain.Identity
	err := s.Scan(
		&identity.ID,
		&identity.UserHandle,
		&identity.GameName,
		&identity.TagLine,
		&identity.Region,
		&identity.Puuid,
		&identity.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
