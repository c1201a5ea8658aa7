package service

import (
	"context"
	"fmt"
	"strings"

	"lol-tracker/internal/api"
	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type AccountLookup interface {
	GetAccountByRiotID(ctx context.Context, platform, name, tag string) (*api.AccountDTO, error)
}

type IdentityStore interface {
	Create(ctx context.Context, identity *domain.Identity) error
	Get(ctx context.Context, id string) (*domain.Identity, error)
	List(ctx context.Context) ([]domain.Identity, error)
	ListByUser(ctx context.Context, userHandle string) ([]domain.Identity, error)
	Delete(ctx context.Context, id string) error
}

// Tracker is the poller's registration surface.
type Tracker interface {
	Track(identity domain.Identity) bool
	Untrack(identityID string) bool
	CurrentlyInGame(identityID string) bool
}

type RegistrationService struct {
	accounts      AccountLookup
	store         IdentityStore
	tracker       Tracker
	defaultRegion string
	logger        zerolog.Logger
}

func NewRegistrationService(accounts AccountLookup, store IdentityStore, tracker Tracker, defaultRegion string, logger zerolog.Logger) *RegistrationService {
	return &RegistrationService{
		accounts:      accounts,
		store:         store,
		tracker:       tracker,
		defaultRegion: defaultRegion,
		logger:        logger,
	}
}

// Register resolves riotID ("Name#TAG") against the account API, stores it
// for userHandle and starts tracking it. An empty region means the default.
func (s *RegistrationService) Register(ctx context.Context, userHandle, riotID, region string) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	userHandle = strings.TrimSpace(userHandle)
	if userHandle == "" {
		return nil, fmt.Errorf("%w: user handle is required", domain.ErrInvalidIdentity)
	}
	name, tag, ok := domain.ParseRiotID(riotID)
	if !ok {
		return nil, fmt.Errorf("%w: expected Name#TAG, got %q", domain.ErrInvalidIdentity, riotID)
	}
	if region == "" {
		region = s.defaultRegion
	}
	region = strings.ToLower(region)
	if !api.IsPlatform(region) {
		return nil, fmt.Errorf("%w: unknown region %q", domain.ErrInvalidIdentity, region)
	}

	s.logger.Info().Str("user", userHandle).Str("riot_id", riotID).Str("region", region).Msg("registering identity")

	lookupCtx, lookupCancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	account, err := s.accounts.GetAccountByRiotID(lookupCtx, region, name, tag)
	lookupCancel()
	if api.IsNotFound(err) {
		return nil, fmt.Errorf("%w: no account named %s#%s", domain.ErrInvalidIdentity, name, tag)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("riot_id", riotID).Msg("account lookup failed")
		return nil, fmt.Errorf("%w: account lookup: %w", domain.ErrSourceUnavailable, err)
	}

	identity := &domain.Identity{
		UserHandle: userHandle,
		GameName:   account.GameName,
		TagLine:    account.TagLine,
		Region:     region,
		Puuid:      account.Puuid,
	}
	// keep what the user typed if the account API omits the display name
	if identity.GameName == "" || identity.TagLine == "" {
		identity.GameName, identity.TagLine = name, tag
	}

	if err := s.store.Create(ctx, identity); err != nil {
		return nil, err
	}
	s.tracker.Track(*identity)

	s.logger.Info().
		Str("identity_id", identity.ID).
		Str("user", userHandle).
		Str("riot_id", identity.RiotID()).
		Msg("identity registered")
	return identity, nil
}

// Unregister stops tracking an identity and deletes it with its history.
func (s *RegistrationService) Unregister(ctx context.Context, identityID string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, identityID); err != nil {
		return err
	}
	s.tracker.Untrack(identityID)

	s.logger.Info().Str("identity_id", identityID).Msg("identity unregistered")
	return nil
}

func (s *RegistrationService) ListIdentities(ctx context.Context, userHandle string) ([]domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.store.ListByUser(ctx, userHandle)
}

// InGame reports whether a registered identity currently has an open
// session.
func (s *RegistrationService) InGame(ctx context.Context, identityID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := s.store.Get(ctx, identityID); err != nil {
		return false, err
	}
	return s.tracker.CurrentlyInGame(identityID), nil
}

// LoadTracked hands every stored identity to the tracker. Called once at
// startup.
func (s *RegistrationService) LoadTracked(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	identities, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load identities: %w", err)
	}

	n := 0
	for _, identity := range identities {
		if s.tracker.Track(identity) {
			n++
		}
	}
	s.logger.Info().Int("identities", n).Msg("tracked identities loaded")
	return n, nil
}
