package domain

import "errors"

var (
	ErrSourceUnavailable      = errors.New("game state source unavailable")
	ErrOutcomeNotYetAvailable = errors.New("outcome not yet available")
	ErrUnknownContentID       = errors.New("unknown content id")
	ErrDuplicateRegistration  = errors.New("identity already registered")
	ErrUnknownIdentity        = errors.New("unknown identity")
	ErrInvalidIdentity        = errors.New("invalid identity")
)
