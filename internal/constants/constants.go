package constants

import "time"

const (
	SourceQueryTimeout     = 10 * time.Second
	OutcomeQueryTimeout    = 10 * time.Second
	ContentRefreshTimeout  = 15 * time.Second
	ContentRefreshCooldown = 5 * time.Minute
	WebhookTimeout         = 10 * time.Second
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	RankingWorkers         = 4
	SummaryCheckInterval   = 30 * time.Second
	SummaryWindow          = 15 * time.Minute
	ConsecutiveFailureWarn = 3
	// about 15 minutes at the default poll interval
	OutcomeRetryCycles = 20
)
