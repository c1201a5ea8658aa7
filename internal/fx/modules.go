package fx

import (
	"lol-tracker/internal/api"
	"lol-tracker/internal/config"
	"lol-tracker/internal/content"
	"lol-tracker/internal/database"
	"lol-tracker/internal/logger"
	"lol-tracker/internal/notifier"
	"lol-tracker/internal/poller"
	"lol-tracker/internal/ranking"
	"lol-tracker/internal/repository"
	"lol-tracker/internal/server"
	"lol-tracker/internal/service"
	"lol-tracker/internal/source"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideSource(riot *api.RiotClient, logger zerolog.Logger) *source.RiotSource {
	return source.NewRiotSource(riot, logger)
}

func ProvideContentLookup(ddragon *api.DataDragonClient, logger zerolog.Logger) *content.Lookup {
	return content.NewLookup(ddragon, logger)
}

func ProvideNotifier(cfg *config.Config, lookup *content.Lookup, logger zerolog.Logger) *notifier.Notifier {
	// a nil *Webhook must not end up inside the interface
	var sender notifier.Sender
	if cfg.WebhookURL != "" {
		sender = notifier.NewWebhook(cfg.WebhookURL)
	}
	return notifier.New(sender, lookup, logger)
}

func ProvideEventService(sessions *repository.SessionRepository, n *notifier.Notifier, logger zerolog.Logger) *service.EventService {
	return service.NewEventService(sessions, n, logger)
}

func ProvidePoller(cfg *config.Config, src *source.RiotSource, events *service.EventService, logger zerolog.Logger) *poller.Poller {
	return poller.New(src, events, poller.Options{
		Interval: cfg.PollInterval,
		Workers:  cfg.PollWorkers,
	}, logger)
}

func ProvideRankingView(p *poller.Poller, src *source.RiotSource, logger zerolog.Logger) *ranking.View {
	return ranking.NewView(p, src, logger)
}

func ProvideRegistrationService(cfg *config.Config, riot *api.RiotClient, identities *repository.IdentityRepository, p *poller.Poller, logger zerolog.Logger) *service.RegistrationService {
	return service.NewRegistrationService(riot, identities, p, cfg.DefaultRegion, logger)
}

func ProvideSummaryService(
	cfg *config.Config,
	p *poller.Poller,
	src *source.RiotSource,
	snapshots *repository.SnapshotRepository,
	sessions *repository.SessionRepository,
	n *notifier.Notifier,
	logger zerolog.Logger,
) *service.SummaryService {
	return service.NewSummaryService(p, src, snapshots, sessions, n, service.SummaryOptions{
		Hour:     cfg.SummaryHour,
		Minute:   cfg.SummaryMinute,
		Location: cfg.Location(),
	}, logger)
}

func ProvideTrackerServer(registration *service.RegistrationService, view *ranking.View) *server.TrackerServer {
	return server.NewTrackerServer(registration, view)
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewIdentityRepository),
	fx.Provide(repository.NewSessionRepository),
	fx.Provide(repository.NewSnapshotRepository),
	// api clients
	fx.Provide(api.NewRiotClient),
	fx.Provide(api.NewDataDragonClient),
	fx.Provide(ProvideSource),
	fx.Provide(ProvideContentLookup),
	fx.Provide(ProvideNotifier),
	// svc
	fx.Provide(ProvideEventService),
	fx.Provide(ProvidePoller),
	fx.Provide(ProvideRankingView),
	fx.Provide(ProvideRegistrationService),
	fx.Provide(ProvideSummaryService),
	// server
	fx.Provide(ProvideTrackerServer),
)
