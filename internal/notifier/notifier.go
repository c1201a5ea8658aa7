package notifier

import (
	"context"
	"errors"

	"lol-tracker/internal/constants"
	"lol-tracker/internal/content"
	"lol-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type Sender interface {
	Send(ctx context.Context, embeds ...Embed) error
}

type Resolver interface {
	Resolve(ctx context.Context, id int) (domain.DisplayMetadata, error)
}

// Notifier delivers tracker events. With no Sender configured it only logs.
// Delivery failures are logged and dropped.
type Notifier struct {
	sender  Sender
	content Resolver
	logger  zerolog.Logger
}

func New(sender Sender, content Resolver, logger zerolog.Logger) *Notifier {
	return &Notifier{
		sender:  sender,
		content: content,
		logger:  logger.With().Str("component", "notifier").Logger(),
	}
}

func (n *Notifier) GameStarted(ctx context.Context, ev domain.GameStarted) {
	meta := n.resolve(ctx, ev.Session.ContentID)
	n.Post(ctx, StartedEmbed(ev, meta))
}

func (n *Notifier) GameEnded(ctx context.Context, ev domain.GameEnded) {
	meta := n.resolve(ctx, ev.Session.ContentID)
	n.Post(ctx, EndedEmbed(ev, meta))
}

func (n *Notifier) Post(ctx context.Context, embeds ...Embed) {
	if len(embeds) == 0 {
		return
	}
	if n.sender == nil {
		for _, e := range embeds {
			n.logger.Info().Str("title", e.Title).Str("description", e.Description).Msg("notification (no webhook configured)")
		}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, constants.WebhookTimeout)
	defer cancel()

	if err := n.sender.Send(ctx, embeds...); err != nil {
		n.logger.Error().Err(err).Str("title", embeds[0].Title).Int("embeds", len(embeds)).Msg("failed to deliver notification")
		return
	}
	n.logger.Debug().Str("title", embeds[0].Title).Int("embeds", len(embeds)).Msg("notification delivered")
}

func (n *Notifier) resolve(ctx context.Context, id int) domain.DisplayMetadata {
	meta, err := n.content.Resolve(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrUnknownContentID) {
			n.logger.Warn().Err(err).Int("content_id", id).Msg("content lookup failed")
		}
		return content.Placeholder(id)
	}
	return meta
}
