// Package notifier renders tracker events as Discord embeds and posts them to
// a webhook.
package notifier

import (
	"fmt"
	"time"

	"lol-tracker/internal/domain"
	"lol-tracker/internal/source"
)

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

type EmbedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
}

type EmbedImage struct {
	URL string `json:"url"`
}

type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Thumbnail   *EmbedImage  `json:"thumbnail,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
}

const (
	ColorStarted = 0x3498db
	ColorWin     = 0x2ecc71
	ColorLoss    = 0xe74c3c
	ColorNeutral = 0x95a5a6
	ColorSolo    = 0x206694
	ColorFlex    = 0x1f8b4c
)

func thumbnail(meta domain.DisplayMetadata) *EmbedImage {
	if meta.IconURL == "" {
		return nil
	}
	return &EmbedImage{URL: meta.IconURL}
}

// StartedEmbed announces a game that was just detected.
func StartedEmbed(ev domain.GameStarted, meta domain.DisplayMetadata) Embed {
	return Embed{
		Title:       fmt.Sprintf("%s is in game", ev.Identity.RiotID()),
		Description: fmt.Sprintf("Playing **%s** in %s", meta.Name, source.QueueLabel(ev.Session.QueueType)),
		Color:       ColorStarted,
		Thumbnail:   thumbnail(meta),
		Timestamp:   ev.Session.DetectedAt.UTC().Format(time.RFC3339),
		Author:      &EmbedAuthor{Name: ev.Identity.UserHandle},
		Footer:      &EmbedFooter{Text: ev.Session.ID},
	}
}

// EndedEmbed reports a finished game, with its outcome when one is known.
func EndedEmbed(ev domain.GameEnded, meta domain.DisplayMetadata) Embed {
	s := ev.Session
	embed := Embed{
		Title:     fmt.Sprintf("%s finished a game", ev.Identity.RiotID()),
		Color:     ColorNeutral,
		Thumbnail: thumbnail(meta),
		Timestamp: s.EndedAt.UTC().Format(time.RFC3339),
		Author:    &EmbedAuthor{Name: ev.Identity.UserHandle},
		Footer:    &EmbedFooter{Text: s.ID},
		Fields: []EmbedField{
			{Name: "Champion", Value: meta.Name, Inline: true},
			{Name: "Queue", Value: source.QueueLabel(s.QueueType), Inline: true},
		},
	}

	o := s.Outcome
	if o == nil {
		embed.Description = "Result not available yet"
		return embed
	}

	if o.Win {
		embed.Description = "**Victory**"
		embed.Color = ColorWin
	} else {
		embed.Description = "**Defeat**"
		embed.Color = ColorLoss
	}
	embed.Fields = append(embed.Fields,
		EmbedField{Name: "KDA", Value: fmt.Sprintf("%d/%d/%d", o.Kills, o.Deaths, o.Assists), Inline: true},
	)
	if o.Duration > 0 {
		embed.Fields = append(embed.Fields,
			EmbedField{Name: "Duration", Value: formatDuration(o.Duration), Inline: true},
		)
	}
	return embed
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
