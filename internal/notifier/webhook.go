package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// Discord accepts at most this many embeds per message.
const maxEmbedsPerMessage = 10

type WebhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []Embed `json:"embeds"`
}

type Webhook struct {
	url      string
	username string
	client   *fasthttp.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:      url,
		username: "LoL Tracker",
		client: &fasthttp.Client{
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// Send posts embeds in as few messages as Discord allows.
func (w *Webhook) Send(ctx context.Context, embeds ...Embed) error {
	for start := 0; start < len(embeds); start += maxEmbedsPerMessage {
		end := min(start+maxEmbedsPerMessage, len(embeds))
		if err := w.post(ctx, WebhookPayload{Username: w.username, Embeds: embeds[start:end]}); err != nil {
			return err
		}
	}
	return nil
}

func (w *Webhook) post(ctx context.Context, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(w.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBodyRaw(body)

	if deadline, ok := ctx.Deadline(); ok {
		err = w.client.DoDeadline(req, resp, deadline)
	} else {
		err = w.client.Do(req, resp)
	}
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("webhook rejected: %d %s", code, truncate(string(resp.Body()), 200))
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
