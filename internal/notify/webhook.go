// Package notify posts completed links to a Discord webhook.
package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/BlackMission/collectivelink/internal/auth"
	"github.com/BlackMission/collectivelink/internal/domain"
	"github.com/BlackMission/collectivelink/internal/providers"
)

const embedColor = 0x66cc33

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Type   string       `json:"type"`
	Title  string       `json:"title"`
	Fields []embedField `json:"fields"`
	Color  int          `json:"color"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// Webhook is an auth.Notifier that posts one embed per link.
type Webhook struct {
	url        string
	httpClient *http.Client
}

var _ auth.Notifier = (*Webhook)(nil)

// NewWebhook creates a notifier for url. An empty url disables posting.
func NewWebhook(url string, httpClient *http.Client) *Webhook {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Webhook{url: url, httpClient: httpClient}
}

// Enabled reports whether a webhook URL is configured.
func (w *Webhook) Enabled() bool {
	return w.url != ""
}

// NotifyLinked posts the Discord user and the account it was linked to.
func (w *Webhook) NotifyLinked(ctx context.Context, user domain.DiscordUser, account domain.LinkedAccount) error {
	if !w.Enabled() {
		return nil
	}

	payload := webhookPayload{
		Embeds: []embed{{
			Type:  "rich",
			Title: fmt.Sprintf("%s (%s)", user.Username, user.ID),
			Fields: []embedField{
				{Name: "id", Value: fieldValue(account.ID), Inline: true},
				{Name: "name", Value: fieldValue(account.Name), Inline: true},
				{Name: "slug", Value: fieldValue(account.Slug), Inline: true},
			},
			Color: embedColor,
		}},
	}
	return providers.DoJSON(ctx, w.httpClient, http.MethodPost, w.url, payload, nil, "Discord", "webhook", nil)
}

// Discord rejects embeds with empty field values.
func fieldValue(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
