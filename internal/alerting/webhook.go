package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// WebhookOptions parameterise the webhook channel.
type WebhookOptions struct {
	URL     string
	Timeout time.Duration
}

// WebhookNotifier POSTs a structured JSON payload to a configured endpoint.
type WebhookNotifier struct {
	opts   WebhookOptions
	client *http.Client
	logger zerolog.Logger
}

// NewWebhookNotifier constructs the webhook channel.
func NewWebhookNotifier(opts WebhookOptions, logger zerolog.Logger) *WebhookNotifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger.With().Str("component", "alert_webhook").Logger(),
	}
}

// Name identifies the channel in dispatch logs.
func (n *WebhookNotifier) Name() string { return "webhook" }

type webhookPayload struct {
	Text        string              `json:"text"`
	Attachments []webhookAttachment `json:"attachments"`
}

type webhookAttachment struct {
	Color  string         `json:"color"`
	Fields []webhookField `json:"fields"`
	Footer string         `json:"footer"`
}

type webhookField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Notify posts the alert. Non-2xx responses are reported as failures; the
// request is bounded by the configured timeout.
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	if n.opts.URL == "" {
		n.logger.Warn().Msg("webhook url not configured; channel disabled")
		return nil
	}

	color := "good"
	if event.ChangePct < 0 {
		color = "danger"
	}

	payload := webhookPayload{
		Text: event.Message,
		Attachments: []webhookAttachment{{
			Color: color,
			Fields: []webhookField{
				{Title: "Asset", Value: event.Symbol, Short: true},
				{Title: "Current Price", Value: fmt.Sprintf("$%.2f", event.Price), Short: true},
				{Title: "24h Change", Value: fmt.Sprintf("%+.2f%%", event.ChangePct), Short: true},
				{Title: "Threshold", Value: fmt.Sprintf("±%g%%", event.ThresholdPct), Short: true},
			},
			Footer: fmt.Sprintf("Alert triggered at %s", event.TriggeredAt.UTC().Format("2006-01-02 15:04:05")),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.opts.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

var _ Notifier = (*WebhookNotifier)(nil)
