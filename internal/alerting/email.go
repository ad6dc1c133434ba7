package alerting

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// EmailOptions parameterise the SMTP channel. The password is expected to
// arrive from the environment, never from committed configuration.
type EmailOptions struct {
	SMTPHost string
	SMTPPort int
	From     string
	To       string
	Password string
}

// EmailNotifier delivers alerts over SMTP with an HTML body. When the
// configuration is incomplete the channel self-disables with a warning
// instead of failing the dispatch.
type EmailNotifier struct {
	opts   EmailOptions
	logger zerolog.Logger

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailNotifier constructs the email channel.
func NewEmailNotifier(opts EmailOptions, logger zerolog.Logger) *EmailNotifier {
	return &EmailNotifier{
		opts:   opts,
		logger: logger.With().Str("component", "alert_email").Logger(),
		send:   smtp.SendMail,
	}
}

// Name identifies the channel in dispatch logs.
func (n *EmailNotifier) Name() string { return "email" }

// Configured reports whether every required field, credential included, is
// present.
func (n *EmailNotifier) Configured() bool {
	return n.opts.SMTPHost != "" &&
		n.opts.SMTPPort > 0 &&
		n.opts.From != "" &&
		n.opts.To != "" &&
		n.opts.Password != ""
}

// Notify sends the alert email.
func (n *EmailNotifier) Notify(_ context.Context, event Event) error {
	if !n.Configured() {
		n.logger.Warn().Msg("email configuration incomplete; channel disabled")
		return nil
	}

	subject := fmt.Sprintf("Price Alert: %s", strings.ToUpper(event.Symbol))
	msg := buildEmailMessage(n.opts.From, n.opts.To, subject, renderEmailBody(event))

	addr := fmt.Sprintf("%s:%d", n.opts.SMTPHost, n.opts.SMTPPort)
	auth := smtp.PlainAuth("", n.opts.From, n.opts.Password, n.opts.SMTPHost)
	if err := n.send(addr, auth, n.opts.From, []string{n.opts.To}, msg); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}
	return nil
}

func buildEmailMessage(from, to, subject, htmlBody string) []byte {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("From: %s\r\n", from))
	builder.WriteString(fmt.Sprintf("To: %s\r\n", to))
	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(htmlBody)
	return []byte(builder.String())
}

func renderEmailBody(event Event) string {
	changeColor := "green"
	if event.ChangePct < 0 {
		changeColor = "red"
	}

	rows := []struct {
		label string
		value string
	}{
		{"Asset", strings.ToUpper(event.Symbol)},
		{"Current Price", fmt.Sprintf("$%.2f", event.Price)},
		{"24h Change", fmt.Sprintf(`<span style="color: %s;">%+.2f%%</span>`, changeColor, event.ChangePct)},
		{"Threshold", fmt.Sprintf("±%g%%", event.ThresholdPct)},
		{"Time", event.TriggeredAt.UTC().Format("2006-01-02 15:04:05")},
	}

	builder := strings.Builder{}
	builder.WriteString("<html><body><h2>Price Alert</h2>")
	builder.WriteString(`<table style="border-collapse: collapse;">`)
	for _, row := range rows {
		builder.WriteString("<tr>")
		builder.WriteString(fmt.Sprintf(`<td style="padding: 8px; border: 1px solid #ddd;"><strong>%s:</strong></td>`, row.label))
		builder.WriteString(fmt.Sprintf(`<td style="padding: 8px; border: 1px solid #ddd;">%s</td>`, row.value))
		builder.WriteString("</tr>")
	}
	builder.WriteString("</table></body></html>")
	return builder.String()
}

var _ Notifier = (*EmailNotifier)(nil)
