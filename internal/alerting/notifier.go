package alerting

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"price-tracker/internal/model"
)

// Event is a transient unit of work handed to notification channels. It is
// never persisted.
type Event struct {
	Symbol       string
	Kind         model.AssetKind
	Price        float64
	ChangePct    float64
	ThresholdPct float64
	TriggeredAt  time.Time
	Message      string
}

func newEvent(obs model.Observation, threshold float64, triggeredAt time.Time) Event {
	event := Event{
		Symbol:       obs.Symbol,
		Kind:         obs.Kind,
		Price:        obs.Price,
		ChangePct:    obs.ChangePct,
		ThresholdPct: threshold,
		TriggeredAt:  triggeredAt,
	}
	event.Message = renderMessage(event)
	return event
}

func renderMessage(event Event) string {
	direction := "increased"
	if event.ChangePct < 0 {
		direction = "decreased"
	}

	builder := strings.Builder{}
	builder.WriteString("PRICE ALERT\n")
	builder.WriteString(fmt.Sprintf("Asset: %s\n", strings.ToUpper(event.Symbol)))
	builder.WriteString(fmt.Sprintf("Current Price: $%.2f\n", event.Price))
	builder.WriteString(fmt.Sprintf("24h Change: %+.2f%% (%s)\n", event.ChangePct, direction))
	builder.WriteString(fmt.Sprintf("Threshold: ±%g%%\n", event.ThresholdPct))
	builder.WriteString(fmt.Sprintf("Time: %s", event.TriggeredAt.UTC().Format("2006-01-02 15:04:05")))
	return builder.String()
}

// Notifier is the common capability every notification channel implements.
// Channels form a small closed set: console, email, webhook.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, event Event) error
}

// ConsoleNotifier writes the formatted alert block to a terminal stream.
type ConsoleNotifier struct {
	out    io.Writer
	logger zerolog.Logger
}

// NewConsoleNotifier constructs the console channel. A nil writer defaults to
// stdout.
func NewConsoleNotifier(out io.Writer, logger zerolog.Logger) *ConsoleNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleNotifier{
		out:    out,
		logger: logger.With().Str("component", "alert_console").Logger(),
	}
}

// Name identifies the channel in dispatch logs.
func (n *ConsoleNotifier) Name() string { return "console" }

// Notify prints the alert between separator rules.
func (n *ConsoleNotifier) Notify(_ context.Context, event Event) error {
	separator := strings.Repeat("=", 50)
	if _, err := fmt.Fprintf(n.out, "\n%s\n%s\n%s\n\n", separator, event.Message, separator); err != nil {
		return fmt.Errorf("write console alert: %w", err)
	}
	return nil
}

var _ Notifier = (*ConsoleNotifier)(nil)
