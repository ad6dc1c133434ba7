package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"price-tracker/internal/admin"
	"price-tracker/internal/alerting"
	"price-tracker/internal/config"
	"price-tracker/internal/fetcher"
	"price-tracker/internal/ingest"
	"price-tracker/internal/ledger"
	"price-tracker/internal/model"
	"price-tracker/internal/ratelimit"
	"price-tracker/internal/scheduler"
	"price-tracker/internal/snapshot"
	"price-tracker/internal/storage"
	"price-tracker/internal/validate"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) rules() validate.Rules {
	return validate.Rules{
		MaxSymbolLength: a.Config.Limits.MaxSymbolLength,
		MaxPrice:        a.Config.Limits.MaxPrice,
		MaxChangePct:    a.Config.Limits.MaxChangePct,
	}
}

func (a *App) newSources() []fetcher.Source {
	var sources []fetcher.Source

	if len(a.Config.Source.CryptoAssets) > 0 {
		sources = append(sources, fetcher.NewCoinGecko(fetcher.CoinGeckoOptions{
			BaseURL:   a.Config.Source.CryptoBaseURL,
			Assets:    a.Config.Source.CryptoAssets,
			Timeout:   a.Config.Source.RequestTimeout,
			UserAgent: a.Config.Source.UserAgent,
		}, a.Logger))
	}

	if len(a.Config.Source.EquityAssets) > 0 {
		sources = append(sources, fetcher.NewYahoo(fetcher.YahooOptions{
			BaseURL:   a.Config.Source.EquityBaseURL,
			Symbols:   a.Config.Source.EquityAssets,
			Timeout:   a.Config.Source.RequestTimeout,
			UserAgent: a.Config.Source.UserAgent,
		}, a.Logger))
	}

	return sources
}

func (a *App) newNotifiers() []alerting.Notifier {
	var channels []alerting.Notifier

	if a.Config.Alerting.Console {
		channels = append(channels, alerting.NewConsoleNotifier(nil, a.Logger))
	}

	if a.Config.Alerting.Email.Enabled {
		cfg := a.Config.Alerting.Email
		channels = append(channels, alerting.NewEmailNotifier(alerting.EmailOptions{
			SMTPHost: cfg.SMTPHost,
			SMTPPort: cfg.SMTPPort,
			From:     cfg.From,
			To:       cfg.To,
			Password: cfg.Password,
		}, a.Logger))
	}

	if a.Config.Alerting.Webhook.Enabled {
		cfg := a.Config.Alerting.Webhook
		channels = append(channels, alerting.NewWebhookNotifier(alerting.WebhookOptions{
			URL:     cfg.URL,
			Timeout: cfg.Timeout,
		}, a.Logger))
	}

	return channels
}

func (a *App) newEngine() *alerting.Engine {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	return alerting.NewEngine(alerting.Options{
		ThresholdPct: a.Config.Alerting.ThresholdPct,
		Cooldown:     a.Config.Alerting.Cooldown,
		Rules:        a.rules(),
	}, a.newNotifiers(), a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newLedger(store *storage.Store) (*ledger.Ledger, error) {
	var flat ledger.FlatLog
	if a.Config.CSVLog.Path != "" {
		csvLog, err := storage.NewCSVLog(a.Config.CSVLog.Path)
		if err != nil {
			return nil, err
		}
		flat = csvLog
	}

	var entryStore ledger.EntryStore
	if store != nil {
		entryStore = store
	}

	return ledger.New(entryStore, flat, ledger.Options{
		DedupWindow:  a.Config.Limits.DedupWindow,
		MaxListLimit: a.Config.Limits.MaxLimit,
		Rules:        a.rules(),
	}, a.Logger), nil
}

// newAdmin wires the administrative facade for one-shot CLI commands.
func (a *App) newAdmin(ldg *ledger.Ledger, engine *alerting.Engine, cache snapshot.Cache) *admin.Admin {
	return admin.New(ldg, engine, cache, a.Config.Limits, a.Logger)
}

// Run executes the long-running tracking service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; structured persistence disabled")
	} else {
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	if closeStore != nil {
		defer closeStore()
	}

	ldg, err := a.newLedger(store)
	if err != nil {
		return err
	}
	ldg.Warm(ctx)

	cache := snapshot.New(a.Config.Snapshot, a.Logger)
	defer cache.Close()

	engine := a.newEngine()
	if engine == nil {
		a.Logger.Info().Msg("alerting disabled")
	}

	sources := a.newSources()
	if len(sources) == 0 {
		return errors.New("no asset sources configured")
	}

	governor := ratelimit.New(a.Config.Source.RateLimitPerMin)
	cycle := ingest.New(governor, sources, ldg, engine, cache, a.Logger)

	sched := scheduler.New(a.Logger)
	for _, source := range sources {
		kind := source.Kind()
		interval := a.Config.Scheduler.CryptoInterval
		if kind == model.KindEquity {
			interval = a.Config.Scheduler.EquityInterval
		}
		err := sched.Add(scheduler.Job{
			Name:     "poll_" + string(kind),
			Interval: interval,
			Run: func(ctx context.Context) error {
				return cycle.RunOnce(ctx, kind)
			},
		})
		if err != nil {
			return err
		}
	}

	if store != nil && a.Config.Scheduler.RetentionDays > 0 {
		retention := time.Duration(a.Config.Scheduler.RetentionDays) * 24 * time.Hour
		err := sched.Add(scheduler.Job{
			Name:     "purge",
			Interval: a.Config.Scheduler.PurgeInterval,
			Run: func(ctx context.Context) error {
				_, err := ldg.Purge(ctx, retention)
				return err
			},
		})
		if err != nil {
			return err
		}
	}

	a.Logger.Info().Msg("starting price tracking service")
	err = sched.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("price tracking service stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// HistoryOptions configure the history command.
type HistoryOptions struct {
	Symbol string
	Hours  int
}

// ExportOptions hold parameters for exporting historical entries.
type ExportOptions struct {
	Symbol    string
	Hours     int
	CSVPath   string
	PNGPath   string
	MaxPoints int
}
