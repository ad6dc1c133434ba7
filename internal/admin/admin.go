// Package admin is the administrative boundary. It clamps and validates
// caller-supplied parameters against the configured bounds before anything
// reaches the ledger or the alert engine.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"price-tracker/internal/alerting"
	"price-tracker/internal/config"
	"price-tracker/internal/ledger"
	"price-tracker/internal/model"
	"price-tracker/internal/snapshot"
)

// Admin exposes the query and tuning surface.
type Admin struct {
	ledger *ledger.Ledger
	engine *alerting.Engine
	cache  snapshot.Cache
	limits config.LimitsConfig
	logger zerolog.Logger
}

// New constructs the administrative facade. The engine and cache are optional.
func New(ldg *ledger.Ledger, engine *alerting.Engine, cache snapshot.Cache, limits config.LimitsConfig, logger zerolog.Logger) *Admin {
	return &Admin{
		ledger: ldg,
		engine: engine,
		cache:  cache,
		limits: limits,
		logger: logger.With().Str("component", "admin").Logger(),
	}
}

// LatestEntries returns the newest ledger entries. A non-positive limit falls
// back to the default; anything above the cap is clamped down to it.
func (a *Admin) LatestEntries(ctx context.Context, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 {
		limit = a.limits.DefaultLimit
	}
	if limit > a.limits.MaxLimit {
		limit = a.limits.MaxLimit
	}
	return a.ledger.Latest(ctx, limit)
}

// History returns one symbol's trailing window of entries. Hours are clamped
// into [1, max]; zero falls back to the default window.
func (a *Admin) History(ctx context.Context, symbol string, hours int) ([]model.LedgerEntry, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if hours <= 0 {
		hours = a.limits.DefaultHistoryHours
	}
	if hours > a.limits.MaxHistoryHours {
		hours = a.limits.MaxHistoryHours
	}
	return a.ledger.History(ctx, symbol, time.Duration(hours)*time.Hour)
}

// Summary aggregates ledger-wide counts.
func (a *Admin) Summary(ctx context.Context) (model.Summary, error) {
	return a.ledger.Summary(ctx)
}

// AlertStats reports the alert engine configuration and cooldown state.
func (a *Admin) AlertStats() (alerting.Stats, error) {
	if a.engine == nil {
		return alerting.Stats{}, fmt.Errorf("alerting not enabled")
	}
	return a.engine.Stats(), nil
}

// SetThreshold validates the new crossing threshold against the configured
// bounds before applying it. Rejections leave the prior value in place.
func (a *Admin) SetThreshold(pct float64) error {
	if a.engine == nil {
		return fmt.Errorf("alerting not enabled")
	}
	if pct < a.limits.MinThresholdPct || pct > a.limits.MaxThresholdPct {
		return fmt.Errorf("threshold %.2f%% outside allowed range [%.1f, %.1f]",
			pct, a.limits.MinThresholdPct, a.limits.MaxThresholdPct)
	}
	return a.engine.SetThreshold(pct)
}

// SetCooldown validates the new per-entity suppression window against the
// configured bounds before applying it.
func (a *Admin) SetCooldown(d time.Duration) error {
	if a.engine == nil {
		return fmt.Errorf("alerting not enabled")
	}
	if d < a.limits.MinCooldown || d > a.limits.MaxCooldown {
		return fmt.Errorf("cooldown %s outside allowed range [%s, %s]",
			d, a.limits.MinCooldown, a.limits.MaxCooldown)
	}
	return a.engine.SetCooldown(d)
}

// Purge deletes entries older than the given number of days and reports how
// many were removed. Days are validated, not clamped: a purge outside the
// allowed range is likely a mistake and must be explicit.
func (a *Admin) Purge(ctx context.Context, days int) (int64, error) {
	if days < a.limits.MinPurgeDays || days > a.limits.MaxPurgeDays {
		return 0, fmt.Errorf("purge days %d outside allowed range [%d, %d]",
			days, a.limits.MinPurgeDays, a.limits.MaxPurgeDays)
	}
	deleted, err := a.ledger.Purge(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		return 0, err
	}
	a.logger.Info().Int("days", days).Int64("deleted", deleted).Msg("purge complete")
	return deleted, nil
}

// CurrentPrices returns the cached latest observation per symbol.
func (a *Admin) CurrentPrices(ctx context.Context) ([]model.Observation, error) {
	if a.cache == nil {
		return nil, fmt.Errorf("snapshot cache not enabled")
	}
	return a.cache.All(ctx)
}
