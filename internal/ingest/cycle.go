package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"price-tracker/internal/alerting"
	"price-tracker/internal/fetcher"
	"price-tracker/internal/ledger"
	"price-tracker/internal/model"
	"price-tracker/internal/ratelimit"
	"price-tracker/internal/snapshot"
)

// Cycle orchestrates one source's polling round: rate gate, fetch, snapshot
// refresh, ledger write, alert evaluation and dispatch.
type Cycle struct {
	governor *ratelimit.Governor
	sources  map[model.AssetKind]fetcher.Source
	ledger   *ledger.Ledger
	engine   *alerting.Engine
	cache    snapshot.Cache
	logger   zerolog.Logger
}

// New constructs the ingestion cycle. The engine and cache are optional;
// the ledger is not.
func New(governor *ratelimit.Governor, sources []fetcher.Source, ldg *ledger.Ledger, engine *alerting.Engine, cache snapshot.Cache, logger zerolog.Logger) *Cycle {
	bySrc := make(map[model.AssetKind]fetcher.Source, len(sources))
	for _, src := range sources {
		bySrc[src.Kind()] = src
	}
	return &Cycle{
		governor: governor,
		sources:  bySrc,
		ledger:   ldg,
		engine:   engine,
		cache:    cache,
		logger:   logger.With().Str("component", "ingest").Logger(),
	}
}

// RunOnce executes one polling round for the given asset class. Downstream
// failures past the fetch are reported but never abort the round; the round
// fails only when no observations could be obtained at all.
func (c *Cycle) RunOnce(ctx context.Context, kind model.AssetKind) error {
	source, ok := c.sources[kind]
	if !ok {
		return fmt.Errorf("no source registered for asset kind %q", kind)
	}

	if c.governor != nil {
		if err := c.governor.Acquire(ctx); err != nil {
			return fmt.Errorf("rate gate: %w", err)
		}
	}

	started := time.Now()
	batch, err := source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch %s observations: %w", kind, err)
	}
	if len(batch) == 0 {
		c.logger.Warn().Str("kind", string(kind)).Msg("source returned no observations")
		return nil
	}

	if c.cache != nil {
		for _, obs := range batch {
			if err := c.cache.Put(ctx, obs); err != nil {
				c.logger.Warn().Err(err).Str("symbol", obs.Symbol).Msg("snapshot update failed")
			}
		}
	}

	written := c.ledger.Record(ctx, batch)

	var dispatched int
	if c.engine != nil {
		events := c.engine.Evaluate(batch)
		for _, event := range events {
			c.engine.Dispatch(ctx, event)
		}
		dispatched = len(events)
	}

	c.logger.Info().
		Str("kind", string(kind)).
		Int("fetched", len(batch)).
		Int("written", written).
		Int("alerts", dispatched).
		Dur("elapsed", time.Since(started)).
		Msg("polling round complete")

	return nil
}

// Kinds lists the asset classes this cycle can poll.
func (c *Cycle) Kinds() []model.AssetKind {
	kinds := make([]model.AssetKind, 0, len(c.sources))
	for kind := range c.sources {
		kinds = append(kinds, kind)
	}
	return kinds
}
