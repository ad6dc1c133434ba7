// Package ledger implements the deduplicating dual-sink persistence layer.
// Every observation is validated, checked against a per-entity dedup window,
// and then written best-effort to both the structured store and the flat log.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"price-tracker/internal/model"
	"price-tracker/internal/validate"
)

// ErrNoStore indicates a query ran against a ledger without a structured store.
var ErrNoStore = errors.New("ledger: structured store not configured")

// EntryStore is the structured sink plus its query surface.
type EntryStore interface {
	InsertEntry(ctx context.Context, entry model.LedgerEntry) error
	ListRecent(ctx context.Context, limit int) ([]model.LedgerEntry, error)
	ListHistory(ctx context.Context, symbol string, from, to time.Time) ([]model.LedgerEntry, error)
	ListSince(ctx context.Context, since time.Time) ([]model.LedgerEntry, error)
	Summarize(ctx context.Context) (model.Summary, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// FlatLog is the append-only sink.
type FlatLog interface {
	Append(entry model.LedgerEntry) error
}

// Options tune ledger behaviour.
type Options struct {
	DedupWindow  time.Duration
	MaxListLimit int
	Rules        validate.Rules
}

type indexKey struct {
	symbol string
	kind   model.AssetKind
}

// Ledger owns the dedup index and coordinates the two sinks. The mutex is held
// per entry check-and-write, not for a whole batch, so concurrent cycles for
// unrelated asset classes interleave.
type Ledger struct {
	store  EntryStore
	flat   FlatLog
	opts   Options
	logger zerolog.Logger

	mu    sync.Mutex
	index map[indexKey][]time.Time

	now func() time.Time
}

// New constructs a ledger over the given sinks. Either sink may be nil, in
// which case it is skipped; an entry counts as written when at least one
// present sink accepted it.
func New(store EntryStore, flat FlatLog, opts Options, logger zerolog.Logger) *Ledger {
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = time.Minute
	}
	if opts.MaxListLimit <= 0 {
		opts.MaxListLimit = 1000
	}
	return &Ledger{
		store:  store,
		flat:   flat,
		opts:   opts,
		logger: logger.With().Str("component", "ledger").Logger(),
		index:  make(map[indexKey][]time.Time),
		now:    time.Now,
	}
}

// Warm seeds the dedup index from entries the structured store already holds
// within the dedup window. Best-effort: a cold index only risks one duplicate
// row per entity after a restart.
func (l *Ledger) Warm(ctx context.Context) {
	if l.store == nil {
		return
	}

	since := l.now().Add(-l.opts.DedupWindow)
	entries, err := l.store.ListSince(ctx, since)
	if err != nil {
		l.logger.Warn().Err(err).Msg("failed to warm dedup index from store")
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, entry := range entries {
		key := indexKey{symbol: entry.Symbol, kind: entry.Kind}
		l.index[key] = append(l.index[key], entry.ObservedAt)
	}
	l.logger.Debug().Int("entries", len(entries)).Msg("dedup index warmed")
}

// Record validates, deduplicates, and persists a batch of observations,
// returning the number of entries actually written. A failure on one sink is
// reported but does not prevent the attempt on the other; an entry counts as
// unwritten only when every present sink failed.
func (l *Ledger) Record(ctx context.Context, batch []model.Observation) int {
	written := 0
	for _, obs := range batch {
		if err := l.opts.Rules.Check(obs); err != nil {
			l.logger.Warn().Err(err).Msg("dropping invalid observation")
			continue
		}
		if l.recordOne(ctx, obs) {
			written++
		}
	}
	if written > 0 {
		l.logger.Info().Int("written", written).Int("batch", len(batch)).Msg("ledger entries recorded")
	}
	return written
}

func (l *Ledger) recordOne(ctx context.Context, obs model.Observation) bool {
	key := indexKey{symbol: obs.Symbol, kind: obs.Kind}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isDuplicateLocked(key, obs.ObservedAt) {
		l.logger.Debug().Str("symbol", obs.Symbol).Time("observed_at", obs.ObservedAt).
			Msg("skipping duplicate observation")
		return false
	}

	entry := model.NewLedgerEntry(obs, l.now().UTC())

	storeOK := false
	if l.store != nil {
		if err := l.store.InsertEntry(ctx, entry); err != nil {
			l.logger.Error().Err(err).Str("symbol", obs.Symbol).Msg("structured store write failed")
		} else {
			storeOK = true
		}
	}

	// The flat log is attempted regardless of the structured store outcome.
	flatOK := false
	if l.flat != nil {
		if err := l.flat.Append(entry); err != nil {
			l.logger.Error().Err(err).Str("symbol", obs.Symbol).Msg("flat log write failed")
		} else {
			flatOK = true
		}
	}

	if !storeOK && !flatOK {
		l.logger.Error().Str("symbol", obs.Symbol).Msg("entry not written: all sinks failed")
		return false
	}

	l.insertIndexLocked(key, obs.ObservedAt)
	return true
}

// isDuplicateLocked reports whether an entry for the same (symbol, kind)
// exists with an observation time within the window on either side of the
// candidate's.
func (l *Ledger) isDuplicateLocked(key indexKey, at time.Time) bool {
	for _, existing := range l.index[key] {
		delta := at.Sub(existing)
		if delta < 0 {
			delta = -delta
		}
		if delta <= l.opts.DedupWindow {
			return true
		}
	}
	return false
}

func (l *Ledger) insertIndexLocked(key indexKey, at time.Time) {
	horizon := l.now().Add(-2 * l.opts.DedupWindow)
	kept := l.index[key][:0]
	for _, existing := range l.index[key] {
		if existing.After(horizon) {
			kept = append(kept, existing)
		}
	}
	l.index[key] = append(kept, at)
}

// Latest returns the most recent entries across all symbols, newest first,
// capped at the configured maximum.
func (l *Ledger) Latest(ctx context.Context, limit int) ([]model.LedgerEntry, error) {
	if l.store == nil {
		return nil, ErrNoStore
	}
	if limit <= 0 || limit > l.opts.MaxListLimit {
		limit = l.opts.MaxListLimit
	}
	return l.store.ListRecent(ctx, limit)
}

// History returns entries for one symbol within the trailing window, ascending
// by observation time.
func (l *Ledger) History(ctx context.Context, symbol string, window time.Duration) ([]model.LedgerEntry, error) {
	if l.store == nil {
		return nil, ErrNoStore
	}
	to := l.now()
	return l.store.ListHistory(ctx, symbol, to.Add(-window), to)
}

// Summary aggregates ledger-wide counts.
func (l *Ledger) Summary(ctx context.Context) (model.Summary, error) {
	if l.store == nil {
		return model.Summary{}, ErrNoStore
	}
	return l.store.Summarize(ctx)
}

// Purge deletes entries observed earlier than now minus the retention period
// and reports how many were deleted.
func (l *Ledger) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	if l.store == nil {
		return 0, ErrNoStore
	}
	cutoff := l.now().Add(-olderThan)
	deleted, err := l.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	l.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("purged old entries")
	return deleted, nil
}
