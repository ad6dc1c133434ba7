package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"price-tracker/internal/model"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	createSchemaSQL = `CREATE TABLE IF NOT EXISTS price_data (
        id         UUID PRIMARY KEY,
        timestamp  TIMESTAMPTZ NOT NULL,
        symbol     TEXT NOT NULL,
        price      NUMERIC NOT NULL,
        change_24h NUMERIC NOT NULL,
        asset_type TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`

	createIndexSQL = `CREATE INDEX IF NOT EXISTS idx_price_data_timestamp_symbol
    ON price_data (timestamp, symbol);`

	insertEntrySQL = `INSERT INTO price_data (
        id,
        timestamp,
        symbol,
        price,
        change_24h,
        asset_type,
        created_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    );`

	listRecentSQL = `SELECT
        id, timestamp, symbol, price, change_24h, asset_type, created_at
    FROM price_data
    ORDER BY timestamp DESC
    LIMIT $1;`

	listHistorySQL = `SELECT
        id, timestamp, symbol, price, change_24h, asset_type, created_at
    FROM price_data
    WHERE symbol = $1
      AND timestamp >= $2
      AND timestamp <= $3
    ORDER BY timestamp ASC;`

	listSinceSQL = `SELECT
        id, timestamp, symbol, price, change_24h, asset_type, created_at
    FROM price_data
    WHERE timestamp >= $1;`

	summarySQL = `SELECT
        COUNT(*),
        COUNT(DISTINCT symbol),
        COALESCE(MIN(timestamp), to_timestamp(0)),
        COALESCE(MAX(timestamp), to_timestamp(0))
    FROM price_data;`

	deleteBeforeSQL = `DELETE FROM price_data WHERE timestamp < $1;`
)

// Store provides access to the structured price_data sink.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates the price_data table and its range-query index.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, createSchemaSQL); execErr != nil {
		return fmt.Errorf("create price_data table: %w", execErr)
	}
	if _, execErr := pool.Exec(ctx, createIndexSQL); execErr != nil {
		return fmt.Errorf("create price_data index: %w", execErr)
	}
	return nil
}

// InsertEntry persists one ledger entry.
func (s *Store) InsertEntry(ctx context.Context, entry model.LedgerEntry) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	price := decimal.NewFromFloat(entry.Price).String()
	change := decimal.NewFromFloat(entry.ChangePct).String()

	_, execErr := pool.Exec(ctx, insertEntrySQL,
		entry.ID,
		entry.ObservedAt,
		entry.Symbol,
		price,
		change,
		string(entry.Kind),
		entry.IngestedAt,
	)
	if execErr != nil {
		return fmt.Errorf("insert ledger entry: %w", execErr)
	}
	return nil
}

// ListRecent returns the most recent entries across all symbols, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]model.LedgerEntry, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent entries: %w", queryErr)
	}
	defer rows.Close()

	return collectEntries(rows, limit)
}

// ListHistory returns entries for one symbol within [from, to], ascending.
func (s *Store) ListHistory(ctx context.Context, symbol string, from, to time.Time) ([]model.LedgerEntry, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listHistorySQL, symbol, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list history: %w", queryErr)
	}
	defer rows.Close()

	return collectEntries(rows, 0)
}

// ListSince returns every entry observed at or after the given time. Used to
// seed the dedup index on startup.
func (s *Store) ListSince(ctx context.Context, since time.Time) ([]model.LedgerEntry, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSinceSQL, since)
	if queryErr != nil {
		return nil, fmt.Errorf("list entries since: %w", queryErr)
	}
	defer rows.Close()

	return collectEntries(rows, 0)
}

// Summarize aggregates ledger-wide counts.
func (s *Store) Summarize(ctx context.Context) (model.Summary, error) {
	pool, err := s.getPool()
	if err != nil {
		return model.Summary{}, err
	}

	var summary model.Summary
	if scanErr := pool.QueryRow(ctx, summarySQL).Scan(
		&summary.TotalEntries,
		&summary.DistinctSymbols,
		&summary.Oldest,
		&summary.Newest,
	); scanErr != nil {
		return model.Summary{}, fmt.Errorf("summarize entries: %w", scanErr)
	}
	return summary, nil
}

// DeleteBefore removes entries observed before the cutoff and reports how many
// were removed.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteBeforeSQL, cutoff)
	if execErr != nil {
		return 0, fmt.Errorf("delete entries before cutoff: %w", execErr)
	}
	return cmdTag.RowsAffected(), nil
}

func collectEntries(rows pgx.Rows, sizeHint int) ([]model.LedgerEntry, error) {
	entries := make([]model.LedgerEntry, 0, sizeHint)
	for rows.Next() {
		entry, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, entry)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

func scanEntry(rows pgx.Rows) (model.LedgerEntry, error) {
	var (
		id         uuid.UUID
		observedAt time.Time
		symbol     string
		priceStr   string
		changeStr  string
		assetType  string
		ingestedAt time.Time
	)

	if err := rows.Scan(
		&id,
		&observedAt,
		&symbol,
		&priceStr,
		&changeStr,
		&assetType,
		&ingestedAt,
	); err != nil {
		return model.LedgerEntry{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parse price: %w", err)
	}
	change, err := decimal.NewFromString(changeStr)
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parse change_24h: %w", err)
	}

	return model.LedgerEntry{
		ID:         id,
		Symbol:     symbol,
		Price:      price.InexactFloat64(),
		ChangePct:  change.InexactFloat64(),
		Kind:       model.AssetKind(assetType),
		ObservedAt: observedAt,
		IngestedAt: ingestedAt,
	}, nil
}
