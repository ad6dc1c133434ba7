package model

import (
	"time"

	"github.com/google/uuid"
)

// AssetKind classifies a tracked entity.
type AssetKind string

const (
	// KindCrypto marks cryptocurrency assets quoted by the crypto source adapter.
	KindCrypto AssetKind = "crypto"
	// KindEquity marks listed stocks quoted by the equity source adapter.
	KindEquity AssetKind = "equity"
)

// Valid reports whether the kind is one of the known asset classes.
func (k AssetKind) Valid() bool {
	return k == KindCrypto || k == KindEquity
}

// Observation is a single validated price sample. Immutable once it enters the
// pipeline.
type Observation struct {
	Symbol     string
	Price      float64
	ChangePct  float64
	Kind       AssetKind
	ObservedAt time.Time
}

// LedgerEntry is the persisted form of an Observation.
type LedgerEntry struct {
	ID         uuid.UUID
	Symbol     string
	Price      float64
	ChangePct  float64
	Kind       AssetKind
	ObservedAt time.Time
	IngestedAt time.Time
}

// NewLedgerEntry stamps an observation with a surrogate id and ingestion time.
func NewLedgerEntry(obs Observation, ingestedAt time.Time) LedgerEntry {
	return LedgerEntry{
		ID:         uuid.New(),
		Symbol:     obs.Symbol,
		Price:      obs.Price,
		ChangePct:  obs.ChangePct,
		Kind:       obs.Kind,
		ObservedAt: obs.ObservedAt,
		IngestedAt: ingestedAt,
	}
}

// Summary aggregates ledger-wide counts.
type Summary struct {
	TotalEntries    int64
	DistinctSymbols int64
	Oldest          time.Time
	Newest          time.Time
}
