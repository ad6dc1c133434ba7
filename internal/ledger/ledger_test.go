package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"price-tracker/internal/model"
	"price-tracker/internal/validate"
)

type fakeStore struct {
	entries   []model.LedgerEntry
	failWrite bool
}

func (f *fakeStore) InsertEntry(_ context.Context, entry model.LedgerEntry) error {
	if f.failWrite {
		return errors.New("store unavailable")
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeStore) ListRecent(_ context.Context, limit int) ([]model.LedgerEntry, error) {
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	return f.entries[:limit], nil
}

func (f *fakeStore) ListHistory(_ context.Context, symbol string, from, to time.Time) ([]model.LedgerEntry, error) {
	var out []model.LedgerEntry
	for _, e := range f.entries {
		if e.Symbol == symbol && !e.ObservedAt.Before(from) && !e.ObservedAt.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSince(_ context.Context, since time.Time) ([]model.LedgerEntry, error) {
	var out []model.LedgerEntry
	for _, e := range f.entries {
		if !e.ObservedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) Summarize(_ context.Context) (model.Summary, error) {
	return model.Summary{TotalEntries: int64(len(f.entries))}, nil
}

func (f *fakeStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	kept := f.entries[:0]
	deleted := int64(0)
	for _, e := range f.entries {
		if e.ObservedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return deleted, nil
}

type fakeFlat struct {
	rows []model.LedgerEntry
	fail bool
}

func (f *fakeFlat) Append(entry model.LedgerEntry) error {
	if f.fail {
		return errors.New("disk full")
	}
	f.rows = append(f.rows, entry)
	return nil
}

var baseTime = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func obsAt(symbol string, offset time.Duration) model.Observation {
	return model.Observation{
		Symbol:     symbol,
		Price:      100.0,
		ChangePct:  1.0,
		Kind:       model.KindCrypto,
		ObservedAt: baseTime.Add(offset),
	}
}

func newTestLedger(store EntryStore, flat FlatLog) *Ledger {
	l := New(store, flat, Options{
		DedupWindow:  time.Minute,
		MaxListLimit: 1000,
		Rules:        validate.NewRules(),
	}, zerolog.Nop())
	l.now = func() time.Time { return baseTime }
	return l
}

func TestRecordWritesBothSinks(t *testing.T) {
	store := &fakeStore{}
	flat := &fakeFlat{}
	l := newTestLedger(store, flat)

	written := l.Record(context.Background(), []model.Observation{
		obsAt("bitcoin", 0),
		obsAt("ethereum", 0),
	})

	if written != 2 {
		t.Fatalf("expected 2 written, got %d", written)
	}
	if len(store.entries) != 2 || len(flat.rows) != 2 {
		t.Fatalf("both sinks should hold 2 entries, store=%d flat=%d", len(store.entries), len(flat.rows))
	}
	if store.entries[0].ID == store.entries[1].ID {
		t.Fatal("entries should carry distinct surrogate ids")
	}
}

func TestRecordDedupWithinWindow(t *testing.T) {
	store := &fakeStore{}
	l := newTestLedger(store, &fakeFlat{})

	// Same entity, 30s apart: second is a re-fetch of the same sample.
	first := l.Record(context.Background(), []model.Observation{obsAt("bitcoin", 0)})
	second := l.Record(context.Background(), []model.Observation{obsAt("bitcoin", 30*time.Second)})

	if first != 1 || second != 0 {
		t.Fatalf("expected 1 then 0 written, got %d then %d", first, second)
	}
	if len(store.entries) != 1 {
		t.Fatalf("store should hold exactly 1 entry, got %d", len(store.entries))
	}
}

func TestRecordDedupRegardlessOfBatchGrouping(t *testing.T) {
	store := &fakeStore{}
	l := newTestLedger(store, &fakeFlat{})

	written := l.Record(context.Background(), []model.Observation{
		obsAt("bitcoin", 0),
		obsAt("bitcoin", 45*time.Second),
	})
	if written != 1 {
		t.Fatalf("duplicates inside one batch should collapse to 1, got %d", written)
	}
}

func TestRecordDedupIsSymmetric(t *testing.T) {
	store := &fakeStore{}
	l := newTestLedger(store, &fakeFlat{})

	// An earlier timestamp within the window is also a duplicate.
	l.Record(context.Background(), []model.Observation{obsAt("bitcoin", 0)})
	written := l.Record(context.Background(), []model.Observation{obsAt("bitcoin", -30*time.Second)})
	if written != 0 {
		t.Fatalf("earlier sample inside window should dedup, got %d written", written)
	}
}

func TestRecordDifferentKindIsNotDuplicate(t *testing.T) {
	store := &fakeStore{}
	l := newTestLedger(store, &fakeFlat{})

	a := obsAt("COIN", 0)
	b := obsAt("COIN", 0)
	b.Kind = model.KindEquity

	written := l.Record(context.Background(), []model.Observation{a, b})
	if written != 2 {
		t.Fatalf("same symbol with different kind should both write, got %d", written)
	}
}

func TestRecordOutsideWindowIsNewSample(t *testing.T) {
	store := &fakeStore{}
	l := newTestLedger(store, &fakeFlat{})

	l.Record(context.Background(), []model.Observation{obsAt("bitcoin", 0)})
	written := l.Record(context.Background(), []model.Observation{obsAt("bitcoin", 61*time.Second)})
	if written != 1 {
		t.Fatalf("sample outside dedup window should write, got %d", written)
	}
}

func TestRecordSinkIndependence(t *testing.T) {
	store := &fakeStore{failWrite: true}
	flat := &fakeFlat{}
	l := newTestLedger(store, flat)

	written := l.Record(context.Background(), []model.Observation{obsAt("bitcoin", 0)})
	if written != 1 {
		t.Fatalf("entry should count as written when one sink succeeds, got %d", written)
	}
	if len(flat.rows) != 1 {
		t.Fatalf("flat log should hold the entry, got %d", len(flat.rows))
	}

	// The dedup index must reflect the partially-written entry.
	again := l.Record(context.Background(), []model.Observation{obsAt("bitcoin", 10*time.Second)})
	if again != 0 {
		t.Fatalf("partially-written entry should still dedup, got %d written", again)
	}
}

func TestRecordAllSinksFailed(t *testing.T) {
	store := &fakeStore{failWrite: true}
	flat := &fakeFlat{fail: true}
	l := newTestLedger(store, flat)

	written := l.Record(context.Background(), []model.Observation{obsAt("bitcoin", 0)})
	if written != 0 {
		t.Fatalf("entry should count as unwritten when all sinks fail, got %d", written)
	}

	// Nothing entered the dedup index, so the next cycle may retry.
	flat.fail = false
	retry := l.Record(context.Background(), []model.Observation{obsAt("bitcoin", 5*time.Second)})
	if retry != 1 {
		t.Fatalf("retry after total sink failure should write, got %d", retry)
	}
}

func TestRecordDropsInvalidObservations(t *testing.T) {
	store := &fakeStore{}
	l := newTestLedger(store, &fakeFlat{})

	bad := obsAt("bitcoin", 0)
	bad.Price = 0

	written := l.Record(context.Background(), []model.Observation{bad, obsAt("ethereum", 0)})
	if written != 1 {
		t.Fatalf("invalid observation should be dropped, got %d written", written)
	}
	if len(store.entries) != 1 || store.entries[0].Symbol != "ethereum" {
		t.Fatalf("only the valid observation should persist: %+v", store.entries)
	}
}

func TestLatestClampsLimit(t *testing.T) {
	store := &fakeStore{}
	l := New(store, nil, Options{
		DedupWindow:  time.Minute,
		MaxListLimit: 2,
		Rules:        validate.NewRules(),
	}, zerolog.Nop())
	l.now = func() time.Time { return baseTime }

	l.Record(context.Background(), []model.Observation{
		obsAt("a", 0), obsAt("b", 0), obsAt("c", 0),
	})

	entries, err := l.Latest(context.Background(), 100)
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("limit should clamp to 2, got %d", len(entries))
	}
}

func TestPurgeDeletesOnlyOldEntries(t *testing.T) {
	store := &fakeStore{}
	l := newTestLedger(store, nil)

	l.Record(context.Background(), []model.Observation{
		obsAt("bitcoin", -40*24*time.Hour),
		obsAt("ethereum", -5*24*time.Hour),
	})

	deleted, err := l.Purge(context.Background(), 30*24*time.Hour)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected exactly 1 entry deleted, got %d", deleted)
	}
	if len(store.entries) != 1 || store.entries[0].Symbol != "ethereum" {
		t.Fatalf("recent entry should survive purge: %+v", store.entries)
	}
}

func TestHistoryReturnsTrailingWindow(t *testing.T) {
	store := &fakeStore{}
	l := newTestLedger(store, nil)

	l.Record(context.Background(), []model.Observation{
		obsAt("bitcoin", -2*time.Hour),
		obsAt("bitcoin", -10*time.Minute),
		obsAt("ethereum", -5*time.Minute),
	})

	entries, err := l.History(context.Background(), "bitcoin", time.Hour)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry within trailing hour, got %d", len(entries))
	}
	if entries[0].Symbol != "bitcoin" {
		t.Fatalf("history should filter by symbol: %+v", entries[0])
	}
}

func TestWarmSeedsDedupIndex(t *testing.T) {
	store := &fakeStore{}
	seed := newTestLedger(store, nil)
	seed.Record(context.Background(), []model.Observation{obsAt("bitcoin", -30*time.Second)})

	// Fresh ledger over the same store, as after a restart.
	l := newTestLedger(store, nil)
	l.Warm(context.Background())

	written := l.Record(context.Background(), []model.Observation{obsAt("bitcoin", 0)})
	if written != 0 {
		t.Fatalf("warmed index should dedup against stored entries, got %d written", written)
	}
}

func TestQueriesWithoutStore(t *testing.T) {
	l := newTestLedger(nil, &fakeFlat{})
	if _, err := l.Latest(context.Background(), 10); !errors.Is(err, ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
	if _, err := l.Summary(context.Background()); !errors.Is(err, ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
}
