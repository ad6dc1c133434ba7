package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"price-tracker/internal/model"
)

// Show prints the newest ledger entries.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show entries")
	}
	if closeStore != nil {
		defer closeStore()
	}

	ldg, err := a.newLedger(store)
	if err != nil {
		return err
	}

	entries, err := a.newAdmin(ldg, nil, nil).LatestEntries(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stdout, "no entries found")
		return nil
	}

	printEntries(entries)
	return nil
}

// History prints one symbol's trailing window of entries.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	ldg, err := a.newLedger(store)
	if err != nil {
		return err
	}

	entries, err := a.newAdmin(ldg, nil, nil).History(ctx, opts.Symbol, opts.Hours)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(os.Stdout, "no entries found for %s\n", opts.Symbol)
		return nil
	}

	printEntries(entries)
	return nil
}

// Status prints ledger-wide aggregates.
func (a *App) Status(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show status")
	}
	if closeStore != nil {
		defer closeStore()
	}

	ldg, err := a.newLedger(store)
	if err != nil {
		return err
	}

	summary, err := a.newAdmin(ldg, nil, nil).Summary(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Total entries\t%d\n", summary.TotalEntries)
	fmt.Fprintf(writer, "Distinct symbols\t%d\n", summary.DistinctSymbols)
	if !summary.Oldest.IsZero() {
		fmt.Fprintf(writer, "Oldest entry\t%s\n", summary.Oldest.UTC().Format(time.RFC3339))
		fmt.Fprintf(writer, "Newest entry\t%s\n", summary.Newest.UTC().Format(time.RFC3339))
	}
	return writer.Flush()
}

// Purge deletes entries older than the given number of days.
func (a *App) Purge(ctx context.Context, days int) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot purge")
	}
	if closeStore != nil {
		defer closeStore()
	}

	ldg, err := a.newLedger(store)
	if err != nil {
		return err
	}

	deleted, err := a.newAdmin(ldg, nil, nil).Purge(ctx, days)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "deleted %d entries older than %d days\n", deleted, days)
	return nil
}

func printEntries(entries []model.LedgerEntry) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tSymbol\tPrice\tChange 24h%\tType")
	for _, entry := range entries {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%.4f\t%+.2f\t%s\n",
			entry.ObservedAt.UTC().Format(time.RFC3339),
			entry.Symbol,
			entry.Price,
			entry.ChangePct,
			entry.Kind,
		)
	}
	writer.Flush()
}
