package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"price-tracker/internal/model"
)

var csvHeader = []string{"timestamp", "symbol", "price", "change_24h", "asset_type"}

// CSVLog is the append-only flat log sink. The header row is written once
// when the file is created; every entry afterwards is appended.
type CSVLog struct {
	mu   sync.Mutex
	path string
}

// NewCSVLog prepares the flat log at the given path, creating parent
// directories and the header row if the file does not exist yet.
func NewCSVLog(path string) (*CSVLog, error) {
	if path == "" {
		return nil, fmt.Errorf("csv log path is required")
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create csv log directory: %w", err)
		}
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		if writeErr := writeCSVHeader(path); writeErr != nil {
			return nil, writeErr
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat csv log: %w", err)
	}

	return &CSVLog{path: path}, nil
}

func writeCSVHeader(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create csv log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

// Append writes one ledger entry as a CSV row.
func (l *CSVLog) Append(entry model.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	record := []string{
		entry.ObservedAt.UTC().Format(time.RFC3339),
		entry.Symbol,
		strconv.FormatFloat(entry.Price, 'f', -1, 64),
		strconv.FormatFloat(entry.ChangePct, 'f', -1, 64),
		string(entry.Kind),
	}
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("append csv row: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

// Path returns the flat log location.
func (l *CSVLog) Path() string {
	return l.path
}
