// Package store reads and writes the CSV snapshot passed between the fetch
// and render steps.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// Column names of the snapshot file, in write order
const (
	ColTicker        = "ticker"
	ColMarketCap     = "market_cap"
	ColPercentChange = "percent_change"
	ColFullName      = "full_name"
	ColAsOf          = "as_of"
)

var header = []string{ColTicker, ColMarketCap, ColPercentChange, ColFullName, ColAsOf}

// Record is one row of the snapshot
type Record struct {
	Ticker        string
	MarketCap     float64
	PercentChange float64
	FullName      string
	AsOf          time.Time // Timestamp of the latest close, zero if unknown
}

// LatestAsOf returns the most recent AsOf across records, or the zero time
// when none carries one
func LatestAsOf(records []Record) time.Time {
	var latest time.Time
	for _, r := range records {
		if r.AsOf.After(latest) {
			latest = r.AsOf
		}
	}
	return latest
}

func formatAsOf(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// DataWriter writes snapshots
type DataWriter struct {
	debugPrint func(string, string)
}

// NewDataWriter creates a new data writer
func NewDataWriter(debugPrint func(string, string)) *DataWriter {
	if debugPrint == nil {
		debugPrint = func(string, string) {}
	}
	return &DataWriter{debugPrint: debugPrint}
}

// WriteSnapshot replaces the file at path with records. The file is written
// to a temp file in the same directory and renamed, so readers never see a
// partial snapshot.
func (dw *DataWriter) WriteSnapshot(path string, records []Record) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Ticker,
			strconv.FormatFloat(r.MarketCap, 'f', -1, 64),
			strconv.FormatFloat(r.PercentChange, 'f', 2, 64),
			r.FullName,
			formatAsOf(r.AsOf),
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write row for %s: %w", r.Ticker, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}

	info, statErr := tmp.Stat()
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	size := "?"
	if statErr == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	dw.debugPrint(fmt.Sprintf("Snapshot written: %s (%d rows, %s)", path, len(records), size), "writer")
	return nil
}
