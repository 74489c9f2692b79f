package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// DataLoader reads snapshots
type DataLoader struct {
	debugPrint func(string, string)
}

// NewDataLoader creates a new data loader
func NewDataLoader(debugPrint func(string, string)) *DataLoader {
	if debugPrint == nil {
		debugPrint = func(string, string) {}
	}
	return &DataLoader{debugPrint: debugPrint}
}

// LoadSnapshot reads the snapshot at path.
// Columns are located by header name. full_name is optional and defaults to
// the ticker; as_of is optional. Rows with a blank market cap or percent change are skipped.
func (dl *DataLoader) LoadSnapshot(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	records, err := dl.ReadSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dl.debugPrint(fmt.Sprintf("Snapshot loaded: %s (%d rows)", path, len(records)), "loader")
	return records, nil
}

// ReadSnapshot parses snapshot CSV from r
func (dl *DataLoader) ReadSnapshot(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("snapshot is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(head))
	for i, name := range head {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range []string{ColTicker, ColMarketCap, ColPercentChange} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	nameCol, hasName := cols[ColFullName]
	asOfCol, hasAsOf := cols[ColAsOf]

	field := func(row []string, idx int) string {
		if idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line, _ := cr.FieldPos(0)

		ticker := field(row, cols[ColTicker])
		capStr := field(row, cols[ColMarketCap])
		pctStr := field(row, cols[ColPercentChange])
		if ticker == "" || capStr == "" || pctStr == "" {
			dl.debugPrint(fmt.Sprintf("Skipping incomplete row at line %d", line), "loader")
			continue
		}

		marketCap, err := parseFinite(capStr)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid market_cap %q", line, capStr)
		}
		pct, err := parseFinite(pctStr)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid percent_change %q", line, pctStr)
		}

		rec := Record{Ticker: ticker, MarketCap: marketCap, PercentChange: pct, FullName: ticker}
		if hasName {
			if name := field(row, nameCol); name != "" {
				rec.FullName = name
			}
		}
		if hasAsOf {
			if v := field(row, asOfCol); v != "" {
				asOf, err := time.Parse(time.RFC3339, v)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid as_of %q", line, v)
				}
				rec.AsOf = asOf
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}

// Tickers returns the ticker column of records in order
func Tickers(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Ticker
	}
	return out
}
