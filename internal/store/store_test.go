package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSnapshot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nasdaq100_data.csv")
	records := []Record{
		{Ticker: "AAPL", MarketCap: 3317000000000, PercentChange: 1.23, FullName: "Apple Inc.",
			AsOf: time.Date(2025, 3, 14, 13, 30, 0, 0, time.UTC)},
		{Ticker: "BRK", MarketCap: 987654321, PercentChange: -0.5, FullName: "Comma, Quote \"Co\""},
	}

	require.NoError(t, NewDataWriter(nil).WriteSnapshot(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "ticker,market_cap,percent_change,full_name,as_of", lines[0])
	assert.Equal(t, "AAPL,3317000000000,1.23,Apple Inc.,2025-03-14T13:30:00Z", lines[1])
	assert.Equal(t, `BRK,987654321,-0.50,"Comma, Quote ""Co""",`, lines[2])

	got, err := NewDataLoader(nil).LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)
	assert.Equal(t, records[0].AsOf, LatestAsOf(got))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".snapshot-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestReadSnapshot_HeaderDriven(t *testing.T) {
	in := "percent_change,ticker,market_cap\n" +
		"1.5,AAPL,100\n" +
		"-2,MSFT,\n" +
		",NVDA,300\n" +
		"0,TSLA,50\n"

	got, err := NewDataLoader(nil).ReadSnapshot(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{Ticker: "AAPL", MarketCap: 100, PercentChange: 1.5, FullName: "AAPL"},
		{Ticker: "TSLA", MarketCap: 50, PercentChange: 0, FullName: "TSLA"},
	}, got)
	assert.Equal(t, []string{"AAPL", "TSLA"}, Tickers(got))
}

func TestReadSnapshot_Errors(t *testing.T) {
	loader := NewDataLoader(nil)

	_, err := loader.ReadSnapshot(strings.NewReader(""))
	assert.ErrorContains(t, err, "empty")

	_, err = loader.ReadSnapshot(strings.NewReader("ticker,percent_change\nAAPL,1\n"))
	assert.ErrorContains(t, err, `"market_cap"`)

	_, err = loader.ReadSnapshot(strings.NewReader("ticker,market_cap,percent_change\nAAPL,100,1\nMSFT,lots,2\n"))
	assert.ErrorContains(t, err, "line 3")
	assert.ErrorContains(t, err, "market_cap")

	for _, bad := range []string{"Inf", "-inf", "NaN"} {
		_, err = loader.ReadSnapshot(strings.NewReader("ticker,market_cap,percent_change\nAAPL,100,1\nMSFT,200," + bad + "\n"))
		assert.ErrorContains(t, err, "line 3", bad)
		assert.ErrorContains(t, err, "percent_change", bad)
	}
	_, err = loader.ReadSnapshot(strings.NewReader("ticker,market_cap,percent_change\nAAPL,+Inf,1\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = loader.ReadSnapshot(strings.NewReader("ticker,market_cap,percent_change,as_of\nAAPL,100,1,yesterday\n"))
	assert.ErrorContains(t, err, "line 2: invalid as_of")

	_, err = loader.LoadSnapshot(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLatestAsOf(t *testing.T) {
	assert.True(t, LatestAsOf(nil).IsZero())

	mon := time.Date(2025, 3, 10, 13, 30, 0, 0, time.UTC)
	tue := mon.Add(24 * time.Hour)
	got := LatestAsOf([]Record{{Ticker: "A", AsOf: mon}, {Ticker: "B"}, {Ticker: "C", AsOf: tue}})
	assert.Equal(t, tue, got)
}
