package coordinator

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nasdaq-heatmap/internal/api"
	"nasdaq-heatmap/internal/store"
)

type fakeSource struct {
	mu     sync.Mutex
	quotes map[string]*api.Quote
	charts map[string]*api.Chart
	fail   map[string]error
	calls  map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		quotes: map[string]*api.Quote{},
		charts: map[string]*api.Chart{},
		fail:   map[string]error{},
		calls:  map[string]int{},
	}
}

func (f *fakeSource) add(ticker string, marketCap float64, name string, closes ...float64) {
	f.quotes[ticker] = &api.Quote{Symbol: ticker, LongName: name, MarketCap: marketCap}
	f.charts[ticker] = &api.Chart{Symbol: ticker, Closes: closes}
}

func (f *fakeSource) FetchQuote(ctx context.Context, ticker string) (*api.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[ticker]++
	if err := f.fail[ticker]; err != nil {
		return nil, err
	}
	q, ok := f.quotes[ticker]
	if !ok {
		return nil, &api.NotFoundError{Endpoint: "quote", Ticker: ticker}
	}
	return q, nil
}

func (f *fakeSource) FetchChart(ctx context.Context, ticker string) (*api.Chart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.charts[ticker]
	if !ok {
		return nil, &api.NotFoundError{Endpoint: "chart", Ticker: ticker}
	}
	return c, nil
}

func TestCollect_KeepsInputOrderAndSkipsFailures(t *testing.T) {
	src := newFakeSource()
	src.add("AAPL", 3.3e12, "Apple Inc.", 200, 202.5)
	src.add("MSFT", 2.9e12, "Microsoft Corporation", 400, 390)
	src.add("NVDA", 2.7e12, "NVIDIA Corporation", 100, 101.234)
	src.fail["TSLA"] = errors.New("connection reset")

	c := NewCollector(src, 4, nil)
	report, records, err := c.Collect(context.Background(), []string{"NVDA", "TSLA", "AAPL", "MSFT", "ZZZZ"})
	require.NoError(t, err)

	assert.Equal(t, []string{"NVDA", "AAPL", "MSFT"}, store.Tickers(records))
	assert.Equal(t, 1.23, records[0].PercentChange)
	assert.Equal(t, 1.25, records[1].PercentChange)
	assert.Equal(t, -2.5, records[2].PercentChange)
	assert.Equal(t, "Apple Inc.", records[1].FullName)

	assert.Equal(t, 5, report.Requested)
	assert.Equal(t, []string{"NVDA", "AAPL", "MSFT"}, report.Succeeded)
	require.Len(t, report.Failed, 2)
	assert.Equal(t, "TSLA", report.Failed[0].Ticker)
	assert.Contains(t, report.Failed[0].Reason, "connection reset")
	assert.Equal(t, "ZZZZ", report.Failed[1].Ticker)
	assert.Contains(t, report.Summary(), "Fetched 3/5 tickers")
}

func TestCollect_SkipsUnchartableData(t *testing.T) {
	src := newFakeSource()
	src.add("NEW", 1e9, "Fresh Listing", 10)
	src.add("NOCAP", 0, "No Cap Inc.", 10, 11)
	src.add("ZERO", 1e9, "Zero Prev", 0, 11)
	src.add("OK", 1e9, "", 10, 11)
	src.charts["OK"].Name = "Chart Name"

	c := NewCollector(src, 2, nil)
	report, records, err := c.Collect(context.Background(), []string{"NEW", "NOCAP", "ZERO", "OK"})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "Chart Name", records[0].FullName)
	assert.Empty(t, report.Failed)
	require.Len(t, report.Skipped, 3)
	assert.Equal(t, "NEW", report.Skipped[0].Ticker)
	assert.Equal(t, "no market cap", report.Skipped[1].Reason)
	assert.Equal(t, "previous close is zero", report.Skipped[2].Reason)
}

func TestCollect_FullNameFallsBackToTicker(t *testing.T) {
	src := newFakeSource()
	src.add("ABC", 1e9, "", 10, 10)

	_, records, err := NewCollector(src, 1, nil).Collect(context.Background(), []string{"ABC"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ABC", records[0].FullName)
	assert.Zero(t, records[0].PercentChange)
}

func TestCollect_AsOfAndProviderChecks(t *testing.T) {
	src := newFakeSource()
	src.add("ASML", 3e11, "ASML Holding", 700, 714)
	src.charts["ASML"].Timestamps = []int64{1741564800, 1741651200}
	src.quotes["ASML"].Currency = "EUR"
	src.quotes["ASML"].ChangePercent = 5
	src.add("OLD", 1e9, "No Timestamps", 10, 11)

	var mu sync.Mutex
	var logged []string
	debugPrint := func(msg, _ string) {
		mu.Lock()
		defer mu.Unlock()
		logged = append(logged, msg)
	}

	_, records, err := NewCollector(src, 1, debugPrint).Collect(context.Background(), []string{"ASML", "OLD"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), records[0].AsOf)
	assert.True(t, records[1].AsOf.IsZero())

	all := strings.Join(logged, "\n")
	assert.Contains(t, all, "ASML: market cap quoted in EUR")
	assert.Contains(t, all, "ASML: closes give +2.00%, provider reports +5.00%")
}

func TestCollect_CancelledContext(t *testing.T) {
	src := newFakeSource()
	src.add("AAPL", 3.3e12, "Apple Inc.", 200, 202)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, records, err := NewCollector(src, 2, nil).Collect(ctx, []string{"AAPL"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, records)
	assert.Empty(t, report.Succeeded)
	assert.Zero(t, src.calls["AAPL"])
}

func TestCollect_WritesProgress(t *testing.T) {
	src := newFakeSource()
	src.add("AAPL", 3.3e12, "Apple Inc.", 200, 202)

	var buf bytes.Buffer
	c := NewCollector(src, 1, nil)
	c.SetProgressOutput(&buf)
	_, records, err := c.Collect(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.NotZero(t, buf.Len())
}

func TestPercentChange(t *testing.T) {
	cases := []struct {
		closes []float64
		want   float64
	}{
		{[]float64{100, 101.234}, 1.23},
		{[]float64{100, 98.765}, -1.24},
		{[]float64{50, 60, 45}, -25},
		{[]float64{3, 3}, 0},
	}
	for _, tc := range cases {
		got, err := PercentChange(tc.closes)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := PercentChange([]float64{1})
	assert.ErrorIs(t, err, errSkipped)
}

func TestFetchReport_GetStatus(t *testing.T) {
	r := NewFetchReport(3)
	r.RecordSuccess("B")
	r.RecordSuccess("A")
	r.RecordSkip("C", "no market cap")
	r.Finish([]string{"A", "B", "C"})

	assert.Equal(t, []string{"A", "B"}, r.Succeeded)
	status := r.GetStatus()
	assert.Equal(t, 3, status["requested"])
	assert.Equal(t, 2, status["succeeded"])
	assert.Equal(t, 1, status["skipped"])
	assert.Equal(t, "Fetched 2/3 tickers", r.Summary()[:len("Fetched 2/3 tickers")])
}
