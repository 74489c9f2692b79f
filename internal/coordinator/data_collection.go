package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"nasdaq-heatmap/internal/api"
	"nasdaq-heatmap/internal/config"
	"nasdaq-heatmap/internal/store"
)

// MarketSource is the subset of the market-data client the collector uses
type MarketSource interface {
	FetchQuote(ctx context.Context, ticker string) (*api.Quote, error)
	FetchChart(ctx context.Context, ticker string) (*api.Chart, error)
}

// errSkipped marks a ticker whose data came back but cannot be charted
var errSkipped = errors.New("skipped")

type skipError struct{ reason string }

func (e *skipError) Error() string { return e.reason }
func (e *skipError) Unwrap() error { return errSkipped }

// Collector runs one fetch pass over a ticker list
type Collector struct {
	source      MarketSource
	workers     int
	progressOut io.Writer // nil disables the progress bar
	debugPrint  func(string, string)
}

// NewCollector creates a collector fetching with up to workers tickers in flight
func NewCollector(source MarketSource, workers int, debugPrint func(string, string)) *Collector {
	if workers < 1 {
		workers = 1
	}
	if workers > config.MaxFetchWorkers {
		workers = config.MaxFetchWorkers
	}
	if debugPrint == nil {
		debugPrint = func(string, string) {}
	}
	return &Collector{
		source:     source,
		workers:    workers,
		debugPrint: debugPrint,
	}
}

// SetProgressOutput enables a progress bar written to w
func (c *Collector) SetProgressOutput(w io.Writer) {
	c.progressOut = w
}

// Collect fetches every ticker and returns the chartable rows in input order.
// A failing ticker is recorded in the report and skipped. The only error
// returned is the context's, in which case no rows are returned.
func (c *Collector) Collect(ctx context.Context, tickers []string) (*FetchReport, []store.Record, error) {
	report := NewFetchReport(len(tickers))
	results := make([]*store.Record, len(tickers))

	var bar *progressbar.ProgressBar
	if c.progressOut != nil && len(tickers) > 0 {
		bar = progressbar.NewOptions(len(tickers),
			progressbar.OptionSetWriter(c.progressOut),
			progressbar.OptionSetDescription("Fetching"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	c.debugPrint(fmt.Sprintf("Collecting %d tickers with %d workers", len(tickers), c.workers), "fetch")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, ticker := range tickers {
		if ctx.Err() != nil {
			break
		}
		i, ticker := i, ticker
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			rec, err := c.collectTicker(gctx, ticker)
			switch {
			case err == nil:
				results[i] = rec
				report.RecordSuccess(ticker)
			case errors.Is(err, errSkipped):
				c.debugPrint(fmt.Sprintf("Skipping %s: %v", ticker, err), "fetch")
				report.RecordSkip(ticker, err.Error())
			case gctx.Err() != nil:
				// cancelled mid-request, not a ticker failure
			default:
				c.debugPrint(fmt.Sprintf("Error fetching data for %s: %v", ticker, err), "error")
				report.RecordFailure(ticker, err)
			}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if bar != nil {
		_ = bar.Finish()
	}
	report.Finish(tickers)

	if err := ctx.Err(); err != nil {
		return report, nil, fmt.Errorf("fetch cancelled: %w", err)
	}

	records := lo.FilterMap(results, func(r *store.Record, _ int) (store.Record, bool) {
		if r == nil {
			return store.Record{}, false
		}
		return *r, true
	})
	c.debugPrint(report.Summary(), "fetch")
	return report, records, nil
}

func (c *Collector) collectTicker(ctx context.Context, ticker string) (*store.Record, error) {
	quote, err := c.source.FetchQuote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	chart, err := c.source.FetchChart(ctx, ticker)
	if err != nil {
		return nil, err
	}

	if quote.MarketCap <= 0 {
		return nil, &skipError{"no market cap"}
	}
	pct, err := PercentChange(chart.Closes)
	if err != nil {
		return nil, err
	}

	if quote.Currency != "" && !strings.EqualFold(quote.Currency, "USD") {
		c.debugPrint(fmt.Sprintf("%s: market cap quoted in %s", ticker, quote.Currency), "fetch")
	}
	if quote.ChangePercent != 0 && math.Abs(quote.ChangePercent-pct) > changeDriftWarn {
		c.debugPrint(fmt.Sprintf("%s: closes give %+.2f%%, provider reports %+.2f%%", ticker, pct, quote.ChangePercent), "debug")
	}

	rec := &store.Record{
		Ticker:        ticker,
		MarketCap:     quote.MarketCap,
		PercentChange: pct,
		FullName:      lo.CoalesceOrEmpty(quote.LongName, quote.ShortName, chart.Name, ticker),
	}
	if n := len(chart.Timestamps); n > 0 && n == len(chart.Closes) {
		rec.AsOf = time.Unix(chart.Timestamps[n-1], 0).UTC()
	}
	return rec, nil
}

// Differences above this between computed and provider change are logged
const changeDriftWarn = 0.5

// PercentChange returns the change between the last two closes in percent,
// rounded to two decimals
func PercentChange(closes []float64) (float64, error) {
	if len(closes) < 2 {
		return 0, &skipError{fmt.Sprintf("need 2 closes, have %d", len(closes))}
	}
	prev := decimal.NewFromFloat(closes[len(closes)-2])
	last := decimal.NewFromFloat(closes[len(closes)-1])
	if prev.IsZero() {
		return 0, &skipError{"previous close is zero"}
	}

	pct := last.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(config.PercentChangeDecimal)
	return pct.InexactFloat64(), nil
}
