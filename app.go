package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/browser"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"nasdaq-heatmap/internal/api"
	"nasdaq-heatmap/internal/charts"
	"nasdaq-heatmap/internal/config"
	"nasdaq-heatmap/internal/coordinator"
	"nasdaq-heatmap/internal/reconcile"
	"nasdaq-heatmap/internal/scheduler"
	"nasdaq-heatmap/internal/store"
	"nasdaq-heatmap/internal/utils"
)

// App wires the fetch and render pipeline together for one invocation
type App struct {
	settingsManager *config.SettingsManager
	settings        *config.Settings
	limiter         *scheduler.RateLimitTracker
	apiClient       *api.Client
	collector       *coordinator.Collector
	dataWriter      *store.DataWriter
	dataLoader      *store.DataLoader
	out             io.Writer
	openFile        func(string) error
	now             func() time.Time
	debugPrint      func(string, string)
}

// NewApp creates a new App instance from loaded settings
func NewApp(settingsManager *config.SettingsManager, settings *config.Settings) *App {
	debugPrint := func(msg, category string) {
		switch category {
		case "error":
			utils.Errorf("[%s] %s", category, msg)
		case "system", "fetch", "render":
			utils.Logf("[%s] %s", category, msg)
		default:
			if settings.EnableDebug {
				utils.Debugf("[%s] %s", category, msg)
			}
		}
	}

	limiter := scheduler.NewRateLimitTracker(settings.RequestsPerSecond)
	apiClient := api.NewClient(settings, limiter, debugPrint)

	collector := coordinator.NewCollector(apiClient, settings.Workers, debugPrint)
	if settings.ShowProgress {
		collector.SetProgressOutput(os.Stderr)
	}

	nowSystem := time.Now()
	debugPrint(fmt.Sprintf("App created at - System: %s, Market (ET): %s, market date %s, market open: %t",
		nowSystem.Format("2006-01-02 15:04:05 MST"),
		utils.NowMarketTime().Format("2006-01-02 15:04:05 MST"),
		utils.GetMarketDateForDate(nowSystem).Format("2006-01-02"),
		utils.IsMarketOpenAt(nowSystem)), "system")
	if settingsManager != nil {
		debugPrint(fmt.Sprintf("Config: %s", settingsManager.GetConfigPath()), "config")
	}

	return &App{
		settingsManager: settingsManager,
		settings:        settings,
		limiter:         limiter,
		apiClient:       apiClient,
		collector:       collector,
		dataWriter:      store.NewDataWriter(debugPrint),
		dataLoader:      store.NewDataLoader(debugPrint),
		out:             os.Stdout,
		openFile:        browser.OpenFile,
		now:             time.Now,
		debugPrint:      debugPrint,
	}
}

// Run fetches fresh data, renders the heatmap and opens it when enabled
func (a *App) Run(ctx context.Context) error {
	if _, err := a.Fetch(ctx); err != nil {
		return err
	}
	path, err := a.Render()
	if err != nil {
		return err
	}
	if a.settings.OpenBrowser {
		a.OpenOutput(path)
	}
	return nil
}

// Fetch collects every configured ticker and writes the CSV snapshot.
// It fails only when the run is cancelled or no ticker succeeded.
func (a *App) Fetch(ctx context.Context) (*coordinator.FetchReport, error) {
	if _, err := a.apiClient.EnsureCrumb(ctx); err != nil {
		a.debugPrint(fmt.Sprintf("No crumb, quotes may be rejected: %v", err), "error")
	}

	report, records, err := a.collector.Collect(ctx, a.settings.Tickers)
	if err != nil {
		return report, err
	}
	requests, hits, _ := a.limiter.Stats()
	a.debugPrint(fmt.Sprintf("%s, %d requests, %d rate limited", report.Summary(), requests, hits), "fetch")
	utils.GetLogger().Zap().Info("fetch report", statusFields(report.GetStatus())...)

	if len(records) == 0 {
		return report, errors.New("no ticker returned usable data, snapshot left unchanged")
	}
	if err := a.dataWriter.WriteSnapshot(a.settings.DataFile, records); err != nil {
		return report, err
	}
	a.debugPrint(fmt.Sprintf("Wrote %d rows to %s", len(records), a.settings.DataFile), "fetch")
	return report, nil
}

// Render builds the heatmap from the CSV snapshot and writes the HTML (and
// PNG when configured). It returns the HTML path.
func (a *App) Render() (string, error) {
	records, err := a.dataLoader.LoadSnapshot(a.settings.DataFile)
	if err != nil {
		return "", err
	}

	asOf := a.snapshotTime(records)
	fig, err := charts.BuildHeatmap(records, a.settings.Style, asOf)
	if err != nil {
		return "", fmt.Errorf("failed to build heatmap: %w", err)
	}
	if fig.Subtitle != "" && isIntraday(asOf, a.now()) {
		fig.Subtitle += " (intraday)"
	}

	if err := charts.WriteHTMLFile(a.settings.OutputHTML, fig); err != nil {
		return "", err
	}
	a.debugPrint(fmt.Sprintf("Heatmap with %d tiles written to %s", len(fig.Tiles), a.settings.OutputHTML), "render")

	if a.settings.OutputPNG != "" {
		if err := charts.WritePNGFile(a.settings.OutputPNG, fig); err != nil {
			return "", err
		}
		a.debugPrint(fmt.Sprintf("PNG written to %s", a.settings.OutputPNG), "render")
	}
	return a.settings.OutputHTML, nil
}

// snapshotTime returns when the snapshot's data was current: the latest close
// timestamp it carries, else the file's modification time
func (a *App) snapshotTime(records []store.Record) time.Time {
	if asOf := store.LatestAsOf(records); !asOf.IsZero() {
		return asOf
	}
	info, err := os.Stat(a.settings.DataFile)
	if err != nil {
		return a.now()
	}
	a.debugPrint(fmt.Sprintf("Snapshot has no as_of column, dating it by mtime %s", info.ModTime().Format(time.RFC3339)), "render")
	return info.ModTime()
}

// isIntraday reports whether a snapshot taken at asOf shows a session that is
// still trading at now
func isIntraday(asOf, now time.Time) bool {
	if !utils.IsMarketOpenAt(now) {
		return false
	}
	return utils.GetMarketDateForDate(asOf).Format(time.DateOnly) == utils.GetMarketDateForDate(now).Format(time.DateOnly)
}

func statusFields(status map[string]interface{}) []zap.Field {
	keys := lo.Keys(status)
	slices.Sort(keys)
	return lo.Map(keys, func(k string, _ int) zap.Field { return zap.Any(k, status[k]) })
}

// OpenOutput opens the rendered file in the default browser. Failure is
// logged, the file is still on disk.
func (a *App) OpenOutput(path string) {
	if err := a.openFile(path); err != nil {
		a.debugPrint(fmt.Sprintf("Could not open %s: %v", path, err), "error")
	}
}

// Check compares the configured tickers with the snapshot and prints the
// differences. A snapshot that does not match the list is an error.
func (a *App) Check() (reconcile.Result, error) {
	records, err := a.dataLoader.LoadSnapshot(a.settings.DataFile)
	if err != nil {
		return reconcile.Result{}, err
	}
	result := reconcile.Diff(a.settings.Tickers, store.Tickers(records))
	result.Render(a.out)
	if !result.Clean() {
		return result, fmt.Errorf("snapshot differs from ticker list: %d unexpected, %d missing",
			len(result.Unexpected), len(result.Missing))
	}
	return result, nil
}

// Movers prints the n largest gainers and losers from the snapshot
func (a *App) Movers(n int) error {
	if n < 1 {
		return fmt.Errorf("count must be positive, got %d", n)
	}
	records, err := a.dataLoader.LoadSnapshot(a.settings.DataFile)
	if err != nil {
		return err
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(x, y store.Record) int {
		switch {
		case x.PercentChange > y.PercentChange:
			return -1
		case x.PercentChange < y.PercentChange:
			return 1
		}
		return 0
	})

	gainers := lo.Filter(sorted, func(r store.Record, _ int) bool { return r.PercentChange > 0 })
	losers := lo.Reverse(lo.Filter(sorted, func(r store.Record, _ int) bool { return r.PercentChange < 0 }))

	renderMovers(a.out, "Top Gainers", lo.Subset(gainers, 0, uint(n)), text.FgGreen)
	renderMovers(a.out, "Top Losers", lo.Subset(losers, 0, uint(n)), text.FgRed)
	return nil
}

func renderMovers(w io.Writer, title string, records []store.Record, color text.Color) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"#", "Ticker", "Name", "Change", "Market Cap"})
	for i, r := range records {
		t.AppendRow(table.Row{i + 1, r.Ticker, r.FullName, charts.FormatChange(r.PercentChange), charts.FormatMarketCap(r.MarketCap)})
	}
	if len(records) == 0 {
		t.AppendRow(table.Row{"", "-", "none", "", ""})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight, Colors: text.Colors{color}},
		{Number: 5, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}

// Close flushes the log
func (a *App) Close() {
	if err := utils.CloseLogger(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log: %v\n", err)
	}
}
