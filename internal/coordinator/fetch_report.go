package coordinator

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// TickerIssue is a ticker that did not make it into the snapshot
type TickerIssue struct {
	Ticker string
	Reason string
}

// FetchReport tracks the outcome of one collection run
type FetchReport struct {
	mu         sync.Mutex
	Requested  int
	Succeeded  []string
	Failed     []TickerIssue
	Skipped    []TickerIssue
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewFetchReport starts a report for requested tickers
func NewFetchReport(requested int) *FetchReport {
	return &FetchReport{
		Requested: requested,
		StartedAt: time.Now(),
	}
}

// RecordSuccess records a ticker that produced a row
func (r *FetchReport) RecordSuccess(ticker string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Succeeded = append(r.Succeeded, ticker)
}

// RecordFailure records a ticker whose requests failed
func (r *FetchReport) RecordFailure(ticker string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed = append(r.Failed, TickerIssue{Ticker: ticker, Reason: err.Error()})
}

// RecordSkip records a ticker with data that cannot be charted
func (r *FetchReport) RecordSkip(ticker, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped = append(r.Skipped, TickerIssue{Ticker: ticker, Reason: reason})
}

// Finish stamps the end time and puts every list back into input order
func (r *FetchReport) Finish(order []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := make(map[string]int, len(order))
	for i, t := range order {
		if _, seen := pos[t]; !seen {
			pos[t] = i
		}
	}
	slices.SortFunc(r.Succeeded, func(a, b string) int { return pos[a] - pos[b] })
	byTicker := func(a, b TickerIssue) int { return pos[a.Ticker] - pos[b.Ticker] }
	slices.SortFunc(r.Failed, byTicker)
	slices.SortFunc(r.Skipped, byTicker)
	r.FinishedAt = time.Now()
}

// Duration returns how long the run took, or has taken so far
func (r *FetchReport) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary returns a one-line description of the run
func (r *FetchReport) Summary() string {
	d := r.Duration().Round(time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	s := fmt.Sprintf("Fetched %d/%d tickers in %s (%d failed, %d skipped)",
		len(r.Succeeded), r.Requested, d, len(r.Failed), len(r.Skipped))
	if len(r.Failed) > 0 {
		names := make([]string, len(r.Failed))
		for i, f := range r.Failed {
			names[i] = f.Ticker
		}
		s += ": " + strings.Join(names, ", ")
	}
	return s
}

// GetStatus returns the report as a flat map for structured logging
func (r *FetchReport) GetStatus() map[string]interface{} {
	d := r.Duration()

	r.mu.Lock()
	defer r.mu.Unlock()
	return map[string]interface{}{
		"requested":   r.Requested,
		"succeeded":   len(r.Succeeded),
		"failed":      len(r.Failed),
		"skipped":     len(r.Skipped),
		"duration_ms": d.Milliseconds(),
	}
}
