// Package reconcile compares the configured ticker list with the tickers
// present in a snapshot.
package reconcile

import (
	"io"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
)

// Result holds both sides of the comparison, each sorted and deduplicated
type Result struct {
	Unexpected []string // Expected but absent from the snapshot
	Missing    []string // In the snapshot but not expected
}

// Diff compares expected tickers against the snapshot's tickers
func Diff(expected, actual []string) Result {
	exp := lo.Uniq(expected)
	act := lo.Uniq(actual)
	unexpected, missing := lo.Difference(exp, act)
	slices.Sort(unexpected)
	slices.Sort(missing)
	return Result{Unexpected: unexpected, Missing: missing}
}

// Clean reports whether both lists match
func (r Result) Clean() bool {
	return len(r.Unexpected) == 0 && len(r.Missing) == 0
}

// Render writes the discrepancies as a two-column table, pairing rows until
// the longer side runs out
func (r Result) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("NASDAQ-100 Ticker Discrepancies")
	t.AppendHeader(table.Row{"Unexpected Items (Missing in CSV)", "Missing Items (Extra in CSV)"})

	rows := max(len(r.Unexpected), len(r.Missing))
	for i := 0; i < rows; i++ {
		t.AppendRow(table.Row{at(r.Unexpected, i), at(r.Missing, i)})
	}
	t.AppendFooter(table.Row{len(r.Unexpected), len(r.Missing)})
	t.SetStyle(table.StyleLight)
	t.Render()
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}
