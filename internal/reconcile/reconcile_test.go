package reconcile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	expected := []string{"AAPL", "MSFT", "NVDA", "ARM", "ARM", "TSLA"}
	actual := []string{"MSFT", "AAPL", "FOO", "NVDA", "BAR"}

	r := Diff(expected, actual)
	assert.Equal(t, []string{"ARM", "TSLA"}, r.Unexpected)
	assert.Equal(t, []string{"BAR", "FOO"}, r.Missing)
	assert.False(t, r.Clean())

	assert.True(t, Diff([]string{"A", "B"}, []string{"B", "A", "A"}).Clean())
}

func TestRender_ZipsLongest(t *testing.T) {
	r := Result{Unexpected: []string{"ARM", "TSLA", "ZS"}, Missing: []string{"FOO"}}

	var buf bytes.Buffer
	r.Render(&buf)
	out := buf.String()

	assert.Contains(t, out, "UNEXPECTED ITEMS (MISSING IN CSV)")
	lines := strings.Split(out, "\n")
	var body []string
	for _, l := range lines {
		if strings.Contains(l, "ARM") || strings.Contains(l, "TSLA") || strings.Contains(l, "ZS") {
			body = append(body, l)
		}
	}
	assert.Len(t, body, 3)
	assert.Contains(t, body[0], "FOO")
	assert.NotContains(t, body[1], "FOO")
}
