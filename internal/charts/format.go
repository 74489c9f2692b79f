package charts

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// FormatMarketCap renders a market cap as $1.23T, $4.56B, $7.89M or $12,345
func FormatMarketCap(value float64) string {
	abs := math.Abs(value)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("$%.2fT", value/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("$%.2fB", value/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.2fM", value/1e6)
	default:
		return "$" + humanize.Comma(int64(math.RoundToEven(value)))
	}
}

// FormatChange renders a percent change with an explicit sign, e.g. +1.23%
func FormatChange(pct float64) string {
	return fmt.Sprintf("%+.2f%%", pct)
}

// FontSize scales a tile label with its area in layout units, clamped to
// [min, max]
func FontSize(area, scale, min, max float64) float64 {
	return math.Max(math.Min(area*scale, max), min)
}
