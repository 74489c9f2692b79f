package charts

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"nasdaq-heatmap/internal/config"
	"nasdaq-heatmap/internal/store"
	"nasdaq-heatmap/internal/treemap"
	"nasdaq-heatmap/internal/utils"
)

// ErrNoData is returned when no record has a positive market cap
var ErrNoData = errors.New("no records with a positive market cap")

// Box is an axis-aligned rectangle in pixels, y growing downward
type Box struct {
	X, Y, W, H float64
}

// Center returns the midpoint of the box
func (b Box) Center() (float64, float64) {
	return b.X + b.W/2, b.Y + b.H/2
}

// Tile is one company on the heatmap
type Tile struct {
	Box
	Ticker        string
	FullName      string
	PercentChange float64
	MarketCap     float64
	Fill          RGBA
	FontSize      float64
	Label         []string // ticker, signed change
	Hover         []string
}

// LegendBox is one colour swatch of the legend
type LegendBox struct {
	Box
	Fill  RGBA
	Label string
}

// Watermark is branding text anchored to a plot corner
type Watermark struct {
	Text     string
	X, Y     float64 // Anchor point in pixels
	AlignEnd bool    // Text ends at X instead of starting there
	FontSize float64
	Opacity  float64
}

// Figure is a fully laid-out heatmap, independent of output format
type Figure struct {
	Width, Height  int
	Background     RGBA
	FontFamily     string
	Title          string
	Subtitle       string
	TitleFontSize  float64
	Plot           Box
	Tiles          []Tile
	ShadowText     bool
	ShadowDX       float64 // Shadow offset in pixels
	ShadowDY       float64
	Legend         []LegendBox
	LegendFontSize float64
	Watermark      *Watermark
}

// BuildHeatmap lays out records as a squarified treemap in style's canvas.
// Records are ordered by market cap, largest first; ties keep input order.
// asOf sets the subtitle date when style.ShowDate is on.
func BuildHeatmap(records []store.Record, style config.Style, asOf time.Time) (*Figure, error) {
	bg, err := ParseHexColor(style.Background)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}

	rows := lo.Filter(records, func(r store.Record, _ int) bool { return r.MarketCap > 0 })
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	slices.SortStableFunc(rows, func(a, b store.Record) int {
		switch {
		case a.MarketCap > b.MarketCap:
			return -1
		case a.MarketCap < b.MarketCap:
			return 1
		}
		return 0
	})

	margin := float64(style.Margin)
	fig := &Figure{
		Width:          style.Width,
		Height:         style.Height,
		Background:     bg,
		FontFamily:     style.FontFamily,
		Title:          style.Title,
		TitleFontSize:  config.TitleFontSize,
		ShadowText:     style.ShadowText,
		LegendFontSize: config.LegendFontSize,
		Plot: Box{
			X: margin,
			Y: margin,
			W: float64(style.Width) - 2*margin,
			H: float64(style.Height) - 2*margin,
		},
	}
	if style.ShowDate && !asOf.IsZero() {
		fig.Subtitle = "As of " + utils.MarketDateLabel(asOf)
	}

	scaleX := fig.Plot.W / config.LayoutWidth
	scaleY := fig.Plot.H / config.LayoutHeight
	fig.ShadowDX = config.ShadowOffset * scaleX
	fig.ShadowDY = config.ShadowOffset * scaleY

	caps := lo.Map(rows, func(r store.Record, _ int) float64 { return r.MarketCap })
	sizes := treemap.NormalizeSizes(caps, config.LayoutWidth, config.LayoutHeight)
	rects := treemap.Squarify(sizes, 0, 0, config.LayoutWidth, config.LayoutHeight)

	fig.Tiles = make([]Tile, len(rows))
	for i, r := range rows {
		rect := rects[i]
		change := FormatChange(r.PercentChange)
		fig.Tiles[i] = Tile{
			Box: Box{
				X: fig.Plot.X + rect.X*scaleX,
				Y: fig.Plot.Y + rect.Y*scaleY,
				W: rect.DX * scaleX,
				H: rect.DY * scaleY,
			},
			Ticker:        r.Ticker,
			FullName:      r.FullName,
			PercentChange: r.PercentChange,
			MarketCap:     r.MarketCap,
			Fill:          GradientColor(r.PercentChange, style.GradientClamp, style.GradientExponent),
			FontSize:      FontSize(rect.Area(), style.FontScale, style.FontMin, style.FontMax),
			Label:         []string{r.Ticker, change},
			Hover: []string{
				fmt.Sprintf("%s - %s", r.Ticker, lo.CoalesceOrEmpty(r.FullName, r.Ticker)),
				"Change: " + change,
				"Market Cap: " + FormatMarketCap(r.MarketCap),
			},
		}
	}

	fig.Legend = buildLegend(fig.Plot, style)
	fig.Watermark = buildWatermark(fig.Plot, style)
	return fig, nil
}

// paperToPixel maps plot-relative paper coordinates (0..1, y up) to pixels
func paperToPixel(plot Box, px, py float64) (float64, float64) {
	return plot.X + px*plot.W, plot.Y + (1-py)*plot.H
}

func legendOrigin(position string) (float64, float64, bool) {
	switch position {
	case config.LegendBottomRight, "":
		return 0.68, -0.02, true
	case config.LegendBottomLeft:
		return 0.01, -0.02, true
	case config.LegendTopRight:
		return 0.68, 0.98, true
	}
	return 0, 0, false
}

func buildLegend(plot Box, style config.Style) []LegendBox {
	startX, startY, ok := legendOrigin(style.LegendPosition)
	if !ok {
		return nil
	}

	steps := legendSteps(style.GradientClamp)
	boxes := make([]LegendBox, len(steps))
	for i, v := range steps {
		x0 := startX + float64(i)*config.LegendBoxWidth
		// top-left corner in pixels is the paper (x0, y1) point
		left, top := paperToPixel(plot, x0, startY+config.LegendBoxHeight)
		boxes[i] = LegendBox{
			Box: Box{
				X: left,
				Y: top,
				W: config.LegendBoxWidth * plot.W,
				H: config.LegendBoxHeight * plot.H,
			},
			Fill:  GradientColor(v, style.GradientClamp, style.GradientExponent),
			Label: legendLabel(v),
		}
	}
	return boxes
}

func buildWatermark(plot Box, style config.Style) *Watermark {
	text := strings.TrimSpace(style.Watermark)
	if text == "" {
		return nil
	}
	wm := &Watermark{Text: text, FontSize: config.WatermarkSize, Opacity: 0.7}
	if style.LegendPosition == config.LegendBottomLeft {
		wm.X, wm.Y = paperToPixel(plot, 0.99, -0.01)
		wm.AlignEnd = true
	} else {
		wm.X, wm.Y = paperToPixel(plot, 0.01, -0.01)
	}
	return wm
}
