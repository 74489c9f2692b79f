// Package charts turns a snapshot into a treemap heatmap figure and renders
// it as standalone HTML or PNG.
package charts

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RGBA is a colour with 8-bit channels and a 0..1 alpha, as CSS writes it
type RGBA struct {
	R, G, B uint8
	A       float64
}

var (
	colorWhite   = RGBA{255, 255, 255, 1}
	colorNeutral = RGBA{128, 128, 128, 0.8}
	colorShadow  = RGBA{0, 0, 0, 0.5}
)

// CSS formats the colour as rgba(r,g,b,a)
func (c RGBA) CSS() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, strconv.FormatFloat(c.A, 'f', -1, 64))
}

// Drawing converts the colour for the PNG renderer
func (c RGBA) Drawing() drawing.Color {
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(c.A * 255))}
}

// ParseHexColor parses #rrggbb (or rrggbb) into an opaque colour
func ParseHexColor(hex string) (RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) != 6 {
		return RGBA{}, fmt.Errorf("invalid hex colour %q", hex)
	}
	if _, err := strconv.ParseUint(h, 16, 32); err != nil {
		return RGBA{}, fmt.Errorf("invalid hex colour %q", hex)
	}
	c := drawing.ColorFromHex(h)
	return RGBA{R: c.R, G: c.G, B: c.B, A: 1}, nil
}

// GradientColor maps a percent change to a tile colour. Gains are green and
// losses red; the channel runs from 100 to 255 as |change| approaches clamp,
// with exponent < 1 spreading out small moves. Zero is grey.
func GradientColor(change, clamp, exponent float64) RGBA {
	if change == 0 || math.IsNaN(change) {
		return colorNeutral
	}
	norm := math.Min(math.Abs(change), clamp) / clamp
	level := math.RoundToEven(100 + 155*math.Pow(norm, exponent))
	intensity := uint8(math.Min(math.Max(level, 100), 255))
	if change > 0 {
		return RGBA{0, intensity, 0, 0.9}
	}
	return RGBA{intensity, 0, 0, 0.9}
}

// legendSteps returns the seven legend values from -clamp to +clamp
func legendSteps(clamp float64) []float64 {
	steps := make([]float64, 7)
	for i := range steps {
		steps[i] = clamp * float64(i-3) / 3
	}
	return steps
}

func legendLabel(v float64) string {
	if v == 0 {
		return "0%"
	}
	label := strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
	if v > 0 {
		label = "+" + label
	}
	return label + "%"
}
