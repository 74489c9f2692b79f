package charts

import (
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RenderPNG rasterises fig through go-chart's PNG renderer. The bundled
// font stands in for the configured font family.
func RenderPNG(w io.Writer, fig *Figure) error {
	r, err := chart.PNG(fig.Width, fig.Height)
	if err != nil {
		return fmt.Errorf("failed to create PNG renderer: %w", err)
	}
	// 72 DPI keeps font sizes in pixels, matching the HTML output
	r.SetDPI(72)

	font, err := chart.GetDefaultFont()
	if err != nil {
		return fmt.Errorf("failed to load font: %w", err)
	}
	r.SetFont(font)

	fillBox(r, Box{W: float64(fig.Width), H: float64(fig.Height)}, fig.Background.Drawing(), nil)

	if fig.Title != "" {
		titleY := fig.Plot.Y * 0.5
		if fig.Subtitle != "" {
			titleY -= 8
		}
		drawCentered(r, []string{fig.Title}, float64(fig.Width)/2, titleY, fig.TitleFontSize, colorWhite.Drawing())
		if fig.Subtitle != "" {
			drawCentered(r, []string{fig.Subtitle}, float64(fig.Width)/2, titleY+20, 13, RGBA{255, 255, 255, 0.7}.Drawing())
		}
	}

	border := colorWhite.Drawing()
	for _, t := range fig.Tiles {
		fillBox(r, t.Box, t.Fill.Drawing(), &border)

		cx, cy := t.Center()
		if fig.ShadowText {
			drawCentered(r, t.Label, cx+fig.ShadowDX, cy+fig.ShadowDY, t.FontSize, colorShadow.Drawing())
		}
		drawCentered(r, t.Label, cx, cy, t.FontSize, colorWhite.Drawing())
	}

	for _, lb := range fig.Legend {
		fillBox(r, lb.Box, lb.Fill.Drawing(), nil)
		cx, cy := lb.Center()
		drawCentered(r, []string{lb.Label}, cx, cy, fig.LegendFontSize, colorWhite.Drawing())
	}

	if wm := fig.Watermark; wm != nil {
		r.SetFontSize(wm.FontSize)
		r.SetFontColor(RGBA{255, 255, 255, wm.Opacity}.Drawing())
		x := wm.X
		if wm.AlignEnd {
			x -= float64(r.MeasureText(wm.Text).Width())
		}
		r.Text(wm.Text, px(x), px(wm.Y))
	}

	if err := r.Save(w); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// WritePNGFile renders fig to path, creating parent directories
func WritePNGFile(path string, fig *Figure) error {
	return writeFile(path, func(w io.Writer) error { return RenderPNG(w, fig) })
}

func fillBox(r chart.Renderer, b Box, fill drawing.Color, stroke *drawing.Color) {
	x0, y0 := px(b.X), px(b.Y)
	x1, y1 := px(b.X+b.W), px(b.Y+b.H)

	r.SetFillColor(fill)
	r.MoveTo(x0, y0)
	r.LineTo(x1, y0)
	r.LineTo(x1, y1)
	r.LineTo(x0, y1)
	r.Close()
	if stroke == nil {
		r.Fill()
		return
	}
	r.SetStrokeColor(*stroke)
	r.SetStrokeWidth(1)
	r.FillStroke()
}

// drawCentered draws lines stacked and centred on (cx, cy)
func drawCentered(r chart.Renderer, lines []string, cx, cy, size float64, color drawing.Color) {
	r.SetFontSize(size)
	r.SetFontColor(color)

	lineHeight := size * 1.2
	top := cy - lineHeight*float64(len(lines))/2
	for i, line := range lines {
		box := r.MeasureText(line)
		x := cx - float64(box.Width())/2
		// baseline sits near the bottom of each line slot
		baseline := top + lineHeight*float64(i) + (lineHeight+float64(box.Height()))/2
		r.Text(line, px(x), px(baseline))
	}
}

func px(v float64) int {
	return int(math.Round(v))
}
