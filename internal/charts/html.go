package charts

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

//go:embed templates/heatmap.html.tmpl
var templateFS embed.FS

var heatmapTemplate = template.Must(
	template.New("heatmap.html.tmpl").Funcs(template.FuncMap{
		"num":     func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
		"add":     func(a, b float64) float64 { return a + b },
		"join":    strings.Join,
		"centerX": func(b Box) float64 { x, _ := b.Center(); return x },
		"centerY": func(b Box) float64 { _, y := b.Center(); return y },
	}).ParseFS(templateFS, "templates/heatmap.html.tmpl"),
)

type htmlView struct {
	*Figure
	BackgroundCSS template.CSS
	FontStack     string
	ShadowColor   string
	TitleX        float64
	TitleY        float64
	SubtitleY     float64
}

// RenderHTML writes fig as a standalone HTML page with an inline SVG
func RenderHTML(w io.Writer, fig *Figure) error {
	view := htmlView{
		Figure:        fig,
		BackgroundCSS: template.CSS(fig.Background.CSS()),
		FontStack:     fig.FontFamily + ", Arial, sans-serif",
		ShadowColor:   colorShadow.CSS(),
		TitleX:        float64(fig.Width) / 2,
		TitleY:        fig.Plot.Y*0.5 + fig.TitleFontSize*0.35,
	}
	view.SubtitleY = view.TitleY + 18
	if fig.Subtitle != "" {
		view.TitleY -= 8
		view.SubtitleY -= 8
	}
	if err := heatmapTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("failed to render heatmap HTML: %w", err)
	}
	return nil
}

// WriteHTMLFile renders fig to path, creating parent directories
func WriteHTMLFile(path string, fig *Figure) error {
	return writeFile(path, func(w io.Writer) error { return RenderHTML(w, fig) })
}

func writeFile(path string, render func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
