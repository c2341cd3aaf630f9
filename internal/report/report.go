// Package report writes finished analyses as Markdown and HTML files.
package report

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyike/QuantLens/internal/stats"
	"github.com/dyike/QuantLens/internal/stream"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Report is everything a finished run contributes to its output files.
type Report struct {
	Symbol    string
	Exchange  string
	CreatedAt time.Time
	Stats     stats.VolatilityReport
	Trend     *stats.TrendSnapshot
	ChartURL  string
	// Analysis is the cleaned model answer; nil when the run skipped the model.
	Analysis *stream.Document
}

// Paths are the files written for one report.
type Paths struct {
	Markdown string
	HTML     string
}

type Writer struct {
	dir string
	md  goldmark.Markdown
}

func NewWriter(dir string) *Writer {
	return &Writer{
		dir: dir,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Linkify),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// Write stores r as <dir>/<SYMBOL>/<timestamp>.md and a rendered .html next to it.
func (w *Writer) Write(r Report) (Paths, error) {
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	symbolDir := filepath.Join(w.dir, safeName(r.Symbol))
	if err := os.MkdirAll(symbolDir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("failed to create directory %s: %w", symbolDir, err)
	}

	base := filepath.Join(symbolDir, created.Format("20060102-150405"))
	paths := Paths{Markdown: base + ".md", HTML: base + ".html"}

	source := Markdown(r)
	if err := os.WriteFile(paths.Markdown, []byte(source), 0o644); err != nil {
		return Paths{}, fmt.Errorf("failed to write file %s: %w", paths.Markdown, err)
	}

	page, err := w.HTML(r.Symbol, source)
	if err != nil {
		return Paths{}, err
	}
	if err := os.WriteFile(paths.HTML, page, 0o644); err != nil {
		return Paths{}, fmt.Errorf("failed to write file %s: %w", paths.HTML, err)
	}
	return paths, nil
}

// HTML renders Markdown source into a standalone page.
func (w *Writer) HTML(title, source string) ([]byte, error) {
	var body bytes.Buffer
	if err := w.md.Convert([]byte(source), &body); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s analysis</title>\n</head>\n<body>\n",
		html.EscapeString(title))
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// Markdown renders the report document.
func Markdown(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s analysis\n\n", r.Symbol)
	if r.Exchange != "" {
		fmt.Fprintf(&b, "Exchange: %s\n\n", r.Exchange)
	}
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Generated: %s\n\n", r.CreatedAt.Format(time.RFC3339))
	}
	if r.ChartURL != "" {
		fmt.Fprintf(&b, "Chart: %s\n\n", r.ChartURL)
	}

	fmt.Fprintf(&b, "## Statistics (%d days)\n\n", r.Stats.Days)
	writeStats(&b, r.Stats)

	if r.Trend != nil {
		b.WriteString("## Trend\n\n")
		b.WriteString(r.Trend.String())
		b.WriteString("\n\n")
	}

	if r.Analysis != nil {
		b.WriteString("## Analysis\n\n")
		if r.Analysis.Failed() {
			b.WriteString(r.Analysis.String())
			b.WriteString("\n")
		} else {
			b.WriteString(r.Analysis.Body)
			b.WriteString("\n")
			if len(r.Analysis.References) > 0 {
				b.WriteString("\n## References\n\n")
				for _, ref := range r.Analysis.References {
					fmt.Fprintf(&b, "- [%d] %s\n", ref.Index, ref.URL)
				}
			}
		}
	}
	return b.String()
}

func writeStats(b *strings.Builder, report stats.VolatilityReport) {
	if !report.OK() {
		b.WriteString(report.Error)
		b.WriteString("\n\n")
		return
	}
	m := report.Metrics
	rows := [][2]string{
		{"Observations", fmt.Sprintf("%d", m.Observations)},
		{"Close", price(m.Close)},
		{"Mean", price(m.Mean)},
		{"Median", price(m.Median)},
		{"Q1 / Q3", price(m.Q1) + " / " + price(m.Q3)},
		{"Fences", price(m.LowerFence) + " / " + price(m.UpperFence)},
		{"Std dev", price(m.StdDev)},
		{"Variance", price(m.Variance)},
		{"CV", ratio(m.CV)},
		{"Skewness", ratio(m.Skewness)},
		{"Kurtosis", ratio(m.Kurtosis)},
		{"t 70%", price(m.T70Low) + " to " + price(m.T70High)},
		{"t 95%", price(m.T95Low) + " to " + price(m.T95High)},
		{"Z-score", m.FormatZScore()},
	}
	b.WriteString("| Metric | Value |\n| --- | --- |\n")
	for _, row := range rows {
		fmt.Fprintf(b, "| %s | %s |\n", row[0], row[1])
	}
	b.WriteString("\n")
}

func price(v float64) string { return fmt.Sprintf("%.2f", v) }

func ratio(v float64) string { return fmt.Sprintf("%.4f", v) }

func safeName(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "UNKNOWN"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, symbol)
}
