package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/QuantLens/internal/stats"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED"))

	sectionStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#3B82F6"))

	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Width(14)

	completedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B"))

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)
)

func printTitle(w io.Writer, text string) {
	fmt.Fprintln(w, titleStyle.Render(text))
}

func printSection(w io.Writer, text string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionStyle.Render(text))
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintln(w, labelStyle.Render(label)+" "+value)
}

// printReport renders the volatility report as an aligned key/value list.
func printReport(w io.Writer, report stats.VolatilityReport) {
	printSection(w, fmt.Sprintf("Statistics for %s (%d days)", report.Symbol, report.Days))
	if !report.OK() {
		fmt.Fprintln(w, warnStyle.Render(report.Error))
		return
	}
	m := report.Metrics
	printField(w, "Observations", fmt.Sprintf("%d", m.Observations))
	printField(w, "Close", fmt.Sprintf("%.2f", m.Close))
	printField(w, "Mean", fmt.Sprintf("%.2f", m.Mean))
	printField(w, "Median", fmt.Sprintf("%.2f", m.Median))
	printField(w, "Q1 / Q3", fmt.Sprintf("%.2f / %.2f", m.Q1, m.Q3))
	printField(w, "Fences", fmt.Sprintf("%.2f / %.2f", m.LowerFence, m.UpperFence))
	printField(w, "Std dev", fmt.Sprintf("%.2f", m.StdDev))
	printField(w, "Variance", fmt.Sprintf("%.2f", m.Variance))
	printField(w, "CV", fmt.Sprintf("%.4f", m.CV))
	printField(w, "Skewness", fmt.Sprintf("%.4f", m.Skewness))
	printField(w, "Kurtosis", fmt.Sprintf("%.4f", m.Kurtosis))
	printField(w, "t 70%", fmt.Sprintf("%.2f to %.2f", m.T70Low, m.T70High))
	printField(w, "t 95%", fmt.Sprintf("%.2f to %.2f", m.T95Low, m.T95High))
	printField(w, "Z-score", m.FormatZScore())
}

func printTrend(w io.Writer, trend *stats.TrendSnapshot) {
	if trend == nil {
		return
	}
	printSection(w, "Trend")
	printField(w, "Close", fmt.Sprintf("%.2f", trend.Close))

	periods := make([]int, 0, len(trend.EMAs))
	for p := range trend.EMAs {
		periods = append(periods, p)
	}
	sort.Ints(periods)
	for _, p := range periods {
		rel := completedStyle.Render("above")
		if trend.Close < trend.EMAs[p] {
			rel = warnStyle.Render("below")
		}
		printField(w, fmt.Sprintf("EMA %d", p), fmt.Sprintf("%.2f (close %s)", trend.EMAs[p], rel))
	}
}

func status(s string) string {
	switch strings.ToLower(s) {
	case "completed":
		return completedStyle.Render(s)
	case "failed":
		return errorStyle.Render(s)
	default:
		return warnStyle.Render(s)
	}
}
