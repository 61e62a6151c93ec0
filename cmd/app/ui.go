package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/util"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Width(16)

	accumulateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	stableStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	sellStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
)

func regimeStyle(r models.Regime) lipgloss.Style {
	switch r {
	case models.RegimeAccumulate:
		return accumulateStyle
	case models.RegimeSell:
		return sellStyle
	default:
		return stableStyle
	}
}

func row(label, value string) string {
	return labelStyle.Render(label) + value + "\n"
}

func usd(v float64) string {
	return fmt.Sprintf("$%s", groupThousands(fmt.Sprintf("%.0f", v)))
}

func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// renderCurves prints the model panel for one day.
func renderCurves(w io.Writer, cs models.CurveSet) {
	var content strings.Builder
	content.WriteString(row("Day", fmt.Sprintf("%s (#%d)", util.FormatDay(cs.Date), cs.Days)))
	content.WriteString(row("Fair value", usd(cs.Weighted)))
	content.WriteString(row("Band", fmt.Sprintf("%s .. %s (σ %.3f)", usd(cs.Lower), usd(cs.Upper), cs.Sigma)))
	content.WriteString(row("Standard", usd(cs.Standard)))
	content.WriteString(row("Decaying", usd(cs.Decaying)))
	content.WriteString(row("Cycle", usd(cs.Cycle)))

	fmt.Fprintln(w, titleStyle.Render("Fair value model"))
	fmt.Fprintln(w, panelStyle.Render(strings.TrimRight(content.String(), "\n")))
}

// renderIndicators prints the risk panel for an assessed observation.
func renderIndicators(w io.Writer, s models.Snapshot) {
	is := s.Indicators
	var content strings.Builder
	content.WriteString(row("Price", fmt.Sprintf("%s (F&G %d)", usd(s.Observation.Price), s.Observation.FearGreed)))
	content.WriteString(row("Oscillator", fmt.Sprintf("%+.3f", is.Oscillator)))
	content.WriteString(row("On-chain proxy", fmt.Sprintf("%.2f", is.OnChainProxy)))
	content.WriteString(row("Risk", fmt.Sprintf("%.1f%%  (price %.1f / sentiment %.1f / on-chain %.1f)",
		is.RiskPercent, is.PriceRisk, is.SentimentRisk, is.OnChainRisk)))
	content.WriteString(row("Regime", regimeStyle(is.Regime).Render(string(is.Regime))))

	fmt.Fprintln(w, titleStyle.Render("Risk assessment"))
	fmt.Fprintln(w, panelStyle.Render(strings.TrimRight(content.String(), "\n")))
}
