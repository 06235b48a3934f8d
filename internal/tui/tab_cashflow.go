package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/feaso/internal/cli"
	"github.com/theirongolddev/feaso/internal/model"
	"github.com/theirongolddev/feaso/internal/tui/components"
	"github.com/theirongolddev/feaso/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

func (a App) renderCashflowTab(cw, h int) string {
	t := theme.Active
	if len(a.periods) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Render("\n  No periods in range")
	}

	chartH := h / 3
	if chartH < 6 {
		chartH = 6
	}
	chart := components.ContentCard("Net cashflow", a.renderNetChart(components.CardInnerWidth(cw), chartH-3), cw)

	gridH := h - lipgloss.Height(chart)
	grid := components.ContentCard(
		fmt.Sprintf("Periods · %s", a.selectedPeriod()),
		a.renderPeriodGrid(cw, gridH),
		cw,
	)
	return chart + "\n" + grid
}

func (a App) renderNetChart(w, h int) string {
	t := theme.Active
	values := make([]float64, len(a.flows))
	cumulative := make([]float64, len(a.flows))
	labels := make([]string, len(a.flows))
	for i, f := range a.flows {
		values[i] = f.Net.InexactFloat64()
		cumulative[i] = f.Cumulative.InexactFloat64()
		labels[i] = cli.FormatPeriodShort(f.Period)
	}

	dim := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	var b strings.Builder
	b.WriteString(components.BarChart(values, labels, t.Green, w, h-1))
	b.WriteString("\n")
	b.WriteString(dim.Render("cumulative "))
	b.WriteString(components.Sparkline(cumulative, t.Blue))
	if n := len(a.flows); n > 0 {
		b.WriteString(dim.Render(" " + cli.FormatCompact(a.flows[n-1].Cumulative)))
	}
	if a.stats.PeakOutflowPeriod != "" {
		b.WriteString(dim.Render(fmt.Sprintf("  peak outflow %s in %s",
			cli.FormatCompact(a.stats.PeakOutflow), a.stats.PeakOutflowPeriod)))
	}
	return b.String()
}

// periodWindow returns the [offset, end) range of period columns that keeps
// the selected period visible.
func (a App) periodWindow(cols int) (int, int) {
	offset := a.ledger.periodOff
	if a.ledger.periodCol < offset {
		offset = a.ledger.periodCol
	}
	if a.ledger.periodCol >= offset+cols {
		offset = a.ledger.periodCol - cols + 1
	}
	end := offset + cols
	if end > len(a.periods) {
		end = len(a.periods)
	}
	return offset, end
}

func (a App) renderPeriodGrid(outerW, h int) string {
	t := theme.Active
	inner := components.CardInnerWidth(outerW)
	rows := a.visibleRows()

	const (
		nameW = 24
		cellW = 11
	)
	cols := (inner - nameW) / cellW
	if cols < 1 {
		cols = 1
	}
	pStart, pEnd := a.periodWindow(cols)

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	headingStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	cursorStyle := lipgloss.NewStyle().Background(t.SurfaceHover).Bold(true)
	cellStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	b.WriteString(headerStyle.Render(runewidth.FillRight("", nameW)))
	for i := pStart; i < pEnd; i++ {
		label := fmt.Sprintf("%*s", cellW, cli.FormatPeriodShort(a.periods[i]))
		if i == a.ledger.periodCol {
			b.WriteString(headerStyle.Background(t.SurfaceHover).Render(label))
		} else {
			b.WriteString(headerStyle.Render(label))
		}
	}
	b.WriteString("\n")

	visible := h - 4
	if visible < 3 {
		visible = 3
	}
	offset, end := a.windowRows(len(rows), visible)

	for i := offset; i < end; i++ {
		r := rows[i]
		style := nameStyle
		name := r.Name
		if r.Kind == model.KindHeading {
			style = headingStyle
		} else {
			name = "  " + name
		}
		if i == a.ledger.cursor {
			style = style.Background(t.SurfaceHover)
		}
		b.WriteString(style.Render(runewidth.FillRight(runewidth.Truncate(name, nameW-1, "…"), nameW)))

		for c := pStart; c < pEnd; c++ {
			p := a.periods[c]
			text := ""
			if r.Kind != model.KindHeading {
				text = cli.FormatCell(r.Amount(p))
			}
			cell := fmt.Sprintf("%*s", cellW, text)
			cs := cellStyle.Foreground(t.Cell(r.ManualOverride.Has(p), r.ActualFlag.Has(p)))
			if i == a.ledger.cursor && c == a.ledger.periodCol {
				cs = cursorStyle.Foreground(t.AccentBright)
			} else if i == a.ledger.cursor {
				cs = cs.Background(t.SurfaceHover)
			}
			b.WriteString(cs.Render(cell))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
