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

// windowRows returns the [offset, end) slice of n rows that keeps the
// cursor visible in a window of the given height.
func (a App) windowRows(n, visible int) (int, int) {
	offset := a.ledger.offset
	if a.ledger.cursor < offset {
		offset = a.ledger.cursor
	}
	if a.ledger.cursor >= offset+visible {
		offset = a.ledger.cursor - visible + 1
	}
	end := offset + visible
	if end > n {
		end = n
	}
	return offset, end
}

func (a App) renderLedgerTab(cw, h int) string {
	t := theme.Active
	rows := a.visibleRows()
	if len(rows) == 0 {
		msg := "  No ledger rows"
		if a.ledger.query != "" {
			msg = fmt.Sprintf("  No items match %q (Esc to clear)", a.ledger.query)
		}
		return lipgloss.NewStyle().Foreground(t.TextMuted).Render("\n" + msg)
	}

	metrics := a.renderSummaryCards(cw)
	bodyH := h - lipgloss.Height(metrics)

	leftW := cw * 3 / 5
	if leftW < 60 {
		leftW = 60
	}
	rightW := cw - leftW
	if rightW < 30 {
		return metrics + "\n" + components.ContentCard("Ledger", a.renderLedgerList(rows, cw, bodyH), cw)
	}

	left := components.ContentCard("Ledger", a.renderLedgerList(rows, leftW, bodyH), leftW)
	sel := rows[a.ledger.cursor]
	right := components.ContentCard(sel.Name, a.renderRowDetail(sel, rightW), rightW)
	return metrics + "\n" + components.CardRow([]string{left, right})
}

func (a App) renderSummaryCards(cw int) string {
	t := theme.Active
	s := a.stats
	return components.MetricCardRow([]components.Metric{
		{Label: "Budget", Value: cli.FormatCompact(s.Budget), Delta: "incl " + cli.FormatCompact(s.BudgetInclTax)},
		{Label: "Forecast", Value: cli.FormatCompact(s.Forecast), Delta: "var " + cli.FormatDelta(s.Variation), Tone: t.Variation(s.Variation.Sign())},
		{Label: "Revenue", Value: cli.FormatCompact(s.Revenue)},
		{Label: "Margin", Value: cli.FormatCompact(s.Margin), Delta: cli.FormatPercent(s.MarginPercent), Tone: t.Variation(-s.Margin.Sign())},
	}, cw)
}

func (a App) renderLedgerList(rows []model.Row, outerW, h int) string {
	t := theme.Active
	inner := components.CardInnerWidth(outerW)

	const numW = 13
	nameW := inner - 4*numW
	if nameW < 16 {
		nameW = 16
	}

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	headingStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	totalStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Bold(true)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceHover).Bold(true)

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s%*s%*s%*s%*s",
		nameW, "Item", numW, "Budget", numW, "Forecast", numW, "Previous", numW, "Variation")))
	b.WriteString("\n")

	visible := h - 4 // card border (2) + title (1) + header (1)
	if visible < 3 {
		visible = 3
	}
	offset, end := a.windowRows(len(rows), visible)

	for i := offset; i < end; i++ {
		r := rows[i]
		name := r.Name
		style := rowStyle
		switch r.Kind {
		case model.KindHeading:
			style = headingStyle
		case model.KindGroupTotal:
			style = totalStyle
		default:
			name = "  " + name
		}
		name = runewidth.FillRight(runewidth.Truncate(name, nameW-1, "…"), nameW)

		line := name + fmt.Sprintf("%*s%*s%*s",
			numW, cli.FormatNullMoney(r.BudgetExcludingTax),
			numW, cli.FormatNullMoney(r.CurrentForecast),
			numW, cli.FormatNullMoney(r.PreviousForecast))
		variation := fmt.Sprintf("%*s", numW, cli.FormatNullMoney(r.VariationToOriginal))

		if i == a.ledger.cursor {
			b.WriteString(selectedStyle.Render(line + variation))
		} else {
			varStyle := style
			if r.VariationToOriginal.Valid {
				varStyle = style.Foreground(t.Variation(r.VariationToOriginal.Decimal.Sign()))
			}
			b.WriteString(style.Render(line) + varStyle.Render(variation))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (a App) renderRowDetail(r model.Row, outerW int) string {
	t := theme.Active
	inner := components.CardInnerWidth(outerW)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	pairs := [][2]string{{"Kind", string(r.Kind)}}
	if r.Kind == model.KindItem {
		tax := "no"
		if r.TaxApplicable {
			tax = "yes"
		}
		pairs = append(pairs,
			[2]string{"Input", cli.FormatMoney(r.BudgetInput)},
			[2]string{"Basis", cli.FormatBasis(r.Basis)},
		)
		if r.BasisRef != "" {
			pairs = append(pairs, [2]string{"Reference", r.BasisRef})
		}
		if !r.Quantity.IsZero() {
			pairs = append(pairs, [2]string{"Quantity", r.Quantity.String()})
		}
		task := r.ScheduleTask
		if task == "" {
			task = "(project span)"
		}
		pairs = append(pairs,
			[2]string{"GST", tax},
			[2]string{"Schedule", task},
			[2]string{"Profile", string(r.Profile)},
		)
	}
	pairs = append(pairs,
		[2]string{"Excl GST", cli.FormatNullMoney(r.BudgetExcludingTax)},
		[2]string{"Incl GST", cli.FormatNullMoney(r.BudgetIncludingTax)},
		[2]string{"Automated", cli.FormatNullMoney(r.AutomatedCashflow)},
		[2]string{"Forecast", cli.FormatNullMoney(r.CurrentForecast)},
	)

	var b strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&b, "%s %s\n",
			labelStyle.Render(fmt.Sprintf("%-10s", p[0])),
			valueStyle.Render(runewidth.Truncate(p[1], inner-11, "…")))
	}

	if r.Kind == model.KindItem && len(a.periods) > 0 {
		values := make([]float64, len(a.periods))
		for i, p := range a.periods {
			values[i] = r.Amount(p).InexactFloat64()
		}
		b.WriteString("\n")
		b.WriteString(components.Sparkline(values, t.Accent))
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s",
			dimStyle.Render(fmt.Sprintf("%d manual · %d actual", len(r.ManualOverride), len(r.ActualFlag))))
	}
	return strings.TrimRight(b.String(), "\n")
}
