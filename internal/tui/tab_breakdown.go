package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/feaso/internal/cli"
	"github.com/theirongolddev/feaso/internal/tui/components"
	"github.com/theirongolddev/feaso/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"
)

func (a App) renderBreakdownTab(cw int) string {
	t := theme.Active
	groups := a.groups

	innerW := components.CardInnerWidth(cw)
	fixedCols := 6 + 14 + 14 + 14 + 7 // Items, Budget, Forecast, Variation, Share
	nameW := innerW - fixedCols
	if nameW < 14 {
		nameW = 14
	}

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	shareStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface)
	revenueStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)

	groupColors := []lipgloss.Color{t.BlueBright, t.Cyan, t.Magenta, t.Yellow, t.Orange}
	nameStyles := make([]lipgloss.Style, len(groupColors))
	for i, color := range groupColors {
		nameStyles[i] = lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	}

	var table strings.Builder
	table.WriteString(headerStyle.Render(fmt.Sprintf("%-*s%6s%14s%14s%14s%7s",
		nameW, "Group", "Items", "Budget", "Forecast", "Variation", "Share")))
	table.WriteString("\n")
	table.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))
	table.WriteString("\n")

	for i, g := range groups {
		name := runewidth.FillRight(runewidth.Truncate(g.Name, nameW-1, "…"), nameW)
		if g.Revenue {
			table.WriteString(revenueStyle.Render(name))
		} else {
			table.WriteString(nameStyles[i%len(groupColors)].Render(name))
		}
		table.WriteString(rowStyle.Render(fmt.Sprintf("%6d%14s%14s",
			g.Items, cli.FormatMoney(g.Budget), cli.FormatMoney(g.Forecast))))
		table.WriteString(lipgloss.NewStyle().Foreground(t.Variation(g.Variation.Sign())).Background(t.Surface).
			Render(fmt.Sprintf("%14s", cli.FormatDelta(g.Variation))))
		share := ""
		if !g.Revenue {
			share = fmt.Sprintf("%5.1f%%", g.SharePercent)
		}
		table.WriteString(shareStyle.Render(fmt.Sprintf("%7s", share)))
		if i < len(groups)-1 {
			table.WriteString("\n")
		}
	}

	tableCard := components.ContentCard("Groups", table.String(), cw)
	return tableCard + "\n" + a.renderBudgetBars(cw)
}

// renderBudgetBars shows each cost group's forecast against its budget,
// then the share of total forecast already posted as actuals.
func (a App) renderBudgetBars(cw int) string {
	innerW := components.CardInnerWidth(cw)
	labelW := 22
	barW := innerW - labelW - 7
	if barW < 10 {
		barW = 10
	}

	var b strings.Builder
	for _, g := range a.groups {
		if g.Revenue || g.Items == 0 {
			continue
		}
		name := runewidth.Truncate(g.Name, labelW, "…")
		b.WriteString(components.BudgetBar(name, g.Forecast.InexactFloat64(), g.Budget.InexactFloat64(), labelW, barW))
		b.WriteString("\n")
	}

	actual := decimal.Zero
	for _, f := range a.flows {
		actual = actual.Add(f.Actual)
	}
	b.WriteString("\n")
	b.WriteString(components.BudgetBar("Actuals posted", actual.InexactFloat64(), a.stats.Forecast.InexactFloat64(), labelW, barW))

	return components.ContentCard("Forecast vs budget", b.String(), cw)
}
