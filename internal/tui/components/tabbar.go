package components

import (
	"strings"

	"github.com/theirongolddev/feaso/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int // position of the shortcut letter in the name (-1 if not in name)
}

// Tabs defines all available tabs.
var Tabs = []Tab{
	{Name: "Ledger", Key: 'l', KeyPos: 0},
	{Name: "Cashflow", Key: 'c', KeyPos: 0},
	{Name: "Breakdown", Key: 'b', KeyPos: 0},
}

const tabPadding = 1

// RenderTabBar renders the tab bar with the given active index.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(true).
		Padding(0, tabPadding)

	inactiveStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	keyStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface).
		Bold(true)

	sepStyle := lipgloss.NewStyle().Background(t.Surface)

	var parts []string
	for i, tab := range Tabs {
		if i == activeIdx {
			parts = append(parts, activeStyle.Render(tab.Name))
			continue
		}
		pad := inactiveStyle.Render(strings.Repeat(" ", tabPadding))
		if tab.KeyPos >= 0 && tab.KeyPos < len(tab.Name) {
			parts = append(parts, pad+
				inactiveStyle.Render(tab.Name[:tab.KeyPos])+
				keyStyle.Render(string(tab.Name[tab.KeyPos]))+
				inactiveStyle.Render(tab.Name[tab.KeyPos+1:])+pad)
			continue
		}
		parts = append(parts, pad+inactiveStyle.Render(tab.Name)+keyStyle.Render("["+string(tab.Key)+"]")+pad)
	}

	row := strings.Join(parts, sepStyle.Render(" "))
	return lipgloss.NewStyle().Background(t.Surface).Width(width).Render(row)
}

// TabVisualWidth returns the rendered width of a tab, matching RenderTabBar.
func TabVisualWidth(tab Tab, active bool) int {
	w := len(tab.Name) + 2*tabPadding
	if !active && (tab.KeyPos < 0 || tab.KeyPos >= len(tab.Name)) {
		w += 3
	}
	return w
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
