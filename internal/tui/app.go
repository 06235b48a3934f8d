// Package tui provides the interactive Bubble Tea ledger editor for feaso.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/feaso/internal/model"
	"github.com/theirongolddev/feaso/internal/pipeline"
	"github.com/theirongolddev/feaso/internal/tui/components"
	"github.com/theirongolddev/feaso/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Options configures a new App.
type Options struct {
	Engine    *pipeline.Engine
	Persister *pipeline.Persister
	ProjectID string
}

// App is the root Bubble Tea model.
type App struct {
	engine    *pipeline.Engine
	persister *pipeline.Persister
	project   string

	// Pre-computed from the engine snapshot
	rows    []model.Row
	periods []model.Period
	stats   model.SummaryStats
	flows   []model.PeriodFlow
	groups  []model.GroupStats

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	ledger ledgerState

	// Active form (edit, add or delete); nil when none
	form     *huh.Form
	formVals *formValues

	// Status bar
	message    string
	messageErr bool
	pending    int
	failures   int
}

// ledgerState is the cursor shared by the Ledger and Cashflow tabs.
type ledgerState struct {
	cursor    int // index into visibleRows()
	offset    int
	periodCol int // selected period index on the Cashflow tab
	periodOff int

	searching   bool
	searchInput textinput.Model
	query       string
}

const (
	minTerminalWidth = 80
	maxContentWidth  = 200

	minContentHeight = 5
)

// NewApp creates a new TUI app model over an already loaded engine.
func NewApp(opts Options) App {
	a := App{
		engine:    opts.Engine,
		persister: opts.Persister,
		project:   opts.ProjectID,
	}
	a.refresh(a.engine.Rows())
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(tea.EnableMouseCellMotion, tickCmd())
}

// refresh recomputes the views from a new snapshot.
func (a *App) refresh(rows []model.Row) {
	a.rows = rows
	a.periods = a.engine.Periods()
	a.stats = pipeline.Aggregate(rows, a.periods)
	a.flows = pipeline.AggregatePeriods(rows, a.periods)
	a.groups = pipeline.AggregateGroups(rows)
	a.clampCursor()
}

func (a *App) clampCursor() {
	n := len(a.visibleRows())
	if a.ledger.cursor >= n {
		a.ledger.cursor = n - 1
	}
	if a.ledger.cursor < 0 {
		a.ledger.cursor = 0
	}
	if a.ledger.periodCol >= len(a.periods) {
		a.ledger.periodCol = len(a.periods) - 1
	}
	if a.ledger.periodCol < 0 {
		a.ledger.periodCol = 0
	}
}

// visibleRows returns the ledger rows matching the search query.
func (a App) visibleRows() []model.Row {
	return pipeline.FilterByName(a.rows, a.ledger.query)
}

// selected returns the row under the cursor.
func (a App) selected() (model.Row, bool) {
	rows := a.visibleRows()
	if a.ledger.cursor < 0 || a.ledger.cursor >= len(rows) {
		return model.Row{}, false
	}
	return rows[a.ledger.cursor], true
}

func (a App) selectedPeriod() model.Period {
	if a.ledger.periodCol < 0 || a.ledger.periodCol >= len(a.periods) {
		return ""
	}
	return a.periods[a.ledger.periodCol]
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.form != nil {
			a.form = a.form.WithWidth(min(msg.Width, 72))
		}
		return a, nil

	case tea.MouseMsg:
		if a.showHelp || a.form != nil {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			a.moveCursor(-1)
		case tea.MouseButtonWheelDown:
			a.moveCursor(1)
		case tea.MouseButtonLeft:
			if msg.Action == tea.MouseActionPress && msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.form != nil {
			return a.updateForm(msg)
		}
		if a.ledger.searching {
			return a.updateSearch(msg)
		}
		return a.updateKeys(msg)

	case resultMsg:
		a.message = msg.text
		a.messageErr = msg.err != nil
		if msg.err != nil {
			a.message = msg.err.Error()
		}
		if msg.rows != nil {
			a.refresh(msg.rows)
		}
		return a, nil

	case tickMsg:
		if a.persister != nil {
			a.pending = a.persister.Pending()
			a.failures = a.persister.Failures()
		}
		return a, tickCmd()
	}

	if a.form != nil {
		return a.updateForm(msg)
	}
	return a, nil
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "j", "down":
		a.moveCursor(1)
	case "k", "up":
		a.moveCursor(-1)
	case "g":
		a.ledger.cursor = 0
		a.ledger.offset = 0
	case "G":
		a.ledger.cursor = len(a.visibleRows()) - 1
		a.clampCursor()
	case "[", "shift+left":
		if a.ledger.periodCol > 0 {
			a.ledger.periodCol--
		}
	case "]", "shift+right":
		if a.ledger.periodCol < len(a.periods)-1 {
			a.ledger.periodCol++
		}
	case "/":
		a.ledger.searching = true
		a.ledger.searchInput = newSearchInput()
		return a, a.ledger.searchInput.Focus()
	case "esc":
		if a.ledger.query != "" {
			a.ledger.query = ""
			a.clampCursor()
		}
	case "e", "enter":
		return a.openEditForm()
	case "a":
		return a.openAddForm()
	case "d":
		return a.openDeleteForm()
	case "S":
		return a, snapshotCmd(a.engine)
	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	default:
		if len(key) == 1 {
			if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
				a.activeTab = idx
			}
		}
	}
	return a, nil
}

func (a *App) moveCursor(delta int) {
	a.ledger.cursor += delta
	a.clampCursor()
}

// updateSearch handles key events while in search mode.
func (a App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.ledger.query = strings.TrimSpace(a.ledger.searchInput.Value())
		a.ledger.searching = false
		a.ledger.cursor = 0
		a.ledger.offset = 0
		return a, nil
	case "esc":
		a.ledger.searching = false
		return a, nil
	}

	var cmd tea.Cmd
	a.ledger.searchInput, cmd = a.ledger.searchInput.Update(msg)
	return a, cmd
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "filter items by name"
	ti.CharLimit = 80
	ti.Width = 40
	ti.Prompt = "/ "
	return ti
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.form != nil {
		return a.viewForm()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  feaso needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewForm() string {
	t := theme.Active
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 2).
		Render(a.form.View())
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")

	sections := []struct {
		name     string
		bindings []struct{ key, desc string }
	}{
		{"Navigation", []struct{ key, desc string }{
			{"l c b", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Move between rows"},
			{"[ ]", "Previous / Next period"},
			{"g G", "First / last row"},
		}},
		{"Actions", []struct{ key, desc string }{
			{"e Enter", "Edit selected row or cell"},
			{"a", "Add item to this group"},
			{"d", "Delete selected item"},
			{"S", "Snapshot forecast as previous"},
			{"/", "Filter items by name"},
			{"Esc", "Clear filter"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render(sec.name))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	// 1. Header: tab bar + filter pill
	pillStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	filter := pillStyle.Render(" ") + accentStyle.Render(a.project)
	if len(a.periods) > 0 {
		filter += pillStyle.Render(" │ ") +
			accentStyle.Render(string(a.periods[0])+" – "+string(a.periods[len(a.periods)-1]))
	}
	switch {
	case a.ledger.searching:
		filter += pillStyle.Render(" │ ") + a.ledger.searchInput.View()
	case a.ledger.query != "":
		filter += pillStyle.Render(" │ ") + accentStyle.Render("/"+a.ledger.query)
	}
	header := components.RenderTabBar(a.activeTab, w) + "\n" +
		lipgloss.NewStyle().Background(t.Surface).Width(w).Render(filter)

	// 2. Status bar
	statusBar := components.RenderStatusBar(w, components.Status{
		Project:  a.project,
		Pending:  a.pending,
		Failures: a.failures,
		Message:  a.message,
		IsError:  a.messageErr,
	})

	// 3. Content
	headerH := lipgloss.Height(header)
	statusH := lipgloss.Height(statusBar)
	contentH := h - headerH - statusH
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch a.activeTab {
	case tabLedger:
		content = a.renderLedgerTab(cw, contentH)
	case tabCashflow:
		content = a.renderCashflowTab(cw, contentH)
	case tabBreakdown:
		content = a.renderBreakdownTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

const (
	tabLedger = iota
	tabCashflow
	tabBreakdown
)

// ─── Commands ───────────────────────────────────────────────────

// resultMsg carries the outcome of an engine mutation.
type resultMsg struct {
	rows []model.Row
	text string
	err  error
}

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func editCmd(eng *pipeline.Engine, ed pipeline.Edit) tea.Cmd {
	return func() tea.Msg {
		rows, err := eng.OnEdit(context.Background(), ed)
		if err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{rows: rows, text: fmt.Sprintf("updated %s", ed.Field)}
	}
}

func addCmd(eng *pipeline.Engine, group int, name string) tea.Cmd {
	return func() tea.Msg {
		row, rows, err := eng.AddRow(context.Background(), group, name)
		if err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{rows: rows, text: "added " + row.Name}
	}
}

func deleteCmd(eng *pipeline.Engine, id, name string) tea.Cmd {
	return func() tea.Msg {
		rows, err := eng.DeleteRow(context.Background(), id)
		if err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{rows: rows, text: "deleted " + name}
	}
}

func snapshotCmd(eng *pipeline.Engine) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{rows: eng.Snapshot(context.Background()), text: "forecast snapshot taken"}
	}
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW
		if i < len(components.Tabs)-1 {
			pos++ // separator
		}
	}
	return -1
}

// ─── Helpers ────────────────────────────────────────────────────

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		placed := lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
		result.WriteString(placed)
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}
