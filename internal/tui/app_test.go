package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/feaso/internal/config"
	"github.com/theirongolddev/feaso/internal/model"
	"github.com/theirongolddev/feaso/internal/pipeline"
	"github.com/theirongolddev/feaso/internal/tui/components"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

func newTestApp(t *testing.T) App {
	t.Helper()
	eng := pipeline.New(pipeline.Config{
		Range: pipeline.Range{
			Start: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC),
		},
		Now: func() time.Time { return time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC) },
	})
	if _, err := eng.OnBulkLoad(context.Background(), nil, nil); err != nil {
		t.Fatalf("OnBulkLoad: %v", err)
	}
	a := NewApp(Options{Engine: eng, ProjectID: "tower"})
	m, _ := a.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return m.(App)
}

func press(t *testing.T, a App, keys ...string) App {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ := a.Update(msg)
		a = m.(App)
	}
	return a
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0

		for i, tab := range components.Tabs {
			w := len(tab.Name) + 2 // horizontal padding in tab renderer
			x := pos + w/2
			if got := a.tabAtX(x); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, x, got, i)
			}
			pos += w + 1 // separator
		}
		if got := a.tabAtX(pos + 5); got != -1 {
			t.Errorf("x past last tab = %d, want -1", got)
		}
	}
}

func TestTabKeys(t *testing.T) {
	a := newTestApp(t)

	a = press(t, a, "b")
	if a.activeTab != tabBreakdown {
		t.Errorf("after b: tab %d", a.activeTab)
	}
	a = press(t, a, "right")
	if a.activeTab != tabLedger {
		t.Errorf("right from last tab should wrap, got %d", a.activeTab)
	}
	a = press(t, a, "left", "c")
	if a.activeTab != tabCashflow {
		t.Errorf("after c: tab %d", a.activeTab)
	}
}

func TestCursorMovement(t *testing.T) {
	a := newTestApp(t)
	n := len(a.visibleRows())

	a = press(t, a, "j", "j")
	if a.ledger.cursor != 2 {
		t.Errorf("cursor = %d, want 2", a.ledger.cursor)
	}
	a = press(t, a, "G")
	if a.ledger.cursor != n-1 {
		t.Errorf("G cursor = %d, want %d", a.ledger.cursor, n-1)
	}
	a = press(t, a, "j")
	if a.ledger.cursor != n-1 {
		t.Errorf("cursor moved past end: %d", a.ledger.cursor)
	}
	a = press(t, a, "g", "k")
	if a.ledger.cursor != 0 {
		t.Errorf("cursor moved before start: %d", a.ledger.cursor)
	}
}

func TestPeriodMovement(t *testing.T) {
	a := newTestApp(t)
	a = press(t, a, "]", "]")
	if got := a.selectedPeriod(); got != "Mar 2025" {
		t.Errorf("selected period = %q, want Mar 2025", got)
	}
	a = press(t, a, "[", "[", "[")
	if got := a.selectedPeriod(); got != "Jan 2025" {
		t.Errorf("selected period = %q, want Jan 2025", got)
	}
}

func TestSearchFiltersRows(t *testing.T) {
	a := newTestApp(t)
	a = press(t, a, "/")
	if !a.ledger.searching {
		t.Fatal("slash should start search")
	}
	a = press(t, a, "legal", "enter")
	if a.ledger.query != "legal" {
		t.Fatalf("query = %q", a.ledger.query)
	}

	var items []string
	for _, r := range a.visibleRows() {
		if r.Kind == model.KindItem {
			items = append(items, r.ID)
		}
	}
	if len(items) != 1 || items[0] != "seed-land-legal" {
		t.Errorf("filtered items = %v", items)
	}

	a = press(t, a, "esc")
	if a.ledger.query != "" || len(a.visibleRows()) != len(model.Seed()) {
		t.Errorf("esc should clear the filter, got %q with %d rows", a.ledger.query, len(a.visibleRows()))
	}
}

func TestHelpToggle(t *testing.T) {
	a := newTestApp(t)
	a = press(t, a, "?")
	if !a.showHelp {
		t.Fatal("? should open help")
	}
	if !strings.Contains(a.View(), "Keyboard Shortcuts") {
		t.Error("help view missing title")
	}
	a = press(t, a, "x")
	if a.showHelp {
		t.Error("any key should close help")
	}
}

func TestEditFormSubmitUpdatesLedger(t *testing.T) {
	a := newTestApp(t)
	a = press(t, a, "j") // Land Purchase

	m, _ := a.openEditForm()
	a = m.(App)
	if a.form == nil || a.formVals == nil {
		t.Fatal("edit form not opened")
	}
	if a.formVals.rowID != "seed-land-purchase" || a.formVals.field != string(pipeline.FieldBudgetInput) {
		t.Fatalf("form values = %+v", *a.formVals)
	}

	a.formVals.value = "1200"
	msg := a.submit(a.formVals)()
	m, _ = a.Update(msg)
	a = m.(App)

	if a.messageErr {
		t.Fatalf("edit failed: %s", a.message)
	}
	if !a.stats.Forecast.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("forecast = %s, want 1200", a.stats.Forecast)
	}
}

func TestEditFormOnCashflowTargetsPeriod(t *testing.T) {
	a := newTestApp(t)
	a = press(t, a, "c", "j", "]")

	m, _ := a.openEditForm()
	a = m.(App)
	if a.formVals.field != string(pipeline.FieldPeriod) || a.formVals.period != "Feb 2025" {
		t.Errorf("form values = %+v", *a.formVals)
	}
}

func TestEditTotalRowRefused(t *testing.T) {
	a := newTestApp(t)
	for i, r := range a.visibleRows() {
		if r.Kind == model.KindGroupTotal {
			a.ledger.cursor = i
			break
		}
	}
	m, _ := a.openEditForm()
	a = m.(App)
	if a.form != nil || !a.messageErr {
		t.Error("total rows should not open an edit form")
	}
}

func TestDeleteHeadingRefused(t *testing.T) {
	a := newTestApp(t)
	m, _ := a.openDeleteForm()
	a = m.(App)
	if a.form != nil || !a.messageErr {
		t.Error("headings should not open a delete form")
	}
}

func TestAddAndDelete(t *testing.T) {
	a := newTestApp(t)
	before := len(a.rows)

	m, _ := a.Update(addCmd(a.engine, 0, "Survey")())
	a = m.(App)
	if len(a.rows) != before+1 {
		t.Fatalf("rows = %d, want %d", len(a.rows), before+1)
	}

	var id string
	for _, r := range a.rows {
		if r.Name == "Survey" {
			id = r.ID
		}
	}
	vals := &formValues{kind: formDelete, rowID: id, rowName: "Survey"}
	if cmd := a.submit(vals); cmd != nil {
		t.Error("unconfirmed delete should not run")
	}
	vals.confirm = true
	m, _ = a.Update(a.submit(vals)())
	a = m.(App)
	if len(a.rows) != before {
		t.Errorf("rows after delete = %d, want %d", len(a.rows), before)
	}
}

func TestResultErrorShownInStatus(t *testing.T) {
	a := newTestApp(t)
	m, _ := a.Update(resultMsg{err: errors.New("boom")})
	a = m.(App)
	if !a.messageErr || a.message != "boom" {
		t.Errorf("message = %q err=%v", a.message, a.messageErr)
	}
}

func TestViewRendersEachTab(t *testing.T) {
	a := newTestApp(t)
	want := []string{"Ledger", "Net cashflow", "Forecast vs budget"}
	for i, w := range want {
		a.activeTab = i
		if v := a.View(); !strings.Contains(v, w) {
			t.Errorf("tab %d view missing %q", i, w)
		}
	}
}

func TestViewTooNarrow(t *testing.T) {
	a := newTestApp(t)
	m, _ := a.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	if v := m.(App).View(); !strings.Contains(v, "Terminal too narrow") {
		t.Errorf("narrow view = %q", v)
	}
}

func TestSetupValuesApply(t *testing.T) {
	cfg := config.DefaultConfig()
	vals := SetupValuesFrom(cfg)
	vals.ProjectID = " tower "
	vals.StartMonth = "Jan 2025"
	vals.Driver = "postgres"
	vals.Apply(&cfg)

	if cfg.General.ProjectID != "tower" || cfg.General.StartMonth != "Jan 2025" || cfg.Store.Driver != "postgres" {
		t.Errorf("config = %+v", cfg)
	}
	if NewSetupForm(&vals) == nil {
		t.Error("nil setup form")
	}
}

func TestValidMonth(t *testing.T) {
	for _, s := range []string{"", "Jan 2025", " Dec 2030 "} {
		if err := validMonth(s); err != nil {
			t.Errorf("validMonth(%q) = %v", s, err)
		}
	}
	if validMonth("2025-01") == nil {
		t.Error("expected error for non-month label")
	}
}
