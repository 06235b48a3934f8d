package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/feaso/internal/cashflow"
	"github.com/theirongolddev/feaso/internal/model"
)

type memStore struct {
	mu      sync.Mutex
	rows    map[string]model.Row
	upserts map[string]int
	deletes []string
	fail    error
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]model.Row{}, upserts: map[string]int{}}
}

func (m *memStore) UpsertRow(_ context.Context, _ string, row model.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.rows[row.ID] = row
	m.upserts[row.ID]++
	return nil
}

func (m *memStore) DeleteRow(_ context.Context, _ string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	delete(m.rows, id)
	m.deletes = append(m.deletes, id)
	return nil
}

func (m *memStore) snapshot() (map[string]model.Row, map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make(map[string]model.Row, len(m.rows))
	for k, v := range m.rows {
		rows[k] = v
	}
	counts := make(map[string]int, len(m.upserts))
	for k, v := range m.upserts {
		counts[k] = v
	}
	return rows, counts
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPersister_CoalescesWritesPerRow(t *testing.T) {
	st := newMemStore()
	p := NewPersister(st, "p1", 20*time.Millisecond)

	for _, name := range []string{"v1", "v2", "v3"} {
		p.Schedule(model.Row{ID: "a", Name: name})
	}
	p.Schedule(model.Row{ID: "b", Name: "only"})

	waitFor(t, func() bool {
		rows, _ := st.snapshot()
		return len(rows) == 2
	})
	rows, counts := st.snapshot()
	assert.Equal(t, "v3", rows["a"].Name)
	assert.Equal(t, 1, counts["a"])
	assert.Equal(t, 1, counts["b"])
	assert.Equal(t, 0, p.Pending())
}

func TestPersister_Flush(t *testing.T) {
	st := newMemStore()
	p := NewPersister(st, "p1", time.Hour)
	for _, id := range []string{"a", "b", "c"} {
		p.Schedule(model.Row{ID: id})
	}
	assert.Equal(t, 3, p.Pending())

	assert.NoError(t, p.Flush(context.Background()))
	rows, _ := st.snapshot()
	assert.Equal(t, 3, len(rows))
	assert.Equal(t, 0, p.Pending())
}

func TestPersister_DeleteCancelsPendingWrite(t *testing.T) {
	st := newMemStore()
	p := NewPersister(st, "p1", time.Hour)
	p.Schedule(model.Row{ID: "a"})
	assert.NoError(t, p.Delete(context.Background(), "a"))
	assert.NoError(t, p.Flush(context.Background()))

	rows, counts := st.snapshot()
	assert.Equal(t, 0, len(rows))
	assert.Equal(t, 0, counts["a"])
	assert.Equal(t, []string{"a"}, st.deletes)
}

func TestPersister_FailuresAreCounted(t *testing.T) {
	st := newMemStore()
	st.fail = errors.New("disk full")
	p := NewPersister(st, "p1", time.Hour)
	p.Schedule(model.Row{ID: "a"})
	p.Schedule(model.Row{ID: "b"})

	err := p.Flush(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, p.Failures())
}

func TestEngine_DeleteRowToleratesStoreFailure(t *testing.T) {
	st := newMemStore()
	e := newTestEngine(t, st)
	st.mu.Lock()
	st.fail = errors.New("disk full")
	st.mu.Unlock()

	rows, err := e.DeleteRow(context.Background(), "seed-land-legal")
	assert.NoError(t, err)
	_, ok := model.IndexByID(rows)["seed-land-legal"]
	assert.False(t, ok)
	assert.Equal(t, 1, e.cfg.Persister.Failures())
}

var fixedNow = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

func year() Range {
	return Range{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestEngine(t *testing.T, st *memStore) *Engine {
	t.Helper()
	cfg := Config{Range: year(), Now: func() time.Time { return fixedNow }}
	if st != nil {
		cfg.Persister = NewPersister(st, "p1", time.Hour)
	}
	e := New(cfg)
	_, err := e.OnBulkLoad(context.Background(), nil, nil)
	assert.NoError(t, err)
	return e
}

func rowByID(t *testing.T, rows []model.Row, id string) model.Row {
	t.Helper()
	i, ok := model.IndexByID(rows)[id]
	assert.True(t, ok, "row %s missing", id)
	return rows[i]
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEngine_BulkLoadPersistsSeed(t *testing.T) {
	st := newMemStore()
	e := newTestEngine(t, st)
	assert.Equal(t, len(model.Seed()), len(e.Rows()))
	assert.Equal(t, 12, len(e.Periods()))

	assert.NoError(t, e.cfg.Persister.Flush(context.Background()))
	rows, _ := st.snapshot()
	assert.Equal(t, len(model.Seed()), len(rows))
}

func TestEngine_BulkLoadKeepsPersistedValues(t *testing.T) {
	e := New(Config{Range: year(), Now: func() time.Time { return fixedNow }})
	persisted := []model.Row{{
		ID: "seed-land-purchase", GroupIndex: 0, Kind: model.KindItem, Name: "Land Purchase",
		SortOrder: 1, Basis: model.BasisLumpSum, BudgetInput: dec("2400"), Profile: model.ProfileLinear,
	}}
	rows, err := e.OnBulkLoad(context.Background(), persisted, nil)
	assert.NoError(t, err)
	land := rowByID(t, rows, "seed-land-purchase")
	assert.True(t, land.Amount("Mar 2025").Equal(dec("200")), "Mar = %s", land.Amount("Mar 2025"))
}

func TestEngine_BulkLoadRejectsBrokenStructure(t *testing.T) {
	e := New(Config{Now: func() time.Time { return fixedNow }})
	_, err := e.OnBulkLoad(context.Background(), []model.Row{
		{ID: "extra-heading", GroupIndex: 0, Kind: model.KindHeading, Name: "Another"},
	}, nil)
	assert.IsError(t, err, model.ErrStructure)
}

func TestEngine_EditBudgetRedistributesDependents(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.OnEdit(ctx, Edit{RowID: "seed-land-stamp-duty", Field: FieldBudgetInput, Value: "5"})
	assert.NoError(t, err)
	rows, err := e.OnEdit(ctx, Edit{RowID: "seed-land-purchase", Field: FieldBudgetInput, Value: "$1,200"})
	assert.NoError(t, err)

	land := rowByID(t, rows, "seed-land-purchase")
	duty := rowByID(t, rows, "seed-land-stamp-duty")
	for _, p := range e.Periods() {
		assert.True(t, land.Amount(p).Equal(dec("100")), "land %s = %s", p, land.Amount(p))
		assert.True(t, duty.Amount(p).Equal(dec("5")), "duty %s = %s", p, duty.Amount(p))
	}
	total := rowByID(t, rows, "seed-land-total")
	assert.True(t, total.CurrentForecast.Decimal.Equal(dec("1260")), "total = %s", total.CurrentForecast.Decimal)
}

func TestEngine_ManualOverrideAndClear(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	_, err := e.OnEdit(ctx, Edit{RowID: "seed-land-purchase", Field: FieldBudgetInput, Value: "1200"})
	assert.NoError(t, err)

	rows, err := e.OnEdit(ctx, Edit{RowID: "seed-land-purchase", Field: FieldPeriod, Period: "Mar 2025", Value: "430"})
	assert.NoError(t, err)
	land := rowByID(t, rows, "seed-land-purchase")
	assert.True(t, land.ManualOverride.Has("Mar 2025"))
	assert.True(t, land.Amount("Mar 2025").Equal(dec("430")))
	assert.True(t, land.Amount("Jan 2025").Equal(dec("70")), "Jan = %s", land.Amount("Jan 2025"))

	rows, err = e.OnEdit(ctx, Edit{RowID: "seed-land-purchase", Field: FieldPeriod, Period: "Mar 2025", Value: ""})
	assert.NoError(t, err)
	land = rowByID(t, rows, "seed-land-purchase")
	assert.False(t, land.ManualOverride.Has("Mar 2025"))
	assert.True(t, land.Amount("Mar 2025").Equal(dec("100")), "Mar = %s", land.Amount("Mar 2025"))
}

func TestEngine_ActualSaturates(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	_, err := e.OnEdit(ctx, Edit{RowID: "seed-land-purchase", Field: FieldBudgetInput, Value: "1000"})
	assert.NoError(t, err)
	rows, err := e.OnEdit(ctx, Edit{RowID: "seed-land-purchase", Field: FieldActual, Period: "Feb 2025", Value: "1200"})
	assert.NoError(t, err)

	land := rowByID(t, rows, "seed-land-purchase")
	assert.True(t, land.ActualFlag.Has("Feb 2025"))
	assert.True(t, land.CurrentForecast.Decimal.Equal(dec("1200")))
	assert.True(t, land.AutomatedCashflow.Decimal.IsZero())
	assert.True(t, land.VariationToOriginal.Decimal.Equal(dec("200")))
}

func TestEngine_EditErrors(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	tests := []struct {
		name string
		edit Edit
		want error
	}{
		{"missing row", Edit{RowID: "nope", Field: FieldName, Value: "x"}, ErrRowNotFound},
		{"total row", Edit{RowID: "seed-land-total", Field: FieldName, Value: "x"}, ErrNotEditable},
		{"heading budget", Edit{RowID: "seed-land-heading", Field: FieldBudgetInput, Value: "1"}, ErrNotEditable},
		{"bad tax", Edit{RowID: "seed-land-legal", Field: FieldTax, Value: "maybe"}, ErrInvalidValue},
		{"bad period", Edit{RowID: "seed-land-legal", Field: FieldPeriod, Period: "sometime", Value: "1"}, ErrInvalidPeriod},
		{"unknown field", Edit{RowID: "seed-land-legal", Field: "colour", Value: "1"}, ErrUnknownField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.OnEdit(ctx, tt.edit)
			assert.IsError(t, err, tt.want)
		})
	}
}

func TestEngine_HeadingRename(t *testing.T) {
	e := newTestEngine(t, nil)
	rows, err := e.OnEdit(context.Background(), Edit{RowID: "seed-land-heading", Field: FieldName, Value: " Site "})
	assert.NoError(t, err)
	assert.Equal(t, "Site", rowByID(t, rows, "seed-land-heading").Name)
}

func TestEngine_AddAndDeleteRow(t *testing.T) {
	st := newMemStore()
	e := newTestEngine(t, st)
	ctx := context.Background()

	var notified [][]string
	e.cfg.OnChange = func(ids []string) { notified = append(notified, ids) }

	row, rows, err := e.AddRow(ctx, 0, "Survey")
	assert.NoError(t, err)
	assert.Equal(t, len(model.Seed())+1, len(rows))
	assert.Equal(t, model.KindItem, row.Kind)
	assert.Equal(t, 4, row.SortOrder)
	assert.Equal(t, "seed-land-total", rows[5].ID)

	_, err = e.DeleteRow(ctx, "seed-land-heading")
	assert.IsError(t, err, ErrNotEditable)

	rows, err = e.DeleteRow(ctx, row.ID)
	assert.NoError(t, err)
	assert.Equal(t, len(model.Seed()), len(rows))
	assert.Equal(t, []string{row.ID}, st.deletes)
	assert.Equal(t, 2, len(notified))

	_, _, err = e.AddRow(ctx, 42, "Orphan")
	assert.IsError(t, err, model.ErrStructure)
}

func TestEngine_Snapshot(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	_, err := e.OnEdit(ctx, Edit{RowID: "seed-land-purchase", Field: FieldBudgetInput, Value: "600"})
	assert.NoError(t, err)
	rows := e.Snapshot(ctx)
	land := rowByID(t, rows, "seed-land-purchase")
	assert.True(t, land.PreviousForecast.Decimal.Equal(dec("600")))
	assert.True(t, rowByID(t, rows, "seed-land-total").PreviousForecast.Decimal.Equal(dec("600")))
}

func TestEngine_ReloadAppliesSchedule(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	_, err := e.OnEdit(ctx, Edit{RowID: "seed-land-purchase", Field: FieldBudgetInput, Value: "300"})
	assert.NoError(t, err)

	rows := e.Reload(ctx, []model.ScheduleTask{{Name: "Settlement", StartDate: "2025-04-01", EndDate: "2025-06-30"}})
	land := rowByID(t, rows, "seed-land-purchase")
	assert.True(t, land.Amount("Jan 2025").IsZero())
	assert.True(t, land.Amount("May 2025").Equal(dec("100")))
}

func TestKnownPeriods(t *testing.T) {
	got := KnownPeriods(Range{}, nil, nil, fixedNow)
	assert.Equal(t, 12, len(got))
	assert.Equal(t, model.Period("Jun 2025"), got[0])
	assert.Equal(t, model.Period("May 2026"), got[11])

	rows := []model.Row{{ID: "a", PeriodAmounts: map[model.Period]decimal.Decimal{"Dec 2024": dec("1")}}}
	tasks := []model.ScheduleTask{{Name: "t", StartDate: "2025-02-01", EndDate: "2025-03-01"}}
	got = KnownPeriods(Range{}, rows, tasks, fixedNow)
	assert.Equal(t, []model.Period{"Dec 2024", "Feb 2025", "Mar 2025"}, got)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("Budget-Input")
	assert.NoError(t, err)
	assert.Equal(t, FieldBudgetInput, f)

	_, err = ParseField("colour")
	assert.IsError(t, err, ErrUnknownField)
}

func TestEngine_OverrideOutsideRangeKeepsLedgerSettled(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	_, err := e.OnEdit(ctx, Edit{RowID: "seed-land-purchase", Field: FieldBudgetInput, Value: "1200"})
	assert.NoError(t, err)

	rows, err := e.OnEdit(ctx, Edit{RowID: "seed-land-legal", Field: FieldPeriod, Period: "Mar 2026", Value: "50"})
	assert.NoError(t, err)
	assert.Equal(t, 13, len(e.Periods()))

	// The unscheduled row now spreads across the widened range.
	land := rowByID(t, rows, "seed-land-purchase")
	assert.True(t, land.Amount("Mar 2026").GreaterThan(decimal.Zero), "Mar 2026 = %s", land.Amount("Mar 2026"))

	reloaded := e.Reload(ctx, nil)
	for _, r := range rows {
		after := rowByID(t, reloaded, r.ID)
		assert.True(t, r.Equal(after), "row %s changed on reload", r.ID)
	}
}

func TestEngine_ClearOverrideKeepsPostedActual(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	_, err := e.OnEdit(ctx, Edit{RowID: "seed-land-purchase", Field: FieldBudgetInput, Value: "1400"})
	assert.NoError(t, err)
	_, err = e.OnEdit(ctx, Edit{RowID: "seed-land-purchase", Field: FieldActual, Period: "Feb 2025", Value: "300"})
	assert.NoError(t, err)
	_, err = e.OnEdit(ctx, Edit{RowID: "seed-land-purchase", Field: FieldPeriod, Period: "Feb 2025", Value: "300"})
	assert.NoError(t, err)

	rows, err := e.OnEdit(ctx, Edit{RowID: "seed-land-purchase", Field: FieldPeriod, Period: "Feb 2025", Value: ""})
	assert.NoError(t, err)
	land := rowByID(t, rows, "seed-land-purchase")
	assert.False(t, land.ManualOverride.Has("Feb 2025"))
	assert.True(t, land.ActualFlag.Has("Feb 2025"))
	assert.True(t, land.Amount("Feb 2025").Equal(dec("300")), "Feb = %s", land.Amount("Feb 2025"))
	assert.True(t, land.Amount("Jan 2025").Equal(dec("100")), "Jan = %s", land.Amount("Jan 2025"))
	assert.True(t, land.CurrentForecast.Decimal.Equal(dec("1400")), "forecast = %s", land.CurrentForecast.Decimal)

	// Clearing the actual afterwards hands the month back to the profile.
	rows, err = e.OnEdit(ctx, Edit{RowID: "seed-land-purchase", Field: FieldActual, Period: "Feb 2025", Value: ""})
	assert.NoError(t, err)
	land = rowByID(t, rows, "seed-land-purchase")
	assert.False(t, land.ActualFlag.Has("Feb 2025"))
	assert.True(t, land.Amount("Feb 2025").Equal(land.Amount("Jan 2025")), "Feb = %s", land.Amount("Feb 2025"))
}

func TestEngine_EditsLeaveSnapshotSettled(t *testing.T) {
	edits := []Edit{
		{RowID: "seed-land-purchase", Field: FieldBudgetInput, Value: "1200"},
		{RowID: "seed-land-stamp-duty", Field: FieldBudgetInput, Value: "5"},
		{RowID: "seed-land-purchase", Field: FieldActual, Period: "Feb 2025", Value: "300"},
		{RowID: "seed-land-purchase", Field: FieldPeriod, Period: "Feb 2025", Value: "250"},
		{RowID: "seed-land-legal", Field: FieldBudgetInput, Value: "900"},
		{RowID: "seed-land-legal", Field: FieldPeriod, Period: "Mar 2026", Value: "40"},
		{RowID: "seed-land-purchase", Field: FieldPeriod, Period: "Feb 2025", Value: ""},
	}

	e := newTestEngine(t, nil)
	ctx := context.Background()
	for _, ed := range edits {
		rows, err := e.OnEdit(ctx, ed)
		assert.NoError(t, err)

		again := cashflow.Recompute(ctx, rows, e.Periods(), e.Tasks(), cashflow.Plan{
			Options: cashflow.Options{Now: fixedNow},
		})
		for i := range rows {
			assert.True(t, rows[i].Equal(again[i]), "after %s %s: row %s not settled", ed.Field, ed.RowID, rows[i].ID)
		}
	}
}
