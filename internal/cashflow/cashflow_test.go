package cashflow

import (
	"context"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/feaso/internal/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func year2025() []model.Period {
	return model.MonthRange(
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
	)
}

func itemWithBudget(budget string) model.Row {
	return model.Row{
		ID:                 "item",
		Kind:               model.KindItem,
		Basis:              model.BasisLumpSum,
		BudgetInput:        d(budget),
		BudgetExcludingTax: model.Set(d(budget)),
		Profile:            model.ProfileLinear,
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "%s = %s, want %s", msg, got, want)
}

var tolerance = decimal.New(1, -9)

func assertNear(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Sub(d(want)).Abs().LessThan(tolerance), "%s = %s, want ~%s", msg, got, want)
}

func sumAmounts(r model.Row) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range r.PeriodAmounts {
		sum = sum.Add(v)
	}
	return sum
}

var june2025 = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

func TestForecast_LinearTwelvePeriods(t *testing.T) {
	out := RecalcForecastForRow(itemWithBudget("1200"), year2025(), nil, Options{Now: june2025})
	assert.Equal(t, 12, len(out.PeriodAmounts))
	for _, p := range year2025() {
		assertDecimal(t, "100.00", out.Amount(p), string(p))
	}
}

func TestForecast_OverrideSaturatesBudget(t *testing.T) {
	row := itemWithBudget("1000")
	row.SetAmount("Mar 2025", d("1200"))
	row.ManualOverride = model.PeriodSet{"Mar 2025": true}

	out := RecalcForecastForRow(row, year2025(), nil, Options{Now: june2025})
	for _, p := range year2025() {
		want := "0"
		if p == "Mar 2025" {
			want = "1200"
		}
		assertDecimal(t, want, out.Amount(p), string(p))
	}

	rows := RecalcFinancialMetrics([]model.Row{out})
	assertDecimal(t, "1200", rows[0].CurrentForecast.Decimal, "CurrentForecast")
	assertDecimal(t, "0", rows[0].AutomatedCashflow.Decimal, "AutomatedCashflow")
}

func TestForecast_NoScheduleUsesWholeRange(t *testing.T) {
	row := itemWithBudget("600")
	periods := year2025()[:6]
	out := RecalcForecastForRow(row, periods, nil, Options{})
	for _, p := range periods {
		assertDecimal(t, "100", out.Amount(p), string(p))
	}
}

func TestForecast_TaskWindowAndFixedOutside(t *testing.T) {
	tasks := []model.ScheduleTask{{Name: "Build", StartDate: "2025-03-10", EndDate: "2025-05-20"}}
	row := itemWithBudget("350")
	row.ScheduleTask = "Build"
	row.SetAmount("Jan 2025", d("50"))
	row.ManualOverride = model.PeriodSet{"Jan 2025": true}
	row.SetAmount("Dec 2025", d("77")) // stale leftover from an older window

	out := RecalcForecastForRow(row, year2025(), tasks, Options{})
	assertDecimal(t, "50", out.Amount("Jan 2025"), "Jan")
	for _, p := range []model.Period{"Mar 2025", "Apr 2025", "May 2025"} {
		assertDecimal(t, "100", out.Amount(p), string(p))
	}
	assertDecimal(t, "0", out.Amount("Dec 2025"), "Dec")
	assertDecimal(t, "0", out.Amount("Feb 2025"), "Feb")
}

func TestForecast_ProjectSpanWhenUnlinked(t *testing.T) {
	tasks := []model.ScheduleTask{
		{Name: "Design", StartDate: "2025-02-01", EndDate: "2025-03-31"},
		{Name: "Build", StartDate: "2025-04-01", EndDate: "2025-05-31"},
	}
	out := RecalcForecastForRow(itemWithBudget("400"), year2025(), tasks, Options{})
	for _, p := range []model.Period{"Feb 2025", "Mar 2025", "Apr 2025", "May 2025"} {
		assertDecimal(t, "100", out.Amount(p), string(p))
	}
	assertDecimal(t, "0", out.Amount("Jan 2025"), "Jan")
}

func TestForecast_BadTaskReferenceFallsBackToFullRange(t *testing.T) {
	tasks := []model.ScheduleTask{
		{Name: "Build", StartDate: "2025-03-01", EndDate: "2025-05-31"},
		{Name: "Broken", StartDate: "tbd", EndDate: "2025-05-31"},
	}
	for _, ref := range []string{"Broken", "Missing"} {
		row := itemWithBudget("1200")
		row.ScheduleTask = ref
		out := RecalcForecastForRow(row, year2025(), tasks, Options{})
		for _, p := range year2025() {
			assertDecimal(t, "100", out.Amount(p), ref+" "+string(p))
		}
	}
}

func TestForecast_InsertsCurrentPeriod(t *testing.T) {
	periods := []model.Period{"Jan 2025", "Feb 2025", "Apr 2025"}
	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	out := RecalcForecastForRow(itemWithBudget("400"), periods, nil, Options{Now: now})
	for _, p := range []model.Period{"Jan 2025", "Feb 2025", "Mar 2025", "Apr 2025"} {
		assertDecimal(t, "100", out.Amount(p), string(p))
	}
}

func TestForecast_ActualsAndEditedPeriodHeldFixed(t *testing.T) {
	row := itemWithBudget("1200")
	row.SetAmount("Jan 2025", d("300"))
	row.ActualFlag = model.PeriodSet{"Jan 2025": true}
	row.SetAmount("Feb 2025", d("200"))

	out := RecalcForecastForRow(row, year2025(), nil, Options{EditedPeriod: "Feb 2025"})
	assertDecimal(t, "300", out.Amount("Jan 2025"), "Jan actual")
	assertDecimal(t, "200", out.Amount("Feb 2025"), "Feb edited")
	for _, p := range year2025()[2:] {
		assertDecimal(t, "70", out.Amount(p), string(p))
	}
}

func TestForecast_ProfileOverride(t *testing.T) {
	out := RecalcForecastForRow(itemWithBudget("1000"), year2025()[:10], nil, Options{Profile: model.ProfileSCurve})
	assert.True(t, out.Amount("Aug 2025").GreaterThan(out.Amount("Jan 2025")))
	assert.True(t, out.Amount("Oct 2025").LessThan(out.Amount("Aug 2025")))
}

func TestForecast_EmptySetLeavesRowUnchanged(t *testing.T) {
	row := itemWithBudget("100")
	out := RecalcForecastForRow(row, nil, nil, Options{})
	assert.True(t, row.Equal(out))
}

func TestForecast_NonItemRowsUntouched(t *testing.T) {
	row := model.Row{ID: "h", Kind: model.KindHeading}
	row.SetAmount("Jan 2025", d("5"))
	out := RecalcForecastForRow(row, year2025(), nil, Options{})
	assertDecimal(t, "5", out.Amount("Jan 2025"), "heading amount")
}

func sampleLedger() []model.Row {
	rows := []model.Row{
		{ID: "h0", GroupIndex: 0, Kind: model.KindHeading, Name: "Land"},
		{ID: "land", GroupIndex: 0, Kind: model.KindItem, Name: "Land", Basis: model.BasisLumpSum, BudgetInput: d("1000000")},
		{ID: "duty", GroupIndex: 0, Kind: model.KindItem, Name: "Duty", Basis: model.BasisPercentOfRow, BasisRef: "land", BudgetInput: d("5.5")},
		{ID: "t0", GroupIndex: 0, Kind: model.KindGroupTotal, Name: "Total Land"},
		{ID: "h1", GroupIndex: 1, Kind: model.KindHeading, Name: "Build"},
		{ID: "build", GroupIndex: 1, Kind: model.KindItem, Name: "Build", Basis: model.BasisLumpSum, BudgetInput: d("2400"), TaxApplicable: true, Profile: model.ProfileSCurve, ScheduleTask: "Construction"},
		{ID: "pm", GroupIndex: 1, Kind: model.KindItem, Name: "PM", Basis: model.BasisPerMonth, BudgetInput: d("10"), ScheduleTask: "Construction", TaxApplicable: true},
		{ID: "t1", GroupIndex: 1, Kind: model.KindGroupTotal, Name: "Total Build"},
	}
	rows[5].SetAmount("Apr 2025", d("900"))
	rows[5].ActualFlag = model.PeriodSet{"Apr 2025": true}
	return rows
}

var sampleTasks = []model.ScheduleTask{{Name: "Construction", StartDate: "2025-03-01", EndDate: "2025-08-31"}}

func TestRecompute_FixedPointAndReconciliation(t *testing.T) {
	ctx := context.Background()
	plan := Plan{Options: Options{Now: june2025}}
	first := Recompute(ctx, sampleLedger(), year2025(), sampleTasks, plan)
	second := Recompute(ctx, first, year2025(), sampleTasks, plan)

	assert.Equal(t, len(first), len(second))
	for i := range first {
		assert.True(t, first[i].Equal(second[i]), "row %s changed on second pass", first[i].ID)
	}

	for _, r := range second {
		if r.Kind != model.KindItem {
			continue
		}
		assert.True(t, sumAmounts(r).Equal(r.CurrentForecast.Decimal),
			"row %s: sum %s != forecast %s", r.ID, sumAmounts(r), r.CurrentForecast.Decimal)
	}
}

func TestRecompute_AggregationInvariant(t *testing.T) {
	rows := Recompute(context.Background(), sampleLedger(), year2025(), sampleTasks, Plan{})
	for _, g := range model.Groups(rows) {
		total := rows[g.Total]
		excl, incl := decimal.Zero, decimal.Zero
		perPeriod := map[model.Period]decimal.Decimal{}
		for _, i := range g.Items {
			excl = excl.Add(rows[i].Excl())
			incl = incl.Add(rows[i].Incl())
			for p, v := range rows[i].PeriodAmounts {
				perPeriod[p] = perPeriod[p].Add(v)
			}
		}
		assert.True(t, total.Excl().Equal(excl), "group %d excl %s != %s", g.Index, total.Excl(), excl)
		assert.True(t, total.Incl().Equal(incl), "group %d incl %s != %s", g.Index, total.Incl(), incl)
		for p, v := range perPeriod {
			assert.True(t, total.Amount(p).Equal(v), "group %d %s: %s != %s", g.Index, p, total.Amount(p), v)
		}
	}
}

func TestRecompute_BudgetBases(t *testing.T) {
	rows := Recompute(context.Background(), sampleLedger(), year2025(), sampleTasks, Plan{})
	idx := model.IndexByID(rows)
	assertDecimal(t, "55000", rows[idx["duty"]].Excl(), "duty")
	assertDecimal(t, "60", rows[idx["pm"]].Excl(), "pm (6 months)")
	assertDecimal(t, "66", rows[idx["pm"]].Incl(), "pm incl")
	assertDecimal(t, "1055000", rows[idx["t0"]].Excl(), "land total")
	assert.False(t, rows[idx["h0"]].BudgetExcludingTax.Valid)

	build := rows[idx["build"]]
	assertDecimal(t, "900", build.Amount("Apr 2025"), "posted actual")
	assertNear(t, "2400", build.CurrentForecast.Decimal, "build forecast")
	assertNear(t, "1500", build.AutomatedCashflow.Decimal, "build automated")
	assertNear(t, "0", build.VariationToOriginal.Decimal, "build variance")
}

func TestRecalcBudgets_OtherBases(t *testing.T) {
	tasks := []model.ScheduleTask{{Name: "Four weeks", StartDate: "2025-02-01", EndDate: "2025-02-28"}}
	rows := []model.Row{
		{ID: "a", GroupIndex: 0, Kind: model.KindItem, Basis: model.BasisLumpSum, BudgetInput: d("100")},
		{ID: "b", GroupIndex: 0, Kind: model.KindItem, Basis: model.BasisLumpSum, BudgetInput: d("300")},
		{ID: "unit", GroupIndex: 1, Kind: model.KindItem, Basis: model.BasisPerUnit, BudgetInput: d("25"), Quantity: d("8")},
		{ID: "week", GroupIndex: 1, Kind: model.KindItem, Basis: model.BasisPerWeek, BudgetInput: d("50"), ScheduleTask: "Four weeks"},
		{ID: "grp", GroupIndex: 1, Kind: model.KindItem, Basis: model.BasisPercentOfGroup, BasisRef: "0", BudgetInput: d("10")},
		{ID: "selfgrp", GroupIndex: 1, Kind: model.KindItem, Basis: model.BasisPercentOfGroup, BasisRef: "1", BudgetInput: d("0")},
		{ID: "loop1", GroupIndex: 2, Kind: model.KindItem, Basis: model.BasisPercentOfRow, BasisRef: "loop2", BudgetInput: d("50")},
		{ID: "loop2", GroupIndex: 2, Kind: model.KindItem, Basis: model.BasisPercentOfRow, BasisRef: "loop1", BudgetInput: d("50")},
		{ID: "dangling", GroupIndex: 2, Kind: model.KindItem, Basis: model.BasisPercentOfRow, BasisRef: "nope", BudgetInput: d("50")},
	}
	out := RecalcBudgets(rows, year2025(), tasks)
	idx := model.IndexByID(out)
	assertDecimal(t, "200", out[idx["unit"]].Excl(), "per unit")
	assertDecimal(t, "200", out[idx["week"]].Excl(), "per week")
	assertDecimal(t, "40", out[idx["grp"]].Excl(), "percent of group")
	assertDecimal(t, "0", out[idx["selfgrp"]].Excl(), "percent of own group")
	assertDecimal(t, "0", out[idx["loop1"]].Excl(), "cycle")
	assertDecimal(t, "0", out[idx["loop2"]].Excl(), "cycle")
	assertDecimal(t, "0", out[idx["dangling"]].Excl(), "dangling ref")
}

func TestRecalcTotals_TaxExample(t *testing.T) {
	build := func(taxC bool) []model.Row {
		rows := []model.Row{
			{ID: "h", Kind: model.KindHeading},
			{ID: "a", Kind: model.KindItem, BudgetExcludingTax: model.Set(d("100")), TaxApplicable: true},
			{ID: "b", Kind: model.KindItem, BudgetExcludingTax: model.Set(d("200")), TaxApplicable: true},
			{ID: "c", Kind: model.KindItem, BudgetExcludingTax: model.Set(d("0")), TaxApplicable: taxC},
			{ID: "t", Kind: model.KindGroupTotal},
		}
		return RecalcTotals(RecalcGST(rows))
	}

	for _, taxC := range []bool{false, true} {
		rows := build(taxC)
		assertDecimal(t, "300", rows[4].Excl(), "total excl")
		assertDecimal(t, "330", rows[4].Incl(), "total incl")
	}
}

func TestRecalcTotals_ZeroIsBlank(t *testing.T) {
	rows := []model.Row{
		{ID: "h", GroupIndex: 3, Kind: model.KindHeading},
		{ID: "a", GroupIndex: 3, Kind: model.KindItem, BudgetExcludingTax: model.Set(d("0"))},
		{ID: "t", GroupIndex: 3, Kind: model.KindGroupTotal},
		{ID: "h2", GroupIndex: 4, Kind: model.KindHeading},
		{ID: "b", GroupIndex: 4, Kind: model.KindItem, BudgetExcludingTax: model.Set(d("5"))},
	}
	rows[1].SetAmount("Jan 2025", d("0"))
	out := RecalcTotals(rows)
	assert.False(t, out[2].BudgetExcludingTax.Valid)
	assert.False(t, out[2].CurrentForecast.Valid)
	_, has := out[2].PeriodAmounts["Jan 2025"]
	assert.False(t, has)
}

func TestRecalcGST(t *testing.T) {
	rows := RecalcGST([]model.Row{
		{ID: "a", Kind: model.KindItem, BudgetExcludingTax: model.Set(d("250")), TaxApplicable: true},
		{ID: "b", Kind: model.KindItem, BudgetExcludingTax: model.Set(d("250"))},
	})
	assertDecimal(t, "275", rows[0].Incl(), "taxed")
	assertDecimal(t, "250", rows[1].Incl(), "untaxed")
}

func TestSnapshotForecast(t *testing.T) {
	rows := Recompute(context.Background(), sampleLedger(), year2025(), sampleTasks, Plan{})
	snap := SnapshotForecast(rows)
	idx := model.IndexByID(snap)
	land := snap[idx["land"]]
	assert.True(t, land.PreviousForecast.Decimal.Equal(land.CurrentForecast.Decimal))
	assertDecimal(t, "1055000", snap[idx["t0"]].PreviousForecast.Decimal, "total previous")
}

func TestPassesDoNotAlias(t *testing.T) {
	rows := sampleLedger()
	before := model.CloneRows(rows)
	_ = Recompute(context.Background(), rows, year2025(), sampleTasks, Plan{})
	for i := range rows {
		assert.True(t, rows[i].Equal(before[i]), "input row %s mutated", rows[i].ID)
	}
}
