package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSortPeriods_Chronological(t *testing.T) {
	ps := []Period{"Mar 2025", "bogus", "Dec 2024", "Jan 2025"}
	SortPeriods(ps)
	want := []Period{"Dec 2024", "Jan 2025", "Mar 2025", "bogus"}
	for i := range want {
		if ps[i] != want[i] {
			t.Fatalf("SortPeriods = %v, want %v", ps, want)
		}
	}
}

func TestMonthRange(t *testing.T) {
	start := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	got := MonthRange(start, end)
	want := []Period{"Nov 2025", "Dec 2025", "Jan 2026", "Feb 2026"}
	if len(got) != len(want) {
		t.Fatalf("MonthRange len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MonthRange[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if MonthRange(end, start) != nil {
		t.Fatal("MonthRange with end before start should be nil")
	}
}

func TestScheduleTaskWindow_Malformed(t *testing.T) {
	if _, _, ok := (ScheduleTask{Name: "x", StartDate: "soon", EndDate: "2025-02-01"}).Window(); ok {
		t.Fatal("malformed start date should not yield a window")
	}
	if _, _, ok := (ScheduleTask{Name: "x", StartDate: "2025-03-01", EndDate: "2025-02-01"}).Window(); ok {
		t.Fatal("end before start should not yield a window")
	}
	s, e, ok := (ScheduleTask{StartDate: "2025-01", EndDate: "2025-06-30"}).Window()
	if !ok || s.Month() != time.January || e.Month() != time.June {
		t.Fatalf("Window = %v..%v ok=%v", s, e, ok)
	}
}

func TestProjectSpan_SkipsMalformed(t *testing.T) {
	tasks := []ScheduleTask{
		{Name: "a", StartDate: "2025-03-01", EndDate: "2025-05-01"},
		{Name: "b", StartDate: "nope", EndDate: "2030-01-01"},
		{Name: "c", StartDate: "2025-01-10", EndDate: "2025-04-01"},
	}
	s, e, ok := ProjectSpan(tasks)
	if !ok {
		t.Fatal("expected a span")
	}
	if PeriodOf(s) != "Jan 2025" || PeriodOf(e) != "May 2025" {
		t.Fatalf("span = %s..%s, want Jan 2025..May 2025", PeriodOf(s), PeriodOf(e))
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"1200":      "1200",
		" $1,250.50": "1250.5",
		"":          "0",
		"abc":       "0",
		"-3.25":     "-3.25",
	}
	for in, want := range cases {
		if got := ParseAmount(in); !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestRowCloneIsDeep(t *testing.T) {
	r := Row{ID: "a", ManualOverride: PeriodSet{"Jan 2025": true}}
	r.SetAmount("Jan 2025", decimal.NewFromInt(5))

	c := r.Clone()
	c.SetAmount("Jan 2025", decimal.NewFromInt(9))
	c.ManualOverride["Feb 2025"] = true

	if !r.Amount("Jan 2025").Equal(decimal.NewFromInt(5)) {
		t.Fatal("clone aliased PeriodAmounts")
	}
	if r.ManualOverride.Has("Feb 2025") {
		t.Fatal("clone aliased ManualOverride")
	}
	if r.Equal(c) {
		t.Fatal("rows with different amounts reported equal")
	}
}

func TestRowEqual_ZeroEntryMatchesAbsent(t *testing.T) {
	a := Row{ID: "a"}
	b := Row{ID: "a"}
	b.SetAmount("Jan 2025", decimal.Zero)
	if !a.Equal(b) {
		t.Fatal("explicit zero period should equal an absent period")
	}
}

func TestSeedIsValid(t *testing.T) {
	if err := Validate(Seed()); err != nil {
		t.Fatalf("Seed() invalid: %v", err)
	}
	for _, g := range Groups(Seed()) {
		if g.Total < 0 {
			t.Errorf("seed group %d has no total row", g.Index)
		}
	}
}

func TestValidate_DuplicateHeading(t *testing.T) {
	rows := []Row{
		{ID: "h1", Kind: KindHeading},
		{ID: "h2", Kind: KindHeading},
	}
	if err := Validate(rows); err == nil {
		t.Fatal("expected duplicate heading error")
	}
}

func TestMerge_ByIDAndByName(t *testing.T) {
	seed := Seed()
	persisted := []Row{
		{ID: "seed-land-purchase", GroupIndex: 0, Kind: KindItem, Name: "Land Purchase", BudgetInput: decimal.NewFromInt(900)},
		{ID: "db-legal", GroupIndex: 0, Kind: KindItem, Name: "Legal Fees", BudgetInput: decimal.NewFromInt(40)},
		{ID: "db-survey", GroupIndex: 0, Kind: KindItem, Name: "Survey", SortOrder: 9},
	}

	merged := Merge(seed, persisted)
	if len(merged) != len(seed)+1 {
		t.Fatalf("merged len = %d, want %d", len(merged), len(seed)+1)
	}
	idx := IndexByID(merged)
	if _, ok := idx["seed-land-legal"]; ok {
		t.Fatal("seed legal row should be replaced by the name-matched persisted row")
	}
	if !merged[idx["db-legal"]].BudgetInput.Equal(decimal.NewFromInt(40)) {
		t.Fatal("name-matched row lost its persisted budget")
	}
	if !merged[idx["seed-land-purchase"]].BudgetInput.Equal(decimal.NewFromInt(900)) {
		t.Fatal("id-matched row lost its persisted budget")
	}
	if _, ok := idx["db-survey"]; !ok {
		t.Fatal("unmatched persisted row should extend the ledger")
	}
	if err := Validate(merged); err != nil {
		t.Fatalf("merged ledger invalid: %v", err)
	}
	// total row stays last in its group
	g := Groups(merged)[0]
	if g.Total != g.Items[len(g.Items)-1]+1 {
		t.Fatalf("total row not after items: %+v", g)
	}
}
