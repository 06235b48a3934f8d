package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/feaso/internal/cashflow"
	"github.com/theirongolddev/feaso/internal/model"
)

// benchLedger builds a seeded ledger with n extra items per group spread over
// a five-year schedule.
func benchLedger(n int) ([]model.Row, []model.ScheduleTask, []model.Period) {
	rows := model.Seed()
	groups := model.Groups(rows)
	for _, g := range groups {
		for i := 0; i < n; i++ {
			rows = append(rows, model.Row{
				ID:          fmt.Sprintf("bench-%d-%d", g.Index, i),
				GroupIndex:  g.Index,
				Kind:        model.KindItem,
				Name:        fmt.Sprintf("Item %d", i),
				SortOrder:   100 + i,
				Basis:       model.BasisLumpSum,
				BudgetInput: decimal.NewFromInt(int64(10_000 * (i + 1))),
				Profile:     model.ProfileSCurve,
			})
		}
	}
	model.SortRows(rows)

	tasks := []model.ScheduleTask{
		{Name: "Design", StartDate: "2025-01-01", EndDate: "2025-12-31"},
		{Name: "Construction", StartDate: "2026-01-01", EndDate: "2029-06-30"},
	}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	periods := model.MonthRange(start, start.AddDate(5, 0, -1))
	return rows, tasks, periods
}

func BenchmarkRecompute(b *testing.B) {
	rows, tasks, periods := benchLedger(50)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rows = cashflow.Recompute(ctx, rows, periods, tasks, cashflow.Plan{})
	}
}

func BenchmarkOnEdit(b *testing.B) {
	rows, tasks, _ := benchLedger(50)
	e := New(Config{})
	ctx := context.Background()
	if _, err := e.OnBulkLoad(ctx, rows, tasks); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := e.OnEdit(ctx, Edit{RowID: "bench-1-0", Field: FieldBudgetInput, Value: fmt.Sprint(1000 + i)})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAggregatePeriods(b *testing.B) {
	rows, tasks, periods := benchLedger(50)
	rows = cashflow.Recompute(context.Background(), rows, periods, tasks, cashflow.Plan{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = AggregatePeriods(rows, periods)
	}
}
