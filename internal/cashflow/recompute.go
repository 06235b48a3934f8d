package cashflow

import (
	"context"

	"github.com/theirongolddev/feaso/internal/model"
	"github.com/theirongolddev/feaso/internal/telemetry"
)

// Plan selects what a Recompute redistributes.
type Plan struct {
	Options
	// Only limits forecast redistribution to these row ids. Nil means every
	// item row. Metrics, totals and tax always cover the whole ledger.
	Only map[string]bool
}

// Recompute runs every pass in order: budgets, tax, forecast, metrics,
// totals. Tax runs before the aggregator so total rows pick up the
// tax-inclusive budgets of the same pass.
func Recompute(ctx context.Context, rows []model.Row, periods []model.Period, tasks []model.ScheduleTask, plan Plan) []model.Row {
	timer := telemetry.FromContext(ctx).Start("cashflow.Recompute")
	defer timer.End()

	step := timer.Child("budgets")
	rows = RecalcBudgets(rows, periods, tasks)
	step.End()

	step = timer.Child("gst")
	rows = RecalcGST(rows)
	step.End()

	step = timer.Child("forecast")
	rows = RecalcForecasts(rows, periods, tasks, plan.Only, plan.Options)
	step.End()

	step = timer.Child("metrics")
	rows = RecalcFinancialMetrics(rows)
	step.End()

	step = timer.Child("totals")
	rows = RecalcTotals(rows)
	step.End()

	return rows
}

// SnapshotForecast copies every item row's CurrentForecast into
// PreviousForecast and refreshes the totals.
func SnapshotForecast(rows []model.Row) []model.Row {
	out := model.CloneRows(rows)
	for i := range out {
		if out[i].Kind == model.KindItem {
			out[i].PreviousForecast = out[i].CurrentForecast
		}
	}
	return RecalcTotals(out)
}
