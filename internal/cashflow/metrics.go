package cashflow

import (
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/feaso/internal/model"
)

// RecalcFinancialMetrics derives CurrentForecast, AutomatedCashflow and
// VariationToOriginal for every item row. After this pass the sum of a
// row's period amounts equals its CurrentForecast unless its fixed entries
// exceed that sum (only possible with negative amounts), in which case the
// fixed total stands as the forecast.
func RecalcFinancialMetrics(rows []model.Row) []model.Row {
	out := model.CloneRows(rows)
	for i := range out {
		if out[i].Kind != model.KindItem {
			continue
		}
		deriveMetrics(&out[i])
	}
	return out
}

func deriveMetrics(r *model.Row) {
	all := make(model.PeriodSet, len(r.PeriodAmounts))
	for p := range r.PeriodAmounts {
		all[p] = true
	}
	for p := range r.FixedPeriods() {
		all[p] = true
	}

	totalAll, totalFixed := decimal.Zero, decimal.Zero
	for p := range all {
		v := r.Amount(p)
		totalAll = totalAll.Add(v)
		if r.IsFixed(p) {
			totalFixed = totalFixed.Add(v)
		}
	}

	if totalFixed.GreaterThan(totalAll) {
		r.CurrentForecast = model.Set(totalFixed)
		r.AutomatedCashflow = model.Set(decimal.Zero)
	} else {
		r.CurrentForecast = model.Set(totalAll)
		r.AutomatedCashflow = model.Set(totalAll.Sub(totalFixed))
	}
	// Variance is measured against the amount the user entered, not the
	// basis-derived budget.
	r.VariationToOriginal = model.Set(r.CurrentForecast.Decimal.Sub(r.BudgetInput))
}
