package cashflow

import (
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/feaso/internal/model"
)

// RecalcTotals writes each group's item sums into its total row: both
// budgets, every forecast column and every period. A zero sum is written as
// unset (an absent period key) so "no data" and "explicitly zero" render the
// same. Groups without a total row are skipped.
func RecalcTotals(rows []model.Row) []model.Row {
	out := model.CloneRows(rows)
	for _, g := range model.Groups(out) {
		if g.Total < 0 {
			continue
		}
		var excl, incl, forecast, automated, previous, variation decimal.Decimal
		periods := make(map[model.Period]decimal.Decimal)
		for _, i := range g.Items {
			r := out[i]
			excl = excl.Add(r.Excl())
			incl = incl.Add(r.Incl())
			forecast = forecast.Add(orZero(r.CurrentForecast))
			automated = automated.Add(orZero(r.AutomatedCashflow))
			previous = previous.Add(orZero(r.PreviousForecast))
			variation = variation.Add(orZero(r.VariationToOriginal))
			for p, v := range r.PeriodAmounts {
				periods[p] = periods[p].Add(v)
			}
		}

		t := &out[g.Total]
		t.BudgetExcludingTax = blankIfZero(excl)
		t.BudgetIncludingTax = blankIfZero(incl)
		t.CurrentForecast = blankIfZero(forecast)
		t.AutomatedCashflow = blankIfZero(automated)
		t.PreviousForecast = blankIfZero(previous)
		t.VariationToOriginal = blankIfZero(variation)
		t.PeriodAmounts = nil
		for p, v := range periods {
			if !v.IsZero() {
				t.SetAmount(p, v)
			}
		}
	}
	return out
}

func blankIfZero(d decimal.Decimal) decimal.NullDecimal {
	if d.IsZero() {
		return model.Unset
	}
	return model.Set(d)
}

func orZero(n decimal.NullDecimal) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Decimal
}
