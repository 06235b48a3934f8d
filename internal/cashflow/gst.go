package cashflow

import (
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/feaso/internal/model"
)

// GSTRate is the flat goods and services tax rate.
var GSTRate = decimal.RequireFromString("0.10")

var gstMultiplier = decimal.NewFromInt(1).Add(GSTRate)

// RecalcGST derives BudgetIncludingTax for every item row.
func RecalcGST(rows []model.Row) []model.Row {
	out := model.CloneRows(rows)
	for i := range out {
		if out[i].Kind != model.KindItem {
			continue
		}
		excl := out[i].Excl()
		if out[i].TaxApplicable {
			out[i].BudgetIncludingTax = model.Set(excl.Mul(gstMultiplier))
		} else {
			out[i].BudgetIncludingTax = model.Set(excl)
		}
	}
	return out
}
