package pipeline

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/feaso/internal/model"
)

// IsRevenueGroup reports whether a group's heading marks it as income
// rather than cost.
func IsRevenueGroup(heading string) bool {
	h := strings.ToLower(heading)
	return strings.Contains(h, "revenue") || strings.Contains(h, "income") || strings.Contains(h, "sales")
}

// revenueGroups returns the group indices whose heading marks them as
// revenue.
func revenueGroups(rows []model.Row) map[int]bool {
	out := make(map[int]bool)
	for _, r := range rows {
		if r.Kind == model.KindHeading && IsRevenueGroup(r.Name) {
			out[r.GroupIndex] = true
		}
	}
	return out
}

// Aggregate computes the project summary from a settled ledger. Peak
// outflow is the largest single-period cost across periods.
func Aggregate(rows []model.Row, periods []model.Period) model.SummaryStats {
	rev := revenueGroups(rows)
	var stats model.SummaryStats
	stats.Rows = len(rows)
	stats.Groups = len(model.Groups(rows))

	for _, r := range rows {
		if r.Kind != model.KindItem {
			continue
		}
		stats.Items++
		stats.ManualPeriods += len(r.ManualOverride)
		stats.ActualPeriods += len(r.ActualFlag)
		forecast := r.CurrentForecast.Decimal
		if rev[r.GroupIndex] {
			stats.Revenue = stats.Revenue.Add(forecast)
			continue
		}
		stats.Budget = stats.Budget.Add(r.Excl())
		stats.BudgetInclTax = stats.BudgetInclTax.Add(r.Incl())
		stats.Forecast = stats.Forecast.Add(forecast)
		stats.Previous = stats.Previous.Add(r.PreviousForecast.Decimal)
		stats.Variation = stats.Variation.Add(r.VariationToOriginal.Decimal)
	}

	stats.Margin = stats.Revenue.Sub(stats.Forecast)
	if !stats.Forecast.IsZero() {
		stats.MarginPercent = stats.Margin.Div(stats.Forecast).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	for _, f := range AggregatePeriods(rows, periods) {
		if f.Costs.GreaterThan(stats.PeakOutflow) {
			stats.PeakOutflow = f.Costs
			stats.PeakOutflowPeriod = f.Period
		}
	}
	return stats
}

// AggregatePeriods computes per-period cashflow in chronological order.
// Every known period appears, so charts show gaps as zeros.
func AggregatePeriods(rows []model.Row, periods []model.Period) []model.PeriodFlow {
	rev := revenueGroups(rows)
	byPeriod := make(map[model.Period]*model.PeriodFlow, len(periods))
	for _, p := range periods {
		byPeriod[p] = &model.PeriodFlow{Period: p}
	}

	for _, r := range rows {
		if r.Kind != model.KindItem {
			continue
		}
		for p, v := range r.PeriodAmounts {
			f, ok := byPeriod[p]
			if !ok {
				f = &model.PeriodFlow{Period: p}
				byPeriod[p] = f
			}
			if rev[r.GroupIndex] {
				f.Revenue = f.Revenue.Add(v)
				continue
			}
			f.Costs = f.Costs.Add(v)
			if r.ActualFlag.Has(p) {
				f.Actual = f.Actual.Add(v)
			}
		}
	}

	keys := make([]model.Period, 0, len(byPeriod))
	for p := range byPeriod {
		keys = append(keys, p)
	}
	model.SortPeriods(keys)

	out := make([]model.PeriodFlow, 0, len(keys))
	running := decimal.Zero
	for _, p := range keys {
		f := *byPeriod[p]
		f.Net = f.Revenue.Sub(f.Costs)
		running = running.Add(f.Net)
		f.Cumulative = running
		out = append(out, f)
	}
	return out
}

// AggregateGroups returns per-group totals, cost groups by forecast
// descending followed by revenue groups.
func AggregateGroups(rows []model.Row) []model.GroupStats {
	rev := revenueGroups(rows)
	var out []model.GroupStats
	costTotal := decimal.Zero
	for _, g := range model.Groups(rows) {
		gs := model.GroupStats{Index: g.Index, Revenue: rev[g.Index], Items: len(g.Items)}
		if g.Heading >= 0 {
			gs.Name = rows[g.Heading].Name
		}
		for _, i := range g.Items {
			gs.Budget = gs.Budget.Add(rows[i].Excl())
			gs.Forecast = gs.Forecast.Add(rows[i].CurrentForecast.Decimal)
			gs.Variation = gs.Variation.Add(rows[i].VariationToOriginal.Decimal)
		}
		if !gs.Revenue {
			costTotal = costTotal.Add(gs.Forecast)
		}
		out = append(out, gs)
	}

	if !costTotal.IsZero() {
		for i := range out {
			if !out[i].Revenue {
				out[i].SharePercent = out[i].Forecast.Div(costTotal).Mul(decimal.NewFromInt(100)).InexactFloat64()
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return !out[i].Revenue
		}
		return out[i].Forecast.GreaterThan(out[j].Forecast)
	})
	return out
}

// FilterByName returns the item rows whose name contains substr, ignoring
// case, plus the heading and total rows of every group they belong to.
func FilterByName(rows []model.Row, substr string) []model.Row {
	if substr == "" {
		return rows
	}
	keep := make(map[int]bool)
	for _, r := range rows {
		if r.Kind == model.KindItem && containsIgnoreCase(r.Name, substr) {
			keep[r.GroupIndex] = true
		}
	}
	var result []model.Row
	for _, r := range rows {
		if !keep[r.GroupIndex] {
			continue
		}
		if r.Kind == model.KindItem && !containsIgnoreCase(r.Name, substr) {
			continue
		}
		result = append(result, r)
	}
	return result
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
