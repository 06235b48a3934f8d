package pipeline

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/feaso/internal/model"
)

func summaryLedger() []model.Row {
	amounts := func(kv ...string) map[model.Period]decimal.Decimal {
		out := map[model.Period]decimal.Decimal{}
		for i := 0; i < len(kv); i += 2 {
			out[model.Period(kv[i])] = dec(kv[i+1])
		}
		return out
	}
	return []model.Row{
		{ID: "h0", GroupIndex: 0, Kind: model.KindHeading, Name: "Construction"},
		{
			ID: "build", GroupIndex: 0, Kind: model.KindItem, Name: "Build",
			BudgetExcludingTax: model.Set(dec("300")), BudgetIncludingTax: model.Set(dec("330")),
			CurrentForecast: model.Set(dec("300")), PeriodAmounts: amounts("Jan 2025", "100", "Feb 2025", "200"),
			ActualFlag: model.PeriodSet{"Jan 2025": true},
		},
		{ID: "h1", GroupIndex: 1, Kind: model.KindHeading, Name: "Professional Fees"},
		{
			ID: "arch", GroupIndex: 1, Kind: model.KindItem, Name: "Architect",
			BudgetExcludingTax: model.Set(dec("100")), CurrentForecast: model.Set(dec("100")),
			PeriodAmounts: amounts("Jan 2025", "100"),
		},
		{ID: "h2", GroupIndex: 2, Kind: model.KindHeading, Name: "Revenue"},
		{
			ID: "sales", GroupIndex: 2, Kind: model.KindItem, Name: "Sales",
			CurrentForecast: model.Set(dec("500")), PeriodAmounts: amounts("Mar 2025", "500"),
		},
	}
}

func TestAggregate(t *testing.T) {
	periods := []model.Period{"Jan 2025", "Feb 2025", "Mar 2025"}
	stats := Aggregate(summaryLedger(), periods)

	assert.Equal(t, 3, stats.Items)
	assert.Equal(t, 3, stats.Groups)
	assert.True(t, stats.Forecast.Equal(dec("400")), "Forecast = %s", stats.Forecast)
	assert.True(t, stats.Revenue.Equal(dec("500")), "Revenue = %s", stats.Revenue)
	assert.True(t, stats.Margin.Equal(dec("100")), "Margin = %s", stats.Margin)
	assert.Equal(t, 25.0, stats.MarginPercent)
	assert.Equal(t, 1, stats.ActualPeriods)
	assert.Equal(t, model.Period("Jan 2025"), stats.PeakOutflowPeriod)
	assert.True(t, stats.PeakOutflow.Equal(dec("200")))
}

func TestAggregatePeriods(t *testing.T) {
	periods := []model.Period{"Dec 2024", "Jan 2025", "Feb 2025", "Mar 2025"}
	flows := AggregatePeriods(summaryLedger(), periods)
	assert.Equal(t, 4, len(flows))

	wantNet := []string{"0", "-200", "-200", "500"}
	wantCum := []string{"0", "-200", "-400", "100"}
	for i, f := range flows {
		assert.Equal(t, periods[i], f.Period)
		assert.True(t, f.Net.Equal(dec(wantNet[i])), "%s net = %s", f.Period, f.Net)
		assert.True(t, f.Cumulative.Equal(dec(wantCum[i])), "%s cumulative = %s", f.Period, f.Cumulative)
	}
	assert.True(t, flows[1].Actual.Equal(dec("100")))
}

func TestAggregateGroups(t *testing.T) {
	groups := AggregateGroups(summaryLedger())
	assert.Equal(t, 3, len(groups))
	assert.Equal(t, "Construction", groups[0].Name)
	assert.Equal(t, 75.0, groups[0].SharePercent)
	assert.Equal(t, "Professional Fees", groups[1].Name)
	assert.True(t, groups[2].Revenue)
}

func TestFilterByName(t *testing.T) {
	rows := FilterByName(summaryLedger(), "ARCH")
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"h1", "arch"}, ids)
	assert.Equal(t, 6, len(FilterByName(summaryLedger(), "")))
}
