package daemon

import (
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/feaso/internal/model"
)

// RowView is the wire form of a ledger row. Amounts are strings with two
// decimal places; unset derived values are omitted.
type RowView struct {
	ID            string `json:"id"`
	Group         int    `json:"group"`
	Kind          string `json:"kind"`
	Name          string `json:"name"`
	SortOrder     int    `json:"sort_order"`
	BudgetInput   string `json:"budget_input"`
	Basis         string `json:"basis"`
	BasisRef      string `json:"basis_ref,omitempty"`
	Quantity      string `json:"quantity"`
	TaxApplicable bool   `json:"tax_applicable"`
	ScheduleTask  string `json:"schedule_task,omitempty"`
	Profile       string `json:"profile"`

	PeriodAmounts  map[model.Period]string `json:"period_amounts,omitempty"`
	ManualOverride []model.Period          `json:"manual_override,omitempty"`
	ActualFlag     []model.Period          `json:"actual_flag,omitempty"`

	BudgetExcludingTax  *string `json:"budget_excluding_tax,omitempty"`
	BudgetIncludingTax  *string `json:"budget_including_tax,omitempty"`
	AutomatedCashflow   *string `json:"automated_cashflow,omitempty"`
	CurrentForecast     *string `json:"current_forecast,omitempty"`
	PreviousForecast    *string `json:"previous_forecast,omitempty"`
	VariationToOriginal *string `json:"variation_to_original,omitempty"`
}

// LedgerView is served at /v1/ledger.
type LedgerView struct {
	Periods []model.Period `json:"periods"`
	Rows    []RowView      `json:"rows"`
}

// Summary is the compact project rollup carried by status and events.
type Summary struct {
	Items         int     `json:"items"`
	Budget        string  `json:"budget"`
	BudgetInclTax string  `json:"budget_incl_tax"`
	Forecast      string  `json:"forecast"`
	Variation     string  `json:"variation"`
	Revenue       string  `json:"revenue"`
	Margin        string  `json:"margin"`
	MarginPercent float64 `json:"margin_percent"`
	PeakOutflow   string  `json:"peak_outflow"`
	PeakPeriod    string  `json:"peak_period,omitempty"`
}

// FlowView is one period of /v1/cashflow.
type FlowView struct {
	Period     model.Period `json:"period"`
	Costs      string       `json:"costs"`
	Revenue    string       `json:"revenue"`
	Net        string       `json:"net"`
	Cumulative string       `json:"cumulative"`
	Actual     string       `json:"actual"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func nullMoney(n decimal.NullDecimal) *string {
	if !n.Valid {
		return nil
	}
	s := money(n.Decimal)
	return &s
}

func rowView(r model.Row) RowView {
	v := RowView{
		ID:                  r.ID,
		Group:               r.GroupIndex,
		Kind:                string(r.Kind),
		Name:                r.Name,
		SortOrder:           r.SortOrder,
		BudgetInput:         money(r.BudgetInput),
		Basis:               string(r.Basis),
		BasisRef:            r.BasisRef,
		Quantity:            money(r.Quantity),
		TaxApplicable:       r.TaxApplicable,
		ScheduleTask:        r.ScheduleTask,
		Profile:             string(r.Profile),
		ManualOverride:      r.ManualOverride.Sorted(),
		ActualFlag:          r.ActualFlag.Sorted(),
		BudgetExcludingTax:  nullMoney(r.BudgetExcludingTax),
		BudgetIncludingTax:  nullMoney(r.BudgetIncludingTax),
		AutomatedCashflow:   nullMoney(r.AutomatedCashflow),
		CurrentForecast:     nullMoney(r.CurrentForecast),
		PreviousForecast:    nullMoney(r.PreviousForecast),
		VariationToOriginal: nullMoney(r.VariationToOriginal),
	}
	if len(r.PeriodAmounts) > 0 {
		v.PeriodAmounts = make(map[model.Period]string, len(r.PeriodAmounts))
		for p, a := range r.PeriodAmounts {
			v.PeriodAmounts[p] = money(a)
		}
	}
	return v
}

func ledgerView(rows []model.Row, periods []model.Period) LedgerView {
	out := LedgerView{Periods: periods, Rows: make([]RowView, len(rows))}
	if out.Periods == nil {
		out.Periods = []model.Period{}
	}
	for i, r := range rows {
		out.Rows[i] = rowView(r)
	}
	return out
}

func summarize(s model.SummaryStats) Summary {
	return Summary{
		Items:         s.Items,
		Budget:        money(s.Budget),
		BudgetInclTax: money(s.BudgetInclTax),
		Forecast:      money(s.Forecast),
		Variation:     money(s.Variation),
		Revenue:       money(s.Revenue),
		Margin:        money(s.Margin),
		MarginPercent: s.MarginPercent,
		PeakOutflow:   money(s.PeakOutflow),
		PeakPeriod:    string(s.PeakOutflowPeriod),
	}
}

func flowView(f model.PeriodFlow) FlowView {
	return FlowView{
		Period:     f.Period,
		Costs:      money(f.Costs),
		Revenue:    money(f.Revenue),
		Net:        money(f.Net),
		Cumulative: money(f.Cumulative),
		Actual:     money(f.Actual),
	}
}
