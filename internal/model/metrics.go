package model

import "github.com/shopspring/decimal"

// SummaryStats holds the project-level rollup of a settled ledger.
type SummaryStats struct {
	Rows   int
	Items  int
	Groups int

	Budget        decimal.Decimal // cost items, excluding tax
	BudgetInclTax decimal.Decimal
	Forecast      decimal.Decimal // cost items
	Previous      decimal.Decimal
	Variation     decimal.Decimal
	Revenue       decimal.Decimal // revenue items' forecast
	Margin        decimal.Decimal // Revenue - Forecast
	MarginPercent float64         // Margin / Forecast * 100, zero when no cost

	ManualPeriods int
	ActualPeriods int

	PeakOutflow       decimal.Decimal
	PeakOutflowPeriod Period
}

// PeriodFlow holds one period's cashflow across every item row.
type PeriodFlow struct {
	Period     Period
	Costs      decimal.Decimal
	Revenue    decimal.Decimal
	Net        decimal.Decimal // Revenue - Costs
	Cumulative decimal.Decimal // running Net up to and including Period
	Actual     decimal.Decimal // portion of Costs posted as actuals
}

// GroupStats holds one group's totals for breakdown views.
type GroupStats struct {
	Index        int
	Name         string
	Revenue      bool
	Items        int
	Budget       decimal.Decimal
	Forecast     decimal.Decimal
	Variation    decimal.Decimal
	SharePercent float64 // of all cost forecast; zero for revenue groups
}
