// Package model defines the ledger, period and schedule types shared by the
// feaso engine, stores and surfaces.
package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Kind classifies a ledger row. It is set at creation and never changes.
type Kind string

const (
	KindHeading    Kind = "heading"
	KindItem       Kind = "item"
	KindGroupTotal Kind = "total"
)

// ParseKind maps a stored kind label to a Kind, defaulting to KindItem.
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindHeading:
		return KindHeading
	case KindGroupTotal:
		return KindGroupTotal
	default:
		return KindItem
	}
}

// Basis selects the formula that turns BudgetInput into BudgetExcludingTax.
type Basis string

const (
	BasisLumpSum        Basis = "lump_sum"
	BasisPercentOfRow   Basis = "percent_of_row"   // BasisRef holds a row id
	BasisPercentOfGroup Basis = "percent_of_group" // BasisRef holds a group index
	BasisPerUnit        Basis = "per_unit"         // multiplied by Quantity
	BasisPerMonth       Basis = "per_month"        // multiplied by window length in months
	BasisPerWeek        Basis = "per_week"         // multiplied by window length in weeks
)

// Bases lists every supported basis in display order.
var Bases = []Basis{BasisLumpSum, BasisPercentOfRow, BasisPercentOfGroup, BasisPerUnit, BasisPerMonth, BasisPerWeek}

// ParseBasis maps a label to a Basis; unknown labels become BasisLumpSum.
func ParseBasis(s string) Basis {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	for _, b := range Bases {
		if string(b) == s {
			return b
		}
	}
	return BasisLumpSum
}

// Profile names a cashflow weighting curve.
type Profile string

const (
	ProfileLinear Profile = "linear"
	ProfileSCurve Profile = "s-curve"
)

// ParseProfile maps a label to a Profile; anything that is not an S-curve
// spelling is linear.
func ParseProfile(s string) Profile {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s-curve", "scurve", "s_curve", "s curve", "s":
		return ProfileSCurve
	default:
		return ProfileLinear
	}
}

// Row is one ledger line. PeriodAmounts is sparse: an absent period is zero.
type Row struct {
	ID         string
	GroupIndex int
	Kind       Kind
	Name       string
	SortOrder  int

	BudgetInput   decimal.Decimal
	Basis         Basis
	BasisRef      string
	Quantity      decimal.Decimal
	TaxApplicable bool
	ScheduleTask  string
	Profile       Profile

	PeriodAmounts  map[Period]decimal.Decimal
	ManualOverride PeriodSet
	ActualFlag     PeriodSet

	// Derived on every recompute. Unset (Valid=false) means "no data".
	BudgetExcludingTax  decimal.NullDecimal
	BudgetIncludingTax  decimal.NullDecimal
	AutomatedCashflow   decimal.NullDecimal
	CurrentForecast     decimal.NullDecimal
	PreviousForecast    decimal.NullDecimal
	VariationToOriginal decimal.NullDecimal
}

// Excl returns BudgetExcludingTax, treating unset as zero.
func (r Row) Excl() decimal.Decimal { return orZero(r.BudgetExcludingTax) }

// Incl returns BudgetIncludingTax, treating unset as zero.
func (r Row) Incl() decimal.Decimal { return orZero(r.BudgetIncludingTax) }

// Amount returns the row's amount for p, zero when absent.
func (r Row) Amount(p Period) decimal.Decimal {
	return r.PeriodAmounts[p]
}

// IsFixed reports whether p is a manual override or a posted actual.
func (r Row) IsFixed(p Period) bool {
	return r.ManualOverride.Has(p) || r.ActualFlag.Has(p)
}

// FixedPeriods returns the union of manual-override and actual periods.
func (r Row) FixedPeriods() PeriodSet {
	out := make(PeriodSet, len(r.ManualOverride)+len(r.ActualFlag))
	for p, ok := range r.ManualOverride {
		if ok {
			out[p] = true
		}
	}
	for p, ok := range r.ActualFlag {
		if ok {
			out[p] = true
		}
	}
	return out
}

// SetAmount writes an amount for p, allocating the map on first use.
func (r *Row) SetAmount(p Period, v decimal.Decimal) {
	if r.PeriodAmounts == nil {
		r.PeriodAmounts = make(map[Period]decimal.Decimal)
	}
	r.PeriodAmounts[p] = v
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	out := r
	if r.PeriodAmounts != nil {
		out.PeriodAmounts = make(map[Period]decimal.Decimal, len(r.PeriodAmounts))
		for p, v := range r.PeriodAmounts {
			out.PeriodAmounts[p] = v
		}
	}
	out.ManualOverride = r.ManualOverride.Clone()
	out.ActualFlag = r.ActualFlag.Clone()
	return out
}

// Equal reports whether two rows hold the same values. Decimals compare by
// value, so 1.0 equals 1.00, and a zero period entry equals an absent one.
func (r Row) Equal(o Row) bool {
	if r.ID != o.ID || r.GroupIndex != o.GroupIndex || r.Kind != o.Kind || r.Name != o.Name ||
		r.SortOrder != o.SortOrder || r.Basis != o.Basis || r.BasisRef != o.BasisRef ||
		r.TaxApplicable != o.TaxApplicable || r.ScheduleTask != o.ScheduleTask || r.Profile != o.Profile {
		return false
	}
	if !r.BudgetInput.Equal(o.BudgetInput) || !r.Quantity.Equal(o.Quantity) {
		return false
	}
	if !nullEqual(r.BudgetExcludingTax, o.BudgetExcludingTax) ||
		!nullEqual(r.BudgetIncludingTax, o.BudgetIncludingTax) ||
		!nullEqual(r.AutomatedCashflow, o.AutomatedCashflow) ||
		!nullEqual(r.CurrentForecast, o.CurrentForecast) ||
		!nullEqual(r.PreviousForecast, o.PreviousForecast) ||
		!nullEqual(r.VariationToOriginal, o.VariationToOriginal) {
		return false
	}
	if !r.ManualOverride.Equal(o.ManualOverride) || !r.ActualFlag.Equal(o.ActualFlag) {
		return false
	}
	for p, v := range r.PeriodAmounts {
		if !v.Equal(o.PeriodAmounts[p]) {
			return false
		}
	}
	for p, v := range o.PeriodAmounts {
		if !v.Equal(r.PeriodAmounts[p]) {
			return false
		}
	}
	return true
}

// CloneRows deep-copies a slice of rows.
func CloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// Set wraps d as a present NullDecimal.
func Set(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}

// Unset is the "no data" value for a derived column.
var Unset = decimal.NullDecimal{}

func orZero(n decimal.NullDecimal) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Decimal
}

func nullEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

// ParseAmount parses a user-entered decimal string. Thousands separators
// and a leading currency symbol are tolerated; anything else that fails to
// parse is zero.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
