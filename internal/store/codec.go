package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/feaso/internal/model"
)

// record is the column form of a ledger row shared by both backends.
// Decimals travel as strings rounded to two places; period maps and flag
// sets travel as JSON objects keyed by month label.
type record struct {
	ID            string
	GroupIndex    int
	Kind          string
	Name          string
	SortOrder     int
	BudgetInput   string
	Basis         string
	BasisRef      string
	Quantity      string
	TaxApplicable bool
	ScheduleTask  string
	Profile       string

	PeriodAmounts  string
	ManualOverride string
	ActualFlag     string

	BudgetExcl sql.NullString
	BudgetIncl sql.NullString
	Automated  sql.NullString
	Current    sql.NullString
	Previous   sql.NullString
	Variation  sql.NullString
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullMoney(n decimal.NullDecimal) sql.NullString {
	if !n.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: money(n.Decimal), Valid: true}
}

func parseNullMoney(s sql.NullString) decimal.NullDecimal {
	if !s.Valid || s.String == "" {
		return model.Unset
	}
	return model.Set(model.ParseAmount(s.String))
}

func encodeRow(r model.Row) (record, error) {
	amounts := make(map[string]string, len(r.PeriodAmounts))
	for p, v := range r.PeriodAmounts {
		amounts[string(p)] = money(v)
	}
	pa, err := json.Marshal(amounts)
	if err != nil {
		return record{}, fmt.Errorf("encoding period amounts: %w", err)
	}
	mo, err := encodeFlags(r.ManualOverride)
	if err != nil {
		return record{}, err
	}
	af, err := encodeFlags(r.ActualFlag)
	if err != nil {
		return record{}, err
	}

	return record{
		ID:             r.ID,
		GroupIndex:     r.GroupIndex,
		Kind:           string(r.Kind),
		Name:           r.Name,
		SortOrder:      r.SortOrder,
		BudgetInput:    money(r.BudgetInput),
		Basis:          string(r.Basis),
		BasisRef:       r.BasisRef,
		Quantity:       money(r.Quantity),
		TaxApplicable:  r.TaxApplicable,
		ScheduleTask:   r.ScheduleTask,
		Profile:        string(r.Profile),
		PeriodAmounts:  string(pa),
		ManualOverride: mo,
		ActualFlag:     af,
		BudgetExcl:     nullMoney(r.BudgetExcludingTax),
		BudgetIncl:     nullMoney(r.BudgetIncludingTax),
		Automated:      nullMoney(r.AutomatedCashflow),
		Current:        nullMoney(r.CurrentForecast),
		Previous:       nullMoney(r.PreviousForecast),
		Variation:      nullMoney(r.VariationToOriginal),
	}, nil
}

func encodeFlags(s model.PeriodSet) (string, error) {
	flags := make(map[string]bool, len(s))
	for p, ok := range s {
		if ok {
			flags[string(p)] = true
		}
	}
	b, err := json.Marshal(flags)
	if err != nil {
		return "", fmt.Errorf("encoding flags: %w", err)
	}
	return string(b), nil
}

// decodeRow is lenient about amounts: a malformed decimal becomes zero. A
// malformed JSON column is an error.
func decodeRow(rec record) (model.Row, error) {
	r := model.Row{
		ID:                  rec.ID,
		GroupIndex:          rec.GroupIndex,
		Kind:                model.ParseKind(rec.Kind),
		Name:                rec.Name,
		SortOrder:           rec.SortOrder,
		BudgetInput:         model.ParseAmount(rec.BudgetInput),
		Basis:               model.ParseBasis(rec.Basis),
		BasisRef:            rec.BasisRef,
		Quantity:            model.ParseAmount(rec.Quantity),
		TaxApplicable:       rec.TaxApplicable,
		ScheduleTask:        rec.ScheduleTask,
		Profile:             model.ParseProfile(rec.Profile),
		BudgetExcludingTax:  parseNullMoney(rec.BudgetExcl),
		BudgetIncludingTax:  parseNullMoney(rec.BudgetIncl),
		AutomatedCashflow:   parseNullMoney(rec.Automated),
		CurrentForecast:     parseNullMoney(rec.Current),
		PreviousForecast:    parseNullMoney(rec.Previous),
		VariationToOriginal: parseNullMoney(rec.Variation),
	}

	if rec.PeriodAmounts != "" {
		var amounts map[string]string
		if err := json.Unmarshal([]byte(rec.PeriodAmounts), &amounts); err != nil {
			return model.Row{}, fmt.Errorf("row %s period amounts: %w", rec.ID, err)
		}
		for p, v := range amounts {
			r.SetAmount(model.Period(p), model.ParseAmount(v))
		}
	}

	var err error
	if r.ManualOverride, err = decodeFlags(rec.ManualOverride); err != nil {
		return model.Row{}, fmt.Errorf("row %s manual overrides: %w", rec.ID, err)
	}
	if r.ActualFlag, err = decodeFlags(rec.ActualFlag); err != nil {
		return model.Row{}, fmt.Errorf("row %s actuals: %w", rec.ID, err)
	}
	return r, nil
}

func decodeFlags(s string) (model.PeriodSet, error) {
	if s == "" {
		return nil, nil
	}
	var flags map[string]bool
	if err := json.Unmarshal([]byte(s), &flags); err != nil {
		return nil, err
	}
	var out model.PeriodSet
	for p, ok := range flags {
		if !ok {
			continue
		}
		if out == nil {
			out = make(model.PeriodSet, len(flags))
		}
		out[model.Period(p)] = true
	}
	return out, nil
}
