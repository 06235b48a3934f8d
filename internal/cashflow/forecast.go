package cashflow

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/feaso/internal/model"
	"github.com/theirongolddev/feaso/internal/profile"
)

// Options tunes a single forecast distribution.
type Options struct {
	// Now is the current calendar date. Its period is always forecastable
	// when it falls inside the row's window.
	Now time.Time
	// EditedPeriod names a period the caller has just written. It is held
	// fixed for this pass even if it is not yet flagged as an override.
	EditedPeriod model.Period
	// Profile overrides the row's own cashflow profile when set.
	Profile model.Profile
}

// RecalcForecastForRow spreads the row's remaining budget across its
// forecast window. Manual overrides and posted actuals are never
// overwritten; if they already meet the budget every other period is zero.
// Periods outside the window are zeroed unless fixed. The result depends
// only on its arguments, and applying it to its own output is a no-op.
func RecalcForecastForRow(row model.Row, periods []model.Period, tasks []model.ScheduleTask, opts Options) model.Row {
	out := row.Clone()
	if out.Kind != model.KindItem {
		return out
	}

	fixed := out.FixedPeriods()
	if opts.EditedPeriod != "" {
		fixed[opts.EditedPeriod] = true
	}

	w, _, _ := resolveWindow(out, periods, tasks)

	set := make(model.PeriodSet)
	var automated []model.Period
	for _, p := range periods {
		if t, ok := p.Time(); ok && w.contains(t) {
			set[p] = true
		}
	}
	if !opts.Now.IsZero() && w.contains(opts.Now) {
		set[model.PeriodOf(opts.Now)] = true
	}
	for p := range fixed {
		set[p] = true
	}

	ordered := set.Sorted()
	if len(ordered) == 0 {
		return out
	}

	fixedSum := decimal.Zero
	for _, p := range ordered {
		if fixed[p] {
			fixedSum = fixedSum.Add(out.Amount(p))
		} else {
			automated = append(automated, p)
		}
	}

	budget := out.Excl()
	if fixedSum.GreaterThanOrEqual(budget) {
		for _, p := range automated {
			out.SetAmount(p, decimal.Zero)
		}
	} else if len(automated) > 0 {
		prof := out.Profile
		if opts.Profile != "" {
			prof = opts.Profile
		}
		shares := profile.Apply(budget.Sub(fixedSum), len(automated), prof)
		for i, p := range automated {
			out.SetAmount(p, shares[i])
		}
	}

	zeroOutside(&out, periods, set, fixed)
	return out
}

// zeroOutside clears stale amounts left on periods that dropped out of the
// forecast set, both known periods and any other keys on the row.
func zeroOutside(r *model.Row, periods []model.Period, set, fixed model.PeriodSet) {
	zero := func(p model.Period) {
		if set[p] || fixed[p] {
			return
		}
		if v, ok := r.PeriodAmounts[p]; ok && !v.IsZero() {
			r.PeriodAmounts[p] = decimal.Zero
		}
	}
	for _, p := range periods {
		zero(p)
	}
	for p := range r.PeriodAmounts {
		zero(p)
	}
}

// RecalcForecasts runs RecalcForecastForRow over every item row, or only
// over the rows whose ids are in only when it is non-nil. The EditedPeriod
// hint is row specific and is ignored here.
func RecalcForecasts(rows []model.Row, periods []model.Period, tasks []model.ScheduleTask, only map[string]bool, opts Options) []model.Row {
	opts.EditedPeriod = ""
	out := make([]model.Row, len(rows))
	for i, r := range rows {
		if only != nil && !only[r.ID] {
			out[i] = r.Clone()
			continue
		}
		out[i] = RecalcForecastForRow(r, periods, tasks, opts)
	}
	return out
}
