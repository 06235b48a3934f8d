package pipeline

import (
	"time"

	"github.com/theirongolddev/feaso/internal/model"
)

// defaultHorizon is how many months are forecast when nothing else bounds
// the project.
const defaultHorizon = 12

// Range is an optional configured project range. Zero times mean unset.
type Range struct {
	Start, End time.Time
}

func (r Range) valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}

// KnownPeriods returns the sorted union of the configured range, the
// schedule's span and every period key already on a row. When all three are
// empty it returns the twelve months starting at now.
func KnownPeriods(r Range, rows []model.Row, tasks []model.ScheduleTask, now time.Time) []model.Period {
	set := make(model.PeriodSet)
	if r.valid() {
		for _, p := range model.MonthRange(r.Start, r.End) {
			set[p] = true
		}
	}
	if s, e, ok := model.ProjectSpan(tasks); ok {
		for _, p := range model.MonthRange(s, e) {
			set[p] = true
		}
	}
	for _, row := range rows {
		for p := range row.PeriodAmounts {
			if _, ok := p.Time(); ok {
				set[p] = true
			}
		}
		for p := range row.FixedPeriods() {
			if _, ok := p.Time(); ok {
				set[p] = true
			}
		}
	}
	if len(set) == 0 {
		start := model.MonthStart(now)
		return model.MonthRange(start, start.AddDate(0, defaultHorizon-1, 0))
	}
	return set.Sorted()
}
