// Package cashflow implements the pure recompute passes over a ledger:
// budget derivation, forecast distribution, per-row metrics, group totals
// and tax. Every pass takes rows by value and returns a new slice; none of
// them fail.
package cashflow

import (
	"time"

	"github.com/theirongolddev/feaso/internal/model"
)

// window is the forecast window of a row at month granularity.
type window struct {
	start, end time.Time
	ok         bool // false when there are no periods and no schedule at all
}

func (w window) contains(t time.Time) bool {
	if !w.ok {
		return false
	}
	m := model.MonthStart(t)
	return !m.Before(w.start) && !m.After(w.end)
}

// months counts calendar months in the window, inclusive.
func (w window) months() int {
	if !w.ok {
		return 0
	}
	return len(model.MonthRange(w.start, w.end))
}

// resolveWindow picks the row's forecast window: its own schedule task, else
// the span of all tasks, else the whole known period range. A task reference
// that is missing or has malformed dates falls back to the whole range.
func resolveWindow(row model.Row, periods []model.Period, tasks []model.ScheduleTask) (w window, startDate, endDate time.Time) {
	if row.ScheduleTask != "" {
		if t, ok := model.FindTask(tasks, row.ScheduleTask); ok {
			if s, e, ok := t.Window(); ok {
				return window{start: model.MonthStart(s), end: model.MonthStart(e), ok: true}, s, e
			}
		}
		return fullRange(periods)
	}
	if s, e, ok := model.ProjectSpan(tasks); ok {
		return window{start: model.MonthStart(s), end: model.MonthStart(e), ok: true}, s, e
	}
	return fullRange(periods)
}

func fullRange(periods []model.Period) (window, time.Time, time.Time) {
	var w window
	for _, p := range periods {
		t, ok := p.Time()
		if !ok {
			continue
		}
		if !w.ok || t.Before(w.start) {
			w.start = t
		}
		if !w.ok || t.After(w.end) {
			w.end = t
		}
		w.ok = true
	}
	if !w.ok {
		return w, time.Time{}, time.Time{}
	}
	return w, w.start, w.end.AddDate(0, 1, -1)
}
