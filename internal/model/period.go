package model

import (
	"sort"
	"strings"
	"time"
)

// PeriodLayout is the label format for a cashflow period, e.g. "Jan 2025".
const PeriodLayout = "Jan 2006"

// Period labels one calendar month. Equality is by label; ordering is by
// the month the label parses to.
type Period string

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period(t.Format(PeriodLayout))
}

// Time returns the first day of the period's month (UTC).
func (p Period) Time() (time.Time, bool) {
	t, err := time.Parse(PeriodLayout, strings.TrimSpace(string(p)))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Before reports whether p sorts before q. Labels that do not parse sort
// after every dated label, ordered by label.
func (p Period) Before(q Period) bool {
	pt, pok := p.Time()
	qt, qok := q.Time()
	switch {
	case pok && qok:
		if pt.Equal(qt) {
			return p < q
		}
		return pt.Before(qt)
	case pok:
		return true
	case qok:
		return false
	default:
		return p < q
	}
}

// SortPeriods sorts periods chronologically in place.
func SortPeriods(ps []Period) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Before(ps[j]) })
}

// MonthStart truncates t to the first instant of its month in UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthRange returns every period from start's month to end's month,
// inclusive. It returns nil when end precedes start.
func MonthRange(start, end time.Time) []Period {
	s, e := MonthStart(start), MonthStart(end)
	if e.Before(s) {
		return nil
	}
	var out []Period
	for m := s; !m.After(e); m = m.AddDate(0, 1, 0) {
		out = append(out, PeriodOf(m))
	}
	return out
}

// PeriodSet is a set of periods. The zero value is an empty, read-only set.
type PeriodSet map[Period]bool

// Has reports whether p is in the set.
func (s PeriodSet) Has(p Period) bool {
	return s[p]
}

// Sorted returns the members of the set in chronological order.
func (s PeriodSet) Sorted() []Period {
	out := make([]Period, 0, len(s))
	for p, ok := range s {
		if ok {
			out = append(out, p)
		}
	}
	SortPeriods(out)
	return out
}

// Clone returns a copy of the set, or nil for an empty set.
func (s PeriodSet) Clone() PeriodSet {
	if len(s) == 0 {
		return nil
	}
	out := make(PeriodSet, len(s))
	for p, ok := range s {
		if ok {
			out[p] = true
		}
	}
	return out
}

// Equal reports whether both sets hold the same periods.
func (s PeriodSet) Equal(o PeriodSet) bool {
	n := 0
	for p, ok := range s {
		if !ok {
			continue
		}
		n++
		if !o[p] {
			return false
		}
	}
	m := 0
	for _, ok := range o {
		if ok {
			m++
		}
	}
	return n == m
}
