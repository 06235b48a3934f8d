package model

import (
	"strings"
	"time"
)

// ScheduleTask is one read-only task from the project programme.
type ScheduleTask struct {
	Name      string `json:"name" yaml:"name"`
	StartDate string `json:"start_date" yaml:"start_date"`
	EndDate   string `json:"end_date" yaml:"end_date"`
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01", PeriodLayout}

// ParseDate parses a schedule date in any of the accepted layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Window returns the task's start and end dates. ok is false when either
// date is malformed or the end precedes the start.
func (t ScheduleTask) Window() (start, end time.Time, ok bool) {
	start, sok := ParseDate(t.StartDate)
	end, eok := ParseDate(t.EndDate)
	if !sok || !eok || end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// FindTask returns the task with the given name.
func FindTask(tasks []ScheduleTask, name string) (ScheduleTask, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ScheduleTask{}, false
	}
	for _, t := range tasks {
		if t.Name == name {
			return t, true
		}
	}
	return ScheduleTask{}, false
}

// ProjectSpan returns the earliest start and latest end across all tasks
// with well-formed dates.
func ProjectSpan(tasks []ScheduleTask) (start, end time.Time, ok bool) {
	for _, t := range tasks {
		s, e, wok := t.Window()
		if !wok {
			continue
		}
		if !ok || s.Before(start) {
			start = s
		}
		if !ok || e.After(end) {
			end = e
		}
		ok = true
	}
	return start, end, ok
}
