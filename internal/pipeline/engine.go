// Package pipeline sequences the cashflow passes after edits and bulk loads,
// publishes ledger snapshots and hands changed rows to debounced
// persistence.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/feaso/internal/cashflow"
	"github.com/theirongolddev/feaso/internal/model"
	"github.com/theirongolddev/feaso/internal/telemetry"
)

// Config wires an Engine to its clock and collaborators.
type Config struct {
	Range Range
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// Persister receives every changed row. Nil disables persistence.
	Persister *Persister
	// OnChange, when set, is called after every publish with the ids of the
	// rows that changed. It runs with the engine unlocked.
	OnChange func(ids []string)
}

// Engine owns the published ledger snapshot. All mutations are serialized;
// each runs every pass to completion before returning.
type Engine struct {
	cfg Config

	mu      sync.RWMutex
	rows    []model.Row
	tasks   []model.ScheduleTask
	periods []model.Period
}

// New returns an engine with an empty ledger.
func New(cfg Config) *Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{cfg: cfg}
}

// Rows returns a copy of the current snapshot.
func (e *Engine) Rows() []model.Row {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return model.CloneRows(e.rows)
}

// Tasks returns the schedule in use.
func (e *Engine) Tasks() []model.ScheduleTask {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]model.ScheduleTask(nil), e.tasks...)
}

// Periods returns the known periods of the current snapshot.
func (e *Engine) Periods() []model.Period {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]model.Period(nil), e.periods...)
}

// OnBulkLoad merges persisted rows into the seeded ledger, runs the full
// pipeline and publishes the result. Rows that differ from what was loaded
// (new seed rows included) are scheduled for persistence.
func (e *Engine) OnBulkLoad(ctx context.Context, persisted []model.Row, tasks []model.ScheduleTask) ([]model.Row, error) {
	timer := telemetry.FromContext(ctx).Start("pipeline.OnBulkLoad")
	defer timer.End()

	merged := model.Merge(model.Seed(), persisted)
	if err := model.Validate(merged); err != nil {
		return nil, fmt.Errorf("merging ledger: %w", err)
	}

	e.mu.Lock()
	e.tasks = append([]model.ScheduleTask(nil), tasks...)
	out := e.recompute(ctx, merged, cashflow.Plan{})
	changed := diffRows(persisted, out)
	e.persist(out, changed)
	e.mu.Unlock()

	e.notify(changed)
	return model.CloneRows(out), nil
}

// Reload reruns the full pipeline over the current rows with a new
// schedule.
func (e *Engine) Reload(ctx context.Context, tasks []model.ScheduleTask) []model.Row {
	e.mu.Lock()
	prev := e.rows
	e.tasks = append([]model.ScheduleTask(nil), tasks...)
	out := e.recompute(ctx, prev, cashflow.Plan{})
	changed := diffRows(prev, out)
	e.persist(out, changed)
	e.mu.Unlock()

	e.notify(changed)
	return model.CloneRows(out)
}

// OnEdit applies one edit and returns the new snapshot. The edited row is
// redistributed, along with every item whose derived budget moved because
// of it. Posted-actual edits redistribute every row.
func (e *Engine) OnEdit(ctx context.Context, ed Edit) ([]model.Row, error) {
	timer := telemetry.FromContext(ctx).Start("pipeline.OnEdit")
	defer timer.End()

	e.mu.Lock()
	prev := e.rows
	idx := model.IndexByID(prev)
	i, ok := idx[ed.RowID]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrRowNotFound, ed.RowID)
	}

	next := model.CloneRows(prev)
	all, err := applyEdit(&next[i], ed)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	plan := cashflow.Plan{}
	if !all {
		plan.Only = e.affected(next, ed.RowID)
	}
	out := e.recompute(ctx, next, plan)
	changed := diffRows(prev, out)
	e.persist(out, changed)
	e.mu.Unlock()

	e.notify(changed)
	return model.CloneRows(out), nil
}

// AddRow appends a new item at the end of group and returns it with the
// new snapshot.
func (e *Engine) AddRow(ctx context.Context, group int, name string) (model.Row, []model.Row, error) {
	e.mu.Lock()
	prev := e.rows
	var hasHeading bool
	order := 0
	for _, r := range prev {
		if r.GroupIndex != group {
			continue
		}
		if r.Kind == model.KindHeading {
			hasHeading = true
		}
		if r.Kind == model.KindItem && r.SortOrder > order {
			order = r.SortOrder
		}
	}
	if !hasHeading {
		e.mu.Unlock()
		return model.Row{}, nil, fmt.Errorf("%w: group %d has no heading", model.ErrStructure, group)
	}

	row := model.Row{
		ID:         uuid.NewString(),
		GroupIndex: group,
		Kind:       model.KindItem,
		Name:       strings.TrimSpace(name),
		SortOrder:  order + 1,
		Basis:      model.BasisLumpSum,
		Profile:    model.ProfileLinear,
	}
	next := append(model.CloneRows(prev), row)
	model.SortRows(next)
	out := e.recompute(ctx, next, cashflow.Plan{Only: map[string]bool{row.ID: true}})
	changed := diffRows(prev, out)
	e.persist(out, changed)
	e.mu.Unlock()

	e.notify(changed)
	return out[model.IndexByID(out)[row.ID]].Clone(), model.CloneRows(out), nil
}

// DeleteRow removes an item row. Headings and totals cannot be deleted.
func (e *Engine) DeleteRow(ctx context.Context, id string) ([]model.Row, error) {
	e.mu.Lock()
	prev := e.rows
	i, ok := model.IndexByID(prev)[id]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrRowNotFound, id)
	}
	if prev[i].Kind != model.KindItem {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot delete %s row %s", ErrNotEditable, prev[i].Kind, id)
	}

	next := make([]model.Row, 0, len(prev)-1)
	for j, r := range prev {
		if j != i {
			next = append(next, r.Clone())
		}
	}
	// Rows that referenced the deleted one fall back to zero, so their
	// forecasts must move too.
	out := e.recompute(ctx, next, cashflow.Plan{Only: e.affected(next, "")})
	changed := diffRows(prev, out)
	e.persist(out, changed)
	e.mu.Unlock()

	if e.cfg.Persister != nil {
		// Delete logs and counts its own failures.
		_ = e.cfg.Persister.Delete(ctx, id)
	}
	e.notify(append(changed, id))
	return model.CloneRows(out), nil
}

// Snapshot captures every item's current forecast as its previous forecast.
func (e *Engine) Snapshot(ctx context.Context) []model.Row {
	timer := telemetry.FromContext(ctx).Start("pipeline.Snapshot")
	defer timer.End()

	e.mu.Lock()
	prev := e.rows
	out := cashflow.SnapshotForecast(prev)
	changed := diffRows(prev, out)
	e.persist(out, changed)
	e.mu.Unlock()

	e.notify(changed)
	return model.CloneRows(out)
}

// recompute runs the passes over rows with the engine's schedule and clock.
// A partial plan is widened to every row when the known periods move, since
// unscheduled rows spread across the whole range. Callers hold e.mu.
func (e *Engine) recompute(ctx context.Context, rows []model.Row, plan cashflow.Plan) []model.Row {
	now := e.cfg.Now()
	periods := KnownPeriods(e.cfg.Range, rows, e.tasks, now)
	if plan.Only != nil && !samePeriods(periods, e.periods) {
		plan.Only = nil
	}
	e.periods = periods
	plan.Now = now
	out := cashflow.Recompute(ctx, rows, e.periods, e.tasks, plan)
	e.rows = out
	return out
}

// affected returns id plus every item whose derived budget would change if
// budgets were recomputed over rows. An empty id yields only the budget
// movers.
func (e *Engine) affected(rows []model.Row, id string) map[string]bool {
	only := make(map[string]bool)
	if id != "" {
		only[id] = true
	}
	periods := KnownPeriods(e.cfg.Range, rows, e.tasks, e.cfg.Now())
	fresh := cashflow.RecalcBudgets(rows, periods, e.tasks)
	for i, r := range fresh {
		if r.Kind == model.KindItem && !r.Excl().Equal(rows[i].Excl()) {
			only[r.ID] = true
		}
	}
	return only
}

// persist schedules the changed rows for writing. Callers hold e.mu so
// writes for one id are queued in snapshot order.
func (e *Engine) persist(rows []model.Row, changed []string) {
	if e.cfg.Persister == nil {
		return
	}
	idx := model.IndexByID(rows)
	for _, id := range changed {
		if i, ok := idx[id]; ok {
			e.cfg.Persister.Schedule(rows[i])
		}
	}
}

func samePeriods(a, b []model.Period) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (e *Engine) notify(changed []string) {
	if e.cfg.OnChange != nil && len(changed) > 0 {
		e.cfg.OnChange(changed)
	}
}

// diffRows returns the ids of rows in next that are new or differ from
// their version in prev, in ledger order.
func diffRows(prev, next []model.Row) []string {
	old := make(map[string]model.Row, len(prev))
	for _, r := range prev {
		old[r.ID] = r
	}
	var out []string
	for _, r := range next {
		if o, ok := old[r.ID]; !ok || !o.Equal(r) {
			out = append(out, r.ID)
		}
	}
	return out
}
