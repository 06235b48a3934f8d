package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/theirongolddev/feaso/internal/model"
)

// Postgres is the shared-database store.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dbURL and creates the schema if needed.
func OpenPostgres(ctx context.Context, dbURL string) (*Postgres, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("db url missing")
	}
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// LoadRows reads every row of a project in ledger order.
func (p *Postgres) LoadRows(ctx context.Context, projectID string) ([]model.Row, error) {
	rows, err := p.pool.Query(ctx, `
SELECT row_id, group_index, kind, name, sort_order, budget_input, basis, basis_ref,
       quantity, tax_applicable, schedule_task, profile,
       period_amounts::text, manual_override::text, actual_flag::text,
       budget_excl, budget_incl, automated_cashflow, current_forecast, previous_forecast,
       variation_to_original
FROM ledger_rows
WHERE project_id = $1
ORDER BY group_index, sort_order, row_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		var rec record
		err := rows.Scan(
			&rec.ID, &rec.GroupIndex, &rec.Kind, &rec.Name, &rec.SortOrder, &rec.BudgetInput,
			&rec.Basis, &rec.BasisRef, &rec.Quantity, &rec.TaxApplicable, &rec.ScheduleTask, &rec.Profile,
			&rec.PeriodAmounts, &rec.ManualOverride, &rec.ActualFlag,
			&rec.BudgetExcl, &rec.BudgetIncl, &rec.Automated, &rec.Current, &rec.Previous, &rec.Variation,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r, err := decodeRow(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	model.SortRows(out)
	return out, nil
}

// UpsertRow inserts or updates one row.
func (p *Postgres) UpsertRow(ctx context.Context, projectID string, row model.Row) error {
	rec, err := encodeRow(row)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
INSERT INTO ledger_rows (project_id, `+rowColumns+`, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
        $14::jsonb, $15::jsonb, $16::jsonb, $17, $18, $19, $20, $21, $22, now())
ON CONFLICT (project_id, row_id) DO UPDATE
SET group_index = EXCLUDED.group_index,
    kind = EXCLUDED.kind,
    name = EXCLUDED.name,
    sort_order = EXCLUDED.sort_order,
    budget_input = EXCLUDED.budget_input,
    basis = EXCLUDED.basis,
    basis_ref = EXCLUDED.basis_ref,
    quantity = EXCLUDED.quantity,
    tax_applicable = EXCLUDED.tax_applicable,
    schedule_task = EXCLUDED.schedule_task,
    profile = EXCLUDED.profile,
    period_amounts = EXCLUDED.period_amounts,
    manual_override = EXCLUDED.manual_override,
    actual_flag = EXCLUDED.actual_flag,
    budget_excl = EXCLUDED.budget_excl,
    budget_incl = EXCLUDED.budget_incl,
    automated_cashflow = EXCLUDED.automated_cashflow,
    current_forecast = EXCLUDED.current_forecast,
    previous_forecast = EXCLUDED.previous_forecast,
    variation_to_original = EXCLUDED.variation_to_original,
    updated_at = now()
`,
		projectID, rec.ID, rec.GroupIndex, rec.Kind, rec.Name, rec.SortOrder, rec.BudgetInput,
		rec.Basis, rec.BasisRef, rec.Quantity, rec.TaxApplicable, rec.ScheduleTask, rec.Profile,
		rec.PeriodAmounts, rec.ManualOverride, rec.ActualFlag,
		rec.BudgetExcl, rec.BudgetIncl, rec.Automated, rec.Current, rec.Previous, rec.Variation,
	)
	if err != nil {
		return fmt.Errorf("upsert row %s: %w", row.ID, err)
	}
	return nil
}

// DeleteRow removes one row. Deleting a missing row is not an error.
func (p *Postgres) DeleteRow(ctx context.Context, projectID string, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM ledger_rows WHERE project_id = $1 AND row_id = $2`, projectID, id)
	if err != nil {
		return fmt.Errorf("delete row %s: %w", id, err)
	}
	return nil
}

// CountRows returns the number of stored rows for a project.
func (p *Postgres) CountRows(ctx context.Context, projectID string) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_rows WHERE project_id = $1`, projectID).Scan(&count)
	return count, err
}

// SaveSchedule replaces the cached schedule of a project in one
// transaction.
func (p *Postgres) SaveSchedule(ctx context.Context, projectID string, tasks []model.ScheduleTask) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM schedule_tasks WHERE project_id = $1`, projectID); err != nil {
			return fmt.Errorf("clear schedule: %w", err)
		}
		if len(tasks) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for i, t := range tasks {
			batch.Queue(`INSERT INTO schedule_tasks (project_id, position, name, start_date, end_date)
VALUES ($1, $2, $3, $4, $5)`, projectID, i, t.Name, t.StartDate, t.EndDate)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("save schedule: %w", err)
		}
		return nil
	})
}

// LoadSchedule returns the cached schedule in its original order.
func (p *Postgres) LoadSchedule(ctx context.Context, projectID string) ([]model.ScheduleTask, error) {
	rows, err := p.pool.Query(ctx, `SELECT name, start_date, end_date FROM schedule_tasks
WHERE project_id = $1 ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query schedule: %w", err)
	}
	defer rows.Close()

	var out []model.ScheduleTask
	for rows.Next() {
		var t model.ScheduleTask
		if err := rows.Scan(&t.Name, &t.StartDate, &t.EndDate); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
