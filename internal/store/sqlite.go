package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/feaso/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// SQLite is the file-backed store.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at dbPath.
func OpenSQLite(dbPath string) (*SQLite, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite store: empty path")
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening store db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// LoadRows reads every row of a project in ledger order.
func (s *SQLite) LoadRows(ctx context.Context, projectID string) ([]model.Row, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+rowColumns+`
		FROM ledger_rows WHERE project_id = ?
		ORDER BY group_index, sort_order, row_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Row
	for rows.Next() {
		var rec record
		var tax int
		err := rows.Scan(
			&rec.ID, &rec.GroupIndex, &rec.Kind, &rec.Name, &rec.SortOrder, &rec.BudgetInput,
			&rec.Basis, &rec.BasisRef, &rec.Quantity, &tax, &rec.ScheduleTask, &rec.Profile,
			&rec.PeriodAmounts, &rec.ManualOverride, &rec.ActualFlag,
			&rec.BudgetExcl, &rec.BudgetIncl, &rec.Automated, &rec.Current, &rec.Previous, &rec.Variation,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		rec.TaxApplicable = tax != 0

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

// UpsertRow inserts or replaces one row.
func (s *SQLite) UpsertRow(ctx context.Context, projectID string, row model.Row) error {
	rec, err := encodeRow(row)
	if err != nil {
		return err
	}
	tax := 0
	if rec.TaxApplicable {
		tax = 1
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = s.db.ExecContext(ctx, `INSERT INTO ledger_rows
		(project_id, `+rowColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, row_id) DO UPDATE SET
			group_index = excluded.group_index,
			kind = excluded.kind,
			name = excluded.name,
			sort_order = excluded.sort_order,
			budget_input = excluded.budget_input,
			basis = excluded.basis,
			basis_ref = excluded.basis_ref,
			quantity = excluded.quantity,
			tax_applicable = excluded.tax_applicable,
			schedule_task = excluded.schedule_task,
			profile = excluded.profile,
			period_amounts = excluded.period_amounts,
			manual_override = excluded.manual_override,
			actual_flag = excluded.actual_flag,
			budget_excl = excluded.budget_excl,
			budget_incl = excluded.budget_incl,
			automated_cashflow = excluded.automated_cashflow,
			current_forecast = excluded.current_forecast,
			previous_forecast = excluded.previous_forecast,
			variation_to_original = excluded.variation_to_original,
			updated_at = excluded.updated_at`,
		projectID, rec.ID, rec.GroupIndex, rec.Kind, rec.Name, rec.SortOrder, rec.BudgetInput,
		rec.Basis, rec.BasisRef, rec.Quantity, tax, rec.ScheduleTask, rec.Profile,
		rec.PeriodAmounts, rec.ManualOverride, rec.ActualFlag,
		rec.BudgetExcl, rec.BudgetIncl, rec.Automated, rec.Current, rec.Previous, rec.Variation,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert row %s: %w", row.ID, err)
	}
	return nil
}

// DeleteRow removes one row. Deleting a missing row is not an error.
func (s *SQLite) DeleteRow(ctx context.Context, projectID string, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM ledger_rows WHERE project_id = ? AND row_id = ?", projectID, id)
	if err != nil {
		return fmt.Errorf("delete row %s: %w", id, err)
	}
	return nil
}

// CountRows returns the number of stored rows for a project.
func (s *SQLite) CountRows(ctx context.Context, projectID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ledger_rows WHERE project_id = ?", projectID).Scan(&count)
	return count, err
}

// SaveSchedule replaces the cached schedule of a project.
func (s *SQLite) SaveSchedule(ctx context.Context, projectID string, tasks []model.ScheduleTask) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM schedule_tasks WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("clearing schedule: %w", err)
	}
	for i, t := range tasks {
		_, err := tx.ExecContext(ctx, `INSERT INTO schedule_tasks
			(project_id, position, name, start_date, end_date) VALUES (?, ?, ?, ?, ?)`,
			projectID, i, t.Name, t.StartDate, t.EndDate)
		if err != nil {
			return fmt.Errorf("saving task %q: %w", t.Name, err)
		}
	}
	return tx.Commit()
}

// LoadSchedule returns the cached schedule in its original order.
func (s *SQLite) LoadSchedule(ctx context.Context, projectID string) ([]model.ScheduleTask, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, start_date, end_date
		FROM schedule_tasks WHERE project_id = ? ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying schedule: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ScheduleTask
	for rows.Next() {
		var t model.ScheduleTask
		if err := rows.Scan(&t.Name, &t.StartDate, &t.EndDate); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
