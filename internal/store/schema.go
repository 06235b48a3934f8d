package store

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ledger_rows (
    project_id            TEXT NOT NULL,
    row_id                TEXT NOT NULL,
    group_index           INTEGER NOT NULL,
    kind                  TEXT NOT NULL,
    name                  TEXT NOT NULL,
    sort_order            INTEGER NOT NULL DEFAULT 0,
    budget_input          TEXT NOT NULL DEFAULT '0.00',
    basis                 TEXT NOT NULL DEFAULT 'lump_sum',
    basis_ref             TEXT NOT NULL DEFAULT '',
    quantity              TEXT NOT NULL DEFAULT '0.00',
    tax_applicable        INTEGER NOT NULL DEFAULT 0,
    schedule_task         TEXT NOT NULL DEFAULT '',
    profile               TEXT NOT NULL DEFAULT 'linear',
    period_amounts        TEXT NOT NULL DEFAULT '{}',
    manual_override       TEXT NOT NULL DEFAULT '{}',
    actual_flag           TEXT NOT NULL DEFAULT '{}',
    budget_excl           TEXT,
    budget_incl           TEXT,
    automated_cashflow    TEXT,
    current_forecast      TEXT,
    previous_forecast     TEXT,
    variation_to_original TEXT,
    updated_at            TEXT NOT NULL,
    PRIMARY KEY (project_id, row_id)
);

CREATE TABLE IF NOT EXISTS schedule_tasks (
    project_id            TEXT NOT NULL,
    position              INTEGER NOT NULL,
    name                  TEXT NOT NULL,
    start_date            TEXT NOT NULL,
    end_date              TEXT NOT NULL,
    PRIMARY KEY (project_id, position)
);

CREATE INDEX IF NOT EXISTS idx_ledger_rows_group ON ledger_rows(project_id, group_index);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ledger_rows (
    project_id            TEXT NOT NULL,
    row_id                TEXT NOT NULL,
    group_index           INTEGER NOT NULL,
    kind                  TEXT NOT NULL,
    name                  TEXT NOT NULL,
    sort_order            INTEGER NOT NULL DEFAULT 0,
    budget_input          TEXT NOT NULL DEFAULT '0.00',
    basis                 TEXT NOT NULL DEFAULT 'lump_sum',
    basis_ref             TEXT NOT NULL DEFAULT '',
    quantity              TEXT NOT NULL DEFAULT '0.00',
    tax_applicable        BOOLEAN NOT NULL DEFAULT FALSE,
    schedule_task         TEXT NOT NULL DEFAULT '',
    profile               TEXT NOT NULL DEFAULT 'linear',
    period_amounts        JSONB NOT NULL DEFAULT '{}',
    manual_override       JSONB NOT NULL DEFAULT '{}',
    actual_flag           JSONB NOT NULL DEFAULT '{}',
    budget_excl           TEXT,
    budget_incl           TEXT,
    automated_cashflow    TEXT,
    current_forecast      TEXT,
    previous_forecast     TEXT,
    variation_to_original TEXT,
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (project_id, row_id)
);

CREATE TABLE IF NOT EXISTS schedule_tasks (
    project_id            TEXT NOT NULL,
    position              INTEGER NOT NULL,
    name                  TEXT NOT NULL,
    start_date            TEXT NOT NULL,
    end_date              TEXT NOT NULL,
    PRIMARY KEY (project_id, position)
);

CREATE INDEX IF NOT EXISTS idx_ledger_rows_group ON ledger_rows(project_id, group_index);
`

const rowColumns = `row_id, group_index, kind, name, sort_order, budget_input, basis, basis_ref,
	quantity, tax_applicable, schedule_task, profile, period_amounts, manual_override, actual_flag,
	budget_excl, budget_incl, automated_cashflow, current_forecast, previous_forecast,
	variation_to_original`
