package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// SaveRun stores a run and its schedule in one transaction. run.ID and
// run.CreatedAt are filled in when empty; the counts are derived from schedule.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.Run, schedule *model.Schedule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run, schedule); err != nil {
		return err
	}

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.BoundaryAccount = schedule.BoundaryAccount
	run.BoundaryIndex = schedule.BoundaryIndex
	run.PeriodCount = len(schedule.Periods)
	run.RowCount = len(schedule.Rows)
	run.WarningCount = len(schedule.Warnings)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, source_file, boundary_account, boundary_index, period_count, row_count, warning_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.SourceFile, run.BoundaryAccount, run.BoundaryIndex, run.PeriodCount, run.RowCount, run.WarningCount, run.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: run %s", common.ErrDuplicateEntry, run.ID)
		}
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := s.savePeriodsTx(ctx, tx, run.ID, schedule.Periods); err != nil {
		return err
	}
	if err := s.saveValuesTx(ctx, tx, run.ID, schedule.Rows); err != nil {
		return err
	}
	if err := s.saveWarningsTx(ctx, tx, run.ID, schedule.Warnings); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) savePeriodsTx(ctx context.Context, tx *sql.Tx, runID string, periods []model.Period) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_periods (run_id, position, label) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, p := range periods {
		if _, err := stmt.ExecContext(ctx, runID, i, p.Label); err != nil {
			return fmt.Errorf("failed to insert period %q: %w", p.Label, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) saveValuesTx(ctx context.Context, tx *sql.Tx, runID string, rows []model.ScheduleRow) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_values (run_id, row_index, period_index, account, value) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for r, row := range rows {
		for p, v := range row.Values {
			if _, err := stmt.ExecContext(ctx, runID, r, p, row.Account, v.String()); err != nil {
				return fmt.Errorf("failed to insert value for %q: %w", row.Account, err)
			}
		}
	}
	return nil
}

func (s *SQLiteStorage) saveWarningsTx(ctx context.Context, tx *sql.Tx, runID string, warnings []model.Warning) error {
	for _, w := range warnings {
		rowsJSON, err := json.Marshal(w.Rows)
		if err != nil {
			return fmt.Errorf("failed to marshal warning rows: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_warnings (run_id, kind, account, rows, message) VALUES (?, ?, ?, ?, ?)
		`, runID, string(w.Kind), w.Account, string(rowsJSON), w.Message)
		if err != nil {
			return fmt.Errorf("failed to insert warning: %w", err)
		}
	}
	return nil
}

const runColumns = `id, source_file, boundary_account, boundary_index, period_count, row_count, warning_count, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (*model.Run, error) {
	var run model.Run
	err := scanner.Scan(&run.ID, &run.SourceFile, &run.BoundaryAccount, &run.BoundaryIndex,
		&run.PeriodCount, &run.RowCount, &run.WarningCount, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun returns the metadata of one run.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetSchedule rebuilds the stored schedule of a run.
func (s *SQLiteStorage) GetSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	schedule := &model.Schedule{
		BoundaryAccount: run.BoundaryAccount,
		BoundaryIndex:   run.BoundaryIndex,
	}

	if schedule.Periods, err = s.getPeriods(ctx, id); err != nil {
		return nil, err
	}
	if schedule.Rows, err = s.getRows(ctx, id, run.RowCount, len(schedule.Periods)); err != nil {
		return nil, err
	}
	if schedule.Warnings, err = s.getWarnings(ctx, id); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s *SQLiteStorage) getPeriods(ctx context.Context, id string) ([]model.Period, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT position, label FROM run_periods WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var periods []model.Period
	for rows.Next() {
		var p model.Period
		if err := rows.Scan(&p.Index, &p.Label); err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (s *SQLiteStorage) getRows(ctx context.Context, id string, rowCount, periodCount int) ([]model.ScheduleRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT row_index, period_index, account, value FROM run_values
		WHERE run_id = ? ORDER BY row_index, period_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.ScheduleRow, rowCount)
	for i := range out {
		out[i].Values = make([]decimal.Decimal, periodCount)
	}

	for rows.Next() {
		var (
			r, p    int
			account string
			value   string
		)
		if err := rows.Scan(&r, &p, &account, &value); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		if r >= rowCount || p >= periodCount {
			return nil, fmt.Errorf("%w: value at row %d period %d is out of range", common.ErrDatabaseCorrupted, r, p)
		}
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("%w: value %q: %v", common.ErrDatabaseCorrupted, value, err)
		}
		out[r].Account = account
		out[r].Values[p] = d
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) getWarnings(ctx context.Context, id string) ([]model.Warning, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, account, rows, message FROM run_warnings WHERE run_id = ? ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query warnings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var warnings []model.Warning
	for rows.Next() {
		var (
			w        model.Warning
			kind     string
			rowsJSON string
		)
		if err := rows.Scan(&kind, &w.Account, &rowsJSON, &w.Message); err != nil {
			return nil, fmt.Errorf("failed to scan warning: %w", err)
		}
		if err := json.Unmarshal([]byte(rowsJSON), &w.Rows); err != nil {
			return nil, fmt.Errorf("%w: warning rows: %v", common.ErrDatabaseCorrupted, err)
		}
		w.Kind = model.WarningKind(kind)
		warnings = append(warnings, w)
	}
	return warnings, rows.Err()
}

// DeleteRun removes a run and everything stored with it.
func (s *SQLiteStorage) DeleteRun(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"run_values", "run_periods", "run_warnings"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}

	return tx.Commit()
}
