package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dtnitsch/lunch-bot/models"
)

const dateLayout = "2006-01-02"

// Run is one recorded pipeline run.
type Run struct {
	RunID         int64
	RunDate       string
	DayName       string
	CreatedAt     time.Time
	FinishedAt    *time.Time
	Delivered     bool
	DeliveryError string
	Results       []Result
}

// Result is one restaurant's outcome within a run.
type Result struct {
	Restaurant    string
	Strategy      string
	Status        string
	DishCount     int
	HasVegetarian bool
	Detail        string
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertRun(ex execer, date time.Time, dayName string) (int64, error) {
	result, err := ex.Exec(`
		INSERT INTO runs (run_date, day_name)
		VALUES (?, ?)
	`, date.Format(dateLayout), dayName)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return runID, nil
}

// upsertResult keeps one row per run and restaurant; the last write wins.
func upsertResult(ex execer, runID int64, name string, r models.MenuResult) error {
	_, err := ex.Exec(`
		INSERT INTO menu_results (run_id, restaurant, strategy, status, dish_count, has_vegetarian, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, restaurant) DO UPDATE SET
			strategy = excluded.strategy,
			status = excluded.status,
			dish_count = excluded.dish_count,
			has_vegetarian = excluded.has_vegetarian,
			detail = excluded.detail
	`, runID, name, r.Strategy, string(r.Status), len(r.Dishes), r.Vegetarian != "", r.Detail())
	if err != nil {
		return fmt.Errorf("failed to record result for %s: %w", name, err)
	}
	return nil
}

// RecordReport stores a run and all its restaurant results in one
// transaction, returning the run_id.
func (db *DB) RecordReport(report *models.DailyReport) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after Commit

	runID, err := insertRun(tx, report.Date, report.Day)
	if err != nil {
		return 0, err
	}
	for _, rr := range report.Restaurants {
		if err := upsertResult(tx, runID, rr.Name, rr.Result); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// FinishRun marks a run finished. A nil deliveryErr means the message went out.
func (db *DB) FinishRun(runID int64, deliveryErr error) error {
	var errText sql.NullString
	if deliveryErr != nil {
		errText = sql.NullString{String: deliveryErr.Error(), Valid: true}
	}
	res, err := db.Exec(`
		UPDATE runs
		SET finished_at = CURRENT_TIMESTAMP, delivered = ?, delivery_error = ?
		WHERE run_id = ?
	`, deliveryErr == nil, errText, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %d not found", runID)
	}
	return nil
}

// DeliveredOn reports whether a message was already delivered for date.
func (db *DB) DeliveredOn(date time.Time) (bool, error) {
	var runID int64
	err := db.QueryRow(`
		SELECT run_id FROM runs
		WHERE run_date = ? AND delivered = 1
		LIMIT 1
	`, date.Format(dateLayout)).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check delivery: %w", err)
	}
	return true, nil
}

// RecentRuns returns the latest runs with their results, newest first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(`
		SELECT run_id, run_date, day_name, created_at, finished_at, delivered, delivery_error
		FROM runs
		ORDER BY run_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		var deliveryErr sql.NullString
		if err := rows.Scan(&r.RunID, &r.RunDate, &r.DayName, &r.CreatedAt, &finished, &r.Delivered, &deliveryErr); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		r.DeliveryError = deliveryErr.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	_ = rows.Close()

	// Results are loaded after closing the cursor: the pool holds one connection.
	for i := range runs {
		results, err := db.runResults(runs[i].RunID)
		if err != nil {
			return nil, err
		}
		runs[i].Results = results
	}
	return runs, nil
}

func (db *DB) runResults(runID int64) ([]Result, error) {
	rows, err := db.Query(`
		SELECT restaurant, strategy, status, dish_count, has_vegetarian, detail
		FROM menu_results
		WHERE run_id = ?
		ORDER BY result_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var detail sql.NullString
		if err := rows.Scan(&r.Restaurant, &r.Strategy, &r.Status, &r.DishCount, &r.HasVegetarian, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Detail = detail.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetRun returns a single run with its results.
func (db *DB) GetRun(runID int64) (*Run, error) {
	var r Run
	var finished sql.NullTime
	var deliveryErr sql.NullString
	err := db.QueryRow(`
		SELECT run_id, run_date, day_name, created_at, finished_at, delivered, delivery_error
		FROM runs
		WHERE run_id = ?
	`, runID).Scan(&r.RunID, &r.RunDate, &r.DayName, &r.CreatedAt, &finished, &r.Delivered, &deliveryErr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	r.DeliveryError = deliveryErr.String

	r.Results, err = db.runResults(runID)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
