package db

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/lunch-bot/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Use in-memory database for tests
	database := &DB{path: ":memory:"}
	var err error
	database.DB, err = openDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := database.migrate(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return database
}

var wednesday = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func TestInsertRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	first, err := insertRun(db, wednesday, "onsdag")
	if err != nil {
		t.Fatalf("insertRun() error = %v", err)
	}
	second, err := insertRun(db, wednesday, "onsdag")
	if err != nil {
		t.Fatalf("insertRun() error = %v", err)
	}
	if first == 0 || second <= first {
		t.Errorf("insertRun() ids = %d, %d, want increasing non-zero", first, second)
	}
}

func TestUpsertResult(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	runID, err := insertRun(db, wednesday, "onsdag")
	if err != nil {
		t.Fatalf("insertRun() error = %v", err)
	}

	failed := models.MenuResult{Restaurant: "Södra Porten", Strategy: "header", Status: models.StatusParseFailed, Err: errors.New("no marker")}
	if err := upsertResult(db, runID, failed.Restaurant, failed); err != nil {
		t.Fatalf("upsertResult() error = %v", err)
	}

	ok := models.MenuResult{
		Restaurant: "Södra Porten",
		Strategy:   "header",
		Status:     models.StatusOK,
		Dishes:     []string{"Fish soup", "Pasta carbonara"},
		Vegetarian: "Lentil stew",
	}
	if err := upsertResult(db, runID, ok.Restaurant, ok); err != nil {
		t.Fatalf("upsertResult() second call error = %v", err)
	}

	runs, err := db.RecentRuns(5)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("RecentRuns() len = %d, want 1", len(runs))
	}
	results := runs[0].Results
	if len(results) != 1 {
		t.Fatalf("results len = %d, want 1 (upsert)", len(results))
	}
	r := results[0]
	if r.Status != string(models.StatusOK) {
		t.Errorf("Status = %q, want %q", r.Status, models.StatusOK)
	}
	if r.DishCount != 2 {
		t.Errorf("DishCount = %d, want 2", r.DishCount)
	}
	if !r.HasVegetarian {
		t.Error("HasVegetarian = false, want true")
	}
}

func TestUpsertResult_UnknownRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := upsertResult(db, 999, "x", models.MenuResult{Restaurant: "x", Strategy: "feed", Status: models.StatusEmpty})
	if err == nil {
		t.Error("upsertResult() with unknown run_id should fail on foreign key")
	}
}

func TestFinishRun_DeliveredOn(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	runID, err := insertRun(db, wednesday, "onsdag")
	if err != nil {
		t.Fatalf("insertRun() error = %v", err)
	}

	delivered, err := db.DeliveredOn(wednesday)
	if err != nil {
		t.Fatalf("DeliveredOn() error = %v", err)
	}
	if delivered {
		t.Error("DeliveredOn() = true before FinishRun")
	}

	if err := db.FinishRun(runID, errors.New("telegram down")); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}
	delivered, _ = db.DeliveredOn(wednesday)
	if delivered {
		t.Error("DeliveredOn() = true after failed delivery")
	}

	retry, _ := insertRun(db, wednesday, "onsdag")
	if err := db.FinishRun(retry, nil); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}
	delivered, err = db.DeliveredOn(wednesday)
	if err != nil {
		t.Fatalf("DeliveredOn() error = %v", err)
	}
	if !delivered {
		t.Error("DeliveredOn() = false after successful delivery")
	}

	delivered, _ = db.DeliveredOn(wednesday.AddDate(0, 0, 1))
	if delivered {
		t.Error("DeliveredOn() = true for a different date")
	}
}

func TestFinishRun_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := db.FinishRun(42, nil); err == nil {
		t.Error("FinishRun() on missing run should fail")
	}
}

func TestRecordReport(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	report := &models.DailyReport{
		Day:  "onsdag",
		Date: wednesday,
		Restaurants: []models.RestaurantReport{
			{Name: "A", Result: models.MenuResult{Restaurant: "A", Strategy: "header", Status: models.StatusOK, Dishes: []string{"Fish soup"}}},
			{Name: "B", Result: models.FetchFailed("B", errors.New("timeout"))},
		},
	}

	runID, err := db.RecordReport(report)
	if err != nil {
		t.Fatalf("RecordReport() error = %v", err)
	}
	if err := db.FinishRun(runID, nil); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	runs, err := db.RecentRuns(0)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("RecentRuns() len = %d, want 1", len(runs))
	}
	run := runs[0]
	if run.RunDate != "2025-01-15" {
		t.Errorf("RunDate = %q, want 2025-01-15", run.RunDate)
	}
	if !run.Delivered || run.FinishedAt == nil {
		t.Errorf("run not marked delivered: %+v", run)
	}
	if len(run.Results) != 2 {
		t.Fatalf("results len = %d, want 2", len(run.Results))
	}
	if run.Results[1].Status != string(models.StatusFetchFailed) || run.Results[1].Detail == "" {
		t.Errorf("second result = %+v, want fetch-failed with detail", run.Results[1])
	}
}

func TestRecentRuns_Order(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for i := 0; i < 3; i++ {
		if _, err := insertRun(db, wednesday.AddDate(0, 0, i), "dag"); err != nil {
			t.Fatalf("insertRun() error = %v", err)
		}
	}

	runs, err := db.RecentRuns(2)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("RecentRuns() len = %d, want 2", len(runs))
	}
	if runs[0].RunDate != "2025-01-17" {
		t.Errorf("newest RunDate = %q, want 2025-01-17", runs[0].RunDate)
	}
}

func TestGetRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	runID, err := insertRun(db, wednesday, "onsdag")
	if err != nil {
		t.Fatalf("insertRun() error = %v", err)
	}
	if err := upsertResult(db, runID, "A", models.MenuResult{Restaurant: "A", Strategy: "card", Status: models.StatusEmpty, Err: errors.New("no dishes")}); err != nil {
		t.Fatalf("upsertResult() error = %v", err)
	}

	run, err := db.GetRun(runID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.DayName != "onsdag" || run.FinishedAt != nil {
		t.Errorf("GetRun() = %+v, want unfinished onsdag run", run)
	}
	if len(run.Results) != 1 || run.Results[0].Detail != "no dishes" {
		t.Errorf("GetRun() results = %+v", run.Results)
	}

	if _, err := db.GetRun(runID + 1); err == nil {
		t.Error("GetRun() on missing run should fail")
	}
}

func TestRecordReport_DuplicateNameKeepsLast(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	report := &models.DailyReport{
		Day:  "onsdag",
		Date: wednesday,
		Restaurants: []models.RestaurantReport{
			{Name: "A", Result: models.MenuResult{Restaurant: "A", Strategy: "header", Status: models.StatusEmpty}},
			{Name: "A", Result: models.MenuResult{Restaurant: "A", Strategy: "card", Status: models.StatusOK, Dishes: []string{"Kalops"}}},
		},
	}
	runID, err := db.RecordReport(report)
	if err != nil {
		t.Fatalf("RecordReport() error = %v", err)
	}

	run, err := db.GetRun(runID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if len(run.Results) != 1 || run.Results[0].Strategy != "card" || run.Results[0].DishCount != 1 {
		t.Errorf("results = %+v, want one card result", run.Results)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if _, err := insertRun(db, wednesday, "onsdag"); err != nil {
		t.Fatalf("insertRun() error = %v", err)
	}
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("user_version error = %v", err)
	}
	if version != schemaVersion {
		t.Errorf("user_version = %d, want %d", version, schemaVersion)
	}
	runs, _ := db.RecentRuns(0)
	if len(runs) != 1 {
		t.Errorf("RecentRuns() len = %d after migrate, want 1", len(runs))
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	runID, err := insertRun(db, wednesday, "onsdag")
	if err != nil {
		t.Fatalf("insertRun() error = %v", err)
	}
	if err := db.FinishRun(runID, nil); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}
	db.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()
	delivered, err := reopened.DeliveredOn(wednesday)
	if err != nil || !delivered {
		t.Errorf("DeliveredOn() after reopen = %v, %v, want true", delivered, err)
	}
}

func TestResolvePath(t *testing.T) {
	got, err := resolvePath("/var/lib/lunch/history.db")
	if err != nil || got != "/var/lib/lunch/history.db" {
		t.Errorf("resolvePath(explicit) = %q, %v", got, err)
	}

	got, err = resolvePath("")
	if err != nil {
		t.Fatalf("resolvePath(\"\") error = %v", err)
	}
	if !strings.HasSuffix(got, string(filepath.Separator)+DefaultDBName) {
		t.Errorf("resolvePath(\"\") = %q, want a path ending in %s", got, DefaultDBName)
	}
}
