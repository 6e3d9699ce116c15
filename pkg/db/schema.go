package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- One row per pipeline run
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_date TEXT NOT NULL,          -- YYYY-MM-DD of the target day
    day_name TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP,
    delivered BOOLEAN DEFAULT 0,
    delivery_error TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(run_date);
CREATE INDEX IF NOT EXISTS idx_runs_delivered ON runs(run_date, delivered) WHERE delivered = 1;

-- Per-restaurant outcome of a run. Counts and status only, never the menu text.
CREATE TABLE IF NOT EXISTS menu_results (
    result_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    restaurant TEXT NOT NULL,
    strategy TEXT NOT NULL,
    status TEXT NOT NULL,            -- ok, empty, fetch-failed, parse-failed
    dish_count INTEGER DEFAULT 0,
    has_vegetarian BOOLEAN DEFAULT 0,
    detail TEXT,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, restaurant)
);

CREATE INDEX IF NOT EXISTS idx_results_run ON menu_results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_status ON menu_results(status);
`
