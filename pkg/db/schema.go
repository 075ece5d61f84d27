package db

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;

-- One row per collection run
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_uuid TEXT NOT NULL UNIQUE,
    trainee_id TEXT NOT NULL,
    wait_seconds INTEGER NOT NULL DEFAULT 0,
    retry_on_error BOOLEAN NOT NULL DEFAULT 0,
    page_count INTEGER NOT NULL,
    started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP,

    vectorized_count INTEGER DEFAULT 0,
    warning_count INTEGER DEFAULT 0,
    failed_count INTEGER DEFAULT 0,

    output_path TEXT,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_trainee ON runs(trainee_id);

-- Final status of each visited page
CREATE TABLE IF NOT EXISTS page_results (
    result_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    url TEXT NOT NULL,
    filename TEXT,
    outcome TEXT NOT NULL,       -- vectorized, warning, failed
    message TEXT NOT NULL,
    is_error BOOLEAN NOT NULL DEFAULT 0,
    recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_page_results_run ON page_results(run_id);
CREATE INDEX IF NOT EXISTS idx_page_results_outcome ON page_results(outcome);
`
