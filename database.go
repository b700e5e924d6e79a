package main

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database holding benchmark run history.
type DB struct {
	conn *sql.DB
}

// RunRow is one benchmark run record.
type RunRow struct {
	ID          int64   `json:"id"`
	StartedAt   string  `json:"started_at"`
	EndedAt     string  `json:"ended_at,omitempty"`
	FinalBodies int     `json:"final_bodies"`
	AvgTickMs   float64 `json:"avg_tick_ms"`
	MaxTickRate int     `json:"max_tick_rate"`
}

// SampleRow is one periodic tick sample within a run.
type SampleRow struct {
	RunID    int64   `json:"run_id"`
	At       string  `json:"at"`
	Bodies   int     `json:"bodies"`
	CellSize float64 `json:"cell_size"`
	TickMs   float64 `json:"tick_ms"`
	AvgMs    float64 `json:"avg_ms"`
	FPS      float64 `json:"fps"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		ended_at DATETIME,
		final_bodies INTEGER NOT NULL DEFAULT 0,
		avg_tick_ms REAL NOT NULL DEFAULT 0,
		max_tick_rate INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS tick_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		at DATETIME NOT NULL,
		bodies INTEGER NOT NULL,
		cell_size REAL NOT NULL,
		tick_ms REAL NOT NULL,
		avg_ms REAL NOT NULL,
		fps REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_samples_run ON tick_samples(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// GetSetting returns a settings value, or "" when absent.
func (db *DB) GetSetting(key string) string {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if err != nil {
		return ""
	}
	return v
}

// SetSetting upserts a settings value.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// CreateRun inserts a new run row and returns its id.
func (db *DB) CreateRun() (int64, error) {
	res, err := db.conn.Exec(`INSERT INTO runs (started_at) VALUES (?)`,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FinishRun closes a run with its final summary.
func (db *DB) FinishRun(id int64, finalBodies int, avgTickMs float64, maxTickRate int) error {
	_, err := db.conn.Exec(`
		UPDATE runs SET ended_at = ?, final_bodies = ?, avg_tick_ms = ?, max_tick_rate = ?
		WHERE id = ?
	`, time.Now().UTC().Format(time.RFC3339), finalBodies, avgTickMs, maxTickRate, id)
	return err
}

// InsertSamples writes a batch of tick samples in one transaction.
func (db *DB) InsertSamples(samples []SampleRow) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO tick_samples (run_id, at, bodies, cell_size, tick_ms, avg_ms, fps)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err := stmt.Exec(s.RunID, s.At, s.Bodies, s.CellSize, s.TickMs, s.AvgMs, s.FPS); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]RunRow, error) {
	rows, err := db.conn.Query(`
		SELECT id, started_at, COALESCE(ended_at, ''), final_bodies, avg_tick_ms, max_tick_rate
		FROM runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.EndedAt, &r.FinalBodies, &r.AvgTickMs, &r.MaxTickRate); err != nil {
			continue
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// RunSamples returns the recorded samples for one run in time order.
func (db *DB) RunSamples(runID int64, limit int) ([]SampleRow, error) {
	rows, err := db.conn.Query(`
		SELECT run_id, at, bodies, cell_size, tick_ms, avg_ms, fps
		FROM tick_samples WHERE run_id = ? ORDER BY id LIMIT ?
	`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SampleRow
	for rows.Next() {
		var s SampleRow
		if err := rows.Scan(&s.RunID, &s.At, &s.Bodies, &s.CellSize, &s.TickMs, &s.AvgMs, &s.FPS); err != nil {
			continue
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
