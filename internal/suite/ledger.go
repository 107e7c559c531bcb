package suite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Dispatch is one recorded suite run.
type Dispatch struct {
	RunID       string    `json:"run_id"`
	Event       string    `json:"event"`
	Suite       string    `json:"suite"`
	Board       string    `json:"board"`
	Build       string    `json:"build"`
	Pool        string    `json:"pool,omitempty"`
	Forced      bool      `json:"forced,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Ledger persists dispatched suite runs in SQLite so repeats of the same
// (suite, board, build, pool) combination can be suppressed across restarts.
type Ledger struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewLedger opens (or creates) the ledger database.
// Use ":memory:" for an in-memory database, or a file path for persistence.
func NewLedger(dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return l, nil
}

func (l *Ledger) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS dispatches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		event TEXT NOT NULL DEFAULT '',
		suite TEXT NOT NULL,
		board TEXT NOT NULL,
		build TEXT NOT NULL,
		pool TEXT NOT NULL DEFAULT '',
		forced INTEGER NOT NULL DEFAULT 0,
		scheduled_at INTEGER NOT NULL,
		UNIQUE(suite, board, build, pool)
	);
	CREATE INDEX IF NOT EXISTS idx_dispatches_build ON dispatches(build);
	CREATE INDEX IF NOT EXISTS idx_dispatches_scheduled_at ON dispatches(scheduled_at);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Seen reports whether the combination has already been dispatched.
func (l *Ledger) Seen(ctx context.Context, suite, board, build, pool string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var one int
	err := l.db.QueryRowContext(ctx,
		"SELECT 1 FROM dispatches WHERE suite = ? AND board = ? AND build = ? AND pool = ? LIMIT 1",
		suite, board, build, pool,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query dispatches: %w", err)
	}
	return true, nil
}

// Record stores d. Re-recording the same combination (a forced re-run)
// replaces the earlier row so the ledger reflects the latest run.
func (l *Ledger) Record(ctx context.Context, d Dispatch) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	forced := 0
	if d.Forced {
		forced = 1
	}
	if d.ScheduledAt.IsZero() {
		d.ScheduledAt = time.Now()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO dispatches (run_id, event, suite, board, build, pool, forced, scheduled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(suite, board, build, pool) DO UPDATE SET
		   run_id = excluded.run_id,
		   event = excluded.event,
		   forced = excluded.forced,
		   scheduled_at = excluded.scheduled_at`,
		d.RunID, d.Event, d.Suite, d.Board, d.Build, d.Pool, forced, d.ScheduledAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert dispatch: %w", err)
	}

	return nil
}

// Recent returns up to limit dispatches, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Dispatch, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, event, suite, board, build, pool, forced, scheduled_at
		 FROM dispatches ORDER BY scheduled_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	return scanDispatches(rows)
}

func scanDispatches(rows *sql.Rows) ([]Dispatch, error) {
	var out []Dispatch
	for rows.Next() {
		var d Dispatch
		var forced int
		var scheduledUnix int64

		err := rows.Scan(&d.RunID, &d.Event, &d.Suite, &d.Board, &d.Build, &d.Pool, &forced, &scheduledUnix)
		if err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}

		d.Forced = forced != 0
		d.ScheduledAt = time.Unix(scheduledUnix, 0)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
