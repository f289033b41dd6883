package indexdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/WorldQL/mc-provisioner/internal/partition"
)

// Ledger is a SQLite history of partition runs and the file actions each run
// performed. It is a secondary record and never read by the operations.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

func OpenSQLite(path string) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Ledger{db: db, now: time.Now}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			operation TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			server_count INTEGER NOT NULL,
			params_json TEXT NOT NULL,
			dry_run INTEGER NOT NULL,
			status TEXT NOT NULL,
			report_json TEXT,
			error TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS file_actions (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			server TEXT NOT NULL,
			category TEXT NOT NULL,
			action TEXT NOT NULL,
			path TEXT NOT NULL,
			region_x INTEGER NOT NULL,
			region_z INTEGER NOT NULL,
			owner INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_file_actions_region ON file_actions(category, region_x, region_z);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}

const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// Run is an open ledger entry. It implements partition.Recorder.
type Run struct {
	ID     int64
	ledger *Ledger
	seq    int64
}

func (l *Ledger) BeginRun(operation string, serverCount int, params partition.Params, dryRun bool) (*Run, error) {
	pj, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	res, err := l.db.Exec(
		`INSERT INTO runs(operation, started_at, server_count, params_json, dry_run, status) VALUES(?,?,?,?,?,?)`,
		operation, l.stamp(), serverCount, string(pj), boolInt(dryRun), StatusRunning,
	)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Run{ID: id, ledger: l}, nil
}

func (r *Run) Record(a partition.Action) error {
	r.seq++
	_, err := r.ledger.db.Exec(
		`INSERT INTO file_actions(run_id, seq, server, category, action, path, region_x, region_z, owner) VALUES(?,?,?,?,?,?,?,?,?)`,
		r.ID, r.seq, a.Server, a.Category, string(a.Kind), a.Path, a.Region.X, a.Region.Z, a.Owner,
	)
	return err
}

// Finish closes the run with the operation's report and error, if any.
func (r *Run) Finish(rep partition.Report, runErr error) error {
	status := StatusOK
	var errText sql.NullString
	if runErr != nil {
		status = StatusFailed
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	rj, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	_, err = r.ledger.db.Exec(
		`UPDATE runs SET finished_at=?, status=?, report_json=?, error=? WHERE id=?`,
		r.ledger.stamp(), status, string(rj), errText, r.ID,
	)
	return err
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID         int64
	Operation  string
	StartedAt  string
	FinishedAt string
	Servers    int
	DryRun     bool
	Status     string
	Error      string
	Actions    int
}

// Runs returns the most recent runs, newest first.
func (l *Ledger) Runs(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.Query(`
		SELECT r.id, r.operation, r.started_at, COALESCE(r.finished_at, ''), r.server_count, r.dry_run,
			r.status, COALESCE(r.error, ''), (SELECT COUNT(*) FROM file_actions a WHERE a.run_id = r.id)
		FROM runs r ORDER BY r.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s  RunSummary
			dr int
		)
		if err := rows.Scan(&s.ID, &s.Operation, &s.StartedAt, &s.FinishedAt, &s.Servers, &dr, &s.Status, &s.Error, &s.Actions); err != nil {
			return nil, err
		}
		s.DryRun = dr != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

func (l *Ledger) stamp() string {
	return l.now().UTC().Format(time.RFC3339Nano)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
