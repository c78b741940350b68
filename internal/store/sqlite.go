// Package store persists runs and their action journals in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var logger = log.New(os.Stderr, "[STORE] ", log.LstdFlags)

const runColumns = `id, server_seed, server_seed_hash, client_seed, nonce, phase, level, points,
	moonrock_delta, end_reason, snapshot_json, engine_version, created_at, updated_at`

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens the database at path. Call Migrate before use.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate creates the schema. It is safe to run on every start.
func (s *SQLiteDB) Migrate() error {
	baseMigrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			server_seed TEXT NOT NULL,
			server_seed_hash TEXT NOT NULL,
			client_seed TEXT NOT NULL,
			nonce INTEGER NOT NULL,
			phase TEXT NOT NULL,
			level INTEGER NOT NULL DEFAULT 0,
			points INTEGER NOT NULL DEFAULT 0,
			moonrock_delta INTEGER,
			snapshot_json TEXT NOT NULL DEFAULT '{}',
			engine_version TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_actions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			action TEXT NOT NULL,
			slot INTEGER NOT NULL DEFAULT 0,
			accepted INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			UNIQUE(run_id, seq),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
	}

	for _, migration := range baseMigrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("store: base migration failed: %w", err)
		}
	}

	alterMigrations := []string{
		`ALTER TABLE runs ADD COLUMN end_reason TEXT NOT NULL DEFAULT ''`,
	}

	for _, migration := range alterMigrations {
		if _, err := s.db.Exec(migration); err != nil {
			if !isDuplicateColumnError(err) {
				return fmt.Errorf("store: alter migration failed: %w", err)
			}
			continue
		}
		logger.Printf("migration applied stmt=%q", migration)
	}

	indexMigrations := []string{
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_phase_created ON runs(phase, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_run_actions_run_seq ON run_actions(run_id, seq)`,
	}

	for _, migration := range indexMigrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("store: index migration failed: %w", err)
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return strings.Contains(err.Error(), "duplicate column name")
}

// SaveRun inserts a new run, assigning an ID and timestamps when unset.
func (s *SQLiteDB) SaveRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = run.CreatedAt
	}
	if run.SnapshotJSON == "" {
		run.SnapshotJSON = "{}"
	}

	query := `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		run.ID, run.ServerSeed, run.ServerSeedHash, run.ClientSeed, run.Nonce,
		run.Phase, run.Level, run.Points, nullableInt64(run.MoonrockDelta), run.EndReason,
		run.SnapshotJSON, run.EngineVersion, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: save run %s: %w", run.ID, err)
	}
	return nil
}

// UpdateRun rewrites the mutable columns of an existing run.
func (s *SQLiteDB) UpdateRun(run *Run) error {
	run.UpdatedAt = time.Now().UTC()

	query := `UPDATE runs SET
		phase = ?, level = ?, points = ?, moonrock_delta = ?, end_reason = ?,
		snapshot_json = ?, updated_at = ?
		WHERE id = ?`

	res, err := s.db.Exec(query,
		run.Phase, run.Level, run.Points, nullableInt64(run.MoonrockDelta), run.EndReason,
		run.SnapshotJSON, run.UpdatedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("store: update run %s: %w", run.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: %w", run.ID, ErrRunNotFound)
	}
	return nil
}

// GetRun retrieves a run by ID
func (s *SQLiteDB) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns retrieves runs with pagination and filtering
func (s *SQLiteDB) ListRuns(query RunsQuery) (*RunsList, error) {
	whereClause := ""
	args := []interface{}{}

	if query.Phase != "" {
		whereClause = "WHERE phase = ?"
		args = append(args, query.Phase)
	}

	var totalCount int
	err := s.db.QueryRow("SELECT COUNT(*) FROM runs "+whereClause, args...).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("store: count runs: %w", err)
	}

	if query.PerPage <= 0 {
		query.PerPage = 50
	}
	if query.Page <= 0 {
		query.Page = 1
	}

	totalPages := (totalCount + query.PerPage - 1) / query.PerPage
	offset := (query.Page - 1) * query.PerPage

	mainQuery := `SELECT ` + runColumns + ` FROM runs ` + whereClause + `
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`
	args = append(args, query.PerPage, offset)

	rows, err := s.db.Query(mainQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate runs: %w", err)
	}

	return &RunsList{
		Runs:       runs,
		TotalCount: totalCount,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: totalPages,
	}, nil
}

// AppendAction adds one entry to a run's journal. Seq must be unique per run.
func (s *SQLiteDB) AppendAction(action *Action) error {
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}

	accepted := 0
	if action.Accepted {
		accepted = 1
	}

	res, err := s.db.Exec(`INSERT INTO run_actions (run_id, seq, action, slot, accepted, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		action.RunID, action.Seq, action.Action, action.Slot, accepted, action.Error, action.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: append action %s#%d: %w", action.RunID, action.Seq, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		action.ID = id
	}
	return nil
}

// ListActions returns a run's journal in sequence order.
func (s *SQLiteDB) ListActions(runID string) ([]Action, error) {
	rows, err := s.db.Query(`SELECT id, run_id, seq, action, slot, accepted, error, created_at
		FROM run_actions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: query actions: %w", err)
	}
	defer rows.Close()

	actions := []Action{}
	for rows.Next() {
		var a Action
		var accepted int
		if err := rows.Scan(&a.ID, &a.RunID, &a.Seq, &a.Action, &a.Slot, &accepted, &a.Error, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan action: %w", err)
		}
		a.Accepted = accepted == 1
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate actions: %w", err)
	}
	return actions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var delta sql.NullInt64

	err := row.Scan(
		&run.ID, &run.ServerSeed, &run.ServerSeedHash, &run.ClientSeed, &run.Nonce,
		&run.Phase, &run.Level, &run.Points, &delta, &run.EndReason,
		&run.SnapshotJSON, &run.EngineVersion, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if delta.Valid {
		run.MoonrockDelta = &delta.Int64
	}
	return &run, nil
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
