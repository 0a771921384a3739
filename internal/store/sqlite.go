package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed run history.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a new Store, opening the SQLite database and running
// migrations. Parent directories are created as needed.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("store initialized", "path", dbPath)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// CreateSyncRun inserts a new SyncRun and sets its ID.
func (s *Store) CreateSyncRun(run *SyncRun) error {
	const query = `
		INSERT INTO sync_runs (
			run_id, start_time, end_time, items, created, updated,
			skipped, failed, dry_run, status, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		run.RunID, run.StartTime, run.EndTime, run.Items, run.Created,
		run.Updated, run.Skipped, run.Failed, run.DryRun, run.Status,
		run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	run.ID = id
	return nil
}

// UpdateSyncRun updates an existing SyncRun by ID.
func (s *Store) UpdateSyncRun(run *SyncRun) error {
	const query = `
		UPDATE sync_runs SET
			run_id = ?, start_time = ?, end_time = ?, items = ?,
			created = ?, updated = ?, skipped = ?, failed = ?,
			dry_run = ?, status = ?, error_message = ?
		WHERE id = ?
	`

	result, err := s.db.Exec(
		query,
		run.RunID, run.StartTime, run.EndTime, run.Items, run.Created,
		run.Updated, run.Skipped, run.Failed, run.DryRun, run.Status,
		run.ErrorMessage, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("sync run not found: %d", run.ID)
	}

	return nil
}

// ListSyncRuns returns the most recent runs, newest first.
func (s *Store) ListSyncRuns(limit int) ([]SyncRun, error) {
	const query = `
		SELECT id, run_id, start_time, end_time, items, created, updated,
		       skipped, failed, dry_run, status, COALESCE(error_message, '')
		FROM sync_runs
		ORDER BY start_time DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		var r SyncRun
		if err := rows.Scan(
			&r.ID, &r.RunID, &r.StartTime, &r.EndTime, &r.Items,
			&r.Created, &r.Updated, &r.Skipped, &r.Failed, &r.DryRun,
			&r.Status, &r.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// AddOutcome records one (item, target) attempt for a run.
func (s *Store) AddOutcome(o *Outcome) error {
	const query = `
		INSERT INTO outcomes (sync_run_id, gist_id, identifier, target, provider, result, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query, o.SyncRunID, o.GistID, o.Identifier, o.Target, o.Provider, o.Result, o.Error)
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	o.ID = id
	return nil
}

// ListOutcomes returns all outcomes for a run in insertion order.
func (s *Store) ListOutcomes(syncRunID int64) ([]Outcome, error) {
	const query = `
		SELECT id, sync_run_id, gist_id, identifier, target, provider,
		       result, COALESCE(error, ''), created_at
		FROM outcomes
		WHERE sync_run_id = ?
		ORDER BY id
	`

	rows, err := s.db.Query(query, syncRunID)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(
			&o.ID, &o.SyncRunID, &o.GistID, &o.Identifier, &o.Target,
			&o.Provider, &o.Result, &o.Error, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}

// CountOutcomesByTarget returns, for one target, how many outcomes of
// each result kind have been recorded across all runs.
func (s *Store) CountOutcomesByTarget(target string) (map[string]int, error) {
	const query = `
		SELECT result, COUNT(*) FROM outcomes WHERE target = ? GROUP BY result
	`

	rows, err := s.db.Query(query, target)
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var result string
		var n int
		if err := rows.Scan(&result, &n); err != nil {
			return nil, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		counts[result] = n
	}

	return counts, rows.Err()
}
