/*
Package sqlite provides SQLite-backed persistence for the policy API.

PURPOSE:
  Persists the artifacts the HTTP layer works with: named reform
  documents, filing-unit sets, and scenario runs. The engine itself is
  stateless; parameter arrays are always rebuilt from the embedded
  current-law file plus a stored reform document, never persisted.

KEY TABLES:
  reforms:       named reform documents (policy + assumption JSON text)
  unit_sets:     filing-unit collections serialized as JSON
  scenario_runs: one row per calculation run, with status lifecycle

RUN LIFECYCLE:
  pending -> running -> completed | failed
  Results and errors land on the run row; reruns insert new rows, so
  the table doubles as a run history.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/taxengine.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - api/handlers.go: the HTTP surface that reads and writes these rows
  - factory/reform.go: parsing of the stored reform document text
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run statuses.
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Store persists reforms, unit sets, and scenario runs in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Reform documents (the JSON text, not parsed parameter arrays)
	CREATE TABLE IF NOT EXISTS reforms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		policy_json TEXT NOT NULL,
		assumption_json TEXT,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reforms_name
		ON reforms(name);

	-- Filing-unit sets
	CREATE TABLE IF NOT EXISTS unit_sets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		data_year INTEGER NOT NULL,
		units_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Scenario runs (one row per run; reruns append)
	CREATE TABLE IF NOT EXISTS scenario_runs (
		id TEXT PRIMARY KEY,
		reform_id TEXT,
		unit_set_id TEXT NOT NULL,
		start_year INTEGER NOT NULL,
		end_year INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		results_json TEXT,
		error TEXT,
		started_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scenario_runs_reform
		ON scenario_runs(reform_id);
	CREATE INDEX IF NOT EXISTS idx_scenario_runs_status
		ON scenario_runs(status);
	CREATE INDEX IF NOT EXISTS idx_scenario_runs_created
		ON scenario_runs(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REFORM STORE
// =============================================================================

// ReformRecord is a named reform document.
type ReformRecord struct {
	ID             string
	Name           string
	Description    string
	PolicyJSON     string
	AssumptionJSON string
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SaveReform inserts or updates a reform document. Updates bump the
// version.
func (s *Store) SaveReform(ctx context.Context, r ReformRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO reforms (id, name, description, policy_json, assumption_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			policy_json = excluded.policy_json,
			assumption_json = excluded.assumption_json,
			version = reforms.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Name, r.Description, r.PolicyJSON, nullString(r.AssumptionJSON),
		1, now, now,
	)
	return err
}

// GetReform retrieves a reform by ID. Returns nil when absent.
func (s *Store) GetReform(ctx context.Context, id string) (*ReformRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryReform(ctx, "WHERE id = ?", id)
}

// GetReformByName retrieves a reform by its unique name.
func (s *Store) GetReformByName(ctx context.Context, name string) (*ReformRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryReform(ctx, "WHERE name = ?", name)
}

func (s *Store) queryReform(ctx context.Context, where string, arg any) (*ReformRecord, error) {
	var r ReformRecord
	var assumption sql.NullString
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, policy_json, assumption_json, version, created_at, updated_at FROM reforms "+where,
		arg,
	).Scan(&r.ID, &r.Name, &r.Description, &r.PolicyJSON, &assumption, &r.Version, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.AssumptionJSON = assumption.String
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &r, nil
}

// ListReforms returns all reform documents ordered by name.
func (s *Store) ListReforms(ctx context.Context) ([]ReformRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, policy_json, assumption_json, version, created_at, updated_at FROM reforms ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reforms []ReformRecord
	for rows.Next() {
		var r ReformRecord
		var assumption sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.PolicyJSON, &assumption, &r.Version, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		r.AssumptionJSON = assumption.String
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		reforms = append(reforms, r)
	}
	return reforms, rows.Err()
}

// DeleteReform removes a reform document.
func (s *Store) DeleteReform(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM reforms WHERE id = ?", id)
	return err
}

// =============================================================================
// UNIT SET STORE
// =============================================================================

// UnitSetRecord is a stored filing-unit collection.
type UnitSetRecord struct {
	ID        string
	Name      string
	DataYear  int
	UnitsJSON string
	CreatedAt time.Time
}

// SaveUnitSet inserts or replaces a unit set.
func (s *Store) SaveUnitSet(ctx context.Context, u UnitSetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO unit_sets (id, name, data_year, units_json, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			data_year = excluded.data_year,
			units_json = excluded.units_json
	`

	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.Name, u.DataYear, u.UnitsJSON,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetUnitSet retrieves a unit set by ID. Returns nil when absent.
func (s *Store) GetUnitSet(ctx context.Context, id string) (*UnitSetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u UnitSetRecord
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, data_year, units_json, created_at FROM unit_sets WHERE id = ?",
		id,
	).Scan(&u.ID, &u.Name, &u.DataYear, &u.UnitsJSON, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

// ListUnitSets returns all unit sets ordered by name.
func (s *Store) ListUnitSets(ctx context.Context) ([]UnitSetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, data_year, units_json, created_at FROM unit_sets ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []UnitSetRecord
	for rows.Next() {
		var u UnitSetRecord
		var createdAt string
		if err := rows.Scan(&u.ID, &u.Name, &u.DataYear, &u.UnitsJSON, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		sets = append(sets, u)
	}
	return sets, rows.Err()
}

// DeleteUnitSet removes a unit set.
func (s *Store) DeleteUnitSet(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM unit_sets WHERE id = ?", id)
	return err
}

// =============================================================================
// SCENARIO RUN STORE
// =============================================================================

// ScenarioRun is one calculation run over a unit set, optionally under
// a stored reform. An empty ReformID means current law.
type ScenarioRun struct {
	ID          string
	ReformID    string
	UnitSetID   string
	StartYear   int
	EndYear     int
	Status      string // pending, running, completed, failed
	ResultsJSON string
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// CreateRun inserts a new pending run.
func (s *Store) CreateRun(ctx context.Context, r ScenarioRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO scenario_runs (id, reform_id, unit_set_id, start_year, end_year, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, nullString(r.ReformID), r.UnitSetID, r.StartYear, r.EndYear,
		RunPending, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// StartRun marks a run as running.
func (s *Store) StartRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE scenario_runs SET status = ?, started_at = ? WHERE id = ?",
		RunRunning, time.Now().UTC().Format(time.RFC3339), id,
	)
	return err
}

// CompleteRun marks a run as completed and stores its results.
func (s *Store) CompleteRun(ctx context.Context, id, resultsJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE scenario_runs SET status = ?, results_json = ?, completed_at = ? WHERE id = ?",
		RunCompleted, resultsJSON, time.Now().UTC().Format(time.RFC3339), id,
	)
	return err
}

// FailRun marks a run as failed with its error message.
func (s *Store) FailRun(ctx context.Context, id, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE scenario_runs SET status = ?, error = ?, completed_at = ? WHERE id = ?",
		RunFailed, errMsg, time.Now().UTC().Format(time.RFC3339), id,
	)
	return err
}

// GetRun retrieves a run by ID. Returns nil when absent.
func (s *Store) GetRun(ctx context.Context, id string) (*ScenarioRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, reform_id, unit_set_id, start_year, end_year, status, results_json, error, started_at, completed_at, created_at FROM scenario_runs WHERE id = ?",
		id,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs, newest first, optionally filtered by status.
func (s *Store) ListRuns(ctx context.Context, status string) ([]ScenarioRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, reform_id, unit_set_id, start_year, end_year, status, results_json, error, started_at, completed_at, created_at FROM scenario_runs"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ScenarioRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*ScenarioRun, error) {
	var r ScenarioRun
	var reformID, results, errMsg, startedAt, completedAt sql.NullString
	var createdAt string

	if err := sc.Scan(
		&r.ID, &reformID, &r.UnitSetID, &r.StartYear, &r.EndYear, &r.Status,
		&results, &errMsg, &startedAt, &completedAt, &createdAt,
	); err != nil {
		return nil, err
	}

	r.ReformID = reformID.String
	r.ResultsJSON = results.String
	r.Error = errMsg.String
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if startedAt.Valid {
		t, _ := time.Parse(time.RFC3339, startedAt.String)
		r.StartedAt = &t
	}
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String)
		r.CompletedAt = &t
	}
	return &r, nil
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset clears all tables. For tests and demos.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"scenario_runs", "unit_sets", "reforms"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// IsUniqueConstraintError reports whether err is a SQLite uniqueness
// violation, used to map duplicate reform names to HTTP 409.
func IsUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
