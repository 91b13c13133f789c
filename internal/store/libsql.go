package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/helion-data/scanflow/pkg/schema"
)

//go:embed migrations/001_initial_schema.sql
var initialSchema string

// schemaMigrations lists the embedded scripts in apply order. Versions
// already recorded in schema_version are skipped.
var schemaMigrations = []struct {
	version int
	name    string
	script  string
}{
	{1, "initial_schema", initialSchema},
}

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate applies any pending schema migrations, each inside its own
// transaction, and records applied versions in schema_version. Safe to call
// on every startup.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return schema.NewError(schema.ErrKindSystem, "create schema_version table").WithCause(err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return schema.NewError(schema.ErrKindSystem, "read schema version").WithCause(err)
	}

	for _, m := range schemaMigrations {
		if m.version <= current {
			continue
		}
		if err := s.applyMigration(ctx, m.version, m.name, m.script); err != nil {
			return err
		}
	}
	return nil
}

func (s *LibSQLStore) applyMigration(ctx context.Context, version int, name, script string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return schema.NewErrorf(schema.ErrKindSystem, "begin migration %d", version).WithCause(err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range sqlStatements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return schema.NewErrorf(schema.ErrKindSystem,
				"apply migration %d (%s)", version, name).WithCause(err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, name) VALUES (?, ?)`, version, name); err != nil {
		return schema.NewErrorf(schema.ErrKindSystem, "record migration %d", version).WithCause(err)
	}
	return tx.Commit()
}

// sqlStatements splits an embedded script on semicolons, dropping fragments
// that hold nothing but whitespace and line comments.
func sqlStatements(script string) []string {
	parts := strings.Split(script, ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if stmt := strings.TrimSpace(part); hasSQL(stmt) {
			out = append(out, stmt)
		}
	}
	return out
}

func hasSQL(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return true
		}
	}
	return false
}

// SaveExecution upserts a terminal execution record.
func (s *LibSQLStore) SaveExecution(ctx context.Context, rec *ExecutionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (id, workflow_id, status, success, start_time, end_time, duration_ms, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status=excluded.status, success=excluded.success,
		   end_time=excluded.end_time, duration_ms=excluded.duration_ms,
		   payload=excluded.payload`,
		rec.ID, rec.WorkflowID, rec.Status, boolToInt(rec.Success),
		rec.StartTime, rec.EndTime, rec.DurationMs, string(rec.Payload),
	)
	return err
}

// GetExecution loads a single execution record by id.
func (s *LibSQLStore) GetExecution(ctx context.Context, id string) (*ExecutionRecord, error) {
	rec := &ExecutionRecord{}
	var success int
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, workflow_id, status, success, start_time, end_time, duration_ms, payload
		 FROM executions WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.WorkflowID, &rec.Status, &success,
		&rec.StartTime, &rec.EndTime, &rec.DurationMs, &payload)
	if err == sql.ErrNoRows {
		return nil, notFound("execution", id)
	}
	if err != nil {
		return nil, err
	}
	rec.Success = success != 0
	rec.Payload = []byte(payload)
	return rec, nil
}

// ListExecutions returns records for a workflow, newest first. An empty
// workflowID lists across all workflows.
func (s *LibSQLStore) ListExecutions(ctx context.Context, workflowID string, limit int) ([]*ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, workflow_id, status, success, start_time, end_time, duration_ms, payload
	          FROM executions`
	args := []any{}
	if workflowID != "" {
		query += ` WHERE workflow_id = ?`
		args = append(args, workflowID)
	}
	query += ` ORDER BY start_time DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ExecutionRecord
	for rows.Next() {
		rec := &ExecutionRecord{}
		var success int
		var payload string
		if err := rows.Scan(&rec.ID, &rec.WorkflowID, &rec.Status, &success,
			&rec.StartTime, &rec.EndTime, &rec.DurationMs, &payload); err != nil {
			return nil, err
		}
		rec.Success = success != 0
		rec.Payload = []byte(payload)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// WorkflowStats aggregates run counts and average duration for a workflow.
func (s *LibSQLStore) WorkflowStats(ctx context.Context, workflowID string) (*WorkflowStats, error) {
	stats := &WorkflowStats{WorkflowID: workflowID}
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0),
		        AVG(duration_ms)
		 FROM executions WHERE workflow_id = ?`, workflowID,
	).Scan(&stats.Runs, &stats.Succeeded, &stats.Failed, &avg)
	if err != nil {
		return nil, err
	}
	if avg.Valid {
		stats.AvgDurationMs = avg.Float64
	}
	return stats, nil
}

// PruneBefore deletes records whose run ended before the cutoff. Returns the
// number of rows removed.
func (s *LibSQLStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM executions WHERE end_time < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Store = (*LibSQLStore)(nil)
