// Package store persists simulation run records and the external data cache
// in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Artem7898/ai-decision-simulator/internal/decision"
	"github.com/Artem7898/ai-decision-simulator/internal/observability"
	"github.com/Artem7898/ai-decision-simulator/internal/store/migrations"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Status is the lifecycle state of a run.
type Status string

// Run statuses. A run moves pending -> running -> completed|failed; a pending
// run may also fail directly.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var (
	// ErrRunNotFound is returned when no run has the requested id.
	ErrRunNotFound = errors.New("run not found")
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the run's current status.
	ErrInvalidTransition = errors.New("invalid run status transition")
)

// Run is one persisted simulation.
type Run struct {
	ID           string          `json:"id"`
	Name         string          `json:"name,omitempty"`
	DecisionType decision.Kind   `json:"decision_type"`
	Query        string          `json:"query,omitempty"`
	Input        json.RawMessage `json:"input"`
	Result       json.RawMessage `json:"result,omitempty"`
	Status       Status          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Seed         int64           `json:"seed"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// NewRun describes a run about to be recorded.
type NewRun struct {
	Name         string
	DecisionType decision.Kind
	Query        string
	Input        interface{}
	Seed         int64
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	DecisionType decision.Kind
	Status       Status
	Limit        int
}

const defaultListLimit = 50

// Store provides SQLite-backed run persistence.
type Store struct {
	db      *sql.DB
	metrics *observability.Metrics
	now     func() time.Time
}

// Open opens the SQLite database at path and applies migrations.
func Open(ctx context.Context, path string, metrics *observability.Metrics) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, metrics: metrics, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateRun records a pending run and returns it.
func (s *Store) CreateRun(ctx context.Context, in NewRun) (Run, error) {
	if !in.DecisionType.Valid() {
		return Run{}, fmt.Errorf("%w: %q", decision.ErrUnsupportedDecisionKind, string(in.DecisionType))
	}
	input, err := json.Marshal(in.Input)
	if err != nil {
		return Run{}, fmt.Errorf("encode run input: %w", err)
	}

	run := Run{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		DecisionType: in.DecisionType,
		Query:        in.Query,
		Input:        input,
		Status:       StatusPending,
		Seed:         in.Seed,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}

	err = s.observe("create_run", func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (
	id,
	name,
	decision_type,
	query,
	input_json,
	status,
	seed,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
			run.ID,
			run.Name,
			string(run.DecisionType),
			run.Query,
			string(run.Input),
			string(run.Status),
			run.Seed,
			run.CreatedAt.UnixMilli(),
		)
		return err
	})
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

// MarkRunning moves a pending run to running.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	return s.transition(ctx, "mark_running", id, StatusRunning, `
UPDATE runs SET status = ?, started_at = ?
WHERE id = ? AND status = 'pending'
`, string(StatusRunning), s.now().UTC().UnixMilli(), id)
}

// Complete stores result and marks the run completed.
func (s *Store) Complete(ctx context.Context, id string, result interface{}) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode run result: %w", err)
	}
	return s.transition(ctx, "complete_run", id, StatusCompleted, `
UPDATE runs SET status = ?, result_json = ?, completed_at = ?
WHERE id = ? AND status IN ('pending', 'running')
`, string(StatusCompleted), string(encoded), s.now().UTC().UnixMilli(), id)
}

// Fail marks the run failed with message.
func (s *Store) Fail(ctx context.Context, id string, message string) error {
	return s.transition(ctx, "fail_run", id, StatusFailed, `
UPDATE runs SET status = ?, error_message = ?, completed_at = ?
WHERE id = ? AND status IN ('pending', 'running')
`, string(StatusFailed), message, s.now().UTC().UnixMilli(), id)
}

func (s *Store) transition(ctx context.Context, operation, id string, to Status, query string, args ...interface{}) error {
	var affected int64
	err := s.observe(operation, func() error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", strings.ReplaceAll(operation, "_", " "), err)
	}
	if affected == 1 {
		return nil
	}

	current, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
}

const runColumns = `
	id,
	name,
	decision_type,
	query,
	input_json,
	result_json,
	status,
	error_message,
	seed,
	created_at,
	started_at,
	completed_at
`

// GetRun loads one run.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	var run Run
	err := s.observe("get_run", func() error {
		row := s.db.QueryRowContext(ctx, "SELECT"+runColumns+"FROM runs WHERE id = ?", id)
		var err error
		run, err = scanRun(row)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns lists runs newest first.
func (s *Store) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var where []string
	var args []interface{}
	if filter.DecisionType != "" {
		where = append(where, "decision_type = ?")
		args = append(args, string(filter.DecisionType))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	query := "SELECT" + runColumns + "FROM runs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	var runs []Run
	err := s.observe("list_runs", func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		runs = make([]Run, 0, limit)
		for rows.Next() {
			run, err := scanRun(rows)
			if err != nil {
				return err
			}
			runs = append(runs, run)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run         Run
		kind        string
		status      string
		input       string
		result      sql.NullString
		createdAt   int64
		startedAt   sql.NullInt64
		completedAt sql.NullInt64
	)
	if err := row.Scan(
		&run.ID,
		&run.Name,
		&kind,
		&run.Query,
		&input,
		&result,
		&status,
		&run.ErrorMessage,
		&run.Seed,
		&createdAt,
		&startedAt,
		&completedAt,
	); err != nil {
		return Run{}, err
	}

	run.DecisionType = decision.Kind(kind)
	run.Status = Status(status)
	run.Input = json.RawMessage(input)
	if result.Valid {
		run.Result = json.RawMessage(result.String)
	}
	run.CreatedAt = time.UnixMilli(createdAt).UTC()
	run.StartedAt = optionalTime(startedAt)
	run.CompletedAt = optionalTime(completedAt)
	return run, nil
}

func optionalTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

func (s *Store) observe(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	if errors.Is(err, sql.ErrNoRows) {
		s.metrics.RecordDBQuery(operation, time.Since(start).Seconds(), nil)
		return err
	}
	s.metrics.RecordDBQuery(operation, time.Since(start).Seconds(), err)
	return err
}
