package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"reelsmith/internal/config"
)

// ErrNotFound is returned when a job lookup matches nothing.
var ErrNotFound = errors.New("queue: job not found")

// Store manages queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the queue database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "queue.db"))
}

// OpenPath connects to a queue database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewJob inserts a pending generation request.
func (s *Store) NewJob(ctx context.Context, prompt string) (*Job, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("prompt required")
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (run_id, prompt, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(),
		prompt,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

const jobColumns = `id, run_id, prompt, status, script_json, asset_dir, output_file, final_file,
	progress_stage, progress_percent, progress_message, error_message, review_reason,
	created_at, updated_at`

func scanJob(row interface{ Scan(dest ...any) error }) (*Job, error) {
	var job Job
	var status, createdAt, updatedAt string
	err := row.Scan(
		&job.ID, &job.RunID, &job.Prompt, &status, &job.ScriptJSON, &job.AssetDir,
		&job.OutputFile, &job.FinalFile, &job.ProgressStage, &job.ProgressPercent,
		&job.ProgressMessage, &job.ErrorMessage, &job.ReviewReason, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = Status(status)
	if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		job.CreatedAt = ts
	}
	if ts, parseErr := time.Parse(time.RFC3339Nano, updatedAt); parseErr == nil {
		job.UpdatedAt = ts
	}
	return &job, nil
}

// GetByID fetches one job.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return job, nil
}

// GetByRunID fetches one job by its run identifier.
func (s *Store) GetByRunID(ctx context.Context, runID string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE run_id = ?`, runID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", runID, err)
	}
	return job, nil
}

// Update persists every mutable field of the job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job required")
	}
	if _, ok := statusSet[job.Status]; !ok {
		return fmt.Errorf("unknown status %q", job.Status)
	}

	job.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, script_json = ?, asset_dir = ?, output_file = ?,
			final_file = ?, progress_stage = ?, progress_percent = ?, progress_message = ?,
			error_message = ?, review_reason = ?, updated_at = ?
		WHERE id = ?`,
		job.Status, job.ScriptJSON, job.AssetDir, job.OutputFile,
		job.FinalFile, job.ProgressStage, job.ProgressPercent, job.ProgressMessage,
		job.ErrorMessage, job.ReviewReason, job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job %d: %w", job.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job %d: %w", job.ID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProgress persists only the progress fields, leaving status untouched.
func (s *Store) UpdateProgress(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ? WHERE id = ?`,
		job.ProgressStage, job.ProgressPercent, job.ProgressMessage,
		time.Now().UTC().Format(time.RFC3339Nano), job.ID,
	)
	if err != nil {
		return fmt.Errorf("update progress %d: %w", job.ID, err)
	}
	return nil
}

// NextForStatus claims the oldest job in the given status, or nil when idle.
func (s *Store) NextForStatus(ctx context.Context, status Status) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY id LIMIT 1`,
		status,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next for %s: %w", status, err)
	}
	return job, nil
}

// List returns jobs filtered by status; with no filter, every job.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns job counts keyed by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue counts for status displays.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	var summary HealthSummary
	for status, count := range stats {
		summary.Total += count
		switch {
		case status == StatusPending:
			summary.Pending += count
		case status.IsProcessing():
			summary.Processing += count
		case status == StatusFailed:
			summary.Failed += count
		case status == StatusReview:
			summary.Review += count
		case status == StatusCompleted:
			summary.Completed += count
		}
	}
	return summary, nil
}

// Clear removes jobs in the given statuses; with no filter, every job.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	query := `DELETE FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// Retry returns a failed or review job to the pending state, clearing error
// details and stage artifacts so the whole generation re-runs.
func (s *Store) Retry(ctx context.Context, id int64) (*Job, error) {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != StatusFailed && job.Status != StatusReview {
		return nil, fmt.Errorf("job %d is %s; only failed or review jobs can be retried", id, job.Status)
	}

	job.Status = StatusPending
	job.ScriptJSON = ""
	job.AssetDir = ""
	job.OutputFile = ""
	job.FinalFile = ""
	job.ErrorMessage = ""
	job.ReviewReason = ""
	job.ProgressStage = ""
	job.ProgressPercent = 0
	job.ProgressMessage = ""
	if err := s.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// ResetStuckProcessing rolls in-flight jobs back to the state preceding their
// interrupted stage. Used on daemon startup after an unclean shutdown.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	var total int64
	for _, transition := range stageRollbackTransitions {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE jobs SET status = ?, progress_stage = '', progress_percent = 0,
				progress_message = '', updated_at = ? WHERE status = ?`,
			transition.to,
			time.Now().UTC().Format(time.RFC3339Nano),
			transition.from,
		)
		if err != nil {
			return total, fmt.Errorf("reset %s: %w", transition.from, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += affected
	}
	return total, nil
}
