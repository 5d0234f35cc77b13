package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository. It keeps task
// records durable across restarts; mutations run inside per-row transactions.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	if err := migrations.Apply(db, cfg.Logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateTask creates a new task in the repository.
func (r *Repository) CreateTask(ctx context.Context, t model.Task) error {
	row, err := taskToRow(t)
	if err != nil {
		return fmt.Errorf("could not encode task: %w", err)
	}

	query := `
		INSERT INTO tasks (
			id, status, stage, progress, script,
			config, artifacts, warnings, failure, cancel_requested,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		row.id,
		row.status,
		row.stage,
		row.progress,
		row.script,
		row.config,
		row.artifacts,
		row.warnings,
		row.failure,
		row.cancelRequested,
		row.createdAt,
		row.updatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: tasks.") {
			return fmt.Errorf("task already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert task: %w", err)
	}

	r.logger.Debugf("Created task in repository: %s", t.ID)
	return nil
}

// GetTask retrieves a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx, selectTaskQuery+` WHERE id = ?`, id)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query task: %w", err)
	}

	return &task, nil
}

// ListTasks returns one page of task summaries, newest first.
func (r *Repository) ListTasks(ctx context.Context, filter model.TaskFilter) (*model.TaskPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = -1 // SQLite LIMIT -1 means no limit.
	}

	var args []any
	where := ""
	if filter.Status != "" {
		where = ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}

	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("could not count tasks: %w", err)
	}

	query := selectTaskQuery + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	offset := 0
	if size > 0 {
		offset = (page - 1) * size
	}
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	summaries := []model.TaskSummary{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		summaries = append(summaries, task.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if size < 1 {
		size = total
	}

	return &model.TaskPage{
		Tasks:    summaries,
		Total:    total,
		Page:     page,
		PageSize: size,
	}, nil
}

// UpdateTask applies a mutation to one task record atomically inside a
// transaction and returns the updated task.
func (r *Repository) UpdateTask(ctx context.Context, id string, mutate func(t *model.Task) error) (*model.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, selectTaskQuery+` WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query task: %w", err)
	}

	if err := mutate(&task); err != nil {
		return nil, err
	}
	task.UpdatedAt = time.Now().UTC()

	encoded, err := taskToRow(task)
	if err != nil {
		return nil, fmt.Errorf("could not encode task: %w", err)
	}

	query := `
		UPDATE tasks
		SET
			status = ?,
			stage = ?,
			progress = ?,
			config = ?,
			artifacts = ?,
			warnings = ?,
			failure = ?,
			cancel_requested = ?,
			updated_at = ?
		WHERE id = ?
	`
	_, err = tx.ExecContext(
		ctx,
		query,
		encoded.status,
		encoded.stage,
		encoded.progress,
		encoded.config,
		encoded.artifacts,
		encoded.warnings,
		encoded.failure,
		encoded.cancelRequested,
		encoded.updatedAt,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("could not update task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Updated task in repository: %s", id)
	return &task, nil
}

// DeleteTask deletes a task.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("Deleted task from repository: %s", id)
	return nil
}

const selectTaskQuery = `
	SELECT
		id, status, stage, progress, script,
		config, artifacts, warnings, failure, cancel_requested,
		created_at, updated_at
	FROM tasks
`

// taskRow is the SQL encoding of a task. Nested structures (config,
// artifacts, warnings, failure) are stored as JSON documents.
type taskRow struct {
	id              string
	status          string
	stage           string
	progress        float64
	script          string
	config          string
	artifacts       string
	warnings        string
	failure         sql.NullString
	cancelRequested bool
	createdAt       int64
	updatedAt       int64
}

func taskToRow(t model.Task) (*taskRow, error) {
	config, err := json.Marshal(t.Config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	artifacts, err := json.Marshal(t.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("marshal artifacts: %w", err)
	}
	warnings, err := json.Marshal(t.Warnings)
	if err != nil {
		return nil, fmt.Errorf("marshal warnings: %w", err)
	}

	row := &taskRow{
		id:              t.ID,
		status:          string(t.Status),
		stage:           string(t.Stage),
		progress:        t.Progress,
		script:          t.Script,
		config:          string(config),
		artifacts:       string(artifacts),
		warnings:        string(warnings),
		cancelRequested: t.CancelRequested,
		createdAt:       t.CreatedAt.Unix(),
		updatedAt:       t.UpdatedAt.Unix(),
	}

	if t.Failure != nil {
		failure, err := json.Marshal(t.Failure)
		if err != nil {
			return nil, fmt.Errorf("marshal failure: %w", err)
		}
		row.failure = sql.NullString{String: string(failure), Valid: true}
	}

	return row, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (model.Task, error) {
	var row taskRow
	err := s.Scan(
		&row.id,
		&row.status,
		&row.stage,
		&row.progress,
		&row.script,
		&row.config,
		&row.artifacts,
		&row.warnings,
		&row.failure,
		&row.cancelRequested,
		&row.createdAt,
		&row.updatedAt,
	)
	if err != nil {
		return model.Task{}, err
	}

	task := model.Task{
		ID:              row.id,
		Status:          model.TaskStatus(row.status),
		Stage:           model.Stage(row.stage),
		Progress:        row.progress,
		Script:          row.script,
		CancelRequested: row.cancelRequested,
		CreatedAt:       time.Unix(row.createdAt, 0).UTC(),
		UpdatedAt:       time.Unix(row.updatedAt, 0).UTC(),
	}

	if err := json.Unmarshal([]byte(row.config), &task.Config); err != nil {
		return model.Task{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := json.Unmarshal([]byte(row.artifacts), &task.Artifacts); err != nil {
		return model.Task{}, fmt.Errorf("unmarshal artifacts: %w", err)
	}
	if err := json.Unmarshal([]byte(row.warnings), &task.Warnings); err != nil {
		return model.Task{}, fmt.Errorf("unmarshal warnings: %w", err)
	}
	if row.failure.Valid {
		task.Failure = &model.TaskFailure{}
		if err := json.Unmarshal([]byte(row.failure.String), task.Failure); err != nil {
			return model.Task{}, fmt.Errorf("unmarshal failure: %w", err)
		}
	}

	return task, nil
}
