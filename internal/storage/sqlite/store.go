package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"planner/internal/models"
)

// Store is the on-device cache of the task list and the completion map.
// Each logical entry is replaced in full on every save; there are no
// partial writes.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open initializes the cache database and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
            id INTEGER PRIMARY KEY,
            title TEXT NOT NULL,
            time TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            color TEXT NOT NULL DEFAULT '',
            days TEXT NOT NULL DEFAULT '[]',
            date TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS completion (
            task_id INTEGER NOT NULL,
            date TEXT NOT NULL,
            done INTEGER NOT NULL DEFAULT 0,
            PRIMARY KEY(task_id, date)
        );`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// LoadTasks reads the cached task list in insertion order. A row that fails
// to decode is skipped with a warning; a corrupt cache must never take the
// session down.
func (s *Store) LoadTasks(ctx context.Context) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, time, description, color, days, date FROM tasks ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		var days string
		if err := rows.Scan(&t.ID, &t.Title, &t.Time, &t.Description, &t.Color, &days, &t.Date); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if err := json.Unmarshal([]byte(days), &t.Days); err != nil {
			s.logger.Warn("skipping task with corrupt days entry", slog.Int64("id", t.ID), slog.String("error", err.Error()))
			continue
		}
		if t.Days == nil {
			t.Days = []string{}
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SaveTasks replaces the cached task list with the given one.
func (s *Store) SaveTasks(ctx context.Context, tasks []models.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	for _, t := range tasks {
		days, err := json.Marshal(t.Days)
		if err != nil {
			return fmt.Errorf("encode days: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tasks(id, title, time, description, color, days, date) VALUES(?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Title, t.Time, t.Description, t.Color, string(days), t.Date); err != nil {
			return fmt.Errorf("insert task %d: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// LoadCompletion reads the cached completion map.
func (s *Store) LoadCompletion(ctx context.Context) (models.CompletionStatus, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT task_id, date, done FROM completion`)
	if err != nil {
		return nil, fmt.Errorf("load completion: %w", err)
	}
	defer rows.Close()

	status := models.CompletionStatus{}
	for rows.Next() {
		var taskID int64
		var date string
		var done bool
		if err := rows.Scan(&taskID, &date, &done); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		if status[taskID] == nil {
			status[taskID] = map[string]bool{}
		}
		status[taskID][date] = done
	}
	return status, rows.Err()
}

// SaveCompletion replaces the cached completion map with the given one.
func (s *Store) SaveCompletion(ctx context.Context, status models.CompletionStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save completion: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM completion`); err != nil {
		return fmt.Errorf("clear completion: %w", err)
	}
	for taskID, dates := range status {
		for date, done := range dates {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO completion(task_id, date, done) VALUES(?, ?, ?)`,
				taskID, date, done); err != nil {
				return fmt.Errorf("insert completion %d: %w", taskID, err)
			}
		}
	}
	return tx.Commit()
}
