package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/industrisk/falloutsim/internal/domain"
)

// SQLiteStore persists tasks in a single-file SQLite database. The full
// record is stored as a JSON payload; id, status, and created_at are
// mirrored into columns for filtering and ordering.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations. Transactions begin immediate so a contended
// read-then-write Update waits on busy_timeout instead of failing the
// deferred-to-write lock upgrade with SQLITE_BUSY.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			payload TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
		CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at);
	`)
	if err != nil {
		return fmt.Errorf("migrate tasks table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, t domain.Task) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", t.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, status, created_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			payload = excluded.payload
	`, t.ID, string(t.Status), t.CreatedAt, string(payload))
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.Task, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM tasks WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return domain.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return domain.Task{}, err
	}

	var t domain.Task
	if err := json.Unmarshal([]byte(payload), &t); err != nil {
		return domain.Task{}, fmt.Errorf("unmarshal task %s: %w", id, err)
	}
	return t, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, fn func(*domain.Task)) (domain.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	var payload string
	err = tx.QueryRowContext(ctx, `SELECT payload FROM tasks WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return domain.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return domain.Task{}, err
	}

	var t domain.Task
	if err := json.Unmarshal([]byte(payload), &t); err != nil {
		return domain.Task{}, fmt.Errorf("unmarshal task %s: %w", id, err)
	}

	fn(&t)

	updated, err := json.Marshal(t)
	if err != nil {
		return domain.Task{}, fmt.Errorf("marshal task %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET status = ?, payload = ? WHERE id = ?`,
		string(t.Status), string(updated), id); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (s *SQLiteStore) List(ctx context.Context, status domain.TaskStatus, limit int) ([]domain.Task, error) {
	query := `SELECT payload FROM tasks`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var t domain.Task
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("unmarshal task payload: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
