package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the task collection in a local database file. Rows are
// keyed by the same opaque string IDs the document stores hand out.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

func OpenSQLite(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, log: logger}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	done INTEGER NOT NULL DEFAULT 0,
	priority TEXT NOT NULL DEFAULT 'Medium',
	created_at TEXT NOT NULL
);`
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	return s.ensureTaskColumns()
}

func (s *SQLiteStore) ensureTaskColumns() error {
	required := map[string]string{
		"priority":   "ALTER TABLE tasks ADD COLUMN priority TEXT NOT NULL DEFAULT 'Medium';",
		"created_at": "ALTER TABLE tasks ADD COLUMN created_at TEXT NOT NULL DEFAULT '';",
	}
	existing := map[string]struct{}{}
	rows, err := s.db.Query(`PRAGMA table_info(tasks);`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for col, alter := range required {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := s.db.Exec(alter); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) LoadAll(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, done, priority FROM tasks ORDER BY rowid;`)
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		var doneInt int
		var priority string
		if err := rows.Scan(&t.ID, &t.Text, &doneInt, &priority); err != nil {
			return nil, fmt.Errorf("loading tasks: %w", err)
		}
		t.Done = doneInt == 1
		t.Priority = Priority(priority).Normalize()
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	s.log.Debug("loaded tasks", "count", len(tasks))
	return tasks, nil
}

func (s *SQLiteStore) Save(ctx context.Context, t *Task) error {
	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}
	done := 0
	if t.Done {
		done = 1
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO tasks (id, text, done, priority, created_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET text = excluded.text, done = excluded.done, priority = excluded.priority;`,
		id, t.Text, done, t.Priority.String(), now)
	if err != nil {
		return fmt.Errorf("saving task %s: %w", id, err)
	}
	t.ID = id
	s.log.Debug("saved task", "id", id)
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, t Task) error {
	if t.ID == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?;`, t.ID); err != nil {
		return fmt.Errorf("deleting task %s: %w", t.ID, err)
	}
	s.log.Debug("deleted task", "id", t.ID)
	return nil
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
