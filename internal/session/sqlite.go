package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps one row per chat. The schema is created on open.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the given path, ensuring
// that the parent directory exists.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			chat_id INTEGER PRIMARY KEY,
			role_prompt TEXT NOT NULL DEFAULT '',
			history TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadOrCreate returns the session for chatID, inserting a fresh row with
// defaultPrompt and empty history if none exists yet. The insert-if-absent is
// a single statement, so concurrent first contact cannot duplicate the row.
func (s *SQLiteStore) LoadOrCreate(ctx context.Context, chatID int64, defaultPrompt string) (Session, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (chat_id, role_prompt, history) VALUES (?, ?, '')
		ON CONFLICT(chat_id) DO NOTHING
	`, chatID, defaultPrompt)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}

	sess := Session{ChatID: chatID}
	err = s.db.QueryRowContext(ctx, `
		SELECT role_prompt, history FROM sessions WHERE chat_id = ?
	`, chatID).Scan(&sess.RolePrompt, &sess.History)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// SetPrompt inserts-or-replaces the role prompt and resets the history.
func (s *SQLiteStore) SetPrompt(ctx context.Context, chatID int64, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (chat_id, role_prompt, history) VALUES (?, ?, '')
		ON CONFLICT(chat_id) DO UPDATE SET role_prompt = excluded.role_prompt, history = ''
	`, chatID, prompt)
	if err != nil {
		return fmt.Errorf("set prompt: %w", err)
	}
	return nil
}

// ResetHistory clears the history and keeps the role prompt. Resetting a
// never-seen chat matches zero rows and is not an error.
func (s *SQLiteStore) ResetHistory(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET history = '' WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("reset history: %w", err)
	}
	return nil
}

// SaveHistory overwrites the stored history. The row must already exist
// (callers go through LoadOrCreate first).
func (s *SQLiteStore) SaveHistory(ctx context.Context, chatID int64, history string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET history = ? WHERE chat_id = ?`, history, chatID)
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}
