// Package store provides the SQLite-backed application store: settings
// key/value pairs, the workspace registry, and the recent-directory list.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	ErrSettingNotFound   = errors.New("setting not found")
	ErrWorkspaceNotFound = errors.New("workspace not found")
)

// Workspace is a registered project root the chat UI can work in
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// RecentDirectory is one entry in the recently used directory list
type RecentDirectory struct {
	Path       string    `json:"path"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Store handles application persistence
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the application database in dataDir
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "codeagentd.db")
	// Enable WAL mode and busy timeout for better concurrent access
	db, err := sql.Open("sqlite", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS workspaces (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_workspaces_path ON workspaces(path);

	CREATE TABLE IF NOT EXISTS recent_dirs (
		path TEXT PRIMARY KEY,
		last_used_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for packages sharing this database
func (s *Store) DB() *sql.DB {
	return s.db
}

// GetSetting returns the value stored under key
func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query setting: %w", err)
	}
	return value, nil
}

// SetSetting inserts or replaces a setting
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

// DeleteSetting removes a setting; deleting a missing key is not an error
func (s *Store) DeleteSetting(key string) error {
	if _, err := s.db.Exec("DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return nil
}

// AllSettings returns every stored key/value pair
func (s *Store) AllSettings() (map[string]string, error) {
	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// ResetSettings removes all stored settings
func (s *Store) ResetSettings() error {
	if _, err := s.db.Exec("DELETE FROM settings"); err != nil {
		return fmt.Errorf("failed to reset settings: %w", err)
	}
	return nil
}

// CreateWorkspace registers a workspace root
func (s *Store) CreateWorkspace(name, path string) (*Workspace, error) {
	ws := &Workspace{
		ID:        "ws_" + uuid.New().String()[:8],
		Name:      name,
		Path:      path,
		CreatedAt: time.Now(),
	}
	_, err := s.db.Exec(`
		INSERT INTO workspaces (id, name, path, created_at) VALUES (?, ?, ?, ?)`,
		ws.ID, ws.Name, ws.Path, ws.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert workspace: %w", err)
	}
	return ws, nil
}

// GetWorkspace retrieves a workspace by id
func (s *Store) GetWorkspace(id string) (*Workspace, error) {
	var ws Workspace
	err := s.db.QueryRow(`
		SELECT id, name, path, created_at FROM workspaces WHERE id = ?`, id,
	).Scan(&ws.ID, &ws.Name, &ws.Path, &ws.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query workspace: %w", err)
	}
	return &ws, nil
}

// ListWorkspaces returns all workspaces, newest first
func (s *Store) ListWorkspaces() ([]*Workspace, error) {
	rows, err := s.db.Query(`
		SELECT id, name, path, created_at FROM workspaces ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var workspaces []*Workspace
	for rows.Next() {
		var ws Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.Path, &ws.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		workspaces = append(workspaces, &ws)
	}
	return workspaces, rows.Err()
}

// DeleteWorkspace removes a workspace registration
func (s *Store) DeleteWorkspace(id string) error {
	result, err := s.db.Exec("DELETE FROM workspaces WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrWorkspaceNotFound
	}
	return nil
}

// TouchRecentDir records path as most recently used
func (s *Store) TouchRecentDir(path string) error {
	_, err := s.db.Exec(`
		INSERT INTO recent_dirs (path, last_used_at) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET last_used_at = excluded.last_used_at`,
		path, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to touch recent dir: %w", err)
	}
	return nil
}

// ListRecentDirs returns recent directories, most recent first
func (s *Store) ListRecentDirs(limit int) ([]*RecentDirectory, error) {
	query := "SELECT path, last_used_at FROM recent_dirs ORDER BY last_used_at DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent dirs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dirs []*RecentDirectory
	for rows.Next() {
		var dir RecentDirectory
		if err := rows.Scan(&dir.Path, &dir.LastUsedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent dir: %w", err)
		}
		dirs = append(dirs, &dir)
	}
	return dirs, rows.Err()
}

// PruneRecentDirs keeps only the max most recent entries
func (s *Store) PruneRecentDirs(max int) error {
	if max <= 0 {
		return nil
	}
	_, err := s.db.Exec(`
		DELETE FROM recent_dirs WHERE path NOT IN (
			SELECT path FROM recent_dirs ORDER BY last_used_at DESC LIMIT ?
		)`, max,
	)
	if err != nil {
		return fmt.Errorf("failed to prune recent dirs: %w", err)
	}
	return nil
}
