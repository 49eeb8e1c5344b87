// Package projectstore is a sqlite-backed project registry: the same
// New(dbPath)/WAL-mode/migration-tolerant-of-duplicate-column pattern
// used for persisted camera and motion-event records, scoped down to the
// project settings the control surface lists, gets, and sets.
package projectstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a sqlite connection holding the project registry and a
// generic app_config key-value table.
type Store struct {
	db *sql.DB
}

// ProjectRecord is a registered project: a classifier name plus
// arbitrary JSON-encoded settings (e.g. volume thresholds, mouse zone).
type ProjectRecord struct {
	ID        string
	Name      string
	Settings  string // JSON-encoded
	Enabled   bool
	CreatedAt time.Time
}

// ConfigRecord is a generic, domain-agnostic key-value pair.
type ConfigRecord struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		settings TEXT NOT NULL DEFAULT '{}',
		enabled INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS app_config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`ALTER TABLE projects ADD COLUMN enabled INTEGER NOT NULL DEFAULT 1`,
}

// New opens (creating if necessary) the sqlite database at dbPath, in WAL
// mode with foreign keys enabled, and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("projectstore: open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("projectstore: enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("projectstore: enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrate runs the migration list, tolerating "duplicate column" errors
// on re-application of additive ALTER TABLE statements that may already
// have applied.
func (s *Store) migrate() error {
	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("projectstore: migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveProject inserts or replaces a project record.
func (s *Store) SaveProject(p *ProjectRecord) error {
	enabled := 0
	if p.Enabled {
		enabled = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO projects (id, name, settings, enabled, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, settings=excluded.settings, enabled=excluded.enabled`,
		p.ID, p.Name, p.Settings, enabled, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("projectstore: save project %q: %w", p.ID, err)
	}
	return nil
}

// GetProject retrieves a project by id.
func (s *Store) GetProject(id string) (*ProjectRecord, error) {
	row := s.db.QueryRow(`SELECT id, name, settings, enabled, created_at FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// ListProjects returns all projects ordered by creation time.
func (s *Store) ListProjects() ([]*ProjectRecord, error) {
	rows, err := s.db.Query(`SELECT id, name, settings, enabled, created_at FROM projects ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("projectstore: list projects: %w", err)
	}
	defer rows.Close()

	var out []*ProjectRecord
	for rows.Next() {
		p, err := scanProjectRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProjectSettings replaces a project's JSON settings blob.
func (s *Store) UpdateProjectSettings(id string, settings map[string]any) error {
	encoded, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("projectstore: encode settings: %w", err)
	}
	res, err := s.db.Exec(`UPDATE projects SET settings = ? WHERE id = ?`, string(encoded), id)
	if err != nil {
		return fmt.Errorf("projectstore: update settings for %q: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("projectstore: project %q not found", id)
	}
	return nil
}

// DeleteProject removes a project by id.
func (s *Store) DeleteProject(id string) error {
	_, err := s.db.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("projectstore: delete project %q: %w", id, err)
	}
	return nil
}

func scanProject(row *sql.Row) (*ProjectRecord, error) {
	var p ProjectRecord
	var enabled int
	if err := row.Scan(&p.ID, &p.Name, &p.Settings, &enabled, &p.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("projectstore: project not found: %w", err)
		}
		return nil, fmt.Errorf("projectstore: scan project: %w", err)
	}
	p.Enabled = enabled != 0
	return &p, nil
}

func scanProjectRows(rows *sql.Rows) (*ProjectRecord, error) {
	var p ProjectRecord
	var enabled int
	if err := rows.Scan(&p.ID, &p.Name, &p.Settings, &enabled, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("projectstore: scan project: %w", err)
	}
	p.Enabled = enabled != 0
	return &p, nil
}

// SaveConfig upserts a generic key-value config entry.
func (s *Store) SaveConfig(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO app_config (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("projectstore: save config %q: %w", key, err)
	}
	return nil
}

// GetConfig retrieves a generic key-value config entry.
func (s *Store) GetConfig(key string) (*ConfigRecord, error) {
	row := s.db.QueryRow(`SELECT key, value, updated_at FROM app_config WHERE key = ?`, key)
	var c ConfigRecord
	if err := row.Scan(&c.Key, &c.Value, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("projectstore: get config %q: %w", key, err)
	}
	return &c, nil
}

// ListConfigs returns all generic key-value config entries.
func (s *Store) ListConfigs() ([]*ConfigRecord, error) {
	rows, err := s.db.Query(`SELECT key, value, updated_at FROM app_config ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("projectstore: list configs: %w", err)
	}
	defer rows.Close()

	var out []*ConfigRecord
	for rows.Next() {
		var c ConfigRecord
		if err := rows.Scan(&c.Key, &c.Value, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("projectstore: scan config: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// DeleteConfig removes a generic key-value config entry.
func (s *Store) DeleteConfig(key string) error {
	_, err := s.db.Exec(`DELETE FROM app_config WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("projectstore: delete config %q: %w", key, err)
	}
	return nil
}
