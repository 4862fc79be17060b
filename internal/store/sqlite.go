package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SQLiteStore persists keys in a single kv_entries table. It is the
// durable alternative to FileStore for deployments that want one file
// plus WAL semantics.
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the database at path and
// runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dbDir := filepath.Dir(path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	connString := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	conn, err := sql.Open("sqlite3", connString)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The store sees small, serialized read-modify-write cycles; a tiny
	// pool is plenty and avoids writer contention under WAL.
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{conn: conn}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Verify the kv_entries table made it.
	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='kv_entries'").Scan(&tableName)
	if err != nil {
		return fmt.Errorf("migration verification failed: kv_entries table does not exist: %w", err)
	}
	return nil
}

// Get returns the stored value for key, or false when absent.
func (s *SQLiteStore) Get(key string) ([]byte, bool) {
	var value []byte
	err := s.conn.QueryRow("SELECT value FROM kv_entries WHERE key = ?", key).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			// Treated as absent; the caller recovers with a default.
			slog.Warn("store.sqlite_read_failed", "key", key, "error", err)
		}
		return nil, false
	}
	return value, true
}

// Set upserts value under key.
func (s *SQLiteStore) Set(key string, value []byte) error {
	_, err := s.conn.Exec(
		`INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Remove deletes key; an absent key is a no-op.
func (s *SQLiteStore) Remove(key string) error {
	if _, err := s.conn.Exec("DELETE FROM kv_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys starting with prefix. The prefix is matched
// literally: every key in the layout contains '_', which LIKE would
// otherwise treat as a single-character wildcard and leak keys of users
// whose ids merely overlap (user_u1_ matching user_u1x_...).
func (s *SQLiteStore) Keys(prefix string) ([]string, error) {
	rows, err := s.conn.Query(`SELECT key FROM kv_entries WHERE key LIKE ? ESCAPE '\' ORDER BY key`,
		likeEscape(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// likeEscape neutralizes LIKE metacharacters in a literal prefix.
func likeEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

var _ Store = (*SQLiteStore)(nil)
