// Package db stores the wallet activity journal and user settings in a local
// SQLite file. The schema ships embedded as numbered SQL migrations.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Fantasim/btcconnect/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB is the journal store.
type DB struct {
	conn *sql.DB
	path string
}

// New opens (creating if needed) the journal at path in WAL mode.
func New(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory for %q: %w", path, err)
	}

	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}

	var mode string
	if err := conn.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}
	slog.Debug("journal database opened", "path", path, "journalMode", mode)

	return &DB{conn: conn, path: path}, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", config.DBBusyTimeout))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + path + "?" + q.Encode()
}

// Close closes the database connection.
func (d *DB) Close() error {
	slog.Info("closing database", "path", d.path)
	return d.conn.Close()
}

// Conn exposes the pool for tests and ad-hoc queries.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Ping reports whether the database still answers.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", config.ErrDatabase, err)
	}
	return nil
}

type migration struct {
	version int
	file    string
}

// pendingMigrations lists embedded migrations not yet in schema_migrations,
// oldest first. Files are named NNN_description.sql.
func (d *DB) pendingMigrations() ([]migration, error) {
	applied := make(map[int]bool)
	rows, err := d.conn.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// fs.Glob returns names in lexical order, which is version order for
	// zero-padded prefixes.
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	var pending []migration
	for _, file := range files {
		prefix, _, _ := strings.Cut(filepath.Base(file), "_")
		version, err := strconv.Atoi(prefix)
		if err != nil {
			slog.Warn("skipping migration without a numeric prefix", "file", file)
			continue
		}
		if !applied[version] {
			pending = append(pending, migration{version: version, file: file})
		}
	}
	return pending, nil
}

// RunMigrations brings the schema up to date. Each migration commits in its
// own transaction together with its schema_migrations row.
func (d *DB) RunMigrations() error {
	if _, err := d.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	pending, err := d.pendingMigrations()
	if err != nil {
		return err
	}
	for _, m := range pending {
		if err := d.apply(m); err != nil {
			return err
		}
		slog.Info("migration applied", "version", m.version, "file", m.file)
	}
	return nil
}

func (d *DB) apply(m migration) error {
	body, err := migrationsFS.ReadFile(m.file)
	if err != nil {
		return fmt.Errorf("failed to read migration %s: %w", m.file, err)
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(body)); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", m.file, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.version, err)
	}
	return tx.Commit()
}
