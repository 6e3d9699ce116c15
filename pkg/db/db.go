// Package db keeps the run history: one row per pipeline run plus each
// restaurant's outcome, so repeated runs on one date can be suppressed.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultDBName is the file created next to the binary when no path is
// configured.
const DefaultDBName = "lunch-bot.db"

// schemaVersion is stored in PRAGMA user_version; bump it with the schema.
const schemaVersion = 1

type DB struct {
	*sql.DB
	path string
}

// Open opens or creates the run history database and brings its schema up
// to date. An empty path resolves to DefaultDBName beside the executable.
func Open(dbPath string) (*DB, error) {
	path, err := resolvePath(dbPath)
	if err != nil {
		return nil, err
	}

	sqlDB, err := openDB(path)
	if err != nil {
		return nil, err
	}

	db := &DB{DB: sqlDB, path: path}
	if err := db.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema in %s: %w", path, err)
	}
	return db, nil
}

// resolvePath returns the file Open uses for dbPath.
func resolvePath(dbPath string) (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	execPath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable for default database: %w", err)
	}
	return filepath.Join(filepath.Dir(execPath), DefaultDBName), nil
}

func openDB(path string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return sqlDB, nil
}

// migrate applies the schema when the stored version is behind.
func (db *DB) migrate() error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	// PRAGMA does not take bound parameters.
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to store schema version: %w", err)
	}
	return nil
}

// Path returns the database file in use.
func (db *DB) Path() string {
	return db.path
}
