package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	appDir      = "smarttel"
	dbFileName  = "smarttel.db"
	busyTimeout = 5000 // ms
)

// ErrUserHomePath is returned for paths such as ~alice/x, which name another
// user's home directory.
var ErrUserHomePath = errors.New("~user paths are not supported")

// DB is the client's configuration store: saved scopes, the API listener
// and the discovery cache.
type DB struct {
	*sql.DB
	path string
}

// Open opens or creates the store at path and migrates it to the current
// schema. An empty path selects DefaultPath.
func Open(ctx context.Context, path string) (*DB, error) {
	path, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", path, busyTimeout)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect to database %s: %w", path, err)
	}

	db := &DB{DB: sqlDB, path: path}
	if err := db.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the resolved database file path.
func (db *DB) Path() string {
	return db.path
}

// Tx runs fn in a transaction, committing only if fn returns nil.
func (db *DB) Tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ResolvePath expands a leading ~/ to the current user's home directory.
// An empty path resolves to DefaultPath.
func ResolvePath(path string) (string, error) {
	if path == "" {
		return DefaultPath()
	}
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return "", fmt.Errorf("%w: %s", ErrUserHomePath, path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// DefaultPath is $XDG_CONFIG_HOME/smarttel/smarttel.db, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("determine database path: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appDir, dbFileName), nil
}
