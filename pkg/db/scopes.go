package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

var ErrScopeNotFound = errors.New("scope not found")

// Scope is a saved telescope endpoint.
type Scope struct {
	ID               int64
	Name             string
	Host             string
	Port             int
	KeepaliveSeconds int
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Addr returns host:port of the telescope command channel.
func (s *Scope) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Keepalive returns the keepalive interval as a duration.
func (s *Scope) Keepalive() time.Duration {
	return time.Duration(s.KeepaliveSeconds) * time.Second
}

// ScopeStore provides scope CRUD operations.
type ScopeStore interface {
	Get(ctx context.Context, id int64) (*Scope, error)
	GetByName(ctx context.Context, name string) (*Scope, error)
	GetActive(ctx context.Context) (*Scope, error)
	List(ctx context.Context) ([]*Scope, error)
	Upsert(ctx context.Context, s *Scope) error
	SetActive(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// Scopes returns a ScopeStore for this database.
func (db *DB) Scopes() ScopeStore {
	return &scopeStore{db: db}
}

type scopeStore struct {
	db *DB
}

const scopeColumns = `id, name, host, port, keepalive_seconds, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScope(row rowScanner) (*Scope, error) {
	s := &Scope{}
	var active int
	var createdAt, updatedAt string
	err := row.Scan(&s.ID, &s.Name, &s.Host, &s.Port, &s.KeepaliveSeconds, &active, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScopeNotFound
	}
	if err != nil {
		return nil, err
	}
	s.IsActive = active == 1
	s.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	s.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return s, nil
}

func (st *scopeStore) Get(ctx context.Context, id int64) (*Scope, error) {
	return scanScope(st.db.QueryRowContext(ctx,
		`SELECT `+scopeColumns+` FROM scopes WHERE id = ?`, id))
}

func (st *scopeStore) GetByName(ctx context.Context, name string) (*Scope, error) {
	return scanScope(st.db.QueryRowContext(ctx,
		`SELECT `+scopeColumns+` FROM scopes WHERE name = ?`, name))
}

func (st *scopeStore) GetActive(ctx context.Context) (*Scope, error) {
	return scanScope(st.db.QueryRowContext(ctx,
		`SELECT `+scopeColumns+` FROM scopes WHERE is_active = 1 LIMIT 1`))
}

func (st *scopeStore) List(ctx context.Context) ([]*Scope, error) {
	rows, err := st.db.QueryContext(ctx, `SELECT `+scopeColumns+` FROM scopes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var scopes []*Scope
	for rows.Next() {
		s, err := scanScope(rows)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, s)
	}
	return scopes, rows.Err()
}

// Upsert inserts s or updates the scope with the same name. Zero port and
// keepalive take the column defaults. s.ID is filled in.
func (st *scopeStore) Upsert(ctx context.Context, s *Scope) error {
	if s.Port == 0 {
		s.Port = DefaultScopePort
	}
	if s.KeepaliveSeconds == 0 {
		s.KeepaliveSeconds = DefaultKeepaliveSeconds
	}

	err := st.db.QueryRowContext(ctx, `
		INSERT INTO scopes (name, host, port, keepalive_seconds)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			host = excluded.host,
			port = excluded.port,
			keepalive_seconds = excluded.keepalive_seconds,
			updated_at = datetime('now')
		RETURNING id
	`, s.Name, s.Host, s.Port, s.KeepaliveSeconds).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to save scope %q: %w", s.Name, err)
	}
	return nil
}

func (st *scopeStore) SetActive(ctx context.Context, id int64) error {
	return st.db.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE scopes SET is_active = 0 WHERE is_active = 1`); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `
			UPDATE scopes SET is_active = 1, updated_at = datetime('now') WHERE id = ?
		`, id)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrScopeNotFound
		}
		return nil
	})
}

func (st *scopeStore) Delete(ctx context.Context, id int64) error {
	result, err := st.db.ExecContext(ctx, `DELETE FROM scopes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrScopeNotFound
	}
	return nil
}
