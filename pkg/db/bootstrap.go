package db

import (
	"context"
	"fmt"
)

// NeedsBootstrap reports whether the database has no API server row yet.
func (db *DB) NeedsBootstrap(ctx context.Context) (bool, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_server`).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check api_server table: %w", err)
	}
	return count == 0, nil
}

// BootstrapOptions seeds a fresh database.
type BootstrapOptions struct {
	APIHost   string
	APIPort   int
	ScopeHost string // empty means no scope is saved
	ScopePort int
}

// Bootstrap writes the initial configuration.
func (db *DB) Bootstrap(ctx context.Context, opts BootstrapOptions) error {
	if opts.APIHost == "" {
		opts.APIHost = DefaultAPIHost
	}
	if opts.APIPort == 0 {
		opts.APIPort = DefaultAPIPort
	}

	if err := db.APIServers().Save(ctx, &APIServer{Host: opts.APIHost, Port: opts.APIPort}); err != nil {
		return err
	}

	if opts.ScopeHost != "" {
		if _, err := db.SaveActiveScope(ctx, DefaultScopeName, opts.ScopeHost, opts.ScopePort, DefaultKeepaliveSeconds); err != nil {
			return err
		}
	}
	return nil
}
