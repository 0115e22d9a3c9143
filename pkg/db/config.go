package db

import (
	"context"
	"errors"
	"fmt"
)

const (
	DefaultScopeName        = "default"
	DefaultScopePort        = 4700
	DefaultKeepaliveSeconds = 5
	DefaultAPIHost          = "0.0.0.0"
	DefaultAPIPort          = 8080
)

var ErrNoActiveScope = errors.New("no active scope configured")

// Config represents the complete runtime configuration loaded from the database.
type Config struct {
	Scope     *Scope
	APIServer *APIServer
}

// APIAddress returns the API server listen address.
func (c *Config) APIAddress() string {
	if c.APIServer == nil {
		return (&APIServer{Host: DefaultAPIHost, Port: DefaultAPIPort}).Address()
	}
	return c.APIServer.Address()
}

// ActiveConfig loads the active scope and the API server address. A
// missing active scope is reported as ErrNoActiveScope; the API server
// falls back to defaults when unset.
func (db *DB) ActiveConfig(ctx context.Context) (*Config, error) {
	config := &Config{}

	apiServer, err := db.APIServers().Get(ctx)
	if err != nil && !errors.Is(err, ErrAPIServerNotFound) {
		return nil, fmt.Errorf("failed to get API server config: %w", err)
	}
	config.APIServer = apiServer

	scope, err := db.Scopes().GetActive(ctx)
	if err != nil {
		if errors.Is(err, ErrScopeNotFound) {
			return config, ErrNoActiveScope
		}
		return nil, fmt.Errorf("failed to get active scope: %w", err)
	}
	config.Scope = scope

	return config, nil
}

// SaveActiveScope stores host and port under name and marks that scope active.
func (db *DB) SaveActiveScope(ctx context.Context, name, host string, port, keepaliveSeconds int) (*Scope, error) {
	if name == "" {
		name = DefaultScopeName
	}
	s := &Scope{Name: name, Host: host, Port: port, KeepaliveSeconds: keepaliveSeconds}
	if err := db.Scopes().Upsert(ctx, s); err != nil {
		return nil, err
	}
	if err := db.Scopes().SetActive(ctx, s.ID); err != nil {
		return nil, fmt.Errorf("failed to activate scope %q: %w", name, err)
	}
	return db.Scopes().Get(ctx, s.ID)
}
