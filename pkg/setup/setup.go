// Package setup turns command-line flags and the stored configuration into
// the collaborators both binaries run with.
package setup

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/smarttel/pkg/db"
	"github.com/urmzd/smarttel/pkg/discovery"
	"github.com/urmzd/smarttel/pkg/seestar"
)

// Flags are the options shared by cmd/api and cmd/mcp.
type Flags struct {
	DBPath          string
	Name            string
	Host            string
	Port            int
	Discover        bool
	DiscoverTimeout time.Duration
	Debug           bool
}

// Register binds the flags to fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.DBPath, "db", "", "Path to database file (default: ~/.config/smarttel/smarttel.db)")
	fs.StringVar(&f.Name, "name", db.DefaultScopeName, "Name the telescope is saved under")
	fs.StringVar(&f.Host, "host", "", "Telescope host; saved as the active scope")
	fs.IntVar(&f.Port, "port", seestar.DefaultPort, "Telescope TCP port")
	fs.BoolVar(&f.Discover, "discover", false, "Scan the local network and use the first telescope that answers")
	fs.DurationVar(&f.DiscoverTimeout, "discover-timeout", discovery.DefaultTimeout, "How long -discover listens for replies")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging, including wire traffic")
}

// ApplyLogLevel sets the global zerolog level from -debug.
func (f *Flags) ApplyLogLevel() {
	level := zerolog.InfoLevel
	if f.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}

// Env is the loaded runtime. Client is nil when no telescope is known.
type Env struct {
	DB         *db.DB
	Config     *db.Config
	Scope      *db.Scope
	Client     *seestar.Client
	Discoverer *discovery.Discoverer

	closeOnce sync.Once
}

// Load opens the database, bootstraps it on first run and
// picks the telescope: -host wins, then -discover, then the saved scope.
// A host chosen by flag or scan is saved back as the active scope.
func Load(ctx context.Context, flags Flags, discoveryOpts ...discovery.Option) (*Env, error) {
	database, err := db.Open(ctx, flags.DBPath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", database.Path()).Msg("Database opened")

	env := &Env{DB: database, Discoverer: discovery.New(discoveryOpts...)}
	if err := env.load(ctx, flags); err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

func (e *Env) load(ctx context.Context, flags Flags) error {
	needsBootstrap, err := e.DB.NeedsBootstrap(ctx)
	if err != nil {
		return err
	}
	if needsBootstrap {
		log.Info().Msg("First run detected, bootstrapping database...")
		if err := e.DB.Bootstrap(ctx, db.BootstrapOptions{}); err != nil {
			return fmt.Errorf("bootstrap database: %w", err)
		}
	}

	host := flags.Host
	if host == "" && flags.Discover {
		host, err = e.discoverHost(ctx, flags.DiscoverTimeout)
		if err != nil {
			return err
		}
	}

	if host != "" {
		keepalive := db.DefaultKeepaliveSeconds
		if existing, err := e.DB.Scopes().GetByName(ctx, flags.Name); err == nil {
			keepalive = existing.KeepaliveSeconds
		}
		if _, err := e.DB.SaveActiveScope(ctx, flags.Name, host, flags.Port, keepalive); err != nil {
			return fmt.Errorf("save scope: %w", err)
		}
	}

	cfg, err := e.DB.ActiveConfig(ctx)
	if err != nil && !errors.Is(err, db.ErrNoActiveScope) {
		return err
	}
	e.Config = cfg
	e.Scope = cfg.Scope

	if e.Scope == nil {
		return nil
	}

	log.Info().
		Str("scope", e.Scope.Name).
		Str("telescope", e.Scope.Addr()).
		Str("api_address", cfg.APIAddress()).
		Msg("Configuration loaded")

	e.Client = seestar.NewClient(e.Scope.Host, e.Scope.Port,
		seestar.WithKeepaliveInterval(e.Scope.Keepalive()),
	)
	return nil
}

// discoverHost scans once, remembers every reply and returns the first.
func (e *Env) discoverHost(ctx context.Context, timeout time.Duration) (string, error) {
	found, err := e.Discoverer.Discover(ctx, timeout)
	if err != nil {
		return "", fmt.Errorf("discover telescopes: %w", err)
	}

	records := make([]db.DiscoveredDevice, len(found))
	for i, d := range found {
		records[i] = db.DiscoveredDevice{Address: d.Address, Payload: d.Payload}
	}
	if err := db.RecordScan(ctx, e.DB.Discovered(), records); err != nil {
		log.Warn().Err(err).Msg("Failed to save discovery results")
	}

	if len(found) == 0 {
		log.Warn().Msg("No telescope answered the scan")
		return "", nil
	}
	if len(found) > 1 {
		log.Info().Int("found", len(found)).Str("using", found[0].Address).Msg("Several telescopes answered")
	}
	return found[0].Address, nil
}

// Close shuts the client and the database. It is safe to call more than once.
func (e *Env) Close() {
	e.closeOnce.Do(func() {
		if e.Client != nil {
			e.Client.Close()
		}
		if err := e.DB.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	})
}
