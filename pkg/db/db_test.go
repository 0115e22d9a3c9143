package db

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestMigrateIsIdempotent(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.Migrate(ctx))
	v, err := d.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
}

func TestBootstrap(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	needs, err := d.NeedsBootstrap(ctx)
	require.NoError(t, err)
	assert.True(t, needs)

	require.NoError(t, d.Bootstrap(ctx, BootstrapOptions{ScopeHost: "192.168.1.50"}))

	needs, err = d.NeedsBootstrap(ctx)
	require.NoError(t, err)
	assert.False(t, needs)

	cfg, err := d.ActiveConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.APIAddress())
	require.NotNil(t, cfg.Scope)
	assert.Equal(t, "192.168.1.50:4700", cfg.Scope.Addr())
	assert.Equal(t, 5*time.Second, cfg.Scope.Keepalive())
	assert.True(t, cfg.Scope.IsActive)
}

func TestActiveConfigWithoutScope(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, d.Bootstrap(ctx, BootstrapOptions{APIPort: 9090}))

	cfg, err := d.ActiveConfig(ctx)
	assert.ErrorIs(t, err, ErrNoActiveScope)
	require.NotNil(t, cfg)
	assert.Nil(t, cfg.Scope)
	assert.Equal(t, "0.0.0.0:9090", cfg.APIAddress())
}

func TestScopeUpsertAndActivate(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	store := d.Scopes()

	a := &Scope{Name: "backyard", Host: "10.0.0.2"}
	require.NoError(t, store.Upsert(ctx, a))
	assert.NotZero(t, a.ID)

	b := &Scope{Name: "roof", Host: "10.0.0.3", Port: 4701, KeepaliveSeconds: 10}
	require.NoError(t, store.Upsert(ctx, b))

	// Same name updates in place.
	a2 := &Scope{Name: "backyard", Host: "10.0.0.9"}
	require.NoError(t, store.Upsert(ctx, a2))
	assert.Equal(t, a.ID, a2.ID)

	got, err := store.GetByName(ctx, "backyard")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9", got.Host)
	assert.Equal(t, DefaultScopePort, got.Port)

	require.NoError(t, store.SetActive(ctx, a.ID))
	require.NoError(t, store.SetActive(ctx, b.ID))

	active, err := store.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "roof", active.Name)
	assert.Equal(t, 10*time.Second, active.Keepalive())

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.False(t, all[0].IsActive)
	assert.True(t, all[1].IsActive)

	assert.ErrorIs(t, store.SetActive(ctx, 999), ErrScopeNotFound)
	require.NoError(t, store.Delete(ctx, a.ID))
	assert.ErrorIs(t, store.Delete(ctx, a.ID), ErrScopeNotFound)
	_, err = store.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrScopeNotFound)
}

func TestSaveActiveScopeOverridesHost(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	_, err := d.SaveActiveScope(ctx, "", "10.0.0.2", 0, 0)
	require.NoError(t, err)
	s, err := d.SaveActiveScope(ctx, "", "10.0.0.7", 4800, 3)
	require.NoError(t, err)

	assert.Equal(t, DefaultScopeName, s.Name)
	assert.Equal(t, "10.0.0.7:4800", s.Addr())
	assert.Equal(t, 3, s.KeepaliveSeconds)

	all, err := d.Scopes().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDiscoveredRecordAndList(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	store := d.Discovered()

	require.NoError(t, store.Record(ctx, nil))
	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, store.Record(ctx, []DiscoveredDevice{
		{Address: "10.0.0.2", Payload: json.RawMessage(`{"id":201,"result":{"sn":"a"}}`)},
		{Address: "10.0.0.3"},
	}))
	require.NoError(t, store.Record(ctx, []DiscoveredDevice{
		{Address: "10.0.0.2", Payload: json.RawMessage(`{"id":201,"result":{"sn":"b"}}`)},
	}))

	list, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byAddr := map[string]DiscoveredDevice{}
	for _, dev := range list {
		byAddr[dev.Address] = dev
	}
	assert.JSONEq(t, `{"id":201,"result":{"sn":"b"}}`, string(byAddr["10.0.0.2"].Payload))
	assert.JSONEq(t, `{}`, string(byAddr["10.0.0.3"].Payload))
	assert.False(t, byAddr["10.0.0.2"].LastSeen.IsZero())

	n, err := store.Prune(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestRecordScanForgetsStaleDevices(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	stale := time.Now().Add(-DiscoveredRetention - time.Hour).UTC().Format(time.DateTime)
	_, err := d.ExecContext(ctx,
		`INSERT INTO discovered_devices (address, payload, last_seen) VALUES (?, '{}', ?)`,
		"10.0.0.9", stale)
	require.NoError(t, err)

	require.NoError(t, RecordScan(ctx, d.Discovered(), []DiscoveredDevice{{Address: "10.0.0.2"}}))

	list, err := d.Discovered().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "10.0.0.2", list[0].Address)
}

func TestResolvePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ResolvePath("~/scopes/smarttel.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "scopes", "smarttel.db"), got)

	got, err = ResolvePath("/tmp/smarttel.db")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/smarttel.db", got)

	_, err = ResolvePath("~alice/smarttel.db")
	assert.ErrorIs(t, err, ErrUserHomePath)
}

func TestDefaultPathHonoursXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	got, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg", "smarttel", "smarttel.db"), got)

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	got, err = DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "smarttel", "smarttel.db"), got)
}

func TestAPIServerSave(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	_, err := d.APIServers().Get(ctx)
	assert.ErrorIs(t, err, ErrAPIServerNotFound)

	require.NoError(t, d.APIServers().Save(ctx, &APIServer{Host: "127.0.0.1", Port: 8081}))
	require.NoError(t, d.APIServers().Save(ctx, &APIServer{Host: "127.0.0.1", Port: 8082}))

	a, err := d.APIServers().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8082", a.Address())
}
