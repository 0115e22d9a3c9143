package setup

import (
	"context"
	"flag"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/smarttel/pkg/discovery"
)

func testFlags(t *testing.T, args ...string) Flags {
	t.Helper()
	var f Flags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f.Register(fs)
	require.NoError(t, fs.Parse(append([]string{"-db", filepath.Join(t.TempDir(), "s.db")}, args...)))
	return f
}

func TestLoadWithoutTelescope(t *testing.T) {
	env, err := Load(context.Background(), testFlags(t))
	require.NoError(t, err)
	defer env.Close()

	assert.Nil(t, env.Client)
	assert.Nil(t, env.Scope)
	assert.Equal(t, "0.0.0.0:8080", env.Config.APIAddress())
	env.Close()
}

func TestLoadHostFlagIsSaved(t *testing.T) {
	flags := testFlags(t, "-host", "192.168.1.50", "-port", "4701")

	env, err := Load(context.Background(), flags)
	require.NoError(t, err)
	require.NotNil(t, env.Client)
	assert.Equal(t, "192.168.1.50:4701", env.Client.Addr())
	env.Close()

	// Without -host the saved scope is used.
	flags.Host = ""
	env, err = Load(context.Background(), flags)
	require.NoError(t, err)
	defer env.Close()
	require.NotNil(t, env.Scope)
	assert.Equal(t, "192.168.1.50:4701", env.Scope.Addr())
	assert.Equal(t, 5*time.Second, env.Scope.Keepalive())
}

func TestLoadDiscoverUsesFirstReply(t *testing.T) {
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = pc.Close() }()
	go func() {
		buf := make([]byte, 1024)
		_, from, err := pc.ReadFrom(buf)
		if err != nil {
			return
		}
		_, _ = pc.WriteTo([]byte(`{"id":201,"result":{"sn":"x"}}`), from)
	}()

	loopback := net.IPv4(127, 0, 0, 1).To4()
	flags := testFlags(t, "-discover", "-discover-timeout", "300ms")
	env, err := Load(context.Background(), flags,
		discovery.WithResolver(discovery.StaticResolver{Local: loopback, Broadcast: loopback}),
		discovery.WithPort(pc.LocalAddr().(*net.UDPAddr).Port),
	)
	require.NoError(t, err)
	defer env.Close()

	require.NotNil(t, env.Client)
	assert.Equal(t, "127.0.0.1:4700", env.Client.Addr())

	saved, err := env.DB.Discovered().List(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "127.0.0.1", saved[0].Address)
}
