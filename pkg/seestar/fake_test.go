package seestar

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeTelescope is a TCP peer speaking the line protocol. Requests are
// recorded; replies come from per-method handlers, defaulting to a
// result of 0.
type fakeTelescope struct {
	ln net.Listener

	mu       sync.Mutex
	conn     net.Conn
	requests []Command
	replies  map[Method]func(Command) []string
}

func newFakeTelescope(t *testing.T) *fakeTelescope {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeTelescope{ln: ln, replies: map[Method]func(Command) []string{}}
	f.reply(MethodGetDeviceState, func(cmd Command) []string {
		return []string{okResponse(cmd, `{"pi_status":{"temp":30.1,"charger_status":"Discharging","charge_online":false,"battery_capacity":80}}`)}
	})
	f.reply(MethodGetViewState, func(cmd Command) []string {
		return []string{okResponse(cmd, `{"View":{"target_name":"M42","stage":"Stack","state":"working"}}`)}
	})

	t.Cleanup(func() {
		_ = ln.Close()
		f.dropConn()
	})
	go f.serve()
	return f
}

func okResponse(cmd Command, result string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","Timestamp":"9507.244805","method":%q,"result":%s,"code":0,"id":%d}`,
		cmd.Method, result, cmd.ID)
}

func (f *fakeTelescope) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeTelescope) reply(method Method, fn func(Command) []string) {
	f.mu.Lock()
	f.replies[method] = fn
	f.mu.Unlock()
}

// silence makes the telescope swallow requests for method.
func (f *fakeTelescope) silence(method Method) {
	f.reply(method, func(Command) []string { return nil })
}

// stall makes the telescope stop reading once it receives method, until
// the test ends.
func (f *fakeTelescope) stall(t *testing.T, method Method) {
	t.Helper()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	f.reply(method, func(Command) []string {
		<-release
		return nil
	})
}

func (f *fakeTelescope) serve() {
	for {
		nc, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conn = nc
		f.mu.Unlock()
		go f.handle(nc)
	}
}

func (f *fakeTelescope) handle(nc net.Conn) {
	sc := bufio.NewScanner(nc)
	for sc.Scan() {
		var cmd Command
		if err := json.Unmarshal(sc.Bytes(), &cmd); err != nil {
			continue
		}

		f.mu.Lock()
		f.requests = append(f.requests, cmd)
		fn, ok := f.replies[cmd.Method]
		f.mu.Unlock()

		lines := []string{okResponse(cmd, "0")}
		if ok {
			lines = fn(cmd)
		}
		for _, line := range lines {
			if _, err := io.WriteString(nc, line+"\n"); err != nil {
				return
			}
		}
	}
}

// push writes raw to the current connection.
func (f *fakeTelescope) push(t *testing.T, raw string) {
	t.Helper()
	f.mu.Lock()
	nc := f.conn
	f.mu.Unlock()
	require.NotNil(t, nc, "no connection accepted")
	_, err := io.WriteString(nc, raw)
	require.NoError(t, err)
}

func (f *fakeTelescope) dropConn() {
	f.mu.Lock()
	nc := f.conn
	f.conn = nil
	f.mu.Unlock()
	if nc != nil {
		_ = nc.Close()
	}
}

func (f *fakeTelescope) received() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.requests...)
}

func (f *fakeTelescope) receivedMethod(method Method) bool {
	for _, cmd := range f.received() {
		if cmd.Method == method {
			return true
		}
	}
	return false
}
