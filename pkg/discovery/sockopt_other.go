//go:build !unix

package discovery

import "syscall"

// control relies on the runtime defaults, which already allow broadcast
// on datagram sockets.
func control(_, _ string, _ syscall.RawConn) error {
	return nil
}
