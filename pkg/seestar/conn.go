package seestar

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Stats counts the messages moved over a connection since it was opened.
type Stats struct {
	Written int64 `json:"written"`
	Read    int64 `json:"read"`
}

// Conn is a newline-framed TCP connection to the telescope.
//
// Writes may be issued from any goroutine and never interleave; reads must
// come from a single goroutine. Close never waits for a blocked write.
type Conn struct {
	host        string
	port        int
	dialTimeout time.Duration

	mu     sync.Mutex // guards conn, reader, writer, closed; never held across I/O
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	closed bool

	writeMu sync.Mutex // one line on the wire at a time

	written atomic.Int64
	read    atomic.Int64
}

// NewConn creates an unopened connection to host:port.
func NewConn(host string, port int, dialTimeout time.Duration) *Conn {
	return &Conn{host: host, port: port, dialTimeout: dialTimeout, closed: true}
}

// Addr returns the host:port the connection dials.
func (c *Conn) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// Open dials the telescope and resets the message counters.
func (c *Conn) Open(ctx context.Context) error {
	d := net.Dialer{Timeout: c.dialTimeout}
	nc, err := d.DialContext(ctx, "tcp", c.Addr())
	if err != nil {
		return newConnectionError("dial "+c.Addr(), err)
	}

	c.mu.Lock()
	c.conn = nc
	c.writer = bufio.NewWriter(nc)
	c.reader = bufio.NewReader(nc)
	c.closed = false
	c.mu.Unlock()

	c.written.Store(0)
	c.read.Store(0)

	log.Debug().Str("addr", c.Addr()).Msg("TCP connection opened")
	return nil
}

// Write is WriteContext without a deadline.
func (c *Conn) Write(line string) error {
	return c.WriteContext(context.Background(), line)
}

// WriteContext sends line followed by a single newline and flushes it to
// the transport before returning. ctx's deadline bounds the write, and
// cancelling ctx aborts it.
//
// A failed write may leave part of a line on the wire, so the connection
// closes itself. The error is the ctx error if ctx ended the write,
// ErrStreamEnded if Close did, and a *ConnectionError otherwise.
func (c *Conn) WriteContext(ctx context.Context, line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	nc, w, closed := c.conn, c.writer, c.closed
	c.mu.Unlock()

	if closed {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline, _ := ctx.Deadline()
	if err := nc.SetWriteDeadline(deadline); err != nil {
		return newConnectionError("set write deadline", err)
	}
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = nc.SetWriteDeadline(time.Now())
		close(fired)
	})
	defer func() {
		if !stop() {
			<-fired
		}
	}()

	if err := writeLine(w, line); err != nil {
		c.mu.Lock()
		closedLocally := c.closed
		c.mu.Unlock()
		_ = c.Close()

		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case isTimeout(err):
			return context.DeadlineExceeded
		case closedLocally:
			return ErrStreamEnded
		}
		return newConnectionError("write", err)
	}

	c.written.Add(1)
	log.Debug().Str("addr", c.Addr()).Str("line", truncate(line, 512)).Msg("TX")
	return nil
}

func writeLine(w *bufio.Writer, line string) error {
	if _, err := w.WriteString(line); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Read blocks until a full line is available and returns it with trailing
// whitespace removed. When the peer closes the stream, including in the
// middle of a line, the connection closes itself and Read returns
// ErrStreamEnded; every later call returns ErrStreamEnded as well.
func (c *Conn) Read() (string, error) {
	c.mu.Lock()
	reader := c.reader
	closed := c.closed
	c.mu.Unlock()

	if closed || reader == nil {
		return "", ErrStreamEnded
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		if line != "" {
			log.Debug().Str("addr", c.Addr()).Int("partial_len", len(line)).Msg("Stream ended mid-line")
		}
		_ = c.Close()
		return "", ErrStreamEnded
	}

	c.read.Add(1)
	return strings.TrimRightFunc(line, isSpace), nil
}

// Close releases the transport, failing any write blocked on it. It is
// safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	nc := c.conn
	c.mu.Unlock()

	if nc == nil {
		return nil
	}
	err := nc.Close()
	log.Debug().Str("addr", c.Addr()).Msg("TCP connection closed")
	return err
}

// Stats returns the message counters.
func (c *Conn) Stats() Stats {
	return Stats{Written: c.written.Load(), Read: c.read.Load()}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}
