package seestar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultPort is the telescope's JSON-RPC TCP port.
const DefaultPort = 4700

const (
	defaultKeepaliveInterval = 5 * time.Second
	defaultRequestTimeout    = 10 * time.Second
	defaultDialTimeout       = 5 * time.Second
	defaultQueueDepth        = 16
)

// Option configures a Client.
type Option func(*Client)

// WithKeepaliveInterval sets how often pi_get_time is issued while connected.
func WithKeepaliveInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.keepaliveInterval = d
		}
	}
}

// WithRequestTimeout bounds SendAndRecv calls whose context has no deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithDialTimeout bounds the TCP dial.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// WithResponseQueue sets how many unclaimed responses Recv can buffer.
func WithResponseQueue(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.queueDepth = n
		}
	}
}

// inbound is an unclaimed response, or the decode failure of a line that
// claimed to be one.
type inbound struct {
	resp *CommandResponse
	err  error
}

// session is the state tied to one TCP connection.
type session struct {
	conn *Conn

	pending   map[int]chan *CommandResponse
	pendingMu sync.Mutex

	responses chan inbound
	done      chan struct{} // closed when the reader exits
}

func newSession(conn *Conn, depth int) *session {
	return &session{
		conn:      conn,
		pending:   make(map[int]chan *CommandResponse),
		responses: make(chan inbound, depth),
		done:      make(chan struct{}),
	}
}

// register claims id for one waiter. An id already in flight is refused so
// the earlier waiter keeps its response.
func (s *session) register(id int) (chan *CommandResponse, error) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if _, taken := s.pending[id]; taken {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	ch := make(chan *CommandResponse, 1)
	s.pending[id] = ch
	return ch, nil
}

func (s *session) unregister(id int) {
	s.pendingMu.Lock()
	delete(s.pending, id)
	s.pendingMu.Unlock()
}

func (s *session) waiter(id int) (chan *CommandResponse, bool) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	ch, ok := s.pending[id]
	return ch, ok
}

// Client is the protocol engine for one telescope.
//
// A single reader goroutine per connection consumes the socket. It folds
// events into Status and the recent-events history, hands each response to
// the SendAndRecv call waiting on its id, and queues the rest for Recv.
// Status and history therefore have exactly one writer.
type Client struct {
	host string
	port int

	keepaliveInterval time.Duration
	requestTimeout    time.Duration
	dialTimeout       time.Duration
	queueDepth        int

	lastID atomic.Int64

	mu        sync.Mutex
	session   *session
	connected bool

	stateMu sync.RWMutex
	status  Status
	history *History

	subscribers   []chan Event
	subscribersMu sync.Mutex

	keepaliveOnce sync.Once
	stopOnce      sync.Once
	stopChan      chan struct{}
}

// NewClient creates a disconnected client for host:port.
func NewClient(host string, port int, opts ...Option) *Client {
	c := &Client{
		host:              host,
		port:              port,
		keepaliveInterval: defaultKeepaliveInterval,
		requestTimeout:    defaultRequestTimeout,
		dialTimeout:       defaultDialTimeout,
		queueDepth:        defaultQueueDepth,
		history:           NewHistory(DefaultHistorySize),
		stopChan:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Addr returns host:port.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

func (c *Client) String() string {
	return c.Addr()
}

// IsConnected reports whether the client holds a live connection.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Connect opens the connection, resets Status, starts the keepalive and
// performs a best-effort status refresh.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	previous := c.session
	c.mu.Unlock()

	// A reader from a connection that ended on its own may still be
	// finishing up; it must be gone before Status is reset.
	if previous != nil {
		<-previous.done
	}

	conn := NewConn(c.host, c.port, c.dialTimeout)
	if err := conn.Open(ctx); err != nil {
		return err
	}

	s := newSession(conn, c.queueDepth)

	c.mu.Lock()
	c.session = s
	c.connected = true
	c.mu.Unlock()

	c.stateMu.Lock()
	c.status.Reset()
	c.stateMu.Unlock()

	go c.readLoop(s)
	c.keepaliveOnce.Do(func() { go c.keepalive() })

	log.Info().Str("addr", c.Addr()).Msg("Connected to telescope")

	c.refresh(ctx)
	return nil
}

// refresh queries device and view state; the reader folds both results
// into Status. Failures are logged and otherwise ignored.
func (c *Client) refresh(ctx context.Context) {
	for _, method := range []Method{MethodGetDeviceState, MethodGetViewState} {
		resp, err := c.SendAndRecv(ctx, NewCommand(method, nil))
		if err != nil {
			log.Warn().Err(err).Str("method", string(method)).Msg("Initial status refresh failed")
			continue
		}
		if !resp.IsOK() {
			log.Warn().
				Str("method", string(method)).
				Int("code", resp.Code).
				Str("error", resp.Error).
				Msg("Initial status refresh rejected")
		}
	}
}

// Disconnect closes the connection. Pending SendAndRecv and Recv calls
// return ErrStreamEnded. It is safe to call more than once.
func (c *Client) Disconnect() {
	c.mu.Lock()
	s := c.session
	wasConnected := c.connected
	c.connected = false
	c.session = nil
	c.mu.Unlock()

	if s == nil {
		return
	}

	if err := s.conn.Close(); err != nil {
		log.Warn().Err(err).Str("addr", c.Addr()).Msg("Failed to close connection")
	}
	<-s.done

	if wasConnected {
		log.Info().Str("addr", c.Addr()).Msg("Disconnected from telescope")
	}
}

// Close disconnects and stops the keepalive for good.
func (c *Client) Close() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.Disconnect()
}

// current returns the live session, or nil when disconnected.
func (c *Client) current() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	return c.session
}

// assignID gives cmd the next id if it has none.
func (c *Client) assignID(cmd *Command) {
	if cmd.ID == 0 {
		cmd.ID = int(c.lastID.Add(1))
	}
}

func (c *Client) write(ctx context.Context, s *session, cmd *Command) error {
	line, err := Encode(cmd)
	if err != nil {
		return err
	}
	err = s.conn.WriteContext(ctx, string(line))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: writing %s (id %d)", ErrTimeout, cmd.Method, cmd.ID)
	}
	return err
}

// Send assigns an id if cmd has none, then writes it without waiting for
// a reply. The assigned id is visible in cmd after the call. ctx bounds
// the write only.
func (c *Client) Send(ctx context.Context, cmd *Command) error {
	s := c.current()
	if s == nil {
		return ErrNotConnected
	}
	c.assignID(cmd)
	return c.write(ctx, s, cmd)
}

// Recv returns the next response no SendAndRecv call claimed. Events are
// never returned; they are folded into Status as they arrive. Once the
// connection is gone Recv returns ErrStreamEnded.
func (c *Client) Recv(ctx context.Context) (*CommandResponse, error) {
	s := c.current()
	if s == nil {
		return nil, ErrStreamEnded
	}

	select {
	case in := <-s.responses:
		return in.resp, in.err
	case <-s.done:
		return nil, ErrStreamEnded
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendAndRecv sends cmd and waits for the response carrying its id.
func (c *Client) SendAndRecv(ctx context.Context, cmd *Command) (*CommandResponse, error) {
	s := c.current()
	if s == nil {
		return nil, ErrNotConnected
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	c.assignID(cmd)
	ch, err := s.register(cmd.ID)
	if err != nil {
		log.Warn().Int("id", cmd.ID).Str("method", string(cmd.Method)).Msg("Request id already in flight")
		return nil, err
	}
	defer s.unregister(cmd.ID)

	if err := c.write(ctx, s, cmd); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-s.done:
		return nil, ErrStreamEnded
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s (id %d)", ErrTimeout, cmd.Method, cmd.ID)
		}
		return nil, ctx.Err()
	}
}

// Execute is SendAndRecv that reports a non-zero response code as a
// *CommandError.
func (c *Client) Execute(ctx context.Context, cmd *Command) (*CommandResponse, error) {
	resp, err := c.SendAndRecv(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if !resp.IsOK() {
		return resp, &CommandError{Method: resp.Method, Code: resp.Code, Message: resp.Error}
	}
	return resp, nil
}

// Status returns a snapshot of the aggregated device status.
func (c *Client) Status() Status {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.status.clone()
}

// RecentEvents returns the recent-events history, oldest first.
func (c *Client) RecentEvents() []Event {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.history.Events()
}

// Stats returns the message counters of the current connection.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return Stats{}
	}
	return s.conn.Stats()
}

// readLoop is the only reader of s.conn.
func (c *Client) readLoop(s *session) {
	defer close(s.done)

	for {
		line, err := s.conn.Read()
		if err != nil {
			c.handleStreamEnd(s)
			return
		}
		c.processLine(s, line)
	}
}

// processLine decodes one line and routes it.
func (c *Client) processLine(s *session, line string) {
	msg, err := Decode([]byte(line))
	if err != nil {
		var decErr *DecodeError
		if errors.As(err, &decErr) && decErr.Event {
			log.Warn().Err(err).Str("line", line).Msg("Failed to parse event")
			return
		}
		log.Warn().Err(err).Str("line", line).Msg("Failed to decode line")
		c.enqueue(s, inbound{err: err})
		return
	}

	if msg.Event != nil {
		c.handleEvent(msg.Event)
		return
	}

	resp := msg.Response
	c.foldResponse(resp)

	if ch, ok := s.waiter(resp.ID); ok {
		select {
		case ch <- resp:
		default:
			log.Warn().Int("id", resp.ID).Str("method", resp.Method).Msg("Duplicate response dropped")
		}
		return
	}

	log.Debug().Int("id", resp.ID).Str("method", resp.Method).Msg("Unclaimed response queued")
	c.enqueue(s, inbound{resp: resp})
}

func (c *Client) enqueue(s *session, in inbound) {
	select {
	case s.responses <- in:
	default:
		ev := log.Warn()
		if in.resp != nil {
			ev = ev.Int("id", in.resp.ID).Str("method", in.resp.Method)
		}
		ev.Msg("Response queue full, dropping unmatched response")
	}
}

// handleEvent appends ev to history, folds it into Status and fans it out.
func (c *Client) handleEvent(ev Event) {
	c.stateMu.Lock()
	c.history.Append(ev)
	c.status.apply(ev)
	c.stateMu.Unlock()

	log.Debug().Str("event", ev.Kind()).Str("addr", c.Addr()).Msg("Received event")

	c.publish(ev)
}

// foldResponse folds refresh query results into Status.
func (c *Client) foldResponse(resp *CommandResponse) {
	if !resp.IsOK() {
		return
	}

	switch Method(resp.Method) {
	case MethodGetDeviceState:
		var r DeviceStateResult
		if err := json.Unmarshal(resp.Result, &r); err != nil {
			log.Warn().Err(err).Msg("Failed to parse device state")
			return
		}
		if r.PiStatus == nil {
			return
		}
		c.stateMu.Lock()
		c.status.mergePiStatus(*r.PiStatus)
		c.stateMu.Unlock()

	case MethodGetViewState:
		var r ViewStateResult
		if err := json.Unmarshal(resp.Result, &r); err != nil {
			log.Warn().Err(err).Msg("Failed to parse view state")
			return
		}
		if r.View == nil {
			return
		}
		c.stateMu.Lock()
		c.status.TargetName = r.View.TargetName
		c.stateMu.Unlock()
	}
}

func (c *Client) handleStreamEnd(s *session) {
	c.mu.Lock()
	ended := c.session == s && c.connected
	if ended {
		c.connected = false
	}
	c.mu.Unlock()

	if ended {
		log.Warn().Str("addr", c.Addr()).Msg("Telescope closed the connection")
	}
}

// keepalive issues pi_get_time on every tick while connected and idles
// otherwise, so a reused client resumes after a reconnect.
func (c *Client) keepalive() {
	ticker := time.NewTicker(c.keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
		}

		if !c.IsConnected() {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
		_, err := c.SendAndRecv(ctx, NewCommand(MethodGetTime, nil))
		cancel()
		if err != nil && !errors.Is(err, ErrNotConnected) && !errors.Is(err, ErrStreamEnded) {
			log.Warn().Err(err).Str("addr", c.Addr()).Msg("Keepalive failed")
		}
	}
}

// Subscribe returns a channel receiving every event as it arrives. Slow
// subscribers miss events rather than stalling the reader.
func (c *Client) Subscribe() chan Event {
	ch := make(chan Event, 16)
	c.subscribersMu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.subscribersMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (c *Client) Unsubscribe(ch chan Event) {
	c.subscribersMu.Lock()
	defer c.subscribersMu.Unlock()

	for i, sub := range c.subscribers {
		if sub == ch {
			c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

func (c *Client) publish(ev Event) {
	c.subscribersMu.Lock()
	defer c.subscribersMu.Unlock()

	for _, ch := range c.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// KeepConnected connects and reconnects whenever the connection drops,
// checking every retry, until ctx is done. It returns ctx's error.
func (c *Client) KeepConnected(ctx context.Context, retry time.Duration) error {
	if retry <= 0 {
		retry = defaultKeepaliveInterval
	}

	ticker := time.NewTicker(retry)
	defer ticker.Stop()

	for {
		if !c.IsConnected() {
			err := c.Connect(ctx)
			if err != nil && !errors.Is(err, ErrAlreadyConnected) && ctx.Err() == nil {
				log.Warn().Err(err).Str("addr", c.Addr()).Dur("retry", retry).Msg("Telescope unreachable, will retry")
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
