// pkg/vaultd/client.go
//
// Protocol client for the vault daemon. One persistent unix-socket
// connection; every request is tagged with a correlation id and awaits
// exactly one reply. A single reader goroutine owns the inbound stream
// and resolves replies out of order, so concurrent callers never see
// each other's responses.

package vaultd

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/crypto"
	cerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds one request/response exchange.
const DefaultTimeout = 30 * time.Second

// maxLine caps a single response line. List responses dominate; a vault
// with thousands of entries still fits well under this.
const maxLine = 4 * 1024 * 1024

// Client is a connection to the vault daemon. Safe for concurrent use.
type Client struct {
	conn    net.Conn
	log     *zap.Logger
	timeout time.Duration

	writeMu sync.Mutex // serializes outbound lines

	mu         sync.Mutex
	pending    map[string]chan *response // request_id -> waiting caller
	fifo       []string                  // send order, for daemons that echo no request_id
	correlates bool                      // daemon has echoed a request_id at least once
	termErr    error                     // set once the reader exits
	closed     bool

	done chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// Dial connects to the daemon's unix socket. A refused or absent socket
// surfaces as ErrVaultUnavailable so callers can distinguish "nothing to
// rotate against" from a per-request failure.
func Dial(ctx context.Context, socketPath string, log *zap.Logger, opts ...Option) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, cerr.Wrapf(ErrVaultUnavailable, "dial %s: %v", socketPath, err)
	}
	return NewClient(conn, log, opts...), nil
}

// NewClient wraps an established connection. Used directly by tests with
// an in-memory pipe.
func NewClient(conn net.Conn, log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		conn:    conn,
		log:     log,
		timeout: DefaultTimeout,
		pending: make(map[string]chan *response),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c
}

// Close tears down the connection. Pending calls fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}

// readLoop is the sole reader of the connection. Complete lines are
// decoded and matched to their waiting caller; everything else is logged
// and dropped. Bytes accumulate in the buffered scanner until a newline
// is observed, so partial reads never reach the decoder.
func (c *Client) readLoop() {
	defer close(c.done)

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			// Protocol violation: log and discard, keep the connection.
			c.log.Warn("Discarding undecodable response line",
				zap.Error(err), zap.Int("line_bytes", len(line)))
			continue
		}

		c.dispatch(&resp)
	}

	// Reader exit means the connection is gone. Fail everyone waiting.
	c.mu.Lock()
	if c.closed {
		c.termErr = ErrClosed
	} else {
		c.termErr = ErrVaultUnavailable
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.fifo = nil
	c.mu.Unlock()
}

// dispatch routes one decoded response to its caller. Correlated
// responses resolve by id even when the daemon reorders them; responses
// without an id fall back to FIFO order. A response whose caller has
// already timed out is dropped, never delivered to a later request.
func (c *Client) dispatch(resp *response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := resp.RequestID
	if id == "" {
		if len(c.fifo) == 0 {
			c.log.Warn("Discarding unsolicited response")
			return
		}
		id = c.fifo[0]
		c.fifo = c.fifo[1:]
	} else {
		c.correlates = true
		c.removeFromFIFO(id)
	}

	ch, ok := c.pending[id]
	if !ok {
		c.log.Warn("Dropping late response for expired request",
			zap.String("request_id", id))
		return
	}
	delete(c.pending, id)
	ch <- resp
}

// removeFromFIFO must be called with c.mu held.
func (c *Client) removeFromFIFO(id string) {
	for i, v := range c.fifo {
		if v == id {
			c.fifo = append(c.fifo[:i], c.fifo[i+1:]...)
			return
		}
	}
}

// call sends one request line and waits for its correlated reply.
func (c *Client) call(ctx context.Context, req request) (*response, error) {
	req.RequestID = uuid.NewString()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, cerr.Wrap(err, "encode request")
	}

	ch := make(chan *response, 1)
	c.mu.Lock()
	if c.termErr != nil {
		c.mu.Unlock()
		return nil, c.termErr
	}
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[req.RequestID] = ch
	c.fifo = append(c.fifo, req.RequestID)
	c.mu.Unlock()

	c.writeMu.Lock()
	_, werr := c.conn.Write(append(payload, '\n'))
	c.writeMu.Unlock()
	if werr != nil {
		c.abandon(req.RequestID)
		return nil, cerr.Wrapf(ErrVaultUnavailable, "write %s: %v", req.Cmd, werr)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			c.mu.Lock()
			terr := c.termErr
			c.mu.Unlock()
			return nil, terr
		}
		if resp.Status != "ok" {
			return nil, &ServerError{Cmd: req.Cmd, Message: resp.Message}
		}
		return resp, nil
	case <-timer.C:
		// Remove the waiting caller. Against a legacy daemon the id
		// stays in the FIFO queue so a late reply is consumed here, not
		// matched to the next caller; once the daemon has echoed a
		// request_id the slot is expired too, or repeated timeouts
		// would leak slots and swallow a later no-id response.
		c.abandon(req.RequestID)
		return nil, cerr.Wrapf(ErrTimeout, "%s after %s", req.Cmd, c.timeout)
	case <-ctx.Done():
		c.abandon(req.RequestID)
		return nil, ctx.Err()
	}
}

func (c *Client) abandon(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	if c.correlates {
		c.removeFromFIFO(id)
	}
	c.mu.Unlock()
}

// Unlock opens the vault with the given passphrase. A daemon-side
// rejection surfaces as ErrAuthFailed, which is fatal to the run.
func (c *Client) Unlock(ctx context.Context, passphrase string) error {
	_, err := c.call(ctx, request{Cmd: "unlock", Passphrase: passphrase})
	var se *ServerError
	if cerr.As(err, &se) {
		return cerr.Wrapf(ErrAuthFailed, "%s", se.Message)
	}
	return err
}

// Lock re-locks the vault.
func (c *Client) Lock(ctx context.Context) error {
	_, err := c.call(ctx, request{Cmd: "lock"})
	return err
}

// Status reports whether the vault exists and is unlocked.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	resp, err := c.call(ctx, request{Cmd: "status"})
	if err != nil {
		return nil, err
	}
	var st Status
	if err := json.Unmarshal(resp.Data, &st); err != nil {
		return nil, cerr.Wrap(err, "decode status")
	}
	return &st, nil
}

// List returns summaries for all entries in a category.
func (c *Client) List(ctx context.Context, category string) ([]EntrySummary, error) {
	resp, err := c.call(ctx, request{Cmd: "list", Category: category})
	if err != nil {
		return nil, err
	}
	var entries []EntrySummary
	if err := json.Unmarshal(resp.Data, &entries); err != nil {
		return nil, cerr.Wrap(err, "decode list")
	}
	return entries, nil
}

// Get fetches one full entry. agentID and purpose are audit annotations
// recorded by the daemon; they are not enforced locally.
func (c *Client) Get(ctx context.Context, id, agentID, purpose string) (*Entry, error) {
	resp, err := c.call(ctx, request{Cmd: "get", ID: id, AgentID: agentID, Purpose: purpose})
	if err != nil {
		return nil, err
	}
	var we wireEntry
	if err := json.Unmarshal(resp.Data, &we); err != nil {
		return nil, cerr.Wrap(err, "decode entry")
	}
	entry, err := we.decode()
	if err != nil {
		return nil, cerr.Wrap(err, "decode entry secret")
	}
	return entry, nil
}

// Create adds a new entry and returns its id.
func (c *Client) Create(ctx context.Context, entry NewEntry) (string, error) {
	resp, err := c.call(ctx, request{Cmd: "create", Entry: &entry})
	if err != nil {
		return "", err
	}
	var data struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return "", cerr.Wrap(err, "decode create response")
	}
	return data.ID, nil
}

// Update replaces an entry's secret in place. Daemons that predate the
// update command reject it; see IsUnknownCommand.
func (c *Client) Update(ctx context.Context, id string, secret []byte) error {
	_, err := c.call(ctx, request{Cmd: "update", ID: id, Value: crypto.EncodeSecret(secret)})
	return err
}

// Delete removes an entry.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.call(ctx, request{Cmd: "delete", ID: id})
	return err
}
