package sseclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ssehub/ssehub/internal/debug"
)

// ReadyState mirrors the transport's reported state.
type ReadyState int32

const (
	StateConnecting ReadyState = iota
	StateOpen
	StateClosed
)

func (rs ReadyState) String() string {
	switch rs {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// ErrStreamClosed is the error recorded when the server ends the stream.
var ErrStreamClosed = errors.New("sseclient: stream closed by server")

// Config configures a Client. Zero values get sensible defaults.
type Config struct {
	// URL of the stream endpoint to subscribe to. Required.
	URL string

	// HTTPClient used for the streaming request. http.DefaultClient when nil.
	HTTPClient *http.Client

	// InitialDelay is the first reconnect delay; doubled each failed
	// attempt up to MaxDelay. Defaults: 1s and 30s.
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// MaxRetries caps automatic reconnect attempts; after that only a
	// manual Connect re-opens the transport. Default 10. A negative
	// value disables automatic reconnection entirely.
	MaxRetries int

	// Parser turns a frame's raw payload into the value handed to
	// subscribers. The default tries JSON and falls back to the raw
	// string.
	Parser func([]byte) any
}

func (c *Config) defaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = time.Second
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 10
	}
	if c.Parser == nil {
		c.Parser = defaultParser
	}
}

func defaultParser(b []byte) any {
	var v any
	if json.Unmarshal(b, &v) == nil {
		return v
	}
	return string(b)
}

// Status is a point-in-time snapshot of the client's observable state.
type Status struct {
	Connected     bool
	ReadyState    ReadyState
	LastEventID   string
	LastEventName string
	LastData      any
	Err           error
}

// A Client owns one logical subscription to a stream endpoint: the
// underlying transport, exponential-backoff reconnection, frame parsing,
// and the typed dispatcher that fans frames out to subscribers.
//
// All methods are safe for concurrent use.
type Client struct {
	conf Config
	d    *Dispatcher

	mu            sync.Mutex
	readyState    ReadyState
	connected     bool
	lastEventID   string
	lastEventName string
	lastData      any
	err           error
	attempt       int
	retryOverride time.Duration // server-suggested base delay (retry: field)
	generation    uint64        // bumped on every connect/disconnect cycle
	destroyed     bool          // suppresses in-flight reconnects after Disconnect
	timer         *time.Timer   // pending reconnect, nil otherwise
	cancel        context.CancelFunc
}

// NewClient creates a Client for the given stream endpoint. The client
// starts idle; nothing happens until Connect. Subscribing before Connect
// is legal and takes effect once frames start arriving.
func NewClient(conf Config) (*Client, error) {
	if conf.URL == "" {
		return nil, errors.New("sseclient: Config.URL is required")
	}
	conf.defaults()
	return &Client{
		conf:       conf,
		d:          newDispatcher(),
		readyState: StateClosed,
	}, nil
}

// Subscribe registers fn for the named wire event. See Dispatcher.Subscribe.
func (c *Client) Subscribe(name string, fn Handler) (unsubscribe func()) {
	return c.d.Subscribe(name, fn)
}

// OnOpen registers fn to run each time the transport opens.
func (c *Client) OnOpen(fn func()) (unsubscribe func()) { return c.d.OnOpen(fn) }

// OnError registers fn to run on each transport error.
func (c *Client) OnError(fn func(error)) (unsubscribe func()) { return c.d.OnError(fn) }

// OnMessage registers fn for unnamed (default) frames.
func (c *Client) OnMessage(fn Handler) (unsubscribe func()) { return c.d.OnMessage(fn) }

// Connect opens the transport. It is a no-op while already open. Any prior
// transport or pending reconnect is torn down first; late callbacks from a
// superseded transport are discarded by a generation check. The attempt
// counter resets only on a successful open.
//
// A failed connect records the error, notifies error subscribers, and
// schedules an automatic reconnect (unless retries are exhausted), as well
// as returning the error.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.readyState == StateOpen {
		c.mu.Unlock()
		return nil
	}
	c.destroyed = false
	c.teardownLocked()
	c.generation++
	gen := c.generation
	c.readyState = StateConnecting
	lastID := c.lastEventID
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.conf.URL, nil)
	if err != nil {
		cancel()
		return c.connectFailed(gen, fmt.Errorf("sseclient: create request: %w", err))
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if lastID != "" {
		req.Header.Set("Last-Event-ID", lastID)
	}

	resp, err := c.conf.HTTPClient.Do(req)
	if err != nil {
		cancel()
		return c.connectFailed(gen, fmt.Errorf("sseclient: connect: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return c.connectFailed(gen, fmt.Errorf("sseclient: connect: HTTP %d", resp.StatusCode))
	}

	c.mu.Lock()
	if c.destroyed || gen != c.generation {
		// superseded while the dial was in flight; discard quietly
		c.mu.Unlock()
		cancel()
		resp.Body.Close()
		return nil
	}
	c.cancel = cancel
	c.readyState = StateOpen
	c.connected = true
	c.err = nil
	c.attempt = 0
	c.mu.Unlock()

	debug.Debug("transport open, notifying subscribers")
	c.d.dispatchOpen()
	go c.readLoop(gen, resp.Body)
	return nil
}

// Disconnect closes the transport and cancels any pending reconnect. The
// client stays down until the next manual Connect, which works normally —
// Disconnect is not a permanent kill switch.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.destroyed = true
	c.generation++
	c.teardownLocked()
	c.connected = false
	c.readyState = StateClosed
	c.mu.Unlock()
}

// teardownLocked stops the pending reconnect timer and the live transport.
// Caller holds c.mu.
func (c *Client) teardownLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Client) readLoop(gen uint64, body io.ReadCloser) {
	defer body.Close()

	// a clean server close reads as EOF; anything else is a transport
	// fault whose cause the subscribers should see
	cause := ErrStreamClosed
	fs := newFrameScanner(body)
	for {
		f, err := fs.next()
		if err != nil {
			if err != io.EOF {
				cause = fmt.Errorf("sseclient: read stream: %w", err)
			}
			break
		}
		if !c.handleFrame(gen, f) {
			return // superseded or destroyed
		}
	}

	c.mu.Lock()
	if c.destroyed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.readyState = StateClosed
	c.err = cause
	c.mu.Unlock()

	debug.Debug("stream ended, scheduling reconnect")
	c.d.dispatchError(cause)
	c.scheduleReconnect(gen)
}

// handleFrame applies one frame to client state and dispatches it.
// Returns false when the frame belongs to a superseded transport.
func (c *Client) handleFrame(gen uint64, f frame) bool {
	c.mu.Lock()
	if c.destroyed || gen != c.generation {
		c.mu.Unlock()
		return false
	}
	if f.retry > 0 {
		c.retryOverride = time.Duration(f.retry) * time.Millisecond
	}
	if !f.hasData && f.event == "" {
		// nothing to dispatch (retry-only frame); id still sticks
		if f.hasID {
			c.lastEventID = f.id
		}
		c.mu.Unlock()
		return true
	}
	if f.hasID {
		c.lastEventID = f.id
	}
	name := f.event
	if name == "" {
		name = "message"
	}
	var data any
	if f.hasData {
		data = c.conf.Parser(f.data)
	}
	c.lastEventName = name
	c.lastData = data
	c.mu.Unlock()

	if f.event == "" {
		c.d.dispatchMessage(data)
	} else {
		c.d.dispatchEvent(f.event, data)
	}
	return true
}

// connectFailed records a failed dial, notifies subscribers, and schedules
// the next automatic attempt.
func (c *Client) connectFailed(gen uint64, err error) error {
	c.mu.Lock()
	if c.destroyed || gen != c.generation {
		c.mu.Unlock()
		return err
	}
	c.connected = false
	c.readyState = StateClosed
	c.err = err
	c.mu.Unlock()

	c.d.dispatchError(err)
	c.scheduleReconnect(gen)
	return err
}

func (c *Client) scheduleReconnect(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed || gen != c.generation || c.timer != nil {
		return
	}
	if c.attempt >= c.conf.MaxRetries {
		debug.Debug("reconnect attempts exhausted, staying down")
		return
	}

	base := c.conf.InitialDelay
	if c.retryOverride > 0 {
		base = c.retryOverride
	}
	delay := backoff{initial: base, max: c.conf.MaxDelay}.delay(c.attempt)
	c.attempt++

	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.destroyed || gen != c.generation {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		c.mu.Unlock()
		_ = c.Connect() // failures reschedule themselves
	})
}

// Status returns a snapshot of the client's observable state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Connected:     c.connected,
		ReadyState:    c.readyState,
		LastEventID:   c.lastEventID,
		LastEventName: c.lastEventName,
		LastData:      c.lastData,
		Err:           c.err,
	}
}

// Connected reports whether the transport is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
