package ssehub

import (
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/azer/debug"
	"github.com/google/uuid"
)

const defaultHeartbeatInterval = 15 * time.Second

// Errors reported by Connection.Send when a frame cannot be delivered.
// Either one means the peer should be considered gone.
var (
	ErrConnClosed    = errors.New("ssehub: connection closed")
	ErrConnSaturated = errors.New("ssehub: connection send buffer full")
)

// A Connection is one open, addressable server-to-client event stream.
//
// It owns its sink and its heartbeat timer exclusively: frames reach the
// peer only through Send, and only the writer loop touches the sink.
type Connection struct {
	ID     string // unique connection id, stable for the lifetime
	UserID string // owning user id; empty connections are not user-addressable

	created    time.Time
	send       chan []byte // buffered channel of outbound frames
	sink       io.Writer
	remoteAddr string
	userAgent  string
	msgsSent   uint64 // frames written to the peer (all time)

	onDead func(id string) // registry removal hook, set on registration

	mu     sync.Mutex
	closed bool
	hbStop chan struct{} // stop signal for the active heartbeat, nil when idle
}

// NewConnection creates a Connection writing to sink, owned by userID
// (may be empty). The connection id is generated here and never reused.
func NewConnection(userID string, sink io.Writer) *Connection {
	return &Connection{
		ID:      uuid.NewString(),
		UserID:  userID,
		created: time.Now(),
		send:    make(chan []byte, connBufSize),
		sink:    sink,
	}
}

// Send encodes ev and queues it for delivery. A non-nil error means the
// peer is gone (or hopelessly backed up) and the connection should be
// removed; Send itself never panics across that boundary.
func (c *Connection) Send(ev Event) error {
	b, err := ev.Marshal()
	if err != nil {
		return err
	}
	return c.enqueue(b)
}

func (c *Connection) enqueue(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		debug.Debug("cant pass frame to connection " + c.ID + ", buffer is full")
		return ErrConnSaturated
	}
}

// startHeartbeat arms a periodic comment-frame ping on the connection.
// Calling it again replaces the previous timer; timers never stack.
// A failed ping funnels into the same removal path as a disconnect.
func (c *Connection) startHeartbeat(interval time.Duration) {
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.hbStop != nil {
		close(c.hbStop)
	}
	stop := make(chan struct{})
	c.hbStop = stop
	go c.heartbeatLoop(interval, stop)
}

func (c *Connection) heartbeatLoop(interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ping := Comment("heartbeat")

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.enqueue(ping); err != nil {
				debug.Debug("heartbeat failed for connection " + c.ID + ", removing")
				c.dead()
				return
			}
		}
	}
}

// dead reports the connection to its registry for removal. Safe to hit from
// both the heartbeat and the writer; removal is idempotent by id.
func (c *Connection) dead() {
	if c.onDead != nil {
		c.onDead(c.ID)
	} else {
		c.Close()
	}
}

// Close cancels any active heartbeat and closes the sink. Idempotent.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.hbStop != nil {
		close(c.hbStop)
		c.hbStop = nil
	}
	close(c.send)
	c.mu.Unlock()

	if cl, ok := c.sink.(io.Closer); ok {
		_ = cl.Close()
	}
}

// writer is the event loop that writes queued frames to the sink. It exits
// when the connection is closed, the peer disconnects (write error), or
// done fires, after which the connection is unusable.
func (c *Connection) writer(done <-chan struct{}) {
	flusher, _ := c.sink.(http.Flusher)

	for {
		select {
		case frame, ok := <-c.send:
			if !ok { // closed via Close, nothing left to do
				debug.Debug("connection " + c.ID + " told to shut down")
				return
			}
			if _, err := c.sink.Write(frame); err != nil {
				debug.Debug("error writing frame to client, closing")
				c.dead()
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			if len(frame) > 0 && frame[0] != ':' { // pings don't count
				atomic.AddUint64(&c.msgsSent, 1)
			}

		case <-done:
			debug.Debug("closer fired for connection " + c.ID)
			return
		}
	}
}

// ConnectionStatus is a snapshot of metadata describing a Connection.
type ConnectionStatus struct {
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id,omitempty"`
	Created      int64  `json:"created_at"`
	ClientIP     string `json:"client_ip,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
	MsgsSent     uint64 `json:"msgs_sent"`
}

// Status returns the reporting snapshot for the connection.
func (c *Connection) Status() ConnectionStatus {
	return ConnectionStatus{
		ConnectionID: c.ID,
		UserID:       c.UserID,
		Created:      c.created.Unix(),
		ClientIP:     c.remoteAddr,
		UserAgent:    c.userAgent,
		MsgsSent:     atomic.LoadUint64(&c.msgsSent),
	}
}
