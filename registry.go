package ssehub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/azer/debug"
)

// message buffer count for new connections
const connBufSize = 256

// A Registry keeps track of all active client connections, indexed both by
// connection id and by owning user, and handles delivering events to one
// connection, to every connection of a user, or to everyone.
//
// The Registry is the sole owner of both indexes; connections enter and
// leave only through Add and Remove.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*Connection
	byUser map[string]map[string]struct{} // user id -> set of connection ids

	sentEvents  uint64 // events accepted for delivery since startup
	startupTime time.Time

	metrics *hubMetrics // optional, nil-safe
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:        make(map[string]*Connection),
		byUser:      make(map[string]map[string]struct{}),
		startupTime: time.Now(),
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide shared Registry, creating it on first
// use. Prefer constructing a Registry with NewRegistry and passing it
// around explicitly; Default exists for the single-hub common case.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Add registers a connection, making it addressable by id and, when it has
// an owning user, by user. A colliding id displaces (and closes) the prior
// entry rather than leaking it; with random ids this should never happen.
func (r *Registry) Add(c *Connection) {
	r.mu.Lock()
	displaced := r.byID[c.ID]
	if displaced != nil {
		r.dropLocked(displaced)
	}
	debug.Debug("new connection being registered for user " + c.UserID)
	r.byID[c.ID] = c
	if c.UserID != "" {
		set := r.byUser[c.UserID]
		if set == nil {
			set = make(map[string]struct{})
			r.byUser[c.UserID] = set
		}
		set[c.ID] = struct{}{}
	}
	c.onDead = r.Remove
	r.mu.Unlock()

	if displaced != nil {
		displaced.Close()
	}
	r.observeGauges()
}

// dropLocked deletes c from both indexes, pruning an emptied user set.
// Caller holds r.mu and is responsible for closing c afterwards.
func (r *Registry) dropLocked(c *Connection) {
	delete(r.byID, c.ID)
	if c.UserID == "" {
		return
	}
	if set, ok := r.byUser[c.UserID]; ok {
		delete(set, c.ID)
		if len(set) == 0 {
			delete(r.byUser, c.UserID)
		}
	}
}

// Remove unregisters the connection with the given id and closes it.
// Unknown ids are a no-op, which makes Remove idempotent: the abort signal
// and a heartbeat-detected failure may both get here for the same
// connection. Removal happens before close, so once Remove returns the
// connection is unreachable from SendToUser and Broadcast even if the
// close is still in flight.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	c, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	debug.Debug("connection " + id + " being unregistered")
	r.dropLocked(c)
	r.mu.Unlock()

	c.Close()
	r.observeGauges()
}

// StartHeartbeat arms (or re-arms) the periodic keep-alive ping on the
// named connection. Unknown ids do nothing.
func (r *Registry) StartHeartbeat(id string, interval time.Duration) {
	r.mu.RLock()
	c, ok := r.byID[id]
	r.mu.RUnlock()
	if ok {
		c.startHeartbeat(interval)
	}
}

// SendToClient delivers ev to a single connection. Unknown ids do nothing:
// the target may legitimately have disconnected between selection and
// send. A failed send removes the dead connection; the failure never
// reaches the caller.
func (r *Registry) SendToClient(id string, ev Event) {
	r.mu.RLock()
	c, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	atomic.AddUint64(&r.sentEvents, 1)
	r.deliver(c, ev)
}

// SendToUser delivers ev to every live connection of a user, concurrently,
// and returns once every send has finished or failed. A connection that
// dies mid-fan-out is removed without disturbing its siblings. A user with
// no connections is a silent no-op.
func (r *Registry) SendToUser(userID string, ev Event) {
	r.mu.RLock()
	targets := make([]*Connection, 0, len(r.byUser[userID]))
	for id := range r.byUser[userID] {
		if c, ok := r.byID[id]; ok {
			targets = append(targets, c)
		}
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		return
	}
	atomic.AddUint64(&r.sentEvents, 1)
	r.fanout(targets, ev)
}

// Broadcast delivers ev to every live connection, with the same
// concurrent fan-out contract as SendToUser.
func (r *Registry) Broadcast(ev Event) {
	r.mu.RLock()
	targets := make([]*Connection, 0, len(r.byID))
	for _, c := range r.byID {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	atomic.AddUint64(&r.sentEvents, 1)
	r.fanout(targets, ev)
}

func (r *Registry) fanout(targets []*Connection, ev Event) {
	var wg sync.WaitGroup
	for _, c := range targets {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			r.deliver(c, ev)
		}(c)
	}
	wg.Wait()
}

func (r *Registry) deliver(c *Connection, ev Event) {
	if err := c.Send(ev); err != nil {
		debug.Debug("send to connection " + c.ID + " failed, removing: " + err.Error())
		r.metrics.sendError()
		r.Remove(c.ID)
		return
	}
	r.metrics.eventSent(ev.Event)
}

// ClientsCount returns the number of live connections.
func (r *Registry) ClientsCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// UsersCount returns the number of users with at least one live connection.
func (r *Registry) UsersCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// statuses snapshots per-connection reporting metadata.
func (r *Registry) statuses() []ConnectionStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cl := make([]ConnectionStatus, 0, len(r.byID))
	for _, c := range r.byID {
		cl = append(cl, c.Status())
	}
	return cl
}

// Shutdown removes and closes every live connection.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.byID))
	for _, c := range r.byID {
		conns = append(conns, c)
	}
	r.byID = make(map[string]*Connection)
	r.byUser = make(map[string]map[string]struct{})
	r.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	r.observeGauges()
}

// observeGauges mirrors the index sizes into the attached metrics, if any.
func (r *Registry) observeGauges() {
	if r.metrics == nil {
		return
	}
	r.mu.RLock()
	clients, users := len(r.byID), len(r.byUser)
	r.mu.RUnlock()
	r.metrics.setGauges(clients, users)
}
