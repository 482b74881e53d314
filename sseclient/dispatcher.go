package sseclient

import (
	"log"
	"sync"
)

// Handler receives the parsed payload of a dispatched event.
type Handler func(data any)

// subscription wraps a handler so unsubscribe can remove exactly this
// registration, even when the same function is subscribed twice.
type subscription struct{ fn Handler }

type openSub struct{ fn func() }
type errorSub struct{ fn func(error) }

// Dispatcher is the per-event-name subscriber bookkeeping layered over a
// single transport.
//
// The three reserved channels (open, error, default message) are held
// structurally apart from the named-event table, so a wire event that
// happens to be called "open" can never shadow the transport-open
// notification.
type Dispatcher struct {
	mu      sync.Mutex
	open    []*openSub
	errs    []*errorSub
	message []*subscription
	named   map[string][]*subscription
}

func newDispatcher() *Dispatcher {
	return &Dispatcher{named: make(map[string][]*subscription)}
}

// Subscribe registers fn for the named wire event. Multiple handlers per
// name are supported and run in registration order. The returned function
// unsubscribes exactly this registration; removing the last handler for a
// name prunes the name's entry.
func (d *Dispatcher) Subscribe(name string, fn Handler) (unsubscribe func()) {
	sub := &subscription{fn: fn}
	d.mu.Lock()
	d.named[name] = append(d.named[name], sub)
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		subs := d.named[name]
		for i, s := range subs {
			if s == sub {
				d.named[name] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(d.named[name]) == 0 {
			delete(d.named, name)
		}
	}
}

// OnOpen registers fn to run each time the transport opens.
func (d *Dispatcher) OnOpen(fn func()) (unsubscribe func()) {
	sub := &openSub{fn: fn}
	d.mu.Lock()
	d.open = append(d.open, sub)
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, s := range d.open {
			if s == sub {
				d.open = append(d.open[:i:i], d.open[i+1:]...)
				return
			}
		}
	}
}

// OnError registers fn to run on each transport error.
func (d *Dispatcher) OnError(fn func(error)) (unsubscribe func()) {
	sub := &errorSub{fn: fn}
	d.mu.Lock()
	d.errs = append(d.errs, sub)
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, s := range d.errs {
			if s == sub {
				d.errs = append(d.errs[:i:i], d.errs[i+1:]...)
				return
			}
		}
	}
}

// OnMessage registers fn for unnamed (default) frames.
func (d *Dispatcher) OnMessage(fn Handler) (unsubscribe func()) {
	sub := &subscription{fn: fn}
	d.mu.Lock()
	d.message = append(d.message, sub)
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, s := range d.message {
			if s == sub {
				d.message = append(d.message[:i:i], d.message[i+1:]...)
				return
			}
		}
	}
}

func (d *Dispatcher) dispatchOpen() {
	d.mu.Lock()
	subs := append([]*openSub(nil), d.open...)
	d.mu.Unlock()
	for _, s := range subs {
		invoke("open", func() { s.fn() })
	}
}

func (d *Dispatcher) dispatchError(err error) {
	d.mu.Lock()
	subs := append([]*errorSub(nil), d.errs...)
	d.mu.Unlock()
	for _, s := range subs {
		s := s
		invoke("error", func() { s.fn(err) })
	}
}

func (d *Dispatcher) dispatchMessage(data any) {
	d.mu.Lock()
	subs := append([]*subscription(nil), d.message...)
	d.mu.Unlock()
	for _, s := range subs {
		s := s
		invoke("message", func() { s.fn(data) })
	}
}

func (d *Dispatcher) dispatchEvent(name string, data any) {
	d.mu.Lock()
	subs := append([]*subscription(nil), d.named[name]...)
	d.mu.Unlock()
	for _, s := range subs {
		s := s
		invoke(name, func() { s.fn(data) })
	}
}

// invoke isolates a single handler: a panic is logged and swallowed so
// sibling handlers for the same event still run.
func invoke(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("sseclient: handler for %q panicked: %v", name, r)
		}
	}()
	fn()
}
