/*
Package ssehub implements an addressable Server-Sent Events push hub,
suitable for streaming unidirectional messages over HTTP to web browsers.

Every subscribing client gets a registered connection with a unique id and,
optionally, an owning user id. Application code (or the HTTP emit endpoint)
can then push a named event to a single connection, to every connection a
user has open, or to everyone:

	s, _ := ssehub.NewServer()
	http.Handle("/", s)

	s.Registry().SendToUser("u42", ssehub.Event{
		Event: "order-shipped",
		Data:  map[string]string{"order": "1234"},
	})

Each new stream receives a "connected" handshake event carrying its own
connection id, and is kept alive with periodic comment-frame heartbeats.
Dead peers are detected on write and removed from the registry; removal is
idempotent, so the request abort signal and a failed heartbeat can race
without harm.

# Server-Sent Events

For more information on the SSE wire format itself, see
https://www.w3.org/TR/eventsource/. The companion sseclient package
implements the consuming half: a reconnecting stream reader with typed,
subscribable event dispatch.
*/
package ssehub
