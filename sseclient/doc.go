/*
Package sseclient implements the consuming half of an event stream: a
reconnecting Server-Sent Events reader with typed, subscribable dispatch.

A Client owns a single logical subscription. It dials the stream endpoint,
parses incoming frames, keeps the usual EventSource-style bookkeeping
(lastEventId, ready state, last error), and reconnects with exponential
backoff when the stream drops:

	c, _ := sseclient.NewClient(sseclient.Config{
		URL: "http://localhost:8111/subscribe?user=u42",
	})
	unsub := c.Subscribe("order-shipped", func(data any) {
		fmt.Println("shipped:", data)
	})
	defer unsub()
	if err := c.Connect(); err != nil {
		// the client keeps retrying on its own; the error is informational
	}

Handlers may be registered before Connect, multiple handlers may share an
event name, and a panicking handler never takes its siblings down with it.
*/
package sseclient
