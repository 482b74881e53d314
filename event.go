package ssehub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Event is a message suitable for sending over a Server-Sent Event stream.
//
// All fields are optional. An Event with no fields at all still marshals to a
// valid (empty) frame, since the terminating blank line is always emitted.
type Event struct {
	ID    string // id for client Last-Event-ID bookkeeping [optional]
	Event string // event name scoping the message [optional]
	Retry int    // suggested client reconnect delay in milliseconds [optional]
	Data  any    // message payload [optional]
}

// Marshal renders the wire-format bytestring for an Event, ready to be sent.
//
// Field lines are emitted in id, event, retry, data order, each omitted
// entirely when unset. String and []byte payloads pass through verbatim;
// any other payload is rendered as compact JSON. A payload containing
// newlines is split across multiple data: lines so the frame stays valid.
func (e Event) Marshal() ([]byte, error) {
	data, err := e.dataText()
	if err != nil {
		return nil, fmt.Errorf("ssehub: marshal event data: %w", err)
	}

	b := make([]byte, 0, 4+6+7+6+len(e.ID)+len(e.Event)+len(data)+8)
	if e.ID != "" {
		b = append(b, "id:"...)
		b = append(b, e.ID...)
		b = append(b, '\n')
	}
	if e.Event != "" {
		b = append(b, "event:"...)
		b = append(b, e.Event...)
		b = append(b, '\n')
	}
	if e.Retry > 0 {
		b = append(b, "retry:"...)
		b = append(b, strconv.Itoa(e.Retry)...)
		b = append(b, '\n')
	}
	if data != nil {
		for _, line := range bytes.Split(data, []byte{'\n'}) {
			b = append(b, "data:"...)
			b = append(b, line...)
			b = append(b, '\n')
		}
	}
	b = append(b, '\n')
	return b, nil
}

// dataText serializes the payload to its textual form, or nil when absent.
func (e Event) dataText() ([]byte, error) {
	switch d := e.Data.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(d), nil
	case []byte:
		return d, nil
	case json.RawMessage:
		return d, nil
	default:
		return json.Marshal(d)
	}
}

// Comment renders an SSE comment frame.
//
// Comment frames begin with a colon and are ignored by any conforming
// parser, which makes them suitable as heartbeat pings and keep-alives.
// https://www.w3.org/TR/eventsource/#event-stream-interpretation
func Comment(text string) []byte {
	b := make([]byte, 0, 2+len(text)+2)
	b = append(b, ':', ' ')
	b = append(b, text...)
	b = append(b, '\n', '\n')
	return b
}
