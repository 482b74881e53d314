package sseclient

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
)

// frame is one parsed unit of the event stream wire format.
type frame struct {
	id      string
	hasID   bool
	event   string
	retry   int // suggested reconnect delay in ms, 0 when unset
	data    []byte
	hasData bool
}

// empty reports whether the frame carries nothing dispatchable.
func (f frame) empty() bool {
	return !f.hasID && !f.hasData && f.event == "" && f.retry == 0
}

// frameScanner incrementally parses SSE frames off a stream. Comment lines
// (leading colon) are dropped here and never surface as frames.
type frameScanner struct {
	s *bufio.Scanner
}

func newFrameScanner(r io.Reader) *frameScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), 1<<20)
	return &frameScanner{s: s}
}

// next returns the next complete frame, or io.EOF when the stream ends.
// A frame terminated by stream end rather than a blank line is still
// returned; the EOF comes on the following call.
func (fs *frameScanner) next() (frame, error) {
	var f frame
	var dataLines [][]byte

	flush := func() frame {
		if len(dataLines) > 0 {
			f.data = bytes.Join(dataLines, []byte{'\n'})
			f.hasData = true
		}
		return f
	}

	for fs.s.Scan() {
		line := fs.s.Text()

		if line == "" { // blank line terminates the frame
			if f.empty() && len(dataLines) == 0 {
				continue // stray blank lines between frames
			}
			return flush(), nil
		}
		if strings.HasPrefix(line, ":") {
			continue // comment / heartbeat, ignorable by contract
		}

		field, value := line, ""
		if i := strings.IndexByte(line, ':'); i >= 0 {
			field, value = line[:i], line[i+1:]
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "id":
			f.id = value
			f.hasID = true
		case "event":
			f.event = value
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				f.retry = ms
			}
		case "data":
			dataLines = append(dataLines, []byte(value))
		}
		// unknown fields are ignored per the SSE processing model
	}

	if err := fs.s.Err(); err != nil {
		return frame{}, err
	}
	if !f.empty() || len(dataLines) > 0 {
		return flush(), nil
	}
	return frame{}, io.EOF
}
