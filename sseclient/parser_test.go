package sseclient

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/ssehub/ssehub"
)

func TestFrameScanner(t *testing.T) {
	var testcases = []struct {
		name   string
		stream string
		want   []frame
	}{
		{
			name:   "data only",
			stream: "data:hello\n\n",
			want:   []frame{{data: []byte("hello"), hasData: true}},
		},
		{
			name:   "all fields",
			stream: "id:8\nevent:note\nretry:500\ndata:hi\n\n",
			want: []frame{{
				id: "8", hasID: true,
				event:   "note",
				retry:   500,
				data:    []byte("hi"),
				hasData: true,
			}},
		},
		{
			name:   "multiline data joined with newline",
			stream: "data:line one\ndata:line two\n\n",
			want:   []frame{{data: []byte("line one\nline two"), hasData: true}},
		},
		{
			name:   "leading space after colon stripped",
			stream: "event: note\ndata: hi\n\n",
			want:   []frame{{event: "note", data: []byte("hi"), hasData: true}},
		},
		{
			name:   "comments never surface",
			stream: ": heartbeat\n:another\ndata:real\n\n",
			want:   []frame{{data: []byte("real"), hasData: true}},
		},
		{
			name:   "stray blank lines between frames",
			stream: "data:a\n\n\n\ndata:b\n\n",
			want: []frame{
				{data: []byte("a"), hasData: true},
				{data: []byte("b"), hasData: true},
			},
		},
		{
			name:   "unknown fields ignored",
			stream: "frobnicate:yes\ndata:x\n\n",
			want:   []frame{{data: []byte("x"), hasData: true}},
		},
		{
			name:   "id only frame",
			stream: "id:12\n\n",
			want:   []frame{{id: "12", hasID: true}},
		},
		{
			name:   "empty data field still counts as data",
			stream: "data:\n\n",
			want:   []frame{{data: []byte(""), hasData: true}},
		},
		{
			name:   "non-numeric retry ignored",
			stream: "retry:soon\ndata:x\n\n",
			want:   []frame{{data: []byte("x"), hasData: true}},
		},
		{
			name:   "frame terminated by stream end",
			stream: "event:last\ndata:tail",
			want:   []frame{{event: "last", data: []byte("tail"), hasData: true}},
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			fs := newFrameScanner(strings.NewReader(tc.stream))

			var got []frame
			for {
				f, err := fs.next()
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatal(err)
				}
				got = append(got, f)
			}

			if len(got) != len(tc.want) {
				t.Fatalf("frame count: got %d want %d (%+v)", len(got), len(tc.want), got)
			}
			for i := range got {
				if !framesEqual(got[i], tc.want[i]) {
					t.Errorf("frame %d: got %+v want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func framesEqual(a, b frame) bool {
	return a.id == b.id &&
		a.hasID == b.hasID &&
		a.event == b.event &&
		a.retry == b.retry &&
		a.hasData == b.hasData &&
		bytes.Equal(a.data, b.data)
}

// Whatever the server-side encoder emits, the scanner must read back intact.
func TestFrameScannerReadsServerFrames(t *testing.T) {
	events := []ssehub.Event{
		{Data: "plain"},
		{ID: "3", Event: "tick", Data: "now"},
		{Event: "multi", Data: "a\nb\nc"},
		{ID: "4", Event: "json", Retry: 2500, Data: map[string]any{"n": 1.0}},
	}

	var stream bytes.Buffer
	for _, ev := range events {
		b, err := ev.Marshal()
		if err != nil {
			t.Fatal(err)
		}
		stream.Write(b)
	}
	stream.Write(ssehub.Comment("keepalive"))

	fs := newFrameScanner(&stream)

	f, err := fs.next()
	if err != nil || string(f.data) != "plain" || f.event != "" {
		t.Errorf("frame 0: got %+v, %v", f, err)
	}

	f, err = fs.next()
	if err != nil || f.id != "3" || f.event != "tick" || string(f.data) != "now" {
		t.Errorf("frame 1: got %+v, %v", f, err)
	}

	f, err = fs.next()
	if err != nil || string(f.data) != "a\nb\nc" {
		t.Errorf("frame 2: multiline data mangled: got %q, %v", f.data, err)
	}

	f, err = fs.next()
	if err != nil || f.retry != 2500 || string(f.data) != `{"n":1}` {
		t.Errorf("frame 3: got %+v, %v", f, err)
	}

	// comment at the tail, then clean EOF
	if _, err = fs.next(); err != io.EOF {
		t.Errorf("expected EOF after trailing comment, got %v", err)
	}
}
