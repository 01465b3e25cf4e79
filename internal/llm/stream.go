package llm

import (
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// Stream decodes an event-stream response body into a lazy sequence of
// incremental content fragments. It is finite and not restartable: once Recv
// returns io.EOF it will always return io.EOF.
//
// The underlying body is released by Close, which the consumer must call
// regardless of how consumption ends. Close is idempotent.
type Stream struct {
	body    io.ReadCloser
	partial string
	pending []string
	done    bool
	readErr error
	closed  bool
}

// NewStream wraps a response body that has already passed status
// classification.
func NewStream(body io.ReadCloser) *Stream {
	return &Stream{body: body}
}

// Recv returns the next non-empty content fragment. It returns io.EOF once
// the sentinel payload is seen or the underlying stream ends.
func (s *Stream) Recv() (string, error) {
	for {
		if len(s.pending) > 0 {
			fragment := s.pending[0]
			s.pending = s.pending[1:]
			return fragment, nil
		}
		if s.done {
			if s.readErr != nil {
				err := s.readErr
				s.readErr = nil
				return "", err
			}
			return "", io.EOF
		}

		chunk := make([]byte, 4096)
		n, err := s.body.Read(chunk)
		if n > 0 {
			s.decode(string(chunk[:n]))
		}
		if err != nil {
			s.done = true
			if err != io.EOF {
				s.readErr = err
			}
		}
	}
}

// decode splits buffered data into complete lines, carrying any unterminated
// trailing partial line over to the next read.
func (s *Stream) decode(data string) {
	data = s.partial + data
	lines := strings.Split(data, "\n")
	s.partial = lines[len(lines)-1]
	for _, line := range lines[:len(lines)-1] {
		line = strings.TrimSuffix(line, "\r")
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := line[len(dataPrefix):]
		if payload == doneSentinel {
			// The stream is complete. Anything after this point is ignored.
			s.done = true
			s.partial = ""
			return
		}
		if !gjson.Valid(payload) {
			// Malformed interior events are not fatal.
			continue
		}
		if content := gjson.Get(payload, "choices.0.delta.content").String(); content != "" {
			s.pending = append(s.pending, content)
		}
	}
}

// Close releases the underlying body exactly once. Safe to call after the
// stream has ended naturally.
func (s *Stream) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.body.Close()
}
