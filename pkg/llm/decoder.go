package llm

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// doneSentinel is the explicit end-of-stream marker some providers send
// as a final data frame.
const doneSentinel = "[DONE]"

// maxLineSize bounds a single SSE line. Tool arguments can produce very
// long data frames.
const maxLineSize = 1 << 20

// Decoder turns an incremental text stream of server-sent events into a
// sequence of decoded StreamEvents. Chunks from the underlying reader may
// split at arbitrary byte boundaries; incomplete lines are buffered until
// their newline arrives. The sequence is finite and non-restartable.
type Decoder struct {
	scanner *bufio.Scanner
	done    bool
	err     error
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder{scanner: scanner}
}

// Next returns the next decoded event. ok is false once the underlying
// source closes or the end-of-stream sentinel arrives. Blank lines,
// non-data framing lines and malformed JSON payloads are skipped rather
// than terminating the stream.
func (d *Decoder) Next() (StreamEvent, bool) {
	if d.done {
		return StreamEvent{}, false
	}

	for d.scanner.Scan() {
		line := d.scanner.Text()

		// SSE framing: only "data: <payload>" lines carry events.
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == doneSentinel {
			d.done = true
			return StreamEvent{}, false
		}

		var event StreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			// Protocol noise, not a fatal error.
			continue
		}

		return event, true
	}

	d.done = true
	d.err = d.scanner.Err()
	return StreamEvent{}, false
}

// Err returns the first transport error seen, if any. io.EOF is not
// reported as an error.
func (d *Decoder) Err() error {
	return d.err
}
