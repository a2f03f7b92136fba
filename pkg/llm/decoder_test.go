package llm

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents(t *testing.T, r io.Reader) []StreamEvent {
	t.Helper()
	dec := NewDecoder(r)
	var events []StreamEvent
	for {
		event, ok := dec.Next()
		if !ok {
			break
		}
		events = append(events, event)
	}
	require.NoError(t, dec.Err())
	return events
}

func TestDecoderBasicStream(t *testing.T) {
	input := strings.Join([]string{
		`data: {"type":"message_start","message":{"role":"assistant"}}`,
		``,
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
		``,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`,
		``,
		`data: {"type":"content_block_stop","index":0}`,
		``,
		`data: {"type":"message_stop"}`,
		``,
	}, "\n")

	events := collectEvents(t, strings.NewReader(input))

	require.Len(t, events, 5)
	assert.Equal(t, EventMessageStart, events[0].Type)
	assert.Equal(t, EventContentBlockDelta, events[2].Type)
	assert.Equal(t, "Hello", events[2].Delta.Text)
	assert.Equal(t, EventMessageStop, events[4].Type)
}

// Event boundaries must not depend on how the transport chunked the
// bytes; a reader that yields one byte at a time decodes identically.
func TestDecoderChunkBoundaryIndependence(t *testing.T) {
	input := `data: {"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"pa"}}` + "\n\n" +
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"th\":1}"}}` + "\n\n" +
		`data: {"type":"message_stop"}` + "\n\n"

	whole := collectEvents(t, strings.NewReader(input))
	byteAtATime := collectEvents(t, &oneByteReader{data: []byte(input)})

	require.Equal(t, len(whole), len(byteAtATime))
	for i := range whole {
		assert.Equal(t, whole[i].Type, byteAtATime[i].Type)
		if whole[i].Delta != nil {
			require.NotNil(t, byteAtATime[i].Delta)
			assert.Equal(t, whole[i].Delta.PartialJSON, byteAtATime[i].Delta.PartialJSON)
		}
	}
}

// oneByteReader yields one byte per Read call.
type oneByteReader struct {
	data []byte
	pos  int
}

func (r *oneByteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}

func TestDecoderDoneSentinel(t *testing.T) {
	input := `data: {"type":"message_stop"}` + "\n\n" +
		`data: [DONE]` + "\n\n" +
		`data: {"type":"ping"}` + "\n\n"

	events := collectEvents(t, strings.NewReader(input))

	// Nothing after the sentinel is decoded.
	require.Len(t, events, 1)
	assert.Equal(t, EventMessageStop, events[0].Type)
}

func TestDecoderSkipsNoise(t *testing.T) {
	input := strings.Join([]string{
		`event: message_start`,
		`data: not json at all`,
		`: comment line`,
		``,
		`data: {"type":"ping"}`,
		``,
		`random garbage`,
		`data: {"type":"message_stop"}`,
		``,
	}, "\n")

	events := collectEvents(t, strings.NewReader(input))

	require.Len(t, events, 2)
	assert.Equal(t, EventPing, events[0].Type)
	assert.Equal(t, EventMessageStop, events[1].Type)
}

func TestDecoderEmptyStream(t *testing.T) {
	events := collectEvents(t, strings.NewReader(""))
	assert.Empty(t, events)
}
