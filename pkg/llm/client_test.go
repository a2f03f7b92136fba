package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "POST", r.Method)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "data: %s\n\n", line)
		}
	}))
}

func drainStream(ctx context.Context, stream *EventStream[StreamEvent, StreamEnd]) []StreamEvent {
	var events []StreamEvent
	for item := range stream.Iterator(ctx) {
		if item.Done {
			break
		}
		events = append(events, item.Value)
	}
	return events
}

func TestClientStream(t *testing.T) {
	server := sseServer(t, []string{
		`{"type":"message_start","message":{"role":"assistant"}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"hi"}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_delta","delta":{"type":"message_delta","stop_reason":"end_turn"},"usage":{"input_tokens":10,"output_tokens":5}}`,
		`{"type":"message_stop"}`,
	})
	defer server.Close()

	client := NewClient(Model{ID: "test-model", BaseURL: server.URL}, "test-key")
	ctx := context.Background()

	events := drainStream(ctx, client.Stream(ctx, Request{
		Messages: []Message{{Role: "user", Content: []Block{{Type: "text", Text: "hello"}}}},
	}))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventMessageStop, last.Type)

	// Stop reason and usage from message_delta are folded into the
	// terminal event.
	require.NotNil(t, last.Delta)
	assert.Equal(t, "end_turn", last.Delta.StopReason)
	require.NotNil(t, last.Usage)
	assert.Equal(t, 10, last.Usage.InputTokens)
	assert.Equal(t, 5, last.Usage.OutputTokens)
}

func TestClientStreamSynthesizesStop(t *testing.T) {
	// Source closes without a message_stop.
	server := sseServer(t, []string{
		`{"type":"message_start","message":{"role":"assistant"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"partial"}}`,
	})
	defer server.Close()

	client := NewClient(Model{ID: "test-model", BaseURL: server.URL}, "test-key")
	ctx := context.Background()

	events := drainStream(ctx, client.Stream(ctx, Request{}))

	require.NotEmpty(t, events)
	assert.Equal(t, EventMessageStop, events[len(events)-1].Type)
}

func TestClientStreamAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"type":"rate_limit_error","message":"rate limited"}}`)
	}))
	defer server.Close()

	client := NewClient(Model{ID: "test-model", BaseURL: server.URL}, "test-key")
	ctx := context.Background()

	events := drainStream(ctx, client.Stream(ctx, Request{}))

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	require.Error(t, events[0].Err)
	assert.True(t, IsRateLimit(events[0].Err))
}

func TestClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, false, body["stream"])

		resp := Response{
			Role: "assistant",
			Content: []Block{
				{Type: "text", Text: "done"},
			},
			StopReason: "end_turn",
			Usage:      Usage{InputTokens: 3, OutputTokens: 2},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(Model{ID: "test-model", BaseURL: server.URL}, "test-key")

	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: []Block{{Type: "text", Text: "hi"}}}},
	})

	require.NoError(t, err)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, "done", resp.Content[0].Text)
	assert.Equal(t, "end_turn", resp.StopReason)
}

func TestClientCompleteContextLengthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"prompt is too long: 210000 tokens > 200000 maximum"}}`)
	}))
	defer server.Close()

	client := NewClient(Model{ID: "test-model", BaseURL: server.URL}, "test-key")

	_, err := client.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, IsContextLengthExceeded(err))
}

func TestClientMissingAPIKey(t *testing.T) {
	t.Setenv("STRAND_API_KEY", "")

	client := NewClient(Model{ID: "test-model", BaseURL: "http://localhost:0"}, "")
	_, err := client.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRAND_API_KEY")
}
