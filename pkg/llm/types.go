package llm

import (
	"context"
	"encoding/json"
)

// Model represents a provider model configuration.
type Model struct {
	ID       string `json:"id"`       // e.g., "claude-sonnet-4"
	Provider string `json:"provider"` // e.g., "anthropic"
	BaseURL  string `json:"baseUrl"`  // e.g., "https://api.anthropic.com/v1"
	API      string `json:"api"`      // e.g., "messages"
}

// Request is a single model request: system prompt, ordered conversation
// messages and the tool schemas the model may call.
type Request struct {
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Tools     []ToolDef `json:"tools,omitempty"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// Message is one wire-format conversation turn.
type Message struct {
	Role    string  `json:"role"` // "user" or "assistant"
	Content []Block `json:"content"`
}

// Block is one wire-format content block inside a message.
type Block struct {
	Type string `json:"type"` // "text", "tool_use", "tool_result"

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// ToolDef declares a tool schema to the model.
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Usage represents token usage reported by the provider.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is a complete, non-streamed model reply.
type Response struct {
	ID         string  `json:"id"`
	Role       string  `json:"role"`
	Content    []Block `json:"content"`
	StopReason string  `json:"stop_reason"`
	Usage      Usage   `json:"usage"`
}

// Stream event types, as delivered on the wire.
const (
	EventMessageStart      = "message_start"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventPing              = "ping"
	EventError             = "error"
)

// Delta types inside content_block_delta events.
const (
	DeltaText      = "text_delta"
	DeltaInputJSON = "input_json_delta"
)

// StreamEvent is one decoded protocol event from the response stream.
type StreamEvent struct {
	Type         string      `json:"type"`
	Index        int         `json:"index,omitempty"`
	Message      *Response   `json:"message,omitempty"`
	ContentBlock *Block      `json:"content_block,omitempty"`
	Delta        *Delta      `json:"delta,omitempty"`
	Usage        *Usage      `json:"usage,omitempty"`
	Error        *WireError  `json:"error,omitempty"`

	// Err carries transport-level failures that were never on the wire.
	Err error `json:"-"`
}

// Delta is the incremental payload of a content_block_delta or
// message_delta event.
type Delta struct {
	Type        string `json:"type,omitempty"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

// WireError is an error object delivered inside the stream.
type WireError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StreamEnd is the terminal outcome of one streamed response.
type StreamEnd struct {
	StopReason string
	Usage      Usage
	Err        error
}

// StreamSource opens model responses. The production implementation is
// Client; tests substitute scripted sources.
type StreamSource interface {
	// Stream opens a streaming response. The returned stream terminates
	// with a message_stop or error event, or when ctx is cancelled.
	Stream(ctx context.Context, req Request) *EventStream[StreamEvent, StreamEnd]

	// Complete performs a single-shot, non-streaming request.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// endOfStream builds the terminal result from a stream's final event.
func endOfStream(e StreamEvent) StreamEnd {
	end := StreamEnd{}
	switch e.Type {
	case EventMessageStop:
		if e.Delta != nil {
			end.StopReason = e.Delta.StopReason
		}
		if e.Usage != nil {
			end.Usage = *e.Usage
		}
	case EventError:
		if e.Err != nil {
			end.Err = e.Err
		} else if e.Error != nil {
			end.Err = &APIError{Message: e.Error.Message}
		}
	}
	return end
}

// NewStream creates an event stream that completes on message_stop or
// error events.
func NewStream() *EventStream[StreamEvent, StreamEnd] {
	return NewEventStream[StreamEvent, StreamEnd](
		func(e StreamEvent) bool {
			return e.Type == EventMessageStop || e.Type == EventError
		},
		endOfStream,
	)
}
