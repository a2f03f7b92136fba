package agent

import (
	"encoding/json"
	"strings"
	"time"
)

// ContentBlock represents a block of content in a message.
// Different content types implement this interface.
type ContentBlock interface {
	isContentBlock()
}

// TextContent represents plain text content.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (t TextContent) isContentBlock() {}

// ToolCallContent represents a tool call from the assistant.
// RawArguments is the argument JSON as delivered on the wire, possibly
// assembled from many fragments; Arguments is its parsed form, nil when
// the raw buffer was empty or not valid JSON.
type ToolCallContent struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Name         string         `json:"name"`
	Arguments    map[string]any `json:"arguments,omitempty"`
	RawArguments string         `json:"rawArguments,omitempty"`
}

func (t ToolCallContent) isContentBlock() {}

// ThinkingContent represents reasoning content from thinking models.
type ThinkingContent struct {
	Type     string `json:"type"`
	Thinking string `json:"thinking"`
}

func (t ThinkingContent) isContentBlock() {}

// FileChangeContent is a proposed file mutation returned by a mutating
// tool. It is not applied until a human decision arrives through the
// approval gate.
type FileChangeContent struct {
	Type       string `json:"type"`
	Path       string `json:"path"`
	OldContent string `json:"oldContent"`
	NewContent string `json:"newContent"`
	Diff       string `json:"diff"`
}

func (f FileChangeContent) isContentBlock() {}

// Usage represents token usage statistics for one assistant message.
type Usage struct {
	InputTokens  int `json:"input"`
	OutputTokens int `json:"output"`
	TotalTokens  int `json:"totalTokens"`
}

// AgentMessage represents one turn in the conversation history.
type AgentMessage struct {
	Role      string         `json:"role"` // "user", "assistant", "toolResult"
	Content   []ContentBlock `json:"content"`
	Timestamp int64          `json:"timestamp"`

	// Assistant fields
	Model      string `json:"model,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Usage      *Usage `json:"usage,omitempty"`
	StopReason string `json:"stopReason,omitempty"`

	// Tool result fields
	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolName,omitempty"`
	IsError    bool   `json:"isError,omitempty"`
}

// NewUserMessage creates a new user message with text content.
func NewUserMessage(text string) AgentMessage {
	return AgentMessage{
		Role:      "user",
		Content:   []ContentBlock{TextContent{Type: "text", Text: text}},
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewAssistantMessage creates a new assistant message placeholder.
func NewAssistantMessage() AgentMessage {
	return AgentMessage{
		Role:      "assistant",
		Content:   []ContentBlock{},
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewToolResultMessage creates a new tool result message.
func NewToolResultMessage(toolCallID, toolName string, content []ContentBlock, isError bool) AgentMessage {
	return AgentMessage{
		Role:       "toolResult",
		Content:    content,
		Timestamp:  time.Now().UnixMilli(),
		ToolCallID: toolCallID,
		ToolName:   toolName,
		IsError:    isError,
	}
}

// ExtractText extracts all text content from a message.
func (m *AgentMessage) ExtractText() string {
	var b strings.Builder
	for _, block := range m.Content {
		if tc, ok := block.(TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// ExtractToolCalls extracts all tool calls from an assistant message.
func (m *AgentMessage) ExtractToolCalls() []ToolCallContent {
	calls := make([]ToolCallContent, 0)
	for _, block := range m.Content {
		if tc, ok := block.(ToolCallContent); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// ExtractFileChange returns the proposed file change in a tool result,
// or nil when the result carries none.
func (m *AgentMessage) ExtractFileChange() *FileChangeContent {
	for _, block := range m.Content {
		if fc, ok := block.(FileChangeContent); ok {
			return &fc
		}
	}
	return nil
}

// UnmarshalJSON handles the ContentBlock interface when decoding
// persisted messages.
func (m *AgentMessage) UnmarshalJSON(data []byte) error {
	type rawMessage struct {
		Role       string            `json:"role"`
		Content    []json.RawMessage `json:"content"`
		Timestamp  int64             `json:"timestamp"`
		Model      string            `json:"model,omitempty"`
		Provider   string            `json:"provider,omitempty"`
		Usage      *Usage            `json:"usage,omitempty"`
		StopReason string            `json:"stopReason,omitempty"`
		ToolCallID string            `json:"toolCallId,omitempty"`
		ToolName   string            `json:"toolName,omitempty"`
		IsError    bool              `json:"isError,omitempty"`
	}

	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Role = raw.Role
	m.Timestamp = raw.Timestamp
	m.Model = raw.Model
	m.Provider = raw.Provider
	m.Usage = raw.Usage
	m.StopReason = raw.StopReason
	m.ToolCallID = raw.ToolCallID
	m.ToolName = raw.ToolName
	m.IsError = raw.IsError

	m.Content = make([]ContentBlock, 0, len(raw.Content))
	for _, rawBlock := range raw.Content {
		var typeCheck struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(rawBlock, &typeCheck); err != nil {
			continue
		}

		switch typeCheck.Type {
		case "text":
			var tc TextContent
			if err := json.Unmarshal(rawBlock, &tc); err == nil {
				m.Content = append(m.Content, tc)
			}
		case "toolCall":
			var tcc ToolCallContent
			if err := json.Unmarshal(rawBlock, &tcc); err == nil {
				m.Content = append(m.Content, tcc)
			}
		case "thinking":
			var thc ThinkingContent
			if err := json.Unmarshal(rawBlock, &thc); err == nil {
				m.Content = append(m.Content, thc)
			}
		case "fileChange":
			var fcc FileChangeContent
			if err := json.Unmarshal(rawBlock, &fcc); err == nil {
				m.Content = append(m.Content, fcc)
			}
		}
	}

	return nil
}
