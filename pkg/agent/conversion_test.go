package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMessagesFoldsToolResults(t *testing.T) {
	call := NewAssistantMessage()
	call.Content = append(call.Content,
		TextContent{Type: "text", Text: "reading two files"},
		ToolCallContent{ID: "call_1", Type: "toolCall", Name: "read", Arguments: map[string]any{"path": "a"}},
		ToolCallContent{ID: "call_2", Type: "toolCall", Name: "read", Arguments: map[string]any{"path": "b"}},
	)

	messages := []AgentMessage{
		NewUserMessage("read both"),
		call,
		NewToolResultMessage("call_1", "read", []ContentBlock{TextContent{Type: "text", Text: "aaa"}}, false),
		NewToolResultMessage("call_2", "read", []ContentBlock{TextContent{Type: "text", Text: "bbb"}}, true),
	}

	wire := ConvertMessages(messages)
	require.Len(t, wire, 3)

	assert.Equal(t, "user", wire[0].Role)
	assert.Equal(t, "assistant", wire[1].Role)
	require.Len(t, wire[1].Content, 3)
	assert.Equal(t, "tool_use", wire[1].Content[1].Type)

	// Both results folded into one user message, correlated by call ID.
	last := wire[2]
	assert.Equal(t, "user", last.Role)
	require.Len(t, last.Content, 2)
	assert.Equal(t, "tool_result", last.Content[0].Type)
	assert.Equal(t, "call_1", last.Content[0].ToolUseID)
	assert.Equal(t, "aaa", last.Content[0].Content)
	assert.False(t, last.Content[0].IsError)
	assert.Equal(t, "call_2", last.Content[1].ToolUseID)
	assert.True(t, last.Content[1].IsError)
}

// A user message between tool results starts a fresh wire message, so
// results never fold across a human turn.
func TestConvertMessagesDoesNotFoldAcrossUserTurn(t *testing.T) {
	messages := []AgentMessage{
		NewToolResultMessage("call_1", "read", []ContentBlock{TextContent{Type: "text", Text: "aaa"}}, false),
		NewUserMessage("also do this"),
		NewToolResultMessage("call_2", "read", []ContentBlock{TextContent{Type: "text", Text: "bbb"}}, false),
	}

	wire := ConvertMessages(messages)
	require.Len(t, wire, 3)
	assert.Equal(t, "tool_result", wire[0].Content[0].Type)
	assert.Equal(t, "text", wire[1].Content[0].Type)
	assert.Equal(t, "tool_result", wire[2].Content[0].Type)
}

func TestConvertMessagesToolUseInput(t *testing.T) {
	call := NewAssistantMessage()
	call.Content = append(call.Content,
		ToolCallContent{ID: "c1", Type: "toolCall", Name: "bash", Arguments: map[string]any{"command": "ls"}},
		// Arguments nil but raw preserved: raw goes on the wire.
		ToolCallContent{ID: "c2", Type: "toolCall", Name: "bash", RawArguments: `{"command":"pwd"}`},
		// Nothing at all: empty object placeholder.
		ToolCallContent{ID: "c3", Type: "toolCall", Name: "bash"},
	)

	wire := ConvertMessages([]AgentMessage{call})
	require.Len(t, wire, 1)
	require.Len(t, wire[0].Content, 3)

	assert.JSONEq(t, `{"command":"ls"}`, string(wire[0].Content[0].Input))
	assert.JSONEq(t, `{"command":"pwd"}`, string(wire[0].Content[1].Input))
	assert.JSONEq(t, `{}`, string(wire[0].Content[2].Input))
}

func TestConvertTools(t *testing.T) {
	defs := ConvertTools([]Tool{&echoTool{name: "echo"}})
	require.Len(t, defs, 1)
	assert.Equal(t, "echo", defs[0].Name)
	assert.NotEmpty(t, defs[0].Description)
	assert.Equal(t, "object", defs[0].InputSchema["type"])
}
