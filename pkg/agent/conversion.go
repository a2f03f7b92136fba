package agent

import (
	"encoding/json"

	"github.com/junchih/strand/pkg/llm"
)

// ConvertMessages converts agent messages to wire-format messages.
// Tool result messages become tool_result blocks inside a user message;
// consecutive results are folded into a single user message so every
// result follows the assistant turn that issued its call.
func ConvertMessages(messages []AgentMessage) []llm.Message {
	out := make([]llm.Message, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case "user":
			out = append(out, llm.Message{
				Role:    "user",
				Content: []llm.Block{{Type: "text", Text: msg.ExtractText()}},
			})

		case "assistant":
			wire := llm.Message{Role: "assistant"}
			for _, block := range msg.Content {
				switch b := block.(type) {
				case TextContent:
					if b.Text != "" {
						wire.Content = append(wire.Content, llm.Block{Type: "text", Text: b.Text})
					}
				case ToolCallContent:
					input := json.RawMessage(b.RawArguments)
					if b.Arguments != nil {
						if encoded, err := json.Marshal(b.Arguments); err == nil {
							input = encoded
						}
					}
					if len(input) == 0 {
						input = json.RawMessage("{}")
					}
					wire.Content = append(wire.Content, llm.Block{
						Type:  "tool_use",
						ID:    b.ID,
						Name:  b.Name,
						Input: input,
					})
				}
			}
			if len(wire.Content) == 0 {
				wire.Content = []llm.Block{{Type: "text", Text: ""}}
			}
			out = append(out, wire)

		case "toolResult":
			block := llm.Block{
				Type:      "tool_result",
				ToolUseID: msg.ToolCallID,
				Content:   msg.ExtractText(),
				IsError:   msg.IsError,
			}
			if n := len(out); n > 0 && out[n-1].Role == "user" && isToolResultMessage(out[n-1]) {
				out[n-1].Content = append(out[n-1].Content, block)
			} else {
				out = append(out, llm.Message{Role: "user", Content: []llm.Block{block}})
			}
		}
	}

	return out
}

func isToolResultMessage(msg llm.Message) bool {
	for _, block := range msg.Content {
		if block.Type != "tool_result" {
			return false
		}
	}
	return len(msg.Content) > 0
}

// ConvertTools converts the session toolset to wire tool definitions.
func ConvertTools(tools []Tool) []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(tools))
	for _, tool := range tools {
		defs = append(defs, llm.ToolDef{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.Parameters(),
		})
	}
	return defs
}
