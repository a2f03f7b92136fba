package agent

import (
	"context"

	"github.com/google/uuid"
)

// Tool represents a tool that can be called by the agent.
type Tool interface {
	// Name returns the tool name.
	Name() string

	// Description returns a description of what the tool does.
	Description() string

	// Parameters returns the JSON Schema for the tool parameters.
	Parameters() map[string]any

	// Execute executes the tool with the given arguments. Ordinary
	// failures are reported through the error return; they are fed back
	// into the conversation, not raised to the user.
	Execute(ctx context.Context, args map[string]any) ([]ContentBlock, error)
}

// Session is one independent conversation: a system prompt, a toolset
// and an ordered message history, driven by exactly one turn loop. It is
// never shared between concurrently running agents.
type Session struct {
	ID           string         `json:"id"`
	SystemPrompt string         `json:"systemPrompt,omitempty"`
	Messages     []AgentMessage `json:"messages"`
	Tools        []Tool         `json:"-"`

	// Depth is the spawn nesting level: 0 for the top-level agent.
	Depth int `json:"depth,omitempty"`
}

// NewSession creates a new session with the given system prompt.
func NewSession(systemPrompt string) *Session {
	return &Session{
		ID:           uuid.NewString(),
		SystemPrompt: systemPrompt,
		Messages:     make([]AgentMessage, 0),
		Tools:        make([]Tool, 0),
	}
}

// AddMessage appends a message to the session history.
func (s *Session) AddMessage(message AgentMessage) {
	s.Messages = append(s.Messages, message)
}

// AddTool adds a tool to the session, ignoring duplicates by name.
func (s *Session) AddTool(tool Tool) {
	if tool == nil {
		return
	}
	name := tool.Name()
	for _, existing := range s.Tools {
		if existing != nil && existing.Name() == name {
			return
		}
	}
	s.Tools = append(s.Tools, tool)
}

// GetTool returns a tool by name, or nil if not found.
func (s *Session) GetTool(name string) Tool {
	for _, tool := range s.Tools {
		if tool.Name() == name {
			return tool
		}
	}
	return nil
}
