package agent

import "time"

// Outcome values carried by agent_end events.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

// Event type constants.
const (
	EventAgentStart         = "agent_start"
	EventAgentEnd           = "agent_end"
	EventTurnStart          = "turn_start"
	EventTurnEnd            = "turn_end"
	EventMessageStart       = "message_start"
	EventMessageEnd         = "message_end"
	EventTextDelta          = "text_delta"
	EventThinkingDelta      = "thinking_delta"
	EventToolCallDelta      = "toolcall_delta"
	EventToolExecutionStart = "tool_execution_start"
	EventToolExecutionEnd   = "tool_execution_end"
	EventApprovalRequired   = "approval_required"
	EventHistoryTrim        = "history_trim"
)

// AgentEvent represents an event emitted during agent execution.
type AgentEvent struct {
	Type string `json:"type"`
	// SessionID identifies the emitting agent; nested agents forward
	// their events tagged with their own session.
	SessionID string `json:"sessionId,omitempty"`
	// EventAt is when the event was created (UnixNano).
	EventAt int64 `json:"eventAt,omitempty"`

	// agent_end
	Outcome  string         `json:"outcome,omitempty"`
	Error    string         `json:"error,omitempty"`
	Messages []AgentMessage `json:"messages,omitempty"`

	// message_start/message_end/turn_end
	Message     *AgentMessage  `json:"message,omitempty"`
	ToolResults []AgentMessage `json:"toolResults,omitempty"`

	// text_delta/thinking_delta/toolcall_delta
	Delta        string `json:"delta,omitempty"`
	ContentIndex int    `json:"contentIndex,omitempty"`

	// tool_execution_start/tool_execution_end
	ToolCallID string         `json:"toolCallId,omitempty"`
	ToolName   string         `json:"toolName,omitempty"`
	Args       map[string]any `json:"args,omitempty"`
	Result     *AgentMessage  `json:"result,omitempty"`
	IsError    bool           `json:"isError,omitempty"`

	// approval_required
	Approval *PendingApproval `json:"-"`

	// history_trim
	Before int `json:"before,omitempty"`
	After  int `json:"after,omitempty"`
}

// NewAgentStartEvent creates an agent_start event.
func NewAgentStartEvent(sessionID string) AgentEvent {
	return AgentEvent{Type: EventAgentStart, SessionID: sessionID, EventAt: time.Now().UnixNano()}
}

// NewAgentEndEvent creates the terminal agent_end event.
func NewAgentEndEvent(sessionID, outcome, errText string, messages []AgentMessage) AgentEvent {
	return AgentEvent{
		Type:      EventAgentEnd,
		SessionID: sessionID,
		EventAt:   time.Now().UnixNano(),
		Outcome:   outcome,
		Error:     errText,
		Messages:  messages,
	}
}

// NewTurnStartEvent creates a turn_start event.
func NewTurnStartEvent(sessionID string) AgentEvent {
	return AgentEvent{Type: EventTurnStart, SessionID: sessionID, EventAt: time.Now().UnixNano()}
}

// NewTurnEndEvent creates a turn_end event.
func NewTurnEndEvent(sessionID string, message *AgentMessage, toolResults []AgentMessage) AgentEvent {
	return AgentEvent{
		Type:        EventTurnEnd,
		SessionID:   sessionID,
		EventAt:     time.Now().UnixNano(),
		Message:     message,
		ToolResults: toolResults,
	}
}

// NewMessageStartEvent creates a message_start event.
func NewMessageStartEvent(sessionID string, message AgentMessage) AgentEvent {
	return AgentEvent{
		Type:      EventMessageStart,
		SessionID: sessionID,
		EventAt:   time.Now().UnixNano(),
		Message:   &message,
	}
}

// NewMessageEndEvent creates a message_end event.
func NewMessageEndEvent(sessionID string, message AgentMessage) AgentEvent {
	return AgentEvent{
		Type:      EventMessageEnd,
		SessionID: sessionID,
		EventAt:   time.Now().UnixNano(),
		Message:   &message,
	}
}

// NewTextDeltaEvent creates a text_delta event for one streamed chunk.
func NewTextDeltaEvent(sessionID, delta string, index int) AgentEvent {
	return AgentEvent{
		Type:         EventTextDelta,
		SessionID:    sessionID,
		EventAt:      time.Now().UnixNano(),
		Delta:        delta,
		ContentIndex: index,
	}
}

// NewThinkingDeltaEvent creates a thinking_delta event.
func NewThinkingDeltaEvent(sessionID, delta string, index int) AgentEvent {
	return AgentEvent{
		Type:         EventThinkingDelta,
		SessionID:    sessionID,
		EventAt:      time.Now().UnixNano(),
		Delta:        delta,
		ContentIndex: index,
	}
}

// NewToolCallDeltaEvent creates a toolcall_delta event.
func NewToolCallDeltaEvent(sessionID string, index int) AgentEvent {
	return AgentEvent{
		Type:         EventToolCallDelta,
		SessionID:    sessionID,
		EventAt:      time.Now().UnixNano(),
		ContentIndex: index,
	}
}

// NewToolExecutionStartEvent creates a tool_execution_start event.
func NewToolExecutionStartEvent(sessionID, toolCallID, toolName string, args map[string]any) AgentEvent {
	return AgentEvent{
		Type:       EventToolExecutionStart,
		SessionID:  sessionID,
		EventAt:    time.Now().UnixNano(),
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Args:       args,
	}
}

// NewToolExecutionEndEvent creates a tool_execution_end event.
func NewToolExecutionEndEvent(sessionID, toolCallID, toolName string, result *AgentMessage, isError bool) AgentEvent {
	return AgentEvent{
		Type:       EventToolExecutionEnd,
		SessionID:  sessionID,
		EventAt:    time.Now().UnixNano(),
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Result:     result,
		IsError:    isError,
	}
}

// NewApprovalRequiredEvent creates an approval_required event carrying
// the pending approval to resolve.
func NewApprovalRequiredEvent(sessionID, toolCallID string, approval *PendingApproval) AgentEvent {
	return AgentEvent{
		Type:       EventApprovalRequired,
		SessionID:  sessionID,
		EventAt:    time.Now().UnixNano(),
		ToolCallID: toolCallID,
		Approval:   approval,
	}
}

// NewHistoryTrimEvent creates a history_trim event.
func NewHistoryTrimEvent(sessionID string, before, after int) AgentEvent {
	return AgentEvent{
		Type:      EventHistoryTrim,
		SessionID: sessionID,
		EventAt:   time.Now().UnixNano(),
		Before:    before,
		After:     after,
	}
}
