package agent

// HistoryConfig bounds the conversation size sent to the provider.
type HistoryConfig struct {
	MaxMessages int `json:"maxMessages"` // trim threshold
	MaxTokens   int `json:"maxTokens"`   // approximate token threshold
	KeepRecent  int `json:"keepRecent"`  // recent messages retained after a trim
}

// DefaultHistoryConfig returns the default history bounds.
func DefaultHistoryConfig() *HistoryConfig {
	return &HistoryConfig{
		MaxMessages: 50,
		MaxTokens:   8000,
		KeepRecent:  10,
	}
}

// HistoryManager rewrites an over-long history to the original task
// plus a sliding window of recent messages. The very first user turn is
// retained unconditionally; the window never starts inside a
// tool-call/tool-result pair, so no result survives without its call.
type HistoryManager struct {
	config *HistoryConfig
}

// NewHistoryManager creates a history manager.
func NewHistoryManager(config *HistoryConfig) *HistoryManager {
	if config == nil {
		config = DefaultHistoryConfig()
	}
	return &HistoryManager{config: config}
}

// ShouldTrim reports whether the history exceeds its bounds.
func (h *HistoryManager) ShouldTrim(messages []AgentMessage) bool {
	if h.config.MaxMessages > 0 && len(messages) > h.config.MaxMessages {
		return true
	}
	if h.config.MaxTokens > 0 && EstimateTokens(messages) > h.config.MaxTokens {
		return true
	}
	return false
}

// Trim rewrites the history to [turn 0] + the recent window when the
// bounds are exceeded; otherwise the history is returned unchanged.
func (h *HistoryManager) Trim(messages []AgentMessage) []AgentMessage {
	if !h.ShouldTrim(messages) {
		return messages
	}

	keep := h.config.KeepRecent
	if keep <= 0 {
		keep = DefaultHistoryConfig().KeepRecent
	}
	if len(messages) <= keep+1 {
		return messages
	}

	start := len(messages) - keep

	// Never begin the window at a tool result whose call was dropped;
	// back up to the assistant message that issued the batch so call-id
	// correspondence holds and the resolved results survive with it.
	for start > 1 && messages[start].Role == "toolResult" {
		start--
	}

	trimmed := make([]AgentMessage, 0, 1+len(messages)-start)
	trimmed = append(trimmed, messages[0])
	trimmed = append(trimmed, messages[start:]...)
	return trimmed
}

// EstimateTokens roughly estimates the token count of a history at ~4
// characters per token.
func EstimateTokens(messages []AgentMessage) int {
	totalChars := 0
	for _, msg := range messages {
		totalChars += len(msg.ExtractText())
		for _, block := range msg.Content {
			if tc, ok := block.(ToolCallContent); ok {
				totalChars += len(tc.RawArguments)
			}
		}
		totalChars += 50 // per-message overhead
	}
	return totalChars / 4
}
