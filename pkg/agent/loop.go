package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/junchih/strand/pkg/llm"
)

const (
	defaultLLMMaxRetries   = 1               // maximum retry attempts for LLM calls
	defaultRetryBaseDelay  = 1 * time.Second // base delay for exponential backoff
	defaultNoProgressLimit = 2               // consecutive empty turns before forced stop
)

// LoopConfig contains configuration for the agent turn loop.
type LoopConfig struct {
	Source    llm.StreamSource // model stream source
	Model     llm.Model        // model metadata stamped onto assistant messages
	NoStream  bool             // use the single-shot completion variant
	Executor  *ExecutorPool    // tool executor with concurrency control
	Approval  *ApprovalConfig  // approval gate; nil auto-approves proposed changes
	History   *HistoryManager  // history bounds; nil disables trimming
	Validator *ToolValidator   // optional override, mostly for tests

	ValidationThreshold int           // consecutive schema failures before abort
	NoProgressLimit     int           // consecutive empty turns before abort
	MaxLLMRetries       int           // retries for failed LLM calls
	RetryBaseDelay      time.Duration // base delay for exponential backoff
	MaxToolOutputBytes  int           // clamp on tool result payloads; 0 = unlimited
}

// RunLoop starts a turn loop for the session with the given prompts.
// The returned stream emits AgentEvents as the conversation progresses
// and completes with the session's messages when the loop terminates.
func RunLoop(
	ctx context.Context,
	prompts []AgentMessage,
	sess *Session,
	config *LoopConfig,
) *llm.EventStream[AgentEvent, []AgentMessage] {
	stream := llm.NewEventStream[AgentEvent, []AgentMessage](
		func(e AgentEvent) bool { return e.Type == EventAgentEnd },
		func(e AgentEvent) []AgentMessage { return e.Messages },
	)

	go func() {
		defer stream.End(nil)

		for _, msg := range prompts {
			sess.AddMessage(msg)
		}

		stream.Push(NewAgentStartEvent(sess.ID))
		runInnerLoop(ctx, sess, config, stream)
	}()

	return stream
}

// runInnerLoop drives the request/stream/dispatch cycle until the model
// stops requesting tools, the loop is cancelled, or a fatal error trips.
func runInnerLoop(
	ctx context.Context,
	sess *Session,
	config *LoopConfig,
	stream *llm.EventStream[AgentEvent, []AgentMessage],
) {
	validator := config.Validator
	if validator == nil {
		validator = NewToolValidatorWithThreshold(config.ValidationThreshold)
	}

	noProgressLimit := config.NoProgressLimit
	if noProgressLimit <= 0 {
		noProgressLimit = defaultNoProgressLimit
	}

	emptyTurns := 0
	firstRequest := true

	for {
		select {
		case <-ctx.Done():
			stream.Push(NewAgentEndEvent(sess.ID, OutcomeCancelled, "", sess.Messages))
			return
		default:
		}

		if config.History != nil {
			before := len(sess.Messages)
			sess.Messages = config.History.Trim(sess.Messages)
			if len(sess.Messages) != before {
				slog.Debug("[Loop] history trimmed", "session", sess.ID, "before", before, "after", len(sess.Messages))
				stream.Push(NewHistoryTrimEvent(sess.ID, before, len(sess.Messages)))
			}
		}

		stream.Push(NewTurnStartEvent(sess.ID))

		msg, err := streamTurnWithRetry(ctx, sess, config, firstRequest, stream)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				stream.Push(NewAgentEndEvent(sess.ID, OutcomeCancelled, "", sess.Messages))
				return
			}
			slog.Error("[Loop] streaming failed", "session", sess.ID, "error", err)
			stream.Push(NewAgentEndEvent(sess.ID, OutcomeError, err.Error(), sess.Messages))
			return
		}
		firstRequest = false

		sess.AddMessage(*msg)
		stream.Push(NewMessageEndEvent(sess.ID, *msg))

		toolCalls := msg.ExtractToolCalls()

		if len(toolCalls) == 0 {
			stream.Push(NewTurnEndEvent(sess.ID, msg, nil))

			if strings.TrimSpace(msg.ExtractText()) == "" {
				emptyTurns++
				if emptyTurns >= noProgressLimit {
					diag := fmt.Sprintf("no progress: %d consecutive turns without text or tool calls", emptyTurns)
					slog.Warn("[Loop] forcing termination", "session", sess.ID, "reason", diag)
					stream.Push(NewAgentEndEvent(sess.ID, OutcomeError, diag, sess.Messages))
					return
				}
				continue
			}

			// Final answer.
			break
		}
		emptyTurns = 0

		results, fatal := dispatchToolCalls(ctx, sess, toolCalls, validator, config, stream)

		if ctx.Err() != nil {
			// Cancelled mid-dispatch: do not flush partial results back
			// to the model.
			stream.Push(NewAgentEndEvent(sess.ID, OutcomeCancelled, "", sess.Messages))
			return
		}

		for _, result := range results {
			sess.AddMessage(result)
		}
		stream.Push(NewTurnEndEvent(sess.ID, msg, results))

		if fatal != nil {
			slog.Error("[Loop] fatal tool failure", "session", sess.ID, "error", fatal)
			stream.Push(NewAgentEndEvent(sess.ID, OutcomeError, fatal.Error(), sess.Messages))
			return
		}
	}

	stream.Push(NewAgentEndEvent(sess.ID, OutcomeCompleted, "", sess.Messages))
}

// streamTurnWithRetry streams one assistant turn, retrying transient
// failures with exponential backoff. Cancellation is never retried.
func streamTurnWithRetry(
	ctx context.Context,
	sess *Session,
	config *LoopConfig,
	firstRequest bool,
	stream *llm.EventStream[AgentEvent, []AgentMessage],
) (*AgentMessage, error) {
	maxRetries := config.MaxLLMRetries
	if maxRetries < 0 {
		maxRetries = defaultLLMMaxRetries
	}
	baseDelay := config.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultRetryBaseDelay
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<(attempt-1))
			slog.Info("[Loop] retrying LLM call", "attempt", attempt, "maxRetries", maxRetries, "delay", delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		msg, err := streamTurn(ctx, sess, config, firstRequest, stream)
		if err == nil {
			return msg, nil
		}

		lastErr = err
		slog.Error("[Loop] LLM call failed", "attempt", attempt, "error", err)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// streamTurn opens one model response and reconstructs the assistant
// message from it, emitting text deltas as they arrive. The system
// prompt is sent only on the session's first request.
func streamTurn(
	ctx context.Context,
	sess *Session,
	config *LoopConfig,
	firstRequest bool,
	stream *llm.EventStream[AgentEvent, []AgentMessage],
) (*AgentMessage, error) {
	req := llm.Request{
		Messages: ConvertMessages(sess.Messages),
		Tools:    ConvertTools(sess.Tools),
	}
	if firstRequest {
		req.System = sess.SystemPrompt
	}

	slog.Debug("[Loop] sending request", "session", sess.ID, "messages", len(req.Messages), "tools", len(req.Tools))

	if config.NoStream {
		return completeTurn(ctx, sess, config, req, stream)
	}

	llmStream := config.Source.Stream(ctx, req)
	acc := NewBlockAccumulator()

	stream.Push(NewMessageStartEvent(sess.ID, NewAssistantMessage()))

	for item := range llmStream.Iterator(ctx) {
		if item.Done {
			break
		}
		event := item.Value

		if event.Type == llm.EventError {
			if event.Err != nil {
				return nil, event.Err
			}
			if event.Error != nil {
				return nil, &llm.APIError{Message: event.Error.Message}
			}
			return nil, fmt.Errorf("stream error")
		}

		update := acc.Add(event)
		switch {
		case update.TextDelta != "":
			stream.Push(NewTextDeltaEvent(sess.ID, update.TextDelta, update.Index))
		case update.ThinkingDelta != "":
			stream.Push(NewThinkingDeltaEvent(sess.ID, update.ThinkingDelta, update.Index))
		case update.ToolCallDelta:
			stream.Push(NewToolCallDeltaEvent(sess.ID, update.Index))
		}

		if event.Type == llm.EventMessageStop {
			break
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	msg := acc.Message()
	msg.Model = config.Model.ID
	msg.Provider = config.Model.Provider
	return &msg, nil
}

// completeTurn performs the non-streaming single-shot variant.
func completeTurn(
	ctx context.Context,
	sess *Session,
	config *LoopConfig,
	req llm.Request,
	stream *llm.EventStream[AgentEvent, []AgentMessage],
) (*AgentMessage, error) {
	resp, err := config.Source.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	msg := NewAssistantMessage()
	msg.StopReason = resp.StopReason
	msg.Model = config.Model.ID
	msg.Provider = config.Model.Provider
	msg.Usage = &Usage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}

	stream.Push(NewMessageStartEvent(sess.ID, msg))

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			msg.Content = append(msg.Content, TextContent{Type: "text", Text: block.Text})
			stream.Push(NewTextDeltaEvent(sess.ID, block.Text, 0))
		case "tool_use":
			raw := string(block.Input)
			var args map[string]any
			if raw != "" {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					args = nil
				}
			}
			msg.Content = append(msg.Content, ToolCallContent{
				ID:           block.ID,
				Type:         "toolCall",
				Name:         block.Name,
				Arguments:    args,
				RawArguments: raw,
			})
		}
	}

	return &msg, nil
}

// dispatchToolCalls validates and executes a turn's tool calls. Valid
// calls run concurrently; results are folded back in call order only
// once every call has resolved. A circuit-breaker trip stops dispatch
// and is returned as the fatal error.
func dispatchToolCalls(
	ctx context.Context,
	sess *Session,
	toolCalls []ToolCallContent,
	validator *ToolValidator,
	config *LoopConfig,
	stream *llm.EventStream[AgentEvent, []AgentMessage],
) ([]AgentMessage, error) {
	results := make([]AgentMessage, len(toolCalls))
	var fatal error
	var wg sync.WaitGroup

	for i, tc := range toolCalls {
		if ctx.Err() != nil {
			break
		}
		if fatal != nil {
			break
		}

		stream.Push(NewToolExecutionStartEvent(sess.ID, tc.ID, tc.Name, tc.Arguments))

		tool := sess.GetTool(tc.Name)
		if tool == nil {
			result := toolErrorResult(tc, "Tool not found", config)
			results[i] = result
			stream.Push(NewToolExecutionEndEvent(sess.ID, tc.ID, tc.Name, &result, true))
			continue
		}

		if err := validator.Validate(tool, tc); err != nil {
			var breaker *CircuitBreakerError
			if errors.As(err, &breaker) {
				fatal = breaker
				result := toolErrorResult(tc, err.Error(), config)
				results[i] = result
				stream.Push(NewToolExecutionEndEvent(sess.ID, tc.ID, tc.Name, &result, true))
				break
			}
			result := toolErrorResult(tc, err.Error(), config)
			results[i] = result
			stream.Push(NewToolExecutionEndEvent(sess.ID, tc.ID, tc.Name, &result, true))
			continue
		}

		wg.Add(1)
		go func(idx int, tc ToolCallContent, tool Tool) {
			defer wg.Done()
			results[idx] = executeToolCall(ctx, sess, tc, tool, config, stream)
		}(i, tc, tool)
	}

	// Barrier: results fold back only once every dispatched call in the
	// batch has resolved.
	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Calls skipped by an early break still need their slot filled so a
	// partial batch never produces zero-valued messages.
	out := make([]AgentMessage, 0, len(toolCalls))
	for i := range toolCalls {
		if results[i].Role == "" {
			continue
		}
		out = append(out, results[i])
	}
	return out, fatal
}

// executeToolCall runs one validated tool call, routing proposed file
// mutations through the approval gate.
func executeToolCall(
	ctx context.Context,
	sess *Session,
	tc ToolCallContent,
	tool Tool,
	config *LoopConfig,
	stream *llm.EventStream[AgentEvent, []AgentMessage],
) AgentMessage {
	var content []ContentBlock
	var err error

	if config.Executor != nil {
		content, err = config.Executor.Execute(ctx, tool, tc.Arguments)
	} else {
		content, err = tool.Execute(ctx, tc.Arguments)
	}

	if err != nil {
		result := toolErrorResult(tc, err.Error(), config)
		stream.Push(NewToolExecutionEndEvent(sess.ID, tc.ID, tc.Name, &result, true))
		return result
	}

	// A proposed file mutation suspends this call until a decision
	// arrives; sibling calls in the batch proceed independently.
	if change := fileChangeIn(content); change != nil {
		result := resolveFileChange(ctx, sess, tc, *change, config, stream)
		stream.Push(NewToolExecutionEndEvent(sess.ID, tc.ID, tc.Name, &result, result.IsError))
		return result
	}

	content = truncateToolContent(content, config.MaxToolOutputBytes)
	result := NewToolResultMessage(tc.ID, tc.Name, content, false)
	stream.Push(NewToolExecutionEndEvent(sess.ID, tc.ID, tc.Name, &result, false))
	return result
}

// resolveFileChange suspends on the approval gate and converts the
// decision into the tool result fed back to the model.
func resolveFileChange(
	ctx context.Context,
	sess *Session,
	tc ToolCallContent,
	change FileChangeContent,
	config *LoopConfig,
	stream *llm.EventStream[AgentEvent, []AgentMessage],
) AgentMessage {
	approval := NewPendingApproval(tc.ID, change)

	decision := DecisionApprove
	if config.Approval != nil && config.Approval.Handler != nil {
		stream.Push(NewApprovalRequiredEvent(sess.ID, tc.ID, approval))
		go config.Approval.Handler.HandleApproval(ctx, approval)

		var err error
		decision, err = approval.Wait(ctx)
		if err != nil {
			return toolErrorResult(tc, "cancelled while awaiting approval", config)
		}
	}

	switch decision {
	case DecisionApprove:
		apply := writeFileChange
		if config.Approval != nil && config.Approval.Apply != nil {
			apply = config.Approval.Apply
		}
		if err := apply(change.Path, change.NewContent); err != nil {
			return toolErrorResult(tc, fmt.Sprintf("failed to apply changes to %s: %v", change.Path, err), config)
		}
		text := fmt.Sprintf("Applied changes to %s\n\nDiff:\n%s", change.Path, change.Diff)
		content := truncateToolContent([]ContentBlock{TextContent{Type: "text", Text: text}}, config.MaxToolOutputBytes)
		return NewToolResultMessage(tc.ID, tc.Name, content, false)

	case DecisionEdit:
		// Editing a proposed change is not implemented; treated as a
		// rejection.
		return toolErrorResult(tc, "changes rejected by user (edit is not implemented)", config)

	default:
		return toolErrorResult(tc, "changes rejected by user", config)
	}
}

// writeFileChange is the fallback applier when no approval config
// supplies one, so an approved change is never silently discarded.
func writeFileChange(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0644)
}

func fileChangeIn(content []ContentBlock) *FileChangeContent {
	for _, block := range content {
		if fc, ok := block.(FileChangeContent); ok {
			return &fc
		}
	}
	return nil
}

func toolErrorResult(tc ToolCallContent, text string, config *LoopConfig) AgentMessage {
	content := truncateToolContent([]ContentBlock{
		TextContent{Type: "text", Text: text},
	}, config.MaxToolOutputBytes)
	return NewToolResultMessage(tc.ID, tc.Name, content, true)
}

// truncateToolContent clamps text payloads to the configured byte
// limit. Oversized tool output otherwise dominates the context window.
func truncateToolContent(content []ContentBlock, maxBytes int) []ContentBlock {
	if maxBytes <= 0 {
		return content
	}

	out := make([]ContentBlock, 0, len(content))
	for _, block := range content {
		tc, ok := block.(TextContent)
		if !ok || len(tc.Text) <= maxBytes {
			out = append(out, block)
			continue
		}
		out = append(out, TextContent{
			Type: "text",
			Text: tc.Text[:maxBytes] + fmt.Sprintf("\n... [truncated %d bytes]", len(tc.Text)-maxBytes),
		})
	}
	return out
}
