package agent

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junchih/strand/pkg/llm"
)

func blockStart(index int, block llm.Block) llm.StreamEvent {
	return llm.StreamEvent{Type: llm.EventContentBlockStart, Index: index, ContentBlock: &block}
}

func textDelta(index int, text string) llm.StreamEvent {
	return llm.StreamEvent{
		Type:  llm.EventContentBlockDelta,
		Index: index,
		Delta: &llm.Delta{Type: llm.DeltaText, Text: text},
	}
}

func jsonDelta(index int, fragment string) llm.StreamEvent {
	return llm.StreamEvent{
		Type:  llm.EventContentBlockDelta,
		Index: index,
		Delta: &llm.Delta{Type: llm.DeltaInputJSON, PartialJSON: fragment},
	}
}

func blockStop(index int) llm.StreamEvent {
	return llm.StreamEvent{Type: llm.EventContentBlockStop, Index: index}
}

func TestAccumulatorTextBlock(t *testing.T) {
	acc := NewBlockAccumulator()

	acc.Add(blockStart(0, llm.Block{Type: "text"}))
	update := acc.Add(textDelta(0, "Hello, "))
	assert.Equal(t, "Hello, ", update.TextDelta)
	acc.Add(textDelta(0, "world"))
	update = acc.Add(blockStop(0))

	text, ok := update.Closed.(TextContent)
	require.True(t, ok)
	assert.Equal(t, "Hello, world", text.Text)
}

// Tool-call arguments arrive as JSON fragments split at arbitrary
// points. The assembled arguments must be identical no matter how many
// fragments the payload was split into.
func TestAccumulatorFragmentedToolArguments(t *testing.T) {
	payload := `{"path":"/tmp/file.txt","content":"line one\nline two"}`

	for _, pieces := range []int{1, 2, 3, 7, len(payload)} {
		t.Run(fmt.Sprintf("fragments_%d", pieces), func(t *testing.T) {
			acc := NewBlockAccumulator()
			acc.Add(blockStart(0, llm.Block{Type: "tool_use", ID: "call_1", Name: "write"}))

			size := (len(payload) + pieces - 1) / pieces
			for start := 0; start < len(payload); start += size {
				end := min(start+size, len(payload))
				update := acc.Add(jsonDelta(0, payload[start:end]))
				assert.True(t, update.ToolCallDelta)
			}

			update := acc.Add(blockStop(0))
			call, ok := update.Closed.(ToolCallContent)
			require.True(t, ok)
			assert.Equal(t, "call_1", call.ID)
			assert.Equal(t, "write", call.Name)
			assert.Equal(t, payload, call.RawArguments)
			assert.Equal(t, "/tmp/file.txt", call.Arguments["path"])
			assert.Equal(t, "line one\nline two", call.Arguments["content"])
		})
	}
}

func TestAccumulatorInvalidToolArguments(t *testing.T) {
	acc := NewBlockAccumulator()
	acc.Add(blockStart(0, llm.Block{Type: "tool_use", ID: "call_1", Name: "write"}))
	acc.Add(jsonDelta(0, `{"path": truncated`))
	update := acc.Add(blockStop(0))

	call, ok := update.Closed.(ToolCallContent)
	require.True(t, ok)
	// Arguments stay nil so validation can reject the call downstream.
	assert.Nil(t, call.Arguments)
	assert.Equal(t, `{"path": truncated`, call.RawArguments)
}

func TestAccumulatorMixedBlocks(t *testing.T) {
	acc := NewBlockAccumulator()

	acc.Add(blockStart(0, llm.Block{Type: "text"}))
	acc.Add(textDelta(0, "I will read the file."))
	acc.Add(blockStop(0))

	acc.Add(blockStart(1, llm.Block{Type: "tool_use", ID: "call_1", Name: "read"}))
	acc.Add(jsonDelta(1, `{"path":"a.txt"}`))
	acc.Add(blockStop(1))

	acc.Add(llm.StreamEvent{
		Type:  llm.EventMessageDelta,
		Delta: &llm.Delta{Type: "message_delta", StopReason: "tool_use"},
		Usage: &llm.Usage{InputTokens: 20, OutputTokens: 11},
	})
	acc.Add(llm.StreamEvent{Type: llm.EventMessageStop})

	msg := acc.Message()
	require.Len(t, msg.Content, 2)
	assert.Equal(t, "tool_use", msg.StopReason)
	require.NotNil(t, msg.Usage)
	assert.Equal(t, 31, msg.Usage.TotalTokens)

	calls := msg.ExtractToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "read", calls[0].Name)
}

// A content_block_start while another block is open implicitly closes
// the previous one, so deltas can never interleave between blocks.
func TestAccumulatorImplicitClose(t *testing.T) {
	acc := NewBlockAccumulator()

	acc.Add(blockStart(0, llm.Block{Type: "text"}))
	acc.Add(textDelta(0, "first"))
	acc.Add(blockStart(1, llm.Block{Type: "text"}))
	acc.Add(textDelta(1, "second"))
	acc.Add(blockStop(1))

	blocks := acc.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, "first", blocks[0].(TextContent).Text)
	assert.Equal(t, "second", blocks[1].(TextContent).Text)
}

// A stream that dies before content_block_stop gets a synthesized
// message_stop carrying the folded stop reason and usage. Closing the
// dangling block must not lose either.
func TestAccumulatorStopWithOpenBlockKeepsMetadata(t *testing.T) {
	acc := NewBlockAccumulator()

	acc.Add(blockStart(0, llm.Block{Type: "text"}))
	acc.Add(textDelta(0, "partial answer"))
	update := acc.Add(llm.StreamEvent{
		Type:  llm.EventMessageStop,
		Delta: &llm.Delta{StopReason: "end_turn"},
		Usage: &llm.Usage{InputTokens: 12, OutputTokens: 7},
	})

	text, ok := update.Closed.(TextContent)
	require.True(t, ok)
	assert.Equal(t, "partial answer", text.Text)

	msg := acc.Message()
	assert.Equal(t, "end_turn", msg.StopReason)
	require.NotNil(t, msg.Usage)
	assert.Equal(t, 19, msg.Usage.TotalTokens)
}

func TestAccumulatorDropsOrphanDeltas(t *testing.T) {
	acc := NewBlockAccumulator()

	// No open block: deltas are protocol noise.
	update := acc.Add(textDelta(0, "orphan"))
	assert.Equal(t, Update{}, update)
	assert.Empty(t, acc.Blocks())
}

func TestAccumulatorThinkingBlock(t *testing.T) {
	acc := NewBlockAccumulator()

	acc.Add(blockStart(0, llm.Block{Type: "thinking"}))
	update := acc.Add(textDelta(0, "considering..."))
	assert.Equal(t, "considering...", update.ThinkingDelta)
	assert.Empty(t, update.TextDelta)
	update = acc.Add(blockStop(0))

	thinking, ok := update.Closed.(ThinkingContent)
	require.True(t, ok)
	assert.Equal(t, "considering...", thinking.Thinking)
}

func TestAccumulatorStartEventCarriesInput(t *testing.T) {
	input, err := json.Marshal(map[string]any{"command": "ls"})
	require.NoError(t, err)

	acc := NewBlockAccumulator()
	acc.Add(blockStart(0, llm.Block{Type: "tool_use", ID: "call_1", Name: "bash", Input: input}))
	update := acc.Add(blockStop(0))

	call, ok := update.Closed.(ToolCallContent)
	require.True(t, ok)
	assert.Equal(t, "ls", call.Arguments["command"])
}
