package agent

import (
	"encoding/json"
	"strings"

	"github.com/junchih/strand/pkg/llm"
)

// Update describes the observable effect of feeding one stream event to
// the accumulator. Zero-valued fields mean "nothing of that kind".
type Update struct {
	// TextDelta is a streamed chunk of prose, emitted as it arrives.
	TextDelta string
	// ThinkingDelta is a streamed chunk of reasoning content.
	ThinkingDelta string
	// ToolCallDelta is true when a tool call received an argument fragment.
	ToolCallDelta bool
	// Index is the content index the delta applies to.
	Index int
	// Closed is the block completed by a content_block_stop event.
	Closed ContentBlock
}

// openBlock is the single block currently receiving deltas.
type openBlock struct {
	kind    string // "text", "toolCall", "thinking"
	index   int
	id      string
	name    string
	text    strings.Builder
	rawArgs strings.Builder
}

// BlockAccumulator reconstructs complete content blocks for one
// assistant turn from the decoded protocol events. At most one block is
// open at a time; deltas are routed strictly to the most recently opened
// block. Tool-call arguments may arrive fragmented across any number of
// input_json_delta events; they are parsed only once the block closes.
type BlockAccumulator struct {
	blocks     []ContentBlock
	open       *openBlock
	stopReason string
	usage      Usage
}

// NewBlockAccumulator creates an empty accumulator.
func NewBlockAccumulator() *BlockAccumulator {
	return &BlockAccumulator{}
}

// Add consumes one protocol event and reports its observable effect.
// Events that do not concern content blocks (ping, message_start) are
// ignored; deltas without an open block are dropped as protocol noise.
func (a *BlockAccumulator) Add(event llm.StreamEvent) Update {
	switch event.Type {
	case llm.EventContentBlockStart:
		a.openBlockFromEvent(event)

	case llm.EventContentBlockDelta:
		if a.open == nil || event.Delta == nil {
			return Update{}
		}
		switch event.Delta.Type {
		case llm.DeltaText:
			if a.open.kind == "thinking" {
				a.open.text.WriteString(event.Delta.Text)
				return Update{ThinkingDelta: event.Delta.Text, Index: a.open.index}
			}
			a.open.text.WriteString(event.Delta.Text)
			return Update{TextDelta: event.Delta.Text, Index: a.open.index}
		case llm.DeltaInputJSON:
			a.open.rawArgs.WriteString(event.Delta.PartialJSON)
			return Update{ToolCallDelta: true, Index: a.open.index}
		}

	case llm.EventContentBlockStop:
		return Update{Closed: a.closeOpenBlock()}

	case llm.EventMessageDelta:
		if event.Delta != nil && event.Delta.StopReason != "" {
			a.stopReason = event.Delta.StopReason
		}
		if event.Usage != nil {
			a.usage = Usage{
				InputTokens:  event.Usage.InputTokens,
				OutputTokens: event.Usage.OutputTokens,
				TotalTokens:  event.Usage.InputTokens + event.Usage.OutputTokens,
			}
		}

	case llm.EventMessageStop:
		if event.Delta != nil && event.Delta.StopReason != "" {
			a.stopReason = event.Delta.StopReason
		}
		if event.Usage != nil {
			a.usage = Usage{
				InputTokens:  event.Usage.InputTokens,
				OutputTokens: event.Usage.OutputTokens,
				TotalTokens:  event.Usage.InputTokens + event.Usage.OutputTokens,
			}
		}
		// A stop while a block is still open closes it; well-formed
		// streams close every block explicitly first.
		if a.open != nil {
			return Update{Closed: a.closeOpenBlock()}
		}
	}

	return Update{}
}

func (a *BlockAccumulator) openBlockFromEvent(event llm.StreamEvent) {
	// Opening a new block while one is open closes the previous one so
	// deltas can never interleave.
	if a.open != nil {
		a.closeOpenBlock()
	}

	block := &openBlock{index: event.Index}
	if event.ContentBlock != nil {
		switch event.ContentBlock.Type {
		case "tool_use":
			block.kind = "toolCall"
			block.id = event.ContentBlock.ID
			block.name = event.ContentBlock.Name
			// Some providers put the first argument fragment on the
			// start event itself.
			if len(event.ContentBlock.Input) > 0 && string(event.ContentBlock.Input) != "{}" {
				block.rawArgs.Write(event.ContentBlock.Input)
			}
		case "thinking":
			block.kind = "thinking"
		default:
			block.kind = "text"
			block.text.WriteString(event.ContentBlock.Text)
		}
	} else {
		block.kind = "text"
	}
	a.open = block
}

// closeOpenBlock seals the open block. For tool calls the accumulated
// raw arguments are parsed; a parse failure leaves Arguments nil so the
// validation gate can reject the call with a descriptive error instead
// of the loop crashing here.
func (a *BlockAccumulator) closeOpenBlock() ContentBlock {
	if a.open == nil {
		return nil
	}
	open := a.open
	a.open = nil

	var block ContentBlock
	switch open.kind {
	case "toolCall":
		raw := open.rawArgs.String()
		var args map[string]any
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				args = nil
			}
		}
		block = ToolCallContent{
			ID:           open.id,
			Type:         "toolCall",
			Name:         open.name,
			Arguments:    args,
			RawArguments: raw,
		}
	case "thinking":
		block = ThinkingContent{Type: "thinking", Thinking: open.text.String()}
	default:
		block = TextContent{Type: "text", Text: open.text.String()}
	}

	a.blocks = append(a.blocks, block)
	return block
}

// Blocks returns the completed blocks so far, in arrival order.
func (a *BlockAccumulator) Blocks() []ContentBlock {
	return a.blocks
}

// StopReason returns the stop reason reported by the stream.
func (a *BlockAccumulator) StopReason() string {
	return a.stopReason
}

// Message assembles the completed assistant message.
func (a *BlockAccumulator) Message() AgentMessage {
	msg := NewAssistantMessage()
	msg.Content = append(msg.Content, a.blocks...)
	msg.StopReason = a.stopReason
	if a.usage.TotalTokens > 0 {
		usage := a.usage
		msg.Usage = &usage
	}
	return msg
}
