package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// schemaTool is a test tool with a required string parameter.
type schemaTool struct {
	name string
}

func (t *schemaTool) Name() string        { return t.name }
func (t *schemaTool) Description() string { return "schema test tool" }

func (t *schemaTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string"},
			"mode": map[string]any{"type": "integer"},
		},
		"required": []string{"path"},
	}
}

func (t *schemaTool) Execute(ctx context.Context, args map[string]any) ([]ContentBlock, error) {
	return []ContentBlock{TextContent{Type: "text", Text: "ok"}}, nil
}

func validCall(name string) ToolCallContent {
	return ToolCallContent{
		ID:           "call_1",
		Type:         "toolCall",
		Name:         name,
		Arguments:    map[string]any{"path": "/tmp/x"},
		RawArguments: `{"path":"/tmp/x"}`,
	}
}

func invalidCall(name string) ToolCallContent {
	return ToolCallContent{
		ID:           "call_1",
		Type:         "toolCall",
		Name:         name,
		Arguments:    map[string]any{"mode": 1},
		RawArguments: `{"mode":1}`,
	}
}

func TestValidateAccepts(t *testing.T) {
	v := NewToolValidator()
	tool := &schemaTool{name: "read"}

	require.NoError(t, v.Validate(tool, validCall("read")))
	assert.Equal(t, 0, v.Failures("read"))
}

func TestValidateRejectsMissingRequired(t *testing.T) {
	v := NewToolValidator()
	tool := &schemaTool{name: "read"}

	err := v.Validate(tool, invalidCall("read"))
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "read", verr.Tool)
	assert.Contains(t, verr.Reason, "path")
}

func TestValidateRejectsEmptyAndMalformedInput(t *testing.T) {
	v := NewToolValidator()
	tool := &schemaTool{name: "read"}

	err := v.Validate(tool, ToolCallContent{Name: "read"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty input")

	err = v.Validate(tool, ToolCallContent{Name: "read", RawArguments: `{"path": trunc`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

// The third consecutive failure for one tool trips the breaker; there
// is no fourth attempt.
func TestValidateCircuitBreaker(t *testing.T) {
	v := NewToolValidator()
	tool := &schemaTool{name: "write"}

	var verr *ValidationError
	var berr *CircuitBreakerError

	err := v.Validate(tool, invalidCall("write"))
	require.True(t, errors.As(err, &verr))

	err = v.Validate(tool, invalidCall("write"))
	require.True(t, errors.As(err, &verr))

	err = v.Validate(tool, invalidCall("write"))
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, 3, berr.Failures)
	assert.Equal(t, "write", berr.Tool)

	// The breaker wraps the underlying validation failure.
	require.True(t, errors.As(berr.Last, &verr))
}

func TestValidateSuccessResetsCounter(t *testing.T) {
	v := NewToolValidator()
	tool := &schemaTool{name: "edit"}

	require.Error(t, v.Validate(tool, invalidCall("edit")))
	require.Error(t, v.Validate(tool, invalidCall("edit")))
	assert.Equal(t, 2, v.Failures("edit"))

	require.NoError(t, v.Validate(tool, validCall("edit")))
	assert.Equal(t, 0, v.Failures("edit"))

	// After a reset the next failure starts a new streak.
	err := v.Validate(tool, invalidCall("edit"))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
}

// Failure counters are per tool; one tool's streak does not affect
// another's.
func TestValidateCountersIndependentPerTool(t *testing.T) {
	v := NewToolValidator()
	readTool := &schemaTool{name: "read"}
	writeTool := &schemaTool{name: "write"}

	require.Error(t, v.Validate(readTool, invalidCall("read")))
	require.Error(t, v.Validate(readTool, invalidCall("read")))
	require.Error(t, v.Validate(writeTool, invalidCall("write")))

	assert.Equal(t, 2, v.Failures("read"))
	assert.Equal(t, 1, v.Failures("write"))
}

func TestValidateCustomThreshold(t *testing.T) {
	v := NewToolValidatorWithThreshold(1)
	tool := &schemaTool{name: "bash"}

	err := v.Validate(tool, invalidCall("bash"))
	var berr *CircuitBreakerError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, 1, berr.Failures)
}
