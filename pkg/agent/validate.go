package agent

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// defaultFailureThreshold is the number of consecutive schema failures
// for one tool after which the loop aborts instead of retrying.
const defaultFailureThreshold = 3

// ValidationError reports a tool call whose arguments failed schema
// validation. It is fed back into the conversation so the model can
// self-correct.
type ValidationError struct {
	Tool   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %q: %s", e.Tool, e.Reason)
}

// CircuitBreakerError reports that a tool failed validation too many
// times in a row. It is fatal for the agent's current turn loop.
type CircuitBreakerError struct {
	Tool     string
	Failures int
	Last     error
}

func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("tool %q failed validation %d times consecutively, aborting: %v", e.Tool, e.Failures, e.Last)
}

func (e *CircuitBreakerError) Unwrap() error {
	return e.Last
}

// ToolValidator checks reconstructed tool calls against their declared
// schemas and tracks consecutive failures per tool. It is local to one
// turn-loop invocation and must not be shared between agents.
type ToolValidator struct {
	threshold int
	failures  map[string]int
	schemas   map[string]*gojsonschema.Schema
}

// NewToolValidator creates a validator with the default threshold.
func NewToolValidator() *ToolValidator {
	return NewToolValidatorWithThreshold(defaultFailureThreshold)
}

// NewToolValidatorWithThreshold creates a validator aborting after the
// given number of consecutive failures for any single tool.
func NewToolValidatorWithThreshold(threshold int) *ToolValidator {
	if threshold <= 0 {
		threshold = defaultFailureThreshold
	}
	return &ToolValidator{
		threshold: threshold,
		failures:  make(map[string]int),
		schemas:   make(map[string]*gojsonschema.Schema),
	}
}

// Validate checks a reconstructed tool call against the tool's declared
// schema. On success the tool's failure counter resets and nil is
// returned. On failure a *ValidationError is returned, or a
// *CircuitBreakerError once the consecutive-failure threshold is hit.
func (v *ToolValidator) Validate(tool Tool, call ToolCallContent) error {
	if err := v.check(tool, call); err != nil {
		v.failures[call.Name]++
		if v.failures[call.Name] >= v.threshold {
			return &CircuitBreakerError{
				Tool:     call.Name,
				Failures: v.failures[call.Name],
				Last:     err,
			}
		}
		return err
	}

	v.failures[call.Name] = 0
	return nil
}

// Failures returns the current consecutive failure count for a tool.
func (v *ToolValidator) Failures(name string) int {
	return v.failures[name]
}

func (v *ToolValidator) check(tool Tool, call ToolCallContent) error {
	// Absent or empty arguments are rejected outright rather than being
	// treated as valid defaults, so malformed requests surface early.
	if call.Arguments == nil {
		if strings.TrimSpace(call.RawArguments) == "" {
			return &ValidationError{Tool: call.Name, Reason: "empty input"}
		}
		return &ValidationError{Tool: call.Name, Reason: "arguments are not valid JSON"}
	}

	schema, err := v.schemaFor(tool)
	if err != nil {
		return &ValidationError{Tool: call.Name, Reason: fmt.Sprintf("invalid tool schema: %v", err)}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(call.Arguments))
	if err != nil {
		return &ValidationError{Tool: call.Name, Reason: err.Error()}
	}

	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return &ValidationError{Tool: call.Name, Reason: strings.Join(reasons, "; ")}
	}

	return nil
}

// schemaFor compiles and caches the tool's declared parameter schema.
func (v *ToolValidator) schemaFor(tool Tool) (*gojsonschema.Schema, error) {
	name := tool.Name()
	if schema, ok := v.schemas[name]; ok {
		return schema, nil
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(tool.Parameters()))
	if err != nil {
		return nil, err
	}
	v.schemas[name] = schema
	return schema, nil
}
