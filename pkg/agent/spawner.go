package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const (
	defaultMaxSpawnDepth      = 3 // nesting levels of spawned agents
	defaultMaxConcurrentSpawn = 3
)

// ErrAgentNotFound reports a spawn request naming an unregistered
// agent kind.
var ErrAgentNotFound = errors.New("agent not found")

// AgentDef describes an agent kind that can be spawned by name.
type AgentDef struct {
	Name         string   `yaml:"name" json:"name"`
	Description  string   `yaml:"description" json:"description"`
	SystemPrompt string   `yaml:"systemPrompt" json:"systemPrompt"`
	Tools        []string `yaml:"tools" json:"tools"`
	// CanSpawn controls whether agents of this kind may spawn further
	// agents themselves, subject to the depth bound.
	CanSpawn bool `yaml:"canSpawn" json:"canSpawn"`
}

// Registry holds the agent definitions available for spawning.
type Registry struct {
	defs map[string]AgentDef
}

// NewRegistry creates a registry from the given definitions. Later
// definitions with the same name override earlier ones.
func NewRegistry(defs []AgentDef) *Registry {
	r := &Registry{defs: make(map[string]AgentDef, len(defs))}
	for _, def := range defs {
		if def.Name == "" {
			continue
		}
		r.defs[def.Name] = def
	}
	return r
}

// LoadAgentDefs reads agent definitions from a YAML file.
func LoadAgentDefs(path string) ([]AgentDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent definitions: %w", err)
	}

	var file struct {
		Agents []AgentDef `yaml:"agents"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse agent definitions %s: %w", path, err)
	}
	return file.Agents, nil
}

// Lookup returns the definition registered under the given name.
func (r *Registry) Lookup(name string) (AgentDef, error) {
	def, ok := r.defs[name]
	if !ok {
		return AgentDef{}, fmt.Errorf("agent %q not found (available: %s): %w", name, strings.Join(r.Names(), ", "), ErrAgentNotFound)
	}
	return def, nil
}

// Names returns the registered agent names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SpawnRequest is one requested child agent invocation.
type SpawnRequest struct {
	Agent  string `json:"agent"`
	Prompt string `json:"prompt"`
}

// SpawnResult is the outcome of one child agent, in request order.
type SpawnResult struct {
	Agent   string `json:"agent"`
	Success bool   `json:"success"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ToolResolver maps tool names from an agent definition to tool
// instances. Unknown names are skipped.
type ToolResolver func(names []string) []Tool

// SpawnTool lets an agent delegate work to concurrent child agents.
// Each child runs its own session and turn loop; results come back as
// an ordered JSON array once every child has finished.
type SpawnTool struct {
	registry     *Registry
	resolveTools ToolResolver
	config       *LoopConfig
	// emit forwards child agent events to the parent's surface; may be
	// nil.
	emit func(AgentEvent)

	depth         int
	maxDepth      int
	maxConcurrent int
}

// NewSpawnTool creates a spawn tool for a top-level agent.
func NewSpawnTool(registry *Registry, resolveTools ToolResolver, config *LoopConfig, emit func(AgentEvent)) *SpawnTool {
	return &SpawnTool{
		registry:      registry,
		resolveTools:  resolveTools,
		config:        config,
		emit:          emit,
		maxDepth:      defaultMaxSpawnDepth,
		maxConcurrent: defaultMaxConcurrentSpawn,
	}
}

func (s *SpawnTool) Name() string {
	return "spawn_agents"
}

func (s *SpawnTool) Description() string {
	var b strings.Builder
	b.WriteString("Spawn one or more agents to work on tasks concurrently. ")
	b.WriteString("Each agent runs independently with its own context and reports back a final answer. ")
	b.WriteString("Available agents:\n")
	for _, name := range s.registry.Names() {
		def, _ := s.registry.Lookup(name)
		fmt.Fprintf(&b, "- %s: %s\n", name, def.Description)
	}
	return b.String()
}

func (s *SpawnTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agents": map[string]any{
				"type":        "array",
				"description": "Agents to spawn; they run concurrently",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"agent": map[string]any{
							"type":        "string",
							"description": "Name of the agent to spawn",
						},
						"prompt": map[string]any{
							"type":        "string",
							"description": "Task for the agent to work on",
						},
					},
					"required": []string{"agent", "prompt"},
				},
			},
		},
		"required": []string{"agents"},
	}
}

// Execute spawns the requested agents, waits for all of them, and
// returns their results as a JSON array in request order.
func (s *SpawnTool) Execute(ctx context.Context, args map[string]any) ([]ContentBlock, error) {
	reqs, err := parseSpawnRequests(args)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("agents list is empty")
	}

	results := s.run(ctx, reqs)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	payload, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode spawn results: %w", err)
	}
	return []ContentBlock{TextContent{Type: "text", Text: string(payload)}}, nil
}

func (s *SpawnTool) run(ctx context.Context, reqs []SpawnRequest) []SpawnResult {
	results := make([]SpawnResult, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			results[i] = s.runOne(ctx, req)
			return nil
		})
	}
	g.Wait()

	return results
}

// runOne runs a single child agent to completion. Failures are captured
// in the result rather than aborting sibling agents.
func (s *SpawnTool) runOne(ctx context.Context, req SpawnRequest) SpawnResult {
	result := SpawnResult{Agent: req.Agent}

	def, err := s.registry.Lookup(req.Agent)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	sess := NewSession(def.SystemPrompt)
	sess.Depth = s.depth + 1

	if s.resolveTools != nil {
		for _, tool := range s.resolveTools(def.Tools) {
			sess.AddTool(tool)
		}
	}
	if def.CanSpawn && sess.Depth < s.maxDepth {
		sess.AddTool(s.child())
	}

	slog.Info("[Spawn] starting agent", "agent", req.Agent, "session", sess.ID, "depth", sess.Depth)

	childConfig := *s.config
	stream := RunLoop(ctx, []AgentMessage{NewUserMessage(req.Prompt)}, sess, &childConfig)

	var endEvent *AgentEvent
	for item := range stream.Iterator(ctx) {
		if item.Done {
			break
		}
		event := item.Value
		if event.Type == EventAgentEnd {
			endEvent = &event
		}
		if s.emit != nil {
			s.emit(event)
		}
	}

	if ctx.Err() != nil {
		result.Error = "cancelled"
		return result
	}
	if endEvent == nil {
		result.Error = "agent terminated without result"
		return result
	}

	switch endEvent.Outcome {
	case OutcomeCompleted:
		result.Success = true
		result.Text = finalAssistantText(endEvent.Messages)
	case OutcomeCancelled:
		result.Error = "cancelled"
	default:
		result.Error = endEvent.Error
		if result.Error == "" {
			result.Error = "agent failed"
		}
	}

	slog.Info("[Spawn] agent finished", "agent", req.Agent, "session", sess.ID, "success", result.Success)
	return result
}

// child clones this tool one nesting level deeper.
func (s *SpawnTool) child() *SpawnTool {
	clone := *s
	clone.depth = s.depth + 1
	return &clone
}

func parseSpawnRequests(args map[string]any) ([]SpawnRequest, error) {
	rawAgents, ok := args["agents"].([]any)
	if !ok {
		return nil, fmt.Errorf("agents must be an array")
	}

	reqs := make([]SpawnRequest, 0, len(rawAgents))
	for i, raw := range rawAgents {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("agents[%d] must be an object", i)
		}
		name, _ := entry["agent"].(string)
		prompt, _ := entry["prompt"].(string)
		if name == "" {
			return nil, fmt.Errorf("agents[%d] is missing the agent name", i)
		}
		if prompt == "" {
			return nil, fmt.Errorf("agents[%d] is missing the prompt", i)
		}
		reqs = append(reqs, SpawnRequest{Agent: name, Prompt: prompt})
	}
	return reqs, nil
}

func finalAssistantText(messages []AgentMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "assistant" {
			continue
		}
		if text := strings.TrimSpace(messages[i].ExtractText()); text != "" {
			return text
		}
	}
	return ""
}
