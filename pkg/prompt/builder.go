package prompt

import (
	"fmt"
	"strings"
)

// ToolInfo describes a tool for prompt generation.
type ToolInfo interface {
	Name() string
	Description() string
}

// AgentInfo describes a spawnable agent for prompt generation.
type AgentInfo struct {
	Name        string
	Description string
}

// Builder constructs system prompts with structured sections.
type Builder struct {
	// Base system prompt (identity, core behavior)
	base string

	// Working directory
	cwd string

	// Workspace notes (optional reminders)
	workspaceNotes string

	// Available tools (for Tooling section)
	tools []ToolInfo

	// Spawnable agents (for Agents section)
	agents []AgentInfo
}

// NewBuilder creates a new prompt builder.
func NewBuilder(basePrompt, cwd string) *Builder {
	return &Builder{
		base: basePrompt,
		cwd:  cwd,
	}
}

// SetWorkspaceNotes sets optional workspace notes.
func (b *Builder) SetWorkspaceNotes(notes string) *Builder {
	b.workspaceNotes = notes
	return b
}

// SetTools sets the available tools.
func (b *Builder) SetTools(tools []ToolInfo) *Builder {
	b.tools = tools
	return b
}

// SetAgents sets the spawnable agent definitions.
func (b *Builder) SetAgents(agents []AgentInfo) *Builder {
	b.agents = agents
	return b
}

// Build generates the final system prompt.
func (b *Builder) Build() string {
	sections := []string{}

	if b.base != "" {
		sections = append(sections, b.base)
	}

	sections = append(sections, b.buildWorkspaceSection())

	if tooling := b.buildToolingSection(); tooling != "" {
		sections = append(sections, tooling)
	}

	if agents := b.buildAgentsSection(); agents != "" {
		sections = append(sections, agents)
	}

	return strings.Join(sections, "\n\n")
}

func (b *Builder) buildWorkspaceSection() string {
	notes := ""
	if b.workspaceNotes != "" {
		notes = "\n" + b.workspaceNotes
	}
	return fmt.Sprintf(`## Workspace
Your working directory is: %s
Treat this directory as the single global workspace for file operations unless explicitly instructed otherwise.%s`, b.cwd, notes)
}

func (b *Builder) buildToolingSection() string {
	if len(b.tools) == 0 {
		return ""
	}

	lines := []string{
		"## Tooling",
		"You have access to the following tools:",
		"",
	}
	for _, tool := range b.tools {
		lines = append(lines, fmt.Sprintf("- %s: %s", tool.Name(), firstLine(tool.Description())))
	}

	lines = append(lines, "")
	lines = append(lines, "**IMPORTANT**: Only use the tools listed above.")
	lines = append(lines, "Do NOT assume you have access to any other tools.")

	return strings.Join(lines, "\n")
}

func (b *Builder) buildAgentsSection() string {
	if len(b.agents) == 0 {
		return ""
	}

	lines := []string{
		"## Agents",
		"You can delegate independent subtasks to these agents via the spawn_agents tool:",
		"",
	}
	for _, agent := range b.agents {
		lines = append(lines, fmt.Sprintf("- %s: %s", agent.Name, agent.Description))
	}
	lines = append(lines, "")
	lines = append(lines, "Spawn agents for work that can proceed independently; they do not share your conversation.")

	return strings.Join(lines, "\n")
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
