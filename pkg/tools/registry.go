package tools

import (
	"github.com/junchih/strand/pkg/agent"
)

// Registry manages tool registration and lookup.
type Registry struct {
	tools map[string]agent.Tool
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]agent.Tool),
	}
}

// Register registers a tool.
func (r *Registry) Register(tool agent.Tool) {
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (agent.Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// All returns all registered tools.
func (r *Registry) All() []agent.Tool {
	tools := make([]agent.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	return tools
}

// Resolve maps tool names to registered tools, skipping unknown names.
// It satisfies agent.ToolResolver for spawned agent definitions.
func (r *Registry) Resolve(names []string) []agent.Tool {
	resolved := make([]agent.Tool, 0, len(names))
	for _, name := range names {
		if tool, ok := r.tools[name]; ok {
			resolved = append(resolved, tool)
		}
	}
	return resolved
}

// DefaultTools builds the standard toolset rooted at cwd. When propose
// is true, file mutations go through the approval gate instead of being
// applied immediately.
func DefaultTools(cwd string, propose bool) []agent.Tool {
	return []agent.Tool{
		NewReadTool(cwd),
		NewListTool(cwd),
		NewSearchTool(cwd),
		NewWriteTool(cwd, propose),
		NewEditTool(cwd, propose),
		NewBashTool(cwd),
	}
}
