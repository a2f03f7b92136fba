package tools

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/junchih/strand/pkg/agent"
)

// ListTool lists directory contents.
type ListTool struct {
	cwd string
}

// NewListTool creates a new List tool.
func NewListTool(cwd string) *ListTool {
	return &ListTool{cwd: cwd}
}

// Name returns the tool name.
func (t *ListTool) Name() string {
	return "ls"
}

// Description returns the tool description.
func (t *ListTool) Description() string {
	return "List the files and directories at a path."
}

// Parameters returns the JSON Schema for the tool parameters.
func (t *ListTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Directory to list (default: current directory)",
			},
		},
	}
}

// Execute lists the directory.
func (t *ListTool) Execute(ctx context.Context, args map[string]any) ([]agent.ContentBlock, error) {
	path := t.cwd
	if p, ok := args["path"].(string); ok && p != "" {
		path = resolvePath(t.cwd, p)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory %s: %w", path, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var sb strings.Builder
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		sb.WriteString(name)
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		sb.WriteString("(empty directory)")
	}

	return []agent.ContentBlock{
		agent.TextContent{
			Type: "text",
			Text: sb.String(),
		},
	}, nil
}
