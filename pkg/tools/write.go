package tools

import (
	"context"
	"fmt"
	"os"

	"github.com/junchih/strand/pkg/agent"
)

// WriteTool writes content to a file. In propose mode it does not touch
// the filesystem; it returns the change for approval instead.
type WriteTool struct {
	cwd     string
	propose bool
}

// NewWriteTool creates a new Write tool.
func NewWriteTool(cwd string, propose bool) *WriteTool {
	return &WriteTool{cwd: cwd, propose: propose}
}

// Name returns the tool name.
func (t *WriteTool) Name() string {
	return "write"
}

// Description returns the tool description.
func (t *WriteTool) Description() string {
	return "Write content to a file. Creates the file if it doesn't exist, overwrites if it does."
}

// Parameters returns the JSON Schema for the tool parameters.
func (t *WriteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to write",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content to write to the file",
			},
		},
		"required": []string{"path", "content"},
	}
}

// Execute writes content to the file, or proposes the write when the
// approval gate is active.
func (t *WriteTool) Execute(ctx context.Context, args map[string]any) ([]agent.ContentBlock, error) {
	path, ok1 := args["path"].(string)
	content, ok2 := args["content"].(string)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("invalid arguments")
	}

	fullPath := resolvePath(t.cwd, path)

	oldContent := ""
	if data, err := os.ReadFile(fullPath); err == nil {
		oldContent = string(data)
	}

	if t.propose {
		return []agent.ContentBlock{
			agent.FileChangeContent{
				Type:       "fileChange",
				Path:       fullPath,
				OldContent: oldContent,
				NewContent: content,
				Diff:       UnifiedDiff(oldContent, content),
			},
		}, nil
	}

	if err := ApplyFileChange(fullPath, content); err != nil {
		return nil, err
	}

	return []agent.ContentBlock{
		agent.TextContent{
			Type: "text",
			Text: fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), fullPath),
		},
	}, nil
}
