package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/junchih/strand/pkg/agent"
)

// ReadTool reads file contents.
type ReadTool struct {
	cwd string
}

// NewReadTool creates a new Read tool.
func NewReadTool(cwd string) *ReadTool {
	return &ReadTool{cwd: cwd}
}

// Name returns the tool name.
func (t *ReadTool) Name() string {
	return "read"
}

// Description returns the tool description.
func (t *ReadTool) Description() string {
	return "Read the contents of a file. Supports text files."
}

// Parameters returns the JSON Schema for the tool parameters.
func (t *ReadTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to read (relative or absolute)",
			},
		},
		"required": []string{"path"},
	}
}

// Execute reads the file and returns its contents.
func (t *ReadTool) Execute(ctx context.Context, args map[string]any) ([]agent.ContentBlock, error) {
	path, ok := args["path"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid path argument")
	}

	fullPath := resolvePath(t.cwd, path)

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fullPath, err)
	}

	if isBinary(data) {
		return nil, fmt.Errorf("file %s appears to be binary", fullPath)
	}

	content := string(data)

	// Limit to 100KB so a large file does not dominate the context.
	const maxSize = 100 * 1024
	if len(content) > maxSize {
		content = content[:maxSize]
		content += "\n\n... (file truncated, too large)"
	}

	return []agent.ContentBlock{
		agent.TextContent{
			Type: "text",
			Text: content,
		},
	}, nil
}

// isBinary checks for NUL bytes in the leading chunk of a file.
func isBinary(data []byte) bool {
	const maxSize = 8192
	if len(data) > maxSize {
		data = data[:maxSize]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// resolvePath resolves a path relative to the working directory.
func resolvePath(cwd, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}
