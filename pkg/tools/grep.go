package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/junchih/strand/pkg/agent"
)

// SearchTool searches file contents using ripgrep or grep.
type SearchTool struct {
	cwd string
}

// NewSearchTool creates a new Search tool.
func NewSearchTool(cwd string) *SearchTool {
	return &SearchTool{cwd: cwd}
}

// Name returns the tool name.
func (t *SearchTool) Name() string {
	return "grep"
}

// Description returns the tool description.
func (t *SearchTool) Description() string {
	return "Search file contents for patterns (respects .gitignore). Uses ripgrep if available, falls back to grep."
}

// Parameters returns the JSON Schema for the tool parameters.
func (t *SearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Search pattern (regular expression)",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Path to search in (default: current directory)",
			},
			"filePattern": map[string]any{
				"type":        "string",
				"description": "File pattern to filter (e.g., '*.go')",
			},
		},
		"required": []string{"pattern"},
	}
}

// Execute executes the search.
func (t *SearchTool) Execute(ctx context.Context, args map[string]any) ([]agent.ContentBlock, error) {
	pattern, ok := args["pattern"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid pattern argument")
	}

	searchPath := t.cwd
	if path, ok := args["path"].(string); ok && path != "" {
		searchPath = resolvePath(t.cwd, path)
	}

	var cmd *exec.Cmd
	if commandExists("rg") {
		cmdArgs := []string{"--no-heading", "--line-number", "--color=never"}
		if filePattern, ok := args["filePattern"].(string); ok && filePattern != "" {
			cmdArgs = append(cmdArgs, "--glob", filePattern)
		}
		cmdArgs = append(cmdArgs, pattern, searchPath)
		cmd = exec.CommandContext(ctx, "rg", cmdArgs...)
	} else {
		cmdArgs := []string{"-rn", pattern, searchPath}
		if filePattern, ok := args["filePattern"].(string); ok && filePattern != "" {
			cmdArgs = append([]string{"--include", filePattern}, cmdArgs...)
		}
		cmd = exec.CommandContext(ctx, "grep", cmdArgs...)
	}

	output, err := cmd.CombinedOutput()
	text := strings.TrimSpace(string(output))

	// Both rg and grep exit 1 on no matches.
	if err != nil && text == "" {
		if exitError, ok := err.(*exec.ExitError); ok && exitError.ExitCode() == 1 {
			text = "No matches found."
		} else {
			return nil, fmt.Errorf("search failed: %w", err)
		}
	}

	const maxSize = 50 * 1024
	if len(text) > maxSize {
		text = text[:maxSize] + "\n\n... (output truncated)"
	}

	return []agent.ContentBlock{
		agent.TextContent{
			Type: "text",
			Text: text,
		},
	}, nil
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
