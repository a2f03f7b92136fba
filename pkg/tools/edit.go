package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/junchih/strand/pkg/agent"
)

// EditTool edits a file by replacing old text with new text. In propose
// mode the edit is returned for approval instead of applied.
type EditTool struct {
	cwd     string
	propose bool
}

// NewEditTool creates a new Edit tool.
func NewEditTool(cwd string, propose bool) *EditTool {
	return &EditTool{cwd: cwd, propose: propose}
}

// Name returns the tool name.
func (t *EditTool) Name() string {
	return "edit"
}

// Description returns the tool description.
func (t *EditTool) Description() string {
	return "Edit a file by replacing text. Supports fuzzy matching to find the text to replace."
}

// Parameters returns the tool parameters.
func (t *EditTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to edit (relative or absolute)",
			},
			"oldText": map[string]any{
				"type":        "string",
				"description": "Text to search for and replace",
			},
			"newText": map[string]any{
				"type":        "string",
				"description": "New text to replace the old text with",
			},
		},
		"required": []string{"path", "oldText", "newText"},
	}
}

// Execute executes the Edit tool.
func (t *EditTool) Execute(ctx context.Context, args map[string]any) ([]agent.ContentBlock, error) {
	path, ok := args["path"].(string)
	if !ok {
		return nil, fmt.Errorf("path must be a string")
	}
	oldText, ok := args["oldText"].(string)
	if !ok {
		return nil, fmt.Errorf("oldText must be a string")
	}
	newText, ok := args["newText"].(string)
	if !ok {
		return nil, fmt.Errorf("newText must be a string")
	}

	fullPath := resolvePath(t.cwd, path)

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	fileContent := string(data)

	match, err := findBestMatch(fileContent, oldText)
	if err != nil {
		return nil, err
	}

	editedContent := fileContent[:match.start] + newText + fileContent[match.end:]
	diff := UnifiedDiff(fileContent, editedContent)

	if t.propose {
		return []agent.ContentBlock{
			agent.FileChangeContent{
				Type:       "fileChange",
				Path:       fullPath,
				OldContent: fileContent,
				NewContent: editedContent,
				Diff:       diff,
			},
		}, nil
	}

	if err := os.WriteFile(fullPath, []byte(editedContent), 0644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return []agent.ContentBlock{agent.TextContent{
		Type: "text",
		Text: fmt.Sprintf("Edited %s\n\nDiff:\n%s", path, diff),
	}}, nil
}

// matchResult represents a fuzzy match result.
type matchResult struct {
	start int
	end   int
	score int // lower is better
}

const noMatchScore = 1 << 30

// findBestMatch finds the best matching position for oldText in
// content, preferring an exact match and falling back to a line-window
// fuzzy search.
func findBestMatch(content, oldText string) (*matchResult, error) {
	if idx := strings.Index(content, oldText); idx >= 0 {
		return &matchResult{start: idx, end: idx + len(oldText)}, nil
	}

	contentLines := strings.Split(content, "\n")
	oldLines := strings.Split(oldText, "\n")
	if len(oldLines) == 0 {
		return nil, fmt.Errorf("oldText is empty")
	}

	best := &matchResult{score: noMatchScore}

	for i := 0; i <= len(contentLines)-len(oldLines); i++ {
		window := contentLines[i : i+len(oldLines)]
		score := windowScore(window, oldLines)
		if score >= best.score {
			continue
		}

		startPos := 0
		for j := 0; j < i; j++ {
			startPos += len(contentLines[j]) + 1
		}
		best = &matchResult{
			start: startPos,
			end:   startPos + len(strings.Join(window, "\n")),
			score: score,
		}
	}

	if best.score == noMatchScore {
		return nil, fmt.Errorf("could not find matching text (tried fuzzy matching)")
	}
	if best.score > 10 {
		matched := content[best.start:best.end]
		return nil, fmt.Errorf("fuzzy match is poor (score %d), found: %q", best.score, truncateString(matched, 50))
	}

	return best, nil
}

// windowScore sums the per-line edit distance between two line slices.
func windowScore(a, b []string) int {
	n := max(len(a), len(b))
	score := 0
	for i := 0; i < n; i++ {
		switch {
		case i >= len(a):
			score += len(b[i])
		case i >= len(b):
			score += len(a[i])
		default:
			score += editDistance(a[i], b[i])
		}
	}
	return score
}

// editDistance computes the Levenshtein distance between two strings.
func editDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	if len(a) < len(b) {
		a, b = b, a
	}

	previous := make([]int, len(b)+1)
	for i := range previous {
		previous[i] = i
	}
	current := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		current[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			current[j] = min(previous[j]+1, current[j-1]+1, previous[j-1]+cost)
		}
		previous, current = current, previous
	}

	return previous[len(b)]
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
