package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junchih/strand/pkg/agent"
)

func TestRegistryRegisterAndResolve(t *testing.T) {
	registry := NewRegistry()
	for _, tool := range DefaultTools(t.TempDir(), false) {
		registry.Register(tool)
	}

	read, ok := registry.Get("read")
	require.True(t, ok)
	assert.Equal(t, "read", read.Name())

	_, ok = registry.Get("nope")
	assert.False(t, ok)

	resolved := registry.Resolve([]string{"read", "bash", "unknown"})
	require.Len(t, resolved, 2)
	assert.Equal(t, "read", resolved[0].Name())
	assert.Equal(t, "bash", resolved[1].Name())

	assert.Len(t, registry.All(), 6)
}

func TestReadTool(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "f.txt", "file body\n")

	tool := NewReadTool(dir)
	content, err := tool.Execute(context.Background(), map[string]any{"path": "f.txt"})
	require.NoError(t, err)
	require.Len(t, content, 1)

	text, ok := content[0].(agent.TextContent)
	require.True(t, ok)
	assert.Equal(t, "file body\n", text.Text)
}

func TestReadToolRejectsBinary(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "bin", "ab\x00cd")

	tool := NewReadTool(dir)
	_, err := tool.Execute(context.Background(), map[string]any{"path": "bin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "binary")
}

func TestListTool(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "b.txt", "")
	writeTestFile(t, dir, "a.txt", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	tool := NewListTool(dir)
	content, err := tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)

	text := content[0].(agent.TextContent).Text
	// Directories first, then files, each alphabetical.
	assert.Equal(t, "sub/\na.txt\nb.txt\n", text)
}

func TestBashTool(t *testing.T) {
	tool := NewBashTool(t.TempDir())

	content, err := tool.Execute(context.Background(), map[string]any{"command": "echo hi"})
	require.NoError(t, err)
	assert.Contains(t, content[0].(agent.TextContent).Text, "hi")

	content, err = tool.Execute(context.Background(), map[string]any{"command": "exit 3"})
	require.NoError(t, err)
	assert.Contains(t, content[0].(agent.TextContent).Text, "exit code 3")
}
