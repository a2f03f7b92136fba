package agent

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestToolExecutorBasic(t *testing.T) {
	executor := NewToolExecutor(2, 5, 10)
	tool := &echoTool{name: "test_tool", reply: "ok"}

	content, err := executor.Execute(context.Background(), tool, map[string]any{"text": "v"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(content) != 1 {
		t.Errorf("Expected 1 content block, got %d", len(content))
	}
}

func TestToolExecutorConcurrencyLimit(t *testing.T) {
	executor := NewToolExecutor(2, 10, 5)

	var mu sync.Mutex
	running := 0
	maxRunning := 0

	tool := &funcTool{name: "slow", fn: func(ctx context.Context) error {
		mu.Lock()
		running++
		if running > maxRunning {
			maxRunning = running
		}
		mu.Unlock()

		time.Sleep(100 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return nil
	}}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = executor.Execute(context.Background(), tool, map[string]any{})
		}()
	}
	wg.Wait()

	if maxRunning > 2 {
		t.Errorf("Expected max 2 concurrent executions, got %d", maxRunning)
	}
}

func TestToolExecutorTimeout(t *testing.T) {
	executor := NewToolExecutor(1, 1, 5) // 1 second tool timeout

	tool := &funcTool{name: "hang", fn: func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return ctx.Err()
	}}

	start := time.Now()
	_, err := executor.Execute(context.Background(), tool, map[string]any{})
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Timeout took too long: %v", elapsed)
	}
}

func TestToolExecutorContextCancel(t *testing.T) {
	executor := NewToolExecutor(1, 30, 60)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tool := &echoTool{name: "never"}
	if _, err := executor.Execute(ctx, tool, map[string]any{}); err == nil {
		t.Error("Expected context error")
	}
}

func TestExecutorPoolPerToolOverride(t *testing.T) {
	pool := NewExecutorPool(3, 30, 60)
	pool.SetExecutor("hang", NewToolExecutor(1, 1, 5))

	tool := &funcTool{name: "hang", fn: func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return ctx.Err()
	}}

	// The per-tool 1s timeout applies, not the pool default of 30s.
	start := time.Now()
	_, err := pool.Execute(context.Background(), tool, map[string]any{})
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Per-tool timeout not applied, took %v", elapsed)
	}
}

// funcTool runs an arbitrary function as its execution body.
type funcTool struct {
	name string
	fn   func(ctx context.Context) error
}

func (t *funcTool) Name() string               { return t.name }
func (t *funcTool) Description() string        { return "func test tool" }
func (t *funcTool) Parameters() map[string]any { return map[string]any{"type": "object"} }

func (t *funcTool) Execute(ctx context.Context, _ map[string]any) ([]ContentBlock, error) {
	if err := t.fn(ctx); err != nil {
		return nil, err
	}
	return []ContentBlock{TextContent{Type: "text", Text: t.name + " done"}}, nil
}
